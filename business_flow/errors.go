// Package businessflow contains the core business logic and use cases for works tracking workflows
package businessflow

import (
	"errors"
	"fmt"

	"github.com/nemaec/obra-erp/app/services"
)

// Business flow error constants
var (
	// User-related errors
	ErrUsuarioNotFound   = errors.New("usuario not found")
	ErrAccountInactive   = errors.New("account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrCaptchaRequired   = errors.New("captcha is required for authority accounts")
	ErrCaptchaInvalid    = errors.New("captcha verification failed")
	ErrRolNoAutorizado   = errors.New("role is not authorized for this operation")

	// Comisaria-related errors
	ErrComisariaNotFound       = errors.New("comisaria not found")
	ErrCodigoComisariaInvalido = errors.New("comisaria code must match COM-NNN")
	ErrCodigoComisariaEnUso    = errors.New("comisaria code already in use")
	ErrComisariaSinPartidas    = errors.New("comisaria has no imported partidas")

	// Partida-related errors
	ErrPartidaNotFound    = errors.New("partida not found")
	ErrArchivoVacio       = errors.New("uploaded file is empty")
	ErrArchivoSinPartidas = errors.New("workbook contains no valid partidas")
	ErrAvanceFueraDeRango = errors.New("avance must be between 0 and 100")
	ErrAvanceSobreTitulo  = errors.New("progress cannot be reported on a title row")

	// Cronograma-related errors
	ErrSesionExpirada           = errors.New("comparison session expired or not found")
	ErrVersionNotFound          = errors.New("version not found")
	ErrModificacionNotFound     = errors.New("modificacion not found")
	ErrVersionYaResuelta        = errors.New("version already approved or rejected")
	ErrVersionNoAprobable       = errors.New("version cannot be approved")
	ErrBalanceNoEquilibrado     = errors.New("budget balance is not settled")
	ErrModificacionesPendientes = errors.New("version has unresolved modificaciones")
	ErrObservacionRequerida     = errors.New("rejection requires an observation")
	ErrVersionEnProceso         = errors.New("another operation is running on this version")

	// Contrato-related errors
	ErrContratoNotFound    = errors.New("contrato not found")
	ErrNumeroContratoEnUso = errors.New("contract number already in use")

	ErrCacheNotAvailable = errors.New("cache not available")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// AsBusinessError unwraps err into target when a BusinessError is in the
// chain
func AsBusinessError(err error, target **BusinessError) bool {
	return errors.As(err, target)
}

// BalanceError carries the failed balance validation so handlers can return
// the alert detail alongside the error
type BalanceError struct {
	Validacion services.ValidacionEquilibrio
}

func (e *BalanceError) Error() string {
	return ErrBalanceNoEquilibrado.Error()
}

func (e *BalanceError) Unwrap() error {
	return ErrBalanceNoEquilibrado
}

// AsBalanceError unwraps err into target when a BalanceError is in the chain
func AsBalanceError(err error, target **BalanceError) bool {
	return errors.As(err, target)
}

func IsUsuarioNotFound(err error) bool {
	return errors.Is(err, ErrUsuarioNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsCaptchaRequired(err error) bool {
	return errors.Is(err, ErrCaptchaRequired)
}

func IsCaptchaInvalid(err error) bool {
	return errors.Is(err, ErrCaptchaInvalid)
}

func IsComisariaNotFound(err error) bool {
	return errors.Is(err, ErrComisariaNotFound)
}

func IsCodigoComisariaEnUso(err error) bool {
	return errors.Is(err, ErrCodigoComisariaEnUso)
}

func IsPartidaNotFound(err error) bool {
	return errors.Is(err, ErrPartidaNotFound)
}

func IsSesionExpirada(err error) bool {
	return errors.Is(err, ErrSesionExpirada)
}

func IsVersionNotFound(err error) bool {
	return errors.Is(err, ErrVersionNotFound)
}

func IsModificacionNotFound(err error) bool {
	return errors.Is(err, ErrModificacionNotFound)
}

func IsVersionYaResuelta(err error) bool {
	return errors.Is(err, ErrVersionYaResuelta)
}

func IsVersionNoAprobable(err error) bool {
	return errors.Is(err, ErrVersionNoAprobable)
}

func IsBalanceNoEquilibrado(err error) bool {
	return errors.Is(err, ErrBalanceNoEquilibrado)
}

func IsModificacionesPendientes(err error) bool {
	return errors.Is(err, ErrModificacionesPendientes)
}

func IsContratoNotFound(err error) bool {
	return errors.Is(err, ErrContratoNotFound)
}

func IsVersionEnProceso(err error) bool {
	return errors.Is(err, ErrVersionEnProceso)
}
