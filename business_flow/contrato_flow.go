package businessflow

import (
	"context"
	"fmt"

	"github.com/nemaec/obra-erp/app/dto"
	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/repository"
	"github.com/nemaec/obra-erp/utils"
	"gorm.io/gorm"
)

// ContratoFlow handles equipment and maintenance contracts
type ContratoFlow interface {
	Crear(ctx context.Context, request *dto.CreateContratoRequest, metadata *ClientMetadata) (*dto.ContratoResponse, error)
	Obtener(ctx context.Context, contratoID uint) (*dto.ContratoResponse, error)
	Listar(ctx context.Context, request *dto.ListContratosRequest) ([]dto.ContratoResponse, error)
	ListarVencidos(ctx context.Context) ([]dto.ContratoResponse, error)
	Firmar(ctx context.Context, contratoID uint, metadata *ClientMetadata) (*dto.ContratoResponse, error)
	Iniciar(ctx context.Context, contratoID uint, metadata *ClientMetadata) (*dto.ContratoResponse, error)
	Finalizar(ctx context.Context, contratoID uint, metadata *ClientMetadata) (*dto.ContratoResponse, error)
	Suspender(ctx context.Context, contratoID uint, metadata *ClientMetadata) (*dto.ContratoResponse, error)
	Reanudar(ctx context.Context, contratoID uint, metadata *ClientMetadata) (*dto.ContratoResponse, error)
	Rescindir(ctx context.Context, contratoID uint, metadata *ClientMetadata) (*dto.ContratoResponse, error)
	AmpliarPlazo(ctx context.Context, contratoID uint, request *dto.AmpliarPlazoRequest, metadata *ClientMetadata) (*dto.ContratoResponse, error)
}

// ContratoFlowImpl implements the contract flow
type ContratoFlowImpl struct {
	contratoRepo  repository.ContratoRepository
	comisariaRepo repository.ComisariaRepository
	auditRepo     repository.AuditLogRepository
	db            *gorm.DB
}

// NewContratoFlow creates a new contract flow instance
func NewContratoFlow(
	contratoRepo repository.ContratoRepository,
	comisariaRepo repository.ComisariaRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) ContratoFlow {
	return &ContratoFlowImpl{
		contratoRepo:  contratoRepo,
		comisariaRepo: comisariaRepo,
		auditRepo:     auditRepo,
		db:            db,
	}
}

// Crear registers a contract in draft state with its station assignments.
// Every referenced station must exist and the assigned amounts must add up
// to the contract total.
func (cf *ContratoFlowImpl) Crear(ctx context.Context, request *dto.CreateContratoRequest, metadata *ClientMetadata) (*dto.ContratoResponse, error) {
	var asignado float64
	for _, cc := range request.Comisarias {
		asignado += cc.Monto
	}
	if diff := asignado - request.MontoTotal; diff > utils.BalanceTolerance || diff < -utils.BalanceTolerance {
		return nil, NewBusinessErrorf("MONTOS_NO_CUADRAN",
			"Assigned amounts (%s) do not match the contract total (%s)", nil,
			utils.FormatSoles(asignado), utils.FormatSoles(request.MontoTotal))
	}

	resp, err := runInTransaction(ctx, cf.db, func(ctx context.Context) (*dto.ContratoResponse, error) {
		existente, err := cf.contratoRepo.ByNumero(ctx, request.Numero)
		if err != nil {
			return nil, err
		}
		if existente != nil {
			return nil, NewBusinessError("NUMERO_EN_USO", "Contract number already registered", ErrNumeroContratoEnUso)
		}

		for _, cc := range request.Comisarias {
			comisaria, err := cf.comisariaRepo.ByID(ctx, cc.ComisariaID)
			if err != nil {
				return nil, err
			}
			if comisaria == nil {
				return nil, NewBusinessErrorf("COMISARIA_NOT_FOUND",
					"Comisaria %d does not exist", ErrComisariaNotFound, cc.ComisariaID)
			}
		}

		contrato := &models.Contrato{
			Numero:         request.Numero,
			Fecha:          request.Fecha.UTC(),
			Tipo:           models.TipoContrato(request.Tipo),
			Estado:         models.ContratoBorrador,
			Contratado:     request.Contratado,
			RUCContratado:  request.RUCContratado,
			ItemContratado: request.ItemContratado,
			PlazoDias:      request.PlazoDias,
			MontoTotal:     request.MontoTotal,
		}
		for _, cc := range request.Comisarias {
			contrato.Comisarias = append(contrato.Comisarias, models.ContratoComisaria{
				ComisariaID: cc.ComisariaID,
				Monto:       cc.Monto,
				Activa:      true,
			})
		}

		if err := cf.contratoRepo.Save(ctx, contrato); err != nil {
			return nil, err
		}

		r := ToContratoResponse(*contrato)
		return &r, nil
	})
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Contrato %s registrado por %s", resp.Numero, utils.FormatSoles(resp.MontoTotal))
	_ = logAudit(ctx, cf.auditRepo, models.AuditActionContratoCreado, desc, true, nil, metadata)

	return resp, nil
}

// Obtener returns one contract with its station assignments
func (cf *ContratoFlowImpl) Obtener(ctx context.Context, contratoID uint) (*dto.ContratoResponse, error) {
	contrato, err := cf.buscar(ctx, contratoID)
	if err != nil {
		return nil, err
	}
	r := ToContratoResponse(*contrato)
	return &r, nil
}

// Listar returns contracts matching the given filters
func (cf *ContratoFlowImpl) Listar(ctx context.Context, request *dto.ListContratosRequest) ([]dto.ContratoResponse, error) {
	if request != nil && request.ComisariaID != nil {
		contratos, err := cf.contratoRepo.ListByComisaria(ctx, *request.ComisariaID)
		if err != nil {
			return nil, err
		}
		return cf.filtrar(contratos, request), nil
	}

	filter := models.ContratoFilter{}
	if request != nil {
		if request.Estado != nil {
			estado := models.EstadoContrato(*request.Estado)
			filter.Estado = &estado
		}
		if request.Tipo != nil {
			tipo := models.TipoContrato(*request.Tipo)
			filter.Tipo = &tipo
		}
	}

	contratos, err := cf.contratoRepo.ByFilter(ctx, filter, "fecha DESC", 0, 0)
	if err != nil {
		return nil, err
	}

	out := make([]dto.ContratoResponse, 0, len(contratos))
	for _, c := range contratos {
		out = append(out, ToContratoResponse(*c))
	}
	return out, nil
}

// ListarVencidos returns running contracts past their scheduled end date
func (cf *ContratoFlowImpl) ListarVencidos(ctx context.Context) ([]dto.ContratoResponse, error) {
	contratos, err := cf.contratoRepo.ListVencidos(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ContratoResponse, 0, len(contratos))
	for _, c := range contratos {
		out = append(out, ToContratoResponse(*c))
	}
	return out, nil
}

// Firmar marks a draft contract as signed
func (cf *ContratoFlowImpl) Firmar(ctx context.Context, contratoID uint, metadata *ClientMetadata) (*dto.ContratoResponse, error) {
	return cf.transicionar(ctx, contratoID, metadata, "firmado", func(c *models.Contrato) error {
		return c.Firmar()
	})
}

// Iniciar moves a signed contract into execution
func (cf *ContratoFlowImpl) Iniciar(ctx context.Context, contratoID uint, metadata *ClientMetadata) (*dto.ContratoResponse, error) {
	return cf.transicionar(ctx, contratoID, metadata, "iniciado", func(c *models.Contrato) error {
		return c.Iniciar(utils.UTCNow())
	})
}

// Finalizar closes a running contract
func (cf *ContratoFlowImpl) Finalizar(ctx context.Context, contratoID uint, metadata *ClientMetadata) (*dto.ContratoResponse, error) {
	return cf.transicionar(ctx, contratoID, metadata, "finalizado", func(c *models.Contrato) error {
		return c.Finalizar(utils.UTCNow())
	})
}

// Suspender pauses a running contract
func (cf *ContratoFlowImpl) Suspender(ctx context.Context, contratoID uint, metadata *ClientMetadata) (*dto.ContratoResponse, error) {
	return cf.transicionar(ctx, contratoID, metadata, "suspendido", func(c *models.Contrato) error {
		return c.Suspender()
	})
}

// Reanudar resumes a suspended contract
func (cf *ContratoFlowImpl) Reanudar(ctx context.Context, contratoID uint, metadata *ClientMetadata) (*dto.ContratoResponse, error) {
	return cf.transicionar(ctx, contratoID, metadata, "reanudado", func(c *models.Contrato) error {
		return c.Reanudar()
	})
}

// Rescindir terminates a contract for breach
func (cf *ContratoFlowImpl) Rescindir(ctx context.Context, contratoID uint, metadata *ClientMetadata) (*dto.ContratoResponse, error) {
	return cf.transicionar(ctx, contratoID, metadata, "rescindido", func(c *models.Contrato) error {
		return c.Rescindir()
	})
}

// AmpliarPlazo extends the contract term by the requested days
func (cf *ContratoFlowImpl) AmpliarPlazo(ctx context.Context, contratoID uint, request *dto.AmpliarPlazoRequest, metadata *ClientMetadata) (*dto.ContratoResponse, error) {
	descripcion := fmt.Sprintf("plazo ampliado en %d dias: %s", request.DiasAdicionales, request.Motivo)
	return cf.transicionar(ctx, contratoID, metadata, descripcion, func(c *models.Contrato) error {
		return c.AmpliarPlazo(request.DiasAdicionales)
	})
}

func (cf *ContratoFlowImpl) transicionar(ctx context.Context, contratoID uint, metadata *ClientMetadata, descripcion string, fn func(*models.Contrato) error) (*dto.ContratoResponse, error) {
	resp, err := runInTransaction(ctx, cf.db, func(ctx context.Context) (*dto.ContratoResponse, error) {
		contrato, err := cf.buscar(ctx, contratoID)
		if err != nil {
			return nil, err
		}
		if err := fn(contrato); err != nil {
			return nil, NewBusinessError("TRANSICION_INVALIDA", "State transition rejected", err)
		}
		if err := cf.contratoRepo.Update(ctx, *contrato); err != nil {
			return nil, err
		}
		r := ToContratoResponse(*contrato)
		return &r, nil
	})
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Contrato %s: %s", resp.Numero, descripcion)
	_ = logAudit(ctx, cf.auditRepo, models.AuditActionContratoActualizado, desc, true, nil, metadata)

	return resp, nil
}

func (cf *ContratoFlowImpl) buscar(ctx context.Context, contratoID uint) (*models.Contrato, error) {
	contrato, err := cf.contratoRepo.ByID(ctx, contratoID)
	if err != nil {
		return nil, err
	}
	if contrato == nil {
		return nil, NewBusinessError("CONTRATO_NOT_FOUND", "Contrato not found", ErrContratoNotFound)
	}
	return contrato, nil
}

func (cf *ContratoFlowImpl) filtrar(contratos []*models.Contrato, request *dto.ListContratosRequest) []dto.ContratoResponse {
	out := make([]dto.ContratoResponse, 0, len(contratos))
	for _, c := range contratos {
		if request.Estado != nil && string(c.Estado) != *request.Estado {
			continue
		}
		if request.Tipo != nil && string(c.Tipo) != *request.Tipo {
			continue
		}
		out = append(out, ToContratoResponse(*c))
	}
	return out
}
