package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nemaec/obra-erp/app/dto"
	"github.com/nemaec/obra-erp/app/services"
	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/repository"
	"github.com/nemaec/obra-erp/utils"
	"gorm.io/gorm"
)

// CronogramaFlow handles schedule comparison, versioning and approval
type CronogramaFlow interface {
	DetectarCambios(ctx context.Context, comisariaID uint, archivo []byte, request *dto.DetectarCambiosRequest, monitor string, metadata *ClientMetadata) (*dto.DetectarCambiosResponse, error)
	ObtenerSugerencias(ctx context.Context, token string) (*dto.SugerenciasResponse, error)
	ConfirmarVersion(ctx context.Context, request *dto.ConfirmarVersionRequest, metadata *ClientMetadata) (*dto.VersionDetalleResponse, error)
	DescartarSesion(ctx context.Context, token string) error
	JustificarModificacion(ctx context.Context, modificacionID uint, request *dto.ConfirmarModificacionRequest, monitor string, metadata *ClientMetadata) (*dto.ModificacionResponse, error)
	ListarVersiones(ctx context.Context, comisariaID uint, limit, offset int) ([]dto.VersionResponse, error)
	ObtenerVersion(ctx context.Context, versionUUID string) (*dto.VersionDetalleResponse, error)
	AprobarVersion(ctx context.Context, versionUUID string, autoridad string, metadata *ClientMetadata) (*dto.VersionDetalleResponse, error)
	RechazarVersion(ctx context.Context, versionUUID string, request *dto.RechazarVersionRequest, autoridad string, metadata *ClientMetadata) (*dto.VersionDetalleResponse, error)
	ExportarVersion(ctx context.Context, versionUUID string, formato string) ([]byte, string, error)
}

// CronogramaFlowImpl implements the schedule business flow
type CronogramaFlowImpl struct {
	comisariaRepo repository.ComisariaRepository
	partidaRepo   repository.PartidaRepository
	versionRepo   repository.CronogramaVersionRepository
	auditRepo     repository.AuditLogRepository
	comparacion   *services.ComparacionService
	parser        *services.CronogramaParser
	sesiones      services.SessionStore
	exporter      services.ExportService
	locks         *versionLocks
	db            *gorm.DB
}

// NewCronogramaFlow creates a new schedule flow instance
func NewCronogramaFlow(
	comisariaRepo repository.ComisariaRepository,
	partidaRepo repository.PartidaRepository,
	versionRepo repository.CronogramaVersionRepository,
	auditRepo repository.AuditLogRepository,
	comparacion *services.ComparacionService,
	parser *services.CronogramaParser,
	sesiones services.SessionStore,
	exporter services.ExportService,
	db *gorm.DB,
) CronogramaFlow {
	return &CronogramaFlowImpl{
		comisariaRepo: comisariaRepo,
		partidaRepo:   partidaRepo,
		versionRepo:   versionRepo,
		auditRepo:     auditRepo,
		comparacion:   comparacion,
		parser:        parser,
		sesiones:      sesiones,
		exporter:      exporter,
		locks:         newVersionLocks(),
		db:            db,
	}
}

// DetectarCambios parses the uploaded workbook, compares it against the
// station's current partidas and stores the pending result under a session
// token. Nothing is persisted until the monitor confirms.
func (cf *CronogramaFlowImpl) DetectarCambios(ctx context.Context, comisariaID uint, archivo []byte, request *dto.DetectarCambiosRequest, monitor string, metadata *ClientMetadata) (*dto.DetectarCambiosResponse, error) {
	if len(archivo) == 0 {
		return nil, NewBusinessError("ARCHIVO_INVALIDO", "Uploaded file is empty", ErrArchivoVacio)
	}

	comisaria, err := cf.comisariaRepo.ByIDWithPartidas(ctx, comisariaID)
	if err != nil {
		return nil, err
	}
	if comisaria == nil {
		return nil, NewBusinessError("COMISARIA_NOT_FOUND", "Comisaria not found", ErrComisariaNotFound)
	}
	if len(comisaria.Partidas) == 0 {
		return nil, NewBusinessError("SIN_PARTIDAS", "Comisaria has no imported partidas", ErrComisariaSinPartidas)
	}

	parseado, err := cf.parser.ParsearExcel(archivo)
	if err != nil {
		return nil, NewBusinessError("ARCHIVO_INVALIDO", "Workbook could not be parsed", err)
	}
	if len(parseado.Partidas) == 0 {
		return nil, NewBusinessError("ARCHIVO_INVALIDO", "Workbook contains no valid partidas", ErrArchivoSinPartidas)
	}

	originales := partidasARecords(comisaria.Partidas)
	resultado := cf.comparacion.Comparar(originales, parseado.Partidas)
	validacion := cf.comparacion.ValidarEquilibrio(resultado.Modificaciones)

	sesion := &services.ComparacionSesion{
		Token:              services.NuevoTokenSesion(),
		ComisariaID:        comisariaID,
		NombreVersion:      request.NombreVersion,
		DescripcionCambios: request.DescripcionCambios,
		MonitorResponsable: monitor,
		Partidas:           parseado.Partidas,
		Advertencias:       parseado.Advertencias,
		Resultado:          *resultado,
		CreadaEn:           utils.UTCNow(),
	}
	if err := cf.sesiones.Save(ctx, sesion); err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Comparacion iniciada para comisaria %s: %d eliminadas, %d nuevas, %d modificadas",
		comisaria.Codigo, len(resultado.PartidasEliminadas), len(resultado.PartidasNuevas), len(resultado.PartidasModificadas))
	_ = logAudit(ctx, cf.auditRepo, models.AuditActionComparacionIniciada, desc, true, nil, metadata)

	resp := &dto.DetectarCambiosResponse{
		Token:    sesion.Token,
		ExpiraEn: int(utils.ComparisonSessionTTL.Seconds()),
		Resumen: dto.ComparacionResumen{
			PartidasEliminadas:  len(resultado.PartidasEliminadas),
			PartidasNuevas:      len(resultado.PartidasNuevas),
			PartidasModificadas: len(resultado.PartidasModificadas),
			ImpactoReducciones:  resultado.ImpactoReducciones,
			ImpactoAdicionales:  resultado.ImpactoAdicionales,
			BalancePreliminar:   resultado.BalancePreliminar,
		},
		Modificaciones: make([]dto.ModificacionResponse, 0, len(resultado.Modificaciones)),
		Validacion:     toValidacionResponse(validacion),
		Advertencias:   parseado.Advertencias,
	}
	for _, m := range resultado.Modificaciones {
		resp.Modificaciones = append(resp.Modificaciones, ToModificacionResponse(m))
	}
	return resp, nil
}

// ObtenerSugerencias returns rebalancing advice for a pending comparison
func (cf *CronogramaFlowImpl) ObtenerSugerencias(ctx context.Context, token string) (*dto.SugerenciasResponse, error) {
	sesion, err := cf.obtenerSesion(ctx, token)
	if err != nil {
		return nil, err
	}
	return &dto.SugerenciasResponse{
		Token:       token,
		Sugerencias: cf.comparacion.SugerirEquilibrio(sesion.Resultado.Modificaciones),
	}, nil
}

// ConfirmarVersion persists a pending comparison as the station's new
// current version. The detected modifications move to the justification
// stage and the partida set is replaced by the uploaded schedule.
func (cf *CronogramaFlowImpl) ConfirmarVersion(ctx context.Context, request *dto.ConfirmarVersionRequest, metadata *ClientMetadata) (*dto.VersionDetalleResponse, error) {
	sesion, err := cf.obtenerSesion(ctx, request.Token)
	if err != nil {
		return nil, err
	}

	unlock := cf.locks.lock(sesion.ComisariaID)
	defer unlock()

	resp, err := runInTransaction(ctx, cf.db, func(ctx context.Context) (*dto.VersionDetalleResponse, error) {
		numero, err := cf.versionRepo.NextNumeroVersion(ctx, sesion.ComisariaID)
		if err != nil {
			return nil, err
		}

		version := &models.CronogramaVersion{
			ComisariaID:        sesion.ComisariaID,
			NumeroVersion:      numero,
			NombreVersion:      sesion.NombreVersion,
			DescripcionCambios: sesion.DescripcionCambios,
			Estado:             models.VersionDetectada,
			TotalPartidas:      len(sesion.Partidas),
			MonitorResponsable: &sesion.MonitorResponsable,
		}
		for _, p := range sesion.Partidas {
			version.TotalPresupuesto += p.PrecioTotal
		}

		version.Modificaciones = make([]models.Modificacion, len(sesion.Resultado.Modificaciones))
		copy(version.Modificaciones, sesion.Resultado.Modificaciones)
		now := utils.UTCNow()
		for i := range version.Modificaciones {
			m := &version.Modificaciones[i]
			m.Estado = models.ModificacionPendienteJustificacion
			m.ConfirmadaEn = &now
			m.MonitorResponsable = &sesion.MonitorResponsable
		}
		version.RecalcularTotales()

		if err := cf.versionRepo.SaveComoActual(ctx, version); err != nil {
			return nil, err
		}

		nuevas := recordsAPartidas(sesion.ComisariaID, sesion.Partidas)
		if err := cf.partidaRepo.ReplaceForComisaria(ctx, sesion.ComisariaID, nuevas); err != nil {
			return nil, err
		}

		detalle := ToVersionDetalleResponse(*version)
		return &detalle, nil
	})
	if err != nil {
		errMsg := fmt.Sprintf("Version confirmation failed: %s", err.Error())
		_ = logAudit(ctx, cf.auditRepo, models.AuditActionVersionConfirmada, errMsg, false, &errMsg, metadata)
		return nil, err
	}

	_ = cf.sesiones.Delete(ctx, request.Token)

	desc := fmt.Sprintf("Version %d confirmada para comisaria %d con %d modificaciones",
		resp.NumeroVersion, resp.ComisariaID, len(resp.Modificaciones))
	_ = logAudit(ctx, cf.auditRepo, models.AuditActionVersionConfirmada, desc, true, nil, metadata)

	return resp, nil
}

// DescartarSesion drops a pending comparison without persisting anything
func (cf *CronogramaFlowImpl) DescartarSesion(ctx context.Context, token string) error {
	return cf.sesiones.Delete(ctx, token)
}

// JustificarModificacion records the monitor's justification for one
// detected modification
func (cf *CronogramaFlowImpl) JustificarModificacion(ctx context.Context, modificacionID uint, request *dto.ConfirmarModificacionRequest, monitor string, metadata *ClientMetadata) (*dto.ModificacionResponse, error) {
	resp, err := runInTransaction(ctx, cf.db, func(ctx context.Context) (*dto.ModificacionResponse, error) {
		modificacion, err := cf.versionRepo.ModificacionByID(ctx, modificacionID)
		if err != nil {
			return nil, err
		}
		if modificacion == nil {
			return nil, ErrModificacionNotFound
		}

		if err := modificacion.Justificar(request.Justificacion, monitor, request.DocumentosSustento); err != nil {
			return nil, NewBusinessError("JUSTIFICACION_INVALIDA", "Justification rejected", err)
		}

		if err := cf.versionRepo.UpdateModificacion(ctx, *modificacion); err != nil {
			return nil, err
		}

		r := ToModificacionResponse(*modificacion)
		return &r, nil
	})
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Modificacion %d justificada (%s)", modificacionID, resp.CodigoPartida)
	_ = logAudit(ctx, cf.auditRepo, models.AuditActionModificacionConfirmada, desc, true, nil, metadata)

	return resp, nil
}

// ListarVersiones returns the station's versions, newest first
func (cf *CronogramaFlowImpl) ListarVersiones(ctx context.Context, comisariaID uint, limit, offset int) ([]dto.VersionResponse, error) {
	versiones, err := cf.versionRepo.ListByComisaria(ctx, comisariaID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.VersionResponse, 0, len(versiones))
	for _, v := range versiones {
		out = append(out, ToVersionResponse(*v))
	}
	return out, nil
}

// ObtenerVersion returns a version with its modifications expanded
func (cf *CronogramaFlowImpl) ObtenerVersion(ctx context.Context, versionUUID string) (*dto.VersionDetalleResponse, error) {
	version, err := cf.versionRepo.ByUUID(ctx, versionUUID)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, ErrVersionNotFound
	}
	detalle := ToVersionDetalleResponse(*version)
	return &detalle, nil
}

// AprobarVersion lets an authority approve a version. The budget must
// balance and every modification must carry a justification; the failed
// balance case returns the full validation so the caller can show alerts.
func (cf *CronogramaFlowImpl) AprobarVersion(ctx context.Context, versionUUID string, autoridad string, metadata *ClientMetadata) (*dto.VersionDetalleResponse, error) {
	version, err := cf.versionRepo.ByUUID(ctx, versionUUID)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, ErrVersionNotFound
	}

	unlock := cf.locks.lock(version.ComisariaID)
	defer unlock()

	resp, err := runInTransaction(ctx, cf.db, func(ctx context.Context) (*dto.VersionDetalleResponse, error) {
		// Reload inside the lock so concurrent approvals observe the
		// final state
		version, err = cf.versionRepo.ByUUID(ctx, versionUUID)
		if err != nil {
			return nil, err
		}
		if version == nil {
			return nil, ErrVersionNotFound
		}
		if version.Estado == models.VersionAprobada || version.Estado == models.VersionRechazada {
			return nil, ErrVersionYaResuelta
		}

		version.RecalcularTotales()
		if !version.EstaEquilibrada() {
			return nil, &BalanceError{Validacion: cf.comparacion.ValidarEquilibrio(version.Modificaciones)}
		}
		if pendientes := version.ModificacionesPendientes(); len(pendientes) > 0 {
			return nil, NewBusinessErrorf("MODIFICACIONES_PENDIENTES",
				"Unjustified modifications: %s", ErrModificacionesPendientes, strings.Join(pendientes, ", "))
		}

		if err := version.Aprobar(autoridad); err != nil {
			return nil, NewBusinessError("VERSION_NO_APROBABLE", "Version cannot be approved", err)
		}

		for i := range version.Modificaciones {
			if err := cf.versionRepo.UpdateModificacion(ctx, version.Modificaciones[i]); err != nil {
				return nil, err
			}
		}
		if err := cf.versionRepo.Update(ctx, *version); err != nil {
			return nil, err
		}

		detalle := ToVersionDetalleResponse(*version)
		return &detalle, nil
	})
	if err != nil {
		errMsg := fmt.Sprintf("Version approval failed: %s", err.Error())
		_ = logAudit(ctx, cf.auditRepo, models.AuditActionVersionAprobada, errMsg, false, &errMsg, metadata)
		return nil, err
	}

	desc := fmt.Sprintf("Version %d aprobada por %s", resp.NumeroVersion, autoridad)
	_ = logAudit(ctx, cf.auditRepo, models.AuditActionVersionAprobada, desc, true, nil, metadata)

	return resp, nil
}

// RechazarVersion lets an authority reject a version with an observation
func (cf *CronogramaFlowImpl) RechazarVersion(ctx context.Context, versionUUID string, request *dto.RechazarVersionRequest, autoridad string, metadata *ClientMetadata) (*dto.VersionDetalleResponse, error) {
	if strings.TrimSpace(request.Observacion) == "" {
		return nil, NewBusinessError("OBSERVACION_REQUERIDA", "Rejection requires an observation", ErrObservacionRequerida)
	}

	version, err := cf.versionRepo.ByUUID(ctx, versionUUID)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, ErrVersionNotFound
	}

	unlock := cf.locks.lock(version.ComisariaID)
	defer unlock()

	resp, err := runInTransaction(ctx, cf.db, func(ctx context.Context) (*dto.VersionDetalleResponse, error) {
		version, err = cf.versionRepo.ByUUID(ctx, versionUUID)
		if err != nil {
			return nil, err
		}
		if version == nil {
			return nil, ErrVersionNotFound
		}

		if err := version.Rechazar(autoridad, request.Observacion); err != nil {
			return nil, NewBusinessError("VERSION_YA_RESUELTA", "Version already resolved", ErrVersionYaResuelta)
		}
		if err := cf.versionRepo.Update(ctx, *version); err != nil {
			return nil, err
		}

		detalle := ToVersionDetalleResponse(*version)
		return &detalle, nil
	})
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Version %d rechazada por %s: %s", resp.NumeroVersion, autoridad, request.Observacion)
	_ = logAudit(ctx, cf.auditRepo, models.AuditActionVersionRechazada, desc, true, nil, metadata)

	return resp, nil
}

// ExportarVersion renders a version as xlsx or pdf and returns the bytes
// with a suggested filename
func (cf *CronogramaFlowImpl) ExportarVersion(ctx context.Context, versionUUID string, formato string) ([]byte, string, error) {
	version, err := cf.versionRepo.ByUUID(ctx, versionUUID)
	if err != nil {
		return nil, "", err
	}
	if version == nil {
		return nil, "", ErrVersionNotFound
	}

	partidas, err := cf.partidaRepo.ListByComisaria(ctx, version.ComisariaID)
	if err != nil {
		return nil, "", err
	}
	lista := make([]models.Partida, 0, len(partidas))
	for _, p := range partidas {
		lista = append(lista, *p)
	}

	base := fmt.Sprintf("cronograma_v%d_comisaria_%d", version.NumeroVersion, version.ComisariaID)
	switch strings.ToLower(formato) {
	case "pdf":
		bs, err := cf.exporter.VersionPDF(version, lista)
		return bs, base + ".pdf", err
	case "", "xlsx":
		bs, err := cf.exporter.VersionXLSX(version, lista)
		return bs, base + ".xlsx", err
	default:
		return nil, "", NewBusinessErrorf("FORMATO_INVALIDO", "Unsupported export format %q", nil, formato)
	}
}

func (cf *CronogramaFlowImpl) obtenerSesion(ctx context.Context, token string) (*services.ComparacionSesion, error) {
	sesion, err := cf.sesiones.Get(ctx, token)
	if err != nil {
		if errors.Is(err, services.ErrSesionNoEncontrada) {
			return nil, NewBusinessError("SESION_EXPIRADA", "Comparison session expired", ErrSesionExpirada)
		}
		return nil, err
	}
	return sesion, nil
}


// partidasARecords converts stored partidas into comparison records
func partidasARecords(partidas []models.Partida) []services.PartidaRecord {
	records := make([]services.PartidaRecord, 0, len(partidas))
	for _, p := range partidas {
		r := services.PartidaRecord{
			CodigoPartida:  p.Codigo,
			Descripcion:    p.Descripcion,
			Unidad:         p.Unidad,
			Metrado:        p.Metrado,
			PrecioUnitario: p.PrecioUnitario,
			PrecioTotal:    p.PrecioTotal,
		}
		if p.CodigoInterno != nil {
			r.CodigoInterno = *p.CodigoInterno
		}
		records = append(records, r)
	}
	return records
}

// recordsAPartidas converts parsed records into partida models for one
// station
func recordsAPartidas(comisariaID uint, records []services.PartidaRecord) []*models.Partida {
	partidas := make([]*models.Partida, 0, len(records))
	for _, r := range records {
		p := &models.Partida{
			ComisariaID:    comisariaID,
			Codigo:         r.CodigoPartida,
			Descripcion:    r.Descripcion,
			Unidad:         r.Unidad,
			Metrado:        r.Metrado,
			PrecioUnitario: r.PrecioUnitario,
			PrecioTotal:    r.PrecioTotal,
		}
		if r.CodigoInterno != "" {
			p.CodigoInterno = utils.ToPtr(r.CodigoInterno)
		}
		partidas = append(partidas, p)
	}
	return partidas
}

func toValidacionResponse(v services.ValidacionEquilibrio) dto.ValidacionEquilibrioResponse {
	return dto.ValidacionEquilibrioResponse{
		EstaEquilibrado:  v.EstaEquilibrado,
		TotalReducciones: v.TotalReducciones,
		TotalAdicionales: v.TotalAdicionales,
		Balance:          v.Balance,
		Alertas:          v.Alertas,
	}
}
