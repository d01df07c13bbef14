package businessflow

import (
	"context"
	"fmt"

	"github.com/nemaec/obra-erp/app/dto"
	"github.com/nemaec/obra-erp/app/services"
	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/repository"
	"github.com/nemaec/obra-erp/utils"
	"gorm.io/gorm"
)

// PartidaFlow handles work item imports and progress tracking
type PartidaFlow interface {
	ImportarPartidas(ctx context.Context, comisariaID uint, archivo []byte, metadata *ClientMetadata) (*dto.ImportarPartidasResponse, error)
	ListarPartidas(ctx context.Context, comisariaID uint, request *dto.ListPartidasRequest) ([]dto.PartidaResponse, error)
	ObtenerPartida(ctx context.Context, partidaID uint) (*dto.PartidaResponse, error)
	RegistrarAvance(ctx context.Context, partidaID uint, request *dto.RegistrarAvanceRequest, reportadoPor string, metadata *ClientMetadata) (*dto.AvanceResponse, error)
	ListarAvances(ctx context.Context, partidaID uint) ([]dto.AvanceResponse, error)
}

// PartidaFlowImpl implements the work item flow
type PartidaFlowImpl struct {
	comisariaRepo repository.ComisariaRepository
	partidaRepo   repository.PartidaRepository
	auditRepo     repository.AuditLogRepository
	parser        *services.CronogramaParser
	db            *gorm.DB
}

// NewPartidaFlow creates a new work item flow instance
func NewPartidaFlow(
	comisariaRepo repository.ComisariaRepository,
	partidaRepo repository.PartidaRepository,
	auditRepo repository.AuditLogRepository,
	parser *services.CronogramaParser,
	db *gorm.DB,
) PartidaFlow {
	return &PartidaFlowImpl{
		comisariaRepo: comisariaRepo,
		partidaRepo:   partidaRepo,
		auditRepo:     auditRepo,
		parser:        parser,
		db:            db,
	}
}

// ImportarPartidas replaces the station's work items with the contents of an
// uploaded workbook. This is the initial load; later uploads go through the
// comparison flow instead.
func (pf *PartidaFlowImpl) ImportarPartidas(ctx context.Context, comisariaID uint, archivo []byte, metadata *ClientMetadata) (*dto.ImportarPartidasResponse, error) {
	if len(archivo) == 0 {
		return nil, NewBusinessError("ARCHIVO_INVALIDO", "Uploaded file is empty", ErrArchivoVacio)
	}

	parseado, err := pf.parser.ParsearExcel(archivo)
	if err != nil {
		return nil, NewBusinessError("ARCHIVO_INVALIDO", "Workbook could not be parsed", err)
	}
	if len(parseado.Partidas) == 0 {
		return nil, NewBusinessError("ARCHIVO_INVALIDO", "Workbook contains no valid partidas", ErrArchivoSinPartidas)
	}

	resp, err := runInTransaction(ctx, pf.db, func(ctx context.Context) (*dto.ImportarPartidasResponse, error) {
		comisaria, err := pf.comisariaRepo.ByID(ctx, comisariaID)
		if err != nil {
			return nil, err
		}
		if comisaria == nil {
			return nil, NewBusinessError("COMISARIA_NOT_FOUND", "Comisaria not found", ErrComisariaNotFound)
		}

		partidas := recordsAPartidas(comisariaID, parseado.Partidas)
		if err := pf.partidaRepo.ReplaceForComisaria(ctx, comisariaID, partidas); err != nil {
			return nil, err
		}

		resp := &dto.ImportarPartidasResponse{
			ComisariaID:        comisariaID,
			PartidasImportadas: len(partidas),
			Advertencias:       parseado.Advertencias,
		}
		for _, p := range partidas {
			resp.PresupuestoTotal += p.PrecioTotal
		}
		return resp, nil
	})
	if err != nil {
		errMsg := fmt.Sprintf("Partida import failed: %s", err.Error())
		_ = logAudit(ctx, pf.auditRepo, models.AuditActionPartidasImportadas, errMsg, false, &errMsg, metadata)
		return nil, err
	}

	desc := fmt.Sprintf("%d partidas importadas para comisaria %d (presupuesto %s)",
		resp.PartidasImportadas, comisariaID, utils.FormatSoles(resp.PresupuestoTotal))
	_ = logAudit(ctx, pf.auditRepo, models.AuditActionPartidasImportadas, desc, true, nil, metadata)

	return resp, nil
}

// ListarPartidas returns the station's work items with their derived
// progress state, optionally filtered
func (pf *PartidaFlowImpl) ListarPartidas(ctx context.Context, comisariaID uint, request *dto.ListPartidasRequest) ([]dto.PartidaResponse, error) {
	comisaria, err := pf.comisariaRepo.ByID(ctx, comisariaID)
	if err != nil {
		return nil, err
	}
	if comisaria == nil {
		return nil, NewBusinessError("COMISARIA_NOT_FOUND", "Comisaria not found", ErrComisariaNotFound)
	}

	partidas, err := pf.partidaRepo.ListByComisaria(ctx, comisariaID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.PartidaResponse, 0, len(partidas))
	for _, p := range partidas {
		if request != nil {
			if request.Estado != nil && string(p.Estado) != *request.Estado {
				continue
			}
			if request.Nivel != nil && p.NivelJerarquico() != *request.Nivel {
				continue
			}
			if request.Criticidad != nil && p.CriticidadActual().String() != *request.Criticidad {
				continue
			}
		}
		out = append(out, ToPartidaResponse(*p, false))
	}
	return out, nil
}

// ObtenerPartida returns one work item with its full progress history
func (pf *PartidaFlowImpl) ObtenerPartida(ctx context.Context, partidaID uint) (*dto.PartidaResponse, error) {
	partida, err := pf.buscarConAvances(ctx, partidaID)
	if err != nil {
		return nil, err
	}
	r := ToPartidaResponse(*partida, true)
	return &r, nil
}

// RegistrarAvance stores a periodic progress report for a work item.
// Grouping headers carry no executable progress and reject reports.
func (pf *PartidaFlowImpl) RegistrarAvance(ctx context.Context, partidaID uint, request *dto.RegistrarAvanceRequest, reportadoPor string, metadata *ClientMetadata) (*dto.AvanceResponse, error) {
	if request.AvanceFisico < 0 || request.AvanceFisico > 100 ||
		request.AvanceProgramado < 0 || request.AvanceProgramado > 100 {
		return nil, NewBusinessError("AVANCE_FUERA_DE_RANGO", "Progress percentages must be between 0 and 100", ErrAvanceFueraDeRango)
	}

	resp, err := runInTransaction(ctx, pf.db, func(ctx context.Context) (*dto.AvanceResponse, error) {
		partida, err := pf.partidaRepo.ByID(ctx, partidaID)
		if err != nil {
			return nil, err
		}
		if partida == nil {
			return nil, NewBusinessError("PARTIDA_NOT_FOUND", "Partida not found", ErrPartidaNotFound)
		}
		if partida.EsTitulo() {
			return nil, NewBusinessError("AVANCE_SOBRE_TITULO", "Grouping headers do not accept progress reports", ErrAvanceSobreTitulo)
		}

		avance := &models.AvancePartida{
			PartidaID:        partidaID,
			Fecha:            request.Fecha.UTC(),
			AvanceFisico:     request.AvanceFisico,
			AvanceProgramado: request.AvanceProgramado,
			Observaciones:    request.Observaciones,
		}
		if reportadoPor != "" {
			avance.ReportadoPor = &reportadoPor
		}
		if err := pf.partidaRepo.SaveAvance(ctx, avance); err != nil {
			return nil, err
		}

		if partida.Estado == models.PartidaNoIniciada && request.AvanceFisico > 0 {
			partida.Estado = models.PartidaEnProceso
		}
		if request.AvanceFisico >= 100 {
			partida.Estado = models.PartidaCompletada
		}
		if err := pf.partidaRepo.Save(ctx, partida); err != nil {
			return nil, err
		}

		r := ToAvanceResponse(*avance)
		return &r, nil
	})
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Avance registrado para partida %d: fisico %.2f%%, programado %.2f%%",
		partidaID, resp.AvanceFisico, resp.AvanceProgramado)
	_ = logAudit(ctx, pf.auditRepo, models.AuditActionAvanceRegistrado, desc, true, nil, metadata)

	return resp, nil
}

// ListarAvances returns the progress history of one work item
func (pf *PartidaFlowImpl) ListarAvances(ctx context.Context, partidaID uint) ([]dto.AvanceResponse, error) {
	partida, err := pf.partidaRepo.ByID(ctx, partidaID)
	if err != nil {
		return nil, err
	}
	if partida == nil {
		return nil, NewBusinessError("PARTIDA_NOT_FOUND", "Partida not found", ErrPartidaNotFound)
	}

	avances, err := pf.partidaRepo.ListAvances(ctx, partidaID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.AvanceResponse, 0, len(avances))
	for _, a := range avances {
		out = append(out, ToAvanceResponse(*a))
	}
	return out, nil
}

func (pf *PartidaFlowImpl) buscarConAvances(ctx context.Context, partidaID uint) (*models.Partida, error) {
	partida, err := pf.partidaRepo.ByID(ctx, partidaID)
	if err != nil {
		return nil, err
	}
	if partida == nil {
		return nil, NewBusinessError("PARTIDA_NOT_FOUND", "Partida not found", ErrPartidaNotFound)
	}

	avances, err := pf.partidaRepo.ListAvances(ctx, partidaID)
	if err != nil {
		return nil, err
	}
	partida.Avances = make([]models.AvancePartida, 0, len(avances))
	for _, a := range avances {
		partida.Avances = append(partida.Avances, *a)
	}
	return partida, nil
}

