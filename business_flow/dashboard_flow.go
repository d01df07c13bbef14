package businessflow

import (
	"context"
	"sort"

	"github.com/nemaec/obra-erp/app/dto"
	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/repository"
	"github.com/nemaec/obra-erp/utils"
)

// DashboardFlow builds the executive risk dashboard
type DashboardFlow interface {
	Resumen(ctx context.Context) (*dto.DashboardResponse, error)
	RiesgoComisaria(ctx context.Context, comisariaID uint) (*dto.ComisariaRiesgoResponse, error)
}

// DashboardFlowImpl implements the dashboard flow
type DashboardFlowImpl struct {
	comisariaRepo repository.ComisariaRepository
	partidaRepo   repository.PartidaRepository
	versionRepo   repository.CronogramaVersionRepository
}

// NewDashboardFlow creates a new dashboard flow instance
func NewDashboardFlow(
	comisariaRepo repository.ComisariaRepository,
	partidaRepo repository.PartidaRepository,
	versionRepo repository.CronogramaVersionRepository,
) DashboardFlow {
	return &DashboardFlowImpl{
		comisariaRepo: comisariaRepo,
		partidaRepo:   partidaRepo,
		versionRepo:   versionRepo,
	}
}

// Resumen aggregates the national portfolio and scores every station in
// execution, returning the at-risk ones ordered worst first
func (df *DashboardFlowImpl) Resumen(ctx context.Context) (*dto.DashboardResponse, error) {
	porEstado, err := df.comisariaRepo.CountPorEstado(ctx)
	if err != nil {
		return nil, err
	}

	resumen := dto.DashboardResumen{
		PorEstado:  make(map[string]int64, len(porEstado)),
		GeneradoEn: utils.UTCNow(),
	}
	for estado, n := range porEstado {
		resumen.PorEstado[estado.String()] = n
		resumen.TotalComisarias += n
	}

	enProceso := models.ComisariaEnProceso
	comisarias, err := df.comisariaRepo.ByFilter(ctx, models.ComisariaFilter{Estado: &enProceso}, "codigo ASC", 0, 0)
	if err != nil {
		return nil, err
	}

	var sumaAvance float64
	var conAvance int
	enRiesgo := make([]dto.ComisariaRiesgoResponse, 0)
	for _, c := range comisarias {
		riesgo, err := df.evaluar(ctx, c)
		if err != nil {
			return nil, err
		}

		stats, err := df.partidaRepo.EstadisticasAvance(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		resumen.PresupuestoTotal += stats.PresupuestoTotal
		resumen.MontoEjecutado += stats.MontoEjecutado
		if stats.TotalPartidas > 0 {
			sumaAvance += stats.AvanceFisico
			conAvance++
		}

		if riesgo.ScoreRiesgo >= utils.ScoreRiesgoMedio {
			enRiesgo = append(enRiesgo, *riesgo)
		}
	}
	if conAvance > 0 {
		resumen.AvanceFisicoPromedio = sumaAvance / float64(conAvance)
	}
	resumen.ComisariasEnRiesgo = len(enRiesgo)

	sort.Slice(enRiesgo, func(i, j int) bool {
		return enRiesgo[i].ScoreRiesgo > enRiesgo[j].ScoreRiesgo
	})

	return &dto.DashboardResponse{Resumen: resumen, EnRiesgo: enRiesgo}, nil
}

// RiesgoComisaria scores a single station
func (df *DashboardFlowImpl) RiesgoComisaria(ctx context.Context, comisariaID uint) (*dto.ComisariaRiesgoResponse, error) {
	comisaria, err := df.comisariaRepo.ByID(ctx, comisariaID)
	if err != nil {
		return nil, err
	}
	if comisaria == nil {
		return nil, NewBusinessError("COMISARIA_NOT_FOUND", "Comisaria not found", ErrComisariaNotFound)
	}
	return df.evaluar(ctx, comisaria)
}

func (df *DashboardFlowImpl) evaluar(ctx context.Context, comisaria *models.Comisaria) (*dto.ComisariaRiesgoResponse, error) {
	stats, err := df.partidaRepo.EstadisticasAvance(ctx, comisaria.ID)
	if err != nil {
		return nil, err
	}

	pendientes, err := df.versionRepo.CountModificacionesPendientes(ctx, comisaria.ID)
	if err != nil {
		return nil, err
	}

	ultimoReporte, err := df.partidaRepo.UltimaFechaReporte(ctx, comisaria.ID)
	if err != nil {
		return nil, err
	}

	var diasSinReporte *int
	if ultimoReporte != nil {
		dias := int(utils.UTCNow().Sub(*ultimoReporte).Hours() / 24)
		diasSinReporte = &dias
	}

	desviacion := stats.AvanceProgramado - stats.AvanceFisico
	score := scoreRiesgo(desviacion, stats.PartidasCriticas, stats.TotalPartidas, diasSinReporte, pendientes)
	nivel := nivelRiesgo(score)

	return &dto.ComisariaRiesgoResponse{
		ComisariaID:              comisaria.ID,
		Codigo:                   comisaria.Codigo,
		Nombre:                   comisaria.Nombre,
		Departamento:             comisaria.Departamento,
		Estado:                   comisaria.Estado.String(),
		AvanceFisico:             stats.AvanceFisico,
		AvanceProgramado:         stats.AvanceProgramado,
		DesviacionAvance:         desviacion,
		PartidasCriticas:         stats.PartidasCriticas,
		TotalPartidas:            stats.TotalPartidas,
		ModificacionesPendientes: pendientes,
		DiasSinReporte:           diasSinReporte,
		ScoreRiesgo:              score,
		NivelRiesgo:              nivel,
		AccionesRecomendadas:     accionesRecomendadas(nivel, desviacion, pendientes, diasSinReporte),
		UltimoReporte:            ultimoReporte,
	}, nil
}

// scoreRiesgo combines four 0-10 components into a weighted 0-10 score:
// progress deviation, share of critical work items, reporting staleness and
// pending budget modifications.
func scoreRiesgo(desviacion float64, criticas, total int64, diasSinReporte *int, pendientes int64) float64 {
	avance := clampScore(desviacion)

	var criticidad float64
	if total > 0 {
		criticidad = clampScore(float64(criticas) / float64(total) * 20)
	}

	// No report at all counts as maximally stale
	plazo := 10.0
	if diasSinReporte != nil {
		plazo = clampScore(float64(*diasSinReporte) / 3)
	}

	modificaciones := clampScore(float64(pendientes) * 2)

	score := avance*utils.PesoRiesgoAvance +
		criticidad*utils.PesoRiesgoCriticas +
		plazo*utils.PesoRiesgoPlazo +
		modificaciones*utils.PesoRiesgoModificacion
	return score
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func nivelRiesgo(score float64) string {
	switch {
	case score >= utils.ScoreRiesgoCritico:
		return "critico"
	case score >= utils.ScoreRiesgoAlto:
		return "alto"
	case score >= utils.ScoreRiesgoMedio:
		return "medio"
	default:
		return "normal"
	}
}

func accionesRecomendadas(nivel string, desviacion float64, pendientes int64, diasSinReporte *int) []string {
	acciones := make([]string, 0, 4)
	switch nivel {
	case "critico":
		acciones = append(acciones, "Convocar reunion de emergencia con el contratista")
	case "alto":
		acciones = append(acciones, "Programar visita de supervision en campo")
	case "medio":
		acciones = append(acciones, "Solicitar plan de recuperacion al residente de obra")
	}
	if desviacion >= utils.UmbralCritica {
		acciones = append(acciones, "Evaluar penalidades por atraso de avance")
	}
	if pendientes > 0 {
		acciones = append(acciones, "Exigir justificacion de las modificaciones presupuestales pendientes")
	}
	if diasSinReporte == nil || *diasSinReporte > 7 {
		acciones = append(acciones, "Requerir reporte de avance actualizado al monitor")
	}
	return acciones
}
