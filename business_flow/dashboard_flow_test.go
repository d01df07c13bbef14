package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/repository"
	"github.com/nemaec/obra-erp/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreRiesgo(t *testing.T) {
	t.Run("healthy station", func(t *testing.T) {
		dias := 1
		score := scoreRiesgo(1.0, 0, 10, &dias, 0)
		assert.InDelta(t, 0.47, score, 0.01)
		assert.Equal(t, "normal", nivelRiesgo(score))
	})

	t.Run("critical station", func(t *testing.T) {
		// Large deviation, most items critical, no report ever, four
		// unjustified modifications. Every component saturates or nearly so.
		score := scoreRiesgo(12.0, 6, 10, nil, 4)
		assert.InDelta(t, 9.8, score, 0.01)
		assert.Equal(t, "critico", nivelRiesgo(score))
	})

	t.Run("deviation alone reaches medium", func(t *testing.T) {
		dias := 0
		score := scoreRiesgo(10.0, 0, 10, &dias, 0)
		assert.InDelta(t, 4.0, score, 0.001)
		assert.Equal(t, "medio", nivelRiesgo(score))
	})

	t.Run("negative deviation scores zero", func(t *testing.T) {
		dias := 0
		score := scoreRiesgo(-5.0, 0, 10, &dias, 0)
		assert.InDelta(t, 0.0, score, 0.001)
	})

	t.Run("missing report counts as maximally stale", func(t *testing.T) {
		dias := 0
		conReporte := scoreRiesgo(0, 0, 10, &dias, 0)
		sinReporte := scoreRiesgo(0, 0, 10, nil, 0)
		assert.InDelta(t, 10.0*utils.PesoRiesgoPlazo, sinReporte-conReporte, 0.001)
	})
}

func TestNivelRiesgo(t *testing.T) {
	casos := []struct {
		score float64
		nivel string
	}{
		{0, "normal"},
		{3.99, "normal"},
		{4.0, "medio"},
		{5.99, "medio"},
		{6.0, "alto"},
		{7.99, "alto"},
		{8.0, "critico"},
		{10, "critico"},
	}
	for _, c := range casos {
		assert.Equal(t, c.nivel, nivelRiesgo(c.score), "score %.2f", c.score)
	}
}

func TestAccionesRecomendadas(t *testing.T) {
	t.Run("critical with everything wrong", func(t *testing.T) {
		acciones := accionesRecomendadas("critico", 8.0, 3, nil)
		assert.Len(t, acciones, 4)
		assert.Contains(t, acciones[0], "reunion de emergencia")
	})

	t.Run("normal and current", func(t *testing.T) {
		dias := 2
		acciones := accionesRecomendadas("normal", 1.0, 0, &dias)
		assert.Empty(t, acciones)
	})

	t.Run("stale report asks for an update", func(t *testing.T) {
		dias := 12
		acciones := accionesRecomendadas("normal", 0, 0, &dias)
		require.Len(t, acciones, 1)
		assert.Contains(t, acciones[0], "reporte de avance")
	})
}

type dashboardFixture struct {
	flow          DashboardFlow
	comisariaRepo *fakeComisariaRepo
	partidaRepo   *fakePartidaRepo
	versionRepo   *fakeVersionRepo
}

func newDashboardFixture(t *testing.T) *dashboardFixture {
	t.Helper()

	comisariaRepo := newFakeComisariaRepo()
	partidaRepo := newFakePartidaRepo()
	versionRepo := newFakeVersionRepo()
	versionRepo.pendientes = make(map[uint]int64)

	return &dashboardFixture{
		flow:          NewDashboardFlow(comisariaRepo, partidaRepo, versionRepo),
		comisariaRepo: comisariaRepo,
		partidaRepo:   partidaRepo,
		versionRepo:   versionRepo,
	}
}

func (f *dashboardFixture) seedEnProceso(id uint, codigo string, stats *repository.EstadisticasAvance, diasSinReporte int, pendientes int64) {
	f.comisariaRepo.comisarias[id] = &models.Comisaria{
		ID:           id,
		Codigo:       codigo,
		Nombre:       "Comisaria PNP " + codigo,
		Departamento: "Lima",
		Estado:       models.ComisariaEnProceso,
	}
	f.partidaRepo.stats[id] = stats
	reporte := time.Now().UTC().Add(-time.Duration(diasSinReporte) * 24 * time.Hour)
	f.partidaRepo.ultimoReporte[id] = &reporte
	f.versionRepo.pendientes[id] = pendientes
}

func TestRiesgoComisaria(t *testing.T) {
	f := newDashboardFixture(t)
	f.seedEnProceso(1, "COM-001", &repository.EstadisticasAvance{
		TotalPartidas:    40,
		PartidasCriticas: 8,
		AvanceFisico:     35,
		AvanceProgramado: 47,
		PresupuestoTotal: 250000,
		MontoEjecutado:   87500,
	}, 9, 2)

	resp, err := f.flow.RiesgoComisaria(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "COM-001", resp.Codigo)
	assert.InDelta(t, 12.0, resp.DesviacionAvance, 0.001)
	assert.Equal(t, int64(8), resp.PartidasCriticas)
	require.NotNil(t, resp.DiasSinReporte)
	assert.Equal(t, 9, *resp.DiasSinReporte)

	// deviation 10/10, critical share 4/10, staleness 3/10, pending 4/10
	assert.InDelta(t, 6.2, resp.ScoreRiesgo, 0.05)
	assert.Equal(t, "alto", resp.NivelRiesgo)
	assert.Contains(t, resp.AccionesRecomendadas[0], "visita de supervision")
	assert.NotNil(t, resp.UltimoReporte)
}

func TestRiesgoComisaria_NoEncontrada(t *testing.T) {
	f := newDashboardFixture(t)
	_, err := f.flow.RiesgoComisaria(context.Background(), 42)
	assert.True(t, IsComisariaNotFound(err))
}

func TestDashboardResumen(t *testing.T) {
	f := newDashboardFixture(t)
	ctx := context.Background()

	// One station on track, one badly delayed, one not yet started
	f.seedEnProceso(1, "COM-001", &repository.EstadisticasAvance{
		TotalPartidas:    30,
		AvanceFisico:     60,
		AvanceProgramado: 61,
		PresupuestoTotal: 200000,
		MontoEjecutado:   120000,
	}, 1, 0)
	f.seedEnProceso(2, "COM-002", &repository.EstadisticasAvance{
		TotalPartidas:    50,
		PartidasCriticas: 20,
		AvanceFisico:     20,
		AvanceProgramado: 45,
		PresupuestoTotal: 300000,
		MontoEjecutado:   60000,
	}, 15, 3)
	f.comisariaRepo.comisarias[3] = &models.Comisaria{
		ID: 3, Codigo: "COM-003", Nombre: "Comisaria PNP Huaycan",
		Estado: models.ComisariaPendiente,
	}

	resp, err := f.flow.Resumen(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), resp.Resumen.TotalComisarias)
	assert.Equal(t, int64(2), resp.Resumen.PorEstado[models.ComisariaEnProceso.String()])
	assert.Equal(t, int64(1), resp.Resumen.PorEstado[models.ComisariaPendiente.String()])

	// Pending stations carry no partidas and stay out of the aggregates
	assert.InDelta(t, 500000, resp.Resumen.PresupuestoTotal, 0.01)
	assert.InDelta(t, 180000, resp.Resumen.MontoEjecutado, 0.01)
	assert.InDelta(t, 40.0, resp.Resumen.AvanceFisicoPromedio, 0.001)

	require.Equal(t, 1, resp.Resumen.ComisariasEnRiesgo)
	require.Len(t, resp.EnRiesgo, 1)
	assert.Equal(t, "COM-002", resp.EnRiesgo[0].Codigo)
	assert.NotEqual(t, "normal", resp.EnRiesgo[0].NivelRiesgo)
}
