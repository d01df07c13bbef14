package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/nemaec/obra-erp/app/dto"
	"github.com/nemaec/obra-erp/app/services"
	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type partidaFixture struct {
	flow          PartidaFlow
	comisariaRepo *fakeComisariaRepo
	partidaRepo   *fakePartidaRepo
	auditRepo     *fakeAuditRepo
}

func newPartidaFixture(t *testing.T) *partidaFixture {
	t.Helper()

	comisariaRepo := newFakeComisariaRepo()
	partidaRepo := newFakePartidaRepo()
	auditRepo := &fakeAuditRepo{}
	comisariaRepo.comisarias[1] = &models.Comisaria{
		ID:     1,
		Codigo: "COM-001",
		Nombre: "Comisaria PNP Zarate",
		Estado: models.ComisariaEnProceso,
	}

	return &partidaFixture{
		flow:          NewPartidaFlow(comisariaRepo, partidaRepo, auditRepo, services.NewCronogramaParser(), nil),
		comisariaRepo: comisariaRepo,
		partidaRepo:   partidaRepo,
		auditRepo:     auditRepo,
	}
}

func TestImportarPartidas(t *testing.T) {
	f := newPartidaFixture(t)
	ctx := context.Background()

	archivo := workbookConFilas(t, [][]any{
		{"INT-001", "01", "EQUIPAMIENTO", "", "", "", ""},
		{"INT-002", "01.01", "Mobiliario de oficina", "und", 20, 450, 9000},
		{"INT-003", "01.02", "Equipos de computo", "und", 12, 2800, 33600},
	})

	resp, err := f.flow.ImportarPartidas(ctx, 1, archivo, NewClientMetadata("127.0.0.1", "test"))
	require.NoError(t, err)

	assert.Equal(t, uint(1), resp.ComisariaID)
	assert.Equal(t, 3, resp.PartidasImportadas)
	assert.InDelta(t, 42600.0, resp.PresupuestoTotal, 0.01)

	partidas, _ := f.partidaRepo.ListByComisaria(ctx, 1)
	require.Len(t, partidas, 3)
	assert.True(t, partidas[0].EsTitulo())

	entries, _ := f.auditRepo.ListByAction(ctx, models.AuditActionPartidasImportadas, 10, 0)
	assert.Len(t, entries, 1)
}

func TestImportarPartidas_Errores(t *testing.T) {
	f := newPartidaFixture(t)
	ctx := context.Background()
	archivo := workbookConFilas(t, [][]any{
		{"INT-001", "01.01", "Mobiliario de oficina", "und", 20, 450, 9000},
	})

	t.Run("empty upload", func(t *testing.T) {
		_, err := f.flow.ImportarPartidas(ctx, 1, nil, nil)
		var businessErr *BusinessError
		require.True(t, AsBusinessError(err, &businessErr))
		assert.Equal(t, "ARCHIVO_INVALIDO", businessErr.Code)
	})

	t.Run("unknown station", func(t *testing.T) {
		_, err := f.flow.ImportarPartidas(ctx, 99, archivo, nil)
		assert.True(t, IsComisariaNotFound(err))
	})
}

func (f *partidaFixture) seedPartidas(t *testing.T) (titulo, item *models.Partida) {
	t.Helper()

	titulo = &models.Partida{ComisariaID: 1, Codigo: "01", Descripcion: "EQUIPAMIENTO", Unidad: "UND", Estado: models.PartidaNoIniciada}
	item = &models.Partida{ComisariaID: 1, Codigo: "01.01", Descripcion: "Mobiliario de oficina", Unidad: "und",
		Metrado: 20, PrecioUnitario: 450, PrecioTotal: 9000, Estado: models.PartidaNoIniciada}
	require.NoError(t, f.partidaRepo.Save(context.Background(), titulo))
	require.NoError(t, f.partidaRepo.Save(context.Background(), item))
	return titulo, item
}

func TestRegistrarAvance(t *testing.T) {
	f := newPartidaFixture(t)
	ctx := context.Background()
	_, item := f.seedPartidas(t)

	obs := "Avance verificado en campo"
	resp, err := f.flow.RegistrarAvance(ctx, item.ID, &dto.RegistrarAvanceRequest{
		Fecha:            time.Now(),
		AvanceFisico:     35,
		AvanceProgramado: 42,
		Observaciones:    &obs,
	}, "Carlos Quispe", NewClientMetadata("127.0.0.1", "test"))
	require.NoError(t, err)

	assert.Equal(t, item.ID, resp.PartidaID)
	assert.InDelta(t, 7.0, resp.Desviacion, 0.001)
	require.NotNil(t, resp.ReportadoPor)
	assert.Equal(t, "Carlos Quispe", *resp.ReportadoPor)

	// A first report with physical progress moves the item out of no_iniciada
	actualizada, _ := f.partidaRepo.ByID(ctx, item.ID)
	assert.Equal(t, models.PartidaEnProceso, actualizada.Estado)

	entries, _ := f.auditRepo.ListByAction(ctx, models.AuditActionAvanceRegistrado, 10, 0)
	assert.Len(t, entries, 1)
}

func TestRegistrarAvance_CompletaAlCien(t *testing.T) {
	f := newPartidaFixture(t)
	ctx := context.Background()
	_, item := f.seedPartidas(t)

	_, err := f.flow.RegistrarAvance(ctx, item.ID, &dto.RegistrarAvanceRequest{
		Fecha:            time.Now(),
		AvanceFisico:     100,
		AvanceProgramado: 100,
	}, "Carlos Quispe", nil)
	require.NoError(t, err)

	actualizada, _ := f.partidaRepo.ByID(ctx, item.ID)
	assert.Equal(t, models.PartidaCompletada, actualizada.Estado)
}

func TestRegistrarAvance_Errores(t *testing.T) {
	f := newPartidaFixture(t)
	ctx := context.Background()
	titulo, item := f.seedPartidas(t)
	valido := &dto.RegistrarAvanceRequest{Fecha: time.Now(), AvanceFisico: 10, AvanceProgramado: 10}

	t.Run("out of range", func(t *testing.T) {
		_, err := f.flow.RegistrarAvance(ctx, item.ID, &dto.RegistrarAvanceRequest{
			Fecha: time.Now(), AvanceFisico: 120, AvanceProgramado: 10,
		}, "Carlos Quispe", nil)
		assert.ErrorIs(t, err, ErrAvanceFueraDeRango)
	})

	t.Run("unknown partida", func(t *testing.T) {
		_, err := f.flow.RegistrarAvance(ctx, 999, valido, "Carlos Quispe", nil)
		assert.True(t, IsPartidaNotFound(err))
	})

	t.Run("grouping header", func(t *testing.T) {
		_, err := f.flow.RegistrarAvance(ctx, titulo.ID, valido, "Carlos Quispe", nil)
		assert.ErrorIs(t, err, ErrAvanceSobreTitulo)
	})
}

func TestListarPartidas_Filtros(t *testing.T) {
	f := newPartidaFixture(t)
	ctx := context.Background()
	f.seedPartidas(t)

	todas, err := f.flow.ListarPartidas(ctx, 1, nil)
	require.NoError(t, err)
	assert.Len(t, todas, 2)

	nivel := 2
	hojas, err := f.flow.ListarPartidas(ctx, 1, &dto.ListPartidasRequest{Nivel: &nivel})
	require.NoError(t, err)
	require.Len(t, hojas, 1)
	assert.Equal(t, "01.01", hojas[0].Codigo)

	estado := models.PartidaCompletada.String()
	completadas, err := f.flow.ListarPartidas(ctx, 1, &dto.ListPartidasRequest{Estado: &estado})
	require.NoError(t, err)
	assert.Empty(t, completadas)

	_, err = f.flow.ListarPartidas(ctx, 99, nil)
	assert.True(t, IsComisariaNotFound(err))
}

func TestObtenerPartida_ConHistorial(t *testing.T) {
	f := newPartidaFixture(t)
	ctx := context.Background()
	_, item := f.seedPartidas(t)

	for dia, avance := range []float64{10, 25, 40} {
		_, err := f.flow.RegistrarAvance(ctx, item.ID, &dto.RegistrarAvanceRequest{
			Fecha:            time.Now().AddDate(0, 0, dia-3),
			AvanceFisico:     avance,
			AvanceProgramado: avance + utils.UmbralAtencion + 1,
		}, "Carlos Quispe", nil)
		require.NoError(t, err)
	}

	resp, err := f.flow.ObtenerPartida(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, resp.Avances, 3)
	assert.Equal(t, models.CriticidadAtencion.String(), resp.Criticidad)

	avances, err := f.flow.ListarAvances(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, avances, 3)

	_, err = f.flow.ListarAvances(ctx, 999)
	assert.True(t, IsPartidaNotFound(err))
}
