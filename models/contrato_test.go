package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draftContrato() Contrato {
	return Contrato{
		Numero:         "CONT-2025-0041",
		Fecha:          time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Tipo:           ContratoEquipamiento,
		Estado:         ContratoBorrador,
		Contratado:     "Proveedora Andina S.A.C.",
		RUCContratado:  "20512345678",
		ItemContratado: "Suministro de equipamiento policial",
		PlazoDias:      120,
		MontoTotal:     42600,
		Comisarias: []ContratoComisaria{
			{ComisariaID: 1, Monto: 42600, Activa: true},
		},
	}
}

func TestContrato_CicloDeVida(t *testing.T) {
	c := draftContrato()
	inicio := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, c.Firmar())
	assert.Equal(t, ContratoFirmado, c.Estado)

	require.NoError(t, c.Iniciar(inicio))
	assert.Equal(t, ContratoEnEjecucion, c.Estado)
	require.NotNil(t, c.FechaInicioReal)
	assert.Equal(t, inicio, *c.FechaInicioReal)

	require.NoError(t, c.Suspender())
	assert.Equal(t, ContratoSuspendido, c.Estado)

	require.NoError(t, c.Reanudar())
	assert.Equal(t, ContratoEnEjecucion, c.Estado)

	fin := inicio.AddDate(0, 0, 118)
	require.NoError(t, c.Finalizar(fin))
	assert.Equal(t, ContratoFinalizado, c.Estado)
	require.NotNil(t, c.FechaFinReal)
	assert.Equal(t, fin, *c.FechaFinReal)
}

func TestContrato_TransicionesInvalidas(t *testing.T) {
	inicio := time.Now().UTC()

	t.Run("cannot sign twice", func(t *testing.T) {
		c := draftContrato()
		require.NoError(t, c.Firmar())
		assert.Error(t, c.Firmar())
	})

	t.Run("cannot start a draft", func(t *testing.T) {
		c := draftContrato()
		assert.Error(t, c.Iniciar(inicio))
	})

	t.Run("cannot start without stations", func(t *testing.T) {
		c := draftContrato()
		c.Comisarias = nil
		require.NoError(t, c.Firmar())
		assert.Error(t, c.Iniciar(inicio))
	})

	t.Run("cannot resume a running contract", func(t *testing.T) {
		c := draftContrato()
		require.NoError(t, c.Firmar())
		require.NoError(t, c.Iniciar(inicio))
		assert.Error(t, c.Reanudar())
	})

	t.Run("cannot rescind a draft", func(t *testing.T) {
		c := draftContrato()
		assert.Error(t, c.Rescindir())
	})
}

func TestContrato_Rescindir(t *testing.T) {
	c := draftContrato()
	require.NoError(t, c.Firmar())
	require.NoError(t, c.Iniciar(time.Now().UTC()))
	require.NoError(t, c.Suspender())

	require.NoError(t, c.Rescindir())
	assert.Equal(t, ContratoRescindido, c.Estado)
}

func TestContrato_AmpliarPlazo(t *testing.T) {
	c := draftContrato()

	require.NoError(t, c.AmpliarPlazo(30))
	assert.Equal(t, 30, c.DiasAdicionales)
	assert.Equal(t, 150, c.PlazoTotalDias())

	// Extensions accumulate
	require.NoError(t, c.AmpliarPlazo(15))
	assert.Equal(t, 165, c.PlazoTotalDias())

	assert.Error(t, c.AmpliarPlazo(0))
	assert.Error(t, c.AmpliarPlazo(-10))

	c.Estado = ContratoFinalizado
	assert.Error(t, c.AmpliarPlazo(10))
}

func TestContrato_FechaFinProgramada(t *testing.T) {
	c := draftContrato()
	assert.Nil(t, c.FechaFinProgramada())

	inicio := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	c.FechaInicioReal = &inicio
	c.DiasAdicionales = 10

	fin := c.FechaFinProgramada()
	require.NotNil(t, fin)
	assert.Equal(t, inicio.AddDate(0, 0, 130), *fin)
}

func TestContrato_EstaVencido(t *testing.T) {
	c := draftContrato()
	assert.False(t, c.EstaVencido())

	// Started long enough ago that the term already ran out
	inicio := time.Now().UTC().AddDate(0, 0, -200)
	c.FechaInicioReal = &inicio

	c.Estado = ContratoEnEjecucion
	assert.True(t, c.EstaVencido())

	// Only running contracts count as overdue
	c.Estado = ContratoFinalizado
	assert.False(t, c.EstaVencido())
}

func TestContrato_PorcentajeTiempoTranscurrido(t *testing.T) {
	c := draftContrato()
	assert.Nil(t, c.PorcentajeTiempoTranscurrido())

	inicio := time.Now().UTC().AddDate(0, 0, -60)
	c.FechaInicioReal = &inicio

	pct := c.PorcentajeTiempoTranscurrido()
	require.NotNil(t, pct)
	assert.InDelta(t, 50.0, *pct, 1.0)

	// Capped at 100 once the term ran out
	vencido := time.Now().UTC().AddDate(0, 0, -500)
	c.FechaInicioReal = &vencido
	pct = c.PorcentajeTiempoTranscurrido()
	require.NotNil(t, pct)
	assert.Equal(t, 100.0, *pct)
}
