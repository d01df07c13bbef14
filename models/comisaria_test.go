package models

import (
	"testing"
	"time"

	"github.com/nemaec/obra-erp/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingComisaria() Comisaria {
	inicio := time.Now().UTC().AddDate(0, 0, 7)
	return Comisaria{
		Codigo:                   "COM-042",
		Nombre:                   "Comisaria PNP Zarate",
		Tipo:                     ComisariaBasica,
		Estado:                   ComisariaPendiente,
		Departamento:             "Lima",
		Provincia:                "Lima",
		Distrito:                 "San Juan de Lurigancho",
		Direccion:                "Av. Gran Chimu 283",
		FechaInicioProgramada:    &inicio,
		PresupuestoEquipamiento:  250000,
		PresupuestoMantenimiento: 180000,
	}
}

func TestComisaria_PresupuestoYDireccion(t *testing.T) {
	c := pendingComisaria()

	assert.Equal(t, 430000.0, c.PresupuestoTotal())
	assert.Equal(t, "Av. Gran Chimu 283, San Juan de Lurigancho, Lima, Lima", c.DireccionCompleta())
}

func TestComisaria_PuedeIniciarObra(t *testing.T) {
	c := pendingComisaria()
	assert.True(t, c.PuedeIniciarObra())

	sinPresupuesto := pendingComisaria()
	sinPresupuesto.PresupuestoEquipamiento = 0
	sinPresupuesto.PresupuestoMantenimiento = 0
	assert.False(t, sinPresupuesto.PuedeIniciarObra())

	sinFecha := pendingComisaria()
	sinFecha.FechaInicioProgramada = nil
	assert.False(t, sinFecha.PuedeIniciarObra())

	enProceso := pendingComisaria()
	enProceso.Estado = ComisariaEnProceso
	assert.False(t, enProceso.PuedeIniciarObra())
}

func TestComisaria_CicloDeObra(t *testing.T) {
	c := pendingComisaria()
	inicio := time.Now().UTC()

	require.NoError(t, c.IniciarObra(inicio))
	assert.Equal(t, ComisariaEnProceso, c.Estado)
	assert.True(t, c.EstaEnEjecucion())
	require.NotNil(t, c.FechaInicioReal)

	fin := inicio.AddDate(0, 6, 0)
	require.NoError(t, c.CompletarObra(fin))
	assert.Equal(t, ComisariaCompletada, c.Estado)
	require.NotNil(t, c.FechaFinReal)

	// A completed station admits no further work transitions
	assert.Error(t, c.IniciarObra(inicio))
	assert.Error(t, c.CompletarObra(fin))
	assert.Error(t, c.SuspenderObra())
}

func TestComisaria_SuspenderObra(t *testing.T) {
	c := pendingComisaria()
	require.NoError(t, c.SuspenderObra())
	assert.Equal(t, ComisariaSuspendida, c.Estado)

	// Suspended works cannot start
	assert.Error(t, c.IniciarObra(time.Now().UTC()))
}

func TestComisaria_DiasProgramados(t *testing.T) {
	c := pendingComisaria()
	assert.Nil(t, c.DiasProgramados())

	inicio := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	fin := inicio.AddDate(0, 0, 180)
	c.FechaInicioProgramada = &inicio
	c.FechaFinProgramada = &fin

	dias := c.DiasProgramados()
	require.NotNil(t, dias)
	assert.Equal(t, 180, *dias)
}

func TestComisaria_EstaRetrasada(t *testing.T) {
	c := pendingComisaria()
	assert.False(t, c.EstaRetrasada())

	vencida := utils.UTCNow().AddDate(0, 0, -15)
	c.FechaFinProgramada = &vencida
	c.Estado = ComisariaEnProceso
	assert.True(t, c.EstaRetrasada())

	c.Estado = ComisariaCompletada
	assert.False(t, c.EstaRetrasada())
}
