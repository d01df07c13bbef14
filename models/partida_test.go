package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidarCodigoPartida(t *testing.T) {
	validos := []string{"01", "01.02", "01.02.03", "10.20.30.40"}
	for _, codigo := range validos {
		assert.True(t, ValidarCodigoPartida(codigo), "codigo %s", codigo)
	}

	invalidos := []string{"", "1", "001", "01.", ".01", "01.2", "01-02", "A1.02", "01.02."}
	for _, codigo := range invalidos {
		assert.False(t, ValidarCodigoPartida(codigo), "codigo %s", codigo)
	}
}

func TestPartida_Jerarquia(t *testing.T) {
	top := Partida{Codigo: "01"}
	assert.Equal(t, 1, top.NivelJerarquico())
	assert.Equal(t, "", top.CodigoPadre())

	hoja := Partida{Codigo: "01.02.03"}
	assert.Equal(t, 3, hoja.NivelJerarquico())
	assert.Equal(t, "01.02", hoja.CodigoPadre())
}

func TestPartida_EsTitulo(t *testing.T) {
	titulo := Partida{Codigo: "01", Descripcion: "EQUIPAMIENTO"}
	assert.True(t, titulo.EsTitulo())

	ejecutable := Partida{Codigo: "01.01", Metrado: 20, PrecioUnitario: 450, PrecioTotal: 9000}
	assert.False(t, ejecutable.EsTitulo())
}

func TestCriticidadPorDesviacion(t *testing.T) {
	testCases := []struct {
		desviacion float64
		want       Criticidad
	}{
		{0, CriticidadNormal},
		{2.9, CriticidadNormal},
		{3.0, CriticidadAtencion},
		{4.9, CriticidadAtencion},
		{5.0, CriticidadCritica},
		{12.5, CriticidadCritica},
		// Ahead of schedule grades by the same magnitude
		{-6.0, CriticidadCritica},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, CriticidadPorDesviacion(tc.desviacion), "desviacion %.1f", tc.desviacion)
	}
}

func partidaConAvances(avances ...AvancePartida) Partida {
	return Partida{
		Codigo:      "01.01",
		Descripcion: "Mobiliario de oficina",
		PrecioTotal: 9000,
		Avances:     avances,
	}
}

func avance(dia int, programado, fisico float64) AvancePartida {
	return AvancePartida{
		Fecha:            time.Date(2025, 3, dia, 0, 0, 0, 0, time.UTC),
		AvanceProgramado: programado,
		AvanceFisico:     fisico,
	}
}

func TestPartida_DesviacionYCriticidad(t *testing.T) {
	sinAvances := partidaConAvances()
	assert.Equal(t, 0.0, sinAvances.DesviacionActual())
	assert.Equal(t, CriticidadNormal, sinAvances.CriticidadActual())
	assert.Nil(t, sinAvances.UltimoAvance())

	p := partidaConAvances(avance(1, 20, 18), avance(8, 40, 33))

	ultimo := p.UltimoAvance()
	require.NotNil(t, ultimo)
	assert.Equal(t, 40.0, ultimo.AvanceProgramado)

	assert.Equal(t, 7.0, p.DesviacionActual())
	assert.Equal(t, CriticidadCritica, p.CriticidadActual())
}

func TestPartida_TendenciaActual(t *testing.T) {
	sinAvances := partidaConAvances()
	assert.Equal(t, TendenciaEstable, sinAvances.TendenciaActual())

	unSoloAvance := partidaConAvances(avance(1, 20, 15))
	assert.Equal(t, TendenciaEstable, unSoloAvance.TendenciaActual())

	mejorando := partidaConAvances(avance(1, 20, 14), avance(8, 40, 38))
	assert.Equal(t, TendenciaMejorando, mejorando.TendenciaActual())

	empeorando := partidaConAvances(avance(1, 20, 19), avance(8, 40, 32))
	assert.Equal(t, TendenciaEmpeorando, empeorando.TendenciaActual())

	estable := partidaConAvances(avance(1, 20, 17), avance(8, 40, 37))
	assert.Equal(t, TendenciaEstable, estable.TendenciaActual())
}

func TestPartida_MontoEjecutado(t *testing.T) {
	sinAvances := partidaConAvances()
	assert.Equal(t, 0.0, sinAvances.MontoEjecutado())

	p := partidaConAvances(avance(1, 50, 40))
	assert.InDelta(t, 3600.0, p.MontoEjecutado(), 0.001)
}

func TestAvancePartida_Desviacion(t *testing.T) {
	a := avance(1, 45, 38)
	assert.Equal(t, 7.0, a.Desviacion())
}
