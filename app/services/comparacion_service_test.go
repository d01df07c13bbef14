package services

import (
	"testing"

	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(codigo, descripcion string, metrado, precioUnitario, precioTotal float64) PartidaRecord {
	return PartidaRecord{
		CodigoInterno:  "INT-" + codigo,
		CodigoPartida:  codigo,
		Descripcion:    descripcion,
		Unidad:         "und",
		Metrado:        metrado,
		PrecioUnitario: precioUnitario,
		PrecioTotal:    precioTotal,
	}
}

func TestComparar_SinCambios(t *testing.T) {
	svc := NewComparacionService()

	partidas := []PartidaRecord{
		record("01.01", "Mobiliario de oficina", 20, 450, 9000),
		record("01.02", "Equipos de computo", 12, 2800, 33600),
	}

	resultado := svc.Comparar(partidas, partidas)

	assert.Empty(t, resultado.PartidasEliminadas)
	assert.Empty(t, resultado.PartidasNuevas)
	assert.Empty(t, resultado.PartidasModificadas)
	assert.Empty(t, resultado.Modificaciones)
	assert.Equal(t, 0.0, resultado.BalancePreliminar)
}

func TestComparar_ClasificaCambios(t *testing.T) {
	svc := NewComparacionService()

	originales := []PartidaRecord{
		record("01.01", "Mobiliario de oficina", 20, 450, 9000),
		record("01.02", "Equipos de computo", 12, 2800, 33600),
		record("01.03", "Camaras de vigilancia", 8, 1200, 9600),
	}
	nuevas := []PartidaRecord{
		record("01.01", "Mobiliario de oficina", 20, 450, 9000),
		record("01.02", "Equipos de computo", 10, 2800, 28000),
		record("01.04", "Grupo electrogeno", 1, 15200, 15200),
	}

	resultado := svc.Comparar(originales, nuevas)

	require.Len(t, resultado.PartidasEliminadas, 1)
	assert.Equal(t, "01.03", resultado.PartidasEliminadas[0].CodigoPartida)

	require.Len(t, resultado.PartidasNuevas, 1)
	assert.Equal(t, "01.04", resultado.PartidasNuevas[0].CodigoPartida)

	require.Len(t, resultado.PartidasModificadas, 1)
	cambio := resultado.PartidasModificadas[0]
	assert.Equal(t, "01.02", cambio.CodigoPartida)
	assert.ElementsMatch(t, []string{"metrado", "precio_total"}, cambio.CamposModificados)

	assert.Equal(t, 9600.0, resultado.ImpactoReducciones)
	assert.Equal(t, 15200.0, resultado.ImpactoAdicionales)
	// 15200 - 9600 + (28000 - 33600)
	assert.InDelta(t, 0.0, resultado.BalancePreliminar, utils.BalanceTolerance)
}

func TestComparar_GeneraModificacionesClasificadas(t *testing.T) {
	svc := NewComparacionService()

	originales := []PartidaRecord{
		record("02.01", "Pintura de fachada", 300, 18, 5400),
		record("02.02", "Tarrajeo de muros", 120, 25, 3000),
	}
	nuevas := []PartidaRecord{
		record("02.02", "Tarrajeo de muros interiores", 120, 25, 3000),
		record("02.03", "Instalacion de luminarias", 40, 135, 5400),
	}

	resultado := svc.Comparar(originales, nuevas)
	require.Len(t, resultado.Modificaciones, 3)

	// Reductions come first, then additions, then in-place changes
	reduccion := resultado.Modificaciones[0]
	assert.Equal(t, models.TipoReduccionPrestaciones, reduccion.Tipo)
	assert.Equal(t, models.ModificacionDetectada, reduccion.Estado)
	assert.Equal(t, "02.01", reduccion.CodigoPartida)
	assert.Equal(t, 5400.0, reduccion.MontoAnterior)
	assert.Equal(t, -5400.0, reduccion.ImpactoPresupuestal)

	adicional := resultado.Modificaciones[1]
	assert.Equal(t, models.TipoAdicionalIndependiente, adicional.Tipo)
	assert.Equal(t, "02.03", adicional.CodigoPartida)
	assert.Equal(t, 5400.0, adicional.MontoNuevo)
	assert.Equal(t, 5400.0, adicional.ImpactoPresupuestal)

	deductivo := resultado.Modificaciones[2]
	assert.Equal(t, models.TipoDeductivoVinculante, deductivo.Tipo)
	assert.Equal(t, "02.02", deductivo.CodigoPartida)
	assert.Equal(t, []string{"descripcion"}, []string(deductivo.CamposModificados))
	assert.Equal(t, 0.0, deductivo.ImpactoPresupuestal)
}

func TestComparar_IgnoraDiferenciasDentroDeTolerancia(t *testing.T) {
	svc := NewComparacionService()

	originales := []PartidaRecord{record("03.01", "Cerco perimetrico", 100, 85, 8500)}
	nuevas := []PartidaRecord{record("03.01", "Cerco perimetrico", 100.005, 85, 8500.005)}

	resultado := svc.Comparar(originales, nuevas)

	assert.Empty(t, resultado.PartidasModificadas)
	assert.Empty(t, resultado.Modificaciones)
}

func TestValidarEquilibrio(t *testing.T) {
	svc := NewComparacionService()

	testCases := []struct {
		name            string
		modificaciones  []models.Modificacion
		wantEquilibrado bool
		wantBalance     float64
	}{
		{
			name: "balanced reduction and addition",
			modificaciones: []models.Modificacion{
				{Tipo: models.TipoReduccionPrestaciones, MontoAnterior: 12000},
				{Tipo: models.TipoAdicionalIndependiente, MontoNuevo: 12000},
			},
			wantEquilibrado: true,
			wantBalance:     0,
		},
		{
			name: "overrun",
			modificaciones: []models.Modificacion{
				{Tipo: models.TipoReduccionPrestaciones, MontoAnterior: 5000},
				{Tipo: models.TipoAdicionalIndependiente, MontoNuevo: 8000},
			},
			wantEquilibrado: false,
			wantBalance:     3000,
		},
		{
			name: "surplus",
			modificaciones: []models.Modificacion{
				{Tipo: models.TipoReduccionPrestaciones, MontoAnterior: 9000},
				{Tipo: models.TipoAdicionalIndependiente, MontoNuevo: 2500},
			},
			wantEquilibrado: false,
			wantBalance:     -6500,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			validacion := svc.ValidarEquilibrio(tc.modificaciones)

			assert.Equal(t, tc.wantEquilibrado, validacion.EstaEquilibrado)
			assert.InDelta(t, tc.wantBalance, validacion.Balance, utils.BalanceTolerance)
			assert.NotEmpty(t, validacion.Alertas)
		})
	}
}

func TestValidarEquilibrio_DeductivoVinculadoNetea(t *testing.T) {
	svc := NewComparacionService()

	eliminada := "04.05"
	modificaciones := []models.Modificacion{
		{
			Tipo:             models.TipoDeductivoVinculante,
			MontoNuevo:       7200,
			MontoAnterior:    9000,
			PartidaEliminada: &eliminada,
			MontoEliminado:   7200,
		},
	}

	validacion := svc.ValidarEquilibrio(modificaciones)

	// The linked removed item covers the new amount exactly
	assert.True(t, validacion.EstaEquilibrado)
	assert.InDelta(t, 0.0, validacion.Balance, utils.BalanceTolerance)
}

func TestSugerirEquilibrio(t *testing.T) {
	svc := NewComparacionService()

	t.Run("already balanced", func(t *testing.T) {
		sugerencias := svc.SugerirEquilibrio([]models.Modificacion{
			{Tipo: models.TipoReduccionPrestaciones, MontoAnterior: 4000},
			{Tipo: models.TipoAdicionalIndependiente, MontoNuevo: 4000},
		})
		assert.Equal(t, []string{"El presupuesto ya esta equilibrado"}, sugerencias)
	})

	t.Run("overrun suggests dropping the largest additions", func(t *testing.T) {
		sugerencias := svc.SugerirEquilibrio([]models.Modificacion{
			{Tipo: models.TipoReduccionPrestaciones, MontoAnterior: 6000},
			{Tipo: models.TipoAdicionalIndependiente, CodigoPartida: "05.01", MontoNuevo: 8000},
			{Tipo: models.TipoAdicionalIndependiente, CodigoPartida: "05.02", MontoNuevo: 1000},
		})

		require.NotEmpty(t, sugerencias)
		assert.Contains(t, sugerencias[len(sugerencias)-1], "05.01")
		assert.NotContains(t, sugerencias[len(sugerencias)-1], "05.02")
	})

	t.Run("surplus reports the available amount", func(t *testing.T) {
		sugerencias := svc.SugerirEquilibrio([]models.Modificacion{
			{Tipo: models.TipoReduccionPrestaciones, MontoAnterior: 5000},
		})

		require.Len(t, sugerencias, 2)
		assert.Contains(t, sugerencias[0], "disponibles")
	})
}
