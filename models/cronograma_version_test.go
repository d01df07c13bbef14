package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balancedVersion() CronogramaVersion {
	return CronogramaVersion{
		NumeroVersion: 2,
		NombreVersion: "Cronograma v2",
		Estado:        VersionDetectada,
		Modificaciones: []Modificacion{
			{Tipo: TipoReduccionPrestaciones, Estado: ModificacionJustificada, CodigoPartida: "01.03", MontoAnterior: 9600},
			{Tipo: TipoAdicionalIndependiente, Estado: ModificacionJustificada, CodigoPartida: "01.04", MontoNuevo: 9600},
		},
	}
}

func TestCronogramaVersion_RecalcularTotales(t *testing.T) {
	v := balancedVersion()
	v.RecalcularTotales()

	assert.Equal(t, 9600.0, v.TotalReducciones)
	assert.Equal(t, 9600.0, v.TotalAdicionales)
	assert.Equal(t, 0.0, v.BalancePresupuestal)
	assert.True(t, v.EstaEquilibrada())
}

func TestCronogramaVersion_RecalcularTotalesIncluyeRechazadas(t *testing.T) {
	v := balancedVersion()
	v.Modificaciones[1].Estado = ModificacionRechazada
	v.RecalcularTotales()

	// A rejected modification keeps weighing on the balance until it is
	// removed from the version
	assert.Equal(t, 9600.0, v.TotalReducciones)
	assert.Equal(t, 9600.0, v.TotalAdicionales)
	assert.Equal(t, 0.0, v.BalancePresupuestal)
	assert.True(t, v.EstaEquilibrada())
}

func TestCronogramaVersion_EstaEquilibradaEnLaTolerancia(t *testing.T) {
	v := balancedVersion()
	v.BalancePresupuestal = 0.01
	assert.False(t, v.EstaEquilibrada())

	v.BalancePresupuestal = 0.009
	assert.True(t, v.EstaEquilibrada())
}

func TestCronogramaVersion_PuedeSerAprobada(t *testing.T) {
	t.Run("balanced and justified", func(t *testing.T) {
		v := balancedVersion()
		v.RecalcularTotales()
		assert.True(t, v.PuedeSerAprobada())
	})

	t.Run("unbalanced", func(t *testing.T) {
		v := balancedVersion()
		v.Modificaciones[1].MontoNuevo = 5000
		v.RecalcularTotales()
		assert.False(t, v.PuedeSerAprobada())
	})

	t.Run("pending justification", func(t *testing.T) {
		v := balancedVersion()
		v.Modificaciones[0].Estado = ModificacionPendienteJustificacion
		v.RecalcularTotales()
		assert.False(t, v.PuedeSerAprobada())
		assert.Equal(t, []string{"01.03"}, v.ModificacionesPendientes())
	})

	t.Run("already resolved", func(t *testing.T) {
		v := balancedVersion()
		v.Estado = VersionAprobada
		v.RecalcularTotales()
		assert.False(t, v.PuedeSerAprobada())
	})

	t.Run("rejected modification blocks approval", func(t *testing.T) {
		v := balancedVersion()
		v.Modificaciones = append(v.Modificaciones,
			Modificacion{Tipo: TipoDeductivoVinculante, Estado: ModificacionRechazada,
				CodigoPartida: "01.05", MontoAnterior: 4800, MontoNuevo: 4800})
		v.RecalcularTotales()

		require.True(t, v.EstaEquilibrada())
		assert.False(t, v.PuedeSerAprobada())
	})
}

func TestCronogramaVersion_Aprobar(t *testing.T) {
	v := balancedVersion()
	v.RecalcularTotales()

	require.NoError(t, v.Aprobar("Autoridad MININTER"))

	assert.Equal(t, VersionAprobada, v.Estado)
	require.NotNil(t, v.AprobadaPor)
	assert.Equal(t, "Autoridad MININTER", *v.AprobadaPor)
	assert.NotNil(t, v.FechaResolucion)
	for _, m := range v.Modificaciones {
		assert.Equal(t, ModificacionAprobada, m.Estado)
	}
}

func TestCronogramaVersion_AprobarDesequilibrada(t *testing.T) {
	v := balancedVersion()
	v.Modificaciones[1].MontoNuevo = 4000
	v.RecalcularTotales()

	err := v.Aprobar("Autoridad MININTER")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no esta equilibrada")
	assert.Equal(t, VersionDetectada, v.Estado)
}

func TestCronogramaVersion_AprobarConPendientes(t *testing.T) {
	v := balancedVersion()
	v.Modificaciones[0].Estado = ModificacionPendienteJustificacion
	v.RecalcularTotales()

	err := v.Aprobar("Autoridad MININTER")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sin justificar")
	assert.Equal(t, VersionDetectada, v.Estado)
}

func TestCronogramaVersion_AprobarConRechazadas(t *testing.T) {
	v := balancedVersion()
	v.Modificaciones = append(v.Modificaciones,
		Modificacion{Tipo: TipoDeductivoVinculante, Estado: ModificacionRechazada,
			CodigoPartida: "01.05", MontoAnterior: 4800, MontoNuevo: 4800})
	v.RecalcularTotales()

	err := v.Aprobar("Autoridad MININTER")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rechazadas")
	assert.Equal(t, VersionDetectada, v.Estado)
	assert.Equal(t, ModificacionJustificada, v.Modificaciones[0].Estado)
}

func TestCronogramaVersion_Rechazar(t *testing.T) {
	v := balancedVersion()

	require.NoError(t, v.Rechazar("Autoridad MININTER", "las reducciones afectan seguridad"))

	assert.Equal(t, VersionRechazada, v.Estado)
	require.NotNil(t, v.ObservacionRechazo)
	assert.Equal(t, "las reducciones afectan seguridad", *v.ObservacionRechazo)

	// Modification states are left untouched on rejection
	assert.Equal(t, ModificacionJustificada, v.Modificaciones[0].Estado)

	// A resolved version cannot be rejected again
	assert.Error(t, v.Rechazar("Autoridad MININTER", ""))
}

func TestCronogramaVersion_ContarPorTipo(t *testing.T) {
	v := balancedVersion()
	v.Modificaciones = append(v.Modificaciones,
		Modificacion{Tipo: TipoDeductivoVinculante, Estado: ModificacionJustificada, CodigoPartida: "01.02"})

	conteo := v.ContarPorTipo()
	assert.Equal(t, 1, conteo[TipoReduccionPrestaciones])
	assert.Equal(t, 1, conteo[TipoAdicionalIndependiente])
	assert.Equal(t, 1, conteo[TipoDeductivoVinculante])
}
