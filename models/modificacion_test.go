package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstadoModificacion_CanTransitionTo(t *testing.T) {
	testCases := []struct {
		name string
		from EstadoModificacion
		to   EstadoModificacion
		want bool
	}{
		{"detected to pending confirmation", ModificacionDetectada, ModificacionPendienteConfirmacion, true},
		{"detected to pending justification", ModificacionDetectada, ModificacionPendienteJustificacion, true},
		{"detected cannot jump to approved", ModificacionDetectada, ModificacionAprobada, false},
		{"pending confirmation to pending justification", ModificacionPendienteConfirmacion, ModificacionPendienteJustificacion, true},
		{"pending justification to justified", ModificacionPendienteJustificacion, ModificacionJustificada, true},
		{"justified to approved", ModificacionJustificada, ModificacionAprobada, true},
		{"justified to rejected", ModificacionJustificada, ModificacionRechazada, true},
		{"pending approval to approved", ModificacionPendienteAprobacion, ModificacionAprobada, true},
		{"approved to executed", ModificacionAprobada, ModificacionEjecutada, true},
		{"approved cannot be rejected", ModificacionAprobada, ModificacionRechazada, false},
		{"rejected is terminal", ModificacionRechazada, ModificacionJustificada, false},
		{"executed is terminal", ModificacionEjecutada, ModificacionAprobada, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestModificacion_CalcularImpacto(t *testing.T) {
	eliminada := "03.02"

	testCases := []struct {
		name         string
		modificacion Modificacion
		want         float64
	}{
		{
			name:         "reduction counts against the previous amount",
			modificacion: Modificacion{Tipo: TipoReduccionPrestaciones, MontoAnterior: 4500},
			want:         -4500,
		},
		{
			name:         "independent addition adds the new amount",
			modificacion: Modificacion{Tipo: TipoAdicionalIndependiente, MontoNuevo: 7800},
			want:         7800,
		},
		{
			name: "linked deductive nets against the removed item",
			modificacion: Modificacion{
				Tipo:             TipoDeductivoVinculante,
				MontoNuevo:       5000,
				MontoAnterior:    9999,
				PartidaEliminada: &eliminada,
				MontoEliminado:   5200,
			},
			want: -200,
		},
		{
			name:         "unlinked deductive nets against the previous amount",
			modificacion: Modificacion{Tipo: TipoDeductivoVinculante, MontoNuevo: 6000, MontoAnterior: 5400},
			want:         600,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.modificacion.CalcularImpacto())
		})
	}
}

func TestModificacion_Justificar(t *testing.T) {
	m := Modificacion{
		Tipo:          TipoAdicionalIndependiente,
		Estado:        ModificacionPendienteJustificacion,
		CodigoPartida: "01.05",
		MontoNuevo:    3000,
	}

	err := m.Justificar("Partida requerida por observacion de supervision", "Carlos Quispe", []string{"informe-015.pdf"})
	require.NoError(t, err)

	assert.Equal(t, ModificacionJustificada, m.Estado)
	require.NotNil(t, m.Justificacion)
	assert.Equal(t, "Partida requerida por observacion de supervision", *m.Justificacion)
	require.NotNil(t, m.MonitorResponsable)
	assert.Equal(t, "Carlos Quispe", *m.MonitorResponsable)
	assert.Equal(t, StringList{"informe-015.pdf"}, m.DocumentosSustento)
	assert.NotNil(t, m.JustificadaEn)
}

func TestModificacion_JustificarRechazaVaciaYResuelta(t *testing.T) {
	m := Modificacion{Estado: ModificacionPendienteJustificacion, CodigoPartida: "01.05"}
	assert.Error(t, m.Justificar("", "Carlos Quispe", nil))

	resuelta := Modificacion{Estado: ModificacionAprobada, CodigoPartida: "01.05"}
	assert.Error(t, resuelta.Justificar("Justificacion valida", "Carlos Quispe", nil))
}

func TestModificacion_AprobarYRechazar(t *testing.T) {
	m := Modificacion{Estado: ModificacionJustificada, CodigoPartida: "02.01"}

	require.NoError(t, m.Aprobar("Autoridad MININTER"))
	assert.Equal(t, ModificacionAprobada, m.Estado)
	require.NotNil(t, m.AprobadaPor)
	assert.Equal(t, "Autoridad MININTER", *m.AprobadaPor)
	assert.NotNil(t, m.ResueltaEn)

	// Once approved only execution remains
	assert.Error(t, m.Rechazar("Autoridad MININTER", "fuera de plazo"))

	rechazable := Modificacion{Estado: ModificacionJustificada, CodigoPartida: "02.02"}
	require.NoError(t, rechazable.Rechazar("Autoridad MININTER", "sin sustento tecnico"))
	assert.Equal(t, ModificacionRechazada, rechazable.Estado)
	require.NotNil(t, rechazable.ObservacionAutoridad)
	assert.Equal(t, "sin sustento tecnico", *rechazable.ObservacionAutoridad)
}

func TestModificacion_RequiereJustificacion(t *testing.T) {
	pendientes := []EstadoModificacion{
		ModificacionDetectada, ModificacionPendienteConfirmacion, ModificacionPendienteJustificacion,
	}
	for _, estado := range pendientes {
		m := Modificacion{Estado: estado}
		assert.True(t, m.RequiereJustificacion(), "estado %s", estado)
	}

	resueltas := []EstadoModificacion{ModificacionJustificada, ModificacionAprobada, ModificacionRechazada}
	for _, estado := range resueltas {
		m := Modificacion{Estado: estado}
		assert.False(t, m.RequiereJustificacion(), "estado %s", estado)
	}
}

func TestModificacion_EstaEquilibrada(t *testing.T) {
	m := Modificacion{Tipo: TipoDeductivoVinculante, MontoAnterior: 100, MontoNuevo: 100.01}
	assert.False(t, m.EstaEquilibrada())

	m.MontoNuevo = 100.005
	assert.True(t, m.EstaEquilibrada())
}
