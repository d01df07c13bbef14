package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// filaCronograma mirrors one data row of the schedule template
type filaCronograma struct {
	codigoInterno  string
	codigoPartida  string
	descripcion    string
	unidad         string
	metrado        any
	precioUnitario any
	precioTotal    any
}

func buildWorkbook(t *testing.T, filas []filaCronograma) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "B1", "Codigo"))
	require.NoError(t, f.SetCellValue(sheet, "D1", "Partida"))
	require.NoError(t, f.SetCellValue(sheet, "E1", "Descripcion"))

	for i, fila := range filas {
		row := i + filaInicioDatos
		require.NoError(t, f.SetCellValue(sheet, fmt.Sprintf("B%d", row), fila.codigoInterno))
		require.NoError(t, f.SetCellValue(sheet, fmt.Sprintf("D%d", row), fila.codigoPartida))
		require.NoError(t, f.SetCellValue(sheet, fmt.Sprintf("E%d", row), fila.descripcion))
		require.NoError(t, f.SetCellValue(sheet, fmt.Sprintf("F%d", row), fila.unidad))
		require.NoError(t, f.SetCellValue(sheet, fmt.Sprintf("G%d", row), fila.metrado))
		require.NoError(t, f.SetCellValue(sheet, fmt.Sprintf("H%d", row), fila.precioUnitario))
		require.NoError(t, f.SetCellValue(sheet, fmt.Sprintf("I%d", row), fila.precioTotal))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParsearExcel(t *testing.T) {
	parser := NewCronogramaParser()

	archivo := buildWorkbook(t, []filaCronograma{
		{"INT-001", "01", "EQUIPAMIENTO", "", "", "", ""},
		{"INT-002", "01.01", "Mobiliario de oficina", "und", 20, 450, 9000},
		{"INT-003", "01.02", "Equipos de computo", "", 12, 2800, 33600},
	})

	resultado, err := parser.ParsearExcel(archivo)
	require.NoError(t, err)
	require.Len(t, resultado.Partidas, 3)
	assert.Empty(t, resultado.Advertencias)

	titulo := resultado.Partidas[0]
	assert.Equal(t, "01", titulo.CodigoPartida)
	assert.Equal(t, 0.0, titulo.PrecioTotal)
	assert.Equal(t, 2, titulo.FilaExcel)

	mobiliario := resultado.Partidas[1]
	assert.Equal(t, "INT-002", mobiliario.CodigoInterno)
	assert.Equal(t, "Mobiliario de oficina", mobiliario.Descripcion)
	assert.Equal(t, 20.0, mobiliario.Metrado)
	assert.Equal(t, 450.0, mobiliario.PrecioUnitario)
	assert.Equal(t, 9000.0, mobiliario.PrecioTotal)

	// A blank unit falls back to the default
	assert.Equal(t, "UND", resultado.Partidas[2].Unidad)
}

func TestParsearExcel_OmiteFilasIncompletas(t *testing.T) {
	parser := NewCronogramaParser()

	archivo := buildWorkbook(t, []filaCronograma{
		{"INT-001", "01.01", "Mobiliario de oficina", "und", 20, 450, 9000},
		{"", "", "", "", "", "", ""},
		{"INT-003", "", "Fila sin codigo de partida", "und", 1, 100, 100},
	})

	resultado, err := parser.ParsearExcel(archivo)
	require.NoError(t, err)
	require.Len(t, resultado.Partidas, 1)
	assert.Empty(t, resultado.Advertencias)
}

func TestParsearExcel_Advertencias(t *testing.T) {
	parser := NewCronogramaParser()

	testCases := []struct {
		name         string
		fila         filaCronograma
		wantContains string
	}{
		{
			name:         "invalid work item code",
			fila:         filaCronograma{"INT-001", "1.A", "Partida con codigo malo", "und", 1, 100, 100},
			wantContains: "codigo de partida invalido",
		},
		{
			name:         "non numeric metrado",
			fila:         filaCronograma{"INT-001", "01.01", "Partida con metrado malo", "und", "veinte", 100, 100},
			wantContains: "metrado invalido",
		},
		{
			name:         "negative amounts",
			fila:         filaCronograma{"INT-001", "01.01", "Partida con monto negativo", "und", 5, -100, -500},
			wantContains: "montos negativos",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			archivo := buildWorkbook(t, []filaCronograma{tc.fila})

			resultado, err := parser.ParsearExcel(archivo)
			require.NoError(t, err)

			assert.Empty(t, resultado.Partidas)
			require.Len(t, resultado.Advertencias, 1)
			assert.Contains(t, resultado.Advertencias[0], tc.wantContains)
		})
	}
}

func TestParsearExcel_CodigoDuplicadoUltimaAparicionGana(t *testing.T) {
	parser := NewCronogramaParser()

	archivo := buildWorkbook(t, []filaCronograma{
		{"INT-001", "01.01", "Primera aparicion", "und", 10, 100, 1000},
		{"INT-002", "01.02", "Otra partida", "und", 5, 200, 1000},
		{"INT-003", "01.01", "Segunda aparicion", "und", 12, 100, 1200},
	})

	resultado, err := parser.ParsearExcel(archivo)
	require.NoError(t, err)
	require.Len(t, resultado.Partidas, 2)

	// The duplicate keeps its original position but carries the last values
	assert.Equal(t, "01.01", resultado.Partidas[0].CodigoPartida)
	assert.Equal(t, "Segunda aparicion", resultado.Partidas[0].Descripcion)
	assert.Equal(t, 1200.0, resultado.Partidas[0].PrecioTotal)

	require.Len(t, resultado.Advertencias, 1)
	assert.Contains(t, resultado.Advertencias[0], "duplicado")
}

func TestParsearExcel_ArchivoInvalido(t *testing.T) {
	parser := NewCronogramaParser()

	_, err := parser.ParsearExcel([]byte("esto no es un archivo xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error parseando Excel")
}
