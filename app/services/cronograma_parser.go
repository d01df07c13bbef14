package services

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/nemaec/obra-erp/models"
	"github.com/xuri/excelize/v2"
)

// Spreadsheet layout shared by the schedule templates: header on row 1,
// data from row 2, fixed columns
const (
	filaInicioDatos = 2

	colCodigoInterno  = 1 // column B
	colCodigoPartida  = 3 // column D
	colDescripcion    = 4 // column E
	colUnidad         = 5 // column F
	colMetrado        = 6 // column G
	colPrecioUnitario = 7 // column H
	colPrecioTotal    = 8 // column I
)

// ParseResultado carries the parsed rows plus the non-fatal issues found
// along the way
type ParseResultado struct {
	Partidas     []PartidaRecord `json:"partidas"`
	Advertencias []string        `json:"advertencias"`
}

// CronogramaParser reads schedule spreadsheets into partida records
type CronogramaParser struct{}

// NewCronogramaParser creates a schedule spreadsheet parser
func NewCronogramaParser() *CronogramaParser {
	return &CronogramaParser{}
}

// ParsearExcel extracts the work items from the first sheet of an XLSX
// file. Rows missing the essential fields are skipped, malformed rows and
// duplicated codes are reported as warnings, and on a duplicate the last
// occurrence wins.
func (p *CronogramaParser) ParsearExcel(archivo []byte) (*ParseResultado, error) {
	f, err := excelize.OpenReader(bytes.NewReader(archivo))
	if err != nil {
		return nil, fmt.Errorf("error parseando Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("error parseando Excel: el archivo no tiene hojas")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("error parseando Excel: %w", err)
	}

	resultado := &ParseResultado{}
	porCodigo := make(map[string]int)

	for i, row := range rows {
		filaExcel := i + 1
		if filaExcel < filaInicioDatos {
			continue
		}

		codigoInterno := celda(row, colCodigoInterno)
		codigoPartida := celda(row, colCodigoPartida)
		descripcion := celda(row, colDescripcion)

		// Rows without the essential fields are spacing or section rows
		if codigoInterno == "" || codigoPartida == "" || descripcion == "" {
			continue
		}

		if !models.ValidarCodigoPartida(codigoPartida) {
			resultado.Advertencias = append(resultado.Advertencias,
				fmt.Sprintf("fila %d: codigo de partida invalido %q, fila omitida", filaExcel, codigoPartida))
			continue
		}

		metrado, err := celdaNumerica(row, colMetrado)
		if err != nil {
			resultado.Advertencias = append(resultado.Advertencias,
				fmt.Sprintf("fila %d: metrado invalido (%v), fila omitida", filaExcel, err))
			continue
		}
		precioUnitario, err := celdaNumerica(row, colPrecioUnitario)
		if err != nil {
			resultado.Advertencias = append(resultado.Advertencias,
				fmt.Sprintf("fila %d: precio unitario invalido (%v), fila omitida", filaExcel, err))
			continue
		}
		precioTotal, err := celdaNumerica(row, colPrecioTotal)
		if err != nil {
			resultado.Advertencias = append(resultado.Advertencias,
				fmt.Sprintf("fila %d: precio total invalido (%v), fila omitida", filaExcel, err))
			continue
		}

		if metrado < 0 || precioUnitario < 0 || precioTotal < 0 {
			resultado.Advertencias = append(resultado.Advertencias,
				fmt.Sprintf("fila %d: montos negativos en la partida %s, fila omitida", filaExcel, codigoPartida))
			continue
		}

		unidad := celda(row, colUnidad)
		if unidad == "" {
			unidad = "UND"
		}

		record := PartidaRecord{
			CodigoInterno:  codigoInterno,
			CodigoPartida:  codigoPartida,
			Descripcion:    descripcion,
			Unidad:         unidad,
			Metrado:        metrado,
			PrecioUnitario: precioUnitario,
			PrecioTotal:    precioTotal,
			FilaExcel:      filaExcel,
		}

		if idx, ok := porCodigo[codigoPartida]; ok {
			resultado.Advertencias = append(resultado.Advertencias,
				fmt.Sprintf("fila %d: codigo de partida %s duplicado, se usa la ultima aparicion", filaExcel, codigoPartida))
			resultado.Partidas[idx] = record
			continue
		}

		porCodigo[codigoPartida] = len(resultado.Partidas)
		resultado.Partidas = append(resultado.Partidas, record)
	}

	return resultado, nil
}

// celda returns the trimmed cell at the zero-based column, tolerating short
// rows
func celda(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// celdaNumerica parses a numeric cell, treating blank as zero
func celdaNumerica(row []string, col int) (float64, error) {
	raw := celda(row, col)
	if raw == "" {
		return 0, nil
	}
	raw = strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%q no es un numero", raw)
	}
	return v, nil
}
