package services

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/utils"
	"github.com/xuri/excelize/v2"
)

// ExportService renders approved schedule versions as downloadable files
type ExportService interface {
	VersionXLSX(version *models.CronogramaVersion, partidas []models.Partida) ([]byte, error)
	VersionPDF(version *models.CronogramaVersion, partidas []models.Partida) ([]byte, error)
}

type exportServiceImpl struct{}

func NewExportService() ExportService {
	return &exportServiceImpl{}
}

// VersionXLSX renders a version as a workbook with a summary sheet, the
// full partida listing and the budget modifications.
func (s *exportServiceImpl) VersionXLSX(version *models.CronogramaVersion, partidas []models.Partida) ([]byte, error) {
	f := excelize.NewFile()
	resumenSheet := "resumen"
	partidasSheet := "partidas"
	modificacionesSheet := "modificaciones"
	f.SetSheetName("Sheet1", resumenSheet)
	if _, err := f.NewSheet(partidasSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(modificacionesSheet); err != nil {
		return nil, err
	}

	comisaria := ""
	if version.Comisaria != nil {
		comisaria = fmt.Sprintf("%s %s", version.Comisaria.Codigo, version.Comisaria.Nombre)
	}

	_ = f.SetCellValue(resumenSheet, "A1", "Cronograma de Obra")
	_ = f.SetCellValue(resumenSheet, "A3", "Comisaria")
	_ = f.SetCellValue(resumenSheet, "B3", comisaria)
	_ = f.SetCellValue(resumenSheet, "A4", "Version")
	_ = f.SetCellValue(resumenSheet, "B4", version.NumeroVersion)
	_ = f.SetCellValue(resumenSheet, "A5", "Nombre")
	_ = f.SetCellValue(resumenSheet, "B5", version.NombreVersion)
	_ = f.SetCellValue(resumenSheet, "A6", "Estado")
	_ = f.SetCellValue(resumenSheet, "B6", version.Estado.String())
	_ = f.SetCellValue(resumenSheet, "A7", "Presupuesto Total")
	_ = f.SetCellValue(resumenSheet, "B7", version.TotalPresupuesto)
	_ = f.SetCellValue(resumenSheet, "A8", "Total Reducciones")
	_ = f.SetCellValue(resumenSheet, "B8", version.TotalReducciones)
	_ = f.SetCellValue(resumenSheet, "A9", "Total Adicionales")
	_ = f.SetCellValue(resumenSheet, "B9", version.TotalAdicionales)
	_ = f.SetCellValue(resumenSheet, "A10", "Balance Presupuestal")
	_ = f.SetCellValue(resumenSheet, "B10", version.BalancePresupuestal)
	if version.MonitorResponsable != nil {
		_ = f.SetCellValue(resumenSheet, "A11", "Monitor")
		_ = f.SetCellValue(resumenSheet, "B11", *version.MonitorResponsable)
	}
	if version.AprobadaPor != nil {
		_ = f.SetCellValue(resumenSheet, "A12", "Aprobada por")
		_ = f.SetCellValue(resumenSheet, "B12", *version.AprobadaPor)
	}

	_ = f.SetCellValue(partidasSheet, "A1", "Codigo")
	_ = f.SetCellValue(partidasSheet, "B1", "Descripcion")
	_ = f.SetCellValue(partidasSheet, "C1", "Unidad")
	_ = f.SetCellValue(partidasSheet, "D1", "Metrado")
	_ = f.SetCellValue(partidasSheet, "E1", "Precio Unitario")
	_ = f.SetCellValue(partidasSheet, "F1", "Precio Total")
	for i, p := range partidas {
		row := i + 2
		_ = f.SetCellValue(partidasSheet, fmt.Sprintf("A%d", row), p.Codigo)
		_ = f.SetCellValue(partidasSheet, fmt.Sprintf("B%d", row), p.Descripcion)
		_ = f.SetCellValue(partidasSheet, fmt.Sprintf("C%d", row), p.Unidad)
		_ = f.SetCellValue(partidasSheet, fmt.Sprintf("D%d", row), p.Metrado)
		_ = f.SetCellValue(partidasSheet, fmt.Sprintf("E%d", row), p.PrecioUnitario)
		_ = f.SetCellValue(partidasSheet, fmt.Sprintf("F%d", row), p.PrecioTotal)
	}

	_ = f.SetCellValue(modificacionesSheet, "A1", "Codigo Partida")
	_ = f.SetCellValue(modificacionesSheet, "B1", "Tipo")
	_ = f.SetCellValue(modificacionesSheet, "C1", "Estado")
	_ = f.SetCellValue(modificacionesSheet, "D1", "Monto Anterior")
	_ = f.SetCellValue(modificacionesSheet, "E1", "Monto Nuevo")
	_ = f.SetCellValue(modificacionesSheet, "F1", "Impacto")
	_ = f.SetCellValue(modificacionesSheet, "G1", "Justificacion")
	for i, m := range version.Modificaciones {
		row := i + 2
		_ = f.SetCellValue(modificacionesSheet, fmt.Sprintf("A%d", row), m.CodigoPartida)
		_ = f.SetCellValue(modificacionesSheet, fmt.Sprintf("B%d", row), m.Tipo.String())
		_ = f.SetCellValue(modificacionesSheet, fmt.Sprintf("C%d", row), m.Estado.String())
		_ = f.SetCellValue(modificacionesSheet, fmt.Sprintf("D%d", row), m.MontoAnterior)
		_ = f.SetCellValue(modificacionesSheet, fmt.Sprintf("E%d", row), m.MontoNuevo)
		_ = f.SetCellValue(modificacionesSheet, fmt.Sprintf("F%d", row), m.ImpactoPresupuestal)
		if m.Justificacion != nil {
			_ = f.SetCellValue(modificacionesSheet, fmt.Sprintf("G%d", row), *m.Justificacion)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// VersionPDF renders a version summary with its modifications table
func (s *exportServiceImpl) VersionPDF(version *models.CronogramaVersion, partidas []models.Partida) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Cronograma de Obra")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	generado, err := utils.LimaNow()
	if err != nil {
		generado = utils.UTCNow()
	}
	pdf.Cell(0, 6, fmt.Sprintf("Generado: %s", generado.Format("02/01/2006 15:04")))
	pdf.Ln(5)
	if version.Comisaria != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Comisaria: %s %s", version.Comisaria.Codigo, version.Comisaria.Nombre))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Version: %d (%s)", version.NumeroVersion, version.NombreVersion))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Estado: %s", version.Estado))
	pdf.Ln(5)
	if version.MonitorResponsable != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Monitor: %s", *version.MonitorResponsable))
		pdf.Ln(5)
	}
	if version.AprobadaPor != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Aprobada por: %s", *version.AprobadaPor))
		pdf.Ln(5)
	}

	pdf.Ln(4)
	pdf.Cell(0, 6, fmt.Sprintf("Presupuesto total: %s", utils.FormatSoles(version.TotalPresupuesto)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Reducciones: %s", utils.FormatSoles(version.TotalReducciones)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Adicionales: %s", utils.FormatSoles(version.TotalAdicionales)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Balance: %s", utils.FormatSoles(version.BalancePresupuestal)))
	pdf.Ln(8)

	if len(version.Modificaciones) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(30, 6, "Partida", "1", 0, "C", false, 0, "")
		pdf.CellFormat(55, 6, "Tipo", "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, "Estado", "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, "Impacto", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, m := range version.Modificaciones {
			pdf.CellFormat(30, 6, m.CodigoPartida, "1", 0, "C", false, 0, "")
			pdf.CellFormat(55, 6, m.Tipo.String(), "1", 0, "L", false, 0, "")
			pdf.CellFormat(35, 6, m.Estado.String(), "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", m.ImpactoPresupuestal), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(25, 6, "Codigo", "1", 0, "C", false, 0, "")
	pdf.CellFormat(95, 6, "Descripcion", "1", 0, "C", false, 0, "")
	pdf.CellFormat(15, 6, "Und", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Metrado", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Total", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 8)
	for _, p := range partidas {
		desc := p.Descripcion
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		pdf.CellFormat(25, 6, p.Codigo, "1", 0, "C", false, 0, "")
		pdf.CellFormat(95, 6, desc, "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 6, p.Unidad, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%.2f", p.Metrado), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", p.PrecioTotal), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
