// Package services contains application services for parsing, comparing and
// exporting schedules
package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/utils"
)

// PartidaRecord is one parsed schedule row in the canonical shape used by
// the comparison engine
type PartidaRecord struct {
	CodigoInterno  string  `json:"codigo_interno"`
	CodigoPartida  string  `json:"codigo_partida"`
	Descripcion    string  `json:"descripcion"`
	Unidad         string  `json:"unidad"`
	Metrado        float64 `json:"metrado"`
	PrecioUnitario float64 `json:"precio_unitario"`
	PrecioTotal    float64 `json:"precio_total"`
	FilaExcel      int     `json:"fila_excel"`
}

// CambioPartida describes one work item present in both versions whose
// compared fields differ
type CambioPartida struct {
	CodigoPartida     string        `json:"codigo_partida"`
	Original          PartidaRecord `json:"original"`
	Nueva             PartidaRecord `json:"nueva"`
	CamposModificados []string      `json:"campos_modificados"`
}

// ComparacionResultado is the full outcome of comparing two schedule
// versions
type ComparacionResultado struct {
	PartidasEliminadas  []PartidaRecord       `json:"partidas_eliminadas"`
	PartidasNuevas      []PartidaRecord       `json:"partidas_nuevas"`
	PartidasModificadas []CambioPartida       `json:"partidas_modificadas"`
	ImpactoReducciones  float64               `json:"impacto_reducciones"`
	ImpactoAdicionales  float64               `json:"impacto_adicionales"`
	BalancePreliminar   float64               `json:"balance_preliminar"`
	Modificaciones      []models.Modificacion `json:"modificaciones"`
}

// ValidacionEquilibrio is the balance check over a set of modifications
type ValidacionEquilibrio struct {
	EstaEquilibrado  bool     `json:"esta_equilibrado"`
	TotalReducciones float64  `json:"total_reducciones"`
	TotalAdicionales float64  `json:"total_adicionales"`
	Balance          float64  `json:"balance"`
	Alertas          []string `json:"alertas"`
}

// ComparacionService detects and classifies changes between two schedule
// versions. It is stateless and safe for concurrent use.
type ComparacionService struct {
	umbral float64
}

// NewComparacionService creates a comparison service with the standard
// tolerance
func NewComparacionService() *ComparacionService {
	return &ComparacionService{umbral: utils.BalanceTolerance}
}

// camposComparados are the fields whose change marks a work item as
// modified
var camposComparados = []string{"descripcion", "unidad", "metrado", "precio_unitario", "precio_total"}

// Comparar computes the delta between the original and the new schedule.
// Matching is by work item code. The same inputs always produce the same
// result.
func (s *ComparacionService) Comparar(originales, nuevas []PartidaRecord) *ComparacionResultado {
	mapaOriginales := make(map[string]PartidaRecord, len(originales))
	for _, p := range originales {
		mapaOriginales[p.CodigoPartida] = p
	}
	mapaNuevas := make(map[string]PartidaRecord, len(nuevas))
	for _, p := range nuevas {
		mapaNuevas[p.CodigoPartida] = p
	}

	resultado := &ComparacionResultado{}

	// Removed: in the original but not in the new version. Iterate the
	// slice, not the map, so the output order is stable.
	for _, p := range originales {
		if _, ok := mapaNuevas[p.CodigoPartida]; !ok {
			resultado.PartidasEliminadas = append(resultado.PartidasEliminadas, p)
		}
	}

	// Added and modified: walk the new version in order
	for _, p := range nuevas {
		original, ok := mapaOriginales[p.CodigoPartida]
		if !ok {
			resultado.PartidasNuevas = append(resultado.PartidasNuevas, p)
			continue
		}
		if campos := s.camposModificados(original, p); len(campos) > 0 {
			resultado.PartidasModificadas = append(resultado.PartidasModificadas, CambioPartida{
				CodigoPartida:     p.CodigoPartida,
				Original:          original,
				Nueva:             p,
				CamposModificados: campos,
			})
		}
	}

	for _, p := range resultado.PartidasEliminadas {
		resultado.ImpactoReducciones += p.PrecioTotal
	}
	for _, p := range resultado.PartidasNuevas {
		resultado.ImpactoAdicionales += p.PrecioTotal
	}
	var impactoModificadas float64
	for _, c := range resultado.PartidasModificadas {
		impactoModificadas += c.Nueva.PrecioTotal - c.Original.PrecioTotal
	}
	resultado.BalancePreliminar = resultado.ImpactoAdicionales - resultado.ImpactoReducciones + impactoModificadas

	resultado.Modificaciones = s.generarModificaciones(resultado)

	return resultado
}

// generarModificaciones emits one classified modification per detected
// change: reductions first, then additions, then in-place changes.
func (s *ComparacionService) generarModificaciones(r *ComparacionResultado) []models.Modificacion {
	modificaciones := make([]models.Modificacion, 0,
		len(r.PartidasEliminadas)+len(r.PartidasNuevas)+len(r.PartidasModificadas))

	for _, p := range r.PartidasEliminadas {
		descripcion := p.Descripcion
		modificaciones = append(modificaciones, models.Modificacion{
			Tipo:                models.TipoReduccionPrestaciones,
			Estado:              models.ModificacionDetectada,
			CodigoPartida:       p.CodigoPartida,
			DescripcionAnterior: &descripcion,
			MontoAnterior:       p.PrecioTotal,
			MontoNuevo:          0,
			ImpactoPresupuestal: -p.PrecioTotal,
		})
	}

	for _, p := range r.PartidasNuevas {
		descripcion := p.Descripcion
		modificaciones = append(modificaciones, models.Modificacion{
			Tipo:                models.TipoAdicionalIndependiente,
			Estado:              models.ModificacionDetectada,
			CodigoPartida:       p.CodigoPartida,
			DescripcionNueva:    &descripcion,
			MontoAnterior:       0,
			MontoNuevo:          p.PrecioTotal,
			ImpactoPresupuestal: p.PrecioTotal,
		})
	}

	for _, c := range r.PartidasModificadas {
		descripcionAnterior := c.Original.Descripcion
		descripcionNueva := c.Nueva.Descripcion
		modificaciones = append(modificaciones, models.Modificacion{
			Tipo:                models.TipoDeductivoVinculante,
			Estado:              models.ModificacionDetectada,
			CodigoPartida:       c.CodigoPartida,
			DescripcionAnterior: &descripcionAnterior,
			DescripcionNueva:    &descripcionNueva,
			MontoAnterior:       c.Original.PrecioTotal,
			MontoNuevo:          c.Nueva.PrecioTotal,
			ImpactoPresupuestal: c.Nueva.PrecioTotal - c.Original.PrecioTotal,
			CamposModificados:   c.CamposModificados,
		})
	}

	return modificaciones
}

// camposModificados returns the compared fields that differ between the two
// records. Numeric fields compare against the tolerance, text fields
// compare exactly.
func (s *ComparacionService) camposModificados(original, nueva PartidaRecord) []string {
	var campos []string
	for _, campo := range camposComparados {
		switch campo {
		case "descripcion":
			if original.Descripcion != nueva.Descripcion {
				campos = append(campos, campo)
			}
		case "unidad":
			if original.Unidad != nueva.Unidad {
				campos = append(campos, campo)
			}
		case "metrado":
			if math.Abs(original.Metrado-nueva.Metrado) > s.umbral {
				campos = append(campos, campo)
			}
		case "precio_unitario":
			if math.Abs(original.PrecioUnitario-nueva.PrecioUnitario) > s.umbral {
				campos = append(campos, campo)
			}
		case "precio_total":
			if math.Abs(original.PrecioTotal-nueva.PrecioTotal) > s.umbral {
				campos = append(campos, campo)
			}
		}
	}
	return campos
}

// ValidarEquilibrio checks that the modifications keep the budget balanced
// and produces the alerts shown to the monitor.
func (s *ComparacionService) ValidarEquilibrio(modificaciones []models.Modificacion) ValidacionEquilibrio {
	var totalReducciones, totalAdicionales float64
	for i := range modificaciones {
		impacto := modificaciones[i].CalcularImpacto()
		if impacto < 0 {
			totalReducciones += -impacto
		} else {
			totalAdicionales += impacto
		}
	}

	balance := totalAdicionales - totalReducciones
	validacion := ValidacionEquilibrio{
		EstaEquilibrado:  math.Abs(balance) < s.umbral,
		TotalReducciones: totalReducciones,
		TotalAdicionales: totalAdicionales,
		Balance:          balance,
	}

	switch {
	case balance > s.umbral:
		validacion.Alertas = append(validacion.Alertas,
			fmt.Sprintf("Sobrecosto de %s", utils.FormatSoles(balance)),
			"Necesitas aumentar reducciones o disminuir adicionales")
	case balance < -s.umbral:
		validacion.Alertas = append(validacion.Alertas,
			fmt.Sprintf("Remanente de %s", utils.FormatSoles(-balance)),
			"Puedes agregar mas adicionales o reducir menos partidas")
	default:
		validacion.Alertas = append(validacion.Alertas, "Balance presupuestal equilibrado")
	}

	return validacion
}

// SugerirEquilibrio proposes concrete adjustments to reach balance. For an
// overrun it greedily picks the largest additions whose removal covers the
// excess; for a surplus it reports the available amount.
func (s *ComparacionService) SugerirEquilibrio(modificaciones []models.Modificacion) []string {
	validacion := s.ValidarEquilibrio(modificaciones)
	if validacion.EstaEquilibrado {
		return []string{"El presupuesto ya esta equilibrado"}
	}

	balance := validacion.Balance
	var sugerencias []string

	if balance > 0 {
		var reducciones, adicionales []models.Modificacion
		for _, m := range modificaciones {
			switch m.Tipo {
			case models.TipoReduccionPrestaciones:
				reducciones = append(reducciones, m)
			case models.TipoAdicionalIndependiente:
				adicionales = append(adicionales, m)
			}
		}

		if len(reducciones) > 0 {
			sugerencias = append(sugerencias,
				fmt.Sprintf("Considera eliminar partidas adicionales por %s", utils.FormatSoles(balance)))
		}
		if len(adicionales) > 0 {
			sort.SliceStable(adicionales, func(i, j int) bool {
				return adicionales[i].MontoNuevo > adicionales[j].MontoNuevo
			})
			var acumulado float64
			var codigos []string
			for _, adic := range adicionales {
				if acumulado >= balance {
					break
				}
				codigos = append(codigos, adic.CodigoPartida)
				acumulado += adic.MontoNuevo
			}
			if len(codigos) > 0 {
				sugerencias = append(sugerencias,
					fmt.Sprintf("Considera eliminar estas partidas adicionales: %s", strings.Join(codigos, ", ")))
			}
		}
	} else {
		sugerencias = append(sugerencias,
			fmt.Sprintf("Tienes %s disponibles para agregar mas partidas", utils.FormatSoles(-balance)),
			"Revisa si hay otras mejoras necesarias que puedas incluir")
	}

	return sugerencias
}
