// Package utils provides utility functions for the application.
package utils

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// codigoComisariaRegexp matches station codes such as "COM-001"
var codigoComisariaRegexp = regexp.MustCompile(`^COM-\d{3}$`)

func ToPtr[T any](v T) *T {
	return &v
}

// ParseUUID parses a textual UUID
func ParseUUID(s string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID %q: %w", s, err)
	}
	return parsed, nil
}

// IsValidCodigoComisaria checks a station code against the COM-XXX format
func IsValidCodigoComisaria(codigo string) bool {
	return codigoComisariaRegexp.MatchString(codigo)
}

// FormatSoles renders an amount in Peruvian soles with two decimals,
// e.g. "S/ 1250.50".
func FormatSoles(v float64) string {
	return fmt.Sprintf("%s %.2f", CurrencySymbol, v)
}
