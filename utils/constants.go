package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds (86400 seconds = 24 hours)
	AccessTokenTTLSeconds = 86400

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour

	// ComparisonSessionTTL is the default time-to-live for pending schedule
	// comparison sessions (2 hours)
	ComparisonSessionTTL = 2 * time.Hour
)

// CORS and security constants
// Pagination defaults
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Budget comparison constants
const (
	// BalanceTolerance is the maximum absolute difference (in soles) between
	// reductions and additions for a version to count as balanced
	BalanceTolerance = 0.01

	CurrencySymbol = "S/"
)

// Work-item progress thresholds, in percentage points of physical vs
// scheduled progress deviation
const (
	UmbralAtencion = 3.0
	UmbralCritica  = 5.0
)

// Executive risk score weights. The four components sum to 1.
const (
	PesoRiesgoAvance       = 0.40
	PesoRiesgoCriticas     = 0.30
	PesoRiesgoPlazo        = 0.20
	PesoRiesgoModificacion = 0.10

	// Risk level cutoffs over the 0-10 composite score
	ScoreRiesgoCritico = 8.0
	ScoreRiesgoAlto    = 6.0
	ScoreRiesgoMedio   = 4.0
)
