package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns      = 100
	DBMaxIdleConns      = 10
	DBConnMaxLifetime   = 1 * time.Hour
	DBMaxIdleTime       = 10 * time.Minute
	DBBusyTimeoutMillis = 5000
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	MaxApplyRetries      = 3
	DefaultRetryBaseWait = 20 * time.Millisecond
)

const (
	PlacementMatches        = 10
	DefaultLeaderboardLimit = 100
	MaxLeaderboardLimit     = 500
	DefaultHistoryLimit     = 50
	MaxRequestBodyBytes     = 1 << 20
)
