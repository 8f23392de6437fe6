package db

import "time"

// Drop log stages, recording where in the pipeline an article was rejected.
const (
	DropStageFingerprint = "fingerprint"
	DropStageClassify    = "classify"
)

// Database connection constants
const (
	// ConnectionRetrySleep is the sleep duration between connection retries
	ConnectionRetrySleep = 2 * time.Second
	// maxConnectionRetries is the number of retries for initial connection
	maxConnectionRetries = 10
)

// Database pool default constants
const (
	defaultMaxConns          int32         = 25
	defaultMinConns          int32         = 5
	defaultMaxConnIdleTime   time.Duration = 30 * time.Minute
	defaultMaxConnLifetime   time.Duration = time.Hour
	defaultHealthCheckPeriod time.Duration = time.Minute
)

// Intel listing constants
const (
	defaultIntelLimit = 50
	maxIntelLimit     = 200
)
