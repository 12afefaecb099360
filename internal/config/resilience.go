package config

import (
	"time"

	"sheets_obs_sync/internal/retry"
)

// ResilienceConfig holds the retry policies used at startup. Poll cycles are
// never retried; a failed cycle is skipped.
type ResilienceConfig struct {
	OBSConnect retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	OBSConnect: retry.Config{
		Operation:  "connect to OBS",
		MaxRetries: 4,
		BaseDelay:  1 * time.Second,
		MaxDelay:   15 * time.Second,
		Timeout:    5 * time.Second,
	},
}

// InfiniteResilienceConfig keeps dialing OBS until it comes up or the run is cancelled.
var InfiniteResilienceConfig = ResilienceConfig{
	OBSConnect: retry.Config{
		Operation:     "connect to OBS",
		BaseDelay:     1 * time.Second,
		MaxDelay:      30 * time.Second,
		Timeout:       5 * time.Second,
		InfiniteRetry: true,
	},
}
