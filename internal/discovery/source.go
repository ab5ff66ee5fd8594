package discovery

import (
	"context"
	"time"

	"tokenwatch/internal/client/dexscreener"
	"tokenwatch/internal/token"
)

// Source produces raw market records for one chain per scan cycle. A fetch
// failure means "zero records this cycle for that chain", never a pipeline
// abort.
type Source interface {
	Name() string
	Fetch(ctx context.Context, chain token.Chain) ([]dexscreener.Pair, error)
	Health() HealthStatus
}

type HealthStatus struct {
	Status      string     `json:"status"`
	LastFetchAt *time.Time `json:"last_fetch_at,omitempty"`
	LastError   *string    `json:"last_error,omitempty"`
}
