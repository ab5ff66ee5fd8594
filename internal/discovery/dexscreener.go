package discovery

import (
	"context"
	"hash/fnv"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"tokenwatch/internal/client/dexscreener"
	"tokenwatch/internal/config"
	"tokenwatch/internal/ratelimit"
	"tokenwatch/internal/token"
)

const (
	limiterName      = "dexscreener"
	pairsPerQueryCap = 15
)

// DexscreenerSource pulls candidate pairs from the chain-wide listing plus a
// rotating sample of trending search queries. The rotation is seeded from the
// wall-clock minute and the chain so consecutive cycles see different slices
// of the query pool, the way a manual screener session would.
type DexscreenerSource struct {
	Client  *dexscreener.Client
	Limiter *ratelimit.Limiter
	Logger  *zap.Logger
	Config  config.ScanConfig

	mu        sync.Mutex
	lastFetch *time.Time
	lastError *string
	status    string
}

func (s *DexscreenerSource) Name() string { return "dexscreener" }

func (s *DexscreenerSource) Health() HealthStatus {
	if s == nil {
		return HealthStatus{Status: "unknown"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	status := s.status
	if strings.TrimSpace(status) == "" {
		status = "unknown"
	}
	return HealthStatus{
		Status:      status,
		LastFetchAt: s.lastFetch,
		LastError:   s.lastError,
	}
}

func (s *DexscreenerSource) Fetch(ctx context.Context, chain token.Chain) ([]dexscreener.Pair, error) {
	now := time.Now().UTC()
	maxPairs := s.Config.MaxPairsPerChain
	if maxPairs <= 0 {
		maxPairs = 100
	}

	seen := make(map[string]struct{})
	var pairs []dexscreener.Pair
	var lastErr error

	keep := func(pair dexscreener.Pair) bool {
		if pair.ChainID != string(chain) {
			return false
		}
		addr := pair.BaseToken.Address
		if addr == "" {
			// Malformed records still count; the normalizer rejects them
			// with a reason instead of dropping them silently here.
			return true
		}
		if _, dup := seen[addr]; dup {
			return false
		}
		seen[addr] = struct{}{}
		return true
	}

	// Chain-wide listing first.
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	listed, err := s.Client.PairsByChain(ctx, string(chain))
	if err != nil {
		lastErr = err
		s.logDebug("chain endpoint fetch failed", chain, err)
	}
	for _, pair := range listed {
		if len(pairs) >= maxPairs {
			break
		}
		if keep(pair) {
			pairs = append(pairs, pair)
		}
	}

	// Rotating search queries for variety beyond the front page.
	for _, q := range s.rotatedQueries(chain, now) {
		if err := s.wait(ctx); err != nil {
			return pairs, err
		}
		found, err := s.Client.Search(ctx, q)
		if err != nil {
			lastErr = err
			s.logDebug("search fetch failed", chain, err)
			continue
		}
		added := 0
		for _, pair := range found {
			if added >= pairsPerQueryCap {
				break
			}
			if keep(pair) {
				pairs = append(pairs, pair)
				added++
			}
		}
	}

	// Last resort: search the chain name itself.
	if len(pairs) == 0 {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		found, err := s.Client.Search(ctx, string(chain))
		if err != nil {
			lastErr = err
		}
		for _, pair := range found {
			if keep(pair) {
				pairs = append(pairs, pair)
			}
		}
	}

	if len(pairs) == 0 && lastErr != nil {
		s.setHealth(now, "down", strPtr(lastErr.Error()))
		return nil, lastErr
	}
	s.setHealth(now, "healthy", nil)
	return pairs, nil
}

// rotatedQueries picks a per-minute, per-chain deterministic sample of the
// configured query pool.
func (s *DexscreenerSource) rotatedQueries(chain token.Chain, now time.Time) []string {
	pool := s.Config.SearchQueries
	if len(pool) == 0 {
		return nil
	}
	n := s.Config.QueriesPerScan
	if n <= 0 || n > len(pool) {
		n = len(pool)
	}
	h := fnv.New32a()
	h.Write([]byte(chain))
	seed := now.Unix()/60 + int64(h.Sum32())
	r := rand.New(rand.NewSource(seed))
	picked := make([]string, 0, n)
	for _, idx := range r.Perm(len(pool))[:n] {
		picked = append(picked, pool[idx])
	}
	return picked
}

func (s *DexscreenerSource) wait(ctx context.Context) error {
	if s.Limiter == nil {
		return ctx.Err()
	}
	return s.Limiter.Wait(ctx, limiterName)
}

func (s *DexscreenerSource) logDebug(msg string, chain token.Chain, err error) {
	if s.Logger == nil {
		return
	}
	s.Logger.Debug(msg, zap.String("chain", string(chain)), zap.Error(err))
}

func (s *DexscreenerSource) setHealth(ts time.Time, status string, errStr *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFetch = &ts
	s.status = status
	s.lastError = errStr
}

func strPtr(s string) *string { return &s }
