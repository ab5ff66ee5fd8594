package dedup

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"tokenwatch/internal/models"
	"tokenwatch/internal/repository"
	"tokenwatch/internal/token"
)

// Ledger remembers which tokens were alerted recently. A candidate is a
// duplicate when a record matches its address or its normalized name and
// that record is younger than the cooldown. Matching on name catches the
// common redeploy trick: same token, fresh address.
//
// Lookups are O(1) against two in-memory indexes; every Record is written
// through to the repository first, so a failed write never poisons the
// indexes and a restart can rebuild them with Load.
type Ledger struct {
	Cooldown time.Duration
	Repo     repository.Repository
	Logger   *zap.Logger

	mu     sync.Mutex
	byAddr map[string]*entry
	byName map[string]*entry
}

type entry struct {
	chain          token.Chain
	address        string
	normalizedName string
	lastAlertedAt  time.Time
}

func New(cooldown time.Duration, repo repository.Repository, logger *zap.Logger) *Ledger {
	return &Ledger{
		Cooldown: cooldown,
		Repo:     repo,
		Logger:   logger,
		byAddr:   map[string]*entry{},
		byName:   map[string]*entry{},
	}
}

// NormalizeName lowercases and collapses runs of whitespace so cosmetic
// renames ("My  Token" vs "my token") still collide.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// IsDuplicate reports whether an alert for this token would repeat one sent
// within the cooldown. Expired records simply stop matching; they are not
// removed here.
func (l *Ledger) IsDuplicate(chain token.Chain, address, name string, now time.Time) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if e := l.byAddr[addrKey(chain, address)]; e != nil && l.fresh(e, now) {
		return true
	}
	if norm := NormalizeName(name); norm != "" {
		if e := l.byName[norm]; e != nil && l.fresh(e, now) {
			return true
		}
	}
	return false
}

// Record marks the token as alerted at now, extending any matching
// cooldown. The repository write happens first: on failure the in-memory
// indexes stay untouched and the error is returned.
func (l *Ledger) Record(ctx context.Context, chain token.Chain, address, name string, now time.Time) error {
	if l == nil {
		return nil
	}
	norm := NormalizeName(name)
	if l.Repo != nil {
		err := l.Repo.UpsertLedgerEntry(ctx, &models.LedgerEntry{
			Chain:          string(chain),
			Address:        address,
			NormalizedName: norm,
			LastAlertedAt:  now,
		})
		if err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	key := addrKey(chain, address)
	e := l.byAddr[key]
	if e == nil {
		e = &entry{chain: chain, address: address}
		l.byAddr[key] = e
	}
	if e.normalizedName != norm && e.normalizedName != "" {
		if cur := l.byName[e.normalizedName]; cur == e {
			delete(l.byName, e.normalizedName)
		}
	}
	e.normalizedName = norm
	e.lastAlertedAt = now
	if norm != "" {
		// Latest record owns the name; redeploys inherit the cooldown.
		l.byName[norm] = e
	}
	return nil
}

// Load rebuilds the indexes from the repository. When several rows share a
// normalized name the newest one owns the name index.
func (l *Ledger) Load(ctx context.Context) error {
	if l == nil || l.Repo == nil {
		return nil
	}
	entries, err := l.Repo.ListLedgerEntries(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byAddr = make(map[string]*entry, len(entries))
	l.byName = make(map[string]*entry, len(entries))
	for _, row := range entries {
		e := &entry{
			chain:          token.Chain(row.Chain),
			address:        row.Address,
			normalizedName: row.NormalizedName,
			lastAlertedAt:  row.LastAlertedAt,
		}
		l.byAddr[addrKey(e.chain, e.address)] = e
		if e.normalizedName == "" {
			continue
		}
		if cur := l.byName[e.normalizedName]; cur == nil || e.lastAlertedAt.After(cur.lastAlertedAt) {
			l.byName[e.normalizedName] = e
		}
	}
	l.logDebug("dedup: ledger loaded", zap.Int("entries", len(entries)))
	return nil
}

// PurgeStale drops records whose cooldown expired before now, from the
// repository and from memory. Returns the number of rows removed.
func (l *Ledger) PurgeStale(ctx context.Context, now time.Time) (int64, error) {
	if l == nil {
		return 0, nil
	}
	cutoff := now.Add(-l.Cooldown)
	var removed int64
	if l.Repo != nil {
		n, err := l.Repo.DeleteLedgerEntriesBefore(ctx, cutoff)
		if err != nil {
			return 0, err
		}
		removed = n
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.byAddr {
		if e.lastAlertedAt.Before(cutoff) {
			delete(l.byAddr, key)
			if cur := l.byName[e.normalizedName]; cur == e {
				delete(l.byName, e.normalizedName)
			}
		}
	}
	if removed > 0 {
		l.logDebug("dedup: purged stale records", zap.Int64("removed", removed))
	}
	return removed, nil
}

// Size returns the number of tracked addresses, for the status endpoint.
func (l *Ledger) Size() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byAddr)
}

func (l *Ledger) fresh(e *entry, now time.Time) bool {
	return now.Sub(e.lastAlertedAt) < l.Cooldown
}

func (l *Ledger) logDebug(msg string, fields ...zap.Field) {
	if l.Logger == nil {
		return
	}
	l.Logger.Debug(msg, fields...)
}

func addrKey(chain token.Chain, address string) string {
	return string(chain) + ":" + address
}
