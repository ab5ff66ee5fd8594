package pacer

import (
	"container/heap"
	"sync"
	"time"

	"go.uber.org/zap"

	"tokenwatch/internal/config"
	"tokenwatch/internal/token"
)

// Candidate is one alert waiting for a send slot. Expiry bounds how long it
// may wait; a candidate popped after its expiry is dropped, not sent.
type Candidate struct {
	Snapshot      token.Snapshot
	Tier          token.Tier
	Flags         []string
	RiskScore     float64
	TaxPercentage float64

	// CheckID points at the token_checks row written when the candidate
	// passed evaluation, so the send path can mark it alerted.
	CheckID uint64

	EnqueuedAt time.Time
	Expiry     time.Time

	seq uint64
}

// Pacer smooths bursty candidate arrivals into a steady alert rate. Admitted
// candidates wait in a priority queue (higher tier first, oldest first within
// a tier); Tick releases at most the remaining budget of the trailing
// 60-second window. The window slides rather than resetting on minute
// boundaries, so the rate cap holds over any 60 seconds, not just aligned
// ones. Under-delivery is fine, over-delivery never happens.
type Pacer struct {
	Target   int
	MaxQueue int
	Logger   *zap.Logger

	// IsDuplicate re-checks a popped candidate against the dedup ledger.
	// A queued token may have been alerted via a fresher candidate while
	// waiting; such pops are discarded without consuming budget.
	IsDuplicate func(c Candidate, now time.Time) bool

	mu      sync.Mutex
	queue   candidateHeap
	sent    []time.Time
	nextSeq uint64
}

func New(cfg config.PacerConfig, logger *zap.Logger) *Pacer {
	return &Pacer{
		Target:   cfg.TargetPerMinute,
		MaxQueue: cfg.MaxQueue,
		Logger:   logger,
	}
}

// Admit enqueues a candidate and reports whether it was kept. When the
// queue is full the worst queued candidate makes room for a better arrival;
// an arrival no better than the worst is refused.
func (p *Pacer) Admit(c Candidate) bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextSeq++
	c.seq = p.nextSeq
	if c.EnqueuedAt.IsZero() {
		c.EnqueuedAt = time.Now()
	}

	if p.MaxQueue > 0 && p.queue.Len() >= p.MaxQueue {
		worst := p.worstIndex()
		if worst < 0 || !less(c, p.queue[worst]) {
			p.logDebug("pacer: queue full, candidate refused",
				zap.String("token", c.Snapshot.Key()),
				zap.String("tier", string(c.Tier)))
			return false
		}
		evicted := p.queue[worst]
		heap.Remove(&p.queue, worst)
		p.logDebug("pacer: queue full, evicted worst",
			zap.String("evicted", evicted.Snapshot.Key()),
			zap.String("admitted", c.Snapshot.Key()))
	}
	heap.Push(&p.queue, c)
	return true
}

// Tick releases up to the remaining window budget. The batch is selected and
// its window slots reserved under the lock, then sent outside it, so a slow
// transport cannot stall Admit or Stats for the duration of a flush.
// Reserving before sending keeps over-delivery impossible even with a
// concurrent Tick. On send failure the failed candidate and everything still
// unsent are requeued at their original positions, their reserved slots
// refunded, and the error returned with whatever was already released, so a
// retried cycle cannot double-alert.
func (p *Pacer) Tick(now time.Time, send func(Candidate) error) ([]Candidate, error) {
	if p == nil {
		return nil, nil
	}
	p.mu.Lock()
	p.prune(now)
	budget := p.Target - len(p.sent)

	var batch []Candidate
	for budget > 0 && p.queue.Len() > 0 {
		c := heap.Pop(&p.queue).(Candidate)
		if !c.Expiry.IsZero() && now.After(c.Expiry) {
			p.logDebug("pacer: dropped expired candidate",
				zap.String("token", c.Snapshot.Key()),
				zap.Time("expiry", c.Expiry))
			continue
		}
		if p.IsDuplicate != nil && p.IsDuplicate(c, now) {
			p.logDebug("pacer: dropped duplicate at release",
				zap.String("token", c.Snapshot.Key()))
			continue
		}
		batch = append(batch, c)
		p.sent = append(p.sent, now)
		budget--
	}
	p.mu.Unlock()

	var released []Candidate
	for i, c := range batch {
		if err := send(c); err != nil {
			p.refund(batch[i:])
			return released, err
		}
		released = append(released, c)
	}
	return released, nil
}

// refund requeues unsent candidates and gives back their reserved window
// slots. Slots inside the window are fungible, so trimming the newest
// entries restores exactly the budget the unsent batch had claimed.
func (p *Pacer) refund(unsent []Candidate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(unsent); n <= len(p.sent) {
		p.sent = p.sent[:len(p.sent)-n]
	} else {
		p.sent = p.sent[:0]
	}
	for _, c := range unsent {
		heap.Push(&p.queue, c)
	}
}

// Seed pre-fills the send window, used at startup to rebuild pacing state
// from the persisted alert history so a restart cannot burst past the cap.
func (p *Pacer) Seed(times []time.Time) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, times...)
}

// Stats describes the pacer for the status endpoint.
type Stats struct {
	QueueDepth      int `json:"queue_depth"`
	SentLastMinute  int `json:"sent_last_minute"`
	TargetPerMinute int `json:"target_per_minute"`
	MaxQueue        int `json:"max_queue"`
}

func (p *Pacer) Stats(now time.Time) Stats {
	if p == nil {
		return Stats{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prune(now)
	return Stats{
		QueueDepth:      p.queue.Len(),
		SentLastMinute:  len(p.sent),
		TargetPerMinute: p.Target,
		MaxQueue:        p.MaxQueue,
	}
}

// prune drops send timestamps older than the trailing window. Caller holds
// the lock.
func (p *Pacer) prune(now time.Time) {
	cutoff := now.Add(-time.Minute)
	kept := p.sent[:0]
	for _, ts := range p.sent {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	p.sent = kept
}

// worstIndex scans the heap array for the lowest-priority candidate. The
// queue is small and bounded, a linear scan is fine. Caller holds the lock.
func (p *Pacer) worstIndex() int {
	worst := -1
	for i := range p.queue {
		if worst < 0 || less(p.queue[worst], p.queue[i]) {
			worst = i
		}
	}
	return worst
}

func (p *Pacer) logDebug(msg string, fields ...zap.Field) {
	if p.Logger == nil {
		return
	}
	p.Logger.Debug(msg, fields...)
}

// less orders candidates for release: higher tier rank first, then lower
// sequence number. Sequence numbers are assigned at admission, giving
// stable FIFO order within a tier.
func less(a, b Candidate) bool {
	if ra, rb := a.Tier.Rank(), b.Tier.Rank(); ra != rb {
		return ra > rb
	}
	return a.seq < b.seq
}

type candidateHeap []Candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return less(h[i], h[j]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(Candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
