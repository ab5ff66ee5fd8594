package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"tokenwatch/internal/classify"
	"tokenwatch/internal/client/rugcheck"
	"tokenwatch/internal/config"
	"tokenwatch/internal/dedup"
	"tokenwatch/internal/discovery"
	"tokenwatch/internal/labeler"
	"tokenwatch/internal/models"
	"tokenwatch/internal/notifier"
	"tokenwatch/internal/pacer"
	"tokenwatch/internal/ratelimit"
	"tokenwatch/internal/repository"
	"tokenwatch/internal/safety"
	"tokenwatch/internal/stream"
	"tokenwatch/internal/token"
)

const (
	rugLimiterName = "rugcheck"

	// reasonEvaluationError marks a candidate whose evaluation blew up.
	// Such tokens are rejected, never skipped, so a bug in a filter can
	// only ever suppress alerts, not leak unchecked tokens through.
	reasonEvaluationError = "evaluation_error"
)

// Transport delivers one released alert to the outside world.
type Transport interface {
	SendAlert(ctx context.Context, a notifier.Alert) error
}

// RugReporter fetches the external risk report for one token address.
type RugReporter interface {
	Report(ctx context.Context, tokenAddress string) (*rugcheck.Report, error)
}

// Pipeline runs the scan cycle: fetch raw pairs per chain, normalize,
// prefilter, evaluate, classify, persist, then hand survivors to the pacer
// and flush whatever the send budget allows.
type Pipeline struct {
	Config config.Config

	Sources    []discovery.Source
	Rug        RugReporter
	Limiter    *ratelimit.Limiter
	Safety     *safety.Evaluator
	Classifier *classify.Classifier
	Labeler    *labeler.TokenLabeler
	Ledger     *dedup.Ledger
	Pacer      *pacer.Pacer
	Repo       repository.Repository
	Transport  Transport
	Hub        *stream.Hub
	Logger     *zap.Logger

	// cycleMu serializes cycles; stateMu guards the status snapshot.
	cycleMu sync.Mutex
	stateMu sync.Mutex
	running bool
	last    *CycleResult
}

// CycleResult counts what one cycle did, persisted as a scan_stats row.
type CycleResult struct {
	StartedAt   time.Time      `json:"started_at"`
	DurationMS  int64          `json:"duration_ms"`
	Fetched     int            `json:"fetched"`
	Malformed   int            `json:"malformed"`
	Prefiltered int            `json:"prefiltered"`
	Rejected    int            `json:"rejected"`
	Passed      int            `json:"passed"`
	Duplicates  int            `json:"duplicates"`
	Queued      int            `json:"queued"`
	Alerted     int            `json:"alerted"`
	Chains      map[string]int `json:"chains,omitempty"`
	Errors      []string       `json:"errors,omitempty"`
}

// RunCycle executes one full scan cycle. Cycles never overlap; a caller
// arriving while one runs blocks until it finishes. Per-token problems are
// counted and logged, only a failed alert flush surfaces as an error.
func (p *Pipeline) RunCycle(ctx context.Context) (CycleResult, error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	started := time.Now().UTC()
	p.setRunning(true)
	defer p.setRunning(false)

	result := CycleResult{StartedAt: started, Chains: map[string]int{}}

	for _, snap := range p.collect(ctx, &result) {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, ctx.Err().Error())
			break
		}
		p.process(ctx, snap, &result)
	}

	flushErr := p.flush(ctx, &result)

	result.DurationMS = time.Since(started).Milliseconds()
	p.writeScanStat(ctx, &result)
	p.storeLast(result)

	if p.Logger != nil {
		p.Logger.Info("pipeline: cycle finished",
			zap.Int("fetched", result.Fetched),
			zap.Int("passed", result.Passed),
			zap.Int("queued", result.Queued),
			zap.Int("alerted", result.Alerted),
			zap.Int("rejected", result.Rejected),
			zap.Int("duplicates", result.Duplicates),
			zap.Int64("duration_ms", result.DurationMS))
	}
	return result, flushErr
}

// chainBatch is one chain's fetch outcome. Each goroutine owns exactly one
// batch, so counters are merged only after Wait.
type chainBatch struct {
	chain     token.Chain
	snaps     []token.Snapshot
	fetched   int
	malformed int
	reached   bool
	errs      []string
}

// collect fetches raw pairs from every source for every configured chain and
// normalizes them. Chains fan out concurrently so one slow chain cannot
// stretch the cycle past the scan interval; a failing source contributes
// zero records for that chain, never a cycle abort. Tokens repeated across
// chains, sources or queries are taken once per cycle, resolved at merge.
func (p *Pipeline) collect(ctx context.Context, result *CycleResult) []token.Snapshot {
	now := time.Now().UTC()

	var chains []token.Chain
	for _, raw := range p.Config.Scan.Chains {
		chain, err := token.ParseChain(raw)
		if err != nil {
			p.logWarn("pipeline: skipping unknown chain", zap.String("chain", raw))
			continue
		}
		chains = append(chains, chain)
	}

	batches := make([]chainBatch, len(chains))
	var wg sync.WaitGroup
	for i, chain := range chains {
		wg.Add(1)
		go func(b *chainBatch, chain token.Chain) {
			defer wg.Done()
			p.collectChain(ctx, chain, now, b)
		}(&batches[i], chain)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	var snaps []token.Snapshot
	for i := range batches {
		b := &batches[i]
		result.Fetched += b.fetched
		result.Malformed += b.malformed
		if b.reached {
			result.Chains[string(b.chain)] += b.fetched
		}
		result.Errors = append(result.Errors, b.errs...)
		for _, snap := range b.snaps {
			if _, dup := seen[snap.Key()]; dup {
				continue
			}
			seen[snap.Key()] = struct{}{}
			snaps = append(snaps, snap)
		}
	}
	return snaps
}

func (p *Pipeline) collectChain(ctx context.Context, chain token.Chain, now time.Time, b *chainBatch) {
	b.chain = chain
	for _, src := range p.Sources {
		pairs, err := src.Fetch(ctx, chain)
		if err != nil {
			b.errs = append(b.errs, src.Name()+"/"+string(chain)+": "+err.Error())
			p.logWarn("pipeline: source fetch failed",
				zap.String("source", src.Name()),
				zap.String("chain", string(chain)),
				zap.Error(err))
			continue
		}
		b.reached = true
		b.fetched += len(pairs)
		for _, pair := range pairs {
			snap, err := discovery.NormalizePair(chain, pair, now)
			if err != nil {
				b.malformed++
				p.logDebug("pipeline: dropped malformed record",
					zap.String("chain", string(chain)),
					zap.Error(err))
				continue
			}
			b.snaps = append(b.snaps, snap)
		}
	}
}

// process runs one snapshot through prefilter, rugcheck, evaluation,
// classification and persistence, then hands survivors to the pacer.
func (p *Pipeline) process(ctx context.Context, snap token.Snapshot, result *CycleResult) {
	now := snap.FetchedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if reason := p.prefilter(snap, now); reason != "" {
		result.Prefiltered++
		p.logDebug("pipeline: token prefiltered",
			zap.String("token", snap.Key()),
			zap.String("reason", reason))
		return
	}

	verdict := p.rugVerdict(ctx, snap)
	res, tier, score := p.evaluate(snap, verdict)

	status := models.CheckStatusRejected
	isDup := false
	if res.Passed {
		status = models.CheckStatusPassed
		isDup = p.Ledger.IsDuplicate(snap.Chain, snap.Address, snap.Name, now)
		if isDup {
			status = models.CheckStatusDuplicate
		}
	}

	check := buildTokenCheck(snap, res, tier, score, verdict, status)
	if err := p.Repo.InsertTokenCheck(ctx, check); err != nil {
		result.Errors = append(result.Errors, "persist check: "+err.Error())
		p.logWarn("pipeline: failed to persist check",
			zap.String("token", snap.Key()),
			zap.Error(err))
	}

	switch {
	case !res.Passed:
		result.Rejected++
	case isDup:
		result.Duplicates++
		p.logDebug("pipeline: duplicate suppressed",
			zap.String("token", snap.Key()))
	default:
		result.Passed++
		cand := pacer.Candidate{
			Snapshot:      snap,
			Tier:          tier,
			Flags:         res.Flags,
			RiskScore:     score,
			TaxPercentage: taxOf(verdict),
			CheckID:       check.ID,
			EnqueuedAt:    now,
			Expiry:        now.Add(p.candidateTTL()),
		}
		if p.Pacer.Admit(cand) {
			result.Queued++
		}
	}
}

// prefilter drops tokens the cycle should not even evaluate. The returned
// reason is empty when the token may proceed. A missing market cap fails the
// cap prefilter: the cheap gate wants proof of being small, not absence of
// proof. A missing creation time passes the age prefilter, because most
// sources omit it.
func (p *Pipeline) prefilter(snap token.Snapshot, now time.Time) string {
	scan := p.Config.Scan
	if scan.MaxMarketCapUSD > 0 {
		if snap.MarketCapUSD == nil || *snap.MarketCapUSD == 0 {
			return "market_cap_unknown"
		}
		if *snap.MarketCapUSD > scan.MaxMarketCapUSD {
			return "market_cap_above_max"
		}
	}
	if scan.MinTokenAge > 0 {
		if age := snap.Age(now); age != nil && *age < scan.MinTokenAge {
			return "too_young"
		}
	}
	return ""
}

// rugVerdict fetches the external risk report through the rate limiter. Any
// failure degrades to "no verdict": the safety evaluator then skips the
// honeypot and tax checks rather than blocking the token on missing data.
func (p *Pipeline) rugVerdict(ctx context.Context, snap token.Snapshot) *rugcheck.Verdict {
	if p.Rug == nil || !p.Config.Rugcheck.Enabled {
		return nil
	}
	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx, rugLimiterName); err != nil {
			return nil
		}
	}
	reqCtx := ctx
	if p.Config.Rugcheck.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, p.Config.Rugcheck.Timeout)
		defer cancel()
	}
	report, err := p.Rug.Report(reqCtx, snap.Address)
	if err != nil {
		p.logDebug("pipeline: rug report unavailable",
			zap.String("token", snap.Key()),
			zap.Error(err))
		return nil
	}
	if report == nil {
		return nil
	}
	v := report.Verdict()
	return &v
}

// evaluate runs the safety chain, risk scoring and classification. A panic
// in any of them turns into a fail-safe rejection for this one token.
func (p *Pipeline) evaluate(snap token.Snapshot, verdict *rugcheck.Verdict) (res safety.Result, tier token.Tier, score float64) {
	defer func() {
		if r := recover(); r != nil {
			p.logWarn("pipeline: evaluation failed",
				zap.String("token", snap.Key()),
				zap.Any("panic", r))
			res = safety.Result{
				Snapshot:      snap,
				RejectReasons: []string{reasonEvaluationError},
			}
			tier = ""
			score = 0
		}
	}()
	res = p.Safety.Evaluate(snap, verdict)
	score = safety.RiskScore(snap, verdict, p.Config.Safety)
	if res.Passed {
		tier = p.Classifier.Classify(snap, res.Flags)
	}
	return res, tier, score
}

// flush releases as many queued candidates as the pacing budget allows and
// delivers them. A delivery abort (failed ledger or alert write) stops the
// flush; the pacer has already requeued the candidate for the next cycle.
func (p *Pipeline) flush(ctx context.Context, result *CycleResult) error {
	if p.Pacer == nil {
		return nil
	}
	now := time.Now().UTC()
	released, err := p.Pacer.Tick(now, func(c pacer.Candidate) error {
		return p.deliver(ctx, c, now)
	})
	result.Alerted += len(released)
	if err != nil {
		result.Errors = append(result.Errors, "flush: "+err.Error())
		p.logWarn("pipeline: alert flush interrupted", zap.Error(err))
	}
	return err
}

// deliver handles one released candidate. Order matters: the dedup ledger is
// written first so a crash or failure later can only lose this alert, never
// repeat it. Once the alert row exists the send slot is spent; a transport
// failure after that point is logged, not retried.
func (p *Pipeline) deliver(ctx context.Context, c pacer.Candidate, now time.Time) error {
	snap := c.Snapshot
	labels := p.labels(snap)

	if err := p.Ledger.Record(ctx, snap.Chain, snap.Address, snap.Name, now); err != nil {
		return err
	}

	ev := p.event(c, labels, now)
	alert := buildAlert(c, labels, ev, now)
	if err := p.Repo.InsertAlert(ctx, alert); err != nil {
		return err
	}

	if c.CheckID != 0 {
		if err := p.Repo.MarkTokenCheckAlerted(ctx, c.CheckID); err != nil {
			p.logWarn("pipeline: failed to mark check alerted",
				zap.Uint64("check_id", c.CheckID),
				zap.Error(err))
		}
	}

	if p.Transport != nil {
		msg := notifier.Alert{
			Snapshot:      snap,
			Tier:          c.Tier,
			RiskScore:     c.RiskScore,
			TaxPercentage: c.TaxPercentage,
			Labels:        labels,
		}
		if err := p.Transport.SendAlert(ctx, msg); err != nil {
			p.logWarn("pipeline: alert delivery failed",
				zap.String("token", snap.Key()),
				zap.Error(err))
		}
	}

	if p.Hub != nil {
		p.Hub.Publish(ev)
	}

	p.logInfo("pipeline: alert released",
		zap.String("token", snap.Key()),
		zap.String("tier", string(c.Tier)),
		zap.Float64("risk_score", c.RiskScore))
	return nil
}

func (p *Pipeline) labels(snap token.Snapshot) []labeler.Label {
	if p.Labeler == nil || !p.Config.Labeler.Enabled {
		return nil
	}
	return p.Labeler.Label(snap.Name, snap.Symbol)
}

func (p *Pipeline) event(c pacer.Candidate, labels []labeler.Label, now time.Time) stream.AlertEvent {
	snap := c.Snapshot
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return stream.AlertEvent{
		Type:         "alert",
		Chain:        string(snap.Chain),
		Address:      snap.Address,
		Name:         snap.Name,
		Symbol:       snap.Symbol,
		Tier:         string(c.Tier),
		RiskScore:    c.RiskScore,
		PriceUSD:     snap.PriceUSD,
		LiquidityUSD: snap.LiquidityUSD,
		VolumeUSD24h: snap.VolumeUSD24h,
		MarketCapUSD: snap.MarketCapUSD,
		Flags:        c.Flags,
		Labels:       names,
		PageURL:      snap.PageURL,
		SentAt:       now,
	}
}

func (p *Pipeline) candidateTTL() time.Duration {
	if ttl := p.Config.Pacer.CandidateTTL; ttl > 0 {
		return ttl
	}
	return 10 * time.Minute
}

func (p *Pipeline) writeScanStat(ctx context.Context, result *CycleResult) {
	if p.Repo == nil {
		return
	}
	stat := &models.ScanStat{
		StartedAt:   result.StartedAt,
		DurationMS:  result.DurationMS,
		Fetched:     result.Fetched,
		Malformed:   result.Malformed,
		Prefiltered: result.Prefiltered,
		Duplicates:  result.Duplicates,
		Rejected:    result.Rejected,
		Queued:      result.Queued,
		Alerted:     result.Alerted,
		Chains:      chainsJSON(result.Chains),
		Errors:      stringsJSON(result.Errors),
	}
	if err := p.Repo.InsertScanStat(ctx, stat); err != nil {
		p.logWarn("pipeline: failed to persist scan stat", zap.Error(err))
	}
}

// Status is the live pipeline view served by the HTTP API.
type Status struct {
	Running    bool            `json:"running"`
	LastCycle  *CycleResult    `json:"last_cycle,omitempty"`
	Pacer      pacer.Stats     `json:"pacer"`
	RugLimiter ratelimit.Stats `json:"rug_limiter"`
	LedgerSize int             `json:"ledger_size"`
	Sources    []SourceStatus  `json:"sources,omitempty"`
	Stream     *stream.Stats   `json:"stream,omitempty"`
	Chains     []string        `json:"chains"`
	Interval   string          `json:"scan_interval"`
}

type SourceStatus struct {
	Name   string                 `json:"name"`
	Health discovery.HealthStatus `json:"health"`
}

func (p *Pipeline) Status() Status {
	p.stateMu.Lock()
	running := p.running
	last := p.last
	p.stateMu.Unlock()

	st := Status{
		Running:    running,
		LastCycle:  last,
		Chains:     p.Config.Scan.Chains,
		Interval:   p.Config.Scan.Interval.String(),
		LedgerSize: p.Ledger.Size(),
	}
	if p.Pacer != nil {
		st.Pacer = p.Pacer.Stats(time.Now().UTC())
	}
	if p.Limiter != nil {
		st.RugLimiter = p.Limiter.Stats(rugLimiterName)
	}
	for _, src := range p.Sources {
		st.Sources = append(st.Sources, SourceStatus{Name: src.Name(), Health: src.Health()})
	}
	if p.Hub != nil {
		hubStats := p.Hub.Stats()
		st.Stream = &hubStats
	}
	return st
}

func (p *Pipeline) setRunning(v bool) {
	p.stateMu.Lock()
	p.running = v
	p.stateMu.Unlock()
}

func (p *Pipeline) storeLast(result CycleResult) {
	p.stateMu.Lock()
	p.last = &result
	p.stateMu.Unlock()
}

func (p *Pipeline) logDebug(msg string, fields ...zap.Field) {
	if p.Logger == nil {
		return
	}
	p.Logger.Debug(msg, fields...)
}

func (p *Pipeline) logInfo(msg string, fields ...zap.Field) {
	if p.Logger == nil {
		return
	}
	p.Logger.Info(msg, fields...)
}

func (p *Pipeline) logWarn(msg string, fields ...zap.Field) {
	if p.Logger == nil {
		return
	}
	p.Logger.Warn(msg, fields...)
}

func buildTokenCheck(snap token.Snapshot, res safety.Result, tier token.Tier, score float64, verdict *rugcheck.Verdict, status string) *models.TokenCheck {
	check := &models.TokenCheck{
		Chain:         string(snap.Chain),
		Address:       snap.Address,
		Name:          snap.Name,
		Symbol:        snap.Symbol,
		PriceUSD:      dec(snap.PriceUSD),
		Volume24hUSD:  dec(snap.VolumeUSD24h),
		LiquidityUSD:  dec(snap.LiquidityUSD),
		MarketCapUSD:  dec(snap.MarketCapUSD),
		Status:        status,
		RiskScore:     score,
		TaxPercentage: taxOf(verdict),
		RejectReasons: stringsJSON(res.RejectReasons),
		Flags:         stringsJSON(res.Flags),
	}
	if verdict != nil {
		check.Honeypot = verdict.Honeypot
	}
	if tier.Valid() {
		t := string(tier)
		check.Tier = &t
	}
	return check
}

func buildAlert(c pacer.Candidate, labels []labeler.Label, ev stream.AlertEvent, now time.Time) *models.Alert {
	snap := c.Snapshot
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		payload = []byte("null")
	}
	return &models.Alert{
		Chain:         string(snap.Chain),
		Address:       snap.Address,
		Name:          snap.Name,
		Symbol:        snap.Symbol,
		Tier:          string(c.Tier),
		PriceUSD:      dec(snap.PriceUSD),
		Volume24hUSD:  dec(snap.VolumeUSD24h),
		LiquidityUSD:  dec(snap.LiquidityUSD),
		MarketCapUSD:  dec(snap.MarketCapUSD),
		RiskScore:     c.RiskScore,
		TaxPercentage: c.TaxPercentage,
		Labels:        stringsJSON(names),
		Payload:       datatypes.JSON(payload),
		SentAt:        now,
	}
}

func taxOf(verdict *rugcheck.Verdict) float64 {
	if verdict == nil {
		return 0
	}
	return verdict.TaxPercentage
}

func dec(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}

func stringsJSON(items []string) datatypes.JSON {
	if len(items) == 0 {
		return datatypes.JSON([]byte("null"))
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(payload)
}

func chainsJSON(chains map[string]int) datatypes.JSON {
	if len(chains) == 0 {
		return datatypes.JSON([]byte("null"))
	}
	payload, err := json.Marshal(chains)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(payload)
}
