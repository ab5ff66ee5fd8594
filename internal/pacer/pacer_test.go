package pacer

import (
	"errors"
	"testing"
	"time"

	"tokenwatch/internal/config"
	"tokenwatch/internal/token"
)

func newPacer(target, maxQueue int) *Pacer {
	return New(config.PacerConfig{TargetPerMinute: target, MaxQueue: maxQueue}, nil)
}

func cand(tier token.Tier, addr string) Candidate {
	return Candidate{
		Snapshot: token.Snapshot{Chain: token.ChainSolana, Address: addr, Name: addr},
		Tier:     tier,
	}
}

func release(t *testing.T, p *Pacer, now time.Time) []string {
	t.Helper()
	released, err := p.Tick(now, func(Candidate) error { return nil })
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	addrs := make([]string, 0, len(released))
	for _, c := range released {
		addrs = append(addrs, c.Snapshot.Address)
	}
	return addrs
}

func TestTick_RollingWindowCap(t *testing.T) {
	p := newPacer(5, 0)
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		p.Admit(cand(token.TierRealGem, addr(i)))
	}

	if got := len(release(t, p, t0)); got != 5 {
		t.Fatalf("first tick released %d want 5", got)
	}
	if got := len(release(t, p, t0.Add(30*time.Second))); got != 0 {
		t.Fatalf("mid-window tick released %d want 0", got)
	}
	if got := len(release(t, p, t0.Add(59*time.Second))); got != 0 {
		t.Fatalf("late-window tick released %d want 0", got)
	}
	if got := len(release(t, p, t0.Add(61*time.Second))); got != 5 {
		t.Fatalf("next-window tick released %d want 5", got)
	}
	if s := p.Stats(t0.Add(61 * time.Second)); s.QueueDepth != 2 || s.SentLastMinute != 5 {
		t.Fatalf("stats=%+v want depth=2 sent=5", s)
	}
}

func TestTick_PartialBudgetMidWindow(t *testing.T) {
	p := newPacer(5, 0)
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		p.Admit(cand(token.TierRealGem, addr(i)))
	}
	if got := len(release(t, p, t0)); got != 3 {
		t.Fatalf("released %d want 3", got)
	}
	// 70s later the window is clear; a backlog admitted meanwhile drains
	// up to the full budget.
	for i := 3; i < 10; i++ {
		p.Admit(cand(token.TierRealGem, addr(i)))
	}
	if got := len(release(t, p, t0.Add(70*time.Second))); got != 5 {
		t.Fatalf("released %d want 5", got)
	}
}

func TestTick_EmptyQueueUnderDelivers(t *testing.T) {
	p := newPacer(5, 0)
	if got := release(t, p, time.Now()); len(got) != 0 {
		t.Fatalf("released %v want none", got)
	}
}

func TestTick_TierPriorityAndFIFO(t *testing.T) {
	p := newPacer(5, 0)
	p.Admit(cand(token.TierMediumRisk, "med"))
	p.Admit(cand(token.TierUltraRisk, "ultra"))
	p.Admit(cand(token.TierRealGem, "real-1"))
	p.Admit(cand(token.TierRealGem, "real-2"))
	p.Admit(cand(token.TierPremiumGem, "prem"))

	got := release(t, p, time.Now())
	want := []string{"prem", "real-1", "real-2", "med", "ultra"}
	if len(got) != len(want) {
		t.Fatalf("released %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("released %v want %v", got, want)
		}
	}
}

func TestTick_DuplicateDiscardKeepsBudget(t *testing.T) {
	p := newPacer(1, 0)
	p.IsDuplicate = func(c Candidate, _ time.Time) bool {
		return c.Snapshot.Address == "dup"
	}
	p.Admit(cand(token.TierPremiumGem, "dup"))
	p.Admit(cand(token.TierMediumRisk, "fresh"))

	got := release(t, p, time.Now())
	if len(got) != 1 || got[0] != "fresh" {
		t.Fatalf("released %v want [fresh]", got)
	}
}

func TestTick_ExpiredDropped(t *testing.T) {
	p := newPacer(5, 0)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stale := cand(token.TierPremiumGem, "stale")
	stale.Expiry = now.Add(-time.Second)
	p.Admit(stale)
	fresh := cand(token.TierMediumRisk, "fresh")
	fresh.Expiry = now.Add(time.Hour)
	p.Admit(fresh)

	got := release(t, p, now)
	if len(got) != 1 || got[0] != "fresh" {
		t.Fatalf("released %v want [fresh]", got)
	}
}

func TestTick_SendFailureRequeues(t *testing.T) {
	p := newPacer(5, 0)
	p.Admit(cand(token.TierPremiumGem, "first"))
	p.Admit(cand(token.TierRealGem, "second"))

	boom := errors.New("telegram down")
	released, err := p.Tick(time.Now(), func(Candidate) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v want %v", err, boom)
	}
	if len(released) != 0 {
		t.Fatalf("released %d candidates through a failing send", len(released))
	}

	// The failed candidate kept its slot; the full budget is still there.
	got := release(t, p, time.Now())
	want := []string{"first", "second"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("released %v want %v", got, want)
	}
}

func TestTick_AdmitAndStatsFreeDuringSend(t *testing.T) {
	p := newPacer(5, 0)
	p.Admit(cand(token.TierRealGem, "in-flight"))

	released, err := p.Tick(time.Now(), func(Candidate) error {
		done := make(chan struct{})
		go func() {
			p.Admit(cand(token.TierMiniGem, "late-arrival"))
			p.Stats(time.Now())
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-time.After(time.Second):
			return errors.New("admit blocked while a send was in flight")
		}
	})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(released) != 1 {
		t.Fatalf("released %d want 1", len(released))
	}
	if s := p.Stats(time.Now()); s.QueueDepth != 1 {
		t.Fatalf("late arrival not queued, stats=%+v", s)
	}
}

func TestAdmit_OverflowEvictsWorst(t *testing.T) {
	p := newPacer(5, 2)
	if !p.Admit(cand(token.TierRealGem, "real-1")) {
		t.Fatal("admit real-1 refused")
	}
	if !p.Admit(cand(token.TierRealGem, "real-2")) {
		t.Fatal("admit real-2 refused")
	}
	// Worse than everything queued: refused outright.
	if p.Admit(cand(token.TierMediumRisk, "med")) {
		t.Fatal("queue-full admit of worse candidate succeeded")
	}
	// Better: evicts the newest real gem.
	if !p.Admit(cand(token.TierPremiumGem, "prem")) {
		t.Fatal("queue-full admit of better candidate refused")
	}

	got := release(t, p, time.Now())
	want := []string{"prem", "real-1"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("released %v want %v", got, want)
	}
}

func TestSeed_BlocksRestartBurst(t *testing.T) {
	p := newPacer(5, 0)
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seeds := make([]time.Time, 5)
	for i := range seeds {
		seeds[i] = t0.Add(-10 * time.Second)
	}
	p.Seed(seeds)
	for i := 0; i < 3; i++ {
		p.Admit(cand(token.TierRealGem, addr(i)))
	}

	if got := release(t, p, t0); len(got) != 0 {
		t.Fatalf("released %v right after seeded window", got)
	}
	if got := len(release(t, p, t0.Add(51*time.Second))); got != 3 {
		t.Fatalf("released %d want 3 once seeds expired", got)
	}
}

func addr(i int) string {
	return "Mint" + string(rune('A'+i))
}
