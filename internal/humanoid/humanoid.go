// -- internal/humanoid/humanoid.go --
package humanoid

import (
	"math/rand"
	"sync"
	"time"

	"github.com/xkilldash9x/dialogskip/internal/config"
)

// BreakKind is the outcome of a periodic break check.
type BreakKind int

const (
	BreakNone BreakKind = iota
	BreakShort
	BreakLong
)

func (k BreakKind) String() string {
	switch k {
	case BreakShort:
		return "short"
	case BreakLong:
		return "long"
	default:
		return "none"
	}
}

// Modifiers are the per-dispatch random decisions, each drawn independently.
type Modifiers struct {
	Skip   bool
	Double bool
	// EnterBurst requests sticky burst mode for BurstRun presses.
	EnterBurst bool
	BurstRun   int
}

// Model draws press intervals, breaks and per-press modifiers from the
// configured fixed distributions. All draws share one random source; Model is
// safe for concurrent use.
type Model struct {
	cfg config.HumanoidConfig

	mu        sync.Mutex
	rng       *rand.Rand
	burstPool int
}

// New creates a Model. A zero cfg.Seed seeds from the clock.
func New(cfg config.HumanoidConfig) *Model {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Model{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NextInterval returns the delay before the next press. While a fast-burst
// pool is active it is drawn from the scaled-down range and consumes one unit
// of the pool. Otherwise the pool is refilled with probability
// FastBurstChance (the refilling draw is itself scaled down), else the delay
// comes from the standard range.
func (m *Model) NextInterval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.burstPool > 0 {
		m.burstPool--
		return m.fastIntervalLocked()
	}
	if m.rng.Float64() < m.cfg.FastBurstChance {
		m.burstPool = m.intnLocked(m.cfg.BurstPoolMin, m.cfg.BurstPoolMax)
		return m.fastIntervalLocked()
	}
	return m.uniformLocked(m.cfg.StandardDelayMin, m.cfg.StandardDelayMax)
}

// BurstPool reports how many fast intervals remain in the current pool.
func (m *Model) BurstPool() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.burstPool
}

// MaybeBreak decides whether the periodic break check starts a break. The long
// break is checked first so the two chances partition [0, 1).
func (m *Model) MaybeBreak() BreakKind {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.rng.Float64()
	switch {
	case r < m.cfg.LongBreakChance:
		return BreakLong
	case r < m.cfg.LongBreakChance+m.cfg.ShortBreakChance:
		return BreakShort
	default:
		return BreakNone
	}
}

// BreakDuration draws the length of a break of the given kind.
func (m *Model) BreakDuration(kind BreakKind) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch kind {
	case BreakLong:
		return m.uniformLocked(m.cfg.LongBreakMin, m.cfg.LongBreakMax)
	case BreakShort:
		return m.uniformLocked(m.cfg.ShortBreakMin, m.cfg.ShortBreakMax)
	default:
		return 0
	}
}

// Modifiers draws the skip, double and burst-entry decisions for one dispatch.
func (m *Model) Modifiers() Modifiers {
	m.mu.Lock()
	defer m.mu.Unlock()

	mods := Modifiers{
		Skip:       m.rng.Float64() < m.cfg.SkipChance,
		Double:     m.rng.Float64() < m.cfg.DoubleChance,
		EnterBurst: m.rng.Float64() < m.cfg.BurstModeChance,
	}
	if mods.EnterBurst {
		mods.BurstRun = m.intnLocked(m.cfg.BurstRunMin, m.cfg.BurstRunMax)
	}
	return mods
}

// UseAlternate decides whether a press uses the alternate key. Sticky burst
// mode has its own probability.
func (m *Model) UseAlternate(inBurst bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.cfg.SpaceChance
	if inBurst {
		p = m.cfg.BurstSpaceChance
	}
	return m.rng.Float64() < p
}

// PostBurstPause draws the cooldown after a double press or a finished burst.
func (m *Model) PostBurstPause() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uniformLocked(m.cfg.PostBurstPauseMin, m.cfg.PostBurstPauseMax)
}

// Uniform draws a duration in [lo, hi] from the shared source.
func (m *Model) Uniform(lo, hi time.Duration) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uniformLocked(lo, hi)
}

func (m *Model) fastIntervalLocked() time.Duration {
	lo := time.Duration(float64(m.cfg.StandardDelayMin) * m.cfg.FastBurstMultiplier)
	hi := time.Duration(float64(m.cfg.StandardDelayMax) * m.cfg.FastBurstMultiplier)
	return m.uniformLocked(lo, hi)
}

func (m *Model) uniformLocked(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(m.rng.Float64()*float64(hi-lo))
}

// intnLocked returns an int in [lo, hi).
func (m *Model) intnLocked(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + m.rng.Intn(hi-lo)
}
