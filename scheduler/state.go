package scheduler

import (
	"sync"
	"time"

	"github.com/wandergrowth/leadmux/utils"
	Logger "github.com/wandergrowth/leadmux/utils/log"
)

// Event bus topics shared by the schedulers and the reporter.
const (
	TopicHuntCycle     = "hunter.cycle"
	TopicPublishResult = "publisher.result"
)

const dayFormat = "2006-01-02"

// State is the per-scheduler mutable state: the reentrancy lock, the
// calendar-day quota counter, and the last-action timestamp used for pacing.
// One instance is owned by each scheduler and passed to its cycle function,
// so tests construct fresh state instead of resetting globals.
// This struct is thread-safe.
type State struct {
	m sync.Mutex

	// Guarantees at most one concurrent cycle per scheduler. A timer fire
	// while a cycle runs is skipped, not queued.
	running bool

	dailyCount int
	dailyLimit int
	lastReset  time.Time
	lastAction time.Time

	now func() time.Time

	// Optional persistence of the daily counter across restarts.
	statusStore *utils.StatusStore
	service     string
}

func NewState(dailyLimit int) *State {
	return NewStateAtTime(dailyLimit, time.Now)
}

// NewStateAtTime is NewState with an injected clock, for tests.
func NewStateAtTime(dailyLimit int, now func() time.Time) *State {
	return &State{
		dailyLimit: dailyLimit,
		lastReset:  now(),
		now:        now,
	}
}

// AttachStatusStore mirrors the daily counter into redis under the given
// service name and restores today's value, so a mid-day restart cannot
// double the quota.
func (s *State) AttachStatusStore(store *utils.StatusStore, service string) {
	s.m.Lock()
	defer s.m.Unlock()
	s.statusStore = store
	s.service = service

	count, err := store.GetDailyCount(service, s.now().Format(dayFormat))
	if err != nil {
		Logger.Log.Warnln("fail to restore daily count for", service, ":", err)
		return
	}
	s.dailyCount = count
}

// SeedCount primes today's counter. Used to rebuild quota state from the
// draft store after a restart when no status store is attached.
func (s *State) SeedCount(count int) {
	s.m.Lock()
	defer s.m.Unlock()
	s.dailyCount = count
}

// TryAcquire takes the cycle lock, returning false if a cycle is already
// running.
func (s *State) TryAcquire() bool {
	s.m.Lock()
	defer s.m.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *State) Release() {
	s.m.Lock()
	defer s.m.Unlock()
	s.running = false
}

// RollDay resets the daily counter the first time it is called on a new
// calendar day.
func (s *State) RollDay() {
	s.m.Lock()
	defer s.m.Unlock()
	now := s.now()
	if now.Format(dayFormat) != s.lastReset.Format(dayFormat) {
		s.dailyCount = 0
		s.lastReset = now
	}
}

// QuotaExhausted reports whether today's budget is used up.
func (s *State) QuotaExhausted() bool {
	s.m.Lock()
	defer s.m.Unlock()
	return s.dailyCount >= s.dailyLimit
}

// Increment bumps today's counter and mirrors it to the status store when
// one is attached.
func (s *State) Increment() {
	s.m.Lock()
	defer s.m.Unlock()
	s.dailyCount++
	if s.statusStore != nil {
		if err := s.statusStore.SetDailyCount(s.service, s.now().Format(dayFormat), s.dailyCount); err != nil {
			Logger.Log.Warnln("fail to persist daily count for", s.service, ":", err)
		}
	}
}

func (s *State) DailyCount() int {
	s.m.Lock()
	defer s.m.Unlock()
	return s.dailyCount
}

// MarkAction stamps now as the last action, used for inter-publish pacing.
func (s *State) MarkAction() {
	s.m.Lock()
	defer s.m.Unlock()
	s.lastAction = s.now()
}

// SinceLastAction returns the elapsed time since the last action. The bool
// is false when no action has happened this process lifetime.
func (s *State) SinceLastAction() (time.Duration, bool) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.lastAction.IsZero() {
		return 0, false
	}
	return s.now().Sub(s.lastAction), true
}

// Snapshot is a read-only view of the state for the admin surface.
type Snapshot struct {
	Running    bool       `json:"running"`
	DailyCount int        `json:"daily_count"`
	DailyLimit int        `json:"daily_limit"`
	LastAction *time.Time `json:"last_action,omitempty"`
}

func (s *State) Snapshot() Snapshot {
	s.m.Lock()
	defer s.m.Unlock()
	snapshot := Snapshot{
		Running:    s.running,
		DailyCount: s.dailyCount,
		DailyLimit: s.dailyLimit,
	}
	if !s.lastAction.IsZero() {
		lastAction := s.lastAction
		snapshot.LastAction = &lastAction
	}
	return snapshot
}
