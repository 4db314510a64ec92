package stitch

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Progress milestones, in percent.
const (
	ProgressZones     = 10
	ProgressCoverage  = 15
	ProgressObstacles = 35
	ProgressValidity  = 55
	ProgressClearance = 60
	ProgressSampling  = 65
	ProgressCommit    = 90
	ProgressSelect    = 95
	ProgressRefill    = 99
	ProgressDone      = 100
)

// Update is one progress report.
type Update struct {
	Percent float64 `json:"percent"`
	Status  string  `json:"status"`

	// Milestone is false for the interpolated updates sent while sampling.
	Milestone bool `json:"milestone"`
}

// Sink receives progress updates. Sinks must not block.
type Sink interface {
	Progress(Update)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(Update)

// Progress calls f(u).
func (f SinkFunc) Progress(u Update) { f(u) }

// Throttle forwards every milestone to next but at most one interpolated
// update per interval.
func Throttle(next Sink, interval time.Duration) Sink {
	return &throttled{next: next, interval: interval, now: time.Now}
}

type throttled struct {
	mu       sync.Mutex
	next     Sink
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

func (t *throttled) Progress(u Update) {
	t.mu.Lock()
	now := t.now()
	if !u.Milestone && !t.last.IsZero() && now.Sub(t.last) < t.interval {
		t.mu.Unlock()
		return
	}
	t.last = now
	t.mu.Unlock()
	t.next.Progress(u)
}

// ChanSink sends updates on ch, dropping them when ch is full.
func ChanSink(ch chan<- Update) Sink {
	return chanSink(ch)
}

type chanSink chan<- Update

func (c chanSink) Progress(u Update) {
	select {
	case c <- u:
	default:
	}
}

// Guard wraps s so that a panic disables it for the rest of the run. The
// stages of one run share the guarded sink.
func Guard(s Sink, logger *log.Logger) Sink {
	return newReporter(s, logger)
}

// reporter guards a sink: a panic disables it for the rest of the run.
type reporter struct {
	sink   Sink
	logger *log.Logger
	dead   bool
}

func newReporter(s Sink, logger *log.Logger) *reporter {
	if r, ok := s.(*reporter); ok {
		return r
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &reporter{sink: s, logger: logger}
}

func (r *reporter) Progress(u Update) {
	if r.sink == nil || r.dead {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			r.dead = true
			r.logger.Warn("progress sink disabled", "panic", v)
		}
	}()
	r.sink.Progress(u)
}

func (r *reporter) milestone(percent float64, status string) {
	r.Progress(Update{Percent: percent, Status: status, Milestone: true})
}
