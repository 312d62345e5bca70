package rules

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type RuleLatencyObserver interface {
	ObserveRuleLatency(rule string, valid bool, duration time.Duration)
}

type RuleLatencyLogger struct {
	logger *slog.Logger
}

func NewRuleLatencyLogger(logger *slog.Logger) *RuleLatencyLogger {
	return &RuleLatencyLogger{logger: logger}
}

func (l *RuleLatencyLogger) ObserveRuleLatency(rule string, valid bool, duration time.Duration) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Info("rule_latency",
		"rule", rule,
		"valid", valid,
		"duration_ms", float64(duration.Microseconds())/1000.0,
	)
}

// AsyncRuleLatencyObserver hands observations to next on a background
// goroutine. Observations are dropped when the buffer is full or after Close.
type AsyncRuleLatencyObserver struct {
	next    RuleLatencyObserver
	events  chan ruleLatencyEvent
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

type ruleLatencyEvent struct {
	rule     string
	valid    bool
	duration time.Duration
}

func NewAsyncRuleLatencyObserver(next RuleLatencyObserver, buffer int) *AsyncRuleLatencyObserver {
	if buffer <= 0 {
		buffer = 1
	}

	o := &AsyncRuleLatencyObserver{
		next:   next,
		events: make(chan ruleLatencyEvent, buffer),
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for ev := range o.events {
			if o.next == nil {
				continue
			}
			o.next.ObserveRuleLatency(ev.rule, ev.valid, ev.duration)
		}
	}()

	return o
}

func (o *AsyncRuleLatencyObserver) ObserveRuleLatency(rule string, valid bool, duration time.Duration) {
	if o == nil {
		return
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		o.dropped.Add(1)
		return
	}
	select {
	case o.events <- ruleLatencyEvent{rule: rule, valid: valid, duration: duration}:
	default:
		o.dropped.Add(1)
	}
}

func (o *AsyncRuleLatencyObserver) Dropped() uint64 {
	if o == nil {
		return 0
	}
	return o.dropped.Load()
}

// Close drains pending observations and stops the worker. Safe to call more
// than once.
func (o *AsyncRuleLatencyObserver) Close() {
	if o == nil {
		return
	}
	o.once.Do(func() {
		o.mu.Lock()
		o.closed = true
		close(o.events)
		o.mu.Unlock()
		o.wg.Wait()
	})
}

// MultiObserver fans observations out to several observers in order.
type MultiObserver []RuleLatencyObserver

func (m MultiObserver) ObserveRuleLatency(rule string, valid bool, duration time.Duration) {
	for _, o := range m {
		if o != nil {
			o.ObserveRuleLatency(rule, valid, duration)
		}
	}
}
