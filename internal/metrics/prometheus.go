package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// GuardLabel is the rule label shared by guards that were not tracked,
	// such as chains supplied with a single request.
	GuardLabel = "guard"
	// OtherLabel is the rule label shared by any other untracked rule.
	OtherLabel = "other"

	guardPrefix = "guard:"
)

// RuleMetrics records rule latency and verdict counts. It satisfies
// rules.RuleLatencyObserver.
//
// Only tracked rule names get their own series; everything else is folded
// into GuardLabel or OtherLabel so request input cannot grow the label set.
type RuleMetrics struct {
	latency  *prometheus.HistogramVec
	verdicts *prometheus.CounterVec

	mu      sync.RWMutex
	tracked map[string]struct{}
}

// NewRuleMetrics creates the collectors and registers them with reg.
func NewRuleMetrics(reg prometheus.Registerer) (*RuleMetrics, error) {
	m := &RuleMetrics{
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "yard_rule_evaluation_seconds",
				Help:    "Duration of single rule evaluations.",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
			},
			[]string{"rule"},
		),
		verdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yard_rule_verdicts_total",
				Help: "Rule verdicts by outcome.",
			},
			[]string{"rule", "outcome"},
		),
		tracked: make(map[string]struct{}),
	}

	for _, c := range []prometheus.Collector{m.latency, m.verdicts} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// TrackRules gives the named rules their own label value.
func (m *RuleMetrics) TrackRules(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		m.tracked[n] = struct{}{}
	}
}

func (m *RuleMetrics) ObserveRuleLatency(rule string, valid bool, duration time.Duration) {
	label := m.label(rule)
	m.latency.WithLabelValues(label).Observe(duration.Seconds())

	outcome := "valid"
	if !valid {
		outcome = "invalid"
	}
	m.verdicts.WithLabelValues(label, outcome).Inc()
}

func (m *RuleMetrics) label(rule string) string {
	m.mu.RLock()
	_, ok := m.tracked[rule]
	m.mu.RUnlock()

	switch {
	case ok:
		return rule
	case strings.HasPrefix(rule, guardPrefix):
		return GuardLabel
	default:
		return OtherLabel
	}
}
