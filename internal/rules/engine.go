package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/awmpietro/shunting-action-validator/internal/logging"
	"github.com/awmpietro/shunting-action-validator/internal/yard"
)

var (
	ErrNilState         = errors.New("state is nil")
	ErrNilAction        = errors.New("action is nil")
	ErrNilRule          = errors.New("rule is nil")
	ErrMalformedVerdict = errors.New("malformed verdict")
)

// RuleError reports a rule that panicked instead of returning a verdict.
type RuleError struct {
	Rule  string
	Panic any
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %q panicked: %v", e.Rule, e.Panic)
}

// Policy decides how the engine folds individual verdicts.
type Policy int

const (
	// FailFast stops at the first invalid verdict and returns it unchanged.
	FailFast Policy = iota
	// CollectAll evaluates every rule and joins all reasons in rule order.
	CollectAll
)

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail_fast"
	case CollectAll:
		return "collect_all"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", "fail_fast", "fail-fast":
		return FailFast, nil
	case "collect_all", "collect-all":
		return CollectAll, nil
	default:
		return FailFast, fmt.Errorf("unknown policy %q (want fail_fast or collect_all)", s)
	}
}

type Engine struct {
	policy          Policy
	latencyObserver RuleLatencyObserver
	logger          *slog.Logger
}

type EngineOption func(*Engine)

func WithPolicy(p Policy) EngineOption {
	return func(e *Engine) {
		e.policy = p
	}
}

func WithRuleLatencyObserver(observer RuleLatencyObserver) EngineOption {
	return func(e *Engine) {
		e.latencyObserver = observer
	}
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		policy: FailFast,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine()

// Validate runs rules against a with the fail-fast policy.
func Validate(s yard.Snapshot, a yard.Action, rules ...Rule) (Verdict, error) {
	return defaultEngine.Validate(s, a, rules)
}

func (e *Engine) Policy() Policy { return e.policy }

// Validate evaluates rules in slice order and folds their verdicts.
// Domain rejections come back as an invalid Verdict; the error is reserved
// for contract violations (nil inputs, malformed verdicts, panicking rules).
func (e *Engine) Validate(s yard.Snapshot, a yard.Action, rules []Rule) (Verdict, error) {
	rep, err := e.ValidateWithReport(s, a, rules)
	if err != nil {
		return Verdict{}, err
	}
	return rep.Verdict, nil
}

// ValidateWithReport is Validate plus the per-rule trace. The partial report
// is returned alongside an error.
func (e *Engine) ValidateWithReport(s yard.Snapshot, a yard.Action, rules []Rule) (*Report, error) {
	if err := checkInputs(s, a); err != nil {
		return nil, err
	}

	rep := &Report{
		Verdict:   Valid(),
		Policy:    e.policy.String(),
		Evaluated: make([]RuleTrace, 0, len(rules)),
	}

	for i, r := range rules {
		if r == nil {
			return rep, fmt.Errorf("rule at position %d: %w", i, ErrNilRule)
		}
		name := r.Name()

		start := time.Now()
		v, err := evaluate(r, name, s, a)
		elapsed := time.Since(start)
		if err != nil {
			e.logger.Error("rule failed", "rule", name, "err", err)
			return rep, err
		}
		e.observeRuleLatency(name, v.Valid, elapsed)

		if !v.wellFormed() {
			return rep, fmt.Errorf("rule %q returned valid=%t reason=%q: %w", name, v.Valid, v.Reason, ErrMalformedVerdict)
		}

		rep.Evaluated = append(rep.Evaluated, RuleTrace{
			Rule:           name,
			Valid:          v.Valid,
			DurationMicros: elapsed.Microseconds(),
		})
		if v.Valid {
			continue
		}

		e.logger.Debug("rule rejected action",
			"rule", name,
			"kind", string(a.Kind()),
			"unit", string(a.Unit()),
			"reason", v.Reason,
		)
		rep.Violations = append(rep.Violations, Violation{Rule: name, Reason: v.Reason})
		if e.policy == FailFast {
			rep.Verdict = v
			return rep, nil
		}
	}

	if len(rep.Violations) > 0 {
		reasons := make([]string, 0, len(rep.Violations))
		for _, vi := range rep.Violations {
			reasons = append(reasons, vi.Reason)
		}
		rep.Verdict = Verdict{Valid: false, Reason: strings.Join(reasons, "; ")}
	}

	return rep, nil
}

func checkInputs(s yard.Snapshot, a yard.Action) error {
	if s == nil {
		return ErrNilState
	}
	if st, ok := s.(*yard.State); ok && st == nil {
		return ErrNilState
	}
	if a == nil {
		return ErrNilAction
	}
	return nil
}

func evaluate(r Rule, name string, s yard.Snapshot, a yard.Action) (v Verdict, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &RuleError{Rule: name, Panic: rec}
		}
	}()
	return r.Evaluate(s, a), nil
}

func (e *Engine) observeRuleLatency(rule string, valid bool, d time.Duration) {
	if e.latencyObserver == nil {
		return
	}
	e.latencyObserver.ObserveRuleLatency(rule, valid, d)
}
