package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/awmpietro/shunting-action-validator/internal/config"
	"github.com/awmpietro/shunting-action-validator/internal/journal"
	"github.com/awmpietro/shunting-action-validator/internal/logging"
	"github.com/awmpietro/shunting-action-validator/internal/rules"
	"github.com/awmpietro/shunting-action-validator/internal/rules/cache"
	"github.com/awmpietro/shunting-action-validator/internal/rules/guard"
)

// ruleTracker is implemented by observers that only label configured rules
// individually.
type ruleTracker interface {
	TrackRules(names ...string)
}

// Runtime is a Service built from configuration together with the resources
// it owns.
type Runtime struct {
	Service  *Service
	Observer *rules.AsyncRuleLatencyObserver
	journal  *journal.Journal
}

// Build wires a Service from cfg. Extra observers (metrics) receive every rule
// latency through a bounded async buffer. The default guard chain is compiled
// up front so a broken file fails at startup.
func Build(cfg config.Runtime, logger *slog.Logger, observers ...rules.RuleLatencyObserver) (*Runtime, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	policy, err := rules.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}

	names := cfg.RuleOrder
	if len(names) == 0 {
		names = DefaultRuleNames
	}
	base, err := BuildRules(names)
	if err != nil {
		return nil, err
	}

	guardsDOT, err := cfg.GuardsDOT()
	if err != nil {
		return nil, err
	}

	compiler := guard.NewCompiler()
	c := cache.NewInMemory(cfg.CacheMaxItems)
	tracked := ruleNames(base)
	if guardsDOT != "" {
		chain, err := c.GetOrCompute(guardsDOT, func() (*guard.Chain, error) {
			return compiler.Compile(guardsDOT)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidGuards, cfg.GuardsPath, err)
		}
		tracked = append(tracked, ruleNames(chain.Rules())...)
	}
	for _, o := range observers {
		if t, ok := o.(ruleTracker); ok {
			t.TrackRules(tracked...)
		}
	}

	fanout := rules.MultiObserver(observers)
	if logging.ParseLevel(cfg.LogLevel) <= slog.LevelDebug {
		fanout = append(fanout, rules.NewRuleLatencyLogger(logger))
	}
	observer := rules.NewAsyncRuleLatencyObserver(fanout, cfg.ObsBuffer)

	engine := rules.NewEngine(
		rules.WithPolicy(policy),
		rules.WithRuleLatencyObserver(observer),
		rules.WithLogger(logger),
	)

	rt := &Runtime{Observer: observer}
	opts := []Option{WithDefaultGuards(guardsDOT), WithLogger(logger)}
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			observer.Close()
			return nil, err
		}
		rt.journal = j
		opts = append(opts, WithRecorder(j))
	}

	rt.Service = NewService(compiler, engine, c, base, opts...)
	return rt, nil
}

// Close flushes pending observations and closes the journal.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Observer != nil {
		r.Observer.Close()
	}
	if r.journal != nil {
		errs = append(errs, r.journal.Close())
	}
	return errors.Join(errs...)
}

func ruleNames(rs []rules.Rule) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Name())
	}
	return out
}
