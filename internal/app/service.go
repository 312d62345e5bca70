package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/awmpietro/shunting-action-validator/internal/logging"
	"github.com/awmpietro/shunting-action-validator/internal/rules"
	"github.com/awmpietro/shunting-action-validator/internal/rules/guard"
	"github.com/awmpietro/shunting-action-validator/internal/yard"
)

// ErrInvalidGuards wraps guard chains that fail to compile.
var ErrInvalidGuards = errors.New("invalid guards")

type Compiler interface {
	Compile(dot string) (*guard.Chain, error)
}

type Engine interface {
	ValidateWithReport(s yard.Snapshot, a yard.Action, rs []rules.Rule) (*rules.Report, error)
}

type Cache interface {
	GetOrCompute(dot string, fn func() (*guard.Chain, error)) (*guard.Chain, error)
}

// Recorder receives every decision the service reaches.
type Recorder interface {
	Record(ctx context.Context, a yard.Action, rep *rules.Report) error
}

type Request struct {
	State  *yard.State
	Action yard.Action
	// GuardsDOT overrides the service's default guard chain when set.
	GuardsDOT string
}

type Service struct {
	compiler      Compiler
	engine        Engine
	cache         Cache
	base          []rules.Rule
	defaultGuards string
	recorder      Recorder
	logger        *slog.Logger
}

type Option func(*Service)

func WithDefaultGuards(dot string) Option {
	return func(s *Service) { s.defaultGuards = dot }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(compiler Compiler, engine Engine, cache Cache, base []rules.Rule, opts ...Option) *Service {
	s := &Service{
		compiler: compiler,
		engine:   engine,
		cache:    cache,
		base:     base,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate runs the base rules followed by the guard chain against the
// request. A rejected action is a report with Valid=false, not an error.
func (s *Service) Validate(ctx context.Context, req Request) (*rules.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rs, err := s.rulesFor(req.GuardsDOT)
	if err != nil {
		return nil, err
	}

	rep, err := s.engine.ValidateWithReport(req.State, req.Action, rs)
	if err != nil {
		return rep, err
	}

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, req.Action, rep); err != nil {
			s.logger.Warn("journal_record_failed", "error", err)
		}
	}

	return rep, nil
}

func (s *Service) rulesFor(requestGuards string) ([]rules.Rule, error) {
	dot := requestGuards
	if strings.TrimSpace(dot) == "" {
		dot = s.defaultGuards
	}

	rs := make([]rules.Rule, 0, len(s.base)+4)
	rs = append(rs, s.base...)

	if strings.TrimSpace(dot) == "" {
		return rs, nil
	}

	chain, err := s.cache.GetOrCompute(dot, func() (*guard.Chain, error) {
		return s.compiler.Compile(dot)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGuards, err)
	}

	return append(rs, chain.Rules()...), nil
}
