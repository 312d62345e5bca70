package validatedto

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/awmpietro/shunting-action-validator/internal/app"
	"github.com/awmpietro/shunting-action-validator/internal/rules"
	"github.com/awmpietro/shunting-action-validator/internal/yard"
)

// ErrInvalidRequest marks requests that cannot be turned into a yard state
// and action.
var ErrInvalidRequest = errors.New("invalid request")

type ValidateRequest struct {
	State     StateDTO  `json:"state" yaml:"state"`
	Action    ActionDTO `json:"action" yaml:"action"`
	GuardsDOT string    `json:"guards_dot,omitempty" yaml:"guards_dot,omitempty"`
	Debug     bool      `json:"debug,omitempty" yaml:"debug,omitempty"`
}

type StateDTO struct {
	Units map[string][]string `json:"units" yaml:"units"`
}

type ActionDTO struct {
	Kind   string         `json:"kind" yaml:"kind"`
	Unit   string         `json:"unit" yaml:"unit"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

type ValidateResponse struct {
	Valid      bool              `json:"valid"`
	Reason     string            `json:"reason,omitempty"`
	Policy     string            `json:"policy,omitempty"`
	Violations []rules.Violation `json:"violations,omitempty"`
	Evaluated  []rules.RuleTrace `json:"evaluated,omitempty"`
}

type splitParams struct {
	At    any      `mapstructure:"at"`
	Front []string `mapstructure:"front"`
	Rear  []string `mapstructure:"rear"`
}

type combineParams struct {
	First  string   `mapstructure:"first"`
	Second string   `mapstructure:"second"`
	Attach string   `mapstructure:"attach"`
	Merged []string `mapstructure:"merged"`
}

type moveParams struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

type waitParams struct{}

// ToRequest converts the wire form into an application request.
func (r ValidateRequest) ToRequest() (app.Request, error) {
	state, err := r.State.ToState()
	if err != nil {
		return app.Request{}, err
	}
	action, err := r.Action.ToAction()
	if err != nil {
		return app.Request{}, err
	}
	return app.Request{State: state, Action: action, GuardsDOT: r.GuardsDOT}, nil
}

func (s StateDTO) ToState() (*yard.State, error) {
	units := make(map[yard.UnitID][]yard.TrainID, len(s.Units))
	for unit, trains := range s.Units {
		units[yard.UnitID(unit)] = trainIDs(trains)
	}

	state, err := yard.NewState(units)
	if err != nil {
		return nil, fmt.Errorf("%w: state: %w", ErrInvalidRequest, err)
	}
	return state, nil
}

func (a ActionDTO) ToAction() (yard.Action, error) {
	unit := yard.UnitID(strings.TrimSpace(a.Unit))

	switch yard.Kind(strings.ToLower(strings.TrimSpace(a.Kind))) {
	case yard.KindMove:
		var p moveParams
		if err := decodeParams(a.Params, &p); err != nil {
			return nil, err
		}
		return yard.Move{Target: unit, From: p.From, To: p.To}, nil

	case yard.KindWait:
		var p waitParams
		if err := decodeParams(a.Params, &p); err != nil {
			return nil, err
		}
		return yard.Wait{Target: unit}, nil

	case yard.KindSplit:
		var p splitParams
		if err := decodeParams(a.Params, &p); err != nil {
			return nil, err
		}
		return splitAction(unit, p)

	case yard.KindCombine:
		var p combineParams
		if err := decodeParams(a.Params, &p); err != nil {
			return nil, err
		}
		attach := yard.Attachment(strings.ToLower(strings.TrimSpace(p.Attach)))
		if attach != "" && attach != yard.AttachAppend && attach != yard.AttachPrepend {
			return nil, fmt.Errorf("%w: combine attach must be %q or %q, got %q", ErrInvalidRequest, yard.AttachAppend, yard.AttachPrepend, p.Attach)
		}
		c := yard.Combine{
			Target: unit,
			First:  yard.UnitID(p.First),
			Second: yard.UnitID(p.Second),
			Attach: attach,
		}
		if p.Merged != nil {
			c.Merged = trainIDs(p.Merged)
		}
		return c, nil

	case "":
		return nil, fmt.Errorf("%w: action kind is required", ErrInvalidRequest)
	default:
		return nil, fmt.Errorf("%w: unknown action kind %q", ErrInvalidRequest, a.Kind)
	}
}

func splitAction(unit yard.UnitID, p splitParams) (yard.Action, error) {
	groups := p.Front != nil || p.Rear != nil
	switch {
	case p.At != nil && groups:
		return nil, fmt.Errorf("%w: split takes either at or front/rear, not both", ErrInvalidRequest)
	case p.At != nil:
		idx, err := splitIndex(p.At)
		if err != nil {
			return nil, err
		}
		return yard.Split{Target: unit, By: yard.SplitAt{Index: idx}}, nil
	case groups:
		return yard.Split{Target: unit, By: yard.SplitGroups{Front: trainIDs(p.Front), Rear: trainIDs(p.Rear)}}, nil
	}
	return nil, fmt.Errorf("%w: split needs at or front/rear", ErrInvalidRequest)
}

// splitIndex accepts whole numbers only. JSON numbers arrive as float64, so
// fractional and out of range values are refused here instead of truncated.
func splitIndex(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, fmt.Errorf("%w: split at %d is out of range", ErrInvalidRequest, n)
		}
		return int(n), nil
	case uint64:
		if n > math.MaxInt32 {
			return 0, fmt.Errorf("%w: split at %d is out of range", ErrInvalidRequest, n)
		}
		return int(n), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: split at must be a whole number, got %v", ErrInvalidRequest, n)
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, fmt.Errorf("%w: split at %v is out of range", ErrInvalidRequest, n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("%w: split at must be a number, got %T", ErrInvalidRequest, v)
}

func decodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("%w: params: %v", ErrInvalidRequest, err)
	}
	return nil
}

func trainIDs(in []string) []yard.TrainID {
	out := make([]yard.TrainID, len(in))
	for i, id := range in {
		out[i] = yard.TrainID(id)
	}
	return out
}

// FromReport builds the response body. The per-rule trace is only included
// when debug is set.
func FromReport(rep *rules.Report, debug bool) ValidateResponse {
	if rep == nil {
		return ValidateResponse{}
	}
	resp := ValidateResponse{
		Valid:      rep.Valid,
		Reason:     rep.Reason,
		Policy:     rep.Policy,
		Violations: rep.Violations,
	}
	if debug {
		resp.Evaluated = rep.Evaluated
	}
	return resp
}

// ErrorStatus maps a validation failure to an HTTP status: client mistakes
// are 400, anything else (a panicking or malformed rule) is 500.
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, app.ErrInvalidGuards),
		errors.Is(err, rules.ErrNilState),
		errors.Is(err, rules.ErrNilAction):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ErrorBody is the JSON error payload shared by the transports.
func ErrorBody(msg string, err error) map[string]any {
	return map[string]any{
		"error":   msg,
		"details": err.Error(),
	}
}
