package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/awmpietro/shunting-action-validator/internal/app"
	"github.com/awmpietro/shunting-action-validator/internal/journal"
	"github.com/awmpietro/shunting-action-validator/internal/rules"
	"github.com/awmpietro/shunting-action-validator/internal/rules/cache"
	"github.com/awmpietro/shunting-action-validator/internal/rules/guard"
	"github.com/awmpietro/shunting-action-validator/internal/transport/validatedto"
)

type ValidateOptions struct {
	*RootOptions
	GuardsPath  string
	CollectAll  bool
	JournalPath string
	Rules       []string
}

func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <request-file>",
		Short: "Validate one shunting action",
		Long: `Validate one shunting action against a yard state.

The request file is YAML or JSON:

  state:
    units:
      u1: [A, B, C]
  action:
    kind: split
    unit: u1
    params: {at: 1}

Exits 0 when the action is valid and 1 when it is rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.GuardsPath, "guards", "", "DOT file with guard rules (overrides guards_dot in the request)")
	cmd.Flags().BoolVar(&opts.CollectAll, "collect-all", false, "evaluate every rule and report all violations")
	cmd.Flags().StringVar(&opts.JournalPath, "journal", "", "SQLite journal to record the decision in")
	cmd.Flags().StringSliceVar(&opts.Rules, "rules", app.DefaultRuleNames, "built-in rules to run, in order")

	return cmd
}

func runValidate(ctx context.Context, opts *ValidateOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)
	logger := opts.logger(cmd)

	in, err := readRequest(path)
	if err != nil {
		return fail(out, "E001", WrapExitError(ExitCommandError, "read request", err))
	}
	if opts.GuardsPath != "" {
		dot, err := os.ReadFile(opts.GuardsPath)
		if err != nil {
			return fail(out, "E002", WrapExitError(ExitCommandError, "read guards", err))
		}
		in.GuardsDOT = string(dot)
	}

	req, err := in.ToRequest()
	if err != nil {
		return fail(out, "E001", WrapExitError(ExitCommandError, "invalid request", err))
	}

	base, err := app.BuildRules(opts.Rules)
	if err != nil {
		return fail(out, "E001", WrapExitError(ExitCommandError, "invalid --rules", err))
	}

	policy := rules.FailFast
	if opts.CollectAll {
		policy = rules.CollectAll
	}
	engine := rules.NewEngine(rules.WithPolicy(policy), rules.WithLogger(logger))

	svcOpts := []app.Option{app.WithLogger(logger)}
	if opts.JournalPath != "" {
		j, err := journal.Open(opts.JournalPath)
		if err != nil {
			return fail(out, "E004", WrapExitError(ExitCommandError, "open journal", err))
		}
		defer j.Close()
		svcOpts = append(svcOpts, app.WithRecorder(j))
	}

	svc := app.NewService(guard.NewCompiler(), engine, cache.NewInMemory(1), base, svcOpts...)

	rep, err := svc.Validate(ctx, req)
	if err != nil {
		code := "E003"
		if errors.Is(err, app.ErrInvalidGuards) {
			code = "E002"
		}
		return fail(out, code, WrapExitError(ExitCommandError, "validate", err))
	}

	resp := validatedto.FromReport(rep, opts.Verbose)
	if out.JSON() {
		if err := out.Success(resp); err != nil {
			return err
		}
	} else {
		printReport(out, string(req.Action.Kind()), string(req.Action.Unit()), resp)
	}

	if !rep.Valid {
		return NewExitError(ExitFailure, "action rejected")
	}
	return nil
}

func readRequest(path string) (validatedto.ValidateRequest, error) {
	var in validatedto.ValidateRequest

	data, err := os.ReadFile(path)
	if err != nil {
		return in, err
	}
	// JSON documents are valid YAML.
	if err := yaml.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("parse %s: %w", path, err)
	}
	return in, nil
}

func printReport(out *OutputFormatter, kind, unit string, resp validatedto.ValidateResponse) {
	if resp.Valid {
		out.Textf("VALID %s %s", kind, unit)
	} else {
		out.Textf("REJECTED %s %s: %s", kind, unit, resp.Reason)
	}
	for _, v := range resp.Violations {
		out.VerboseLog("  violation %s: %s", v.Rule, v.Reason)
	}
	for _, tr := range resp.Evaluated {
		out.VerboseLog("  evaluated %s valid=%t %dus", tr.Rule, tr.Valid, tr.DurationMicros)
	}
}

// fail prints err in the configured format and returns it for the exit code.
func fail(out *OutputFormatter, code string, err *ExitError) error {
	_ = out.Error(code, err.Error())
	err.Reported = true
	return err
}
