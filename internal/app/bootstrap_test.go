package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awmpietro/shunting-action-validator/internal/config"
	"github.com/awmpietro/shunting-action-validator/internal/journal"
	"github.com/awmpietro/shunting-action-validator/internal/yard"
)

type recordingObserver struct {
	mu    sync.Mutex
	rules []string
}

func (o *recordingObserver) ObserveRuleLatency(rule string, valid bool, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rules = append(o.rules, rule)
}

type trackingObserver struct {
	recordingObserver
	tracked []string
}

func (o *trackingObserver) TrackRules(names ...string) {
	o.tracked = append(o.tracked, names...)
}

func TestBuild_WiresConfiguration(t *testing.T) {
	dir := t.TempDir()
	guardsPath := filepath.Join(dir, "guards.dot")
	require.NoError(t, os.WriteFile(guardsPath, []byte(lengthGuardDOT), 0o600))

	cfg := config.Defaults()
	cfg.Policy = "collect_all"
	cfg.GuardsPath = guardsPath
	cfg.JournalPath = filepath.Join(dir, "journal.db")

	obs := &trackingObserver{}
	rt, err := Build(cfg, nil, obs)
	require.NoError(t, err)
	assert.Equal(t, []string{"unit_exists", "order_preserve", "guard:max_length"}, obs.tracked)

	rep, err := rt.Service.Validate(context.Background(), Request{
		State:  testState(t),
		Action: yard.Combine{Target: "u1", First: "u1", Second: "u2", Merged: []yard.TrainID{"A", "D", "B", "C", "E"}},
	})
	require.NoError(t, err)
	assert.False(t, rep.Valid)
	assert.Equal(t, "collect_all", rep.Policy)
	require.Len(t, rep.Violations, 2)
	assert.Equal(t, "guard:max_length", rep.Violations[1].Rule)

	require.NoError(t, rt.Close())
	assert.Equal(t, []string{"unit_exists", "order_preserve", "guard:max_length"}, obs.rules)

	j, err := journal.Open(cfg.JournalPath)
	require.NoError(t, err)
	defer j.Close()
	entries, err := j.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "combine", entries[0].Kind)
}

func TestBuild_RejectsBadConfiguration(t *testing.T) {
	brokenGuards := filepath.Join(t.TempDir(), "guards.dot")
	require.NoError(t, os.WriteFile(brokenGuards, []byte("digraph { a; }"), 0o600))

	cases := map[string]func(*config.Runtime){
		"policy":        func(c *config.Runtime) { c.Policy = "first_wins" },
		"rules":         func(c *config.Runtime) { c.RuleOrder = []string{"max_speed"} },
		"missing guard": func(c *config.Runtime) { c.GuardsPath = filepath.Join(t.TempDir(), "none.dot") },
		"broken guard":  func(c *config.Runtime) { c.GuardsPath = brokenGuards },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Defaults()
			mutate(&cfg)
			_, err := Build(cfg, nil)
			assert.Error(t, err)
		})
	}
}
