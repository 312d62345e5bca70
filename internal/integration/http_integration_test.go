package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/awmpietro/shunting-action-validator/internal/app"
	"github.com/awmpietro/shunting-action-validator/internal/config"
	"github.com/awmpietro/shunting-action-validator/internal/metrics"
	"github.com/awmpietro/shunting-action-validator/internal/transport/httptransport"
)

const yardGuards = `digraph yard {
  start -> max_length -> no_single_split;
  max_length [comment="vehicles <= 5", label="unit longer than the longest siding"];
  no_single_split [comment="kind != 'split' or (front > 1 and rear > 1)", label="split leaves a single vehicle"];
}`

type server struct {
	*httptest.Server
	rt  *app.Runtime
	reg *prometheus.Registry
}

func newServer(t *testing.T, policy string) *server {
	t.Helper()

	cfg := config.Defaults()
	cfg.Policy = policy
	cfg.CacheMaxItems = 16

	reg := prometheus.NewRegistry()
	ruleMetrics, err := metrics.NewRuleMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}

	rt, err := app.Build(cfg, nil, ruleMetrics)
	if err != nil {
		t.Fatal(err)
	}

	h := httptransport.NewHandler(rt.Service, nil)
	srv := httptest.NewServer(httptransport.Router(h, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	t.Cleanup(func() {
		srv.Close()
		_ = rt.Close()
	})
	return &server{Server: srv, rt: rt, reg: reg}
}

func postValidate(t *testing.T, srv *server, payload map[string]any) (int, map[string]any) {
	t.Helper()
	status, out, raw, err := postValidateNoFatal(srv, payload)
	if err != nil {
		t.Fatalf("post /validate failed: %v (%s)", err, raw)
	}
	return status, out
}

func postValidateNoFatal(srv *server, payload map[string]any) (int, map[string]any, string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, "", err
	}
	resp, err := http.Post(srv.URL+"/validate", "application/json", bytes.NewReader(b))
	if err != nil {
		return 0, nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, "", err
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return resp.StatusCode, nil, string(body), err
	}
	return resp.StatusCode, out, string(body), nil
}

func splitPayload(params map[string]any) map[string]any {
	return map[string]any{
		"state":      map[string]any{"units": map[string]any{"u1": []string{"A", "B", "C", "D"}, "u2": []string{"E", "F"}}},
		"action":     map[string]any{"kind": "split", "unit": "u1", "params": params},
		"guards_dot": yardGuards,
	}
}

func TestHTTPValidate_SplitOutcomes(t *testing.T) {
	srv := newServer(t, "fail_fast")

	tests := []struct {
		name      string
		params    map[string]any
		wantValid bool
		wantRule  string
	}{
		{name: "split point", params: map[string]any{"at": 2}, wantValid: true},
		{name: "explicit groups", params: map[string]any{"front": []string{"A", "B"}, "rear": []string{"C", "D"}}, wantValid: true},
		{name: "reordered", params: map[string]any{"front": []string{"B", "A"}, "rear": []string{"C", "D"}}, wantRule: "order_preserve"},
		{name: "empty group", params: map[string]any{"at": 0}, wantRule: "order_preserve"},
		{name: "single vehicle", params: map[string]any{"at": 3}, wantRule: "guard:no_single_split"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, out := postValidate(t, srv, splitPayload(tc.params))
			if status != http.StatusOK {
				t.Fatalf("expected 200, got %d: %#v", status, out)
			}
			if out["valid"] != tc.wantValid {
				t.Fatalf("expected valid=%v, got %#v", tc.wantValid, out)
			}
			if tc.wantValid {
				return
			}
			violations, _ := out["violations"].([]any)
			if len(violations) != 1 {
				t.Fatalf("expected one violation, got %#v", out["violations"])
			}
			if rule := violations[0].(map[string]any)["rule"]; rule != tc.wantRule {
				t.Fatalf("expected violation from %s, got %v", tc.wantRule, rule)
			}
		})
	}
}

func TestHTTPValidate_CollectAllCombine(t *testing.T) {
	srv := newServer(t, "collect_all")

	status, out := postValidate(t, srv, map[string]any{
		"state": map[string]any{"units": map[string]any{"u1": []string{"A", "B", "C", "D"}, "u2": []string{"E", "F"}}},
		"action": map[string]any{"kind": "combine", "unit": "u1", "params": map[string]any{
			"first": "u1", "second": "u2", "attach": "prepend",
			"merged": []string{"A", "B", "C", "D", "E", "F"},
		}},
		"guards_dot": yardGuards,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if out["valid"] != false {
		t.Fatalf("expected rejection, got %#v", out)
	}
	reason, _ := out["reason"].(string)
	if !strings.Contains(reason, "prepend") || !strings.Contains(reason, "; unit longer than the longest siding") {
		t.Fatalf("expected orientation and length reasons joined, got %q", reason)
	}
}

func TestHTTPValidate_InputErrors(t *testing.T) {
	srv := newServer(t, "fail_fast")

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{name: "duplicate train", payload: map[string]any{
			"state":  map[string]any{"units": map[string]any{"u1": []string{"A"}, "u2": []string{"A"}}},
			"action": map[string]any{"kind": "wait", "unit": "u1"},
		}},
		{name: "unknown param", payload: map[string]any{
			"state":  map[string]any{"units": map[string]any{"u1": []string{"A"}}},
			"action": map[string]any{"kind": "move", "unit": "u1", "params": map[string]any{"speed": 10}},
		}},
		{name: "guard cycle", payload: map[string]any{
			"state":      map[string]any{"units": map[string]any{"u1": []string{"A"}}},
			"action":     map[string]any{"kind": "wait", "unit": "u1"},
			"guards_dot": `digraph { start -> a -> b -> a; a [comment="units > 0", label="a"]; b [comment="units > 0", label="b"]; }`,
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, out := postValidate(t, srv, tc.payload)
			if status != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %#v", status, out)
			}
		})
	}
}

func TestHTTPValidate_ConcurrentRequests(t *testing.T) {
	srv := newServer(t, "fail_fast")

	const workers = 24
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			params, want := map[string]any{"at": 2}, true
			if i%2 == 1 {
				params, want = map[string]any{"front": []string{"A", "C"}, "rear": []string{"B", "D"}}, false
			}
			status, out, raw, err := postValidateNoFatal(srv, splitPayload(params))
			if err != nil {
				errs <- err
				return
			}
			if status != http.StatusOK || out["valid"] != want {
				errs <- fmt.Errorf("worker %d: status %d body %s", i, status, raw)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatal(err)
	}
}

func TestHTTPValidate_MetricsExposed(t *testing.T) {
	srv := newServer(t, "fail_fast")
	postValidate(t, srv, splitPayload(map[string]any{"at": 2}))

	// Observations are delivered asynchronously; closing the observer flushes them.
	srv.rt.Observer.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`yard_rule_verdicts_total{outcome="valid",rule="order_preserve"} 1`,
		`yard_rule_evaluation_seconds_count{rule="guard"} 2`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}

func TestHTTPValidate_RequestGuardsDoNotGrowMetricSeries(t *testing.T) {
	srv := newServer(t, "fail_fast")

	for i := 0; i < 50; i++ {
		payload := splitPayload(map[string]any{"at": 2})
		payload["guards_dot"] = fmt.Sprintf(`digraph g {
  start -> limit_%d;
  limit_%d [comment="vehicles <= 10", label="too long"];
}`, i, i)
		status, out := postValidate(t, srv, payload)
		if status != http.StatusOK || out["valid"] != true {
			t.Fatalf("request %d: unexpected response %d %v", i, status, out)
		}
	}
	srv.rt.Observer.Close()

	n, err := testutil.GatherAndCount(srv.reg, "yard_rule_evaluation_seconds")
	if err != nil {
		t.Fatal(err)
	}
	// unit_exists, order_preserve and the shared guard label.
	if n != 3 {
		t.Fatalf("expected 3 latency series, got %d", n)
	}
}
