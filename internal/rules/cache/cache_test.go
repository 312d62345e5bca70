package cache

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/awmpietro/shunting-action-validator/internal/rules/guard"
)

func readGuards(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "guard", "testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

// compileCounting compiles dot with the real guard compiler and counts calls.
func compileCounting(dot string, calls *atomic.Int32, delay time.Duration) func() (*guard.Chain, error) {
	return func() (*guard.Chain, error) {
		calls.Add(1)
		time.Sleep(delay)
		return guard.NewCompiler().Compile(dot)
	}
}

func TestInMemory_GetOrCompute_DeduplicatesConcurrentSameChain(t *testing.T) {
	c := NewInMemory(16)
	dot := readGuards(t, "yard_limits.dot")
	var calls atomic.Int32
	fn := compileCounting(dot, &calls, 30*time.Millisecond)

	const n = 20
	var wg sync.WaitGroup
	chains := make(chan *guard.Chain, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chain, err := c.GetOrCompute(dot, fn)
			if err != nil {
				errs <- err
				return
			}
			chains <- chain
		}()
	}
	wg.Wait()
	close(errs)
	close(chains)

	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}

	var first *guard.Chain
	for chain := range chains {
		if first == nil {
			first = chain
		}
		if chain != first {
			t.Fatalf("expected every caller to share one compiled chain")
		}
	}
	if first.Name != "yard_limits" || first.Len() != 3 {
		t.Fatalf("unexpected chain %q with %d guards", first.Name, first.Len())
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one compilation, got %d", got)
	}
}

func TestInMemory_GetOrCompute_CompileErrorIsNotCached(t *testing.T) {
	c := NewInMemory(16)
	var calls atomic.Int32

	branching := readGuards(t, "branching.dot")
	_, err := c.GetOrCompute(branching, compileCounting(branching, &calls, 0))
	if err == nil || !strings.Contains(err.Error(), "single chain") {
		t.Fatalf("expected branching chain to fail, got %v", err)
	}
	_, err = c.GetOrCompute(branching, compileCounting(branching, &calls, 0))
	if err == nil {
		t.Fatalf("expected second lookup to fail again")
	}

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected compile to run twice (error should not be cached), got %d", got)
	}
	if c.Len() != 0 {
		t.Fatalf("expected nothing cached, got %d", c.Len())
	}
}

func TestInMemory_GetOrCompute_PanicDoesNotBlockWaiters(t *testing.T) {
	c := NewInMemory(16)
	dot := readGuards(t, "yard_limits.dot")
	var calls atomic.Int32

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrCompute(dot, func() (*guard.Chain, error) {
				calls.Add(1)
				time.Sleep(10 * time.Millisecond)
				panic("boom")
			})
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err == nil || !strings.Contains(err.Error(), "panicked") {
			t.Fatalf("expected panic converted into error, got %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected single in-flight execution, got %d", got)
	}

	var retries atomic.Int32
	chain, err := c.GetOrCompute(dot, compileCounting(dot, &retries, 0))
	if err != nil || chain.Len() != 3 {
		t.Fatalf("expected recompilation after panic, got %v", err)
	}
	if retries.Load() != 1 {
		t.Fatalf("expected the panic not to be cached")
	}
}

func TestInMemory_GetOrCompute_BoundedSize(t *testing.T) {
	c := NewInMemory(1)
	var calls atomic.Int32

	a := readGuards(t, "yard_limits.dot")
	b := `digraph other { start -> short; short [comment="vehicles <= 2", label="too long"]; }`

	for _, dot := range []string{a, b, b, a} {
		if _, err := c.GetOrCompute(dot, compileCounting(dot, &calls, 0)); err != nil {
			t.Fatal(err)
		}
	}

	if c.Len() != 1 {
		t.Fatalf("expected 1 cached chain, got %d", c.Len())
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected uncached chain to compile each time, got %d calls", got)
	}
}
