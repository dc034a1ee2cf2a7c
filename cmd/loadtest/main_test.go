package main

import (
	"encoding/json"
	"flag"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

func withCLIArgs(t *testing.T, args []string, fn func()) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine

	os.Args = append([]string{"loadtest"}, args...)
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flag.CommandLine = fs

	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	fn()
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    loadMode
		wantErr string
	}{
		{name: "settle", input: "settle", want: modeSettle},
		{name: "settle-note", input: "settle-note", want: modeSettleNote},
		{name: "settle-note-bill", input: "settle-note-bill", want: modeSettleNoteBill},
		{name: "unsupported", input: "bad", wantErr: "unsupported mode"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseMode(tc.input)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected mode: got %q want %q", got, tc.want)
			}
		})
	}
}

func TestParseConfig(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		withCLIArgs(t, []string{
			"-mode=settle-note",
			"-total=12",
			"-concurrency=3",
			"-price-minor=99",
			"-qty=2",
			"-stock=1000",
			"-promo=LOAD10",
			"-output=/tmp/out.json",
		}, func() {
			cfg, err := parseConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !cfg.totalSet {
				t.Fatalf("expected totalSet=true")
			}
			if cfg.duration != 0 {
				t.Fatalf("expected zero duration, got %s", cfg.duration)
			}
			if cfg.mode != modeSettleNote {
				t.Fatalf("unexpected mode: %s", cfg.mode)
			}
			if cfg.total != 12 || cfg.concurrency != 3 {
				t.Fatalf("unexpected numeric config: %+v", cfg)
			}
			if cfg.priceMinor != 99 || cfg.qty != 2 || cfg.stock != 1000 {
				t.Fatalf("unexpected catalog config: %+v", cfg)
			}
			if cfg.promoCode != "LOAD10" {
				t.Fatalf("unexpected promo: %s", cfg.promoCode)
			}
		})
	})

	t.Run("duration mode", func(t *testing.T) {
		withCLIArgs(t, []string{
			"-duration=3s",
			"-concurrency=2",
		}, func() {
			cfg, err := parseConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.duration != 3*time.Second {
				t.Fatalf("unexpected duration: %s", cfg.duration)
			}
			if cfg.totalSet {
				t.Fatalf("expected totalSet=false when -total was not provided")
			}
		})
	})

	t.Run("validation errors", func(t *testing.T) {
		tests := []struct {
			name    string
			args    []string
			wantErr string
		}{
			{name: "invalid duration", args: []string{"-duration=bad"}, wantErr: "parse duration"},
			{name: "negative duration", args: []string{"-duration=-1s"}, wantErr: "duration must be >= 0"},
			{name: "empty total", args: []string{"-duration=0s", "-total=0"}, wantErr: "total must be > 0"},
			{name: "bad price", args: []string{"-price-minor=0"}, wantErr: "price-minor must be > 0"},
			{name: "bad qty", args: []string{"-qty=-1"}, wantErr: "qty must be > 0"},
			{name: "bad concurrency", args: []string{"-concurrency=0"}, wantErr: "concurrency must be > 0"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				withCLIArgs(t, tc.args, func() {
					_, err := parseConfig()
					if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
						t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
					}
				})
			})
		}
	})
}

func TestDispatchJobs(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(jobs, config{total: 5})

		var got []int
		for v := range jobs {
			got = append(got, v)
		}
		if !slices.Equal(got, []int{0, 1, 2, 3, 4}) {
			t.Fatalf("unexpected jobs sequence: %v", got)
		}
	})

	t.Run("duration mode", func(t *testing.T) {
		jobs := make(chan int, 32)
		done := make(chan struct{})
		go func() {
			dispatchJobs(jobs, config{duration: 20 * time.Millisecond})
			close(done)
		}()

		count := 0
		for range jobs {
			count++
		}
		<-done
		if count == 0 {
			t.Fatalf("expected non-zero jobs for duration mode")
		}
	})

	t.Run("duration with explicit max total", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(jobs, config{duration: time.Second, total: 3, totalSet: true})
		count := 0
		for range jobs {
			count++
		}
		if count != 3 {
			t.Fatalf("expected 3 jobs, got %d", count)
		}
	})
}

func TestCollectorAndReport(t *testing.T) {
	c := newCollector()
	c.record("scenario", 10*time.Millisecond, outcomeOK)
	c.record("scenario", 20*time.Millisecond, "error")
	c.record("CreateOrder", 15*time.Millisecond, outcomeOK)

	snap, ok := c.snapshot("scenario")
	if !ok {
		t.Fatalf("scenario snapshot missing")
	}
	if snap.Calls != 2 || snap.Success != 1 || snap.Failed != 1 {
		t.Fatalf("unexpected scenario snapshot: %+v", snap)
	}
	if snap.Outcomes[outcomeOK] != 1 || snap.Outcomes["error"] != 1 {
		t.Fatalf("unexpected outcomes: %+v", snap.Outcomes)
	}

	r := c.buildReport(time.Now(), 2*time.Second)
	if r.TotalScenarios != 2 || r.FailedScenarios != 1 {
		t.Fatalf("unexpected report totals: %+v", r)
	}
	if r.RPS <= 0 {
		t.Fatalf("expected positive rps, got %f", r.RPS)
	}
	if _, ok := r.Steps["CreateOrder"]; !ok {
		t.Fatalf("expected CreateOrder stats in report")
	}
}

func TestUtilityFunctions(t *testing.T) {
	if got := errorOutcome(nil); got != outcomeOK {
		t.Fatalf("errorOutcome(nil) = %s, want ok", got)
	}
	if got := errorOutcome(domain.ErrInsufficientStock); got != domain.ErrInsufficientStock.Error() {
		t.Fatalf("unexpected outcome for sentinel: %s", got)
	}
	if got := errorOutcome(os.ErrClosed); got != "error" {
		t.Fatalf("unexpected outcome for unknown error: %s", got)
	}

	if got := ratio(1, 4); got != 0.25 {
		t.Fatalf("ratio mismatch: %f", got)
	}
	if got := ratio(1, 0); got != 0 {
		t.Fatalf("ratio with zero total must be 0, got %f", got)
	}

	values := []float64{10, 20, 30, 40}
	summary := buildLatencySummary(values)
	if summary.P50 <= 0 || summary.P95 <= 0 || summary.Max != 40 {
		t.Fatalf("unexpected latency summary: %+v", summary)
	}
	if p := percentile(values, 95); p <= 0 {
		t.Fatalf("unexpected percentile: %f", p)
	}
	if buildLatencySummary(nil) != (latencySummary{}) {
		t.Fatalf("empty latency summary must be zero")
	}
}

func TestWriteJSONReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "report.json")

	sample := report{TotalScenarios: 2, SuccessScenarios: 2}
	if err := writeJSONReport(path, sample); err != nil {
		t.Fatalf("writeJSONReport error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	var decoded report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.TotalScenarios != 2 || decoded.SuccessScenarios != 2 {
		t.Fatalf("unexpected decoded report: %+v", decoded)
	}
}

func TestRunScenario_AllModes(t *testing.T) {
	modes := []loadMode{modeSettle, modeSettleNote, modeSettleNoteBill}

	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			cfg := config{
				total:       2,
				concurrency: 1,
				mode:        mode,
				priceMinor:  1500,
				qty:         1,
				stock:       100,
			}

			p, err := buildPipeline(cfg)
			if err != nil {
				t.Fatalf("build pipeline: %v", err)
			}

			col := newCollector()
			for i := 0; i < cfg.total; i++ {
				if err := runScenario(p, cfg, i, "test-run", col); err != nil {
					t.Fatalf("scenario %d failed: %v", i, err)
				}
			}

			snap, ok := col.snapshot("scenario")
			if !ok {
				t.Fatalf("scenario stats missing")
			}
			if snap.Calls != 2 || snap.Failed != 0 {
				t.Fatalf("unexpected scenario stats: %+v", snap)
			}

			if _, ok := col.snapshot("CreateOrder"); !ok {
				t.Fatalf("expected CreateOrder stats")
			}
			if mode != modeSettle {
				if _, ok := col.snapshot("CreateDeliveryNote"); !ok {
					t.Fatalf("expected CreateDeliveryNote stats")
				}
			}
			if mode == modeSettleNoteBill {
				if _, ok := col.snapshot("CreateBill"); !ok {
					t.Fatalf("expected CreateBill stats")
				}
			}
		})
	}
}

func TestRunScenario_StockExhaustion(t *testing.T) {
	cfg := config{
		total:       3,
		concurrency: 1,
		mode:        modeSettle,
		priceMinor:  1000,
		qty:         2,
		stock:       4,
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}

	col := newCollector()
	failures := 0
	for i := 0; i < cfg.total; i++ {
		if err := runScenario(p, cfg, i, "stock-run", col); err != nil {
			failures++
		}
	}

	// Запаса хватает ровно на два сценария по две единицы.
	if failures != 1 {
		t.Fatalf("expected exactly 1 failed scenario, got %d", failures)
	}

	snap, ok := col.snapshot("AddItem")
	if !ok {
		t.Fatalf("AddItem stats missing")
	}
	if snap.Outcomes[domain.ErrInsufficientStock.Error()] != 1 {
		t.Fatalf("expected insufficient stock outcome, got %+v", snap.Outcomes)
	}
}

func TestRunScenario_WithPromo(t *testing.T) {
	cfg := config{
		total:       1,
		concurrency: 1,
		mode:        modeSettle,
		priceMinor:  2000,
		qty:         1,
		stock:       10,
		promoCode:   "LOAD10",
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}

	col := newCollector()
	if err := runScenario(p, cfg, 0, "promo-run", col); err != nil {
		t.Fatalf("scenario failed: %v", err)
	}

	snap, ok := col.snapshot("CreateOrder")
	if !ok {
		t.Fatalf("CreateOrder stats missing")
	}
	if snap.Failed != 0 {
		t.Fatalf("expected successful settlement with promo, got %+v", snap)
	}
}
