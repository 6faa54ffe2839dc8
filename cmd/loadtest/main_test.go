package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/pos-core/internal/service/tranlog"
)

func TestParseMode(t *testing.T) {
	if _, err := parseMode(" sale "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := parseMode("sale-return-void"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := parseMode("create-pay"); err == nil {
		t.Fatal("expected error for unsupported mode")
	}
}

func TestParseConfig_FromFlags(t *testing.T) {
	withFlagArgs(t, []string{
		"-addr=http://localhost:9090",
		"-total=10",
		"-concurrency=2",
		"-mode=sale-void",
		"-void-rate=25",
		"-tenant=tenant-x",
		"-store=100",
		"-terminal=3",
		"-timeout=2s",
	}, func() {
		cfg, err := parseConfig()
		if err != nil {
			t.Fatalf("parseConfig failed: %v", err)
		}
		if cfg.addr != "http://localhost:9090" {
			t.Fatalf("unexpected addr: %s", cfg.addr)
		}
		if cfg.mode != modeSaleVoid {
			t.Fatalf("unexpected mode: %s", cfg.mode)
		}
		if cfg.voidRate != 25 {
			t.Fatalf("unexpected void rate: %d", cfg.voidRate)
		}
		if cfg.timeout != 2*time.Second {
			t.Fatalf("unexpected timeout: %s", cfg.timeout)
		}
	})
}

func TestParseConfig_ValidationErrors(t *testing.T) {
	cases := [][]string{
		{"-total=0"},
		{"-concurrency=0"},
		{"-timeout=0s"},
		{"-void-rate=101"},
		{"-terminal=0"},
		{"-tenant="},
		{"-store= "},
		{"-staff= "},
		{"-mode=unknown"},
	}

	for _, args := range cases {
		withFlagArgs(t, args, func() {
			if _, err := parseConfig(); err == nil {
				t.Fatalf("expected validation error for args %v", args)
			}
		})
	}
}

func TestCollectorRecordAndReport(t *testing.T) {
	col := newCollector()
	col.record("scenario", 10*time.Millisecond, http.StatusOK)
	col.record("scenario", 20*time.Millisecond, http.StatusInternalServerError)
	col.record("sale", 5*time.Millisecond, http.StatusOK)

	result := col.buildReport(time.Now(), time.Second)

	if result.TotalScenarios != 2 || result.SuccessScenarios != 1 || result.FailedScenarios != 1 {
		t.Fatalf("unexpected scenario counters: %+v", result)
	}
	if result.ErrorRate != 0.5 {
		t.Fatalf("unexpected error rate: %f", result.ErrorRate)
	}
	if result.RPS != 2 {
		t.Fatalf("unexpected rps: %f", result.RPS)
	}

	saleStep, ok := result.Steps["sale"]
	if !ok {
		t.Fatal("expected sale step in report")
	}
	if saleStep.Calls != 1 || saleStep.Success != 1 {
		t.Fatalf("unexpected sale step: %+v", saleStep)
	}
	if saleStep.Statuses["200"] != 1 {
		t.Fatalf("unexpected status counters: %+v", saleStep.Statuses)
	}
}

func TestRunScenario_SaleReturnVoid(t *testing.T) {
	var mu sync.Mutex
	var received []tranlog.TranlogEvent

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tranlog" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var envelope tranlog.Envelope
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			t.Errorf("decode envelope: %v", err)
		}
		mu.Lock()
		received = append(received, envelope.Data)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config{
		addr:       server.URL,
		mode:       modeSaleReturnVoid,
		tenantID:   "tenant-1",
		storeCode:  "5825",
		terminalNo: 9,
		staffID:    "staff-1",
	}
	col := newCollector()

	if err := runScenario(server.Client(), cfg, 0, col); err != nil {
		t.Fatalf("runScenario failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 3 {
		t.Fatalf("expected 3 events, got %d", len(received))
	}
	if received[0].TransactionType != tranlog.TypeSale {
		t.Fatalf("unexpected first event type: %s", received[0].TransactionType)
	}
	if received[1].TransactionType != tranlog.TypeReturnSale {
		t.Fatalf("unexpected second event type: %s", received[1].TransactionType)
	}
	if received[1].TargetTransactionNo != received[0].TransactionNo {
		t.Fatal("return must target the sale transaction")
	}
	if received[2].TransactionType != tranlog.TypeVoidReturn {
		t.Fatalf("unexpected third event type: %s", received[2].TransactionType)
	}
	if received[2].TargetTransactionNo != received[1].TransactionNo {
		t.Fatal("void must target the return transaction")
	}
	for _, event := range received {
		if event.EventID == "" {
			t.Fatal("event id must be set")
		}
	}
}

func TestRunScenario_ServerRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := config{
		addr:       server.URL,
		mode:       modeSale,
		tenantID:   "tenant-1",
		storeCode:  "5825",
		terminalNo: 9,
		staffID:    "staff-1",
	}
	col := newCollector()

	err := runScenario(server.Client(), cfg, 0, col)
	if err == nil {
		t.Fatal("expected error for rejected event")
	}
	if statusOf(err) != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", statusOf(err))
	}
}

func TestShouldVoidScenario(t *testing.T) {
	if shouldVoidScenario(0, 0) {
		t.Fatal("zero rate must never void")
	}
	if !shouldVoidScenario(55, 100) {
		t.Fatal("full rate must always void")
	}
	if !shouldVoidScenario(10, 50) {
		t.Fatal("index 10 with rate 50 must void")
	}
	if shouldVoidScenario(60, 50) {
		t.Fatal("index 60 with rate 50 must not void")
	}
}

func TestDispatchJobs_CountMode(t *testing.T) {
	jobs := make(chan int, 10)
	dispatchJobs(jobs, config{total: 5})

	var count int
	for range jobs {
		count++
	}
	if count != 5 {
		t.Fatalf("expected 5 jobs, got %d", count)
	}
}

func TestBuildLatencySummary(t *testing.T) {
	summary := buildLatencySummary([]float64{3, 1, 2})
	if summary.Min != 1 || summary.Max != 3 {
		t.Fatalf("unexpected min/max: %+v", summary)
	}
	if summary.Avg != 2 {
		t.Fatalf("unexpected avg: %f", summary.Avg)
	}
	if summary.P50 != 2 {
		t.Fatalf("unexpected p50: %f", summary.P50)
	}

	empty := buildLatencySummary(nil)
	if empty != (latencySummary{}) {
		t.Fatalf("expected zero summary, got %+v", empty)
	}
}

func TestWriteJSONReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := writeJSONReport(path, report{TotalScenarios: 7}); err != nil {
		t.Fatalf("writeJSONReport failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var decoded report
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.TotalScenarios != 7 {
		t.Fatalf("unexpected total: %d", decoded.TotalScenarios)
	}

	if err := writeJSONReport("..", report{}); err == nil {
		t.Fatal("expected error for parent path")
	}
}

func withFlagArgs(t *testing.T, args []string, fn func()) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine

	os.Args = append([]string{"loadtest"}, args...)
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)

	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	fn()
}
