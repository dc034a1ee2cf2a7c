package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/service/cart"
	"github.com/vladislavdragonenkov/commerce/internal/service/document"
	"github.com/vladislavdragonenkov/commerce/internal/service/settlement"
	"github.com/vladislavdragonenkov/commerce/internal/storage/memory"
)

const (
	defaultPriceMinor = int64(1500)
	defaultQty        = int64(1)

	outcomeOK = "ok"
)

type loadMode string

const (
	modeSettle         loadMode = "settle"
	modeSettleNote     loadMode = "settle-note"
	modeSettleNoteBill loadMode = "settle-note-bill"
)

type config struct {
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	mode        loadMode
	priceMinor  int64
	qty         int64
	stock       int64
	promoCode   string
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type stepReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Outcomes  map[string]int64 `json:"outcomes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time             `json:"started_at"`
	DurationSeconds   float64               `json:"duration_seconds"`
	TotalScenarios    int64                 `json:"total_scenarios"`
	SuccessScenarios  int64                 `json:"success_scenarios"`
	FailedScenarios   int64                 `json:"failed_scenarios"`
	ErrorRate         float64               `json:"error_rate"`
	RPS               float64               `json:"rps"`
	ScenarioLatencyMs latencySummary        `json:"scenario_latency_ms"`
	Steps             map[string]stepReport `json:"steps"`
}

type stepStats struct {
	calls     int64
	success   int64
	failed    int64
	outcomes  map[string]int64
	latencies []float64
}

type collector struct {
	mu    sync.Mutex
	steps map[string]*stepStats
}

func newCollector() *collector {
	return &collector{
		steps: make(map[string]*stepStats),
	}
}

func (c *collector) record(step string, latency time.Duration, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.steps[step]
	if !ok {
		stats = &stepStats{
			outcomes: make(map[string]int64),
		}
		c.steps[step] = stats
	}

	stats.calls++
	if outcome == outcomeOK {
		stats.success++
	} else {
		stats.failed++
	}
	stats.outcomes[outcome]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) snapshot(name string) (stepReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.steps[name]
	if !ok {
		return stepReport{}, false
	}

	outcomesCopy := make(map[string]int64, len(stats.outcomes))
	for outcome, count := range stats.outcomes {
		outcomesCopy[outcome] = count
	}

	return stepReport{
		Calls:     stats.calls,
		Success:   stats.success,
		Failed:    stats.failed,
		ErrorRate: ratio(stats.failed, stats.calls),
		Outcomes:  outcomesCopy,
		LatencyMs: buildLatencySummary(stats.latencies),
	}, true
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Steps:           make(map[string]stepReport, len(c.steps)),
	}

	scenarioStats := c.steps["scenario"]
	if scenarioStats != nil {
		result.TotalScenarios = scenarioStats.calls
		result.SuccessScenarios = scenarioStats.success
		result.FailedScenarios = scenarioStats.failed
		result.ErrorRate = ratio(scenarioStats.failed, scenarioStats.calls)
		result.ScenarioLatencyMs = buildLatencySummary(scenarioStats.latencies)
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	for name, stats := range c.steps {
		outcomesCopy := make(map[string]int64, len(stats.outcomes))
		for outcome, count := range stats.outcomes {
			outcomesCopy[outcome] = count
		}
		result.Steps[name] = stepReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Outcomes:  outcomesCopy,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}

	return result
}

func parseConfig() (config, error) {
	var cfg config
	var modeValue string
	var durationValue string

	flag.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	flag.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 30s, 5m)")
	flag.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	flag.StringVar(&modeValue, "mode", string(modeSettle), "load mode: settle | settle-note | settle-note-bill")
	flag.Int64Var(&cfg.priceMinor, "price-minor", defaultPriceMinor, "variant price in minor units")
	flag.Int64Var(&cfg.qty, "qty", defaultQty, "quantity per cart line")
	flag.Int64Var(&cfg.stock, "stock", 0, "initial variant stock (0 = unbounded for the run)")
	flag.StringVar(&cfg.promoCode, "promo", "", "optional promo code applied to every settlement")
	flag.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	flag.Parse()

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	flag.CommandLine.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	if cfg.duration < 0 {
		return cfg, errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.concurrency <= 0 {
		return cfg, errors.New("concurrency must be > 0")
	}
	if cfg.priceMinor <= 0 {
		return cfg, errors.New("price-minor must be > 0")
	}
	if cfg.qty <= 0 {
		return cfg, errors.New("qty must be > 0")
	}
	if cfg.stock < 0 {
		return cfg, errors.New("stock must be >= 0")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.TrimSpace(value)) {
	case modeSettle:
		return modeSettle, nil
	case modeSettleNote:
		return modeSettleNote, nil
	case modeSettleNoteBill:
		return modeSettleNoteBill, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

// pipeline — in-process сборка пайплайна расчёта поверх in-memory хранилища.
// Бенчмарк меряет сам пайплайн, без сети и диска.
type pipeline struct {
	carts    domain.CartRepository
	clients  domain.ClientRepository
	variants domain.VariantRepository

	cartSvc       *cart.Service
	settlementSvc *settlement.Service
	documents     *document.Manager

	productID  string
	variantID  string
	shippingID string
	currencyID string
}

func buildPipeline(cfg config) (*pipeline, error) {
	logger := log.New()
	logger.SetLevel(log.WarnLevel)
	entry := logger.WithField("component", "loadtest")

	carts := memory.NewCartRepository()
	clients := memory.NewClientRepository()
	orders := memory.NewOrderRepository()
	products := memory.NewProductRepository()
	variants := memory.NewVariantRepository()
	shipping := memory.NewShippingRepository()
	sellers := memory.NewSellerRepository()
	promos := memory.NewPromoCodeRepository()
	currencies := memory.NewCurrencyRepository()
	notes := memory.NewDeliveryNoteRepository()
	bills := memory.NewBillRepository()
	allocator := memory.NewControlNumberAllocator()
	outbox := memory.NewOutboxRepository()
	timeline := memory.NewTimelineRepository()

	store, err := memory.NewSettlementStore(carts, orders, clients)
	if err != nil {
		return nil, fmt.Errorf("build settlement store: %w", err)
	}

	p := &pipeline{
		carts:      carts,
		clients:    clients,
		variants:   variants,
		productID:  uuid.NewString(),
		variantID:  uuid.NewString(),
		shippingID: uuid.NewString(),
		currencyID: uuid.NewString(),
	}

	if err := products.Create(domain.Product{
		ID:     p.productID,
		Title:  "Loadtest Product",
		Active: true,
	}); err != nil {
		return nil, fmt.Errorf("seed product: %w", err)
	}

	stock := cfg.stock
	if stock == 0 {
		// Запас, который заведомо не исчерпается за прогон.
		stock = math.MaxInt64 / 2
	}
	if err := variants.Create(domain.VariantValue{
		ID:         p.variantID,
		ProductID:  p.productID,
		SKU:        "SKU-LOAD",
		PriceMinor: cfg.priceMinor,
		Quantity:   stock,
	}); err != nil {
		return nil, fmt.Errorf("seed variant: %w", err)
	}

	if err := shipping.Create(domain.Shipping{
		ID:         p.shippingID,
		Slug:       "loadtest",
		Name:       "Loadtest Shipping",
		PriceMinor: 500,
		Active:     true,
	}); err != nil {
		return nil, fmt.Errorf("seed shipping: %w", err)
	}

	if err := currencies.Create(domain.Currency{
		ID:     p.currencyID,
		Slug:   "usd",
		Name:   "US Dollar",
		Symbol: "$",
		Rate:   1,
		Active: true,
	}); err != nil {
		return nil, fmt.Errorf("seed currency: %w", err)
	}

	if cfg.promoCode != "" {
		if err := promos.Create(domain.PromoCode{
			ID:             uuid.NewString(),
			Code:           cfg.promoCode,
			Discount:       10,
			Percentage:     true,
			ExpirationDate: time.Now().UTC().Add(24 * time.Hour),
			Active:         true,
		}); err != nil {
			return nil, fmt.Errorf("seed promo: %w", err)
		}
	}

	p.documents = document.NewManager(
		orders, notes, bills, currencies, allocator, outbox, timeline,
		nil, entry.WithField("component", "document"),
	)

	p.settlementSvc = settlement.NewServiceWithoutMetrics(settlement.Deps{
		Carts:     carts,
		Clients:   clients,
		Sellers:   sellers,
		Shipping:  shipping,
		Promos:    promos,
		Orders:    orders,
		Products:  products,
		Variants:  variants,
		Store:     store,
		Outbox:    outbox,
		Timeline:  timeline,
		Documents: p.documents,
	}, entry.WithField("component", "settlement"))

	p.cartSvc = cart.NewService(carts, products, variants, entry.WithField("component", "cart"))

	return p, nil
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to build pipeline: %v\n", err)
		os.Exit(1)
	}

	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var failures int64
	var wg sync.WaitGroup

	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if runErr := runScenario(p, cfg, id, runID, col); runErr != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	duration := time.Since(startedAt)
	result := col.buildReport(startedAt, duration)
	if result.FailedScenarios == 0 && failures > 0 {
		result.FailedScenarios = failures
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}

	printReport(result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

// runScenario прогоняет один сквозной цикл: корзина → расчёт → документы.
func runScenario(p *pipeline, cfg config, index int, runID string, col *collector) error {
	scenarioStart := time.Now()
	scenarioOutcome := outcomeOK
	defer func() {
		col.record("scenario", time.Since(scenarioStart), scenarioOutcome)
	}()

	cartID := fmt.Sprintf("cart-%s-%d", runID, index)
	clientID := fmt.Sprintf("client-%s-%d", runID, index)

	if err := p.carts.Create(domain.Cart{ID: cartID}); err != nil {
		scenarioOutcome = errorOutcome(err)
		return err
	}
	if err := p.clients.Create(domain.Client{ID: clientID, CartID: cartID}); err != nil {
		scenarioOutcome = errorOutcome(err)
		return err
	}

	addStart := time.Now()
	_, err := p.cartSvc.AddItem(cartID, p.productID, p.variantID, cfg.qty)
	col.record("AddItem", time.Since(addStart), errorOutcome(err))
	if err != nil {
		scenarioOutcome = errorOutcome(err)
		return err
	}

	settleStart := time.Now()
	order, err := p.settlementSvc.CreateOrder(settlement.CreateOrderInput{
		CartID:     cartID,
		ClientID:   clientID,
		ShippingID: p.shippingID,
		PromoCode:  cfg.promoCode,
		Rate:       1,
	})
	col.record("CreateOrder", time.Since(settleStart), errorOutcome(err))
	if err != nil {
		scenarioOutcome = errorOutcome(err)
		return err
	}
	if order.ID == "" {
		scenarioOutcome = "empty_order_id"
		return errors.New("settlement returned empty order id")
	}

	if cfg.mode == modeSettle {
		return nil
	}

	// FSM не допускает прямой переход pending_payment → paid.
	payStart := time.Now()
	updated, err := payOrder(p, order.ID)
	col.record("PayOrder", time.Since(payStart), errorOutcome(err))
	if err != nil {
		scenarioOutcome = errorOutcome(err)
		return err
	}

	noteStart := time.Now()
	note, _, err := p.documents.CreateDeliveryNote(updated.ID, updated.Paid)
	col.record("CreateDeliveryNote", time.Since(noteStart), errorOutcome(err))
	if err != nil {
		scenarioOutcome = errorOutcome(err)
		return err
	}

	if cfg.mode == modeSettleNote {
		return nil
	}

	billStart := time.Now()
	_, err = p.documents.CreateBill(note.ID, p.currencyID, 1)
	col.record("CreateBill", time.Since(billStart), errorOutcome(err))
	if err != nil {
		scenarioOutcome = errorOutcome(err)
		return err
	}

	return nil
}

func payOrder(p *pipeline, orderID string) (domain.Order, error) {
	if _, err := p.settlementSvc.UpdateOrder(orderID, domain.OrderStatusAdminReview, false, false); err != nil {
		return domain.Order{}, err
	}
	return p.settlementSvc.UpdateOrder(orderID, domain.OrderStatusPaid, true, false)
}

func errorOutcome(err error) string {
	if err == nil {
		return outcomeOK
	}

	known := []error{
		domain.ErrCartNotFound,
		domain.ErrCartAlreadySettled,
		domain.ErrItemsRequired,
		domain.ErrInsufficientStock,
		domain.ErrVariantDisabled,
		domain.ErrProductUnavailable,
		domain.ErrPromoInvalid,
		domain.ErrPromoExpired,
		domain.ErrVersionConflict,
		domain.ErrStatusTransition,
		domain.ErrDeliveryNoteExists,
		domain.ErrBillExists,
	}
	for _, sentinel := range known {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "error"
}

func ratio(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func buildLatencySummary(latencies []float64) latencySummary {
	if len(latencies) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(latencies))
	copy(sorted, latencies)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

func printReport(result report, cfg config) {
	fmt.Printf("mode=%s scenarios=%d success=%d failed=%d error_rate=%.4f rps=%.1f\n",
		cfg.mode,
		result.TotalScenarios,
		result.SuccessScenarios,
		result.FailedScenarios,
		result.ErrorRate,
		result.RPS,
	)
	fmt.Printf("scenario latency ms: p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95,
		result.ScenarioLatencyMs.P99,
		result.ScenarioLatencyMs.Max,
	)

	names := make([]string, 0, len(result.Steps))
	for name := range result.Steps {
		if name == "scenario" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		step := result.Steps[name]
		fmt.Printf("  %-18s calls=%d failed=%d p95=%.2fms\n",
			name, step.Calls, step.Failed, step.LatencyMs.P95)
	}
}

func writeJSONReport(path string, result report) error {
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}

	return nil
}
