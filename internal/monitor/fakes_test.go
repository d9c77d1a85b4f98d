package monitor

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"price-peak-monitor/internal/config"
	"price-peak-monitor/internal/core/domain/snapshot"
	"price-peak-monitor/internal/extractor"
	"price-peak-monitor/internal/fetcher"
	"price-peak-monitor/internal/storage"
	"price-peak-monitor/pkg/logger"
)

const testURL = "https://shop.test/p/MLB1"

func productPage(title string, amounts ...string) string {
	html := "<html><body>"
	if title != "" {
		html += fmt.Sprintf(`<h1 class="ui-pdp-title">%s</h1>`, title)
	}
	for _, a := range amounts {
		html += fmt.Sprintf(`<span class="andes-money-amount__fraction">%s</span>`, a)
	}
	return html + "</body></html>"
}

// pageWithPrice страница со скидкой, текущая цена в целых единицах
func pageWithPrice(price int64) string {
	p := strconv.FormatInt(price, 10)
	return productPage("Notebook", strconv.FormatInt(price+1000, 10), p, "100")
}

type fetchResponse struct {
	page fetcher.Page
	err  error
}

// fakeFetcher отдает ответы по очереди, последний повторяется
type fakeFetcher struct {
	mu        sync.Mutex
	responses []fetchResponse
	calls     int
	onCall    func(call int)
}

func newPriceFetcher(prices ...int64) *fakeFetcher {
	f := &fakeFetcher{}
	for _, p := range prices {
		f.responses = append(f.responses, fetchResponse{page: fetcher.Page{Status: 200, Body: pageWithPrice(p)}})
	}
	return f
}

func (f *fakeFetcher) Get(ctx context.Context, url string, timeout time.Duration) (fetcher.Page, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	idx := call - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	resp := f.responses[idx]
	onCall := f.onCall
	f.mu.Unlock()

	if onCall != nil {
		onCall(call)
	}
	return resp.page, resp.err
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// faultyStore оборачивает хранилище и внедряет ошибки
type faultyStore struct {
	*storage.InMemoryStorage
	appendErr    error
	maximumErr   error
	maximumCalls int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{InMemoryStorage: storage.NewInMemoryStorage()}
}

func (s *faultyStore) Append(ctx context.Context, snap snapshot.PriceSnapshot) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.InMemoryStorage.Append(ctx, snap)
}

func (s *faultyStore) CurrentMaximum(ctx context.Context) (snapshot.RunningMaximum, bool, error) {
	s.maximumCalls++
	if s.maximumErr != nil {
		return snapshot.RunningMaximum{}, false, s.maximumErr
	}
	return s.InMemoryStorage.CurrentMaximum(ctx)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return n.err
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// stepClock возвращает заданные моменты по очереди, последний повторяется
type stepClock struct {
	mu    sync.Mutex
	times []time.Time
	idx   int
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.times[c.idx]
	if c.idx < len(c.times)-1 {
		c.idx++
	}
	return t
}

// countingCache кэш максимума в памяти, считает чтения и попадания
type countingCache struct {
	mu   sync.Mutex
	max  snapshot.RunningMaximum
	ok   bool
	gets int
	hits int
}

func (c *countingCache) GetMaximum(context.Context) (snapshot.RunningMaximum, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.ok {
		c.hits++
	}
	return c.max, c.ok, nil
}

func (c *countingCache) SetMaximum(_ context.Context, max snapshot.RunningMaximum) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.max, c.ok = max, true
	return nil
}

func (c *countingCache) InvalidateMaximum(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.max, c.ok = snapshot.RunningMaximum{}, false
	return nil
}

func (c *countingCache) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

// manualClock часы, которые двигает сам тест
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// slowMaximumStore двигает часы при чтении максимума, как медленный Redis
type slowMaximumStore struct {
	*faultyStore
	clock *manualClock
	delay time.Duration
}

func (s *slowMaximumStore) CurrentMaximum(ctx context.Context) (snapshot.RunningMaximum, bool, error) {
	s.clock.Advance(s.delay)
	return s.faultyStore.CurrentMaximum(ctx)
}

func testConfig() *config.Config {
	return &config.Config{
		Monitor: config.MonitorConfig{
			TargetURL:      testURL,
			PollInterval:   time.Millisecond,
			FetchTimeout:   time.Second,
			NotifyTimeout:  time.Second,
			PriceScale:     100,
			CurrencySymbol: "R$",
		},
	}
}

type monitorFixture struct {
	monitor  *PriceMonitor
	fetcher  *fakeFetcher
	store    *faultyStore
	notifier *recordingNotifier
}

func newFixture(t *testing.T, f *fakeFetcher, mutate ...func(*config.Config, *Dependencies)) *monitorFixture {
	t.Helper()

	fx := &monitorFixture{
		fetcher:  f,
		store:    newFaultyStore(),
		notifier: &recordingNotifier{},
	}
	cfg := testConfig()
	deps := Dependencies{
		Config:    cfg,
		Fetcher:   fx.fetcher,
		Extractor: extractor.New(),
		Store:     fx.store,
		Notifier:  fx.notifier,
		Logger:    logger.New(io.Discard, "DEBUG"),
	}
	for _, m := range mutate {
		m(cfg, &deps)
	}

	pm, err := NewPriceMonitor(deps)
	if err != nil {
		t.Fatalf("NewPriceMonitor: %v", err)
	}
	fx.monitor = pm
	return fx
}
