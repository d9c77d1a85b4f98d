// internal/monitor/price_monitor.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"price-peak-monitor/internal/config"
	"price-peak-monitor/internal/core/domain/snapshot"
	"price-peak-monitor/internal/extractor"
	"price-peak-monitor/internal/fetcher"
	"price-peak-monitor/internal/metrics"
	"price-peak-monitor/internal/notifier"
	"price-peak-monitor/internal/storage"
	"price-peak-monitor/pkg/logger"
	"price-peak-monitor/pkg/utils"

	"github.com/google/uuid"
)

// Dependencies зависимости монитора
type Dependencies struct {
	Config    *config.Config
	Fetcher   fetcher.PageFetcher
	Extractor Extractor
	Store     storage.SnapshotStore
	Notifier  notifier.Notifier
	Metrics   *metrics.Metrics // опционально
	Logger    *logger.Logger   // опционально, по умолчанию глобальный
	Clock     func() time.Time // опционально, для тестов
}

// PriceMonitor опрашивает одну страницу товара и оповещает о новом максимуме.
// Циклы выполняются последовательно в одной горутине.
type PriceMonitor struct {
	cfg       config.MonitorConfig
	fetcher   fetcher.PageFetcher
	extractor Extractor
	store     storage.SnapshotStore
	notifier  notifier.Notifier
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time

	// кэш максимума, загружается из хранилища один раз;
	// при внешнем кэше (Redis) максимум читается из хранилища каждый цикл
	max       snapshot.RunningMaximum
	maxKnown  bool
	maxLoaded bool
	sharedMax bool

	lastCapturedAt time.Time

	mu     sync.RWMutex
	status Status
}

// NewPriceMonitor создает монитор
func NewPriceMonitor(deps Dependencies) (*PriceMonitor, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Fetcher == nil || deps.Extractor == nil || deps.Store == nil || deps.Notifier == nil {
		return nil, fmt.Errorf("fetcher, extractor, store and notifier are required")
	}

	cfg := deps.Config.Monitor
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.PriceScale <= 0 {
		cfg.PriceScale = 100
	}

	log := deps.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	pm := &PriceMonitor{
		cfg:       cfg,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		store:     deps.Store,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		log:       log,
		now:       clock,
	}
	if shared, ok := deps.Store.(storage.SharedMaximum); ok {
		pm.sharedMax = shared.SharesMaximum()
	}
	pm.status = Status{
		RunID:     uuid.NewString(),
		TargetURL: cfg.TargetURL,
		State:     StateIdle,
		StartedAt: clock().UTC(),
	}
	return pm, nil
}

// Run выполняет циклы до отмены ctx. Отмена не считается ошибкой.
func (pm *PriceMonitor) Run(ctx context.Context) error {
	pm.log.Info("🚀 Price monitor %s started: %s every %s", pm.RunID(), pm.cfg.TargetURL, pm.cfg.PollInterval)
	defer func() {
		pm.setState(StateStopped)
		pm.log.Info("🛑 Price monitor %s stopped", pm.RunID())
	}()

	for {
		pm.RunCycle(ctx)
		if err := pm.sleep(ctx); err != nil {
			return nil
		}
	}
}

// RunCycle выполняет один цикл. Любая ошибка изолирована внутри цикла.
func (pm *PriceMonitor) RunCycle(ctx context.Context) CycleResult {
	result := CycleResult{ID: uuid.NewString()}
	start := time.Now()

	result.Outcome, result.Err = pm.cycle(ctx, &result)
	result.Elapsed = time.Since(start)

	logErr := result.Err
	if result.Outcome == OutcomeCanceled {
		logErr = nil
	}
	pm.log.Cycle(result.Outcome.LogLevel(), result.ID, string(result.Outcome), result.Elapsed, logErr)
	pm.metrics.ObserveCycle(string(result.Outcome), result.Elapsed)
	pm.recordCycle(result)

	return result
}

func (pm *PriceMonitor) cycle(ctx context.Context, result *CycleResult) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return OutcomeCanceled, err
	}

	// Fetching
	pm.setState(StateFetching)
	fetchStart := time.Now()
	page, err := pm.fetcher.Get(ctx, pm.cfg.TargetURL, pm.cfg.FetchTimeout)
	pm.metrics.ObserveFetch(time.Since(fetchStart))
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeCanceled, ctx.Err()
		}
		var transportErr *fetcher.TransportError
		if !errors.As(err, &transportErr) {
			err = &fetcher.TransportError{URL: pm.cfg.TargetURL, Err: err}
		}
		return OutcomeTransportError, err
	}
	capturedAt := pm.capturedAt(page.FetchedAt)

	// Extracting
	pm.setState(StateExtracting)
	fields, err := pm.extractor.Extract(page.Body)
	if err != nil {
		return OutcomeExtractionError, err
	}

	// Comparing
	pm.setState(StateComparing)
	max, known, err := pm.currentMaximum(ctx)
	if err != nil {
		return OutcomeStoreError, err
	}

	snap := pm.buildSnapshot(fields, capturedAt)
	isNew := !known || max.Exceeds(snap.NewPrice)

	if err := ctx.Err(); err != nil {
		return OutcomeCanceled, err
	}

	// Persisting
	pm.setState(StatePersisting)
	if err := pm.store.Append(ctx, snap); err != nil {
		return OutcomeStoreError, storage.Wrap(storage.OpAppend, err)
	}
	result.Snapshot = &snap
	pm.metrics.SnapshotAppended(snap.NewPrice)
	pm.logSnapshot(snap)

	if isNew {
		pm.max = snapshot.RunningMaximum{MaxPrice: snap.NewPrice, MaxPriceAt: snap.CapturedAt}
		pm.maxKnown = true
		pm.metrics.SetMaximum(snap.NewPrice)
		result.NewMaximum = true

		pm.log.Info("🏆 New maximum price detected: %s", notifier.FormatPrice(snap.NewPrice, pm.cfg.CurrencySymbol))
		pm.notify(ctx, notifier.NewMaximumMessage(snap.ProductName, snap.NewPrice, pm.cfg.CurrencySymbol))
		return OutcomeNewMaximum, nil
	}

	standing := notifier.StandingMaximumMessage(pm.max, pm.cfg.CurrencySymbol)
	pm.log.Info("📈 %s (current %s, %s, set %s)",
		standing,
		notifier.FormatPrice(snap.NewPrice, pm.cfg.CurrencySymbol),
		utils.FormatPercent(utils.PercentChange(pm.max.MaxPrice, snap.NewPrice)),
		utils.FormatRelativeTime(pm.max.MaxPriceAt, snap.CapturedAt))
	if pm.cfg.NotifyStandingMax {
		pm.notify(ctx, standing)
	}
	return OutcomeStanding, nil
}

// currentMaximum читает максимум из хранилища при первом обращении,
// а для хранилища с общим кэшем на каждом цикле
func (pm *PriceMonitor) currentMaximum(ctx context.Context) (snapshot.RunningMaximum, bool, error) {
	if pm.maxLoaded && !pm.sharedMax {
		return pm.max, pm.maxKnown, nil
	}

	max, known, err := pm.store.CurrentMaximum(ctx)
	if err != nil {
		return snapshot.RunningMaximum{}, false, storage.Wrap(storage.OpMaximum, err)
	}

	firstLoad := !pm.maxLoaded
	pm.max, pm.maxKnown, pm.maxLoaded = max, known, true
	if known {
		pm.metrics.SetMaximum(max.MaxPrice)
		if firstLoad {
			pm.log.Debug("Loaded running maximum %d at %s", max.MaxPrice, max.MaxPriceAt)
		}
	}
	return max, known, nil
}

// buildSnapshot переводит целые единицы в центы
func (pm *PriceMonitor) buildSnapshot(fields extractor.PriceFields, capturedAt time.Time) snapshot.PriceSnapshot {
	scale := pm.cfg.PriceScale
	snap := snapshot.PriceSnapshot{
		ProductName:      fields.ProductName,
		NewPrice:         fields.NewPrice * scale,
		InstallmentPrice: fields.InstallmentPrice * scale,
		CapturedAt:       capturedAt,
	}
	if fields.OldPrice != nil {
		snap.OldPrice = snapshot.Int64(*fields.OldPrice * scale)
	}
	return snap
}

// capturedAt время получения страницы; если загрузчик его не указал,
// берутся часы монитора. Не убывает даже при откате системных часов.
func (pm *PriceMonitor) capturedAt(fetchedAt time.Time) time.Time {
	now := fetchedAt
	if now.IsZero() {
		now = pm.now()
	}
	now = now.UTC()
	if now.Before(pm.lastCapturedAt) {
		now = pm.lastCapturedAt
	}
	pm.lastCapturedAt = now
	return now
}

func (pm *PriceMonitor) notify(ctx context.Context, message string) {
	pm.setState(StateNotifying)

	notifyCtx := ctx
	if pm.cfg.NotifyTimeout > 0 {
		var cancel context.CancelFunc
		notifyCtx, cancel = context.WithTimeout(ctx, pm.cfg.NotifyTimeout)
		defer cancel()
	}

	if err := pm.notifier.Notify(notifyCtx, message); err != nil {
		pm.metrics.NotificationFailed()
		pm.log.Warn("⚠️ Alert delivery failed: %v", err)
	}
}

func (pm *PriceMonitor) logSnapshot(s snapshot.PriceSnapshot) {
	old := "-"
	if s.OldPrice != nil {
		old = notifier.FormatPrice(*s.OldPrice, pm.cfg.CurrencySymbol)
	}
	pm.log.Info("💾 Snapshot saved: %q new=%s old=%s installment=%s",
		s.ProductName,
		notifier.FormatPrice(s.NewPrice, pm.cfg.CurrencySymbol),
		old,
		notifier.FormatPrice(s.InstallmentPrice, pm.cfg.CurrencySymbol))
}

// sleep ждет интервал опроса, прерывается отменой ctx
func (pm *PriceMonitor) sleep(ctx context.Context) error {
	pm.setState(StateSleeping)

	timer := time.NewTimer(pm.cfg.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		pm.setState(StateIdle)
		return nil
	}
}

// Status возвращает копию текущего состояния
func (pm *PriceMonitor) Status() Status {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	status := pm.status
	if status.Maximum != nil {
		max := *status.Maximum
		status.Maximum = &max
	}
	return status
}

func (pm *PriceMonitor) RunID() string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.status.RunID
}

func (pm *PriceMonitor) setState(state State) {
	pm.mu.Lock()
	pm.status.State = state
	pm.mu.Unlock()
}

func (pm *PriceMonitor) recordCycle(result CycleResult) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.status.Cycles++
	pm.status.LastCycleID = result.ID
	pm.status.LastOutcome = result.Outcome
	pm.status.LastCycleAt = pm.now().UTC()
	pm.status.LastError = ""
	if result.Err != nil {
		pm.status.LastError = result.Err.Error()
	}
	if result.Snapshot != nil {
		pm.status.LastPrice = result.Snapshot.NewPrice
	}
	if pm.maxKnown {
		max := pm.max
		pm.status.Maximum = &max
	}
}
