// Package engine coordinates the tick-driven trading pipeline: indicator
// updates, exit evaluation, risk recomputation, and entries, all under one
// critical section so concurrent tick streams never interleave partial
// updates to shared portfolio state.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trendbot-go/internal/indicator"
	"trendbot-go/internal/ledger"
	"trendbot-go/internal/market"
	"trendbot-go/internal/risk"
)

const (
	warmupInterval = "1m"
	// minAccountSyncInterval rate-limits live account refreshes.
	minAccountSyncInterval = 5 * time.Second
	effectQueueSize        = 256
)

// Config carries the engine's trading parameters.
type Config struct {
	Symbols               []string
	CandleLookback        int
	TakeProfitPct         float64
	StopLossPct           float64
	MinVolatilityPct      float64
	MaxPositionsPerSymbol int
	OrderSizeUSD          float64
	Leverage              float64
	MinTradeInterval      time.Duration
	StartingBalance       float64
	MaxDrawdownPct        float64
	RiskCooldown          time.Duration
	Live                  bool
	LiveBalanceFraction   float64
	StatusInterval        time.Duration
	AccountSyncInterval   time.Duration
}

// Engine owns every piece of mutable trading state. All mutation happens
// under mu; collaborator calls triggered by a decision run on the dispatcher
// after the lock is released.
type Engine struct {
	cfg   Config
	log   zerolog.Logger
	clock Clock

	feed     TickFeed
	executor OrderExecutor
	account  AccountSyncer
	notifier Notifier
	recorder Recorder

	mu         sync.Mutex
	states     map[string]*indicator.State
	book       *ledger.Book
	governor   *risk.Governor
	wasRiskOff bool
	started    time.Time

	// Live account figures refreshed by the sync task; when synced they
	// override the simulated balance for equity and sizing.
	liveWallet float64
	liveUnreal float64
	liveSynced bool

	effects chan effect
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithClock injects a clock; tests use a manual one.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithExecutor enables best-effort live order mirroring.
func WithExecutor(x OrderExecutor) Option {
	return func(e *Engine) { e.executor = x }
}

// WithAccountSyncer enables the periodic live account refresh.
func WithAccountSyncer(a AccountSyncer) Option {
	return func(e *Engine) { e.account = a }
}

// WithNotifier routes trade and status messages to a notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithRecorder persists closed trades and equity samples.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// New warms up indicator state for every configured symbol and builds the
// engine. Any symbol with an empty historical set aborts construction: the
// engine refuses to start trading blind.
func New(ctx context.Context, cfg Config, log zerolog.Logger, history HistoryProvider, feed TickFeed, opts ...Option) (*Engine, error) {
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("engine: no symbols configured")
	}

	e := &Engine{
		cfg:      cfg,
		log:      log,
		clock:    SystemClock(),
		feed:     feed,
		notifier: nopNotifier{},
		recorder: nopRecorder{},
		states:   make(map[string]*indicator.State, len(cfg.Symbols)),
		book:     ledger.NewBook(cfg.StartingBalance),
		governor: risk.NewGovernor(cfg.MaxDrawdownPct, cfg.RiskCooldown),
		effects:  make(chan effect, effectQueueSize),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, sym := range cfg.Symbols {
		candles, err := history.HistoricalCandles(ctx, sym, warmupInterval, cfg.CandleLookback)
		if err != nil {
			return nil, fmt.Errorf("engine: warm-up fetch for %s: %w", sym, err)
		}
		st, err := indicator.New(sym, candles, cfg.CandleLookback)
		if err != nil {
			return nil, fmt.Errorf("engine: warm-up: %w", err)
		}
		e.states[sym] = st
		log.Info().Str("symbol", sym).Int("candles", len(candles)).Msg("symbol warmed up")
	}
	return e, nil
}

// Run starts the per-symbol workers, the dispatcher, and the periodic tasks,
// then blocks on the feed until the context is canceled. In-flight tick
// pipelines always complete; shutdown is cooperative.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	e.started = e.clock.Now()
	e.mu.Unlock()

	var wg sync.WaitGroup

	workers := make(map[string]chan<- market.Tick, len(e.states))
	for sym := range e.states {
		ch := make(chan market.Tick, 64)
		workers[sym] = ch
		wg.Add(1)
		go func(in <-chan market.Tick) {
			defer wg.Done()
			e.runWorker(ctx, in)
		}(ch)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.runDispatcher(ctx)
	}()

	if e.cfg.StatusInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.runStatusLoop(ctx)
		}()
	}

	if e.cfg.Live && e.account != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.runAccountSync(ctx)
		}()
	}

	ticks := make(chan market.Tick, 1024)
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.routeTicks(ctx, ticks, workers)
	}()

	e.log.Info().Int("symbols", len(e.states)).Bool("live", e.cfg.Live).Msg("engine started")
	err := e.feed.Run(ctx, ticks)
	cancel()
	wg.Wait()

	if err != nil && ctx.Err() != nil {
		// Cooperative shutdown, not a failure.
		return nil
	}
	return err
}

// routeTicks fans the feed's stream out to one worker per symbol. Ticks for
// unknown symbols are dropped.
func (e *Engine) routeTicks(ctx context.Context, in <-chan market.Tick, workers map[string]chan<- market.Tick) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-in:
			ch, ok := workers[t.Symbol]
			if !ok {
				continue
			}
			select {
			case ch <- t:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (e *Engine) runWorker(ctx context.Context, in <-chan market.Tick) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-in:
			e.OnTick(t)
		}
	}
}

func (e *Engine) runStatusLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := e.Snapshot()
			e.notifier.Notify(s.Format())
			e.recorder.RecordEquity(e.clock.Now(), s.Equity, s.Drawdown)
		}
	}
}

// runAccountSync refreshes live wallet figures on a fixed interval, never
// more often than minAccountSyncInterval.
func (e *Engine) runAccountSync(ctx context.Context) {
	interval := e.cfg.AccountSyncInterval
	if interval < minAccountSyncInterval {
		interval = minAccountSyncInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			callCtx, cancel := context.WithTimeout(ctx, interval)
			wallet, unreal, err := e.account.AccountSnapshot(callCtx)
			cancel()
			if err != nil {
				e.log.Warn().Err(err).Msg("account sync failed")
				continue
			}
			e.mu.Lock()
			e.liveWallet = wallet
			e.liveUnreal = unreal
			e.liveSynced = true
			e.mu.Unlock()
		}
	}
}
