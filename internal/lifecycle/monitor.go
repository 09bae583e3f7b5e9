package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fashionshop/storefront-notifier/internal/delivery"
	"github.com/fashionshop/storefront-notifier/pkg/config"
	"github.com/fashionshop/storefront-notifier/pkg/enums"
	"github.com/fashionshop/storefront-notifier/pkg/logger"
)

// checker is the slice of the polling engine the monitor drives.
type checker interface {
	CheckAll(ctx context.Context, mode enums.PollMode)
	CheckForNewProducts(ctx context.Context, mode enums.PollMode)
	CheckForOrderStatusChanges(ctx context.Context, mode enums.PollMode)
}

// Params configure the lifecycle monitor.
type Params struct {
	Logger *logger.Logger
	Engine checker
	State  *AppState
	Config config.PollConfig

	// OnNavigate receives the deferred navigation payload consumed on the
	// next foreground transition. Optional.
	OnNavigate func(delivery.TapMetadata)
}

// Monitor owns the polling timers and reacts to host lifecycle transitions.
// Foregrounded: independent product (60s) and order (30s) tickers, both fired
// once immediately. Backgrounded: a single slower combined ticker that stops
// itself when the host has frozen the process past its execution budget.
type Monitor struct {
	logg       *logger.Logger
	engine     checker
	state      *AppState
	cfg        config.PollConfig
	onNavigate func(delivery.TapMetadata)

	transitions chan Phase

	mu         sync.Mutex
	pendingNav *delivery.TapMetadata

	now func() time.Time
}

// NewMonitor wires the monitor dependencies.
func NewMonitor(params Params) (*Monitor, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("engine required")
	}
	if params.State == nil {
		return nil, fmt.Errorf("app state required")
	}
	return &Monitor{
		logg:        params.Logger,
		engine:      params.Engine,
		state:       params.State,
		cfg:         params.Config,
		onNavigate:  params.OnNavigate,
		transitions: make(chan Phase, 8),
		now:         time.Now,
	}, nil
}

// Transition reports a host lifecycle change. Queued to the monitor loop so
// timer rewiring always happens on one goroutine.
func (m *Monitor) Transition(ctx context.Context, phase Phase) error {
	if !phase.IsValid() {
		return fmt.Errorf("invalid lifecycle phase %q", phase)
	}
	select {
	case m.transitions <- phase:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetPendingNavigation queues a navigation intent captured from a notification
// tapped while the app was not foregrounded. Overwrites any previous intent;
// consumed exactly once on the next foreground transition.
func (m *Monitor) SetPendingNavigation(tap delivery.TapMetadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingNav = &tap
}

// PendingNavigation reads the queued intent without consuming it.
func (m *Monitor) PendingNavigation() (delivery.TapMetadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingNav == nil {
		return delivery.TapMetadata{}, false
	}
	return *m.pendingNav, true
}

func (m *Monitor) consumePendingNavigation() (delivery.TapMetadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingNav == nil {
		return delivery.TapMetadata{}, false
	}
	tap := *m.pendingNav
	m.pendingNav = nil
	return tap, true
}

// backgroundBudget is how stale the last background run may be before the
// ticker stops itself. Ticks arriving later than this mean the host froze the
// process; keep polling then and the OS kills the app.
func (m *Monitor) backgroundBudget() time.Duration {
	return 2 * m.cfg.BackgroundInterval
}

// Run drives the timer loop until the context is canceled. Call it from its
// own goroutine.
func (m *Monitor) Run(ctx context.Context) {
	var fgProduct, fgOrder, background *time.Ticker
	var fgProductC, fgOrderC, backgroundC <-chan time.Time

	stopForeground := func() {
		if fgProduct != nil {
			fgProduct.Stop()
			fgProduct, fgProductC = nil, nil
		}
		if fgOrder != nil {
			fgOrder.Stop()
			fgOrder, fgOrderC = nil, nil
		}
	}
	stopBackground := func() {
		if background != nil {
			background.Stop()
			background, backgroundC = nil, nil
		}
	}
	defer stopForeground()
	defer stopBackground()

	lastBackgroundRun := m.now()

	enterForeground := func() {
		stopBackground()
		if tap, ok := m.consumePendingNavigation(); ok {
			m.logg.Info(m.logg.WithFields(ctx, map[string]any{
				"screen": tap.Screen,
				"action": tap.Action,
			}), "replaying deferred navigation")
			if m.onNavigate != nil {
				m.onNavigate(tap)
			}
		}
		m.engine.CheckAll(ctx, enums.PollModeForeground)
		fgProduct = time.NewTicker(m.cfg.ForegroundProductInterval)
		fgProductC = fgProduct.C
		fgOrder = time.NewTicker(m.cfg.ForegroundOrderInterval)
		fgOrderC = fgOrder.C
	}
	enterBackground := func() {
		stopForeground()
		lastBackgroundRun = m.now()
		background = time.NewTicker(m.cfg.BackgroundInterval)
		backgroundC = background.C
	}

	if m.state.Foregrounded() {
		enterForeground()
	} else {
		enterBackground()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case phase := <-m.transitions:
			if phase == m.state.Phase() {
				continue
			}
			m.state.Set(phase)
			m.logg.Info(m.logg.WithField(ctx, "phase", string(phase)), "lifecycle transition")
			if phase == PhaseForeground {
				enterForeground()
			} else {
				enterBackground()
			}

		case <-fgProductC:
			m.engine.CheckForNewProducts(ctx, enums.PollModeForeground)

		case <-fgOrderC:
			m.engine.CheckForOrderStatusChanges(ctx, enums.PollModeForeground)

		case <-backgroundC:
			if m.now().Sub(lastBackgroundRun) > m.backgroundBudget() {
				m.logg.Warn(ctx, "background budget exceeded, stopping timer")
				stopBackground()
				continue
			}
			m.engine.CheckAll(ctx, enums.PollModeBackground)
			lastBackgroundRun = m.now()
		}
	}
}
