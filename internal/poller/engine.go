package poller

import (
	"context"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/fashionshop/storefront-notifier/internal/delivery"
	"github.com/fashionshop/storefront-notifier/internal/remote"
	"github.com/fashionshop/storefront-notifier/internal/snapshot"
	"github.com/fashionshop/storefront-notifier/pkg/config"
	"github.com/fashionshop/storefront-notifier/pkg/db/models"
	"github.com/fashionshop/storefront-notifier/pkg/enums"
	pkgerrors "github.com/fashionshop/storefront-notifier/pkg/errors"
	"github.com/fashionshop/storefront-notifier/pkg/logger"
	"github.com/fashionshop/storefront-notifier/pkg/metrics"
)

// remoteSource is the slice of internal/remote.Client the engine polls.
type remoteSource interface {
	Products(ctx context.Context) ([]remote.Product, error)
	Orders(ctx context.Context, userID string) ([]remote.Order, error)
}

// snapshotStore persists the diff baselines between polls.
type snapshotStore interface {
	Product(ctx context.Context) (snapshot.ProductSnapshot, error)
	SaveLastProductIDs(ctx context.Context, ids []string) error
	SaveNotifiedProductIDs(ctx context.Context, ids []string) error
	SaveLastProductCount(ctx context.Context, count int) error
	Orders(ctx context.Context) (snapshot.OrderSnapshot, error)
	SaveOrderStatuses(ctx context.Context, statuses map[string]string) error
	SaveNotifiedOrderKeys(ctx context.Context, keys []string) error
}

// recordStore appends to the in-app notification log.
type recordStore interface {
	Create(ctx context.Context, notification *models.Notification) (bool, error)
	ExistsDedupKey(ctx context.Context, dedupKey string) (bool, error)
}

// foregroundReporter tells the engine whether the app is currently
// foregrounded. Satisfied by internal/lifecycle.AppState.
type foregroundReporter interface {
	Foregrounded() bool
}

// Params configure the dedup/polling engine.
type Params struct {
	Logger     *logger.Logger
	Remote     remoteSource
	Snapshots  snapshotStore
	Records    recordStore
	Presenter  delivery.Presenter
	Foreground foregroundReporter
	Metrics    *metrics.PollMetrics
	Config     config.PollConfig
	UserID     string
	ChannelID  string
}

// Engine detects new catalog products and order status transitions, dedups
// them against persisted snapshots, and drives the two-stage dispatch:
// persist the in-app record, then trigger the system notification.
//
// Public polling operations never return errors; failures are classified,
// logged, and abandoned until the next timer tick.
type Engine struct {
	logg       *logger.Logger
	remote     remoteSource
	snapshots  snapshotStore
	records    recordStore
	presenter  delivery.Presenter
	foreground foregroundReporter
	metrics    *metrics.PollMetrics
	cfg        config.PollConfig
	userID     string
	channelID  string

	state *State
	queue *dispatchQueue
	sleep sleepFunc
	now   func() time.Time
}

// NewEngine wires the engine dependencies.
func NewEngine(params Params) (*Engine, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Remote == nil {
		return nil, fmt.Errorf("remote source required")
	}
	if params.Snapshots == nil {
		return nil, fmt.Errorf("snapshot store required")
	}
	if params.Records == nil {
		return nil, fmt.Errorf("record store required")
	}
	if params.Presenter == nil {
		return nil, fmt.Errorf("presenter required")
	}
	if params.Foreground == nil {
		return nil, fmt.Errorf("foreground reporter required")
	}
	if params.UserID == "" {
		return nil, fmt.Errorf("user id required")
	}

	engine := &Engine{
		logg:       params.Logger,
		remote:     params.Remote,
		snapshots:  params.Snapshots,
		records:    params.Records,
		presenter:  params.Presenter,
		foreground: params.Foreground,
		metrics:    params.Metrics,
		cfg:        params.Config,
		userID:     params.UserID,
		channelID:  params.ChannelID,
		state:      NewState(),
		sleep:      sleepWithContext,
		now:        time.Now,
	}
	engine.queue = newDispatchQueue(engine.cfg.DispatchGap, engine.sleep)
	return engine, nil
}

// CheckAll runs the product and order polls back to back. Used on the
// foreground transition and by the background timer.
func (e *Engine) CheckAll(ctx context.Context, mode enums.PollMode) {
	e.CheckForNewProducts(ctx, mode)
	e.CheckForOrderStatusChanges(ctx, mode)
}

// logPollError classifies a poll failure the way the fire-and-forget error
// policy demands: timeout vs generic, logged, swallowed.
func (e *Engine) logPollError(ctx context.Context, err error) {
	if pkgerrors.IsTimeout(err) {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "poll timed out")
		return
	}
	e.logg.Error(ctx, "poll failed", err)
}

// deliveryID derives the integer id the delivery channel wants from the
// record's dedup key. Stable across retries for the same entity.
func deliveryID(dedupKey string) int {
	return int(crc32.ChecksumIEEE([]byte(dedupKey)) & 0x7fffffff)
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
