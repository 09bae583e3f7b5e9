package poller

import (
	"context"
	"fmt"

	"github.com/fashionshop/storefront-notifier/internal/delivery"
	"github.com/fashionshop/storefront-notifier/internal/remote"
	"github.com/fashionshop/storefront-notifier/pkg/db/models"
	"github.com/fashionshop/storefront-notifier/pkg/enums"
)

// orderEvent is one status transition worth notifying about.
type orderEvent struct {
	order  remote.Order
	status enums.OrderStatus
}

// orderRun carries the mutable notified-key state for one poll run.
type orderRun struct {
	notifiedKeys []string
	notifiedSet  map[string]struct{}
	emitted      int
}

// CheckForOrderStatusChanges polls the user's orders and dispatches a
// notification for every transition into a notifiable status not yet
// announced. Silently returns when another order poll is in flight or the
// debounce window has not elapsed.
func (e *Engine) CheckForOrderStatusChanges(ctx context.Context, mode enums.PollMode) {
	ctx = e.logg.WithPollKind(ctx, string(enums.PollKindOrder))

	if !e.state.TryBeginOrderCheck(e.now(), e.cfg.OrderDebounce) {
		e.logg.Debug(ctx, "order poll debounced")
		return
	}
	defer e.state.EndOrderCheck()

	start := e.now()
	err := e.checkOrders(ctx)
	e.metrics.ObserveDuration(string(enums.PollKindOrder), e.now().Sub(start))
	if err != nil {
		e.metrics.IncFailure(string(enums.PollKindOrder))
		e.logPollError(ctx, err)
		return
	}
	e.metrics.IncSuccess(string(enums.PollKindOrder))
}

func (e *Engine) checkOrders(ctx context.Context) error {
	orders, err := e.remote.Orders(ctx, e.userID)
	if err != nil {
		return err
	}

	snap, err := e.snapshots.Orders(ctx)
	if err != nil {
		return err
	}
	statuses := snap.Statuses
	if statuses == nil {
		statuses = map[string]string{}
	}

	var events []orderEvent
	for _, order := range orders {
		status, err := enums.ParseOrderStatus(order.Status)
		if err != nil || !status.Notifiable() {
			continue
		}
		// Record the observation whether or not it turns into an event, so a
		// later run diffs against what was actually seen.
		previous, seen := statuses[order.ID]
		statuses[order.ID] = string(status)
		if seen && previous == string(status) {
			continue
		}
		events = append(events, orderEvent{order: order, status: status})
	}

	run := &orderRun{
		notifiedKeys: append([]string(nil), snap.NotifiedKeys...),
		notifiedSet:  toSet(snap.NotifiedKeys),
	}

	for _, event := range events {
		e.processOrderStatusNotification(ctx, event, run)
	}

	e.metrics.AddEmitted(string(enums.PollKindOrder), run.emitted)

	return e.snapshots.SaveOrderStatuses(ctx, statuses)
}

// processOrderStatusNotification runs the two-stage dispatch for one order
// transition. The dedup key binds the (order, status) pair, so a status the
// order revisits later is never announced twice.
func (e *Engine) processOrderStatusNotification(ctx context.Context, event orderEvent, run *orderRun) {
	order := event.order
	ctx = e.logg.WithOrderID(ctx, order.ID)

	dedupKey := fmt.Sprintf("order:%s:%s", order.ID, event.status)
	if _, done := run.notifiedSet[dedupKey]; done {
		return
	}

	lockKey := "order_" + order.ID
	if !e.state.TryLock(lockKey) {
		e.logg.Debug(ctx, "order dispatch already in progress")
		return
	}
	defer e.state.Unlock(lockKey)

	exists, err := e.records.ExistsDedupKey(ctx, dedupKey)
	if err != nil {
		e.logg.Error(ctx, "checking order dedup key failed", err)
		return
	}
	if exists {
		e.markOrderNotified(ctx, run, dedupKey)
		return
	}

	title, message := orderTemplateFor(order.ID, event.status)
	record := &models.Notification{
		Type:          enums.NotificationTypeOrderStatusChange,
		Title:         title,
		Message:       message,
		CorrelationID: order.ID,
		DedupKey:      dedupKey,
		Variants:      1,
		Screen:        orderScreen,
		Action:        orderAction,
		CreatedAt:     e.now(),
	}

	created, err := e.records.Create(ctx, record)
	if err != nil {
		e.logg.Error(ctx, "persisting order notification failed", err)
		return
	}
	if created {
		run.emitted++
	}

	if err := e.sleep(ctx, e.cfg.StageGap); err != nil {
		return
	}

	if err := e.presenter.Present(ctx, delivery.Request{
		ID:         deliveryID(dedupKey),
		Title:      record.Title,
		Message:    record.Message,
		ChannelID:  e.channelID,
		Tap:        delivery.TapMetadata{Screen: orderScreen, Action: orderAction},
		Sound:      true,
		Vibrate:    true,
		AutoCancel: true,
	}); err != nil {
		e.logg.Error(ctx, "system notification failed", err)
	}

	e.markOrderNotified(ctx, run, dedupKey)
}

func (e *Engine) markOrderNotified(ctx context.Context, run *orderRun, dedupKey string) {
	if _, done := run.notifiedSet[dedupKey]; done {
		return
	}
	run.notifiedKeys = append(run.notifiedKeys, dedupKey)
	run.notifiedSet[dedupKey] = struct{}{}
	if err := e.snapshots.SaveNotifiedOrderKeys(ctx, run.notifiedKeys); err != nil {
		e.logg.Error(ctx, "persisting notified order set failed", err)
	}
}
