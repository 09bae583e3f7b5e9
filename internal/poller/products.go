package poller

import (
	"context"
	"strings"

	"github.com/fashionshop/storefront-notifier/internal/delivery"
	"github.com/fashionshop/storefront-notifier/internal/remote"
	"github.com/fashionshop/storefront-notifier/pkg/db/models"
	"github.com/fashionshop/storefront-notifier/pkg/enums"
)

// productGroup is one logical product: duplicate variants of the same
// normalized name collapsed into a single pending notification.
type productGroup struct {
	product  remote.Product
	variants int
}

// productRun carries the mutable notified-set state for one poll run.
type productRun struct {
	notifiedIDs []string
	notifiedSet map[string]struct{}
	seenNames   map[string]struct{}
	emitted     int
}

// CheckForNewProducts polls the catalog and dispatches notifications for
// products never notified before. Silently returns when another product poll
// is in flight, the debounce window has not elapsed, or a background-mode
// call races a foregrounded app.
func (e *Engine) CheckForNewProducts(ctx context.Context, mode enums.PollMode) {
	ctx = e.logg.WithPollKind(ctx, string(enums.PollKindProduct))

	if mode == enums.PollModeBackground && e.foreground.Foregrounded() {
		e.logg.Debug(ctx, "skipping background product poll while foregrounded")
		return
	}
	if !e.state.TryBeginProductCheck(e.now(), e.cfg.ProductDebounce) {
		e.logg.Debug(ctx, "product poll debounced")
		return
	}
	defer e.state.EndProductCheck()

	start := e.now()
	err := e.checkProducts(ctx)
	e.metrics.ObserveDuration(string(enums.PollKindProduct), e.now().Sub(start))
	if err != nil {
		e.metrics.IncFailure(string(enums.PollKindProduct))
		e.logPollError(ctx, err)
		return
	}
	e.metrics.IncSuccess(string(enums.PollKindProduct))
}

func (e *Engine) checkProducts(ctx context.Context) error {
	products, err := e.remote.Products(ctx)
	if err != nil {
		return err
	}

	snap, err := e.snapshots.Product(ctx)
	if err != nil {
		return err
	}

	currentIDs := make([]string, 0, len(products))
	for _, p := range products {
		currentIDs = append(currentIDs, p.ID)
	}

	fresh := e.selectFresh(products, snap.LastProductIDs)

	run := &productRun{
		notifiedIDs: append([]string(nil), snap.NotifiedProductIDs...),
		notifiedSet: toSet(snap.NotifiedProductIDs),
		seenNames:   map[string]struct{}{},
	}

	var unnotified []remote.Product
	for _, p := range fresh {
		if _, done := run.notifiedSet[p.ID]; !done {
			unnotified = append(unnotified, p)
		}
	}

	groups := groupByName(unnotified)

	if err := e.queue.run(ctx, len(groups), func(ctx context.Context, i int) {
		e.processNewProductNotification(ctx, groups[i], run)
	}); err != nil {
		return err
	}

	e.metrics.AddEmitted(string(enums.PollKindProduct), run.emitted)

	// The baseline is overwritten unconditionally, found something or not.
	if err := e.snapshots.SaveLastProductIDs(ctx, currentIDs); err != nil {
		return err
	}
	return e.snapshots.SaveLastProductCount(ctx, len(currentIDs))
}

// selectFresh picks the products considered "new" this run. With no prior
// baseline a full diff is meaningless, so the first run falls back to a
// recency window over the creation timestamp.
func (e *Engine) selectFresh(products []remote.Product, lastIDs []string) []remote.Product {
	var fresh []remote.Product
	if len(lastIDs) == 0 {
		cutoff := e.now().Add(-e.cfg.RecencyWindow)
		for _, p := range products {
			if p.CreatedAt.After(cutoff) {
				fresh = append(fresh, p)
			}
		}
		return fresh
	}
	last := toSet(lastIDs)
	for _, p := range products {
		if _, seen := last[p.ID]; !seen {
			fresh = append(fresh, p)
		}
	}
	return fresh
}

// groupByName collapses duplicate variants of one logical product into a
// single group keyed by the normalized (lowercased, trimmed) name. Iteration
// order follows first appearance.
func groupByName(products []remote.Product) []productGroup {
	index := map[string]int{}
	var groups []productGroup
	for _, p := range products {
		name := normalizeName(p.Name)
		if at, ok := index[name]; ok {
			groups[at].variants++
			continue
		}
		index[name] = len(groups)
		groups = append(groups, productGroup{product: p, variants: 1})
	}
	return groups
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// processNewProductNotification runs the two-stage dispatch for one grouped
// product: persist the in-app record, pace, then trigger the system push.
// The processing lock and the notified set both guard re-entry.
func (e *Engine) processNewProductNotification(ctx context.Context, group productGroup, run *productRun) {
	product := group.product
	ctx = e.logg.WithProductID(ctx, product.ID)

	lockKey := "product_" + product.ID
	if !e.state.TryLock(lockKey) {
		e.logg.Debug(ctx, "product dispatch already in progress")
		return
	}
	defer e.state.Unlock(lockKey)

	if _, done := run.notifiedSet[product.ID]; done {
		return
	}
	name := normalizeName(product.Name)
	if _, dup := run.seenNames[name]; dup {
		return
	}
	run.seenNames[name] = struct{}{}

	dedupKey := "product:" + product.ID
	record := &models.Notification{
		Type:          enums.NotificationTypeNewProduct,
		Title:         productTitle(),
		Message:       productMessage(product.Name, group.variants),
		CorrelationID: product.ID,
		DedupKey:      dedupKey,
		Variants:      group.variants,
		Screen:        productScreen,
		Action:        productAction,
		CreatedAt:     e.now(),
	}

	created, err := e.records.Create(ctx, record)
	if err != nil {
		// Stage 1 failed: leave the at-most-once marker unset so the next
		// poll retries this product.
		e.logg.Error(ctx, "persisting product notification failed", err)
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
		Tap:        delivery.TapMetadata{Screen: productScreen, Action: productAction},
		Sound:      true,
		Vibrate:    true,
		AutoCancel: true,
	}); err != nil {
		// The in-app record is authoritative; a failed push is logged and
		// never rolled back.
		e.logg.Error(ctx, "system notification failed", err)
	}

	run.notifiedIDs = append(run.notifiedIDs, product.ID)
	run.notifiedSet[product.ID] = struct{}{}
	if err := e.snapshots.SaveNotifiedProductIDs(ctx, run.notifiedIDs); err != nil {
		e.logg.Error(ctx, "persisting notified product set failed", err)
	}
}
