package poller

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fashionshop/storefront-notifier/internal/delivery"
	"github.com/fashionshop/storefront-notifier/internal/remote"
	"github.com/fashionshop/storefront-notifier/internal/snapshot"
	"github.com/fashionshop/storefront-notifier/pkg/config"
	"github.com/fashionshop/storefront-notifier/pkg/db/models"
	"github.com/fashionshop/storefront-notifier/pkg/enums"
	"github.com/fashionshop/storefront-notifier/pkg/logger"
)

type fakeRemote struct {
	products    []remote.Product
	productsErr error
	orders      []remote.Order
	ordersErr   error
	gotUserID   string
}

func (f *fakeRemote) Products(ctx context.Context) ([]remote.Product, error) {
	return f.products, f.productsErr
}

func (f *fakeRemote) Orders(ctx context.Context, userID string) ([]remote.Order, error) {
	f.gotUserID = userID
	return f.orders, f.ordersErr
}

type fakeSnapshots struct {
	product snapshot.ProductSnapshot
	order   snapshot.OrderSnapshot

	savedLastIDs       []string
	savedLastIDsCalled bool
	savedNotifiedIDs   []string
	savedCount         int
	savedStatuses      map[string]string
	savedOrderKeys     []string

	productErr error
}

func (f *fakeSnapshots) Product(ctx context.Context) (snapshot.ProductSnapshot, error) {
	return f.product, f.productErr
}

func (f *fakeSnapshots) SaveLastProductIDs(ctx context.Context, ids []string) error {
	f.savedLastIDs = ids
	f.savedLastIDsCalled = true
	return nil
}

func (f *fakeSnapshots) SaveNotifiedProductIDs(ctx context.Context, ids []string) error {
	f.savedNotifiedIDs = append([]string(nil), ids...)
	return nil
}

func (f *fakeSnapshots) SaveLastProductCount(ctx context.Context, count int) error {
	f.savedCount = count
	return nil
}

func (f *fakeSnapshots) Orders(ctx context.Context) (snapshot.OrderSnapshot, error) {
	return f.order, nil
}

func (f *fakeSnapshots) SaveOrderStatuses(ctx context.Context, statuses map[string]string) error {
	f.savedStatuses = statuses
	return nil
}

func (f *fakeSnapshots) SaveNotifiedOrderKeys(ctx context.Context, keys []string) error {
	f.savedOrderKeys = append([]string(nil), keys...)
	return nil
}

type fakeRecords struct {
	mu        sync.Mutex
	createErr error
	existing  map[string]bool
	created   []models.Notification
}

func (f *fakeRecords) Create(ctx context.Context, n *models.Notification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return false, f.createErr
	}
	if f.existing == nil {
		f.existing = map[string]bool{}
	}
	if f.existing[n.DedupKey] {
		return false, nil
	}
	f.existing[n.DedupKey] = true
	f.created = append(f.created, *n)
	return true, nil
}

func (f *fakeRecords) ExistsDedupKey(ctx context.Context, dedupKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing[dedupKey], nil
}

type fakePresenter struct {
	err      error
	requests []delivery.Request
}

func (f *fakePresenter) Present(ctx context.Context, req delivery.Request) error {
	f.requests = append(f.requests, req)
	return f.err
}

type fakeForeground struct {
	foregrounded bool
}

func (f *fakeForeground) Foregrounded() bool {
	return f.foregrounded
}

type engineFixture struct {
	engine     *Engine
	remote     *fakeRemote
	snapshots  *fakeSnapshots
	records    *fakeRecords
	presenter  *fakePresenter
	foreground *fakeForeground

	clock  time.Time
	sleeps []time.Duration
}

func (fx *engineFixture) advance(d time.Duration) {
	fx.clock = fx.clock.Add(d)
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	fx := &engineFixture{
		remote:     &fakeRemote{},
		snapshots:  &fakeSnapshots{},
		records:    &fakeRecords{},
		presenter:  &fakePresenter{},
		foreground: &fakeForeground{},
		clock:      time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}

	engine, err := NewEngine(Params{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Remote:     fx.remote,
		Snapshots:  fx.snapshots,
		Records:    fx.records,
		Presenter:  fx.presenter,
		Foreground: fx.foreground,
		Config: config.PollConfig{
			ProductDebounce: 20 * time.Second,
			OrderDebounce:   30 * time.Second,
			DispatchGap:     2 * time.Second,
			StageGap:        time.Second,
			RecencyWindow:   10 * time.Minute,
		},
		UserID:    "user-7",
		ChannelID: "shop-notifications",
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	engine.now = func() time.Time { return fx.clock }
	engine.sleep = func(ctx context.Context, d time.Duration) error {
		fx.sleeps = append(fx.sleeps, d)
		return ctx.Err()
	}
	engine.queue = newDispatchQueue(engine.cfg.DispatchGap, engine.sleep)

	fx.engine = engine
	return fx
}

func TestNewEngineRequiresDependencies(t *testing.T) {
	_, err := NewEngine(Params{})
	if err == nil {
		t.Fatal("expected error for empty params")
	}
}

func TestCheckForNewProductsFirstRunUsesRecencyWindow(t *testing.T) {
	fx := newEngineFixture(t)
	fx.remote.products = []remote.Product{
		{ID: "p1", Name: "Áo Thun Basic", CreatedAt: fx.clock.Add(-5 * time.Minute)},
		{ID: "p2", Name: "Quần Jean Slim", CreatedAt: fx.clock.Add(-20 * time.Minute)},
	}

	fx.engine.CheckForNewProducts(context.Background(), enums.PollModeForeground)

	if len(fx.records.created) != 1 {
		t.Fatalf("expected 1 record, got %d", len(fx.records.created))
	}
	record := fx.records.created[0]
	if record.DedupKey != "product:p1" {
		t.Errorf("unexpected dedup key %q", record.DedupKey)
	}
	if record.Type != enums.NotificationTypeNewProduct {
		t.Errorf("unexpected type %q", record.Type)
	}
	if len(fx.presenter.requests) != 1 {
		t.Fatalf("expected 1 system notification, got %d", len(fx.presenter.requests))
	}
	if fx.presenter.requests[0].ChannelID != "shop-notifications" {
		t.Errorf("unexpected channel %q", fx.presenter.requests[0].ChannelID)
	}
	// Both products enter the baseline regardless of notification outcome.
	if len(fx.snapshots.savedLastIDs) != 2 || fx.snapshots.savedCount != 2 {
		t.Errorf("baseline not overwritten: ids=%v count=%d", fx.snapshots.savedLastIDs, fx.snapshots.savedCount)
	}
	if len(fx.snapshots.savedNotifiedIDs) != 1 || fx.snapshots.savedNotifiedIDs[0] != "p1" {
		t.Errorf("unexpected notified set %v", fx.snapshots.savedNotifiedIDs)
	}
}

func TestCheckForNewProductsDiffsAgainstBaseline(t *testing.T) {
	fx := newEngineFixture(t)
	fx.snapshots.product = snapshot.ProductSnapshot{LastProductIDs: []string{"p1"}}
	fx.remote.products = []remote.Product{
		{ID: "p1", Name: "Áo Thun Basic", CreatedAt: fx.clock.Add(-48 * time.Hour)},
		{ID: "p2", Name: "Váy Hoa Nhí", CreatedAt: fx.clock.Add(-48 * time.Hour)},
	}

	fx.engine.CheckForNewProducts(context.Background(), enums.PollModeForeground)

	// With a baseline the creation timestamp no longer matters.
	if len(fx.records.created) != 1 || fx.records.created[0].CorrelationID != "p2" {
		t.Fatalf("expected one record for p2, got %+v", fx.records.created)
	}
}

func TestCheckForNewProductsAtMostOncePerProduct(t *testing.T) {
	fx := newEngineFixture(t)
	fx.snapshots.product = snapshot.ProductSnapshot{
		LastProductIDs:     []string{},
		NotifiedProductIDs: []string{"p1"},
	}
	fx.remote.products = []remote.Product{
		{ID: "p1", Name: "Áo Thun Basic", CreatedAt: fx.clock.Add(-time.Minute)},
	}

	fx.engine.CheckForNewProducts(context.Background(), enums.PollModeForeground)

	if len(fx.records.created) != 0 {
		t.Fatalf("already-notified product produced %d records", len(fx.records.created))
	}
	if len(fx.presenter.requests) != 0 {
		t.Fatalf("already-notified product reached the presenter")
	}
}

func TestCheckForNewProductsGroupsVariantsByName(t *testing.T) {
	fx := newEngineFixture(t)
	created := fx.clock.Add(-time.Minute)
	fx.remote.products = []remote.Product{
		{ID: "p1", Name: "Áo Sơ Mi Trắng", CreatedAt: created},
		{ID: "p2", Name: "áo sơ mi trắng ", CreatedAt: created},
		{ID: "p3", Name: "Quần Tây Âu", CreatedAt: created},
	}

	fx.engine.CheckForNewProducts(context.Background(), enums.PollModeForeground)

	if len(fx.records.created) != 2 {
		t.Fatalf("expected 2 grouped records, got %d", len(fx.records.created))
	}
	shirt := fx.records.created[0]
	if shirt.Variants != 2 {
		t.Errorf("expected 2 variants, got %d", shirt.Variants)
	}
	if !strings.Contains(shirt.Message, "(2 mẫu)") {
		t.Errorf("variant count missing from message %q", shirt.Message)
	}
	pants := fx.records.created[1]
	if pants.Variants != 1 {
		t.Errorf("expected single variant, got %d", pants.Variants)
	}
	if strings.Contains(pants.Message, "mẫu") {
		t.Errorf("single variant message should not mention variants: %q", pants.Message)
	}
}

func TestCheckForNewProductsDebounceWindow(t *testing.T) {
	fx := newEngineFixture(t)
	fx.remote.products = []remote.Product{
		{ID: "p1", Name: "Áo Thun Basic", CreatedAt: fx.clock.Add(-time.Minute)},
	}

	fx.engine.CheckForNewProducts(context.Background(), enums.PollModeForeground)
	fx.advance(5 * time.Second)
	fx.snapshots.savedLastIDsCalled = false
	fx.engine.CheckForNewProducts(context.Background(), enums.PollModeForeground)

	if fx.snapshots.savedLastIDsCalled {
		t.Fatal("debounced poll still ran")
	}

	fx.advance(20 * time.Second)
	fx.engine.CheckForNewProducts(context.Background(), enums.PollModeForeground)
	if !fx.snapshots.savedLastIDsCalled {
		t.Fatal("poll after debounce window did not run")
	}
}

func TestCheckForNewProductsBackgroundDefersToForeground(t *testing.T) {
	fx := newEngineFixture(t)
	fx.foreground.foregrounded = true
	fx.remote.products = []remote.Product{
		{ID: "p1", Name: "Áo Thun Basic", CreatedAt: fx.clock.Add(-time.Minute)},
	}

	fx.engine.CheckForNewProducts(context.Background(), enums.PollModeBackground)
	if fx.snapshots.savedLastIDsCalled {
		t.Fatal("background poll ran while foregrounded")
	}

	fx.foreground.foregrounded = false
	fx.engine.CheckForNewProducts(context.Background(), enums.PollModeBackground)
	if !fx.snapshots.savedLastIDsCalled {
		t.Fatal("background poll did not run while backgrounded")
	}
}

func TestCheckForNewProductsDeliveryFailureStillMarksNotified(t *testing.T) {
	fx := newEngineFixture(t)
	fx.presenter.err = errors.New("push gateway down")
	fx.remote.products = []remote.Product{
		{ID: "p1", Name: "Áo Thun Basic", CreatedAt: fx.clock.Add(-time.Minute)},
	}

	fx.engine.CheckForNewProducts(context.Background(), enums.PollModeForeground)

	// Stage 1 succeeded: the record is authoritative, the failed push is not
	// retried on the next poll.
	if len(fx.records.created) != 1 {
		t.Fatalf("expected record despite delivery failure, got %d", len(fx.records.created))
	}
	if len(fx.snapshots.savedNotifiedIDs) != 1 || fx.snapshots.savedNotifiedIDs[0] != "p1" {
		t.Fatalf("product not marked notified after delivery failure: %v", fx.snapshots.savedNotifiedIDs)
	}
}

func TestCheckForNewProductsPersistFailureRetriesNextPoll(t *testing.T) {
	fx := newEngineFixture(t)
	fx.records.createErr = errors.New("database unavailable")
	fx.remote.products = []remote.Product{
		{ID: "p1", Name: "Áo Thun Basic", CreatedAt: fx.clock.Add(-time.Minute)},
	}

	fx.engine.CheckForNewProducts(context.Background(), enums.PollModeForeground)

	if len(fx.presenter.requests) != 0 {
		t.Fatal("stage 2 ran after stage 1 failed")
	}
	if len(fx.snapshots.savedNotifiedIDs) != 0 {
		t.Fatalf("product marked notified after persistence failure: %v", fx.snapshots.savedNotifiedIDs)
	}
}

func TestCheckForNewProductsPacesDispatches(t *testing.T) {
	fx := newEngineFixture(t)
	created := fx.clock.Add(-time.Minute)
	fx.remote.products = []remote.Product{
		{ID: "p1", Name: "Áo Thun Basic", CreatedAt: created},
		{ID: "p2", Name: "Quần Jean Slim", CreatedAt: created},
		{ID: "p3", Name: "Váy Hoa Nhí", CreatedAt: created},
	}

	fx.engine.CheckForNewProducts(context.Background(), enums.PollModeForeground)

	// Stage gap inside each dispatch, queue gap before every item after the
	// first: 1s, 2s, 1s, 2s, 1s.
	want := []time.Duration{time.Second, 2 * time.Second, time.Second, 2 * time.Second, time.Second}
	if len(fx.sleeps) != len(want) {
		t.Fatalf("unexpected pacing %v", fx.sleeps)
	}
	for i, d := range want {
		if fx.sleeps[i] != d {
			t.Fatalf("sleep %d = %v, want %v (full: %v)", i, fx.sleeps[i], d, fx.sleeps)
		}
	}
}

func TestCheckForOrderStatusChangesNotifiesTransitions(t *testing.T) {
	fx := newEngineFixture(t)
	fx.remote.orders = []remote.Order{{ID: "o1", Status: "confirmed"}}

	fx.engine.CheckForOrderStatusChanges(context.Background(), enums.PollModeForeground)

	if fx.remote.gotUserID != "user-7" {
		t.Errorf("orders fetched for %q", fx.remote.gotUserID)
	}
	if len(fx.records.created) != 1 {
		t.Fatalf("first sighting of confirmed order produced %d records", len(fx.records.created))
	}
	if fx.records.created[0].DedupKey != "order:o1:confirmed" {
		t.Errorf("unexpected dedup key %q", fx.records.created[0].DedupKey)
	}
	if fx.records.created[0].Title != "Đơn Hàng Đã Xác Nhận" {
		t.Errorf("unexpected title %q", fx.records.created[0].Title)
	}

	// Same status on the next poll: no event.
	fx.advance(time.Minute)
	fx.snapshots.order = snapshot.OrderSnapshot{
		Statuses:     fx.snapshots.savedStatuses,
		NotifiedKeys: fx.snapshots.savedOrderKeys,
	}
	fx.engine.CheckForOrderStatusChanges(context.Background(), enums.PollModeForeground)
	if len(fx.records.created) != 1 {
		t.Fatalf("unchanged status produced another record: %d", len(fx.records.created))
	}

	// Transition to shipping: new event, new dedup key.
	fx.advance(time.Minute)
	fx.remote.orders = []remote.Order{{ID: "o1", Status: "shipping"}}
	fx.snapshots.order = snapshot.OrderSnapshot{
		Statuses:     fx.snapshots.savedStatuses,
		NotifiedKeys: fx.snapshots.savedOrderKeys,
	}
	fx.engine.CheckForOrderStatusChanges(context.Background(), enums.PollModeForeground)
	if len(fx.records.created) != 2 {
		t.Fatalf("shipping transition produced %d records", len(fx.records.created))
	}
	if fx.records.created[1].DedupKey != "order:o1:shipping" {
		t.Errorf("unexpected dedup key %q", fx.records.created[1].DedupKey)
	}
}

func TestCheckForOrderStatusChangesIgnoresNonNotifiable(t *testing.T) {
	fx := newEngineFixture(t)
	fx.remote.orders = []remote.Order{
		{ID: "o1", Status: "pending"},
		{ID: "o2", Status: "canceled"},
		{ID: "o3", Status: "bogus"},
	}

	fx.engine.CheckForOrderStatusChanges(context.Background(), enums.PollModeForeground)

	if len(fx.records.created) != 0 {
		t.Fatalf("non-notifiable statuses produced %d records", len(fx.records.created))
	}
	if len(fx.snapshots.savedStatuses) != 0 {
		t.Fatalf("non-notifiable statuses entered the snapshot: %v", fx.snapshots.savedStatuses)
	}
}

func TestCheckForOrderStatusChangesDedupSurvivesSnapshotLoss(t *testing.T) {
	fx := newEngineFixture(t)
	// The record log already has the event, the snapshot lost its marker.
	fx.records.existing = map[string]bool{"order:o1:delivered": true}
	fx.remote.orders = []remote.Order{{ID: "o1", Status: "delivered"}}

	fx.engine.CheckForOrderStatusChanges(context.Background(), enums.PollModeForeground)

	if len(fx.records.created) != 0 {
		t.Fatalf("record-log dedup did not hold: %d records", len(fx.records.created))
	}
	if len(fx.presenter.requests) != 0 {
		t.Fatal("deduped event reached the presenter")
	}
	// The marker is rebuilt so the next poll skips the log lookup.
	if len(fx.snapshots.savedOrderKeys) != 1 || fx.snapshots.savedOrderKeys[0] != "order:o1:delivered" {
		t.Fatalf("notified marker not rebuilt: %v", fx.snapshots.savedOrderKeys)
	}
}

func TestCheckForOrderStatusChangesDebounceWindow(t *testing.T) {
	fx := newEngineFixture(t)
	fx.remote.orders = []remote.Order{{ID: "o1", Status: "confirmed"}}

	fx.engine.CheckForOrderStatusChanges(context.Background(), enums.PollModeForeground)
	fx.advance(10 * time.Second)
	fx.remote.orders = []remote.Order{{ID: "o2", Status: "confirmed"}}
	fx.snapshots.order = snapshot.OrderSnapshot{
		Statuses:     fx.snapshots.savedStatuses,
		NotifiedKeys: fx.snapshots.savedOrderKeys,
	}
	fx.engine.CheckForOrderStatusChanges(context.Background(), enums.PollModeForeground)

	if len(fx.records.created) != 1 {
		t.Fatalf("order poll inside debounce window still ran: %d records", len(fx.records.created))
	}
}

func TestCheckAllRunsBothPolls(t *testing.T) {
	fx := newEngineFixture(t)
	fx.remote.products = []remote.Product{
		{ID: "p1", Name: "Áo Thun Basic", CreatedAt: fx.clock.Add(-time.Minute)},
	}
	fx.remote.orders = []remote.Order{{ID: "o1", Status: "shipping"}}

	fx.engine.CheckAll(context.Background(), enums.PollModeForeground)

	if len(fx.records.created) != 2 {
		t.Fatalf("expected product and order records, got %d", len(fx.records.created))
	}
}

func TestOrderTemplateSelection(t *testing.T) {
	tests := []struct {
		status enums.OrderStatus
		title  string
	}{
		{enums.OrderStatusConfirmed, "Đơn Hàng Đã Xác Nhận"},
		{enums.OrderStatusShipping, "Đơn Hàng Đang Giao"},
		{enums.OrderStatusDelivered, "Đơn Hàng Đã Giao Thành Công"},
		{enums.OrderStatusPending, "Cập Nhật Đơn Hàng"},
	}
	for _, tc := range tests {
		title, message := orderTemplateFor("o9", tc.status)
		if title != tc.title {
			t.Errorf("status %s: title %q, want %q", tc.status, title, tc.title)
		}
		if !strings.Contains(message, "o9") {
			t.Errorf("status %s: message %q missing order id", tc.status, message)
		}
	}
}

func TestDeliveryIDStable(t *testing.T) {
	a := deliveryID("product:p1")
	b := deliveryID("product:p1")
	if a != b {
		t.Fatalf("delivery id not stable: %d vs %d", a, b)
	}
	if a < 0 {
		t.Fatalf("delivery id negative: %d", a)
	}
	if a == deliveryID("product:p2") {
		t.Fatal("distinct keys collided")
	}
}

func TestStateProcessingLock(t *testing.T) {
	s := NewState()
	if !s.TryLock("product_p1") {
		t.Fatal("first lock refused")
	}
	if s.TryLock("product_p1") {
		t.Fatal("second lock for same key granted")
	}
	if !s.TryLock("order_p1") {
		t.Fatal("lock for different key refused")
	}
	s.Unlock("product_p1")
	if !s.TryLock("product_p1") {
		t.Fatal("lock after unlock refused")
	}
}
