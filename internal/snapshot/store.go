package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	pkgerrors "github.com/fashionshop/storefront-notifier/pkg/errors"
	"github.com/fashionshop/storefront-notifier/pkg/redis"
)

// Snapshot key names. The values under them are full-overwrite JSON blobs: the
// engine is the only writer and always rewrites the whole collection.
const (
	keyLastProductIDs     = "lastProductIds"
	keyNotifiedProductIDs = "notifiedProductIds"
	keyOrderStatuses      = "orderStatuses"
	keyNotifiedOrderKeys  = "notifiedOrderIds"
	keyLastProductCount   = "lastProductCount"
)

// ProductSnapshot is the diff baseline for the product poll.
type ProductSnapshot struct {
	LastProductIDs     []string
	NotifiedProductIDs []string
}

// OrderSnapshot is the diff baseline for the order poll. Statuses maps order id
// to the last observed notifiable status; NotifiedKeys holds order:status
// composite keys already dispatched.
type OrderSnapshot struct {
	Statuses     map[string]string
	NotifiedKeys []string
}

// kvStore is the slice of pkg/redis.Client the snapshot store depends on.
type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Store persists poll snapshots in the key-value state store.
type Store struct {
	kv kvStore
}

// NewStore binds the snapshot store to a key-value client.
func NewStore(kv kvStore) (*Store, error) {
	if kv == nil {
		return nil, errors.New("key-value client required")
	}
	return &Store{kv: kv}, nil
}

// Product loads the product baseline. Missing keys yield an empty snapshot,
// which the engine interprets as a first run.
func (s *Store) Product(ctx context.Context) (ProductSnapshot, error) {
	var snap ProductSnapshot
	if err := s.readJSON(ctx, keyLastProductIDs, &snap.LastProductIDs); err != nil {
		return ProductSnapshot{}, err
	}
	if err := s.readJSON(ctx, keyNotifiedProductIDs, &snap.NotifiedProductIDs); err != nil {
		return ProductSnapshot{}, err
	}
	return snap, nil
}

// SaveLastProductIDs overwrites the observed-product baseline.
func (s *Store) SaveLastProductIDs(ctx context.Context, ids []string) error {
	return s.writeJSON(ctx, keyLastProductIDs, ids)
}

// SaveNotifiedProductIDs overwrites the at-most-once marker set.
func (s *Store) SaveNotifiedProductIDs(ctx context.Context, ids []string) error {
	return s.writeJSON(ctx, keyNotifiedProductIDs, ids)
}

// SaveLastProductCount records the catalog size seen on the last poll.
func (s *Store) SaveLastProductCount(ctx context.Context, count int) error {
	key := redis.SnapshotKey(keyLastProductCount)
	if err := s.kv.Set(ctx, key, strconv.Itoa(count), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "writing "+keyLastProductCount)
	}
	return nil
}

// Orders loads the order baseline. Missing keys yield an empty snapshot.
func (s *Store) Orders(ctx context.Context) (OrderSnapshot, error) {
	snap := OrderSnapshot{Statuses: map[string]string{}}
	if err := s.readJSON(ctx, keyOrderStatuses, &snap.Statuses); err != nil {
		return OrderSnapshot{}, err
	}
	if snap.Statuses == nil {
		snap.Statuses = map[string]string{}
	}
	if err := s.readJSON(ctx, keyNotifiedOrderKeys, &snap.NotifiedKeys); err != nil {
		return OrderSnapshot{}, err
	}
	return snap, nil
}

// SaveOrderStatuses overwrites the per-order status baseline.
func (s *Store) SaveOrderStatuses(ctx context.Context, statuses map[string]string) error {
	return s.writeJSON(ctx, keyOrderStatuses, statuses)
}

// SaveNotifiedOrderKeys overwrites the dispatched order:status marker set.
func (s *Store) SaveNotifiedOrderKeys(ctx context.Context, keys []string) error {
	return s.writeJSON(ctx, keyNotifiedOrderKeys, keys)
}

// Reset drops every snapshot key. The next poll behaves as a first run.
func (s *Store) Reset(ctx context.Context) error {
	keys := []string{
		redis.SnapshotKey(keyLastProductIDs),
		redis.SnapshotKey(keyNotifiedProductIDs),
		redis.SnapshotKey(keyOrderStatuses),
		redis.SnapshotKey(keyNotifiedOrderKeys),
		redis.SnapshotKey(keyLastProductCount),
	}
	if err := s.kv.Del(ctx, keys...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "resetting snapshots")
	}
	return nil
}

func (s *Store) readJSON(ctx context.Context, name string, dest any) error {
	raw, err := s.kv.Get(ctx, redis.SnapshotKey(name))
	if err != nil {
		if redis.IsNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "reading "+name)
	}
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "decoding "+name)
	}
	return nil
}

func (s *Store) writeJSON(ctx context.Context, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "encoding "+name)
	}
	if err := s.kv.Set(ctx, redis.SnapshotKey(name), string(raw), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "writing "+name)
	}
	return nil
}
