package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fashionshop/storefront-notifier/pkg/db/models"
	pkgerrors "github.com/fashionshop/storefront-notifier/pkg/errors"
)

type fakeRepository struct {
	listFn        func(ctx context.Context) ([]models.Notification, error)
	markReadFn    func(ctx context.Context, id uuid.UUID, now time.Time) (markResult, error)
	deleteFn      func(ctx context.Context, id uuid.UUID) (bool, error)
	deleteAllFn   func(ctx context.Context) (int64, error)
	unreadCountFn func(ctx context.Context) (int64, error)
	deleteAllHits int
}

func (f *fakeRepository) Create(ctx context.Context, n *models.Notification) (bool, error) {
	return true, nil
}

func (f *fakeRepository) ExistsDedupKey(ctx context.Context, dedupKey string) (bool, error) {
	return false, nil
}

func (f *fakeRepository) List(ctx context.Context) ([]models.Notification, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakeRepository) UnreadCount(ctx context.Context) (int64, error) {
	if f.unreadCountFn != nil {
		return f.unreadCountFn(ctx)
	}
	return 0, nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, id uuid.UUID, now time.Time) (markResult, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, id, now)
	}
	return markResult{}, nil
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return false, nil
}

func (f *fakeRepository) DeleteAll(ctx context.Context) (int64, error) {
	f.deleteAllHits++
	if f.deleteAllFn != nil {
		return f.deleteAllFn(ctx)
	}
	return 0, nil
}

type fakeResetter struct {
	resets int
	err    error
}

func (f *fakeResetter) Reset(ctx context.Context) error {
	f.resets++
	return f.err
}

func newService(t *testing.T, repo Repository, snapshots snapshotResetter) Service {
	t.Helper()
	svc, err := NewService(repo, snapshots)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestServiceMarkReadRejectsNilID(t *testing.T) {
	svc := newService(t, &fakeRepository{}, &fakeResetter{})
	err := svc.MarkRead(context.Background(), uuid.Nil)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceMarkReadNotFound(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, id uuid.UUID, now time.Time) (markResult, error) {
			return markResult{Found: false}, nil
		},
	}
	svc := newService(t, repo, &fakeResetter{})
	err := svc.MarkRead(context.Background(), uuid.New())
	if pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestServiceListWrapsStorageErrors(t *testing.T) {
	repo := &fakeRepository{
		listFn: func(ctx context.Context) ([]models.Notification, error) {
			return nil, errors.New("disk gone")
		},
	}
	svc := newService(t, repo, &fakeResetter{})
	_, err := svc.List(context.Background())
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStorage {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestServiceDeleteNotFound(t *testing.T) {
	svc := newService(t, &fakeRepository{}, &fakeResetter{})
	err := svc.Delete(context.Background(), uuid.New())
	if pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestServiceResetClearsLogAndSnapshots(t *testing.T) {
	repo := &fakeRepository{}
	resetter := &fakeResetter{}
	svc := newService(t, repo, resetter)

	if err := svc.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if repo.deleteAllHits != 1 {
		t.Fatalf("expected log cleared once, got %d", repo.deleteAllHits)
	}
	if resetter.resets != 1 {
		t.Fatalf("expected snapshots cleared once, got %d", resetter.resets)
	}
}

func TestServiceResetPropagatesSnapshotFailure(t *testing.T) {
	resetter := &fakeResetter{err: errors.New("redis down")}
	svc := newService(t, &fakeRepository{}, resetter)

	err := svc.Reset(context.Background())
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStorage {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, &fakeResetter{}); err == nil {
		t.Fatal("expected error without repository")
	}
	if _, err := NewService(&fakeRepository{}, nil); err == nil {
		t.Fatal("expected error without snapshot store")
	}
}
