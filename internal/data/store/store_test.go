package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akolanti/ClinicalRAG/internal/data/redisStore"
	"github.com/akolanti/ClinicalRAG/internal/data/store"
	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisIndexLease_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rs := redisStore.NewTestStore(client)
	ctx := context.Background()

	first := store.NewRedisIndexLease(rs, "lease", 30*time.Second)
	second := store.NewRedisIndexLease(rs, "lease", 30*time.Second)

	t.Run("first writer acquires", func(t *testing.T) {
		if err := first.Acquire(ctx); err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		if !mr.Exists("lease") {
			t.Fatal("lease key not written")
		}
	})

	t.Run("second writer is refused", func(t *testing.T) {
		err := second.Acquire(ctx)
		if !errors.Is(err, store.ErrLeaseHeld) {
			t.Fatalf("expected ErrLeaseHeld, got %v", err)
		}
		if err := second.Renew(ctx); !errors.Is(err, store.ErrLeaseHeld) {
			t.Errorf("non owner renew should fail, got %v", err)
		}
	})

	t.Run("owner renews", func(t *testing.T) {
		mr.FastForward(20 * time.Second)
		if err := first.Renew(ctx); err != nil {
			t.Fatalf("Renew failed: %v", err)
		}
		mr.FastForward(20 * time.Second)
		if !mr.Exists("lease") {
			t.Error("lease expired despite renewal")
		}
	})

	t.Run("non owner release keeps the lease", func(t *testing.T) {
		if err := second.Release(ctx); err != nil {
			t.Fatalf("Release failed: %v", err)
		}
		if !mr.Exists("lease") {
			t.Error("lease removed by a non owner")
		}
	})

	t.Run("owner release frees the lease", func(t *testing.T) {
		if err := first.Release(ctx); err != nil {
			t.Fatalf("Release failed: %v", err)
		}
		if err := second.Acquire(ctx); err != nil {
			t.Errorf("expected second writer to acquire after release, got %v", err)
		}
	})
}

func TestRedisIndexLease_Expiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rs := redisStore.NewTestStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	crashed := store.NewRedisIndexLease(rs, "lease", time.Second)
	if err := crashed.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Second)

	next := store.NewRedisIndexLease(rs, "lease", time.Second)
	if err := next.Acquire(ctx); err != nil {
		t.Fatalf("lease of a dead writer should expire, got %v", err)
	}
}

func TestLocalIndexLease(t *testing.T) {
	ctx := context.Background()
	l := store.NewLocalIndexLease()
	if err := l.Renew(ctx); err == nil {
		t.Error("renew before acquire should fail")
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Acquire(ctx); !errors.Is(err, store.ErrLeaseHeld) {
		t.Errorf("double acquire should fail, got %v", err)
	}
	_ = l.Release(ctx)
	if err := l.Acquire(ctx); err != nil {
		t.Errorf("acquire after release failed: %v", err)
	}
}

type failingLease struct{ store.LocalIndexLease }

func (*failingLease) Renew(ctx context.Context) error { return store.ErrLeaseHeld }

func TestKeepAlive_ReportsLoss(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	lost := make(chan error, 1)
	go store.KeepAlive(ctx, &failingLease{}, 10*time.Millisecond, func(err error) { lost <- err })

	select {
	case err := <-lost:
		if !errors.Is(err, store.ErrLeaseHeld) {
			t.Errorf("unexpected error %v", err)
		}
	case <-ctx.Done():
		t.Fatal("lease loss was never reported")
	}
}

func TestInMemoryDocumentStore(t *testing.T) {
	ctx := context.Background()
	s := store.InitInMemoryDocumentStore()

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	docs := []documentModel.DocumentMetadata{
		{Id: "b", Filename: "b.pdf", DocType: "CR", CreatedAt: base.Add(time.Minute)},
		{Id: "a", Filename: "a.pdf", DocType: "CR", CreatedAt: base},
	}
	for _, d := range docs {
		if err := s.Create(ctx, d); err != nil {
			t.Fatalf("Create(%s) failed: %v", d.Id, err)
		}
	}
	if err := s.Create(ctx, docs[0]); err == nil {
		t.Error("expected duplicate id to be refused")
	}

	got, found, err := s.Get(ctx, "a")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if got.Status != documentModel.StatusPending {
		t.Errorf("default status = %s; want PENDING", got.Status)
	}

	if err := s.UpdateStatus(ctx, "a", documentModel.StatusProcessed); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateStatus(ctx, "ghost", documentModel.StatusProcessed); err == nil {
		t.Error("expected error for unknown id")
	}

	list, _ := s.List(ctx)
	if len(list) != 2 || list[0].Id != "a" || list[1].Id != "b" {
		t.Fatalf("List order = %+v", list)
	}
	if list[0].Status != documentModel.StatusProcessed {
		t.Errorf("status not updated: %s", list[0].Status)
	}
}
