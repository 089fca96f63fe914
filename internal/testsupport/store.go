package testsupport

import (
	"context"
	"testing"

	"reelforge/internal/config"
	"reelforge/internal/queue"
	"reelforge/internal/respcache"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenCache opens a respcache.Cache for tests and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *respcache.Cache {
	t.Helper()

	cache, err := respcache.Open(cfg)
	if err != nil {
		t.Fatalf("respcache.Open: %v", err)
	}
	t.Cleanup(func() {
		cache.Close()
	})
	return cache
}

// InsertJob enqueues a job for tests using the provided store.
func InsertJob(t testing.TB, store *queue.Store, id, topic, category string) *queue.Job {
	t.Helper()

	created, err := store.Insert(context.Background(), queue.NewJob{ID: id, Topic: topic, Category: category})
	if err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	if !created {
		t.Fatalf("expected job %s to be created", id)
	}
	job, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("store.GetByID: %v", err)
	}
	if job == nil {
		t.Fatalf("job %s missing after insert", id)
	}
	return job
}
