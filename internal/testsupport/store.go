package testsupport

import (
	"testing"

	"upkeep/internal/config"
	"upkeep/internal/jobqueue"
	"upkeep/internal/logging"
)

// MustOpenStore opens a jobqueue.Store for tests against the config's
// queue directory.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobqueue.Store {
	t.Helper()

	store, err := jobqueue.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("jobqueue.Open: %v", err)
	}
	return store
}

// MustEnqueue queues a job for the operation and fails the test on error.
func MustEnqueue(t testing.TB, store *jobqueue.Store, operationID string, epoch uint64) jobqueue.JobDescriptor {
	t.Helper()

	job, err := store.Enqueue(jobqueue.JobDescriptor{OperationID: operationID, Epoch: epoch})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}
