package jobqueue_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"upkeep/internal/jobqueue"
	"upkeep/internal/testsupport"
)

func TestEnqueueAssignsMonotonicIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := testsupport.MustEnqueue(t, store, "brew-update", 1)
	second := testsupport.MustEnqueue(t, store, "dns-flush", 1)

	if first.ID >= second.ID {
		t.Fatalf("expected ids to increase, got %q then %q", first.ID, second.ID)
	}
	if len(first.ID) != 12 {
		t.Fatalf("expected zero-padded id, got %q", first.ID)
	}
}

func TestPollReturnsOldestJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := testsupport.MustEnqueue(t, store, "brew-update", 1)
	testsupport.MustEnqueue(t, store, "dns-flush", 1)

	job, err := store.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if job.ID != first.ID {
		t.Fatalf("expected oldest job %q, got %q", first.ID, job.ID)
	}
}

func TestPollEmptyQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.Poll(); !errors.Is(err, jobqueue.ErrNotQueued) {
		t.Fatalf("expected ErrNotQueued, got %v", err)
	}
}

func TestPollSkipsMalformedRecordInPlace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	badPath := filepath.Join(store.Dir(), "000000000001.job.json")
	if err := os.WriteFile(badPath, []byte("{truncated"), 0o644); err != nil {
		t.Fatalf("write malformed record: %v", err)
	}
	good := testsupport.MustEnqueue(t, store, "brew-update", 1)

	job, err := store.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if job.ID != good.ID {
		t.Fatalf("expected well-formed job %q, got %q", good.ID, job.ID)
	}
	if _, err := os.Stat(badPath); err != nil {
		t.Fatalf("malformed record should stay in place: %v", err)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job := testsupport.MustEnqueue(t, store, "brew-update", 1)

	claimed, err := store.Claim(job.ID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed.OperationID != "brew-update" {
		t.Fatalf("unexpected claimed job: %+v", claimed)
	}

	if _, err := store.Claim(job.ID); !errors.Is(err, jobqueue.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed on second claim, got %v", err)
	}
	if _, err := store.Claim("000000009999"); !errors.Is(err, jobqueue.ErrNotQueued) {
		t.Fatalf("expected ErrNotQueued for unknown id, got %v", err)
	}
}

func TestReadResultPendingUntilWritten(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job := testsupport.MustEnqueue(t, store, "dns-flush", 1)

	if _, err := store.ReadResult(job.ID); !errors.Is(err, jobqueue.ErrResultPending) {
		t.Fatalf("expected ErrResultPending, got %v", err)
	}

	result := jobqueue.ResultDescriptor{
		JobID:       job.ID,
		OperationID: job.OperationID,
		StartedAt:   time.Now().UTC(),
		Revision:    1,
	}
	if err := store.WriteResult(result); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}

	got, err := store.ReadResult(job.ID)
	if err != nil {
		t.Fatalf("ReadResult: %v", err)
	}
	if got.Revision != 1 || got.Final() {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestWriteResultRefusesTerminalOverwrite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job := testsupport.MustEnqueue(t, store, "dns-flush", 1)

	final := jobqueue.ResultDescriptor{
		JobID:       job.ID,
		OperationID: job.OperationID,
		Outcome:     jobqueue.OutcomeSuccess,
		CompletedAt: time.Now().UTC(),
		Revision:    2,
	}
	if err := store.WriteResult(final); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}

	final.Revision = 3
	if err := store.WriteResult(final); !errors.Is(err, jobqueue.ErrResultFinal) {
		t.Fatalf("expected ErrResultFinal, got %v", err)
	}
}

func TestAwaitResultObservesRevisionGrowth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job := testsupport.MustEnqueue(t, store, "brew-update", 1)

	base := jobqueue.ResultDescriptor{
		JobID:       job.ID,
		OperationID: job.OperationID,
		StartedAt:   time.Now().UTC(),
		Revision:    1,
	}
	if err := store.WriteResult(base); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		base.Revision = 2
		base.Lines = append(base.Lines, jobqueue.OutputLine{Stream: jobqueue.StreamStdout, Text: "updating"})
		_ = store.WriteResult(base)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := store.AwaitResult(ctx, job.ID, 1)
	if err != nil {
		t.Fatalf("AwaitResult: %v", err)
	}
	if got.Revision != 2 || len(got.Lines) != 1 {
		t.Fatalf("expected revision 2 with one line, got %+v", got)
	}
}

func TestAwaitResultHonorsContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := store.AwaitResult(ctx, "000000000042", 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestRecoverIncompleteFinalizesOrphanedClaims(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job := testsupport.MustEnqueue(t, store, "trim-caches", 3)
	if _, err := store.Claim(job.ID); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	partial := jobqueue.ResultDescriptor{
		JobID:       job.ID,
		OperationID: job.OperationID,
		StartedAt:   time.Now().UTC(),
		Lines:       []jobqueue.OutputLine{{Stream: jobqueue.StreamStdout, Text: "cleaning"}},
		Revision:    4,
	}
	if err := store.WriteResult(partial); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}

	recovered, err := store.RecoverIncomplete()
	if err != nil {
		t.Fatalf("RecoverIncomplete: %v", err)
	}
	if len(recovered) != 1 || recovered[0] != job.ID {
		t.Fatalf("expected recovery of %q, got %v", job.ID, recovered)
	}

	result, err := store.ReadResult(job.ID)
	if err != nil {
		t.Fatalf("ReadResult: %v", err)
	}
	if result.Outcome != jobqueue.OutcomeIncomplete {
		t.Fatalf("expected incomplete outcome, got %q", result.Outcome)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("partial output should survive recovery, got %+v", result.Lines)
	}
	if result.Revision != 5 {
		t.Fatalf("expected revision bump to 5, got %d", result.Revision)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), job.ID+".claim.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("claim record should be removed after recovery, err=%v", err)
	}
}

func TestRecoverIncompleteLeavesTerminalResultsAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job := testsupport.MustEnqueue(t, store, "dns-flush", 1)
	if _, err := store.Claim(job.ID); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	done := jobqueue.ResultDescriptor{
		JobID:       job.ID,
		OperationID: job.OperationID,
		Outcome:     jobqueue.OutcomeSuccess,
		CompletedAt: time.Now().UTC(),
		Revision:    2,
	}
	if err := store.WriteResult(done); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}

	recovered, err := store.RecoverIncomplete()
	if err != nil {
		t.Fatalf("RecoverIncomplete: %v", err)
	}
	if len(recovered) != 0 {
		t.Fatalf("terminal result should not be recovered, got %v", recovered)
	}
}
