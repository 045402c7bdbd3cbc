package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"upkeep/internal/config"
	"upkeep/internal/fileutil"
	"upkeep/internal/logging"
)

const (
	jobSuffix    = ".job.json"
	claimSuffix  = ".claim.json"
	resultSuffix = ".result.json"
	seqFileName  = ".seq"
)

// Store manages job, claim, and result records under a single queue
// directory. All writers rewrite files whole via temp+rename so a reader
// never observes a partial record.
type Store struct {
	dir           string
	logger        *slog.Logger
	awaitInterval time.Duration
}

// Open prepares the queue directory and returns a store.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		dir:           cfg.Paths.QueueDir,
		logger:        logger.With(logging.String(logging.FieldComponent, "jobqueue")),
		awaitInterval: time.Duration(cfg.Coordinator.ResultPollInterval) * time.Second,
	}, nil
}

// Dir returns the queue directory the store operates on.
func (s *Store) Dir() string {
	return s.dir
}

// NextID allocates the next monotonic job id from the sequence file.
// Ids are zero padded so lexical order matches allocation order.
func (s *Store) NextID() (string, error) {
	seqPath := filepath.Join(s.dir, seqFileName)
	var last uint64
	data, err := os.ReadFile(seqPath)
	switch {
	case err == nil:
		parsed, parseErr := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
		if parseErr != nil {
			return "", fmt.Errorf("parse sequence file: %w", parseErr)
		}
		last = parsed
	case errors.Is(err, os.ErrNotExist):
		last = 0
	default:
		return "", fmt.Errorf("read sequence file: %w", err)
	}

	next := last + 1
	if err := fileutil.WriteAtomic(seqPath, []byte(strconv.FormatUint(next, 10))); err != nil {
		return "", fmt.Errorf("advance sequence file: %w", err)
	}
	return fmt.Sprintf("%012d", next), nil
}

// Enqueue allocates an id and writes the job record. The returned
// descriptor carries the assigned id.
func (s *Store) Enqueue(job JobDescriptor) (JobDescriptor, error) {
	id, err := s.NextID()
	if err != nil {
		return JobDescriptor{}, err
	}
	job.ID = id
	if job.RequestedAt.IsZero() {
		job.RequestedAt = time.Now().UTC()
	}
	if err := s.writeJSON(id+jobSuffix, job); err != nil {
		return JobDescriptor{}, fmt.Errorf("write job record: %w", err)
	}
	s.logger.Debug("job enqueued",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldOperation, job.OperationID))
	return job, nil
}

// Poll returns the oldest pending job, or ErrNotQueued when the queue is
// empty. Malformed job files are logged and left in place.
func (s *Store) Poll() (JobDescriptor, error) {
	ids, err := s.pendingIDs()
	if err != nil {
		return JobDescriptor{}, err
	}
	for _, id := range ids {
		var job JobDescriptor
		if err := s.readJSON(id+jobSuffix, &job); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			s.logger.Warn("skipping malformed job record",
				logging.String(logging.FieldJobID, id),
				logging.Error(err))
			continue
		}
		if job.ID == "" {
			job.ID = id
		}
		return job, nil
	}
	return JobDescriptor{}, ErrNotQueued
}

// PendingJobs lists all well-formed pending jobs in queue order.
func (s *Store) PendingJobs() ([]JobDescriptor, error) {
	ids, err := s.pendingIDs()
	if err != nil {
		return nil, err
	}
	jobs := make([]JobDescriptor, 0, len(ids))
	for _, id := range ids {
		var job JobDescriptor
		if err := s.readJSON(id+jobSuffix, &job); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("skipping malformed job record",
					logging.String(logging.FieldJobID, id),
					logging.Error(err))
			}
			continue
		}
		if job.ID == "" {
			job.ID = id
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Claim takes ownership of a pending job by renaming its record. Rename is
// atomic, so exactly one caller wins when several race for the same id.
func (s *Store) Claim(jobID string) (JobDescriptor, error) {
	jobPath := filepath.Join(s.dir, jobID+jobSuffix)
	claimPath := filepath.Join(s.dir, jobID+claimSuffix)

	var job JobDescriptor
	if err := s.readJSON(jobID+jobSuffix, &job); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if _, statErr := os.Stat(claimPath); statErr == nil {
				return JobDescriptor{}, ErrAlreadyClaimed
			}
			return JobDescriptor{}, ErrNotQueued
		}
		return JobDescriptor{}, fmt.Errorf("read job record: %w", err)
	}
	if job.ID == "" {
		job.ID = jobID
	}

	if err := os.Rename(jobPath, claimPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return JobDescriptor{}, ErrAlreadyClaimed
		}
		return JobDescriptor{}, fmt.Errorf("claim job: %w", err)
	}
	s.logger.Debug("job claimed", logging.String(logging.FieldJobID, jobID))
	return job, nil
}

// Drop removes a pending job record without executing it. Used when the
// run that enqueued the job is cancelled before the worker claims it.
func (s *Store) Drop(jobID string) error {
	err := os.Remove(filepath.Join(s.dir, jobID+jobSuffix))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotQueued
	}
	return err
}

// WriteResult rewrites the result record whole. The caller owns the
// revision counter and must increment it on every write. Once a terminal
// outcome has been recorded further writes fail with ErrResultFinal.
func (s *Store) WriteResult(result ResultDescriptor) error {
	if result.JobID == "" {
		return errors.New("jobqueue: result missing job id")
	}
	var existing ResultDescriptor
	err := s.readJSON(result.JobID+resultSuffix, &existing)
	if err == nil && existing.Final() {
		return ErrResultFinal
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("overwriting malformed result record",
			logging.String(logging.FieldJobID, result.JobID),
			logging.Error(err))
	}
	if err := s.writeJSON(result.JobID+resultSuffix, result); err != nil {
		return fmt.Errorf("write result record: %w", err)
	}
	return nil
}

// ReadResult loads the result record for a job. ErrResultPending is
// returned until the worker has written a first revision.
func (s *Store) ReadResult(jobID string) (ResultDescriptor, error) {
	var result ResultDescriptor
	if err := s.readJSON(jobID+resultSuffix, &result); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ResultDescriptor{}, ErrResultPending
		}
		return ResultDescriptor{}, fmt.Errorf("read result record: %w", err)
	}
	return result, nil
}

// AwaitResult polls until the result record advances past sinceRevision or
// reaches a terminal outcome. It returns the newest record observed.
func (s *Store) AwaitResult(ctx context.Context, jobID string, sinceRevision uint64) (ResultDescriptor, error) {
	interval := s.awaitInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := s.ReadResult(jobID)
		if err == nil && (result.Revision > sinceRevision || result.Final()) {
			return result, nil
		}
		if err != nil && !errors.Is(err, ErrResultPending) {
			return ResultDescriptor{}, err
		}

		select {
		case <-ctx.Done():
			return ResultDescriptor{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// RemoveResult deletes a terminal result record after the coordinator has
// consumed it. Missing records are not an error.
func (s *Store) RemoveResult(jobID string) error {
	err := os.Remove(filepath.Join(s.dir, jobID+resultSuffix))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// RemoveClaim deletes the claim record once the matching result is
// terminal. Missing claims are not an error.
func (s *Store) RemoveClaim(jobID string) error {
	err := os.Remove(filepath.Join(s.dir, jobID+claimSuffix))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// RecoverIncomplete scans for claim records left behind by a crashed
// worker and finalizes their results with an incomplete outcome. Partial
// output already written survives in the finalized record. It returns the
// ids that were recovered.
func (s *Store) RecoverIncomplete() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan queue directory: %w", err)
	}

	var recovered []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, claimSuffix) {
			continue
		}
		jobID := strings.TrimSuffix(name, claimSuffix)

		result, readErr := s.ReadResult(jobID)
		if readErr != nil && !errors.Is(readErr, ErrResultPending) {
			s.logger.Warn("skipping claim with malformed result",
				logging.String(logging.FieldJobID, jobID),
				logging.Error(readErr))
			continue
		}
		if result.Final() {
			continue
		}

		if result.JobID == "" {
			result.JobID = jobID
			var claim JobDescriptor
			if err := s.readJSON(name, &claim); err == nil {
				result.OperationID = claim.OperationID
			}
		}
		result.Outcome = OutcomeIncomplete
		result.ExitStatus = -1
		result.CompletedAt = time.Now().UTC()
		result.Revision++
		if err := s.writeJSON(jobID+resultSuffix, result); err != nil {
			return recovered, fmt.Errorf("finalize incomplete result %s: %w", jobID, err)
		}
		if err := s.RemoveClaim(jobID); err != nil {
			return recovered, fmt.Errorf("remove stale claim %s: %w", jobID, err)
		}
		s.logger.Warn("recovered interrupted job",
			logging.String(logging.FieldJobID, jobID),
			logging.String(logging.FieldOutcome, string(OutcomeIncomplete)))
		recovered = append(recovered, jobID)
	}
	sort.Strings(recovered)
	return recovered, nil
}

func (s *Store) pendingIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan queue directory: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, jobSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, jobSuffix))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return fileutil.WriteAtomic(filepath.Join(s.dir, name), data)
}
