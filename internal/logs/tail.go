package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	pollInterval  = 250 * time.Millisecond
	maxLineLength = 1024 * 1024
)

// DaemonLogPath returns the daemon's log file location under logDir.
func DaemonLogPath(logDir string) string {
	return filepath.Join(logDir, "upkeepd.log")
}

// Request describes one tail read. A negative Offset asks for the last
// Limit lines of the file; otherwise reading starts at Offset. When
// Follow is set and no new lines exist yet, Tail polls the file for up
// to Wait before returning.
type Request struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// Chunk is the lines read plus the byte offset to pass on the next
// request to continue where this one stopped.
type Chunk struct {
	Lines []string
	Next  int64
}

// Tailer reads a single log file incrementally. It holds no open file
// handle, so the file may rotate or appear between calls.
type Tailer struct {
	path string
}

func NewTailer(path string) *Tailer {
	return &Tailer{path: path}
}

// Tail performs one read per Request. A missing file is not an error;
// it returns an empty chunk with Next reset to zero.
func (t *Tailer) Tail(ctx context.Context, req Request) (Chunk, error) {
	info, err := os.Stat(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Chunk{}, nil
		}
		return Chunk{Next: req.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return Chunk{Next: req.Offset}, fmt.Errorf("log path %q is a directory", t.path)
	}

	if req.Wait < 0 {
		req.Wait = 0
	}

	if req.Offset < 0 {
		chunk, err := t.lastLines(req.Limit)
		if err != nil {
			return chunk, err
		}
		if req.Follow && req.Wait > 0 && len(chunk.Lines) == 0 {
			return t.poll(ctx, chunk.Next, req.Wait)
		}
		return chunk, nil
	}

	offset := req.Offset
	if offset > info.Size() {
		offset = info.Size()
	}
	chunk, err := t.forward(offset)
	if err != nil {
		return chunk, err
	}
	if req.Follow && req.Wait > 0 && len(chunk.Lines) == 0 {
		return t.poll(ctx, chunk.Next, req.Wait)
	}
	return chunk, nil
}

// lastLines scans the whole file keeping the final limit lines in a
// ring, and reports the end-of-file offset for followup reads.
func (t *Tailer) lastLines(limit int) (Chunk, error) {
	file, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Chunk{}, nil
		}
		return Chunk{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Chunk{}, fmt.Errorf("stat log file: %w", err)
	}
	if limit <= 0 {
		return Chunk{Next: info.Size()}, nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	ring := make([]string, limit)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return Chunk{}, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return Chunk{}, fmt.Errorf("determine log offset: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return Chunk{Lines: lines, Next: end}, nil
}

func (t *Tailer) forward(offset int64) (Chunk, error) {
	file, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Chunk{}, nil
		}
		return Chunk{Next: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Chunk{Next: offset}, fmt.Errorf("seek log file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return Chunk{Next: offset}, fmt.Errorf("read log file: %w", err)
	}

	next, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return Chunk{Next: offset}, fmt.Errorf("determine log offset: %w", err)
	}
	return Chunk{Lines: lines, Next: next}, nil
}

// poll re-reads from offset until new lines arrive, the wait elapses,
// or the context is cancelled.
func (t *Tailer) poll(ctx context.Context, offset int64, wait time.Duration) (Chunk, error) {
	deadline := time.Now().Add(wait)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		chunk, err := t.forward(offset)
		if err != nil {
			return chunk, err
		}
		if len(chunk.Lines) > 0 || time.Now().After(deadline) {
			return chunk, nil
		}
		offset = chunk.Next

		select {
		case <-ctx.Done():
			return chunk, ctx.Err()
		case <-ticker.C:
		}
	}
}
