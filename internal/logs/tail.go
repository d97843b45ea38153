// Package logs reads the daemon log file for CLI viewing, including
// follow mode. Offsets returned from one call feed the next so a polling
// caller never re-prints lines.
package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const followPollInterval = 250 * time.Millisecond

// Options controls a Tail call. A negative Offset means "the last Limit
// lines of the file"; a non-negative Offset resumes reading from that byte
// position. With Follow set, Tail blocks up to Wait for new lines before
// returning empty.
type Options struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// Result carries the lines read and the offset to resume from.
type Result struct {
	Lines  []string
	Offset int64
}

// Tail reads log lines according to opts. A missing file is not an error;
// it returns an empty result with offset zero so follow mode keeps polling
// until the daemon creates the file.
func Tail(ctx context.Context, path string, opts Options) (Result, error) {
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("log path %q is a directory", path)
	}

	var result Result
	if opts.Offset < 0 {
		result.Lines, result.Offset, err = lastLines(path, opts.Limit)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// The file was rotated or truncated underneath us.
			offset = 0
		}
		result.Lines, result.Offset, err = readFrom(path, offset)
	}
	if err != nil {
		return Result{}, err
	}

	if opts.Follow && opts.Wait > 0 && len(result.Lines) == 0 {
		return waitForLines(ctx, path, result.Offset, opts.Wait)
	}
	return result, nil
}

// lastLines returns up to limit trailing lines and the end-of-file offset.
func lastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	scanner := newLineScanner(file)
	var (
		ring  []string
		count int
		next  int
	)
	if limit > 0 {
		ring = make([]string, limit)
	}
	for scanner.Scan() {
		if limit <= 0 {
			continue
		}
		ring[next] = scanner.Text()
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	lines := make([]string, count)
	for i := 0; i < count; i++ {
		if count == limit {
			lines[i] = ring[(next+i)%limit]
		} else {
			lines[i] = ring[i]
		}
	}
	return lines, end, nil
}

// readFrom returns every complete line starting at the byte offset, plus
// the offset following the last line read.
func readFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	scanner := newLineScanner(file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	newOffset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, newOffset, nil
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration) (Result, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(followPollInterval)
	defer ticker.Stop()

	for {
		lines, newOffset, err := readFrom(path, offset)
		if err != nil {
			return Result{Offset: offset}, err
		}
		if len(lines) > 0 {
			return Result{Lines: lines, Offset: newOffset}, nil
		}
		if time.Now().After(deadline) {
			return Result{Offset: newOffset}, nil
		}

		select {
		case <-ctx.Done():
			return Result{Offset: newOffset}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
