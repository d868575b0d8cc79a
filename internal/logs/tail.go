package logs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// pollInterval is how often a following Tail re-reads the file.
const pollInterval = 250 * time.Millisecond

// TailOptions controls one Tail call. A negative Offset asks for the last
// Limit lines; Follow keeps polling for up to Wait when the read at Offset
// comes back empty.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads daemon log lines from path. A missing file is not an error; the
// caller gets an empty result with offset zero and retries on its next poll.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	var lines []string
	offset := opts.Offset
	if offset < 0 {
		lines, err = lastLines(path, info.Size(), opts.Limit)
		offset = info.Size()
	} else {
		if offset > info.Size() {
			// The file was truncated or rotated underneath us.
			offset = info.Size()
		}
		lines, offset, err = linesFrom(path, offset)
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, err
	}

	if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
		return follow(ctx, path, offset, opts.Wait)
	}
	return TailResult{Lines: lines, Offset: offset}, nil
}

// lastLines returns up to limit lines from the end of the file, reading
// backwards in blocks so large logs are never scanned front to back.
func lastLines(path string, size int64, limit int) ([]string, error) {
	if limit <= 0 || size == 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	const blockSize = int64(32 * 1024)
	var buf []byte
	end := size
	for end > 0 && bytes.Count(buf, []byte{'\n'}) <= limit {
		start := end - blockSize
		if start < 0 {
			start = 0
		}
		block := make([]byte, end-start)
		if _, err := file.ReadAt(block, start); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read log file: %w", err)
		}
		buf = append(block, buf...)
		end = start
	}

	text := strings.TrimSuffix(string(buf), "\n")
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, nil
}

// linesFrom reads everything between offset and the current end of file,
// returning the offset just past the last byte consumed.
func linesFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			lines = append(lines, strings.TrimSuffix(line, "\n"))
			offset += int64(len(line))
			continue
		}
		if errors.Is(err, io.EOF) {
			if line != "" {
				lines = append(lines, line)
				offset += int64(len(line))
			}
			return lines, offset, nil
		}
		return nil, offset, fmt.Errorf("read log file: %w", err)
	}
}

// follow polls for new lines until something arrives, wait expires, or the
// context ends.
func follow(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-timer.C:
			return TailResult{Offset: offset}, nil
		case <-ticker.C:
			lines, next, err := linesFrom(path, offset)
			if err != nil {
				return TailResult{Offset: offset}, err
			}
			if len(lines) > 0 {
				return TailResult{Lines: lines, Offset: next}, nil
			}
			offset = next
		}
	}
}
