package transcript

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pollInterval is how often the polling fallback checks for new content.
const pollInterval = 100 * time.Millisecond

// Reader reads one session transcript file.
type Reader struct {
	path string
	file *os.File
}

// NewReader opens a transcript file for reading.
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	return &Reader{path: path, file: file}, nil
}

// Path returns the transcript file path.
func (r *Reader) Path() string {
	return r.path
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadAll reads every message in the file. Malformed lines are skipped;
// partially written trailing lines are the norm while a session is live.
func (r *Reader) ReadAll() ([]Message, error) {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek transcript: %w", err)
	}

	var messages []Message
	scanner := bufio.NewScanner(r.file)
	// Individual lines can be large; tool results embed whole files.
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg, err := ParseMessage(line)
		if err != nil {
			continue
		}
		messages = append(messages, *msg)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}
	return messages, nil
}

// ReadFrom reads messages starting at a byte offset and returns the offset
// after the last consumed line, for incremental catch-up reads.
func (r *Reader) ReadFrom(offset int64) ([]Message, int64, error) {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek transcript: %w", err)
	}

	var messages []Message
	scanner := bufio.NewScanner(r.file)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		offset += int64(len(line)) + 1
		if len(line) == 0 {
			continue
		}
		msg, err := ParseMessage(line)
		if err != nil {
			continue
		}
		messages = append(messages, *msg)
	}

	if err := scanner.Err(); err != nil {
		return nil, offset, fmt.Errorf("scan transcript: %w", err)
	}
	return messages, offset, nil
}

// Tail follows the file and delivers messages appended after the call.
// The channel closes when ctx is cancelled. File watching uses fsnotify
// with a polling fallback when no watcher is available.
func (r *Reader) Tail(ctx context.Context) <-chan Message {
	ch := make(chan Message, 100)

	go func() {
		defer close(ch)

		offset, err := r.file.Seek(0, io.SeekEnd)
		if err != nil {
			return
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			r.tailPolling(ctx, ch, offset)
			return
		}
		defer watcher.Close()

		// Watching the directory survives the rename-and-recreate writes
		// some editors and the CLI itself perform.
		if err := watcher.Add(filepath.Dir(r.path)); err != nil {
			r.tailPolling(ctx, ch, offset)
			return
		}

		r.tailWatcher(ctx, ch, watcher, offset)
	}()

	return ch
}

func (r *Reader) tailWatcher(ctx context.Context, ch chan<- Message, watcher *fsnotify.Watcher, offset int64) {
	base := filepath.Base(r.path)
	reader := bufio.NewReader(r.file)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base || !event.Has(fsnotify.Write) {
				continue
			}
			offset = r.catchUp(reader, ch, offset)

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (r *Reader) tailPolling(ctx context.Context, ch chan<- Message, offset int64) {
	reader := bufio.NewReader(r.file)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			offset = r.catchUp(reader, ch, offset)
		}
	}
}

// catchUp reads every complete line currently available and returns the
// new offset. On truncation the file is re-read from the start.
func (r *Reader) catchUp(reader *bufio.Reader, ch chan<- Message, offset int64) int64 {
	if info, err := r.file.Stat(); err == nil && info.Size() < offset {
		if _, err := r.file.Seek(0, io.SeekStart); err == nil {
			offset = 0
			reader.Reset(r.file)
		}
	}

	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			offset += int64(len(line))
			trimmed := strings.TrimSuffix(string(line), "\n")
			if trimmed != "" {
				if msg, perr := ParseMessage([]byte(trimmed)); perr == nil {
					select {
					case ch <- *msg:
					default:
						// Slow consumer; drop rather than stall the tail.
					}
				}
			}
		}
		if err != nil {
			return offset
		}
	}
}

// ReadFile reads a transcript file in one call.
func ReadFile(path string) ([]Message, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAll()
}
