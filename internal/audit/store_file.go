package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// FileStore appends events as JSON lines to a single file, one entry per
// line, readable by external compliance tooling. A single writer goroutine
// serializes appends so concurrent pipeline workers never interleave partial
// lines.
type FileStore struct {
	path string

	requests  chan fileAppend
	closing   chan struct{}
	closeOnce sync.Once
	closed    sync.WaitGroup

	file *os.File
}

type fileAppend struct {
	event Event
	reply chan error
}

// NewFileStore opens (or creates) the trail file and starts the writer.
func NewFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit trail %s: %w", path, err)
	}
	s := &FileStore{
		path:     path,
		requests: make(chan fileAppend),
		closing:  make(chan struct{}),
		file:     f,
	}
	s.closed.Add(1)
	go s.writeLoop()
	return s, nil
}

// Append blocks until the entry is written or the context is done. An error
// here means the trail is incomplete and the caller must treat its operation
// as failed.
func (s *FileStore) Append(ctx context.Context, event Event) error {
	req := fileAppend{event: event, reply: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-s.closing:
		return fmt.Errorf("audit trail %s: store closed", s.path)
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListByLead replays the file and returns entries for one lead. Reads go
// through a fresh handle so they never race the appender.
func (s *FileStore) ListByLead(_ context.Context, leadID string) ([]Event, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open audit trail %s: %w", s.path, err)
	}
	defer f.Close()

	var out []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("decode audit trail %s: %w", s.path, err)
		}
		if event.LeadID == leadID {
			out = append(out, event)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit trail %s: %w", s.path, err)
	}
	return out, nil
}

// Close stops the writer and syncs the file. Further appends fail. Safe to
// call more than once.
func (s *FileStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closing)
		s.closed.Wait()
		if syncErr := s.file.Sync(); syncErr != nil {
			s.file.Close()
			err = syncErr
			return
		}
		err = s.file.Close()
	})
	return err
}

func (s *FileStore) writeLoop() {
	defer s.closed.Done()
	for {
		select {
		case req := <-s.requests:
			req.reply <- s.writeLine(req.event)
		case <-s.closing:
			// Drain anything already queued before shutting down.
			for {
				select {
				case req := <-s.requests:
					req.reply <- s.writeLine(req.event)
				default:
					return
				}
			}
		}
	}
}

func (s *FileStore) writeLine(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
