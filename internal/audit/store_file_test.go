package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type FileStoreSuite struct {
	suite.Suite
	path  string
	store *FileStore
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, new(FileStoreSuite))
}

func (s *FileStoreSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "audit.jsonl")
	var err error
	s.store, err = NewFileStore(s.path)
	s.Require().NoError(err)
}

func (s *FileStoreSuite) TearDownTest() {
	s.store.Close()
}

func (s *FileStoreSuite) event(id, leadID string, kind Kind) Event {
	return Event{
		ID:        id,
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		LeadID:    leadID,
		Detail:    map[string]string{"reason": "missing_consent"},
		Actor:     "system",
		Origin:    OriginUnknown,
	}
}

func (s *FileStoreSuite) TestAppendWritesOneLinePerEvent() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, s.event("e1", "L1", KindLeadRejected)))
	s.Require().NoError(s.store.Append(ctx, s.event("e2", "L2", KindLeadStored)))
	s.Require().NoError(s.store.Close())

	f, err := os.Open(s.path)
	s.Require().NoError(err)
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
		var event Event
		s.Require().NoError(json.Unmarshal(scanner.Bytes(), &event), "every line must parse on its own")
	}
	s.Require().NoError(scanner.Err())
	s.Equal(2, lines)
}

func (s *FileStoreSuite) TestWireFieldNames() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, s.event("e1", "L1", KindLeadStored)))
	s.Require().NoError(s.store.Close())

	raw, err := os.ReadFile(s.path)
	s.Require().NoError(err)

	var decoded map[string]any
	s.Require().NoError(json.Unmarshal(raw, &decoded))
	for _, key := range []string{"timestamp", "event_kind", "lead_id", "detail", "actor", "origin"} {
		s.Contains(decoded, key)
	}
	s.Equal("lead_stored", decoded["event_kind"])
}

func (s *FileStoreSuite) TestListByLead() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, s.event("e1", "L1", KindLeadRejected)))
	s.Require().NoError(s.store.Append(ctx, s.event("e2", "L2", KindLeadStored)))
	s.Require().NoError(s.store.Append(ctx, s.event("e3", "L1", KindLeadStored)))

	events, err := s.store.ListByLead(ctx, "L1")
	s.Require().NoError(err)
	s.Len(events, 2)
	s.Equal(KindLeadRejected, events[0].Kind)
	s.Equal(KindLeadStored, events[1].Kind)
}

func (s *FileStoreSuite) TestConcurrentAppendsDoNotInterleave() {
	ctx := context.Background()
	const writers = 20

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			event := s.event(fmt.Sprintf("e%d", n), fmt.Sprintf("L%d", n), KindLeadStored)
			s.Require().NoError(s.store.Append(ctx, event))
		}(i)
	}
	wg.Wait()
	s.Require().NoError(s.store.Close())

	f, err := os.Open(s.path)
	s.Require().NoError(err)
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var event Event
		s.Require().NoError(json.Unmarshal(scanner.Bytes(), &event))
		lines++
	}
	s.Equal(writers, lines)
}

func (s *FileStoreSuite) TestAppendAfterCloseFails() {
	s.Require().NoError(s.store.Close())
	err := s.store.Append(context.Background(), s.event("e1", "L1", KindLeadStored))
	s.Error(err)
}

func TestNewFileStoreBadPath(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "missing", "audit.jsonl"))
	require.Error(t, err)
}
