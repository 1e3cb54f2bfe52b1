package orchestrator

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/codecache-ai/codecache/internal/conversation"
	"github.com/codecache-ai/codecache/internal/llm"
	inats "github.com/codecache-ai/codecache/internal/nats"
	"github.com/codecache-ai/codecache/internal/snippets"
)

type fakeStore struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*conversation.Conversation
	findErr   error
	saveErr   error
	findCalls int
	saveCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[uuid.UUID]*conversation.Conversation{}}
}

func (s *fakeStore) seed(c *conversation.Conversation) *conversation.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Version == 0 {
		c.Version = 1
	}
	s.rows[c.ID] = c.Clone()
	return c
}

func (s *fakeStore) count(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.rows[id]; ok {
		return len(c.Messages)
	}
	return 0
}

func (s *fakeStore) FindByID(_ context.Context, id uuid.UUID, userID string) (*conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	c, ok := s.rows[id]
	if !ok || c.UserID != userID {
		return nil, conversation.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *fakeStore) ListByUser(_ context.Context, userID string) ([]*conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*conversation.Conversation
	for _, c := range s.rows {
		if c.UserID == userID {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (s *fakeStore) Save(_ context.Context, c *conversation.Conversation) (*conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	saved := c.Clone()
	if saved.IsNew() {
		saved.ID = uuid.New()
		saved.Version = 1
	} else {
		cur, ok := s.rows[saved.ID]
		if !ok || cur.Version != saved.Version {
			return nil, conversation.ErrConflict
		}
		saved.Version++
	}
	s.rows[saved.ID] = saved.Clone()
	return saved, nil
}

type modelCall struct {
	history  []llm.Turn
	liveText string
}

type fakeModel struct {
	reply  string
	err    error
	calls  []modelCall
	onSend func()
}

func (m *fakeModel) Send(ctx context.Context, history []llm.Turn, liveText string) (string, error) {
	m.calls = append(m.calls, modelCall{history: history, liveText: liveText})
	if m.onSend != nil {
		m.onSend()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type fakeSnippets struct {
	list   []snippets.Snippet
	err    error
	calls  int
	limits []int
}

func (f *fakeSnippets) ListByUser(_ context.Context, _ string, limit int) ([]snippets.Snippet, error) {
	f.calls++
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []inats.AuditEvent
	err    error
}

func (f *fakeEvents) PublishAuditEvent(_ context.Context, e inats.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

type fakeResults struct {
	results []inats.TurnResult
	err     error
}

func (f *fakeResults) PublishTurnResult(ctx context.Context, r inats.TurnResult) error {
	if f.err != nil {
		return f.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.results = append(f.results, r)
	return nil
}

// fakeMsg records how a message was settled. Methods the consumers do not
// call are left to the embedded nil interface.
type fakeMsg struct {
	jetstream.Msg
	data   []byte
	acked  bool
	naked  bool
	termed bool
}

func (m *fakeMsg) Data() []byte { return m.data }
func (m *fakeMsg) Ack() error   { m.acked = true; return nil }
func (m *fakeMsg) Nak() error   { m.naked = true; return nil }
func (m *fakeMsg) Term() error  { m.termed = true; return nil }
