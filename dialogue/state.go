package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// ConversationState is the per (session, week) dialogue record.
type ConversationState struct {
	Week            int    `json:"week"`
	Name            string `json:"name"`
	CurrentQuestion int    `json:"current_question"`

	Answers           map[int][]string `json:"answers"`
	NovaResponses     map[int][]string `json:"nova_responses"`
	IterationCount    map[int]int      `json:"iteration_count"`
	Scenario          map[int]Scenario `json:"scenario"`
	QuestionCompleted map[int]bool     `json:"question_completed"`

	// SkipNext holds questions to auto-complete once they come up.
	SkipNext map[int]bool `json:"skip_next,omitempty"`

	SelectedProblem     string `json:"selected_problem,omitempty"`
	SelectedCornerPiece string `json:"selected_corner_piece,omitempty"`

	PrintIndex        map[int]int `json:"print_index,omitempty"`
	ShowFinalMessages bool        `json:"show_final_messages,omitempty"`
	FinalMessageIndex int         `json:"final_message_index,omitempty"`

	SkillsIdentified []string `json:"skills_identified,omitempty"`
	SkillsMissing    []string `json:"skills_missing,omitempty"`

	WeekCompleted bool      `json:"week_completed"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewConversationState(week int, name string) *ConversationState {
	s := &ConversationState{Week: week, Name: name}
	s.ensureMaps()
	return s
}

func (s *ConversationState) ensureMaps() {
	if s.Answers == nil {
		s.Answers = map[int][]string{}
	}
	if s.NovaResponses == nil {
		s.NovaResponses = map[int][]string{}
	}
	if s.IterationCount == nil {
		s.IterationCount = map[int]int{}
	}
	if s.Scenario == nil {
		s.Scenario = map[int]Scenario{}
	}
	if s.QuestionCompleted == nil {
		s.QuestionCompleted = map[int]bool{}
	}
	if s.SkipNext == nil {
		s.SkipNext = map[int]bool{}
	}
	if s.PrintIndex == nil {
		s.PrintIndex = map[int]int{}
	}
}

// LatestAnswer returns the most recent answer to q.
func (s *ConversationState) LatestAnswer(q int) (string, bool) {
	answers := s.Answers[q]
	if len(answers) == 0 {
		return "", false
	}
	return answers[len(answers)-1], true
}

func (s *ConversationState) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

func UnmarshalConversationState(data []byte) (*ConversationState, error) {
	var s ConversationState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("could not decode conversation state: %w", err)
	}
	s.ensureMaps()
	return &s, nil
}

// SessionStore persists conversation state keyed by (session id, week).
// Get returns ErrSessionNotFound when nothing has been saved yet.
type SessionStore interface {
	GetConversation(ctx context.Context, sessionID string, week int) (*ConversationState, error)
	SaveConversation(ctx context.Context, sessionID string, state *ConversationState) error
}

type memoryKey struct {
	session string
	week    int
}

// MemoryStore keeps conversation state in process. States are stored
// encoded so callers never share a live pointer with the store.
type MemoryStore struct {
	mu     sync.Mutex
	states map[memoryKey][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: map[memoryKey][]byte{}}
}

func (m *MemoryStore) GetConversation(ctx context.Context, sessionID string, week int) (*ConversationState, error) {
	m.mu.Lock()
	data, ok := m.states[memoryKey{sessionID, week}]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return UnmarshalConversationState(data)
}

func (m *MemoryStore) SaveConversation(ctx context.Context, sessionID string, state *ConversationState) error {
	data, err := state.Marshal()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.states[memoryKey{sessionID, state.Week}] = data
	m.mu.Unlock()
	return nil
}
