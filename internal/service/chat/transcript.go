package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	chatmodel "github.com/corvidae/parley/internal/model/chat"
)

// summaryWindow is how many trailing user turns a summary covers.
const summaryWindow = 5

// append records a turn at the end of the transcript. Callers hold the
// session lock. Turns are append-only: nothing ever rewrites or reorders
// them, and only Clear may empty the slice.
func (st *state) append(role chatmodel.Role, content string) chatmodel.Turn {
	turn := chatmodel.Turn{
		ID:        uuid.NewString(),
		SessionID: st.session.ID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	st.turns = append(st.turns, turn)
	return turn
}

// AppendUser records a user turn outside the exchange flow.
func (s *Service) AppendUser(_ context.Context, contextID, content string) (chatmodel.Turn, error) {
	st, err := s.state(contextID)
	if err != nil {
		return chatmodel.Turn{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.append(chatmodel.RoleUser, content), nil
}

// AppendAssistant records an assistant turn outside the exchange flow.
func (s *Service) AppendAssistant(_ context.Context, contextID, content string) (chatmodel.Turn, error) {
	st, err := s.state(contextID)
	if err != nil {
		return chatmodel.Turn{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.append(chatmodel.RoleAssistant, content), nil
}

// Transcript returns the session's turns in conversation order. The slice
// is a copy; callers cannot reach the live transcript through it.
func (s *Service) Transcript(_ context.Context, contextID string) ([]chatmodel.Turn, error) {
	st, err := s.state(contextID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	copied := make([]chatmodel.Turn, len(st.turns))
	copy(copied, st.turns)
	return copied, nil
}

// Clear atomically empties the transcript. Persona and credentials are
// untouched.
func (s *Service) Clear(_ context.Context, contextID string) error {
	st, err := s.state(contextID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.turns = st.turns[:0]
	return nil
}

// Export renders the transcript as plain text, one "{Role}: {content}"
// line per turn, blank-line separated, in conversation order.
func (s *Service) Export(_ context.Context, contextID string) (string, error) {
	st, err := s.state(contextID)
	if err != nil {
		return "", err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	lines := make([]string, 0, len(st.turns))
	for _, turn := range st.turns {
		lines = append(lines, turn.Role.Display()+": "+turn.Content)
	}
	return strings.Join(lines, "\n\n"), nil
}

// Summarize concatenates the last turns the user sent (up to
// summaryWindow, in original order) and appends the result as an
// assistant turn. It is purely local: no dispatch happens.
func (s *Service) Summarize(_ context.Context, contextID string) (chatmodel.Turn, error) {
	st, err := s.state(contextID)
	if err != nil {
		return chatmodel.Turn{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	recent := make([]string, 0, summaryWindow)
	for i := len(st.turns) - 1; i >= 0 && len(recent) < summaryWindow; i-- {
		if st.turns[i].Role == chatmodel.RoleUser {
			recent = append(recent, st.turns[i].Content)
		}
	}
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	content := "Summary of recent messages:\n" + strings.Join(recent, "\n")
	return st.append(chatmodel.RoleAssistant, content), nil
}
