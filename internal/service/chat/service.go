package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	chatmodel "github.com/corvidae/parley/internal/model/chat"
	"github.com/corvidae/parley/internal/service/ai"
)

var ErrContextRequired = errors.New("context id is required")

// Dispatcher issues the outbound model call for one exchange.
type Dispatcher interface {
	Send(ctx context.Context, session chatmodel.Session, userMessage string) ai.Reply
}

// Defaults seed sessions on first access.
type Defaults struct {
	PersonaID   string
	Credentials chatmodel.Credentials
}

// Service owns all conversation state, keyed by context id. Sessions are
// created on first use, live in memory only, and are fully isolated from
// one another.
type Service struct {
	mu       sync.RWMutex
	defaults Defaults
	sessions map[string]*state
}

// state bundles one session with its transcript. Its mutex serializes
// every transcript mutation, so an exchange holds it across the whole
// append-user, dispatch, append-assistant sequence: at most one in-flight
// request per session.
type state struct {
	mu      sync.Mutex
	session chatmodel.Session
	turns   []chatmodel.Turn
}

// NewService bootstraps the in-memory session store.
func NewService(defaults Defaults) *Service {
	return &Service{
		defaults: defaults,
		sessions: make(map[string]*state),
	}
}

// GetOrCreate returns the session for contextID, seeding it with defaults
// on first access. Repeated calls for the same context return the same
// session unchanged.
func (s *Service) GetOrCreate(_ context.Context, contextID string) (chatmodel.Session, error) {
	st, err := s.state(contextID)
	if err != nil {
		return chatmodel.Session{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.session, nil
}

// CredentialUpdate carries a partial credential edit. Empty fields keep
// the session's current value.
type CredentialUpdate struct {
	EndpointURL string
	Username    string
	Secret      string
}

// UpdateCredentials applies a partial credential edit to one session.
func (s *Service) UpdateCredentials(_ context.Context, contextID string, update CredentialUpdate) (chatmodel.Session, error) {
	st, err := s.state(contextID)
	if err != nil {
		return chatmodel.Session{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if update.EndpointURL != "" {
		st.session.Credentials.EndpointURL = update.EndpointURL
	}
	if update.Username != "" {
		st.session.Credentials.Username = update.Username
	}
	if update.Secret != "" {
		st.session.Credentials.Secret = update.Secret
	}
	return st.session, nil
}

// SelectPersona binds the session to a persona id. Callers resolve the id
// against the registry first, so an unknown selection has already fallen
// back to the default entry by the time it lands here.
func (s *Service) SelectPersona(_ context.Context, contextID, personaID string) (chatmodel.Session, error) {
	st, err := s.state(contextID)
	if err != nil {
		return chatmodel.Session{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.session.PersonaID = personaID
	return st.session, nil
}

// SetCustomPrompt stores the session-scoped free-text prompt used when the
// custom persona is selected.
func (s *Service) SetCustomPrompt(_ context.Context, contextID, prompt string) (chatmodel.Session, error) {
	st, err := s.state(contextID)
	if err != nil {
		return chatmodel.Session{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.session.CustomPrompt = prompt
	return st.session, nil
}

// Exchange is the outcome of one completed conversation turn.
type Exchange struct {
	User      chatmodel.Turn
	Assistant chatmodel.Turn
	Reply     ai.Reply
}

// Exchange runs one full turn: append the user message, dispatch it, and
// append the reply. The session lock is held throughout, so concurrent
// submissions for the same session serialize and can never interleave
// their appends. The dispatcher is fail-soft, so the assistant turn always
// lands and the transcript stays a strict user/assistant alternation.
func (s *Service) Exchange(ctx context.Context, contextID, content string, d Dispatcher) (Exchange, error) {
	st, err := s.state(contextID)
	if err != nil {
		return Exchange{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	user := st.append(chatmodel.RoleUser, content)
	reply := d.Send(ctx, st.session, content)
	assistant := st.append(chatmodel.RoleAssistant, reply.DisplayContent())

	return Exchange{User: user, Assistant: assistant, Reply: reply}, nil
}

// state returns the session state for contextID, creating it on first use.
func (s *Service) state(contextID string) (*state, error) {
	if strings.TrimSpace(contextID) == "" {
		return nil, ErrContextRequired
	}

	s.mu.RLock()
	st, ok := s.sessions[contextID]
	s.mu.RUnlock()
	if ok {
		return st, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[contextID]; ok {
		return st, nil
	}

	st = &state{
		session: chatmodel.Session{
			ID:          contextID,
			PersonaID:   s.defaults.PersonaID,
			Credentials: s.defaults.Credentials,
			CreatedAt:   time.Now().UTC(),
		},
		turns: make([]chatmodel.Turn, 0, 16),
	}
	s.sessions[contextID] = st
	return st, nil
}
