package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	chatmodel "github.com/corvidae/parley/internal/model/chat"
	"github.com/corvidae/parley/internal/model/persona"
)

const (
	generatePath = "/api/generate"

	// requestTimeout bounds every outbound call. A hanging endpoint
	// consumes the full window; there is no cancellation beyond it.
	requestTimeout = 30 * time.Second
)

// Dispatcher issues the single blocking model call for one conversation
// turn. It never mutates session state, so a call can be retried without
// double-appending to the transcript.
type Dispatcher struct {
	personas persona.Store
	model    string
	client   *http.Client
}

// NewDispatcher creates a dispatcher targeting the configured model id.
func NewDispatcher(personas persona.Store, model string) *Dispatcher {
	return &Dispatcher{
		personas: personas,
		model:    model,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response *string `json:"response"`
}

// Send posts one prompt to the session's endpoint and normalizes the
// outcome into a Reply. All failures are contained here: the returned
// Reply carries a classified Failure instead of an error escaping to the
// caller, and the session is never left in a broken state.
func (d *Dispatcher) Send(ctx context.Context, session chatmodel.Session, userMessage string) Reply {
	prompt := d.BuildPrompt(session, userMessage)

	payload, err := json.Marshal(generateRequest{
		Prompt: prompt,
		Model:  d.model,
		Stream: false,
	})
	if err != nil {
		return failure(FailureTransport, fmt.Errorf("encode generate request: %w", err))
	}

	url := strings.TrimRight(session.Credentials.EndpointURL, "/") + generatePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return failure(FailureTransport, fmt.Errorf("build generate request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(session.Credentials.Username, session.Credentials.Secret)

	resp, err := d.client.Do(req)
	if err != nil {
		return failure(FailureTransport, fmt.Errorf("could not reach model endpoint: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(FailureTransport, fmt.Errorf("read model response: %w", err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return failure(FailureStatus, fmt.Errorf("model endpoint returned status %d", resp.StatusCode))
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return failure(FailureMalformed, fmt.Errorf("decode model response: %w", err))
	}
	if parsed.Response == nil {
		return failure(FailureMalformed, errors.New(`model response missing "response" field`))
	}

	log.Printf("[dispatch] session=%s persona=%s length=%d", session.ID, session.PersonaID, len(*parsed.Response))
	return Reply{Content: *parsed.Response}
}

// BuildPrompt combines the session's persona prefix with the user message.
// Prior turns are deliberately not included: each call is a single-turn
// prompt and the transcript is UI memory only.
func (d *Dispatcher) BuildPrompt(session chatmodel.Session, userMessage string) string {
	return fmt.Sprintf("%s\nUser: %s\nAssistant:", d.promptPrefix(session), userMessage)
}

func (d *Dispatcher) promptPrefix(session chatmodel.Session) string {
	p := d.personas.Resolve(session.PersonaID)
	if p.ID == persona.CustomID && session.CustomPrompt != "" {
		return session.CustomPrompt
	}
	return p.PromptPrefix
}
