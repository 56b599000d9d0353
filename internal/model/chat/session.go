package chat

import "time"

// Credentials hold the per-session model endpoint settings.
// They live in memory only and are never written to durable storage.
type Credentials struct {
	EndpointURL string `json:"endpointUrl"`
	Username    string `json:"username"`
	Secret      string `json:"-"`
}

// Session captures the transient conversation state for one user context.
type Session struct {
	ID           string      `json:"id"`
	PersonaID    string      `json:"personaId"`
	CustomPrompt string      `json:"-"`
	Credentials  Credentials `json:"credentials"`
	CreatedAt    time.Time   `json:"createdAt"`
}
