package chat_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	chatmodel "github.com/corvidae/parley/internal/model/chat"
	"github.com/corvidae/parley/internal/service/ai"
	chat "github.com/corvidae/parley/internal/service/chat"
)

type stubDispatcher struct {
	reply ai.Reply
	calls int
}

func (d *stubDispatcher) Send(_ context.Context, _ chatmodel.Session, _ string) ai.Reply {
	d.calls++
	return d.reply
}

func newService() *chat.Service {
	return chat.NewService(chat.Defaults{
		PersonaID: "helpful-assistant",
		Credentials: chatmodel.Credentials{
			EndpointURL: "http://localhost:11434",
			Username:    "api",
		},
	})
}

func TestGetOrCreateIdempotent(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, "ctx-1")
	if err != nil {
		t.Fatalf("GetOrCreate err: %v", err)
	}
	if first.PersonaID != "helpful-assistant" {
		t.Fatalf("unexpected default persona: %s", first.PersonaID)
	}
	if first.Credentials.EndpointURL != "http://localhost:11434" {
		t.Fatalf("unexpected default endpoint: %s", first.Credentials.EndpointURL)
	}

	if _, err := svc.UpdateCredentials(ctx, "ctx-1", chat.CredentialUpdate{Username: "edited"}); err != nil {
		t.Fatalf("UpdateCredentials err: %v", err)
	}

	second, err := svc.GetOrCreate(ctx, "ctx-1")
	if err != nil {
		t.Fatalf("GetOrCreate err: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same session, got %s and %s", first.ID, second.ID)
	}
	if second.Credentials.Username != "edited" {
		t.Fatalf("expected edit to survive re-access, got %s", second.Credentials.Username)
	}
}

func TestGetOrCreateRequiresContextID(t *testing.T) {
	svc := newService()

	if _, err := svc.GetOrCreate(context.Background(), "  "); !errors.Is(err, chat.ErrContextRequired) {
		t.Fatalf("expected ErrContextRequired, got %v", err)
	}
}

func TestExchangeAlternatesTurns(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	dispatcher := &stubDispatcher{reply: ai.Reply{Content: "ok"}}

	for i := 0; i < 3; i++ {
		if _, err := svc.Exchange(ctx, "ctx-1", fmt.Sprintf("message %d", i), dispatcher); err != nil {
			t.Fatalf("Exchange err: %v", err)
		}
	}

	turns, err := svc.Transcript(ctx, "ctx-1")
	if err != nil {
		t.Fatalf("Transcript err: %v", err)
	}
	if len(turns) != 6 {
		t.Fatalf("expected 6 turns, got %d", len(turns))
	}

	for i, turn := range turns {
		want := chatmodel.RoleUser
		if i%2 == 1 {
			want = chatmodel.RoleAssistant
		}
		if turn.Role != want {
			t.Fatalf("turn %d: expected role %s, got %s", i, want, turn.Role)
		}
	}
	for i := 0; i < 3; i++ {
		if got := turns[2*i].Content; got != fmt.Sprintf("message %d", i) {
			t.Fatalf("user turn %d out of order: %q", i, got)
		}
	}
	if dispatcher.calls != 3 {
		t.Fatalf("expected 3 dispatches, got %d", dispatcher.calls)
	}
}

func TestExchangeFailSoft(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	dispatcher := &stubDispatcher{
		reply: ai.Reply{Failure: &ai.Failure{Kind: ai.FailureTransport, Err: errors.New("connection refused")}},
	}

	exchange, err := svc.Exchange(ctx, "ctx-1", "hello", dispatcher)
	if err != nil {
		t.Fatalf("Exchange err: %v", err)
	}

	if !exchange.Reply.Failed() {
		t.Fatal("expected failed reply")
	}
	if !strings.HasPrefix(exchange.Assistant.Content, "Error: ") {
		t.Fatalf("expected error-prefixed assistant turn, got %q", exchange.Assistant.Content)
	}

	// The failed call still leaves a consistent user/assistant pair.
	turns, err := svc.Transcript(ctx, "ctx-1")
	if err != nil {
		t.Fatalf("Transcript err: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
}

func TestClearEmptiesTranscript(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	dispatcher := &stubDispatcher{reply: ai.Reply{Content: "ok"}}

	for i := 0; i < 4; i++ {
		if _, err := svc.Exchange(ctx, "ctx-1", "hi", dispatcher); err != nil {
			t.Fatalf("Exchange err: %v", err)
		}
	}

	if err := svc.Clear(ctx, "ctx-1"); err != nil {
		t.Fatalf("Clear err: %v", err)
	}

	turns, err := svc.Transcript(ctx, "ctx-1")
	if err != nil {
		t.Fatalf("Transcript err: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected empty transcript, got %d turns", len(turns))
	}
}

func TestExportFormat(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	dispatcher := &stubDispatcher{reply: ai.Reply{Content: "General Kenobi."}}

	if _, err := svc.Exchange(ctx, "ctx-1", "warmup", dispatcher); err != nil {
		t.Fatalf("Exchange err: %v", err)
	}
	if err := svc.Clear(ctx, "ctx-1"); err != nil {
		t.Fatalf("Clear err: %v", err)
	}
	if _, err := svc.Exchange(ctx, "ctx-1", "Hello there.", dispatcher); err != nil {
		t.Fatalf("Exchange err: %v", err)
	}

	text, err := svc.Export(ctx, "ctx-1")
	if err != nil {
		t.Fatalf("Export err: %v", err)
	}

	want := "User: Hello there.\n\nAssistant: General Kenobi."
	if text != want {
		t.Fatalf("unexpected export:\ngot  %q\nwant %q", text, want)
	}
}

func TestSummarizeFewerThanWindow(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	dispatcher := &stubDispatcher{reply: ai.Reply{Content: "ok"}}

	for i := 0; i < 3; i++ {
		if _, err := svc.Exchange(ctx, "ctx-1", fmt.Sprintf("msg %d", i), dispatcher); err != nil {
			t.Fatalf("Exchange err: %v", err)
		}
	}

	turn, err := svc.Summarize(ctx, "ctx-1")
	if err != nil {
		t.Fatalf("Summarize err: %v", err)
	}

	if turn.Role != chatmodel.RoleAssistant {
		t.Fatalf("expected assistant summary turn, got %s", turn.Role)
	}
	want := "Summary of recent messages:\nmsg 0\nmsg 1\nmsg 2"
	if turn.Content != want {
		t.Fatalf("unexpected summary:\ngot  %q\nwant %q", turn.Content, want)
	}
}

func TestSummarizeTakesLastFiveInOrder(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	dispatcher := &stubDispatcher{reply: ai.Reply{Content: "ok"}}

	for i := 0; i < 7; i++ {
		if _, err := svc.Exchange(ctx, "ctx-1", fmt.Sprintf("msg %d", i), dispatcher); err != nil {
			t.Fatalf("Exchange err: %v", err)
		}
	}

	turn, err := svc.Summarize(ctx, "ctx-1")
	if err != nil {
		t.Fatalf("Summarize err: %v", err)
	}

	want := "Summary of recent messages:\nmsg 2\nmsg 3\nmsg 4\nmsg 5\nmsg 6"
	if turn.Content != want {
		t.Fatalf("unexpected summary:\ngot  %q\nwant %q", turn.Content, want)
	}

	// The summary itself lands as a regular appended turn.
	turns, err := svc.Transcript(ctx, "ctx-1")
	if err != nil {
		t.Fatalf("Transcript err: %v", err)
	}
	if len(turns) != 15 {
		t.Fatalf("expected 15 turns after summary, got %d", len(turns))
	}
}

func TestSessionIsolation(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	dispatcher := &stubDispatcher{reply: ai.Reply{Content: "ok"}}

	if _, err := svc.Exchange(ctx, "alice", "secret question", dispatcher); err != nil {
		t.Fatalf("Exchange err: %v", err)
	}
	if _, err := svc.UpdateCredentials(ctx, "alice", chat.CredentialUpdate{Secret: "alice-token"}); err != nil {
		t.Fatalf("UpdateCredentials err: %v", err)
	}
	if _, err := svc.SetCustomPrompt(ctx, "alice", "You are Alice's bot."); err != nil {
		t.Fatalf("SetCustomPrompt err: %v", err)
	}

	bob, err := svc.GetOrCreate(ctx, "bob")
	if err != nil {
		t.Fatalf("GetOrCreate err: %v", err)
	}

	if bob.Credentials.Secret == "alice-token" {
		t.Fatal("credential edit leaked across sessions")
	}
	if bob.CustomPrompt != "" {
		t.Fatalf("custom prompt leaked across sessions: %q", bob.CustomPrompt)
	}

	turns, err := svc.Transcript(ctx, "bob")
	if err != nil {
		t.Fatalf("Transcript err: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("transcript leaked across sessions: %d turns", len(turns))
	}
}

func TestManualAppendsKeepOrder(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.AppendUser(ctx, "ctx-1", "imported question"); err != nil {
		t.Fatalf("AppendUser err: %v", err)
	}
	if _, err := svc.AppendAssistant(ctx, "ctx-1", "imported answer"); err != nil {
		t.Fatalf("AppendAssistant err: %v", err)
	}

	turns, err := svc.Transcript(ctx, "ctx-1")
	if err != nil {
		t.Fatalf("Transcript err: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != chatmodel.RoleUser || turns[1].Role != chatmodel.RoleAssistant {
		t.Fatalf("unexpected roles: %s, %s", turns[0].Role, turns[1].Role)
	}
}

func TestTranscriptReturnsCopy(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	dispatcher := &stubDispatcher{reply: ai.Reply{Content: "ok"}}

	if _, err := svc.Exchange(ctx, "ctx-1", "hi", dispatcher); err != nil {
		t.Fatalf("Exchange err: %v", err)
	}

	turns, err := svc.Transcript(ctx, "ctx-1")
	if err != nil {
		t.Fatalf("Transcript err: %v", err)
	}
	turns[0].Content = "tampered"

	fresh, err := svc.Transcript(ctx, "ctx-1")
	if err != nil {
		t.Fatalf("Transcript err: %v", err)
	}
	if fresh[0].Content != "hi" {
		t.Fatalf("transcript mutated through returned slice: %q", fresh[0].Content)
	}
}
