package llm_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/parley0/parley/internal/llm"
	"github.com/parley0/parley/internal/log"
	"github.com/parley0/parley/internal/session"
	"github.com/parley0/parley/internal/testutil"
)

func newTestClient(t *testing.T) (*llm.Client, *testutil.MockLLM) {
	t.Helper()
	g := genkit.Init(context.Background())
	mock := testutil.NewMockLLM("fallback reply")
	mock.RegisterModel(g)

	client, err := llm.New(llm.Config{
		Genkit:    g,
		ModelName: "mock/test-model",
		Logger:    log.NewNop(),
	})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return client, mock
}

func TestNew_Validation(t *testing.T) {
	g := genkit.Init(context.Background())

	if _, err := llm.New(llm.Config{ModelName: "mock/test-model"}); err == nil {
		t.Error("New() without genkit should fail")
	}
	if _, err := llm.New(llm.Config{Genkit: g}); err == nil {
		t.Error("New() without model name should fail")
	}
}

func TestStream(t *testing.T) {
	client, mock := newTestClient(t)
	mock.AddResponse("weather", "It is sunny today.")
	mock.ChunkSize = 6

	history := []llm.Turn{
		{Role: session.RoleUser, Text: "hi"},
		{Role: session.RoleModel, Text: "hello"},
	}

	var chunks []string
	final, err := client.Stream(context.Background(), history, "how is the weather?", "be brief", func(cumulative string) {
		chunks = append(chunks, cumulative)
	})
	if err != nil {
		t.Fatalf("Stream() unexpected error: %v", err)
	}
	if final != "It is sunny today." {
		t.Errorf("final = %q", final)
	}

	// Each onChunk call carries the full text so far.
	if len(chunks) < 2 {
		t.Fatalf("chunk count = %d, want streaming in multiple chunks", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if !strings.HasPrefix(chunks[i], chunks[i-1]) {
			t.Errorf("chunk %d %q does not extend %q", i, chunks[i], chunks[i-1])
		}
	}
	if chunks[len(chunks)-1] != final {
		t.Errorf("last chunk = %q, want the final text", chunks[len(chunks)-1])
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("call count = %d, want 1", len(calls))
	}
	// Two history turns plus the new user message.
	if calls[0].History != 3 {
		t.Errorf("request message count = %d, want 3", calls[0].History)
	}
	if calls[0].System != "be brief" {
		t.Errorf("system instruction = %q", calls[0].System)
	}
	if calls[0].UserMessage != "how is the weather?" {
		t.Errorf("user message = %q", calls[0].UserMessage)
	}
}

func TestStream_NoCallback(t *testing.T) {
	client, _ := newTestClient(t)

	final, err := client.Stream(context.Background(), nil, "anything", "", nil)
	if err != nil {
		t.Fatalf("Stream() unexpected error: %v", err)
	}
	if final != "fallback reply" {
		t.Errorf("final = %q", final)
	}
}

func TestStream_GenerationFailure(t *testing.T) {
	client, mock := newTestClient(t)
	failure := errors.New("quota exhausted")
	mock.AddFailure("explode", "partial out", failure)

	var last string
	_, err := client.Stream(context.Background(), nil, "please explode", "", func(cumulative string) {
		last = cumulative
	})
	if err == nil {
		t.Fatal("Stream() expected error")
	}
	if !errors.Is(err, failure) {
		t.Errorf("error = %v, want wrapped failure", err)
	}
	// Partial output may have been delivered; it is not authoritative.
	if last != "" && last != "partial out" {
		t.Errorf("partial = %q", last)
	}
}

func TestDeriveTitle(t *testing.T) {
	client, mock := newTestClient(t)
	mock.AddResponse("lifetimes", "  Rust Lifetimes \n")

	title, err := client.DeriveTitle(context.Background(), "explain lifetimes to me", "English")
	if err != nil {
		t.Fatalf("DeriveTitle() unexpected error: %v", err)
	}
	if title != "Rust Lifetimes" {
		t.Errorf("title = %q, want trimmed model output", title)
	}
}

func TestDeriveTitle_TruncatesLongTitles(t *testing.T) {
	client, mock := newTestClient(t)
	long := strings.Repeat("t", session.TitleMaxLength+20)
	mock.AddResponse("verbose", long)

	title, err := client.DeriveTitle(context.Background(), "a verbose question", "English")
	if err != nil {
		t.Fatalf("DeriveTitle() unexpected error: %v", err)
	}
	if got := len([]rune(title)); got != session.TitleMaxLength {
		t.Errorf("title length = %d, want %d", got, session.TitleMaxLength)
	}
	if !strings.HasSuffix(title, "...") {
		t.Errorf("title = %q, want ellipsis suffix", title)
	}
}

func TestDeriveTitle_EmptyResponse(t *testing.T) {
	client, mock := newTestClient(t)
	mock.AddResponse("blank", "   ")

	_, err := client.DeriveTitle(context.Background(), "a blank question", "English")
	if !errors.Is(err, llm.ErrEmptyTitle) {
		t.Errorf("error = %v, want ErrEmptyTitle", err)
	}
}
