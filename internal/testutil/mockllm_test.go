package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/go-cmp/cmp"
)

func TestMockLLM_PatternMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		patterns []struct{ pattern, response string }
		input    string
		want     string
	}{
		{
			name:  "fallback when no patterns",
			input: "hello",
			want:  "default response",
		},
		{
			name: "exact match",
			patterns: []struct{ pattern, response string }{
				{"hello", "hi there"},
			},
			input: "hello",
			want:  "hi there",
		},
		{
			name: "case insensitive match",
			patterns: []struct{ pattern, response string }{
				{"hello", "hi there"},
			},
			input: "HELLO world",
			want:  "hi there",
		},
		{
			name: "first match wins",
			patterns: []struct{ pattern, response string }{
				{"hello", "first"},
				{"hello", "second"},
			},
			input: "hello",
			want:  "first",
		},
		{
			name: "no match returns fallback",
			patterns: []struct{ pattern, response string }{
				{"hello", "hi"},
			},
			input: "goodbye",
			want:  "default response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewMockLLM("default response")
			for _, p := range tt.patterns {
				m.AddResponse(p.pattern, p.response)
			}

			req := &ai.ModelRequest{
				Messages: []*ai.Message{
					ai.NewUserMessage(ai.NewTextPart(tt.input)),
				},
			}

			resp, err := m.generate(context.Background(), req, nil)
			if err != nil {
				t.Fatalf("generate() unexpected error: %v", err)
			}
			if got := resp.Message.Text(); got != tt.want {
				t.Errorf("generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMockLLM_CallRecording(t *testing.T) {
	t.Parallel()
	m := NewMockLLM("ok")
	m.AddResponse("special", "special response")

	req1 := &ai.ModelRequest{
		Messages: []*ai.Message{ai.NewUserMessage(ai.NewTextPart("hello"))},
	}
	req2 := &ai.ModelRequest{
		Messages: []*ai.Message{ai.NewUserMessage(ai.NewTextPart("special input"))},
	}

	if _, err := m.generate(context.Background(), req1, nil); err != nil {
		t.Fatalf("generate() unexpected error: %v", err)
	}
	if _, err := m.generate(context.Background(), req2, nil); err != nil {
		t.Fatalf("generate() unexpected error: %v", err)
	}

	want := []MockCall{
		{UserMessage: "hello", History: 1, Response: "ok"},
		{UserMessage: "special input", History: 1, Response: "special response"},
	}
	if diff := cmp.Diff(want, m.Calls()); diff != "" {
		t.Errorf("Calls() mismatch (-want +got):\n%s", diff)
	}

	m.Reset()
	if got := len(m.Calls()); got != 0 {
		t.Errorf("Calls() after Reset() len = %d, want 0", got)
	}
}

func TestMockLLM_StreamingChunks(t *testing.T) {
	t.Parallel()
	m := NewMockLLM("hello world")
	m.ChunkSize = 4

	var deltas []string
	cb := func(_ context.Context, chunk *ai.ModelResponseChunk) error {
		for _, p := range chunk.Content {
			deltas = append(deltas, p.Text)
		}
		return nil
	}

	req := &ai.ModelRequest{
		Messages: []*ai.Message{ai.NewUserMessage(ai.NewTextPart("test"))},
	}

	if _, err := m.generate(context.Background(), req, cb); err != nil {
		t.Fatalf("generate() unexpected error: %v", err)
	}

	if diff := cmp.Diff([]string{"hell", "o wo", "rld"}, deltas); diff != "" {
		t.Errorf("streaming deltas mismatch (-want +got):\n%s", diff)
	}
}

func TestMockLLM_Failure(t *testing.T) {
	t.Parallel()
	wantErr := errors.New("provider unavailable")
	m := NewMockLLM("ok")
	m.AddFailure("boom", "partial text", wantErr)

	var deltas []string
	cb := func(_ context.Context, chunk *ai.ModelResponseChunk) error {
		for _, p := range chunk.Content {
			deltas = append(deltas, p.Text)
		}
		return nil
	}

	req := &ai.ModelRequest{
		Messages: []*ai.Message{ai.NewUserMessage(ai.NewTextPart("boom please"))},
	}

	_, err := m.generate(context.Background(), req, cb)
	if !errors.Is(err, wantErr) {
		t.Fatalf("generate() error = %v, want %v", err, wantErr)
	}
	if diff := cmp.Diff([]string{"partial text"}, deltas); diff != "" {
		t.Errorf("partial deltas before failure mismatch (-want +got):\n%s", diff)
	}
}

func TestMockLLM_RegisterModel(t *testing.T) {
	t.Parallel()
	m := NewMockLLM("registered")
	g := genkit.Init(context.Background())

	model := m.RegisterModel(g)
	if model == nil {
		t.Fatal("RegisterModel() returned nil")
	}
	if got := model.Name(); got != "mock/test-model" {
		t.Errorf("RegisterModel().Name() = %q, want %q", got, "mock/test-model")
	}

	found := genkit.LookupModel(g, "mock/test-model")
	if found == nil {
		t.Fatal("LookupModel() returned nil after registration")
	}
}

func TestSplitChunks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{name: "empty text", text: "", size: 4, want: nil},
		{name: "zero size is single chunk", text: "abc", size: 0, want: []string{"abc"}},
		{name: "exact multiple", text: "abcdef", size: 3, want: []string{"abc", "def"}},
		{name: "remainder", text: "abcde", size: 2, want: []string{"ab", "cd", "e"}},
		{name: "multibyte runes stay intact", text: "你好世界", size: 3, want: []string{"你好世", "界"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, splitChunks(tt.text, tt.size)); diff != "" {
				t.Errorf("splitChunks(%q, %d) mismatch (-want +got):\n%s", tt.text, tt.size, diff)
			}
		})
	}
}
