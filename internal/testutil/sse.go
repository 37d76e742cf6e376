package testutil

import (
	"bufio"
	"strings"
	"testing"
)

// SSEEvent is one event decoded from a text/event-stream response body.
type SSEEvent struct {
	Type string
	Data string // multi-line data joined with \n
}

// ParseSSEEvents decodes the chat API's event-stream framing into a flat
// event list. It accepts the subset of the wire format the server emits
// plus the W3C defaults: an omitted event field means "message", multiple
// data lines join with newlines, a comment line starts with ":", and a
// blank line terminates the event. Malformed framing fails the test.
func ParseSSEEvents(t *testing.T, body string) []SSEEvent {
	t.Helper()

	var (
		events  []SSEEvent
		evType  string
		data    []string
		pending bool
	)

	flush := func() {
		if !pending {
			return
		}
		if evType == "" {
			evType = "message"
		}
		events = append(events, SSEEvent{Type: evType, Data: strings.Join(data, "\n")})
		evType, data, pending = "", nil, false
	}

	sc := bufio.NewScanner(strings.NewReader(body))
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, ":"):
			// comment line, ignored
		case strings.HasPrefix(line, "event: "):
			if evType != "" {
				t.Fatalf("line %d: event field repeated before blank line", lineNum)
			}
			evType = strings.TrimPrefix(line, "event: ")
			pending = true
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
			pending = true
		default:
			t.Fatalf("line %d: unrecognized SSE line %q", lineNum, line)
		}
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("reading SSE body: %v", err)
	}
	if pending {
		t.Fatalf("SSE body ended mid-event (missing blank line after %q)", evType)
	}
	return events
}

// FindEvent returns the first event of the given type, or nil.
func FindEvent(events []SSEEvent, eventType string) *SSEEvent {
	for i := range events {
		if events[i].Type == eventType {
			return &events[i]
		}
	}
	return nil
}

// FindAllEvents returns every event of the given type in order.
func FindAllEvents(events []SSEEvent, eventType string) []SSEEvent {
	var out []SSEEvent
	for _, e := range events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
