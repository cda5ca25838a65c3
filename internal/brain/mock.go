package brain

import (
	"context"
	"encoding/json"
	"strings"
)

// Mock produces deterministic schema-conformant replies for offline use and
// tests.
type Mock struct {
	// Reply, when set, is returned verbatim for every prompt.
	Reply string
	// Err, when set, is returned instead of a reply.
	Err error
}

func (m *Mock) Complete(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.Reply != "" {
		return m.Reply, nil
	}

	input := extractUserInput(prompt)
	payload := map[string]any{
		"response":          "I heard you: " + input,
		"memory_operations": []any{},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func extractUserInput(prompt string) string {
	const marker = "Current user input: "
	idx := strings.LastIndex(prompt, marker)
	if idx < 0 {
		return "nothing"
	}
	rest := prompt[idx+len(marker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimSpace(rest)
}
