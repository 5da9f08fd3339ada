package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

const payloadSnippetLimit = 200

// DecodeJSON decodes a model response into out, tolerating the code fences
// and leading prose that models wrap around JSON payloads despite the
// json_object response format.
func DecodeJSON(payload string, out any) error {
	sanitized, err := sanitizeJSONPayload(payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(sanitized), out); err != nil {
		return fmt.Errorf("decode llm payload: %w (payload_snippet=%s)", err, summarizePayloadSnippet(payload))
	}
	return nil
}

func sanitizeJSONPayload(payload string) (string, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return "", fmt.Errorf("decode llm payload: empty response")
	}
	if block, ok := stripCodeFenceBlock(trimmed); ok {
		trimmed = block
	}
	// Models sometimes prefix the object with commentary. Cut down to the
	// outermost JSON value when the payload does not already start with one.
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		objStart := strings.IndexAny(trimmed, "{[")
		if objStart < 0 {
			return "", fmt.Errorf("decode llm payload: no JSON value found (payload_snippet=%s)", summarizePayloadSnippet(payload))
		}
		trimmed = trimmed[objStart:]
	}
	if end := lastJSONEnd(trimmed); end > 0 {
		trimmed = trimmed[:end]
	}
	return trimmed, nil
}

func stripCodeFenceBlock(payload string) (string, bool) {
	if !strings.HasPrefix(payload, "```") {
		return "", false
	}
	rest := strings.TrimPrefix(payload, "```")
	if newline := strings.IndexByte(rest, '\n'); newline >= 0 {
		// Drop the optional language tag on the fence line.
		rest = rest[newline+1:]
	}
	if closing := strings.LastIndex(rest, "```"); closing >= 0 {
		rest = rest[:closing]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", false
	}
	return rest, true
}

func lastJSONEnd(payload string) int {
	if end := strings.LastIndexByte(payload, '}'); end >= 0 {
		return end + 1
	}
	if end := strings.LastIndexByte(payload, ']'); end >= 0 {
		return end + 1
	}
	return 0
}

func summarizePayloadSnippet(payload string) string {
	collapsed := strings.Join(strings.Fields(payload), " ")
	if collapsed == "" {
		return `""`
	}
	runes := []rune(collapsed)
	if len(runes) > payloadSnippetLimit {
		collapsed = string(runes[:payloadSnippetLimit]) + "..."
	}
	return fmt.Sprintf("%q", collapsed)
}
