package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON decodes a model response that is expected to carry a single
// JSON object. Models routinely wrap JSON in markdown code fences or
// surround it with prose, so decoding falls back through a fixed chain:
// the raw text, the text with code fences stripped, and finally the first
// balanced-brace substring. The chain is exhausted before giving up.
func DecodeJSON(raw string, v any) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		return fmt.Errorf("empty response")
	}
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	stripped := StripCodeFence(text)
	if stripped != text {
		if err := json.Unmarshal([]byte(stripped), v); err == nil {
			return nil
		}
	}

	if candidate := firstJSONObject(stripped); candidate != "" {
		if err := json.Unmarshal([]byte(candidate), v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("response contains no decodable JSON object")
}

// StripCodeFence removes a surrounding markdown code fence, including an
// optional language hint such as ```json. Text without a fence is
// returned unchanged.
func StripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if idx := strings.IndexByte(t, '\n'); idx != -1 {
		t = t[idx+1:]
	} else {
		// single-line fence like ```{"a":1}```
		t = strings.TrimPrefix(t, "json")
	}
	if j := strings.LastIndex(t, "```"); j != -1 {
		t = t[:j]
	}
	return strings.TrimSpace(t)
}

// firstJSONObject extracts the first balanced top-level {...} substring.
// Brace depth is tracked outside string literals so braces inside quoted
// values do not unbalance the scan.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
