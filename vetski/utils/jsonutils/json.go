package jsonutils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	reFence         = regexp.MustCompile("(?s)```(?:json)?(.*?)```")
	reObject        = regexp.MustCompile(`(?s)\{.*\}`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// ExtractJSON pulls a JSON object out of LLM output. A fenced ```json block
// wins; otherwise the span from the first { to the last } is used. Trailing
// commas and invisible characters are removed.
func ExtractJSON(input string) string {
	input = strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\uFEFF' || r == '\u200B' || r == '\u200C' || r == '\u200D' {
			return -1
		}
		return r
	}, input))

	if match := reFence.FindStringSubmatch(input); len(match) > 1 {
		input = strings.TrimSpace(match[1])
	} else if match := reObject.FindString(input); match != "" {
		input = strings.TrimSpace(match)
	}

	input = reTrailingComma.ReplaceAllString(input, "$1")
	return strings.TrimSpace(input)
}

// DecodeObject extracts and validates a JSON object from LLM output.
func DecodeObject(input string) (map[string]interface{}, error) {
	raw := ExtractJSON(input)
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("model output is not a JSON object: %w", err)
	}
	return obj, nil
}

// ToJSON pretty-prints v; it returns "" when v cannot be encoded.
func ToJSON(v interface{}) string {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(bytes))
}
