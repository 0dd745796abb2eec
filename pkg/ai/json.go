package ai

import (
	"errors"
	"strings"
)

// ErrNoJSON is returned when a model answer contains no JSON block.
var ErrNoJSON = errors.New("no JSON found in model response")

// ExtractJSONArray returns the outermost [...] block of a model answer,
// ignoring markdown code fences and surrounding prose.
func ExtractJSONArray(text string) (string, error) {
	return extractBlock(text, "[", "]")
}

// ExtractJSONObject returns the outermost {...} block of a model answer.
func ExtractJSONObject(text string) (string, error) {
	return extractBlock(text, "{", "}")
}

func extractBlock(text, open, close string) (string, error) {
	responseText := stripFences(text)
	jsonStart := strings.Index(responseText, open)
	jsonEnd := strings.LastIndex(responseText, close)
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd < jsonStart {
		return "", ErrNoJSON
	}
	return responseText[jsonStart : jsonEnd+1], nil
}

func stripFences(text string) string {
	responseText := strings.TrimSpace(text)
	if strings.HasPrefix(responseText, "```json") {
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimSuffix(responseText, "```")
	} else if strings.HasPrefix(responseText, "```") {
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
	}
	return strings.TrimSpace(responseText)
}
