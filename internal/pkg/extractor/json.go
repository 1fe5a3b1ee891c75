package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrNoJSON = errors.New("no json object found")

var (
	openJSONFence  = regexp.MustCompile("(?m)^```(?:json)?\\s*\\n?")
	closeJSONFence = regexp.MustCompile("(?m)\\n?```\\s*$")
)

// JSON returns the outermost {...} block of a possibly fenced model response.
func JSON(response string) (string, error) {
	text := strings.TrimSpace(response)
	text = openJSONFence.ReplaceAllString(text, "")
	text = closeJSONFence.ReplaceAllString(text, "")

	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first == -1 || last == -1 || first >= last {
		return "", ErrNoJSON
	}

	return strings.TrimSpace(text[first : last+1]), nil
}

// JSONObject extracts and parses the response into a JSON object.
func JSONObject(response string) (map[string]any, error) {
	raw, err := JSON(response)
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	return obj, nil
}
