package batch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// DefaultCategory is assigned to topics that carry no category segment.
const DefaultCategory = "General"

// topicPattern matches the numbered batch naming scheme
// "Category_01_Some_Title".
var topicPattern = regexp.MustCompile(`^([^_]+)_\d+_(.+)$`)

// LoadTopics reads a topics file. Two forms are accepted: a JSON array of
// strings, or one topic per line with blank lines and #-comments ignored.
func LoadTopics(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topics file: %w", err)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("topics file is empty")
	}

	var topics []string
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &topics); err != nil {
			return nil, fmt.Errorf("parse topics JSON: %w", err)
		}
	} else {
		for _, line := range strings.Split(string(trimmed), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			topics = append(topics, line)
		}
	}

	cleaned := make([]string, 0, len(topics))
	for _, topic := range topics {
		if topic = strings.TrimSpace(topic); topic != "" {
			cleaned = append(cleaned, topic)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New("topics file has no topics")
	}
	return cleaned, nil
}

// ParseTopic splits a batch topic into its category and display subject.
// The numbered form "Category_01_Some_Title" yields ("Category", "Some
// Title"). An unnumbered "Category_Some_Title" treats the first segment as
// the category but keeps it in the subject; a bare title falls into
// DefaultCategory.
func ParseTopic(raw string) (category, subject string) {
	raw = strings.TrimSpace(raw)
	if m := topicPattern.FindStringSubmatch(raw); m != nil {
		return m[1], strings.TrimSpace(strings.ReplaceAll(m[2], "_", " "))
	}
	if i := strings.Index(raw, "_"); i > 0 {
		return raw[:i], strings.TrimSpace(strings.ReplaceAll(raw, "_", " "))
	}
	return DefaultCategory, raw
}
