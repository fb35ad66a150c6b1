// Package rollout inspects an agent's JSON-lines rollout file to extract
// its last assistant message, the value hook executors and close/resume
// paths read to learn how an agent turn concluded.
package rollout

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"
)

// rawItem is the union of the rollout-line shapes this package cares
// about; every other item kind is skipped.
type rawItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []contentPart `json:"content,omitempty"`
	Message string        `json:"message,omitempty"` // Compacted
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// LastAssistantMessage iterates the lines of a rollout file, tracking the
// latest assistant message by concatenating its InputText/OutputText parts
// with newlines (images ignored). A Compacted entry replaces the tracked
// message with its summary. Returns the last non-empty tracked value, or
// "" if none was found.
func LastAssistantMessage(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return lastAssistantMessageFromReader(f)
}

func lastAssistantMessageFromReader(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var last string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var item rawItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			continue // malformed lines are skipped, not fatal
		}
		switch item.Type {
		case "message":
			if item.Role != "assistant" {
				continue
			}
			text := concatParts(item.Content)
			if strings.TrimSpace(text) != "" {
				last = text
			}
		case "compacted":
			last = item.Message
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return last, nil
}

func concatParts(parts []contentPart) string {
	var b strings.Builder
	for _, p := range parts {
		switch p.Type {
		case "input_text", "output_text":
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(p.Text)
		default:
			// other variants (e.g. input_image) are ignored.
		}
	}
	return b.String()
}
