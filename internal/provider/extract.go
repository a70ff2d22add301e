package provider

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"

	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// extract pulls the final assistant message out of a provider's stdout
// per spec §4.6: Anthropic's CLI emits the message as plain stdout text;
// OpenAI's emits a newline-delimited JSON event stream where the last
// item.completed event of type agent_message carries it.
func extract(p Provider, stdout []byte) (string, error) {
	switch p {
	case Anthropic:
		return extractAnthropic(stdout)
	case OpenAI:
		return extractOpenAI(stdout)
	default:
		return "", &direrrors.ProviderError{Provider: string(p), Kind: direrrors.ProviderErrorParseFailure, Detail: "unknown provider"}
	}
}

func extractAnthropic(stdout []byte) (string, error) {
	msg := strings.TrimSpace(string(stdout))
	if msg == "" {
		return "", &direrrors.ProviderError{Provider: string(Anthropic), Kind: direrrors.ProviderErrorEmptyOutput}
	}
	return msg, nil
}

type codexEvent struct {
	Item struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"item"`
	Type string `json:"type"`
}

func extractOpenAI(stdout []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var last string
	found := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev codexEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		if ev.Type == "item.completed" && ev.Item.Type == "agent_message" {
			last = ev.Item.Text
			found = true
		}
	}

	if err := scanner.Err(); err != nil {
		return "", &direrrors.ProviderError{Provider: string(OpenAI), Kind: direrrors.ProviderErrorParseFailure, Cause: err}
	}
	if !found {
		return "", &direrrors.ProviderError{Provider: string(OpenAI), Kind: direrrors.ProviderErrorParseFailure, Detail: "no agent_message item.completed event in output"}
	}
	return last, nil
}
