package render

import (
	"strings"

	"relay-cli/internal/protocol"
)

func defaultRenderers() []BlockRenderer {
	return []BlockRenderer{
		systemRenderer{},
		resultRenderer{},
		assistantRenderer{},
		toolOutputRenderer{},
	}
}

type systemRenderer struct{}

func (systemRenderer) Type() string { return "system" }

// System records are control metadata, not transcript content.
func (systemRenderer) Render(protocol.Record) (string, bool) {
	return "", false
}

type resultRenderer struct{}

func (resultRenderer) Type() string { return "result" }

// Only failed results surface in the transcript; summary data for successful
// turns is not transcript-worthy. is_error must be an exact boolean true.
func (resultRenderer) Render(rec protocol.Record) (string, bool) {
	if !rec.Flag("is_error") {
		return "", false
	}
	text := rec.Text("result")
	if text == "" {
		return "", false
	}
	return "ERROR: " + text + "\n\n", true
}

type assistantRenderer struct{}

func (assistantRenderer) Type() string { return "assistant" }

// Joins the text blocks of message.content in original order. Non-text blocks
// (tool invocations and the like) are skipped in this rendering path.
func (assistantRenderer) Render(rec protocol.Record) (string, bool) {
	var parts []string
	for _, item := range rec.Object("message").List("content") {
		block, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if t, _ := block["type"].(string); t != "text" {
			continue
		}
		text, _ := block["text"].(string)
		parts = append(parts, text)
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n") + "\n\n", true
}

type toolOutputRenderer struct{}

func (toolOutputRenderer) Type() string { return "user" }

// Echoes tool stdout/stderr back into the transcript. The tool result carries
// an is_error flag, but it is deliberately not consulted here: failures
// already surface through the stderr text itself.
func (toolOutputRenderer) Render(rec protocol.Record) (string, bool) {
	result := rec.Object("tool_use_result")
	parts := make([]string, 0, 2)
	if stdout := result.Text("stdout"); stdout != "" {
		parts = append(parts, stdout)
	}
	if stderr := result.Text("stderr"); stderr != "" {
		parts = append(parts, "STDERR:\n"+stderr)
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n") + "\n\n", true
}
