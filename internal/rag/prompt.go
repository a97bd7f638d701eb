package rag

import (
	"strings"

	"github.com/cyberrag/cyberrag/internal/model"
)

// historyWindow caps how many trailing conversation turns enter the prompt.
// Three exchanges keeps token usage bounded.
const historyWindow = 6

// buildPrompt assembles the generation prompt: role framing, recent
// conversation, retrieved CVE context, then the question and answering
// instructions.
func buildPrompt(question string, history []model.ConversationTurn, hits []model.SearchHit) string {
	var b strings.Builder

	b.WriteString("You are a cybersecurity expert assistant specializing in vulnerability analysis.\n\n")

	b.WriteString("Previous conversation:\n")
	b.WriteString(formatHistory(history))
	b.WriteString("\n")

	b.WriteString("Current context from CVE database:\n")
	for _, h := range hits {
		b.WriteString(h.Document.Text)
		b.WriteString("\n\n")
	}
	b.WriteString("\n")

	b.WriteString("Current question: ")
	b.WriteString(question)
	b.WriteString("\n\n")

	b.WriteString("Provide a clear, accurate, and helpful answer. " +
		"Consider the conversation history when answering. " +
		"If referring to something from earlier in the conversation, acknowledge it naturally. " +
		"If the information isn't in the context, say so.\n\n")

	b.WriteString("Answer:")
	return b.String()
}

// formatHistory renders the trailing turns as "Role: content" blocks. Older
// turns beyond the window are dropped.
func formatHistory(history []model.ConversationTurn) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	var b strings.Builder
	for _, turn := range history {
		b.WriteString(capitalize(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
