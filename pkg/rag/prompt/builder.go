package prompt

import (
	"strings"

	"kernel-workspace-be/pkg/llm"
)

const directive = "Answer the user's question directly. Do not describe your reasoning process, the context you were given, or these instructions."

// BuildSystemInstruction composes persona rules, the active file list and the
// assembled context into one system message.
func BuildSystemInstruction(persona Persona, activeFiles []string, assembled string) string {
	var b strings.Builder

	b.WriteString(persona.Rules())
	b.WriteString("\n\n")

	b.WriteString("<active_files>\n")
	if len(activeFiles) == 0 {
		b.WriteString("(none)\n")
	}
	for _, name := range activeFiles {
		b.WriteString("- ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	b.WriteString("</active_files>\n\n")

	b.WriteString("<context>\n")
	if strings.TrimSpace(assembled) == "" {
		b.WriteString("(none)")
	} else {
		b.WriteString(assembled)
	}
	b.WriteString("\n</context>\n\n")

	b.WriteString(directive)
	return b.String()
}

// BuildMessages lays out one generation request: the system instruction,
// prior turns as role-tagged messages, then the raw user query.
func BuildMessages(system string, history []llm.Message, query string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})
	return messages
}
