package chain

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"chatdocs/src/core/rag"
)

// CondensePromptTmpl rewrites a follow-up question into a standalone
// one using the conversation so far.
const CondensePromptTmpl = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question.

Chat History:
{{.ChatHistory}}
Follow Up Input: {{.Question}}
Standalone question:`

// QAPromptTmpl is the answer prompt: the bot's configured instructions
// followed by the retrieved context and the standalone question.
const QAPromptTmpl = `Instructions: {{.Instructions}}
Context: {{.Context}}
Question: {{.Question}}
Helpful answer in markdown:`

// DefaultInstructions is used when a bot has no configured persona.
const DefaultInstructions = `You are an enthusiastic AI assistant and an expert in the content of the documents provided. Provide a conversational answer based on the context provided. If you can't find the answer in the context, just say "Hmm, I'm not sure." -- don't try to make up an answer.`

// PromptData holds everything the prompt templates can reference.
type PromptData struct {
	ChatHistory  string
	Question     string
	Context      string
	Instructions string
}

func executeTemplate(name, tmpl string, data PromptData) (string, error) {
	t, err := template.New(name).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", name, err)
	}
	return buf.String(), nil
}

// FormatHistory renders conversation turns for the condense prompt.
// Answers appear verbatim so the model can resolve references in the
// follow-up without pronouns left dangling.
func FormatHistory(history []rag.Turn) string {
	var b strings.Builder
	for i, turn := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Human: ")
		b.WriteString(turn.Question)
		b.WriteString("\nAssistant: ")
		b.WriteString(turn.Answer)
	}
	return b.String()
}

// FlattenInstructions normalizes a configured prompt template into a
// single instruction line.
func FlattenInstructions(instructions string) string {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return DefaultInstructions
	}
	return strings.ReplaceAll(instructions, "\n", " ")
}

// SanitizeQuestion trims the question and folds newlines to spaces.
func SanitizeQuestion(question string) string {
	return strings.TrimSpace(strings.ReplaceAll(question, "\n", " "))
}
