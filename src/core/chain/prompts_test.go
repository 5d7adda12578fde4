package chain_test

import (
	"context"
	"strings"
	"testing"

	"chatdocs/src/core/chain"
	"chatdocs/src/core/rag"
)

func TestFormatHistory(t *testing.T) {
	tests := []struct {
		name    string
		history []rag.Turn
		want    string
	}{
		{
			name:    "empty history",
			history: nil,
			want:    "",
		},
		{
			name: "single turn",
			history: []rag.Turn{
				{Question: "What is the refund policy?", Answer: "30 days."},
			},
			want: "Human: What is the refund policy?\nAssistant: 30 days.",
		},
		{
			name: "multiple turns in order",
			history: []rag.Turn{
				{Question: "Who wrote it?", Answer: "Alice."},
				{Question: "When?", Answer: "2019."},
			},
			want: "Human: Who wrote it?\nAssistant: Alice.\nHuman: When?\nAssistant: 2019.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chain.FormatHistory(tt.history)
			if got != tt.want {
				t.Errorf("FormatHistory() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFlattenInstructions(t *testing.T) {
	tests := []struct {
		name         string
		instructions string
		want         string
	}{
		{
			name:         "empty falls back to default",
			instructions: "",
			want:         chain.DefaultInstructions,
		},
		{
			name:         "whitespace only falls back to default",
			instructions: "  \n\t ",
			want:         chain.DefaultInstructions,
		},
		{
			name:         "newlines folded to spaces",
			instructions: "You are a pirate.\nAnswer in rhyme.",
			want:         "You are a pirate. Answer in rhyme.",
		},
		{
			name:         "surrounding whitespace trimmed",
			instructions: "  Be terse.  ",
			want:         "Be terse.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chain.FlattenInstructions(tt.instructions)
			if got != tt.want {
				t.Errorf("FlattenInstructions(%q) = %q, want %q", tt.instructions, got, tt.want)
			}
		})
	}
}

func TestSanitizeQuestion(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     string
	}{
		{name: "plain question", question: "What changed?", want: "What changed?"},
		{name: "trimmed", question: "  What changed?  ", want: "What changed?"},
		{name: "newlines folded", question: "What\nchanged?", want: "What changed?"},
		{name: "empty stays empty", question: "\n\n", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chain.SanitizeQuestion(tt.question)
			if got != tt.want {
				t.Errorf("SanitizeQuestion(%q) = %q, want %q", tt.question, got, tt.want)
			}
		})
	}
}

func TestCondensePromptEmbedsHistoryVerbatim(t *testing.T) {
	history := []rag.Turn{
		{Question: "Tell me about the K-9 unit.", Answer: "It is a robotic dog."},
	}

	completer := &fakeCompleter{responses: []string{"What year was the robotic dog introduced?", "In 1977."}}
	embedder := &fakeEmbedder{}
	store := &fakeStore{}

	c := chain.New(embedder, completer, store)
	_, err := c.Run(context.Background(), chain.Input{
		Question:  "When was it introduced?",
		History:   history,
		Namespace: "bot1",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(completer.prompts) != 2 {
		t.Fatalf("expected 2 completion calls (condense + answer), got %d", len(completer.prompts))
	}

	condense := completer.prompts[0]
	for _, want := range []string{
		"Chat History:",
		"Human: Tell me about the K-9 unit.",
		"Assistant: It is a robotic dog.",
		"Follow Up Input: When was it introduced?",
		"Standalone question:",
	} {
		if !strings.Contains(condense, want) {
			t.Errorf("condense prompt missing %q:\n%s", want, condense)
		}
	}
}
