package chain

import (
	"context"
	"fmt"
	"strings"

	"chatdocs/src/core/rag"
	"chatdocs/src/infrastructure/log"
)

const (
	DefaultTopK          = 4
	DefaultContextBudget = 6000 // characters of retrieved context per prompt
)

// Input is everything one conversational retrieval call needs. The
// chain is stateless across requests; history travels with the caller.
type Input struct {
	Question       string
	History        []rag.Turn
	Namespace      string
	PromptTemplate string
}

// Result is the chain's answer together with the chunks it was
// grounded on.
type Result struct {
	Text            string            `json:"text"`
	SourceDocuments []rag.ScoredChunk `json:"sourceDocuments,omitempty"`
}

// Chain runs condense, retrieve, compose and complete for one request.
type Chain struct {
	embedder      rag.Embedder
	completer     rag.Completer
	store         rag.VectorStore
	topK          int
	contextBudget int
}

type Option func(*Chain)

// WithTopK overrides how many chunks retrieval asks for.
func WithTopK(k int) Option {
	return func(c *Chain) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithContextBudget overrides the character budget for retrieved
// context in the composed prompt.
func WithContextBudget(budget int) Option {
	return func(c *Chain) {
		if budget > 0 {
			c.contextBudget = budget
		}
	}
}

// New creates a Chain over the per-request provider and the shared
// vector store.
func New(embedder rag.Embedder, completer rag.Completer, store rag.VectorStore, opts ...Option) *Chain {
	c := &Chain{
		embedder:      embedder,
		completer:     completer,
		store:         store,
		topK:          DefaultTopK,
		contextBudget: DefaultContextBudget,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the full chain and returns the answer once complete.
func (c *Chain) Run(ctx context.Context, in Input) (*Result, error) {
	prompt, sources, err := c.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	text, err := c.completer.Complete(ctx, "", prompt)
	if err != nil {
		return nil, err
	}

	return &Result{
		Text:            strings.TrimSpace(text),
		SourceDocuments: sources,
	}, nil
}

// RunStream executes condense and retrieve eagerly, then returns a
// lazy token stream for the completion. The stream accumulates the
// emitted tokens so the final text always equals their concatenation.
func (c *Chain) RunStream(ctx context.Context, in Input) (*Stream, error) {
	prompt, sources, err := c.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	inner, err := c.completer.CompleteStream(ctx, "", prompt)
	if err != nil {
		return nil, err
	}

	return &Stream{
		inner:   inner,
		sources: sources,
	}, nil
}

// prepare runs steps 1-3: condense the question, retrieve context and
// compose the final prompt.
func (c *Chain) prepare(ctx context.Context, in Input) (string, []rag.ScoredChunk, error) {
	question := SanitizeQuestion(in.Question)
	if question == "" {
		return "", nil, rag.NewValidationError("question is required")
	}
	if in.Namespace == "" {
		return "", nil, rag.NewValidationError("namespace is required")
	}

	standalone, err := c.condense(ctx, question, in.History)
	if err != nil {
		return "", nil, err
	}

	sources, err := c.retrieve(ctx, in.Namespace, standalone)
	if err != nil {
		return "", nil, err
	}

	prompt, err := c.compose(standalone, in.PromptTemplate, sources)
	if err != nil {
		return "", nil, err
	}

	return prompt, sources, nil
}

// condense rewrites a follow-up into a standalone question. With no
// history there is nothing to resolve and the raw question passes
// through untouched.
func (c *Chain) condense(ctx context.Context, question string, history []rag.Turn) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	prompt, err := executeTemplate("condense", CondensePromptTmpl, PromptData{
		ChatHistory: FormatHistory(history),
		Question:    question,
	})
	if err != nil {
		return "", err
	}

	standalone, err := c.completer.Complete(ctx, "", prompt)
	if err != nil {
		return "", err
	}

	standalone = SanitizeQuestion(standalone)
	if standalone == "" {
		standalone = question
	}
	log.Debug("condensed question", "original", question, "standalone", standalone)
	return standalone, nil
}

// retrieve embeds the standalone question and pulls the top-k chunks
// from the caller's namespace.
func (c *Chain) retrieve(ctx context.Context, namespace, question string) ([]rag.ScoredChunk, error) {
	vectors, err := c.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, &rag.ProviderError{
			Op:  "failed to embed question",
			Err: fmt.Errorf("expected exactly one query vector, got %d", len(vectors)),
		}
	}

	return c.store.Query(ctx, namespace, vectors[0], c.topK)
}

// compose builds the final prompt, dropping lowest-ranked chunks first
// when the retrieved context exceeds the budget.
func (c *Chain) compose(question, instructions string, sources []rag.ScoredChunk) (string, error) {
	var contextBlock strings.Builder
	for _, src := range sources {
		content := src.Content
		if contextBlock.Len() == 0 && len(content) > c.contextBudget {
			// The best chunk always contributes, cut to the budget.
			content = content[:c.contextBudget]
		}
		if contextBlock.Len() > 0 && contextBlock.Len()+len(content)+2 > c.contextBudget {
			break
		}
		if contextBlock.Len() > 0 {
			contextBlock.WriteString("\n\n")
		}
		contextBlock.WriteString(content)
	}

	return executeTemplate("qa", QAPromptTmpl, PromptData{
		Instructions: FlattenInstructions(instructions),
		Context:      contextBlock.String(),
		Question:     question,
	})
}
