package chain

import (
	"io"
	"strings"

	"chatdocs/src/core/rag"
)

// Stream is the lazy, non-restartable token sequence of a streaming
// chat answer. Tokens are accumulated as they are read, so after EOF
// Result returns the full answer text equal to the concatenation of
// every received token. Cancelling the request context or calling
// Close stops emission.
type Stream struct {
	inner   rag.TokenStream
	sources []rag.ScoredChunk
	text    strings.Builder
	done    bool
}

// Recv returns the next token, or io.EOF when the completion is done.
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	token, err := s.inner.Recv()
	if err != nil {
		if err == io.EOF {
			s.done = true
		}
		return "", err
	}

	s.text.WriteString(token)
	return token, nil
}

// Close releases the underlying provider stream.
func (s *Stream) Close() error {
	return s.inner.Close()
}

// Result is valid once Recv has returned io.EOF.
func (s *Stream) Result() *Result {
	return &Result{
		Text:            s.text.String(),
		SourceDocuments: s.sources,
	}
}

// SourceDocuments are known as soon as the stream is created,
// retrieval having happened eagerly.
func (s *Stream) SourceDocuments() []rag.ScoredChunk {
	return s.sources
}
