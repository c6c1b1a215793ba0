// Package llm defines the completion port the reviewer consumes. The
// openai subpackage implements it for every supported provider; they
// all speak the OpenAI-compatible chat protocol.
package llm

import "context"

// Request is one chat completion call: a rendered review prompt as the
// system message and a fixed instruction as the user message.
type Request struct {
	System string
	User   string
}

// Completer executes a single blocking completion call and returns the
// generated text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
