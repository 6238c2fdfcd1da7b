// Package llm is the client and server side of provider-routed text
// completion with retrieval context.
package llm

import (
	"context"
	"strings"

	"github.com/yhonda-ohishi/grpcweb-bridge/facade"
	"github.com/yhonda-ohishi/grpcweb-bridge/marshal"
	"github.com/yhonda-ohishi/grpcweb-bridge/server"
	"github.com/yhonda-ohishi/grpcweb-bridge/simulate"
)

const (
	ServiceName  = "llm.v1.CompletionService"
	CompletePath = ServiceName + "/Complete"
)

type CompleteRequest struct {
	Provider  string   `json:"provider,omitempty"`
	Model     string   `json:"model,omitempty"`
	Prompt    string   `json:"prompt"`
	Context   []string `json:"context,omitempty"` // retrieved passages
	MaxTokens int      `json:"max_tokens,omitempty"`
}

type CompleteResponse struct {
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	Text             string `json:"text"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// Server is implemented by completion backends.
type Server interface {
	Complete(ctx context.Context, req CompleteRequest) (CompleteResponse, error)
}

// Register exposes s on mux.
func Register(mux *server.Mux, s Server) {
	mux.RegisterHandler(CompletePath, server.MakeHandler(
		marshal.DecodeJSON[CompleteRequest], marshal.EncodeJSON[CompleteResponse], s.Complete))
}

// Client calls the completion service through a facade.
type Client struct {
	complete *facade.Operation[CompleteRequest, CompleteResponse]
}

// NewClient binds Complete to f.
func NewClient(f *facade.Facade, opts ...simulate.Option) *Client {
	return &Client{
		complete: facade.NewOperation(f, facade.Method[CompleteRequest, CompleteResponse]{
			Path:     CompletePath,
			Encode:   marshal.EncodeJSON[CompleteRequest],
			Decode:   marshal.DecodeJSON[CompleteResponse],
			Simulate: simulate.Func(simulatedComplete, opts...),
		}),
	}
}

func (c *Client) Complete(ctx context.Context, req CompleteRequest) (CompleteResponse, error) {
	return c.complete.Call(ctx, req)
}

func simulatedComplete(req CompleteRequest) CompleteResponse {
	text := "Simulated answer to: " + strings.TrimSpace(req.Prompt)
	return CompleteResponse{
		Provider:         "simulated",
		Model:            "simulated",
		Text:             text,
		PromptTokens:     CountTokens(BuildPrompt(req.Prompt, req.Context)),
		CompletionTokens: CountTokens(text),
	}
}

// BuildPrompt assembles a question and its retrieved passages into the
// prompt sent to a provider. Blank passages are dropped.
func BuildPrompt(question string, passages []string) string {
	question = strings.TrimSpace(question)

	var b strings.Builder
	n := 0
	for _, p := range passages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n == 0 {
			b.WriteString("Use the following context to answer.\n\nContext:\n")
		}
		n++
		b.WriteString("- ")
		b.WriteString(p)
		b.WriteString("\n")
	}
	if n == 0 {
		return question
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

// CountTokens approximates a token count by whitespace-separated words.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}
