package llm

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yhonda-ohishi/grpcweb-bridge/codec"
)

// Provider generates text for a prompt.
type Provider interface {
	Name() string
	DefaultModel() string
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Router is a Server that routes each request to a named provider. An
// empty provider name selects the fallback.
type Router struct {
	mu        sync.RWMutex
	providers map[string]Provider
	fallback  string
	logger    zerolog.Logger
}

var _ Server = (*Router)(nil)

// NewRouter creates a Router whose fallback is the first provider.
func NewRouter(logger zerolog.Logger, fallback Provider, others ...Provider) *Router {
	r := &Router{
		providers: make(map[string]Provider),
		fallback:  strings.ToLower(fallback.Name()),
		logger:    logger,
	}
	r.Add(fallback)
	for _, p := range others {
		r.Add(p)
	}
	return r
}

// Add registers or replaces a provider.
func (r *Router) Add(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(p.Name())] = p
}

// Providers returns the registered provider names, sorted.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Router) Complete(ctx context.Context, req CompleteRequest) (CompleteResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return CompleteResponse{}, codec.NewError(codec.StatusInvalidArgument, "prompt is required")
	}
	if req.MaxTokens < 0 {
		return CompleteResponse{}, codec.NewError(codec.StatusInvalidArgument, "max_tokens must not be negative")
	}

	name := strings.ToLower(strings.TrimSpace(req.Provider))
	if name == "" {
		name = r.fallback
	}
	r.mu.RLock()
	provider, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return CompleteResponse{}, codec.NewError(codec.StatusInvalidArgument, "unknown provider %s", req.Provider)
	}

	model := req.Model
	if model == "" {
		model = provider.DefaultModel()
	}

	prompt := BuildPrompt(req.Prompt, req.Context)
	text, err := provider.Generate(ctx, model, prompt)
	if err != nil {
		r.logger.Warn().Err(err).Str("provider", name).Str("model", model).Msg("generation failed")
		return CompleteResponse{}, codec.NewError(codec.StatusUnavailable, "provider %s failed: %v", name, err)
	}
	if req.MaxTokens > 0 {
		text = truncateTokens(text, req.MaxTokens)
	}

	return CompleteResponse{
		Provider:         provider.Name(),
		Model:            model,
		Text:             text,
		PromptTokens:     CountTokens(prompt),
		CompletionTokens: CountTokens(text),
	}, nil
}

func truncateTokens(text string, limit int) string {
	words := strings.Fields(text)
	if len(words) <= limit {
		return text
	}
	return strings.Join(words[:limit], " ")
}

// Echo is a Provider that answers with the prompt itself.
type Echo struct{}

func (Echo) Name() string         { return "echo" }
func (Echo) DefaultModel() string { return "echo-1" }

func (Echo) Generate(ctx context.Context, model, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return prompt, nil
}
