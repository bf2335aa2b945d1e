// Package assistant implements core.Assistant on top of the Gemini API.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/pkg/options"
)

var _ core.Assistant = (*Gemini)(nil)

// generateFunc sends one prompt with a system instruction and returns the reply text.
type generateFunc func(ctx context.Context, system, prompt string) (string, error)

// Gemini is the hosted-model assistant.
type Gemini struct {
	model    string
	language string
	generate generateFunc
}

// New returns the assistant configured by opts, or Nop when no API key is set.
func New(ctx context.Context, opts *options.AssistantOptions) (core.Assistant, error) {
	if !opts.Enabled() {
		return Nop{}, nil
	}
	return NewGemini(ctx, opts)
}

// NewGemini creates a Gemini client.
func NewGemini(ctx context.Context, opts *options.AssistantOptions) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	g := &Gemini{model: opts.Model, language: opts.Language}
	g.generate = func(ctx context.Context, system, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.2),
		})
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return g, nil
}

func (g *Gemini) Enrich(ctx context.Context, in incident.Input, v incident.Verdict) (string, error) {
	if !v.Detected {
		return "", errors.New("nothing to enrich: no incident detected")
	}
	return g.ask(ctx, enrichSystem(g.language), enrichPrompt(in, v))
}

func (g *Gemini) Suggest(ctx context.Context, req core.SuggestionRequest) (string, error) {
	if req.Route == nil {
		return "", errors.New("suggestion request without a route")
	}
	return g.ask(ctx, suggestSystem(g.language), suggestPrompt(req))
}

func (g *Gemini) ask(ctx context.Context, system, prompt string) (string, error) {
	text, err := g.generate(ctx, system, prompt)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", g.model, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("gemini %s returned an empty reply", g.model)
	}
	return text, nil
}

// Nop is used when no model is configured. Every call reports core.ErrUnavailable.
type Nop struct{}

var _ core.Assistant = Nop{}

func (Nop) Enrich(context.Context, incident.Input, incident.Verdict) (string, error) {
	return "", fmt.Errorf("assistant disabled: %w", core.ErrUnavailable)
}

func (Nop) Suggest(context.Context, core.SuggestionRequest) (string, error) {
	return "", fmt.Errorf("assistant disabled: %w", core.ErrUnavailable)
}
