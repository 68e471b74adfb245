package ai

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Default provider base URLs
const (
	DefaultLocalURL     = "http://localhost:11434"
	DefaultOpenAIURL    = "https://api.openai.com/v1"
	DefaultAnthropicURL = "https://api.anthropic.com/v1"
	DefaultGoogleURL    = "https://generativelanguage.googleapis.com/v1beta/models"

	anthropicVersion = "2023-06-01"
)

// Local talks to a local text-generation server (the Ollama API)
type Local struct{ client }

// NewLocal creates a local server adapter
func NewLocal(opts ...ClientOption) *Local {
	return &Local{newClient("local", localTimeout, opts)}
}

type localRequest struct {
	Model   string       `json:"model"`
	Prompt  string       `json:"prompt"`
	System  string       `json:"system"`
	Stream  bool         `json:"stream"`
	Options localOptions `json:"options"`
}

type localOptions struct {
	Temperature float64 `json:"temperature"`
}

type localResponse struct {
	Response string `json:"response"`
}

// GenerateExplanation implements Backend. It needs only a model.
func (l *Local) GenerateExplanation(ctx context.Context, prompt string, opts Options) string {
	if Blank(opts.Model) {
		return ""
	}

	req := localRequest{
		Model:   opts.Model,
		Prompt:  prompt,
		System:  SystemInstruction,
		Stream:  false,
		Options: localOptions{Temperature: Temperature},
	}

	var resp localResponse
	if !l.postJSON(ctx, baseURL(opts, DefaultLocalURL)+"/api/generate", nil, req, &resp) {
		return ""
	}
	return strings.TrimSpace(resp.Response)
}

// OpenAI talks to any OpenAI-compatible chat completions endpoint
type OpenAI struct{ client }

// NewOpenAI creates an OpenAI-compatible adapter
func NewOpenAI(opts ...ClientOption) *OpenAI {
	return &OpenAI{newClient("openai", hostedTimeout, opts)}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

// GenerateExplanation implements Backend
func (o *OpenAI) GenerateExplanation(ctx context.Context, prompt string, opts Options) string {
	if Blank(opts.APIKey) || Blank(opts.Model) {
		return ""
	}

	endpoint := baseURL(opts, DefaultOpenAIURL)
	if !strings.HasSuffix(endpoint, "/chat/completions") {
		endpoint += "/chat/completions"
	}

	req := chatRequest{
		Model: opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemInstruction},
			{Role: "user", Content: prompt},
		},
		Temperature: Temperature,
	}

	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + opts.APIKey}
	if !o.postJSON(ctx, endpoint, headers, req, &resp) || len(resp.Choices) == 0 {
		return ""
	}

	first := resp.Choices[0]
	if text := strings.TrimSpace(first.Message.Content); text != "" {
		return text
	}
	return strings.TrimSpace(first.Text)
}

// Anthropic talks to the Anthropic messages API
type Anthropic struct{ client }

// NewAnthropic creates an Anthropic adapter
func NewAnthropic(opts ...ClientOption) *Anthropic {
	return &Anthropic{newClient("anthropic", hostedTimeout, opts)}
}

type anthropicRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// GenerateExplanation implements Backend
func (a *Anthropic) GenerateExplanation(ctx context.Context, prompt string, opts Options) string {
	if Blank(opts.APIKey) || Blank(opts.Model) {
		return ""
	}

	req := anthropicRequest{
		Model:       opts.Model,
		MaxTokens:   1024,
		System:      SystemInstruction,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: Temperature,
	}
	headers := map[string]string{
		"x-api-key":         opts.APIKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if !a.postJSON(ctx, baseURL(opts, DefaultAnthropicURL)+"/messages", headers, req, &resp) || len(resp.Content) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Content[0].Text)
}

// Google talks to the Gemini generateContent API
type Google struct{ client }

// NewGoogle creates a Google adapter
func NewGoogle(opts ...ClientOption) *Google {
	return &Google{newClient("google", hostedTimeout, opts)}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction geminiContent   `json:"systemInstruction"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GenerateExplanation implements Backend
func (g *Google) GenerateExplanation(ctx context.Context, prompt string, opts Options) string {
	if Blank(opts.APIKey) || Blank(opts.Model) {
		return ""
	}

	req := geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: SystemInstruction}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	req.GenerationConfig.Temperature = Temperature

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s",
		baseURL(opts, DefaultGoogleURL), url.PathEscape(opts.Model), url.QueryEscape(opts.APIKey))

	var resp geminiResponse
	if !g.postJSON(ctx, endpoint, nil, req, &resp) {
		return ""
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
}
