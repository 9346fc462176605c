// Package gemini is the Google Gemini backend for the model gateway.
package gemini

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/imaging"
)

// Engine calls GenerateContent with the prompt and the image as an inline blob.
// A client is created per call, so an Engine is safe for concurrent use.
type Engine struct {
	APIKey      string
	Model       string
	Temperature float32

	opts []option.ClientOption
}

// New returns an Engine. It does not validate the key; Generate reports a
// missing key as a configuration error so the API can answer 500.
func New(apiKey, model string, temperature float32, opts ...option.ClientOption) *Engine {
	return &Engine{
		APIKey:      strings.TrimSpace(apiKey),
		Model:       strings.TrimSpace(model),
		Temperature: temperature,
		opts:        opts,
	}
}

// Name returns "gemini/<model>"
func (e *Engine) Name() string {
	return "gemini/" + e.Model
}

// Generate returns the first text part of the first candidate. Errors from the
// SDK are returned unwrapped so the gateway can classify googleapi and gRPC
// status codes.
func (e *Engine) Generate(ctx context.Context, prompt string, image imaging.Payload) (string, error) {
	if e.APIKey == "" {
		return "", errors.ConfigError("llm.gemini", "GEMINI_API_KEY is not set")
	}

	opts := append([]option.ClientOption{option.WithAPIKey(e.APIKey)}, e.opts...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", err
	}
	defer func() { _ = cl.Close() }()

	m := cl.GenerativeModel(e.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      &e.Temperature,
		ResponseMIMEType: "application/json",
	}

	resp, err := m.GenerateContent(ctx,
		genai.Text(prompt),
		genai.Blob{MIMEType: image.MIMEType, Data: image.Data},
	)
	if err != nil {
		return "", err
	}
	// an empty string is classified as transient by the gateway
	return firstText(resp), nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}
