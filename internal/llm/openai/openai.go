// Package openai is a backend for OpenAI-compatible Responses API endpoints.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/httpclient"
	"github.com/tphakala/trapcam/internal/imaging"
)

const (
	responsesPath = "/v1/responses"

	// errorBodyLimit bounds how much of an error body ends up in a StatusError
	errorBodyLimit = 1024
)

// Engine posts the prompt and image to /v1/responses
type Engine struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64

	client *httpclient.Client
}

// New returns an Engine using client for transport
func New(client *httpclient.Client, apiKey, model, baseURL string, temperature float64) *Engine {
	return &Engine{
		APIKey:      strings.TrimSpace(apiKey),
		Model:       strings.TrimSpace(model),
		BaseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Temperature: temperature,
		client:      client,
	}
}

// Name returns "openai/<model>"
func (e *Engine) Name() string {
	return "openai/" + e.Model
}

// Generate returns the concatenated output text. Non-2xx responses come back
// as *httpclient.StatusError for the gateway to classify.
func (e *Engine) Generate(ctx context.Context, prompt string, image imaging.Payload) (string, error) {
	if e.APIKey == "" {
		return "", errors.ConfigError("llm.openai", "OPENAI_API_KEY is not set")
	}

	body := map[string]any{
		"model": e.Model,
		"input": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "input_text", "text": prompt},
					map[string]any{"type": "input_image", "image_url": image.DataURL()},
				},
			},
		},
		"temperature": e.Temperature,
		"text": map[string]any{
			"format": map[string]any{"type": "json_object"},
		},
	}
	// reasoning models only accept the default temperature
	if isReasoningModel(e.Model) {
		delete(body, "temperature")
	}

	headers := map[string]string{"Authorization": "Bearer " + e.APIKey}
	status, raw, err := e.client.PostJSON(ctx, e.BaseURL+responsesPath, headers, body)
	if err != nil {
		return "", err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return "", httpclient.NewStatusError(status, raw, errorBodyLimit)
	}

	text, err := ExtractResponsesText(raw)
	if err != nil {
		return "", err
	}
	return text, nil
}

func isReasoningModel(model string) bool {
	if strings.HasPrefix(model, "gpt-5") {
		return true
	}
	return len(model) > 1 && model[0] == 'o' && model[1] >= '0' && model[1] <= '9'
}

// responsesBody is the subset of the Responses API payload we read
type responsesBody struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ExtractResponsesText prefers output_text, otherwise concatenates the text
// segments under output[].content[]. Both "output_text" and "text" content
// types are seen in practice.
func ExtractResponsesText(raw []byte) (string, error) {
	var rb responsesBody
	if err := json.Unmarshal(raw, &rb); err != nil {
		return "", fmt.Errorf("decode responses body: %w", err)
	}
	if rb.Error != nil && rb.Error.Message != "" {
		return "", fmt.Errorf("responses error: %s", rb.Error.Message)
	}
	if strings.TrimSpace(rb.OutputText) != "" {
		return rb.OutputText, nil
	}

	var sb strings.Builder
	for _, o := range rb.Output {
		for _, c := range o.Content {
			if c.Type == "output_text" || c.Type == "text" || c.Type == "" {
				sb.WriteString(c.Text)
			}
		}
	}
	return sb.String(), nil
}
