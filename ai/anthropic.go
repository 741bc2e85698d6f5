package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AnthropicProvider adapts the Anthropic-compatible messages API
type AnthropicProvider struct {
	id         string
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewAnthropicProvider creates an adapter for an Anthropic-compatible endpoint
func NewAnthropicProvider(apiKey, baseURL, model string, timeout time.Duration) *AnthropicProvider {
	return &AnthropicProvider{
		id:         "anthropic",
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ID implements Provider
func (p *AnthropicProvider) ID() string {
	return p.id
}

type anthropicRequest struct {
	Model     string `json:"model"`
	System    string `json:"system,omitempty"`
	Messages  []Turn `json:"messages"`
	MaxTokens int    `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete implements Provider. The messages API only distinguishes user and
// assistant roles; system turns are lifted into the top-level system field.
func (p *AnthropicProvider) Complete(ctx context.Context, turns []Turn) (string, error) {
	var system []string
	messages := make([]Turn, 0, len(turns))
	for _, turn := range turns {
		if turn.Role == RoleSystem {
			system = append(system, turn.Content)
			continue
		}
		role := RoleAssistant
		if turn.Role == RoleUser {
			role = RoleUser
		}
		messages = append(messages, Turn{Role: role, Content: turn.Content})
	}

	requestBody := anthropicRequest{
		Model:     p.model,
		System:    strings.Join(system, "\n\n"),
		Messages:  messages,
		MaxTokens: 1024,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making API request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status code %d: %s", resp.StatusCode, string(body))
	}

	var anthropicResp anthropicResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %v", err)
	}

	if anthropicResp.Error != nil {
		return "", fmt.Errorf("API error: %s", anthropicResp.Error.Message)
	}

	if len(anthropicResp.Content) == 0 {
		return "", errors.New("no response generated")
	}

	return anthropicResp.Content[0].Text, nil
}
