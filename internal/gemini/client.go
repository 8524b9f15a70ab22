package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-pro"
	apiTimeout     = 30 * time.Second

	// MsgNoAPIKey is returned when no API key is configured.
	MsgNoAPIKey = "AI suggestions are not available. Please configure your Gemini API key."

	// MsgUnavailable is returned when the generation call fails for any reason.
	MsgUnavailable = "Unable to generate AI suggestions at this time. Please try again later."
)

// Client calls the Generative Language API to break a task description
// down into actionable steps. It is stateless; every call is independent.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: apiTimeout},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	c := NewClient(apiKey, model)
	c.baseURL = baseURL
	return c
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Breakdown asks the model for a structured breakdown of the task
// description. It never returns an error: a missing key or a failed
// call resolves to a fixed fallback message, so callers always get text.
func (c *Client) Breakdown(ctx context.Context, description string) string {
	if c.apiKey == "" {
		return MsgNoAPIKey
	}

	prompt := fmt.Sprintf(`Given this task: "%s", provide a detailed breakdown of:
  1. Steps to complete the task
  2. Estimated time for each step
  3. Key considerations and potential challenges
  4. Resources needed
  Please format the response in a clear, structured way.`, description)

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		log.Printf("Error getting AI suggestions: %v", err)
		return MsgUnavailable
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		log.Printf("Error getting AI suggestions: %v", err)
		return MsgUnavailable
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("Error getting AI suggestions: %v", err)
		return MsgUnavailable
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("Error getting AI suggestions: %v", err)
		return MsgUnavailable
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("Error getting AI suggestions: API returned status %d: %s", resp.StatusCode, string(respBody))
		return MsgUnavailable
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		log.Printf("Error getting AI suggestions: %v", err)
		return MsgUnavailable
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		log.Printf("Error getting AI suggestions: empty response")
		return MsgUnavailable
	}

	text := parsed.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return MsgUnavailable
	}
	return text
}
