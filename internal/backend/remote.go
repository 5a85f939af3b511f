package backend

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

// Remote implements Backend against an OpenAI-compatible Chat Completions
// API. It asks for JSON output on the structured kinds and translates the
// provider's error envelope into *RemoteAPIError.
type Remote struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// RemoteOption configures the remote backend.
type RemoteOption func(*Remote)

// WithRemoteModel sets the model name (default: gpt-4o-mini).
func WithRemoteModel(model string) RemoteOption {
	return func(r *Remote) { r.model = model }
}

// WithRemoteBaseURL overrides the API endpoint (default: https://api.openai.com/v1).
func WithRemoteBaseURL(url string) RemoteOption {
	return func(r *Remote) { r.baseURL = strings.TrimRight(url, "/") }
}

// NewRemote creates a remote backend. An empty apiKey is allowed at
// construction; every call then fails with ErrMissingCredential.
func NewRemote(apiKey string, opts ...RemoteOption) *Remote {
	r := &Remote{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1",
		model:   "gpt-4o-mini",
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Remote) Name() string { return "remote" }

// remoteMaxTokens bounds completion length. Generous enough for the largest
// structured payloads, small enough to cap runaway generations.
const remoteMaxTokens = 2048

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// apiError is a non-OK HTTP response, kept raw until translation.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// isRetryable returns true for transient errors (rate limit, server errors).
func (e *apiError) isRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// complete sends a prompt and returns the assistant's response text. It
// retries once with backoff on transient failures and translates terminal
// failures into the package's error kinds.
func (r *Remote) complete(ctx context.Context, prompt string) (string, error) {
	if r.apiKey == "" {
		return "", ErrMissingCredential
	}

	reqBody := chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   remoteMaxTokens,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	const maxAttempts = 2
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := r.doRequest(ctx, body)
		if err == nil {
			if strings.TrimSpace(result) == "" {
				return "", ErrEmptyOutput
			}
			return result, nil
		}
		lastErr = err

		var ae *apiError
		if errors.As(err, &ae) && !ae.isRetryable() {
			return "", translateAPIError(ae)
		}

		if attempt < maxAttempts-1 {
			backoff := time.Duration(attempt+1) * 2 * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	var ae *apiError
	if errors.As(lastErr, &ae) {
		return "", translateAPIError(ae)
	}
	if errors.Is(lastErr, ErrEmptyOutput) {
		return "", ErrEmptyOutput
	}
	if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
		return "", lastErr
	}
	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// translateAPIError maps a raw HTTP failure onto the package's error kinds,
// preferring the provider's {"error":{"message":...}} envelope when present.
func translateAPIError(ae *apiError) error {
	if ae.StatusCode == http.StatusUnauthorized || ae.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w (HTTP %d)", ErrInvalidCredential, ae.StatusCode)
	}
	msg := http.StatusText(ae.StatusCode)
	var envelope struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(ae.Body), &envelope); err == nil &&
		envelope.Error != nil && envelope.Error.Message != "" {
		msg = envelope.Error.Message
	}
	return &RemoteAPIError{StatusCode: ae.StatusCode, Message: msg}
}

func (r *Remote) doRequest(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &apiError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("api error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", ErrEmptyOutput
	}
	return chatResp.Choices[0].Message.Content, nil
}

func (r *Remote) GenerateSummary(ctx context.Context, material string) (string, error) {
	return r.complete(ctx, buildSummaryPrompt(material))
}

func (r *Remote) GenerateFlashcards(ctx context.Context, material string) (string, error) {
	return r.complete(ctx, buildCardsJSONPrompt(material))
}

func (r *Remote) GenerateQuiz(ctx context.Context, material string) (string, error) {
	return r.complete(ctx, buildQuizJSONPrompt(material))
}

func (r *Remote) GenerateKeyTerms(ctx context.Context, material string) (string, error) {
	return r.complete(ctx, buildTermsJSONPrompt(material))
}

func (r *Remote) GenerateMainQuestion(ctx context.Context, material string) (string, error) {
	return r.complete(ctx, buildMainQuestionPrompt(material))
}

func (r *Remote) GenerateInsights(ctx context.Context, material string) (string, error) {
	return r.complete(ctx, buildInsightsPrompt(material))
}

func (r *Remote) GenerateArgument(ctx context.Context, material string) (string, error) {
	return r.complete(ctx, buildArgumentPrompt(material))
}

func (r *Remote) GenerateOutline(ctx context.Context, material string) (string, error) {
	return r.complete(ctx, buildOutlinePrompt(material))
}

func (r *Remote) AnswerQuestion(ctx context.Context, material, question string) (string, error) {
	return r.complete(ctx, buildAnswerPrompt(material, question))
}

// Reformat asks the model to restructure its own prior output into the
// expected JSON shape for kind.
func (r *Remote) Reformat(ctx context.Context, kind, raw string) (string, error) {
	format := jsonFormatFor(kind)
	if format == "" {
		return "", fmt.Errorf("reformat: no structured format for kind %q", kind)
	}
	return r.complete(ctx, buildReformatPrompt(format, raw))
}

// CheckCredential probes the API key against the models endpoint. A nil
// return means the key was accepted.
func (r *Remote) CheckCredential(ctx context.Context) error {
	if r.apiKey == "" {
		return ErrMissingCredential
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w (HTTP %d)", ErrInvalidCredential, resp.StatusCode)
	default:
		return &RemoteAPIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
}

var (
	_ Backend     = (*Remote)(nil)
	_ Reformatter = (*Remote)(nil)
)
