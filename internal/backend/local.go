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

// Local implements Backend against a local Ollama server. It asks for
// labeled plain-text output on the structured kinds and degrades oversized
// requests instead of failing them: a failed first attempt is retried once
// with a compact digest of the material, falling back to hard truncation if
// digesting itself fails.
type Local struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// LocalOption configures the local backend.
type LocalOption func(*Local)

// WithLocalModel sets the model name.
func WithLocalModel(model string) LocalOption {
	return func(l *Local) { l.model = model }
}

// NewLocal creates a local backend.
func NewLocal(baseURL string, opts ...LocalOption) *Local {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	l := &Local{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   "llama3",
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) Name() string { return "local" }

const (
	// localContextLimit is the hard truncation bound, in runes, used when
	// digesting fails.
	localContextLimit = 8000
	// digestInputLimit caps what a single digest request may carry.
	digestInputLimit = 12000
)

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (l *Local) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaRequest{
		Model:  l.model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: 0.3,
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var ollamaResp ollamaResponse
	if err := json.Unmarshal(respBody, &ollamaResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if ollamaResp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", ollamaResp.Error)
	}
	if strings.TrimSpace(ollamaResp.Response) == "" {
		return "", ErrEmptyOutput
	}
	return ollamaResp.Response, nil
}

// generate runs build(material) once, and on failure retries once with a
// degraded material: a compact digest, or hard truncation if digesting
// fails. Unreachable-server errors are returned as-is since retrying with
// less material cannot help.
func (l *Local) generate(ctx context.Context, build func(material string) string, material string) (string, error) {
	out, err := l.complete(ctx, build(material))
	if err == nil {
		return out, nil
	}
	if errors.Is(err, ErrUnavailable) || ctx.Err() != nil {
		return "", err
	}

	degraded, derr := l.Digest(ctx, material)
	if derr != nil || strings.TrimSpace(degraded) == "" {
		degraded = truncateRunes(material, localContextLimit)
	}
	out, retryErr := l.complete(ctx, build(degraded))
	if retryErr != nil {
		return "", fmt.Errorf("degraded retry: %w (first attempt: %v)", retryErr, err)
	}
	return out, nil
}

// Digest condenses text into a compact prose digest.
func (l *Local) Digest(ctx context.Context, text string) (string, error) {
	return l.complete(ctx, buildDigestPrompt(truncateRunes(text, digestInputLimit)))
}

func (l *Local) GenerateSummary(ctx context.Context, material string) (string, error) {
	return l.generate(ctx, buildSummaryPrompt, material)
}

func (l *Local) GenerateFlashcards(ctx context.Context, material string) (string, error) {
	return l.generate(ctx, buildCardsTextPrompt, material)
}

func (l *Local) GenerateQuiz(ctx context.Context, material string) (string, error) {
	return l.generate(ctx, buildQuizTextPrompt, material)
}

func (l *Local) GenerateKeyTerms(ctx context.Context, material string) (string, error) {
	return l.generate(ctx, buildTermsTextPrompt, material)
}

func (l *Local) GenerateMainQuestion(ctx context.Context, material string) (string, error) {
	return l.generate(ctx, buildMainQuestionPrompt, material)
}

func (l *Local) GenerateInsights(ctx context.Context, material string) (string, error) {
	return l.generate(ctx, buildInsightsPrompt, material)
}

func (l *Local) GenerateArgument(ctx context.Context, material string) (string, error) {
	return l.generate(ctx, buildArgumentPrompt, material)
}

func (l *Local) GenerateOutline(ctx context.Context, material string) (string, error) {
	return l.generate(ctx, buildOutlinePrompt, material)
}

func (l *Local) AnswerQuestion(ctx context.Context, material, question string) (string, error) {
	return l.generate(ctx, func(m string) string {
		return buildAnswerPrompt(m, question)
	}, material)
}

// Reformat asks the model to restructure its own prior output into the
// expected labeled-text shape for kind. Prior output is already small, so
// no degradation applies.
func (l *Local) Reformat(ctx context.Context, kind, raw string) (string, error) {
	format := textFormatFor(kind)
	if format == "" {
		return "", fmt.Errorf("reformat: no structured format for kind %q", kind)
	}
	return l.complete(ctx, buildReformatPrompt(format, raw))
}

var (
	_ Backend     = (*Local)(nil)
	_ Reformatter = (*Local)(nil)
	_ Digester    = (*Local)(nil)
)
