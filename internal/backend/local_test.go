package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func ollamaOK(t *testing.T, response string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ollamaResponse{Response: response})
	}
}

func TestLocal_GenerateSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("stream = true, want false")
		}
		if !strings.Contains(req.Prompt, "the material") {
			t.Errorf("prompt missing task instructions: %q", req.Prompt)
		}
		ollamaOK(t, "A short summary.")(w, r)
	}))
	defer srv.Close()

	l := NewLocal(srv.URL, WithLocalModel("test-model"))
	got, err := l.GenerateSummary(context.Background(), "material")
	if err != nil {
		t.Fatalf("GenerateSummary: %v", err)
	}
	if got != "A short summary." {
		t.Errorf("GenerateSummary = %q", got)
	}
}

func TestLocal_UnreachableServer(t *testing.T) {
	// A server that is immediately closed gives a connection error.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	l := NewLocal(srv.URL)
	_, err := l.GenerateSummary(context.Background(), "material")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestLocal_DegradesThroughDigest(t *testing.T) {
	// First generation attempt fails; the client digests the material and
	// retries with the digest substituted.
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		prompts = append(prompts, req.Prompt)
		switch len(prompts) {
		case 1:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("context window exceeded"))
		case 2:
			ollamaOK(t, "compact digest")(w, r)
		default:
			ollamaOK(t, "Front: q\nBack: a")(w, r)
		}
	}))
	defer srv.Close()

	l := NewLocal(srv.URL)
	got, err := l.GenerateFlashcards(context.Background(), "very long material")
	if err != nil {
		t.Fatalf("GenerateFlashcards: %v", err)
	}
	if got != "Front: q\nBack: a" {
		t.Errorf("output = %q", got)
	}
	if len(prompts) != 3 {
		t.Fatalf("requests = %d, want 3 (attempt, digest, retry)", len(prompts))
	}
	if !strings.Contains(prompts[1], "Condense") {
		t.Errorf("second request is not a digest prompt: %q", prompts[1])
	}
	if !strings.Contains(prompts[2], "compact digest") {
		t.Errorf("retry did not substitute the digest: %q", prompts[2])
	}
}

func TestLocal_FallsBackToTruncationWhenDigestFails(t *testing.T) {
	material := strings.Repeat("x", localContextLimit+500)
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		requests++
		switch {
		case requests <= 2:
			// First attempt and the digest attempt both fail.
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("too large"))
		default:
			if !strings.Contains(req.Prompt, "[truncated]") {
				t.Errorf("retry prompt not truncated")
			}
			ollamaOK(t, "made it")(w, r)
		}
	}))
	defer srv.Close()

	l := NewLocal(srv.URL)
	got, err := l.GenerateOutline(context.Background(), material)
	if err != nil {
		t.Fatalf("GenerateOutline: %v", err)
	}
	if got != "made it" {
		t.Errorf("output = %q", got)
	}
	if requests != 3 {
		t.Errorf("requests = %d, want 3", requests)
	}
}

func TestLocal_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(ollamaResponse{Response: "  "})
	}))
	defer srv.Close()

	l := NewLocal(srv.URL)
	_, err := l.Digest(context.Background(), "text")
	if !errors.Is(err, ErrEmptyOutput) {
		t.Errorf("err = %v, want ErrEmptyOutput", err)
	}
}

func TestNewLocal_DefaultBaseURL(t *testing.T) {
	l := NewLocal("")
	if l.baseURL != "http://localhost:11434" {
		t.Errorf("baseURL = %q, want default", l.baseURL)
	}
}
