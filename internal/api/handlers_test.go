package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/yangwenmai/studydo/internal/backend"
	"github.com/yangwenmai/studydo/internal/engine"
	"github.com/yangwenmai/studydo/internal/ingest"
	"github.com/yangwenmai/studydo/internal/model"
	"github.com/yangwenmai/studydo/internal/store"
)

type testEnv struct {
	server *Server
	store  *store.Store
	local  *backend.Stub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	st, err := store.New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	logger := slog.New(slog.DiscardHandler)
	local := &backend.Stub{Outputs: map[string]string{
		model.BlockFlashcards: "Front: f1\nBack: b1\n---\nFront: f2\nBack: b2\n---\nFront: f3\nBack: b3\n---\nFront: f4\nBack: b4",
		model.BlockQuiz:       "Q: q1\nA) a\nB) b\nCorrect: A\n---\nQ: q2\nA) a\nB) b\nCorrect: B\n---\nQ: q3\nA) a\nB) b\nCorrect: A",
		model.BlockKeyTerms:   "- Alpha: first\n- Beta: second",
		"answer":              "The answer.",
	}}
	remote := &backend.Stub{}
	health := backend.NewHealthChecker(func(context.Context) error {
		return backend.ErrMissingCredential
	}, logger)
	eng := engine.New(st, local, remote, health, logger)
	intake := ingest.New(st, logger)

	return &testEnv{
		server: New(st, eng, intake),
		store:  st,
		local:  local,
	}
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) createSpace(t *testing.T, body map[string]string) model.Space {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/spaces", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create space: status %d: %s", rec.Code, rec.Body.String())
	}
	var sp model.Space
	if err := json.Unmarshal(rec.Body.Bytes(), &sp); err != nil {
		t.Fatalf("decode space: %v", err)
	}
	return sp
}

func (env *testEnv) addPaste(t *testing.T, spaceID, text string) {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/spaces/"+spaceID+"/documents", map[string]string{
		"name": "notes",
		"text": text,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add document: status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateSpace_SeedsBlocks(t *testing.T) {
	env := newTestEnv(t)
	sp := env.createSpace(t, map[string]string{"name": "chem", "template": model.TemplateExam})

	rec := env.do(t, http.MethodGet, "/api/spaces/"+sp.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get space: status %d", rec.Code)
	}
	var got model.SpaceWithBlocks
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4 for exam template", len(got.Blocks))
	}
	for _, b := range got.Blocks {
		if b.Status != model.BlockIdle {
			t.Errorf("block %s status = %q, want idle", b.Kind, b.Status)
		}
	}
}

func TestCreateSpace_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/spaces", map[string]string{"template": "exam"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name: status %d, want 400", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/spaces", map[string]string{"name": "x", "template": "cram"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown template: status %d, want 400", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/spaces", map[string]string{"name": "x", "backend_pref": "cloud"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad backend_pref: status %d, want 400", rec.Code)
	}
}

func TestGetSpace_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/spaces/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUpdateSettings_AddsMissingKinds(t *testing.T) {
	env := newTestEnv(t)
	sp := env.createSpace(t, map[string]string{"name": "chem", "template": model.TemplateExam})

	rec := env.do(t, http.MethodPatch, "/api/spaces/"+sp.ID+"/settings", map[string]string{
		"template": model.TemplateStudy,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch settings: status %d: %s", rec.Code, rec.Body.String())
	}

	blocks, err := env.store.ListBlocks(context.Background(), sp.ID)
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	if len(blocks) != 8 {
		t.Errorf("blocks = %d after widening template, want 8", len(blocks))
	}
}

func TestAddDocument_Validation(t *testing.T) {
	env := newTestEnv(t)
	sp := env.createSpace(t, map[string]string{"name": "chem"})

	rec := env.do(t, http.MethodPost, "/api/spaces/"+sp.ID+"/documents", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("no text or url: status %d, want 400", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/spaces/"+sp.ID+"/documents", map[string]string{"text": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank text: status %d, want 400", rec.Code)
	}
}

func TestGenerate_ProducesReadyBlocks(t *testing.T) {
	env := newTestEnv(t)
	sp := env.createSpace(t, map[string]string{"name": "chem", "template": model.TemplateExam})
	env.addPaste(t, sp.ID, "study material")

	rec := env.do(t, http.MethodPost, "/api/spaces/"+sp.ID+"/generate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: status %d: %s", rec.Code, rec.Body.String())
	}
	var blocks []model.Block
	if err := json.Unmarshal(rec.Body.Bytes(), &blocks); err != nil {
		t.Fatalf("decode blocks: %v", err)
	}
	for _, b := range blocks {
		if b.Status != model.BlockReady {
			t.Errorf("block %s status = %q (error %q), want ready", b.Kind, b.Status, b.Error)
		}
	}
}

func TestResetAndRetry(t *testing.T) {
	env := newTestEnv(t)
	sp := env.createSpace(t, map[string]string{"name": "chem", "template": model.TemplateSkim})
	env.addPaste(t, sp.ID, "study material")

	// Force a failing pass.
	env.local.Err = backend.ErrUnavailable
	if rec := env.do(t, http.MethodPost, "/api/spaces/"+sp.ID+"/generate", nil); rec.Code != http.StatusOK {
		t.Fatalf("generate: status %d", rec.Code)
	}
	env.local.Err = nil

	blocks, _ := env.store.ListBlocks(context.Background(), sp.ID)
	if blocks[0].Status != model.BlockFailed {
		t.Fatalf("block status = %q, want failed", blocks[0].Status)
	}

	// Retrying a failed block returns it to idle.
	rec := env.do(t, http.MethodPost, "/api/blocks/"+blocks[0].ID+"/retry", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("retry: status %d: %s", rec.Code, rec.Body.String())
	}
	// Retrying it again conflicts, it is no longer failed.
	rec = env.do(t, http.MethodPost, "/api/blocks/"+blocks[0].ID+"/retry", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second retry: status %d, want 409", rec.Code)
	}

	// Reset clears everything back to idle.
	if rec := env.do(t, http.MethodPost, "/api/spaces/"+sp.ID+"/reset", nil); rec.Code != http.StatusOK {
		t.Fatalf("reset: status %d", rec.Code)
	}
	blocks, _ = env.store.ListBlocks(context.Background(), sp.ID)
	for _, b := range blocks {
		if b.Status != model.BlockIdle {
			t.Errorf("block %s status = %q after reset, want idle", b.Kind, b.Status)
		}
	}
}

func TestAskQuestion(t *testing.T) {
	env := newTestEnv(t)
	sp := env.createSpace(t, map[string]string{"name": "chem"})
	env.addPaste(t, sp.ID, "study material")

	rec := env.do(t, http.MethodPost, "/api/spaces/"+sp.ID+"/questions", map[string]string{
		"text": "What is this?",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("ask: status %d: %s", rec.Code, rec.Body.String())
	}
	var q model.Question
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode question: %v", err)
	}
	if q.Status != model.QuestionAnswered {
		t.Errorf("status = %q (error %q), want answered", q.Status, q.Error)
	}
	if q.Answer != "The answer." {
		t.Errorf("answer = %q", q.Answer)
	}

	rec = env.do(t, http.MethodGet, "/api/spaces/"+sp.ID+"/questions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list questions: status %d", rec.Code)
	}
	var list []model.Question
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("questions = %d, want 1", len(list))
	}
}

func TestAnswerQuestion_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/questions/nope/answer", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
