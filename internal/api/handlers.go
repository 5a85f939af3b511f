package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/yangwenmai/studydo/internal/engine"
	"github.com/yangwenmai/studydo/internal/ingest"
	"github.com/yangwenmai/studydo/internal/model"
)

// ---------------------------------------------------------------------------
// POST /api/spaces
// ---------------------------------------------------------------------------

type createSpaceRequest struct {
	Name        string `json:"name"`
	BackendPref string `json:"backend_pref"`
	Template    string `json:"template"`
}

func (s *Server) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	var req createSpaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.BackendPref != "" && req.BackendPref != model.BackendLocal && req.BackendPref != model.BackendRemote {
		writeError(w, http.StatusBadRequest, "backend_pref must be local or remote")
		return
	}
	if req.Template != "" && !model.ValidTemplate(req.Template) {
		writeError(w, http.StatusBadRequest, "unknown template")
		return
	}

	sp := model.NewSpace(uuid.NewString(), req.Name, req.BackendPref, req.Template)
	if err := s.store.CreateSpace(r.Context(), sp); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create space")
		return
	}
	if err := s.store.SeedBlocks(r.Context(), sp.ID, model.TemplateKinds(sp.Template)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to seed blocks")
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}

// ---------------------------------------------------------------------------
// GET /api/spaces
// ---------------------------------------------------------------------------

func (s *Server) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := s.store.ListSpaces(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list spaces")
		return
	}
	if spaces == nil {
		spaces = []model.Space{}
	}
	writeJSON(w, http.StatusOK, spaces)
}

// ---------------------------------------------------------------------------
// GET /api/spaces/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleGetSpace(w http.ResponseWriter, r *http.Request) {
	sp, ok := s.fetchSpace(w, r)
	if !ok {
		return
	}
	blocks, err := s.store.ListBlocks(r.Context(), sp.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list blocks")
		return
	}
	if blocks == nil {
		blocks = []model.Block{}
	}
	writeJSON(w, http.StatusOK, model.SpaceWithBlocks{Space: *sp, Blocks: blocks})
}

// ---------------------------------------------------------------------------
// PATCH /api/spaces/{id}/settings
// ---------------------------------------------------------------------------

type settingsRequest struct {
	BackendPref string `json:"backend_pref"`
	Template    string `json:"template"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	sp, ok := s.fetchSpace(w, r)
	if !ok {
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BackendPref == "" {
		req.BackendPref = sp.BackendPref
	}
	if req.Template == "" {
		req.Template = sp.Template
	}
	if req.BackendPref != model.BackendLocal && req.BackendPref != model.BackendRemote {
		writeError(w, http.StatusBadRequest, "backend_pref must be local or remote")
		return
	}
	if !model.ValidTemplate(req.Template) {
		writeError(w, http.StatusBadRequest, "unknown template")
		return
	}

	if err := s.store.UpdateSpaceSettings(r.Context(), sp.ID, req.BackendPref, req.Template); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}
	// A template change may require kinds the space has never had. Seeding
	// adds the missing ones; existing blocks keep their state.
	if err := s.store.SeedBlocks(r.Context(), sp.ID, model.TemplateKinds(req.Template)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to seed blocks")
		return
	}

	sp.BackendPref = req.BackendPref
	sp.Template = req.Template
	writeJSON(w, http.StatusOK, sp)
}

// ---------------------------------------------------------------------------
// POST /api/spaces/{id}/documents
// ---------------------------------------------------------------------------

type addDocumentRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
	URL  string `json:"url"`
}

func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	sp, ok := s.fetchSpace(w, r)
	if !ok {
		return
	}

	var req addDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var (
		doc model.Document
		err error
	)
	switch {
	case req.URL != "":
		doc, err = s.intake.AddURL(r.Context(), sp.ID, req.URL)
	case req.Text != "":
		doc, err = s.intake.AddPaste(r.Context(), sp.ID, req.Name, req.Text)
	default:
		writeError(w, http.StatusBadRequest, "either text or url is required")
		return
	}
	if errors.Is(err, ingest.ErrEmptyText) {
		writeError(w, http.StatusBadRequest, "document text is empty")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to add document")
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// ---------------------------------------------------------------------------
// POST /api/spaces/{id}/generate
// ---------------------------------------------------------------------------

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sp, ok := s.fetchSpace(w, r)
	if !ok {
		return
	}

	err := s.engine.RunGenerationPass(r.Context(), sp.ID)
	if errors.Is(err, engine.ErrPassRunning) {
		writeError(w, http.StatusConflict, "a generation pass is already running")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generation pass failed")
		return
	}

	blocks, err := s.store.ListBlocks(r.Context(), sp.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list blocks")
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

// ---------------------------------------------------------------------------
// POST /api/spaces/{id}/reset
// ---------------------------------------------------------------------------

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sp, ok := s.fetchSpace(w, r)
	if !ok {
		return
	}

	err := s.engine.ResetBlocks(r.Context(), sp.ID)
	if errors.Is(err, engine.ErrPassRunning) {
		writeError(w, http.StatusConflict, "a generation pass is already running")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset blocks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": sp.ID, "status": "reset"})
}

// ---------------------------------------------------------------------------
// POST /api/spaces/{id}/questions
// ---------------------------------------------------------------------------

type askQuestionRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAskQuestion(w http.ResponseWriter, r *http.Request) {
	sp, ok := s.fetchSpace(w, r)
	if !ok {
		return
	}

	var req askQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	q := model.NewQuestion(uuid.NewString(), sp.ID, req.Text)
	if err := s.store.CreateQuestion(r.Context(), q); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create question")
		return
	}
	if err := s.engine.AnswerQuestion(r.Context(), q.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to answer question")
		return
	}

	answered, err := s.store.GetQuestion(r.Context(), q.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get question")
		return
	}
	writeJSON(w, http.StatusCreated, answered)
}

// ---------------------------------------------------------------------------
// GET /api/spaces/{id}/questions
// ---------------------------------------------------------------------------

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	sp, ok := s.fetchSpace(w, r)
	if !ok {
		return
	}
	questions, err := s.store.ListQuestions(r.Context(), sp.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list questions")
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}
	writeJSON(w, http.StatusOK, questions)
}

// ---------------------------------------------------------------------------
// POST /api/questions/{id}/answer
// ---------------------------------------------------------------------------

func (s *Server) handleAnswerQuestion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	q, err := s.store.GetQuestion(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "question not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get question")
		return
	}

	if err := s.engine.AnswerQuestion(r.Context(), q.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to answer question")
		return
	}
	answered, err := s.store.GetQuestion(r.Context(), q.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get question")
		return
	}
	writeJSON(w, http.StatusOK, answered)
}

// ---------------------------------------------------------------------------
// POST /api/blocks/{id}/retry
// ---------------------------------------------------------------------------

func (s *Server) handleRetryBlock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	ok, err := s.store.RetryBlock(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to retry block")
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "only failed blocks can be retried")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": model.BlockIdle})
}

// fetchSpace resolves the {id} path value to a space, writing the error
// response itself when it cannot.
func (s *Server) fetchSpace(w http.ResponseWriter, r *http.Request) (*model.Space, bool) {
	id := r.PathValue("id")
	sp, err := s.store.GetSpace(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "space not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get space")
		return nil, false
	}
	return sp, true
}
