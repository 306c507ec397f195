package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"

	"github.com/HardikTIET/MUJ-RAGBOT/internal/config"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/index"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/models"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/providers"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/rag"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/storage"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/util"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/workflows"
)

// workflowTerminator is the slice of the Temporal client the clear path
// needs to stop in-flight ingestions.
type workflowTerminator interface {
	TerminateWorkflow(ctx context.Context, workflowID, runID, reason string, details ...interface{}) error
}

// feedbackLedger is the slice of the feedback repository the handlers use.
type feedbackLedger interface {
	Record(ctx context.Context, username, query, response string, verdict int) error
	List(ctx context.Context) ([]models.FeedbackRecord, error)
}

type Server struct {
	cfg          config.Config
	db           *storage.DB
	userRepo     *storage.UserRepo
	docRepo      *storage.DocumentRepo
	feedbackRepo feedbackLedger
	store        *index.Store
	providers    *providers.Manager
	temporal     tclient.Client
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		panic(err)
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}
	store := index.NewStore(cfg.IndexPath)
	if err := rag.EnsureSeeded(ctx, store, pm, cfg.EmbedDim); err != nil {
		panic(err)
	}
	return &Server{
		cfg:          cfg,
		db:           db,
		userRepo:     storage.NewUserRepo(db),
		docRepo:      storage.NewDocumentRepo(db),
		feedbackRepo: storage.NewFeedbackRepo(db),
		store:        store,
		providers:    pm,
		temporal:     tc,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/users", s.handleUsers)
	mux.HandleFunc("/users/", s.handleUserScoped)
	mux.HandleFunc("/documents", s.handleDocuments)
	mux.HandleFunc("/documents/", s.handleDocumentScoped)
	mux.HandleFunc("/knowledge-base", s.handleKnowledgeBase)
	mux.HandleFunc("/ask", s.handleAsk)
	mux.HandleFunc("/feedback", s.handleFeedback)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	dbOK := s.db.Ping(r.Context()) == nil
	writeJSON(w, http.StatusOK, map[string]any{"ok": dbOK, "db": dbOK, "index_ready": s.store.Exists()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("username and password are required"))
		return
	}
	u, found, err := s.userRepo.GetUser(r.Context(), req.Username)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if !found || !util.CheckPassword(req.Password, u.PasswordHash) {
		writeErr(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"username": u.Username, "role": u.Role})
}

// requireAdmin authenticates the mutating admin routes with basic auth
// against the users table.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	username, password, ok := r.BasicAuth()
	if !ok {
		writeErr(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
		return false
	}
	u, found, err := s.userRepo.GetUser(r.Context(), username)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return false
	}
	if !found || u.Role != models.RoleAdmin || !util.CheckPassword(password, u.PasswordHash) {
		writeErr(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
		return false
	}
	return true
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !s.requireAdmin(w, r) {
			return
		}
		students, err := s.userRepo.ListStudents(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"students": students})
	case http.MethodPost:
		if !s.requireAdmin(w, r) {
			return
		}
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("username and password are required"))
			return
		}
		if err := s.userRepo.AddUser(r.Context(), req.Username, util.HashPassword(req.Password), models.RoleStudent); err != nil {
			if strings.Contains(err.Error(), "already exists") {
				writeErr(w, http.StatusConflict, err)
				return
			}
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"username": req.Username, "role": models.RoleStudent})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleUserScoped(w http.ResponseWriter, r *http.Request) {
	username := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users/"), "/")
	if username == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodDelete {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	deleted, err := s.userRepo.DeleteUser(r.Context(), username)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if !deleted {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": username})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		docs, err := s.docRepo.ListProcessed(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleDocumentScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/documents/"), "/"), "/")
	if len(parts) == 1 && parts[0] == "upload" {
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		if !s.requireAdmin(w, r) {
			return
		}
		s.handleUpload(w, r)
		return
	}
	if len(parts) == 2 && parts[1] == "status" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleIngestStatus(w, r, parts[0])
		return
	}
	writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		if single, ok := firstSingleFile(r.MultipartForm.File); ok {
			files = append(files, single)
		}
	}
	if len(files) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}
	if err := util.EnsureDir(s.cfg.UploadDir); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	type uploadResult struct {
		Filename   string `json:"filename"`
		SHA256     string `json:"sha256"`
		WorkflowID string `json:"workflow_id"`
		RunID      string `json:"run_id"`
	}
	out := make([]uploadResult, 0, len(files))

	for _, fh := range files {
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
			continue
		}
		savedPath, digest, err := saveUploadedFile(s.cfg.UploadDir, fh)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		filename := filepath.Base(savedPath)
		we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
			ID:                    ingestWorkflowID(filename),
			TaskQueue:             s.cfg.TemporalTaskQueue,
			WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		}, workflows.DocumentIngestWorkflow, workflows.DocumentIngestInput{
			Path:         savedPath,
			Filename:     filename,
			ChunkSize:    s.cfg.ChunkSize,
			ChunkOverlap: s.cfg.ChunkOverlap,
		})
		if err != nil {
			writeErr(w, http.StatusConflict, err)
			return
		}
		out = append(out, uploadResult{Filename: filename, SHA256: digest, WorkflowID: we.GetID(), RunID: we.GetRunID()})
	}
	if len(out) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"uploaded": out})
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request, filename string) {
	var status workflows.IngestStatus
	resp, err := s.temporal.QueryWorkflow(r.Context(), ingestWorkflowID(filename), "", workflows.QueryGetIngestStatus)
	if err == nil {
		if err := resp.Get(&status); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}
	// No live workflow to query; the ledger still tells us the outcome.
	processed, lErr := s.docRepo.IsProcessed(r.Context(), filename)
	if lErr != nil {
		writeErr(w, http.StatusInternalServerError, lErr)
		return
	}
	if processed {
		writeJSON(w, http.StatusOK, workflows.IngestStatus{Filename: filename, Status: workflows.StatusProcessed, CurrentStep: "done"})
		return
	}
	writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
}

// handleKnowledgeBase handles the full reset: index file, upload copies and
// the ingestion ledger all go together so the next upload rebuilds from
// scratch. Requires explicit confirmation.
// terminateInFlightIngests stops the ingestion workflow of every file in
// the upload directory. The path lock only serializes goroutines inside
// this process while indexing runs in the worker process, so a clear has
// to stop the workflows themselves before wiping state. Each upload lands
// in the directory before its workflow starts, so the listing covers all
// candidates. Terminating a finished or unknown workflow is expected and
// only logged.
func terminateInFlightIngests(ctx context.Context, tc workflowTerminator, uploadDir string) {
	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id := ingestWorkflowID(e.Name())
		if err := tc.TerminateWorkflow(ctx, id, "", "knowledge base cleared"); err != nil {
			log.Printf("terminate %s: %v", id, err)
		}
	}
}

func (s *Server) handleKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("confirmation required"))
		return
	}

	lock := index.PathLock(s.cfg.IndexPath)
	lock.Lock()
	defer lock.Unlock()

	terminateInFlightIngests(r.Context(), s.temporal, s.cfg.UploadDir)

	if err := index.Clear(s.cfg.IndexPath); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.docRepo.ClearAll(r.Context()); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if err := os.RemoveAll(s.cfg.UploadDir); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	s.store.Invalidate()
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}

	orc, err := rag.NewOrchestrator(s.store, s.providers, s.cfg)
	if err != nil {
		writeErr(w, http.StatusConflict, fmt.Errorf("knowledge base is empty: %w", err))
		return
	}
	stream, err := orc.Answer(r.Context(), req.Question)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}
	answerID := uuid.NewString()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for frag := range stream.Fragments() {
		writeSSE(w, "", map[string]any{"answer_id": answerID, "fragment": frag})
		flusher.Flush()
	}
	if err := stream.Err(); err != nil {
		log.Printf("answer %s failed: %v", answerID, err)
		writeSSE(w, "error", map[string]any{"answer_id": answerID, "message": "Answer generation failed. Please retry."})
		flusher.Flush()
		return
	}
	info := stream.Provider()
	writeSSE(w, "done", map[string]any{
		"answer_id":    answerID,
		"answer":       stream.Text(),
		"sources":      stream.Sources(),
		"llm_provider": info.Name,
		"llm_model":    info.Model,
	})
	flusher.Flush()
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if !s.requireAdmin(w, r) {
			return
		}
		records, err := s.feedbackRepo.List(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"feedback": records})
		return
	}
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Username string `json:"username"`
		Query    string `json:"query"`
		Response string `json:"response"`
		Verdict  int    `json:"verdict"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if req.Verdict != models.VerdictHelpful && req.Verdict != models.VerdictNotHelpful {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("verdict must be 1 or -1"))
		return
	}
	// Feedback is best effort; a ledger hiccup must not surface as an
	// error to the student mid-conversation, but the response still says
	// whether the row landed.
	recorded := true
	if err := s.feedbackRepo.Record(r.Context(), req.Username, req.Query, req.Response, req.Verdict); err != nil {
		log.Printf("record feedback: %v", err)
		recorded = false
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"recorded": recorded})
}

func ingestWorkflowID(filename string) string {
	return "ingest-" + sanitizeID(filename)
}

func sanitizeID(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

func saveUploadedFile(dstDir string, fh *multipart.FileHeader) (path, digest string, err error) {
	src, err := fh.Open()
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(dstDir, "upload-*.pdf")
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
	}()

	digest, err = util.SHA256HexFromReader(io.TeeReader(src, tmp))
	if err != nil {
		return "", "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", err
	}
	finalPath := util.SafeJoin(dstDir, fh.Filename)
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return "", "", fmt.Errorf("atomic move upload: %w", err)
	}
	return finalPath, digest, nil
}

func firstSingleFile(m map[string][]*multipart.FileHeader) (*multipart.FileHeader, bool) {
	for _, v := range m {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}

func writeSSE(w http.ResponseWriter, event string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", b)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "RB-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "RB-DB-5001",
				Message: "Database schema is not initialized. Restart the service and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "RB-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		case strings.Contains(raw, "unreadable"):
			return apiError{
				Code:    "RB-IDX-5003",
				Message: "Knowledge base index is unreadable. An admin must clear and rebuild it.",
			}
		default:
			return apiError{
				Code:    "RB-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "RB-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusUnauthorized:
		code = "RB-API-4010"
		msg = "Invalid username or password."
	case status == http.StatusNotFound:
		code = "RB-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "RB-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "RB-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusBadGateway:
		code = "RB-API-5020"
		msg = "Upstream provider unavailable. Retry shortly."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case strings.Contains(low, "username and password are required"):
			msg = "Both username and password are required."
		case strings.Contains(low, "question is required"):
			msg = "A question is required."
		case strings.Contains(low, "no files provided"):
			msg = "No PDF files were provided."
		case strings.Contains(low, "confirmation required"):
			msg = "Pass confirm=true to clear the knowledge base."
		case strings.Contains(low, "knowledge base is empty"):
			msg = "The knowledge base is empty. Upload documents before asking questions."
		case strings.Contains(low, "already exists"):
			msg = "That username is already taken."
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
