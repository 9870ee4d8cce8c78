package server

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"nexusrag/internal/llm"
	"nexusrag/internal/loader"
)

// Session IDs are server-generated, but upload and query accept them back
// from the client, so they are validated before being used as path elements.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type queryRequest struct {
	Query     string `json:"query" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
}

type queryResponse struct {
	Query             string   `json:"query"`
	Answer            string   `json:"answer"`
	DecisionRationale string   `json:"decision_rationale"`
	SourceClauses     []string `json:"source_clauses"`
	Status            string   `json:"status"`
}

type uploadResponse struct {
	Message   string           `json:"message"`
	Summary   string           `json:"summary,omitempty"`
	Documents int              `json:"documents"`
	Chunks    int              `json:"chunks"`
	Skipped   []loader.Failure `json:"skipped,omitempty"`
}

// startSession hands out a fresh random session ID. Nothing is created on
// disk until the first upload.
func (s *Server) startSession(c *fiber.Ctx) error {
	id := "session_" + uuid.NewString()
	return c.JSON(fiber.Map{"session_id": id})
}

// uploadDocs stores the multipart files under the session's upload directory
// and rebuilds that session's index from scratch. A second upload fully
// replaces the first.
func (s *Server) uploadDocs(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if !sessionIDPattern.MatchString(sessionID) {
		return fiber.NewError(fiber.StatusBadRequest, "missing or invalid session_id")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "expected multipart form upload")
	}
	files := form.File["uploaded_files"]
	if len(files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no files in uploaded_files")
	}

	saveDir := filepath.Join(s.cfg.Uploads.Root, sessionID)
	// Clear previous uploads so a re-upload cannot mix in stale documents.
	if err := os.RemoveAll(saveDir); err != nil {
		return err
	}
	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return err
	}
	for _, file := range files {
		name := filepath.Base(file.Filename)
		if name == "." || name == ".." || name == string(filepath.Separator) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid file name")
		}
		if err := c.SaveFile(file, filepath.Join(saveDir, name)); err != nil {
			return err
		}
	}

	report, err := s.retriever.BuildSessionIndex(c.Context(), sessionID, saveDir)
	if err != nil {
		return err
	}
	s.log.Info("session documents processed",
		zap.String("session_id", sessionID),
		zap.Int("documents", report.Documents),
		zap.Int("chunks", report.Chunks))
	return c.JSON(uploadResponse{
		Message:   "Files processed successfully.",
		Summary:   report.Summary,
		Documents: report.Documents,
		Chunks:    report.Chunks,
		Skipped:   report.Skipped,
	})
}

// query retrieves the session's most relevant chunks and asks the model for
// a grounded answer with rationale.
func (s *Server) query(c *fiber.Ctx) error {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return err
	}
	if !sessionIDPattern.MatchString(req.SessionID) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session_id")
	}

	chunks, err := s.retriever.RetrieveSession(c.Context(), req.Query, req.SessionID, s.cfg.Retrieval.TopK)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return c.JSON(queryResponse{
			Query:             req.Query,
			Answer:            "No relevant information was found in the uploaded documents.",
			DecisionRationale: "No relevant text chunks were retrieved to answer the query.",
			SourceClauses:     []string{},
			Status:            "success",
		})
	}

	raw, err := s.sessionLLM.Generate(c.Context(), llm.GroundedPrompt(req.Query, chunks))
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			return err
		}
		return fiber.NewError(fiber.StatusInternalServerError, "language model request failed: "+err.Error())
	}

	grounded, ok := llm.ParseGrounded(raw)
	if !ok {
		// Degrade instead of failing: the caller still gets the raw model
		// text and the retrieved chunks.
		s.log.Warn("unparseable model output", zap.String("session_id", req.SessionID))
		return c.JSON(queryResponse{
			Query:             req.Query,
			Answer:            "The model returned an unexpected or invalid response: " + raw,
			DecisionRationale: "Could not parse the decision rationale from the model's output.",
			SourceClauses:     chunks,
			Status:            "error",
		})
	}
	return c.JSON(queryResponse{
		Query:             req.Query,
		Answer:            grounded.Answer,
		DecisionRationale: grounded.Rationale,
		SourceClauses:     chunks,
		Status:            "success",
	})
}
