package server

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"nexusrag/internal/llm"
)

type judgeRequest struct {
	Documents string   `json:"documents" validate:"required,url"`
	Questions []string `json:"questions" validate:"required,min=1,dive,required"`
}

type judgeResponse struct {
	Answers []string `json:"answers"`
}

const (
	judgeNoContextAnswer = "Could not find relevant information to answer the question."
	judgeFailureAnswer   = "Could not answer this question due to an internal error."
)

// judgeAuth rejects requests without the expected bearer token before any
// processing happens. Constant-time comparison.
func (s *Server) judgeAuth(c *fiber.Ctx) error {
	auth := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || len(s.judgeToken) == 0 ||
		subtle.ConstantTimeCompare([]byte(token), s.judgeToken) != 1 {
		return fiber.NewError(fiber.StatusForbidden, "Invalid authorization token")
	}
	return c.Next()
}

// runSubmission is the stateless evaluation path: download one document,
// build a throwaway index in a temp directory, answer every question, then
// remove all of it. Exactly one answer per question, in input order; a
// failure on one question does not abort the rest.
func (s *Server) runSubmission(c *fiber.Ctx) error {
	var req judgeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return err
	}

	tempDir, err := os.MkdirTemp("", "nexusrag-judge-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tempDir)

	if err := s.downloadDocument(c, req.Documents, tempDir); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to process request: "+err.Error())
	}

	indexDir := filepath.Join(tempDir, "vector_store")
	if _, err := s.retriever.BuildIndex(c.Context(), tempDir, indexDir); err != nil {
		return err
	}

	answers := make([]string, 0, len(req.Questions))
	for _, question := range req.Questions {
		chunks, err := s.retriever.Retrieve(c.Context(), question, indexDir, s.cfg.Retrieval.TopK)
		if err != nil {
			s.log.Warn("judge retrieval failed", zap.String("question", question), zap.Error(err))
			answers = append(answers, judgeFailureAnswer)
			continue
		}
		if len(chunks) == 0 {
			answers = append(answers, judgeNoContextAnswer)
			continue
		}
		raw, err := s.judgeLLM.Generate(c.Context(), llm.PlainPrompt(question, chunks))
		if err != nil {
			// A missing key fails every question identically, so fail the
			// whole request instead of emitting N copies of the fallback.
			if errors.Is(err, llm.ErrMissingAPIKey) {
				return err
			}
			s.log.Warn("judge generation failed", zap.String("question", question), zap.Error(err))
			answers = append(answers, judgeFailureAnswer)
			continue
		}
		answers = append(answers, strings.TrimSpace(raw))
	}
	return c.JSON(judgeResponse{Answers: answers})
}

// downloadDocument fetches the caller-supplied URL into dir. The stored file
// name keeps the URL's extension when it is a recognized document type and
// defaults to .pdf otherwise.
func (s *Server) downloadDocument(c *fiber.Ctx, rawURL, dir string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".txt", ".md", ".pdf", ".docx":
	default:
		ext = ".pdf"
	}

	client := &http.Client{Timeout: time.Duration(s.cfg.Judge.DownloadTimeoutSecs) * time.Second}
	req, err := http.NewRequestWithContext(c.Context(), http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", res.StatusCode)
	}

	f, err := os.Create(filepath.Join(dir, "document"+ext))
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, res.Body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
