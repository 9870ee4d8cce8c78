package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Client is a typed HTTP client for the session API, used by the chat TUI.
type Client struct {
	baseURL string
	client  *http.Client
}

// QueryResult is the structured answer envelope returned by /query.
type QueryResult struct {
	Query             string   `json:"query"`
	Answer            string   `json:"answer"`
	DecisionRationale string   `json:"decision_rationale"`
	SourceClauses     []string `json:"source_clauses"`
	Status            string   `json:"status"`
}

// UploadResult reports what an upload ingested.
type UploadResult struct {
	Message   string `json:"message"`
	Summary   string `json:"summary"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
	Skipped   []struct {
		File   string `json:"file"`
		Reason string `json:"reason"`
	} `json:"skipped"`
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// StartSession asks the server for a fresh session ID.
func (c *Client) StartSession() (string, error) {
	res, err := c.client.Get(c.baseURL + "/start_session")
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.decode(res, &out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

// UploadDocs sends the given files as one multipart request and waits for
// the server to build the session index.
func (c *Client) UploadDocs(sessionID string, paths []string) (*UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		part, err := writer.CreateFormFile("uploaded_files", filepath.Base(p))
		if err != nil {
			f.Close()
			return nil, err
		}
		if _, err := io.Copy(part, f); err != nil {
			f.Close()
			return nil, err
		}
		f.Close()
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/upload_docs?session_id=%s", c.baseURL, sessionID)
	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	var out UploadResult
	if err := c.decode(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Query asks a question against the session's indexed documents.
func (c *Client) Query(sessionID, query string) (*QueryResult, error) {
	payload, err := json.Marshal(map[string]string{
		"query":      query,
		"session_id": sessionID,
	})
	if err != nil {
		return nil, err
	}
	res, err := c.client.Post(c.baseURL+"/query", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	var out QueryResult
	if err := c.decode(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) decode(res *http.Response, out any) error {
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		var apiErr struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Detail != "" {
			return fmt.Errorf("server returned %d: %s", res.StatusCode, apiErr.Detail)
		}
		return fmt.Errorf("server returned %d", res.StatusCode)
	}
	return json.Unmarshal(data, out)
}
