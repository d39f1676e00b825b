// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package openai is a thin client for the parts of the OpenAI API the
// pipeline uses: JSON-mode chat completions, file upload, vector stores,
// and retrieval-backed responses.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/consclab/theory-engine/internal/httputil"
)

// BaseURL is the OpenAI API root. Package-level var for test substitution.
var BaseURL = "https://api.openai.com/v1"

// Client calls the OpenAI API. The zero value is not usable; construct with
// New so the HTTP client and retry count have sane defaults.
type Client struct {
	apiKey      string
	httpClient  *http.Client
	maxAttempts int
	userAgent   string
}

// New returns a Client authenticated with apiKey. A nil httpClient falls
// back to http.DefaultClient; maxAttempts <= 0 uses the retry default.
func New(apiKey string, httpClient *http.Client, maxAttempts int, userAgent string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		apiKey:      apiKey,
		httpClient:  httpClient,
		maxAttempts: maxAttempts,
		userAgent:   userAgent,
	}
}

// ChatResult is the parsed outcome of a JSON-mode chat completion.
type ChatResult struct {
	// Content is the raw JSON text returned by the model.
	Content string

	// TotalTokens is the usage reported by the API.
	TotalTokens int
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// ChatJSON sends a system+user prompt pair to the chat completions endpoint
// with JSON output forced, and returns the model's raw JSON text.
func (c *Client) ChatJSON(ctx context.Context, model, system, user string) (ChatResult, error) {
	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	var cr chatResponse
	if err := c.postJSON(ctx, "/chat/completions", reqBody, &cr); err != nil {
		return ChatResult{}, err
	}
	if len(cr.Choices) == 0 {
		return ChatResult{}, fmt.Errorf("chat completion returned no choices")
	}
	return ChatResult{
		Content:     cr.Choices[0].Message.Content,
		TotalTokens: cr.Usage.TotalTokens,
	}, nil
}

type fileResponse struct {
	ID string `json:"id"`
}

// UploadFile uploads the file at path with purpose "assistants" and returns
// the provider's file ID.
func (c *Client) UploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", "assistants"); err != nil {
		return "", fmt.Errorf("writing purpose field: %w", err)
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finalizing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, BaseURL+"/files", &body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var fr fileResponse
	if err := c.do(req, &fr); err != nil {
		return "", fmt.Errorf("uploading %s: %w", filepath.Base(path), err)
	}
	return fr.ID, nil
}

type vectorStoreRequest struct {
	Name string `json:"name"`
}

type vectorStoreResponse struct {
	ID string `json:"id"`
}

// CreateVectorStore creates a named server-side retrieval index and returns its ID.
func (c *Client) CreateVectorStore(ctx context.Context, name string) (string, error) {
	var vsr vectorStoreResponse
	if err := c.postJSON(ctx, "/vector_stores", vectorStoreRequest{Name: name}, &vsr); err != nil {
		return "", fmt.Errorf("creating vector store: %w", err)
	}
	return vsr.ID, nil
}

type vectorStoreFileRequest struct {
	FileID string `json:"file_id"`
}

// AddFile attaches an uploaded file to a vector store.
func (c *Client) AddFile(ctx context.Context, vectorStoreID, fileID string) error {
	var vsr vectorStoreResponse
	path := "/vector_stores/" + vectorStoreID + "/files"
	if err := c.postJSON(ctx, path, vectorStoreFileRequest{FileID: fileID}, &vsr); err != nil {
		return fmt.Errorf("adding file %s to vector store %s: %w", fileID, vectorStoreID, err)
	}
	return nil
}

type responsesRequest struct {
	Model string         `json:"model"`
	Input string         `json:"input"`
	Tools []responseTool `json:"tools,omitempty"`
}

type responseTool struct {
	Type           string   `json:"type"`
	VectorStoreIDs []string `json:"vector_store_ids,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// Respond sends input to the responses endpoint with a file_search tool over
// the given vector store, and returns the concatenated output text.
func (c *Client) Respond(ctx context.Context, model, input, vectorStoreID string) (string, error) {
	reqBody := responsesRequest{
		Model: model,
		Input: input,
		Tools: []responseTool{
			{Type: "file_search", VectorStoreIDs: []string{vectorStoreID}},
		},
	}

	var rr responsesResponse
	if err := c.postJSON(ctx, "/responses", reqBody, &rr); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, item := range rr.Output {
		if item.Type != "message" {
			continue
		}
		for _, block := range item.Content {
			if block.Type == "output_text" {
				b.WriteString(block.Text)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// postJSON marshals reqBody, POSTs it to BaseURL+path, and decodes the
// response into out.
func (c *Client) postJSON(ctx context.Context, path string, reqBody, out any) error {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, BaseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

// do sets auth headers, executes the request through the retry wrapper, and
// decodes the JSON response body into out.
func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := httputil.DoWithRetry(req.Context(), c.httpClient, req, c.maxAttempts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, truncate(string(body), 500))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding OpenAI response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
