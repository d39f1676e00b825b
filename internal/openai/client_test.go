// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consclab/theory-engine/internal/httputil"
)

func TestMain(m *testing.M) {
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

// withTestServer points BaseURL at a test server for the duration of a test.
func withTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	old := BaseURL
	BaseURL = ts.URL
	t.Cleanup(func() {
		BaseURL = old
		ts.Close()
	})
	return ts
}

func TestChatJSON(t *testing.T) {
	withTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-5-mini", req["model"])
		rf, ok := req["response_format"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "json_object", rf["type"])

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"ok": true}`}},
			},
			"usage": map[string]any{"total_tokens": 123},
		})
	}))

	c := New("test-key", nil, 3, "theory-engine-test")
	res, err := c.ChatJSON(context.Background(), "gpt-5-mini", "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, res.Content)
	assert.Equal(t, 123, res.TotalTokens)
}

func TestChatJSON_NoChoices(t *testing.T) {
	withTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))

	c := New("test-key", nil, 3, "")
	_, err := c.ChatJSON(context.Background(), "gpt-5", "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestChatJSON_RetriesRateLimit(t *testing.T) {
	var calls int32
	withTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{}`}},
			},
		})
	}))

	c := New("test-key", nil, 3, "")
	_, err := c.ChatJSON(context.Background(), "gpt-5", "s", "u")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestChatJSON_AuthErrorNotRetried(t *testing.T) {
	var calls int32
	withTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "bad key"}}`))
	}))

	c := New("bad-key", nil, 5, "")
	_, err := c.ChatJSON(context.Background(), "gpt-5", "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestUploadFile(t *testing.T) {
	withTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "assistants", r.FormValue("purpose"))

		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "paper.pdf", header.Filename)

		json.NewEncoder(w).Encode(map[string]any{"id": "file-abc"})
	}))

	dir := t.TempDir()
	path := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644))

	c := New("test-key", nil, 3, "")
	id, err := c.UploadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "file-abc", id)
}

func TestUploadFile_Missing(t *testing.T) {
	c := New("test-key", nil, 3, "")
	_, err := c.UploadFile(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
	require.Error(t, err)
}

func TestVectorStoreFlow(t *testing.T) {
	withTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/vector_stores":
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "papers_vs", req["name"])
			json.NewEncoder(w).Encode(map[string]any{"id": "vs-1"})
		case "/vector_stores/vs-1/files":
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "file-abc", req["file_id"])
			json.NewEncoder(w).Encode(map[string]any{"id": "vsf-1"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	c := New("test-key", nil, 3, "")
	vsID, err := c.CreateVectorStore(context.Background(), "papers_vs")
	require.NoError(t, err)
	assert.Equal(t, "vs-1", vsID)

	require.NoError(t, c.AddFile(context.Background(), vsID, "file-abc"))
}

func TestRespond(t *testing.T) {
	withTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		tools, ok := req["tools"].([]any)
		require.True(t, ok)
		require.Len(t, tools, 1)
		tool := tools[0].(map[string]any)
		assert.Equal(t, "file_search", tool["type"])

		json.NewEncoder(w).Encode(map[string]any{
			"output": []map[string]any{
				{"type": "file_search_call"},
				{
					"type": "message",
					"content": []map[string]any{
						{"type": "output_text", "text": "Figure 1 shows "},
						{"type": "output_text", "text": "the experimental setup."},
					},
				},
			},
		})
	}))

	c := New("test-key", nil, 3, "")
	text, err := c.Respond(context.Background(), "gpt-5", "describe figure 1", "vs-1")
	require.NoError(t, err)
	assert.Equal(t, "Figure 1 shows the experimental setup.", text)
}
