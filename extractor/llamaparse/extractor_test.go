package llamaparse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/w-h-a/docchat/extractor"
)

func newParseServer(t *testing.T, pollsUntilDone int32, markdown string) *httptest.Server {
	t.Helper()

	var polls atomic.Int32

	mux := http.NewServeMux()

	mux.HandleFunc("/api/parsing/upload", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "Extract all information", r.FormValue("parsing_instruction"))
		require.Equal(t, "markdown", r.FormValue("result_type"))

		json.NewEncoder(w).Encode(map[string]string{"id": "job-1", "status": "PENDING"})
	})

	mux.HandleFunc("/api/parsing/job/job-1", func(w http.ResponseWriter, r *http.Request) {
		status := "PENDING"
		if polls.Add(1) >= pollsUntilDone {
			status = "SUCCESS"
		}
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	mux.HandleFunc("/api/parsing/job/job-1/result/markdown", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"markdown": markdown})
	})

	return httptest.NewServer(mux)
}

func TestExtractPollsUntilSuccess(t *testing.T) {
	server := newParseServer(t, 3, "# Parsed\n\nA table of figures.")
	defer server.Close()

	ex := NewExtractor(
		extractor.WithApiKey("test-key"),
		extractor.WithLocation(server.URL),
		extractor.WithCooldown(0),
		extractor.WithPollInterval(time.Millisecond),
	)

	docs, err := ex.Extract(context.Background(), extractor.UploadedFile{
		Name:  "report.pdf",
		Bytes: []byte("%PDF-1.4"),
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Contains(t, docs[0].Text, "A table of figures.")
	require.Equal(t, "llamaparse", docs[0].Metadata["extractor"])
	require.Equal(t, "job-1", docs[0].Metadata["job_id"])
}

func TestExtractFailedJob(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/parsing/upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "job-2"})
	})
	mux.HandleFunc("/api/parsing/job/job-2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ERROR"})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	ex := NewExtractor(
		extractor.WithApiKey("test-key"),
		extractor.WithLocation(server.URL),
		extractor.WithCooldown(0),
		extractor.WithPollInterval(time.Millisecond),
	)

	_, err := ex.Extract(context.Background(), extractor.UploadedFile{Name: "bad.pdf"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed")
}

func TestExtractRequiresApiKey(t *testing.T) {
	ex := NewExtractor(extractor.WithCooldown(0))

	_, err := ex.Extract(context.Background(), extractor.UploadedFile{Name: "a.pdf"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestExtractRejectsEmptyResult(t *testing.T) {
	server := newParseServer(t, 1, "   ")
	defer server.Close()

	ex := NewExtractor(
		extractor.WithApiKey("test-key"),
		extractor.WithLocation(server.URL),
		extractor.WithCooldown(0),
		extractor.WithPollInterval(time.Millisecond),
	)

	_, err := ex.Extract(context.Background(), extractor.UploadedFile{Name: "blank.pdf"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no content")
}

func TestExtractUploadRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/parsing/upload", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	ex := NewExtractor(
		extractor.WithApiKey("test-key"),
		extractor.WithLocation(server.URL),
		extractor.WithCooldown(0),
	)

	_, err := ex.Extract(context.Background(), extractor.UploadedFile{Name: "a.pdf"})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "status"))
}
