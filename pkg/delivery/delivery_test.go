package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubewise/k8s-resource-recommender/pkg/models"
)

func testBundle() *models.ReportBundle {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	return &models.ReportBundle{
		ID:            "run-1",
		Window:        models.Window{Start: now.Add(-168 * time.Hour), End: now},
		BufferPercent: 20,
		GeneratedAt:   now,
	}
}

func TestSlackSinkPostsSummary(t *testing.T) {
	var received slackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewSlackSink(server.URL)
	artifacts := Artifacts{Bundle: testBundle(), Table: "NAMESPACE  WORKLOAD\nprod       api\n"}

	require.NoError(t, sink.Deliver(context.Background(), artifacts))
	assert.Contains(t, received.Text, "Resource recommendations")
	assert.Contains(t, received.Text, "Window: 168h")
	assert.Contains(t, received.Text, "```\nNAMESPACE")
}

func TestSlackSinkRejectsNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer server.Close()

	err := NewSlackSink(server.URL).Deliver(context.Background(), Artifacts{Bundle: testBundle()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid_payload")
}

func TestFileSinkWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(filepath.Join(dir, "out"))

	artifacts := Artifacts{
		Bundle:    testBundle(),
		PatchYAML: []byte("apiVersion: apps/v1\n"),
		HTML:      "<html></html>",
	}
	require.NoError(t, sink.Deliver(context.Background(), artifacts))

	patch, err := os.ReadFile(filepath.Join(dir, "out", patchFileName))
	require.NoError(t, err)
	assert.Equal(t, "apiVersion: apps/v1\n", string(patch))

	html, err := os.ReadFile(filepath.Join(dir, "out", htmlFileName))
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(html))
}

func TestFileSinkSkipsHTMLWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir)

	require.NoError(t, sink.Deliver(context.Background(), Artifacts{Bundle: testBundle(), PatchYAML: []byte("x\n")}))

	_, err := os.Stat(filepath.Join(dir, htmlFileName))
	assert.True(t, os.IsNotExist(err))
}

type failingSink struct{ err error }

func (f *failingSink) Name() string                             { return "failing" }
func (f *failingSink) Deliver(context.Context, Artifacts) error { return f.err }

func TestFanoutCollectsFailuresWithoutAborting(t *testing.T) {
	dir := t.TempDir()
	good := NewFileSink(dir)
	bad := &failingSink{err: errors.New("webhook down")}

	failures := Fanout(context.Background(), []Sink{bad, good}, Artifacts{Bundle: testBundle(), PatchYAML: []byte("y\n")})

	require.Len(t, failures, 1)
	assert.Equal(t, "failing", failures[0].Sink)
	assert.ErrorContains(t, failures[0], "webhook down")

	// The healthy sink still ran.
	_, err := os.Stat(filepath.Join(dir, patchFileName))
	require.NoError(t, err)
}
