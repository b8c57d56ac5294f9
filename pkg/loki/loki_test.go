package loki

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type MockLogger struct{}

func (m *MockLogger) Error(msg string, args ...any) {
}

func Test_ConfigValidation(t *testing.T) {
	cfg := Config{}
	_, err := New(context.Background(), cfg, &MockLogger{})
	assert.Error(t, err)

	cfg.Url = "SomeUrl"
	pusher, err := New(context.Background(), cfg, &MockLogger{})
	assert.NoError(t, err)
	assert.Equal(t, cfg.Url, pusher.config.Url)
	assert.Equal(t, 1000, pusher.config.BatchMaxSize)
	assert.Equal(t, 5*time.Second, pusher.config.BatchMaxWait)
	assert.Equal(t, map[string]string{}, pusher.config.Labels)
}

func Test_StopFlushesPendingBatch(t *testing.T) {

	received := make(chan lokiPushRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gz, err := gzip.NewReader(r.Body)
		assert.NoError(t, err)
		body, _ := io.ReadAll(gz)

		var request lokiPushRequest
		assert.NoError(t, json.Unmarshal(body, &request))
		received <- request

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	pusher, err := New(context.Background(), Config{
		Url:          server.URL,
		BatchMaxWait: time.Minute,
		Labels:       map[string]string{"app": "test"},
	}, &MockLogger{})
	assert.NoError(t, err)

	assert.NoError(t, pusher.Push(LogEntry{Level: "error", Message: "boom", Fields: map[string]string{"error_type": "db"}}))
	pusher.Stop()

	select {
	case request := <-received:
		assert.Len(t, request.Streams, 1)
		assert.Equal(t, "test", request.Streams[0].Stream["app"])
		assert.Len(t, request.Streams[0].Values, 1)
	case <-time.After(time.Second):
		t.Fatal("batch was not flushed on stop")
	}
}
