package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BDNK1/taskforge/runtime"
	"github.com/spf13/afero"
)

const payload = "#!/bin/sh\necho protoc\n"

type harness struct {
	fs        afero.Fs
	container *runtime.Container
	executor  *runtime.Executor
	hits      atomic.Int32
	server    *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{fs: afero.NewMemMapFs()}

	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.hits.Add(1)
		switch r.URL.Path {
		case "/protoc.sh":
			if r.Header.Get("X-Token") != "" && r.Header.Get("X-Token") != "s3cret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("X-Agent", r.Header.Get("User-Agent"))
			w.Header().Set("X-Version", r.URL.Query().Get("version"))
			io.WriteString(w, payload)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(h.server.Close)

	p := &HTTPPlugin{Config: Config{Timeout: 5 * time.Second, UserAgent: "taskforge-test"}}
	factory := runtime.NewAnnotationProcessingTaskFactory(runtime.NewTaskFactory(h.fs), nil)
	h.container = runtime.NewContainer(factory)
	if err := h.container.RegisterPlugin("http", p); err != nil {
		t.Fatalf("RegisterPlugin failed: %v", err)
	}
	if err := h.container.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { h.container.Shutdown(context.Background()) })

	history, err := runtime.OpenHistory(":memory:")
	if err != nil {
		t.Fatalf("OpenHistory failed: %v", err)
	}
	t.Cleanup(func() { history.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.executor = runtime.NewExecutor(logger, nil, history)
	return h
}

func (h *harness) download(t *testing.T, args map[string]any) *DownloadTask {
	t.Helper()
	task, err := h.container.NewTask("protoc", "http.download")
	if err != nil {
		t.Fatalf("NewTask failed: %v", err)
	}
	if err := runtime.ConfigureTask(task, args); err != nil {
		t.Fatalf("ConfigureTask failed: %v", err)
	}
	return task.(*DownloadTask)
}

func checksum(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestDownloadTask(t *testing.T) {
	h := newHarness(t)
	task := h.download(t, map[string]any{
		"url":     h.server.URL + "/protoc.sh",
		"headers": map[string]any{"X-Token": "s3cret"},
		"query":   map[string]any{"version": "25.1"},
		"sha256":  checksum(payload),
		"dest":    "/tools/bin/protoc.sh",
	})
	if task.HTTP == nil {
		t.Fatal("Expected the http plugin to be injected")
	}

	outcome, err := h.executor.Execute(context.Background(), task, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if outcome != runtime.OutcomeExecuted {
		t.Errorf("Expected outcome executed, got %s", outcome)
	}
	data, err := afero.ReadFile(h.fs, "/tools/bin/protoc.sh")
	if err != nil {
		t.Fatalf("Expected downloaded file: %v", err)
	}
	if string(data) != payload {
		t.Errorf("Expected payload %q, got %q", payload, string(data))
	}

	outcome, err = h.executor.Execute(context.Background(), task, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if outcome != runtime.OutcomeUpToDate {
		t.Errorf("Expected outcome up-to-date, got %s", outcome)
	}
	if hits := h.hits.Load(); hits != 1 {
		t.Errorf("Expected a single request, got %d", hits)
	}
}

func TestDownloadTask_NotFound(t *testing.T) {
	h := newHarness(t)
	task := h.download(t, map[string]any{
		"url":  h.server.URL + "/missing.sh",
		"dest": "/tools/bin/missing.sh",
	})

	outcome, err := h.executor.Execute(context.Background(), task, nil)
	if outcome != runtime.OutcomeFailed {
		t.Errorf("Expected outcome failed, got %s", outcome)
	}
	var taskErr *runtime.TaskError
	if !errors.As(err, &taskErr) {
		t.Fatalf("Expected *runtime.TaskError, got %v", err)
	}
	if taskErr.Action() != "Download" {
		t.Errorf("Expected failing action 'Download', got '%s'", taskErr.Action())
	}
	if !strings.Contains(err.Error(), "404 Not Found") {
		t.Errorf("Expected error to carry the status, got: %v", err)
	}
}

func TestDownloadTask_ChecksumMismatch(t *testing.T) {
	h := newHarness(t)
	task := h.download(t, map[string]any{
		"url":    h.server.URL + "/protoc.sh",
		"sha256": checksum("something else"),
		"dest":   "/tools/bin/protoc.sh",
	})

	_, err := h.executor.Execute(context.Background(), task, nil)
	if err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Fatalf("Expected checksum mismatch, got: %v", err)
	}
	if exists, _ := afero.Exists(h.fs, "/tools/bin/protoc.sh"); exists {
		t.Error("Expected no file to be written on checksum mismatch")
	}
}

func TestDownloadTask_Validation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		args map[string]any
		want []string
	}{
		{
			name: "missing url and dest",
			args: nil,
			want: []string{
				"No value has been specified for property 'URL'.",
				"No value has been specified for property 'dest'.",
			},
		},
		{
			name: "relative url",
			args: map[string]any{"url": "downloads/protoc.sh", "dest": "/tools/protoc.sh"},
			want: []string{"Value specified for property 'URL' is invalid: failed rule 'url_format'."},
		},
		{
			name: "short checksum",
			args: map[string]any{"url": h.server.URL + "/protoc.sh", "sha256": "abc123", "dest": "/tools/protoc.sh"},
			want: []string{"Value specified for property 'checksum' is invalid: failed rule 'len=64'."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := h.download(t, tt.args)
			_, err := h.executor.Execute(context.Background(), task, nil)
			var validationErr *runtime.TaskValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Expected *runtime.TaskValidationError, got %v", err)
			}
			if len(validationErr.Messages) != len(tt.want) {
				t.Fatalf("Expected %q, got %q", tt.want, validationErr.Messages)
			}
			for i := range tt.want {
				if validationErr.Messages[i] != tt.want[i] {
					t.Errorf("Expected '%s', got '%s'", tt.want[i], validationErr.Messages[i])
				}
			}
		})
	}
	if hits := h.hits.Load(); hits != 0 {
		t.Errorf("Expected invalid tasks to make no requests, got %d", hits)
	}
}

func TestDownloadTask_NotInitialized(t *testing.T) {
	task := &DownloadTask{HTTP: &HTTPPlugin{}}
	err := task.Download(context.Background())
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("Expected not initialized error, got: %v", err)
	}
}

func TestHTTPPlugin_ConfigDefaults(t *testing.T) {
	var config Config
	if err := runtime.InitializeConfig(&config, map[string]any{"max_retries": 1}); err != nil {
		t.Fatalf("InitializeConfig failed: %v", err)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("Expected Timeout=30s, got %v", config.Timeout)
	}
	if config.MaxRetries != 1 {
		t.Errorf("Expected MaxRetries=1, got %d", config.MaxRetries)
	}
	if config.UserAgent != "taskforge" {
		t.Errorf("Expected UserAgent='taskforge', got '%s'", config.UserAgent)
	}

	if err := runtime.InitializeConfig(&Config{}, map[string]any{"max_retries": 20}); err == nil {
		t.Error("Expected max_retries above 10 to be rejected")
	}
}
