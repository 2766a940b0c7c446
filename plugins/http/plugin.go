// Package http provides the http.download task type.
package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/BDNK1/taskforge/runtime/plugin"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/afero"
)

// Config holds the HTTP plugin configuration with declarative tags
type Config struct {
	Timeout     time.Duration `yaml:"timeout" default:"30s" validate:"gte=1s"`
	MaxRetries  int           `yaml:"max_retries" default:"3" validate:"gte=0,lte=10"`
	RetryWaitMS int           `yaml:"retry_wait_ms" default:"100" validate:"gte=0,lte=10000"`
	UserAgent   string        `yaml:"user_agent" default:"taskforge"`
	Debug       bool          `yaml:"debug" default:"false"`
}

// HTTPPlugin shares one HTTP client between all download tasks of a build.
type HTTPPlugin struct {
	Config Config // Exported so the CLI can set it during initialization
	client *resty.Client
}

// Initialize builds the client. Config is already validated at this point.
func (h *HTTPPlugin) Initialize(ctx context.Context) error {
	h.client = resty.New().
		SetTimeout(h.Config.Timeout).
		SetRetryCount(h.Config.MaxRetries).
		SetRetryWaitTime(time.Duration(h.Config.RetryWaitMS) * time.Millisecond).
		SetHeader("User-Agent", h.Config.UserAgent).
		SetDebug(h.Config.Debug)
	return nil
}

func (h *HTTPPlugin) Shutdown(ctx context.Context) error {
	h.client = nil
	return nil
}

func (h *HTTPPlugin) TaskTypes() map[string]plugin.Task {
	return map[string]plugin.Task{
		"download": (*DownloadTask)(nil),
	}
}

// DownloadTask fetches a URL into a file, optionally verifying its SHA-256 digest.
type DownloadTask struct {
	plugin.DefaultTask
	_ plugin.Actions `actions:"Download"`

	HTTP *HTTPPlugin `inject:"http"`

	URL      string            `yaml:"url" task:"input-value" validate:"url_format"`
	Headers  map[string]string `yaml:"headers" task:"input-value,optional"`
	Query    map[string]string `yaml:"query" task:"input-value,optional"`
	Checksum string            `yaml:"sha256" task:"input-value,optional" validate:"omitempty,hexadecimal,len=64"`
	Dest     string            `yaml:"dest" task:"output-file"`
}

func (t *DownloadTask) Download(ctx context.Context) error {
	if t.HTTP == nil || t.HTTP.client == nil {
		return fmt.Errorf("http.download: http plugin is not initialized")
	}
	logger := plugin.LoggerFrom(ctx)

	resp, err := t.HTTP.client.R().
		SetContext(ctx).
		SetHeaders(t.Headers).
		SetQueryParams(t.Query).
		Get(t.URL)
	if err != nil {
		return fmt.Errorf("http.download: request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("http.download: GET %s returned %s", t.URL, resp.Status())
	}

	body := resp.Body()
	if t.Checksum != "" {
		sum := sha256.Sum256(body)
		if actual := hex.EncodeToString(sum[:]); actual != t.Checksum {
			return fmt.Errorf("http.download: checksum mismatch for %s: expected %s, got %s", t.URL, t.Checksum, actual)
		}
	}

	if err := afero.WriteFile(t.FileSystem(), t.Dest, body, 0o644); err != nil {
		return fmt.Errorf("http.download: %w", err)
	}
	logger.Info("Downloaded file", "url", t.URL, "bytes", len(body), "status", resp.StatusCode(), "elapsed", resp.Time())
	return nil
}
