package runtime

import (
	"testing"
	"time"
)

type downloadArgs struct {
	URL      string            `yaml:"url"`
	Headers  map[string]string `yaml:"headers"`
	Attempts int               `yaml:"attempts"`
	Ratio    float64           `yaml:"ratio"`
	Timeout  time.Duration     `yaml:"timeout"`
	NotAfter time.Time         `yaml:"not_after"`
}

type bundleArgs struct {
	Name   string   `yaml:"name"`
	Files  Paths    `yaml:"files"`
	Extras []string `yaml:"extras"`
	Mirror struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"mirror"`
}

func TestDecodeArgs_BasicTypes(t *testing.T) {
	var args downloadArgs
	err := decodeArgs(map[string]any{
		"url":     "https://example.com/tool.tgz",
		"headers": map[string]any{"Accept": "application/octet-stream"},
	}, &args)
	if err != nil {
		t.Fatalf("decodeArgs failed: %v", err)
	}
	if args.URL != "https://example.com/tool.tgz" {
		t.Errorf("Expected url to be decoded, got '%s'", args.URL)
	}
	if args.Headers["Accept"] != "application/octet-stream" {
		t.Errorf("Expected Accept header, got %v", args.Headers)
	}
}

func TestDecodeArgs_WeakTyping(t *testing.T) {
	var args downloadArgs
	err := decodeArgs(map[string]any{
		"attempts": "3",
		"ratio":    1,
	}, &args)
	if err != nil {
		t.Fatalf("decodeArgs failed: %v", err)
	}
	if args.Attempts != 3 {
		t.Errorf("Expected attempts 3, got %d", args.Attempts)
	}
	if args.Ratio != 1.0 {
		t.Errorf("Expected ratio 1.0, got %f", args.Ratio)
	}
}

func TestDecodeArgs_TimeHooks(t *testing.T) {
	var args downloadArgs
	err := decodeArgs(map[string]any{
		"timeout":   "1m30s",
		"not_after": "2026-01-02T15:04:05Z",
	}, &args)
	if err != nil {
		t.Fatalf("decodeArgs failed: %v", err)
	}
	if args.Timeout != 90*time.Second {
		t.Errorf("Expected timeout 1m30s, got %v", args.Timeout)
	}
	want := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	if !args.NotAfter.Equal(want) {
		t.Errorf("Expected not_after %v, got %v", want, args.NotAfter)
	}
}

func TestDecodeArgs_PathCollections(t *testing.T) {
	tests := []struct {
		name       string
		files      any
		extras     any
		wantFiles  []string
		wantExtras []string
	}{
		{"single strings", "a.txt", "b.txt", []string{"a.txt"}, []string{"b.txt"}},
		{"lists", []any{"a.txt", "c.txt"}, []any{"b.txt"}, []string{"a.txt", "c.txt"}, []string{"b.txt"}},
		{"empty string", "", "", []string{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var args bundleArgs
			err := decodeArgs(map[string]any{"files": tt.files, "extras": tt.extras}, &args)
			if err != nil {
				t.Fatalf("decodeArgs failed: %v", err)
			}
			if len(args.Files) != len(tt.wantFiles) {
				t.Fatalf("Expected files %v, got %v", tt.wantFiles, args.Files)
			}
			for i := range tt.wantFiles {
				if args.Files[i] != tt.wantFiles[i] {
					t.Errorf("Expected files[%d]=%s, got %s", i, tt.wantFiles[i], args.Files[i])
				}
			}
			if len(args.Extras) != len(tt.wantExtras) {
				t.Fatalf("Expected extras %v, got %v", tt.wantExtras, args.Extras)
			}
		})
	}
}

func TestDecodeArgs_NestedStruct(t *testing.T) {
	var args bundleArgs
	err := decodeArgs(map[string]any{
		"name":   "docs",
		"mirror": map[string]any{"host": "mirror.local", "port": "8443"},
	}, &args)
	if err != nil {
		t.Fatalf("decodeArgs failed: %v", err)
	}
	if args.Mirror.Host != "mirror.local" || args.Mirror.Port != 8443 {
		t.Errorf("Expected mirror.local:8443, got %s:%d", args.Mirror.Host, args.Mirror.Port)
	}
}

func TestDecodeArgs_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"unknown key", map[string]any{"uri": "https://example.com"}},
		{"bad duration", map[string]any{"timeout": "soon"}},
		{"bad number", map[string]any{"attempts": "three"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var args downloadArgs
			if err := decodeArgs(tt.args, &args); err == nil {
				t.Error("Expected decodeArgs to fail, got nil")
			}
		})
	}
}
