package uiformat

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestPlainRendererFormatsProgressLine(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(Config{Output: &buf})
	_ = r.Start(context.Background())
	r.UpdateProgress(ProgressEvent{Stage: StageIndexing, Current: 3, Total: 10, Message: "symbols"})
	out := buf.String()
	if !strings.Contains(out, "Indexing") || !strings.Contains(out, "3/10") {
		t.Fatalf("unexpected progress line: %q", out)
	}
}

func TestPlainRendererCompleteIncludesCounts(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(Config{Output: &buf})
	r.Complete(CompletionStats{Nodes: 42, Memories: 7})
	out := buf.String()
	if !strings.Contains(out, "42 nodes indexed") || !strings.Contains(out, "7 memories loaded") {
		t.Fatalf("unexpected completion line: %q", out)
	}
}

func TestResultWriterTableAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	w := NewResultWriter(&buf, false)
	w.Table([]string{"name", "type"}, [][]string{{"handleUpload", "Function"}})
	out := buf.String()
	if !strings.Contains(out, "handleUpload") || !strings.Contains(out, "type") {
		t.Fatalf("unexpected table output: %q", out)
	}
}

func TestResultWriterTableJSONMode(t *testing.T) {
	var buf bytes.Buffer
	w := NewResultWriter(&buf, true)
	w.Table([]string{"name"}, [][]string{{"main"}})

	var rows []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("expected valid json, got error: %v, output: %q", err, buf.String())
	}
	if len(rows) != 1 || rows[0]["name"] != "main" {
		t.Fatalf("unexpected decoded rows: %+v", rows)
	}
}

func TestNewRendererFallsBackToPlainForNonTTY(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(Config{Output: &buf})
	if _, ok := r.(*PlainRenderer); !ok {
		t.Fatalf("expected PlainRenderer for a non-TTY buffer, got %T", r)
	}
}
