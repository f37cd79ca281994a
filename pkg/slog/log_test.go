package slog

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	defer SetLogLevel(Info)
	var buf bytes.Buffer
	log, chk := New(&buf)
	SetLogLevel(Info)
	log.I.Ln("hello", "world")
	if !strings.Contains(buf.String(), "hello world") {
		t.Fatalf("info print missing: %q", buf.String())
	}
	buf.Reset()
	log.D.Ln("should be suppressed")
	if buf.Len() != 0 {
		t.Fatalf("debug printed at info level: %q", buf.String())
	}
	if chk.E(nil) {
		t.Fatal("chk reported an error for nil")
	}
	if !chk.E(errors.New("boom")) {
		t.Fatal("chk failed to report an error")
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Fatalf("error text missing: %q", buf.String())
	}
}

func TestErrPassthrough(t *testing.T) {
	var buf bytes.Buffer
	log, _ := New(&buf)
	err := log.E.Err("count %d", 42)
	if err == nil || err.Error() != "count 42" {
		t.Fatalf("unexpected error: %v", err)
	}
}
