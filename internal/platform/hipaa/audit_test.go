package hipaa

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type captureSink struct {
	entries []AuditEntry
	err     error
	ctxErr  error
}

func (s *captureSink) Append(ctx context.Context, e AuditEntry) error {
	s.ctxErr = ctx.Err()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func TestResultResource(t *testing.T) {
	id := uuid.MustParse("6f1c2a9e-8d11-4b1e-9a7b-1c2d3e4f5a6b")
	if got := ResultResource(id); got != "RESULT_ID_6f1c2a9e-8d11-4b1e-9a7b-1c2d3e4f5a6b" {
		t.Errorf("unexpected resource %q", got)
	}
}

func TestRecorder_Record(t *testing.T) {
	sink := &captureSink{}
	rec := NewRecorder(zerolog.Nop(), sink)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	userID := uuid.New()
	rec.Record(context.Background(), &userID, ActionReportAnalysis, "RESULT_ID_1", "10.0.0.1")

	if len(sink.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(sink.entries))
	}
	e := sink.entries[0]
	if e.ID == uuid.Nil {
		t.Error("expected entry id")
	}
	if e.UserID == nil || *e.UserID != userID {
		t.Error("expected user id to be carried")
	}
	if e.Action != ActionReportAnalysis || e.Resource != "RESULT_ID_1" || e.Origin != "10.0.0.1" {
		t.Errorf("unexpected entry %+v", e)
	}
	if !e.Timestamp.Equal(fixed) {
		t.Errorf("expected timestamp %v, got %v", fixed, e.Timestamp)
	}
}

func TestRecorder_NilUser(t *testing.T) {
	sink := &captureSink{}
	NewRecorder(zerolog.Nop(), sink).Record(context.Background(), nil, ActionXrayAnalysis, "RESULT_ID_2", "")

	if len(sink.entries) != 1 || sink.entries[0].UserID != nil {
		t.Fatalf("expected one entry with nil user, got %+v", sink.entries)
	}
}

func TestRecorder_FailureIsLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	failing := &captureSink{err: errors.New("db down")}
	ok := &captureSink{}
	rec := NewRecorder(zerolog.New(&buf), failing, ok)

	rec.Record(context.Background(), nil, ActionReportDelete, "RESULT_ID_3", "")

	if len(ok.entries) != 1 {
		t.Error("a failing sink must not stop later sinks")
	}
	out := buf.String()
	if !strings.Contains(out, "audit write failed") || !strings.Contains(out, ActionReportDelete) {
		t.Errorf("expected error log with action, got %q", out)
	}
}

func TestRecorder_DetachedContext(t *testing.T) {
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewRecorder(zerolog.Nop(), sink).Record(ctx, nil, ActionReportRead, "RESULT_ID_4", "")

	if sink.ctxErr != nil {
		t.Errorf("sink should not see the caller's cancellation, got %v", sink.ctxErr)
	}
	if len(sink.entries) != 1 {
		t.Error("expected entry to be written after caller cancelled")
	}
}
