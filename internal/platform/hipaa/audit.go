package hipaa

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Audit actions written by the analysis endpoints.
const (
	ActionReportAnalysis = "REPORT_ANALYSIS"
	ActionXrayAnalysis   = "XRAY_ANALYSIS"
	ActionReportRead     = "REPORT_READ"
	ActionReportDelete   = "REPORT_DELETE"
	ActionUploadRead     = "UPLOAD_READ"
)

// AuditEntry is one append-only access record. UserID is nil for callers
// that could not be identified.
type AuditEntry struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id"`
	Action    string     `json:"action"`
	Resource  string     `json:"resource"`
	Origin    string     `json:"origin_address"`
	Timestamp time.Time  `json:"timestamp"`
}

// ResultResource names an analysis record in the audit trail.
func ResultResource(id uuid.UUID) string {
	return "RESULT_ID_" + id.String()
}

// AuditSink persists or forwards audit entries.
type AuditSink interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// Recorder fans audit entries out to its sinks. Record never fails the
// caller: sink errors are logged and dropped.
type Recorder struct {
	sinks   []AuditSink
	logger  zerolog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewRecorder creates a Recorder writing to the given sinks in order.
func NewRecorder(logger zerolog.Logger, sinks ...AuditSink) *Recorder {
	return &Recorder{
		sinks:   sinks,
		logger:  logger,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

// Record appends one audit entry. The request context may already be done
// when a handler finishes, so sinks get a detached context with their own
// deadline.
func (r *Recorder) Record(ctx context.Context, userID *uuid.UUID, action, resource, origin string) {
	entry := AuditEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Origin:    origin,
		Timestamp: r.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	for _, sink := range r.sinks {
		if err := sink.Append(ctx, entry); err != nil {
			r.logger.Error().Err(err).
				Str("audit_id", entry.ID.String()).
				Str("action", action).
				Str("resource", resource).
				Msg("audit write failed")
		}
	}
}
