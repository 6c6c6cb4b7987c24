// Package audit stores the append-only access trail and serves it to
// administrators. Entries are produced by hipaa.Recorder; this package only
// persists and reads them.
package audit

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var ErrEventNotFound = errors.New("audit event not found")

// SearchParams filters the trail. Zero values match everything.
type SearchParams struct {
	Action string
	UserID *uuid.UUID
}

// where renders the filter using the backend's placeholder style.
func (p SearchParams) where(placeholder func(n int) string) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if p.Action != "" {
		args = append(args, p.Action)
		clauses = append(clauses, "action = "+placeholder(len(args)))
	}
	if p.UserID != nil {
		args = append(args, *p.UserID)
		clauses = append(clauses, "user_id = "+placeholder(len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
