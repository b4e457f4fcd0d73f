// Package criteria builds the composable appointment filter used by both the
// SQL read path and the in-memory cache/calendar read path. The two paths must
// select identical result sets for identical inputs, so every rule here has a
// matching translation in Where and Matches.
package criteria

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/plicometria/agenda/services/agenda-service/internal/model"
)

// Criteria is the typed filter. Zero values mean "no constraint"; the zero
// Criteria accepts every appointment. Dimensions combine with AND, so the
// order in which they are set never changes the result.
type Criteria struct {
	Professional string
	Status       model.Status
	From         *time.Time // inclusive lower bound on the start instant
	To           *time.Time // inclusive upper bound on the start instant
	Query        string     // case-insensitive substring, any of patient/session type/professional/note
}

// Parse builds Criteria from query parameters. Malformed inputs are treated
// as absent rather than rejected: unknown or "all" status, unparsable dates
// and blank queries simply do not constrain the result.
func Parse(values url.Values) Criteria {
	var c Criteria
	c.Professional = strings.TrimSpace(values.Get("professional"))
	if c.Professional == "all" {
		c.Professional = ""
	}
	if status, ok := model.ParseStatus(values.Get("status")); ok {
		c.Status = status
	}
	c.From = parseBound(values.Get("from"))
	c.To = parseBound(values.Get("to"))
	c.Query = strings.TrimSpace(values.Get("q"))
	return c
}

func parseBound(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, model.DateLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// IsZero reports whether the criteria constrain anything at all.
func (c Criteria) IsZero() bool {
	return c.Professional == "" && c.Status == "" && c.From == nil && c.To == nil && c.Query == ""
}

// Matches evaluates the filter against a single in-memory record.
func (c Criteria) Matches(a model.Appointment) bool {
	if c.Professional != "" && a.Professional != c.Professional {
		return false
	}
	if c.Status != "" && a.Status != c.Status {
		return false
	}
	if c.From != nil || c.To != nil {
		start, err := a.StartAt()
		if err != nil {
			return false
		}
		if c.From != nil && start.Before(*c.From) {
			return false
		}
		if c.To != nil && start.After(*c.To) {
			return false
		}
	}
	if c.Query != "" {
		q := strings.ToLower(c.Query)
		match := strings.Contains(strings.ToLower(a.PatientName), q) ||
			strings.Contains(strings.ToLower(a.SessionType), q) ||
			strings.Contains(strings.ToLower(a.Professional), q) ||
			strings.Contains(strings.ToLower(a.Note), q)
		if !match {
			return false
		}
	}
	return true
}

// Filter returns the subset of appts accepted by the criteria, preserving order.
func (c Criteria) Filter(appts []model.Appointment) []model.Appointment {
	out := make([]model.Appointment, 0, len(appts))
	for _, a := range appts {
		if c.Matches(a) {
			out = append(out, a)
		}
	}
	return out
}

const instantExpr = "(date + start_time)"

// Where translates the criteria into a SQL clause over the appointments
// table. Placeholders are numbered starting at argOffset+1. An empty clause
// means no WHERE is needed. The free-text dimension becomes an ILIKE OR-group
// ANDed with the exact and range conditions, mirroring Matches.
func (c Criteria) Where(argOffset int) (string, []any) {
	var conds []string
	var args []any

	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", argOffset+len(args))
	}

	if c.Professional != "" {
		conds = append(conds, "professional = "+next(c.Professional))
	}
	if c.Status != "" {
		conds = append(conds, "status = "+next(string(c.Status)))
	}
	if c.From != nil {
		conds = append(conds, instantExpr+" >= "+next(sqlInstant(*c.From)))
	}
	if c.To != nil {
		conds = append(conds, instantExpr+" <= "+next(sqlInstant(*c.To)))
	}
	if c.Query != "" {
		pattern := next("%" + c.Query + "%")
		conds = append(conds, fmt.Sprintf(
			"(patient_name ILIKE %[1]s OR session_type ILIKE %[1]s OR professional ILIKE %[1]s OR note ILIKE %[1]s)",
			pattern,
		))
	}

	return strings.Join(conds, " AND "), args
}

// sqlInstant renders a bound as a wall-clock timestamp literal so the
// comparison against (date + start_time) matches the UTC instants used by
// the in-memory path.
func sqlInstant(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
