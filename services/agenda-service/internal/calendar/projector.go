// Package calendar maps appointments into the event records consumed by the
// calendar views. The projection is a pure transformation: no side effects,
// and the same input set always yields the same output bytes.
package calendar

import (
	"sort"
	"time"

	"github.com/plicometria/agenda/services/agenda-service/internal/model"
)

type Event struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Start        time.Time    `json:"start"`
	End          time.Time    `json:"end"`
	Professional string       `json:"professional"`
	Status       model.Status `json:"status"`
	ClassName    string       `json:"class_name"`
	Note         string       `json:"note,omitempty"`
}

// Project converts a filtered appointment set into calendar events, ordered
// by start instant then id. Records whose date or clock fields do not parse
// are skipped rather than failing the whole projection.
func Project(appts []model.Appointment) []Event {
	events := make([]Event, 0, len(appts))
	for _, appt := range appts {
		start, err := appt.StartAt()
		if err != nil {
			continue
		}
		end, err := appt.EndAt()
		if err != nil {
			continue
		}
		title := appt.PatientName
		if appt.SessionType != "" {
			title += " - " + appt.SessionType
		}
		events = append(events, Event{
			ID:           appt.ID,
			Title:        title,
			Start:        start,
			End:          end,
			Professional: appt.Professional,
			Status:       appt.Status,
			ClassName:    classForStatus(appt.Status),
			Note:         appt.Note,
		})
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].ID < events[j].ID
	})
	return events
}

func classForStatus(s model.Status) string {
	switch s {
	case model.StatusConfirmed:
		return "bg-emerald-100 text-emerald-800 border-emerald-200"
	case model.StatusDone:
		return "bg-sky-100 text-sky-800 border-sky-200"
	case model.StatusCancelled:
		return "bg-rose-100 text-rose-800 border-rose-200"
	default:
		return "bg-amber-100 text-amber-800 border-amber-200"
	}
}
