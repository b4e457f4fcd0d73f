// Package billing derives a financial document from an appointment and its
// selected service. Derivation is a pure computation: given the same
// appointment and service, the financial fields are always identical; only
// the identity and document number depend on the clock.
package billing

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/plicometria/agenda/services/agenda-service/internal/model"
)

// Derive computes a bill from an appointment and its service snapshot.
// svc may be nil, in which case the base is zero and no taxes apply.
// Tax percentages are copied verbatim; absent means zero. The total is
//
//	base + base*vat/100 - base*withholding/100 + base*other/100
//
// and is never recomputed after creation.
func Derive(appt model.Appointment, svc *model.Service, now time.Time) model.Bill {
	var base, vat, withholding, other float64
	description := appt.SessionType
	if description == "" {
		description = "Appointment"
	}
	if svc != nil {
		base = svc.Price
		vat = svc.VATPercent
		withholding = svc.WithholdingPercent
		other = svc.OtherPercent
		if svc.Name != "" {
			description = svc.Name
		}
	}

	total := base + base*vat/100 - base*withholding/100 + base*other/100

	return model.Bill{
		ID:                 uuid.NewString(),
		Number:             Number(now),
		IssueDate:          appt.Date,
		ClientName:         appt.PatientName,
		Description:        description,
		Base:               base,
		VATPercent:         vat,
		WithholdingPercent: withholding,
		OtherPercent:       other,
		Total:              total,
		Status:             model.BillPending,
		CreatedAt:          now.UTC(),
	}
}

// Number generates the human-facing document number from the creation
// timestamp: "F-" plus the last six characters of the base-36 millisecond
// clock, uppercased. Uniqueness comes from the bill's UUID identity; the
// number is presentation only.
func Number(now time.Time) string {
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	if len(ts) > 6 {
		ts = ts[len(ts)-6:]
	}
	return "F-" + ts
}
