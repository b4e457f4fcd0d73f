package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (one event type per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Event types published by the scheduling core.
const (
	EventAppointmentCreated = "agenda.appointment.created.v1"
	EventAppointmentUpdated = "agenda.appointment.updated.v1"
	EventBillIssued         = "agenda.bill.issued.v1"
)
