package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/plicometria/agenda/services/agenda-service/internal/cache"
	"github.com/plicometria/agenda/services/agenda-service/internal/model"
	"github.com/segmentio/kafka-go"
)

// InvalidationHandler folds appointment events from other instances into the
// local cache. Events carry the full record, so no read-back is needed; a
// cold cache ignores them and hydrates on the next load instead.
func InvalidationHandler(rec *cache.Reconciler, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var appt model.Appointment
		if err := json.Unmarshal(msg.Value, &appt); err != nil {
			logger.Warn("undecodable appointment event dropped", "topic", msg.Topic, "err", err)
			return nil
		}
		if appt.ID == "" {
			logger.Warn("appointment event without id dropped", "topic", msg.Topic)
			return nil
		}
		rec.Apply(appt)
		return nil
	}
}
