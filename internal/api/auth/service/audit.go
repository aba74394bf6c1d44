package authService

import (
	"time"

	"FaceAuthIdP/internal/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// audit appends one structured event line. Events are write-only from the
// core's point of view.
func (s *authService) audit(event entity.AuditEvent) {
	event.Timestamp = time.Now().UTC()

	payload, err := jsoniter.Marshal(event)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": event.RequestID,
			"event":      event.Event,
			"error":      err.Error(),
		}).Warn("Failed to serialize audit event")
		return
	}

	s.log.WithFields(logrus.Fields{
		"request_id": event.RequestID,
		"audit":      true,
	}).Info(string(payload))
}
