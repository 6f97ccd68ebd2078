package service

import (
	"context"
	"encoding/json"

	"kernel-workspace-be/internal/pkg/logger"
	"kernel-workspace-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IAuditService interface {
	Consume(ctx context.Context) error
}

// auditService copies every kernel event into the audit log.
type auditService struct {
	subscriber message.Subscriber
	topicName  string
	audit      logger.ILogger
	logger     logger.ILogger
}

func NewAuditService(subscriber message.Subscriber, topicName string, audit logger.ILogger, log logger.ILogger) IAuditService {
	if topicName == "" {
		topicName = events.AuditTopic
	}
	return &auditService{
		subscriber: subscriber,
		topicName:  topicName,
		audit:      audit,
		logger:     log,
	}
}

// Consume subscribes and processes events in the background until ctx ends.
func (as *auditService) Consume(ctx context.Context) error {
	messages, err := as.subscriber.Subscribe(ctx, as.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			as.processMessage(msg)
		}
	}()

	return nil
}

func (as *auditService) processMessage(msg *message.Message) {
	var env events.Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		as.logger.Error("Audit", "Failed to unmarshal event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		// Malformed events would never succeed on redelivery.
		msg.Ack()
		return
	}

	details := make(map[string]interface{}, len(env.Data)+2)
	for k, v := range env.Data {
		details[k] = v
	}
	details["event_id"] = msg.UUID
	details["occurred_at"] = env.OccurredAt

	as.audit.Info("Audit", env.Type, details)
	msg.Ack()
}
