package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/userhub/apiserver/internal/mq"
	"github.com/userhub/apiserver/types"
)

// ErrEventsDisabled is returned by Tail when no message queue is configured.
var ErrEventsDisabled = errors.New("account events are disabled")

// AccountEvents publishes user lifecycle events. A nil queue disables
// publishing; delivery failures are logged and never reach the caller.
type AccountEvents struct {
	queue  *mq.MQ
	topic  string
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewAccountEvents(queue *mq.MQ, topic string, logger logrus.FieldLogger) *AccountEvents {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AccountEvents{
		queue:  queue,
		topic:  topic,
		logger: logger,
		now:    time.Now,
	}
}

// Publish emits an event of the given type about user.
func (e *AccountEvents) Publish(ctx context.Context, eventType types.AccountEventType, user types.User, actorID int) {
	if e == nil || e.queue == nil {
		return
	}

	event := types.AccountEvent{
		Type:       eventType,
		UserID:     user.ID,
		Username:   user.Username,
		ActorID:    actorID,
		OccurredAt: e.now().UTC(),
	}
	log := e.logger.WithFields(logrus.Fields{
		"event":   eventType,
		"user_id": user.ID,
	})

	data, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("failed to encode account event")
		return
	}

	attrs := map[string]string{
		"type":    string(eventType),
		"user_id": strconv.Itoa(user.ID),
	}
	id, err := e.queue.Publish(ctx, e.topic, data, attrs)
	if err != nil {
		log.WithError(err).Warn("failed to publish account event")
		return
	}
	log.WithField("message_id", id).Debug("account event published")
}

// Tail subscribes to the event topic and calls fn for every decoded event.
func (e *AccountEvents) Tail(ctx context.Context, fn func(types.AccountEvent) error) error {
	if e == nil || e.queue == nil {
		return ErrEventsDisabled
	}
	return e.queue.Subscribe(ctx, e.topic, func(ctx context.Context, msg mq.Message) error {
		var event types.AccountEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			e.logger.WithError(err).WithField("message_id", msg.ID).Warn("dropping malformed account event")
			return nil
		}
		return fn(event)
	})
}
