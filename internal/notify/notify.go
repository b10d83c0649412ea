// Package notify hands notifications to an external delivery channel without letting slow or
// failing delivery hold up state changes.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Template names the message a candidate receives.
type Template string

// Templates used by the engine
const (
	TemplateJobOpening      Template = "job_opening"
	TemplateResultPublished Template = "result_published"
	TemplateResultUpdated   Template = "result_updated"
	// TemplateResultRetracted tells the candidate to disregard an earlier result.
	TemplateResultRetracted Template = "result_retracted"
)

// Contact is where a notification goes.
type Contact struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Name        string    `json:"name,omitempty"`
	Email       string    `json:"email"`
}

// Payload carries template variables.
type Payload map[string]any

// Message is one notification to deliver.
type Message struct {
	Contact  Contact
	Template Template
	Payload  Payload
}

// Notifier delivers a single notification.
type Notifier interface {
	Notify(ctx context.Context, contact Contact, template Template, payload Payload) error
}

// LogNotifier writes notifications to a zap logger instead of delivering them.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger discards everything.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, contact Contact, template Template, payload Payload) error {
	n.logger.Info("notification",
		zap.String("template", string(template)),
		zap.String("candidate_id", contact.CandidateID.String()),
		zap.String("email", contact.Email),
		zap.Any("payload", payload))
	return nil
}

// OutboxWriter persists a notification for a separate delivery process.
type OutboxWriter interface {
	EnqueueNotification(ctx context.Context, candidateID uuid.UUID, contact string, template string, payload []byte) error
}

// OutboxNotifier stores notifications in an outbox table read by the mailer.
type OutboxNotifier struct {
	outbox OutboxWriter
}

// NewOutboxNotifier creates an OutboxNotifier.
func NewOutboxNotifier(outbox OutboxWriter) *OutboxNotifier {
	return &OutboxNotifier{outbox: outbox}
}

// Notify implements Notifier.
func (n *OutboxNotifier) Notify(ctx context.Context, contact Contact, template Template, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}
	if err := n.outbox.EnqueueNotification(ctx, contact.CandidateID, contact.Email, string(template), body); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}
