// Package events publishes domain events to NATS. Everything here is
// best-effort: consumers (notification workers, audit sinks) live
// outside this backend.
package events

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/ShailySarker/digital-wallet-backend/internal/models"
)

const (
	SubjectTransactionCompleted = "transactions.completed"
	SubjectEmailNotification    = "notifications.email"
)

// EmailMessage is handed to the notification worker that owns SMTP.
type EmailMessage struct {
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data"`
}

type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

func (p *NatsPublisher) PublishTransaction(_ context.Context, event models.TransactionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.nc.Publish(SubjectTransactionCompleted, data)
}

func (p *NatsPublisher) SendEmail(_ context.Context, msg EmailMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.nc.Publish(SubjectEmailNotification, data)
}
