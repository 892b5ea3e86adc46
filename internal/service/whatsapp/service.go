// Package whatsapp pushes operator notifications over the WhatsApp Cloud API.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/service/reporting"
)

var (
	// ErrMissingRecipient is returned when an outbound message has no recipient.
	ErrMissingRecipient = errors.New("recipient is required")
	// ErrEmptyMessage is returned when an outbound message has no text.
	ErrEmptyMessage = errors.New("message is required")
)

// MessagingService sends operator notifications.
type MessagingService interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Sender is the transport used to deliver text messages.
type Sender interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	client  Sender
	timeout time.Duration
	logger  *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(client Sender, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		client:  client,
		timeout: 10 * time.Second,
		logger:  logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// SendOutbound pushes one text message.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	to := strings.TrimSpace(req.To)
	if to == "" {
		return ErrMissingRecipient
	}
	if strings.TrimSpace(req.Message) == "" {
		return ErrEmptyMessage
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id, err := s.client.SendText(ctxWithTimeout, to, req.Message)
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	s.logger.Info("whatsapp message sent", zap.String("to", to), zap.String("message_id", id))
	return nil
}

// DuesNotifier sends the reconciliation summary to one operator.
type DuesNotifier struct {
	svc       MessagingService
	recipient string
	top       int
}

// NewDuesNotifier returns a notifier listing the top five dues on each side.
func NewDuesNotifier(svc MessagingService, recipient string) *DuesNotifier {
	return &DuesNotifier{svc: svc, recipient: recipient, top: 5}
}

// Notify sends the summary of snap.
func (n *DuesNotifier) Notify(ctx context.Context, snap models.ReconciliationSnapshot) error {
	return n.svc.SendOutbound(ctx, models.OutboundMessageRequest{
		To:      n.recipient,
		Message: reporting.Summary(snap, n.top),
	})
}
