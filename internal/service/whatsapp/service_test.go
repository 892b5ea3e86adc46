package whatsapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
)

type fakeSender struct {
	to   string
	body string
	err  error
}

func (f *fakeSender) SendText(ctx context.Context, to, body string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		return "", errors.New("missing deadline")
	}
	f.to, f.body = to, body
	return "wamid.1", f.err
}

func TestSendOutbound(t *testing.T) {
	sender := &fakeSender{}
	svc := NewMetaWhatsAppService(sender, zap.NewNop())

	err := svc.SendOutbound(context.Background(), models.OutboundMessageRequest{To: " 919800000000 ", Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "919800000000", sender.to)
	assert.Equal(t, "hello", sender.body)

	assert.ErrorIs(t, svc.SendOutbound(context.Background(), models.OutboundMessageRequest{Message: "hello"}), ErrMissingRecipient)
	assert.ErrorIs(t, svc.SendOutbound(context.Background(), models.OutboundMessageRequest{To: "1", Message: "  "}), ErrEmptyMessage)
}

func TestSendOutboundWrapsTransportError(t *testing.T) {
	boom := errors.New("rate limited")
	svc := NewMetaWhatsAppService(&fakeSender{err: boom}, nil)

	err := svc.SendOutbound(context.Background(), models.OutboundMessageRequest{To: "1", Message: "hi"})
	assert.ErrorIs(t, err, boom)
}

func TestDuesNotifier(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewDuesNotifier(NewMetaWhatsAppService(sender, nil), "919800000000")

	snap := models.ReconciliationSnapshot{
		TakenAt: time.Date(2024, 3, 5, 20, 0, 0, 0, time.UTC),
		Dashboard: models.Dashboard{
			FarmerDues:   decimal.NewFromInt(7200),
			CustomerDues: decimal.NewFromInt(2100),
		},
		CustomerDues: []models.CustomerDue{
			{CustomerName: "Sri Traders", BalanceDue: decimal.NewFromInt(2100)},
		},
	}
	require.NoError(t, notifier.Notify(context.Background(), snap))
	assert.Equal(t, "919800000000", sender.to)
	assert.Contains(t, sender.body, "Payable to farmers: 7200.00")
	assert.Contains(t, sender.body, "Sri Traders: 2100.00")
}
