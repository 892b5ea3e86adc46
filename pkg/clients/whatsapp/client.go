// Package whatsapp is a minimal Meta WhatsApp Cloud API client that sends
// plain text messages.
package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/jaggery/internal/config"
)

// Sender sends a text message and returns the provider message id.
type Sender interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// Client is a resty-backed Sender.
type Client struct {
	http          *resty.Client
	phoneNumberID string
}

var _ Sender = (*Client)(nil)

// NewClient builds a client from the WhatsApp configuration.
func NewClient(cfg config.WhatsAppConfig) *Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	rc := resty.New().
		SetBaseURL(fmt.Sprintf("%s/%s", base, cfg.APIVersion)).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{http: rc, phoneNumberID: cfg.PhoneNumberID}
}

type textBody struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type sendResult struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// APIError is an error reported by the Cloud API.
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	TraceID string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d code=%d: %s", e.Status, e.Code, e.Message)
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

// SendText sends body to the recipient phone number.
func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	result := new(sendResult)
	envelope := new(errorEnvelope)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(textMessage{
			MessagingProduct: "whatsapp",
			To:               to,
			Type:             "text",
			Text:             textBody{Body: body},
		}).
		SetResult(result).
		SetError(envelope).
		Post(fmt.Sprintf("%s/messages", c.phoneNumberID))
	if err != nil {
		return "", fmt.Errorf("send whatsapp message: %w", err)
	}

	if resp.IsError() {
		apiErr := envelope.Error
		apiErr.Status = resp.StatusCode()
		return "", &apiErr
	}

	if len(result.Messages) == 0 {
		return "", nil
	}
	return result.Messages[0].ID, nil
}
