package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/jaggery/internal/config"
)

func TestSendText(t *testing.T) {
	var got textMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v20.0/123/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{BaseURL: srv.URL + "/", APIVersion: "v20.0", AccessToken: "secret", PhoneNumberID: "123"})
	id, err := c.SendText(context.Background(), "919800000000", "hello")
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", id)
	assert.Equal(t, "whatsapp", got.MessagingProduct)
	assert.Equal(t, "hello", got.Text.Body)
}

func TestSendTextAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":131030,"type":"OAuthException","message":"recipient not allowed"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{BaseURL: srv.URL, APIVersion: "v20.0", AccessToken: "secret", PhoneNumberID: "123"})
	_, err := c.SendText(context.Background(), "1", "hi")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, 131030, apiErr.Code)
	assert.Equal(t, "recipient not allowed", apiErr.Message)
}
