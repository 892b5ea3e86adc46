package models

// OutboundMessageRequest represents a WhatsApp text pushed to an operator.
type OutboundMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}
