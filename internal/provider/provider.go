package provider

import (
	"context"

	"github.com/wneessen/go-mail"
)

// Deliverer is the outbound delivery port. Recipients rejected upstream
// never reach it; it persists nothing and reports one outcome per send.
type Deliverer interface {
	Send(ctx context.Context, msg *mail.Msg) (*Response, error)
}

// Response stores the transport acknowledgment for audit and the ledger.
type Response struct {
	MessageID string
}
