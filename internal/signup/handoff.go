package signup

import (
	"context"

	"github.com/gabrielmiguelok/livesignup/pkg/audit"
	"github.com/gabrielmiguelok/livesignup/pkg/logging"
)

// Handoff receives every accepted Input. It is the boundary a real backend
// would sit behind.
type Handoff interface {
	Accept(ctx context.Context, in Input) error
}

// HandoffFunc adapts a function to Handoff.
type HandoffFunc func(ctx context.Context, in Input) error

func (f HandoffFunc) Accept(ctx context.Context, in Input) error {
	return f(ctx, in)
}

// Details returns the input as audit details. Secrets are included;
// callers pass the map through audit.Redact before it leaves the process.
func (in Input) Details() map[string]any {
	return map[string]any{
		FieldName:     in.Name,
		FieldEmail:    in.Email,
		FieldPhone:    in.Phone,
		FieldRole:     in.Role,
		FieldPassword: in.Password,
		FieldConfirm:  in.Confirm,
	}
}

// LogHandoff logs accepted input without its secrets.
type LogHandoff struct {
	Logger logging.Logger
}

// Accept implements Handoff.
func (h LogHandoff) Accept(ctx context.Context, in Input) error {
	logger := h.Logger
	if logger == nil {
		logger = logging.L(ctx)
	}
	logger.WithContext(ctx).Info("signup accepted",
		logging.Any("input", audit.Redact(in.Details())),
	)
	return nil
}
