package app

import (
	"context"

	"github.com/awmpietro/shunting-action-validator/internal/rules"
)

// ValidateService is what transports need from the application layer.
type ValidateService interface {
	Validate(ctx context.Context, req Request) (*rules.Report, error)
}
