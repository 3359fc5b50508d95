package ports

import (
	"context"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
)

type ProbeService interface {
	Probe(ctx context.Context, modelKey string) domain.ProbeResult
}
