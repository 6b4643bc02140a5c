package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"thinkpath/gatekeeper/internal/model"
)

type InviteCodeRepository interface {
	Create(ctx context.Context, code *model.InviteCode) error
	GetByCode(ctx context.Context, code string) (*model.InviteCode, error)
	// GetByCodeForUpdate locks the row until the surrounding transaction ends.
	GetByCodeForUpdate(ctx context.Context, code string) (*model.InviteCode, error)
	// MarkUsed returns ErrConflict when the code was already consumed.
	MarkUsed(ctx context.Context, id uuid.UUID, userID uuid.UUID, at time.Time) error
	List(ctx context.Context, limit int) ([]model.InviteCode, error)
}
