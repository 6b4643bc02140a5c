package repository

import (
	"context"

	"github.com/google/uuid"

	"thinkpath/gatekeeper/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetBySubject(ctx context.Context, subject string) (*model.User, error)
	CompleteOnboarding(ctx context.Context, id uuid.UUID) error
}
