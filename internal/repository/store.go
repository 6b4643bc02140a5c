package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that must be able to share a transaction.
type Store interface {
	Users() UserRepository
	InviteCodes() InviteCodeRepository
	// Transaction runs fn against a Store bound to one database transaction.
	// It commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db      *gorm.DB
	users   UserRepository
	invites InviteCodeRepository
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{
		db:      db,
		users:   NewGormUserRepository(db),
		invites: NewGormInviteCodeRepository(db),
	}
}

func (s *gormStore) Users() UserRepository              { return s.users }
func (s *gormStore) InviteCodes() InviteCodeRepository { return s.invites }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStore(tx))
	})
}
