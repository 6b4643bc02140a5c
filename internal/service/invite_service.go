package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"thinkpath/gatekeeper/internal/model"
	"thinkpath/gatekeeper/internal/repository"
	"thinkpath/gatekeeper/pkg/crypto"
)

const (
	MaxInvitesPerRequest = 100
	defaultInviteList    = 200
	// collisions on a 31^10 space are rare; a few retries cover them.
	inviteCreateAttempts = 3
)

var (
	ErrMailerNotConfigured = errors.New("invite email delivery is not configured")
	// ErrInviteDelivery is returned alongside the created code when mailing it failed.
	ErrInviteDelivery = errors.New("invite email delivery failed")
)

type InviteService interface {
	// CreateInviteCodes mints count single-use codes. When email is set exactly
	// one code is minted and delivered to that address.
	CreateInviteCodes(ctx context.Context, count int, email string) ([]model.InviteCode, error)
	ListInviteCodes(ctx context.Context, limit int) ([]model.InviteCode, error)
}

type inviteService struct {
	inviteRepo repository.InviteCodeRepository
	mailer     InviteMailer
	logger     *zap.Logger
	generate   func() (string, error)
}

func NewInviteService(inviteRepo repository.InviteCodeRepository, mailer InviteMailer, logger *zap.Logger) InviteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inviteService{
		inviteRepo: inviteRepo,
		mailer:     mailer,
		logger:     logger,
		generate:   crypto.GenerateInviteCode,
	}
}

func (s *inviteService) CreateInviteCodes(ctx context.Context, count int, email string) ([]model.InviteCode, error) {
	if count == 0 {
		count = 1
	}
	if count < 0 || count > MaxInvitesPerRequest {
		return nil, ErrInvalidInviteCount
	}
	if email != "" {
		if count != 1 {
			return nil, ErrInvalidInviteCount
		}
		if s.mailer == nil {
			return nil, ErrMailerNotConfigured
		}
	}

	codes := make([]model.InviteCode, 0, count)
	for i := 0; i < count; i++ {
		code, err := s.createOne(ctx)
		if err != nil {
			return codes, err
		}
		codes = append(codes, *code)
	}

	if email != "" {
		if err := s.mailer.SendInvite(ctx, email, codes[0].Code); err != nil {
			return codes, fmt.Errorf("%w: %w", ErrInviteDelivery, err)
		}
		s.logger.Info("invite code emailed", zap.String("invite_id", codes[0].ID.String()))
	}

	s.logger.Info("invite codes created", zap.Int("count", len(codes)))
	return codes, nil
}

func (s *inviteService) createOne(ctx context.Context) (*model.InviteCode, error) {
	var lastErr error
	for attempt := 0; attempt < inviteCreateAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, fmt.Errorf("generate invite code: %w", err)
		}
		invite := &model.InviteCode{Code: code}
		err = s.inviteRepo.Create(ctx, invite)
		if err == nil {
			return invite, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("create invite code: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("create invite code: %w", lastErr)
}

func (s *inviteService) ListInviteCodes(ctx context.Context, limit int) ([]model.InviteCode, error) {
	if limit <= 0 || limit > defaultInviteList {
		limit = defaultInviteList
	}
	codes, err := s.inviteRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list invite codes: %w", err)
	}
	return codes, nil
}

var _ InviteService = (*inviteService)(nil)
