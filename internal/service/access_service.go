package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"thinkpath/gatekeeper/internal/model"
	"thinkpath/gatekeeper/internal/repository"
	jwtpkg "thinkpath/gatekeeper/pkg/jwt"
)

type SignupStatus string

const (
	SignupCreated       SignupStatus = "created"
	SignupAlreadyExists SignupStatus = "already_exists"
)

// AccessService resolves verified identities to local accounts and decides admission.
type AccessService interface {
	// Me returns the caller's account, auto-provisioning it for allow-listed
	// verified email domains. ErrNotAuthorized when there is no way in.
	Me(ctx context.Context, claims *jwtpkg.Claims) (*model.User, error)
	// RedeemInvite creates the caller's account by consuming an invite code.
	// Idempotent for callers who already have an account.
	RedeemInvite(ctx context.Context, claims *jwtpkg.Claims, code string) (*model.User, SignupStatus, error)
	CompleteOnboarding(ctx context.Context, subject string) (*model.User, error)
}

type accessService struct {
	store     repository.Store
	allowList *DomainAllowList
	limiter   InviteAttemptLimiter
	logger    *zap.Logger
	now       func() time.Time
}

func NewAccessService(
	store repository.Store,
	allowList *DomainAllowList,
	limiter InviteAttemptLimiter,
	logger *zap.Logger,
) AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &accessService{
		store:     store,
		allowList: allowList,
		limiter:   limiter,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *accessService) Me(ctx context.Context, claims *jwtpkg.Claims) (*model.User, error) {
	user, err := s.store.Users().GetBySubject(ctx, claims.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	// Domain allow-list is the only path in that does not need an invite.
	email, ok := claims.VerifiedEmail()
	if !ok || !s.allowList.Allows(email) {
		return nil, ErrNotAuthorized
	}

	user = &model.User{
		Subject:       claims.Subject,
		Email:         &email,
		EmailVerified: true,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// A concurrent first request for the same subject won.
			existing, gerr := s.store.Users().GetBySubject(ctx, claims.Subject)
			if gerr != nil {
				return nil, fmt.Errorf("reload user after duplicate provision: %w", gerr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("provision user: %w", err)
	}

	s.logger.Info("user auto-provisioned by email domain",
		zap.String("subject", user.Subject),
		zap.String("user_id", user.ID.String()),
	)
	return user, nil
}

func (s *accessService) RedeemInvite(ctx context.Context, claims *jwtpkg.Claims, code string) (*model.User, SignupStatus, error) {
	existing, err := s.store.Users().GetBySubject(ctx, claims.Subject)
	if err == nil {
		return existing, SignupAlreadyExists, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", fmt.Errorf("find user: %w", err)
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, "", ErrInviteInvalid
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, claims.Subject) {
		return nil, "", ErrTooManyInviteAttempts
	}

	var created *model.User
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		invite, err := tx.InviteCodes().GetByCodeForUpdate(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInviteInvalid
		}
		if err != nil {
			return fmt.Errorf("load invite code: %w", err)
		}
		if invite.Used {
			return ErrInviteInvalid
		}

		user := newUserFromClaims(claims)
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		if err := tx.InviteCodes().MarkUsed(ctx, invite.ID, user.ID, s.now()); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrInviteInvalid
			}
			return fmt.Errorf("mark invite used: %w", err)
		}
		created = user
		return nil
	})

	switch {
	case err == nil:
		s.logger.Info("invite redeemed",
			zap.String("subject", created.Subject),
			zap.String("user_id", created.ID.String()),
		)
		return created, SignupCreated, nil
	case errors.Is(err, ErrInviteInvalid):
		return nil, "", ErrInviteInvalid
	case errors.Is(err, repository.ErrDuplicate):
		// Same subject signed up concurrently with another code; that one won
		// and this transaction, invite included, was rolled back.
		existing, gerr := s.store.Users().GetBySubject(ctx, claims.Subject)
		if gerr != nil {
			return nil, "", fmt.Errorf("reload user after duplicate signup: %w", gerr)
		}
		return existing, SignupAlreadyExists, nil
	default:
		return nil, "", fmt.Errorf("redeem invite: %w", err)
	}
}

func (s *accessService) CompleteOnboarding(ctx context.Context, subject string) (*model.User, error) {
	user, err := s.store.Users().GetBySubject(ctx, subject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotAuthorized
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.OnboardingCompleted {
		return user, nil
	}

	if err := s.store.Users().CompleteOnboarding(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("complete onboarding: %w", err)
	}
	user.OnboardingCompleted = true

	s.logger.Info("onboarding completed",
		zap.String("subject", user.Subject),
		zap.String("user_id", user.ID.String()),
	)
	return user, nil
}

// newUserFromClaims copies email fields as asserted at signup; they are not
// reconciled on later logins.
func newUserFromClaims(claims *jwtpkg.Claims) *model.User {
	user := &model.User{Subject: claims.Subject}
	if claims.Email != nil {
		if email := strings.TrimSpace(*claims.Email); email != "" {
			user.Email = &email
		}
	}
	if claims.EmailVerified != nil {
		user.EmailVerified = *claims.EmailVerified
	}
	return user
}

var _ AccessService = (*accessService)(nil)
