package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"thinkpath/gatekeeper/internal/model"
	"thinkpath/gatekeeper/internal/repository"
)

// memStore is a Store whose transactions are serialised by a single lock and
// undone on error, which is the guarantee row locking gives invite redemption.
// Writes made outside a transaction survive a rollback, like a concurrent commit.
type memStore struct {
	txMu sync.Mutex

	mu      sync.Mutex
	users   map[string]model.User       // by subject
	invites map[string]model.InviteCode // by code

	// hooks for fault injection
	beforeCreateUser func(subject string)
	markUsedErr      error
	getErr           error
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[string]model.User),
		invites: make(map[string]model.InviteCode),
	}
}

func (s *memStore) Users() repository.UserRepository             { return memUsers{s: s} }
func (s *memStore) InviteCodes() repository.InviteCodeRepository { return memInvites{s: s} }

func (s *memStore) Transaction(_ context.Context, fn func(tx repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// memTx records how to revert each write; undo funcs run with mu held.
type memTx struct {
	s    *memStore
	undo []func()
}

func (tx *memTx) Users() repository.UserRepository { return memUsers{s: tx.s, tx: tx} }
func (tx *memTx) InviteCodes() repository.InviteCodeRepository {
	return memInvites{s: tx.s, tx: tx}
}

func (tx *memTx) Transaction(_ context.Context, fn func(tx repository.Store) error) error {
	return fn(tx)
}

func (tx *memTx) record(fn func()) {
	if tx != nil {
		tx.undo = append(tx.undo, fn)
	}
}

func (s *memStore) addInvite(code string) model.InviteCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := model.InviteCode{ID: uuid.New(), Code: code, CreatedAt: time.Now()}
	s.invites[code] = inv
	return inv
}

func (s *memStore) invite(code string) model.InviteCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invites[code]
}

func (s *memStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *memStore) usedInvites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, inv := range s.invites {
		if inv.Used {
			n++
		}
	}
	return n
}

type memUsers struct {
	s  *memStore
	tx *memTx
}

func (r memUsers) Create(_ context.Context, user *model.User) error {
	if r.s.beforeCreateUser != nil {
		r.s.beforeCreateUser(user.Subject)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.Subject]; ok {
		return repository.ErrDuplicate
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.Subject] = *user
	subject := user.Subject
	r.tx.record(func() { delete(r.s.users, subject) })
	return nil
}

func (r memUsers) GetBySubject(_ context.Context, subject string) (*model.User, error) {
	if r.s.getErr != nil {
		return nil, r.s.getErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[subject]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) CompleteOnboarding(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, u := range r.s.users {
		if u.ID == id {
			prev := u
			r.tx.record(func() { r.s.users[k] = prev })
			u.OnboardingCompleted = true
			r.s.users[k] = u
			return nil
		}
	}
	return nil
}

type memInvites struct {
	s  *memStore
	tx *memTx
}

func (r memInvites) Create(_ context.Context, code *model.InviteCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.invites[code.Code]; ok {
		return repository.ErrDuplicate
	}
	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}
	code.CreatedAt = time.Now()
	r.s.invites[code.Code] = *code
	key := code.Code
	r.tx.record(func() { delete(r.s.invites, key) })
	return nil
}

func (r memInvites) GetByCode(_ context.Context, code string) (*model.InviteCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invites[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &inv, nil
}

func (r memInvites) GetByCodeForUpdate(ctx context.Context, code string) (*model.InviteCode, error) {
	return r.GetByCode(ctx, code)
}

func (r memInvites) MarkUsed(_ context.Context, id uuid.UUID, userID uuid.UUID, at time.Time) error {
	if r.s.markUsedErr != nil {
		return r.s.markUsedErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, inv := range r.s.invites {
		if inv.ID != id {
			continue
		}
		if inv.Used {
			return repository.ErrConflict
		}
		prev := inv
		r.tx.record(func() { r.s.invites[k] = prev })
		inv.Used = true
		inv.UsedByUserID = &userID
		inv.UsedAt = &at
		r.s.invites[k] = inv
		return nil
	}
	return repository.ErrConflict
}

func (r memInvites) List(_ context.Context, limit int) ([]model.InviteCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.InviteCode, 0, len(r.s.invites))
	for _, inv := range r.s.invites {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var errBoom = errors.New("boom")
