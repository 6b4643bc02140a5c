package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)
	return db, mock
}

var userColumns = []string{"id", "subject", "email", "email_verified", "onboarding_completed", "created_at", "updated_at"}

func TestGormUserRepository_GetBySubject(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormUserRepository(db)

	id := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE subject = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(id.String(), "user_1", "ada@uw.edu", true, false, now, now))

	user, err := repo.GetBySubject(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "user_1", user.Subject)
	require.NotNil(t, user.Email)
	assert.Equal(t, "ada@uw.edu", *user.Email)
	assert.True(t, user.EmailVerified)
	assert.True(t, user.NeedsOnboarding())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_GetBySubject_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE subject = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.GetBySubject(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_CompleteOnboarding(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormUserRepository(db)

	mock.ExpectExec(`UPDATE "users" SET "onboarding_completed"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CompleteOnboarding(context.Background(), uuid.New()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInviteCodeRepository_GetByCodeForUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormInviteCodeRepository(db)

	id := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "invite_codes" WHERE code = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "used", "used_by_user_id", "used_at", "created_at"}).
			AddRow(id.String(), "WELCOME1", false, nil, nil, time.Now()))

	code, err := repo.GetByCodeForUpdate(context.Background(), "WELCOME1")
	require.NoError(t, err)
	assert.Equal(t, id, code.ID)
	assert.False(t, code.Used)
	assert.Nil(t, code.UsedByUserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInviteCodeRepository_MarkUsed(t *testing.T) {
	t.Run("first redemption wins", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormInviteCodeRepository(db)

		mock.ExpectExec(`UPDATE "invite_codes" SET .* WHERE id = \$\d+ AND used = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.MarkUsed(context.Background(), uuid.New(), uuid.New(), time.Now())
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already used is a conflict", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormInviteCodeRepository(db)

		mock.ExpectExec(`UPDATE "invite_codes" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.MarkUsed(context.Background(), uuid.New(), uuid.New(), time.Now())
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStore_TransactionRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "invite_codes" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.Transaction(context.Background(), func(tx Store) error {
		return tx.InviteCodes().MarkUsed(context.Background(), uuid.New(), uuid.New(), time.Now())
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_TransactionCommits(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "invite_codes" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Transaction(context.Background(), func(tx Store) error {
		return tx.InviteCodes().MarkUsed(context.Background(), uuid.New(), uuid.New(), time.Now())
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey), ErrDuplicate)
	assert.ErrorIs(t, translate(assert.AnError), assert.AnError)
}
