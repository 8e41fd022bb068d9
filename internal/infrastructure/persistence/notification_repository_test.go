package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/agencydesk/backend/internal/domain/notification"
	"github.com/agencydesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGormNotificationRepository_Create(t *testing.T) {
	t.Run("inserts a new record", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormNotificationRepository(db)

		record, err := notification.NewRecord(uuid.New(), uuid.New(), "student@example.com", "Student", notification.KindDueSoon)
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO "notifications"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Create(context.Background(), record))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("translates a duplicate key error to ErrAlreadyExists", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormNotificationRepository(db)

		record, err := notification.NewRecord(uuid.New(), uuid.New(), "student@example.com", "Student", notification.KindOverdue)
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO "notifications"`).
			WillReturnError(gorm.ErrDuplicatedKey)

		assert.Equal(t, shared.ErrAlreadyExists, repo.Create(context.Background(), record))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormNotificationRepository_Exists(t *testing.T) {
	t.Run("reports an existing record", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormNotificationRepository(db)

		agencyID := uuid.New()
		installmentID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "notifications" WHERE agency_id = \$1 AND installment_id = \$2 AND kind = \$3`).
			WithArgs(agencyID, installmentID, string(notification.KindDueSoon)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		exists, err := repo.Exists(context.Background(), agencyID, installmentID, notification.KindDueSoon)

		assert.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a missing record", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormNotificationRepository(db)

		agencyID := uuid.New()
		installmentID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "notifications" WHERE agency_id = \$1 AND installment_id = \$2 AND kind = \$3`).
			WithArgs(agencyID, installmentID, string(notification.KindOverdue)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		exists, err := repo.Exists(context.Background(), agencyID, installmentID, notification.KindOverdue)

		assert.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
