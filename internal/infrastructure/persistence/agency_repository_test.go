package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/agencydesk/backend/internal/domain/identity"
	"github.com/agencydesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDB creates a GORM connection backed by sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func agencyRows(id uuid.UUID, code string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "name", "status", "contact_email", "timezone", "daily_cutoff", "due_soon_lead_days"}).
		AddRow(id, code, "Brisbane Study Placements", "ACTIVE", "ops@bsp.example", "Australia/Brisbane", "17:00", 4)
}

func TestGormAgencyRepository_FindByID(t *testing.T) {
	t.Run("finds existing agency", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAgencyRepository(db)

		agencyID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "agencies" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(agencyID, 1).
			WillReturnRows(agencyRows(agencyID, "bne"))

		agency, err := repo.FindByID(context.Background(), agencyID)

		assert.NoError(t, err)
		require.NotNil(t, agency)
		assert.Equal(t, agencyID, agency.ID)
		assert.Equal(t, "bne", agency.Code)
		assert.Equal(t, "Australia/Brisbane", agency.Settings.Timezone)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing agency", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAgencyRepository(db)

		agencyID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "agencies" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(agencyID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		agency, err := repo.FindByID(context.Background(), agencyID)

		assert.Nil(t, agency)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAgencyRepository_FindByCode(t *testing.T) {
	t.Run("lowercases the code before querying", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAgencyRepository(db)

		agencyID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "agencies" WHERE code = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("bne", 1).
			WillReturnRows(agencyRows(agencyID, "bne"))

		agency, err := repo.FindByCode(context.Background(), "BNE")

		assert.NoError(t, err)
		require.NotNil(t, agency)
		assert.Equal(t, "bne", agency.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAgencyRepository_FindActive(t *testing.T) {
	t.Run("filters on active status ordered by code", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAgencyRepository(db)

		rows := agencyRows(uuid.New(), "bne").
			AddRow(uuid.New(), "lon", "London Study Placements", "ACTIVE", "ops@lsp.example", "Europe/London", "17:00", 4)

		mock.ExpectQuery(`SELECT \* FROM "agencies" WHERE status = \$1 ORDER BY code ASC`).
			WithArgs(string(identity.AgencyStatusActive)).
			WillReturnRows(rows)

		agencies, err := repo.FindActive(context.Background())

		assert.NoError(t, err)
		require.Len(t, agencies, 2)
		assert.Equal(t, "bne", agencies[0].Code)
		assert.Equal(t, "lon", agencies[1].Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns empty slice when no agencies are active", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAgencyRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "agencies" WHERE status = \$1 ORDER BY code ASC`).
			WithArgs(string(identity.AgencyStatusActive)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "code"}))

		agencies, err := repo.FindActive(context.Background())

		assert.NoError(t, err)
		assert.Empty(t, agencies)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
