// Package integration holds end-to-end tests that run against a real
// PostgreSQL instance provisioned through testcontainers.
package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	postgresImage    = "postgres:16-alpine"
	testDatabaseName = "agencydesk_test"
)

// TestDB is a disposable database: its own container, fully migrated, torn
// down when the test finishes.
type TestDB struct {
	DB        *gorm.DB
	sqlDB     *sql.DB
	container testcontainers.Container
	t         *testing.T
}

// NewTestDB starts a fresh PostgreSQL container, applies all migrations and
// registers teardown via t.Cleanup. Every caller gets a fully isolated
// database.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		postgresImage,
		tcpostgres.WithDatabase(testDatabaseName),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "starting PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "resolving container connection string")

	db, sqlDB := openGorm(t, dsn)
	applyMigrations(t, sqlDB)

	tdb := &TestDB{DB: db, sqlDB: sqlDB, container: container, t: t}
	t.Cleanup(tdb.teardown)
	return tdb
}

func (tdb *TestDB) teardown() {
	if tdb.sqlDB != nil {
		tdb.sqlDB.Close()
	}
	if tdb.container != nil {
		if err := tdb.container.Terminate(context.Background()); err != nil {
			tdb.t.Logf("terminating container: %v", err)
		}
	}
}

func openGorm(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	logMode := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		logMode = logger.Info
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	require.NoError(t, err, "connecting to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "unwrapping sql.DB")

	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, sqlDB
}

func applyMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	migrationsPath := migrationsDir()
	require.NotEmpty(t, migrationsPath, "locating migrations directory")

	driver, err := mpg.WithInstance(sqlDB, &mpg.Config{})
	require.NoError(t, err, "creating migration driver")

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	require.NoError(t, err, "creating migrator")

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err, "applying migrations")
	}
}

// migrationsDir walks up from this source file until it finds the repo's
// migrations directory.
func migrationsDir() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}

	dir := filepath.Dir(filename)
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "migrations")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	return ""
}

// CreateTestAgency creates an agency record for testing and returns nothing.
// Most tables carry a foreign key to agencies, so seed this first.
func (tdb *TestDB) CreateTestAgency(agencyID fmt.Stringer, timezone, dailyCutoff string) {
	tdb.t.Helper()

	code := fmt.Sprintf("AGY_%s", agencyID.String()[:8])
	name := fmt.Sprintf("Test Agency %s", agencyID.String()[:8])
	if timezone == "" {
		timezone = "UTC"
	}
	if dailyCutoff == "" {
		dailyCutoff = "17:00"
	}

	err := tdb.DB.Exec(`
		INSERT INTO agencies (id, code, name, status, timezone, daily_cutoff, due_soon_lead_days, version)
		VALUES (?, ?, ?, 'ACTIVE', ?, ?, 4, 1)
		ON CONFLICT (id) DO NOTHING
	`, agencyID.String(), code, name, timezone, dailyCutoff).Error
	require.NoError(tdb.t, err, "Failed to create test agency")
}

// CreateTestPlan creates an active payment plan under an agency.
func (tdb *TestDB) CreateTestPlan(agencyID, planID fmt.Stringer, totalAmount, expectedCommission string) {
	tdb.t.Helper()

	studentName := fmt.Sprintf("Student %s", planID.String()[:8])
	studentEmail := fmt.Sprintf("student-%s@example.com", planID.String()[:8])

	err := tdb.DB.Exec(`
		INSERT INTO payment_plans (id, agency_id, enrollment_id, student_name, student_email,
			total_amount, expected_commission, earned_commission, status, version)
		VALUES (?, ?, gen_random_uuid(), ?, ?, ?, ?, 0, 'ACTIVE', 1)
		ON CONFLICT (id) DO NOTHING
	`, planID.String(), agencyID.String(), studentName, studentEmail, totalAmount, expectedCommission).Error
	require.NoError(tdb.t, err, "Failed to create test payment plan")
}

// CreateTestInstallment creates an installment row in the given status.
func (tdb *TestDB) CreateTestInstallment(agencyID, planID, installmentID fmt.Stringer, sequence int, amountDue, dueDate, status string) {
	tdb.t.Helper()

	err := tdb.DB.Exec(`
		INSERT INTO installments (id, agency_id, plan_id, sequence, amount_due, due_date, status, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT (id) DO NOTHING
	`, installmentID.String(), agencyID.String(), planID.String(), sequence, amountDue, dueDate, status).Error
	require.NoError(tdb.t, err, "Failed to create test installment")
}
