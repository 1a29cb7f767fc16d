// Package integration exercises the procurement and ledger flows end to
// end against a real PostgreSQL instance started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB is a migrated PostgreSQL database running in its own container.
// Each test gets a fresh one, so tests never see each other's rows.
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// NewTestDB starts a PostgreSQL container, applies every migration and
// returns a connection to it. The container is terminated on cleanup.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("clinicware_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "read container connection string")

	tdb := &TestDB{Container: container, DSN: dsn, t: t}
	tdb.connect()
	tdb.migrate()

	t.Cleanup(tdb.Close)
	return tdb
}

// Close drops the connection and terminates the container
func (tdb *TestDB) Close() {
	if tdb.SqlDB != nil {
		tdb.SqlDB.Close()
	}
	if tdb.Container != nil {
		if err := tdb.Container.Terminate(context.Background()); err != nil {
			tdb.t.Logf("terminate container: %v", err)
		}
	}
}

func (tdb *TestDB) connect() {
	tdb.t.Helper()

	gormLog := logger.Default.LogMode(logger.Silent)
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormLog = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(gormpostgres.Open(tdb.DSN), &gorm.Config{Logger: gormLog})
	require.NoError(tdb.t, err, "connect to test database")

	sqlDB, err := db.DB()
	require.NoError(tdb.t, err, "access connection pool")
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	tdb.DB = db
	tdb.SqlDB = sqlDB
}

func (tdb *TestDB) migrate() {
	tdb.t.Helper()

	dir := migrationsDir()
	require.NotEmpty(tdb.t, dir, "locate migrations directory")

	driver, err := mpg.WithInstance(tdb.SqlDB, &mpg.Config{})
	require.NoError(tdb.t, err, "create migration driver")

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	require.NoError(tdb.t, err, "create migrate instance")

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		require.NoError(tdb.t, err, "apply migrations")
	}
}

// migrationsDir walks up from this file until it finds the migrations
// directory at the repository root
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

// CreateTestSupplier inserts a supplier row and returns its ID
func (tdb *TestDB) CreateTestSupplier(tenantID uuid.UUID, name string) uuid.UUID {
	tdb.t.Helper()

	supplierID := uuid.New()
	err := tdb.DB.Exec(`
		INSERT INTO suppliers (id, tenant_id, name, created_at, updated_at, version)
		VALUES (?, ?, ?, now(), now(), 1)
	`, supplierID, tenantID, name).Error
	require.NoError(tdb.t, err, "seed supplier")
	return supplierID
}

// CreateTestProduct inserts a product row with the given on-hand quantity
// and returns its ID
func (tdb *TestDB) CreateTestProduct(tenantID uuid.UUID, name string, quantity decimal.Decimal) uuid.UUID {
	tdb.t.Helper()

	productID := uuid.New()
	err := tdb.DB.Exec(`
		INSERT INTO products (id, tenant_id, name, quantity, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, now(), now(), 1)
	`, productID, tenantID, name, quantity).Error
	require.NoError(tdb.t, err, "seed product")
	return productID
}
