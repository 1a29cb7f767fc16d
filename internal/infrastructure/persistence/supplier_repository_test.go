package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/clinicware/backend/internal/domain/procurement"
	"github.com/clinicware/backend/internal/domain/shared"
)

// newMockDB creates a gorm DB backed by sqlmock
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

func newMockSupplierRepository(t *testing.T) (*GormSupplierRepository, sqlmock.Sqlmock, *sql.DB) {
	gormDB, mock, mockDB := newMockDB(t)
	return NewGormSupplierRepository(gormDB), mock, mockDB
}

func supplierRows(supplierID, tenantID uuid.UUID, name, taxID string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "tenant_id", "name", "phone", "email", "address", "tax_id"}).
		AddRow(supplierID, tenantID, name, "", "", "", taxID)
}

func TestGormSupplierRepository_FindByID(t *testing.T) {
	t.Run("finds existing supplier", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		supplierID := uuid.New()
		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "suppliers" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(supplierID, 1).
			WillReturnRows(supplierRows(supplierID, tenantID, "MediSupply Pvt Ltd", "27AAAPL1234C1ZV"))

		supplier, err := repo.FindByID(context.Background(), supplierID)

		assert.NoError(t, err)
		assert.NotNil(t, supplier)
		assert.Equal(t, supplierID, supplier.ID)
		assert.Equal(t, "MediSupply Pvt Ltd", supplier.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing supplier", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		supplierID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "suppliers" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(supplierID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		supplier, err := repo.FindByID(context.Background(), supplierID)

		assert.Error(t, err)
		assert.Nil(t, supplier)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSupplierRepository_FindByIDForTenant(t *testing.T) {
	t.Run("finds supplier within tenant", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		supplierID := uuid.New()
		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "suppliers" WHERE tenant_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, supplierID, 1).
			WillReturnRows(supplierRows(supplierID, tenantID, "MediSupply Pvt Ltd", ""))

		supplier, err := repo.FindByIDForTenant(context.Background(), tenantID, supplierID)

		assert.NoError(t, err)
		assert.NotNil(t, supplier)
		assert.Equal(t, tenantID, supplier.TenantID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSupplierRepository_FindByTaxID(t *testing.T) {
	t.Run("finds supplier by normalized tax ID", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		supplierID := uuid.New()
		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "suppliers" WHERE tenant_id = \$1 AND tax_id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, "27AAAPL1234C1ZV", 1).
			WillReturnRows(supplierRows(supplierID, tenantID, "MediSupply Pvt Ltd", "27AAAPL1234C1ZV"))

		supplier, err := repo.FindByTaxID(context.Background(), tenantID, "27AAAPL1234C1ZV")

		assert.NoError(t, err)
		assert.NotNil(t, supplier)
		assert.Equal(t, "27AAAPL1234C1ZV", supplier.TaxID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns error for empty tax ID", func(t *testing.T) {
		repo, _, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		_, err := repo.FindByTaxID(context.Background(), uuid.New(), "")

		assert.Error(t, err)
	})

	t.Run("returns ErrNotFound for unknown tax ID", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "suppliers" WHERE tenant_id = \$1 AND tax_id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, "UNKNOWN", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByTaxID(context.Background(), tenantID, "UNKNOWN")

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSupplierRepository_Save(t *testing.T) {
	t.Run("saves supplier", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		supplier, err := procurement.NewSupplier(tenantID, "MediSupply Pvt Ltd", "", "", "", "27aaapl1234c1zv")
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "suppliers" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Save(context.Background(), supplier)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSupplierRepository_Delete(t *testing.T) {
	t.Run("deletes existing supplier", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		supplierID := uuid.New()

		mock.ExpectExec(`DELETE FROM "suppliers" WHERE id = \$1`).
			WithArgs(supplierID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Delete(context.Background(), supplierID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound when nothing deleted", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		supplierID := uuid.New()

		mock.ExpectExec(`DELETE FROM "suppliers" WHERE id = \$1`).
			WithArgs(supplierID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), supplierID)

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSupplierRepository_FindAllForTenant(t *testing.T) {
	t.Run("searches name and tax ID", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "suppliers" WHERE tenant_id = \$1 AND \(name ILIKE \$2 OR tax_id ILIKE \$3\) ORDER BY name ASC`).
			WithArgs(tenantID, "%medi%", "%medi%").
			WillReturnRows(supplierRows(uuid.New(), tenantID, "MediSupply Pvt Ltd", ""))

		suppliers, err := repo.FindAllForTenant(context.Background(), tenantID, shared.Filter{Search: "medi"})

		assert.NoError(t, err)
		assert.Len(t, suppliers, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSupplierRepository_Count(t *testing.T) {
	t.Run("counts suppliers", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "suppliers"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(8))

		count, err := repo.Count(context.Background(), shared.Filter{})

		assert.NoError(t, err)
		assert.Equal(t, int64(8), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
