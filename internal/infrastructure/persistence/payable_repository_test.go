package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/clinicware/backend/internal/domain/shared"
)

func TestGormPayableRepository_FindByPurchaseID(t *testing.T) {
	t.Run("finds payable for received purchase", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPayableRepository(gormDB)

		tenantID := uuid.New()
		purchaseID := uuid.New()
		payableID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "purchase_id", "payable_number", "status"}).
			AddRow(payableID, tenantID, purchaseID, "PAY-2026-0001", "PENDING")

		mock.ExpectQuery(`SELECT \* FROM "supplier_payables" WHERE tenant_id = \$1 AND purchase_id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, purchaseID, 1).
			WillReturnRows(rows)

		payable, err := repo.FindByPurchaseID(context.Background(), tenantID, purchaseID)

		assert.NoError(t, err)
		assert.NotNil(t, payable)
		assert.Equal(t, "PAY-2026-0001", payable.PayableNumber)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPayableRepository_FindOutstanding(t *testing.T) {
	t.Run("only non-terminal statuses count", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPayableRepository(gormDB)

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "supplier_payables" WHERE tenant_id = \$1 AND status IN \(\$2,\$3\)`).
			WithArgs(tenantID, "PENDING", "PARTIAL").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "payable_number", "status"}).
			AddRow(uuid.New(), tenantID, "PAY-2026-0001", "PENDING").
			AddRow(uuid.New(), tenantID, "PAY-2026-0002", "PARTIAL")

		mock.ExpectQuery(`SELECT \* FROM "supplier_payables" WHERE tenant_id = \$1 AND status IN \(\$2,\$3\)`).
			WithArgs(tenantID, "PENDING", "PARTIAL").
			WillReturnRows(rows)

		payables, total, err := repo.FindOutstanding(context.Background(), tenantID, nil, shared.Filter{})

		assert.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, payables, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("narrows to one supplier", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPayableRepository(gormDB)

		tenantID := uuid.New()
		supplierID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "supplier_payables" WHERE tenant_id = \$1 AND status IN \(\$2,\$3\) AND supplier_id = \$4`).
			WithArgs(tenantID, "PENDING", "PARTIAL", supplierID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		mock.ExpectQuery(`SELECT \* FROM "supplier_payables" WHERE tenant_id = \$1 AND status IN \(\$2,\$3\) AND supplier_id = \$4`).
			WithArgs(tenantID, "PENDING", "PARTIAL", supplierID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		payables, total, err := repo.FindOutstanding(context.Background(), tenantID, &supplierID, shared.Filter{})

		assert.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, payables)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPayableRepository_NextPayableNumber(t *testing.T) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("PAY-%d-", year)

	t.Run("starts at one for an empty year", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPayableRepository(gormDB)

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT payable_number FROM "supplier_payables" WHERE tenant_id = \$1 AND payable_number LIKE \$2`).
			WithArgs(tenantID, prefix+"%").
			WillReturnRows(sqlmock.NewRows([]string{"payable_number"}))

		number, err := repo.NextPayableNumber(context.Background(), tenantID)

		assert.NoError(t, err)
		assert.Equal(t, prefix+"0001", number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("increments the highest existing number", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPayableRepository(gormDB)

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT payable_number FROM "supplier_payables" WHERE tenant_id = \$1 AND payable_number LIKE \$2`).
			WithArgs(tenantID, prefix+"%").
			WillReturnRows(sqlmock.NewRows([]string{"payable_number"}).AddRow(prefix + "0041"))

		number, err := repo.NextPayableNumber(context.Background(), tenantID)

		assert.NoError(t, err)
		assert.Equal(t, prefix+"0042", number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
