package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clinicware/backend/internal/domain/ingestion"
	"github.com/clinicware/backend/internal/domain/shared"
)

func TestGormUploadRepository_FindByID(t *testing.T) {
	t.Run("finds upload within tenant", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormUploadRepository(gormDB)

		uploadID := uuid.New()
		tenantID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "filename", "stored_path", "status", "uploaded_by", "version"}).
			AddRow(uploadID, tenantID, "invoice.pdf", "tmp/uploads/x/invoice.pdf", "UPLOADED", uuid.New(), 1)

		mock.ExpectQuery(`SELECT \* FROM "invoice_uploads" WHERE tenant_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, uploadID, 1).
			WillReturnRows(rows)

		upload, err := repo.FindByID(context.Background(), tenantID, uploadID)

		assert.NoError(t, err)
		assert.NotNil(t, upload)
		assert.Equal(t, ingestion.UploadStatusUploaded, upload.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing upload", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormUploadRepository(gormDB)

		tenantID := uuid.New()
		uploadID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "invoice_uploads"`).
			WithArgs(tenantID, uploadID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByID(context.Background(), tenantID, uploadID)

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormUploadRepository_SaveWithLock(t *testing.T) {
	newUpload := func(t *testing.T) *ingestion.InvoiceUpload {
		upload, err := ingestion.NewInvoiceUpload(uuid.New(), uuid.New(), "invoice.pdf", "tmp/uploads/x/invoice.pdf")
		require.NoError(t, err)
		return upload
	}

	t.Run("persists when stored version matches", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormUploadRepository(gormDB)

		upload := newUpload(t)

		mock.ExpectExec(`UPDATE "invoice_uploads" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveWithLock(context.Background(), upload)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns concurrency conflict when another writer won", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormUploadRepository(gormDB)

		upload := newUpload(t)

		mock.ExpectExec(`UPDATE "invoice_uploads" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), upload)

		assert.Equal(t, shared.ErrConcurrencyConflict, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormUploadRepository_FindAll(t *testing.T) {
	t.Run("returns page and total count", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormUploadRepository(gormDB)

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "invoice_uploads" WHERE tenant_id = \$1`).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "filename", "stored_path", "status", "uploaded_by", "version"}).
			AddRow(uuid.New(), tenantID, "a.pdf", "k/a.pdf", "PARSED", uuid.New(), 3).
			AddRow(uuid.New(), tenantID, "b.pdf", "k/b.pdf", "UPLOADED", uuid.New(), 1)

		mock.ExpectQuery(`SELECT \* FROM "invoice_uploads" WHERE tenant_id = \$1 ORDER BY created_at DESC LIMIT .*`).
			WithArgs(tenantID).
			WillReturnRows(rows)

		uploads, total, err := repo.FindAll(context.Background(), tenantID, shared.Filter{})

		assert.NoError(t, err)
		assert.Equal(t, int64(42), total)
		assert.Len(t, uploads, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filters by status", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormUploadRepository(gormDB)

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "invoice_uploads" WHERE tenant_id = \$1 AND status = \$2`).
			WithArgs(tenantID, "FAILED").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		mock.ExpectQuery(`SELECT \* FROM "invoice_uploads" WHERE tenant_id = \$1 AND status = \$2`).
			WithArgs(tenantID, "FAILED").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		uploads, total, err := repo.FindAll(context.Background(), tenantID, shared.Filter{
			Filters: map[string]interface{}{"status": "FAILED"},
		})

		assert.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, uploads)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
