package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestPayable(t *testing.T) *SupplierPayable {
	t.Helper()
	p, err := NewSupplierPayable(
		uuid.New(),
		"AP-20260901-00001",
		uuid.New(),
		"MedSupply Co",
		uuid.New(),
		"INV-001",
		dec("56"),
	)
	require.NoError(t, err)
	return p
}

func TestNewSupplierPayable(t *testing.T) {
	t.Run("opens pending with full outstanding", func(t *testing.T) {
		p := createTestPayable(t)
		assert.Equal(t, PayableStatusPending, p.Status)
		assert.True(t, p.OutstandingAmount.Equal(dec("56")))
		assert.True(t, p.SettledAmount.IsZero())

		events := p.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypePayableCreated, events[0].EventType())
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		_, err := NewSupplierPayable(uuid.New(), "AP-1", uuid.New(), "S", uuid.New(), "INV", decimal.Zero)
		assert.Error(t, err)
	})
}

func TestSupplierPayableSettlement(t *testing.T) {
	t.Run("partial payment then return credit settles", func(t *testing.T) {
		p := createTestPayable(t)

		require.NoError(t, p.ApplyPayment(uuid.New(), dec("33.6"), "part payment"))
		assert.Equal(t, PayableStatusPartial, p.Status)
		assert.True(t, p.OutstandingAmount.Equal(dec("22.4")))

		require.NoError(t, p.ApplyReturnCredit(uuid.New(), dec("22.4"), "return of 4 units"))
		assert.Equal(t, PayableStatusSettled, p.Status)
		assert.True(t, p.OutstandingAmount.IsZero())
		assert.NotNil(t, p.SettledAt)
		assert.Len(t, p.Settlements, 2)
	})

	t.Run("over-settlement rejected", func(t *testing.T) {
		p := createTestPayable(t)
		err := p.ApplyPayment(uuid.New(), dec("56.01"), "too much")
		require.Error(t, err)
		assert.Equal(t, PayableStatusPending, p.Status)
		assert.True(t, p.OutstandingAmount.Equal(dec("56")))
	})

	t.Run("settlement on settled payable rejected", func(t *testing.T) {
		p := createTestPayable(t)
		require.NoError(t, p.ApplyPayment(uuid.New(), dec("56"), "full"))
		assert.Error(t, p.ApplyPayment(uuid.New(), dec("1"), "again"))
	})
}

func TestSupplierPayableReverse(t *testing.T) {
	t.Run("reverse before settlement", func(t *testing.T) {
		p := createTestPayable(t)
		require.NoError(t, p.Reverse("duplicate invoice"))
		assert.Equal(t, PayableStatusReversed, p.Status)
		assert.True(t, p.OutstandingAmount.IsZero())
	})

	t.Run("reverse after payment rejected", func(t *testing.T) {
		p := createTestPayable(t)
		require.NoError(t, p.ApplyPayment(uuid.New(), dec("10"), ""))
		assert.Error(t, p.Reverse("too late"))
	})

	t.Run("reason required", func(t *testing.T) {
		p := createTestPayable(t)
		assert.Error(t, p.Reverse(""))
	})
}
