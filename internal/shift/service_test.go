package shift

import (
	"context"
	"strings"
	"testing"
	"time"

	"market-backend/internal/auth"
	"market-backend/internal/dbtest"
	"market-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newCashier(t *testing.T, db *gorm.DB, username string) auth.Identity {
	t.Helper()
	u := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		FullName:     username,
		Role:         models.RoleCashier,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&u).Error)
	return auth.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// addInvoice inserts a posted invoice directly; posting itself is covered by the invoicing tests.
func addInvoice(t *testing.T, db *gorm.DB, cashier auth.Identity, shiftID *uuid.UUID, method models.PaymentMethod, total string, void bool) {
	t.Helper()
	inv := models.Invoice{
		InvoiceNumber: "INV-TEST-" + uuid.NewString()[:8],
		InvoiceType:   models.InvoiceTypeSale,
		UserID:        cashier.UserID,
		ShiftID:       shiftID,
		Subtotal:      d(total),
		TotalAmount:   d(total),
		PaymentMethod: method,
		PaidAmount:    d(total),
		IsVoid:        void,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, db.Create(&inv).Error)
}

func TestOpenShift(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	cashier := newCashier(t, db, "kasa1")

	sh, err := svc.OpenShift(context.Background(), cashier, d("100"), " sabah ")
	require.NoError(t, err)
	assert.Equal(t, models.ShiftOpen, sh.Status)
	assert.Equal(t, cashier.UserID, sh.UserID)
	assert.Equal(t, "sabah", sh.Notes)
	assert.Nil(t, sh.ClosedAt)

	current, err := svc.GetOpenShift(context.Background(), cashier.UserID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, sh.ID, current.ID)
}

func TestOpenShiftRejectsSecondOpenShift(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	cashier := newCashier(t, db, "kasa1")
	other := newCashier(t, db, "kasa2")

	_, err := svc.OpenShift(context.Background(), cashier, d("100"), "")
	require.NoError(t, err)

	_, err = svc.OpenShift(context.Background(), cashier, d("50"), "")
	assert.ErrorIs(t, err, ErrShiftAlreadyOpen)

	_, err = svc.OpenShift(context.Background(), other, d("50"), "")
	assert.NoError(t, err)

	var n int64
	require.NoError(t, db.Model(&models.Shift{}).Where("user_id = ?", cashier.UserID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestOpenShiftValidation(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	cashier := newCashier(t, db, "kasa1")

	_, err := svc.OpenShift(context.Background(), cashier, d("-1"), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.OpenShift(context.Background(), auth.Identity{UserID: uuid.New()}, d("1"), "")
	assert.ErrorIs(t, err, ErrCashierNotFound)
}

func TestGetOpenShiftNone(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)

	sh, err := svc.GetOpenShift(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, sh)
}

func TestCloseShiftReconciles(t *testing.T) {
	tests := []struct {
		name       string
		actual     string
		difference string
	}{
		{"balanced", "150.00", "0"},
		{"shortage", "145.00", "-5"},
		{"surplus", "152.50", "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := dbtest.Open(t)
			svc := NewService(db)
			cashier := newCashier(t, db, "kasa1")

			sh, err := svc.OpenShift(context.Background(), cashier, d("100.00"), "")
			require.NoError(t, err)
			addInvoice(t, db, cashier, &sh.ID, models.PaymentMethodCash, "50.00", false)

			closed, err := svc.CloseShift(context.Background(), cashier, sh.ID, d(tt.actual), "")
			require.NoError(t, err)

			assert.Equal(t, models.ShiftClosed, closed.Status)
			assert.Equal(t, "150", closed.ExpectedCash.String())
			assert.Equal(t, tt.difference, closed.Difference.String())
			assert.True(t, closed.ActualCash.Equal(d(tt.actual)))
			assert.True(t, closed.ClosingBalance.Equal(d(tt.actual)))
			assert.NotNil(t, closed.ClosedAt)

			var stored models.Shift
			require.NoError(t, db.First(&stored, "id = ?", sh.ID).Error)
			assert.Equal(t, models.ShiftClosed, stored.Status)
			assert.True(t, stored.Difference.Equal(d(tt.difference)))
		})
	}
}

func TestCloseShiftCountsOnlyOwnCashInvoices(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	cashier := newCashier(t, db, "kasa1")
	other := newCashier(t, db, "kasa2")

	sh, err := svc.OpenShift(context.Background(), cashier, d("100"), "")
	require.NoError(t, err)
	otherShift, err := svc.OpenShift(context.Background(), other, d("0"), "")
	require.NoError(t, err)

	addInvoice(t, db, cashier, &sh.ID, models.PaymentMethodCash, "40", false)
	addInvoice(t, db, cashier, &sh.ID, models.PaymentMethodCash, "10.25", false)
	addInvoice(t, db, cashier, &sh.ID, models.PaymentMethodCard, "70", false)
	addInvoice(t, db, cashier, &sh.ID, models.PaymentMethodMixed, "5", false)
	addInvoice(t, db, cashier, &sh.ID, models.PaymentMethodCash, "999", true)
	addInvoice(t, db, cashier, nil, models.PaymentMethodCash, "33", false)
	addInvoice(t, db, other, &otherShift.ID, models.PaymentMethodCash, "80", false)

	summary, err := svc.GetShift(context.Background(), sh.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.InvoiceCount)
	assert.Equal(t, "50.25", summary.CashSales.String())
	assert.Equal(t, "75", summary.NonCashSales.String())
	assert.Equal(t, "150.25", summary.ExpectedCash.String())

	closed, err := svc.CloseShift(context.Background(), cashier, sh.ID, d("150"), "")
	require.NoError(t, err)
	assert.Equal(t, "150.25", closed.ExpectedCash.String())
	assert.Equal(t, "-0.25", closed.Difference.String())
}

func TestCloseShiftTwice(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	cashier := newCashier(t, db, "kasa1")

	sh, err := svc.OpenShift(context.Background(), cashier, d("100"), "acilis")
	require.NoError(t, err)

	first, err := svc.CloseShift(context.Background(), cashier, sh.ID, d("100"), "kapanis")
	require.NoError(t, err)
	assert.Equal(t, "acilis\nkapanis", first.Notes)

	_, err = svc.CloseShift(context.Background(), cashier, sh.ID, d("500"), "tekrar")
	assert.ErrorIs(t, err, ErrShiftAlreadyClosed)

	var stored models.Shift
	require.NoError(t, db.First(&stored, "id = ?", sh.ID).Error)
	assert.True(t, stored.ActualCash.Equal(d("100")))
	assert.True(t, stored.Difference.IsZero())
	assert.Equal(t, "acilis\nkapanis", stored.Notes)

	// the cashier can start a new shift once the previous one is closed
	_, err = svc.OpenShift(context.Background(), cashier, d("20"), "")
	assert.NoError(t, err)
}

func TestCloseShiftOwnership(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	owner := newCashier(t, db, "kasa1")
	intruder := newCashier(t, db, "kasa2")

	sh, err := svc.OpenShift(context.Background(), owner, d("100"), "")
	require.NoError(t, err)

	_, err = svc.CloseShift(context.Background(), intruder, sh.ID, d("100"), "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	current, err := svc.GetOpenShift(context.Background(), owner.UserID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, models.ShiftOpen, current.Status)
}

func TestCloseShiftErrors(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	cashier := newCashier(t, db, "kasa1")

	_, err := svc.CloseShift(context.Background(), cashier, uuid.New(), d("1"), "")
	assert.ErrorIs(t, err, ErrShiftNotFound)

	sh, err := svc.OpenShift(context.Background(), cashier, d("1"), "")
	require.NoError(t, err)
	_, err = svc.CloseShift(context.Background(), cashier, sh.ID, d("-1"), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestListShifts(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	a := newCashier(t, db, "kasa1")
	b := newCashier(t, db, "kasa2")

	sh, err := svc.OpenShift(context.Background(), a, d("1"), "")
	require.NoError(t, err)
	_, err = svc.CloseShift(context.Background(), a, sh.ID, d("1"), "")
	require.NoError(t, err)
	_, err = svc.OpenShift(context.Background(), a, d("1"), "")
	require.NoError(t, err)
	_, err = svc.OpenShift(context.Background(), b, d("1"), "")
	require.NoError(t, err)

	all, err := svc.ListShifts(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := svc.ListShifts(context.Background(), ListFilter{UserID: &a.UserID})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	open, err := svc.ListShifts(context.Background(), ListFilter{Status: models.ShiftOpen})
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestShiftLockQueries(t *testing.T) {
	id := uuid.New()
	posting := func(db *gorm.DB) string {
		return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			var sh models.Shift
			return openShiftQuery(tx, id).First(&sh)
		})
	}
	closing := func(db *gorm.DB) string {
		return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			var sh models.Shift
			return shiftForCloseQuery(tx, id).First(&sh)
		})
	}

	pg := dbtest.PostgresDryRun(t)
	assert.True(t, strings.HasSuffix(posting(pg), "FOR SHARE"), posting(pg))
	assert.True(t, strings.HasSuffix(closing(pg), "FOR UPDATE"), closing(pg))

	lite := dbtest.Open(t)
	assert.NotContains(t, posting(lite), "FOR SHARE")
	assert.NotContains(t, closing(lite), "FOR UPDATE")
}
