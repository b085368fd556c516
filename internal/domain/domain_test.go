package domain

import (
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStats(t *testing.T) {
	jan := time.Date(2025, time.January, 10, 23, 30, 0, 0, time.UTC)
	feb := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	purchases := []*Purchase{
		{Amount: decimal.NewFromInt(10), PurchaseDate: jan, Snapshot: ProductSnapshot{Category: "books"}},
		{Amount: decimal.NewFromInt(20), PurchaseDate: jan, Snapshot: ProductSnapshot{Category: "books"}},
		{Amount: decimal.NewFromInt(30), PurchaseDate: feb},
	}

	s := ComputeStats(purchases)
	assert.Equal(t, 3, s.Count)
	assert.True(t, decimal.NewFromInt(60).Equal(s.Total))
	assert.True(t, decimal.NewFromInt(20).Equal(s.Average))
	assert.Equal(t, map[string]int{"books": 2, "Other": 1}, s.CategoriesCount)
	require.Len(t, s.Monthly, 2)
	assert.True(t, decimal.NewFromInt(30).Equal(s.Monthly["2025-01"]))
	assert.True(t, decimal.NewFromInt(30).Equal(s.Monthly["2025-02"]))
}

func TestComputeStats_Empty(t *testing.T) {
	s := ComputeStats(nil)
	assert.Zero(t, s.Count)
	assert.True(t, s.Total.IsZero())
	assert.True(t, s.Average.IsZero())
	assert.Empty(t, s.CategoriesCount)
}

func TestComputeStats_MonthKeyIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// 2025-03-01 01:00 at +3 is still February in UTC
	at := time.Date(2025, time.March, 1, 1, 0, 0, 0, loc)
	s := ComputeStats([]*Purchase{{Amount: decimal.NewFromInt(5), PurchaseDate: at}})
	_, ok := s.Monthly["2025-02"]
	assert.True(t, ok)
}

func TestFilterProducts(t *testing.T) {
	base := time.Now()
	all := []*Product{
		{ID: "a", Category: "books", SellerID: "s1", Status: ProductStatusAvailable, CreatedAt: base},
		{ID: "b", Category: "books", SellerID: "s2", Status: ProductStatusSold, CreatedAt: base.Add(time.Minute)},
		{ID: "c", Category: "art", SellerID: "s1", Status: ProductStatusAvailable, CreatedAt: base.Add(2 * time.Minute)},
		{ID: "d", Category: "books", SellerID: "s1", Status: ProductStatusAvailable, CreatedAt: base.Add(3 * time.Minute)},
	}

	got := FilterProducts(all, ProductFilter{})
	assert.Equal(t, []string{"d", "c", "b", "a"}, productIDs(got))

	got = FilterProducts(all, ProductFilter{Category: "books", Status: ProductStatusAvailable})
	assert.Equal(t, []string{"d", "a"}, productIDs(got))

	got = FilterProducts(all, ProductFilter{SellerID: "s1", Limit: 2})
	assert.Equal(t, []string{"d", "c"}, productIDs(got))
}

func TestFilterProducts_EqualTimestampsOrderByID(t *testing.T) {
	at := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	all := []*Product{
		{ID: "p3", CreatedAt: at},
		{ID: "p1", CreatedAt: at},
		{ID: "p0", CreatedAt: at.Add(-time.Second)},
		{ID: "p2", CreatedAt: at},
	}

	got := FilterProducts(all, ProductFilter{})
	assert.Equal(t, []string{"p1", "p2", "p3", "p0"}, productIDs(got))

	// input order does not leak into a limited page
	slices.Reverse(all)
	got = FilterProducts(all, ProductFilter{Limit: 2})
	assert.Equal(t, []string{"p1", "p2"}, productIDs(got))
}

func TestProductUpdate_Apply(t *testing.T) {
	now := time.Now()
	p := &Product{Title: "old", Tags: []string{"x"}, Status: ProductStatusAvailable}

	title := "new"
	sold := ProductStatusSold
	tags := []string{"a", "b"}
	ProductUpdate{Title: &title, Status: &sold, Tags: &tags}.Apply(p, now)

	assert.Equal(t, "new", p.Title)
	assert.Equal(t, []string{"a", "b"}, p.Tags)
	assert.Equal(t, ProductStatusSold, p.Status)
	require.NotNil(t, p.SoldAt)
	assert.Equal(t, now, p.UpdatedAt)

	tags[0] = "mutated"
	assert.Equal(t, "a", p.Tags[0])
}

func TestProductClone_DeepCopiesSlices(t *testing.T) {
	at := time.Now()
	p := &Product{Tags: []string{"a"}, Images: []string{"1"}, SoldAt: &at}
	c := p.Clone()
	c.Tags[0] = "b"
	c.Images[0] = "2"
	*c.SoldAt = at.Add(time.Hour)

	assert.Equal(t, "a", p.Tags[0])
	assert.Equal(t, "1", p.Images[0])
	assert.Equal(t, at, *p.SoldAt)
}

func TestNewPurchase_Snapshot(t *testing.T) {
	p := &Product{
		ID: "x", Title: "Lamp", Price: decimal.NewFromInt(50), SellerID: "A",
		Images: []string{"img"}, Category: "home", Condition: ConditionGood,
	}
	at := time.Now()
	pur := NewPurchase("pid", "B", p, at)

	assert.Equal(t, "B", pur.BuyerID)
	assert.Equal(t, "A", pur.SellerID)
	assert.Equal(t, "x", pur.ProductID)
	assert.True(t, decimal.NewFromInt(50).Equal(pur.Amount))
	assert.Equal(t, "Lamp", pur.Snapshot.Title)
	assert.Equal(t, PurchaseStatusCompleted, pur.Status)

	p.Images[0] = "changed"
	assert.Equal(t, "img", pur.Snapshot.Images[0])
}

func TestCartView_Total(t *testing.T) {
	v := &CartView{Items: []CartLine{
		{ProductID: "a", Product: &Product{Price: decimal.RequireFromString("10.50")}},
		{ProductID: "b", Product: &Product{Price: decimal.RequireFromString("4.25")}},
	}}
	assert.Equal(t, 2, v.Count())
	assert.Equal(t, "14.75", v.Total().StringFixed(2))
	assert.True(t, v.Contains("b"))
	assert.False(t, v.Contains("c"))
}

func TestErrorKinds(t *testing.T) {
	var err error = &ValidationError{Items: []InvalidItem{{ProductID: "x", Reason: ReasonUnavailable}}}
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "x (unavailable)")

	cause := errors.New("boom")
	err = fmt.Errorf("wrapped: %w", &TransactionError{ProductID: "y", Err: cause})
	assert.ErrorIs(t, err, ErrTransaction)
	assert.ErrorIs(t, err, cause)
	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "y", txErr.ProductID)

	err = NewWriteError("update product", ErrPermissionDenied, cause)
	assert.ErrorIs(t, err, ErrWrite)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrRead)

	err = NewReadError("get product", nil, cause)
	assert.ErrorIs(t, err, ErrRead)
	assert.NotErrorIs(t, err, ErrBackendUnavailable)

	assert.ErrorIs(t, NotFoundf("product %s", "z"), ErrNotFound)
}

func TestCondition_Valid(t *testing.T) {
	assert.True(t, ConditionPoor.Valid())
	assert.False(t, Condition("mint").Valid())
	assert.Len(t, Categories, 12)
}

func productIDs(ps []*Product) []string {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return ids
}
