package weekly

import (
	"testing"
	"time"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, ok := ParseDate(s)
	if !ok {
		panic("bad test date " + s)
	}
	return t
}

func rec(ref, amount, on string, cat domain.PaymentCategory) Record {
	r := Record{Ref: ref, Amount: decimal.RequireFromString(amount), Category: cat}
	if on != "" {
		r.Date = date(on)
	}
	return r
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{name: "monday", in: date("2025-01-06"), want: "2025-01-06"},
		{name: "wednesday", in: date("2025-01-08"), want: "2025-01-06"},
		{name: "sunday maps back six days", in: date("2025-01-12"), want: "2025-01-06"},
		{name: "next monday", in: date("2025-01-13"), want: "2025-01-13"},
		{name: "across year boundary", in: date("2025-01-01"), want: "2024-12-30"},
		{name: "time of day ignored", in: time.Date(2025, 1, 12, 23, 59, 0, 0, time.UTC), want: "2025-01-06"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, date(tc.want), WeekStart(tc.in))
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in     string
		wantOK bool
	}{
		{in: "2025-01-06", wantOK: true},
		{in: "2025-01-06T10:30:00Z", wantOK: true},
		{in: "2025-01-06T10:30:00-06:00", wantOK: true},
		{in: "", wantOK: false},
		{in: "06/01/2025", wantOK: false},
		{in: "not a date", wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			_, ok := ParseDate(tc.in)
			assert.Equal(t, tc.wantOK, ok)
		})
	}
}

func TestAggregate_SameWeekSharesBucket(t *testing.T) {
	res := Aggregate([]Record{
		rec("P1", "100", "2025-01-06", domain.PaymentCategoryPurchaseOrder),
		rec("P2", "50", "2025-01-12", domain.PaymentCategoryPayroll),
		rec("P3", "25", "2025-01-13", domain.PaymentCategoryPayroll),
	}, Options{})

	require.Len(t, res.Buckets, 2)

	first := res.Buckets[0]
	assert.Equal(t, date("2025-01-06"), first.WeekStart)
	assert.Equal(t, date("2025-01-12"), first.WeekEnd)
	assert.True(t, first.DirectTotal.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 2, first.PaymentCount)
	assert.True(t, first.ByCategory[domain.PaymentCategoryPurchaseOrder].Equal(decimal.NewFromInt(100)))
	assert.True(t, first.ByCategory[domain.PaymentCategoryPayroll].Equal(decimal.NewFromInt(50)))

	second := res.Buckets[1]
	assert.Equal(t, date("2025-01-13"), second.WeekStart)
	assert.True(t, second.DirectTotal.Equal(decimal.NewFromInt(25)))
	assert.True(t, second.Cumulative.Equal(decimal.NewFromInt(175)))
	assert.True(t, second.IndirectAllocated.IsZero())
}

func TestAggregate_SkipsUndatedPayments(t *testing.T) {
	res := Aggregate([]Record{
		rec("P1", "10", "2025-02-03", domain.PaymentCategoryOther),
		rec("P2", "99", "", domain.PaymentCategoryOther),
	}, Options{})

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, Skip{Ref: "P2", Reason: SkipNoUsableDate}, res.Skipped[0])
	assert.True(t, res.Total.Equal(decimal.NewFromInt(10)))
	require.Len(t, res.Buckets, 1)
}

func TestAggregate_SortedAndSumsMatch(t *testing.T) {
	records := []Record{
		rec("P1", "10.10", "2025-03-20", domain.PaymentCategoryOther),
		rec("P2", "20.20", "2025-01-02", domain.PaymentCategoryOther),
		rec("P3", "30.30", "2025-02-14", domain.PaymentCategoryOther),
		rec("P4", "40.40", "2025-01-03", domain.PaymentCategoryOther),
	}
	res := Aggregate(records, Options{})

	sum := decimal.Zero
	for i, b := range res.Buckets {
		sum = sum.Add(b.DirectTotal)
		if i > 0 {
			assert.True(t, b.WeekStart.After(res.Buckets[i-1].WeekStart))
		}
	}
	assert.True(t, sum.Equal(decimal.RequireFromString("101")))
	assert.True(t, res.Total.Equal(sum))
	assert.True(t, res.Buckets[len(res.Buckets)-1].Cumulative.Equal(sum))
}

func TestAggregate_Dense(t *testing.T) {
	records := []Record{
		rec("P1", "10", "2025-01-06", domain.PaymentCategoryOther),
		rec("P2", "20", "2025-01-28", domain.PaymentCategoryOther),
	}

	t.Run("between first and last bucket", func(t *testing.T) {
		res := Aggregate(records, Options{Dense: true})
		require.Len(t, res.Buckets, 4)
		assert.True(t, res.Buckets[1].DirectTotal.IsZero())
		assert.True(t, res.Buckets[2].Cumulative.Equal(decimal.NewFromInt(10)))
	})

	t.Run("widened to explicit range", func(t *testing.T) {
		res := Aggregate(records, Options{Dense: true, From: date("2024-12-30"), To: date("2025-02-10")})
		require.Len(t, res.Buckets, 6)
		assert.Equal(t, date("2024-12-30"), res.Buckets[0].WeekStart)
		assert.Equal(t, date("2025-02-03"), res.Buckets[5].WeekStart)
	})

	t.Run("not dense by default", func(t *testing.T) {
		res := Aggregate(records, Options{})
		assert.Len(t, res.Buckets, 2)
	})
}

func TestFromPayment(t *testing.T) {
	paid := date("2025-01-07")
	scheduled := date("2025-01-20")

	tests := []struct {
		name    string
		payment domain.Payment
		want    time.Time
	}{
		{name: "paid date wins", payment: domain.Payment{PaidAt: &paid, ScheduledAt: &scheduled}, want: paid},
		{name: "scheduled fallback", payment: domain.Payment{ScheduledAt: &scheduled}, want: scheduled},
		{name: "no date", payment: domain.Payment{}, want: time.Time{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FromPayment(tc.payment).Date)
		})
	}
}
