// Package weekly buckets dated payments into Monday-start calendar weeks.
package weekly

import (
	"sort"
	"time"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const SkipNoUsableDate = "no_usable_date"

// Record is one payment as seen by the aggregator. A zero Date means the payment
// has no usable date.
type Record struct {
	Ref      string
	Amount   decimal.Decimal
	Category domain.PaymentCategory
	Date     time.Time
}

// FromPayment takes the payment date, falling back to the scheduled date.
func FromPayment(p domain.Payment) Record {
	date, _ := p.EffectiveDate()
	return Record{
		Ref:      p.Code,
		Amount:   p.Amount,
		Category: p.Category,
		Date:     date,
	}
}

func FromPayments(payments []domain.Payment) []Record {
	out := make([]Record, len(payments))
	for i, p := range payments {
		out[i] = FromPayment(p)
	}
	return out
}

type Bucket struct {
	WeekStart         time.Time
	WeekEnd           time.Time
	DirectTotal       decimal.Decimal
	ByCategory        map[domain.PaymentCategory]decimal.Decimal
	PaymentCount      int
	Cumulative        decimal.Decimal
	IndirectAllocated decimal.Decimal
}

type Skip struct {
	Ref    string
	Reason string
}

type Options struct {
	// Dense synthesises empty weeks between the first and last bucket, widened to
	// From/To when those are set. To is exclusive.
	Dense bool
	From  time.Time
	To    time.Time
}

type Result struct {
	Buckets []Bucket
	Skipped []Skip
	Total   decimal.Decimal
}

// WeekStart returns the Monday of t's calendar week at midnight UTC.
func WeekStart(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// ParseDate accepts 2006-01-02 and RFC 3339. ok is false for empty or unparsable input.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func Aggregate(records []Record, opts Options) Result {
	res := Result{Total: decimal.Zero}
	byWeek := make(map[time.Time]*Bucket)

	for _, r := range records {
		if r.Date.IsZero() {
			res.Skipped = append(res.Skipped, Skip{Ref: r.Ref, Reason: SkipNoUsableDate})
			continue
		}

		start := WeekStart(r.Date)
		b, ok := byWeek[start]
		if !ok {
			b = newBucket(start)
			byWeek[start] = b
		}
		b.DirectTotal = b.DirectTotal.Add(r.Amount)
		b.ByCategory[r.Category] = b.ByCategory[r.Category].Add(r.Amount)
		b.PaymentCount++
		res.Total = res.Total.Add(r.Amount)
	}

	if opts.Dense {
		fillRange(byWeek, opts)
	}

	res.Buckets = make([]Bucket, 0, len(byWeek))
	for _, b := range byWeek {
		res.Buckets = append(res.Buckets, *b)
	}
	sort.Slice(res.Buckets, func(i, j int) bool {
		return res.Buckets[i].WeekStart.Before(res.Buckets[j].WeekStart)
	})

	running := decimal.Zero
	for i := range res.Buckets {
		running = running.Add(res.Buckets[i].DirectTotal)
		res.Buckets[i].Cumulative = running
	}

	return res
}

func newBucket(start time.Time) *Bucket {
	return &Bucket{
		WeekStart:         start,
		WeekEnd:           start.AddDate(0, 0, 6),
		DirectTotal:       decimal.Zero,
		ByCategory:        make(map[domain.PaymentCategory]decimal.Decimal),
		Cumulative:        decimal.Zero,
		IndirectAllocated: decimal.Zero,
	}
}

func fillRange(byWeek map[time.Time]*Bucket, opts Options) {
	var first, last time.Time
	for start := range byWeek {
		if first.IsZero() || start.Before(first) {
			first = start
		}
		if last.IsZero() || start.After(last) {
			last = start
		}
	}

	if !opts.From.IsZero() {
		if from := WeekStart(opts.From); first.IsZero() || from.Before(first) {
			first = from
		}
	}
	if !opts.To.IsZero() {
		if to := WeekStart(opts.To.AddDate(0, 0, -1)); last.IsZero() || to.After(last) {
			last = to
		}
	}
	if first.IsZero() || last.IsZero() {
		return
	}

	for w := first; !w.After(last); w = w.AddDate(0, 0, 7) {
		if _, ok := byWeek[w]; !ok {
			byWeek[w] = newBucket(w)
		}
	}
}
