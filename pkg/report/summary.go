package report

import (
	"sync"

	"github.com/shopspring/decimal"
	"github.com/stackvity/sales-report/pkg/report/catalog"
)

// Purchase is the single most expensive accepted line of a file.
type Purchase struct {
	Product    catalog.Product
	Cost       decimal.Decimal // after discount
	LineNumber int
}

// FileSummary holds the statistics of one order file. Summaries returned by
// an Aggregator or Coordinator are frozen copies and safe to read freely.
type FileSummary struct {
	Path                   string
	TotalCostAfterDiscount decimal.Decimal
	TotalUnits             int64
	DiscountSum            int64
	ValidLines             int64
	BestPurchase           *Purchase
	RejectedLines          map[RejectReason]int
	Err                    error // Non-nil when the stream failed; totals are partial
}

// AverageDiscount returns DiscountSum / ValidLines, or 0 when no line was accepted.
func (s FileSummary) AverageDiscount() decimal.Decimal {
	if s.ValidLines == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(s.DiscountSum).Div(decimal.NewFromInt(s.ValidLines))
}

// TotalRejected returns the number of rejected lines across all reasons.
func (s FileSummary) TotalRejected() int {
	total := 0
	for _, n := range s.RejectedLines {
		total += n
	}
	return total
}

// Status reports StatusFailed when the stream errored and StatusSuccess otherwise.
func (s FileSummary) Status() Status {
	if s.Err != nil {
		return StatusFailed
	}
	return StatusSuccess
}

// accumulator is the mutable FileSummary of one Aggregator. Every mutation
// happens under mu so line sub-workers can share it.
type accumulator struct {
	mu      sync.Mutex
	summary FileSummary
}

func newAccumulator(path string) *accumulator {
	return &accumulator{summary: FileSummary{
		Path:                   path,
		TotalCostAfterDiscount: decimal.Zero,
		RejectedLines:          make(map[RejectReason]int),
	}}
}

// apply adds one accepted record. A later line replaces the best purchase only
// with a strictly greater cost; equal costs keep the lower line number.
func (a *accumulator) apply(rec ParsedRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := &a.summary
	s.TotalUnits += int64(rec.Amount)
	s.DiscountSum += int64(rec.Discount)
	s.ValidLines++
	s.TotalCostAfterDiscount = s.TotalCostAfterDiscount.Add(rec.DiscountedCost)

	best := s.BestPurchase
	if best == nil ||
		rec.DiscountedCost.GreaterThan(best.Cost) ||
		(rec.DiscountedCost.Equal(best.Cost) && rec.LineNumber < best.LineNumber) {
		s.BestPurchase = &Purchase{Product: rec.Product, Cost: rec.DiscountedCost, LineNumber: rec.LineNumber}
	}
}

func (a *accumulator) reject(reason RejectReason) {
	a.mu.Lock()
	a.summary.RejectedLines[reason]++
	a.mu.Unlock()
}

func (a *accumulator) fail(err error) {
	a.mu.Lock()
	if a.summary.Err == nil {
		a.summary.Err = err
	}
	a.mu.Unlock()
}

// snapshot returns a deep copy of the current summary.
func (a *accumulator) snapshot() FileSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := a.summary
	out.RejectedLines = make(map[RejectReason]int, len(a.summary.RejectedLines))
	for k, v := range a.summary.RejectedLines {
		out.RejectedLines[k] = v
	}
	if a.summary.BestPurchase != nil {
		best := *a.summary.BestPurchase
		out.BestPurchase = &best
	}
	return out
}
