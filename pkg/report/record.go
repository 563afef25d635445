package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stackvity/sales-report/pkg/report/catalog"
	"github.com/stackvity/sales-report/pkg/util"
)

// ProductLookup resolves product ids. *catalog.Catalog implements it.
type ProductLookup interface {
	Lookup(id int) (catalog.Product, bool)
}

// ParsedRecord is an order line that passed every syntactic, semantic and catalog check.
type ParsedRecord struct {
	Product        catalog.Product
	Amount         int
	Discount       int
	LineNumber     int
	Cost           decimal.Decimal // price * amount
	DiscountedCost decimal.Decimal // cost * (100 - discount) / 100
}

// LineError describes a rejected order line. It unwraps to one of the
// per-line sentinel errors (ErrLineFormat, ErrNumberFormat, ErrValidation,
// ErrUnknownProduct) or ErrBlankLine.
type LineError struct {
	Line       string
	LineNumber int
	Reason     RejectReason
	Err        error
}

// Error implements the error interface.
func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v: %s", e.LineNumber, e.Err, e.Line)
}

// Unwrap returns the underlying sentinel error.
func (e *LineError) Unwrap() error {
	return e.Err
}

// ParseLine validates one "productId,amount,discountPercent" line.
// Checks run in a fixed order: blank, field count, integer syntax,
// value ranges, catalog membership. The first failing check decides the rejection.
func ParseLine(line string, lineNo int, products ProductLookup) (ParsedRecord, error) {
	if strings.TrimSpace(line) == "" {
		return ParsedRecord{}, &LineError{Line: line, LineNumber: lineNo, Err: ErrBlankLine}
	}

	fields := util.SplitFields(line)
	if len(fields) != 3 {
		return ParsedRecord{}, reject(line, lineNo, RejectFormat, ErrLineFormat, "expected 3 fields, got %d", len(fields))
	}

	var values [3]int
	for i, field := range fields {
		v, err := strconv.ParseInt(field, 10, 32)
		if err != nil {
			return ParsedRecord{}, reject(line, lineNo, RejectNumberFormat, ErrNumberFormat, "field %d %q", i+1, field)
		}
		values[i] = int(v)
	}
	productID, amount, discount := values[0], values[1], values[2]

	if amount <= 0 {
		return ParsedRecord{}, reject(line, lineNo, RejectValidation, ErrValidation, "amount must be positive (got %d)", amount)
	}
	if discount < 0 || discount > 100 {
		return ParsedRecord{}, reject(line, lineNo, RejectValidation, ErrValidation, "discount must be within [0,100] (got %d)", discount)
	}

	product, ok := products.Lookup(productID)
	if !ok {
		return ParsedRecord{}, reject(line, lineNo, RejectUnknownProduct, ErrUnknownProduct, "id %d", productID)
	}

	cost := product.Price.Mul(decimal.NewFromInt(int64(amount)))
	// Shift(-2) divides by 100 exactly.
	discounted := cost.Mul(decimal.NewFromInt(int64(100 - discount))).Shift(-2)

	return ParsedRecord{
		Product:        product,
		Amount:         amount,
		Discount:       discount,
		LineNumber:     lineNo,
		Cost:           cost,
		DiscountedCost: discounted,
	}, nil
}

func reject(line string, lineNo int, reason RejectReason, sentinel error, format string, args ...any) *LineError {
	return &LineError{
		Line:       line,
		LineNumber: lineNo,
		Reason:     reason,
		Err:        fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)),
	}
}
