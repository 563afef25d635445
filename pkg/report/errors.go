package report

import (
	"errors"

	"github.com/stackvity/sales-report/pkg/report/catalog"
	"github.com/stackvity/sales-report/pkg/report/encoding"
)

// --- Exported Error Variables ---
// Library users can check against these using errors.Is. Only catalog and
// configuration errors are fatal to a run; everything else stays local to
// the file or line that produced it.

var (
	// ErrCatalogIO indicates the catalog file could not be opened or read.
	// Fatal: no Aggregator is started.
	ErrCatalogIO = catalog.ErrCatalogIO

	// ErrCatalogFormat indicates a numerically malformed catalog record.
	// Fatal: no Aggregator is started.
	ErrCatalogFormat = catalog.ErrCatalogFormat

	// ErrFileStream indicates an order file could not be opened or a read failed
	// mid-stream. Stored in FileSummary.Err; the partial summary is still reported.
	ErrFileStream = errors.New("order file stream failed")

	// ErrBinaryContent indicates an order file looks like binary data.
	// Always returned wrapped together with ErrFileStream.
	ErrBinaryContent = encoding.ErrBinaryContent

	// ErrBlankLine marks an empty or whitespace-only line. It is never reported
	// as a rejection and produces no diagnostic.
	ErrBlankLine = errors.New("blank line")

	// ErrLineFormat indicates a line without exactly three comma-separated fields.
	ErrLineFormat = errors.New("invalid line format")

	// ErrNumberFormat indicates a field that is not a valid integer.
	ErrNumberFormat = errors.New("number format error")

	// ErrValidation indicates amount <= 0 or a discount outside [0,100].
	ErrValidation = errors.New("invalid values")

	// ErrUnknownProduct indicates a product id that is not in the catalog.
	ErrUnknownProduct = errors.New("product not found in catalog")

	// ErrConfigValidation indicates that the provided Options failed validation.
	ErrConfigValidation = errors.New("invalid configuration options provided")
)
