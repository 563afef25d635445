// Package catalog holds the immutable product catalog shared read-only by
// every Aggregator of a run. A Catalog is built once, before any worker
// starts, and never mutated afterwards, so lookups need no locking.
package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/stackvity/sales-report/pkg/report/encoding"
	"github.com/stackvity/sales-report/pkg/util"
)

var (
	// ErrCatalogIO indicates the catalog source could not be opened or read.
	ErrCatalogIO = errors.New("failed to read product catalog")

	// ErrCatalogFormat indicates a record whose id or price is not a valid number.
	// Records with the wrong field count are skipped instead.
	ErrCatalogFormat = errors.New("malformed product catalog record")
)

// Product is a single catalog entry. Identity is ID.
type Product struct {
	ID    int
	Name  string
	Price decimal.Decimal
}

// Catalog is an insertion-ordered, read-only mapping from product id to Product.
type Catalog struct {
	products []Product
	index    map[int]int
}

// LoadOptions controls how a catalog source is parsed.
type LoadOptions struct {
	// MaxProducts stops reading once this many products are stored. 0 = unlimited.
	MaxProducts int
	// Decoder converts the raw source to UTF-8. nil uses a charset decoder.
	Decoder encoding.Decoder
	// Logger receives skip and duplicate diagnostics. nil discards them.
	Logger slog.Handler
}

// New builds a catalog from products. On duplicate ids the first product wins.
func New(products ...Product) *Catalog {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		index:    make(map[int]int, len(products)),
	}
	for _, p := range products {
		c.add(p)
	}
	return c
}

// add stores p unless its id is already present. It reports whether p was stored.
func (c *Catalog) add(p Product) bool {
	if _, exists := c.index[p.ID]; exists {
		return false
	}
	c.index[p.ID] = len(c.products)
	c.products = append(c.products, p)
	return true
}

// Lookup returns the product with the given id.
func (c *Catalog) Lookup(id int) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// Products returns a copy of the catalog entries in insertion order.
func (c *Catalog) Products() []Product {
	if c == nil {
		return nil
	}
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

// Load opens the catalog file at path and parses it.
func Load(path string, opts LoadOptions) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogIO, err)
	}
	defer f.Close()
	return Parse(f, path, opts)
}

// Parse reads "id,name,price" records from r. source names r in diagnostics.
// Lines with other than three fields are skipped; a bad id or price aborts the load.
func Parse(r io.Reader, source string, opts LoadOptions) (*Catalog, error) {
	handler := opts.Logger
	if handler == nil {
		handler = slog.NewTextHandler(io.Discard, nil)
	}
	logger := slog.New(handler).With(slog.String("component", "catalog"), slog.String("path", source))

	dec := opts.Decoder
	if dec == nil {
		dec = encoding.NewCharsetDecoder("")
	}
	utf8Reader, encName, err := dec.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCatalogIO, source, err)
	}
	logger.Debug("Catalog encoding detected", slog.String("encoding", encName))

	c := New()
	scanner := bufio.NewScanner(utf8Reader)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if opts.MaxProducts > 0 && c.Len() >= opts.MaxProducts {
			logger.Warn("Catalog capacity reached, ignoring remaining lines",
				slog.Int("maxProducts", opts.MaxProducts), slog.Int("lineNumber", lineNo))
			break
		}

		fields := util.SplitFields(scanner.Text())
		if len(fields) != 3 {
			logger.Debug("Skipping catalog line without three fields", slog.Int("lineNumber", lineNo), slog.String("line", scanner.Text()))
			continue
		}

		product, parseErr := parseProduct(fields)
		if parseErr != nil {
			logger.Error("Malformed catalog record", slog.Int("lineNumber", lineNo), slog.String("line", scanner.Text()), slog.String("error", parseErr.Error()))
			return nil, fmt.Errorf("%w: %s line %d: %w", ErrCatalogFormat, source, lineNo, parseErr)
		}
		if !c.add(product) {
			logger.Warn("Duplicate product id, keeping first entry", slog.Int("id", product.ID), slog.Int("lineNumber", lineNo))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCatalogIO, source, err)
	}

	logger.Debug("Catalog loaded", slog.Int("products", c.Len()))
	return c, nil
}

// parseProduct converts three trimmed fields into a Product.
func parseProduct(fields []string) (Product, error) {
	id, err := strconv.ParseInt(fields[0], 10, 32)
	if err != nil {
		return Product{}, fmt.Errorf("invalid product id %q: %w", fields[0], err)
	}
	price, err := decimal.NewFromString(fields[2])
	if err != nil {
		return Product{}, fmt.Errorf("invalid price %q: %w", fields[2], err)
	}
	if price.IsNegative() {
		return Product{}, fmt.Errorf("negative price %q", fields[2])
	}
	return Product{ID: int(id), Name: fields[1], Price: price}, nil
}
