// Package template renders FileSummary values as text report blocks using
// Go's text/template. The embedded default template produces the classic
// fixed-format block; a custom template file can replace it.
package template

import (
	_ "embed" // Required for //go:embed
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/shopspring/decimal"
	"github.com/stackvity/sales-report/pkg/report"
)

//go:embed default.tmpl
var defaultTemplateContent string

// ReportData is the value passed to report templates. Every field is
// available to custom templates.
type ReportData struct {
	Path            string
	TotalCost       decimal.Decimal
	TotalUnits      int64
	AverageDiscount decimal.Decimal
	ValidLines      int64
	RejectedLines   int
	BestPurchase    *report.Purchase // nil when no line was accepted
	Failed          bool
	Error           string // Stream error message when Failed
}

// NewReportData flattens a summary into template data.
func NewReportData(s report.FileSummary) ReportData {
	data := ReportData{
		Path:            s.Path,
		TotalCost:       s.TotalCostAfterDiscount,
		TotalUnits:      s.TotalUnits,
		AverageDiscount: s.AverageDiscount(),
		ValidLines:      s.ValidLines,
		RejectedLines:   s.TotalRejected(),
		BestPurchase:    s.BestPurchase,
	}
	if s.Err != nil {
		data.Failed = true
		data.Error = s.Err.Error()
	}
	return data
}

// customTemplateFuncs defines the functions available within templates.
var customTemplateFuncs = template.FuncMap{
	// fixed2 formats with two decimals, rounding half away from zero.
	"fixed2": func(d decimal.Decimal) string {
		return d.StringFixed(2)
	},
}

// LoadDefaultTemplate parses the embedded default template.
func LoadDefaultTemplate() (*template.Template, error) {
	if defaultTemplateContent == "" {
		return nil, fmt.Errorf("embedded default template content is empty (likely missing default.tmpl file)")
	}
	tmpl, err := template.New("default").Funcs(customTemplateFuncs).Parse(defaultTemplateContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse default template: %w", err)
	}
	return tmpl, nil
}

// LoadTemplateFile parses a custom report template from path.
func LoadTemplateFile(path string) (*template.Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %s: %w", path, err)
	}
	tmpl, err := template.New("custom").Funcs(customTemplateFuncs).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template file %s: %w", path, err)
	}
	return tmpl, nil
}

// Render writes one report block for summary. A nil tmpl uses the default template.
func Render(w io.Writer, tmpl *template.Template, summary report.FileSummary) error {
	if tmpl == nil {
		defaultTmpl, err := LoadDefaultTemplate()
		if err != nil {
			return err
		}
		tmpl = defaultTmpl
	}
	if err := tmpl.Execute(w, NewReportData(summary)); err != nil {
		return fmt.Errorf("template execution failed for %q: %w", tmpl.Name(), err)
	}
	return nil
}

// RenderAll writes the final reports header followed by one block per
// summary, in the order given.
func RenderAll(w io.Writer, tmpl *template.Template, summaries []report.FileSummary) error {
	if tmpl == nil {
		defaultTmpl, err := LoadDefaultTemplate()
		if err != nil {
			return err
		}
		tmpl = defaultTmpl
	}
	if _, err := fmt.Fprintln(w, report.FinalReportsHeader); err != nil {
		return fmt.Errorf("failed to write reports header: %w", err)
	}
	for _, s := range summaries {
		if err := Render(w, tmpl, s); err != nil {
			return err
		}
	}
	return nil
}
