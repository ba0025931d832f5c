// Package report holds the catalog of canned reports and builds the
// parameter mapping each report's stored procedure expects.
package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownReport is returned for a key that is not in the catalog.
	ErrUnknownReport = errors.New("unknown report")
	// ErrNoProcedure is returned for a report with no procedure configured.
	ErrNoProcedure = errors.New("report has no procedure configured")
)

// DefaultTitle is shown for keys that are not in the catalog.
const DefaultTitle = "Result"

// Category groups reports the way the dashboard menus do.
type Category string

const (
	CategoryReports Category = "reports"
	CategoryLogs    Category = "logs"
)

// Inputs is the set of UI fields a report is parameterized by.
type Inputs uint8

const (
	InputYear Inputs = 1 << iota
	InputClient
	InputDateRange
)

// Has reports whether every input in in is required.
func (i Inputs) Has(in Inputs) bool { return i&in == in }

// Names lists the inputs as they appear on the command line.
func (i Inputs) Names() []string {
	var out []string
	if i.Has(InputYear) {
		out = append(out, "year")
	}
	if i.Has(InputClient) {
		out = append(out, "client")
	}
	if i.Has(InputDateRange) {
		out = append(out, "from", "to")
	}
	return out
}

func (i Inputs) String() string {
	if i == 0 {
		return "none"
	}
	return strings.Join(i.Names(), ", ")
}

// Param describes one procedure parameter a report binds.
type Param struct {
	Name    string
	SQLType string
}

// Report is one catalog entry.
type Report struct {
	Key         string
	Title       string
	Description string
	Procedure   string
	Category    Category
	Inputs      Inputs
}

// Params lists the procedure parameters the report binds, in a fixed order.
func (r Report) Params() []Param {
	var out []Param
	if r.Inputs.Has(InputYear) {
		out = append(out, Param{Name: "year", SQLType: "int"})
	}
	if r.Inputs.Has(InputClient) {
		out = append(out, Param{Name: "client", SQLType: "nvarchar"})
	}
	if r.Inputs.Has(InputDateRange) {
		out = append(out,
			Param{Name: "from_date", SQLType: "date"},
			Param{Name: "to_date", SQLType: "date"},
		)
	}
	return out
}

var builtin = []Report{
	{
		Key:         "container_loading_report",
		Title:       "Container Loading",
		Description: "Container loading analytics with MTD and monthly trends",
		Procedure:   "proc_get_summary_container",
		Category:    CategoryReports,
	},
	{
		Key:         "container_month_wise",
		Title:       "Container Month Wise",
		Description: "Monthly container loading for a year",
		Procedure:   "proc_getcontainersumyear",
		Category:    CategoryReports,
		Inputs:      InputYear,
	},
	{
		Key:         "container_client_wise",
		Title:       "Container Client Wise",
		Description: "Container detail for a year and client",
		Procedure:   "proc_getcontainerclientwise",
		Category:    CategoryReports,
		Inputs:      InputYear | InputClient,
	},
	{
		Key:         "date_wise_grading",
		Title:       "Date Wise Grading",
		Description: "Grading by thickness over a date range",
		Procedure:   "proc_gradesearchreport_date22",
		Category:    CategoryReports,
		Inputs:      InputDateRange,
	},
	{
		Key:         "grading_summary",
		Title:       "Grading Summary",
		Description: "Grade totals over a date range",
		Procedure:   "proc_gradesearchreport_grade22",
		Category:    CategoryReports,
		Inputs:      InputDateRange,
	},
	{
		Key:         "daily_grading_report",
		Title:       "Daily Grading Report",
		Description: "Part-sheet grading per day over a date range",
		Procedure:   "proc_gradesearch_partsheet_Norm",
		Category:    CategoryReports,
		Inputs:      InputDateRange,
	},
	{
		Key:      "current_log_stock",
		Title:    "Current Log Stock",
		Category: CategoryLogs,
	},
	{
		Key:      "log_closing_stock",
		Title:    "Log Closing Stock - As On Date",
		Category: CategoryLogs,
		Inputs:   InputDateRange,
	},
	{
		Key:      "log_buying_summary",
		Title:    "Log Buying Summary Month Wise",
		Category: CategoryLogs,
	},
	{
		Key:      "log_invoice_summary",
		Title:    "Log Invoice Summary",
		Category: CategoryLogs,
	},
	{
		Key:      "log_cutting_summary",
		Title:    "Log Cutting Summary",
		Category: CategoryLogs,
	},
}

// Catalog is an immutable, ordered set of reports.
type Catalog struct {
	reports []Report
	byKey   map[string]int
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return newCatalog(builtin)
}

func newCatalog(reports []Report) *Catalog {
	c := &Catalog{
		reports: make([]Report, len(reports)),
		byKey:   make(map[string]int, len(reports)),
	}
	copy(c.reports, reports)
	for i, r := range c.reports {
		c.byKey[r.Key] = i
	}
	return c
}

// WithProcedures returns a copy of c with procedure names replaced for the
// given report keys. Empty values are ignored.
func (c *Catalog) WithProcedures(overrides map[string]string) (*Catalog, error) {
	out := newCatalog(c.reports)
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		proc := strings.TrimSpace(overrides[key])
		if proc == "" {
			continue
		}
		i, ok := out.byKey[key]
		if !ok {
			return nil, fmt.Errorf("procedure override for %q: %w", key, ErrUnknownReport)
		}
		out.reports[i].Procedure = proc
	}
	return out, nil
}

// Get returns the report for key.
func (c *Catalog) Get(key string) (Report, error) {
	i, ok := c.byKey[key]
	if !ok {
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownReport, key)
	}
	return c.reports[i], nil
}

// Lookup reports whether key names a catalog entry and returns it.
func (c *Catalog) Lookup(key string) (Report, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return Report{}, false
	}
	return c.reports[i], true
}

// List returns the reports in category, or all reports when category is
// empty, in catalog order.
func (c *Catalog) List(category Category) []Report {
	out := make([]Report, 0, len(c.reports))
	for _, r := range c.reports {
		if category == "" || r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// Title returns the display title for key, or DefaultTitle.
func (c *Catalog) Title(key string) string {
	if r, ok := c.Lookup(key); ok {
		return r.Title
	}
	return DefaultTitle
}

// Procedure returns the procedure a report runs.
func (c *Catalog) Procedure(key string) (string, error) {
	r, err := c.Get(key)
	if err != nil {
		return "", err
	}
	if r.Procedure == "" {
		return "", fmt.Errorf("%s: %w", key, ErrNoProcedure)
	}
	return r.Procedure, nil
}
