package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"github.com/woodsintl/woodsreport/internal/model"
	"github.com/woodsintl/woodsreport/internal/report"
)

// Options controls how a report result is written.
type Options struct {
	Format Format
	SortBy string
	Desc   bool
}

// View renders the result of one kind of report.
type View interface {
	Render(w io.Writer, res *report.Result, opts Options) error
}

// tableView writes every recordset as a table. With byMonth set and no
// explicit sort, rows are put in calendar order of their month column.
type tableView struct {
	byMonth bool
}

// views selects the view of each report key. Keys without an entry use
// defaultView.
var views = map[string]View{
	"container_month_wise": tableView{byMonth: true},
	"log_buying_summary":   tableView{byMonth: true},
}

var defaultView View = tableView{}

// ViewFor returns the view registered for a report key.
func ViewFor(key string) View {
	if v, ok := views[key]; ok {
		return v
	}
	return defaultView
}

// Report writes res with the view registered for its key.
func Report(w io.Writer, res *report.Result, opts Options) error {
	return ViewFor(res.Key).Render(w, res, opts)
}

func (v tableView) Render(w io.Writer, res *report.Result, opts Options) error {
	var sets []model.Recordset
	if res.ProxyResult != nil {
		sets = res.Recordsets
	}

	switch opts.Format {
	case FormatJSON:
		return JSON(w, res)
	case FormatXLSX:
		ordered := make([]model.Recordset, len(sets))
		for i, rs := range sets {
			ordered[i] = v.order(rs, opts)
		}
		return XLSX(w, res.Title, ordered)
	case FormatCSV:
		for i, rs := range sets {
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if err := CSV(w, v.order(rs, opts)); err != nil {
				return err
			}
		}
		return nil
	}

	if _, err := fmt.Fprintln(w, pterm.Bold.Sprint(res.Title)); err != nil {
		return err
	}
	if line := metadataLine(res.Metadata); line != "" {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if len(sets) == 0 {
		_, err := fmt.Fprintln(w, "No rows")
		return err
	}
	for _, rs := range sets {
		if err := Table(w, v.order(rs, opts)); err != nil {
			return err
		}
	}
	return nil
}

func (v tableView) order(rs model.Recordset, opts Options) model.Recordset {
	if opts.SortBy != "" {
		return SortRows(rs, opts.SortBy, opts.Desc)
	}
	if v.byMonth {
		if col, ok := MonthColumn(Columns(rs)); ok {
			return SortRows(rs, col, false)
		}
	}
	return rs
}

func metadataLine(m report.Metadata) string {
	var parts []string
	if m.Year != 0 {
		parts = append(parts, fmt.Sprintf("Year: %d", m.Year))
	}
	if m.Client != "" {
		parts = append(parts, "Client: "+m.Client)
	}
	if m.FromDate != nil {
		parts = append(parts, "From: "+*m.FromDate)
	}
	if m.ToDate != nil {
		parts = append(parts, "To: "+*m.ToDate)
	}
	return strings.Join(parts, "  ")
}

// Reports writes the catalog as a table.
func Reports(w io.Writer, reports []report.Report) error {
	data := pterm.TableData{{"Key", "Title", "Category", "Inputs", "Procedure"}}
	for _, r := range reports {
		proc := r.Procedure
		if proc == "" {
			proc = "(not configured)"
		}
		data = append(data, []string{r.Key, r.Title, string(r.Category), r.Inputs.String(), proc})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// Status writes the pool status in a box.
func Status(w io.Writer, st model.StoreStatus) error {
	state := pterm.FgGreen.Sprint(st.Status)
	if st.Status != model.StatusConnected {
		state = pterm.FgRed.Sprint(st.Status)
	}
	body := fmt.Sprintf("Store:    %s\nDatabase: %s\nStatus:   %s", st.Store, st.Database, state)
	_, err := fmt.Fprintln(w, pterm.DefaultBox.WithTitle("Database").WithPadding(1).Sprint(body))
	return err
}
