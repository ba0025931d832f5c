package report

import (
	"time"

	"github.com/woodsintl/woodsreport/internal/model"
)

// UIState holds the report filter fields. A zero From or To means the date
// was not picked. An empty Client means all clients.
type UIState struct {
	Year   int
	Client string
	From   time.Time
	To     time.Time
}

// Date layouts used for parameters and for result metadata.
const (
	ParamDateLayout   = "2006-01-02"
	DisplayDateLayout = "02/01/2006"
)

// paramBuilders selects the parameter shape by the inputs a report needs.
var paramBuilders = map[Inputs]func(UIState) model.Params{
	0: func(UIState) model.Params {
		return model.Params{}
	},
	InputYear: func(ui UIState) model.Params {
		return model.Params{"year": int64(ui.Year)}
	},
	InputYear | InputClient: func(ui UIState) model.Params {
		return model.Params{"year": int64(ui.Year), "client": ui.Client}
	},
	InputDateRange: func(ui UIState) model.Params {
		return model.Params{
			"from_date": formatDate(ui.From, ParamDateLayout),
			"to_date":   formatDate(ui.To, ParamDateLayout),
		}
	},
}

// BuildParams returns exactly the parameter mapping the report's procedure
// expects for the given UI state. It performs no I/O.
func (c *Catalog) BuildParams(key string, ui UIState) (model.Params, error) {
	r, err := c.Get(key)
	if err != nil {
		return nil, err
	}
	return buildFor(r.Inputs, ui), nil
}

// BuildParams builds parameters against the default catalog.
func BuildParams(key string, ui UIState) (model.Params, error) {
	return Default().BuildParams(key, ui)
}

func buildFor(inputs Inputs, ui UIState) model.Params {
	if build, ok := paramBuilders[inputs]; ok {
		return build(ui)
	}
	// Combinations without a dedicated shape bind every input they name.
	p := model.Params{}
	if inputs.Has(InputYear) {
		p["year"] = int64(ui.Year)
	}
	if inputs.Has(InputClient) {
		p["client"] = ui.Client
	}
	if inputs.Has(InputDateRange) {
		p["from_date"] = formatDate(ui.From, ParamDateLayout)
		p["to_date"] = formatDate(ui.To, ParamDateLayout)
	}
	return p
}

func formatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

// yearSpan is how many selectable years the filters offer.
const yearSpan = 6

// YearChoices returns the selectable years, newest first, ending with the
// year of now.
func YearChoices(now time.Time) []int {
	years := make([]int, yearSpan)
	for i := range years {
		years[i] = now.Year() - i
	}
	return years
}

// ParseDate parses a date typed as YYYY-MM-DD or DD/MM/YYYY. An empty
// string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(ParamDateLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(DisplayDateLayout, s)
}
