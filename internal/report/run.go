package report

import (
	"context"
	"time"

	"github.com/woodsintl/woodsreport/internal/model"
)

// Executor runs a stored procedure. Both the in-process proxy and the HTTP
// client satisfy it.
type Executor interface {
	Execute(ctx context.Context, procedure string, params model.Params) (*model.ProxyResult, error)
}

// Metadata echoes the filters a report ran with. Dates use DD/MM/YYYY and
// are null when not picked.
type Metadata struct {
	FromDate *string `json:"fromDate"`
	ToDate   *string `json:"toDate"`
	Year     int     `json:"year"`
	Client   string  `json:"client"`
}

// Result is a report's proxy result plus the filters it ran with.
type Result struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	*model.ProxyResult
	Metadata Metadata `json:"metadata"`
}

// NewMetadata captures ui for display next to a result.
func NewMetadata(ui UIState) Metadata {
	return Metadata{
		FromDate: displayDate(ui.From),
		ToDate:   displayDate(ui.To),
		Year:     ui.Year,
		Client:   ui.Client,
	}
}

func displayDate(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(DisplayDateLayout)
	return &s
}

// Run builds the report's parameters, executes its procedure and attaches
// the metadata.
func (c *Catalog) Run(ctx context.Context, exec Executor, key string, ui UIState) (*Result, error) {
	proc, err := c.Procedure(key)
	if err != nil {
		return nil, err
	}
	params, err := c.BuildParams(key, ui)
	if err != nil {
		return nil, err
	}

	res, err := exec.Execute(ctx, proc, params)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = model.NewProxyResult()
	}
	return &Result{
		Key:         key,
		Title:       c.Title(key),
		ProxyResult: res,
		Metadata:    NewMetadata(ui),
	}, nil
}
