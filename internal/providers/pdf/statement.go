package pdf

import (
	"context"
	"errors"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// StatementDocument is the printable form of an account statement. Amounts
// are already formatted.
type StatementDocument struct {
	Title       string
	SchoolName  string
	AccountName string
	AccountRef  string
	Currency    string
	GeneratedAt string

	Lines []StatementLine

	TotalInvoiced string
	TotalPaid     string
	TotalPending  string
}

type StatementLine struct {
	Reference   string
	Description string
	IssuedAt    string
	DueDate     string
	Status      string
	Amount      string
	Paid        string
	Pending     string
}

var ErrEmptyTitle = errors.New("statement document requires a title")

type MarotoProvider struct{}

func New() Provider {
	return &MarotoProvider{}
}

func (p *MarotoProvider) RenderStatement(ctx context.Context, doc StatementDocument) ([]byte, error) {
	if doc.Title == "" {
		return nil, ErrEmptyTitle
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, doc.Title, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(22,
		col.New(6).Add(
			text.New(doc.SchoolName, props.Text{Style: fontstyle.Bold}),
			text.New("Currency: "+doc.Currency, props.Text{Top: 5}),
		),
		col.New(6).Add(
			text.New(doc.AccountName, props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(doc.AccountRef, props.Text{Top: 5, Align: align.Right}),
			text.New("Generated: "+doc.GeneratedAt, props.Text{Top: 10, Align: align.Right}),
		),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 8}
	headerRight := props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}
	m.AddRow(8,
		text.NewCol(3, "Invoice", header),
		text.NewCol(2, "Due", header),
		text.NewCol(1, "Status", header),
		text.NewCol(2, "Amount", headerRight),
		text.NewCol(2, "Paid", headerRight),
		text.NewCol(2, "Pending", headerRight),
	)
	m.AddRow(2, line.NewCol(12))

	cell := props.Text{Size: 8}
	cellRight := props.Text{Size: 8, Align: align.Right}
	for _, l := range doc.Lines {
		label := l.Reference
		if l.Description != "" {
			label += " " + l.Description
		}
		m.AddRow(8,
			text.NewCol(3, label, cell),
			text.NewCol(2, l.DueDate, cell),
			text.NewCol(1, l.Status, cell),
			text.NewCol(2, l.Amount, cellRight),
			text.NewCol(2, l.Paid, cellRight),
			text.NewCol(2, l.Pending, cellRight),
		)
	}
	if len(doc.Lines) == 0 {
		m.AddRow(8, text.NewCol(12, "No open invoices.", props.Text{Size: 8, Style: fontstyle.Italic}))
	}

	m.AddRow(2, line.NewCol(12))
	totals := []struct{ label, value string }{
		{"Total invoiced", doc.TotalInvoiced},
		{"Total paid", doc.TotalPaid},
		{"Balance due", doc.TotalPending},
	}
	for i, t := range totals {
		style := props.Text{Size: 9}
		if i == len(totals)-1 {
			style.Style = fontstyle.Bold
		}
		valueStyle := style
		valueStyle.Align = align.Right
		m.AddRow(7,
			col.New(7),
			text.NewCol(3, t.label, style),
			text.NewCol(2, t.value+" "+doc.Currency, valueStyle),
		)
	}

	out, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return out.GetBytes(), nil
}
