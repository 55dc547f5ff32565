package view

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Row is one label/value pair of a card.
type Row struct {
	Label string
	Value string
}

// CardProps describes a titled block of rows.
type CardProps struct {
	Title string
	Badge string
	Rows  []Row
}

// Card renders a title line followed by aligned rows.
func Card(ctx Context, w io.Writer, props CardProps) error {
	title := ctx.paint(ctx.Palette.Title, props.Title)
	if props.Badge != "" {
		title += " " + props.Badge
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range props.Rows {
		fmt.Fprintf(tw, "  %s\t%s\n", ctx.paint(ctx.Palette.Muted, row.Label), row.Value)
	}
	return tw.Flush()
}

// ListProps describes a headed bullet list.
type ListProps struct {
	Header string
	Items  []string
	Empty  string // Shown when Items is empty
}

// List renders a header and one line per item.
func List(ctx Context, w io.Writer, props ListProps) error {
	if props.Header != "" {
		if _, err := fmt.Fprintln(w, ctx.paint(ctx.Palette.Title, props.Header)); err != nil {
			return err
		}
	}
	if len(props.Items) == 0 {
		empty := props.Empty
		if empty == "" {
			empty = ctx.T("app.empty", nil)
		}
		_, err := fmt.Fprintln(w, "  "+ctx.paint(ctx.Palette.Muted, empty))
		return err
	}
	for _, item := range props.Items {
		if _, err := fmt.Fprintln(w, "  - "+item); err != nil {
			return err
		}
	}
	return nil
}

// TableProps describes a column-aligned table.
type TableProps struct {
	Headers []string
	Rows    [][]string
}

// Table renders headers and rows aligned with tabwriter.
// Colors are applied to the header only so cell widths stay correct.
func Table(ctx Context, w io.Writer, props TableProps) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(props.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(props.Headers, "\t"))
	}
	for _, row := range props.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if len(props.Rows) == 0 {
		fmt.Fprintln(tw, ctx.T("app.empty", nil))
	}
	return tw.Flush()
}

// Status classifies a badge.
type Status int

const (
	StatusNeutral Status = iota
	StatusOK
	StatusWarn
	StatusError
)

// Badge returns a short bracketed status label.
func Badge(ctx Context, text string, status Status) string {
	code := ""
	switch status {
	case StatusOK:
		code = ctx.Palette.OK
	case StatusWarn:
		code = ctx.Palette.Warn
	case StatusError:
		code = ctx.Palette.Error
	}
	return ctx.paint(code, "["+text+"]")
}
