package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
	"github.com/Aman-CERP/vaultsearch/internal/index"
	"github.com/Aman-CERP/vaultsearch/internal/preflight"
	"github.com/Aman-CERP/vaultsearch/internal/search"
	"github.com/Aman-CERP/vaultsearch/internal/store"
)

// Printer writes command results in the configured format.
type Printer struct {
	out    io.Writer
	format Format
	styles Styles
}

// NewPrinter creates a Printer for cfg.
func NewPrinter(cfg Config) *Printer {
	f := cfg.Format
	if f == "" {
		f = FormatText
	}
	return &Printer{
		out:    cfg.Output,
		format: f,
		styles: GetStyles(cfg.NoColor),
	}
}

// Format returns the output format.
func (p *Printer) Format() Format {
	return p.format
}

type resultsDoc struct {
	Query   string           `json:"query"`
	Count   int              `json:"count"`
	Results []*search.Result `json:"results"`
}

// Results prints search results in rank order.
func (p *Printer) Results(query string, results []*search.Result) error {
	if p.format == FormatJSON {
		if results == nil {
			results = []*search.Result{}
		}
		return p.json(resultsDoc{Query: query, Count: len(results), Results: results})
	}

	if len(results) == 0 {
		return p.printf("%s\n", p.styles.Warning.Render(fmt.Sprintf("No results for %q", query)))
	}

	noun := "results"
	if len(results) == 1 {
		noun = "result"
	}
	if err := p.printf("%s\n", p.styles.Header.Render(fmt.Sprintf("%d %s for %q", len(results), noun, query))); err != nil {
		return err
	}
	for i, r := range results {
		loc := ""
		if r.PageNumber != nil {
			loc = " " + p.styles.Label.Render(fmt.Sprintf("p.%d", *r.PageNumber))
		}
		if err := p.printf("\n%2d. %s%s  %s  %s\n    %s\n",
			i+1,
			p.styles.Item.Render(r.ItemID),
			loc,
			p.styles.Dim.Render(fmt.Sprintf("%.3f", r.Score)),
			p.styles.Match.Render(string(r.MatchType)),
			indent(r.Excerpt),
		); err != nil {
			return err
		}
	}
	return nil
}

// indent keeps multi-line excerpts aligned under their heading.
func indent(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n    ")
}

type statsDoc struct {
	store.Stats
	ItemIDs []string `json:"item_ids,omitempty"`
}

// Stats prints index counts, and the item IDs when given.
func (p *Printer) Stats(stats store.Stats, itemIDs []string) error {
	if p.format == FormatJSON {
		return p.json(statsDoc{Stats: stats, ItemIDs: itemIDs})
	}

	missing := stats.Chunks - stats.Embeddings
	rows := [][2]string{
		{"Items", fmt.Sprint(stats.Items)},
		{"Chunks", fmt.Sprint(stats.Chunks)},
		{"Embeddings", fmt.Sprint(stats.Embeddings)},
	}
	if missing > 0 {
		rows = append(rows, [2]string{"Missing embeddings", p.styles.Warning.Render(fmt.Sprint(missing))})
	}
	if err := p.table(rows); err != nil {
		return err
	}
	for _, id := range itemIDs {
		if err := p.printf("  %s\n", id); err != nil {
			return err
		}
	}
	return nil
}

// BatchReport prints the outcome of an indexing run.
func (p *Printer) BatchReport(r index.BatchReport) error {
	if p.format == FormatJSON {
		return p.json(r)
	}

	status := p.styles.Success.Render("Indexed")
	if r.Cancelled {
		status = p.styles.Warning.Render("Cancelled after")
	}
	if err := p.printf("%s %d item(s), %d chunk(s) in %s\n",
		status, r.Items, r.Chunks, r.Duration.Round(time.Millisecond)); err != nil {
		return err
	}

	rows := [][2]string{{"Embedded", fmt.Sprint(r.Embedded)}}
	if r.EmbedFailures > 0 {
		rows = append(rows, [2]string{"Embed failures", p.styles.Warning.Render(fmt.Sprint(r.EmbedFailures))})
	}
	if r.ExtractFailures > 0 {
		rows = append(rows, [2]string{"Extract failures", p.styles.Error.Render(fmt.Sprint(r.ExtractFailures))})
	}
	if r.LexicalOnly {
		rows = append(rows, [2]string{"Mode", p.styles.Warning.Render("lexical only (model unavailable, run backfill later)")})
	}
	return p.table(rows)
}

// BackfillReport prints the outcome of an embedding backfill.
func (p *Printer) BackfillReport(r index.BackfillReport) error {
	if p.format == FormatJSON {
		return p.json(r)
	}

	if r.Candidates == 0 {
		return p.printf("%s\n", p.styles.Success.Render("All chunks have embeddings"))
	}
	rows := [][2]string{
		{"Candidates", fmt.Sprint(r.Candidates)},
		{"Embedded", fmt.Sprint(r.Embedded)},
	}
	if r.Failures > 0 {
		rows = append(rows, [2]string{"Failures", p.styles.Warning.Render(fmt.Sprint(r.Failures))})
	}
	if r.Cancelled {
		rows = append(rows, [2]string{"Status", p.styles.Warning.Render("cancelled")})
	}
	return p.table(rows)
}

type checksDoc struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

// Checks prints preflight results followed by the overall status.
func (p *Printer) Checks(results []preflight.CheckResult) error {
	summary := preflight.SummaryStatus(results)
	if p.format == FormatJSON {
		return p.json(checksDoc{Status: summary, Checks: results})
	}

	width := 0
	for _, r := range results {
		width = max(width, len(r.Name))
	}
	for _, r := range results {
		status := r.Status.String()
		switch r.Status {
		case preflight.StatusPass:
			status = p.styles.Success.Render(status)
		case preflight.StatusWarn:
			status = p.styles.Warning.Render(status)
		default:
			status = p.styles.Error.Render(status)
		}
		name := p.styles.Label.Render(fmt.Sprintf("%-*s", width, r.Name))
		if err := p.printf("[%s] %s  %s\n", status, name, r.Message); err != nil {
			return err
		}
	}

	switch summary {
	case "failed":
		summary = p.styles.Error.Render(strings.ToUpper(summary))
	case "ready":
		summary = p.styles.Success.Render(strings.ToUpper(summary))
	default:
		summary = p.styles.Warning.Render(strings.ToUpper(summary))
	}
	return p.printf("\nStatus: %s\n", summary)
}

// Success prints a one-line confirmation.
func (p *Printer) Success(format string, args ...any) error {
	if p.format == FormatJSON {
		return p.json(map[string]string{"status": "ok", "message": fmt.Sprintf(format, args...)})
	}
	return p.printf("%s\n", p.styles.Success.Render(fmt.Sprintf(format, args...)))
}

// Error prints err with its code, cause and hint.
func (p *Printer) Error(err error) {
	if p.format == FormatJSON {
		if data, jerr := verrors.FormatJSON(err); jerr == nil {
			_, _ = fmt.Fprintln(p.out, string(data))
			return
		}
	}
	_, _ = fmt.Fprint(p.out, p.styles.Error.Render(strings.TrimRight(verrors.FormatForCLI(err), "\n"))+"\n")
}

func (p *Printer) table(rows [][2]string) error {
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	for _, r := range rows {
		label := p.styles.Label.Render(fmt.Sprintf("%-*s", width, r[0]))
		if err := p.printf("  %s  %s\n", label, r[1]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) json(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Printer) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(p.out, format, args...)
	return err
}
