package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/ironsheep/omr-grader/internal/model"
)

// shortID is how many characters of a sheet ID are shown.
const shortID = 12

// MarkdownWriter outputs a review summary of evaluated sheets.
type MarkdownWriter struct {
	output io.Writer
	title  string
	now    func() time.Time
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithTitle replaces the report heading.
func WithTitle(title string) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.title = title
	}
}

// WithReportClock overrides the time printed in the report header.
func WithReportClock(now func() time.Time) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.now = now
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		output: output,
		title:  "OMR Review",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *MarkdownWriter) Write(records []model.ScoreRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, records)
	w.writeSections(md, records)
	w.writeFlagged(md, records)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, records []model.ScoreRecord) {
	md.H1(w.title)
	md.PlainText("")

	flagged := 0
	for _, r := range records {
		if r.Flagged {
			flagged++
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", w.now().UTC().Format("2006-01-02 15:04:05 MST")},
			{"Sheets", strconv.Itoa(len(records))},
			{"Clean", strconv.Itoa(len(records) - flagged)},
			{"Flagged", strconv.Itoa(flagged)},
			{"Mean Score", meanScore(records)},
		},
	})
	md.PlainText("")

	switch {
	case len(records) == 0:
		md.Note("No sheets have been evaluated.")
	case flagged > 0:
		md.Warningf("%d of %d sheets need manual review.", flagged, len(records))
	default:
		md.Tip("Every sheet was graded without anomalies.")
	}
	md.PlainText("")
}

// writeSections writes the average score of every section seen in records.
func (w *MarkdownWriter) writeSections(md *markdown.Markdown, records []model.ScoreRecord) {
	type tally struct {
		score, scored, sheets int
	}
	var order []string
	totals := map[string]*tally{}
	for _, r := range records {
		for _, s := range r.Sections {
			t, ok := totals[s.Name]
			if !ok {
				t = &tally{}
				totals[s.Name] = t
				order = append(order, s.Name)
			}
			t.score += s.Score
			t.scored += s.Scored
			t.sheets++
		}
	}
	if len(order) == 0 {
		return
	}

	md.H2("Sections")
	md.PlainText("")

	rows := make([][]string, 0, len(order))
	for _, name := range order {
		t := totals[name]
		rows = append(rows, []string{
			name,
			strconv.Itoa(t.sheets),
			fmt.Sprintf("%.1f", float64(t.score)/float64(t.sheets)),
			percent(t.score, t.scored),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Section", "Sheets", "Mean Score", "Correct"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFlagged writes the review queue: a table of flagged sheets followed by
// the individual reasons of each.
func (w *MarkdownWriter) writeFlagged(md *markdown.Markdown, records []model.ScoreRecord) {
	md.H2("Flagged Sheets")
	md.PlainText("")

	var flagged []model.ScoreRecord
	for _, r := range records {
		if r.Flagged {
			flagged = append(flagged, r)
		}
	}
	if len(flagged) == 0 {
		md.PlainText("No sheets were flagged.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(flagged))
	for i, r := range flagged {
		rows[i] = []string{
			"`" + short(r.SheetID) + "`",
			orDash(r.Source),
			orDash(r.Version),
			strconv.Itoa(r.TotalScore),
			string(r.State),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Sheet", "Source", "Version", "Score", "State"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, r := range flagged {
		md.H3f("%s (%s)", orDash(r.Source), short(r.SheetID))
		md.PlainText("")
		md.BulletList(strings.Split(r.FlagReason, "; ")...)
		md.PlainText("")
	}
}

func meanScore(records []model.ScoreRecord) string {
	if len(records) == 0 {
		return "-"
	}
	total := 0
	for _, r := range records {
		total += r.TotalScore
	}
	return fmt.Sprintf("%.1f", float64(total)/float64(len(records)))
}

func percent(n, d int) string {
	if d == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", 100*float64(n)/float64(d))
}

func short(id string) string {
	if len(id) > shortID {
		return id[:shortID]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
