package out

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	epoch "beatmark/internal/modules/epoch/domain"
	"beatmark/internal/modules/session/domain"
	sessionout "beatmark/internal/modules/session/port/out"
	"beatmark/internal/platform/markdown"
)

// NoteSummaryStore writes one markdown note per dataset. Generated sections
// live in managed blocks so anything the user wrote around them survives.
type NoteSummaryStore struct {
	notesDir string
}

func NewNoteSummaryStore(notesDir string) sessionout.SummaryStore {
	return &NoteSummaryStore{notesDir: notesDir}
}

func (s *NoteSummaryStore) Save(_ context.Context, summary sessionout.Summary) (string, error) {
	if err := os.MkdirAll(s.notesDir, 0o755); err != nil {
		return "", fmt.Errorf("create notes dir: %w", err)
	}
	path := filepath.Join(s.notesDir, summary.Dataset.Key+".md")

	note := markdown.Note{
		Meta: map[string]any{},
		Body: fmt.Sprintf("# %s\n\n## Notes\n\n", summary.Dataset.Name),
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if note, err = markdown.Parse(string(raw)); err != nil {
			return "", fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read summary note: %w", err)
	}

	note.Meta["schema_version"] = domain.SchemaVersion
	note.Meta["dataset"] = summary.Dataset.Key
	note.Meta["source"] = summary.Dataset.Path
	note.Meta["session_id"] = summary.SessionID
	note.Meta["written_at"] = summary.WrittenAt.Format(time.RFC3339)
	note.Meta["markers"] = summary.Markers
	note.Meta["rows"] = len(summary.Rows)
	note.Meta["selection"] = summary.Selection
	if summary.Plugin != "" {
		note.Meta["plugin"] = summary.Plugin
	}

	note.Body = markdown.SetBlock(note.Body, "epochs", epochTable(summary))
	if len(summary.Statistics) > 0 {
		note.Body = markdown.SetBlock(note.Body, "stats", StatsTable(summary.Statistics, epochOrder(summary)))
	}

	rendered, err := note.Render()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write summary note: %w", err)
	}
	return path, nil
}

func epochTable(summary sessionout.Summary) string {
	spans := map[string]epoch.Span{}
	for _, sp := range summary.Spans {
		spans[sp.Name] = sp
	}
	var b strings.Builder
	b.WriteString("## Epochs\n\n")
	b.WriteString("| Epoch | Start | End | Active | First beat | Last beat | Beats |\n")
	b.WriteString("| --- | ---: | ---: | :---: | ---: | ---: | ---: |\n")
	for _, e := range summary.Epochs {
		sp, ok := spans[e.Name]
		first, last := "-", "-"
		if ok {
			first, last = fmt.Sprintf("%.3f", sp.Start), fmt.Sprintf("%.3f", sp.End)
		}
		fmt.Fprintf(&b, "| %s | %.3f | %.3f | %s | %s | %s | %d |\n",
			e.Name, e.Start, e.End, checkmark(summary.Selection[e.Name]), first, last, sp.Count)
	}
	if sp, ok := spans[epoch.None]; ok {
		fmt.Fprintf(&b, "| %s | - | - | %s | %.3f | %.3f | %d |\n",
			epoch.None, checkmark(summary.Selection[epoch.None]), sp.Start, sp.End, sp.Count)
	}
	return b.String()
}

// StatsTable renders per-epoch statistics as a markdown table, rows in order
// and columns sorted by name.
func StatsTable(stats sessionout.EpochStats, order []string) string {
	colSet := map[string]bool{}
	for _, values := range stats {
		for name := range values {
			colSet[name] = true
		}
	}
	cols := make([]string, 0, len(colSet))
	for name := range colSet {
		cols = append(cols, name)
	}
	sort.Strings(cols)

	var b strings.Builder
	b.WriteString("## Statistics\n\n| Epoch |")
	for _, c := range cols {
		fmt.Fprintf(&b, " %s |", c)
	}
	b.WriteString("\n| --- |")
	for range cols {
		b.WriteString(" ---: |")
	}
	b.WriteString("\n")
	for _, name := range order {
		values, ok := stats[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s |", name)
		for _, c := range cols {
			if v, ok := values[c]; ok {
				fmt.Fprintf(&b, " %.4g |", v)
			} else {
				b.WriteString(" - |")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func epochOrder(summary sessionout.Summary) []string {
	order := epoch.Names(summary.Epochs)
	order = append(order, epoch.None)
	var rest []string
	for name := range summary.Statistics {
		found := false
		for _, o := range order {
			if o == name {
				found = true
				break
			}
		}
		if !found {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func checkmark(on bool) string {
	if on {
		return "yes"
	}
	return "no"
}
