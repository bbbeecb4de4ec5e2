package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/glorpus-work/clawstrap/pkg/events"
)

var stdout io.Writer = os.Stdout

// SetOutput redirects command results to w and returns a function restoring
// the previous writer.
func SetOutput(w io.Writer) (restore func()) {
	prev := stdout
	stdout = w
	return func() { stdout = prev }
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, _ = fmt.Fprintln(stdout, string(data))
	return nil
}

// printMessage prints a command's string result, quoted as JSON in json mode.
func printMessage(asJSON bool, msg string) error {
	if asJSON {
		return printJSON(map[string]string{"result": msg})
	}
	_, _ = fmt.Fprintln(stdout, msg)
	return nil
}

func renderTable(header []string, rows [][]string) error {
	table := tablewriter.NewWriter(stdout)
	table.Options(
		tablewriter.WithHeader(header),
		tablewriter.WithRendition(
			tw.Rendition{
				Borders: tw.Border{
					Left:   tw.State(1),
					Top:    tw.State(1),
					Right:  tw.State(1),
					Bottom: tw.State(1),
				},
			},
		),
		tablewriter.WithAlignment(tw.MakeAlign(len(header), tw.AlignLeft)),
	)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func check(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}

// progressPrinter renders install steps and download progress as lines. In
// json mode every event is one JSON object per line.
type progressPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	asJSON bool
	last   map[string]events.Phase
}

func newProgressPrinter(w io.Writer, asJSON bool) *progressPrinter {
	return &progressPrinter{w: w, asJSON: asJSON, last: map[string]events.Phase{}}
}

// Publish implements events.Sink.
func (p *progressPrinter) Publish(topic string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.asJSON {
		data, err := json.Marshal(events.Event{Topic: topic, Payload: payload})
		if err == nil {
			_, _ = fmt.Fprintln(p.w, string(data))
		}
		return
	}

	switch ev := payload.(type) {
	case events.StepRecord:
		_, _ = fmt.Fprintf(p.w, "[%s] %s: %s\n", ev.Status, ev.ID, ev.Message)
		if ev.Log != nil && ev.Status == events.StatusError {
			_, _ = fmt.Fprintln(p.w, *ev.Log)
		}
	case events.DownloadProgress:
		// Only phase changes are printed.
		if p.last[ev.ID] == ev.Phase && ev.Phase == events.PhaseDownloading {
			return
		}
		p.last[ev.ID] = ev.Phase
		line := fmt.Sprintf("%s: %s", ev.ID, ev.Phase)
		if ev.Total > 0 {
			line += fmt.Sprintf(" (%d of %d bytes)", ev.Downloaded, ev.Total)
		}
		if ev.Error != nil {
			line += ": " + *ev.Error
		}
		_, _ = fmt.Fprintln(p.w, line)
	}
}
