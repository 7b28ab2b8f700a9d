package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/groblegark/audittrail/internal/bench"
	"github.com/groblegark/audittrail/internal/model"
	"github.com/groblegark/audittrail/internal/ui"
)

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func formatTime(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
}

func printEventListTable(page *model.EventPage) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tACTOR\tACTION\tRESOURCE")
	for _, ev := range page.Events {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			ev.ID,
			formatTime(ev.CreatedAt),
			ev.ActorID,
			ev.Action,
			ev.ResourceID,
		)
	}
	w.Flush()
	fmt.Printf("\n%d events (page %d, size %d)\n", page.Count, page.Query.Page, page.Query.PageSize)
}

func printEventDetail(ev *model.AuditEvent) {
	fmt.Printf("ID:        %d\n", ev.ID)
	fmt.Printf("Time:      %s\n", formatTime(ev.CreatedAt))
	fmt.Printf("Actor:     %d\n", ev.ActorID)
	fmt.Printf("Action:    %s\n", ev.Action)
	fmt.Printf("Resource:  %s (%s)\n", ev.ResourceID, ev.ResourceType)
	if len(ev.Payload) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, ev.Payload, "", "  "); err != nil {
			fmt.Printf("Payload:   %s\n", ev.Payload)
			return
		}
		fmt.Printf("Payload:\n%s\n", buf.String())
	}
}

func printStatsTable(stats *model.Stats) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "rows:\t%d\n", stats.Rows)
	fmt.Fprintf(w, "distinct actors:\t%d\n", stats.DistinctActors)
	fmt.Fprintf(w, "distinct actions:\t%d\n", stats.DistinctActions)
	fmt.Fprintf(w, "built at:\t%s\n", formatTime(stats.BuiltAt))
	fmt.Fprintf(w, "build time:\t%dms\n", stats.BuildMS)
	fmt.Fprintf(w, "strategy:\t%s\n", ui.RenderAccent(stats.Strategy))
	w.Flush()
}

func printReportTable(report *bench.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "requests:\t%d\n", report.Count)
	fmt.Fprintf(w, "concurrency:\t%d\n", report.Concurrency)
	fmt.Fprintf(w, "rps:\t%.1f\n", report.RPS)
	fmt.Fprintf(w, "p50:\t%.2fms\n", report.P50MS)
	fmt.Fprintf(w, "p90:\t%.2fms\n", report.P90MS)
	fmt.Fprintf(w, "p95:\t%.2fms\n", report.P95MS)
	fmt.Fprintf(w, "p99:\t%.2fms\n", report.P99MS)
	fmt.Fprintf(w, "avg:\t%.2fms\n", report.AvgMS)
	w.Flush()
}
