package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"mediabutler/internal/ipc"
)

func fileListHeaders() []string {
	return []string{"Hash", "Name", "Status", "Category", "Size", "Updated"}
}

func fileListAlignments() []columnAlignment {
	return []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}
}

func buildFileRows(files []ipc.FileSummary) [][]string {
	rows := make([][]string, 0, len(files))
	for _, file := range files {
		rows = append(rows, []string{
			shortHash(file.Hash),
			file.FileName,
			formatStatusLabel(file.Status),
			effectiveCategory(file),
			humanize.Bytes(uint64(file.SizeBytes)),
			formatDisplayTime(file.UpdatedAt),
		})
	}
	return rows
}

// effectiveCategory prefers the confirmed category and falls back to the
// suggestion with its confidence.
func effectiveCategory(file ipc.FileSummary) string {
	if strings.TrimSpace(file.Category) != "" {
		return file.Category
	}
	if strings.TrimSpace(file.SuggestedCategory) != "" {
		if file.Confidence != nil {
			return fmt.Sprintf("%s (%.0f%%)", file.SuggestedCategory, *file.Confidence*100)
		}
		return file.SuggestedCategory
	}
	return "-"
}

func buildFileStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildBatchRows(batches []ipc.BatchSummary) [][]string {
	rows := make([][]string, 0, len(batches))
	for _, b := range batches {
		rows = append(rows, []string{
			b.ID,
			formatStatusLabel(b.State),
			fmt.Sprintf("%d/%d", b.Completed, b.Total),
			fmt.Sprintf("%d", b.Failed),
			formatDisplayTime(b.SubmittedAt),
		})
	}
	return rows
}

func renderFileDetail(w io.Writer, detail ipc.ShowFileResponse) {
	file := detail.File
	fmt.Fprintf(w, "Hash:     %s\n", file.Hash)
	fmt.Fprintf(w, "Name:     %s\n", file.FileName)
	fmt.Fprintf(w, "Status:   %s\n", formatStatusLabel(file.Status))
	fmt.Fprintf(w, "Size:     %s\n", humanize.Bytes(uint64(file.SizeBytes)))
	fmt.Fprintf(w, "Category: %s\n", effectiveCategory(file))
	if strings.TrimSpace(file.TargetPath) != "" {
		fmt.Fprintf(w, "Target:   %s\n", file.TargetPath)
	}
	if strings.TrimSpace(file.MovedToPath) != "" {
		fmt.Fprintf(w, "Moved to: %s\n", file.MovedToPath)
		if file.MovedAt != nil {
			fmt.Fprintf(w, "Moved at: %s\n", formatDisplayTime(*file.MovedAt))
		}
	}
	if strings.TrimSpace(file.LastError) != "" {
		fmt.Fprintf(w, "Error:    %s (attempt %d)\n", file.LastError, file.RetryCount)
	}

	if len(detail.Logs) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "History:")
	renderLogEntries(w, detail.Logs)
}

func renderLogEntries(w io.Writer, logs []ipc.LogEntry) {
	for _, entry := range logs {
		line := fmt.Sprintf("  %s %-5s %s", formatDisplayTime(entry.CreatedAt), entry.Level, entry.Message)
		if entry.DurationMS > 0 {
			line += fmt.Sprintf(" (%s)", time.Duration(entry.DurationMS)*time.Millisecond)
		}
		fmt.Fprintln(w, line)
	}
}

func renderBatchDetail(w io.Writer, b ipc.BatchSummary) {
	fmt.Fprintf(w, "Batch:     %s\n", b.ID)
	fmt.Fprintf(w, "State:     %s\n", formatStatusLabel(b.State))
	fmt.Fprintf(w, "Progress:  %d/%d completed, %d failed\n", b.Completed, b.Total, b.Failed)
	if b.CancelledRemaining > 0 {
		fmt.Fprintf(w, "Skipped:   %d (batch cancelled)\n", b.CancelledRemaining)
	}
	fmt.Fprintf(w, "Submitted: %s\n", formatDisplayTime(b.SubmittedAt))
	if b.FinishedAt != nil {
		fmt.Fprintf(w, "Finished:  %s\n", formatDisplayTime(*b.FinishedAt))
	}
	if len(b.Errors) == 0 {
		return
	}
	fmt.Fprintln(w, "Errors:")
	hashes := make([]string, 0, len(b.Errors))
	for hash := range b.Errors {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)
	for _, hash := range hashes {
		fmt.Fprintf(w, "  %s: %s\n", shortHash(hash), b.Errors[hash])
	}
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}
