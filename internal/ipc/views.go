package ipc

import (
	"mediabutler/internal/batch"
	"mediabutler/internal/store"
)

// FileSummaryFrom converts a tracked file into its wire summary. The CLI
// uses it too when it reads the store directly with no daemon running.
func FileSummaryFrom(file *store.TrackedFile) FileSummary {
	return FileSummary{
		Hash:              file.Hash,
		FileName:          file.FileName,
		Status:            string(file.Status),
		SuggestedCategory: file.SuggestedCategory,
		Confidence:        file.Confidence,
		Category:          file.Category,
		TargetPath:        file.TargetPath,
		MovedToPath:       file.MovedToPath,
		SizeBytes:         file.FileSize,
		RetryCount:        file.RetryCount,
		LastError:         file.LastError,
		CreatedAt:         file.CreatedAt,
		UpdatedAt:         file.UpdatedAt,
		MovedAt:           file.MovedAt,
	}
}

// FileSummariesFrom converts a slice of tracked files.
func FileSummariesFrom(tracked []*store.TrackedFile) []FileSummary {
	out := make([]FileSummary, 0, len(tracked))
	for _, file := range tracked {
		out = append(out, FileSummaryFrom(file))
	}
	return out
}

// BatchSummaryFrom converts a batch progress snapshot.
func BatchSummaryFrom(progress *batch.Progress) BatchSummary {
	return BatchSummary{
		ID:                 progress.ID,
		State:              string(progress.State),
		Total:              progress.Total,
		Completed:          progress.Completed,
		Failed:             progress.Failed,
		CancelledRemaining: progress.CancelledRemaining,
		Errors:             progress.Errors,
		SubmittedAt:        progress.SubmittedAt,
		FinishedAt:         progress.FinishedAt,
	}
}

// LogEntryFrom converts a processing log row.
func LogEntryFrom(row *store.ProcessingLog) LogEntry {
	return LogEntry{
		Level:      string(row.Level),
		Category:   row.Category,
		Message:    row.Message,
		DurationMS: row.DurationMS,
		CreatedAt:  row.CreatedAt,
	}
}
