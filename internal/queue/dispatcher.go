package queue

import (
	"context"
	"fmt"
	"log/slog"

	"mediabutler/internal/classifier"
	"mediabutler/internal/events"
	"mediabutler/internal/files"
	"mediabutler/internal/logging"
	"mediabutler/internal/organizer"
	"mediabutler/internal/recovery"
	"mediabutler/internal/store"
	"mediabutler/internal/tokenizer"
)

// BatchRunner executes one submitted batch to completion. Implemented by
// the batch orchestrator; declared here so jobs can carry batch work
// without a package cycle.
type BatchRunner interface {
	Run(ctx context.Context, batchID string) error
}

// Dispatcher routes jobs to the pipeline stage their kind names.
type Dispatcher struct {
	files      *files.Service
	classifier classifier.Classifier
	organizer  *organizer.Organizer
	batches    BatchRunner
	sink       events.Sink
	logger     *slog.Logger
}

// NewDispatcher wires job routing. batches may be nil when batch jobs are
// not enabled.
func NewDispatcher(
	fileService *files.Service,
	fileClassifier classifier.Classifier,
	fileOrganizer *organizer.Organizer,
	batches BatchRunner,
	sink events.Sink,
	logger *slog.Logger,
) *Dispatcher {
	if sink == nil {
		sink = events.NopSink{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		files:      fileService,
		classifier: fileClassifier,
		organizer:  fileOrganizer,
		batches:    batches,
		sink:       sink,
		logger:     logging.NewComponentLogger(logger, "dispatcher"),
	}
}

// Handle runs one job.
func (d *Dispatcher) Handle(ctx context.Context, job *Job) error {
	switch job.Kind {
	case KindClassify:
		return d.classify(ctx, job)
	case KindOrganize:
		_, err := d.organizer.Organize(ctx, job.FileHash, job.Category)
		return err
	case KindBatchOrganize:
		if d.batches == nil {
			return recovery.Wrap(recovery.ErrValidation, "dispatcher", "handle", "batch processing is not enabled", nil)
		}
		return d.batches.Run(ctx, job.BatchID)
	default:
		return recovery.Wrap(recovery.ErrValidation, "dispatcher", "handle",
			fmt.Sprintf("unknown job kind %q", job.Kind), nil)
	}
}

func (d *Dispatcher) classify(ctx context.Context, job *Job) error {
	file, err := d.files.Get(ctx, job.FileHash)
	if err != nil {
		return err
	}
	if file.Status != store.StatusNew && file.Status != store.StatusRetry {
		// Already past classification, nothing to do.
		d.logger.Debug("classify skipped",
			slog.String(logging.FieldFileHash, job.FileHash),
			slog.String("status", string(file.Status)))
		return nil
	}

	if _, err := d.files.BeginProcessing(ctx, job.FileHash); err != nil {
		return err
	}

	tokens := tokenizer.Tokenize(file.FileName)
	result, err := d.classifier.Classify(ctx, tokens.SeriesTokens, file.FileName)
	if err != nil {
		return d.classificationFault(ctx, file, err)
	}

	if _, err := d.files.UpdateClassification(ctx, job.FileHash, result.Category, result.Confidence); err != nil {
		return err
	}
	d.logger.Info("file classified",
		slog.String(logging.FieldFileHash, job.FileHash),
		slog.String("category", result.Category),
		slog.Float64("confidence", result.Confidence))
	return nil
}

func (d *Dispatcher) classificationFault(ctx context.Context, file *store.TrackedFile, cause error) error {
	failed, recErr := d.files.RecordError(ctx, file.Hash, cause.Error(), map[string]any{
		"kind": string(recovery.KindOf(cause)),
	})
	if recErr != nil {
		d.logger.Warn("record classification error failed",
			slog.String(logging.FieldFileHash, file.Hash),
			slog.String("error", recErr.Error()))
		failed = file
	}
	_ = d.sink.Publish(ctx, events.New(events.ErrorClassificationFault, map[string]any{
		"hash":        file.Hash,
		"reason":      cause.Error(),
		"retry_count": failed.RetryCount,
	}))
	return cause
}
