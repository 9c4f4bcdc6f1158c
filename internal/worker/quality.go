package worker

import (
	"context"
	"encoding/json"

	"ingestion-portal/internal/logger"
	"ingestion-portal/internal/model"
	"ingestion-portal/internal/queue"

	"github.com/rs/zerolog"
)

type ResultApplier interface {
	ApplyQualityResult(ctx context.Context, result model.DQResult) error
}

type ResultSource interface {
	ConsumeDQResults(ctx context.Context, handler queue.MessageHandler) error
}

// QualityResultWorker records the outcome of data-quality checks published by the
// out-of-process checker.
type QualityResultWorker struct {
	source  ResultSource
	uploads ResultApplier
	log     zerolog.Logger
}

func NewQualityResultWorker(source ResultSource, uploads ResultApplier) *QualityResultWorker {
	return &QualityResultWorker{
		source:  source,
		uploads: uploads,
		log:     logger.Component("quality-result-worker"),
	}
}

func (w *QualityResultWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting quality result worker")
	return w.source.ConsumeDQResults(ctx, w.handleMessage)
}

// handleMessage returns an error for undecodable or unapplicable results so the consumer
// moves them to the dead-letter queue.
func (w *QualityResultWorker) handleMessage(ctx context.Context, data []byte) error {
	var result model.DQResult
	if err := json.Unmarshal(data, &result); err != nil {
		w.log.Error().Err(err).Msg("Failed to unmarshal data-quality result")
		return err
	}

	log := w.log.With().Str("upload_id", result.UploadID).Str("status", string(result.Status)).Logger()
	if err := w.uploads.ApplyQualityResult(ctx, result); err != nil {
		log.Error().Err(err).Msg("Failed to apply data-quality result")
		return err
	}

	log.Info().Msg("Data-quality result applied")
	return nil
}
