package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oxylab/docseg/internal/engine"
	"github.com/oxylab/docseg/internal/mdimport"
	"github.com/oxylab/docseg/internal/ocr"
	"github.com/oxylab/docseg/internal/overlay"
	"github.com/oxylab/docseg/internal/store"
	"github.com/oxylab/docseg/internal/wordml"
)

// Worker processes a single document job: parse the upload into segments,
// then persist segments and structure metadata.
type Worker struct {
	store     *store.Store
	ocrClient *ocr.Client
	log       *slog.Logger
	builder   *engine.Builder

	minCharsPerPage int
}

func NewWorker(st *store.Store, ocrClient *ocr.Client, log *slog.Logger, minCharsPerPage int) *Worker {
	return &Worker{
		store:           st,
		ocrClient:       ocrClient,
		log:             log,
		builder:         &engine.Builder{},
		minCharsPerPage: minCharsPerPage,
	}
}

// Process runs the full import pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "document_id", job.DocumentID, "project_id", job.ProjectID)
	defer job.ReleaseFileData()

	job.SetStatus(StatusParsing, "parsing")
	data := job.FileData()

	var (
		segments  []engine.Segment
		meta      *engine.StructureMetadata
		warnings  []engine.Warning
		positions map[uint32][]overlay.Position
		err       error
	)
	switch job.Format {
	case "docx":
		segments, meta, warnings, err = w.processDocx(ctx, job, data)
	case "pdf":
		segments, positions, err = w.processPDF(ctx, job, data)
	case "markdown":
		job.SetStatus(StatusSegmenting, "segmenting")
		segments = mdimport.Parse(data)
	default:
		err = fmt.Errorf("unsupported format: %s", job.Format)
	}
	if err != nil {
		w.fail(ctx, job, log, "parse", err)
		return
	}
	job.SetProgress(len(segments), len(warnings))
	log.Info("document segmented", "segments", len(segments), "warnings", len(warnings))

	job.SetStatus(StatusStoring, "storing")
	if err := w.store.SaveParse(ctx, job.DocumentID, segments, meta); err != nil {
		w.fail(ctx, job, log, "store", err)
		return
	}
	if len(positions) > 0 {
		if err := w.store.SaveSegmentPositions(ctx, job.DocumentID, positions); err != nil {
			w.fail(ctx, job, log, "store", err)
			return
		}
	}
	if err := w.store.UpdateDocumentStatus(ctx, job.DocumentID, "parsed"); err != nil {
		log.Error("status update failed", "error", err)
	}
	job.SetStatus(StatusCompleted, "done")
}

func (w *Worker) fail(ctx context.Context, job *Job, log *slog.Logger, phase string, err error) {
	log.Error(phase+" failed", "error", err)
	job.AddError(fmt.Sprintf("%s: %s", phase, err))
	job.SetStatus(StatusFailed, phase)
	if err := w.store.UpdateDocumentStatus(ctx, job.DocumentID, "failed"); err != nil {
		log.Error("status update failed", "error", err)
	}
}

func (w *Worker) processDocx(ctx context.Context, job *Job, data []byte) ([]engine.Segment, *engine.StructureMetadata, []engine.Warning, error) {
	arc, err := wordml.OpenArchive(data)
	if err != nil {
		return nil, nil, nil, err
	}
	job.SetStatus(StatusSegmenting, "segmenting")
	result, err := w.builder.Parse(ctx, arc.Document)
	if err != nil {
		return nil, nil, nil, err
	}
	return result.Segments, result.Metadata, result.Warnings, nil
}

// processPDF uses the embedded text layer where one exists and hands scanned
// documents to the remote OCR service.
func (w *Worker) processPDF(ctx context.Context, job *Job, data []byte) ([]engine.Segment, map[uint32][]overlay.Position, error) {
	det, err := ocr.Detect(data, w.minCharsPerPage)
	if err != nil {
		return nil, nil, err
	}

	job.SetStatus(StatusSegmenting, "segmenting")
	if !det.Scanned {
		return segmentPages(det.Pages()), nil, nil
	}

	if !w.ocrClient.Configured() {
		return nil, nil, fmt.Errorf("document appears scanned (%d pages, %d text runes) and no OCR service is configured", det.PageCount, det.TextRunes)
	}

	var result *ocr.ExtractResult
	for attempt := 0; attempt < MaxRetries; attempt++ {
		result, err = w.ocrClient.Extract(ctx, job.Filename, data)
		if err == nil || !IsRetryable(err) {
			break
		}
		w.log.Warn("retryable ocr error", "job_id", job.ID, "attempt", attempt, "error", err)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, nil, err
	}

	segments, positions := segmentsFromOCR(result)
	return segments, positions, nil
}

// segmentsFromOCR flattens the OCR response into segments and keeps the page
// positions of each, so the overlay renderer can draw replacement text at the
// recorded coordinates later.
func segmentsFromOCR(result *ocr.ExtractResult) ([]engine.Segment, map[uint32][]overlay.Position) {
	segments := make([]engine.Segment, 0, len(result.Segments))
	positions := make(map[uint32][]overlay.Position)
	for _, ps := range result.Segments {
		text := strings.TrimSpace(ps.SourceText)
		if text == "" {
			continue
		}
		idx := uint32(len(segments))
		segments = append(segments, engine.Segment{
			Index:      idx,
			SourceText: text,
		})
		if ps.Bounds != nil {
			positions[idx] = append(positions[idx], overlay.Position{
				PageNumber: ps.PageNumber,
				Bounds:     *ps.Bounds,
				Font:       ps.Font,
			})
		}
	}
	return segments, positions
}

// segmentPages splits text-layer pages into sentence segments.
func segmentPages(pages []string) []engine.Segment {
	var strategy engine.DefaultStrategy
	var segments []engine.Segment
	for _, page := range pages {
		for _, block := range strings.Split(page, "\n") {
			for _, sentence := range strategy.SplitSentences(block) {
				text := strings.TrimSpace(sentence)
				if text == "" {
					continue
				}
				segments = append(segments, engine.Segment{
					Index:      uint32(len(segments)),
					SourceText: text,
				})
			}
		}
	}
	return segments
}
