package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trukkerweeler/invcclss/internal/extraction"
)

// DefaultBatchSize bounds unattended runs so manual-review capacity is
// never overwhelmed.
const DefaultBatchSize = 10

// scanExtensions are the file types accepted from the scan directory.
var scanExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".heic": true,
	".heif": true,
}

// ManualEntry is the field set a person supplies for an incomplete record.
type ManualEntry struct {
	PONumber   string
	Amount     *float64
	CheckNo    string
	ReceiverID string
}

// Reviewer is the external UI collaborator. ReviewRecord presents a partial
// record with PO candidates and returns the completed field set, or nil to
// skip the file. ContinueBatch reports a batch summary and returns whether
// processing should continue with the next batch.
type Reviewer interface {
	ReviewRecord(ctx context.Context, record *ExtractionRecord, poCandidates []string) (*ManualEntry, error)
	ContinueBatch(ctx context.Context, summary BatchSummary) (bool, error)
}

// Extractor runs the extraction pipeline for one file.
type Extractor interface {
	Process(ctx context.Context, filePath, filename string) *extraction.Outcome
}

// BatchSummary aggregates processing counts. Complete includes records
// finished through manual entry.
type BatchSummary struct {
	Processed  int
	Complete   int
	Incomplete int
	Errored    int
}

func (s BatchSummary) merge(other BatchSummary) BatchSummary {
	return BatchSummary{
		Processed:  s.Processed + other.Processed,
		Complete:   s.Complete + other.Complete,
		Incomplete: s.Incomplete + other.Incomplete,
		Errored:    s.Errored + other.Errored,
	}
}

// Coordinator drives the unprocessed-file set through the pipeline one file
// at a time, routing incomplete results to the reviewer and persisting every
// terminal record.
type Coordinator struct {
	db        DB
	extractor Extractor
	reviewer  Reviewer
	scanDir   string
	batchSize int
}

// NewCoordinator creates a Coordinator. A batchSize of zero or less selects
// DefaultBatchSize.
func NewCoordinator(db DB, extractor Extractor, reviewer Reviewer, scanDir string, batchSize int) *Coordinator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Coordinator{
		db:        db,
		extractor: extractor,
		reviewer:  reviewer,
		scanDir:   scanDir,
		batchSize: batchSize,
	}
}

// Discover scans the scan directory and registers every supported file with
// the store, preserving sorted order for files seen for the first time. It
// returns the number of files currently in the directory.
func (c *Coordinator) Discover() (int, error) {
	entries, err := os.ReadDir(c.scanDir)
	if err != nil {
		return 0, fmt.Errorf("reading scan directory: %w", err)
	}
	var filenames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if scanExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			filenames = append(filenames, entry.Name())
		}
	}
	sort.Strings(filenames)
	for _, filename := range filenames {
		if err := c.db.RegisterFile(filename); err != nil {
			return 0, fmt.Errorf("registering %s: %w", filename, err)
		}
	}
	return len(filenames), nil
}

// Run processes unprocessed files in batches until none remain, the
// reviewer declines to continue, or the context is cancelled between files.
// Storage failures halt the run; per-file extraction failures do not.
func (c *Coordinator) Run(ctx context.Context) (BatchSummary, error) {
	runID := uuid.NewString()
	slog.Info("starting processing run", "run_id", runID, "batch_size", c.batchSize)

	var total BatchSummary
	for {
		pending, err := c.db.ListUnprocessed()
		if err != nil {
			return total, fmt.Errorf("listing unprocessed files: %w", err)
		}
		if len(pending) == 0 {
			slog.Info("run complete", "run_id", runID,
				"processed", total.Processed, "complete", total.Complete,
				"incomplete", total.Incomplete, "errors", total.Errored)
			return total, nil
		}

		batch := pending
		if len(batch) > c.batchSize {
			batch = batch[:c.batchSize]
		}

		var summary BatchSummary
		for _, filename := range batch {
			if err := ctx.Err(); err != nil {
				return total.merge(summary), err
			}
			if err := c.processOne(ctx, filename, &summary); err != nil {
				return total.merge(summary), err
			}
		}
		total = total.merge(summary)
		slog.Info("batch complete", "run_id", runID,
			"processed", summary.Processed, "complete", summary.Complete,
			"incomplete", summary.Incomplete, "errors", summary.Errored,
			"remaining", len(pending)-len(batch))

		proceed, err := c.reviewer.ContinueBatch(ctx, summary)
		if err != nil {
			return total, fmt.Errorf("batch continuation: %w", err)
		}
		if !proceed {
			slog.Info("run stopped by reviewer", "run_id", runID)
			return total, nil
		}
	}
}

func (c *Coordinator) processOne(ctx context.Context, filename string, summary *BatchSummary) error {
	path := filepath.Join(c.scanDir, filename)
	outcome := c.extractor.Process(ctx, path, filename)
	record := recordFromOutcome(outcome)
	notes := outcome.Notes

	switch outcome.Verdict {
	case extraction.VerdictComplete:
		record.Status = StatusComplete
		summary.Complete++
	case extraction.VerdictError:
		record.Status = StatusError
		summary.Errored++
		slog.Warn("file failed", "filename", filename, "notes", notes)
	default:
		entry, err := c.reviewer.ReviewRecord(ctx, record, outcome.POCandidates)
		if err != nil {
			return fmt.Errorf("reviewing %s: %w", filename, err)
		}
		if entry != nil {
			applyManualEntry(record, entry)
			record.Status = StatusCompleteManual
			record.HumanField = HumanYes
			notes += " Manual entry completed."
			summary.Complete++
		} else {
			record.Status = StatusIncomplete
			notes += " Manual entry skipped."
			summary.Incomplete++
		}
	}
	summary.Processed++

	if err := c.db.SaveResult(record); err != nil {
		return fmt.Errorf("saving result for %s: %w", filename, err)
	}
	if err := c.db.UpdateProgress(filename, record.Status, notes); err != nil {
		return fmt.Errorf("updating progress for %s: %w", filename, err)
	}
	slog.Info("file processed", "filename", filename, "status", record.Status,
		"po_number", record.PONumber, "supplier", record.SupplierCode)
	return nil
}

func recordFromOutcome(outcome *extraction.Outcome) *ExtractionRecord {
	return &ExtractionRecord{
		Filename:     outcome.Filename,
		FilePath:     outcome.FilePath,
		SupplierCode: outcome.SupplierCode,
		PONumber:     outcome.PONumber,
		Amount:       outcome.Amount,
		CheckNo:      outcome.CheckNo,
		ReceiverID:   outcome.ReceiverID,
		HumanField:   HumanNo,
	}
}

func applyManualEntry(record *ExtractionRecord, entry *ManualEntry) {
	if entry.PONumber != "" {
		record.PONumber = entry.PONumber
	}
	if entry.Amount != nil {
		record.Amount = entry.Amount
	}
	if entry.CheckNo != "" {
		record.CheckNo = entry.CheckNo
	}
	if entry.ReceiverID != "" {
		record.ReceiverID = entry.ReceiverID
	}
}
