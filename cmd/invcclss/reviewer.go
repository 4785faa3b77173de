package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/trukkerweeler/invcclss/internal/extraction"
	"github.com/trukkerweeler/invcclss/internal/invoice"
)

// consoleReviewer collects missing fields interactively on the terminal.
type consoleReviewer struct {
	in  *bufio.Reader
	out io.Writer
}

func newConsoleReviewer(in io.Reader, out io.Writer) *consoleReviewer {
	return &consoleReviewer{in: bufio.NewReader(in), out: out}
}

func (r *consoleReviewer) ReviewRecord(ctx context.Context, record *invoice.ExtractionRecord, poCandidates []string) (*invoice.ManualEntry, error) {
	fmt.Fprintf(r.out, "\n--- Manual entry: %s ---\n", record.Filename)
	fmt.Fprintf(r.out, "  Path:     %s\n", record.FilePath)
	fmt.Fprintf(r.out, "  Supplier: %s\n", orDash(record.SupplierCode))
	fmt.Fprintf(r.out, "  PO:       %s\n", orDash(record.PONumber))
	if record.Amount != nil {
		fmt.Fprintf(r.out, "  Amount:   %.2f\n", *record.Amount)
	} else {
		fmt.Fprintf(r.out, "  Amount:   -\n")
	}
	if len(poCandidates) > 0 {
		fmt.Fprintf(r.out, "  PO candidates: %s\n", strings.Join(poCandidates, ", "))
	}

	// A closed stdin means nobody is there to confirm anything: skip.
	answer, err := r.prompt("Enter values now? [Y/n]")
	if err != nil {
		return nil, skipOnEOF(err)
	}
	if strings.EqualFold(answer, "n") {
		return nil, nil
	}

	entry := &invoice.ManualEntry{}
	defaultPO := record.PONumber
	if defaultPO == "" && len(poCandidates) > 0 {
		defaultPO = poCandidates[0]
	}
	if entry.PONumber, err = r.promptDefault("PO number", defaultPO); err != nil {
		return nil, skipOnEOF(err)
	}
	amountText, err := r.promptDefault("Amount", formatAmount(record.Amount))
	if err != nil {
		return nil, skipOnEOF(err)
	}
	if amount, ok := extraction.ParseAmount(amountText); ok {
		entry.Amount = &amount
	}
	if entry.CheckNo, err = r.promptDefault("Check no", record.CheckNo); err != nil {
		return nil, skipOnEOF(err)
	}
	if entry.ReceiverID, err = r.promptDefault("Receiver ID", record.ReceiverID); err != nil {
		return nil, skipOnEOF(err)
	}

	if entry.PONumber == "" && entry.Amount == nil && entry.CheckNo == "" && entry.ReceiverID == "" {
		// Nothing supplied: treat as a skip
		return nil, nil
	}
	return entry, nil
}

func (r *consoleReviewer) ContinueBatch(ctx context.Context, summary invoice.BatchSummary) (bool, error) {
	fmt.Fprintf(r.out, "\nBatch done: %d processed, %d complete, %d incomplete, %d errors\n",
		summary.Processed, summary.Complete, summary.Incomplete, summary.Errored)
	answer, err := r.prompt("Continue with next batch? [Y/n]")
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !strings.EqualFold(answer, "n"), nil
}

// skipOnEOF turns exhausted input into a nil error so the caller reports a
// skip instead of an unconfirmed manual entry.
func skipOnEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// prompt returns io.EOF when input is exhausted so callers can tell a
// closed stdin apart from a person accepting the default with enter.
func (r *consoleReviewer) prompt(label string) (string, error) {
	fmt.Fprintf(r.out, "%s ", label)
	line, err := r.in.ReadString('\n')
	answer := strings.TrimSpace(line)
	if err != nil {
		if err != io.EOF {
			return "", fmt.Errorf("reading input: %w", err)
		}
		if answer == "" {
			return "", io.EOF
		}
	}
	return answer, nil
}

func (r *consoleReviewer) promptDefault(label, current string) (string, error) {
	display := label
	if current != "" {
		display = fmt.Sprintf("%s [%s]", label, current)
	}
	answer, err := r.prompt(display + ":")
	if err != nil {
		return "", err
	}
	if answer == "" {
		return current, nil
	}
	return answer, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatAmount(amount *float64) string {
	if amount == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *amount)
}

// autoSkipReviewer skips every incomplete record and keeps batches moving,
// for unattended runs.
type autoSkipReviewer struct{}

func (autoSkipReviewer) ReviewRecord(ctx context.Context, record *invoice.ExtractionRecord, poCandidates []string) (*invoice.ManualEntry, error) {
	return nil, nil
}

func (autoSkipReviewer) ContinueBatch(ctx context.Context, summary invoice.BatchSummary) (bool, error) {
	return true, nil
}
