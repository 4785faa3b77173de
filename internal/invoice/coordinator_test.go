package invoice

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/trukkerweeler/invcclss/internal/extraction"
)

// mockDB is an in-memory DB double. Pending order is the registration order.
type mockDB struct {
	results       map[string]*ExtractionRecord
	progress      map[string]*Progress
	suppliers     map[string]*SupplierProfile
	order         []string
	saveErr       error
	listErr       error
	progressErr   error
	progressNotes map[string]string
}

func newMockDB() *mockDB {
	return &mockDB{
		results:       make(map[string]*ExtractionRecord),
		progress:      make(map[string]*Progress),
		suppliers:     make(map[string]*SupplierProfile),
		progressNotes: make(map[string]string),
	}
}

func (m *mockDB) SaveResult(record *ExtractionRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.results[record.Filename] = record
	return nil
}

func (m *mockDB) GetResult(filename string) (*ExtractionRecord, error) {
	record, ok := m.results[filename]
	if !ok {
		return nil, ErrNotFound
	}
	return record, nil
}

func (m *mockDB) RegisterFile(filename string) error {
	if _, ok := m.progress[filename]; ok {
		return nil
	}
	m.progress[filename] = &Progress{Filename: filename, Status: StatusPending}
	m.order = append(m.order, filename)
	return nil
}

func (m *mockDB) ListUnprocessed() ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var pending []string
	for _, filename := range m.order {
		if m.progress[filename].Status == StatusPending {
			pending = append(pending, filename)
		}
	}
	return pending, nil
}

func (m *mockDB) UpdateProgress(filename string, status Status, notes string) error {
	if m.progressErr != nil {
		return m.progressErr
	}
	if _, ok := m.progress[filename]; !ok {
		m.progress[filename] = &Progress{Filename: filename}
		m.order = append(m.order, filename)
	}
	m.progress[filename].Status = status
	m.progress[filename].Notes = notes
	m.progressNotes[filename] = notes
	return nil
}

func (m *mockDB) GetProgress(filename string) (*Progress, error) {
	progress, ok := m.progress[filename]
	if !ok {
		return nil, ErrNotFound
	}
	return progress, nil
}

func (m *mockDB) SaveSupplier(profile *SupplierProfile) error {
	m.suppliers[profile.SupplierCode] = profile
	return nil
}

func (m *mockDB) GetSupplier(supplierCode string) (*SupplierProfile, error) {
	profile, ok := m.suppliers[supplierCode]
	if !ok {
		return nil, ErrNotFound
	}
	return profile, nil
}

func (m *mockDB) ListSuppliers() ([]*SupplierProfile, error) {
	var profiles []*SupplierProfile
	for _, profile := range m.suppliers {
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func (m *mockDB) Close() error { return nil }

// fakeExtractor returns canned outcomes per filename.
type fakeExtractor struct {
	outcomes map[string]*extraction.Outcome
	calls    []string
}

func (e *fakeExtractor) Process(ctx context.Context, filePath, filename string) *extraction.Outcome {
	e.calls = append(e.calls, filename)
	if outcome, ok := e.outcomes[filename]; ok {
		return outcome
	}
	return &extraction.Outcome{Filename: filename, FilePath: filePath, Verdict: extraction.VerdictIncomplete}
}

// fakeReviewer replays queued manual entries and continue decisions.
type fakeReviewer struct {
	entries      []*ManualEntry
	reviewErr    error
	continueWith []bool
	reviewed     []string
	summaries    []BatchSummary
}

func (r *fakeReviewer) ReviewRecord(ctx context.Context, record *ExtractionRecord, poCandidates []string) (*ManualEntry, error) {
	r.reviewed = append(r.reviewed, record.Filename)
	if r.reviewErr != nil {
		return nil, r.reviewErr
	}
	if len(r.entries) == 0 {
		return nil, nil
	}
	entry := r.entries[0]
	r.entries = r.entries[1:]
	return entry, nil
}

func (r *fakeReviewer) ContinueBatch(ctx context.Context, summary BatchSummary) (bool, error) {
	r.summaries = append(r.summaries, summary)
	if len(r.continueWith) == 0 {
		return true, nil
	}
	proceed := r.continueWith[0]
	r.continueWith = r.continueWith[1:]
	return proceed, nil
}

func completeOutcome(filename string) *extraction.Outcome {
	amount := 250.50
	return &extraction.Outcome{
		Filename:     filename,
		SupplierCode: "BLAN1",
		PONumber:     "40085",
		Amount:       &amount,
		Verdict:      extraction.VerdictComplete,
		Notes:        "Complete extraction.",
	}
}

var _ = Describe("Coordinator", func() {
	var (
		db          *mockDB
		extractor   *fakeExtractor
		reviewer    *fakeReviewer
		coordinator *Coordinator
		batchSize   int
		summary     BatchSummary
		runErr      error
	)

	BeforeEach(func() {
		db = newMockDB()
		extractor = &fakeExtractor{outcomes: make(map[string]*extraction.Outcome)}
		reviewer = &fakeReviewer{}
		batchSize = DefaultBatchSize
	})

	JustBeforeEach(func() {
		coordinator = NewCoordinator(db, extractor, reviewer, "/scans", batchSize)
		summary, runErr = coordinator.Run(context.Background())
	})

	When("extraction is complete", func() {
		BeforeEach(func() {
			Expect(db.RegisterFile("a.pdf")).To(Succeed())
			extractor.outcomes["a.pdf"] = completeOutcome("a.pdf")
		})

		It("saves the record as complete without consulting the reviewer", func() {
			Expect(runErr).NotTo(HaveOccurred())
			record, err := db.GetResult("a.pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Status).To(Equal(StatusComplete))
			Expect(record.HumanField).To(Equal(HumanNo))
			Expect(reviewer.reviewed).To(BeEmpty())
		})

		It("marks the progress row complete", func() {
			progress, err := db.GetProgress("a.pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(progress.Status).To(Equal(StatusComplete))
		})

		It("counts the file in the summary", func() {
			Expect(summary).To(Equal(BatchSummary{Processed: 1, Complete: 1}))
		})
	})

	When("an incomplete record receives a manual entry", func() {
		BeforeEach(func() {
			Expect(db.RegisterFile("a.pdf")).To(Succeed())
			amount := 99.95
			extractor.outcomes["a.pdf"] = &extraction.Outcome{
				Filename: "a.pdf",
				PONumber: "40085",
				Verdict:  extraction.VerdictIncomplete,
				Notes:    "No amount found.",
			}
			reviewer.entries = []*ManualEntry{{Amount: &amount, CheckNo: "123456"}}
		})

		It("applies the entered values to the record", func() {
			record, err := db.GetResult("a.pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Amount).To(HaveValue(Equal(99.95)))
			Expect(record.CheckNo).To(Equal("123456"))
			Expect(record.PONumber).To(Equal("40085"))
		})

		It("flags the human contribution", func() {
			record, err := db.GetResult("a.pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Status).To(Equal(StatusCompleteManual))
			Expect(record.HumanField).To(Equal(HumanYes))
		})

		It("notes the manual completion on the progress row", func() {
			Expect(db.progressNotes["a.pdf"]).To(ContainSubstring("Manual entry completed."))
		})

		It("counts the file as complete", func() {
			Expect(summary.Complete).To(Equal(1))
		})
	})

	When("the reviewer skips an incomplete record", func() {
		BeforeEach(func() {
			Expect(db.RegisterFile("a.pdf")).To(Succeed())
		})

		It("saves the record as incomplete with automated values only", func() {
			record, err := db.GetResult("a.pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Status).To(Equal(StatusIncomplete))
			Expect(record.HumanField).To(Equal(HumanNo))
		})

		It("notes the skip on the progress row", func() {
			Expect(db.progressNotes["a.pdf"]).To(ContainSubstring("Manual entry skipped."))
		})

		It("removes the file from the unprocessed set", func() {
			pending, err := db.ListUnprocessed()
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeEmpty())
		})
	})

	When("one file errors in a batch", func() {
		BeforeEach(func() {
			Expect(db.RegisterFile("bad.pdf")).To(Succeed())
			Expect(db.RegisterFile("good.pdf")).To(Succeed())
			extractor.outcomes["bad.pdf"] = &extraction.Outcome{
				Filename: "bad.pdf",
				Verdict:  extraction.VerdictError,
				Notes:    "Cannot open document: no such file.",
			}
			extractor.outcomes["good.pdf"] = completeOutcome("good.pdf")
		})

		It("isolates the failure to that file", func() {
			Expect(runErr).NotTo(HaveOccurred())
			record, err := db.GetResult("bad.pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Status).To(Equal(StatusError))

			record, err = db.GetResult("good.pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Status).To(Equal(StatusComplete))
		})

		It("counts both in the summary", func() {
			Expect(summary).To(Equal(BatchSummary{Processed: 2, Complete: 1, Errored: 1}))
		})
	})

	When("saving a result fails", func() {
		BeforeEach(func() {
			Expect(db.RegisterFile("a.pdf")).To(Succeed())
			extractor.outcomes["a.pdf"] = completeOutcome("a.pdf")
			db.saveErr = errors.New("disk full")
		})

		It("halts the run with the storage error", func() {
			Expect(runErr).To(MatchError(ContainSubstring("disk full")))
		})
	})

	When("the reviewer declines to continue after a batch", func() {
		BeforeEach(func() {
			batchSize = 2
			for _, f := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"} {
				Expect(db.RegisterFile(f)).To(Succeed())
				extractor.outcomes[f] = completeOutcome(f)
			}
			reviewer.continueWith = []bool{true, false}
		})

		It("stops with the remainder still pending", func() {
			Expect(runErr).NotTo(HaveOccurred())
			Expect(extractor.calls).To(Equal([]string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"}))
			pending, err := db.ListUnprocessed()
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(Equal([]string{"e.pdf"}))
		})

		It("reports per-batch summaries to the reviewer", func() {
			Expect(reviewer.summaries).To(HaveLen(2))
			Expect(reviewer.summaries[0].Processed).To(Equal(2))
		})
	})

	When("no files are pending", func() {
		It("returns immediately with an empty summary", func() {
			Expect(runErr).NotTo(HaveOccurred())
			Expect(summary).To(Equal(BatchSummary{}))
			Expect(extractor.calls).To(BeEmpty())
		})
	})

	When("the context is cancelled", func() {
		var cancel context.CancelFunc

		BeforeEach(func() {
			Expect(db.RegisterFile("a.pdf")).To(Succeed())
		})

		JustBeforeEach(func() {
			// The outer JustBeforeEach already ran with an active context;
			// rerun with a cancelled one against a fresh pending file.
			Expect(db.RegisterFile("b.pdf")).To(Succeed())
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			cancel()
			summary, runErr = coordinator.Run(ctx)
		})

		It("stops between files", func() {
			Expect(runErr).To(MatchError(context.Canceled))
			Expect(summary.Processed).To(BeZero())
		})
	})
})

var _ = Describe("Coordinator.Discover", func() {
	var (
		db      *mockDB
		scanDir string
		count   int
		err     error
	)

	BeforeEach(func() {
		db = newMockDB()
		scanDir = GinkgoT().TempDir()
		for _, f := range []string{"b.pdf", "a.PDF", "photo.heic", "notes.txt", "scan.jpg"} {
			Expect(os.WriteFile(filepath.Join(scanDir, f), []byte("x"), 0644)).To(Succeed())
		}
		Expect(os.Mkdir(filepath.Join(scanDir, "subdir"), 0755)).To(Succeed())
	})

	JustBeforeEach(func() {
		coordinator := NewCoordinator(db, &fakeExtractor{}, &fakeReviewer{}, scanDir, 0)
		count, err = coordinator.Discover()
	})

	It("registers only supported file types, sorted", func() {
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(4))
		pending, listErr := db.ListUnprocessed()
		Expect(listErr).NotTo(HaveOccurred())
		Expect(pending).To(Equal([]string{"a.PDF", "b.pdf", "photo.heic", "scan.jpg"}))
	})

	When("the scan directory does not exist", func() {
		BeforeEach(func() {
			scanDir = filepath.Join(scanDir, "missing")
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})
