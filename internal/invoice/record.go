package invoice

import "time"

// Status tracks a record through the processing state machine.
type Status string

const (
	StatusPending        Status = "pending"
	StatusComplete       Status = "complete"
	StatusCompleteManual Status = "complete_manual"
	StatusIncomplete     Status = "incomplete"
	StatusError          Status = "error"
)

// HumanField values for ExtractionRecord.HumanField.
const (
	// HumanYes means at least one field value was supplied or confirmed
	// by a person.
	HumanYes = "Y"
	// HumanNo means every populated field came from automated extraction.
	HumanNo = "N"
)

// ExtractionRecord is one extraction result, keyed uniquely by filename.
// Amount is nil when no usable amount has been captured.
type ExtractionRecord struct {
	Filename       string    `json:"filename"`
	FilePath       string    `json:"file_path"`
	SupplierCode   string    `json:"supplier_code,omitempty"`
	PONumber       string    `json:"po_number,omitempty"`
	Amount         *float64  `json:"amount,omitempty"`
	CheckNo        string    `json:"check_no,omitempty"`
	ReceiverID     string    `json:"receiver_id,omitempty"`
	HumanField     string    `json:"human_field"`
	Status         Status    `json:"status"`
	ExtractionDate time.Time `json:"extraction_date"`
}

// Progress tracks per-file processing state, independent of whether an
// extraction record exists yet. Seq records discovery order.
type Progress struct {
	Filename      string    `json:"filename"`
	Status        Status    `json:"status"`
	ProcessedDate time.Time `json:"processed_date"`
	Notes         string    `json:"notes,omitempty"`
	Seq           uint64    `json:"seq"`
}

// SupplierProfile is optional supplier metadata used for display and
// troubleshooting; extraction correctness does not depend on it.
type SupplierProfile struct {
	SupplierCode string `json:"supplier_code"`
	Name         string `json:"name,omitempty"`
	Description  string `json:"description,omitempty"`
}
