package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReceiptType distinguishes money going out from money coming in.
type ReceiptType string

const (
	ReceiptTypeExpense ReceiptType = "expense"
	ReceiptTypeIncome  ReceiptType = "income"
)

// ReceiptStatus is the review state of a digitized receipt.
type ReceiptStatus string

const (
	ReceiptStatusPending  ReceiptStatus = "pending"
	ReceiptStatusApproved ReceiptStatus = "approved"
	ReceiptStatusRejected ReceiptStatus = "rejected"
)

// Receipt is one financial document inside a batch. Monetary columns are
// NUMERIC(12,2); VatAmount and TotalAmount are stored redundantly for queries
// and must match the recomputed values at save time (see ledger.Validate).
type Receipt struct {
	ID      string        `json:"id" gorm:"primaryKey"`
	BatchID string        `json:"batch_id" gorm:"not null;index:idx_receipts_batch_status,priority:1"`
	Type    ReceiptType   `json:"type" gorm:"type:VARCHAR(10);default:'expense'"`
	Status  ReceiptStatus `json:"status" gorm:"type:VARCHAR(10);default:'pending';index:idx_receipts_batch_status,priority:2"`

	Items       []LineItem `json:"line_items" gorm:"foreignKey:ReceiptID;constraint:OnDelete:CASCADE"`
	VatAmount   float64    `json:"vat_amount" gorm:"type:numeric(12,2)"`
	TotalAmount float64    `json:"total_amount" gorm:"type:numeric(12,2)"`

	Date          string `json:"date"`
	VendorName    string `json:"vendor_name"`
	ReceiptNumber string `json:"receipt_number"`
	Category      string `json:"category"`
	PaymentMethod string `json:"payment_method"`
	Currency      string `json:"currency"`
	Notes         string `json:"notes"`

	// Uploaded source file (object storage key) and the raw extraction
	// payload kept for audit; both empty for manually created receipts.
	FileKey       string         `json:"file_key"`
	FileName      string         `json:"file_name"`
	ContentType   string         `json:"content_type"`
	ExtractionRaw datatypes.JSON `json:"extraction_raw,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_date"`
	UpdatedAt time.Time `json:"updated_date"`
}

func (receipt *Receipt) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	return
}

// LineItem is one priced row of a receipt. Quantity and UnitPrice may be
// negative (credits/refunds).
type LineItem struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	ReceiptID   string  `json:"-" gorm:"index"` // fast join
	Position    int     `json:"position"`       // preserves document order
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price" gorm:"type:numeric(12,2)"`
	Total       float64 `json:"total" gorm:"type:numeric(12,2)"`
}
