package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BatchStatus is the coarse, historical workflow state of a batch.
type BatchStatus string

const (
	BatchStatusOpen       BatchStatus = "open"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
)

// LifecycleStage is the fine-grained, derived workflow phase of a batch.
// Completed is terminal and never reverts.
type LifecycleStage string

const (
	StageDraft        LifecycleStage = "draft"
	StageCollecting   LifecycleStage = "collecting"
	StageWaiting      LifecycleStage = "waiting"
	StageReadyToClose LifecycleStage = "ready_to_close"
	StageCompleted    LifecycleStage = "completed"
)

// Batch groups receipts for one accounting period and one customer.
// The counter and total columns are cached aggregates, recomputed from the
// child receipts by the lifecycle engine after every receipt mutation.
type Batch struct {
	ID           string `json:"id" gorm:"primaryKey"`
	BatchName    string `json:"batch_name" gorm:"not null"`
	CustomerName string `json:"customer_name"`
	Notes        string `json:"notes"`

	Status         BatchStatus    `json:"status" gorm:"type:VARCHAR(20);default:'open'"`
	LifecycleStage LifecycleStage `json:"lifecycle_stage" gorm:"type:VARCHAR(20);default:'draft'"`

	PeriodStart string `json:"period_start"` // YYYY-MM-DD
	PeriodEnd   string `json:"period_end"`   // YYYY-MM-DD
	PeriodLabel string `json:"period_label"`

	LastUploadAt   *time.Time `json:"last_upload_at"`
	NextReminderAt *time.Time `json:"next_reminder_at"`

	// Aggregates rollup
	TotalReceipts     int     `json:"total_receipts"`
	ProcessedReceipts int     `json:"processed_receipts"` // non-pending count
	RejectedReceipts  int     `json:"rejected_receipts"`
	TotalAmount       float64 `json:"total_amount" gorm:"type:numeric(12,2)"`
	IncomeTotal       float64 `json:"income_total" gorm:"type:numeric(12,2)"`
	ExpenseTotal      float64 `json:"expense_total" gorm:"type:numeric(12,2)"`

	Receipts []Receipt `json:"receipts,omitempty" gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (batch *Batch) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	return
}
