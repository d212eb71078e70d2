package lifecycle

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"belegflow-backend/ledger"
	"belegflow-backend/logger"
	"belegflow-backend/models"
)

// ReminderDelay is how long a batch may sit without uploads before it is
// considered waiting on the customer.
const ReminderDelay = 48 * time.Hour

// ReceiptStore lists a batch's receipts.
type ReceiptStore interface {
	ListByBatch(ctx context.Context, batchID string) ([]models.Receipt, error)
}

// BatchStore persists recomputed batch aggregates.
type BatchStore interface {
	UpdateFields(ctx context.Context, batchID string, fields map[string]any) error
}

// Engine derives a batch's lifecycle stage and cached aggregates from its
// receipts. Stores are injected; the engine holds no global state. The
// read-then-write in UpdateSnapshot is not guarded against concurrent
// writers for the same batch (accepted limitation of the design).
type Engine struct {
	receipts ReceiptStore
	batches  BatchStore
	now      func() time.Time
	log      zerolog.Logger
}

func NewEngine(receipts ReceiptStore, batches BatchStore) *Engine {
	return &Engine{
		receipts: receipts,
		batches:  batches,
		now:      time.Now,
		log:      logger.WithComponent("lifecycle"),
	}
}

// Stats are the receipt counts and totals a stage derivation needs.
type Stats struct {
	Total        int        `json:"total"`
	Approved     int        `json:"approved"`
	Pending      int        `json:"pending"`
	Rejected     int        `json:"rejected"`
	LastUpload   *time.Time `json:"last_upload"`
	TotalAmount  float64    `json:"total_amount"`
	IncomeTotal  float64    `json:"income_total"`
	ExpenseTotal float64    `json:"expense_total"`
}

// Snapshot is what UpdateSnapshot computes and persists.
type Snapshot struct {
	Stats
	Stage  models.LifecycleStage `json:"lifecycle_stage"`
	Status models.BatchStatus    `json:"status"`
}

// computeStats derives counts and approved-only totals from a receipt list.
// Pending and rejected receipts contribute nothing to the money totals.
func computeStats(receipts []models.Receipt) Stats {
	var s Stats
	s.Total = len(receipts)
	for _, r := range receipts {
		switch r.Status {
		case models.ReceiptStatusApproved:
			s.Approved++
			if r.Type == models.ReceiptTypeIncome {
				s.IncomeTotal = ledger.Round2(s.IncomeTotal + r.TotalAmount)
			} else {
				s.ExpenseTotal = ledger.Round2(s.ExpenseTotal + r.TotalAmount)
			}
		case models.ReceiptStatusRejected:
			s.Rejected++
		default:
			s.Pending++
		}
		if s.LastUpload == nil || r.CreatedAt.After(*s.LastUpload) {
			t := r.CreatedAt
			s.LastUpload = &t
		}
	}
	s.TotalAmount = ledger.Round2(s.IncomeTotal + s.ExpenseTotal)
	return s
}

// cachedStats rebuilds Stats from the batch's own counters for callers that
// have no receipt list at hand.
func cachedStats(batch *models.Batch) Stats {
	pending := batch.TotalReceipts - batch.ProcessedReceipts
	if pending < 0 {
		pending = 0
	}
	s := Stats{
		Total:        batch.TotalReceipts,
		Approved:     batch.ProcessedReceipts - batch.RejectedReceipts,
		Pending:      pending,
		Rejected:     batch.RejectedReceipts,
		TotalAmount:  batch.TotalAmount,
		IncomeTotal:  batch.IncomeTotal,
		ExpenseTotal: batch.ExpenseTotal,
	}
	if s.Approved < 0 {
		s.Approved = 0
	}
	switch {
	case batch.LastUploadAt != nil:
		s.LastUpload = batch.LastUploadAt
	case !batch.UpdatedAt.IsZero():
		t := batch.UpdatedAt
		s.LastUpload = &t
	case !batch.CreatedAt.IsZero():
		t := batch.CreatedAt
		s.LastUpload = &t
	}
	return s
}

// deriveStage evaluates the stage guards in priority order; first match wins.
// Completed is sticky: once a batch (or its coarse status) is completed it
// never regresses, whatever its receipts say.
func deriveStage(batch *models.Batch, stats Stats, now time.Time) models.LifecycleStage {
	switch {
	case batch.LifecycleStage == models.StageCompleted || batch.Status == models.BatchStatusCompleted:
		return models.StageCompleted
	case stats.Total == 0:
		return models.StageDraft
	case stats.Pending == 0 && stats.Total > 0:
		return models.StageReadyToClose
	case stats.LastUpload != nil && now.Sub(*stats.LastUpload) >= ReminderDelay:
		return models.StageWaiting
	default:
		return models.StageCollecting
	}
}

// Enrich returns the batch merged with all derived fields: stage, counters,
// approved-only totals, reminder timestamp and a defaulted period window.
// Pure projection; neither the batch nor the receipts are mutated. Pass a
// nil receipt slice to derive from the batch's cached counters instead.
func (e *Engine) Enrich(batch *models.Batch, receipts []models.Receipt) models.Batch {
	out := *batch

	var stats Stats
	if receipts != nil {
		stats = computeStats(receipts)
	} else {
		stats = cachedStats(batch)
	}

	out.LifecycleStage = deriveStage(batch, stats, e.now())
	out.TotalReceipts = stats.Total
	out.ProcessedReceipts = stats.Total - stats.Pending
	out.RejectedReceipts = stats.Rejected
	out.TotalAmount = stats.TotalAmount
	out.IncomeTotal = stats.IncomeTotal
	out.ExpenseTotal = stats.ExpenseTotal

	if stats.LastUpload != nil {
		t := *stats.LastUpload
		out.LastUploadAt = &t
		if out.NextReminderAt == nil {
			reminder := t.Add(ReminderDelay)
			out.NextReminderAt = &reminder
		}
	}

	if out.PeriodStart == "" || out.PeriodEnd == "" {
		ref := batch.CreatedAt
		if ref.IsZero() {
			ref = e.now()
		}
		meta := DefaultPeriodMeta(ref)
		out.PeriodStart = meta.PeriodStart
		out.PeriodEnd = meta.PeriodEnd
		if out.PeriodLabel == "" {
			out.PeriodLabel = meta.PeriodLabel
		}
	}

	return out
}

// UpdateSnapshot re-reads all receipts of a batch, recomputes stats, stage
// and coarse status, persists the aggregate fields and returns the snapshot.
// Must be invoked after every receipt create/update/delete. Storage errors
// propagate unchanged; the batch id is assumed valid by this layer.
func (e *Engine) UpdateSnapshot(ctx context.Context, batchID string, currentStatus models.BatchStatus) (*Snapshot, error) {
	receipts, err := e.receipts.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	stats := computeStats(receipts)

	shell := models.Batch{ID: batchID, Status: currentStatus}
	stage := deriveStage(&shell, stats, e.now())

	status := models.BatchStatusProcessing
	switch {
	case currentStatus == models.BatchStatusCompleted:
		status = models.BatchStatusCompleted
	case stats.Total == 0:
		status = models.BatchStatusOpen
	}

	fields := map[string]any{
		"total_receipts":     stats.Total,
		"processed_receipts": stats.Total - stats.Pending,
		"rejected_receipts":  stats.Rejected,
		"total_amount":       stats.TotalAmount,
		"income_total":       stats.IncomeTotal,
		"expense_total":      stats.ExpenseTotal,
		"lifecycle_stage":    stage,
		"status":             status,
	}
	if stats.LastUpload != nil {
		fields["last_upload_at"] = *stats.LastUpload
		fields["next_reminder_at"] = stats.LastUpload.Add(ReminderDelay)
	}

	if err := e.batches.UpdateFields(ctx, batchID, fields); err != nil {
		return nil, err
	}

	e.log.Debug().
		Str("batch_id", batchID).
		Int("receipts", stats.Total).
		Int("pending", stats.Pending).
		Str("stage", string(stage)).
		Msg("batch snapshot refreshed")

	return &Snapshot{Stats: stats, Stage: stage, Status: status}, nil
}
