package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"belegflow-backend/models"
)

type fakeReceiptStore struct {
	receipts []models.Receipt
	err      error
}

func (f *fakeReceiptStore) ListByBatch(ctx context.Context, batchID string) ([]models.Receipt, error) {
	return f.receipts, f.err
}

type fakeBatchStore struct {
	batchID string
	fields  map[string]any
	err     error
}

func (f *fakeBatchStore) UpdateFields(ctx context.Context, batchID string, fields map[string]any) error {
	f.batchID = batchID
	f.fields = fields
	return f.err
}

var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(receipts *fakeReceiptStore, batches *fakeBatchStore) *Engine {
	e := NewEngine(receipts, batches)
	e.now = func() time.Time { return testNow }
	return e
}

func approvedReceipt(typ models.ReceiptType, amount float64, age time.Duration) models.Receipt {
	return models.Receipt{
		Type:        typ,
		Status:      models.ReceiptStatusApproved,
		TotalAmount: amount,
		CreatedAt:   testNow.Add(-age),
	}
}

func pendingReceipt(age time.Duration) models.Receipt {
	return models.Receipt{
		Status:    models.ReceiptStatusPending,
		CreatedAt: testNow.Add(-age),
	}
}

func TestEnrichEmptyBatchIsDraft(t *testing.T) {
	e := newTestEngine(&fakeReceiptStore{}, &fakeBatchStore{})
	batch := models.Batch{CreatedAt: testNow}
	out := e.Enrich(&batch, []models.Receipt{})
	if out.LifecycleStage != models.StageDraft {
		t.Fatalf("stage = %s, want draft", out.LifecycleStage)
	}
}

func TestEnrichAllApprovedIsReadyToClose(t *testing.T) {
	e := newTestEngine(&fakeReceiptStore{}, &fakeBatchStore{})
	receipts := []models.Receipt{
		approvedReceipt(models.ReceiptTypeExpense, 10, time.Hour),
		approvedReceipt(models.ReceiptTypeExpense, 20, 2*time.Hour),
		approvedReceipt(models.ReceiptTypeIncome, 100, 3*time.Hour),
	}
	out := e.Enrich(&models.Batch{}, receipts)
	if out.LifecycleStage != models.StageReadyToClose {
		t.Fatalf("stage = %s, want ready_to_close", out.LifecycleStage)
	}
	if out.ExpenseTotal != 30 || out.IncomeTotal != 100 {
		t.Fatalf("totals = expense %v income %v, want 30/100", out.ExpenseTotal, out.IncomeTotal)
	}
	if out.TotalReceipts != 3 || out.ProcessedReceipts != 3 {
		t.Fatalf("counters = %d/%d, want 3/3", out.TotalReceipts, out.ProcessedReceipts)
	}
}

func TestEnrichStalePendingIsWaiting(t *testing.T) {
	e := newTestEngine(&fakeReceiptStore{}, &fakeBatchStore{})
	out := e.Enrich(&models.Batch{}, []models.Receipt{pendingReceipt(50 * time.Hour)})
	if out.LifecycleStage != models.StageWaiting {
		t.Fatalf("stage = %s, want waiting", out.LifecycleStage)
	}
}

func TestEnrichFreshPendingIsCollecting(t *testing.T) {
	e := newTestEngine(&fakeReceiptStore{}, &fakeBatchStore{})
	out := e.Enrich(&models.Batch{}, []models.Receipt{pendingReceipt(time.Hour)})
	if out.LifecycleStage != models.StageCollecting {
		t.Fatalf("stage = %s, want collecting", out.LifecycleStage)
	}
}

func TestEnrichCompletedIsSticky(t *testing.T) {
	e := newTestEngine(&fakeReceiptStore{}, &fakeBatchStore{})
	batch := models.Batch{LifecycleStage: models.StageCompleted}
	out := e.Enrich(&batch, []models.Receipt{pendingReceipt(time.Hour)})
	if out.LifecycleStage != models.StageCompleted {
		t.Fatalf("completed batch regressed to %s", out.LifecycleStage)
	}

	// Coarse completed status pins the stage too.
	batch2 := models.Batch{Status: models.BatchStatusCompleted}
	out2 := e.Enrich(&batch2, []models.Receipt{})
	if out2.LifecycleStage != models.StageCompleted {
		t.Fatalf("status-completed batch derived %s", out2.LifecycleStage)
	}
}

func TestEnrichOnlyApprovedCountTowardsTotals(t *testing.T) {
	e := newTestEngine(&fakeReceiptStore{}, &fakeBatchStore{})
	receipts := []models.Receipt{
		approvedReceipt(models.ReceiptTypeIncome, 100, time.Hour),
		{Status: models.ReceiptStatusPending, Type: models.ReceiptTypeIncome, TotalAmount: 999, CreatedAt: testNow},
		{Status: models.ReceiptStatusRejected, Type: models.ReceiptTypeExpense, TotalAmount: 999, CreatedAt: testNow},
	}
	out := e.Enrich(&models.Batch{}, receipts)
	if out.IncomeTotal != 100 || out.ExpenseTotal != 0 {
		t.Fatalf("totals = income %v expense %v, want 100/0", out.IncomeTotal, out.ExpenseTotal)
	}
	// processed = total - pending, so rejected receipts count as processed.
	if out.ProcessedReceipts != 2 || out.RejectedReceipts != 1 {
		t.Fatalf("processed/rejected = %d/%d, want 2/1", out.ProcessedReceipts, out.RejectedReceipts)
	}
}

func TestEnrichSetsReminderAndPeriodDefaults(t *testing.T) {
	e := newTestEngine(&fakeReceiptStore{}, &fakeBatchStore{})
	upload := testNow.Add(-3 * time.Hour)
	receipts := []models.Receipt{{Status: models.ReceiptStatusPending, CreatedAt: upload}}
	batch := models.Batch{CreatedAt: testNow.Add(-24 * time.Hour)}
	out := e.Enrich(&batch, receipts)

	if out.LastUploadAt == nil || !out.LastUploadAt.Equal(upload) {
		t.Fatalf("last_upload_at = %v, want %v", out.LastUploadAt, upload)
	}
	if out.NextReminderAt == nil || !out.NextReminderAt.Equal(upload.Add(ReminderDelay)) {
		t.Fatalf("next_reminder_at = %v, want upload+48h", out.NextReminderAt)
	}
	if out.PeriodStart != "2026-03-01" || out.PeriodEnd != "2026-03-31" {
		t.Fatalf("period = %s..%s, want 2026-03-01..2026-03-31", out.PeriodStart, out.PeriodEnd)
	}
	if out.PeriodLabel != "March 2026" {
		t.Fatalf("label = %q", out.PeriodLabel)
	}
}

func TestEnrichKeepsStoredReminder(t *testing.T) {
	e := newTestEngine(&fakeReceiptStore{}, &fakeBatchStore{})
	stored := testNow.Add(10 * time.Hour)
	batch := models.Batch{NextReminderAt: &stored}
	out := e.Enrich(&batch, []models.Receipt{pendingReceipt(time.Hour)})
	if out.NextReminderAt == nil || !out.NextReminderAt.Equal(stored) {
		t.Fatalf("stored reminder overwritten: %v", out.NextReminderAt)
	}
}

func TestEnrichFromCachedCounters(t *testing.T) {
	e := newTestEngine(&fakeReceiptStore{}, &fakeBatchStore{})
	upload := testNow.Add(-time.Hour)
	batch := models.Batch{
		TotalReceipts:     4,
		ProcessedReceipts: 3,
		RejectedReceipts:  1,
		IncomeTotal:       50,
		ExpenseTotal:      25,
		TotalAmount:       75,
		LastUploadAt:      &upload,
	}
	out := e.Enrich(&batch, nil)
	if out.LifecycleStage != models.StageCollecting {
		t.Fatalf("stage = %s, want collecting (1 pending)", out.LifecycleStage)
	}
	if out.TotalReceipts != 4 || out.ProcessedReceipts != 3 {
		t.Fatalf("cached counters lost: %d/%d", out.TotalReceipts, out.ProcessedReceipts)
	}
	if out.IncomeTotal != 50 || out.ExpenseTotal != 25 {
		t.Fatalf("cached totals lost: %v/%v", out.IncomeTotal, out.ExpenseTotal)
	}
}

func TestEnrichDoesNotMutateInput(t *testing.T) {
	e := newTestEngine(&fakeReceiptStore{}, &fakeBatchStore{})
	batch := models.Batch{LifecycleStage: models.StageDraft}
	e.Enrich(&batch, []models.Receipt{pendingReceipt(time.Hour)})
	if batch.LifecycleStage != models.StageDraft || batch.TotalReceipts != 0 {
		t.Fatal("Enrich mutated its input batch")
	}
}

func TestUpdateSnapshotPersistsAggregates(t *testing.T) {
	receipts := &fakeReceiptStore{receipts: []models.Receipt{
		approvedReceipt(models.ReceiptTypeExpense, 11.50, time.Hour),
		approvedReceipt(models.ReceiptTypeIncome, 200, 2*time.Hour),
	}}
	batches := &fakeBatchStore{}
	e := newTestEngine(receipts, batches)

	snap, err := e.UpdateSnapshot(context.Background(), "b-1", models.BatchStatusOpen)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Stage != models.StageReadyToClose {
		t.Fatalf("stage = %s, want ready_to_close", snap.Stage)
	}
	if snap.Status != models.BatchStatusProcessing {
		t.Fatalf("status = %s, want processing", snap.Status)
	}
	if batches.batchID != "b-1" {
		t.Fatalf("persisted wrong batch: %q", batches.batchID)
	}
	if got := batches.fields["expense_total"]; got != 11.50 {
		t.Fatalf("expense_total = %v", got)
	}
	if got := batches.fields["income_total"]; got != 200.0 {
		t.Fatalf("income_total = %v", got)
	}
	if got := batches.fields["processed_receipts"]; got != 2 {
		t.Fatalf("processed_receipts = %v", got)
	}
	if _, ok := batches.fields["last_upload_at"]; !ok {
		t.Fatal("last_upload_at not persisted")
	}
}

func TestUpdateSnapshotEmptyBatchIsOpen(t *testing.T) {
	batches := &fakeBatchStore{}
	e := newTestEngine(&fakeReceiptStore{}, batches)
	snap, err := e.UpdateSnapshot(context.Background(), "b-2", models.BatchStatusProcessing)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != models.BatchStatusOpen || snap.Stage != models.StageDraft {
		t.Fatalf("got %s/%s, want open/draft", snap.Status, snap.Stage)
	}
}

func TestUpdateSnapshotCompletedStatusSticky(t *testing.T) {
	e := newTestEngine(&fakeReceiptStore{receipts: []models.Receipt{pendingReceipt(time.Hour)}}, &fakeBatchStore{})
	snap, err := e.UpdateSnapshot(context.Background(), "b-3", models.BatchStatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != models.BatchStatusCompleted || snap.Stage != models.StageCompleted {
		t.Fatalf("got %s/%s, want completed/completed", snap.Status, snap.Stage)
	}
}

func TestUpdateSnapshotPropagatesStorageErrors(t *testing.T) {
	listErr := errors.New("connection reset")
	e := newTestEngine(&fakeReceiptStore{err: listErr}, &fakeBatchStore{})
	if _, err := e.UpdateSnapshot(context.Background(), "b-4", models.BatchStatusOpen); !errors.Is(err, listErr) {
		t.Fatalf("list error not propagated: %v", err)
	}

	writeErr := errors.New("deadlock detected")
	e2 := newTestEngine(&fakeReceiptStore{}, &fakeBatchStore{err: writeErr})
	if _, err := e2.UpdateSnapshot(context.Background(), "b-5", models.BatchStatusOpen); !errors.Is(err, writeErr) {
		t.Fatalf("write error not propagated: %v", err)
	}
}

func TestDefaultPeriodMeta(t *testing.T) {
	meta := DefaultPeriodMeta(time.Date(2026, time.February, 10, 8, 0, 0, 0, time.UTC))
	if meta.PeriodStart != "2026-02-01" || meta.PeriodEnd != "2026-02-28" {
		t.Fatalf("period = %s..%s", meta.PeriodStart, meta.PeriodEnd)
	}
	if meta.PeriodLabel != "February 2026" {
		t.Fatalf("label = %q", meta.PeriodLabel)
	}
}

func TestNextPeriodMeta(t *testing.T) {
	meta := NextPeriodMeta("2026-01-31", testNow)
	if meta.PeriodStart != "2026-02-01" || meta.PeriodEnd != "2026-02-28" {
		t.Fatalf("period = %s..%s, want February", meta.PeriodStart, meta.PeriodEnd)
	}

	// Malformed end date falls back to the current month.
	fallback := NextPeriodMeta("not-a-date", testNow)
	if fallback.PeriodStart != "2026-03-01" {
		t.Fatalf("fallback period start = %s", fallback.PeriodStart)
	}
}
