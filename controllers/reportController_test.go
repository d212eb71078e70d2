package controllers

import (
	"testing"

	"belegflow-backend/models"
)

func TestBuildBatchReportSplitsByTypeAndStatus(t *testing.T) {
	batch := &models.Batch{
		ID:          "b-1",
		BatchName:   "March",
		PeriodLabel: "March 2026",
	}
	receipts := []models.Receipt{
		{Type: models.ReceiptTypeIncome, Status: models.ReceiptStatusApproved, TotalAmount: 118, VatAmount: 18},
		{Type: models.ReceiptTypeExpense, Status: models.ReceiptStatusApproved, TotalAmount: 59, VatAmount: 9},
		{Type: models.ReceiptTypeExpense, Status: models.ReceiptStatusPending, TotalAmount: 500, VatAmount: 76},
		{Type: models.ReceiptTypeIncome, Status: models.ReceiptStatusRejected, TotalAmount: 500, VatAmount: 76},
	}

	rep := buildBatchReport(batch, receipts)

	if rep.IncomeTotal != 118 || rep.IncomeVat != 18 {
		t.Errorf("income = %v/%v, want 118/18", rep.IncomeTotal, rep.IncomeVat)
	}
	if rep.ExpenseTotal != 59 || rep.ExpenseVat != 9 {
		t.Errorf("expense = %v/%v, want 59/9", rep.ExpenseTotal, rep.ExpenseVat)
	}
	if rep.NetResult != 59 {
		t.Errorf("net = %v, want 59", rep.NetResult)
	}
	if rep.TotalReceipts != 4 || rep.ApprovedReceipts != 2 || rep.PendingReceipts != 1 || rep.RejectedReceipts != 1 {
		t.Errorf("counts = %d/%d/%d/%d", rep.TotalReceipts, rep.ApprovedReceipts, rep.PendingReceipts, rep.RejectedReceipts)
	}
	if rep.ProcessedReceipts != 3 {
		t.Errorf("processed = %d, want total minus pending = 3", rep.ProcessedReceipts)
	}
}

func TestBuildBatchReportEmptyBatch(t *testing.T) {
	rep := buildBatchReport(&models.Batch{ID: "b-2"}, nil)
	if rep.TotalReceipts != 0 || rep.NetResult != 0 {
		t.Errorf("empty batch report = %+v", rep)
	}
}
