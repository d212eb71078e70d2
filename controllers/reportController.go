package controllers

import (
	"errors"
	"fmt"
	"strings"

	"belegflow-backend/database"
	"belegflow-backend/ledger"
	"belegflow-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// batchReport is the JSON summary of one batch: period, stage and the
// income/expense/VAT split over approved receipts.
type batchReport struct {
	BatchID      string                `json:"batch_id"`
	BatchName    string                `json:"batch_name"`
	CustomerName string                `json:"customer_name"`
	PeriodStart  string                `json:"period_start"`
	PeriodEnd    string                `json:"period_end"`
	PeriodLabel  string                `json:"period_label"`
	Stage        models.LifecycleStage `json:"lifecycle_stage"`
	Status       models.BatchStatus    `json:"status"`

	TotalReceipts     int `json:"total_receipts"`
	ApprovedReceipts  int `json:"approved_receipts"`
	PendingReceipts   int `json:"pending_receipts"`
	RejectedReceipts  int `json:"rejected_receipts"`
	ProcessedReceipts int `json:"processed_receipts"`

	IncomeTotal  float64 `json:"income_total"`
	ExpenseTotal float64 `json:"expense_total"`
	IncomeVat    float64 `json:"income_vat"`
	ExpenseVat   float64 `json:"expense_vat"`
	NetResult    float64 `json:"net_result"`
}

func buildBatchReport(batch *models.Batch, receipts []models.Receipt) batchReport {
	rep := batchReport{
		BatchID:      batch.ID,
		BatchName:    batch.BatchName,
		CustomerName: batch.CustomerName,
		PeriodStart:  batch.PeriodStart,
		PeriodEnd:    batch.PeriodEnd,
		PeriodLabel:  batch.PeriodLabel,
		Stage:        batch.LifecycleStage,
		Status:       batch.Status,
	}

	rep.TotalReceipts = len(receipts)
	for _, r := range receipts {
		switch r.Status {
		case models.ReceiptStatusApproved:
			rep.ApprovedReceipts++
			if r.Type == models.ReceiptTypeIncome {
				rep.IncomeTotal = ledger.Round2(rep.IncomeTotal + r.TotalAmount)
				rep.IncomeVat = ledger.Round2(rep.IncomeVat + r.VatAmount)
			} else {
				rep.ExpenseTotal = ledger.Round2(rep.ExpenseTotal + r.TotalAmount)
				rep.ExpenseVat = ledger.Round2(rep.ExpenseVat + r.VatAmount)
			}
		case models.ReceiptStatusRejected:
			rep.RejectedReceipts++
		default:
			rep.PendingReceipts++
		}
	}
	rep.ProcessedReceipts = rep.TotalReceipts - rep.PendingReceipts
	rep.NetResult = ledger.Round2(rep.IncomeTotal - rep.ExpenseTotal)
	return rep
}

func loadBatchWithReceipts(c *fiber.Ctx, id string) (*models.Batch, []models.Receipt, error) {
	db, engine, err := tenantEngine(c)
	if err != nil {
		return nil, nil, err
	}

	var batch models.Batch
	if err := db.First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fiber.NewError(fiber.StatusNotFound, "batch not found")
		}
		return nil, nil, fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	receipts, err := database.NewReceiptStore(db).ListByBatch(c.Context(), id)
	if err != nil {
		return nil, nil, fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	enriched := engine.Enrich(&batch, receipts)
	return &enriched, receipts, nil
}

// GET /api/batch/:id/report
func GetBatchReport(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing batch id in path")
	}

	batch, receipts, err := loadBatchWithReceipts(c, id)
	if err != nil {
		return err
	}

	return c.JSON(buildBatchReport(batch, receipts))
}

// GET /api/batch/:id/report.xlsx
func ExportBatchReport(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing batch id in path")
	}

	batch, receipts, err := loadBatchWithReceipts(c, id)
	if err != nil {
		return err
	}
	rep := buildBatchReport(batch, receipts)

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Receipts"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Date", "Vendor", "Receipt No", "Type", "Status", "Category", "Currency", "VAT", "Total"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range receipts {
		values := []any{r.Date, r.VendorName, r.ReceiptNumber, string(r.Type), string(r.Status), r.Category, r.Currency, r.VatAmount, r.TotalAmount}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	// Totals block under the receipt rows.
	row++
	totals := [][2]any{
		{"Period", rep.PeriodLabel},
		{"Income total", rep.IncomeTotal},
		{"Income VAT", rep.IncomeVat},
		{"Expense total", rep.ExpenseTotal},
		{"Expense VAT", rep.ExpenseVat},
		{"Net result", rep.NetResult},
	}
	for _, t := range totals {
		labelCell, _ := excelize.CoordinatesToCellName(1, row)
		valueCell, _ := excelize.CoordinatesToCellName(2, row)
		f.SetCellValue(sheet, labelCell, t[0])
		f.SetCellValue(sheet, valueCell, t[1])
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not render report")
	}

	filename := fmt.Sprintf("batch-%s.xlsx", strings.ReplaceAll(rep.PeriodLabel, " ", "-"))
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	return c.Send(buf.Bytes())
}
