package controllers

import (
	"errors"
	"strings"

	"belegflow-backend/ledger"
	"belegflow-backend/middlewares"
	"belegflow-backend/models"
	"belegflow-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LineItemDTO struct {
	Description string  `json:"description" validate:"omitempty"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

type ReceiptCreateDTO struct {
	BatchID       string        `json:"batch_id" validate:"required,uuid4"`
	Type          string        `json:"type" validate:"omitempty,oneof=expense income"`
	Date          string        `json:"date" validate:"omitempty"`
	VendorName    string        `json:"vendor_name" validate:"omitempty"`
	ReceiptNumber string        `json:"receipt_number" validate:"omitempty"`
	Category      string        `json:"category" validate:"omitempty"`
	PaymentMethod string        `json:"payment_method" validate:"omitempty"`
	Currency      string        `json:"currency" validate:"omitempty,len=3"`
	Notes         string        `json:"notes" validate:"omitempty"`
	VatAmount     float64       `json:"vat_amount"`
	TotalAmount   float64       `json:"total_amount"`
	LineItems     []LineItemDTO `json:"line_items" validate:"omitempty,dive"`
}

type ReceiptUpdateDTO struct {
	Type          *string       `json:"type" validate:"omitempty,oneof=expense income"`
	Date          *string       `json:"date" validate:"omitempty"`
	VendorName    *string       `json:"vendor_name" validate:"omitempty"`
	ReceiptNumber *string       `json:"receipt_number" validate:"omitempty"`
	Category      *string       `json:"category" validate:"omitempty"`
	PaymentMethod *string       `json:"payment_method" validate:"omitempty"`
	Currency      *string       `json:"currency" validate:"omitempty,len=3"`
	Notes         *string       `json:"notes" validate:"omitempty"`
	VatAmount     *float64      `json:"vat_amount"`
	TotalAmount   *float64      `json:"total_amount"`
	LineItems     []LineItemDTO `json:"line_items" validate:"omitempty,dive"`

	// Recalculate, when present, overwrites monetary fields after the
	// edits are applied (item totals, then VAT, then grand total).
	Recalculate *RecalculateDTO `json:"recalculate"`
}

// RecalculateDTO mirrors ledger.RecalculateOptions with pointer fields so an
// omitted flag keeps the ledger default instead of decoding to false.
type RecalculateDTO struct {
	RecalculateItemTotals *bool    `json:"recalculate_item_totals"`
	RecalculateVat        *bool    `json:"recalculate_vat"`
	VatPercent            *float64 `json:"vat_percent" validate:"omitempty,gte=0,lte=100"`
	RecalculateGrandTotal *bool    `json:"recalculate_grand_total"`
}

// recalcOptionsFromDTO starts from the ledger defaults and overlays only the
// fields the client actually sent. customerVat, when positive, replaces the
// built-in VAT rate; an explicit vat_percent in the request wins over both.
func recalcOptionsFromDTO(in *RecalculateDTO, customerVat float64) ledger.RecalculateOptions {
	opts := ledger.DefaultRecalculateOptions()
	if customerVat > 0 {
		opts.VatPercent = customerVat
	}
	if in == nil {
		return opts
	}
	if in.RecalculateItemTotals != nil {
		opts.RecalculateItemTotals = *in.RecalculateItemTotals
	}
	if in.RecalculateVat != nil {
		opts.RecalculateVat = *in.RecalculateVat
	}
	if in.VatPercent != nil {
		opts.VatPercent = *in.VatPercent
	}
	if in.RecalculateGrandTotal != nil {
		opts.RecalculateGrandTotal = *in.RecalculateGrandTotal
	}
	return opts
}

// customerDefaultVat resolves the configured VAT rate of the batch's
// customer. 0 when the batch names no customer or none is configured.
func customerDefaultVat(db *gorm.DB, batchID string) float64 {
	var batch models.Batch
	if err := db.Select("customer_name").First(&batch, "id = ?", batchID).Error; err != nil {
		return 0
	}
	if batch.CustomerName == "" {
		return 0
	}
	var customer models.Customer
	if err := db.First(&customer, "company_name = ?", batch.CustomerName).Error; err != nil {
		return 0
	}
	return customer.DefaultVatPercent
}

type ReviewDTO struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
}

func lineItemsFromDTO(items []LineItemDTO) []models.LineItem {
	out := make([]models.LineItem, 0, len(items))
	for i, li := range items {
		out = append(out, models.LineItem{
			Position:    i,
			Description: strings.TrimSpace(li.Description),
			Quantity:    li.Quantity,
			UnitPrice:   ledger.Round2(li.UnitPrice),
			Total:       ledger.Round2(li.Total),
		})
	}
	return out
}

// refreshBatchSnapshot recomputes and persists the owning batch's derived
// state. Called after every receipt mutation.
func refreshBatchSnapshot(c *fiber.Ctx, batchID string) error {
	db, engine, err := tenantEngine(c)
	if err != nil {
		return err
	}
	var batch models.Batch
	if err := db.First(&batch, "id = ?", batchID).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "owning batch unavailable")
	}
	if _, err := engine.UpdateSnapshot(c.Context(), batchID, batch.Status); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not refresh batch snapshot")
	}
	return nil
}

// POST /api/receipt
func CreateReceipt(c *fiber.Ctx) error {
	var in ReceiptCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	db, _, err := tenantEngine(c)
	if err != nil {
		return err
	}

	var batch models.Batch
	if err := db.First(&batch, "id = ?", in.BatchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "batch not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	receipt := models.Receipt{
		BatchID:       in.BatchID,
		Type:          models.ReceiptType(in.Type),
		Status:        models.ReceiptStatusPending,
		Items:         lineItemsFromDTO(in.LineItems),
		VatAmount:     ledger.Round2(in.VatAmount),
		TotalAmount:   ledger.Round2(in.TotalAmount),
		Date:          in.Date,
		VendorName:    in.VendorName,
		ReceiptNumber: in.ReceiptNumber,
		Category:      in.Category,
		PaymentMethod: in.PaymentMethod,
		Currency:      strings.ToUpper(in.Currency),
		Notes:         in.Notes,
	}
	if receipt.Type == "" {
		receipt.Type = models.ReceiptTypeExpense
	}

	if err := db.Create(&receipt).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not create receipt")
	}

	if err := refreshBatchSnapshot(c, in.BatchID); err != nil {
		return err
	}

	// Consistency issues are reported, not enforced; the reviewer decides.
	validation := ledger.Validate(&receipt)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"receipt":    receipt,
		"validation": validation,
	})
}

// GET /api/batch/:id/receipts
func GetReceiptsByBatch(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing batch id in path")
	}

	db, _, err := tenantEngine(c)
	if err != nil {
		return err
	}

	limit, offset := pageWindow(c.Query("limit"), c.Query("offset"))

	var receipts []models.Receipt
	if err := db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("batch_id = ?", id).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&receipts).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	return c.JSON(fiber.Map{
		"receipts": receipts,
		"message":  "success",
	})
}

// GET /api/receipt/:id
func GetReceipt(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing receipt id in path")
	}

	db, _, err := tenantEngine(c)
	if err != nil {
		return err
	}

	var receipt models.Receipt
	if err := db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&receipt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "receipt not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	validation := ledger.Validate(&receipt)
	return c.JSON(fiber.Map{
		"receipt":    receipt,
		"validation": validation,
	})
}

// PUT /api/receipt/:id
func UpdateReceipt(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing receipt id in path")
	}

	var in ReceiptUpdateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizePtrDTO(&in)

	db, _, err := tenantEngine(c)
	if err != nil {
		return err
	}

	var receipt models.Receipt
	if err := db.Preload("Items").First(&receipt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "receipt not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	updates := utils.UpdatesFromPtrDTO(&in, nil)
	delete(updates, "recalculate")

	// Replacing line items replaces the whole set to keep ordering stable.
	if in.LineItems != nil {
		if err := db.Where("receipt_id = ?", id).Delete(&models.LineItem{}).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not replace line items")
		}
		receipt.Items = lineItemsFromDTO(in.LineItems)
		for i := range receipt.Items {
			receipt.Items[i].ReceiptID = id
		}
		if len(receipt.Items) > 0 {
			if err := db.Create(&receipt.Items).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "could not replace line items")
			}
		}
	}

	// Apply scalar edits to the in-memory receipt so recalculation sees them.
	if in.VatAmount != nil {
		receipt.VatAmount = *in.VatAmount
	}
	if in.TotalAmount != nil {
		receipt.TotalAmount = *in.TotalAmount
	}

	if in.Recalculate != nil {
		opts := recalcOptionsFromDTO(in.Recalculate, customerDefaultVat(db, receipt.BatchID))
		recalced := ledger.Recalculate(&receipt, opts)
		updates["vat_amount"] = recalced.VatAmount
		updates["total_amount"] = recalced.TotalAmount
		if opts.RecalculateItemTotals {
			for i := range recalced.Items {
				if err := db.Model(&models.LineItem{}).
					Where("id = ?", recalced.Items[i].ID).
					Update("total", recalced.Items[i].Total).Error; err != nil {
					return fiber.NewError(fiber.StatusInternalServerError, "could not update line item totals")
				}
			}
		}
		receipt = recalced
	}

	if len(updates) > 0 {
		if err := db.Model(&models.Receipt{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not update receipt")
		}
	}

	if err := refreshBatchSnapshot(c, receipt.BatchID); err != nil {
		return err
	}

	var out models.Receipt
	if err := db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&out, "id = ?", id).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to reload receipt")
	}

	validation := ledger.Validate(&out)
	return c.JSON(fiber.Map{
		"receipt":    out,
		"validation": validation,
	})
}

// PUT /api/receipt/:id/review
func ReviewReceipt(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing receipt id in path")
	}

	var in ReviewDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	db, _, err := tenantEngine(c)
	if err != nil {
		return err
	}

	var receipt models.Receipt
	if err := db.First(&receipt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "receipt not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	status := models.ReceiptStatusApproved
	if in.Action == "reject" {
		status = models.ReceiptStatusRejected
	}

	if err := db.Model(&models.Receipt{}).Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not review receipt")
	}

	if err := refreshBatchSnapshot(c, receipt.BatchID); err != nil {
		return err
	}

	receipt.Status = status
	return c.JSON(receipt)
}

// DELETE /api/receipt/:id
func DeleteReceipt(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing receipt id in path")
	}

	db, _, err := tenantEngine(c)
	if err != nil {
		return err
	}

	var receipt models.Receipt
	if err := db.First(&receipt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "receipt not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	if err := db.Where("receipt_id = ?", id).Delete(&models.LineItem{}).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not delete line items")
	}
	if err := db.Delete(&models.Receipt{}, "id = ?", id).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not delete receipt")
	}

	removeStoredFiles(c.Context(), []string{receipt.FileKey})

	if err := refreshBatchSnapshot(c, receipt.BatchID); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "success"})
}
