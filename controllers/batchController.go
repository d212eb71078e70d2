package controllers

import (
	"errors"
	"strings"
	"time"

	"belegflow-backend/database"
	"belegflow-backend/lifecycle"
	"belegflow-backend/middlewares"
	"belegflow-backend/models"
	"belegflow-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type BatchCreateDTO struct {
	BatchName    string `json:"batch_name" validate:"required,min=1"`
	CustomerName string `json:"customer_name" validate:"omitempty"`
	Notes        string `json:"notes" validate:"omitempty"`
	PeriodStart  string `json:"period_start" validate:"omitempty,datetime=2006-01-02"`
	PeriodEnd    string `json:"period_end" validate:"omitempty,datetime=2006-01-02"`
	PeriodLabel  string `json:"period_label" validate:"omitempty"`
	// SeedFrom names an existing batch; the new batch starts the month
	// after that batch's period end.
	SeedFrom string `json:"seed_from" validate:"omitempty,uuid4"`
}

type BatchUpdateDTO struct {
	BatchName    *string `json:"batch_name" validate:"omitempty,min=1"`
	CustomerName *string `json:"customer_name" validate:"omitempty"`
	Notes        *string `json:"notes" validate:"omitempty"`
	PeriodStart  *string `json:"period_start" validate:"omitempty,datetime=2006-01-02"`
	PeriodEnd    *string `json:"period_end" validate:"omitempty,datetime=2006-01-02"`
	PeriodLabel  *string `json:"period_label" validate:"omitempty"`
}

// POST /api/batch
func CreateBatch(c *fiber.Ctx) error {
	var in BatchCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	db, _, err := tenantEngine(c)
	if err != nil {
		return err
	}

	batch := models.Batch{
		BatchName:      in.BatchName,
		CustomerName:   in.CustomerName,
		Notes:          in.Notes,
		Status:         models.BatchStatusOpen,
		LifecycleStage: models.StageDraft,
		PeriodStart:    in.PeriodStart,
		PeriodEnd:      in.PeriodEnd,
		PeriodLabel:    in.PeriodLabel,
	}

	if batch.PeriodStart == "" || batch.PeriodEnd == "" {
		meta := lifecycle.DefaultPeriodMeta(time.Now())
		if in.SeedFrom != "" {
			var prev models.Batch
			if err := db.First(&prev, "id = ?", in.SeedFrom).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "seed batch not found")
				}
				return fiber.NewError(fiber.StatusInternalServerError, "db error")
			}
			meta = lifecycle.NextPeriodMeta(prev.PeriodEnd, time.Now())
			if batch.CustomerName == "" {
				batch.CustomerName = prev.CustomerName
			}
		}
		batch.PeriodStart = meta.PeriodStart
		batch.PeriodEnd = meta.PeriodEnd
		if batch.PeriodLabel == "" {
			batch.PeriodLabel = meta.PeriodLabel
		}
	}

	if err := db.Create(&batch).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not create batch")
	}
	return c.Status(fiber.StatusCreated).JSON(batch)
}

// GET /api/batches
func GetBatches(c *fiber.Ctx) error {
	db, engine, err := tenantEngine(c)
	if err != nil {
		return err
	}

	limit, offset := pageWindow(c.Query("limit"), c.Query("offset"))

	var batches []models.Batch
	if err := db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&batches).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	// Enrich from cached counters; the receipt lists are not loaded here.
	out := make([]models.Batch, 0, len(batches))
	for i := range batches {
		out = append(out, engine.Enrich(&batches[i], nil))
	}

	return c.JSON(fiber.Map{
		"batches": out,
		"message": "success",
	})
}

// GET /api/batch/:id
func GetBatch(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing batch id in path")
	}

	db, engine, err := tenantEngine(c)
	if err != nil {
		return err
	}

	var batch models.Batch
	if err := db.First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "batch not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	receipts, err := database.NewReceiptStore(db).ListByBatch(c.Context(), id)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	enriched := engine.Enrich(&batch, receipts)
	enriched.Receipts = receipts
	return c.JSON(enriched)
}

// PUT /api/batch/:id
func UpdateBatch(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing batch id in path")
	}

	var in BatchUpdateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizePtrDTO(&in)

	db, _, err := tenantEngine(c)
	if err != nil {
		return err
	}

	var existing models.Batch
	if err := db.First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "batch not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	updates := utils.UpdatesFromPtrDTO(&in, nil)
	if len(updates) > 0 {
		if err := db.Model(&models.Batch{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not update batch")
		}
	}

	var out models.Batch
	if err := db.First(&out, "id = ?", id).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to reload batch")
	}
	return c.JSON(out)
}

// PUT /api/batch/:id/finalize
func FinalizeBatch(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing batch id in path")
	}

	db, _, err := tenantEngine(c)
	if err != nil {
		return err
	}

	var batch models.Batch
	if err := db.First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "batch not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	// Terminal transition; enrichment keeps it completed from here on.
	if err := db.Model(&models.Batch{}).Where("id = ?", id).Updates(map[string]any{
		"status":          models.BatchStatusCompleted,
		"lifecycle_stage": models.StageCompleted,
	}).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not finalize batch")
	}

	var out models.Batch
	if err := db.First(&out, "id = ?", id).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to reload batch")
	}
	return c.JSON(out)
}

// DELETE /api/batch/:id
func DeleteBatch(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing batch id in path")
	}

	db, _, err := tenantEngine(c)
	if err != nil {
		return err
	}

	var batch models.Batch
	if err := db.First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "batch not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	// Collect stored file keys before the rows disappear.
	var fileKeys []string
	if err := db.Model(&models.Receipt{}).
		Where("batch_id = ? AND file_key <> ''", id).
		Pluck("file_key", &fileKeys).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	// Child receipts first (line items cascade on receipt delete).
	if err := db.Where("batch_id = ?", id).Delete(&models.Receipt{}).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not delete batch receipts")
	}
	if err := db.Delete(&models.Batch{}, "id = ?", id).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not delete batch")
	}

	removeStoredFiles(c.Context(), fileKeys)

	return c.JSON(fiber.Map{"message": "success"})
}
