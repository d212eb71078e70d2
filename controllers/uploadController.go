package controllers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"belegflow-backend/ledger"
	"belegflow-backend/logger"
	"belegflow-backend/models"
	"belegflow-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// presignExpiry covers both the extraction call and a reviewer opening the
// file right after upload.
const presignExpiry = 15 * time.Minute

var allowedUploadTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// UploadController owns the receipt-file pipeline: object storage for the
// binary, the extraction service for the structured fields. Both are
// injected at startup.
type UploadController struct {
	Storage    *services.StorageService
	Extraction services.ExtractionService
	log        zerolog.Logger
}

func NewUploadController(storage *services.StorageService, extraction services.ExtractionService) *UploadController {
	return &UploadController{
		Storage:    storage,
		Extraction: extraction,
		log:        logger.WithComponent("upload"),
	}
}

// POST /api/batch/:id/upload
func (u *UploadController) UploadReceipt(c *fiber.Ctx) error {
	batchID := strings.TrimSpace(c.Params("id"))
	if batchID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing batch id in path")
	}

	db, _, err := tenantEngine(c)
	if err != nil {
		return err
	}

	var batch models.Batch
	if err := db.First(&batch, "id = ?", batchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "batch not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "db error")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing file field")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedUploadTypes[contentType] {
		return fiber.NewError(fiber.StatusUnsupportedMediaType, "only JPEG, PNG, WebP and PDF uploads are supported")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not read uploaded file")
	}
	defer src.Close()

	schema, _ := c.Locals("schema").(string)
	key := fmt.Sprintf("%s/%s/%s%s", schema, batchID, uuid.NewString(), filepath.Ext(fileHeader.Filename))

	if _, err := u.Storage.Upload(c.Context(), key, src, fileHeader.Size, contentType); err != nil {
		u.log.Error().Err(err).Str("key", key).Msg("receipt upload failed")
		return fiber.NewError(fiber.StatusBadGateway, "could not store file")
	}

	fileURL, err := u.Storage.GetPresignedURL(c.Context(), key, presignExpiry)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "could not prepare file for extraction")
	}

	extracted, err := u.Extraction.ExtractFromURL(c.Context(), fileURL, contentType)
	if err != nil {
		// The file is safe in storage; let the client retry extraction
		// or key the receipt in manually.
		u.log.Error().Err(err).Str("key", key).Msg("extraction failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message":  "extraction failed, file stored",
			"file_key": key,
		})
	}

	receipt := models.Receipt{
		BatchID:       batchID,
		Type:          models.ReceiptType(extracted.Type),
		Status:        models.ReceiptStatusPending,
		VatAmount:     ledger.Round2(extracted.VatAmount),
		TotalAmount:   ledger.Round2(extracted.TotalAmount),
		Date:          extracted.Date,
		VendorName:    extracted.VendorName,
		ReceiptNumber: extracted.ReceiptNumber,
		Category:      extracted.Category,
		PaymentMethod: extracted.PaymentMethod,
		Currency:      extracted.Currency,
		Notes:         extracted.Notes,
		FileKey:       key,
		FileName:      fileHeader.Filename,
		ContentType:   contentType,
		ExtractionRaw: datatypes.JSON(extracted.Raw),
	}
	for i, li := range extracted.LineItems {
		receipt.Items = append(receipt.Items, models.LineItem{
			Position:    i,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   ledger.Round2(li.UnitPrice),
			Total:       ledger.Round2(li.Total),
		})
	}

	if err := db.Create(&receipt).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not create receipt")
	}

	if err := refreshBatchSnapshot(c, batchID); err != nil {
		return err
	}

	validation := ledger.Validate(&receipt)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"receipt":    receipt,
		"validation": validation,
	})
}

// GET /api/receipt/:id/file
func (u *UploadController) GetReceiptFile(c *fiber.Ctx) error {
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
	if receipt.FileKey == "" {
		return fiber.NewError(fiber.StatusNotFound, "receipt has no stored file")
	}

	url, err := u.Storage.GetPresignedURL(c.Context(), receipt.FileKey, presignExpiry)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "could not generate download URL")
	}

	return c.JSON(fiber.Map{
		"url":        url,
		"file_name":  receipt.FileName,
		"expires_in": int(presignExpiry.Seconds()),
	})
}
