package controllers

import (
	"context"

	"belegflow-backend/database"
	"belegflow-backend/lifecycle"
	"belegflow-backend/logger"
	"belegflow-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// tenantEngine returns the request's tenant DB together with a lifecycle
// engine bound to it. The engine gets fresh store instances per request so
// snapshot writes share the request transaction.
func tenantEngine(c *fiber.Ctx) (*gorm.DB, *lifecycle.Engine, error) {
	db, err := database.GetTenantDB(c)
	if err != nil {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "tenant db unavailable")
	}
	engine := lifecycle.NewEngine(database.NewReceiptStore(db), database.NewBatchStore(db))
	return db, engine, nil
}

// pageWindow parses list pagination query values, clamping the limit.
func pageWindow(limitStr, offsetStr string) (limit, offset int) {
	limit = utils.ParseIntDefault(limitStr, defaultPageSize)
	if limit == 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset = utils.ParseIntDefault(offsetStr, 0)
	return limit, offset
}

// fileRemover is the slice of object storage the delete paths need.
type fileRemover interface {
	Delete(ctx context.Context, key string) error
}

var fileStore fileRemover

// UseFileStore installs the object storage used to clean up stored receipt
// files after their rows are deleted.
func UseFileStore(s fileRemover) {
	fileStore = s
}

// removeStoredFiles deletes receipt files from object storage. The rows are
// already gone at this point, so failures are logged rather than returned.
func removeStoredFiles(ctx context.Context, keys []string) {
	if fileStore == nil {
		return
	}
	log := logger.WithComponent("controllers")
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := fileStore.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("stored file not removed")
		}
	}
}
