package storage

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/clinicware/backend/internal/application/ingestion"
	infraconfig "github.com/clinicware/backend/internal/infrastructure/config"
)

// NewDocumentStore creates a document store for the configured driver.
func NewDocumentStore(cfg *infraconfig.StorageConfig, logger *zap.Logger) (ingestion.DocumentStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage configuration is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case "s3":
		store, err := NewS3DocumentStore(cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		logger.Info("using S3 document store",
			zap.String("bucket", cfg.Bucket),
			zap.String("region", cfg.Region),
		)
		return store, nil
	case "local":
		store, err := NewLocalDocumentStore(cfg.LocalDir, cfg.TempPrefix)
		if err != nil {
			return nil, err
		}
		logger.Info("using local document store", zap.String("dir", cfg.LocalDir))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
