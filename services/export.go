package services

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"linkary/config"
	"linkary/models"
	"linkary/storage"
)

// ExportService schreibt nachts einen komprimierten JSON-Abzug aller Links
// nach S3. Das ist ein reiner Daten-Export, keine Neu-Extraktion: an den
// gespeicherten Metadaten ändert sich nichts.
type ExportService struct {
	Config   *config.Config
	DB       *gorm.DB
	S3Client *s3.Client
	Logger   *zap.Logger
}

// NewExportService erstellt eine neue Instanz des ExportService.
func NewExportService(cfg *config.Config, db *gorm.DB, s3Client *s3.Client, logger *zap.Logger) *ExportService {
	return &ExportService{Config: cfg, DB: db, S3Client: s3Client, Logger: logger}
}

// Run lädt alle Links, serialisiert sie als gzip-JSON und lädt sie nach S3.
// Gibt die Anzahl exportierter Links zurück.
func (e *ExportService) Run(ctx context.Context) (int, error) {
	var links []models.Link
	if err := e.DB.Order("created_at asc").Find(&links).Error; err != nil {
		return 0, fmt.Errorf("failed to load links for export: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(links); err != nil {
		return 0, fmt.Errorf("failed to encode export: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish export archive: %w", err)
	}

	key := fmt.Sprintf("exports/links-%s.json.gz", time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	location, err := storage.UploadObject(ctx, e.S3Client, e.Config.StratoS3Bucket, key, buf.Bytes(), e.Config)
	if err != nil {
		return 0, fmt.Errorf("S3-Upload fehlgeschlagen: %w", err)
	}

	e.Logger.Info("Link-Export abgeschlossen",
		zap.Int("links", len(links)),
		zap.String("location", location))
	return len(links), nil
}
