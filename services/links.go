package services

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"linkary/models"
)

var (
	// ErrLinkNotFound wird auch für fremde Links zurückgegeben, damit die
	// Existenz fremder Daten nicht erkennbar ist.
	ErrLinkNotFound    = errors.New("link not found")
	ErrDuplicateURL    = errors.New("url already saved")
	ErrInvalidURL      = errors.New("invalid url")
	ErrInvalidCategory = errors.New("invalid category")
)

// LinkService kümmert sich um die Link-Verwaltung: Anlegen mit synchroner
// Metadaten-Anreicherung, Ownership-geprüfte Updates und die Graph-Projektion.
type LinkService struct {
	DB        *gorm.DB
	Logger    *zap.Logger
	Extractor *MetadataExtractor
}

// NewLinkService erstellt eine neue Instanz des LinkService.
func NewLinkService(db *gorm.DB, logger *zap.Logger, extractor *MetadataExtractor) *LinkService {
	return &LinkService{DB: db, Logger: logger, Extractor: extractor}
}

// CreateLinkInput sind die vom Client gelieferten Felder beim Anlegen.
type CreateLinkInput struct {
	URL          string   `json:"url" binding:"required"`
	Tags         []string `json:"tags"`
	Category     string   `json:"category"`
	Notes        string   `json:"notes"`
	RelatedLinks []string `json:"related_links"`
}

// UpdateLinkInput sind die optionalen Felder eines Teil-Updates. Nil bedeutet
// "Feld nicht anfassen".
type UpdateLinkInput struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	Tags         *[]string `json:"tags"`
	Category     *string   `json:"category"`
	Notes        *string   `json:"notes"`
	RelatedLinks *[]string `json:"related_links"`
}

// validateURL akzeptiert ausschließlich absolute http/https-URLs.
func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// CreateLink legt einen neuen Link an. Die Metadaten-Extraktion läuft synchron
// im Request; sie liefert garantiert ein Ergebnis, das Anlegen scheitert also
// nie an der Zielseite.
func (s *LinkService) CreateLink(ownerID string, input CreateLinkInput) (*models.Link, error) {
	if err := validateURL(input.URL); err != nil {
		return nil, err
	}
	if input.Category != "" && !models.ValidCategory(input.Category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, input.Category)
	}

	// Duplikatsprüfung pro Owner. Der Unique-Index auf (owner_id, url) fängt
	// das Rennen zweier paralleler Requests ab.
	var existing models.Link
	err := s.DB.Where("owner_id = ? AND url = ?", ownerID, input.URL).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateURL
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}

	meta := s.Extractor.Extract(input.URL)

	link := models.Link{
		OwnerID:      ownerID,
		URL:          input.URL,
		Title:        meta.Title,
		Description:  meta.Description,
		Favicon:      meta.Favicon,
		Image:        meta.Image,
		Tags:         pqStringArray(input.Tags),
		Category:     input.Category,
		Notes:        input.Notes,
		RelatedLinks: pqStringArray(input.RelatedLinks),
	}
	if err := s.DB.Create(&link).Error; err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	s.Logger.Info("Link angelegt",
		zap.String("id", link.ID),
		zap.String("owner_id", ownerID),
		zap.String("url", link.URL))
	return &link, nil
}

// ListLinks liefert alle Links eines Owners in Erstellungsreihenfolge.
func (s *LinkService) ListLinks(ownerID string) ([]models.Link, error) {
	var links []models.Link
	if err := s.DB.Where("owner_id = ?", ownerID).Order("created_at asc").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// GetLink holt einen einzelnen Link und prüft die Ownership.
func (s *LinkService) GetLink(id, ownerID string) (*models.Link, error) {
	var link models.Link
	err := s.DB.Where("id = ? AND owner_id = ?", id, ownerID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load link: %w", err)
	}
	return &link, nil
}

// UpdateLink wendet ein Teil-Update an und aktualisiert UpdatedAt.
// OwnerID und URL sind unveränderlich, eine Neu-Extraktion findet nicht statt.
func (s *LinkService) UpdateLink(id, ownerID string, input UpdateLinkInput) (*models.Link, error) {
	link, err := s.GetLink(id, ownerID)
	if err != nil {
		return nil, err
	}

	if input.Category != nil && *input.Category != "" && !models.ValidCategory(*input.Category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, *input.Category)
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Tags != nil {
		updates["tags"] = pqStringArray(*input.Tags)
	}
	if input.Category != nil {
		category := *input.Category
		if category == "" {
			category = models.DefaultCategory
		}
		updates["category"] = category
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if input.RelatedLinks != nil {
		// Keine Referenzprüfung: Einträge dürfen ins Leere zeigen, der
		// Graph-Projektor filtert sie beim Lesen heraus.
		updates["related_links"] = pqStringArray(*input.RelatedLinks)
	}

	if len(updates) > 0 {
		if err := s.DB.Model(link).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update link: %w", err)
		}
	}

	return link, nil
}

// DeleteLink löscht einen Link, Ownership-geprüft.
func (s *LinkService) DeleteLink(id, ownerID string) error {
	result := s.DB.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&models.Link{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete link: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	s.Logger.Info("Link gelöscht", zap.String("id", id), zap.String("owner_id", ownerID))
	return nil
}

// Graph lädt alle Links des Owners und projiziert sie auf Knoten und Kanten.
func (s *LinkService) Graph(ownerID string) (GraphData, error) {
	links, err := s.ListLinks(ownerID)
	if err != nil {
		return GraphData{}, err
	}
	return BuildGraph(links), nil
}

func pqStringArray(values []string) pq.StringArray {
	if values == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(values)
}
