package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// DefaultCategory ist die Auffang-Kategorie für nicht zugeordnete Links.
const DefaultCategory = "Other"

// Categories listet alle gültigen Link-Kategorien.
var Categories = []string{
	"Article",
	"Tutorial",
	"Documentation",
	"Tool",
	"Video",
	"Repository",
	"Research",
	"News",
	"Reference",
	DefaultCategory,
}

// ValidCategory prüft, ob eine Kategorie im festen Katalog enthalten ist.
func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Link repräsentiert einen gespeicherten Link inklusive extrahierter Metadaten.
// URL ist pro Owner eindeutig; derselbe Link darf von mehreren Usern unabhängig
// gespeichert werden.
type Link struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OwnerID string `json:"owner_id" gorm:"type:uuid;index:idx_links_owner_url,unique;not null"`
	URL     string `json:"url" gorm:"index:idx_links_owner_url,unique;not null"`

	// Extrahierte Metadaten; leerer String bedeutet "unbekannt", niemals NULL.
	Title       string `json:"title" gorm:"not null;default:''"`
	Description string `json:"description" gorm:"type:text;not null;default:''"`
	Favicon     string `json:"favicon" gorm:"not null;default:''"`
	Image       string `json:"image" gorm:"not null;default:''"`

	Tags     pq.StringArray `json:"tags" gorm:"type:text[]"`
	Category string         `json:"category" gorm:"index;not null;default:'Other'"`
	Notes    string         `json:"notes" gorm:"type:text;not null;default:''"`

	// IDs anderer Links desselben Owners. Keine Fremdschlüssel und bewusst
	// text[] statt uuid[]: Einträge dürfen ins Leere zeigen, der
	// Graph-Projektor filtert sie heraus.
	RelatedLinks pq.StringArray `json:"related_links" gorm:"type:text[]"`
}

// TableName gibt explizit den Tabellennamen an.
func (Link) TableName() string {
	return "links"
}

// BeforeCreate vergibt die unveränderliche ID und die Default-Kategorie.
func (l *Link) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Category == "" {
		l.Category = DefaultCategory
	}
	return nil
}
