package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidCategory(t *testing.T) {
	for _, category := range Categories {
		assert.True(t, ValidCategory(category), category)
	}

	assert.False(t, ValidCategory("Podcast"))
	assert.False(t, ValidCategory("article")) // case-sensitiv
	assert.False(t, ValidCategory(""))
}

func TestLinkBeforeCreateAssignsIDAndCategory(t *testing.T) {
	link := &Link{OwnerID: "owner-1", URL: "https://example.com"}

	require.NoError(t, link.BeforeCreate(nil))

	assert.NotEmpty(t, link.ID)
	assert.Equal(t, DefaultCategory, link.Category)
}

func TestLinkBeforeCreateKeepsExistingValues(t *testing.T) {
	link := &Link{ID: "fixed-id", Category: "Tool"}

	require.NoError(t, link.BeforeCreate(nil))

	assert.Equal(t, "fixed-id", link.ID)
	assert.Equal(t, "Tool", link.Category)
}
