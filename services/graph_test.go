package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkary/models"
)

func testLink(id, title, url string, related ...string) models.Link {
	return models.Link{
		ID:           id,
		OwnerID:      "owner-1",
		URL:          url,
		Title:        title,
		Category:     models.DefaultCategory,
		RelatedLinks: related,
	}
}

func TestBuildGraphEmptyInput(t *testing.T) {
	graph := BuildGraph(nil)

	assert.Empty(t, graph.Nodes)
	assert.Empty(t, graph.Edges)
	// Leere Slices, kein null im serialisierten JSON.
	require.NotNil(t, graph.Nodes)
	require.NotNil(t, graph.Edges)
}

func TestBuildGraphOneNodePerLink(t *testing.T) {
	links := []models.Link{
		testLink("a", "Alpha", "https://a.example", "b", "missing"),
		testLink("b", "Beta", "https://b.example"),
		testLink("c", "Gamma", "https://c.example", "a", "b"),
	}

	graph := BuildGraph(links)

	assert.Len(t, graph.Nodes, 3)
}

func TestBuildGraphSkipsDanglingReferences(t *testing.T) {
	links := []models.Link{
		testLink("a", "Alpha", "https://a.example", "gone", "also-gone"),
	}

	graph := BuildGraph(links)

	assert.Len(t, graph.Nodes, 1)
	assert.Empty(t, graph.Edges)
}

// Verwandtschaft ist gerichtet: A -> B erzeugt genau eine Kante, keine
// automatische Gegenrichtung.
func TestBuildGraphDirectedEdges(t *testing.T) {
	links := []models.Link{
		testLink("a", "Alpha", "https://a.example", "b"),
		testLink("b", "Beta", "https://b.example"),
	}

	graph := BuildGraph(links)

	require.Len(t, graph.Edges, 1)
	assert.Equal(t, GraphEdge{Source: "a", Target: "b"}, graph.Edges[0])
}

func TestBuildGraphMutualRelationYieldsTwoEdges(t *testing.T) {
	links := []models.Link{
		testLink("a", "Alpha", "https://a.example", "b"),
		testLink("b", "Beta", "https://b.example", "a"),
	}

	graph := BuildGraph(links)

	assert.Len(t, graph.Edges, 2)
	assert.Contains(t, graph.Edges, GraphEdge{Source: "a", Target: "b"})
	assert.Contains(t, graph.Edges, GraphEdge{Source: "b", Target: "a"})
}

func TestBuildGraphLabelFallsBackToURL(t *testing.T) {
	links := []models.Link{
		testLink("a", "", "https://a.example"),
	}

	graph := BuildGraph(links)

	require.Len(t, graph.Nodes, 1)
	assert.Equal(t, "https://a.example", graph.Nodes[0].Label)
}

func TestBuildGraphNodeCarriesCategoryAndTags(t *testing.T) {
	link := testLink("a", "Alpha", "https://a.example")
	link.Category = "Tutorial"
	link.Tags = []string{"go", "testing"}

	graph := BuildGraph([]models.Link{link})

	require.Len(t, graph.Nodes, 1)
	node := graph.Nodes[0]
	assert.Equal(t, "Tutorial", node.Category)
	assert.Equal(t, []string{"go", "testing"}, node.Tags)
}

func TestBuildGraphPreservesInputOrder(t *testing.T) {
	links := []models.Link{
		testLink("c", "Gamma", "https://c.example"),
		testLink("a", "Alpha", "https://a.example"),
		testLink("b", "Beta", "https://b.example"),
	}

	graph := BuildGraph(links)

	require.Len(t, graph.Nodes, 3)
	assert.Equal(t, "c", graph.Nodes[0].ID)
	assert.Equal(t, "a", graph.Nodes[1].ID)
	assert.Equal(t, "b", graph.Nodes[2].ID)
}
