package services

import (
	"linkary/models"
)

// GraphNode ist ein Knoten für die Force-Directed-Darstellung im Frontend.
type GraphNode struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	URL      string   `json:"url"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// GraphEdge ist eine gerichtete Kante: Source listet Target als verwandt.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// GraphData ist die Projektion aller Links eines Owners als Knoten und Kanten.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// BuildGraph projiziert die Links eines Owners auf eine Knoten-/Kantenstruktur.
// Die Liste muss bereits auf einen Owner gefiltert sein; dadurch können Kanten
// nie auf fremde Links zeigen.
//
// Verwandtschaft ist gerichtet und wird nicht dedupliziert: listen sich A und B
// gegenseitig, entstehen zwei Kanten. Related-IDs ohne zugehörigen Knoten
// (gelöschte oder fremde Links) werden kommentarlos übersprungen.
func BuildGraph(links []models.Link) GraphData {
	graph := GraphData{
		Nodes: make([]GraphNode, 0, len(links)),
		Edges: []GraphEdge{},
	}

	known := make(map[string]struct{}, len(links))
	for _, link := range links {
		label := link.Title
		if label == "" {
			label = link.URL
		}
		tags := link.Tags
		if tags == nil {
			tags = []string{}
		}
		graph.Nodes = append(graph.Nodes, GraphNode{
			ID:       link.ID,
			Label:    label,
			URL:      link.URL,
			Category: link.Category,
			Tags:     tags,
		})
		known[link.ID] = struct{}{}
	}

	for _, link := range links {
		for _, target := range link.RelatedLinks {
			if _, ok := known[target]; !ok {
				continue
			}
			graph.Edges = append(graph.Edges, GraphEdge{Source: link.ID, Target: target})
		}
	}

	return graph
}
