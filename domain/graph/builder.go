// Package graph derives a knowledge graph from stored observations.
// Entities become nodes and shared tags become weighted edges; nothing
// here is persisted, the graph is rebuilt from the tables on demand.
package graph

import (
	"sort"
)

// Node is one entity in the derived graph. Weight is the observation
// count, which visualizations use for node sizing.
type Node struct {
	ID       int64    `json:"id"`
	Label    string   `json:"label"`
	Category string   `json:"category"`
	Color    string   `json:"color"`
	Weight   int      `json:"weight"`
	Tags     []string `json:"tags"`
}

// Edge connects two entities that share tags. Weight is the number of
// distinct shared tags. Source is always the lower entity id.
type Edge struct {
	Source     int64    `json:"source"`
	Target     int64    `json:"target"`
	Weight     int      `json:"weight"`
	SharedTags []string `json:"shared_tags"`
}

// Graph is a complete derived graph.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

var categoryColors = map[string]string{
	"general":  "#64748b",
	"project":  "#3b82f6",
	"person":   "#f59e0b",
	"tool":     "#10b981",
	"concept":  "#8b5cf6",
	"resource": "#ec4899",
}

const defaultColor = "#94a3b8"

func colorFor(category string) string {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return defaultColor
}

// Build derives a graph from entity tag sets. Nodes keep the input
// order (ascending id); edges are ordered by source then target, so
// repeated builds over the same data produce identical output.
func Build(entities []EntityTags) *Graph {
	g := &Graph{
		Nodes: make([]Node, 0, len(entities)),
	}

	tagSets := make([]map[string]struct{}, len(entities))
	for i, et := range entities {
		set := make(map[string]struct{}, len(et.Tags))
		for _, tag := range et.Tags {
			set[tag] = struct{}{}
		}
		tagSets[i] = set

		g.Nodes = append(g.Nodes, Node{
			ID:       et.ID,
			Label:    et.Name,
			Category: et.Category,
			Color:    colorFor(et.Category),
			Weight:   et.ObservationCount,
			Tags:     et.Tags,
		})
	}

	for i := range entities {
		for j := i + 1; j < len(entities); j++ {
			shared := intersect(tagSets[i], entities[j].Tags)
			if len(shared) == 0 {
				continue
			}
			source, target := entities[i].ID, entities[j].ID
			if source > target {
				source, target = target, source
			}
			g.Edges = append(g.Edges, Edge{
				Source:     source,
				Target:     target,
				Weight:     len(shared),
				SharedTags: shared,
			})
		}
	}

	sort.Slice(g.Edges, func(a, b int) bool {
		if g.Edges[a].Source != g.Edges[b].Source {
			return g.Edges[a].Source < g.Edges[b].Source
		}
		return g.Edges[a].Target < g.Edges[b].Target
	})
	return g
}

func intersect(set map[string]struct{}, tags []string) []string {
	var shared []string
	for _, tag := range tags {
		if _, ok := set[tag]; ok {
			shared = append(shared, tag)
		}
	}
	sort.Strings(shared)
	return shared
}
