package service

import (
	"context"
	"sort"
)

type Component struct {
	ID    int      `json:"id"`
	Nodes []string `json:"nodes"`
}

// connectedComponents labels every node with the id of its connected component.
// edges are undirected so one dfs sweep is enough, components are numbered in node order.
func (s *GraphService) connectedComponents() []Component {
	componentOf := make(map[string]int, len(s.graph.Nodes))
	components := make([]Component, 0)

	stack := make([]string, 0)
	for _, n := range s.graph.Nodes {
		if _, visited := componentOf[n.ID]; visited {
			continue
		}

		id := len(components)
		members := make([]string, 0)
		componentOf[n.ID] = id
		stack = append(stack[:0], n.ID)
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			members = append(members, v)

			for _, w := range s.adjacency[v] {
				if _, visited := componentOf[w]; !visited {
					componentOf[w] = id
					stack = append(stack, w)
				}
			}
		}

		components = append(components, Component{ID: id, Nodes: members})
	}

	return components
}

// Components returns the connected components of the graph, largest first. ties keep node order.
func (s *GraphService) Components(ctx context.Context) []Component {
	components := s.connectedComponents()
	sort.SliceStable(components, func(i, j int) bool {
		return len(components[i].Nodes) > len(components[j].Nodes)
	})
	return components
}
