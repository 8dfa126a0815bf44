// Package thread builds reply trees from flat comment collections and
// resolves cascading deletions. It is pure view-layer derivation: nothing in
// here touches the backing store.
package thread

import (
	"sort"

	"darkroom/internal/models"

	"github.com/google/uuid"
)

// Node is a comment plus its ordered replies. Trees are rebuilt from the
// flat collection on every read and never persisted.
type Node struct {
	*models.Comment
	Children []*Node `json:"children"`
}

// Build converts an arbitrarily-ordered flat collection of comments for one
// photo into a forest of reply trees. A comment is a root when its parent id
// is nil or references a comment missing from the collection — orphans of a
// deleted parent are promoted to roots rather than dropped. Every level is
// ordered by creation time ascending; ties keep the relative order of the
// input (stable sort).
func Build(comments []*models.Comment) []*Node {
	if len(comments) == 0 {
		return []*Node{}
	}

	nodes := make(map[uuid.UUID]*Node, len(comments))
	for _, c := range comments {
		nodes[c.ID] = &Node{Comment: c, Children: []*Node{}}
	}

	// Link in input order so ties fall back to collection order below.
	roots := make([]*Node, 0)
	for _, c := range comments {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortForest(roots)
	return roots
}

func sortForest(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
	})
	for _, n := range nodes {
		sortForest(n.Children)
	}
}
