package thread

import (
	"darkroom/internal/models"

	"github.com/google/uuid"
)

// Descendants collects the target id plus every transitive descendant found
// in the flat collection. Traversal order does not affect the result set; a
// visited set guards against reprocessing.
func Descendants(target uuid.UUID, comments []*models.Comment) map[uuid.UUID]struct{} {
	children := make(map[uuid.UUID][]uuid.UUID, len(comments))
	for _, c := range comments {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}

	removed := make(map[uuid.UUID]struct{})
	stack := []uuid.UUID{target}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := removed[id]; seen {
			continue
		}
		removed[id] = struct{}{}
		stack = append(stack, children[id]...)
	}
	return removed
}

// Prune returns the set of ids removed by deleting target (target plus all
// descendants) and the flat collection with those entries filtered out.
// Callers must only invoke this after the remote delete has been confirmed;
// pruning locally ahead of the store would desynchronize the view on reload.
func Prune(target uuid.UUID, comments []*models.Comment) (map[uuid.UUID]struct{}, []*models.Comment) {
	removed := Descendants(target, comments)

	remaining := make([]*models.Comment, 0, len(comments))
	for _, c := range comments {
		if _, gone := removed[c.ID]; !gone {
			remaining = append(remaining, c)
		}
	}
	return removed, remaining
}
