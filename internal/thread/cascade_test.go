package thread

import (
	"testing"
	"time"

	"darkroom/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// Builds the fixture from the deletion scenarios: root A with children B and
// C, and B has child D.
func cascadeFixture() (a, b, c, d *models.Comment, all []*models.Comment) {
	photoID := uuid.New()
	base := time.Now()

	a = newComment(photoID, nil, "a", base)
	b = newComment(photoID, &a.ID, "b", base.Add(time.Second))
	c = newComment(photoID, &a.ID, "c", base.Add(2*time.Second))
	d = newComment(photoID, &b.ID, "d", base.Add(3*time.Second))

	all = []*models.Comment{a, b, c, d}
	return
}

func TestPruneRemovesWholeSubtree(t *testing.T) {
	a, b, c, d, all := cascadeFixture()

	removed, remaining := Prune(a.ID, all)

	assert.Len(t, removed, 4)
	for _, id := range []uuid.UUID{a.ID, b.ID, c.ID, d.ID} {
		assert.Contains(t, removed, id)
	}
	assert.Empty(t, remaining)
}

func TestPruneRemovesBranchOnly(t *testing.T) {
	a, b, c, d, all := cascadeFixture()

	removed, remaining := Prune(b.ID, all)

	assert.Len(t, removed, 2)
	assert.Contains(t, removed, b.ID)
	assert.Contains(t, removed, d.ID)

	assert.Len(t, remaining, 2)
	ids := []uuid.UUID{remaining[0].ID, remaining[1].ID}
	assert.Contains(t, ids, a.ID)
	assert.Contains(t, ids, c.ID)
}

func TestPruneLeaf(t *testing.T) {
	_, _, c, _, all := cascadeFixture()

	removed, remaining := Prune(c.ID, all)

	assert.Len(t, removed, 1)
	assert.Contains(t, removed, c.ID)
	assert.Len(t, remaining, 3)
}

func TestPruneUnknownTarget(t *testing.T) {
	_, _, _, _, all := cascadeFixture()

	removed, remaining := Prune(uuid.New(), all)

	// Only the (absent) target itself is marked; nothing is filtered out.
	assert.Len(t, removed, 1)
	assert.Len(t, remaining, 4)
}

func TestDescendantsIgnoresSiblingSubtrees(t *testing.T) {
	a, b, c, d, all := cascadeFixture()

	removed := Descendants(c.ID, all)
	assert.Len(t, removed, 1)
	assert.NotContains(t, removed, a.ID)
	assert.NotContains(t, removed, b.ID)
	assert.NotContains(t, removed, d.ID)
}
