package thread

import (
	"testing"
	"time"

	"darkroom/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newComment(photoID uuid.UUID, parent *uuid.UUID, body string, at time.Time) *models.Comment {
	return &models.Comment{
		ID:         uuid.New(),
		PhotoID:    photoID,
		ParentID:   parent,
		AuthorID:   uuid.New(),
		AuthorName: "tester",
		Body:       body,
		CreatedAt:  at,
	}
}

func countNodes(nodes []*Node) int {
	total := 0
	for _, n := range nodes {
		total += 1 + countNodes(n.Children)
	}
	return total
}

func TestBuildEmpty(t *testing.T) {
	tree := Build(nil)
	assert.Empty(t, tree)

	tree = Build([]*models.Comment{})
	assert.Empty(t, tree)
}

func TestBuildNesting(t *testing.T) {
	photoID := uuid.New()
	base := time.Now()

	root := newComment(photoID, nil, "root", base)
	reply := newComment(photoID, &root.ID, "reply", base.Add(time.Minute))
	nested := newComment(photoID, &reply.ID, "nested", base.Add(2*time.Minute))

	// Arbitrary input order: children before parents.
	tree := Build([]*models.Comment{nested, reply, root})

	assert.Len(t, tree, 1)
	assert.Equal(t, root.ID, tree[0].ID)
	assert.Len(t, tree[0].Children, 1)
	assert.Equal(t, reply.ID, tree[0].Children[0].ID)
	assert.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, nested.ID, tree[0].Children[0].Children[0].ID)
}

func TestBuildEveryCommentAppearsOnce(t *testing.T) {
	photoID := uuid.New()
	base := time.Now()

	a := newComment(photoID, nil, "a", base)
	b := newComment(photoID, &a.ID, "b", base.Add(time.Second))
	c := newComment(photoID, &a.ID, "c", base.Add(2*time.Second))
	d := newComment(photoID, &b.ID, "d", base.Add(3*time.Second))
	e := newComment(photoID, nil, "e", base.Add(4*time.Second))

	tree := Build([]*models.Comment{d, a, e, c, b})
	assert.Equal(t, 5, countNodes(tree))
}

func TestBuildOrphanBecomesRoot(t *testing.T) {
	photoID := uuid.New()
	missingParent := uuid.New()

	orphan := newComment(photoID, &missingParent, "orphan", time.Now())
	tree := Build([]*models.Comment{orphan})

	assert.Len(t, tree, 1)
	assert.Equal(t, orphan.ID, tree[0].ID)
	assert.Empty(t, tree[0].Children)
}

func TestBuildSiblingOrderChronological(t *testing.T) {
	photoID := uuid.New()
	base := time.Now()

	parent := newComment(photoID, nil, "parent", base)
	c1 := newComment(photoID, &parent.ID, "c1", base.Add(1*time.Minute))
	c2 := newComment(photoID, &parent.ID, "c2", base.Add(2*time.Minute))
	c3 := newComment(photoID, &parent.ID, "c3", base.Add(3*time.Minute))

	// Inserted out of order; output must be chronological.
	tree := Build([]*models.Comment{c3, c1, parent, c2})

	assert.Len(t, tree, 1)
	children := tree[0].Children
	assert.Len(t, children, 3)
	assert.Equal(t, c1.ID, children[0].ID)
	assert.Equal(t, c2.ID, children[1].ID)
	assert.Equal(t, c3.ID, children[2].ID)
}

func TestBuildTieOrderIsStable(t *testing.T) {
	photoID := uuid.New()
	at := time.Now()

	first := newComment(photoID, nil, "first", at)
	second := newComment(photoID, nil, "second", at)
	third := newComment(photoID, nil, "third", at)

	// Identical timestamps keep input order.
	tree := Build([]*models.Comment{first, second, third})

	assert.Len(t, tree, 3)
	assert.Equal(t, first.ID, tree[0].ID)
	assert.Equal(t, second.ID, tree[1].ID)
	assert.Equal(t, third.ID, tree[2].ID)
}
