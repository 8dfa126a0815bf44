package imgcdn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLWithWidth(t *testing.T) {
	r := NewResolver("https://images.example.com/")
	got := r.URL("abc123", 640)
	assert.Equal(t, "https://images.example.com/abc123?fm=auto&q=auto&w=640", got)
}

func TestURLWithoutWidth(t *testing.T) {
	r := NewResolver("https://images.example.com")
	got := r.URL("abc123", 0)
	assert.Equal(t, "https://images.example.com/abc123?fm=auto&q=auto", got)
}

func TestURLEscapesContentID(t *testing.T) {
	r := NewResolver("https://images.example.com")
	got := r.URL("folder/img 1", 100)
	assert.Contains(t, got, "folder%2Fimg%201")
}
