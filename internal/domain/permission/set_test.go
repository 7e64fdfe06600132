package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	t.Parallel()

	t.Run("zero value is usable", func(t *testing.T) {
		t.Parallel()
		var s Set
		assert.False(t, s.Has("a"))
		assert.Zero(t, s.Len())
		s.Add("a")
		assert.True(t, s.Has("a"))
		assert.Equal(t, 1, s.Len())
	})

	t.Run("ignores empty names", func(t *testing.T) {
		t.Parallel()
		s := NewSet("", "a")
		assert.Equal(t, []string{"a"}, s.List())
	})

	t.Run("list is sorted and deduplicated", func(t *testing.T) {
		t.Parallel()
		s := NewSet("b", "a", "b")
		assert.Equal(t, []string{"a", "b"}, s.List())
		assert.Equal(t, 2, s.Len())
	})
}
