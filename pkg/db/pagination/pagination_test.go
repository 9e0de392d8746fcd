package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, Pagination{Limit: 100, Offset: 0}, Pagination{Offset: -4}.Clamp(100, 1000))
	assert.Equal(t, Pagination{Limit: 1000, Offset: 20}, Pagination{Limit: 5000, Offset: 20}.Clamp(100, 1000))
}

func TestTrim(t *testing.T) {
	rows, info := Trim([]int{1, 2, 3}, Pagination{Limit: 2})
	assert.Equal(t, []int{1, 2}, rows)
	assert.True(t, info.HasMore)
	assert.Equal(t, 2, info.Count)

	rows, info = Trim([]int{1}, Pagination{Limit: 2, Offset: 4})
	assert.Len(t, rows, 1)
	assert.False(t, info.HasMore)
	assert.Equal(t, 4, info.Offset)
}
