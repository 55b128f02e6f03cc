package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestID_Symmetric(t *testing.T) {
	pairs := [][2]uint64{
		{1, 2},
		{2, 1},
		{42, 42},
		{7, 1000000},
	}
	for _, p := range pairs {
		assert.Equal(t, ID(p[0], p[1]), ID(p[1], p[0]))
	}
}

func TestID_Format(t *testing.T) {
	assert.Equal(t, "match-1-2", ID(2, 1))
	assert.Equal(t, "match-1-2", ID(1, 2))
}
