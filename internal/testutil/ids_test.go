package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceGenerator_Increments(t *testing.T) {
	gen := NewSequenceGenerator("e")

	assert.Equal(t, "e-1", gen.Generate())
	assert.Equal(t, "e-2", gen.Generate())
	assert.Equal(t, "e-3", gen.Generate())
}

func TestSequenceGenerator_EmptyPrefixDefault(t *testing.T) {
	gen := NewSequenceGenerator("")
	assert.Equal(t, "evt-1", gen.Generate())
}

func TestSequenceGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequenceGenerator("t")

	done := make(chan []string)
	for i := 0; i < 10; i++ {
		go func() {
			ids := make([]string, 0, 100)
			for j := 0; j < 100; j++ {
				ids = append(ids, gen.Generate())
			}
			done <- ids
		}()
	}

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		for _, id := range <-done {
			require.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, 1000)
}
