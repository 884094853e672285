package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidArchetype(t *testing.T) {
	t.Parallel()

	for _, a := range Archetypes() {
		assert.True(t, ValidArchetype(string(a)), "%s should be valid", a)
	}

	assert.False(t, ValidArchetype(""))
	assert.False(t, ValidArchetype("peak performer")) // exact match only
	assert.False(t, ValidArchetype("Marathon Monk"))
}

func TestArchetypesComplete(t *testing.T) {
	t.Parallel()

	all := Archetypes()
	assert.Len(t, all, 6)
	for _, a := range all {
		assert.NotEmpty(t, a.Description(), "%s needs a description", a)
	}
	assert.Empty(t, Archetype("unknown").Description())
}
