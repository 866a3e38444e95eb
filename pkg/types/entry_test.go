package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntry_Empty(t *testing.T) {
	e := NewEntry("sprot", 1, "P12345")
	assert.True(t, e.Empty())

	e.Links = append(e.Links, Link{GenerationID: 1, EntryID: "P12345", OtherGenerationID: 2, OtherEntryID: "1abc"})
	assert.False(t, e.Empty())

	e = NewEntry("sprot", 1, "P12345")
	e.Numbers["mw"] = []float64{0}
	assert.False(t, e.Empty())
}

func TestGeneration_Committed(t *testing.T) {
	g := Generation{ID: 1, Name: "sprot", CreatedAt: time.Now()}
	assert.False(t, g.Committed())

	g.CommittedAt = time.Now()
	assert.True(t, g.Committed())
}
