package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const simplePatch = "@@ -1,3 +1,3 @@\n unchanged line\n+added line\n-removed line\n another context line"

func TestMapPosition_Addition(t *testing.T) {
	// line 2 of the new file is the added line, two patch lines below the header
	pos, ok := MapPosition(simplePatch, 2)

	assert.True(t, ok)
	assert.Equal(t, 2, pos)
}

func TestMapPosition_ContextLine(t *testing.T) {
	pos, ok := MapPosition(simplePatch, 1)
	assert.True(t, ok)
	assert.Equal(t, 1, pos)

	// line 3 is the trailing context line; the deletion advances the
	// position but not the new-file counter
	pos, ok = MapPosition(simplePatch, 3)
	assert.True(t, ok)
	assert.Equal(t, 4, pos)
}

func TestMapPosition_OutsideHunk(t *testing.T) {
	_, ok := MapPosition(simplePatch, 40)
	assert.False(t, ok)
}

func TestMapPosition_EmptyPatch(t *testing.T) {
	_, ok := MapPosition("", 1)
	assert.False(t, ok)

	_, ok = MapPosition("not a diff at all", 1)
	assert.False(t, ok)
}

func TestMapPosition_InvalidTarget(t *testing.T) {
	_, ok := MapPosition(simplePatch, 0)
	assert.False(t, ok)

	_, ok = MapPosition(simplePatch, -5)
	assert.False(t, ok)
}

func TestMapPosition_MultipleHunks(t *testing.T) {
	patch := "@@ -1,2 +1,2 @@\n context\n+first change\n@@ -10,2 +10,3 @@\n deep context\n+second change\n+third change"

	// the second hunk header occupies position 3, so its lines start at 4
	pos, ok := MapPosition(patch, 11)
	assert.True(t, ok)
	assert.Equal(t, 5, pos)

	pos, ok = MapPosition(patch, 12)
	assert.True(t, ok)
	assert.Equal(t, 6, pos)

	// hole between hunks is unreachable
	_, ok = MapPosition(patch, 5)
	assert.False(t, ok)
}

func TestMapPosition_NoNewlineMarker(t *testing.T) {
	patch := "@@ -1,2 +1,2 @@\n context\n-old last\n\\ No newline at end of file\n+new last\n\\ No newline at end of file"

	// the markers must not consume positions
	pos, ok := MapPosition(patch, 2)
	assert.True(t, ok)
	assert.Equal(t, 3, pos)
}

func TestMapPosition_Idempotent(t *testing.T) {
	first, okFirst := MapPosition(simplePatch, 2)
	second, okSecond := MapPosition(simplePatch, 2)

	assert.Equal(t, okFirst, okSecond)
	assert.Equal(t, first, second)
}

func TestMapPosition_DeletionOnlyLinesDoNotAdvanceTarget(t *testing.T) {
	patch := "@@ -1,3 +1,1 @@\n keep\n-gone one\n-gone two"

	pos, ok := MapPosition(patch, 1)
	assert.True(t, ok)
	assert.Equal(t, 1, pos)

	_, ok = MapPosition(patch, 2)
	assert.False(t, ok)
}
