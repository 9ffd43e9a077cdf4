package cart

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	teeSmall = LineKey{ProductID: "tee", Label: "small"}
	teeLarge = LineKey{ProductID: "tee", Label: "large"}
	mug      = LineKey{ProductID: "mug"}
)

func TestAddLine_MergesSameKey(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.AddLine(teeSmall, 2))
	require.NoError(t, c.AddLine(teeSmall, 3))

	require.Equal(t, 1, c.Len())
	l, ok := c.Line(teeSmall)
	require.True(t, ok)
	assert.Equal(t, 5, l.Quantity)
	assert.True(t, l.Selected)
}

func TestAddLine_VersionsAreDistinctLines(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.AddLine(teeSmall, 1))
	require.NoError(t, c.AddLine(teeLarge, 1))
	require.NoError(t, c.AddLine(mug, 1))

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []LineKey{teeSmall, teeLarge, mug}, keys(c.Lines()))
}

func TestAddLine_RejectsBadInput(t *testing.T) {
	c := New("u1")
	assert.ErrorIs(t, c.AddLine(teeSmall, 0), apperr.ErrInvalidArgument)
	assert.ErrorIs(t, c.AddLine(LineKey{}, 1), apperr.ErrInvalidArgument)
	assert.Zero(t, c.Len())
}

func TestSetQuantity(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.AddLine(teeSmall, 2))

	for _, q := range []int{0, -4} {
		assert.ErrorIs(t, c.SetQuantity(teeSmall, q), apperr.ErrInvalidArgument)
		l, _ := c.Line(teeSmall)
		assert.Equal(t, 2, l.Quantity)
	}

	require.NoError(t, c.SetQuantity(teeSmall, 7))
	l, _ := c.Line(teeSmall)
	assert.Equal(t, 7, l.Quantity)

	assert.ErrorIs(t, c.SetQuantity(teeLarge, 1), apperr.ErrNotFound)
}

func TestToggleSelected_TwiceRestores(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.AddLine(teeSmall, 1))
	require.NoError(t, c.AddLine(teeLarge, 1))

	require.NoError(t, c.ToggleSelected(teeSmall))
	l, _ := c.Line(teeSmall)
	assert.False(t, l.Selected)
	other, _ := c.Line(teeLarge)
	assert.True(t, other.Selected, "toggle must match the full product+version key")

	require.NoError(t, c.ToggleSelected(teeSmall))
	l, _ = c.Line(teeSmall)
	assert.True(t, l.Selected)

	assert.ErrorIs(t, c.ToggleSelected(mug), apperr.ErrNotFound)
}

func TestRemoveLine(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.AddLine(teeSmall, 1))
	require.NoError(t, c.AddLine(mug, 1))

	require.NoError(t, c.RemoveLine(teeSmall))
	assert.Equal(t, []LineKey{mug}, keys(c.Lines()))
	assert.ErrorIs(t, c.RemoveLine(teeSmall), apperr.ErrNotFound)
}

func TestSelectedLines_IsRestartable(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.AddLine(teeSmall, 2))
	require.NoError(t, c.AddLine(teeLarge, 1))
	require.NoError(t, c.AddLine(mug, 4))
	require.NoError(t, c.ToggleSelected(teeLarge))

	first := keys(slices.Collect(c.SelectedLines()))
	second := keys(slices.Collect(c.SelectedLines()))
	assert.Equal(t, []LineKey{teeSmall, mug}, first)
	assert.Equal(t, first, second)

	for l := range c.SelectedLines() {
		assert.Equal(t, teeSmall, l.Key())
		break
	}
}

func TestPrune_KeepsUnlistedLines(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.AddLine(teeSmall, 2))
	require.NoError(t, c.AddLine(mug, 1))

	removed := c.Prune([]LineKey{teeSmall, teeLarge})
	assert.Equal(t, 1, removed)
	assert.Equal(t, []LineKey{mug}, keys(c.Lines()))
}

func TestFromLines_MergesDuplicates(t *testing.T) {
	c := FromLines("u1", 3, time.Time{}, []Line{
		{ProductID: "tee", Version: "small", Quantity: 1, Selected: true},
		{ProductID: "tee", Version: "small", Quantity: 2, Selected: true},
	})
	assert.Equal(t, int64(3), c.Revision)
	require.Equal(t, 1, c.Len())
	l, _ := c.Line(teeSmall)
	assert.Equal(t, 3, l.Quantity)
}

func TestJSONRoundTripPreservesOrderAndFlags(t *testing.T) {
	c := New("u1")
	require.NoError(t, c.AddLine(mug, 1))
	require.NoError(t, c.AddLine(teeSmall, 2))
	require.NoError(t, c.ToggleSelected(mug))
	c.Revision = 4

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var back Cart
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, c.Lines(), back.Lines())
	assert.Equal(t, int64(4), back.Revision)
	assert.Equal(t, "u1", back.UserID)
}

func keys(lines []Line) []LineKey {
	out := make([]LineKey, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Key())
	}
	return out
}
