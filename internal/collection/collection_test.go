package collection

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollection(names ...string) *Collection {
	c := New()
	for _, n := range names {
		c.records = append(c.records, NewRecord(n, "image/png", 10, []byte(n)))
	}
	return c
}

func names(c *Collection) []string {
	out := make([]string, 0, c.Len())
	for _, r := range c.Records() {
		out = append(out, r.Name)
	}
	return out
}

func idOf(t *testing.T, c *Collection, name string) string {
	t.Helper()
	for _, r := range c.Records() {
		if r.Name == name {
			return r.ID
		}
	}
	t.Fatalf("no record named %s", name)
	return ""
}

func TestInsert_SortsCaseInsensitively(t *testing.T) {
	c := New()
	c.Insert(
		NewRecord("b.png", "image/png", 1, nil),
		NewRecord("C.png", "image/png", 1, nil),
		NewRecord("A.png", "image/png", 1, nil),
	)
	if diff := cmp.Diff([]string{"A.png", "b.png", "C.png"}, names(c)); diff != "" {
		t.Errorf("unexpected order (-want +got):\n%s", diff)
	}

	c.Insert(NewRecord("a2.png", "image/png", 1, nil))
	assert.Equal(t, []string{"A.png", "a2.png", "b.png", "C.png"}, names(c))
}

func TestInsert_SameNameGetsDistinctIDs(t *testing.T) {
	c := New()
	c.Insert(NewRecord("x.png", "image/png", 1, nil), NewRecord("x.png", "image/png", 1, nil))
	recs := c.Records()
	require.Len(t, recs, 2)
	assert.NotEqual(t, recs[0].ID, recs[1].ID)
}

func TestRemove(t *testing.T) {
	c := newTestCollection("a", "b", "c")
	assert.True(t, c.Remove(idOf(t, c, "b")))
	assert.Equal(t, []string{"a", "c"}, names(c))
	assert.False(t, c.Remove("missing"))
	assert.Equal(t, []string{"a", "c"}, names(c))
}

func TestRotate_CyclesInFourSteps(t *testing.T) {
	c := newTestCollection("a", "b")
	id := idOf(t, c, "a")
	want := []int{90, 180, 270, 0}
	for _, w := range want {
		got, err := c.Rotate(id)
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}

	other, err := c.Get(idOf(t, c, "b"))
	require.NoError(t, err)
	assert.Equal(t, 0, other.Rotation)

	_, err = c.Rotate("missing")
	assert.True(t, errors.Is(err, ErrRecordNotFound))
}

func TestMoveAdjacent(t *testing.T) {
	c := newTestCollection("a", "b", "c")

	assert.False(t, c.MoveAdjacent(idOf(t, c, "a"), Left))
	assert.False(t, c.MoveAdjacent(idOf(t, c, "c"), Right))
	assert.Equal(t, []string{"a", "b", "c"}, names(c))

	assert.True(t, c.MoveAdjacent(idOf(t, c, "a"), Right))
	assert.Equal(t, []string{"b", "a", "c"}, names(c))

	assert.True(t, c.MoveAdjacent(idOf(t, c, "c"), Left))
	assert.Equal(t, []string{"b", "c", "a"}, names(c))

	assert.False(t, c.MoveAdjacent("missing", Left))
}

func TestReposition(t *testing.T) {
	tests := []struct {
		name   string
		drag   string
		target string
		want   []string
	}{
		{"forward", "a", "c", []string{"b", "c", "a", "d"}},
		{"backward", "d", "b", []string{"a", "d", "b", "c"}},
		{"to front", "c", "a", []string{"c", "a", "b", "d"}},
		{"same id", "b", "b", []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCollection("a", "b", "c", "d")
			c.Reposition(idOf(t, c, tt.drag), idOf(t, c, tt.target))
			if diff := cmp.Diff(tt.want, names(c)); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReposition_UnknownIDs(t *testing.T) {
	c := newTestCollection("a", "b")
	assert.False(t, c.Reposition("missing", idOf(t, c, "a")))
	assert.False(t, c.Reposition(idOf(t, c, "a"), "missing"))
	assert.Equal(t, []string{"a", "b"}, names(c))
}

func TestManualOrderSurvivesUntilNextInsert(t *testing.T) {
	c := newTestCollection("a", "b")
	c.MoveAdjacent(idOf(t, c, "a"), Right)
	assert.Equal(t, []string{"b", "a"}, names(c))

	c.Insert(NewRecord("c", "image/png", 1, nil))
	assert.Equal(t, []string{"a", "b", "c"}, names(c))
}

func TestRecordsIsASnapshot(t *testing.T) {
	c := newTestCollection("a", "b")
	snap := c.Records()
	c.Clear()
	assert.Len(t, snap, 2)
	assert.Equal(t, 0, c.Len())
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("LEFT")
	require.NoError(t, err)
	assert.Equal(t, Left, d)
	d, err = ParseDirection("next")
	require.NoError(t, err)
	assert.Equal(t, Right, d)
	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestNewRecord_CurrentIsOriginal(t *testing.T) {
	r := NewRecord("a.png", "image/png", 3, []byte{1, 2, 3})
	assert.Equal(t, "data:image/png;base64,AQID", r.Current)
	assert.Equal(t, []byte{1, 2, 3}, r.Original())
	assert.True(t, ValidRotation(r.Rotation))
	assert.False(t, ValidRotation(45))
}
