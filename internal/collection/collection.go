// Package collection holds the ordered list of images that becomes the pages of
// the output document. The order of the list is the page order.
package collection

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrRecordNotFound is returned by lookups for an id that is not in the collection.
var ErrRecordNotFound = errors.New("image not found")

// Direction is the side moveAdjacent swaps towards.
type Direction int

const (
	Left Direction = iota
	Right
)

// ParseDirection accepts "left"/"right" (also "up"/"down" and "prev"/"next").
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "up", "prev":
		return Left, nil
	case "right", "down", "next":
		return Right, nil
	}
	return 0, fmt.Errorf("invalid direction %q", s)
}

func (d Direction) String() string {
	if d == Left {
		return "left"
	}
	return "right"
}

// Collection is an ordered sequence of records with unique ids.
// It is not safe for concurrent use; the workspace serializes access.
type Collection struct {
	records []Record
}

// New returns an empty collection.
func New() *Collection {
	return &Collection{}
}

// Len returns the number of records.
func (c *Collection) Len() int { return len(c.records) }

// Records returns a copy of the records in page order.
func (c *Collection) Records() []Record {
	return slices.Clone(c.records)
}

// Get returns the record with the given id.
func (c *Collection) Get(id string) (Record, error) {
	i := c.index(id)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return c.records[i], nil
}

// Insert appends newly ingested records and then re-sorts the whole collection
// by name. This is the only place the collection reorders itself.
func (c *Collection) Insert(records ...Record) {
	c.records = append(c.records, records...)
	SortByName(c.records)
}

// Remove deletes the record with the given id. It reports whether a record was removed.
func (c *Collection) Remove(id string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.records = slices.Delete(c.records, i, i+1)
	return true
}

// Rotate advances the record's rotation by 90° and returns the new value.
// The encoded bytes are left untouched; rotation is applied at transform time.
func (c *Collection) Rotate(id string) (int, error) {
	i := c.index(id)
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	c.records[i].Rotation = NextRotation(c.records[i].Rotation)
	return c.records[i].Rotation, nil
}

// MoveAdjacent swaps the record with its neighbour in the given direction.
// Moving the first record left or the last record right does nothing.
// It reports whether the order changed.
func (c *Collection) MoveAdjacent(id string, dir Direction) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	j := i + 1
	if dir == Left {
		j = i - 1
	}
	if j < 0 || j >= len(c.records) {
		return false
	}
	c.records[i], c.records[j] = c.records[j], c.records[i]
	return true
}

// Reposition removes the dragged record and reinserts it at the target's
// position, shifting the records in between. It reports whether the order changed.
func (c *Collection) Reposition(id, targetID string) bool {
	if id == targetID {
		return false
	}
	from, to := c.index(id), c.index(targetID)
	if from < 0 || to < 0 {
		return false
	}
	moved := c.records[from]
	c.records = slices.Delete(c.records, from, from+1)
	c.records = slices.Insert(c.records, to, moved)
	return true
}

// SetCurrent stores a preview data URL on the record.
func (c *Collection) SetCurrent(id, dataURL string) error {
	i := c.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	c.records[i].Current = dataURL
	return nil
}

// Clear empties the collection.
func (c *Collection) Clear() {
	c.records = nil
}

func (c *Collection) index(id string) int {
	return slices.IndexFunc(c.records, func(r Record) bool { return r.ID == id })
}

// SortByName orders records by name, ignoring case, with the root locale's
// collation. The sort is stable so equal names keep their arrival order.
func SortByName(records []Record) {
	col := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(records, func(a, b Record) int {
		return col.CompareString(a.Name, b.Name)
	})
}
