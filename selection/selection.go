// Package selection provides the canonical set of vertex ids passed between
// hosts and plugins.
//
// Callers hand over selections as roaring bitmaps, integer slices or decoded
// JSON arrays. FromParam converts any of these once at the boundary so
// downstream code only ever sees a *VertexSet.
package selection

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// ErrInvalidID is returned for ids that are negative, fractional or out of range.
var ErrInvalidID = errors.New("invalid vertex id")

// VertexSet is a set of non-negative vertex ids backed by a roaring bitmap.
// The zero value is not usable; use New or FromParam.
type VertexSet struct {
	rb *roaring.Bitmap
}

// New returns a set holding ids. Negative ids are ignored.
func New(ids ...int) *VertexSet {
	s := &VertexSet{rb: roaring.New()}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// FromBitmap wraps a copy of rb.
func FromBitmap(rb *roaring.Bitmap) *VertexSet {
	if rb == nil {
		return New()
	}
	return &VertexSet{rb: rb.Clone()}
}

// Add inserts id. Negative ids and ids above MaxUint32 are ignored.
func (s *VertexSet) Add(id int) {
	if id < 0 || int64(id) > math.MaxUint32 {
		return
	}
	s.rb.Add(uint32(id))
}

// Remove deletes id.
func (s *VertexSet) Remove(id int) {
	if id < 0 || int64(id) > math.MaxUint32 {
		return
	}
	s.rb.Remove(uint32(id))
}

// Contains reports whether id is in the set.
func (s *VertexSet) Contains(id int) bool {
	if s == nil || id < 0 || int64(id) > math.MaxUint32 {
		return false
	}
	return s.rb.Contains(uint32(id))
}

// Len returns the number of ids.
func (s *VertexSet) Len() int {
	if s == nil {
		return 0
	}
	return int(s.rb.GetCardinality())
}

// IsEmpty reports whether the set has no ids.
func (s *VertexSet) IsEmpty() bool {
	return s == nil || s.rb.IsEmpty()
}

// IDs returns the ids in ascending order.
func (s *VertexSet) IDs() []int {
	if s == nil {
		return nil
	}
	out := make([]int, 0, s.Len())
	for id := range s.All() {
		out = append(out, id)
	}
	return out
}

// All iterates the ids in ascending order.
func (s *VertexSet) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		if s == nil {
			return
		}
		it := s.rb.Iterator()
		for it.HasNext() {
			if !yield(int(it.Next())) {
				return
			}
		}
	}
}

// Union returns a new set with the ids of s and other.
func (s *VertexSet) Union(other *VertexSet) *VertexSet {
	out := s.Clone()
	if other != nil {
		out.rb.Or(other.rb)
	}
	return out
}

// Intersect returns a new set with the ids in both s and other.
func (s *VertexSet) Intersect(other *VertexSet) *VertexSet {
	if other == nil {
		return New()
	}
	out := s.Clone()
	out.rb.And(other.rb)
	return out
}

// Clone returns a deep copy.
func (s *VertexSet) Clone() *VertexSet {
	if s == nil {
		return New()
	}
	return &VertexSet{rb: s.rb.Clone()}
}

// Bitmap returns a copy of the underlying bitmap.
func (s *VertexSet) Bitmap() *roaring.Bitmap {
	if s == nil {
		return roaring.New()
	}
	return s.rb.Clone()
}

// String renders the set as a bracketed id list.
func (s *VertexSet) String() string {
	return fmt.Sprint(s.IDs())
}

// FromParam converts a selection parameter to a VertexSet. Accepted forms are
// nil, *VertexSet, *roaring.Bitmap, []int, []int64, []uint32 and []any of
// whole numbers (as decoded from JSON or structpb).
func FromParam(v any) (*VertexSet, error) {
	switch v := v.(type) {
	case nil:
		return New(), nil
	case *VertexSet:
		return v.Clone(), nil
	case *roaring.Bitmap:
		return FromBitmap(v), nil
	case []int:
		return fromInts(v)
	case []int64:
		ids := make([]int, len(v))
		for i, id := range v {
			ids[i] = int(id)
		}
		return fromInts(ids)
	case []uint32:
		s := New()
		s.rb.AddMany(v)
		return s, nil
	case []any:
		ids := make([]int, len(v))
		for i, raw := range v {
			id, err := toID(raw)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			ids[i] = id
		}
		return fromInts(ids)
	default:
		return nil, fmt.Errorf("unsupported selection type %T", v)
	}
}

func fromInts(ids []int) (*VertexSet, error) {
	s := New()
	for _, id := range ids {
		if id < 0 || int64(id) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidID, id)
		}
		s.rb.Add(uint32(id))
	}
	return s, nil
}

func toID(v any) (int, error) {
	switch v := v.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidID, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrInvalidID, v)
	}
}
