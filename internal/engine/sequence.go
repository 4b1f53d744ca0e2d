package engine

import (
	"clmmcore/internal/mathutil"
	"clmmcore/internal/model"
)

// MaxSwapTickArrays bounds how many tick arrays one swap may traverse.
const MaxSwapTickArrays = 3

// TickSequence walks pre-loaded tick arrays in swap direction. Arrays must
// be ordered the way the swap consumes them: descending start index for a
// downward swap, ascending for an upward one. A missing array is an error
// only when the price actually has to cross past the loaded range.
type TickSequence struct {
	arrays      []*model.TickArray
	tickSpacing uint16
	aToB        bool
	current     int
}

func NewTickSequence(arrays []*model.TickArray, tickSpacing uint16, aToB bool) *TickSequence {
	if len(arrays) > MaxSwapTickArrays {
		arrays = arrays[:MaxSwapTickArrays]
	}
	return &TickSequence{arrays: arrays, tickSpacing: tickSpacing, aToB: aToB}
}

// NextInitializedTickIndex returns the next initialized tick at or past
// tickIndex in the swap direction. When the loaded arrays hold no further
// initialized tick, the edge of the covered range is returned with
// initialized=false so the swap can run to it; asking past the edge fails,
// since the price would have to leave the loaded arrays.
func (s *TickSequence) NextInitializedTickIndex(tickIndex int32) (int32, bool, error) {
	search := tickIndex
	for {
		if s.current >= len(s.arrays) {
			return 0, false, ErrInvalidTickArraySequence
		}
		array := s.arrays[s.current]
		if !array.InSearchRange(search, s.tickSpacing, !s.aToB) {
			return 0, false, ErrInvalidTickArraySequence
		}
		next, found, err := array.NextInitializedTickIndex(search, s.tickSpacing, s.aToB)
		if err != nil {
			return 0, false, err
		}
		if found {
			return next, true, nil
		}
		if s.current+1 < len(s.arrays) {
			if s.aToB {
				search = array.StartTickIndex - 1
			} else {
				search = array.StartTickIndex + int32(s.tickSpacing)*model.TickArraySize - 1
			}
			s.current++
			continue
		}

		if s.aToB {
			edge := array.StartTickIndex
			if array.IsMinTickArray() {
				edge = mathutil.MinTick
			}
			return edge, false, nil
		}
		edge := array.StartTickIndex + int32(s.tickSpacing)*(model.TickArraySize-1)
		if array.IsMaxTickArray(s.tickSpacing) {
			edge = mathutil.MaxTick
		}
		if search >= edge {
			return 0, false, ErrInvalidTickArraySequence
		}
		return edge, false, nil
	}
}

func (s *TickSequence) arrayFor(tickIndex int32) (*model.TickArray, error) {
	for _, array := range s.arrays {
		if array.InSearchRange(tickIndex, s.tickSpacing, false) {
			return array, nil
		}
	}
	return nil, ErrInvalidTickArraySequence
}

// Tick returns the stored tick for an index covered by the sequence.
func (s *TickSequence) Tick(tickIndex int32) (*model.Tick, error) {
	array, err := s.arrayFor(tickIndex)
	if err != nil {
		return nil, err
	}
	return array.TickAt(tickIndex, s.tickSpacing)
}

// UpdateTick applies a crossing update to a tick covered by the sequence.
func (s *TickSequence) UpdateTick(tickIndex int32, update *model.TickUpdate) error {
	array, err := s.arrayFor(tickIndex)
	if err != nil {
		return err
	}
	return array.UpdateTick(tickIndex, s.tickSpacing, update)
}
