package storage

import "clmmcore/internal/model"

// Storage defines a sink for engine state snapshots.
type Storage interface {
	PutPools(pools []*model.Pool) error
	PutPositions(positions []*model.Position) error
	PutTickArrays(arrays []*model.TickArray) error
}
