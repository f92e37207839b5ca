package limits

import "context"

// Quota caps the size a single memory or table may reach. Zero fields are
// unlimited.
type Quota struct {
	MaxMemoryBytes   uint64
	MaxTableElements uint32
}

func (q Quota) MemoryGrowing(_ context.Context, _, desired uint64, _ *uint64) (bool, error) {
	return q.MaxMemoryBytes == 0 || desired <= q.MaxMemoryBytes, nil
}

func (q Quota) TableGrowing(_ context.Context, _, desired uint32, _ *uint32) (bool, error) {
	return q.MaxTableElements == 0 || desired <= q.MaxTableElements, nil
}
