package monitoring

import (
	"encoding/json"
	"sync"
	"time"
)

// A ProgressBar tracks how many items of a long run are done.
type ProgressBar struct {
	lock sync.Mutex

	ID        string
	Name      string
	StartTime time.Time
	Total     uint64
	finished  uint64
}

// Advance marks amount more items as finished.
func (b *ProgressBar) Advance(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.finished += amount
}

// Finished returns the number of finished items.
func (b *ProgressBar) Finished() uint64 {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.finished
}

type progressRsp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

// MarshalJSON reports the bar as it is at the moment of the call.
func (b *ProgressBar) MarshalJSON() ([]byte, error) {
	return json.Marshal(progressRsp{
		ID:        b.ID,
		Name:      b.Name,
		StartTime: b.StartTime,
		Total:     b.Total,
		Finished:  b.Finished(),
	})
}
