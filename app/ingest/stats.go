package ingest

import (
	"fmt"
	"sync/atomic"

	"github.com/jammor/nexus/app/database"
)

// Stats counts pipeline outcomes across all workers of a run.
type Stats struct {
	Discovered atomic.Int64
	Created    atomic.Int64
	Updated    atomic.Int64
	Unchanged  atomic.Int64
	Skipped    atomic.Int64
	Summarized atomic.Int64
	Errors     atomic.Int64
}

func (s *Stats) countResult(result string) {
	switch result {
	case database.ResultCreated:
		s.Created.Add(1)
	case database.ResultUpdated:
		s.Updated.Add(1)
	case database.ResultUnchanged:
		s.Unchanged.Add(1)
	}
}

func (s *Stats) String() string {
	return fmt.Sprintf("discovered=%d created=%d updated=%d unchanged=%d skipped=%d summarized=%d errors=%d",
		s.Discovered.Load(), s.Created.Load(), s.Updated.Load(), s.Unchanged.Load(),
		s.Skipped.Load(), s.Summarized.Load(), s.Errors.Load())
}
