package loot

import (
	"context"
	"errors"
	"time"
)

// Options controls a Scanner.
type Options struct {
	Alliance  string        // defaults to DefaultAlliance
	PageDelay time.Duration // pause between page fetches, 0 disables it
	MaxPages  int           // 0 means no cap
	Log       Logger        // optional
}

// Scanner walks the upstream pages in order and collects rows at or above a threshold.
// A Scanner holds no per-scan state and is safe for concurrent use.
type Scanner struct {
	source Source
	opts   Options
}

func NewScanner(source Source, opts Options) *Scanner {
	if opts.Alliance == "" {
		opts.Alliance = DefaultAlliance
	}
	if opts.Log == nil {
		opts.Log = nopLogger{}
	}
	return &Scanner{source: source, opts: opts}
}

// scanState is the cursor of one in-flight scan.
type scanState struct {
	pageIndex     int
	foundAnyMatch bool
}

// Scan fetches pages 0, 1, 2, ... and appends every record with ID >= threshold.
// The first record below threshold seen after at least one match ends the scan.
// Upstream failures end the scan as if pagination were exhausted; they are never returned.
func (s *Scanner) Scan(ctx context.Context, threshold int64) *Result {
	log := s.opts.Log
	state := &scanState{}
	result := &Result{Rows: []Row{}}

	for {
		if s.opts.MaxPages > 0 && state.pageIndex >= s.opts.MaxPages {
			log.Warnf("Reached page cap (%d), stopping scan", s.opts.MaxPages)
			result.StopReason = StopMaxPages
			return result
		}
		if ctx.Err() != nil {
			result.StopReason = StopCanceled
			return result
		}

		log.Debugf("Fetching page %d (SV=%s)", state.pageIndex, PageQuery(state.pageIndex))
		body, err := s.source.FetchPage(ctx, state.pageIndex)
		if err != nil {
			log.Warnf("Failed to fetch page %d: %v", state.pageIndex, err)
			result.StopReason = StopFetchFailed
			if ctx.Err() != nil {
				result.StopReason = StopCanceled
			}
			return result
		}
		result.PagesFetched++

		records, err := ParsePage(body, s.opts.Alliance)
		if err != nil {
			if errors.Is(err, ErrNoData) {
				log.Infof("No more data to fetch after page %d", state.pageIndex)
				result.StopReason = StopNoData
			} else {
				log.Warnf("Could not parse page %d: %v", state.pageIndex, err)
				result.StopReason = StopFetchFailed
			}
			return result
		}

		if len(records) == 0 {
			log.Debugf("No %s records on page %d, continuing", s.opts.Alliance, state.pageIndex)
		}

		for _, rec := range records {
			if rec.ID >= threshold {
				result.Rows = append(result.Rows, Row{ID: rec.ID, Name: rec.Name})
				state.foundAnyMatch = true
				log.Debugf("Found %s player: loot=%d name=%s", s.opts.Alliance, rec.ID, rec.Name)
				continue
			}
			if state.foundAnyMatch {
				log.Infof("Stopping: loot %d is below the limit %d", rec.ID, threshold)
				result.StopReason = StopBelowThreshold
				return result
			}
		}

		state.pageIndex++

		if s.opts.PageDelay > 0 {
			select {
			case <-ctx.Done():
				result.StopReason = StopCanceled
				return result
			case <-time.After(s.opts.PageDelay):
			}
		}
	}
}
