package downtime

import (
	"time"

	"github.com/ghalamif/LineFlow/internal/domain"
)

// Aggregate turns STOPPED intervals into downtime records.
//
// Two stopped intervals separated only by a running interval shorter than
// maxGap become one record. Records shorter than minStoppage are dropped
// after merging. Input must be the contiguous output of Classify, so the
// records come out ordered by start and never overlap.
func Aggregate(intervals []domain.Interval, maxGap, minStoppage time.Duration) []domain.DowntimeRecord {
	var (
		out []domain.DowntimeRecord
		cur *pending
	)
	flush := func() {
		if cur == nil {
			return
		}
		if rec := cur.record(); rec.Duration >= minStoppage {
			out = append(out, rec)
		}
		cur = nil
	}

	for i, iv := range intervals {
		if iv.State == domain.Stopped {
			if cur == nil {
				cur = newPending(iv)
			} else {
				cur.add(iv)
			}
			continue
		}
		bridges := cur != nil && iv.Duration() < maxGap &&
			intervals[i-1].State == domain.Stopped &&
			i+1 < len(intervals) && intervals[i+1].State == domain.Stopped
		if !bridges {
			flush()
		}
	}
	flush()
	return out
}

type pending struct {
	start, end time.Time
	samples    int
	stops      int
	speedSum   float64
	speedCount int
}

func newPending(iv domain.Interval) *pending {
	p := &pending{start: iv.Start}
	p.add(iv)
	return p
}

func (p *pending) add(iv domain.Interval) {
	p.end = iv.End
	p.samples += iv.SampleCount
	p.stops++
	p.speedSum += iv.SpeedSum
	p.speedCount += iv.SpeedCount
}

func (p *pending) record() domain.DowntimeRecord {
	rec := domain.DowntimeRecord{
		Start:       p.start,
		End:         p.end,
		Duration:    p.end.Sub(p.start),
		SampleCount: p.samples,
		MergedStops: p.stops,
	}
	if p.speedCount > 0 {
		rec.MeanSpeed = p.speedSum / float64(p.speedCount)
	}
	return rec
}

// Summarize reports total downtime and availability over the window span.
func Summarize(records []domain.DowntimeRecord, w domain.QueryWindow) domain.Summary {
	sum := domain.Summary{Records: len(records), Span: w.Span(), Availability: 1}
	for _, r := range records {
		sum.TotalDowntime += r.Duration
	}
	if sum.Span > 0 {
		avail := 1 - float64(sum.TotalDowntime)/float64(sum.Span)
		switch {
		case avail < 0:
			avail = 0
		case avail > 1:
			avail = 1
		}
		sum.Availability = avail
	}
	return sum
}
