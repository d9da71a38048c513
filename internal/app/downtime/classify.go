package downtime

import "github.com/ghalamif/LineFlow/internal/domain"

// Classify partitions time-sorted samples into running/stopped intervals.
//
// A sample is RUNNING when its speed is at least thresholdSpeed and STOPPED
// when it is below. A sample without speed keeps the previous label; the very
// first one defaults to RUNNING. Intervals holding fewer than minRunLength
// samples take the state of the interval before them and are merged into it,
// until no such interval remains. The first interval is never relabelled.
func Classify(samples []domain.Sample, thresholdSpeed float64, minRunLength int) []domain.Interval {
	if len(samples) == 0 {
		return nil
	}

	intervals := make([]domain.Interval, 0, 8)
	state := domain.Running
	for i, s := range samples {
		if s.Speed.Valid {
			if s.Speed.Value >= thresholdSpeed {
				state = domain.Running
			} else {
				state = domain.Stopped
			}
		}

		n := len(intervals)
		if n == 0 || intervals[n-1].State != state {
			intervals = append(intervals, domain.Interval{
				State:      state,
				Start:      s.Timestamp,
				FirstIndex: i,
			})
			n++
		}
		cur := &intervals[n-1]
		cur.End = s.Timestamp
		cur.LastIndex = i
		cur.SampleCount++
		if s.Speed.Valid {
			cur.SpeedSum += s.Speed.Value
			cur.SpeedCount++
		}
	}

	return debounce(intervals, minRunLength)
}

// debounce folds short intervals into their predecessor. Every fold removes
// at least one interval, so the loop ends after fewer than len(in) folds.
func debounce(in []domain.Interval, minRunLength int) []domain.Interval {
	if minRunLength <= 1 {
		return in
	}
	for {
		idx := -1
		for i := 1; i < len(in); i++ {
			if in[i].SampleCount < minRunLength {
				idx = i
				break
			}
		}
		if idx < 0 {
			return in
		}

		prev := &in[idx-1]
		absorb(prev, in[idx])
		end := idx + 1
		if end < len(in) && in[end].State == prev.State {
			absorb(prev, in[end])
			end++
		}
		in = append(in[:idx], in[end:]...)
	}
}

func absorb(dst *domain.Interval, src domain.Interval) {
	dst.End = src.End
	dst.LastIndex = src.LastIndex
	dst.SampleCount += src.SampleCount
	dst.SpeedSum += src.SpeedSum
	dst.SpeedCount += src.SpeedCount
}
