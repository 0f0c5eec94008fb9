// Package scheduling implements the slot arithmetic underneath booking,
// suggestion, and displacement: bucket partitioning of a working day,
// exact-duration continuous assignment, and all-or-nothing batch packing.
// Everything here is pure; persistence and transport live elsewhere.
package scheduling

import (
	"sort"

	"github.com/unisched/presentation-api/internal/models"
)

// Requirement is one lecture that needs a new home on a target day.
type Requirement struct {
	DurationMinutes int
	ModuleCode      string
	VenueID         string
	GroupID         string
}

// Assigned pairs a requirement with the range it received.
type Assigned struct {
	Requirement Requirement
	Range       models.TimeRange
}

// ComputeFreeSlots partitions [dayStart, dayEnd) into granularity-minute
// buckets and drops every bucket overlapping a busy range. A final bucket
// shorter than the granularity is discarded. Results are sorted by start.
func ComputeFreeSlots(dayStart, dayEnd string, granularity int, busy []models.TimeRange) []models.TimeRange {
	startMin := models.MinuteOf(dayStart)
	endMin := models.MinuteOf(dayEnd)
	if startMin < 0 || endMin < 0 || granularity <= 0 {
		return nil
	}

	var free []models.TimeRange
	for s := startMin; s+granularity <= endMin; s += granularity {
		bucket := models.TimeRange{Start: models.TimeOf(s), End: models.TimeOf(s + granularity)}
		if !overlapsAny(bucket, busy) {
			free = append(free, bucket)
		}
	}
	return free
}

// AssignContinuous finds the earliest run of strictly adjacent free buckets
// whose combined length equals duration exactly. Returns nil when no such
// run exists; a longer gap never satisfies a shorter requirement here, the
// caller controls fit policy through the bucket granularity.
func AssignContinuous(free []models.TimeRange, duration int) *models.TimeRange {
	if duration <= 0 || len(free) == 0 {
		return nil
	}
	slots := sortedByStart(free)

	for i := range slots {
		total := slots[i].DurationMinutes()
		end := slots[i].End
		for j := i + 1; total < duration && j < len(slots); j++ {
			if slots[j].Start != end {
				break
			}
			total += slots[j].DurationMinutes()
			end = slots[j].End
		}
		if total == duration {
			return &models.TimeRange{Start: slots[i].Start, End: end}
		}
	}
	return nil
}

// AssignBatch places every requirement into the free set or none of them.
// Each successful assignment consumes its whole run, so later requirements
// cannot overlap an earlier one. Returns nil if any requirement cannot be
// placed.
func AssignBatch(free []models.TimeRange, lectures []Requirement) []Assigned {
	remaining := sortedByStart(free)
	assigned := make([]Assigned, 0, len(lectures))

	for _, lec := range lectures {
		r := AssignContinuous(remaining, lec.DurationMinutes)
		if r == nil {
			return nil
		}
		assigned = append(assigned, Assigned{Requirement: lec, Range: *r})
		remaining = consume(remaining, *r)
	}
	return assigned
}

// Conflicts reports whether candidate overlaps any of the busy ranges.
// Touching ranges (end == start) do not conflict.
func Conflicts(candidate models.TimeRange, busy []models.TimeRange) bool {
	return overlapsAny(candidate, busy)
}

func overlapsAny(r models.TimeRange, busy []models.TimeRange) bool {
	for _, b := range busy {
		if r.Overlaps(b) {
			return true
		}
	}
	return false
}

func sortedByStart(slots []models.TimeRange) []models.TimeRange {
	out := make([]models.TimeRange, len(slots))
	copy(out, slots)
	sort.Slice(out, func(i, j int) bool {
		return models.MinuteOf(out[i].Start) < models.MinuteOf(out[j].Start)
	})
	return out
}

func consume(slots []models.TimeRange, used models.TimeRange) []models.TimeRange {
	out := slots[:0]
	for _, s := range slots {
		if !s.Overlaps(used) {
			out = append(out, s)
		}
	}
	return out
}
