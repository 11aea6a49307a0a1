package schedule

import "time"

// ToggleResult carries both sides of a completion flip so the caller can apply
// Next optimistically and fall back to Prior when the write fails.
type ToggleResult struct {
	Prior       Instance
	Next        Instance
	PointsDelta int
}

// Completed reports whether the toggle moved the instance to done.
func (r ToggleResult) Completed() bool {
	return r.Next.Completed
}

// Toggle flips completion. Completing adds the instance's points and stamps
// now; un-completing subtracts them and clears the stamp.
func Toggle(inst Instance, now time.Time) ToggleResult {
	next := inst
	if inst.Completed {
		next.Completed = false
		next.CompletedAt = nil
		return ToggleResult{Prior: inst, Next: next, PointsDelta: -inst.Points}
	}
	stamp := now
	next.Completed = true
	next.CompletedAt = &stamp
	return ToggleResult{Prior: inst, Next: next, PointsDelta: inst.Points}
}
