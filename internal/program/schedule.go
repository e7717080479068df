package program

const daysPerWeek = 7

// TotalDays is the length of the phase in days.
func (p Phase) TotalDays() int {
	return p.DurationWeeks * daysPerWeek
}

// Weekday maps a 1-based phase day to a weekday, 1 for Monday through 7 for Sunday.
func Weekday(day int) int {
	return ((day-1)%daysPerWeek+daysPerWeek)%daysPerWeek + 1
}

// Week maps a 1-based phase day to its 1-based week.
func Week(day int) int {
	return (day + daysPerWeek - 1) / daysPerWeek
}

// ScheduledWorkout returns the workout scheduled for the given phase day.
//
// The first schedule entry that is either flexible or pinned to the day's weekday wins. Flexible entries therefore
// shadow later pinned entries.
func (p Phase) ScheduledWorkout(day int) (WorkoutReference, bool) {
	weekday := Weekday(day)
	for _, ref := range p.WorkoutSchedule.Workouts {
		if ref.DayOfWeek == nil || *ref.DayOfWeek == weekday {
			return ref, true
		}
	}
	return WorkoutReference{}, false
}
