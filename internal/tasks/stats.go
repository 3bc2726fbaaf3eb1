package tasks

import (
	"sort"
	"time"

	"github.com/nhle/taskchat/internal/model"
)

// Stats summarizes the task collection for the dashboard header.
type Stats struct {
	Total     int
	Completed int
	Pending   int
	Overdue   int
	Upcoming  []model.Task
}

// UpcomingLimit caps Stats.Upcoming.
const UpcomingLimit = 5

// Stats computes counts at now. Upcoming holds the incomplete tasks due at
// or after now, soonest first.
func (s *Store) Stats(now time.Time) Stats {
	all := s.List()
	st := Stats{Total: len(all)}
	for _, t := range all {
		if t.IsCompleted {
			st.Completed++
			continue
		}
		if t.IsOverdue(now) {
			st.Overdue++
		}
		if t.DueDate != nil && !t.DueDate.Before(now) {
			st.Upcoming = append(st.Upcoming, t)
		}
	}
	st.Pending = st.Total - st.Completed
	sort.SliceStable(st.Upcoming, func(i, j int) bool {
		return st.Upcoming[i].DueDate.Before(*st.Upcoming[j].DueDate)
	})
	if len(st.Upcoming) > UpcomingLimit {
		st.Upcoming = st.Upcoming[:UpcomingLimit]
	}
	return st
}

// Section is a titled group of tasks for list views.
type Section struct {
	Title string
	Tasks []model.Task
}

// Group buckets tasks by due date relative to now: Overdue, Today,
// Tomorrow, Upcoming and No Date. Empty sections are omitted.
func Group(all []model.Task, now time.Time) []Section {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)
	dayAfter := tomorrow.AddDate(0, 0, 1)

	var overdue, dueToday, dueTomorrow, upcoming, noDate []model.Task
	for _, t := range all {
		switch {
		case t.DueDate == nil:
			noDate = append(noDate, t)
		case t.DueDate.Before(today) && !t.IsCompleted:
			overdue = append(overdue, t)
		case !t.DueDate.Before(today) && t.DueDate.Before(tomorrow):
			dueToday = append(dueToday, t)
		case !t.DueDate.Before(tomorrow) && t.DueDate.Before(dayAfter):
			dueTomorrow = append(dueTomorrow, t)
		default:
			upcoming = append(upcoming, t)
		}
	}

	byDue := func(ts []model.Task) []model.Task {
		sort.SliceStable(ts, func(i, j int) bool { return ts[i].DueDate.Before(*ts[j].DueDate) })
		return ts
	}
	sort.SliceStable(noDate, func(i, j int) bool { return noDate[i].Title < noDate[j].Title })

	sections := []Section{
		{Title: "Overdue", Tasks: byDue(overdue)},
		{Title: "Today", Tasks: byDue(dueToday)},
		{Title: "Tomorrow", Tasks: byDue(dueTomorrow)},
		{Title: "Upcoming", Tasks: byDue(upcoming)},
		{Title: "No Date", Tasks: noDate},
	}
	out := sections[:0]
	for _, sec := range sections {
		if len(sec.Tasks) > 0 {
			out = append(out, sec)
		}
	}
	return out
}
