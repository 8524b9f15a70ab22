package dashboard

// DaySummary is one point of the tasks-per-day progress chart.
type DaySummary struct {
	Date  string `json:"date"`
	Tasks int    `json:"tasks"`
}

// Summary aggregates the board into task counts per due date, in due
// date order.
func (b *Board) Summary() []DaySummary {
	var out []DaySummary
	idx := make(map[string]int)
	for _, t := range b.Tasks() {
		key := t.DueDate.Format("Jan 02")
		if i, ok := idx[key]; ok {
			out[i].Tasks++
			continue
		}
		idx[key] = len(out)
		out = append(out, DaySummary{Date: key, Tasks: 1})
	}
	return out
}
