package turn

import (
	"teamflow/domain"
	"teamflow/roster"
)

// NextAssignee member whose turn it is for the category: the category's record count
// modulo the cycle length indexes the cycle. Nothing but the count matters, so a
// deleted record gives its slot back.
func NextAssignee(records []domain.AssignmentRecord, category domain.Category, r *roster.Roster) (string, error) {
	cycle, err := r.Cycle(category)
	if err != nil {
		return "", err
	}
	count := 0
	for _, record := range records {
		if record.Category == category {
			count++
		}
	}
	return cycle[count%len(cycle)], nil
}

// Upcoming next assignee of every category.
func Upcoming(records []domain.AssignmentRecord, r *roster.Roster) (map[domain.Category]string, error) {
	upcoming := map[domain.Category]string{}
	for _, category := range domain.Categories {
		member, err := NextAssignee(records, category, r)
		if err != nil {
			return nil, err
		}
		upcoming[category] = member
	}
	return upcoming, nil
}
