package roster

import (
	"fmt"
	"strings"

	"teamflow/bizerror"
	"teamflow/domain"
)

// Roster the fixed team and the hand-off order of each work category.
type Roster struct {
	Members []string                     `yaml:"members" json:"members"`
	Cycles  map[domain.Category][]string `yaml:"cycles" json:"cycles"`
}

// Reference the roster the team started with.
func Reference() *Roster {
	return &Roster{
		Members: []string{"Muhammad Imran", "Mazhar Abbas", "Muhammad Ahmad"},
		Cycles: map[domain.Category][]string{
			domain.CategoryNewWork:  {"Muhammad Imran", "Mazhar Abbas", "Muhammad Ahmad"},
			domain.CategoryRevision: {"Muhammad Ahmad", "Mazhar Abbas", "Muhammad Imran"},
		},
	}
}

// Validate every category needs a non-empty cycle that is a permutation of the members.
func (r *Roster) Validate() error {
	if len(r.Members) == 0 {
		return &bizerror.ErrConfiguration{Message: "roster has no members"}
	}
	members := map[string]bool{}
	for _, m := range r.Members {
		if strings.TrimSpace(m) == "" {
			return &bizerror.ErrConfiguration{Message: "roster contains a blank member"}
		}
		if members[m] {
			return &bizerror.ErrConfiguration{Message: fmt.Sprintf("member '%s' is listed twice", m)}
		}
		members[m] = true
	}

	for _, category := range domain.Categories {
		cycle := r.Cycles[category]
		if len(cycle) == 0 {
			return &bizerror.ErrConfiguration{Message: fmt.Sprintf("cycle %s is empty", category)}
		}
		seen := map[string]bool{}
		for _, m := range cycle {
			if !members[m] {
				return &bizerror.ErrConfiguration{Message: fmt.Sprintf("cycle %s refers to unknown member '%s'", category, m)}
			}
			if seen[m] {
				return &bizerror.ErrConfiguration{Message: fmt.Sprintf("cycle %s lists '%s' twice", category, m)}
			}
			seen[m] = true
		}
		if len(seen) != len(members) {
			return &bizerror.ErrConfiguration{Message: fmt.Sprintf("cycle %s does not cover every member", category)}
		}
	}
	for category := range r.Cycles {
		if !category.Valid() {
			return &bizerror.ErrConfiguration{Message: fmt.Sprintf("unknown category '%s'", category)}
		}
	}
	return nil
}

// Cycle hand-off order of the category.
func (r *Roster) Cycle(category domain.Category) ([]string, error) {
	if !category.Valid() {
		return nil, bizerror.NewValidationError("category", fmt.Sprintf("unknown category '%s'", category))
	}
	cycle := r.Cycles[category]
	if len(cycle) == 0 {
		return nil, &bizerror.ErrConfiguration{Message: fmt.Sprintf("cycle %s is empty", category)}
	}
	return cycle, nil
}

