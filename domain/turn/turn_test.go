package turn_test

import (
	"errors"
	"math/rand"

	"teamflow/bizerror"
	"teamflow/domain"
	"teamflow/domain/turn"
	"teamflow/roster"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Turn", func() {
	var r *roster.Roster

	records := func(categories ...domain.Category) []domain.AssignmentRecord {
		var rs []domain.AssignmentRecord
		for i, c := range categories {
			rs = append(rs, domain.AssignmentRecord{ID: types.ID(i + 1), Category: c, Assignee: "x", DocumentRef: "d"})
		}
		return rs
	}

	BeforeEach(func() {
		r = &roster.Roster{
			Members: []string{"A", "B", "C"},
			Cycles: map[domain.Category][]string{
				domain.CategoryNewWork:  {"A", "B", "C"},
				domain.CategoryRevision: {"C", "B", "A"},
			},
		}
	})

	Describe("NextAssignee", func() {
		It("should walk the cycle and wrap around", func() {
			var ledger []domain.AssignmentRecord
			var got []string
			for i := 0; i < 7; i++ {
				member, err := turn.NextAssignee(ledger, domain.CategoryNewWork, r)
				Expect(err).To(BeNil())
				got = append(got, member)
				ledger = append(ledger, records(domain.CategoryNewWork)...)
			}
			Expect(got).To(Equal([]string{"A", "B", "C", "A", "B", "C", "A"}))
		})

		It("should count each category on its own", func() {
			ledger := records(domain.CategoryNewWork, domain.CategoryNewWork)
			member, err := turn.NextAssignee(ledger, domain.CategoryRevision, r)
			Expect(err).To(BeNil())
			Expect(member).To(Equal("C"))

			member, err = turn.NextAssignee(ledger, domain.CategoryNewWork, r)
			Expect(err).To(BeNil())
			Expect(member).To(Equal("C"))
		})

		It("should depend only on the category count", func() {
			ledger := records(domain.CategoryNewWork, domain.CategoryRevision, domain.CategoryNewWork,
				domain.CategoryRevision, domain.CategoryNewWork)
			expected, err := turn.NextAssignee(ledger, domain.CategoryNewWork, r)
			Expect(err).To(BeNil())

			for i := 0; i < 20; i++ {
				shuffled := make([]domain.AssignmentRecord, len(ledger))
				copy(shuffled, ledger)
				rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
				for k := range shuffled {
					shuffled[k].Assignee = []string{"A", "B", "C", "nobody"}[rand.Intn(4)]
				}
				member, err := turn.NextAssignee(shuffled, domain.CategoryNewWork, r)
				Expect(err).To(BeNil())
				Expect(member).To(Equal(expected))
			}
		})

		It("should give the slot back when a record is removed", func() {
			ledger := records(domain.CategoryNewWork, domain.CategoryNewWork)
			member, _ := turn.NextAssignee(ledger[:1], domain.CategoryNewWork, r)
			Expect(member).To(Equal("B"))
			member, _ = turn.NextAssignee(ledger[1:], domain.CategoryNewWork, r)
			Expect(member).To(Equal("B"))
			member, _ = turn.NextAssignee(nil, domain.CategoryNewWork, r)
			Expect(member).To(Equal("A"))
		})

		It("should fail on empty cycle", func() {
			r.Cycles[domain.CategoryRevision] = nil
			_, err := turn.NextAssignee(nil, domain.CategoryRevision, r)
			var configErr *bizerror.ErrConfiguration
			Expect(errors.As(err, &configErr)).To(BeTrue())
			Expect(err.Error()).To(Equal("configuration error: cycle Revision is empty"))
		})

		It("should reject unknown category", func() {
			_, err := turn.NextAssignee(nil, domain.Category("Proofreading"), r)
			var validationErr *bizerror.ErrValidation
			Expect(errors.As(err, &validationErr)).To(BeTrue())
		})
	})

	Describe("Upcoming", func() {
		It("should resolve every category", func() {
			upcoming, err := turn.Upcoming(records(domain.CategoryRevision), r)
			Expect(err).To(BeNil())
			Expect(upcoming).To(Equal(map[domain.Category]string{
				domain.CategoryNewWork: "A", domain.CategoryRevision: "B",
			}))
		})

		It("should fail when any cycle is empty", func() {
			delete(r.Cycles, domain.CategoryNewWork)
			_, err := turn.Upcoming(nil, r)
			Expect(err).ToNot(BeNil())
		})
	})
})
