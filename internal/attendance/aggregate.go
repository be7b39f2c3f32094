package attendance

import (
	"slices"
	"strings"
)

const (
	AllDepartments = "all"
	AllCohorts     = "all"
)

// DepartmentCatalog is the fixed list of departments that always appear in
// the per-department breakdown, in display order.
var DepartmentCatalog = []string{"Mekatronika", "Pemesinan", "Ototronik", "Animasi"}

// Criteria selects records for display. Date is AnyDate for no restriction.
type Criteria struct {
	Department string
	Cohort     string
	Date       string
}

// AllCriteria matches every record on date.
func AllCriteria(date string) Criteria {
	return Criteria{Department: AllDepartments, Cohort: AllCohorts, Date: date}
}

func (c Criteria) department() string {
	if c.Department == "" {
		return AllDepartments
	}
	return c.Department
}

func (c Criteria) cohort() string {
	if c.Cohort == "" {
		return AllCohorts
	}
	return c.Cohort
}

// Matches applies the department and cohort dimensions. The date dimension
// is applied by Reconcile.
func (c Criteria) Matches(r Record) bool {
	if d := c.department(); d != AllDepartments && r.Department != d {
		return false
	}
	if co := c.cohort(); co != AllCohorts && NormalizeCohort(r.Cohort) != NormalizeCohort(co) {
		return false
	}
	return true
}

// NormalizeCohort prepares a cohort for comparison by dropping surrounding
// space. Text is otherwise compared as written: "07" and "7" differ. Numeric
// cohorts on the wire are already rendered canonically by ParseEvents.
func NormalizeCohort(s string) string {
	return strings.TrimSpace(s)
}

// Counts is the tally behind the recap cards.
type Counts struct {
	Total      int
	OnTime     int
	Late       int
	Complete   int
	Incomplete int
}

func (c *Counts) add(r Record, p Policy) {
	c.Total++
	if p.OnTime(r.AttendedAt) {
		c.OnTime++
	} else {
		c.Late++
	}
	if r.Attributes.Complete() {
		c.Complete++
	} else {
		c.Incomplete++
	}
}

func (c Counts) OnTimePercent() int   { return Percent(c.OnTime, c.Total) }
func (c Counts) LatePercent() int     { return Percent(c.Late, c.Total) }
func (c Counts) CompletePercent() int { return Percent(c.Complete, c.Total) }

// Statistics summarizes a filtered record set.
type Statistics struct {
	Counts
	// PerDepartment always holds the catalog departments, possibly at zero,
	// plus any other department found in the records.
	PerDepartment map[string]Counts
}

// ActiveDepartments lists departments with at least one record: catalog
// departments first in catalog order, then the rest alphabetically.
func (s Statistics) ActiveDepartments() []string {
	var out, extra []string
	for _, d := range DepartmentCatalog {
		if s.PerDepartment[d].Total > 0 {
			out = append(out, d)
		}
	}
	for d, c := range s.PerDepartment {
		if c.Total > 0 && !slices.Contains(DepartmentCatalog, d) {
			extra = append(extra, d)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

// Aggregate filters records by criteria and derives statistics over the
// result. The returned map is keyed by credential and has no order.
func Aggregate(records map[string]Record, criteria Criteria, policy Policy) (map[string]Record, Statistics) {
	stats := Statistics{PerDepartment: make(map[string]Counts, len(DepartmentCatalog))}
	for _, d := range DepartmentCatalog {
		stats.PerDepartment[d] = Counts{}
	}

	filtered := make(map[string]Record, len(records))
	for id, r := range records {
		if !criteria.Matches(r) {
			continue
		}
		filtered[id] = r
		stats.Counts.add(r, policy)
		dept := stats.PerDepartment[r.Department]
		dept.add(r, policy)
		stats.PerDepartment[r.Department] = dept
	}
	return filtered, stats
}

// Summary is the outcome of running the whole pipeline for one criteria.
type Summary struct {
	Criteria Criteria
	Records  map[string]Record
	Stats    Statistics
	Warnings []Warning
}

// Summarize reconciles events for criteria.Date and aggregates the result.
func Summarize(events []Event, criteria Criteria, policy Policy) Summary {
	reconciled, warnings := Reconcile(events, criteria.Date)
	records, stats := Aggregate(reconciled, criteria, policy)
	return Summary{Criteria: criteria, Records: records, Stats: stats, Warnings: warnings}
}

// SortNewestFirst orders records by attendance time, latest first, for the
// main table. Ties are broken by credential.
func SortNewestFirst(records map[string]Record) []Record {
	out := collect(records)
	slices.SortFunc(out, func(a, b Record) int {
		if c := b.AttendedAt.Compare(a.AttendedAt); c != 0 {
			return c
		}
		return strings.Compare(a.CredentialID, b.CredentialID)
	})
	return out
}

// SortOldestFirst orders records by attendance time, earliest first, for the
// recap table. Ties are broken by credential.
func SortOldestFirst(records map[string]Record) []Record {
	out := collect(records)
	slices.SortFunc(out, func(a, b Record) int {
		if c := a.AttendedAt.Compare(b.AttendedAt); c != 0 {
			return c
		}
		return strings.Compare(a.CredentialID, b.CredentialID)
	})
	return out
}

func collect(records map[string]Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	return out
}

// Departments returns the catalog followed by any other department named in
// events, alphabetically.
func Departments(events []Event) []string {
	out := slices.Clone(DepartmentCatalog)
	var extra []string
	for _, e := range events {
		if e.Department == "" || slices.Contains(out, e.Department) || slices.Contains(extra, e.Department) {
			continue
		}
		extra = append(extra, e.Department)
	}
	slices.Sort(extra)
	return append(out, extra...)
}
