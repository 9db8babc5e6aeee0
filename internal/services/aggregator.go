package services

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/SAP-F-2025/poll-service/internal/config"
	"github.com/SAP-F-2025/poll-service/internal/models"
)

// SortPolicy decides how option counts of a poll are ordered: asc, desc or none
type SortPolicy interface {
	Direction(poll *models.Poll) models.SortMode
}

var digitPattern = regexp.MustCompile(`\d`)

// KeywordSortPolicy honors an explicit poll sort mode and otherwise sniffs the title:
// achievement questions with numeric options sort by count descending, the rest ascending.
type KeywordSortPolicy struct {
	achievementKeywords []string
	numberWords         []string
}

func NewKeywordSortPolicy(cfg config.AggregationConfig) *KeywordSortPolicy {
	return &KeywordSortPolicy{
		achievementKeywords: lowerAll(cfg.AchievementKeywords),
		numberWords:         lowerAll(cfg.NumberWords),
	}
}

func (p *KeywordSortPolicy) Direction(poll *models.Poll) models.SortMode {
	switch poll.SortMode {
	case models.SortAsc, models.SortDesc, models.SortNone:
		return poll.SortMode
	}

	if p.isAchievementQuestion(poll.Title) && p.hasNumericOption(poll.Options) {
		return models.SortDesc
	}
	return models.SortAsc
}

func (p *KeywordSortPolicy) isAchievementQuestion(title string) bool {
	title = strings.ToLower(title)
	for _, keyword := range p.achievementKeywords {
		if strings.Contains(title, keyword) {
			return true
		}
	}
	return false
}

func (p *KeywordSortPolicy) hasNumericOption(options []string) bool {
	for _, opt := range options {
		opt = strings.ToLower(opt)
		if digitPattern.MatchString(opt) {
			return true
		}
		for _, word := range p.numberWords {
			if strings.Contains(opt, word) {
				return true
			}
		}
	}
	return false
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Aggregator computes option counts with a configurable sort policy
type Aggregator struct {
	policy          SortPolicy
	legacyTextMatch bool
}

func NewAggregator(cfg config.AggregationConfig) *Aggregator {
	return &Aggregator{
		policy:          NewKeywordSortPolicy(cfg),
		legacyTextMatch: cfg.LegacyTextMatch,
	}
}

// OptionCounts counts responses per option by option index. Rows written before indexes were
// stored are matched on text, only when no row carries a usable index.
func (a *Aggregator) OptionCounts(poll *models.Poll, responses []*models.PollResponse) []models.OptionCount {
	if poll == nil || len(poll.Options) == 0 {
		return []models.OptionCount{}
	}

	counts := make([]models.OptionCount, len(poll.Options))
	for i, opt := range poll.Options {
		counts[i] = models.OptionCount{Option: opt, Index: i}
	}

	matched := 0
	for _, r := range responses {
		if r != nil && r.OptionIndex != nil && poll.HasOption(*r.OptionIndex) {
			counts[*r.OptionIndex].Count++
			matched++
		}
	}

	if matched == 0 && a.legacyTextMatch {
		for _, r := range responses {
			if r == nil {
				continue
			}
			if i := matchOptionText(poll.Options, r.Response); i >= 0 {
				counts[i].Count++
			}
		}
	}

	total := len(responses)
	for i := range counts {
		counts[i].Percentage = percentage(counts[i].Count, total)
	}

	switch a.policy.Direction(poll) {
	case models.SortDesc:
		sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	case models.SortAsc:
		sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count < counts[j].Count })
	}

	return counts
}

// matchOptionText returns the first option the response equals or starts with
func matchOptionText(options []string, response string) int {
	for i, opt := range options {
		if response == opt || strings.HasPrefix(response, opt) {
			return i
		}
	}
	return -1
}

// ResponseSummary splits a roster into responders and non-responders.
// Responses from students outside the roster are ignored.
func ResponseSummary(roster []*models.Student, responses []*models.PollResponse) models.ResponseSummary {
	byRegNo := make(map[string]*models.Student, len(roster))
	for _, s := range roster {
		if s != nil {
			byRegNo[s.RegNo] = s
		}
	}

	summary := models.ResponseSummary{
		Responded:    []models.RespondedStudent{},
		NotResponded: []models.Student{},
	}

	responded := make(map[string]bool, len(responses))
	for _, r := range responses {
		if r == nil || responded[r.StudentRegNo] {
			continue
		}
		student, ok := byRegNo[r.StudentRegNo]
		if !ok {
			continue
		}
		responded[r.StudentRegNo] = true
		summary.Responded = append(summary.Responded, models.RespondedStudent{
			ResponseID:   r.ID,
			StudentRegNo: r.StudentRegNo,
			StudentName:  student.Name,
			Section:      student.Section,
			Response:     r.Response,
			OptionIndex:  r.OptionIndex,
			RespondedAt:  r.RespondedAt,
		})
	}

	seen := make(map[string]bool, len(roster))
	for _, s := range roster {
		if s == nil || seen[s.RegNo] {
			continue
		}
		seen[s.RegNo] = true
		if !responded[s.RegNo] {
			summary.NotResponded = append(summary.NotResponded, *s)
		}
	}

	summary.RosterSize = len(seen)
	summary.ResponseRate = ResponseRate(len(summary.Responded), summary.RosterSize)
	return summary
}

// ResponseRate is round(100*responded/roster), 0 for an empty roster
func ResponseRate(responded, roster int) int {
	if roster <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(responded) / float64(roster)))
}

// SectionRates returns one entry per section in roster order of first appearance
func SectionRates(roster []*models.Student, responses []*models.PollResponse) []models.SectionRate {
	sectionOf := make(map[string]string, len(roster))
	index := make(map[string]int)
	rates := []models.SectionRate{}

	for _, s := range roster {
		if s == nil {
			continue
		}
		if _, dup := sectionOf[s.RegNo]; dup {
			continue
		}
		sectionOf[s.RegNo] = s.Section
		i, ok := index[s.Section]
		if !ok {
			i = len(rates)
			index[s.Section] = i
			rates = append(rates, models.SectionRate{Section: s.Section})
		}
		rates[i].TotalStudents++
	}

	counted := make(map[string]bool)
	for _, r := range responses {
		if r == nil || counted[r.StudentRegNo] {
			continue
		}
		section, ok := sectionOf[r.StudentRegNo]
		if !ok {
			continue
		}
		counted[r.StudentRegNo] = true
		rates[index[section]].RespondedStudents++
	}

	for i := range rates {
		rates[i].ResponseRate = ResponseRate(rates[i].RespondedStudents, rates[i].TotalStudents)
	}
	return rates
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(1000*float64(count)/float64(total)) / 10
}
