package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SAP-F-2025/poll-service/internal/config"
	"github.com/SAP-F-2025/poll-service/internal/models"
)

func roster(n int, section string) []*models.Student {
	out := make([]*models.Student, n)
	for i := range out {
		out[i] = &models.Student{RegNo: fmt.Sprintf("%s-%d", section, i+1), Name: fmt.Sprintf("Student %d", i+1), Section: section}
	}
	return out
}

func answer(regNo string, index int, text string) *models.PollResponse {
	return &models.PollResponse{StudentRegNo: regNo, OptionIndex: &index, Response: text}
}

func legacyAnswer(regNo, text string) *models.PollResponse {
	return &models.PollResponse{StudentRegNo: regNo, Response: text}
}

func TestAggregator_YesNoScenario(t *testing.T) {
	agg := NewAggregator(config.DefaultAggregationConfig())
	poll := &models.Poll{Title: "Attending the guest lecture?", Options: []string{"Yes", "No"}, SortMode: models.SortAuto}
	students := roster(5, "A")
	responses := []*models.PollResponse{
		answer("A-1", 0, "Yes"),
		answer("A-2", 0, "Yes"),
		answer("A-3", 0, "Yes"),
		answer("A-4", 1, "No"),
	}

	counts := agg.OptionCounts(poll, responses)
	assert.Equal(t, []models.OptionCount{
		{Option: "No", Index: 1, Count: 1, Percentage: 25},
		{Option: "Yes", Index: 0, Count: 3, Percentage: 75},
	}, counts)

	summary := ResponseSummary(students, responses)
	assert.Equal(t, 80, summary.ResponseRate)
	assert.Len(t, summary.Responded, 4)
	assert.Len(t, summary.NotResponded, 1)
	assert.Equal(t, "A-5", summary.NotResponded[0].RegNo)
}

func TestAggregator_SortPolicy(t *testing.T) {
	agg := NewAggregator(config.DefaultAggregationConfig())
	responses := []*models.PollResponse{
		answer("A-1", 0, ""),
		answer("A-2", 1, ""),
		answer("A-3", 1, ""),
		answer("A-4", 2, ""),
		answer("A-5", 2, ""),
		answer("A-6", 2, ""),
	}

	order := func(counts []models.OptionCount) []string {
		out := make([]string, len(counts))
		for i, c := range counts {
			out[i] = c.Option
		}
		return out
	}

	tests := []struct {
		name string
		poll models.Poll
		want []string
	}{
		{
			name: "achievement title with numeric options sorts descending",
			poll: models.Poll{Title: "How many problems solved this week?", Options: []string{"1-5", "6-10", "more than ten"}},
			want: []string{"more than ten", "6-10", "1-5"},
		},
		{
			name: "achievement title with number words",
			poll: models.Poll{Title: "Number of tasks finished", Options: []string{"none", "two", "five"}},
			want: []string{"five", "two", "none"},
		},
		{
			name: "achievement title without numeric options sorts ascending",
			poll: models.Poll{Title: "Your score feeling", Options: []string{"Great", "Fine", "Bad"}},
			want: []string{"Great", "Fine", "Bad"},
		},
		{
			name: "plain title sorts ascending",
			poll: models.Poll{Title: "Lunch preference", Options: []string{"Veg", "Non-veg", "Vegan"}},
			want: []string{"Veg", "Non-veg", "Vegan"},
		},
		{
			name: "explicit desc overrides heuristic",
			poll: models.Poll{Title: "Lunch preference", Options: []string{"Veg", "Non-veg", "Vegan"}, SortMode: models.SortDesc},
			want: []string{"Vegan", "Non-veg", "Veg"},
		},
		{
			name: "explicit none keeps option order",
			poll: models.Poll{Title: "How many problems", Options: []string{"3", "2", "1"}, SortMode: models.SortNone},
			want: []string{"3", "2", "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, order(agg.OptionCounts(&tt.poll, responses)))
		})
	}
}

func TestAggregator_OptionCountsSumAndLegacyRows(t *testing.T) {
	poll := &models.Poll{Title: "Pick", Options: []string{"Alpha", "Beta", "Gamma"}, SortMode: models.SortNone}

	t.Run("counts sum to responses", func(t *testing.T) {
		agg := NewAggregator(config.DefaultAggregationConfig())
		responses := []*models.PollResponse{answer("1", 0, ""), answer("2", 2, ""), answer("3", 2, ""), answer("4", 1, "")}
		total := 0
		for _, c := range agg.OptionCounts(poll, responses) {
			total += c.Count
		}
		assert.Equal(t, len(responses), total)
	})

	t.Run("legacy rows match on text", func(t *testing.T) {
		agg := NewAggregator(config.DefaultAggregationConfig())
		responses := []*models.PollResponse{
			legacyAnswer("1", "Alpha"),
			legacyAnswer("2", "Beta - with a note"),
			legacyAnswer("3", "Unknown"),
		}
		counts := agg.OptionCounts(poll, responses)
		assert.Equal(t, 1, counts[0].Count)
		assert.Equal(t, 1, counts[1].Count)
		assert.Equal(t, 0, counts[2].Count)
		assert.Equal(t, 33.3, counts[0].Percentage)
	})

	t.Run("legacy match can be disabled", func(t *testing.T) {
		cfg := config.DefaultAggregationConfig()
		cfg.LegacyTextMatch = false
		agg := NewAggregator(cfg)
		for _, c := range agg.OptionCounts(poll, []*models.PollResponse{legacyAnswer("1", "Alpha")}) {
			assert.Zero(t, c.Count)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		agg := NewAggregator(config.DefaultAggregationConfig())
		assert.Empty(t, agg.OptionCounts(nil, nil))
		counts := agg.OptionCounts(poll, nil)
		assert.Len(t, counts, 3)
		for _, c := range counts {
			assert.Zero(t, c.Percentage)
		}
	})
}

func TestResponseSummary_Partition(t *testing.T) {
	for _, size := range []int{0, 1, 4, 9} {
		t.Run(fmt.Sprintf("roster of %d", size), func(t *testing.T) {
			students := roster(size, "A")
			var responses []*models.PollResponse
			for i := 0; i < size; i += 2 {
				responses = append(responses, answer(students[i].RegNo, 0, "Yes"))
			}
			// responses from outside the roster and duplicates are ignored
			responses = append(responses, answer("OUTSIDER", 0, "Yes"))
			if size > 0 {
				responses = append(responses, answer(students[0].RegNo, 1, "No"))
			}

			summary := ResponseSummary(students, responses)
			assert.Equal(t, size, len(summary.Responded)+len(summary.NotResponded))
			assert.Equal(t, size, summary.RosterSize)
		})
	}

	assert.Equal(t, 0, ResponseSummary(nil, nil).ResponseRate)
	assert.Equal(t, 0, ResponseRate(0, 0))
	assert.Equal(t, 67, ResponseRate(2, 3))
}

func TestSectionRates(t *testing.T) {
	students := append(roster(4, "A"), roster(2, "B")...)
	responses := []*models.PollResponse{
		answer("A-1", 0, ""),
		answer("A-1", 1, ""),
		answer("A-2", 0, ""),
		answer("B-1", 0, ""),
		answer("Z-9", 0, ""),
	}

	assert.Equal(t, []models.SectionRate{
		{Section: "A", TotalStudents: 4, RespondedStudents: 2, ResponseRate: 50},
		{Section: "B", TotalStudents: 2, RespondedStudents: 1, ResponseRate: 50},
	}, SectionRates(students, responses))

	assert.Empty(t, SectionRates(nil, nil))
}
