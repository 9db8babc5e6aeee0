package models

import "time"

// RespondedStudent is a response joined with the responding student's name
type RespondedStudent struct {
	ResponseID   uint      `json:"response_id"`
	StudentRegNo string    `json:"student_reg_no"`
	StudentName  string    `json:"student_name"`
	Section      string    `json:"section"`
	Response     string    `json:"response"`
	OptionIndex  *int      `json:"option_index"`
	RespondedAt  time.Time `json:"responded_at"`
}

// ResponseSummary partitions a roster into responders and non-responders
type ResponseSummary struct {
	Responded    []RespondedStudent `json:"responded"`
	NotResponded []Student          `json:"not_responded"`
	RosterSize   int                `json:"roster_size"`
	ResponseRate int                `json:"response_rate"` // 0-100
}

type OptionCount struct {
	Option     string  `json:"option"`
	Index      int     `json:"index"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type SectionRate struct {
	Section           string `json:"section"`
	TotalStudents     int    `json:"total_students"`
	RespondedStudents int    `json:"responded_students"`
	ResponseRate      int    `json:"response_rate"`
}

// CategoryCount counts polls per category for dashboards
type CategoryCount struct {
	Category PollCategory `json:"category"`
	Count    int64        `json:"count"`
}

// RecentResponse is a dashboard row for the latest responses in a department
type RecentResponse struct {
	PollID       uint      `json:"poll_id"`
	PollTitle    string    `json:"poll_title"`
	StudentRegNo string    `json:"student_reg_no"`
	StudentName  string    `json:"student_name"`
	Section      string    `json:"section"`
	Response     string    `json:"response"`
	RespondedAt  time.Time `json:"responded_at"`
}

// TrendPoint is the number of responses received on one day
type TrendPoint struct {
	Period    string    `json:"period"`
	Date      time.Time `json:"date"`
	Responses int64     `json:"responses"`
	Students  int64     `json:"students"`
}
