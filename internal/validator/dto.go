package validator

import "github.com/SAP-F-2025/poll-service/internal/models"

// PollCreateRequest represents the request structure for creating polls.
// Faculty may omit ClassID (their own class is used); HODs list Sections.
type PollCreateRequest struct {
	Title    string              `json:"title" validate:"required,poll_title"`
	Category models.PollCategory `json:"poll_category" validate:"required,poll_category"`
	Options  []string            `json:"options" validate:"poll_options"`
	Deadline *string             `json:"deadline" validate:"omitempty,max=40"` // RFC 3339 or HH:MM[:SS]
	LinkURL  *string             `json:"link_url" validate:"omitempty,max=1000"`
	SortMode models.SortMode     `json:"sort_mode" validate:"omitempty,sort_mode"`
	ClassID  *uint               `json:"class_id"`
	Sections []string            `json:"sections" validate:"omitempty,max=50,dive,required,max=20"`
}

// ResponseSubmitRequest represents a student's answer to a poll
type ResponseSubmitRequest struct {
	OptionIndex *int    `json:"option_index" validate:"required,min=0,max=4"`
	FreeText    *string `json:"free_text" validate:"omitempty,max=1000"`
}

// ResponseEditRequest represents an edit of an existing response
type ResponseEditRequest struct {
	OptionIndex *int    `json:"option_index" validate:"required,min=0,max=4"`
	FreeText    *string `json:"free_text" validate:"omitempty,max=1000"`
}
