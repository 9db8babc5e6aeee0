package models

import (
	"time"

	"gorm.io/datatypes"
)

type PollCategory string

const (
	CategoryGeneral   PollCategory = "General Poll"
	CategoryHackathon PollCategory = "Hackathon"
	CategoryGForm     PollCategory = "G-Form Poll"
)

func (c PollCategory) IsValid() bool {
	switch c {
	case CategoryGeneral, CategoryHackathon, CategoryGForm:
		return true
	}
	return false
}

// RequiresLink reports whether polls of this category must carry an external link
func (c PollCategory) RequiresLink() bool {
	return c == CategoryHackathon || c == CategoryGForm
}

// SortMode controls how option counts are ordered in summaries
type SortMode string

const (
	SortAuto SortMode = "auto" // keyword heuristic on the poll title
	SortAsc  SortMode = "asc"
	SortDesc SortMode = "desc"
	SortNone SortMode = "none" // keep option order
)

const (
	MinPollOptions = 2
	MaxPollOptions = 5
)

type Poll struct {
	ID       uint                        `json:"id" gorm:"primaryKey"`
	Title    string                      `json:"title" gorm:"not null;size:200"`
	StaffID  uint                        `json:"staff_id" gorm:"not null;index"`
	ClassID  uint                        `json:"class_id" gorm:"not null;index"`
	Category PollCategory                `json:"poll_category" gorm:"column:poll_category;not null;size:30;default:'General Poll'"`
	Options  datatypes.JSONSlice[string] `json:"options" gorm:"type:jsonb;not null"`
	Deadline *time.Time                  `json:"deadline"`
	LinkURL  *string                     `json:"link_url" gorm:"size:1000"`
	SortMode SortMode                    `json:"sort_mode" gorm:"not null;size:10;default:'auto'"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`

	// Relations
	Class     *Class         `json:"class,omitempty" gorm:"foreignKey:ClassID"`
	Staff     *Staff         `json:"staff,omitempty" gorm:"foreignKey:StaffID"`
	Responses []PollResponse `json:"-" gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE"`
}

func (Poll) TableName() string {
	return "polls"
}

// HasOption reports whether index addresses one of the poll's options
func (p *Poll) HasOption(index int) bool {
	return index >= 0 && index < len(p.Options)
}

type PollResponse struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	PollID       uint      `json:"poll_id" gorm:"not null;uniqueIndex:idx_poll_responses_poll_student"`
	StudentRegNo string    `json:"student_reg_no" gorm:"not null;size:50;uniqueIndex:idx_poll_responses_poll_student;index"`
	Response     string    `json:"response" gorm:"type:text;not null"`
	OptionIndex  *int      `json:"option_index"` // nil on rows written before indexes were stored
	RespondedAt  time.Time `json:"responded_at"`
}

func (PollResponse) TableName() string {
	return "poll_responses"
}
