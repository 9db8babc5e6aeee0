package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/poll-service/internal/models"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	// report fields by their json names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidatePollCreate validates poll creation business rules
func (bv *BusinessValidator) ValidatePollCreate(req *PollCreateRequest) ValidationErrors {
	var errors ValidationErrors

	// Basic struct validation
	errors = append(errors, bv.Validate(req)...)

	// Additional business validations
	errors = append(errors, bv.validatePollBusinessRules(req)...)

	return errors
}

// ValidateResponseText rejects an empty stored response
func (bv *BusinessValidator) ValidateResponseText(text string) ValidationErrors {
	if strings.TrimSpace(text) == "" {
		return ValidationErrors{{
			Field:   "response",
			Message: "response cannot be empty",
			Rule:    "business_logic",
		}}
	}
	return nil
}

// ValidateOptionIndex checks the selected option against the poll
func (bv *BusinessValidator) ValidateOptionIndex(poll *models.Poll, index *int) ValidationErrors {
	if index == nil {
		return ValidationErrors{{
			Field:   "option_index",
			Message: "an option must be selected",
			Rule:    "required",
		}}
	}
	if !poll.HasOption(*index) {
		return ValidationErrors{{
			Field:   "option_index",
			Message: "selected option does not exist",
			Value:   *index,
			Rule:    "business_logic",
		}}
	}
	return nil
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Title validation (1-200 characters)
	bv.validate.RegisterValidation("poll_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 200
	})

	// Options validation (2-5 after dropping blanks)
	bv.validate.RegisterValidation("poll_options", func(fl validator.FieldLevel) bool {
		options, ok := fl.Field().Interface().([]string)
		if !ok {
			return false
		}
		n := len(TrimOptions(options))
		return n >= models.MinPollOptions && n <= models.MaxPollOptions
	})

	bv.validate.RegisterValidation("poll_category", func(fl validator.FieldLevel) bool {
		return models.PollCategory(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("sort_mode", func(fl validator.FieldLevel) bool {
		switch models.SortMode(fl.Field().String()) {
		case models.SortAuto, models.SortAsc, models.SortDesc, models.SortNone:
			return true
		}
		return false
	})
}

// validatePollBusinessRules validates cross-field rules for poll creation
func (bv *BusinessValidator) validatePollBusinessRules(req *PollCreateRequest) ValidationErrors {
	var errors ValidationErrors

	if req.Category.RequiresLink() && (req.LinkURL == nil || strings.TrimSpace(*req.LinkURL) == "") {
		errors = append(errors, ValidationError{
			Field:   "link_url",
			Message: "link is required for " + string(req.Category) + " polls",
			Rule:    "business_logic",
		})
	}

	for i, section := range req.Sections {
		if strings.TrimSpace(section) == "" {
			errors = append(errors, ValidationError{
				Field:   "sections",
				Message: "section cannot be empty",
				Value:   i,
				Rule:    "business_logic",
			})
		}
	}

	return errors
}

// TrimOptions trims each option and drops blank ones, keeping order
func TrimOptions(options []string) []string {
	out := make([]string, 0, len(options))
	for _, opt := range options {
		if o := strings.TrimSpace(opt); o != "" {
			out = append(out, o)
		}
	}
	return out
}
