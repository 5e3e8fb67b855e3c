package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator   *validator.Validate
	questionValidator *QuestionValidator
}

// New creates a validator accepting the given question types. No types means
// every type is accepted.
func New(supportedQuestionTypes ...string) *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		questionValidator: NewQuestionValidator(supportedQuestionTypes),
	}
}

// ValidateStruct validates struct tags and returns ValidationErrors on failure
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// ValidateBusiness validates rules that span several fields
func (v *Validator) ValidateBusiness(s interface{}) ValidationErrors {
	switch value := s.(type) {
	case *models.ActivityConfig:
		return validateActivityConfig(value)
	default:
		return nil
	}
}

// Validate performs complete validation (struct + business rules)
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		return err
	}

	if errors := v.ValidateBusiness(s); len(errors) > 0 {
		return errors
	}

	return nil
}

// Question returns the question validator
func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("navigation_mode", validateNavigationMode)
	validate.RegisterValidation("activity_kind", validateActivityKind)
	validate.RegisterValidation("attempt_state", validateAttemptState)
	validate.RegisterValidation("page_number", validatePageNumber)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateNavigationMode(fl validator.FieldLevel) bool {
	switch models.NavigationMode(fl.Field().String()) {
	case models.NavigationFree, models.NavigationSequential:
		return true
	}
	return false
}

func validateActivityKind(fl validator.FieldLevel) bool {
	switch models.ActivityKind(fl.Field().String()) {
	case models.KindQuiz, models.KindLesson:
		return true
	}
	return false
}

func validateAttemptState(fl validator.FieldLevel) bool {
	validStates := []models.AttemptState{
		models.AttemptInProgress,
		models.AttemptOverdue,
		models.AttemptFinished,
		models.AttemptAbandoned,
	}

	value := fl.Field().String()
	for _, state := range validStates {
		if string(state) == value {
			return true
		}
	}
	return false
}

// page_number accepts page indexes and the summary sentinel.
func validatePageNumber(fl validator.FieldLevel) bool {
	return fl.Field().Int() >= int64(models.FinishPage)
}

func validateActivityConfig(cfg *models.ActivityConfig) ValidationErrors {
	var errs ValidationErrors
	if cfg.GracePeriod > 0 && cfg.TimeLimit == 0 && cfg.TimeClose == 0 {
		errs = append(errs, *NewValidationError("grace_period", "grace period requires a time limit or a close time", cfg.GracePeriod))
	}
	if cfg.OfflineCapable && cfg.TimeLimit > 0 {
		errs = append(errs, *NewValidationError("offline_capable", "timed activities cannot be played offline", cfg.OfflineCapable))
	}
	return errs
}
