package validator

import (
	"fmt"

	apperrors "github.com/SAP-F-2025/attempt-engine/internal/errors"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// QuestionValidator checks page content handed out by the server
type QuestionValidator struct {
	supported map[string]bool
}

// NewQuestionValidator creates a validator for the given question types
func NewQuestionValidator(supportedTypes []string) *QuestionValidator {
	v := &QuestionValidator{}
	if len(supportedTypes) > 0 {
		v.supported = make(map[string]bool, len(supportedTypes)+1)
		for _, t := range supportedTypes {
			v.supported[t] = true
		}
		v.supported[models.QuestionTypeDescription] = true
	}
	return v
}

// IsSupported reports whether questions of this type can be answered here
func (v *QuestionValidator) IsSupported(questionType string) bool {
	if v.supported == nil {
		return true
	}
	return v.supported[questionType]
}

// ValidatePage returns a ContentParseError when the page cannot be
// interpreted
func (v *QuestionValidator) ValidatePage(page *models.PageContent) error {
	if page == nil {
		return apperrors.NewContentParseError("page", []string{"page is missing"}, nil)
	}
	if problems := page.Problems(); len(problems) > 0 {
		return apperrors.NewContentParseError(fmt.Sprintf("page %d", page.Number), problems, nil)
	}
	return nil
}

// ValidateSummary is the summary counterpart of ValidatePage
func (v *QuestionValidator) ValidateSummary(questions []models.Question) error {
	if problems := models.SummaryProblems(questions); len(problems) > 0 {
		return apperrors.NewContentParseError("summary", problems, nil)
	}
	return nil
}

// PreventSubmitMessages lists the reasons the attempt cannot be submitted
// from this client
func (v *QuestionValidator) PreventSubmitMessages(questions []models.Question) []string {
	return models.PreventSubmitMessages(questions, v.IsSupported)
}
