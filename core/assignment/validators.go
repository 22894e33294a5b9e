package assignment

import (
	"sort"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-portal/core"
)

var (
	questionTypeTag  = "qtype"
	questionTypeText = "invalid question type"

	gradesTag  = "grades"
	gradesText = "grades cannot be negative"
)

// InitValidators registers the assignment validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(questionTypeTag, questionTypeValidation)
	core.RegisterCustomTranslation(validate, translator, questionTypeTag, questionTypeText)

	_ = validate.RegisterValidation(gradesTag, gradesValidation)
	core.RegisterCustomTranslation(validate, translator, gradesTag, gradesText)
}

// Custom Validators

// questionTypeValidation checks that the question type is one of QuestionTypes
func questionTypeValidation(fl validator.FieldLevel) bool {
	qt, ok := fl.Field().Interface().(QuestionType)
	if !ok {
		return false
	}
	idx := sort.Search(len(QuestionTypes), func(i int) bool { return QuestionTypes[i] >= qt })
	return idx < len(QuestionTypes) && QuestionTypes[idx] == qt
}

// gradesValidation checks that no question is given negative points
func gradesValidation(fl validator.FieldLevel) bool {
	grades, ok := fl.Field().Interface().(Grades)
	if !ok {
		return false
	}
	for _, pts := range grades {
		if pts < 0 {
			return false
		}
	}
	return true
}
