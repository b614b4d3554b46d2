package app

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"school_admin/internal/domain/assessment"
	"school_admin/internal/domain/errs"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	// custom validation tags
	notBlankTag    = "notblank"
	kindTag        = "assessment_kind"
	parentIdentTag = "parent_identity"
	requiredTag    = "required"
	requiredText   = "this field is required"
	e164Tag        = "e164"
	e164Text       = "must be an international number starting with + followed by digits"
)

// Instantiate the validator for use.
func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	_ = validate.RegisterValidation(kindTag, kindValidation)
	validate.RegisterStructValidation(parentStructValidation, ParentFields{})

	registerCustomValidationsTranslations(notBlankTag, kindTag, parentIdentTag)
	registerOverride(requiredTag, requiredText)
	registerOverride(e164Tag, e164Text)
}

// registerCustomValidationsTranslations registers messages for custom tags.
// The default translations are already registered, so a noop register func is passed.
func registerCustomValidationsTranslations(tags ...string) {
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range tags {
		_ = validate.RegisterTranslation(tag, translator, registerFn, translateCustomValidationErrs)
	}
}

func registerOverride(tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func translateCustomValidationErrs(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return "this field cannot be blank"
	case kindTag:
		return "must be one of quiz, homework, exam"
	case parentIdentTag:
		return "one of phone, first name or last name is required"
	default:
		return ""
	}
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func kindValidation(fl validator.FieldLevel) bool {
	if k, ok := fl.Field().Interface().(assessment.Kind); ok {
		return k.Valid()
	}
	return false
}

// parentStructValidation requires something to identify the parent by.
func parentStructValidation(sl validator.StructLevel) {
	if pf, ok := sl.Current().Interface().(ParentFields); ok && pf.Empty() {
		sl.ReportError(pf.Phone, "phone", "Phone", parentIdentTag, "")
	}
}

// validateInput runs struct validation and converts the result to errs.ValidationError.
func validateInput(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err
	}
	flds := make([]errs.FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		flds = append(flds, errs.FieldError{Field: fe.Field(), Error: fe.Translate(translator)})
	}
	return errs.NewValidationError(flds...)
}

// cleanString trims s and collapses inner whitespace.
func cleanString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
