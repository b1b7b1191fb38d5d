package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	es_translations "github.com/go-playground/validator/v10/translations/es"
)

var (
	// custom validation tags & texts
	phoneTag   = "phone"
	phoneText  = "Número de teléfono inválido"
	phoneRegex = regexp.MustCompile(`^\+?[0-9 ()\-]{7,20}$`)

	// overridden default texts; errors are shown next to their field so they don't repeat its name
	overrides = map[string]string{
		"required":      RequiredText,
		"required_with": RequiredText,
		"email":         "Correo electrónico inválido",
		"min":           "Debe tener al menos {0} caracteres",
		"max":           "Debe tener como máximo {0} caracteres",
		"eqfield":       "Las contraseñas no coinciden",
		"oneof":         "Opción inválida",
		"gt":            "Debe ser mayor que {0}",
		"url":           "URL inválida",
	}
)

// RequiredText is the single error reported for an empty required field.
const RequiredText = "Este campo es obligatorio"

// NewTranslator returns the Spanish translator used for user facing messages.
func NewTranslator() ut.Translator {
	_es := es.New()
	uni := ut.New(_es, _es)
	translator, _ := uni.GetTranslator("es")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = es_translations.RegisterDefaultTranslations(validate, translator)

	// Use form (then JSON) tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	// register custom validators
	_ = validate.RegisterValidation(phoneTag, phoneValidation)
	RegisterCustomTranslation(validate, translator, phoneTag, phoneText)

	for tag, text := range overrides {
		RegisterCustomTranslation(validate, translator, tag, text, true)
	}
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
// {0} in text is replaced by the tag's param.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Param())
			return s
		},
	)
}

// Custom Global Validators

// phoneValidation allows digits, spaces, dashes, parentheses and a leading "+".
func phoneValidation(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}
