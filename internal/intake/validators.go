package intake

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/olushola/classroom-bot/internal/models"
)

var (
	classLevelTag  = "class_level"
	classLevelText = "choose one of the listed class levels"
	languageTag    = "language"
	languageText   = "choose one of the listed languages"
	requiredTag    = "required"
	requiredText   = "this field is required"

	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	locale := en.New()
	translator, _ = ut.New(locale, locale).GetTranslator("en")
	validate = validator.New()
	initValidators(validate, translator)
}

func initValidators(v *validator.Validate, t ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(v, t)

	// report json names ("classLevel"), not Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(classLevelTag, func(fl validator.FieldLevel) bool {
		return models.ClassLevel(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation(languageTag, func(fl validator.FieldLevel) bool {
		return models.Language(fl.Field().String()).Valid()
	})

	registerTranslation(v, t, classLevelTag, classLevelText, false)
	registerTranslation(v, t, languageTag, languageText, false)
	registerTranslation(v, t, requiredTag, requiredText, true)
}

func registerTranslation(v *validator.Validate, t ut.Translator, tag, text string, override bool) {
	_ = v.RegisterTranslation(
		tag, t,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}
