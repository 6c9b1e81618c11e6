// Package intake holds the student intake form: the draft record a student
// fills in before a lesson starts, and the rule deciding when it may be
// submitted.
package intake

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/olushola/classroom-bot/internal/models"
)

type Field string

const (
	FieldName       Field = "name"
	FieldClassLevel Field = "classLevel"
	FieldSubject    Field = "subject"
	FieldTopic      Field = "topic"
	FieldLanguage   Field = "language"
)

// required fields in the order the form presents them
var requiredFields = []Field{FieldName, FieldClassLevel, FieldSubject, FieldTopic}

var (
	ErrIncomplete    = errors.New("intake form is incomplete")
	ErrUnknownOption = errors.New("unknown option")
	ErrUnknownField  = errors.New("unknown intake field")
)

type Form struct {
	draft     models.StudentRecord
	listening bool
}

func NewForm() *Form {
	f := &Form{}
	f.Reset()
	return f
}

// Reset restores an empty draft with the default language.
func (f *Form) Reset() {
	f.draft = models.StudentRecord{Language: models.DefaultLanguage}
	f.listening = false
}

func (f *Form) Draft() models.StudentRecord { return f.draft }

func (f *Form) SetName(s string)    { f.draft.Name = cleanString(s) }
func (f *Form) SetSubject(s string) { f.draft.Subject = cleanString(s) }
func (f *Form) SetTopic(s string)   { f.draft.Topic = cleanString(s) }

func (f *Form) SetClassLevel(c models.ClassLevel) error {
	if !c.Valid() {
		return fmt.Errorf("class level %q: %w", c, ErrUnknownOption)
	}
	f.draft.ClassLevel = c
	return nil
}

// SetLanguage changes the teaching language. The draft always keeps a
// language, so unknown values leave the current one in place.
func (f *Form) SetLanguage(l models.Language) error {
	if !l.Valid() {
		return fmt.Errorf("language %q: %w", l, ErrUnknownOption)
	}
	f.draft.Language = l
	return nil
}

// Set assigns a field from raw text input.
func (f *Form) Set(field Field, value string) error {
	switch field {
	case FieldName:
		f.SetName(value)
	case FieldSubject:
		f.SetSubject(value)
	case FieldTopic:
		f.SetTopic(value)
	case FieldClassLevel:
		return f.SetClassLevel(models.ClassLevel(cleanString(value)))
	case FieldLanguage:
		return f.SetLanguage(models.Language(cleanString(value)))
	default:
		return fmt.Errorf("%q: %w", field, ErrUnknownField)
	}
	return nil
}

// Missing lists the required fields that are still empty, in form order.
func (f *Form) Missing() []Field {
	errs := Errors(f.draft)
	var out []Field
	for _, fld := range requiredFields {
		if _, ok := errs[fld]; ok {
			out = append(out, fld)
		}
	}
	return out
}

// CanSubmit reports whether the submit control is enabled.
func (f *Form) CanSubmit() bool {
	return Validate(f.draft) == nil
}

// Submit returns a snapshot of the draft when it is complete. An incomplete
// form emits nothing and returns ErrIncomplete.
func (f *Form) Submit() (models.StudentRecord, error) {
	if err := Validate(f.draft); err != nil {
		return models.StudentRecord{}, err
	}
	return f.draft, nil
}

// ToggleVoice flips the voice-input indicator. No audio is captured.
func (f *Form) ToggleVoice() bool {
	f.listening = !f.listening
	return f.listening
}

func (f *Form) Listening() bool { return f.listening }

// Validate checks a record against the submission rules.
func Validate(rec models.StudentRecord) error {
	if err := validate.Struct(rec); err != nil {
		return fmt.Errorf("%w: %v", ErrIncomplete, err)
	}
	return nil
}

// Errors returns translated messages keyed by field for an invalid record.
func Errors(rec models.StudentRecord) map[Field]string {
	err := validate.Struct(rec)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[Field]string, len(verrs))
	for _, fe := range verrs {
		out[Field(fe.Field())] = fe.Translate(translator)
	}
	return out
}

func cleanString(s string) string {
	return strings.TrimSpace(s)
}
