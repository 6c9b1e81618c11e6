package models

type ClassLevel string

const (
	Primary1 ClassLevel = "primary-1"
	Primary2 ClassLevel = "primary-2"
	Primary3 ClassLevel = "primary-3"
	Primary4 ClassLevel = "primary-4"
	Primary5 ClassLevel = "primary-5"
	Primary6 ClassLevel = "primary-6"
	JSS1     ClassLevel = "jss-1"
	JSS2     ClassLevel = "jss-2"
	JSS3     ClassLevel = "jss-3"
	SS1      ClassLevel = "ss-1"
	SS2      ClassLevel = "ss-2"
	SS3      ClassLevel = "ss-3"
	WAEC     ClassLevel = "waec"
)

type Language string

const (
	English Language = "English"
	French  Language = "French"
	Yoruba  Language = "Yoruba"
	Igbo    Language = "Igbo"
	Hausa   Language = "Hausa"
)

// DefaultLanguage is preselected on every fresh intake form.
const DefaultLanguage = English

type Option[T ~string] struct {
	Value T
	Label string
}

// ClassLevels lists the selectable levels in display order.
var ClassLevels = []Option[ClassLevel]{
	{Primary1, "Primary 1"},
	{Primary2, "Primary 2"},
	{Primary3, "Primary 3"},
	{Primary4, "Primary 4"},
	{Primary5, "Primary 5"},
	{Primary6, "Primary 6"},
	{JSS1, "JSS 1"},
	{JSS2, "JSS 2"},
	{JSS3, "JSS 3"},
	{SS1, "SS 1"},
	{SS2, "SS 2"},
	{SS3, "SS 3"},
	{WAEC, "WAEC Preparation"},
}

// Languages lists the teaching languages with their native labels.
var Languages = []Option[Language]{
	{English, "English"},
	{French, "Français"},
	{Yoruba, "Yorùbá"},
	{Igbo, "Igbo"},
	{Hausa, "Hausa"},
}

func (c ClassLevel) Valid() bool {
	_, ok := lookup(ClassLevels, c)
	return ok
}

// Label returns the display label, or the raw value for unknown levels.
func (c ClassLevel) Label() string {
	if l, ok := lookup(ClassLevels, c); ok {
		return l
	}
	return string(c)
}

func (l Language) Valid() bool {
	_, ok := lookup(Languages, l)
	return ok
}

func (l Language) Label() string {
	if s, ok := lookup(Languages, l); ok {
		return s
	}
	return string(l)
}

func lookup[T ~string](opts []Option[T], v T) (string, bool) {
	for _, o := range opts {
		if o.Value == v {
			return o.Label, true
		}
	}
	return "", false
}

type StudentRecord struct {
	Name       string     `json:"name" validate:"required"`
	ClassLevel ClassLevel `json:"classLevel" validate:"required,class_level"`
	Subject    string     `json:"subject" validate:"required"`
	Topic      string     `json:"topic" validate:"required"`
	Language   Language   `json:"language" validate:"required,language"`
}
