// Package i18n resolves localized program content and translates coach messages.
package i18n

import (
	"fmt"
	"strings"
)

// Language is a language code such as "pl" or "en".
type Language string

const (
	// Polish is the language program packs are authored in.
	Polish Language = "pl"
	// English is the English language.
	English Language = "en"
)

// DefaultLanguage is the fallback language for both content and translations.
const DefaultLanguage = Polish

// Text is a localized string keyed by language.
type Text map[Language]string

// Get returns the text in lang, falling back to the default language and finally to the empty string.
func (t Text) Get(lang Language) string {
	if s, ok := t[lang]; ok && s != "" {
		return s
	}
	return t[DefaultLanguage]
}

// TextList is a localized list of strings keyed by language, e.g. form cues.
type TextList map[Language][]string

// Get returns the list in lang, falling back to the default language.
func (t TextList) Get(lang Language) []string {
	if s, ok := t[lang]; ok && len(s) > 0 {
		return s
	}
	return t[DefaultLanguage]
}

// translations maps language codes to translation keys and their format strings.
//
//nolint:gochecknoglobals // static lookup table.
var translations = map[Language]map[string]string{
	Polish: {
		"adaptation.low_confidence":  "Niska pewność siebie - zmniejszam intensywność o 15%",
		"adaptation.high_rpe":        "Wysokie RPE - wprowadzam tydzień odciążenia",
		"adaptation.pain":            "Zgłoszony ból - zamieniono ćwiczenia: %d",
		"adaptation.overload":        "Świetne wyniki - zwiększam ciężary",
		"adaptation.recovery_sleep":  "Słaba regeneracja snu - przechodzę na intensywność aktywnej regeneracji",
		"coach.workout_default_name": "Trening",
	},
	English: {
		"adaptation.low_confidence":  "Low confidence detected - reducing intensity by 15%",
		"adaptation.high_rpe":        "High RPE detected - implementing deload week",
		"adaptation.pain":            "Pain detected - replaced %d exercise(s)",
		"adaptation.overload":        "Strong performance - increasing weights",
		"adaptation.recovery_sleep":  "Poor sleep recovery - switching to active recovery intensity",
		"coach.workout_default_name": "Workout",
	},
}

// SupportedLanguages returns a list of all supported languages.
func SupportedLanguages() []Language {
	return []Language{Polish, English}
}

// IsSupported checks if a language is supported.
func IsSupported(lang Language) bool {
	_, ok := translations[lang]
	return ok
}

// Match normalizes a language code such as "EN" or "en-GB" and reports whether the language is supported.
func Match(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_,;"); i >= 0 {
		code = code[:i]
	}
	lang := Language(code)
	return lang, IsSupported(lang)
}

// Parse normalizes a language code with [Match]. Unsupported codes resolve to the default language.
func Parse(code string) Language {
	if lang, ok := Match(code); ok {
		return lang
	}
	return DefaultLanguage
}

// Translate returns the translation for the given key in the specified language formatted with args.
// If the key is not found, it falls back to the default language.
// If still not found, it returns the key itself.
func Translate(lang Language, key string, args ...any) string {
	format, ok := translations[lang][key]
	if !ok {
		format, ok = translations[DefaultLanguage][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
