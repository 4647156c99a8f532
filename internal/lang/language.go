// Package lang validates the language hint forwarded to recognizer backends.
package lang

import (
	"fmt"
	"strings"
)

// known lists the ISO 639-1 codes accepted as hints. The checkpoints are
// trained on Russian speech; the other codes matter only for backends that
// serve multilingual models behind the same API.
var known = map[string]bool{
	"ru": true, // Russian
	"uk": true, // Ukrainian
	"be": true, // Belarusian
	"kk": true, // Kazakh
	"ky": true, // Kyrgyz
	"uz": true, // Uzbek
	"tt": true, // Tatar
	"hy": true, // Armenian
	"ka": true, // Georgian
	"az": true, // Azerbaijani
	"en": true, // English
	"de": true, // German
	"fr": true, // French
	"es": true, // Spanish
	"it": true, // Italian
	"pl": true, // Polish
	"tr": true, // Turkish
	"zh": true, // Chinese
}

// Normalize lowercases code, trims it and uses '-' as the region separator.
// "ru_RU" and " RU-ru " both become "ru-ru".
func Normalize(code string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
}

// Base returns the language part of a locale: "ru-RU" -> "ru".
// Backends take base codes only.
func Base(code string) string {
	base, _, _ := strings.Cut(Normalize(code), "-")
	return base
}

// Validate accepts an empty hint (let the backend decide) or a locale whose
// base is a known code.
func Validate(code string) error {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	if !known[Base(code)] {
		return fmt.Errorf("%w: %q (use ISO 639-1, e.g. ru or ru-RU)", ErrInvalid, code)
	}
	return nil
}
