package services

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"olx-dacha-scraper/models"
)

var (
	apostropheRe = regexp.MustCompile("[’`']")
	// Everything outside letters, digits, underscore, whitespace and the
	// two apostrophe forms of Uzbek Latin orthography becomes a space.
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{N}_\s’‘]`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	generalCyrillicRe = regexp.MustCompile("[А-Яа-яЁё]")
	uzCyrillicRe      = regexp.MustCompile("[ҚқҒғЎўҲҳ]")
	latinRe           = regexp.MustCompile("[A-Za-z]")
)

// uzCyr2Lat maps Uzbek Cyrillic onto the 1995 Latin orthography.
// Characters absent from the table pass through unchanged.
var uzCyr2Lat = map[rune]string{
	'А': "A", 'а': "a", 'Б': "B", 'б': "b", 'В': "V", 'в': "v",
	'Г': "G", 'г': "g", 'Д': "D", 'д': "d", 'Е': "E", 'е': "e",
	'Ж': "J", 'ж': "j", 'З': "Z", 'з': "z", 'И': "I", 'и': "i",
	'Й': "Y", 'й': "y", 'К': "K", 'к': "k", 'Л': "L", 'л': "l",
	'М': "M", 'м': "m", 'Н': "N", 'н': "n", 'О': "O", 'о': "o",
	'П': "P", 'п': "p", 'Р': "R", 'р': "r", 'С': "S", 'с': "s",
	'Т': "T", 'т': "t", 'У': "U", 'у': "u", 'Ф': "F", 'ф': "f",
	'Х': "X", 'х': "x", 'Ц': "S", 'ц': "s", 'Ч': "Ch", 'ч': "ch",
	'Ш': "Sh", 'ш': "sh", 'Ъ': "’", 'ъ': "’", 'Ь': "", 'ь': "",
	'Э': "E", 'э': "e", 'Ю': "Yu", 'ю': "yu", 'Я': "Ya", 'я': "ya",
	'Ё': "Yo", 'ё': "yo", 'Қ': "Q", 'қ': "q", 'Ғ': "G‘", 'ғ': "g‘",
	'Ў': "O‘", 'ў': "o‘", 'Ҳ': "H", 'ҳ': "h",
}

// Canonicalize produces the comparison form of free text: NFKC-normalized,
// lowercased, apostrophe variants unified, punctuation replaced by spaces
// and whitespace collapsed. It is pure and idempotent.
func Canonicalize(s string) string {
	if s == "" {
		return ""
	}
	s = apostropheRe.ReplaceAllString(s, "’")
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	// o’/g’ are the common typed spellings of Uzbek o‘/g‘
	s = strings.ReplaceAll(s, "o’", "o‘")
	s = strings.ReplaceAll(s, "g’", "g‘")
	s = nonWordRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Transliterate maps Uzbek Cyrillic letters to Latin. The result is only an
// auxiliary matching candidate: transliterating Russian text this way
// corrupts Russian keywords, so the canonical form must always be kept
// alongside it.
func Transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if lat, ok := uzCyr2Lat[r]; ok {
			b.WriteString(lat)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DetectScript classifies which writing system the text uses. Letters
// unique to Uzbek Cyrillic distinguish it from generic Russian Cyrillic.
func DetectScript(s string) models.Script {
	if s == "" {
		return models.ScriptUnknown
	}
	ru := generalCyrillicRe.MatchString(s)
	uz := uzCyrillicRe.MatchString(s)
	lat := latinRe.MatchString(s)

	switch {
	case (ru || uz) && lat:
		return models.ScriptMixed
	case uz && !ru:
		return models.ScriptCyrillicUz
	case ru || uz:
		return models.ScriptCyrillicRu
	case lat:
		return models.ScriptLatin
	}
	return models.ScriptUnknown
}
