// Package hotkey turns global keyboard events into canonical key strings,
// dispatches bound keys to playback and captures single keys for binding.
package hotkey

import (
	"strings"
	"unicode/utf8"
)

// SpecialPrefix marks named non-character keys, e.g. "Key.f1".
const SpecialPrefix = "Key."

// Canonicalize converts a raw key name to the form stored in bindings.
//
//	"'a'"     -> "a"
//	"F1"      -> "Key.f1"
//	"Key.F1"  -> "Key.f1"
//	"<65>"    -> "<65>"
//	"' '"     -> "Key.space"
//
// Single characters are kept as they are, case included. Canonicalize is
// idempotent and returns "" for blank input.
func Canonicalize(raw string) string {
	s := unquote(strings.TrimSpace(raw))
	if name, ok := whitespaceKeys[s]; ok {
		return name
	}
	if s == "" {
		return ""
	}

	if rest, ok := strings.CutPrefix(s, SpecialPrefix); ok && rest != "" {
		return SpecialPrefix + strings.ToLower(rest)
	}
	if isVirtualCode(s) {
		return s
	}
	if utf8.RuneCountInString(s) == 1 {
		return s
	}
	return SpecialPrefix + strings.ToLower(strings.ReplaceAll(s, " ", "_"))
}

// whitespaceKeys names quoted whitespace characters, which would otherwise
// be lost to trimming on the next pass.
var whitespaceKeys = map[string]string{
	" ":  SpecialPrefix + "space",
	"\t": SpecialPrefix + "tab",
	"\n": SpecialPrefix + "enter",
	"\r": SpecialPrefix + "enter",
}

func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if first == last && (first == '\'' || first == '"') {
		return s[1 : len(s)-1]
	}
	return s
}

// isVirtualCode matches "<NN>" style codes for keys without a name.
func isVirtualCode(s string) bool {
	if len(s) < 3 || s[0] != '<' || s[len(s)-1] != '>' {
		return false
	}
	for _, c := range s[1 : len(s)-1] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
