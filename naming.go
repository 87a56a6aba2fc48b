package vcschema

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	pascalRe     = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)
	wordSepRe    = regexp.MustCompile(`[\s\-_]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// ToPascalCase derives the credential type name from a schema title.
// Input that is already PascalCase is returned unchanged.
//
//	ToPascalCase("university degree") == "UniversityDegree"
//	ToPascalCase("my_field-name") == "MyFieldName"
func ToPascalCase(s string) string {
	if pascalRe.MatchString(s) {
		return s
	}
	var b strings.Builder
	for _, w := range wordSepRe.Split(s, -1) {
		if w == "" {
			continue
		}
		r, n := utf8.DecodeRuneInString(w)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(strings.ToLower(w[n:]))
	}
	return b.String()
}

// KeyFromTitle derives a field key from its display title: lowercase, with
// whitespace runs replaced by an underscore.
func KeyFromTitle(title string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(title), "_")
}
