package wizard

import "regexp"

// Full names are a capitalized surname (optionally double, hyphen or space
// joined) followed by one or two single-letter initials, each with an
// optional period: "Иванов И.И.", "Иванов-Петров И. И.".
var fullNameRE = regexp.MustCompile(`^[А-ЯЁA-Z][а-яёa-z]+(?:[- ][А-ЯЁA-Z][а-яёa-z]+)?\s+[А-ЯЁA-Z]\.?\s*[А-ЯЁA-Z]\.?$`)

// ValidFullName reports whether s matches the required surname+initials form.
func ValidFullName(s string) bool {
	return fullNameRE.MatchString(s)
}
