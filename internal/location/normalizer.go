// Package location turns free-form "city[,country]" strings into canonical
// keys and cleans up suggestion lists for autocomplete.
package location

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ISO converts the country part of "city[,country]" into its ISO2 code using
// the bundled tables.
func ISO(location string) string {
	return Default().ISO(location)
}

// ISO converts "Zurich, Switzerland" into "Zurich,CH". Anything it does not
// recognise comes back trimmed but otherwise untouched.
func (t *Tables) ISO(location string) string {
	city, country, found := strings.Cut(location, ",")
	if !found {
		return strings.TrimSpace(city)
	}
	city = strings.TrimSpace(city)
	if code, ok := t.CountryCode(country); ok {
		return city + "," + code
	}
	return strings.TrimSpace(location)
}

// Beautify renders a stored key for display: "abu dhabi, ae" -> "Abu Dhabi, AE".
func Beautify(location string) string {
	city, country := splitLast(location)

	words := strings.Fields(city)
	for i, w := range words {
		words[i] = upperFirst(w)
	}
	pretty := strings.Join(words, " ")

	switch n := utf8.RuneCountInString(country); {
	case n == 0:
		return pretty
	case n == 2:
		return pretty + ", " + strings.ToUpper(country)
	default:
		return pretty + ", " + upperFirst(country)
	}
}

// Normalize collapses suggestions that refer to the same city into a single
// representative, keeping the order in which cities first appear.
func Normalize(suggestions []string) []string {
	order := make([]string, 0, len(suggestions))
	best := make(map[string]string, len(suggestions))

	for _, s := range suggestions {
		city, _ := splitLast(s)
		key := strings.ToLower(city)
		current, seen := best[key]
		if !seen {
			order = append(order, key)
			best[key] = s
			continue
		}
		if preferred(s, current) {
			best[key] = s
		}
	}

	out := make([]string, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

// preferred reports whether candidate should replace current. Ties keep the
// earlier one.
func preferred(candidate, current string) bool {
	if a, b := startsUpper(candidate), startsUpper(current); a != b {
		return a
	}
	if a, b := strings.Contains(candidate, ","), strings.Contains(current, ","); a != b {
		return a
	}
	if a, b := endsUpper(candidate), endsUpper(current); a != b {
		return a
	}
	return false
}

// splitLast splits on the last comma and trims both halves.
func splitLast(location string) (city, country string) {
	i := strings.LastIndex(location, ",")
	if i < 0 {
		return strings.TrimSpace(location), ""
	}
	return strings.TrimSpace(location[:i]), strings.TrimSpace(location[i+1:])
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func endsUpper(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsUpper(r)
}
