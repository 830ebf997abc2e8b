package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripAccents removes diacritic marks: "Guipúzcoa" becomes "Guipuzcoa".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CollapseSpaces reduces whitespace runs to single spaces and trims the ends.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Name canonicalizes a company name for identity matching: diacritics
// stripped, uppercased, whitespace collapsed.
func Name(s string) string {
	return CollapseSpaces(strings.ToUpper(StripAccents(s)))
}

// PersonName canonicalizes an officer's printed name: uppercased with
// collapsed whitespace. Diacritics are kept for display fidelity; unlike
// company names, people are not identity-matched across sightings beyond
// the event uniqueness key.
func PersonName(s string) string {
	return strings.ToUpper(CollapseSpaces(s))
}

// legalFormPatterns map name suffixes to legal-form codes. Longer forms come
// first so SLU wins over SL and SAU over SA; abbreviated forms come before
// the spelled-out ones.
var legalFormPatterns = []struct {
	re   *regexp.Regexp
	form string
}{
	{regexp.MustCompile(`\bS\.?L\.?U\.?\b`), "SLU"},
	{regexp.MustCompile(`\bS\.?L\.?L\.?\b`), "SLL"},
	{regexp.MustCompile(`\bS\.?L\.?\b`), "SL"},
	{regexp.MustCompile(`\bS\.?A\.?U\.?\b`), "SAU"},
	{regexp.MustCompile(`\bS\.?A\.?\b`), "SA"},
	{regexp.MustCompile(`\bS\.?C\.?O{0,2}P\.?\b`), "SCOOP"},
	{regexp.MustCompile(`\bS\.?C\.?\b`), "SC"},
	{regexp.MustCompile(`\bSOCIEDAD LIMITADA\b`), "SL"},
	{regexp.MustCompile(`\bSOCIEDAD ANONIMA\b`), "SA"},
	{regexp.MustCompile(`\bSOCIEDAD COOPERATIVA\b`), "SCOOP"},
	{regexp.MustCompile(`\bCOMUNIDAD DE BIENES\b`), "CB"},
	{regexp.MustCompile(`\bC\.?B\.?\b`), "CB"},
}

// LegalForm extracts the legal-form code from a company name suffix. The
// form is kept for display and classification only; the suffix stays part of
// the stored name. ok is false when no known form matches.
func LegalForm(name string) (string, bool) {
	upper := Name(name)
	for _, p := range legalFormPatterns {
		if p.re.MatchString(upper) {
			return p.form, true
		}
	}
	return "", false
}

var (
	// Trailing parenthesized province: "... MADRID (MADRID)."
	addressProvinceRe = regexp.MustCompile(`\(([A-ZÁÉÍÓÚÑ\s]+)\)\s*\.?\s*$`)

	// Locality before the province parenthetical: ", Alcobendas (MADRID)".
	addressLocalityRe = regexp.MustCompile(`[,\s]+([A-ZÁÉÍÓÚÑ][a-záéíóúñ\s]+)\s*\(`)
)

// ProvinceFromAddress extracts the trailing parenthesized province of a
// registered address. ok is false when the address carries none.
func ProvinceFromAddress(address string) (string, bool) {
	m := addressProvinceRe.FindStringSubmatch(strings.ToUpper(address))
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// LocalityFromAddress extracts the locality preceding the province
// parenthetical of a registered address.
func LocalityFromAddress(address string) (string, bool) {
	m := addressLocalityRe.FindStringSubmatch(address)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// ParseCivilDate parses gazette date strings like "15.01.25", "15/01/2025"
// or "15.01.2025" into ISO YYYY-MM-DD form. Two-digit years below 50 land in
// 20xx, the rest in 19xx. ok is false for anything unparseable.
func ParseCivilDate(raw string) (string, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), "/", ".")
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return "", false
	}

	day, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	month, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	year, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	if year < 100 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}

	// time.Date normalizes out-of-range components, so round-trip to reject
	// impossible dates.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return t.Format("2006-01-02"), true
}
