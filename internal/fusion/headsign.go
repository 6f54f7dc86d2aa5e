package fusion

import "strings"

// lowercaseParticles stay lowercase in a Title-Cased Spanish headsign,
// except when they open the string (§4.H Step 6).
var lowercaseParticles = map[string]bool{
	"de": true, "del": true, "la": true, "las": true, "los": true, "el": true,
	"y": true, "e": true, "o": true, "u": true, "a": true, "al": true,
	"en": true, "con": true, "por": true, "para": true, "sin": true,
	"sobre": true, "entre": true,
}

// titleCaseHeadsign Title-Cases an all-caps headsign, lowercasing Spanish
// grammatical particles outside the first word. Mixed-case input (already
// not all-caps) is returned unchanged.
func titleCaseHeadsign(headsign string) string {
	if headsign == "" || !isAllCaps(headsign) {
		return headsign
	}
	words := strings.Fields(strings.ToLower(headsign))
	for i, w := range words {
		if i > 0 && lowercaseParticles[w] {
			continue
		}
		words[i] = capitalizeFirst(w)
	}
	return strings.Join(words, " ")
}

func isAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if (r >= 'A' && r <= 'Z') || (r >= 'À' && r <= 'Ý') {
			hasLetter = true
		}
	}
	return hasLetter
}

func capitalizeFirst(w string) string {
	if w == "" {
		return w
	}
	r := []rune(w)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
