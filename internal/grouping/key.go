package grouping

import (
	"regexp"
	"strconv"
	"strings"
)

// Titles mix Serbian and English vocabulary, so the token tables below carry both.

var (
	// dosage must be a number immediately followed by a unit
	dosagePattern = regexp.MustCompile(`\b(\d+(?:[.,]\d+)?)\s*(mg|mcg|μg|µg|iu|i\.u\.|i\.j\.|ij|ml|l|g)\b`)

	// package counts: "30 tableta", "60 caps", "a30", "x30"
	quantityPattern       = regexp.MustCompile(`\b[ax]?(\d+)\s*(mikrotablet|mikrokapsul|tab|tabl|tableta|tablete|kaps|kapsula|kapsule|caps|capsule|softgel|gel|komada|kom)\w*\b`)
	quantitySuffixPattern = regexp.MustCompile(`\b[ax](\d+)\b`)

	alphaNumPattern = regexp.MustCompile(`^\d+[a-z]+$|^[a-z]+\d+$`)
)

var skipWords = map[string]bool{
	"a": true, "za": true, "i": true, "sa": true, "od": true, "u": true,
	"the": true, "of": true, "with": true, "and": true, "for": true,
	"kapsule": true, "kapsula": true, "tablete": true, "tableta": true,
	"mikrotablete": true, "mikrotableta": true, "mikrokapsule": true,
	"softgel": true, "soft": true, "gel": true, "caps": true, "tab": true, "tbl": true,
	"iu": true, "mg": true, "ml": true, "mcg": true, "g": true,
	"sprej": true, "oral": true, "kapi": true, "sirup": true,
}

var brandWords = map[string]bool{
	"esi": true, "now": true, "vitabiotics": true, "terranova": true,
	"bivits": true, "activa": true, "masterteh": true, "multi": true,
	"essence": true, "food": true, "ultra": true, "plus": true,
	"detrical": true, "videtril": true, "nutrition": true,
}

var titleNoise = []string{"®", "™", "©", ",", "(", ")", "[", "]", "/", "\\", "_", "-", "–", "—"}

// KeyParts is the decomposition of one title used to build cluster keys.
type KeyParts struct {
	Ingredient string // first meaningful words, brand and filler stripped
	Dosage     string // normalized "amount unit", e.g. "2000 iu"
	Quantity   string // package count, e.g. "30"
	Brand      string // first recognized brand token, if any
}

// DosageUnit returns the normalized unit half of the dosage ("mg", "iu", ...)
// or "" when the title carried no dosage.
func (p KeyParts) DosageUnit() string {
	fields := strings.Fields(p.Dosage)
	if len(fields) != 2 {
		return ""
	}
	return fields[1]
}

// ExtractKeyParts decomposes a raw vendor title. Deterministic: the same title
// always yields the same parts.
func ExtractKeyParts(title string) KeyParts {
	t := strings.ToLower(title)
	for _, n := range titleNoise {
		t = strings.ReplaceAll(t, n, " ")
	}
	t = strings.Join(strings.Fields(t), " ")

	parts := KeyParts{}

	dosageMatch := ""
	if match := dosagePattern.FindStringSubmatch(t); len(match) >= 3 {
		amount := match[1]
		unit := strings.ToLower(match[2])
		dosageMatch = match[0]
		switch unit {
		case "i.u.", "i.j.", "ij":
			unit = "iu"
		case "μg", "µg":
			unit = "mcg"
		}
		parts.Dosage = amount + " " + unit
	}

	quantityMatch := ""
	if match := quantityPattern.FindStringSubmatch(t); len(match) >= 2 {
		parts.Quantity = match[1]
		quantityMatch = match[0]
	} else if match := quantitySuffixPattern.FindStringSubmatch(t); len(match) >= 2 {
		parts.Quantity = match[1]
		quantityMatch = match[0]
	}

	// strip what we already extracted so it cannot leak into the ingredient
	ingredientPart := t
	if dosageMatch != "" {
		ingredientPart = strings.Replace(ingredientPart, dosageMatch, " ", 1)
	}
	if quantityMatch != "" {
		ingredientPart = strings.Replace(ingredientPart, quantityMatch, " ", 1)
	}

	coreWords := make([]string, 0, 4)
	for _, w := range strings.Fields(ingredientPart) {
		if skipWords[w] {
			continue
		}
		if brandWords[w] {
			if parts.Brand == "" {
				parts.Brand = w
			}
			continue
		}

		// "omega 3", "vitamin d3" and "vitamin b12" keep their trailing token;
		// standalone numbers and codes like "a30" are packaging noise
		isAfterVitaminOrOmega := len(coreWords) > 0 &&
			(coreWords[len(coreWords)-1] == "vitamin" || coreWords[len(coreWords)-1] == "omega")

		if _, err := strconv.Atoi(w); err == nil && !isAfterVitaminOrOmega {
			continue
		}
		if alphaNumPattern.MatchString(w) && !(isAfterVitaminOrOmega && len(w) <= 3) {
			continue
		}
		if len(w) < 2 && !isAfterVitaminOrOmega {
			continue
		}

		coreWords = append(coreWords, w)
		if len(coreWords) >= 3 {
			break
		}
	}

	parts.Ingredient = strings.Join(coreWords, " ")
	if parts.Ingredient == "" {
		// unparseable title: fall back to a prefix of the cleaned text
		if len(t) > 30 {
			parts.Ingredient = t[:30]
		} else {
			parts.Ingredient = t
		}
	}
	return parts
}

// LooseKey is the display-grouping key: ingredient words only, dosage and
// package size stripped.
func LooseKey(title string) string {
	return ExtractKeyParts(title).Ingredient
}

// StrictKey is the price-comparison key: ingredient plus dosage plus package
// count, since a 30-pack and a 90-pack are not price-comparable.
func StrictKey(title string) string {
	parts := ExtractKeyParts(title)
	segments := []string{parts.Ingredient}
	if parts.Dosage != "" {
		segments = append(segments, parts.Dosage)
	}
	if parts.Quantity != "" {
		segments = append(segments, "x"+parts.Quantity)
	}
	return strings.Join(segments, " ")
}

// clusterKey builds the cluster identity for the requested mode.
func clusterKey(parts KeyParts, mode Mode) string {
	switch mode {
	case ModeStrict:
		segments := []string{parts.Ingredient}
		if parts.Brand != "" {
			segments = append(segments, "brand:"+parts.Brand)
		}
		if parts.Dosage != "" {
			segments = append(segments, parts.Dosage)
		}
		if parts.Quantity != "" {
			segments = append(segments, "x"+parts.Quantity)
		}
		return strings.Join(segments, " ")
	case ModeLoose:
		return parts.Ingredient
	default: // ModeNormal
		if parts.Dosage != "" {
			return parts.Ingredient + " " + parts.Dosage
		}
		return parts.Ingredient
	}
}
