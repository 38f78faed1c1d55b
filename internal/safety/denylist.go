package safety

// Keyword is a denylisted substring and the category it belongs to.
type Keyword struct {
	Word     string
	Category string // "violence", "sexual", "drugs", "hate", "medical", "brand", "hazard", "custom"
}

// DefaultDenylist returns the built-in unsafe keywords in match priority order.
// Matching is a case-insensitive substring test, so false positives on harmless
// product copy ("software" contains "war") are expected.
func DefaultDenylist() []Keyword {
	var out []Keyword
	add := func(category string, words ...string) {
		for _, w := range words {
			out = append(out, Keyword{Word: w, Category: category})
		}
	}

	add("violence", "weapon", "gun", "knife", "sword", "violence", "blood", "death", "kill", "murder",
		"war", "battle", "fight", "attack", "assault", "bomb", "explosive")
	add("sexual", "nude", "naked", "sex", "sexual", "porn", "adult", "erotic", "intimate",
		"breast", "genitals", "underwear", "lingerie")
	add("drugs", "drug", "cocaine", "heroin", "marijuana", "cannabis", "alcohol", "beer", "wine",
		"cigarette", "smoking", "tobacco")
	add("hate", "racist", "discrimination", "hate", "nazi", "terrorist")
	add("medical", "medical", "cure", "treatment", "diagnosis", "medicine", "prescription")
	add("brand", "disney", "marvel", "superman", "batman", "mickey mouse", "coca cola",
		"nike", "adidas", "apple logo", "google", "facebook")
	add("hazard", "accident", "crash", "fire", "burning", "dangerous", "hazard")

	return out
}
