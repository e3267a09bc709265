// Copyright 2025 SweetPick Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package query

import (
	"regexp"
	"strconv"
	"strings"
)

// intentPatterns pairs an intent with its ordered trigger patterns. The first
// pattern that matches wins; later intents are not tried. Ordering matters:
// restaurant_specific must beat the broad location_dish catch-alls.
type intentPattern struct {
	intent   Intent
	patterns []*regexp.Regexp
}

var intentPatterns = []intentPattern{
	{IntentRestaurantSpecific, compileAll(
		`i am at (.+)`,
		`i'm at (.+)`,
		`at (.+) restaurant`,
		`in (.+) restaurant`,
		`(.+) restaurant`,
		`restaurant (.+)`,
	)},
	{IntentLocationCuisine, compileAll(
		`in (.+) and.*(?:mood|want|looking).*?(?:eat|try|find).*?(italian|indian|chinese|american|mexican)`,
		`in (.+) for (.+) food`,
		`in (.+) craving (.+)`,
		`(.+) cuisine in (.+)`,
	)},
	{IntentLocationDish, compileAll(
		`in (.+) and.*?(?:mood|want|looking).*?(?:eat|try|find).*?([a-zA-Z\s]+(?:chicken biryani|vegetable biryani|chicken curry|pizza|pasta|burger|taco|sushi|pad thai|pho|ramen))`,
		`in (.+) for (.+)`,
		`in (.+) craving (.+)`,
		`best (.+) in (.+)`,
		`top (.+) in (.+)`,
		`show me the best (.+) in (.+)`,
		`(.+) in (.+)`,
	)},
	{IntentLocationGeneral, compileAll(
		`in (.+) and.*?(?:hungry|want|looking).*?(?:eat|food|restaurant)`,
		`in (.+) what.*?(?:eat|order)`,
		`in (.+) recommend`,
	)},
	{IntentMealPlanning, compileAll(
		`for (.+) in (.+)`,
		`(.+) time in (.+)`,
		`looking for (.+) in (.+)`,
	)},
	{IntentDeliveryTakeout, compileAll(
		`delivery.*in (.+)`,
		`takeout.*in (.+)`,
		`order.*from (.+)`,
	)},
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

var knownCities = []string{"jersey city", "hoboken", "manhattan", "new york", "nyc"}

var cityNormalization = map[string]string{
	"jersey city": "Jersey City",
	"hoboken":     "Hoboken",
	"manhattan":   "Manhattan",
	"new york":    "Manhattan",
	"nyc":         "Manhattan",
}

var cuisineKeywords = []struct{ key, name string }{
	{"italian", "Italian"},
	{"indian", "Indian"},
	{"chinese", "Chinese"},
	{"american", "American"},
	{"mexican", "Mexican"},
}

var (
	dishComboRe = regexp.MustCompile(`\b(chicken|mutton|lamb|paneer|vegetable|veg|egg)\s+(biryani|curry|korma|tikka masala|butter chicken|butter masala|saag|kebab|keema|karahi|bhuna|tikka)\b`)

	dishNamedRes = compileAll(
		`\b(chana masala|masala dosa|palak paneer|paneer tikka|chole bhature|dal makhani|malai kofta|aloo gobi)\b`,
		`\b(veg biryani|vegetable biryani|mutton biryani|chicken biryani|paneer biryani)\b`,
		`\b(tandoori chicken|chicken tikka)\b`,
	)

	dishGenericRes = compileAll(
		`\b(chicken curry|fish curry|mutton curry|dal|paneer|butter chicken|tikka masala)\b`,
		`\b(pizza|pasta|burger|sandwich|salad|soup|steak|ribs)\b`,
		`\b(tacos?|burrito|quesadilla|nachos)\b`,
		`\b(kung pao|sweet and sour|general tso|chow mein|lo mein|fried rice|chicken fried rice|egg fried rice)\b`,
	)
)

var mealTypeKeywords = []struct{ key, name string }{
	{"breakfast", "breakfast"},
	{"lunch", "lunch"},
	{"dinner", "dinner"},
	{"brunch", "brunch"},
	{"late night", "late-night"},
	{"late-night", "late-night"},
	{"snack", "snacks"},
	{"drinks", "drinks"},
	{"happy hour", "drinks"},
	{"cocktails", "drinks"},
}

var (
	priceDollarSignsRe = regexp.MustCompile(`\$(\$+)`)
	priceDollarsRe     = regexp.MustCompile(`(\d+)\s*dollars?`)
	priceBudgetRe      = regexp.MustCompile(`\b(cheap|budget|affordable)\b`)
	priceModerateRe    = regexp.MustCompile(`\b(reasonable|moderate|mid-range)\b`)
	priceUpscaleRe     = regexp.MustCompile(`\b(upscale|nice|fancy)\b`)
	priceFineRe        = regexp.MustCompile(`\b(expensive|fine dining|high-end|luxury)\b`)
)

var dietaryPatterns = []struct {
	re  *regexp.Regexp
	tag string
}{
	{regexp.MustCompile(`\b(vegetarian|veggie)\b`), "vegetarian"},
	{regexp.MustCompile(`\b(vegan)\b`), "vegan"},
	{regexp.MustCompile(`\b(gluten.free|gluten free)\b`), "gluten-free"},
	{regexp.MustCompile(`\b(halal)\b`), "halal"},
	{regexp.MustCompile(`\b(kosher)\b`), "kosher"},
	{regexp.MustCompile(`\b(keto|ketogenic)\b`), "keto"},
	{regexp.MustCompile(`\b(low.carb|low carb)\b`), "low-carb"},
	{regexp.MustCompile(`\b(dairy.free|dairy free|lactose.free)\b`), "dairy-free"},
	{regexp.MustCompile(`\b(nut.free|nut free)\b`), "nut-free"},
}

var featurePatterns = []struct {
	re  *regexp.Regexp
	tag string
}{
	{regexp.MustCompile(`\b(outdoor|outside|patio|terrace)\b`), "outdoor_seating"},
	{regexp.MustCompile(`\b(delivery|deliver)\b`), "delivery"},
	{regexp.MustCompile(`\b(takeout|take.out|pickup)\b`), "takeout"},
	{regexp.MustCompile(`\b(reservation|book|booking)\b`), "reservations"},
	{regexp.MustCompile(`\b(parking|park)\b`), "parking"},
	{regexp.MustCompile(`\b(live music|music|band)\b`), "live_music"},
	{regexp.MustCompile(`\b(bar|drinks|cocktails)\b`), "bar"},
	{regexp.MustCompile(`\b(kid.friendly|kids|family|children)\b`), "kid_friendly"},
	{regexp.MustCompile(`\b(romantic|date|intimate)\b`), "romantic"},
	{regexp.MustCompile(`\b(business|meeting|corporate)\b`), "business_dinner"},
	{regexp.MustCompile(`\b(casual|relaxed|laid.back)\b`), "casual"},
	{regexp.MustCompile(`\b(formal|upscale|elegant)\b`), "formal"},
	{regexp.MustCompile(`\b(pet.friendly|dog.friendly|pets)\b`), "pet_friendly"},
}

var timePatterns = compileAll(
	`\b(\d{1,2}:\d{2}\s*(?:am|pm)?)\b`,
	`\b(\d{1,2}\s*(?:am|pm))\b`,
	`\b(now|asap|immediately)\b`,
	`\b(tonight|today|tomorrow)\b`,
	`\b(lunch time|dinner time|breakfast time)\b`,
	`\b(early|late|around \d+)\b`,
)

var partyPatterns = compileAll(
	`\b(?:table for|party of|group of)\s*(\d+)\b`,
	`\b(\d+)\s*(?:people|person|ppl)\b`,
	`\b(two|three|four|five|six|seven|eight)\b`,
)

var numberWords = map[string]int{
	"two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8,
}

var (
	partyCoupleRe = regexp.MustCompile(`\b(date|couple|romantic)\b`)
	partyFamilyRe = regexp.MustCompile(`\b(family|kids)\b`)
)

// parseWithRegex is the no-LLM fallback: ordered intent patterns plus
// independent entity extractors, each with a fixed confidence.
func parseWithRegex(raw string) *ParsedQuery {
	lower := strings.ToLower(raw)

	result := &ParsedQuery{
		Intent:        IntentUnknown,
		Confidence:    map[string]float64{"overall": 0.5},
		OriginalQuery: raw,
	}

	if loc := extractCity(lower); loc != "" {
		result.Location = loc
		result.Confidence["location"] = 0.8
	}

	for _, ip := range intentPatterns {
		matched := false
		for _, re := range ip.patterns {
			m := re.FindStringSubmatch(lower)
			if m == nil {
				continue
			}
			result.Intent = ip.intent
			applyIntentGroups(result, ip.intent, m)
			matched = true
			break
		}
		if matched {
			break
		}
	}

	if result.CuisineType == "" {
		if cuisine := extractCuisine(lower); cuisine != "" {
			result.CuisineType = cuisine
			result.Confidence["cuisine_type"] = 0.8
		}
	}
	if result.DishName == "" {
		if dish := extractDish(lower); dish != "" {
			result.DishName = dish
			result.Confidence["dish_name"] = 0.7
		}
	}
	if result.MealType == "" {
		if meal := extractMealType(lower); meal != "" {
			result.MealType = meal
			result.Confidence["meal_type"] = 0.8
		}
	}
	if price := extractPriceRange(lower); price > 0 {
		result.PriceRange = price
		result.Confidence["price_range"] = 0.6
	}
	if dietary := extractDietaryRestrictions(lower); len(dietary) > 0 {
		result.DietaryRestrictions = dietary
		result.Confidence["dietary_restrictions"] = 0.8
	}
	if features := extractFeatures(lower); len(features) > 0 {
		result.Features = features
		result.Confidence["restaurant_features"] = 0.7
	}
	if timePref := extractTimePreference(lower); timePref != "" {
		result.TimePreference = timePref
		result.Confidence["time_preference"] = 0.7
	}
	if size := extractPartySize(lower); size > 0 {
		result.PartySize = size
		result.Confidence["party_size"] = 0.8
	}

	// Overall is the mean of the individual field confidences.
	sum, n := 0.0, 0
	for k, v := range result.Confidence {
		if k == "overall" {
			continue
		}
		sum += v
		n++
	}
	if n > 0 {
		result.Confidence["overall"] = sum / float64(n)
	}

	return result
}

// applyIntentGroups fills entities from the capture groups of the matched
// intent pattern, without clobbering an already extracted location.
func applyIntentGroups(result *ParsedQuery, intent Intent, m []string) {
	switch intent {
	case IntentRestaurantSpecific:
		result.RestaurantName = strings.TrimSpace(m[1])
		result.Confidence["restaurant_name"] = 0.7
	case IntentLocationCuisine:
		if result.Location == "" {
			result.Location = strings.TrimSpace(m[1])
			result.Confidence["location"] = 0.7
		}
		if len(m) > 2 {
			result.CuisineType = titleCase(strings.TrimSpace(m[2]))
			result.Confidence["cuisine_type"] = 0.8
		}
	case IntentLocationDish:
		if result.Location == "" {
			result.Location = strings.TrimSpace(m[1])
			result.Confidence["location"] = 0.7
		}
		if len(m) > 2 {
			result.DishName = strings.TrimSpace(m[2])
			result.Confidence["dish_name"] = 0.7
		}
	case IntentMealPlanning:
		if len(m) > 2 {
			if result.Location == "" {
				result.Location = strings.TrimSpace(m[2])
				result.Confidence["location"] = 0.7
			}
			result.MealType = strings.TrimSpace(m[1])
			result.Confidence["meal_type"] = 0.7
		} else if result.Location == "" {
			result.Location = strings.TrimSpace(m[1])
			result.Confidence["location"] = 0.7
		}
	}
}

func extractCity(lower string) string {
	for _, city := range knownCities {
		if strings.Contains(lower, city) {
			return normalizeCityName(city)
		}
	}
	return ""
}

func normalizeCityName(city string) string {
	if normalized, ok := cityNormalization[strings.ToLower(city)]; ok {
		return normalized
	}
	return titleCase(city)
}

func extractCuisine(lower string) string {
	for _, c := range cuisineKeywords {
		if strings.Contains(lower, c.key) {
			return c.name
		}
	}
	return ""
}

func extractDish(lower string) string {
	if m := dishComboRe.FindString(lower); m != "" {
		return titleCase(m)
	}
	for _, re := range dishNamedRes {
		if m := re.FindString(lower); m != "" {
			return titleCase(m)
		}
	}
	for _, re := range dishGenericRes {
		if m := re.FindString(lower); m != "" {
			return titleCase(m)
		}
	}
	return ""
}

func extractMealType(lower string) string {
	for _, m := range mealTypeKeywords {
		if strings.Contains(lower, m.key) {
			return m.name
		}
	}
	return ""
}

func extractPriceRange(lower string) int {
	if m := priceDollarSignsRe.FindStringSubmatch(lower); m != nil {
		return len(m[1]) + 1
	}
	if m := priceDollarsRe.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			tier := n / 15
			if tier < 1 {
				tier = 1
			}
			if tier > 4 {
				tier = 4
			}
			return tier
		}
	}
	switch {
	case priceBudgetRe.MatchString(lower):
		return 1
	case priceModerateRe.MatchString(lower):
		return 2
	case priceUpscaleRe.MatchString(lower):
		return 3
	case priceFineRe.MatchString(lower):
		return 4
	}
	return 0
}

func extractDietaryRestrictions(lower string) []string {
	var out []string
	for _, p := range dietaryPatterns {
		if p.re.MatchString(lower) {
			out = append(out, p.tag)
		}
	}
	return out
}

func extractFeatures(lower string) []string {
	var out []string
	for _, p := range featurePatterns {
		if p.re.MatchString(lower) {
			out = append(out, p.tag)
		}
	}
	return out
}

func extractTimePreference(lower string) string {
	for _, re := range timePatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			return strings.ToLower(m[1])
		}
	}
	return ""
}

func extractPartySize(lower string) int {
	for _, re := range partyPatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
		if n, ok := numberWords[strings.ToLower(m[1])]; ok {
			return n
		}
	}
	if partyCoupleRe.MatchString(lower) {
		return 2
	}
	if partyFamilyRe.MatchString(lower) {
		return 4
	}
	return 0
}

// titleCase uppercases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
