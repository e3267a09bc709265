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

import "strings"

// dishExpansions maps generic dish categories to the concrete variants stored
// in the dish collections.
var dishExpansions = map[string][]string{
	// Indian
	"biryani":  {"Chicken Biryani", "Mutton Biryani", "Vegetable Biryani", "Hyderabadi Biryani"},
	"curry":    {"Chicken Curry", "Lamb Curry", "Vegetable Curry", "Butter Chicken"},
	"tandoori": {"Tandoori Chicken", "Tandoori Fish", "Tandoori Vegetables"},
	"naan":     {"Butter Naan", "Garlic Naan", "Plain Naan"},
	"dal":      {"Dal Makhani", "Dal Tadka", "Yellow Dal"},
	"samosa":   {"Vegetable Samosa", "Chicken Samosa"},
	"kebab":    {"Chicken Kebab", "Lamb Kebab", "Seekh Kebab"},

	// Italian
	"pizza":   {"Margherita Pizza", "Pepperoni Pizza", "Marinara Pizza", "Quattro Stagioni", "Bufalina Pizza", "New York Pizza", "Neapolitan Pizza", "Sicilian Pizza"},
	"pasta":   {"Spaghetti Carbonara", "Fettuccine Alfredo", "Penne Arrabbiata", "Lasagna"},
	"risotto": {"Mushroom Risotto", "Seafood Risotto", "Truffle Risotto"},
	"gnocchi": {"Potato Gnocchi", "Spinach Gnocchi"},
	"ravioli": {"Cheese Ravioli", "Spinach Ravioli", "Mushroom Ravioli"},

	// Chinese
	"dim sum": {"Har Gow", "Siu Mai", "Char Siu Bao", "Xiao Long Bao"},
	"noodles": {"Lo Mein", "Chow Mein", "Dan Dan Noodles"},
	"rice":    {"Fried Rice", "Steamed Rice", "Yangzhou Fried Rice"},
	"soup":    {"Hot and Sour Soup", "Wonton Soup", "Egg Drop Soup"},

	// American
	"burger":   {"Cheeseburger", "Bacon Burger", "Veggie Burger"},
	"sandwich": {"Club Sandwich", "BLT", "Turkey Sandwich"},
	"steak":    {"Ribeye Steak", "Filet Mignon", "Sirloin Steak"},
	"salad":    {"Caesar Salad", "Greek Salad", "Cobb Salad"},

	// Mexican
	"taco":       {"Beef Taco", "Chicken Taco", "Fish Taco", "Veggie Taco"},
	"burrito":    {"Beef Burrito", "Chicken Burrito", "Bean Burrito"},
	"enchilada":  {"Chicken Enchilada", "Beef Enchilada", "Cheese Enchilada"},
	"quesadilla": {"Chicken Quesadilla", "Cheese Quesadilla"},

	// Other
	"sushi":    {"California Roll", "Salmon Nigiri", "Spicy Tuna Roll"},
	"ramen":    {"Tonkotsu Ramen", "Miso Ramen", "Shoyu Ramen"},
	"pho":      {"Beef Pho", "Chicken Pho", "Vegetable Pho"},
	"pad thai": {"Chicken Pad Thai", "Shrimp Pad Thai", "Tofu Pad Thai"},
}

// ExpandDishName returns concrete variants for a generic dish category, or
// the dish itself when no expansion exists.
func ExpandDishName(dish string) []string {
	if dish == "" {
		return nil
	}
	if variants, ok := dishExpansions[strings.ToLower(strings.TrimSpace(dish))]; ok {
		return variants
	}
	return []string{dish}
}
