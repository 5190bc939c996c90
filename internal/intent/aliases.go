package intent

// alias maps a spoken phrase to the canonical menu item name. The table
// order is the tie-break when two aliases of equal length match the same
// text; the order is deliberate and locked in by tests.
type alias struct {
	Phrase string
	Item   string
}

// itemAliases is the curated list scanned by the free-text extraction
// tier. Longest matching phrase wins; canonical names are included as
// their own aliases.
var itemAliases = []alias{
	{"double bacon burger", "Double Bacon Burger"},
	{"classic cheeseburger", "Classic Cheeseburger"},
	{"crispy chicken burger", "Crispy Chicken Burger"},
	{"chicken burger", "Crispy Chicken Burger"},
	{"veggie burger", "Veggie Burger"},
	{"cheeseburger", "Classic Cheeseburger"},
	{"bacon burger", "Double Bacon Burger"},
	{"burger", "Classic Cheeseburger"},
	{"gluten-free margherita", "Gluten-Free Margherita"},
	{"gluten free margherita", "Gluten-Free Margherita"},
	{"margherita pizza", "Margherita Pizza"},
	{"margherita", "Margherita Pizza"},
	{"pepperoni pizza", "Pepperoni Pizza"},
	{"pepperoni", "Pepperoni Pizza"},
	{"four cheese pizza", "Four Cheese Pizza"},
	{"four cheese", "Four Cheese Pizza"},
	{"pizza", "Margherita Pizza"},
	{"caesar salad", "Caesar Salad"},
	{"garden salad", "Garden Salad"},
	{"salad", "Garden Salad"},
	{"grilled veggie bowl", "Grilled Veggie Bowl"},
	{"veggie bowl", "Grilled Veggie Bowl"},
	{"keto chicken plate", "Keto Chicken Plate"},
	{"chicken plate", "Keto Chicken Plate"},
	{"chicken shawarma", "Halal Chicken Shawarma"},
	{"shawarma", "Halal Chicken Shawarma"},
	{"sweet potato fries", "Sweet Potato Fries"},
	{"french fries", "French Fries"},
	{"fries", "French Fries"},
	{"onion rings", "Onion Rings"},
	{"lemonade", "Fresh Lemonade"},
	{"iced tea", "Iced Tea"},
	{"water", "Mineral Water"},
	{"brownie", "Chocolate Brownie"},
	{"cheesecake", "Cheesecake"},
}

// dietarySubstitutions maps a dietary keyword to the canned menu
// substitution recommended for it.
var dietarySubstitutions = map[string]string{
	"keto":       "Keto Chicken Plate",
	"diet":       "Garden Salad",
	"vegetarian": "Veggie Burger",
	"vegan":      "Grilled Veggie Bowl",
	"gluten":     "Gluten-Free Margherita",
	"halal":      "Halal Chicken Shawarma",
}

// modifierPrefixes are scanned, in order, in the text remaining after the
// matched alias; the first occurrence starts the special-instructions
// phrase, which runs verbatim to the end of the text.
var modifierPrefixes = []string{
	"no ",
	"without ",
	"extra ",
	"add ",
	"less ",
	"on the side",
}
