package intent_test

import (
	"testing"

	"github.com/garcom-bot/garcom/internal/intent"
)

func TestClassify_ExactCommands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		state intent.State
		want  intent.Kind
	}{
		{"menu", "menu", intent.State{}, intent.KindShowMenu},
		{"menu with punctuation", "Menu!", intent.State{}, intent.KindShowMenu},
		{"show menu", "show menu", intent.State{}, intent.KindShowMenu},
		{"menu wins over any state", "menu", intent.State{HasPendingItem: true}, intent.KindShowMenu},
		{"recommend", "recommend", intent.State{}, intent.KindRecommend},
		{"recommendations", "Recommendations", intent.State{}, intent.KindRecommend},
		{"reorder", "reorder", intent.State{}, intent.KindReorder},
		{"order again", "order again", intent.State{}, intent.KindReorder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := intent.Classify(tt.input, tt.state)
			if got.Kind != tt.want {
				t.Errorf("Classify(%q) kind = %q, want %q", tt.input, got.Kind, tt.want)
			}
		})
	}
}

func TestClassify_ConfirmDeny(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		state intent.State
		want  intent.Kind
	}{
		{"yes with pending item", "yes", intent.State{HasPendingItem: true}, intent.KindConfirm},
		{"sure with reorder pending", "sure", intent.State{AwaitingReorderConfirm: true}, intent.KindConfirm},
		{"ok with pending item", "OK", intent.State{HasPendingItem: true}, intent.KindConfirm},
		{"yes with nothing pending", "yes", intent.State{}, intent.KindUnknown},
		{"no with pending item", "no", intent.State{HasPendingItem: true}, intent.KindDeny},
		{"nope with reorder pending", "nope", intent.State{AwaitingReorderConfirm: true}, intent.KindDeny},
		{"no with nothing pending", "no", intent.State{}, intent.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := intent.Classify(tt.input, tt.state)
			if got.Kind != tt.want {
				t.Errorf("Classify(%q) kind = %q, want %q", tt.input, got.Kind, tt.want)
			}
		})
	}
}

func TestClassify_Dietary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		wantItem string
	}{
		{"vegan", "Grilled Veggie Bowl"},
		{"do you have anything keto", "Keto Chicken Plate"},
		{"I'm on a gluten free diet", "Gluten-Free Margherita"}, // leftmost keyword wins
		{"any diet options", "Garden Salad"},
		{"is the chicken halal", "Halal Chicken Shawarma"},
		{"something vegetarian please", "Veggie Burger"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got := intent.Classify(tt.input, intent.State{})
			if got.Kind != intent.KindDietary {
				t.Fatalf("Classify(%q) kind = %q, want %q", tt.input, got.Kind, intent.KindDietary)
			}
			if got.SuggestedItem != tt.wantItem {
				t.Errorf("Classify(%q) suggested = %q, want %q", tt.input, got.SuggestedItem, tt.wantItem)
			}
		})
	}
}

func TestClassify_CategorySelection(t *testing.T) {
	t.Parallel()

	categories := []intent.CategoryRef{
		{ID: 10, Name: "Burgers"},
		{ID: 20, Name: "Pizzas"},
	}

	tests := []struct {
		name   string
		input  string
		wantID int64
		wantOK bool
	}{
		{"by number", "2", 20, true},
		{"by name", "burgers", 10, true},
		{"number out of range", "9", 0, false},
		{"unknown name falls through", "sushi", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := intent.Classify(tt.input, intent.State{Categories: categories})
			if tt.wantOK {
				if got.Kind != intent.KindSelectCategory {
					t.Fatalf("Classify(%q) kind = %q, want %q", tt.input, got.Kind, intent.KindSelectCategory)
				}
				if got.CategoryID != tt.wantID {
					t.Errorf("Classify(%q) category = %d, want %d", tt.input, got.CategoryID, tt.wantID)
				}
			} else if got.Kind == intent.KindSelectCategory {
				t.Errorf("Classify(%q) unexpectedly selected category %d", tt.input, got.CategoryID)
			}
		})
	}
}

func TestClassify_ItemExtraction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		input            string
		wantItem         string
		wantInstructions string
	}{
		{"plain alias", "I'd like a cheeseburger", "Classic Cheeseburger", ""},
		{"longest alias wins", "one double bacon burger please", "Double Bacon Burger", ""},
		{"generic alias", "a burger", "Classic Cheeseburger", ""},
		{"negation instruction", "cheeseburger no pickles", "Classic Cheeseburger", "no pickles"},
		{"without instruction", "margherita pizza without basil", "Margherita Pizza", "without basil"},
		{"extra instruction", "fries extra crispy please", "French Fries", "extra crispy please"},
		{"alias casing", "One Pepperoni Pizza", "Pepperoni Pizza", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := intent.Classify(tt.input, intent.State{})
			if got.Kind != intent.KindOrderItem {
				t.Fatalf("Classify(%q) kind = %q, want %q", tt.input, got.Kind, intent.KindOrderItem)
			}
			if got.ItemName != tt.wantItem {
				t.Errorf("Classify(%q) item = %q, want %q", tt.input, got.ItemName, tt.wantItem)
			}
			if got.Quantity != 1 {
				t.Errorf("Classify(%q) quantity = %d, want 1", tt.input, got.Quantity)
			}
			if got.SpecialInstructions != tt.wantInstructions {
				t.Errorf("Classify(%q) instructions = %q, want %q", tt.input, got.SpecialInstructions, tt.wantInstructions)
			}
		})
	}
}

func TestClassify_Fallback(t *testing.T) {
	t.Parallel()

	input := "what wine pairs well with mushrooms?"
	got := intent.Classify(input, intent.State{})
	if got.Kind != intent.KindFallback {
		t.Fatalf("Classify(%q) kind = %q, want %q", input, got.Kind, intent.KindFallback)
	}
	if got.Query != input {
		t.Errorf("Classify(%q) query = %q, want original text", input, got.Query)
	}
}

func TestClassify_EmptyInput(t *testing.T) {
	t.Parallel()

	got := intent.Classify("   ", intent.State{})
	if got.Kind != intent.KindUnknown {
		t.Errorf("Classify(blank) kind = %q, want %q", got.Kind, intent.KindUnknown)
	}
}
