// Package intent classifies normalized inbound text into structured intents.
// Classification is a pure function of the text and a snapshot of the
// conversation state; it never fails, falling back to KindFallback for
// anything the rule tiers don't recognize.
package intent

// Kind tags the classified purpose of an inbound message.
type Kind string

const (
	KindShowMenu       Kind = "show_menu"
	KindRecommend      Kind = "recommend"
	KindReorder        Kind = "reorder"
	KindConfirm        Kind = "confirm"
	KindDeny           Kind = "deny"
	KindSelectCategory Kind = "select_category"
	KindOrderItem      Kind = "order_item"
	KindDietary        Kind = "dietary"
	KindFallback       Kind = "fallback"
	KindUnknown        Kind = "unknown"
)

// CategoryRef is a category candidate stored in the conversation context
// while the user is browsing.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// State is the snapshot of conversation state the classifier needs:
// whether a confirmation would resolve to anything, and the category
// candidates offered on a previous turn.
type State struct {
	HasPendingItem         bool
	AwaitingReorderConfirm bool
	Categories             []CategoryRef
}

// Intent is the classification result. Only the fields relevant to Kind
// are populated.
type Intent struct {
	Kind Kind

	// Category selection.
	CategoryID   int64
	CategoryName string

	// Item extraction: the canonical menu item name the alias resolved to,
	// and the verbatim modifier phrase found after the alias, if any.
	ItemName            string
	Quantity            int
	SpecialInstructions string

	// Dietary rule: the keyword that matched and the canned substitution.
	DietaryKeyword string
	SuggestedItem  string

	// Fallback: the full original text to forward to the completion service.
	Query string
}
