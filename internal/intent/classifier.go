package intent

import (
	"regexp"
	"strconv"
	"strings"
)

var dietaryRe = regexp.MustCompile(`\b(keto|diet|vegetarian|vegan|gluten|halal)\b`)

// exactCommands is the first precedence tier: whole-message commands.
var exactCommands = map[string]Kind{
	"menu":            KindShowMenu,
	"show menu":       KindShowMenu,
	"recommend":       KindRecommend,
	"recommendations": KindRecommend,
	"reorder":         KindReorder,
	"order again":     KindReorder,
}

var confirmTokens = map[string]bool{"yes": true, "sure": true, "ok": true}
var denyTokens = map[string]bool{"no": true, "nope": true}

// Normalize lowercases, trims, strips trailing punctuation, and collapses
// internal whitespace.
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.TrimRight(text, ".!?")
	return strings.Join(strings.Fields(text), " ")
}

// Classify routes normalized text to an intent. Precedence, first match
// wins: exact commands, confirm/deny tokens, dietary keywords, category
// selection against the stored candidates, free-text item extraction,
// then the generative fallback. It never returns an error; bare
// confirmations with nothing to confirm come back as KindUnknown.
func Classify(text string, st State) Intent {
	norm := Normalize(text)
	if norm == "" {
		return Intent{Kind: KindUnknown}
	}

	if kind, ok := exactCommands[norm]; ok {
		return Intent{Kind: kind}
	}

	if confirmTokens[norm] {
		if st.HasPendingItem || st.AwaitingReorderConfirm {
			return Intent{Kind: KindConfirm}
		}
		return Intent{Kind: KindUnknown}
	}
	if denyTokens[norm] {
		if st.HasPendingItem || st.AwaitingReorderConfirm {
			return Intent{Kind: KindDeny}
		}
		return Intent{Kind: KindUnknown}
	}

	if m := dietaryRe.FindString(norm); m != "" {
		return Intent{
			Kind:           KindDietary,
			DietaryKeyword: m,
			SuggestedItem:  dietarySubstitutions[m],
		}
	}

	if cat, ok := matchCategory(norm, st.Categories); ok {
		return Intent{Kind: KindSelectCategory, CategoryID: cat.ID, CategoryName: cat.Name}
	}

	if it, ok := extractItem(norm); ok {
		return it
	}

	return Intent{Kind: KindFallback, Query: text}
}

// matchCategory resolves a category selection by 1-based position or by
// name against the candidates stored during browsing.
func matchCategory(norm string, categories []CategoryRef) (CategoryRef, bool) {
	if len(categories) == 0 {
		return CategoryRef{}, false
	}

	if n, err := strconv.Atoi(norm); err == nil {
		if n >= 1 && n <= len(categories) {
			return categories[n-1], true
		}
		return CategoryRef{}, false
	}

	for _, c := range categories {
		if strings.ToLower(c.Name) == norm {
			return c, true
		}
	}
	return CategoryRef{}, false
}

// extractItem scans the curated alias table for substring matches. The
// longest matching alias wins; equal lengths resolve by table order.
func extractItem(norm string) (Intent, bool) {
	best := -1
	bestLen := 0
	for i, a := range itemAliases {
		if strings.Contains(norm, a.Phrase) && len(a.Phrase) > bestLen {
			best = i
			bestLen = len(a.Phrase)
		}
	}
	if best < 0 {
		return Intent{}, false
	}

	matched := itemAliases[best]
	remainder := strings.Replace(norm, matched.Phrase, "", 1)

	return Intent{
		Kind:                KindOrderItem,
		ItemName:            matched.Item,
		Quantity:            1,
		SpecialInstructions: extractInstructions(remainder),
	}, true
}

// SuggestedMenuItem reports whether free text mentions a known menu
// item, returning its canonical name. The engine uses it to arm a
// pending item when a generative reply recommends a dish.
func SuggestedMenuItem(text string) (string, bool) {
	it, ok := extractItem(Normalize(text))
	if !ok {
		return "", false
	}
	return it.ItemName, true
}

// extractInstructions returns the first modifier phrase in the remainder
// and everything after it, verbatim.
func extractInstructions(remainder string) string {
	firstIdx := -1
	for _, prefix := range modifierPrefixes {
		if idx := strings.Index(remainder, prefix); idx >= 0 && (firstIdx < 0 || idx < firstIdx) {
			firstIdx = idx
		}
	}
	if firstIdx < 0 {
		return ""
	}
	return strings.TrimSpace(remainder[firstIdx:])
}
