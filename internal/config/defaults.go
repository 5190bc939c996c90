package config

import "time"

// Default values for optional configuration parameters.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	DefaultGeminiModel       = "gemini-2.0-flash"
	DefaultGeminiTemperature = 1.0
	DefaultGeminiMaxRetries  = 2
	DefaultGeminiRetryDelay  = 2 * time.Second
	DefaultGeminiTimeout     = 2 * time.Minute

	DefaultDBPath = "garcom.db"

	DefaultHistoryLimit     = 10               // Messages of context sent to the AI fallback
	DefaultChunkLimit       = 1900             // Outbound message fragment ceiling
	DefaultChunkDelay       = 1 * time.Second  // Pause between chunks for channel rate limits
	DefaultCacheTTL         = 30 * time.Minute // Conversation cache entry lifetime
	DefaultReorderRecency   = 14 * 24 * time.Hour
	DefaultDeliveryFeeCents = 500
	DefaultStaleOrderAge    = 24 * time.Hour

	DefaultInstagramListenAddr   = ":8080"
	DefaultInstagramGraphBaseURL = "https://graph.facebook.com/v19.0"
)

// DefaultGeminiInstruction is the system instruction for the free-text
// culinary fallback.
const DefaultGeminiInstruction = "You are a friendly restaurant ordering assistant. " +
	"Answer culinary questions briefly, suggest dishes from the menu when relevant, " +
	"and keep replies under three short paragraphs."

// DefaultMessages holds the default user-facing message templates.
var DefaultMessages = MessagesConfig{
	Welcome:       "👋 Welcome! Type \"menu\" to browse, \"recommend\" for suggestions, or just tell me what you're craving.",
	WelcomeBack:   "👋 Welcome back! %s\nType \"menu\" to browse or \"reorder\" to repeat a previous order.",
	Unknown:       "🤔 I didn't catch that. Try \"menu\" to browse, \"recommend\" for suggestions, or name a dish to order it.",
	GeneralError:  "❌ Something went wrong. Please try again.",
	AIError:       "🤖 Sorry, I couldn't think of an answer right now. Please try again in a moment.",
	Denied:        "👍 No problem. Type \"menu\" whenever you want to browse.",
	NotFound:      "😕 I couldn't find that. Try \"menu\" to see what's available.",
	ItemNotFound:  "😕 I couldn't find that item on the menu.",
	NoRecentOrder: "📭 I couldn't find a recent order to repeat. Type \"menu\" to start a new one.",
}
