// Package types defines the shared types used across all HanTube packages.
//
// These types form the lingua franca between providers and the analysis,
// transcript, and vocabulary layers. They are intentionally minimal — each
// package defines its own domain types, but cross-cutting data structures
// live here to avoid circular imports.
package types

// Message represents a single message in an LLM conversation history.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// ModelCapabilities describes what an LLM model supports.
type ModelCapabilities struct {
	// ContextWindow is the maximum token count for input + output.
	ContextWindow int

	// MaxOutputTokens is the maximum tokens the model can generate in one completion.
	MaxOutputTokens int

	// SupportsStreaming indicates the model supports streaming completions.
	SupportsStreaming bool
}
