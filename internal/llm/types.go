package llm

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParams overrides per-request options of a Client.
type ChatParams struct {
	// Model replaces the client's default model when set.
	Model string
	// MaxTokens caps the reply length; 0 leaves it to the server.
	MaxTokens int
}

// Summary is the structured description of one source file.
type Summary struct {
	Language string   `json:"programming_language"`
	Goals    []string `json:"goals"`
}
