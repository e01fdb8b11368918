package chat

// Space is a Chat space the user is a member of.
type Space struct {
	// Name is the resource name, "spaces/{space}".
	Name string `json:"name"`

	// DisplayName is the human-readable space name. Direct message spaces
	// have none.
	DisplayName string `json:"displayName"`
}

// Message is one message in a space.
type Message struct {
	// Author is the sender's display name, or "Unknown" when the sender
	// carries none.
	Author string `json:"author"`

	// Text is the plain-text body. System messages may have none.
	Text string `json:"text"`

	// CreateTime is the RFC 3339 creation timestamp as reported by the
	// API.
	CreateTime string `json:"createTime"`
}
