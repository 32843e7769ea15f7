package models

// Role identifies who authored a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one message in a session's conversation.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserTurn and NewAssistantTurn are shorthands used by the orchestrator.
func NewUserTurn(content string) ChatTurn {
	return ChatTurn{Role: RoleUser, Content: content}
}

func NewAssistantTurn(content string) ChatTurn {
	return ChatTurn{Role: RoleAssistant, Content: content}
}
