package domain

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleBot
}

// Message is a single chat bubble. It is never mutated after creation.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}
