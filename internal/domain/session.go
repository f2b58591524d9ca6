package domain

// Session is the authenticated user identity plus the bearer token used to
// authorize calls. Owned by the session store; everything else only reads it.
type Session struct {
	UserID   int64  `json:"user_id"`
	Token    string `json:"token"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}
