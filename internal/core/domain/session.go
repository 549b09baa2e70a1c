package domain

import "time"

// Turn is one completed question/answer exchange within a session.
type Turn struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	Question  string     `json:"question"`
	Answer    string     `json:"answer"`
	Note      string     `json:"note,omitempty"`
	Citations []Citation `json:"citations"`
	CreatedAt time.Time  `json:"created_at"`
}

// Session is a client-scoped conversation thread. Turns are stored in
// append order, which is completion order for the tasks that produced them.
type Session struct {
	ID        string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
