package domain

import "time"

// Session represents a chat session
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message represents a chat message
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRequest is the request to ask the assistant a question
type ChatRequest struct {
	SessionID string      `json:"session_id,omitempty"`
	Message   string      `json:"message" binding:"required"`
	Language  string      `json:"language,omitempty"`
	Context   UserContext `json:"context"`
}

// ChatResponse is the response from an assistant question
type ChatResponse struct {
	SessionID string `json:"session_id"`
	QueryResult
}

// Stats represents system statistics
type Stats struct {
	TotalDocuments int `json:"total_documents"`
	TotalChunks    int `json:"total_chunks"`
	TotalSessions  int `json:"total_sessions"`
	TotalChats     int `json:"total_chats"`
}
