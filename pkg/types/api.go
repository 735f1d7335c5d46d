package types

// GenerateRequest is the shared payload for all task endpoints. Each endpoint
// reads its primary text from a different field; unrelated fields are ignored.
type GenerateRequest struct {
	// Question to answer (primary field for /debug-code).
	// example: Why does this throw a TypeError?
	Question string `json:"question,omitempty" example:"Why does this throw a TypeError?"`
	// Chat message (primary field for /chat).
	// example: How do I connect Express to MongoDB?
	Message string `json:"message,omitempty" example:"How do I connect Express to MongoDB?"`
	// Problem the student is stuck on (primary field for /get-hint).
	// example: How do I handle async errors in Express?
	Problem string `json:"problem,omitempty" example:"How do I handle async errors in Express?"`
	// Concept to explain (primary field for /explain-concept).
	// example: JWT authentication
	Concept string `json:"concept,omitempty" example:"JWT authentication"`
	// Feature to build (primary field for /project-guidance).
	// example: user login with sessions
	Feature string `json:"feature,omitempty" example:"user login with sessions"`
	// Code under discussion (primary field for /review-code and /generate-tests).
	Code string `json:"code,omitempty"`
	// Work-in-progress code attached to a hint request.
	CurrentCode string `json:"current_code,omitempty"`
	// Short description of what the code is, e.g. "Express API endpoint".
	Context string `json:"context,omitempty"`
	// What the code under test does, for /generate-tests.
	Functionality string `json:"functionality,omitempty"`
	// Student level for explanations: beginner, intermediate, advanced.
	// example: beginner
	Level string `json:"level,omitempty" example:"beginner"`
	// Test framework for /generate-tests.
	// example: jest
	Framework string `json:"framework,omitempty" example:"jest"`
	// Kind of project for /project-guidance.
	// example: MERN app
	ProjectType string `json:"project_type,omitempty" example:"MERN app"`
	// Free-text progress description for /project-guidance.
	Progress string `json:"progress,omitempty"`
	// Conversation identifier; defaults to "default".
	// example: student123
	SessionID string `json:"session_id,omitempty" example:"student123"`
	// Backend selector: local or remote. Defaults to the configured backend.
	// example: local
	Model string `json:"model,omitempty" example:"local"`
	// Requested token budget; clamped server-side to 1000.
	// example: 300
	MaxNewTokens int `json:"max_new_tokens,omitempty" example:"300"`
}

// GenerateResponse is the uniform reply of the non-streaming task endpoints.
type GenerateResponse struct {
	// Generated answer, or sentinel error text when the backend failed.
	Answer string `json:"answer"`
	// Task label, e.g. debug, review, hint.
	// example: debug
	TaskType string `json:"task_type" example:"debug"`
	// Session the exchange was recorded under.
	// example: student123
	SessionID string `json:"session_id" example:"student123"`
	// Backend that produced the answer.
	// example: local
	ModelUsed string `json:"model_used" example:"local"`
	// Wall-clock generation time in seconds, rounded to centiseconds.
	// example: 4.27
	TimeSeconds float64 `json:"time_seconds" example:"4.27"`
}

// Turn is one recorded message of a conversation.
type Turn struct {
	// Message author: user or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// Message text; may embed a code block.
	Content string `json:"content"`
	// Task tag the turn was recorded under (user turns only).
	// example: debug
	Task string `json:"task,omitempty" example:"debug"`
	// Creation instant in RFC 3339.
	// example: 2025-01-15T10:30:00Z
	Timestamp string `json:"timestamp" example:"2025-01-15T10:30:00Z"`
}

// HistoryResponse is returned by GET /history/{session_id}.
type HistoryResponse struct {
	SessionID    string `json:"session_id"`
	MessageCount int    `json:"message_count"`
	History      []Turn `json:"history"`
}

// DeleteResponse acknowledges DELETE /history/{session_id}.
type DeleteResponse struct {
	// example: history cleared for session student123
	Message string `json:"message"`
}

// SessionsResponse is returned by GET /sessions.
type SessionsResponse struct {
	ActiveSessions       []string `json:"active_sessions"`
	TotalSessions        int      `json:"total_sessions"`
	SessionsWithProjects int      `json:"sessions_with_projects"`
}

// FeatureRecord is one project-guidance interaction logged for a session.
type FeatureRecord struct {
	// example: user login with sessions
	Feature string `json:"feature"`
	// example: 2025-01-15T10:30:00Z
	Timestamp string `json:"timestamp"`
}

// ProgressResponse is returned by GET /progress/{session_id}. Task counts are
// read from the tags recorded on each Turn.
type ProgressResponse struct {
	SessionID         string          `json:"session_id"`
	TotalInteractions int             `json:"total_interactions"`
	TaskBreakdown     map[string]int  `json:"task_breakdown"`
	ProjectFeatures   []FeatureRecord `json:"project_features"`
	ProjectStarted    string          `json:"project_started,omitempty"`
	LastActivity      string          `json:"last_activity,omitempty"`
}

// BackendStatus describes one generation backend for GET /models.
type BackendStatus struct {
	// available or unavailable.
	// example: available
	Status string `json:"status" example:"available"`
}

// ModelsResponse is returned by GET /models.
type ModelsResponse struct {
	AvailableModels map[string]BackendStatus `json:"available_models"`
	// example: local
	DefaultModel string `json:"default_model" example:"local"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: missing 'question' field
	Error string `json:"error" example:"missing 'question' field"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
