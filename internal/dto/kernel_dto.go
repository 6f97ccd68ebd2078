package dto

import "time"

type AskRequest struct {
	Question string `json:"question" validate:"required,max=20000"`
	Persona  string `json:"persona" validate:"max=64"`
}

// AskFrame is one websocket message on /ws/ask.
type AskFrame struct {
	Type string `json:"type"` // "status" | "route" | "token" | "done" | "error"
	Data string `json:"data"`
}

type UploadResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
}

type RequestCommandRequest struct {
	Question string `json:"question" validate:"required,max=8192"`
}

type RequestCommandResponse struct {
	Status   string    `json:"status"`
	Command  string    `json:"command"`
	StagedAt time.Time `json:"staged_at"`
}

type ApproveCommandResponse struct {
	Status     string `json:"status"`
	Command    string `json:"command"`
	Output     string `json:"output"`
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

type ExecuteRequest struct {
	Code     string `json:"code" validate:"required,max=200000"`
	Language string `json:"language" validate:"required,max=32"`
}

type ExecuteResponse struct {
	Status string `json:"status"`
	Output string `json:"output"`
	Kind   string `json:"kind"`
}

type CommitMemoryRequest struct {
	Question string `json:"question" validate:"required,max=50000"`
}

type WorkspaceFileResponse struct {
	Name         string    `json:"name"`
	PreviewChars int       `json:"preview_chars"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type WorkspaceResponse struct {
	Files          []WorkspaceFileResponse `json:"files"`
	PendingCommand *string                 `json:"pending_command"`
	Interactions   int64                   `json:"interactions"`
}

type PersonaResponse struct {
	Name string `json:"name"`
}
