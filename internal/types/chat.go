package types

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatThread struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime;index" json:"updated_at"`
}

func (ChatThread) TableName() string { return "chat_threads" }

// ChatMessage belongs to exactly one thread and is cascade-deleted with it.
// Sources is the assistant-only snapshot of the citations used for the turn,
// so history review reproduces exactly what was cited.
type ChatMessage struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ThreadID  int64          `gorm:"column:thread_id;not null;index" json:"thread_id"`
	Thread    *ChatThread    `gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE" json:"-"`
	Role      string         `gorm:"column:role;not null" json:"role"`
	Content   string         `gorm:"column:content;not null" json:"content"`
	Sources   datatypes.JSON `gorm:"column:sources" json:"sources,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

// SourceRef is one provenance citation as persisted on an assistant message
// and returned in chat responses.
type SourceRef struct {
	ID   int64  `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Usage is token accounting for one generation call. Fields default to zero
// when the provider omits usage metadata, never to null.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
