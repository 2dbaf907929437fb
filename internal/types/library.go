package types

import (
	"time"
)

// Tag is a user-defined label for scoping retrieval to a subset of records.
// Deleting a tag never deletes tagged records; their tag_id is nulled out.
type Tag struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Tag) TableName() string { return "tags" }

// Transcript is a saved reel/video transcript. Embedding is nil until the
// background indexer has run; the record is listed either way but only
// retrievable once indexed.
type Transcript struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	URL        string    `gorm:"column:url;not null" json:"url"`
	Transcript string    `gorm:"column:transcript;not null" json:"transcript"`
	Summary    string    `gorm:"column:summary;not null" json:"summary"`
	Embedding  *string   `gorm:"column:embedding" json:"embedding,omitempty"`
	TagID      *int64    `gorm:"column:tag_id;index" json:"tag_id"`
	Tag        *Tag      `gorm:"foreignKey:TagID;constraint:OnDelete:SET NULL" json:"-"`
	Cost       *string   `gorm:"column:cost" json:"cost,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (Transcript) TableName() string { return "saved_transcripts" }

// Document is an uploaded text document (content already extracted).
type Document struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Filename  string    `gorm:"column:filename;not null" json:"filename"`
	Type      string    `gorm:"column:type;not null" json:"type"`
	Content   string    `gorm:"column:content;not null" json:"content"`
	Embedding *string   `gorm:"column:embedding" json:"embedding,omitempty"`
	TagID     *int64    `gorm:"column:tag_id;index" json:"tag_id"`
	Tag       *Tag      `gorm:"foreignKey:TagID;constraint:OnDelete:SET NULL" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (Document) TableName() string { return "documents" }
