package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	SourceState = "os.context.state"
	SourceEmbed = "os.context.text.embed"
)

type StateEvent struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	SessionID         string         `gorm:"not null;index" json:"session"`
	Timestamp         time.Time      `gorm:"not null;index" json:"ts"`
	Source            string         `gorm:"not null" json:"source"`
	AppName           string         `gorm:"not null;index" json:"app"`
	WindowTitle       string         `gorm:"not null" json:"window"`
	Sampler           string         `gorm:"not null" json:"sampler"`
	ClipboardObserved bool           `gorm:"not null;default:false" json:"clipboard_observed"`
	CreatedAt         time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

type EmbedEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	SessionID   string         `gorm:"not null;index" json:"session"`
	Timestamp   time.Time      `gorm:"not null;index" json:"ts"`
	Source      string         `gorm:"not null" json:"source"`
	AppName     string         `gorm:"not null" json:"app"`
	WindowTitle string         `gorm:"not null" json:"window"`
	Keyphrases  []string       `gorm:"serializer:json" json:"keyphrases"`
	Embedding   []float64      `gorm:"serializer:json" json:"embedding"`
	HashID      string         `gorm:"not null;index" json:"hash_id"`
	Model       string         `gorm:"not null" json:"model"`
	RawRetained bool           `gorm:"not null;default:false" json:"raw_retained"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

type AppSummary struct {
	AppName       string  `json:"app"`
	SampleCount   int64   `json:"sample_count"`
	ApproxSeconds float64 `json:"approx_seconds"`
	Percentage    float64 `json:"percentage,omitempty"`
}

type SessionInfo struct {
	SessionID   string    `json:"session"`
	FirstSample time.Time `json:"first_sample"`
	LastSample  time.Time `json:"last_sample"`
	SampleCount int64     `json:"sample_count"`
}

type Report struct {
	Session      string        `json:"session"`
	PollInterval time.Duration `json:"poll_interval_ns"`
	Apps         []AppSummary  `json:"apps"`
	TotalSamples int64         `json:"total_samples"`
	TotalSeconds float64       `json:"total_seconds"`
	GeneratedAt  time.Time     `json:"generated_at"`
}
