package domain

import (
	"time"

	"github.com/google/uuid"
)

// Language is a supported message/interface language
type Language string

const (
	LanguageFR Language = "fr"
	LanguageEN Language = "en"
	LanguageES Language = "es"
	LanguageDE Language = "de"
	LanguageIT Language = "it"
	LanguagePT Language = "pt"
	LanguageZH Language = "zh"
	LanguageJA Language = "ja"
	LanguageAR Language = "ar"
)

// SupportedLanguages lists every language the translation backend accepts
var SupportedLanguages = []Language{
	LanguageFR, LanguageEN, LanguageES, LanguageDE, LanguageIT,
	LanguagePT, LanguageZH, LanguageJA, LanguageAR,
}

// IsValid reports whether l is one of the supported languages
func (l Language) IsValid() bool {
	for _, s := range SupportedLanguages {
		if l == s {
			return true
		}
	}
	return false
}

// Tone is the writing register a user prefers for outgoing messages
type Tone string

const (
	ToneCasual   Tone = "casual"
	ToneStandard Tone = "standard"
	ToneFormal   Tone = "formal"
)

// IsValid reports whether t is a known tone
func (t Tone) IsValid() bool {
	return t == ToneCasual || t == ToneStandard || t == ToneFormal
}

// User represents a user entity in the system
// Maps to Postgres users table
type User struct {
	UserID            uuid.UUID  `json:"user_id" db:"user_id"`
	Email             string     `json:"email" db:"email"`
	FullName          string     `json:"full_name" db:"full_name"`
	PasswordHash      string     `json:"-" db:"password_hash"` // Never expose in JSON
	AvatarURL         *string    `json:"avatar_url,omitempty" db:"avatar_url"`
	PreferredLanguage Language   `json:"preferred_language" db:"preferred_language"`
	PreferredTone     Tone       `json:"preferred_tone" db:"preferred_tone"`
	IsActive          bool       `json:"is_active" db:"is_active"`
	IsOnline          bool       `json:"is_online" db:"is_online"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
	LastSeen          *time.Time `json:"last_seen,omitempty" db:"last_seen"`
}

// UserCreate represents data needed to register a new user
type UserCreate struct {
	Email             string   `json:"email" binding:"required,email"`
	FullName          string   `json:"full_name" binding:"required,min=1,max=255"`
	Password          string   `json:"password" binding:"required,min=8"`
	PreferredLanguage Language `json:"preferred_language"`
	PreferredTone     Tone     `json:"preferred_tone"`
}

// UserLogin represents login credentials
type UserLogin struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserUpdate represents mutable profile/settings fields
type UserUpdate struct {
	FullName          *string   `json:"full_name,omitempty"`
	AvatarURL         *string   `json:"avatar_url,omitempty"`
	PreferredLanguage *Language `json:"preferred_language,omitempty"`
	PreferredTone     *Tone     `json:"preferred_tone,omitempty"`
}

// UserResponse is the safe user representation returned to clients
type UserResponse struct {
	UserID            uuid.UUID  `json:"user_id"`
	Email             string     `json:"email"`
	FullName          string     `json:"full_name"`
	AvatarURL         *string    `json:"avatar_url,omitempty"`
	PreferredLanguage Language   `json:"preferred_language"`
	PreferredTone     Tone       `json:"preferred_tone"`
	IsOnline          bool       `json:"is_online"`
	LastSeen          *time.Time `json:"last_seen,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ToResponse converts User to UserResponse (removes sensitive data)
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		UserID:            u.UserID,
		Email:             u.Email,
		FullName:          u.FullName,
		AvatarURL:         u.AvatarURL,
		PreferredLanguage: u.PreferredLanguage,
		PreferredTone:     u.PreferredTone,
		IsOnline:          u.IsOnline,
		LastSeen:          u.LastSeen,
		CreatedAt:         u.CreatedAt,
	}
}
