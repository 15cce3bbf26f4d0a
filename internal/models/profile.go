package models

import "strings"

const UnknownDisplayName = "Unknown"

type Profile struct {
	ID        string  `json:"id"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	AvatarURL *string `json:"avatar_url"`
}

func (p *Profile) DisplayName() string {
	if p == nil {
		return UnknownDisplayName
	}

	parts := make([]string, 0, 2)
	if p.FirstName != nil && strings.TrimSpace(*p.FirstName) != "" {
		parts = append(parts, strings.TrimSpace(*p.FirstName))
	}
	if p.LastName != nil && strings.TrimSpace(*p.LastName) != "" {
		parts = append(parts, strings.TrimSpace(*p.LastName))
	}
	if len(parts) == 0 {
		return UnknownDisplayName
	}
	return strings.Join(parts, " ")
}
