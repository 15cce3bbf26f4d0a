package models

import "time"

type ClientMedia struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	CoachID     string    `json:"coach_id"`
	FilePath    string    `json:"file_path"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	MediaType   string    `json:"media_type"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
