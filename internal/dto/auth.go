package dto

import "docingest/internal/models"

type TokenRequest struct {
	SupabaseToken string `json:"supabaseToken"`
}

type TokenResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	User    models.User `json:"user"`
}
