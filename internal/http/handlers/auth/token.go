package auth

import (
	"context"
	"docingest/internal/dto"
	"docingest/internal/models"
	utils "docingest/internal/utils/http_errors"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

const (
	msgTokenRequired = "Supabase token is required"
	msgTokenInvalid  = "Invalid Supabase token"
	msgInternal      = "Internal server error"
)

// InstantToken trades an identity provider access token for a session token.
func InstantToken(ctx context.Context, log *slog.Logger, w http.ResponseWriter, r *http.Request, te TokenExchanger) {
	op := pkg + "InstantToken"

	log = log.With(slog.String("op", op))

	var req dto.TokenRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SupabaseToken == "" {
		log.Warn("missing provider token")
		utils.WriteJSONError(w, http.StatusBadRequest, msgTokenRequired)
		return
	}

	token, user, err := te.ExchangeToken(ctx, req.SupabaseToken)
	if err != nil {
		if errors.Is(err, models.ErrInvalidToken) {
			log.Warn("provider rejected token")
			utils.WriteJSONError(w, http.StatusUnauthorized, msgTokenInvalid)
			return
		}
		log.Error("failed to exchange token", slog.String("error", err.Error()))
		utils.WriteJSONError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	response := dto.TokenResponse{
		Success: true,
		Token:   token,
		User:    *user,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error("failed to write response", slog.String("error", err.Error()))
	}
}
