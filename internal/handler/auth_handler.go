package handler

import (
	"net/http"

	"unlock-relay/internal/middleware"
	"unlock-relay/internal/service"
	"unlock-relay/pkg/response"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// AdminToken exchanges the admin API key for a bearer session token.
func (h *AuthHandler) AdminToken(w http.ResponseWriter, r *http.Request) {
	tokenResp, err := h.authService.IssueAdminToken(r.Header.Get(middleware.AdminKeyHeader))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	middleware.SetRole(w, "admin")

	response.Success(w, tokenResp)
}
