package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Ernous/BoxChat/internal/service"
)

// InternalHandler serves the provisioning endpoints called by the auth
// service over the private network.
type InternalHandler struct {
	accounts *service.AccountService
}

func NewInternalHandler(accounts *service.AccountService) *InternalHandler {
	return &InternalHandler{accounts: accounts}
}

type ProvisionUserRequest struct {
	Username string `json:"username"`
}

func (h *InternalHandler) ProvisionUser(w http.ResponseWriter, r *http.Request) {
	var req ProvisionUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	user, err := h.accounts.ProvisionUser(r.Context(), req.Username)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}
