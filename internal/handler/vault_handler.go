package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"notevault-server/internal/domain"
	"notevault-server/internal/middleware"
	"notevault-server/internal/service"
	"notevault-server/pkg/response"
)

// VaultHandler serves vault setup, login, and the wrapped-key fetch.
type VaultHandler struct {
	vault        *service.VaultService
	sessions     *service.SessionService
	validate     *validator.Validate
	secureCookie bool
}

func NewVaultHandler(vault *service.VaultService, sessions *service.SessionService, secureCookie bool) *VaultHandler {
	return &VaultHandler{
		vault:        vault,
		sessions:     sessions,
		validate:     validator.New(),
		secureCookie: secureCookie,
	}
}

func (h *VaultHandler) Init(w http.ResponseWriter, r *http.Request) {
	var req domain.InitVaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	token, err := h.vault.Init(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	middleware.SetSessionCookie(w, token, h.sessions.TTL(), h.secureCookie)
	response.JSON(w, http.StatusCreated, map[string]string{"status": "initialized"})
}

func (h *VaultHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.vault.Challenge(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, challenge)
}

func (h *VaultHandler) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	token, err := h.vault.VerifyLogin(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	middleware.SetSessionCookie(w, token, h.sessions.TTL(), h.secureCookie)
	response.Success(w, map[string]string{"status": "authenticated"})
}

func (h *VaultHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSessionCookie(w, h.secureCookie)
	response.Success(w, map[string]string{"status": "logged_out"})
}

func (h *VaultHandler) WrappedKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.vault.WrappedKey(r.Context(), middleware.GetCredentialID(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, key)
}

func (h *VaultHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{"status": "ok"})
}
