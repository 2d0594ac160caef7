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

type EnrollmentHandler struct {
	enrollments  *service.EnrollmentService
	sessions     *service.SessionService
	validate     *validator.Validate
	secureCookie bool
}

func NewEnrollmentHandler(enrollments *service.EnrollmentService, sessions *service.SessionService, secureCookie bool) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollments:  enrollments,
		sessions:     sessions,
		validate:     validator.New(),
		secureCookie: secureCookie,
	}
}

func (h *EnrollmentHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	resp, err := h.enrollments.CreateToken(r.Context(), middleware.GetOwnerID(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, resp)
}

func (h *EnrollmentHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req domain.ClaimEnrollmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	token, err := h.enrollments.Claim(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	middleware.SetSessionCookie(w, token, h.sessions.TTL(), h.secureCookie)
	response.JSON(w, http.StatusCreated, map[string]string{"status": "enrolled"})
}
