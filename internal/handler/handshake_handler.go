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

// HandshakeHandler serves the pairing state machine. Init, the initiator's
// status poll, and confirm require an authenticated session; join, the
// joiner's poll, and cancel are open, authorized by knowing the secret.
type HandshakeHandler struct {
	handshakes *service.HandshakeService
	validate   *validator.Validate
}

func NewHandshakeHandler(handshakes *service.HandshakeService) *HandshakeHandler {
	return &HandshakeHandler{
		handshakes: handshakes,
		validate:   validator.New(),
	}
}

func (h *HandshakeHandler) Init(w http.ResponseWriter, r *http.Request) {
	var req domain.InitHandshakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	resp, err := h.handshakes.Init(r.Context(), middleware.GetOwnerID(r), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, resp)
}

func (h *HandshakeHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req domain.JoinHandshakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	resp, err := h.handshakes.Join(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, resp)
}

// InitiatorStatus is the authenticated poll; it reveals the joiner's key and
// never the payload.
func (h *HandshakeHandler) InitiatorStatus(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.decodeRef(w, r)
	if !ok {
		return
	}

	resp, err := h.handshakes.InitiatorStatus(r.Context(), middleware.GetOwnerID(r), ref)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, resp)
}

// JoinerStatus is the unauthenticated poll; once finished it delivers the
// payload exactly once.
func (h *HandshakeHandler) JoinerStatus(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.decodeRef(w, r)
	if !ok {
		return
	}

	resp, err := h.handshakes.JoinerStatus(r.Context(), ref)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, resp)
}

func (h *HandshakeHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req domain.ConfirmHandshakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	resp, err := h.handshakes.Confirm(r.Context(), middleware.GetOwnerID(r), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, resp)
}

func (h *HandshakeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.decodeRef(w, r)
	if !ok {
		return
	}

	if err := h.handshakes.Cancel(r.Context(), ref); err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": "cancelled"})
}

func (h *HandshakeHandler) decodeRef(w http.ResponseWriter, r *http.Request) (*domain.HandshakeRef, bool) {
	var ref domain.HandshakeRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		response.BadRequest(w, "invalid request payload")
		return nil, false
	}

	if err := h.validate.Struct(ref); err != nil {
		response.BadRequest(w, err.Error())
		return nil, false
	}

	return &ref, true
}
