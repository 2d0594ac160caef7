package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"notevault-server/internal/domain"
	"notevault-server/internal/middleware"
	"notevault-server/internal/service"
	"notevault-server/pkg/response"
)

// NoteHandler serves the pull/push sync endpoints and conflict inspection.
type NoteHandler struct {
	sync        *service.SyncService
	credentials *service.DeviceService
	validate    *validator.Validate
}

func NewNoteHandler(sync *service.SyncService, devices *service.DeviceService) *NoteHandler {
	return &NoteHandler{
		sync:        sync,
		credentials: devices,
		validate:    validator.New(),
	}
}

// ListChanges handles GET /notes?since=N. since is milliseconds since epoch;
// absent or zero pulls the full state, tombstones included.
func (h *NoteHandler) ListChanges(w http.ResponseWriter, r *http.Request) {
	since := int64(0)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			response.BadRequest(w, "since must be a non-negative integer")
			return
		}
		since = parsed
	}

	changes, err := h.sync.ListChanges(r.Context(), middleware.GetOwnerID(r), since)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, changes)
}

// Push handles POST /notes. The whole batch is processed even when some
// entries lose their version race; losers come back in conflicts and the
// response is 409 so the device knows to inspect them.
func (h *NoteHandler) Push(w http.ResponseWriter, r *http.Request) {
	var writes []*domain.NoteWrite
	if err := json.NewDecoder(r.Body).Decode(&writes); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}
	if len(writes) == 0 {
		response.BadRequest(w, "empty write batch")
		return
	}

	for _, wr := range writes {
		if err := h.validate.Struct(wr); err != nil {
			response.BadRequest(w, err.Error())
			return
		}
	}

	label := h.deviceLabel(r)

	result, err := h.sync.ApplyWrites(r.Context(), middleware.GetOwnerID(r), label, writes)
	if err != nil {
		response.FromError(w, err)
		return
	}

	status := http.StatusOK
	if len(result.Conflicts) > 0 {
		status = http.StatusConflict
	}

	response.JSON(w, status, result)
}

func (h *NoteHandler) ListConflicts(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if noteID == "" {
		response.BadRequest(w, "note id is required")
		return
	}

	conflicts, err := h.sync.ListConflicts(r.Context(), middleware.GetOwnerID(r), noteID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, conflicts)
}

func (h *NoteHandler) ClearConflicts(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if noteID == "" {
		response.BadRequest(w, "note id is required")
		return
	}

	if err := h.sync.ClearConflicts(r.Context(), middleware.GetOwnerID(r), noteID); err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": "resolved"})
}

// deviceLabel names the writing device for conflict provenance. Lookup
// failures degrade to an empty label rather than failing the push.
func (h *NoteHandler) deviceLabel(r *http.Request) string {
	devices, err := h.credentials.List(r.Context(), middleware.GetOwnerID(r), middleware.GetCredentialID(r))
	if err != nil {
		return ""
	}
	for _, d := range devices {
		if d.Current {
			return d.Label
		}
	}
	return ""
}
