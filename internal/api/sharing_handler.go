package api

import (
	"net/http"

	"github.com/taskdeck/taskdeck-api/internal/api/shared"
	"github.com/taskdeck/taskdeck-api/internal/service/sharing"
)

// SharingHandler handles task sharing membership requests.
type SharingHandler struct {
	sharingManager *sharing.Manager
}

// NewSharingHandler creates a new SharingHandler with the given dependencies.
func NewSharingHandler(manager *sharing.Manager) *SharingHandler {
	if manager == nil {
		panic("sharing manager cannot be nil")
	}
	return &SharingHandler{sharingManager: manager}
}

// ListSharedUsers handles GET /api/tasks/{id}/shared-users.
func (h *SharingHandler) ListSharedUsers(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	list, err := h.sharingManager.ListShared(r.Context(), userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newSharedUsersResponse(list))
}

// Share handles POST /api/tasks/{id}/shared-users. The target is named by
// email and gains view access.
func (h *SharingHandler) Share(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req ShareRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	profile, err := h.sharingManager.Share(r.Context(), userID, taskID, req.Email)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, newUserResponse(*profile))
}

// RemoveUser handles POST /api/tasks/{id}/remove-user.
func (h *SharingHandler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req RemoveUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.sharingManager.Unshare(r.Context(), userID, taskID, req.UserID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"detail": "User removed from task"})
}
