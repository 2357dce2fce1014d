package server

import (
	"net/http"

	"LabelDesk/logger"
	"LabelDesk/model"
)

// GetUserProfileHandler 获取当前用户资料. Staff tokens carry no stored
// profile beyond the actor itself.
func (h *APIHandler) GetUserProfileHandler(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	profile := map[string]interface{}{"actor": actor}

	user, err := h.store.Users().GetByID(r.Context(), actor.UserID)
	switch {
	case err == nil:
		profile["user"] = user
	case actor.Role == model.RoleLabel:
		logger.Error("获取用户信息失败", logger.String("userId", actor.UserID), logger.ErrorField(err))
		writeError(w, r, err)
		return
	}

	if actor.LabelID != "" {
		if label, err := h.store.Labels().GetByID(r.Context(), actor.LabelID); err == nil {
			profile["label"] = label
		}
	}
	writeJSON(w, http.StatusOK, profile)
}
