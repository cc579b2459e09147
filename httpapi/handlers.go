package httpapi

import (
	"errors"
	"net/http"

	eduAuth "github.com/MrEthical07/eduAuth"
	"github.com/MrEthical07/eduAuth/middleware"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (a *api) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := a.engine.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeEngineError(w, r, "register", err)
		return
	}
	writeData(w, http.StatusCreated, map[string]string{"id": id.Subject})
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	pair, err := a.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeEngineError(w, r, "login", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, pair)
}

func (a *api) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	pair, err := a.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		// A store outage on refresh is indistinguishable from an invalid token to
		// the client.
		if errors.Is(err, eduAuth.ErrStoreUnavailable) {
			a.logger.Error(r.Context(), "refresh store unavailable", "error", err)
			middleware.WriteError(w, http.StatusUnauthorized, msgInvalidRefresh)
			return
		}
		a.writeEngineError(w, r, "refresh", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, pair)
}

func (a *api) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.Logout(r.Context(), currentIdentity(r).Subject); err != nil {
		a.writeEngineError(w, r, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) me(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, currentIdentity(r))
}

func (a *api) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	err := a.engine.ChangePassword(r.Context(), currentIdentity(r).Subject, req.CurrentPassword, req.NewPassword)
	if err != nil {
		a.writeEngineError(w, r, "change_password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) changeRole(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if !decode(w, r, &req) {
		return
	}
	if err := a.engine.ChangeRole(r.Context(), r.PathValue("id"), req.Role); err != nil {
		a.writeEngineError(w, r, "change_role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.DeleteAccount(r.Context(), r.PathValue("id")); err != nil {
		a.writeEngineError(w, r, "delete_account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) restoreAccount(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.RestoreAccount(r.Context(), r.PathValue("id")); err != nil {
		a.writeEngineError(w, r, "restore_account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
