// accounts.go — обработчики регистрации, входа, смены пароля и выхода.
package handlers

import (
	"net/http"

	"github.com/bigkaa/sirfiles/internal/service"
)

// signupRequest — тело POST /signup.
type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signinRequest — тело POST /signin.
type signinRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// changePasswordRequest — тело PATCH /api/pass.
type changePasswordRequest struct {
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

// Signup — POST /signup. Создаёт пользователя и первую сессию, 201.
func (h *APIHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sink.Handle(w, r, err)
		return
	}

	res, err := h.accounts.Signup(r.Context(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.sink.Handle(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dataResponse{Data: res})
}

// Signin — POST /signin. Открывает новую сессию, 201.
func (h *APIHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sink.Handle(w, r, err)
		return
	}

	res, err := h.accounts.Signin(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.sink.Handle(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dataResponse{Data: res})
}

// ChangePassword — PATCH /api/pass, 204.
func (h *APIHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sink.Handle(w, r, err)
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), p, req.Password, req.NewPassword); err != nil {
		h.sink.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Signout — DELETE /api/signout. Удаляет текущую сессию, 204.
func (h *APIHandler) Signout(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.accounts.Signout(r.Context(), p); err != nil {
		h.sink.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
