package server

import (
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/icalvete/facturador/internal/apperrors"
	"github.com/icalvete/facturador/internal/httpx"
	"github.com/icalvete/facturador/internal/store"
)

type credentials struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	if len(in.Password) < 8 {
		h.fail(w, r, apperrors.Validationf("password", "too_short"))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.store.CreateUser(r.Context(), store.UserInput{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hash),
		Role:         in.Role,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logActivity(r, "create", "user", u.ID, "Usuario registrado: "+u.Email)
	httpx.JSON(w, http.StatusCreated, u.Sanitized())
}

// login checks the password and stamps last_login_at. Wrong email and wrong
// password answer identically.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.store.UserByEmail(r.Context(), in.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
			return
		}
		h.fail(w, r, err)
		return
	}
	if !u.Active || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if err := h.store.TouchLastLogin(r.Context(), u.ID); err != nil {
		h.logger.Warn("last login stamp failed", "user", u.ID, "error", err)
	}
	h.logActivity(r, "login", "user", u.ID, "Inicio de sesión: "+u.Email)
	httpx.JSON(w, http.StatusOK, u.Sanitized())
}
