package routes

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	gatewayauth "github.com/synaptica-ai/clinic-console/pkg/gateway/auth"
	"github.com/synaptica-ai/clinic-console/pkg/gateway/httpx"
	"github.com/synaptica-ai/clinic-console/pkg/gateway/middleware"
	"github.com/synaptica-ai/clinic-console/pkg/identity"
)

type AuthHandler struct {
	service     *identity.Service
	tokenSigner *gatewayauth.JWTManager
}

func NewAuthHandler(service *identity.Service, tokenSigner *gatewayauth.JWTManager) *AuthHandler {
	return &AuthHandler{service: service, tokenSigner: tokenSigner}
}

// Register mounts /register, /login and /validate. Only /validate needs a
// session.
func (h *AuthHandler) Register(r *mux.Router) {
	r.HandleFunc("/register", h.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", h.handleLogin).Methods(http.MethodPost)

	protected := r.NewRoute().Subrouter()
	protected.Use(middleware.Authenticate(h.tokenSigner))
	protected.HandleFunc("/validate", h.handleValidate).Methods(http.MethodGet)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Datos de registro inválidos")
		return
	}

	user, err := h.service.Register(r.Context(), req)
	switch {
	case errors.Is(err, identity.ErrEmailAlreadyExists):
		httpx.WriteError(w, http.StatusConflict, "El email ya está registrado")
		return
	case errors.Is(err, identity.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		logger.Log.WithError(err).Error("failed to register user")
		httpx.WriteError(w, http.StatusInternalServerError, "Error al registrar usuario")
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Datos de inicio de sesión inválidos")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			logger.Log.WithField("email", identity.NormalizeEmail(req.Email)).Warn("authentication failed")
			httpx.WriteError(w, http.StatusUnauthorized, "Credenciales inválidas")
			return
		}
		logger.Log.WithError(err).Error("authentication error")
		httpx.WriteError(w, http.StatusInternalServerError, "Error al iniciar sesión")
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

func (h *AuthHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "No autorizado")
		return
	}

	user, err := h.service.GetUser(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			httpx.WriteError(w, http.StatusUnauthorized, "No autorizado")
			return
		}
		logger.Log.WithError(err).Warn("failed to fetch user in /validate")
		httpx.WriteError(w, http.StatusInternalServerError, "Error al validar la sesión")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user models.User) {
	token, err := h.tokenSigner.IssueToken(user)
	if err != nil {
		logger.Log.WithError(err).Error("failed issuing token")
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, status, models.AuthResponse{AccessToken: token, User: user})
}
