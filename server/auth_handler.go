package server

import (
	"context"
	"net/http"
	"strings"

	"LabelDesk/core/auth"
	"LabelDesk/errs"
	"LabelDesk/logger"
	"LabelDesk/model"
)

type contextKey string

const actorKey contextKey = "actor"

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler handles user login requests
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, r, errs.Validation("email", "email and password are required"))
		return
	}

	user, err := h.store.Users().GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errs.IsNotFound(err) {
			logger.Warn("[Login] 用户不存在", logger.String("email", req.Email))
			http.Error(w, "Invalid email or password", http.StatusUnauthorized)
			return
		}
		writeError(w, r, err)
		return
	}

	// 验证密码
	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Warn("[Login] 密码验证失败", logger.String("email", req.Email))
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	actor := model.ActorFromUser(user)
	token, err := auth.GenerateToken(h.cfg.JWTSecret, actor, h.tokenTTL)
	if err != nil {
		logger.Error("[Login] 生成Token失败", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("[Login] 登录成功", logger.String("userId", user.ID), logger.String("role", string(user.Role)))
	writeJSON(w, http.StatusOK, struct {
		Token string      `json:"token"`
		Actor model.Actor `json:"actor"`
	}{Token: token, Actor: actor})
}

// AuthMiddleware validates the bearer token and puts the actor in the request
// context. Websocket clients may pass the token as the "token" query parameter.
func (h *APIHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}
			token = parts[1]
		}
		if token == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), claims.Actor)))
	})
}

// WithActor returns a context carrying actor.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext extracts the actor set by AuthMiddleware.
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok
}

func actorOf(r *http.Request) model.Actor {
	actor, _ := ActorFromContext(r.Context())
	return actor
}
