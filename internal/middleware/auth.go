package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	initdata "github.com/telegram-mini-apps/init-data-golang"

	"lecturenotes/internal/models"
	"lecturenotes/internal/store"
)

// Auth validates Telegram Mini App init data and upserts the user. The
// Telegram user id is the owner id for every lecture operation downstream.
type Auth struct {
	store    store.Store
	botToken string
}

func NewAuth(s store.Store, botToken string) *Auth {
	return &Auth{store: s, botToken: botToken}
}

// Middleware expects an "Authorization: tma <initData>" header.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "tma" {
			http.Error(w, "Authorization header format must be 'tma <initData>'", http.StatusUnauthorized)
			return
		}

		raw := parts[1]
		if err := initdata.Validate(raw, a.botToken, 0); err != nil {
			log.Printf("Invalid init data: %v", err)
			http.Error(w, "Invalid init data", http.StatusUnauthorized)
			return
		}

		data, err := initdata.Parse(raw)
		if err != nil {
			log.Printf("Error parsing init data: %v", err)
			http.Error(w, "Error parsing init data", http.StatusBadRequest)
			return
		}

		user, err := a.store.UpsertUser(data.User.ID, data.User.Username)
		if err != nil {
			http.Error(w, "Failed to authenticate user", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), models.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
