package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/transitops/user-service/internal/app/auth"
	"github.com/transitops/user-service/internal/domain"
	platformclock "github.com/transitops/user-service/internal/platform/clock"
	"github.com/transitops/user-service/internal/platform/config"
)

// Tiny dev-only token minter.
//
// It signs tokens with the same JWT_SECRET/JWT_ISSUER/JWT_AUDIENCE as the api, for arbitrary
// subjects and roles, so protected routes can be exercised without registering users.

type devConfig struct {
	Port string `env:"PORT" envDefault:"5556"`
}

// queryRoles serves the roles passed on the request as the role lookup.
type queryRoles []domain.RoleName

func (q queryRoles) GetRoles(context.Context, domain.UserID) ([]domain.RoleName, error) {
	return q, nil
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var dev devConfig
	if err := config.ParseEnv(&dev); err != nil {
		log.Error("invalid devtoken config", slog.Any("error", err))
		os.Exit(1)
	}
	tokenCfg, err := config.LoadTokenConfigFromEnv()
	if err != nil {
		log.Error("invalid token config", slog.Any("error", err))
		os.Exit(1)
	}
	// Fail fast on a bad config before serving.
	if _, err := auth.NewIssuer(tokenCfg, queryRoles(nil), platformclock.NewSystemClock()); err != nil {
		log.Error("invalid token config", slog.Any("error", err))
		os.Exit(1)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Mint a token:
	//   GET /token?sub=u1&email=a@b.com&role=Driver&role=Dispatcher
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		sub := strings.TrimSpace(q.Get("sub"))
		if sub == "" {
			http.Error(w, "missing sub", http.StatusBadRequest)
			return
		}
		roles := make(queryRoles, 0, len(q["role"]))
		for _, role := range q["role"] {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, domain.RoleName(role))
			}
		}

		issuer, err := auth.NewIssuer(tokenCfg, roles, platformclock.NewSystemClock())
		if err != nil {
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}
		tok, err := issuer.IssueToken(r.Context(), domain.UserIdentity{
			ID:    domain.UserID(sub),
			Email: strings.TrimSpace(q.Get("email")),
		})
		if err != nil {
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": tok.Raw,
			"sub":   sub,
			"iss":   tok.Issuer,
			"aud":   tok.Audience,
			"exp":   tok.ExpiresAt.Unix(),
		})
	})

	srv := &http.Server{
		Addr:              ":" + dev.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("devtoken listening",
		slog.String("addr", srv.Addr),
		slog.String("iss", tokenCfg.Issuer),
		slog.String("aud", tokenCfg.Audience),
		slog.Duration("ttl", tokenCfg.TTL),
	)
	if err := srv.ListenAndServe(); err != nil {
		log.Error("listen", slog.Any("error", err))
		os.Exit(1)
	}
}
