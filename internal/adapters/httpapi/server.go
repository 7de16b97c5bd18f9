package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/transitops/user-service/internal/app/auth"
	"github.com/transitops/user-service/internal/app/users"
	"github.com/transitops/user-service/internal/domain"
	"github.com/transitops/user-service/internal/ports/out/idempotency"
)

const registerRoute = "/api/user/register"

// Server is the HTTP adapter over the application services.
type Server struct {
	Auth  *auth.Service
	Users *users.Service
	// Idem is optional. When set, registration honors the Idempotency-Key header.
	Idem idempotency.Store
	Log  *slog.Logger
}

func NewServer(authSvc *auth.Service, usersSvc *users.Service, idem idempotency.Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{Auth: authSvc, Users: usersSvc, Idem: idem, Log: log}
}

type LoginResponse struct {
	Token string `json:"Token"`
}

type RegisterResponse struct {
	ID string `json:"Id"`
}

type MeResponse struct {
	ID    string   `json:"Id"`
	Email string   `json:"Email"`
	Roles []string `json:"Roles"`
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "MALFORMED_REQUEST", "request body must be a JSON object", nil)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeValidation(w, r, err)
		return
	}

	tok, err := s.Auth.Login(r.Context(), domain.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, LoginResponse{Token: tok.Raw})
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "MALFORMED_REQUEST", "request body must be a JSON object", nil)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeValidation(w, r, err)
		return
	}

	// Idempotency handling:
	// - Replay if same key+route+bodyHash
	// - Reject if same key+route with different bodyHash (409)
	key := idempotency.Key(strings.TrimSpace(r.Header.Get("Idempotency-Key")))
	var respFP idempotency.Fingerprint
	if s.Idem != nil && key != "" {
		bodyHash, err := hashRegisterBody(req)
		if err != nil {
			writeAppError(w, r, s.Log, err)
			return
		}
		metaFP := idempotency.Fingerprint{
			Key:      key,
			Method:   http.MethodPost,
			Route:    registerRoute,
			BodyHash: "",
		}
		if meta, ok, err := s.Idem.Get(r.Context(), metaFP); err != nil {
			writeAppError(w, r, s.Log, err)
			return
		} else if ok {
			if string(meta.Body) != bodyHash {
				writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
				return
			}
		} else {
			_ = s.Idem.Put(r.Context(), metaFP, idempotency.Record{
				StatusCode:  0,
				ContentType: "text/plain",
				Body:        []byte(bodyHash),
				CreatedAt:   time.Now().UTC(),
			})
		}

		respFP = metaFP
		respFP.BodyHash = bodyHash
		if rec, ok, err := s.Idem.Get(r.Context(), respFP); err != nil {
			writeAppError(w, r, s.Log, err)
			return
		} else if ok && rec.StatusCode == http.StatusCreated && strings.HasPrefix(rec.ContentType, "application/json") {
			var payload RegisterResponse
			if err := json.Unmarshal(rec.Body, &payload); err == nil {
				render.Status(r, http.StatusCreated)
				render.JSON(w, r, payload)
				return
			}
		}
	}

	id, err := s.Users.Register(r.Context(), users.RegisterInput{
		Email:    req.EmailAddress,
		Password: req.Password,
		FullName: req.FullName,
		Role:     domain.RoleName(req.Role),
	})
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}

	resp := RegisterResponse{ID: string(id)}
	if s.Idem != nil && key != "" {
		if b, err := json.Marshal(resp); err == nil {
			_ = s.Idem.Put(r.Context(), respFP, idempotency.Record{
				StatusCode:  http.StatusCreated,
				ContentType: "application/json",
				Body:        b,
				CreatedAt:   time.Now().UTC(),
			})
		}
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal", nil)
		return
	}
	roles := p.Roles
	if roles == nil {
		roles = []string{}
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, MeResponse{ID: p.Subject, Email: p.Email, Roles: roles})
}

func (s *Server) writeValidation(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := err.(validation.Errors); ok {
		writeValidationError(w, r, ve)
		return
	}
	writeAppError(w, r, s.Log, err)
}

// hashRegisterBody fingerprints a registration request after normalization.
// Passwords are left out so no derivative of them is persisted.
func hashRegisterBody(req RegisterRequest) (string, error) {
	canon := struct {
		Email    string `json:"email"`
		FullName string `json:"fullName"`
		Role     string `json:"role"`
	}{
		Email:    domain.NormalizeEmail(req.EmailAddress),
		FullName: domain.NormalizeHumanName(req.FullName),
		Role:     domain.NormalizeRoleName(domain.RoleName(req.Role)),
	}
	raw, err := json.Marshal(canon)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
