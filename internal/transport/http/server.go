package httpx

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/venturahq/ventura/internal/domain"
	"github.com/venturahq/ventura/internal/service"
)

// NewServer exposes the JSON API. Write endpoints check the same token the
// gRPC surface uses; reads are open.
func NewServer(addr string, hub *service.ValidationService, authToken string) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, hub.Health())
	})
	mux.HandleFunc("GET /api/summary", func(w http.ResponseWriter, _ *http.Request) {
		summary, err := hub.Summary()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})
	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, _ *http.Request) {
		sessions, err := hub.ListSessions()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessions)
	})
	mux.HandleFunc("GET /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		result, err := hub.GetResult(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})
	mux.HandleFunc("POST /api/validate", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, authToken) {
			writeError(w, domain.Unauthenticated("invalid authentication token"))
			return
		}
		var request service.StartValidationRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			writeError(w, domain.InvalidArgument("request body is not valid JSON"))
			return
		}
		session, err := hub.StartSequentialValidation(request)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, session)
	})
	mux.HandleFunc("POST /api/swarm", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, authToken) {
			writeError(w, domain.Unauthenticated("invalid authentication token"))
			return
		}
		var request service.StartValidationRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			writeError(w, domain.InvalidArgument("request body is not valid JSON"))
			return
		}
		session, err := hub.StartScenarioSwarm(request)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, session)
	})
	mux.HandleFunc("POST /api/sessions/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, authToken) {
			writeError(w, domain.Unauthenticated("invalid authentication token"))
			return
		}
		session, err := hub.Cancel(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, session)
	})

	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}

func authorized(r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	if strings.TrimSpace(r.Header.Get("X-Ventura-Token")) == token {
		return true
	}
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	const bearer = "Bearer "
	return strings.HasPrefix(authHeader, bearer) && strings.TrimSpace(strings.TrimPrefix(authHeader, bearer)) == token
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("http response encode failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if typed, ok := domain.AsAppError(err); ok {
		switch typed.Code {
		case domain.CodeInvalidArgument:
			status = http.StatusBadRequest
		case domain.CodeNotFound:
			status = http.StatusNotFound
		case domain.CodeConflict:
			status = http.StatusConflict
		case domain.CodeUnauthenticated:
			status = http.StatusUnauthorized
		case domain.CodeFailedPrecondition:
			status = http.StatusConflict
		case domain.CodeResourceExhausted:
			status = http.StatusTooManyRequests
		case domain.CodeTimeout:
			status = http.StatusGatewayTimeout
		case domain.CodeUnavailable:
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
