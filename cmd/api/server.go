package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcclellann/pawnLedger/pkg/auth"
	"github.com/mcclellann/pawnLedger/pkg/interest"
	"github.com/mcclellann/pawnLedger/pkg/ledger"
	"github.com/mcclellann/pawnLedger/pkg/logging"
	"github.com/mcclellann/pawnLedger/pkg/models"
	"github.com/mcclellann/pawnLedger/pkg/store"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type contextKey string

const operatorKey contextKey = "operator"

// maxQuoteDays bounds the calculator's duration to a century.
const maxQuoteDays = 36525

// Server holds the ledger and the operator authentication providers.
type Server struct {
	ledger   *ledger.Ledger
	storage  store.Storage // Keep a reference to the storage to close it
	creds    auth.CredentialProvider
	sessions auth.SessionProvider
}

func NewServer(s store.Storage, creds auth.CredentialProvider, sessions auth.SessionProvider) *Server {
	return &Server{
		ledger:   ledger.NewLedger(s),
		storage:  s,
		creds:    creds,
		sessions: sessions,
	}
}

// Router wires every endpoint. Everything except /healthz and /login needs a session token.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(logging.Middleware)

	router.HandleFunc("/healthz", s.healthHandler).Methods("GET")
	router.HandleFunc("/login", s.loginHandler).Methods("POST")

	api := router.NewRoute().Subrouter()
	api.Use(s.requireSession)
	api.HandleFunc("/calculator", s.calculatorHandler).Methods("GET")
	api.HandleFunc("/stats", s.statsHandler).Methods("GET")
	api.HandleFunc("/pawns", s.listPawnsHandler).Methods("GET")
	api.HandleFunc("/pawns", s.createPawnHandler).Methods("POST")
	api.HandleFunc("/pawns/{id}", s.getPawnHandler).Methods("GET")
	api.HandleFunc("/pawns/{id}", s.updatePawnHandler).Methods("PUT")
	api.HandleFunc("/pawns/{id}", s.deletePawnHandler).Methods("DELETE")
	api.HandleFunc("/pawns/{id}/interest", s.interestHandler).Methods("GET")
	api.HandleFunc("/pawns/{id}/redeem", s.redeemPawnHandler).Methods("POST")
	api.HandleFunc("/pawns/{id}/storage", s.storageHandler).Methods("PUT")

	return router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"status": status, "message": message})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidRecord):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Pawn not found")
	case errors.Is(err, ledger.ErrAlreadyRedeemed):
		writeMessage(w, http.StatusConflict, err.Error())
	default:
		log.WithError(err).Error("request failed")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func pawnID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid pawn ID")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeMessage(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}
		claims, err := s.sessions.Verify(token)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), operatorKey, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func operator(r *http.Request) string {
	name, _ := r.Context().Value(operatorKey).(string)
	return name
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.creds.Authenticate(req.Username, req.Password); err != nil {
		log.WithField("username", req.Username).Warn("login failed")
		writeMessage(w, http.StatusUnauthorized, err.Error())
		return
	}

	token, expiresAt, err := s.sessions.Issue(req.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresAt": expiresAt.Format(time.RFC3339),
	})
}

// calculatorHandler quotes a hypothetical loan without storing anything.
func (s *Server) calculatorHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	principal, err := decimal.NewFromString(q.Get("principal"))
	if err != nil || !principal.IsPositive() {
		writeMessage(w, http.StatusBadRequest, "principal must be a positive number")
		return
	}
	rate, err := decimal.NewFromString(q.Get("rate"))
	if err != nil || rate.IsNegative() {
		writeMessage(w, http.StatusBadRequest, "rate must be a non-negative number")
		return
	}
	paperRate := decimal.Zero
	if v := q.Get("paperRate"); v != "" {
		paperRate, err = decimal.NewFromString(v)
		if err != nil || paperRate.IsNegative() || paperRate.GreaterThan(ledger.MaxPaperLoanRatePct) {
			writeMessage(w, http.StatusBadRequest, "paperRate must be between 0 and "+ledger.MaxPaperLoanRatePct.String())
			return
		}
	}
	days := 0
	if v := q.Get("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days < 0 || days > maxQuoteDays {
			writeMessage(w, http.StatusBadRequest, "days must be an integer between 0 and "+strconv.Itoa(maxQuoteDays))
			return
		}
	}

	terms := interest.Terms{Principal: principal, MonthlyRatePct: rate, PaperLoanRatePct: paperRate}
	writeJSON(w, http.StatusOK, interest.ForDuration(terms, days, time.Now()))
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.Dashboard()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) listPawnsHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	status := models.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeMessage(w, http.StatusBadRequest, "unknown status "+strconv.Quote(string(status)))
		return
	}

	var (
		pawns []*models.PawnRecord
		err   error
	)
	if query == "" {
		pawns, err = s.ledger.ListPawns(status)
	} else {
		pawns, err = s.ledger.SearchPawns(query)
		if err == nil && status != "" {
			filtered := pawns[:0]
			for _, p := range pawns {
				if p.Status == status {
					filtered = append(filtered, p)
				}
			}
			pawns = filtered
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if pawns == nil {
		pawns = []*models.PawnRecord{}
	}
	writeJSON(w, http.StatusOK, pawns)
}

type pawnWithInterest struct {
	*models.PawnRecord
	Interest models.InterestResult `json:"interest"`
}

func (s *Server) createPawnHandler(w http.ResponseWriter, r *http.Request) {
	var in ledger.PawnInput
	if !decodeBody(w, r, &in) {
		return
	}

	rec, err := s.ledger.CreatePawn(in)
	if err != nil {
		writeError(w, err)
		return
	}
	log.WithFields(log.Fields{"serial": rec.SerialNumber, "operator": operator(r)}).Debug("pawn created via API")
	writeJSON(w, http.StatusCreated, pawnWithInterest{PawnRecord: rec, Interest: interest.ForRecord(rec, time.Now())})
}

func (s *Server) getPawnHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pawnID(w, r)
	if !ok {
		return
	}
	rec, err := s.ledger.GetPawn(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) updatePawnHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pawnID(w, r)
	if !ok {
		return
	}
	var in ledger.PawnInput
	if !decodeBody(w, r, &in) {
		return
	}

	rec, err := s.ledger.UpdatePawn(id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deletePawnHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pawnID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeletePawn(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) interestHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pawnID(w, r)
	if !ok {
		return
	}
	rec, result, err := s.ledger.Quote(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pawnWithInterest{PawnRecord: rec, Interest: result})
}

func (s *Server) redeemPawnHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pawnID(w, r)
	if !ok {
		return
	}
	rec, result, err := s.ledger.RedeemPawn(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pawnWithInterest{PawnRecord: rec, Interest: result})
}

func (s *Server) storageHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pawnID(w, r)
	if !ok {
		return
	}
	var req struct {
		Location     models.StorageLocation `json:"storageLocation"`
		SerialNumber string                 `json:"storageSerialNumber"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	rec, err := s.ledger.UpdateStorageLocation(id, req.Location, req.SerialNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
