package logic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

// ErrUnsupportedAdminOp is the fault returned by the administrative
// endpoints this coordinator routes but does not act on. Their request body
// is read and discarded without decoding, and no durable state changes.
var ErrUnsupportedAdminOp = fmt.Errorf("logic: administrative reconfiguration is not implemented")

// Server exposes an Engine's operations over HTTP: the gateway's sole entry
// point into the Logic Coordinator tier.
type Server struct {
	engine *Engine
	log    *logrus.Entry
	router chi.Router
}

// NewServer wires the coordinator's HTTP surface onto a fresh chi.Router.
// log may be nil, in which case a default logrus logger is used.
func NewServer(engine *Engine, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{engine: engine, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/message", s.handleMessage)
	r.Get("/balance/{account}", s.handleGetBalance)
	r.Get("/permit-id/{account}", s.handleGetPermitID)
	r.Get("/storages", s.handleStorages)
	r.Post("/update-storage-code-hash", s.handleUnsupportedAdmin)
	r.Post("/migrate-storages", s.handleUnsupportedAdmin)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// messageRequest is the envelope the Main Gateway forwards: the caller's
// transaction identity hash plus the opaque LogicAction payload.
type messageRequest struct {
	Hash    wire.Hash       `json:"hash"`
	Caller  wire.Account    `json:"caller"`
	Payload json.RawMessage `json:"payload"`
}

// handleMessage is the coordinator's single mutating entry point: decode
// the envelope, run the idempotent sub-protocol dispatch, and reply with
// the resulting Event. A transport/retry-worthy error from Engine.Execute
// becomes a 503 so the gateway's own caller knows to retry rather than
// treat this as a recorded business outcome.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var req messageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	event, err := s.engine.Execute(r.Context(), req.Hash, req.Caller, req.Payload)
	if err != nil {
		s.log.WithError(err).WithField("hash", req.Hash).Warn("message execution did not complete")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, event)
}

// handleGetBalance resolves account's shard and forwards the query: the
// Logic Coordinator has no balance state of its own.
func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	account, err := wire.AccountFromHex(chi.URLParam(r, "account"))
	if err != nil {
		http.Error(w, "bad account", http.StatusBadRequest)
		return
	}
	s.forwardQuery(w, r.Context(), account, "/balance/")
}

// handleGetPermitID resolves account's shard and forwards the permit-nonce
// query.
func (s *Server) handleGetPermitID(w http.ResponseWriter, r *http.Request) {
	account, err := wire.AccountFromHex(chi.URLParam(r, "account"))
	if err != nil {
		http.Error(w, "bad account", http.StatusBadRequest)
		return
	}
	s.forwardQuery(w, r.Context(), account, "/permit-id/")
}

func (s *Server) forwardQuery(w http.ResponseWriter, ctx context.Context, account wire.Account, path string) {
	addr, err := s.engine.Dir.AddressFor(ctx, account)
	if err != nil {
		http.Error(w, fmt.Sprintf("resolve shard: %v", err), http.StatusServiceUnavailable)
		return
	}
	var event wire.Event
	if err := wire.GetJSON(ctx, addr+path+account.String(), &event); err != nil {
		http.Error(w, fmt.Sprintf("query shard: %v", err), http.StatusBadGateway)
		return
	}
	writeJSON(w, event)
}

// handleStorages lists the buckets that already have an assigned shard: a
// read-only introspection endpoint for operators, outside the closed
// action/event wire protocol.
func (s *Server) handleStorages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, struct {
		Buckets []byte `json:"buckets"`
	}{Buckets: s.engine.Dir.Buckets()})
}

func (s *Server) handleUnsupportedAdmin(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	_, _ = io.ReadAll(r.Body)
	http.Error(w, ErrUnsupportedAdminOp.Error(), http.StatusNotImplemented)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
