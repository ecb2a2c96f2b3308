package gateway

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/txtable"
	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

// ErrUnauthorizedAdmin is returned when UpdateLogicContract is called by
// anyone other than the configured admin account. This is a fatal reject,
// not a business Err event.
var ErrUnauthorizedAdmin = errors.New("gateway: caller is not the admin account")

// DefaultClearDelay is the fixed compile-time delay between a transaction
// first becoming InProgress and the gateway's self-scheduled Clear, chosen
// to exceed any realistic user retry horizon.
const DefaultClearDelay = 30 * time.Second

// Server is the Main Gateway: the sole externally-facing actor. It forwards
// every Message to the currently-configured Logic Coordinator and answers
// GetBalance/GetPermitId by a further pass-through.
type Server struct {
	mu        sync.RWMutex
	logicAddr string
	logicID   wire.Account
	admin     wire.Account
	spawner   LogicSpawner
	clearDelay time.Duration

	transactions *txtable.Table
	log          *logrus.Entry
	router       chi.Router
}

// NewServer constructs a gateway bound to an initial Logic Coordinator
// address and identity, administered by admin. log and clearDelay may be
// their zero values, in which case sensible defaults are used.
func NewServer(logicAddr string, logicID, admin wire.Account, spawner LogicSpawner, clearDelay time.Duration, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if clearDelay == 0 {
		clearDelay = DefaultClearDelay
	}
	s := &Server{
		logicAddr:    logicAddr,
		logicID:      logicID,
		admin:        admin,
		spawner:      spawner,
		clearDelay:   clearDelay,
		transactions: txtable.New(),
		log:          log,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/message", s.handleMessage)
	r.Post("/update-logic-contract", s.handleUpdateLogicContract)
	r.Get("/balance/{account}", s.handleGetBalance)
	r.Get("/permit-id/{account}", s.handleGetPermitID)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type messageRequest struct {
	Caller        wire.Account    `json:"caller"`
	TransactionID uint64          `json:"transaction_id"`
	Payload       json.RawMessage `json:"payload"`
}

// hashFor computes transaction_hash = H(caller ∥ be64(transaction_id)) via
// internal/wire.TransactionHash, the same derivation every tier uses.
func hashFor(caller wire.Account, transactionID uint64) wire.Hash {
	return wire.TransactionHash(caller, transactionID)
}

// handleMessage is Message(transaction_id, payload_bytes): it derives h,
// consults the idempotence table, and forwards to the Logic Coordinator on
// first sight or resume, replying with the terminal or forwarded outcome.
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
	caller := req.Caller

	h := hashFor(caller, req.TransactionID)

	switch s.transactions.Get(h) {
	case txtable.Success:
		writeJSON(w, wire.Ok())
		return
	case txtable.Failure:
		writeJSON(w, wire.Err())
		return
	case txtable.Absent:
		// Two requests for the same h racing here may both schedule a
		// clear; Clear is idempotent, so the second is a harmless no-op.
		s.transactions.MarkInProgress(h)
		s.scheduleClear(h)
	}

	event, err := s.forwardMessage(r.Context(), h, caller, req.Payload)
	if err != nil {
		s.log.WithError(err).WithField("hash", h).Warn("message forward did not complete")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	s.transactions.Finish(h, event.IsOk())
	writeJSON(w, event)
}

func (s *Server) forwardMessage(ctx context.Context, h wire.Hash, caller wire.Account, payload json.RawMessage) (wire.Event, error) {
	s.mu.RLock()
	logicAddr := s.logicAddr
	s.mu.RUnlock()

	var event wire.Event
	body := struct {
		Hash    wire.Hash       `json:"hash"`
		Caller  wire.Account    `json:"caller"`
		Payload json.RawMessage `json:"payload"`
	}{Hash: h, Caller: caller, Payload: payload}

	if err := wire.PostJSON(ctx, logicAddr+"/message", nil, body, &event); err != nil {
		return wire.Event{}, fmt.Errorf("forward to logic coordinator: %w", err)
	}
	return event, nil
}

// scheduleClear arranges for h to be removed from the idempotence table
// after clearDelay, bounding the table's size. An actor-model gateway would
// do this via a self-addressed delayed message; a bare time.AfterFunc
// achieves the same "only triggered by self, never by an external caller"
// property without needing an HTTP loopback hop.
func (s *Server) scheduleClear(h wire.Hash) {
	time.AfterFunc(s.clearDelay, func() {
		s.transactions.Clear(h)
	})
}

type updateLogicContractRequest struct {
	Caller      wire.Account `json:"caller"`
	StorageCode string       `json:"storage_code"`
}

// handleUpdateLogicContract is the admin-gated UpdateLogicContract:
// spawns a fresh Logic Coordinator bound to storage_code and repoints the
// gateway at it, replacing the stored logic identity.
func (s *Server) handleUpdateLogicContract(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	var req updateLogicContractRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Caller != s.admin {
		http.Error(w, ErrUnauthorizedAdmin.Error(), http.StatusForbidden)
		return
	}

	addr, err := s.spawner.Spawn(r.Context(), req.StorageCode)
	if err != nil {
		http.Error(w, fmt.Sprintf("spawn logic coordinator: %v", err), http.StatusServiceUnavailable)
		return
	}

	s.mu.Lock()
	s.logicAddr = addr
	s.logicID = newLogicIdentity(addr)
	s.mu.Unlock()

	writeJSON(w, wire.Ok())
}

// newLogicIdentity derives a stable account identity for a newly spawned
// logic coordinator from its address, since this rendition has no on-chain
// code-hash/program-id to reuse as the identity.
func newLogicIdentity(addr string) wire.Account {
	var a wire.Account
	copy(a[:], addr)
	return a
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	account, err := wire.AccountFromHex(chi.URLParam(r, "account"))
	if err != nil {
		http.Error(w, "bad account", http.StatusBadRequest)
		return
	}
	s.forwardQuery(w, r.Context(), account, "/balance/")
}

func (s *Server) handleGetPermitID(w http.ResponseWriter, r *http.Request) {
	account, err := wire.AccountFromHex(chi.URLParam(r, "account"))
	if err != nil {
		http.Error(w, "bad account", http.StatusBadRequest)
		return
	}
	s.forwardQuery(w, r.Context(), account, "/permit-id/")
}

func (s *Server) forwardQuery(w http.ResponseWriter, ctx context.Context, account wire.Account, path string) {
	s.mu.RLock()
	logicAddr := s.logicAddr
	s.mu.RUnlock()

	var event wire.Event
	if err := wire.GetJSON(ctx, logicAddr+path+account.String(), &event); err != nil {
		http.Error(w, fmt.Sprintf("query logic coordinator: %v", err), http.StatusBadGateway)
		return
	}
	writeJSON(w, event)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// EncodeTransactionID is a small helper for callers (and tests) building
// the big-endian transaction_id encoding the hash derivation itself relies
// on internally; exported so client code never needs to hand-roll it.
func EncodeTransactionID(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}
