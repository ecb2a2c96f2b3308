package storageshard

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

// Server exposes a Shard's primitive operations over HTTP. The Logic
// Coordinator that created the shard is the only legitimate caller; its
// account identity travels in the X-Logic-Caller header on every /message
// request. The GET balance and permit-id queries need no caller identity.
type Server struct {
	shard  *Shard
	log    *logrus.Entry
	router chi.Router
}

// NewServer wires handlers for every ShardAction variant onto a fresh
// chi.Router. log may be nil, in which case a default logrus logger is used.
func NewServer(shard *Shard, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{shard: shard, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/balance/{account}", s.handleGetBalance)
	r.Get("/permit-id/{account}", s.handleGetPermitID)
	r.Post("/message", s.handleMessage)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	account, err := wire.AccountFromHex(chi.URLParam(r, "account"))
	if err != nil {
		http.Error(w, "bad account", http.StatusBadRequest)
		return
	}
	writeJSON(w, wire.BalanceEvent(s.shard.GetBalance(account)))
}

func (s *Server) handleGetPermitID(w http.ResponseWriter, r *http.Request) {
	account, err := wire.AccountFromHex(chi.URLParam(r, "account"))
	if err != nil {
		http.Error(w, "bad account", http.StatusBadRequest)
		return
	}
	writeJSON(w, wire.PermitIDEvent(s.shard.GetPermitID(account)))
}

// callerAccount extracts the authenticated logic coordinator identity from
// the request. A missing or malformed header is itself an authorization
// failure (fatal reject), not a business Err event.
func callerAccount(r *http.Request) (wire.Account, error) {
	return wire.AccountFromHex(r.Header.Get("X-Logic-Caller"))
}

// handleMessage decodes the posted ShardAction and dispatches it to the
// matching Shard primitive, replying with the resulting ShardEvent.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	caller, err := callerAccount(r)
	if err != nil {
		http.Error(w, "missing or malformed caller identity", http.StatusUnauthorized)
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	action, err := wire.DecodeShardAction(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var (
		ok    bool
		event wire.Event
		opErr error
	)

	switch action.Kind {
	case wire.ShardGetBalance:
		writeJSON(w, wire.BalanceEvent(s.shard.GetBalance(action.GetBalance.Account)))
		return
	case wire.ShardGetPermitID:
		writeJSON(w, wire.PermitIDEvent(s.shard.GetPermitID(action.GetPermitID.Account)))
		return
	case wire.ShardIncreaseBalance:
		a := action.IncreaseBalance
		ok, opErr = s.shard.IncreaseBalance(caller, a.Hash, a.Account, a.Amount)
	case wire.ShardDecreaseBalance:
		a := action.DecreaseBalance
		ok, opErr = s.shard.DecreaseBalance(caller, a.Hash, a.MsgSource, a.Account, a.Amount)
	case wire.ShardApprove:
		a := action.Approve
		ok, opErr = s.shard.Approve(caller, a.Hash, a.MsgSource, a.Owner, a.Spender, a.Amount)
	case wire.ShardTransfer:
		a := action.Transfer
		ok, opErr = s.shard.Transfer(caller, a.Hash, a.MsgSource, a.Sender, a.Recipient, a.Amount)
	case wire.ShardIncrementPermitID:
		a := action.IncrementPermitID
		ok, opErr = s.shard.IncrementPermitID(caller, a.Hash, a.Account, a.Expected)
	default:
		http.Error(w, "unsupported shard action", http.StatusBadRequest)
		return
	}

	if opErr != nil {
		s.log.WithError(opErr).WithField("kind", action.Kind).Warn("shard action rejected")
		http.Error(w, opErr.Error(), http.StatusForbidden)
		return
	}

	if ok {
		event = wire.Ok()
	} else {
		event = wire.Err()
	}
	writeJSON(w, event)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

