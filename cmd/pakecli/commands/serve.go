// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package commands

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/thatnewyorker/pake"
	"github.com/thatnewyorker/pake/srp"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the SRP demo server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fallbackKey, err := pake.RandomBytes(pake.CryptoRand{}, 32)
			if err != nil {
				return err
			}

			h := &handler{
				conf:        demoConfiguration(),
				store:       newMemStore(),
				sessions:    make(map[string]*srp.Server),
				fallbackKey: fallbackKey,
			}

			r := chi.NewRouter()
			r.Use(middleware.Logger)
			h.registerRoutes(r)

			slog.Info("listening", "addr", addr)

			return http.ListenAndServe(addr, r)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")

	return cmd
}

// memStore is an in-memory verifier store for the demo. Persistent
// credential storage is the integrator's concern.
type memStore struct {
	mu      sync.RWMutex
	records map[string]*srp.VerifierRecord
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*srp.VerifierRecord)}
}

func (s *memStore) StoreVerifier(record *srp.VerifierRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[string(record.Identity)] = record

	return nil
}

func (s *memStore) LoadVerifier(identity []byte) (*srp.VerifierRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[string(identity)]
	if !ok {
		return nil, pake.ErrLookup.Join(fmt.Errorf("no record for %q", identity))
	}

	return record, nil
}

type handler struct {
	conf        *srp.Configuration
	store       *memStore
	fallbackKey []byte

	mu       sync.Mutex
	sessions map[string]*srp.Server
}

func (h *handler) registerRoutes(r chi.Router) {
	r.Post("/srp/register", h.register)
	r.Post("/srp/hello", h.hello)
	r.Post("/srp/proof", h.proof)
}

type registerRequest struct {
	Identity string `json:"identity"`
	Salt     string `json:"salt"`
	Verifier string `json:"verifier"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	salt, err := hex.DecodeString(req.Salt)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	verifier, err := hex.DecodeString(req.Verifier)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record := &srp.VerifierRecord{
		Identity: []byte(req.Identity),
		Salt:     salt,
		Verifier: verifier,
	}

	if err := h.store.StoreVerifier(record); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("registered", "identity", req.Identity)
	w.WriteHeader(http.StatusNoContent)
}

type helloRequest struct {
	Hello string `json:"hello"`
}

type helloResponse struct {
	Session   string `json:"session"`
	Challenge string `json:"challenge"`
}

func (h *handler) hello(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req helloRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	raw, err := hex.DecodeString(req.Hello)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hello, err := h.conf.DeserializeClientHello(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	server, err := srp.NewServer(h.conf, h.store, h.fallbackKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	challenge, err := server.Respond(pake.CryptoRand{}, hello)
	if err != nil {
		slog.Warn("challenge failed", "error", err)
		http.Error(w, "handshake failed", http.StatusBadRequest)

		return
	}

	id, err := pake.RandomBytes(pake.CryptoRand{}, 16)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	session := hex.EncodeToString(id)

	h.mu.Lock()
	h.sessions[session] = server
	h.mu.Unlock()

	writeJSON(w, helloResponse{
		Session:   session,
		Challenge: hex.EncodeToString(challenge.Serialize()),
	})
}

type proofRequest struct {
	Session string `json:"session"`
	Proof   string `json:"proof"`
}

type proofResponse struct {
	Proof string `json:"proof"`
}

func (h *handler) proof(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req proofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	server, ok := h.sessions[req.Session]
	delete(h.sessions, req.Session)
	h.mu.Unlock()

	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	raw, err := hex.DecodeString(req.Proof)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	clientProof, err := h.conf.DeserializeClientProof(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	serverProof, err := server.Confirm(clientProof)
	if err != nil {
		slog.Warn("authentication failed", "error", err)
		http.Error(w, "authentication failed", http.StatusUnauthorized)

		return
	}

	// The demo stops at mutual proof; a real service would hand the session
	// key to its record layer here.
	if _, err := server.SessionKey(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, proofResponse{Proof: hex.EncodeToString(serverProof.Serialize())})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response write failed", "error", err)
	}
}
