// Package rpc exposes built execution payloads over HTTP and websocket.
package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/meridianio/go-meridian/blockchain/beacon"
	"github.com/meridianio/go-meridian/logger"
)

var log = logger.NewLogger("[rpc]")

// requestsPerSecond bounds how fast a single server instance answers
// payload queries. Consensus clients poll rarely; anything faster is abuse.
const requestsPerSecond = 50

// EngineServer serves engine payload queries from a payload store.
type EngineServer struct {
	store    *beacon.PayloadStore
	limiter  *rate.Limiter
	upgrader websocket.Upgrader
	handler  http.Handler
}

// NewEngineServer builds the HTTP handler stack: router, CORS wrapper and
// rate limiting.
func NewEngineServer(store *beacon.PayloadStore, allowedOrigins []string) *EngineServer {
	server := &EngineServer{
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
	router := httprouter.New()
	router.GET("/engine/payload/:id", server.getPayload)
	router.GET("/engine/ws", server.subscribe)

	server.handler = cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler(router)
	return server
}

// ServeHTTP implements http.Handler.
func (server *EngineServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !server.limiter.Allow() {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}
	server.handler.ServeHTTP(w, r)
}

// getPayload resolves a payload id to its envelope.
func (server *EngineServer) getPayload(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	var id beacon.PayloadID
	if err := id.UnmarshalText([]byte(params.ByName("id"))); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	envelope, err := server.store.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		log.Errorf("failed writing payload response: %v", err)
	}
}

// subscribe upgrades the connection and answers payload queries sent as
// text frames carrying a payload id.
func (server *EngineServer) subscribe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := server.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warningf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var id beacon.PayloadID
		if err := id.UnmarshalText(message); err != nil {
			conn.WriteJSON(map[string]string{"error": err.Error()})
			continue
		}
		envelope, err := server.store.Get(id)
		if err != nil {
			conn.WriteJSON(map[string]string{"error": err.Error()})
			continue
		}
		if err := conn.WriteJSON(envelope); err != nil {
			return
		}
	}
}
