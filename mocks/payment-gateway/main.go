// Mock payment gateway for local development. Accepts a payment request
// and, after a short simulated settlement delay, calls back into the
// engine's confirm-payment endpoint with the configured bearer token.
//
// Environment:
//
//	GATEWAY_ADDR     listen address (default :9090)
//	ENTRANT_URL      engine base URL (default http://localhost:8080)
//	GATEWAY_TOKEN    gateway-role access token for the callback
//	SETTLE_DELAY     simulated settlement delay (default 2s)
//	FAIL_EVERY       every Nth payment fails, 0 disables (default 0)
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync/atomic"
	"time"
)

type paymentRequest struct {
	RegistrationID string `json:"registration_id"`
	AmountCents    int64  `json:"amount_cents"`
}

type gateway struct {
	entrantURL string
	token      string
	delay      time.Duration
	failEvery  uint64
	seen       atomic.Uint64
}

func main() {
	gw := &gateway{
		entrantURL: getenv("ENTRANT_URL", "http://localhost:8080"),
		token:      os.Getenv("GATEWAY_TOKEN"),
		delay:      getenvDuration("SETTLE_DELAY", 2*time.Second),
		failEvery:  getenvUint("FAIL_EVERY", 0),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /payments", gw.handlePayment)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	addr := getenv("GATEWAY_ADDR", ":9090")
	log.Printf("mock payment gateway listening on %s, callbacks to %s", addr, gw.entrantURL)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func (g *gateway) handlePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RegistrationID == "" {
		http.Error(w, "registration_id required", http.StatusBadRequest)
		return
	}

	n := g.seen.Add(1)
	if g.failEvery > 0 && n%g.failEvery == 0 {
		log.Printf("payment %s: simulated decline", req.RegistrationID)
		http.Error(w, "card declined", http.StatusPaymentRequired)
		return
	}

	go g.settle(req.RegistrationID)
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"registration_id": req.RegistrationID,
		"status":          "processing",
	})
}

// settle simulates the asynchronous gateway webhook.
func (g *gateway) settle(registrationID string) {
	time.Sleep(g.delay)

	url := fmt.Sprintf("%s/registrations/%s/confirm-payment", g.entrantURL, registrationID)
	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		log.Printf("payment %s: build callback: %v", registrationID, err)
		return
	}
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("payment %s: callback failed: %v", registrationID, err)
		return
	}
	defer resp.Body.Close()
	log.Printf("payment %s: settled, engine responded %d", registrationID, resp.StatusCode)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getenvUint(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		var n uint64
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}
