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

var (
	requestCount atomic.Int64
	eventCount   atomic.Int64
)

type batchEvent struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	UserID string `json:"userId"`
}

func main() {
	port := "9090"
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}

	// Accepting endpoint: the only status the agent treats as delivered
	http.HandleFunc("/log/accept", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, http.StatusAccepted, 0)
	})

	// Slow endpoint: delays 3 seconds before accepting
	http.HandleFunc("/log/slow", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, http.StatusAccepted, 3*time.Second)
	})

	// Answers 200, which the agent must still count as a failure
	http.HandleFunc("/log/ok", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, http.StatusOK, 0)
	})

	// Failing endpoint: always returns 500
	http.HandleFunc("/log/fail", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, http.StatusInternalServerError, 0)
	})

	// Stats endpoint: request and event counts
	http.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{
			"total_requests": requestCount.Load(),
			"total_events":   eventCount.Load(),
		})
	})

	log.Printf("Mock collector starting on :%s", port)
	log.Printf("  POST /log/accept  -> 202 Accepted")
	log.Printf("  POST /log/slow    -> 202 Accepted (3s delay)")
	log.Printf("  POST /log/ok      -> 200 OK (not a delivery)")
	log.Printf("  POST /log/fail    -> 500 Error")
	log.Printf("  GET  /stats       -> request count")

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func respond(w http.ResponseWriter, r *http.Request, status int, delay time.Duration) {
	count := requestCount.Add(1)

	var events []batchEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		logRequest(r, count, http.StatusBadRequest, nil)
		http.Error(w, "invalid JSON array", http.StatusBadRequest)
		return
	}

	if delay > 0 {
		time.Sleep(delay)
	}
	if status == http.StatusAccepted {
		eventCount.Add(int64(len(events)))
	}
	logRequest(r, count, status, events)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]int{"received": len(events)})
}

func logRequest(r *http.Request, count int64, status int, events []batchEvent) {
	first := ""
	if len(events) > 0 {
		first = fmt.Sprintf("%s/%s", events[0].Action, truncate(events[0].ID, 8))
	}
	fmt.Printf("[#%d] %s %s -> %d | events=%d first=%s\n",
		count,
		r.Method,
		r.URL.Path,
		status,
		len(events),
		first,
	)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
