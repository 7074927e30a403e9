package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
	"github.com/rzpsarthak13/stagekeeper/internal/database"
	"github.com/rzpsarthak13/stagekeeper/internal/store"
	"github.com/rzpsarthak13/stagekeeper/pkg/stagekeeper"
)

var client stagekeeper.Client

func main() {
	// 1. Configure stagekeeper
	config := stagekeeper.DefaultConfig()

	// Database (MySQL) configuration - the relational engine that hosts
	// the staging tables.
	config.Database.Host = "localhost"
	config.Database.Port = 3306
	config.Database.Database = "testdb"
	config.Database.Username = "root"
	config.Database.Password = "password"

	// Store configuration
	// Option 1: MySQL (shares the database connection above)
	config.Store.Type = "mysql"

	// Option 2: DynamoDB (uncomment - using LocalStack for local testing)
	// config.Store.Type = "dynamodb"
	// config.Store.DynamoDB = stagekeeper.DynamoDBConfig{
	// 	Region:           "us-east-1",
	// 	DefinitionsTable: "stagekeeper-definitions",
	// 	SamplesTable:     "stagekeeper-samples",
	// 	Endpoint:         "http://localhost:4566", // LocalStack endpoint
	// 	AccessKeyID:      "test",
	// 	SecretAccessKey:  "test",
	// }

	// Optional Redis definition cache
	// config.Cache.Enabled = true
	// config.Cache.Endpoint = "localhost:6379"

	// Optional Kafka archival events (archive-then-drop consumers)
	// config.Archive.Enabled = true
	// config.Archive.Brokers = []string{"localhost:9092"}

	// Run cleanup every minute in the demo so TTL expiry is observable.
	config.Cleanup.Interval = 1 * time.Minute
	config.Lifecycle.DefaultTTLHours = 1

	// 2. Create the client. Fall back to the in-memory engine when no
	// local MySQL is reachable, so the demo works standalone.
	var err error
	client, err = stagekeeper.NewClient(config)
	if err != nil {
		log.Printf("MySQL unavailable (%v), falling back to in-memory engine", err)
		config.Store.Type = "memory"
		client, err = stagekeeper.NewClient(config,
			stagekeeper.WithExecutor(database.NewMemoryExecutor()),
			stagekeeper.WithStore(store.NewMemoryStore()),
		)
		if err != nil {
			log.Fatalf("Failed to create stagekeeper client: %v", err)
		}
	}
	defer client.Close()

	// 3. Start the TTL cleanup scheduler
	ctx := context.Background()
	if err := client.StartCleanup(ctx); err != nil {
		log.Fatalf("Failed to start cleanup scheduler: %v", err)
	}
	log.Println("✓ Cleanup scheduler started")

	// 4. HTTP endpoints exercising the lifecycle
	http.HandleFunc("/create", handleCreate)
	http.HandleFunc("/retire", handleRetire)
	http.HandleFunc("/optimize", handleOptimize)
	http.HandleFunc("/metrics", handleMetrics)

	server := &http.Server{Addr: ":8080"}
	go func() {
		log.Println("Test server listening on :8080")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// 5. Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := client.StopCleanup(); err != nil {
		log.Printf("Cleanup shutdown error: %v", err)
	}
	log.Println("✓ Shutdown complete")
}

// handleCreate creates a staging table from a JSON CreateRequest body.
//
// Example:
//
//	curl -X POST localhost:8080/create -d '{
//	  "execution_id": "exec-42",
//	  "transaction_type": "payment",
//	  "expected_records": 2000000,
//	  "columns": [
//	    {"name": "payment_id", "type": "BIGINT"},
//	    {"name": "amount", "type": "DECIMAL"},
//	    {"name": "value_date", "type": "DATE", "nullable": true}
//	  ]
//	}'
func handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req core.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	def, err := client.Create(r.Context(), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, def)
}

// handleRetire drops a staging table: /retire?name=stg_..._x&reason=done
func handleRetire(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name parameter required", http.StatusBadRequest)
		return
	}
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "manual"
	}

	retired := client.Retire(r.Context(), name, reason)
	writeJSON(w, map[string]bool{"retired": retired})
}

// handleOptimize runs the analyze/recommend/apply pass: /optimize?name=stg_..._x
func handleOptimize(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name parameter required", http.StatusBadRequest)
		return
	}

	report, err := client.Optimize(r.Context(), name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, report)
}

// handleMetrics returns per-execution stats: /metrics?execution_id=exec-42
func handleMetrics(w http.ResponseWriter, r *http.Request) {
	executionID := r.URL.Query().Get("execution_id")
	if executionID == "" {
		http.Error(w, "execution_id parameter required", http.StatusBadRequest)
		return
	}

	execMetrics, err := client.GetMetrics(r.Context(), executionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, execMetrics)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
