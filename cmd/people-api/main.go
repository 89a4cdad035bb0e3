// main is the entry point of the People API application.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Connect to (and set up) the SQLite database
//  4. Build the tool registry and the LLM chat bridge
//  5. Register all HTTP routes
//  6. Start the HTTP server in a separate goroutine
//  7. Block the main goroutine until an OS signal (Ctrl+C / kill) arrives
//  8. Gracefully shut down: finish in-flight requests, then exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/people-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/people-api
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aanand-mishra/people-api/internal/config"
	"github.com/aanand-mishra/people-api/internal/http/handlers/chat"
	"github.com/aanand-mishra/people-api/internal/http/handlers/health"
	"github.com/aanand-mishra/people-api/internal/http/handlers/mcp"
	"github.com/aanand-mishra/people-api/internal/http/handlers/person"
	"github.com/aanand-mishra/people-api/internal/llm"
	"github.com/aanand-mishra/people-api/internal/storage/sqlite"
	"github.com/aanand-mishra/people-api/internal/tools"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	// MustLoad reads the YAML config and panics if anything is wrong.
	// The name "Must" signals: if this returns, config is guaranteed valid.
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	// slog is Go's structured logger (stdlib since Go 1.21).
	// Structured logging writes key=value pairs rather than plain strings,
	// making logs easy to filter/search in tools like Loki or Datadog.
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting people-api",
		slog.String("env", cfg.Env),
		slog.String("version", "1.0.0"),
	)

	// ── 3. Initialise Storage (Database) ──────────────────────────────────
	// sqlite.New opens the SQLite file and creates the people table.
	// We store the result as the storage.Storage INTERFACE, not *sqlite.SQLite.
	// This means the rest of the code only knows about the interface —
	// swapping to PostgreSQL later only requires changing this one line.
	store, err := sqlite.New(cfg)
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("error", err.Error()))
		os.Exit(1) // non-zero exit code signals failure to the OS / CI system
	}

	log.Info("storage initialised",
		slog.String("path", cfg.StoragePath))

	// ── 4. Build the Tool Registry and Chat Bridge ────────────────────────
	// The registry is built once and shared by reference between the
	// /execute_tool endpoint, the /mcp/* JSON-RPC surface, and the chat
	// bridge — all three dispatch through the same table.
	registry := tools.NewRegistry(store)

	// The chat surface needs an OpenAI-compatible backend. A missing API
	// key disables chat but must not take the CRUD API down with it.
	var completer llm.Completer
	if client, err := llm.NewClient(cfg.OpenAI); err != nil {
		log.Warn("chat disabled: LLM client not configured",
			slog.String("error", err.Error()))
		completer = unavailableCompleter{}
	} else {
		completer = client
		log.Info("chat enabled", slog.String("model", cfg.OpenAI.Model))
	}
	bridge := llm.NewBridge(completer, registry)

	// ── 5. Register HTTP Routes ───────────────────────────────────────────
	// http.NewServeMux() creates an empty router.
	// HandleFunc maps a METHOD+PATTERN to a handler function.
	//
	// The handler functions (person.New, mcp.ExecuteTool, etc.) are
	// FACTORIES — they receive their dependencies and return the actual
	// handler. This is the dependency injection / closure pattern.
	//
	// Route table:
	//   GET    /                      → redirect to the health probe
	//   GET    /api/health            → liveness probe
	//   POST   /people/               → create a new person
	//   GET    /people/               → list people (skip/limit)
	//   GET    /people/{id}           → get one person by ID
	//   PUT    /people/{id}           → partially update a person
	//   DELETE /people/{id}           → delete a person
	//   POST   /execute_tool          → invoke one tool directly
	//   GET    /mcp/                  → plugin/function availability listing
	//   POST   /mcp/initialize        → JSON-RPC handshake
	//   GET    /mcp/tools/list        → JSON-RPC tool listing (no envelope)
	//   POST   /mcp/tools/list        → JSON-RPC tool listing
	//   POST   /mcp/tools/call        → JSON-RPC tool invocation
	//   POST   /mcp/resources/list    → JSON-RPC stub (always empty)
	//   POST   /mcp/prompts/list      → JSON-RPC stub (always empty)
	//   POST   /mcp/notifications/... → acknowledged with 202, no body
	//   POST   /chat                  → conversational turn via the LLM
	router := http.NewServeMux()

	// "{$}" matches the path exactly; a bare "/" would match everything.
	router.Handle("GET /{$}",
		http.RedirectHandler("/api/health", http.StatusTemporaryRedirect))
	router.HandleFunc("GET /api/health", health.New())

	router.HandleFunc("POST /people/{$}", person.New(store))
	router.HandleFunc("GET /people/{$}", person.GetList(store))
	router.HandleFunc("GET /people/{id}", person.GetByID(store))
	router.HandleFunc("PUT /people/{id}", person.Update(store))
	router.HandleFunc("DELETE /people/{id}", person.Delete(store))

	router.HandleFunc("POST /execute_tool", mcp.ExecuteTool(registry))
	router.HandleFunc("GET /mcp/{$}", mcp.Availability(registry))
	router.HandleFunc("POST /mcp/initialize", mcp.Initialize(registry))
	router.HandleFunc("GET /mcp/tools/list", mcp.ToolsList(registry))
	router.HandleFunc("POST /mcp/tools/list", mcp.ToolsList(registry))
	router.HandleFunc("POST /mcp/tools/call", mcp.ToolsCall(registry))
	router.HandleFunc("POST /mcp/resources/list", mcp.ResourcesList())
	router.HandleFunc("POST /mcp/prompts/list", mcp.PromptsList())
	router.HandleFunc("POST /mcp/notifications/", mcp.Notification())

	router.HandleFunc("POST /chat", chat.New(bridge))

	// ── 6. Create the HTTP Server ─────────────────────────────────────────
	// http.Server is a struct. We configure it here but don't start it yet.
	server := &http.Server{
		Addr:    cfg.HTTPServer.Addr, // e.g. "localhost:8082"
		Handler: router,              // every request goes through our router

		// Production hardening — set timeouts to prevent slow-client attacks.
		// WriteTimeout is generous because a chat turn can involve two
		// round trips to the LLM plus tool execution.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── 7. Start Server in a Goroutine ────────────────────────────────────
	// ListenAndServe blocks forever (it loops accepting connections).
	// If we called it here in main(), the graceful-shutdown code below
	// would never run. So we run it in a separate goroutine.
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		// ListenAndServe returns http.ErrServerClosed when Shutdown() is
		// called. That's expected — we don't want to log it as an error.
		if err := server.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			log.Error("server encountered an error",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 8. Wait for Shutdown Signal, then Gracefully Shut Down ────────────
	// make(chan os.Signal, 1) creates a buffered channel of size 1.
	// Buffered so we don't miss the signal if main is briefly busy.
	done := make(chan os.Signal, 1)

	// signal.Notify registers our channel to receive specific OS signals:
	//   os.Interrupt = Ctrl+C (SIGINT)
	//   syscall.SIGTERM = sent by `kill <pid>` or container orchestrators
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	// <-done blocks (pauses) the main goroutine here.
	// The program stays alive because this goroutine is running.
	// When a signal arrives, done receives it and we unblock.
	<-done

	log.Info("shutdown signal received, stopping server...")

	// context.WithTimeout gives the shutdown a 5-second deadline.
	// If in-flight requests don't finish within 5 seconds,
	// the context cancels and Shutdown returns an error.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// server.Shutdown:
	//   • Stops accepting new connections
	//   • Waits for active requests to complete (up to ctx deadline)
	//   • Returns nil on clean shutdown, error if deadline exceeded
	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}

// unavailableCompleter stands in for the OpenAI client when no API key
// is configured. Every chat turn fails, which the chat handler turns
// into its generic 500; the rest of the API is unaffected.
type unavailableCompleter struct{}

func (unavailableCompleter) Chat(context.Context, []llm.Message, []llm.ToolSpec, llm.ToolRunner) (llm.Answer, error) {
	return llm.Answer{}, errors.New("LLM backend is not configured (set OPENAI_API_KEY)")
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
//
//	JSON logs are easy to ingest by log aggregators (Loki, CloudWatch, etc.)
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo, // INFO and above in production
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug, // more verbose in staging
			}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug, // all levels in development
			}),
		)
	}
}
