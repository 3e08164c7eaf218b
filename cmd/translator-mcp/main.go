// Translator daemon: exposes the process_request tool over stdio
// JSON-RPC, resolving natural language into database actions through
// the local LLM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerly/invoice-mcp/internal/action"
	"github.com/ledgerly/invoice-mcp/internal/config"
	"github.com/ledgerly/invoice-mcp/internal/httpapi"
	"github.com/ledgerly/invoice-mcp/internal/intent"
	"github.com/ledgerly/invoice-mcp/internal/llm"
	"github.com/ledgerly/invoice-mcp/internal/logging"
	"github.com/ledgerly/invoice-mcp/internal/rpc"
	"github.com/ledgerly/invoice-mcp/internal/tool"
)

const serviceName = "translator-mcp"

func main() {
	configPath := flag.String("config", "translator.json", "Path to JSON config file")
	envFile := flag.String("env-file", "", "Path to env file")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Configuration error:", err)
		os.Exit(1)
	}

	logger, closeLog, err := logging.Open(cfg.Logging.File)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Log error:", err)
		os.Exit(1)
	}
	defer closeLog()

	resolver := intent.NewResolver(llm.NewClient(cfg.LLM), logger)
	executor := action.NewExecutor(cfg.Database.APIURL, logger)

	info := rpc.ServerInfo{
		ProtocolVersion: cfg.MCP.ProtocolVersion,
		Name:            serviceName,
		Version:         cfg.MCP.Version,
	}
	server := tool.NewTranslatorServer(info, resolver, executor, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Health-only control plane; a taken port means another instance
	// already answers health probes.
	if ln, ok := bindControlPort(cfg.HTTP.Port, logger); ok {
		srv := &http.Server{Handler: httpapi.New(nil, serviceName, cfg.MCP.Version, logger)}
		stopHTTP := serveHTTP(srv, ln, logger)
		defer stopHTTP()
	}

	logger.Info().Str("database", cfg.Database.APIURL).Msg("Translator starting stdio transport")

	// Closing stdin unblocks the scanner when a signal arrives.
	go func() {
		<-ctx.Done()
		_ = os.Stdin.Close()
	}()

	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("Stdio transport failed")
		return
	}

	logger.Info().Msg("Translator stopped")
}

func bindControlPort(port int, logger zerolog.Logger) (net.Listener, bool) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			logger.Warn().Int("port", port).Msg("Control port taken, continuing as secondary")
			return nil, false
		}
		logger.Error().Err(err).Msg("net.Listen failed, continuing without control plane")
		return nil, false
	}

	return ln, true
}

func serveHTTP(srv *http.Server, ln net.Listener, logger zerolog.Logger) func() {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)

		logger.Info().Str("addr", ln.Addr().String()).Msg("Control plane listening")

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("srv.Serve failed")
			errCh <- err
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("srv.Shutdown failed")
		}

		<-errCh
		logger.Info().Msg("Control plane stopped")
	}
}
