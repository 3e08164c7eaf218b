// Mailer daemon: exposes the gmail_send tool over stdio JSON-RPC and a
// loopback control plane for browser-deposited OAuth tokens.
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

	"github.com/ledgerly/invoice-mcp/internal/auth"
	"github.com/ledgerly/invoice-mcp/internal/config"
	"github.com/ledgerly/invoice-mcp/internal/gservice"
	"github.com/ledgerly/invoice-mcp/internal/httpapi"
	"github.com/ledgerly/invoice-mcp/internal/logging"
	"github.com/ledgerly/invoice-mcp/internal/rpc"
	"github.com/ledgerly/invoice-mcp/internal/tool"
)

const serviceName = "mailer-mcp"

func main() {
	configPath := flag.String("config", "mailer.json", "Path to JSON config file")
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

	provider := gservice.NewGMail()
	store := auth.NewStore(provider, logger)
	defer store.Close()

	ln, primary := bindControlPort(cfg.HTTP.Port, logger)

	var server *rpc.Server
	info := rpc.ServerInfo{
		ProtocolVersion: cfg.MCP.ProtocolVersion,
		Name:            serviceName,
		Version:         cfg.MCP.Version,
	}
	if primary {
		server = tool.NewMailerServer(info, provider, store, nil, logger)
	} else {
		server = tool.NewMailerServer(info, provider, store, auth.NewSiblingClient(cfg.HTTP.Port), logger)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if primary {
		srv := &http.Server{Handler: httpapi.New(store, serviceName, cfg.MCP.Version, logger)}
		stopHTTP := serveHTTP(srv, ln, logger)
		defer stopHTTP()
	}

	logger.Info().Bool("primary", primary).Int("port", cfg.HTTP.Port).Msg("Mailer starting stdio transport")

	// Closing stdin unblocks the scanner when a signal arrives.
	go func() {
		<-ctx.Done()
		_ = os.Stdin.Close()
	}()

	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("Stdio transport failed")
		return
	}

	logger.Info().Msg("Mailer stopped")
}

// bindControlPort claims the loopback control port. A conflict is not
// fatal: this process runs as secondary and pulls tokens from the
// primary on demand.
func bindControlPort(port int, logger zerolog.Logger) (net.Listener, bool) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			logger.Warn().Int("port", port).Msg("Control port taken, continuing as secondary")
			return nil, false
		}
		logger.Error().Err(err).Msg("net.Listen failed, continuing as secondary")
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
