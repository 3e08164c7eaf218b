// Package tool defines the capabilities each daemon advertises to the
// parent host and wires them into RPC servers.
package tool

import (
	"github.com/rs/zerolog"

	"github.com/ledgerly/invoice-mcp/internal/rpc"
)

// NewMailerServer creates the mailer's RPC server with gmail_send.
func NewMailerServer(
	info rpc.ServerInfo,
	provider mailProvider,
	tokens tokenSource,
	sibling siblingFetcher,
	log zerolog.Logger,
) *rpc.Server {
	send := NewSendMail(provider, tokens, sibling, log)
	return rpc.NewServer(info, log, send.Tool())
}

// NewTranslatorServer creates the translator's RPC server with
// process_request.
func NewTranslatorServer(
	info rpc.ServerInfo,
	resolver actionResolver,
	executor actionExecutor,
	log zerolog.Logger,
) *rpc.Server {
	translate := NewTranslate(resolver, executor, log)
	return rpc.NewServer(info, log, translate.Tool())
}
