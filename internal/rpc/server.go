package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/rs/zerolog"
)

// Tool is one callable capability advertised through tools/list.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     func(ctx context.Context, args map[string]any) (string, error)
}

// ServerInfo identifies the daemon in initialize responses.
type ServerInfo struct {
	ProtocolVersion string
	Name            string
	Version         string
}

// Server dispatches the stdio request stream. Requests are handled
// strictly in arrival order so replies cannot reorder.
type Server struct {
	info  ServerInfo
	tools []Tool
	log   zerolog.Logger
}

// NewServer creates a Server advertising the given tools.
func NewServer(info ServerInfo, log zerolog.Logger, tools ...Tool) *Server {
	return &Server{info: info, tools: tools, log: log}
}

// Serve reads newline-delimited JSON-RPC from r and writes replies to w
// until r is exhausted or ctx is cancelled. The parent host may emit
// banner text between envelopes; anything that does not look like JSON
// is skipped without a reply.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Tool arguments can carry large base64 attachments.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || (line[0] != '{' && line[0] != '[') {
			continue
		}

		var req Envelope
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.Warn().Err(err).Msg("Dropping malformed request line")
			if bytes.Contains(line, []byte(`"jsonrpc"`)) || bytes.Contains(line, []byte(`"method"`)) {
				s.write(w, Envelope{
					JSONRPC: "2.0",
					ID:      json.RawMessage(`"error"`),
					Error:   NewError(CodeInternal, "Internal error"),
				})
			}
			continue
		}

		if resp, ok := s.handle(ctx, &req); ok {
			s.write(w, resp)
		}
	}

	// A closed stdin is the shutdown path, not a failure.
	if err := scanner.Err(); err != nil && !errors.Is(err, fs.ErrClosed) {
		return fmt.Errorf("scanner.Err: %w", err)
	}

	return nil
}

// handle routes one request. The second return is false for
// notifications, which never produce a reply.
func (s *Server) handle(ctx context.Context, req *Envelope) (Envelope, bool) {
	if strings.HasPrefix(req.Method, "notifications/") {
		return Envelope{}, false
	}
	// No id means notification semantics regardless of method.
	if req.ID == nil {
		return Envelope{}, false
	}

	resp := Envelope{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		resp.Result = map[string]any{
			"protocolVersion": s.info.ProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo": map[string]any{
				"name":    s.info.Name,
				"version": s.info.Version,
			},
		}

	case "tools/list":
		manifest := make([]map[string]any, 0, len(s.tools))
		for _, t := range s.tools {
			manifest = append(manifest, map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"inputSchema": t.InputSchema,
			})
		}
		resp.Result = map[string]any{"tools": manifest}

	case "tools/call":
		resp = s.callTool(ctx, req)

	default:
		resp.Error = NewError(CodeMethodNotFound, "Method not found")
	}

	return resp, true
}

func (s *Server) callTool(ctx context.Context, req *Envelope) Envelope {
	resp := Envelope{JSONRPC: "2.0", ID: req.ID}

	var params ToolCallParams
	if len(req.Params) == 0 {
		resp.Error = NewError(CodeInvalidParams, "Missing params")
		return resp
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		resp.Error = NewError(CodeInvalidParams, "Invalid params")
		return resp
	}

	tool := s.findTool(params.Name)
	if tool == nil {
		resp.Error = Errorf(CodeInvalidParams, "Unknown tool: %s", params.Name)
		return resp
	}

	s.log.Info().Str("tool", tool.Name).Msg("Tool call started")

	text, err := tool.Handler(ctx, params.Arguments)
	if err != nil {
		var rpcErr *Error
		if !errors.As(err, &rpcErr) {
			rpcErr = NewError(CodeInternal, err.Error())
		}
		s.log.Error().Str("tool", tool.Name).Err(err).Msg("Tool call failed")
		resp.Error = rpcErr
		return resp
	}

	s.log.Info().Str("tool", tool.Name).Msg("Tool call finished")
	resp.Result = TextResult(text)

	return resp
}

func (s *Server) findTool(name string) *Tool {
	for i := range s.tools {
		if s.tools[i].Name == name {
			return &s.tools[i]
		}
	}
	return nil
}

// write emits one compact envelope line. The response stream carries
// nothing else.
func (s *Server) write(w io.Writer, resp Envelope) {
	buf, err := json.Marshal(resp)
	if err != nil {
		s.log.Error().Err(err).Msg("Response marshal failed")
		return
	}
	buf = append(buf, '\n')
	if _, err := w.Write(buf); err != nil {
		s.log.Error().Err(err).Msg("Response write failed")
	}
}
