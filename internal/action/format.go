package action

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ledgerly/invoice-mcp/internal/intent"
)

// FormatResult renders an executed action for the chat surface: an icon
// keyed on the operation, the action's description, and the response
// body pretty-printed.
func FormatResult(act intent.ResolvedAction, body []byte) string {
	var b strings.Builder

	b.WriteString(icon(act))
	b.WriteString(" ")
	if act.Description != "" {
		b.WriteString(act.Description)
	} else {
		b.WriteString(strings.ToUpper(act.Method) + " " + act.Endpoint)
	}

	if pretty := prettyJSON(body); pretty != "" {
		b.WriteString("\n\n")
		b.WriteString(pretty)
	}

	return b.String()
}

func icon(act intent.ResolvedAction) string {
	switch strings.ToUpper(act.Method) {
	case http.MethodPost:
		return "✅"
	case http.MethodPut:
		return "🔄"
	case http.MethodDelete:
		return "🗑"
	case http.MethodGet:
		if strings.Contains(act.Endpoint, "/stats") {
			return "📊"
		}
		if lastSegmentIsID(act.Endpoint) {
			return "📄"
		}
		return "📋"
	default:
		return "📋"
	}
}

// lastSegmentIsID distinguishes single-record GETs from list GETs: a
// trailing path segment carrying digits is treated as a record id.
func lastSegmentIsID(endpoint string) bool {
	path := endpoint
	if q := strings.IndexByte(path, '?'); q != -1 {
		path = path[:q]
	}
	path = strings.TrimRight(path, "/")

	idx := strings.LastIndexByte(path, '/')
	last := path[idx+1:]

	return strings.ContainsAny(last, "0123456789")
}

func prettyJSON(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return string(trimmed)
	}

	return buf.String()
}
