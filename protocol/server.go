// Package protocol speaks the request/response tool-calling protocol over
// a duplex transport bridge, dispatching invocations to registered tools.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/memgate/memgate/errors"
	"github.com/memgate/memgate/internal/logger"
	"github.com/memgate/memgate/transport"
	"go.uber.org/zap"
)

// ServerInfo describes the server in the initialize handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Server is the protocol bridge for one session. It consumes inbound
// messages from the bridge in arrival order and emits results as events
// on the attached stream.
type Server struct {
	registry *Registry
	info     ServerInfo
	log      *logger.FieldLogger
}

// NewServer creates a protocol server over the given registry.
func NewServer(registry *Registry, info ServerInfo) *Server {
	return &Server{
		registry: registry,
		info:     info,
		log:      logger.Module("protocol"),
	}
}

// Registry returns the server's tool registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Run consumes the bridge's inbound queue until ctx is cancelled. Results
// are sent over the attached stream; if the stream is gone by the time a
// result is ready, the result is dropped and logged best-effort. Tool side
// effects are at-least-once against the store while the acknowledgment is
// at-most-once-attempted: a tool may have succeeded even when its ack
// never reached the peer.
func (s *Server) Run(ctx context.Context, bridge *transport.Bridge) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-bridge.Inbound():
			resp := s.Dispatch(ctx, msg)
			if resp == nil {
				continue
			}
			data, err := json.Marshal(resp)
			if err != nil {
				s.log.Error("Failed to marshal response", zap.Error(err))
				continue
			}
			if err := bridge.SendOutbound(transport.Event{Name: "message", Data: data}); err != nil {
				s.log.Info("Dropped result, stream is gone",
					zap.String("code", string(errors.GetCode(err))))
			}
		}
	}
}

// Dispatch handles a single protocol message and returns the response, or
// nil for notifications.
func (s *Server) Dispatch(ctx context.Context, raw json.RawMessage) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return NewErrorResponse(nil, ErrorParseError, "invalid JSON")
	}
	if req.Method == "" {
		return NewErrorResponse(req.ID, ErrorInvalidRequest, "missing method")
	}

	switch req.Method {
	case "initialize":
		return NewSuccessResponse(req.ID, map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]any{
				"tools":   map[string]any{},
				"prompts": map[string]any{},
			},
			"serverInfo": s.info,
		})

	case "notifications/initialized", "notifications/cancelled":
		return nil

	case "ping":
		return NewSuccessResponse(req.ID, map[string]any{})

	case "tools/list":
		return NewSuccessResponse(req.ID, map[string]any{
			"tools": s.toolDescriptors(),
		})

	case "tools/call":
		return s.handleToolCall(ctx, &req)

	case "prompts/list":
		return NewSuccessResponse(req.ID, map[string]any{
			"prompts": s.promptDescriptors(),
		})

	case "prompts/get":
		return s.handlePromptGet(&req)

	default:
		if req.IsNotification() {
			return nil
		}
		return NewErrorResponse(req.ID, ErrorMethodNotFound, fmt.Sprintf("method %s not found", req.Method))
	}
}

type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (s *Server) handleToolCall(ctx context.Context, req *Request) *Response {
	// A call without an id is a notification; it gets no response of any
	// shape, success or error.
	if req.IsNotification() {
		return nil
	}

	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return NewErrorResponse(req.ID, ErrorInvalidParams, "invalid tool call parameters")
	}

	tool, ok := s.registry.Tool(params.Name)
	if !ok {
		return NewErrorResponse(req.ID, ErrorMethodNotFound, fmt.Sprintf("tool %s not found", params.Name))
	}

	text, err := tool.Handler(ctx, params.Arguments)
	if err != nil {
		if errors.Is(err, errors.ErrCodeValidation) {
			return NewErrorResponse(req.ID, ErrorInvalidParams, errors.GetMessage(err))
		}
		// Policy and upstream failures are tool-level results, not
		// protocol errors; the peer sees the message, nothing more.
		s.log.Debug("Tool call failed",
			zap.String("tool", params.Name),
			zap.String("code", string(errors.GetCode(err))))
		return NewSuccessResponse(req.ID, callResult(errors.GetMessage(err), true))
	}

	return NewSuccessResponse(req.ID, callResult(text, false))
}

type promptGetParams struct {
	Name string `json:"name"`
}

func (s *Server) handlePromptGet(req *Request) *Response {
	var params promptGetParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return NewErrorResponse(req.ID, ErrorInvalidParams, "invalid prompt parameters")
	}

	for _, p := range s.registry.Prompts() {
		if p.Name == params.Name {
			return NewSuccessResponse(req.ID, map[string]any{
				"description": p.Description,
				"messages": []map[string]any{
					{
						"role": "user",
						"content": map[string]any{
							"type": "text",
							"text": p.Text,
						},
					},
				},
			})
		}
	}
	return NewErrorResponse(req.ID, ErrorMethodNotFound, fmt.Sprintf("prompt %s not found", params.Name))
}

func (s *Server) toolDescriptors() []map[string]any {
	tools := s.registry.Tools()
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"inputSchema": t.InputSchema,
		})
	}
	return out
}

func (s *Server) promptDescriptors() []map[string]any {
	prompts := s.registry.Prompts()
	out := make([]map[string]any, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, map[string]any{
			"name":        p.Name,
			"description": p.Description,
		})
	}
	return out
}

func callResult(text string, isError bool) map[string]any {
	return map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"isError": isError,
	}
}
