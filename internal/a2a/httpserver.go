package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrTaskNotFound is returned by handlers for unknown task IDs.
var ErrTaskNotFound = errors.New("a2a: task not found")

// ErrUnsupportedSkill is returned by handlers for messages naming a skill
// the agent does not offer.
var ErrUnsupportedSkill = errors.New("a2a: unsupported skill")

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/agent-card.json", s.handleAgentCard)
	mux.HandleFunc("POST /", s.handleJSONRPC)
	return mux
}

func (s *Server) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.card); err != nil {
		s.logger.Error("a2a: encode agent card", "error", err)
	}
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, nil, ErrCodeParse, "parse error: "+err.Error())
		return
	}
	if req.JSONRPC != JSONRPCVersion {
		s.writeError(w, req.ID, ErrCodeInvalidRequest, fmt.Sprintf("unsupported jsonrpc version %q", req.JSONRPC))
		return
	}

	ctx := r.Context()
	s.logger.Debug("a2a request", "method", req.Method, "id", req.ID)
	switch req.Method {
	case MethodSendMessage:
		dispatch(ctx, s, w, &req, s.handler.HandleSendMessage)
	case MethodGetTask:
		dispatch(ctx, s, w, &req, s.handler.HandleGetTask)
	case MethodCancelTask:
		dispatch(ctx, s, w, &req, s.handler.HandleCancelTask)
	default:
		s.writeError(w, req.ID, ErrCodeMethodNotFound, "method not found: "+req.Method)
	}
}

// dispatch decodes the params for one method and writes fn's result.
func dispatch[P any](ctx context.Context, s *Server, w http.ResponseWriter, req *JSONRPCRequest, fn func(context.Context, P) (*Task, error)) {
	var params P
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(w, req.ID, ErrCodeInvalidParams, "invalid params: "+err.Error())
		return
	}
	task, err := fn(ctx, params)
	if err != nil {
		s.writeError(w, req.ID, errorCode(err), err.Error())
		return
	}
	s.writeResult(w, req.ID, task)
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, ErrTaskNotFound):
		return ErrCodeTaskNotFound
	case errors.Is(err, ErrUnsupportedSkill):
		return ErrCodeUnsupportedSkill
	default:
		return ErrCodeInternal
	}
}

func (s *Server) writeResult(w http.ResponseWriter, id any, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		s.writeError(w, id, ErrCodeInternal, "marshal result: "+err.Error())
		return
	}
	s.write(w, JSONRPCResponse{JSONRPC: JSONRPCVersion, ID: id, Result: data})
}

func (s *Server) writeError(w http.ResponseWriter, id any, code int, message string) {
	s.write(w, JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	})
}

func (s *Server) write(w http.ResponseWriter, resp JSONRPCResponse) {
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("a2a: write response", "error", err)
	}
}
