package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/copyleftdev/evolver/internal/errors"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeJobNotFound    = -32001
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jobRef struct {
	ID string `json:"id" validate:"required"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, codeParseError, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, codeInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "evolution.start":
		var req StartRequest
		if err = decodeParams(request.Params, &req); err == nil {
			result, err = s.StartJob(req)
		}
	case "evolution.status":
		var ref jobRef
		if err = s.decodeRef(request.Params, &ref); err == nil {
			result, err = s.JobStatus(ref.ID)
		}
	case "evolution.cancel":
		var ref jobRef
		if err = s.decodeRef(request.Params, &ref); err == nil {
			result, err = s.CancelJob(ref.ID)
		}
	default:
		s.respondWithError(w, codeMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, rpcCode(err), err.Error(), request.ID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// decodeParams accepts params given by name or as a one-element array.
func decodeParams(raw json.RawMessage, v interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return apperrors.BadRequest("missing required parameters")
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil || len(list) != 1 {
			return apperrors.BadRequest("invalid parameter format, expected one object")
		}
		raw = list[0]
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperrors.Wrap(err, "invalid parameters").WithStatus(http.StatusBadRequest)
	}
	return nil
}

func (s *Server) decodeRef(raw json.RawMessage, ref *jobRef) error {
	if err := decodeParams(raw, ref); err != nil {
		return err
	}
	if err := s.validate.Struct(ref); err != nil {
		return apperrors.Wrap(err, "id is required").WithStatus(http.StatusBadRequest)
	}
	return nil
}

func rpcCode(err error) int {
	switch apperrors.StatusCode(err) {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return codeInvalidParams
	case http.StatusNotFound:
		return codeJobNotFound
	default:
		return codeServerError
	}
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("JSON-RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error":   rpcError{Code: code, Message: message},
		"id":      id,
	})
}
