package log

import (
	"log/slog"
	"time"
)

// ControlRequest represents an incoming control-plane request for logging
// purposes (the CLI-to-daemon unix-socket HTTP API: attach, status, send).
type ControlRequest struct {
	// Method is the control-plane verb (e.g., "status", "send", "attach").
	Method string

	// CorrelationID is the correlation ID for tracing the request across
	// the CLI invocation and the daemon's handling of it.
	CorrelationID string

	// RequestID is the unique ID for this specific request.
	RequestID string

	// RemoteAddr identifies the caller (typically the unix socket peer).
	RemoteAddr string

	// Metadata contains additional request metadata.
	Metadata map[string]interface{}
}

// ControlResponse represents a control-plane response for logging purposes.
type ControlResponse struct {
	// Success indicates whether the request was successful.
	Success bool

	// Error is the error message if the request failed.
	Error string

	// DurationMs is the duration of the request in milliseconds.
	DurationMs int64

	// Metadata contains additional response metadata.
	Metadata map[string]interface{}
}

// LogControlRequest logs an incoming control-plane request.
func LogControlRequest(logger *slog.Logger, req *ControlRequest) {
	attrs := []any{
		"event", "control_request",
		"method", req.Method,
		"remote", req.RemoteAddr,
	}

	if req.CorrelationID != "" {
		attrs = append(attrs, "correlation_id", req.CorrelationID)
	}

	if req.RequestID != "" {
		attrs = append(attrs, "request_id", req.RequestID)
	}

	for k, v := range req.Metadata {
		attrs = append(attrs, k, v)
	}

	logger.Info("control request received", attrs...)
}

// LogControlResponse logs a control-plane response.
func LogControlResponse(logger *slog.Logger, req *ControlRequest, resp *ControlResponse) {
	attrs := []any{
		"event", "control_response",
		"method", req.Method,
		"success", resp.Success,
		"duration_ms", resp.DurationMs,
		"remote", req.RemoteAddr,
	}

	if req.CorrelationID != "" {
		attrs = append(attrs, "correlation_id", req.CorrelationID)
	}

	if req.RequestID != "" {
		attrs = append(attrs, "request_id", req.RequestID)
	}

	if resp.Error != "" {
		attrs = append(attrs, "error", resp.Error)
	}

	for k, v := range resp.Metadata {
		attrs = append(attrs, k, v)
	}

	level := slog.LevelInfo
	message := "control request completed"

	if !resp.Success {
		level = slog.LevelError
		message = "control request failed"
	}

	logger.Log(nil, level, message, attrs...)
}

// ControlMiddleware wraps a control-plane handler function with request and
// response logging.
type ControlMiddleware struct {
	logger *slog.Logger
}

// NewControlMiddleware creates a new control-plane logging middleware.
func NewControlMiddleware(logger *slog.Logger) *ControlMiddleware {
	return &ControlMiddleware{
		logger: logger,
	}
}

// Handler wraps a function that processes a control-plane request. It logs
// the request and response automatically.
func (m *ControlMiddleware) Handler(req *ControlRequest, handler func() error) error {
	start := time.Now()

	LogControlRequest(m.logger, req)

	err := handler()
	duration := time.Since(start).Milliseconds()

	resp := &ControlResponse{
		Success:    err == nil,
		DurationMs: duration,
	}

	if err != nil {
		resp.Error = err.Error()
	}

	LogControlResponse(m.logger, req, resp)

	return err
}

// HandlerWithMetadata wraps a function that processes a control-plane
// request and returns response metadata (e.g. a status snapshot).
func (m *ControlMiddleware) HandlerWithMetadata(req *ControlRequest, handler func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	start := time.Now()

	LogControlRequest(m.logger, req)

	metadata, err := handler()
	duration := time.Since(start).Milliseconds()

	resp := &ControlResponse{
		Success:    err == nil,
		DurationMs: duration,
		Metadata:   metadata,
	}

	if err != nil {
		resp.Error = err.Error()
	}

	LogControlResponse(m.logger, req, resp)

	return metadata, err
}
