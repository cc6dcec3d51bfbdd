package domain

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// ConsultationRequest asks a domain agent for guidance. Requests are
// immutable once constructed; Context carries free-form key/value pairs
// (session-id, project-context, etc.) that guidance managers interpret.
type ConsultationRequest struct {
	RequestID string            `json:"request_id"`
	Domain    string            `json:"domain"`
	Query     string            `json:"query"`
	Context   map[string]string `json:"context,omitempty"`
}

// NewConsultationRequest builds a request with a fresh ULID.
// The context map is copied so later mutation by the caller cannot leak in.
func NewConsultationRequest(domain, query string, context map[string]string) ConsultationRequest {
	ctx := make(map[string]string, len(context))
	for k, v := range context {
		ctx[k] = v
	}
	return ConsultationRequest{
		RequestID: NewID(),
		Domain:    domain,
		Query:     query,
		Context:   ctx,
	}
}

// ContextValue returns the value for key, or "" when absent.
func (r ConsultationRequest) ContextValue(key string) string {
	return r.Context[key]
}

// GuidanceResponse is the outcome of a consultation. Failures are values,
// not panics: every path through an agent yields a response with Success
// and ErrorMessage set accordingly.
type GuidanceResponse struct {
	ResponseID      string        `json:"response_id"`
	RequestID       string        `json:"request_id"`
	AgentID         string        `json:"agent_id"`
	Guidance        string        `json:"guidance,omitempty"`
	Confidence      float64       `json:"confidence"`
	Recommendations []string      `json:"recommendations,omitempty"`
	ProcessingTime  time.Duration `json:"processing_time"`
	Timestamp       time.Time     `json:"timestamp"`
	Success         bool          `json:"success"`
	ErrorMessage    string        `json:"error_message,omitempty"`
}

// NewGuidanceResponse builds a successful response.
func NewGuidanceResponse(requestID, agentID, guidance string, confidence float64, recs []string, elapsed time.Duration) GuidanceResponse {
	return GuidanceResponse{
		ResponseID:      NewID(),
		RequestID:       requestID,
		AgentID:         agentID,
		Guidance:        guidance,
		Confidence:      confidence,
		Recommendations: recs,
		ProcessingTime:  elapsed,
		Timestamp:       time.Now(),
		Success:         true,
	}
}

// NewFailureResponse builds a failed response carrying a reason.
func NewFailureResponse(requestID, agentID, reason string) GuidanceResponse {
	return GuidanceResponse{
		ResponseID:   NewID(),
		RequestID:    requestID,
		AgentID:      agentID,
		Timestamp:    time.Now(),
		Success:      false,
		ErrorMessage: reason,
	}
}

// NewID returns a ULID string for request/response/session identities.
func NewID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
