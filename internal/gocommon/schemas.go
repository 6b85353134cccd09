package gocommon

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status       string `json:"status"`
	Service      string `json:"service,omitempty"`
	ModelVersion string `json:"model_version,omitempty"`
}

// ReadyResponse is the response for readiness check endpoints.
type ReadyResponse struct {
	Status          string                 `json:"status"`
	Backends        map[string]string      `json:"backends"`
	CircuitBreakers []CircuitBreakerStatus `json:"circuit_breakers,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// NewError builds an ErrorResponse without details.
func NewError(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// CircuitBreakerStatus represents the status of a circuit breaker.
type CircuitBreakerStatus struct {
	Name            string  `json:"name"`
	State           string  `json:"state"`
	FailureCount    int     `json:"failure_count"`
	SuccessCount    int     `json:"success_count"`
	LastFailureTime float64 `json:"last_failure_time"`
}
