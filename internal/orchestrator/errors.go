package orchestrator

// AppError is a structured orchestrator error. Unlike an HTTP-facing error
// it carries no status code: there is no inbound HTTP API here, only verb
// callers that need a stable Code to switch on.
type AppError struct {
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

// Error constructors, one per design-level error kind the orchestrator
// itself raises. Transport and resolve failures keep their own types,
// transport.TransportError and stream.ResolveError.
var (
	ConfigError = func(msg string) *AppError {
		return &AppError{Code: "CONFIG", Message: msg}
	}
	SessionEmptyError = func(msg string) *AppError {
		return &AppError{Code: "SESSION_EMPTY", Message: msg}
	}
	InvalidSeedsError = func(msg string) *AppError {
		return &AppError{Code: "INVALID_SEEDS", Message: msg}
	}
	MediaEngineGoneError = func(msg string) *AppError {
		return &AppError{Code: "MEDIA_ENGINE_GONE", Message: msg}
	}
	LikeRequirementMissingError = func(msg string) *AppError {
		return &AppError{Code: "LIKE_REQUIREMENT_MISSING", Message: msg}
	}
)
