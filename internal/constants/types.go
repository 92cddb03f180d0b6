package constants

// Server transports.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Reasoning effort hints passed to the completion service.
const (
	ReasoningMinimal = "minimal"
	ReasoningLow     = "low"
	ReasoningMedium  = "medium"
	ReasoningHigh    = "high"
)

// Response verbosity hints passed to the completion service.
const (
	VerbosityLow    = "low"
	VerbosityMedium = "medium"
	VerbosityHigh   = "high"
)
