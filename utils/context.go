package utils

// ContextKey is the type used for request-scoped context values.
type ContextKey string

const (
	RequestIDKey ContextKey = "X-Request-ID"
	IPAddressKey ContextKey = "ip_address"
	UserAgentKey ContextKey = "user_agent"
)
