package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

// XP sources recorded when points are granted.
const (
	XPSourceAttempt     = "attempt"
	XPSourceBadge       = "badge"
	// XPSourceRecalculate grants nothing; it only rewrites the stored level.
	XPSourceRecalculate = "recalculate"
)

// Context keys shared by middlewares and controllers.
const (
	ContextKeyUser      = "user"
	ContextKeyConfig    = "config"
	ContextKeyRequestID = "request_id"
	HeaderRequestID     = "X-Request-ID"
)
