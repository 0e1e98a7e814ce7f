package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldInput       = "input"
	FieldAuthorID    = "author_id"
	FieldChannelID   = "channel_id"
	FieldMessageID   = "message_id"
	FieldCommand     = "command"
	FieldAmount      = "amount"
	FieldCategory    = "category"
	FieldDescription = "description"
	FieldLedgerRef   = "ledger_ref"
	FieldBackend     = "backend"
	FieldTransport   = "transport"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentParser    = "parser"
	ComponentBot       = "bot"
	ComponentExpense   = "expense"
	ComponentHTTP      = "http"
	ComponentDiscord   = "discord"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentLedger    = "ledger"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpAppend     = "append"
	OpRecent     = "recent"
	OpTotal      = "total"
	OpCategories = "categories"
	OpParse      = "parse"
	OpPublish    = "publish"
	OpConsume    = "consume"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithExpense adds expense-related fields
func (f LogFields) WithExpense(amount, category, description string) LogFields {
	f[FieldAmount] = amount
	f[FieldCategory] = category
	f[FieldDescription] = description
	return f
}

// WithMessage adds chat message routing fields
func (f LogFields) WithMessage(authorID, channelID string) LogFields {
	f[FieldAuthorID] = authorID
	if channelID != "" {
		f[FieldChannelID] = channelID
	}
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
