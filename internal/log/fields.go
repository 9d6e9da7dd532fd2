package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldPeer         = "peer"
	FieldMethod       = "method"
	FieldCode         = "code"
	FieldDuration     = "duration_ms"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldErrorType    = "error_type"
	FieldOperation    = "operation"
	FieldOutcome      = "outcome"
	FieldCategoryID   = "category_id"
	FieldCategoryCode = "category_code"
	FieldCount        = "count"
	FieldEngine       = "engine"
	FieldAddress      = "address"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentRPC       = "rpc"
	ComponentService   = "service"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentAuth      = "auth"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpCreate      = "create"
	OpCreateBatch = "create_batch"
	OpRead        = "read"
	OpList        = "list"
	OpUpdate      = "update"
	OpActivate    = "activate"
	OpDeactivate  = "deactivate"
	OpDelete      = "delete"
	OpPurge       = "purge"
	OpPublish     = "publish"
	OpShutdown    = "shutdown"
	OpStartup     = "startup"
)

// OutcomeOK is the outcome of an operation that succeeded. Failed operations
// report their error kind.
const OutcomeOK = "ok"

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeRateLimited   = "rate_limited"
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
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

// WithPeer adds the remote address
func (f LogFields) WithPeer(addr string) LogFields {
	if addr != "" {
		f[FieldPeer] = addr
	}
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

// WithCategory adds category identity fields. Empty values are skipped.
func (f LogFields) WithCategory(id, code string) LogFields {
	if id != "" {
		f[FieldCategoryID] = id
	}
	if code != "" {
		f[FieldCategoryCode] = code
	}
	return f
}

// WithOutcome adds the outcome field
func (f LogFields) WithOutcome(outcome string) LogFields {
	f[FieldOutcome] = outcome
	return f
}

// WithRPC adds RPC call fields
func (f LogFields) WithRPC(method, code string, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldCode] = code
	f[FieldDuration] = durationMs
	f[FieldSuccess] = code == "OK"
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
