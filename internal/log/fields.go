package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldPeriod    = "period"
	FieldStart     = "period_start"
	FieldPaid      = "paid"
	FieldLimit     = "limit"
	FieldUsage     = "usage"
	FieldBackend   = "backend"
	FieldInterval  = "interval"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentBackend = "backend"
	ComponentBudget  = "budget"
	ComponentStorage = "storage"
	ComponentWorker  = "worker"
)

// Operations defines standard operation names
const (
	OpRefresh  = "refresh"
	OpSeed     = "seed"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
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

// WithPeriod adds the fields describing one budget period
func (f LogFields) WithPeriod(name, start string, paid, limit int64, usage string) LogFields {
	f[FieldPeriod] = name
	f[FieldStart] = start
	f[FieldPaid] = paid
	f[FieldLimit] = limit
	f[FieldUsage] = usage
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
