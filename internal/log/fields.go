package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldFile       = "file"
	FieldRevision   = "revision"
	FieldRows       = "rows"
	FieldWarnings   = "warnings"
)

// Components defines standard component names
const (
	ComponentApp    = "app"
	ComponentHTTP   = "http"
	ComponentDerive = "derive"
	ComponentAMQP   = "amqp"
	ComponentWorker = "worker"
)

// Operations defines standard operation names
const (
	OpParse     = "parse"
	OpDerive    = "derive"
	OpRecompute = "recompute"
	OpPublish   = "publish"
	OpConsume   = "consume"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)
