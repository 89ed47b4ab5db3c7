package logger

// Standard field names for consistent logging.
const (
	FieldService    = "service"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldUserID     = "user_id"
	FieldChatID     = "chat_id"
	FieldCollection = "collection"
	FieldEntityID   = "entity_id"
	FieldAction     = "action"
	FieldRequestID  = "request_id"
	FieldSession    = "session"
)
