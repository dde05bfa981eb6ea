package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUserID = "user_id"
	FieldConnID = "conn_id"

	// Pipeline
	FieldRoomID      = "room_id"
	FieldMessageID   = "message_id"
	FieldClientMsgID = "client_msg_id"
	FieldEventID     = "event_id"
	FieldTopic       = "topic"
	FieldPartition   = "partition"
	FieldOffset      = "offset"

	// Process
	FieldService    = "service"
	FieldInstanceID = "instance_id"
)
