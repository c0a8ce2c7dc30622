package constants

import "time"

const ServiceName = "viewfilter-service"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultMongoDBName = "viewfilter"
)

const (
	ShutdownTimeout = 5 * time.Second
	InitTimeout     = 30 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	// UserIDHeader carries the authenticated user id set by the upstream proxy.
	UserIDHeader = "X-User-ID"
)
