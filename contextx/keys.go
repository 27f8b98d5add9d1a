package contextx

type contextKey int

const (
	actorKey contextKey = iota
	requestIDKey
	groupKey
	loggerKey
)
