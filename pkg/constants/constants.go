package constants

// Closed set of recognized lock backend identifiers. Resolution from
// identifier to factory constructor happens once, at configuration time.
const (
	NoneBackend    = "none"
	ProcessBackend = "proc"
	FileBackend    = "file"
	RedisBackend   = "redis"
	EtcdBackend    = "etcd"
	// ExternalBackend is the legacy selector for the shared-store backend,
	// accepted as an alias of RedisBackend.
	ExternalBackend = "external"
)

// DefaultLockDir is where the file backend keeps its lock files when no
// directory is configured.
const DefaultLockDir = "/var/run/worklock"
