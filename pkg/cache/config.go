package cache

const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

type Config struct {
	// Dir is a directory to keep cache files
	Dir string `toml:"dir"`
	// Backend is either "sqlite" (default) or "badger"
	Backend string        `toml:"backend"`
	Badger  *BadgerConfig `toml:"badger"`
}
