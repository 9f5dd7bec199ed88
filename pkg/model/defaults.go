package model

import (
	"time"
)

const (
	DefaultFailureThreshold = 10
	DefaultRequestTimeout   = 10 * time.Second
	DefaultCacheDirName     = ".ytenrich"
	DefaultCacheBackend     = "sqlite"
	DefaultLogMaxSize       = 50 // megabytes
	DefaultLogMaxAge        = 30 // days
	DefaultLogMaxBackups    = 7
)
