package fsutil

import "time"

// clockNow is overridden in tests that need deterministic timestamps.
var clockNow = time.Now

func nowUnixSeconds() int64 {
	return clockNow().Unix()
}
