package metrics

import (
	"fmt"
	"os"
	"runtime"
)

// SysHealth is a point-in-time snapshot of the running process, shown by
// the bot's status command.
type SysHealth struct {
	HeapMB     uint64
	Goroutines int
	NumGC      uint32
	DBSize     string
}

// GetSysHealth collects a health snapshot. dbPath is the sqlite file; a
// missing file reports "0 B" rather than an error.
func GetSysHealth(dbPath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var dbSize int64
	if info, err := os.Stat(dbPath); err == nil {
		dbSize = info.Size()
	}

	return SysHealth{
		HeapMB:     m.Alloc / 1024 / 1024,
		Goroutines: runtime.NumGoroutine(),
		NumGC:      m.NumGC,
		DBSize:     humanSize(dbSize),
	}
}

func humanSize(n int64) string {
	switch {
	case n >= 1024*1024*1024:
		return fmt.Sprintf("%.1f GB", float64(n)/(1024*1024*1024))
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
