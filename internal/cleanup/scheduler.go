// Package cleanup removes stale intermediate audio and WhisperX output.
package cleanup

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Stats summarizes one sweep.
type Stats struct {
	Files int
	Dirs  int
	Bytes int64
}

// Scheduler periodically sweeps the temp directory. Stored videos live
// elsewhere and are never touched.
type Scheduler struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	log      logrus.FieldLogger

	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

const (
	defaultInterval = 30 * time.Minute
	defaultMaxAge   = 6 * time.Hour
)

// NewScheduler creates a stopped scheduler. Non-positive durations fall back
// to the defaults.
func NewScheduler(tempDir string, interval, maxAge time.Duration, log logrus.FieldLogger) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	return &Scheduler{
		tempDir:  tempDir,
		interval: interval,
		maxAge:   maxAge,
		log:      log,
		stop:     make(chan struct{}),
		now:      time.Now,
	}
}

// Start runs one sweep immediately and then one per interval until Stop.
func (s *Scheduler) Start() {
	s.Sweep()

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stop:
				return
			}
		}
	}()

	s.log.WithFields(logrus.Fields{
		"interval": s.interval.String(),
		"max_age":  s.maxAge.String(),
	}).Info("Cleanup scheduler started")
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.log.Info("Cleanup scheduler stopped")
	})
}

// Sweep deletes files older than maxAge, then removes stale directories left
// empty.
func (s *Scheduler) Sweep() Stats {
	var (
		stats Stats
		dirs  []string
		now   = s.now()
	)

	err := filepath.WalkDir(s.tempDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		if d.IsDir() {
			// Fresh directories may belong to a running transcription.
			if path != s.tempDir && now.Sub(info.ModTime()) > s.maxAge {
				dirs = append(dirs, path)
			}
			return nil
		}

		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			return nil
		}

		if err := os.Remove(path); err != nil {
			s.log.WithError(err).WithField("path", path).Warn("Failed to delete old temp file")
			return nil
		}
		stats.Files++
		stats.Bytes += info.Size()
		s.log.WithFields(logrus.Fields{
			"file": filepath.Base(path),
			"age":  age.Round(time.Minute).String(),
		}).Debug("Deleted old temp file")
		return nil
	})
	if err != nil {
		s.log.WithError(err).Warn("Error during cleanup")
	}

	// Deepest first so nested run directories collapse.
	for i := len(dirs) - 1; i >= 0; i-- {
		if os.Remove(dirs[i]) == nil {
			stats.Dirs++
		}
	}

	if stats.Files > 0 || stats.Dirs > 0 {
		s.log.WithFields(logrus.Fields{
			"files":    stats.Files,
			"dirs":     stats.Dirs,
			"freed_mb": float64(stats.Bytes) / (1024 * 1024),
		}).Info("Cleanup complete")
	}
	return stats
}

// EnsureDir creates dir if it doesn't exist
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
