package cleanup

import (
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

// Scheduler periodically removes stale files from the temp directory. The
// ffmpeg fallback and the chunk endpoint both stage intermediate files there;
// anything older than maxAge is leftover from an interrupted run.
type Scheduler struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	stopChan chan struct{}
}

// NewScheduler creates a cleanup scheduler for tempDir.
func NewScheduler(tempDir string, interval, maxAge time.Duration) *Scheduler {
	return &Scheduler{
		tempDir:  tempDir,
		interval: interval,
		maxAge:   maxAge,
		stopChan: make(chan struct{}),
	}
}

// Start runs one immediate sweep and then sweeps on every tick until Stop.
func (s *Scheduler) Start() {
	s.sweep()

	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.WithFields(log.Fields{"interval": s.interval, "max_age": s.maxAge}).
		Info("cleanup scheduler started")
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Info("cleanup scheduler stopped")
}

func (s *Scheduler) sweep() {
	now := time.Now()
	var deletedCount int
	var deletedSize int64

	err := filepath.Walk(s.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if now.Sub(info.ModTime()) <= s.maxAge {
			return nil
		}
		size := info.Size()
		if err := os.Remove(path); err != nil {
			log.WithField("path", path).WithError(err).Warn("failed to delete stale temp file")
			return nil
		}
		deletedCount++
		deletedSize += size
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("temp cleanup sweep failed")
	}

	if deletedCount > 0 {
		log.WithFields(log.Fields{
			"files":    deletedCount,
			"freed_mb": float64(deletedSize) / (1024 * 1024),
		}).Info("temp cleanup complete")
	}
}

// EnsureTempDirExists creates the temp directory if needed.
func EnsureTempDirExists(tempDir string) error {
	return os.MkdirAll(tempDir, 0755)
}
