package queue

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/storage"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/transcribe"
	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// Runner is the transcription pipeline entry point the pool drives.
type Runner interface {
	Run(ctx context.Context, source types.AudioSource, opts types.Options, sink types.ProgressSink) (*types.Transcript, error)
}

// Archiver uploads a finished transcript somewhere off-box. Optional.
type Archiver interface {
	Upload(ctx context.Context, t *types.Transcript) (string, error)
}

// WorkerPool drains queued jobs through the pipeline and persists results.
// Each worker processes jobs strictly one at a time; the pipeline itself is
// sequential by design, so parallelism only exists across jobs.
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	runner      Runner
	store       *storage.Local
	db          *storage.MetadataDB
	archiver    Archiver

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewWorkerPool wires the pool. db and archiver may be nil.
func NewWorkerPool(workerCount int, runner Runner, store *storage.Local, db *storage.MetadataDB, archiver Archiver) *WorkerPool {
	return &WorkerPool{
		jobQueue:    make(chan *Job, 100),
		workerCount: workerCount,
		runner:      runner,
		store:       store,
		db:          db,
		archiver:    archiver,
		jobs:        make(map[string]*Job),
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	log.WithField("workers", wp.workerCount).Info("starting worker pool")
	for i := 0; i < wp.workerCount; i++ {
		go wp.worker(i)
	}
}

// Enqueue registers and queues a job.
func (wp *WorkerPool) Enqueue(job *Job) {
	wp.mu.Lock()
	wp.jobs[job.ID] = job
	wp.mu.Unlock()
	wp.jobQueue <- job
	log.WithFields(log.Fields{"job_id": job.ID, "file": job.FileName}).Info("job enqueued")
}

// Snapshot returns the handler-facing view of a job.
func (wp *WorkerPool) Snapshot(id string) (JobView, bool) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	job, ok := wp.jobs[id]
	if !ok {
		return JobView{}, false
	}
	return JobView{
		ID:        job.ID,
		FileName:  job.FileName,
		Status:    job.Status,
		Progress:  job.Progress,
		Error:     job.Err,
		CreatedAt: job.CreatedAt,
	}, true
}

// Transcript returns a finished job's transcript.
func (wp *WorkerPool) Transcript(id string) (*types.Transcript, bool) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	job, ok := wp.jobs[id]
	if !ok || job.Result == nil {
		return nil, false
	}
	return job.Result, true
}

func (wp *WorkerPool) worker(id int) {
	log.WithField("worker", id).Debug("worker started")
	for job := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{"worker": id, "job_id": job.ID}).
						Errorf("panic processing job: %v\n%s", r, string(debug.Stack()))
					wp.finishFailed(job, transcribe.NewError(transcribe.CodeAPIError,
						fmt.Sprintf("internal error: %v", r)))
				}
			}()
			wp.process(id, job)
		}()
	}
}

func (wp *WorkerPool) process(workerID int, job *Job) {
	log.WithFields(log.Fields{"worker": workerID, "job_id": job.ID}).Info("processing job")
	wp.setStatus(job, types.StatusProcessing)

	sink := types.ProgressFunc(func(p types.ChunkProgress) {
		wp.mu.Lock()
		job.Progress = p
		wp.mu.Unlock()
	})

	result, err := wp.runner.Run(context.Background(), job.Source, job.Options, sink)
	if err != nil {
		log.WithFields(log.Fields{"worker": workerID, "job_id": job.ID}).WithError(err).Warn("transcription failed")
		wp.finishFailed(job, transcribe.AsError(err))
		return
	}

	localPath, err := wp.store.SaveTranscript(result)
	if err != nil {
		log.WithField("job_id", job.ID).WithError(err).Error("local save failed")
		wp.finishFailed(job, transcribe.NewError(transcribe.CodeAPIError, "Failed to store transcript."))
		return
	}

	var driveURL string
	if wp.archiver != nil {
		for attempt := 1; attempt <= 3; attempt++ {
			driveURL, err = wp.archiver.Upload(context.Background(), result)
			if err == nil {
				break
			}
			log.WithFields(log.Fields{"job_id": job.ID, "attempt": attempt}).WithError(err).Warn("archive upload failed")
			if attempt < 3 {
				time.Sleep(time.Duration(attempt*attempt) * time.Second)
			}
		}
		if err != nil {
			log.WithField("job_id", job.ID).Warn("archive upload exhausted retries, keeping local copy only")
			driveURL = ""
		}
	}

	if wp.db != nil {
		if err := wp.db.SaveTranscript(job.ID, result, localPath, driveURL); err != nil {
			log.WithField("job_id", job.ID).WithError(err).Error("metadata save failed")
		}
	}

	wp.mu.Lock()
	job.Result = result
	job.LocalPath = localPath
	job.DriveURL = driveURL
	job.Status = types.StatusCompleted
	job.Source = types.AudioSource{} // release the upload buffer
	wp.mu.Unlock()

	log.WithFields(log.Fields{"worker": workerID, "job_id": job.ID, "path": localPath}).Info("job completed")
}

func (wp *WorkerPool) setStatus(job *Job, status string) {
	wp.mu.Lock()
	job.Status = status
	wp.mu.Unlock()
}

func (wp *WorkerPool) finishFailed(job *Job, terr *transcribe.Error) {
	wp.mu.Lock()
	job.Status = types.StatusFailed
	job.Err = terr
	job.Source = types.AudioSource{}
	wp.mu.Unlock()
}
