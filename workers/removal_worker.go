package workers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/camden-git/tryonbackend/media"
	"github.com/camden-git/tryonbackend/realtime"
	"github.com/camden-git/tryonbackend/removal"
	"github.com/camden-git/tryonbackend/tryon"
)

// RemovalJob asks for the background of one subject photo to be removed.
type RemovalJob struct {
	SessionID string
	SubjectID string
	ImagePath string // media-store relative path of the normalized photo
}

// RemovalProcessor runs background-removal jobs on a worker pool. Each job
// walks the subject through removing-background and into completed or failed;
// the original photo stays displayed and usable on failure.
type RemovalProcessor struct {
	JobQueue chan RemovalJob
	Pipeline *removal.Pipeline
	Cache    *removal.ResultCache
	Options  removal.Options
	Sessions *tryon.SessionManager
	Store    media.Store
	Hub      *realtime.Hub

	Wg       sync.WaitGroup
	StopChan chan struct{}
	Pending  map[string]bool
	Mutex    sync.Mutex
}

func NewRemovalProcessor(pipeline *removal.Pipeline, cache *removal.ResultCache, opts removal.Options,
	sessions *tryon.SessionManager, store media.Store, hub *realtime.Hub, queueSize, numWorkers int) *RemovalProcessor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 32
	}
	proc := &RemovalProcessor{
		JobQueue: make(chan RemovalJob, queueSize),
		Pipeline: pipeline,
		Cache:    cache,
		Options:  opts,
		Sessions: sessions,
		Store:    store,
		Hub:      hub,
		StopChan: make(chan struct{}),
		Pending:  make(map[string]bool),
	}
	proc.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i)
	}
	log.Printf("started %d removal worker(s) with queue size %d", numWorkers, queueSize)
	return proc
}

// QueueJob enqueues a removal unless one is already pending for the subject.
func (rp *RemovalProcessor) QueueJob(job RemovalJob) bool {
	rp.Mutex.Lock()
	if rp.Pending[job.SubjectID] {
		rp.Mutex.Unlock()
		log.Printf("removal for subject %s already pending, skipping queue", job.SubjectID)
		return false
	}
	rp.Pending[job.SubjectID] = true
	rp.Mutex.Unlock()

	select {
	case rp.JobQueue <- job:
		log.Printf("queued background removal for subject %s", job.SubjectID)
		return true
	default:
		log.Printf("WARNING: removal job queue full, failed to queue subject %s", job.SubjectID)
		rp.Mutex.Lock()
		delete(rp.Pending, job.SubjectID)
		rp.Mutex.Unlock()
		return false
	}
}

func (rp *RemovalProcessor) Stop() {
	log.Println("stopping removal processor...")
	close(rp.StopChan)
	rp.Wg.Wait()
	log.Println("all removal workers stopped")
}

func (rp *RemovalProcessor) worker(id int) {
	defer rp.Wg.Done()
	log.Printf("removal worker %d started", id)
	for {
		select {
		case job, ok := <-rp.JobQueue:
			if !ok {
				log.Printf("removal worker %d stopping: job queue closed", id)
				return
			}
			rp.processJob(id, job)
			rp.Mutex.Lock()
			delete(rp.Pending, job.SubjectID)
			rp.Mutex.Unlock()

		case <-rp.StopChan:
			log.Printf("removal worker %d stopping: stop signal received", id)
			return
		}
	}
}

func (rp *RemovalProcessor) processJob(workerID int, job RemovalJob) {
	session, ok := rp.Sessions.Get(job.SessionID)
	if !ok {
		log.Printf("worker %d: session %s gone, dropping removal job", workerID, job.SessionID)
		return
	}

	// status must be visible before any dependent re-render; MarkSubjectRemoving
	// notifies store subscribers after the transition commits
	if !session.Store.MarkSubjectRemoving(job.SubjectID) {
		log.Printf("worker %d: subject %s was replaced, dropping removal job", workerID, job.SubjectID)
		return
	}
	rp.broadcastSubject(session, job)

	cutoutPath, err := rp.removeBackground(job)
	if err != nil {
		log.Printf("worker %d: background removal failed for subject %s: %v", workerID, job.SubjectID, err)
		session.Store.SetSubjectFailed(job.SubjectID, err.Error())
		rp.broadcastSubject(session, job)
		return
	}

	if session.Store.SetSubjectCompleted(job.SubjectID, cutoutPath) {
		// the cutout replaces the original on the surface; its decode is dead
		session.Engine.InvalidateCache(job.ImagePath)
		log.Printf("worker %d: background removal completed for subject %s -> %s", workerID, job.SubjectID, cutoutPath)
	}
	rp.broadcastSubject(session, job)
}

// removeBackground produces a stored cutout for the job's photo, consulting
// the result cache before running the pipeline.
func (rp *RemovalProcessor) removeBackground(job RemovalJob) (string, error) {
	reader, _, err := rp.Store.Get(job.ImagePath)
	if err != nil {
		return "", fmt.Errorf("failed to open subject photo: %w", err)
	}
	raw, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return "", fmt.Errorf("failed to read subject photo: %w", err)
	}

	ctx := context.Background()
	hash := removal.HashImageData(raw)

	if cached, ok := rp.Cache.Get(ctx, hash); ok {
		log.Printf("removal: cache hit for subject %s", job.SubjectID)
		return rp.Store.Save(media.AssetTypeCutout, "", bytes.NewReader(cached))
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to decode subject photo: %w", err)
	}

	result, err := rp.Pipeline.Remove(ctx, img, rp.Options)
	if err != nil {
		return "", err
	}

	var encoded bytes.Buffer
	if err := imaging.Encode(&encoded, result.Image, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode cutout: %w", err)
	}

	rp.Cache.Set(ctx, hash, encoded.Bytes())
	return rp.Store.Save(media.AssetTypeCutout, "", bytes.NewReader(encoded.Bytes()))
}

func (rp *RemovalProcessor) broadcastSubject(session *tryon.Session, job RemovalJob) {
	if rp.Hub == nil {
		return
	}
	subj := session.Store.Subject()
	if subj == nil {
		return
	}
	rp.Hub.Broadcast(realtime.Event{
		Type:      realtime.EventSubjectStatus,
		SessionID: job.SessionID,
		Status:    string(subj.Status),
		Error:     subj.Error,
	})
}
