// Package worker consumes transformation jobs from the redis queue and
// dispatches them to the export and import pipelines.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"catalog-sync-service/internal/clients"
	"catalog-sync-service/internal/events"
	"catalog-sync-service/internal/export"
	"catalog-sync-service/internal/jobctx"
	"catalog-sync-service/internal/models"
	"catalog-sync-service/internal/notification"
	"catalog-sync-service/internal/repository"
	"catalog-sync-service/internal/storage"
)

// Options bundles worker tuning knobs
type Options struct {
	Queue            string
	Concurrency      int
	BulkPollInterval time.Duration
	BulkPollTimeout  time.Duration
	ImportBatchSize  int
}

// Worker pulls job ids from the queue and runs them. One consumer
// goroutine per concurrency slot; per-client fairness is enforced by
// the semaphore on top.
type Worker struct {
	rdb      *redis.Client
	opts     Options
	catalog  clients.CatalogAPI
	exporter *export.Orchestrator
	store    storage.ArtifactStore
	notifier *notification.Notifier
	logs     *repository.JobLogRepository
	events   *events.Publisher
	sem      *ClientSemaphore
	logger   *logrus.Entry
}

func New(rdb *redis.Client, opts Options, catalog clients.CatalogAPI, exporter *export.Orchestrator, store storage.ArtifactStore, notifier *notification.Notifier, logs *repository.JobLogRepository, publisher *events.Publisher, sem *ClientSemaphore, logger *logrus.Entry) *Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 12
	}
	if opts.BulkPollInterval <= 0 {
		opts.BulkPollInterval = 10 * time.Second
	}
	if opts.BulkPollTimeout <= 0 {
		opts.BulkPollTimeout = 30 * time.Minute
	}
	if opts.ImportBatchSize <= 0 {
		opts.ImportBatchSize = 100
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Worker{
		rdb:      rdb,
		opts:     opts,
		catalog:  catalog,
		exporter: exporter,
		store:    store,
		notifier: notifier,
		logs:     logs,
		events:   publisher,
		sem:      sem,
		logger:   logger,
	}
}

// Run starts the consumer goroutines and blocks until the context is
// cancelled and all in-flight jobs finished.
func (w *Worker) Run(ctx context.Context) {
	w.logger.WithFields(logrus.Fields{
		"queue":       w.opts.Queue,
		"concurrency": w.opts.Concurrency,
	}).Info("worker starting")

	var wg sync.WaitGroup
	for i := 0; i < w.opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.consume(ctx)
		}()
	}
	wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) consume(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		result, err := w.rdb.BRPop(ctx, 5*time.Second, w.opts.Queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			w.logger.WithError(err).Error("queue pop failed")
			time.Sleep(time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}
		jobID := parseJobPayload(result[1])
		if jobID == "" {
			w.logger.WithField("payload", result[1]).Warn("discarding unparseable job payload")
			continue
		}
		w.handle(ctx, jobID)
	}
}

// parseJobPayload accepts both a bare job id and a JSON envelope
// carrying _id or jobId.
func parseJobPayload(payload string) string {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return ""
	}
	if !strings.HasPrefix(payload, "{") {
		return payload
	}
	var envelope struct {
		ID    string `json:"_id"`
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return ""
	}
	if envelope.ID != "" {
		return envelope.ID
	}
	return envelope.JobID
}

func (w *Worker) handle(ctx context.Context, jobID string) {
	log := w.logger.WithField("jobId", jobID)

	job, err := w.catalog.GetJob(ctx, jobID)
	if err != nil {
		log.WithError(err).Error("fetching job record failed")
		return
	}
	if job.Status == models.JobStatusRunning {
		log.Warn("job already running, skipping")
		return
	}
	if job.Status == models.JobStatusTerminated {
		log.Info("job already terminated, skipping")
		return
	}

	release, err := w.sem.Acquire(ctx, job.Config.ClientID)
	if err != nil {
		log.WithError(err).Warn("no worker slot, requeueing job")
		if err := w.rdb.LPush(ctx, w.opts.Queue, jobID).Err(); err != nil {
			log.WithError(err).Error("requeue failed")
		}
		return
	}
	defer release()

	jobCtx, cancel := context.WithTimeout(ctx, w.sem.config.JobTimeout)
	defer cancel()
	jobCtx = jobctx.WithJob(jobCtx, job.ID, job.Config.ClientID)

	w.process(jobCtx, job, log)
}

func (w *Worker) process(ctx context.Context, job *models.TransformationJob, log *logrus.Entry) {
	start := time.Now()
	w.logRun(ctx, job.ID, models.LogLevelInfo, "job started", models.JSONB{"dispatchKey": job.DispatchKey()})
	w.events.Publish(events.SubjectStarted, events.JobEvent{
		JobID:    job.ID,
		ClientID: job.Config.ClientID,
		Type:     job.Type,
		Status:   models.JobStatusRunning,
	})

	if err := w.catalog.UpdateJob(ctx, job.ID, models.JobUpdate{Status: models.JobStatusRunning}); err != nil {
		log.WithError(err).Error("marking job running failed")
		return
	}

	var err error
	switch job.DispatchKey() {
	case "SYNCHRONIZATION_CREATE_LISTING":
		err = w.runExport(ctx, job, log)
	case "IMPORT_SHOPIFY":
		err = w.runImport(ctx, job, log)
	default:
		err = &clients.UnsupportedJobTypeError{DispatchKey: job.DispatchKey()}
	}

	if err != nil {
		w.fail(ctx, job, err, log)
		return
	}
	log.WithField("duration", time.Since(start).String()).Info("job finished")
}

// fail is the single failure path: job status, remarks, run log,
// notification and event. Termination is terminal but not a failure.
func (w *Worker) fail(ctx context.Context, job *models.TransformationJob, jobErr error, log *logrus.Entry) {
	status := models.JobStatusFailed
	if errors.Is(jobErr, export.ErrManuallyTerminated) {
		status = models.JobStatusTerminated
	}
	log.WithError(jobErr).Error("job ended with error")

	update := models.JobUpdate{
		Status:  status,
		Remarks: &models.JobRemarks{Error: jobErr.Error()},
	}
	if err := w.catalog.UpdateJob(ctx, job.ID, update); err != nil {
		log.WithError(err).Error("writing job failure failed")
	}
	w.logRun(ctx, job.ID, models.LogLevelError, "job ended with error", models.JSONB{"error": jobErr.Error()})

	if status == models.JobStatusFailed {
		w.notifier.JobFailed(ctx, job, jobErr.Error())
	}
	w.events.Publish(events.SubjectFailed, events.JobEvent{
		JobID:    job.ID,
		ClientID: job.Config.ClientID,
		Type:     job.Type,
		Status:   status,
		Error:    jobErr.Error(),
	})
}

// logRun writes a run log row; log storage must never fail a job
func (w *Worker) logRun(ctx context.Context, jobID string, level models.LogLevel, message string, data models.JSONB) {
	if w.logs == nil {
		return
	}
	if err := w.logs.Log(ctx, jobID, level, message, data); err != nil {
		w.logger.WithField("jobId", jobID).WithError(err).Warn("writing run log failed")
	}
}

// statusProbe checks the catalog job record for manual termination.
// Lookups are throttled so per-variant polling stays cheap.
type statusProbe struct {
	catalog  clients.CatalogAPI
	interval time.Duration

	mu        sync.Mutex
	lastCheck map[string]time.Time
	lastState map[string]bool
}

// NewStatusProbe builds the termination probe the orchestrator polls
func NewStatusProbe(catalog clients.CatalogAPI, interval time.Duration) export.TerminationProbe {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &statusProbe{
		catalog:   catalog,
		interval:  interval,
		lastCheck: make(map[string]time.Time),
		lastState: make(map[string]bool),
	}
}

func (p *statusProbe) Terminated(ctx context.Context, jobID string) bool {
	p.mu.Lock()
	if time.Since(p.lastCheck[jobID]) < p.interval {
		state := p.lastState[jobID]
		p.mu.Unlock()
		return state
	}
	p.lastCheck[jobID] = time.Now()
	p.mu.Unlock()

	job, err := p.catalog.GetJob(ctx, jobID)
	terminated := err == nil && job != nil && job.Status == models.JobStatusTerminated

	p.mu.Lock()
	p.lastState[jobID] = terminated
	p.mu.Unlock()
	return terminated
}
