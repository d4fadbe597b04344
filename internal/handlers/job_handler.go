package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"catalog-sync-service/internal/repository"
	"catalog-sync-service/internal/worker"
)

// JobHandler exposes the admin surface: manual job trigger, run logs
// and worker concurrency stats.
type JobHandler struct {
	rdb    *redis.Client
	queue  string
	logs   *repository.JobLogRepository
	sem    *worker.ClientSemaphore
	logger *logrus.Entry
}

// NewJobHandler creates a new job handler
func NewJobHandler(rdb *redis.Client, queue string, logs *repository.JobLogRepository, sem *worker.ClientSemaphore, logger *logrus.Entry) *JobHandler {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &JobHandler{rdb: rdb, queue: queue, logs: logs, sem: sem, logger: logger}
}

// Run enqueues one job for processing.
// POST /api/v1/jobs/:id/run
func (h *JobHandler) Run(c *gin.Context) {
	jobID := c.Param("id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job id is required"})
		return
	}

	if err := h.rdb.LPush(c.Request.Context(), h.queue, jobID).Err(); err != nil {
		h.logger.WithField("jobId", jobID).WithError(err).Error("enqueueing job failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":  jobID,
		"queued": true,
	})
}

// Logs returns a job's run log entries.
// GET /api/v1/jobs/:id/logs
func (h *JobHandler) Logs(c *gin.Context) {
	jobID := c.Param("id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	logs, err := h.logs.ListByJob(c.Request.Context(), jobID, limit)
	if err != nil {
		h.logger.WithField("jobId", jobID).WithError(err).Error("listing run logs failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}

// Stats returns the worker concurrency state.
// GET /api/v1/workers/stats
func (h *JobHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.sem.Stats())
}
