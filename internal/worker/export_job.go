package worker

import (
	"context"

	"github.com/sirupsen/logrus"

	"catalog-sync-service/internal/artifact"
	"catalog-sync-service/internal/events"
	"catalog-sync-service/internal/export"
	"catalog-sync-service/internal/models"
	"catalog-sync-service/internal/storage"
)

// runExport executes a SYNCHRONIZATION_CREATE_LISTING job: build the
// rows, render the workbook, upload, finalize the job record.
func (w *Worker) runExport(ctx context.Context, job *models.TransformationJob, log *logrus.Entry) error {
	spec := export.JobSpec{
		JobID:              job.ID,
		ClientID:           job.Config.ClientID,
		ProductTypeID:      job.Config.ProductTypeID,
		Channel:            job.Config.Channel,
		OutputTemplateName: job.Config.OutputTemplateName,
		Filters:            job.Config.Filters,
	}

	result, err := w.exporter.Run(ctx, spec)
	if err != nil {
		return err
	}

	workbook, err := artifact.WriteWorkbook(result, result.Template, result.CodeAsHeader)
	if err != nil {
		return err
	}

	remarks := &models.JobRemarks{
		Stats:           &result.Stats,
		SkippedNoHandle: result.SkippedNoHandle,
	}

	// upload failures degrade to an empty file reference; the rows were
	// built and the job still completes
	fileURL := ""
	if job.Config.UploadToS3 && w.store != nil {
		key := storage.ExportKey(job.Config.ClientID, job.ID, job.Config.Channel)
		fileURL, err = w.store.Upload(ctx, key, workbook, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err != nil {
			log.WithError(err).Error("export artifact upload failed")
			fileURL = ""
		}
	}
	remarks.File = fileURL

	status := models.JobStatusCompleted
	if result.Stats.Failed > 0 {
		status = models.JobStatusPartialSuccess
	}
	if err := w.catalog.UpdateJob(ctx, job.ID, models.JobUpdate{Status: status, Remarks: remarks}); err != nil {
		return err
	}

	w.logRun(ctx, job.ID, models.LogLevelInfo, "export completed", models.JSONB{
		"rows":            len(result.ExportData),
		"parentRows":      len(result.ParentRows),
		"skippedNoHandle": result.SkippedNoHandle,
		"file":            fileURL,
	})
	w.notifier.JobSucceeded(ctx, job, fileURL)
	w.events.Publish(events.SubjectDone, events.JobEvent{
		JobID:    job.ID,
		ClientID: job.Config.ClientID,
		Type:     job.Type,
		Status:   status,
	})
	return nil
}
