// Package notification sends job outcome notifications through the
// internal catalog API. Delivery is best-effort: a notification
// failure is logged and never fails the job.
package notification

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"catalog-sync-service/internal/clients"
	"catalog-sync-service/internal/models"
)

const module = "catalog-sync"

// Notifier wraps the catalog notification endpoint
type Notifier struct {
	catalog clients.CatalogAPI
	logger  *logrus.Entry
}

func New(catalog clients.CatalogAPI, logger *logrus.Entry) *Notifier {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Notifier{catalog: catalog, logger: logger}
}

// JobSucceeded notifies the initiating user of a finished job
func (n *Notifier) JobSucceeded(ctx context.Context, job *models.TransformationJob, fileURL string) {
	n.send(ctx, job, "SUCCESS", fmt.Sprintf("Job %s completed", job.ID), map[string]interface{}{
		"jobId": job.ID,
		"file":  fileURL,
	})
}

// JobFailed notifies the initiating user of a failed job
func (n *Notifier) JobFailed(ctx context.Context, job *models.TransformationJob, reason string) {
	n.send(ctx, job, "FAILURE", fmt.Sprintf("Job %s failed: %s", job.ID, reason), map[string]interface{}{
		"jobId": job.ID,
		"error": reason,
	})
}

func (n *Notifier) send(ctx context.Context, job *models.TransformationJob, kind, message string, refData map[string]interface{}) {
	notif := models.Notification{
		Channels: []string{"EMAIL", "IN_APP"},
		Module:   module,
		Type:     kind,
		Message:  message,
		RefData:  refData,
	}
	if job.User.InitiatedBy != "" {
		notif.Users = []string{job.User.InitiatedBy}
	}

	if err := n.catalog.SendNotification(ctx, notif); err != nil {
		n.logger.WithField("jobId", job.ID).WithError(err).Warn("notification delivery failed")
	}
}
