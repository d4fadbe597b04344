// Package events publishes job lifecycle events to NATS JetStream so
// other services can react to export/import completion.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"catalog-sync-service/internal/models"
)

const (
	streamName     = "JOB_EVENTS"
	subjectPrefix  = "jobs"
	SubjectStarted = "jobs.started"
	SubjectDone    = "jobs.completed"
	SubjectFailed  = "jobs.failed"
)

// JobEvent is the published payload for one lifecycle transition
type JobEvent struct {
	JobID     string           `json:"jobId"`
	ClientID  string           `json:"clientId"`
	Type      models.JobType   `json:"type"`
	Status    models.JobStatus `json:"status"`
	Error     string           `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Publisher publishes job events. A nil Publisher is a no-op so the
// worker runs fine without a NATS endpoint configured.
type Publisher struct {
	js     nats.JetStreamContext
	logger *logrus.Entry
}

// NewPublisher connects to NATS and ensures the job events stream
func NewPublisher(url string, logger *logrus.Entry) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	_, err = js.StreamInfo(streamName)
	if err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     streamName,
			Subjects: []string{subjectPrefix + ".>"},
			Storage:  nats.FileStorage,
			MaxAge:   7 * 24 * time.Hour,
		})
		if err != nil {
			return nil, fmt.Errorf("creating stream %s: %w", streamName, err)
		}
	}

	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Publisher{js: js, logger: logger}, nil
}

// Publish sends one job event; failures are logged, never propagated
func (p *Publisher) Publish(subject string, event JobEvent) {
	if p == nil {
		return
	}
	event.Timestamp = time.Now().UTC()

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Error("marshaling job event")
		return
	}
	if _, err := p.js.Publish(subject, data); err != nil {
		p.logger.WithFields(logrus.Fields{
			"subject": subject,
			"jobId":   event.JobID,
		}).WithError(err).Warn("publishing job event failed")
	}
}
