package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueName(t *testing.T) {
	cfg := &Config{Environment: "production", QueueBaseName: "transformation_jobs"}
	assert.Equal(t, "production_transformation_jobs", cfg.QueueName())

	cfg.Environment = "staging"
	assert.Equal(t, "staging_transformation_jobs", cfg.QueueName())
}
