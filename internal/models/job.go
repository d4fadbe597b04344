package models

import (
	"fmt"
	"time"
)

// JobType represents the top-level job category
type JobType string

const (
	JobTypeSynchronization JobType = "SYNCHRONIZATION"
	JobTypeImport          JobType = "IMPORT"
)

// JobSubType narrows the job category to a concrete operation
type JobSubType string

const (
	JobSubTypeCreateListing JobSubType = "CREATE_LISTING"
	JobSubTypeShopify       JobSubType = "SHOPIFY"
)

// JobStatus represents the status of a transformation job
type JobStatus string

const (
	JobStatusPending        JobStatus = "PENDING"
	JobStatusRunning        JobStatus = "RUNNING"
	JobStatusCompleted      JobStatus = "COMPLETED"
	JobStatusPartialSuccess JobStatus = "PARTIAL_SUCCESS"
	JobStatusFailed         JobStatus = "FAILED"
	JobStatusTerminated     JobStatus = "TERMINATED"
)

// JobStats accumulates per-job counters surfaced in remarks
type JobStats struct {
	Total    int `json:"total"`
	Exported int `json:"exported,omitempty"`
	Created  int `json:"created,omitempty"`
	Updated  int `json:"updated,omitempty"`
	Skipped  int `json:"skipped,omitempty"`
	Failed   int `json:"failed,omitempty"`
}

// JobConfig carries the parameters the job runs with
type JobConfig struct {
	ClientID           string            `json:"clientId"`
	ProductTypeID      string            `json:"productTypeId"`
	Channel            string            `json:"channel"`
	OutputTemplateName string            `json:"outputTemplateName,omitempty"`
	Filters            map[string]string `json:"filters,omitempty"`
	UploadToS3         bool              `json:"uploadToS3,omitempty"`
	Marketplace        string            `json:"marketplace,omitempty"`
	RerunOfJobID       string            `json:"rerunOfJobId,omitempty"`
}

// JobUser identifies who initiated the job
type JobUser struct {
	InitiatedBy string `json:"initiated_by"`
	Email       string `json:"email,omitempty"`
}

// JobRemarks holds the job's outcome details written back to the job record
type JobRemarks struct {
	Error           string    `json:"error,omitempty"`
	Stats           *JobStats `json:"stats,omitempty"`
	File            string    `json:"file,omitempty"`
	FailedRowsFile  string    `json:"failedRowsFile,omitempty"`
	SkippedNoHandle int       `json:"skippedNoHandle,omitempty"`
}

// TransformationJob is the job record held by the internal catalog service
type TransformationJob struct {
	ID        string      `json:"_id"`
	Type      JobType     `json:"type"`
	SubType   JobSubType  `json:"sub_type"`
	Status    JobStatus   `json:"status"`
	Config    JobConfig   `json:"config"`
	User      JobUser     `json:"user"`
	InputFile string      `json:"input_file,omitempty"`
	Remarks   *JobRemarks `json:"remarks,omitempty"`
	CreatedAt time.Time   `json:"createdAt,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt,omitempty"`
}

// DispatchKey combines type and sub-type into the worker dispatch key,
// e.g. SYNCHRONIZATION_CREATE_LISTING.
func (j *TransformationJob) DispatchKey() string {
	return fmt.Sprintf("%s_%s", j.Type, j.SubType)
}

// JobUpdate is the partial update pushed to the catalog job record
type JobUpdate struct {
	Status  JobStatus   `json:"status,omitempty"`
	Remarks *JobRemarks `json:"remarks,omitempty"`
}

// FailedRow is one failed product/variant recorded into the failed-rows
// artifact; rerun jobs use the ProductID::VariantID pair to filter the
// working set.
type FailedRow struct {
	ProductID   string `json:"product_id"`
	ProductSKU  string `json:"product_sku,omitempty"`
	VariantID   string `json:"variant_id,omitempty"`
	VariantSKU  string `json:"variant_sku,omitempty"`
	ProductType string `json:"product_type,omitempty"`
	Remarks     string `json:"remarks"`
}

// Key returns the product::variant identity used by rerun filtering
func (r FailedRow) Key() string {
	return r.ProductID + "::" + r.VariantID
}

// Notification is the payload sent to the internal notification endpoint
type Notification struct {
	Channels []string               `json:"channels"`
	Users    []string               `json:"users,omitempty"`
	Module   string                 `json:"module"`
	Type     string                 `json:"type"`
	Message  string                 `json:"message"`
	RefData  map[string]interface{} `json:"refData,omitempty"`
}
