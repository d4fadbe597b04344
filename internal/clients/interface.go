package clients

import (
	"context"

	"catalog-sync-service/internal/models"
)

// CatalogAPI is the narrow surface the worker and the export engine
// need from the internal catalog service. The concrete HTTP client
// lives in clients/catalog; tests substitute a mock.
type CatalogAPI interface {
	// Products
	FetchProducts(ctx context.Context, clientID, productTypeID, channel string, filters map[string]string) ([]models.CatalogProduct, error)

	// Configuration
	FetchMappingProfile(ctx context.Context, clientID, productTypeID, channel string) (*models.MappingProfile, error)
	FetchClientConfig(ctx context.Context, clientID string) (*models.ClientConstants, error)
	FetchProductTypeConfig(ctx context.Context, productTypeID string) (*models.ProductTypeConstants, error)
	FetchMarketplaceConfig(ctx context.Context, clientID, marketplace string) (*models.MarketplaceConfig, error)

	// Jobs
	GetJob(ctx context.Context, jobID string) (*models.TransformationJob, error)
	UpdateJob(ctx context.Context, jobID string, update models.JobUpdate) error

	// Import write-back
	BulkUpdateVariants(ctx context.Context, updates []models.VariantUpdate) error

	// Notifications
	SendNotification(ctx context.Context, n models.Notification) error
}

// UnsupportedJobTypeError is returned when a queued job's dispatch key
// has no registered processor
type UnsupportedJobTypeError struct {
	DispatchKey string
}

func (e *UnsupportedJobTypeError) Error() string {
	return "unsupported job type: " + e.DispatchKey
}
