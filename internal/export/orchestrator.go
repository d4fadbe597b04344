package export

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"catalog-sync-service/internal/clients"
	"catalog-sync-service/internal/models"
)

// JobSpec is the scope one export run operates on
type JobSpec struct {
	JobID              string
	ClientID           string
	ProductTypeID      string
	Channel            string
	OutputTemplateName string
	Filters            map[string]string
}

// Result is the full export payload handed to the artifact writers and
// the job record.
type Result struct {
	ExportData []FinalRow
	ParentRows []FinalRow

	MapperInfo                      models.MapperProfile
	ColumnCodeLabelMapper           map[string]string
	ColumnLabelCodeMapper           map[string]string
	ColumnPossibleValues            map[string][]string
	ColumnPossibleValuesInLowerCase map[string][]string
	AttributeWithValidations        ValidationMetadata

	Template     models.OutputTemplate
	CodeAsHeader bool

	SkippedNoHandle int
	Stats           models.JobStats
}

// TerminationProbe reports whether a job was terminated from outside.
// It is polled between variants so a termination takes effect quickly.
type TerminationProbe interface {
	Terminated(ctx context.Context, jobID string) bool
}

// Orchestrator drives one export job end to end: configuration fetch,
// per-variant row building, channel row expansion. Processing within a
// job is strictly sequential; concurrency exists only across jobs.
type Orchestrator struct {
	catalog    clients.CatalogAPI
	policies   models.PolicyTable
	channels   models.ChannelTable
	parentKeys models.ParentKeyTable
	probe      TerminationProbe
	logger     *logrus.Entry
}

func NewOrchestrator(catalog clients.CatalogAPI, policies models.PolicyTable, channels models.ChannelTable, parentKeys models.ParentKeyTable, probe TerminationProbe, logger *logrus.Entry) *Orchestrator {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Orchestrator{
		catalog:    catalog,
		policies:   policies,
		channels:   channels,
		parentKeys: parentKeys,
		probe:      probe,
		logger:     logger,
	}
}

// Run executes one export job. It fails fast with a ConfigurationError
// on unresolved configuration, with a NoProductsError on an empty
// fetch, and with ErrManuallyTerminated when the termination probe
// fires between variants.
func (o *Orchestrator) Run(ctx context.Context, spec JobSpec) (*Result, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}
	log := o.logger.WithField("jobId", spec.JobID)

	profile, err := o.catalog.FetchMappingProfile(ctx, spec.ClientID, spec.ProductTypeID, spec.Channel)
	if err != nil {
		return nil, fmt.Errorf("fetching mapping profile: %w", err)
	}
	if profile == nil {
		return nil, &ConfigurationError{Field: "mappingProfile", Detail: "no mapping present for client/productType/channel"}
	}
	if profile.Status != models.ProfileEnabled {
		return nil, &ConfigurationError{Field: "mappingProfile", Detail: "mapping profile is not enabled"}
	}

	clientCfg, err := o.catalog.FetchClientConfig(ctx, spec.ClientID)
	if err != nil {
		return nil, fmt.Errorf("fetching client config: %w", err)
	}
	if clientCfg == nil {
		return nil, &ConfigurationError{Field: "client", Detail: "client configuration not found"}
	}
	productTypeCfg, err := o.catalog.FetchProductTypeConfig(ctx, spec.ProductTypeID)
	if err != nil {
		return nil, fmt.Errorf("fetching product type config: %w", err)
	}
	if productTypeCfg == nil {
		return nil, &ConfigurationError{Field: "productType", Detail: "product type configuration not found"}
	}

	products, err := o.catalog.FetchProducts(ctx, spec.ClientID, spec.ProductTypeID, spec.Channel, spec.Filters)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, &NoProductsError{ClientID: spec.ClientID, ProductTypeID: spec.ProductTypeID, Channel: spec.Channel}
	}

	channel := o.channels.For(spec.Channel)
	policy := o.policies.For(spec.ClientID)
	mappers := profile.Template.Mappers()
	builder := &RowBuilder{Channel: channel, Mappers: mappers, Policy: policy, Logger: log}
	parentCfg := o.parentKeys.Resolve(spec.OutputTemplateName, spec.Channel, spec.ClientID)
	strategy := StrategyFor(channel, parentCfg, builder, policy)

	// constant contexts are built once per job, not per variant
	clientCtx := FlattenConstants(clientCfg.Constants)
	productTypeCtx := FlattenConstants(productTypeCfg.Constants)

	validations := make(ValidationMetadata)
	stats := models.JobStats{}

	for pi := range products {
		product := &products[pi]
		variants := product.Variants
		if len(variants) == 0 {
			stats.Skipped++
			continue
		}

		built := make([]BuiltRow, 0, len(variants))
		for vi := range variants {
			if o.probe != nil && o.probe.Terminated(ctx, spec.JobID) {
				return nil, ErrManuallyTerminated
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			variant := &variants[vi]
			stats.Total++

			rowCtx := BuildRowContext(spec.Channel, product, variant, clientCtx, productTypeCtx)
			images := OrderImages(channel, product, variant, clientCfg.ImageTags, profile.ImageTags)
			row, rowValidations, failures := builder.Build(
				profile.Mapper,
				rowCtx,
				product.MarketplaceData[spec.Channel],
				variant.MarketplaceData[spec.Channel],
			)
			if failures > 0 {
				stats.Failed++
			}
			for key, rules := range rowValidations {
				validations.Merge(key, rules)
			}
			built = append(built, BuiltRow{Row: row, Ctx: rowCtx, Images: images})
		}
		strategy.Add(built)
	}

	expanded := strategy.Finish()
	stats.Exported = len(expanded.Rows)
	stats.Skipped += expanded.SkippedNoHandle

	log.WithFields(logrus.Fields{
		"rows":            len(expanded.Rows),
		"parentRows":      len(expanded.ParentRows),
		"skippedNoHandle": expanded.SkippedNoHandle,
	}).Info("export rows built")

	return &Result{
		ExportData:                      expanded.Rows,
		ParentRows:                      expanded.ParentRows,
		MapperInfo:                      profile.Mapper,
		ColumnCodeLabelMapper:           mappers.CodeToLabel,
		ColumnLabelCodeMapper:           mappers.LabelToCode,
		ColumnPossibleValues:            mappers.PossibleValues,
		ColumnPossibleValuesInLowerCase: mappers.PossibleValuesLower,
		AttributeWithValidations:        validations,
		Template:                        profile.Template,
		CodeAsHeader:                    channel.CodeAsHeader,
		SkippedNoHandle:                 expanded.SkippedNoHandle,
		Stats:                           stats,
	}, nil
}

func validateSpec(spec JobSpec) error {
	switch {
	case spec.ClientID == "":
		return &ConfigurationError{Field: "clientId", Detail: "missing"}
	case spec.ProductTypeID == "":
		return &ConfigurationError{Field: "productTypeId", Detail: "missing"}
	case spec.Channel == "":
		return &ConfigurationError{Field: "channel", Detail: "missing"}
	}
	return nil
}
