package worker

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"catalog-sync-service/internal/artifact"
	"catalog-sync-service/internal/bulkimport"
	"catalog-sync-service/internal/clients/shopify"
	"catalog-sync-service/internal/events"
	"catalog-sync-service/internal/models"
	"catalog-sync-service/internal/storage"
)

// runImport executes an IMPORT_SHOPIFY job: run a Shopify bulk query,
// assemble the JSONL stream and write the products back onto catalog
// variants. Per-variant failures collect into the failed-rows artifact
// and turn the job PARTIAL_SUCCESS instead of failing it.
func (w *Worker) runImport(ctx context.Context, job *models.TransformationJob, log *logrus.Entry) error {
	mpCfg, err := w.catalog.FetchMarketplaceConfig(ctx, job.Config.ClientID, "SHOPIFY")
	if err != nil {
		return fmt.Errorf("fetching marketplace config: %w", err)
	}
	if mpCfg == nil || mpCfg.ShopDomain == "" || mpCfg.AccessToken == "" {
		return fmt.Errorf("shopify is not configured for client %s", job.Config.ClientID)
	}

	shop := shopify.NewClient(mpCfg)
	query := shopify.ProductsBulkQuery(job.Config.Filters["productType"])

	if _, err := shop.StartBulkOperation(ctx, query); err != nil {
		return err
	}
	op, err := shop.WaitForCompletion(ctx, w.opts.BulkPollInterval, w.opts.BulkPollTimeout)
	if err != nil {
		return err
	}
	if op.URL == "" {
		// zero objects produce no result file
		return w.finishImport(ctx, job, models.JobStats{}, nil, log)
	}

	body, err := shop.Download(ctx, op.URL)
	if err != nil {
		return err
	}
	defer body.Close()

	assembler := bulkimport.NewAssembler()
	products, err := assembler.Assemble(body)
	if err != nil {
		return fmt.Errorf("assembling bulk result: %w", err)
	}
	log.WithFields(logrus.Fields{
		"products":  len(products),
		"lines":     assembler.TotalLines(),
		"malformed": assembler.MalformedLines(),
	}).Info("bulk result assembled")

	rerunKeys, err := w.rerunFilter(ctx, job)
	if err != nil {
		log.WithError(err).Warn("loading rerun filter failed, processing full set")
	}

	stats := models.JobStats{}
	var failed []models.FailedRow
	var batch []models.VariantUpdate

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.catalog.BulkUpdateVariants(ctx, batch); err != nil {
			log.WithError(err).Error("variant batch update failed")
			for _, update := range batch {
				stats.Failed++
				stats.Updated--
				failed = append(failed, models.FailedRow{
					ProductID:  update.ProductID,
					VariantID:  update.VariantID,
					VariantSKU: update.SKU,
					Remarks:    err.Error(),
				})
			}
		}
		batch = batch[:0]
	}

	for _, product := range products {
		for _, variant := range product.Variants {
			stats.Total++

			if rerunKeys != nil && !rerunKeys[product.ID+"::"+variant.ID] {
				stats.Skipped++
				continue
			}
			if variant.SKU == "" {
				stats.Failed++
				failed = append(failed, models.FailedRow{
					ProductID:   product.ID,
					VariantID:   variant.ID,
					ProductType: product.ProductType,
					Remarks:     "variant has no SKU",
				})
				continue
			}

			batch = append(batch, models.VariantUpdate{
				ProductID: product.ID,
				VariantID: variant.ID,
				SKU:       variant.SKU,
				Channel:   "SHOPIFY",
				Data: map[string]interface{}{
					"title":        product.Title,
					"handle":       product.Handle,
					"productType":  product.ProductType,
					"vendor":       product.Vendor,
					"tags":         product.Tags,
					"variantTitle": variant.Title,
					"price":        variant.Price,
					"barcode":      variant.Barcode,
					"images":       imageURLs(product.Images),
				},
			})
			stats.Updated++
			if len(batch) >= w.opts.ImportBatchSize {
				flush()
			}
		}
	}
	flush()

	return w.finishImport(ctx, job, stats, failed, log)
}

func imageURLs(images []bulkimport.Image) []string {
	urls := make([]string, 0, len(images))
	for _, img := range images {
		urls = append(urls, img.URL)
	}
	return urls
}

// rerunFilter loads the previous run's failed rows when this job is a
// rerun, returning the product::variant keys to keep.
func (w *Worker) rerunFilter(ctx context.Context, job *models.TransformationJob) (map[string]bool, error) {
	if job.Config.RerunOfJobID == "" {
		return nil, nil
	}
	previous, err := w.catalog.GetJob(ctx, job.Config.RerunOfJobID)
	if err != nil {
		return nil, err
	}
	if previous.Remarks == nil || previous.Remarks.FailedRowsFile == "" {
		return nil, fmt.Errorf("previous job %s has no failed-rows file", job.Config.RerunOfJobID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, previous.Remarks.FailedRowsFile, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed-rows download returned %d", resp.StatusCode)
	}

	rows, err := artifact.ReadFailedRowsCSV(resp.Body)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(rows))
	for _, row := range rows {
		keys[row.Key()] = true
	}
	return keys, nil
}

func (w *Worker) finishImport(ctx context.Context, job *models.TransformationJob, stats models.JobStats, failed []models.FailedRow, log *logrus.Entry) error {
	remarks := &models.JobRemarks{Stats: &stats}

	if len(failed) > 0 && w.store != nil {
		data, err := artifact.WriteFailedRowsCSV(failed)
		if err != nil {
			log.WithError(err).Error("rendering failed-rows artifact failed")
		} else {
			key := storage.FailedRowsKey(job.Config.ClientID, job.ID)
			url, err := w.store.Upload(ctx, key, data, "text/csv")
			if err != nil {
				log.WithError(err).Error("failed-rows upload failed")
			} else {
				remarks.FailedRowsFile = url
			}
		}
	}

	status := models.JobStatusCompleted
	if len(failed) > 0 {
		status = models.JobStatusPartialSuccess
	}
	if err := w.catalog.UpdateJob(ctx, job.ID, models.JobUpdate{Status: status, Remarks: remarks}); err != nil {
		return err
	}

	w.logRun(ctx, job.ID, models.LogLevelInfo, "import completed", models.JSONB{
		"total":   stats.Total,
		"updated": stats.Updated,
		"failed":  stats.Failed,
		"skipped": stats.Skipped,
	})
	w.notifier.JobSucceeded(ctx, job, remarks.FailedRowsFile)
	w.events.Publish(events.SubjectDone, events.JobEvent{
		JobID:    job.ID,
		ClientID: job.Config.ClientID,
		Type:     job.Type,
		Status:   status,
	})
	return nil
}
