package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/jsonutil"
	"github.com/scriptsentries/clearance-engine/pkg/llm"
	"github.com/scriptsentries/clearance-engine/pkg/models"
	"github.com/scriptsentries/clearance-engine/pkg/retry"
)

const unknownEntity = "Unknown"

// Detector finds risks in page text.
type Detector interface {
	AnalyzePages(ctx context.Context, pages []string) []*models.RiskFlag
}

// riskItem is one risk as the model reports it.
type riskItem struct {
	Category    jsonutil.FlexString `json:"category"`
	SubCategory jsonutil.FlexString `json:"subCategory"`
	Severity    jsonutil.FlexString `json:"severity"`
	Status      jsonutil.FlexString `json:"status"`
	EntityName  jsonutil.FlexString `json:"entityName"`
	Snippet     jsonutil.FlexString `json:"snippet"`
	Reason      jsonutil.FlexString `json:"reason"`
	Suggestion  jsonutil.FlexString `json:"suggestion"`
}

type pageResponse struct {
	Risks []riskItem `json:"risks"`
}

type llmDetector struct {
	client      llm.Client
	pool        *llm.WorkerPool
	temperature float64
	retry       *retry.Config
	logger      *zap.Logger
}

var _ Detector = (*llmDetector)(nil)

// NewDetector reviews pages with client, at most pool-size pages at a time.
func NewDetector(client llm.Client, pool *llm.WorkerPool, temperature float64, logger *zap.Logger) Detector {
	return &llmDetector{
		client:      client,
		pool:        pool,
		temperature: temperature,
		retry: &retry.Config{
			MaxRetries:   2,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		logger: logger.Named("detector"),
	}
}

// AnalyzePages reviews every non-blank page concurrently. A page whose review
// fails contributes no flags. Flags come back in page order and carry no IDs.
func (d *llmDetector) AnalyzePages(ctx context.Context, pages []string) []*models.RiskFlag {
	system := SystemPrompt()

	var items []llm.WorkItem[[]*models.RiskFlag]
	for i, text := range pages {
		if strings.TrimSpace(text) == "" {
			continue
		}
		pageNumber := i + 1
		items = append(items, llm.WorkItem[[]*models.RiskFlag]{
			ID: fmt.Sprintf("page-%d", pageNumber),
			Execute: func(ctx context.Context) ([]*models.RiskFlag, error) {
				return d.analyzePage(ctx, system, pageNumber, text)
			},
		})
	}

	results := llm.Process(ctx, d.pool, items, nil)

	var flags []*models.RiskFlag
	for _, r := range results {
		if r.Err != nil {
			d.logger.Error("Page analysis failed",
				zap.String("page", r.ID),
				zap.Error(r.Err))
			continue
		}
		flags = append(flags, r.Result...)
	}
	return flags
}

func (d *llmDetector) analyzePage(ctx context.Context, system string, pageNumber int, text string) ([]*models.RiskFlag, error) {
	resp, err := retry.DoWithResult(ctx, d.retry, func() (*llm.GenerateResponseResult, error) {
		return d.client.GenerateResponse(ctx, PagePrompt(pageNumber, text), system, d.temperature)
	})
	if err != nil {
		return nil, err
	}

	parsed, err := llm.ParseJSONResponse[pageResponse](resp.Content)
	if err != nil {
		// Some models answer with the bare array.
		items, arrErr := llm.ParseJSONResponse[[]riskItem](resp.Content)
		if arrErr != nil {
			return nil, fmt.Errorf("parse page %d response: %w", pageNumber, err)
		}
		parsed.Risks = items
	}

	flags := make([]*models.RiskFlag, 0, len(parsed.Risks))
	for _, item := range parsed.Risks {
		flags = append(flags, toRiskFlag(item, pageNumber))
	}
	return flags, nil
}

// toRiskFlag applies the defaults for missing or unrecognised model output.
func toRiskFlag(item riskItem, pageNumber int) *models.RiskFlag {
	entity := strings.TrimSpace(item.EntityName.String())
	if entity == "" || strings.EqualFold(entity, "null") {
		entity = unknownEntity
	}
	return &models.RiskFlag{
		Category:    models.ParseCategory(item.Category.String()),
		SubCategory: models.NormalizeSubCategory(item.SubCategory.String()),
		Severity:    models.ParseSeverity(item.Severity.String()),
		Status:      models.ParseDetectedStatus(item.Status.String()),
		EntityName:  entity,
		Snippet:     models.TruncateSnippet(item.Snippet.String()),
		Reason:      item.Reason.String(),
		Suggestion:  item.Suggestion.String(),
		PageNumber:  pageNumber,
		IsRedacted:  false,
	}
}
