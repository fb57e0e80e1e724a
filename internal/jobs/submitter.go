package jobs

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
	"github.com/azar84/saas-marketing-360-sub004/pkg/enrich"
)

// Submitter sends work to the external API and records the resulting job.
type Submitter struct {
	client   enrich.Client
	registry *Registry
}

// NewSubmitter creates a Submitter.
func NewSubmitter(client enrich.Client, registry *Registry) *Submitter {
	return &Submitter{client: client, registry: registry}
}

// SubmitKeywords starts a keyword-generation job for an industry.
// A rejected or failed submission returns an error and records nothing.
func (s *Submitter) SubmitKeywords(ctx context.Context, industry string) (*model.Job, error) {
	if industry == "" {
		return nil, eris.New("jobs: industry is required")
	}
	res := s.client.SubmitKeywords(ctx, industry)
	return s.record(ctx, res, model.JobTypeKeywordGeneration, map[string]any{
		"industry": industry,
	})
}

// SubmitEnrichment starts a basic or enhanced enrichment job for a website.
func (s *Submitter) SubmitEnrichment(ctx context.Context, website string, enhanced bool) (*model.Job, error) {
	if website == "" {
		return nil, eris.New("jobs: website is required")
	}
	jobType := model.JobTypeBasicEnrichment
	if enhanced {
		jobType = model.JobTypeEnhancedEnrichment
	}
	res := s.client.SubmitEnrichment(ctx, website, enhanced)
	return s.record(ctx, res, jobType, map[string]any{
		"website": website,
	})
}

func (s *Submitter) record(ctx context.Context, res *enrich.SubmitResult, jobType model.JobType, metadata map[string]any) (*model.Job, error) {
	if !res.Success {
		return nil, eris.Errorf("jobs: submission rejected: %s", res.Error)
	}

	metadata["externalJobId"] = res.JobID
	if res.Position > 0 {
		metadata["position"] = res.Position
	}
	if res.EstimatedWaitSecs > 0 {
		metadata["estimatedWaitTime"] = res.EstimatedWaitSecs
	}

	job, err := s.registry.Add(ctx, model.Job{
		Type:     jobType,
		Status:   model.JobStatusQueued,
		Progress: 0,
		PollURL:  res.PollURL,
		Metadata: metadata,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("jobs: submitted",
		zap.String("id", job.ID),
		zap.String("type", string(jobType)),
		zap.String("externalJobId", res.JobID),
	)
	return job, nil
}
