// Package classifier runs LLM classification over raw search results,
// separating real company websites from directories and listicles while
// writing a full audit trail of every model call.
package classifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
	"github.com/azar84/saas-marketing-360-sub004/internal/resilience"
)

// LLM is the completion surface the classifier needs.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Tracer persists the classification audit trail and resulting business
// records. All Tracer writes are best-effort: a failed write is logged
// and never aborts classification.
type Tracer interface {
	CreateLLMSession(ctx context.Context, searchSessionID string, totalResults int) (*model.LLMProcessingSession, error)
	RecordLLMResult(ctx context.Context, res model.LLMProcessingResult) (*model.LLMProcessingResult, error)
	CompleteLLMSession(ctx context.Context, id string, accepted, rejected, errs int, quality float64, status model.SessionStatus) error
	MarkResultProcessed(ctx context.Context, resultID string) error
	SaveBusiness(ctx context.Context, b model.BusinessRecord) (*model.BusinessRecord, error)
}

// Options configures one classification pass.
type Options struct {
	Industry           string
	Location           string
	SearchSessionID    string
	EnableTraceability bool
}

// Summary aggregates the outcome counters for one pass.
// Accepted + Rejected + Skipped always equals TotalResults.
type Summary struct {
	TotalResults      int     `json:"totalResults"`
	Accepted          int     `json:"companyWebsites"`
	Rejected          int     `json:"directories"`
	Skipped           int     `json:"skipped"`
	Duplicates        int     `json:"duplicates"`
	ExtractionQuality float64 `json:"extractionQuality"`
	LLMSessionID      string  `json:"llmSessionId,omitempty"`
}

// Outcome is the result of classifying a batch of search results.
type Outcome struct {
	Businesses []model.Business `json:"businesses"`
	Summary    Summary          `json:"summary"`
}

// Classifier classifies search results one at a time.
type Classifier struct {
	llm            LLM
	tracer         Tracer
	batchQuickPath bool
	titleCaser     cases.Caser
}

// New creates a Classifier. tracer may be nil, in which case no audit
// records or business rows are written.
func New(llm LLM, tracer Tracer, batchQuickPath bool) *Classifier {
	return &Classifier{
		llm:            llm,
		tracer:         tracer,
		batchQuickPath: batchQuickPath,
		titleCaser:     cases.Title(language.English),
	}
}

// decision is the model's answer for one search result.
type decision struct {
	IsCompanyWebsite *bool    `json:"isCompanyWebsite"`
	CompanyName      string   `json:"companyName"`
	Website          string   `json:"website"`
	Confidence       *float64 `json:"confidence"`
	City             string   `json:"city"`
	StateProvince    string   `json:"stateProvince"`
	Country          string   `json:"country"`
	Categories       []string `json:"categories"`
	RejectionReason  string   `json:"rejectionReason"`
}

// parseDecision extracts and validates the model's JSON answer. The
// minimum viable answer is a non-empty website and an explicit
// isCompanyWebsite flag; confidence defaults to 0.5 and is clamped to
// [0, 1].
func parseDecision(raw string) (*decision, error) {
	obj, ok := ExtractObject(raw)
	if !ok {
		return nil, eris.New("classifier: no JSON object in response")
	}
	var d decision
	if err := json.Unmarshal([]byte(obj), &d); err != nil {
		return nil, eris.Wrap(err, "classifier: parse decision")
	}
	if d.IsCompanyWebsite == nil {
		return nil, eris.New("classifier: response missing isCompanyWebsite")
	}
	if d.Website == "" {
		return nil, eris.New("classifier: response missing website")
	}
	if d.Confidence == nil {
		def := 0.5
		d.Confidence = &def
	}
	if *d.Confidence < 0 {
		*d.Confidence = 0
	}
	if *d.Confidence > 1 {
		*d.Confidence = 1
	}
	return &d, nil
}

// ClassifyResults runs the per-result classification loop. Individual
// model or parse failures skip that result and continue; the pass itself
// only fails on context cancellation.
func (c *Classifier) ClassifyResults(ctx context.Context, results []model.SearchResult, opts Options) (*Outcome, error) {
	out := &Outcome{Summary: Summary{TotalResults: len(results)}}

	var llmSession *model.LLMProcessingSession
	if c.traceEnabled(opts) {
		var err error
		llmSession, err = c.tracer.CreateLLMSession(ctx, opts.SearchSessionID, len(results))
		if err != nil {
			zap.L().Warn("classifier: create llm session failed", zap.Error(err))
			llmSession = nil
		} else {
			out.Summary.LLMSessionID = llmSession.ID
		}
	}

	if c.batchQuickPath && len(results) > 0 {
		c.runBatchQuickPath(ctx, results, opts)
	}

	seen := make(map[string]bool)
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "classifier: cancelled")
		}
		c.classifyOne(ctx, r, opts, llmSession, seen, out)
	}

	s := &out.Summary
	if s.Accepted+s.Rejected > 0 {
		s.ExtractionQuality = float64(s.Accepted) / float64(s.Accepted+s.Rejected)
	}

	if llmSession != nil {
		err := c.tracer.CompleteLLMSession(ctx, llmSession.ID,
			s.Accepted, s.Rejected, s.Skipped, s.ExtractionQuality, model.SessionStatusCompleted)
		if err != nil {
			zap.L().Warn("classifier: complete llm session failed", zap.Error(err))
		}
	}

	zap.L().Info("classifier: pass complete",
		zap.Int("total", s.TotalResults),
		zap.Int("accepted", s.Accepted),
		zap.Int("rejected", s.Rejected),
		zap.Int("skipped", s.Skipped),
		zap.Int("duplicates", s.Duplicates),
		zap.Float64("quality", s.ExtractionQuality),
	)
	return out, nil
}

func (c *Classifier) traceEnabled(opts Options) bool {
	return c.tracer != nil && opts.EnableTraceability
}

func (c *Classifier) classifyOne(ctx context.Context, r model.SearchResult, opts Options, llmSession *model.LLMProcessingSession, seen map[string]bool, out *Outcome) {
	start := time.Now()
	prompt := BuildPrompt(r, opts.Industry, opts.Location)

	rec := model.LLMProcessingResult{
		SearchResultID: r.ID,
		Prompt:         prompt,
	}

	raw, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		// Skip and continue: one bad call must not sink the batch, and a
		// retry here would double-charge a prompt that may simply be
		// confusing the model.
		out.Summary.Skipped++
		zap.L().Warn("classifier: model call failed",
			zap.String("url", r.URL), zap.Error(err))
		rec.Status = model.ResultStatusError
		rec.ErrorMessage = err.Error()
		rec.ProcessingTimeSecs = time.Since(start).Seconds()
		c.record(ctx, llmSession, rec, r)
		return
	}
	rec.RawResponse = raw

	d, err := parseDecision(raw)
	if err != nil {
		out.Summary.Skipped++
		zap.L().Warn("classifier: unusable response",
			zap.String("url", r.URL), zap.Error(err))
		rec.Status = model.ResultStatusError
		rec.ErrorMessage = err.Error()
		rec.ProcessingTimeSecs = time.Since(start).Seconds()
		c.record(ctx, llmSession, rec, r)
		return
	}

	rec.Confidence = *d.Confidence
	rec.ProcessingTimeSecs = time.Since(start).Seconds()

	biz := model.Business{
		Name:             d.CompanyName,
		Website:          d.Website,
		IsCompanyWebsite: *d.IsCompanyWebsite,
		Confidence:       *d.Confidence,
		ExtractedFrom:    r.URL,
		City:             d.City,
		StateProvince:    d.StateProvince,
		Country:          d.Country,
		Categories:       c.titleCategories(d.Categories),
	}
	rec.Business = &biz

	if !*d.IsCompanyWebsite {
		// Rejected calls stay in the output list; callers get the model's
		// full verdict, not just the accepted subset.
		out.Summary.Rejected++
		biz.RejectionReason = d.RejectionReason
		rec.Status = model.ResultStatusRejected
		rec.RejectionReason = d.RejectionReason
		out.Businesses = append(out.Businesses, biz)
		c.record(ctx, llmSession, rec, r)
		return
	}

	out.Summary.Accepted++
	rec.Status = model.ResultStatusAccepted

	// Dedup applies to accepted entries only.
	domain := model.NormalizeWebsite(d.Website)
	if domain != "" && seen[domain] {
		// First answer for a domain wins; later hits are usually inner
		// pages of the same site.
		out.Summary.Duplicates++
		c.record(ctx, llmSession, rec, r)
		return
	}
	if domain != "" {
		seen[domain] = true
	}

	if c.tracer != nil {
		saved, err := c.tracer.SaveBusiness(ctx, model.BusinessRecord{
			Name:          biz.Name,
			Website:       domain,
			City:          biz.City,
			StateProvince: biz.StateProvince,
			Country:       biz.Country,
			Categories:    biz.Categories,
			Confidence:    biz.Confidence,
			SourceURL:     r.URL,
		})
		if err != nil {
			zap.L().Warn("classifier: save business failed",
				zap.String("website", domain), zap.Error(err))
		} else if saved != nil {
			rec.BusinessID = saved.ID
		}
	}

	out.Businesses = append(out.Businesses, biz)
	c.record(ctx, llmSession, rec, r)
}

// record writes the audit row and flips the processed flag. Failures are
// logged and swallowed so extraction output is never lost to a
// bookkeeping error.
func (c *Classifier) record(ctx context.Context, llmSession *model.LLMProcessingSession, rec model.LLMProcessingResult, r model.SearchResult) {
	if llmSession == nil {
		return
	}
	rec.LLMSessionID = llmSession.ID
	if _, err := c.tracer.RecordLLMResult(ctx, rec); err != nil {
		zap.L().Warn("classifier: record result failed",
			zap.String("searchResult", r.ID), zap.Error(err))
	}
	if r.ID != "" {
		if err := c.tracer.MarkResultProcessed(ctx, r.ID); err != nil {
			zap.L().Warn("classifier: mark processed failed",
				zap.String("searchResult", r.ID), zap.Error(err))
		}
	}
}

func (c *Classifier) titleCategories(categories []string) []string {
	if len(categories) == 0 {
		return nil
	}
	titled := make([]string, len(categories))
	for i, cat := range categories {
		titled[i] = c.titleCaser.String(cat)
	}
	return titled
}

// runBatchQuickPath fires one request covering the whole batch. The
// output is logged for comparison against the per-result loop but never
// feeds the returned outcome; the per-result loop stays authoritative.
func (c *Classifier) runBatchQuickPath(ctx context.Context, results []model.SearchResult, opts Options) {
	prompt := BuildBatchPrompt(results, opts.Industry, opts.Location)

	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("classifier", "batch_quick_path")
	cfg.ShouldRetry = func(error) bool { return true }

	raw, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		return c.llm.Complete(ctx, prompt)
	})
	if err != nil {
		zap.L().Warn("classifier: batch quick path failed", zap.Error(err))
		return
	}
	zap.L().Info("classifier: batch quick path response",
		zap.Int("results", len(results)),
		zap.Int("responseLen", len(raw)),
	)
}
