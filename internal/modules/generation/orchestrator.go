package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/yungbote/lessongen/internal/data/repos"
	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/modules/generation/budget"
	"github.com/yungbote/lessongen/internal/modules/generation/cache"
	"github.com/yungbote/lessongen/internal/modules/generation/content"
	"github.com/yungbote/lessongen/internal/modules/generation/keys"
	"github.com/yungbote/lessongen/internal/modules/generation/prompts"
	"github.com/yungbote/lessongen/internal/modules/generation/retrieval"
	"github.com/yungbote/lessongen/internal/observability"
	"github.com/yungbote/lessongen/internal/platform/logger"
	"github.com/yungbote/lessongen/internal/platform/openai"
)

type Request struct {
	Kind   string
	Params keys.Params

	UserID uuid.UUID
	GoalID uuid.UUID
	// GoalCreatedAt and Timezone determine the day index for lesson-family
	// kinds. DayIndex > 0 overrides the computed value.
	GoalCreatedAt time.Time
	Timezone      string
	DayIndex      int

	// Now defaults to the wall clock.
	Now       time.Time
	RequestID string
}

type Result struct {
	Kind      string          `json:"kind"`
	Content   json.RawMessage `json:"content"`
	Signature string          `json:"signature"`
	DayIndex  int             `json:"day_index,omitempty"`
	Cached    bool            `json:"cached"`
	Tier      retrieval.Tier  `json:"retrieval_tier,omitempty"`
	Attempts  int             `json:"attempts"`
	CostUSD   float64         `json:"cost_usd"`
	Model     string          `json:"model,omitempty"`
}

type Deps struct {
	Cache     *cache.Store
	Ledger    *budget.Ledger
	Estimator *budget.Estimator
	Retriever retrieval.Service
	LLM       openai.Completer
	// Publisher is optional.
	Publisher Publisher
}

type Orchestrator struct {
	log  *logger.Logger
	deps Deps
	cfg  Config
	now  func() time.Time

	// sleep-free retries in tests
	newBackOff func(RetryPolicy) backoff.BackOff
}

func New(log *logger.Logger, deps Deps, cfg Config) (*Orchestrator, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Cache == nil || deps.Ledger == nil || deps.Estimator == nil || deps.Retriever == nil || deps.LLM == nil {
		return nil, fmt.Errorf("generation: missing dependency")
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 1
	}
	if cfg.Timeouts == nil {
		cfg.Timeouts = DefaultTimeouts()
	}
	if cfg.Model == "" {
		if dm, ok := deps.LLM.(interface{ DefaultModel() string }); ok {
			cfg.Model = dm.DefaultModel()
		}
	}
	return &Orchestrator{
		log:        log.With("service", "GenerationOrchestrator"),
		deps:       deps,
		cfg:        cfg,
		now:        time.Now,
		newBackOff: func(p RetryPolicy) backoff.BackOff { return newAttemptBackOff(p) },
	}, nil
}

// job is one resolved request: normalized inputs plus whatever the cache
// lookup found.
type job struct {
	req      Request
	kind     string
	params   keys.Params
	sig      string
	version  int
	day      int
	template *types.GenerationTemplate
}

// Generate returns cached content when present; otherwise it gates on
// budget, retrieves context, calls the model with retries, validates, caches
// and records. All errors are *Error.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	j, err := o.resolve(req)
	if err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "generation.generate",
		attribute.String("kind", j.kind),
		attribute.String("signature", j.sig),
		attribute.Int("day_index", j.day),
	)
	defer span.End()
	log := o.log.With("kind", j.kind, "signature", j.sig[:12], "request_id", req.RequestID)

	res, outcome, err := o.generate(ctx, log, j)
	observability.Current().ObserveGeneration(j.kind, outcome, time.Since(started))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
		return nil, err
	}
	span.SetAttributes(attribute.Bool("cached", res.Cached), attribute.Int("attempts", res.Attempts))
	return res, nil
}

func (o *Orchestrator) resolve(req Request) (*job, error) {
	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if !content.KnownKind(kind) {
		return nil, invalidRequest("%w: %q", content.ErrUnknownKind, req.Kind)
	}
	params := req.Params.Normalize()
	if params.Topic == "" {
		return nil, invalidRequest("topic required")
	}
	j := &job{
		req:     req,
		kind:    kind,
		params:  params,
		sig:     keys.Signature(params),
		version: prompts.Version(prompts.PromptName(kind)),
	}
	if kind != content.KindPlan {
		j.day = req.DayIndex
		if j.day <= 0 {
			now := req.Now
			if now.IsZero() {
				now = o.now()
			}
			created := req.GoalCreatedAt
			if created.IsZero() {
				created = now
			}
			j.day = keys.DayIndex(created, now, keys.Location(req.Timezone))
		}
	}
	return j, nil
}

func (o *Orchestrator) generate(ctx context.Context, log *logger.Logger, j *job) (*Result, string, error) {
	if hit, err := o.lookup(ctx, log, j); err != nil {
		return nil, "rejected", err
	} else if hit != nil {
		return hit, "cache_hit", nil
	}

	if err := o.deps.Ledger.CheckBudgetOrFail(ctx, j.req.UserID, j.kind); err != nil {
		log.Info("generation rejected by budget gate", "error", err)
		return nil, "rejected", budgetError(err)
	}

	in := prompts.Input{
		Topic:         j.params.Topic,
		Focus:         j.params.Focus,
		Level:         j.params.Level,
		MinutesPerDay: j.params.MinutesPerDay,
		Locale:        j.params.Locale,
		DayIndex:      j.day,
	}
	queryText := j.params.Topic + " " + j.params.Focus
	if j.template != nil {
		if plan, err := content.DecodePlan(j.template.Content); err == nil {
			in.PlanTitle = plan.Title
			if entry := plan.DayEntry(j.day); entry != nil {
				in.PlanDayTitle = entry.Title
				in.PlanDayObjectives = strings.Join(entry.Objectives, "; ")
				queryText += " " + entry.Title
			}
		}
	}
	q := retrieval.Query{Text: queryText, K: o.cfg.RetrievalK}
	if o.cfg.TopicFilter {
		q.Topic = j.params.Topic
	}
	retrieved := o.deps.Retriever.Retrieve(ctx, q)
	in.Context = retrieved.Context

	prompt, err := prompts.Build(prompts.PromptName(j.kind), in)
	if err != nil {
		return nil, "failed", &Error{Kind: ErrKindGeneration, Err: fmt.Errorf("build prompt: %w", err)}
	}

	out, attempts, err := o.callWithRetry(ctx, log, j, prompt)
	if err != nil {
		log.Warn("generation failed", "attempts", attempts, "error", err)
		return nil, "failed", &Error{Kind: ErrKindGeneration, Attempts: attempts, Err: err}
	}

	canonical := o.store(ctx, log, j, out)
	o.record(ctx, log, j, out.record)
	res := &Result{
		Kind:      j.kind,
		Content:   canonical,
		Signature: j.sig,
		DayIndex:  j.day,
		Tier:      retrieved.Tier,
		Attempts:  attempts,
		CostUSD:   out.record.CostUSD,
		Model:     out.record.Model,
	}
	o.publish(ctx, log, j, res)
	return res, "generated", nil
}

// lookup consults the cache layer that owns kind. Lesson-family content is
// shared per plan template when one exists and kept per user otherwise.
func (o *Orchestrator) lookup(ctx context.Context, log *logger.Logger, j *job) (*Result, error) {
	planVersion := prompts.Version(prompts.PromptPlan)
	tmpl, err := o.deps.Cache.LookupTemplate(ctx, j.sig, planVersion)
	if err != nil {
		log.Warn("template lookup failed; treating as miss", "error", err)
		tmpl = nil
	}
	hit := func(raw []byte) *Result {
		return &Result{Kind: j.kind, Content: json.RawMessage(raw), Signature: j.sig, DayIndex: j.day, Cached: true}
	}

	if j.kind == content.KindPlan {
		if tmpl != nil {
			return hit(tmpl.Content), nil
		}
		return nil, nil
	}

	j.template = tmpl
	if tmpl != nil {
		row, err := o.deps.Cache.LookupDayUnit(ctx, repos.DayUnitKey{TemplateID: tmpl.ID, DayIndex: j.day, Kind: j.kind, Version: j.version})
		if err != nil {
			log.Warn("day unit lookup failed; treating as miss", "error", err)
			return nil, nil
		}
		if row != nil {
			return hit(row.Content), nil
		}
		return nil, nil
	}

	if j.req.UserID == uuid.Nil || j.req.GoalID == uuid.Nil {
		return nil, invalidRequest("%s needs a cached plan for these params or a user_id and goal_id", j.kind)
	}
	row, err := o.deps.Cache.LookupUserUnit(ctx, repos.UserUnitKey{UserID: j.req.UserID, GoalID: j.req.GoalID, DayIndex: j.day, Kind: j.kind})
	if err != nil {
		log.Warn("user unit lookup failed; treating as miss", "error", err)
		return nil, nil
	}
	if row != nil {
		return hit(row.Content), nil
	}
	return nil, nil
}

type attemptOutput struct {
	canonical json.RawMessage
	strategy  content.Strategy
	record    *types.GenerationCallRecord
}

func (o *Orchestrator) callWithRetry(ctx context.Context, log *logger.Logger, j *job, prompt prompts.Prompt) (*attemptOutput, int, error) {
	bo := o.newBackOff(o.cfg.Retry)
	hinted, _ := bo.(*attemptBackOff)

	attempt := 0
	var lastErr error
	out, err := backoff.Retry(ctx, func() (*attemptOutput, error) {
		attempt++
		res, err := o.attempt(ctx, log, j, prompt, attempt)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if hinted != nil {
			hinted.hint = openai.RetryAfter(err)
		}
		if !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(o.cfg.Retry.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Info("generation attempt failed; retrying", "attempt", attempt, "retry_in_ms", next.Milliseconds(), "error", err)
		}),
	)
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(lastErr, ctxErr) {
			lastErr = fmt.Errorf("%w (last attempt: %v)", ctxErr, lastErr)
		}
		return nil, attempt, lastErr
	}
	return out, attempt, nil
}

// attempt makes one bounded model call, then parses and validates the
// output. Failed attempts are recorded here with zero cost; the success
// record is returned for the caller to write after caching.
func (o *Orchestrator) attempt(ctx context.Context, log *logger.Logger, j *job, prompt prompts.Prompt, n int) (*attemptOutput, error) {
	ctx, span := observability.StartSpan(ctx, "generation.attempt",
		attribute.String("kind", j.kind),
		attribute.Int("attempt", n),
	)
	defer span.End()

	actx, cancel := context.WithTimeout(ctx, o.cfg.timeoutFor(j.kind))
	defer cancel()

	rec := &types.GenerationCallRecord{
		UserID:       optionalID(j.req.UserID),
		GoalID:       optionalID(j.req.GoalID),
		RequestID:    j.req.RequestID,
		EndpointKind: j.kind,
		Signature:    j.sig,
		Model:        o.cfg.Model,
		Attempt:      n,
	}
	started := time.Now()
	comp, err := o.deps.LLM.Complete(actx, openai.CompletionRequest{
		Purpose: j.kind,
		Model:   o.cfg.Model,
		Messages: []openai.Message{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Temperature: o.cfg.Temperature,
		SchemaName:  prompt.SchemaName,
		Schema:      prompt.Schema,
	})
	rec.LatencyMS = time.Since(started).Milliseconds()
	if err == nil && actx.Err() != nil && ctx.Err() == nil {
		// provider ignored the deadline; the attempt still counts as timed out
		err = actx.Err()
	}
	// refusals and empty outputs still report usage
	if comp.Model != "" {
		rec.Model = comp.Model
	}
	rec.PromptTokens = comp.PromptTokens
	rec.CompletionTokens = comp.CompletionTokens
	if err != nil {
		return nil, o.fail(ctx, log, j, span, rec, "provider_error", err)
	}

	obj, strategy, err := content.Parse(comp.Text)
	if err != nil {
		return nil, o.fail(ctx, log, j, span, rec, "parse_error", err)
	}
	_, canonical, err := content.Validate(j.kind, obj)
	if err != nil {
		return nil, o.fail(ctx, log, j, span, rec, "invalid_output", err)
	}

	rec.Success = true
	rec.CostUSD = o.deps.Estimator.Cost(rec.Model, rec.PromptTokens, rec.CompletionTokens)
	observability.Current().IncAttempt(j.kind, "success")
	span.SetAttributes(attribute.String("parse_strategy", string(strategy)))
	return &attemptOutput{canonical: canonical, strategy: strategy, record: rec}, nil
}

func (o *Orchestrator) fail(ctx context.Context, log *logger.Logger, j *job, span trace.Span, rec *types.GenerationCallRecord, status string, err error) error {
	rec.Success = false
	rec.CostUSD = 0
	rec.ErrorDetail = truncate(err.Error(), 500)
	observability.Current().IncAttempt(j.kind, status)
	span.RecordError(err)
	o.record(ctx, log, j, rec)
	return err
}

// store writes the validated content through the cache and returns the
// canonical bytes, which differ from ours when another request won the race.
// A failed write is logged and the fresh content is served uncached.
func (o *Orchestrator) store(ctx context.Context, log *logger.Logger, j *job, out *attemptOutput) json.RawMessage {
	body := datatypes.JSON(out.canonical)
	createdBy := optionalID(j.req.UserID)
	var (
		stored []byte
		err    error
	)
	switch {
	case j.kind == content.KindPlan:
		var row *types.GenerationTemplate
		row, err = o.deps.Cache.InsertTemplate(ctx, &types.GenerationTemplate{
			Signature: j.sig,
			Version:   j.version,
			Kind:      j.kind,
			Topic:     j.params.Topic,
			Model:     out.record.Model,
			Content:   body,
			CreatedBy: createdBy,
		})
		if row != nil {
			stored = row.Content
		}
	case j.template != nil:
		var row *types.GenerationDayUnit
		row, err = o.deps.Cache.InsertDayUnit(ctx, &types.GenerationDayUnit{
			TemplateID: j.template.ID,
			DayIndex:   j.day,
			Kind:       j.kind,
			Version:    j.version,
			Model:      out.record.Model,
			Content:    body,
			CreatedBy:  createdBy,
		})
		if row != nil {
			stored = row.Content
		}
	default:
		var row *types.GenerationUserUnit
		row, err = o.deps.Cache.InsertUserUnit(ctx, &types.GenerationUserUnit{
			UserID:   j.req.UserID,
			GoalID:   j.req.GoalID,
			DayIndex: j.day,
			Kind:     j.kind,
			Model:    out.record.Model,
			Content:  body,
		})
		if row != nil {
			stored = row.Content
		}
	}
	if err != nil || len(stored) == 0 {
		log.Error("cache insert failed; serving uncached content", "error", err)
		return out.canonical
	}
	return json.RawMessage(stored)
}

func (o *Orchestrator) record(ctx context.Context, log *logger.Logger, j *job, rec *types.GenerationCallRecord) {
	// the ledger write must land even when the request context is done
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.deps.Ledger.Record(wctx, rec); err != nil {
		log.Error("call record write failed", "attempt", rec.Attempt, "success", rec.Success, "error", err)
	}
}

func (o *Orchestrator) publish(ctx context.Context, log *logger.Logger, j *job, res *Result) {
	if o.deps.Publisher == nil {
		return
	}
	ev := CompletedEvent{
		RequestID: j.req.RequestID,
		Kind:      res.Kind,
		Signature: res.Signature,
		DayIndex:  res.DayIndex,
		UserID:    optionalID(j.req.UserID),
		GoalID:    optionalID(j.req.GoalID),
		Attempts:  res.Attempts,
		CostUSD:   res.CostUSD,
		Tier:      string(res.Tier),
		At:        o.now().UTC(),
	}
	if err := o.deps.Publisher.Publish(ctx, EventCompleted, ev); err != nil {
		observability.Current().IncEventPublished("error")
		log.Warn("publish generation event failed", "error", err)
		return
	}
	observability.Current().IncEventPublished("ok")
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
