package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agenthub/tool-recommender/internal/abtest"
	"github.com/agenthub/tool-recommender/internal/behavior"
	"github.com/agenthub/tool-recommender/internal/collab"
	"github.com/agenthub/tool-recommender/internal/content"
	"github.com/agenthub/tool-recommender/internal/insight"
	"github.com/agenthub/tool-recommender/internal/registry"
	"github.com/agenthub/tool-recommender/internal/storage"
)

const (
	// defaultMaxResults caps the returned list when the request does not.
	defaultMaxResults = 5

	// defaultRegistryTimeout bounds the candidate lookup so a hung
	// registry cannot stall the pipeline.
	defaultRegistryTimeout = 2 * time.Second
)

// ToolRegistrar is implemented by registries that accept dynamic tool
// registration (the Bleve-backed registry does).
type ToolRegistrar interface {
	RegisterTools(tools []registry.Tool) error
}

// Config assembles an Engine. Registry is required; everything else has
// working defaults.
type Config struct {
	// Registry supplies the candidate-tool universe.
	Registry registry.Registry

	// Metadata optionally supplies declared tool metadata for seeding
	// content features instead of identifier inference.
	Metadata registry.MetadataProvider

	// Journal optionally persists served recommendations and feedback.
	Journal storage.Journal

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Clock defaults to the system clock.
	Clock Clock

	// Weights are the default algorithm weights.
	Weights Weights

	// MaxResults is the default result cap.
	MaxResults int

	// CacheTTL and CacheSize bound the result cache.
	CacheTTL  time.Duration
	CacheSize int

	// RegistryTimeout bounds candidate lookups.
	RegistryTimeout time.Duration

	// PromptRate and ExploreEpsilon tune feedback prompting.
	PromptRate     float64
	ExploreEpsilon float64

	// ExploreSeed seeds the prompt explorer, for deterministic tests.
	ExploreSeed int64
}

// Engine is the contextual recommendation orchestrator.
type Engine struct {
	insights    *insight.Engine
	collab      *collab.Engine
	content     *content.Engine
	behavior    *behavior.Analyzer
	experiments *abtest.Engine

	registry registry.Registry
	metadata registry.MetadataProvider
	journal  storage.Journal
	tracker  *behavior.Tracker

	cache    *resultCache
	metrics  *metrics
	explorer *explorer

	weights         Weights
	maxResults      int
	registryTimeout time.Duration
	clock           Clock
	logger          *zap.Logger
}

// NewEngine assembles the orchestrator and its sub-engines.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("recommend: registry is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	weights := cfg.Weights
	if weights.Sum() <= 0 {
		weights = DefaultWeights()
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	registryTimeout := cfg.RegistryTimeout
	if registryTimeout <= 0 {
		registryTimeout = defaultRegistryTimeout
	}

	e := &Engine{
		insights:        insight.NewEngine(),
		collab:          collab.NewEngine(),
		content:         content.NewEngine(),
		behavior:        behavior.NewAnalyzer(),
		experiments:     abtest.NewEngine(logger),
		registry:        cfg.Registry,
		metadata:        cfg.Metadata,
		journal:         cfg.Journal,
		cache:           newResultCache(cfg.CacheTTL, cfg.CacheSize),
		metrics:         newMetrics(),
		explorer:        newExplorer(cfg.PromptRate, cfg.ExploreEpsilon, cfg.ExploreSeed),
		weights:         weights.Normalized(),
		maxResults:      maxResults,
		registryTimeout: registryTimeout,
		clock:           clock,
		logger:          logger,
	}

	if cfg.Journal != nil {
		e.tracker = behavior.NewTracker(cfg.Journal, logger)
	}

	return e, nil
}

// Experiments exposes the A/B testing engine for setup (registering
// tests, loading experiment files).
func (e *Engine) Experiments() *abtest.Engine {
	return e.experiments
}

// GetRecommendations ranks candidate tools for a request. It never
// returns an error: any pipeline failure degrades to an empty fallback
// result, distinguishable via Result.Source.
func (e *Engine) GetRecommendations(ctx context.Context, req Request) (result Result) {
	start := e.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("recommendation pipeline panicked", zap.Any("panic", r))
			result = e.fallbackResult()
		}
		latency := float64(e.clock.Now().Sub(start).Microseconds()) / 1000.0
		e.metrics.record(latency, result.Source)
	}()

	userID := req.Context.UserID
	intentProbe, _ := insight.DetectIntent(req.Message)
	workflowID := ""
	if req.Workflow != nil {
		workflowID = req.Workflow.WorkflowID
	}

	key := cacheKey(req.Message, userID, intentProbe, workflowID, e.clock.Now())
	if recs, generatedAt, ok := e.cache.get(key, e.clock.Now()); ok {
		return Result{
			RequestID:       uuid.NewString(),
			Recommendations: recs,
			Source:          SourceCache,
			GeneratedAt:     generatedAt,
		}
	}

	weights, variantID := e.resolveWeights(userID, req.Weights)

	// Context and behavior analysis have no ordering dependency.
	var ins insight.Insights
	var g errgroup.Group
	g.Go(func() error {
		ins = e.insights.Analyze(req.Message, req.History, req.Workflow, req.Context)
		return nil
	})
	g.Go(func() error {
		e.behavior.Seed(userID, req.BehaviorHistory)
		return nil
	})
	if err := g.Wait(); err != nil {
		e.logger.Warn("analysis failed, returning fallback", zap.Error(err))
		return e.fallbackResult()
	}

	rctx, cancel := context.WithTimeout(ctx, e.registryTimeout)
	defer cancel()
	candidates, err := e.registry.ListAvailableTools(rctx, req.UsageContext)
	if err != nil {
		e.logger.Warn("tool registry lookup failed, returning fallback", zap.Error(err))
		return e.fallbackResult()
	}

	e.seedDeclaredFeatures(userID, candidates)

	scored := e.scoreCandidates(ctx, userID, candidates, ins, weights)

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Scores.Combined > scored[j].Scores.Combined
	})

	max := req.MaxResults
	if max <= 0 {
		max = e.maxResults
	}
	if len(scored) > max {
		scored = scored[:max]
	}

	for i := range scored {
		decorate(&scored[i], ins, variantID)
	}
	if idx := e.explorer.promptIndex(len(scored)); idx >= 0 {
		scored[idx].FeedbackPrompt = "Was this recommendation helpful?"
	}

	generatedAt := e.clock.Now()
	e.cache.put(key, scored, generatedAt)

	requestID := uuid.NewString()
	e.journalServed(requestID, userID, req.Message, variantID, scored)

	return Result{
		RequestID:       requestID,
		Recommendations: scored,
		Source:          SourceComputed,
		GeneratedAt:     generatedAt,
	}
}

// scoreCandidates computes the five sub-scores per candidate. A tool
// whose scoring fails is skipped, not fatal to the batch.
func (e *Engine) scoreCandidates(ctx context.Context, userID string, candidates []string, ins insight.Insights, weights Weights) []Recommendation {
	now := e.clock.Now()
	scored := make([]Recommendation, 0, len(candidates))

	for _, toolID := range candidates {
		collabScore, err := e.collab.ScoreTool(ctx, userID, toolID)
		if err != nil {
			e.logger.Warn("collaborative scoring failed, skipping tool",
				zap.String("tool", toolID), zap.Error(err))
			continue
		}

		contentScore, err := e.content.ScoreTool(ctx, toolID, userID, ins)
		if err != nil {
			e.logger.Warn("content scoring failed, skipping tool",
				zap.String("tool", toolID), zap.Error(err))
			continue
		}

		lastUsed, hasLastUsed := e.behavior.LastUsed(userID, toolID)

		scores := AlgorithmScores{
			Collaborative: collabScore,
			ContentBased:  contentScore,
			Contextual:    e.insights.ScoreContextualFit(toolID, ins),
			Temporal:      scoreTemporalFit(ins, lastUsed, hasLastUsed, now),
			Behavioral:    e.behavior.Affinity(userID, toolID),
		}
		scores.Combined = combine(scores, weights)

		scored = append(scored, Recommendation{
			ToolID:     toolID,
			Confidence: scores.Combined,
			Scores:     scores,
			Weights:    weights,
		})
	}

	return scored
}

// combine computes the weighted sum of the five sub-scores.
func combine(s AlgorithmScores, w Weights) float64 {
	return clamp01(s.Collaborative*w.Collaborative +
		s.ContentBased*w.ContentBased +
		s.Contextual*w.Contextual +
		s.Temporal*w.Temporal +
		s.Behavioral*w.Behavioral)
}

// resolveWeights picks the effective weight vector: experiment variant
// over caller override over engine defaults. The result is normalized.
func (e *Engine) resolveWeights(userID string, override *Weights) (Weights, string) {
	if variant, ok := e.experiments.GetVariant(userID); ok {
		if w, ok := weightsFromMap(variant.Weights); ok {
			return w.Normalized(), variant.ID
		}
		if override != nil {
			return override.Normalized(), variant.ID
		}
		return e.weights, variant.ID
	}
	if override != nil {
		return override.Normalized(), ""
	}
	return e.weights, ""
}

// seedDeclaredFeatures feeds declared tool metadata into the content
// engine so scoring uses real categories instead of name inference.
func (e *Engine) seedDeclaredFeatures(userID string, candidates []string) {
	if e.metadata == nil {
		return
	}

	var infos []content.ToolInfo
	for _, toolID := range candidates {
		tool, ok := e.metadata.ToolMetadata(toolID)
		if !ok {
			continue
		}
		info := content.ToolInfo{
			Name:        tool.ID,
			Description: tool.Description,
			Complexity:  tool.Complexity,
			Contexts:    tool.Contexts,
			Intents:     tool.Intents,
			ParamCount:  tool.ParameterCount,
		}
		if tool.Category != "" {
			info.Categories = []string{tool.Category}
		}
		infos = append(infos, info)
	}
	if len(infos) > 0 {
		e.content.RegisterToolSet(userID, infos)
	}
}

// decorate fills explanation and personalization fields from the
// already-computed scores and insights. No additional I/O.
func decorate(rec *Recommendation, ins insight.Insights, variantID string) {
	rec.WhyRecommended = whyRecommended(rec.ToolID, rec.Scores, rec.Weights)
	rec.ContextualExplanation = contextualExplanation(rec.ToolID, ins)
	rec.ConfidenceDetails = confidenceDetails(rec.Scores)
	rec.Instructions = instructionsFor(rec.ToolID, ins)
	rec.AdaptiveComplexity = adaptiveComplexity(ins)
	rec.InteractionGuidance = interactionGuidance(ins)
	rec.Variant = variantID
}

// fallbackResult is the degraded response: empty, clearly labeled.
func (e *Engine) fallbackResult() Result {
	return Result{
		RequestID:       uuid.NewString(),
		Recommendations: []Recommendation{},
		Source:          SourceFallback,
		GeneratedAt:     e.clock.Now(),
	}
}

// journalServed records the served ranking. Journaling is best-effort.
func (e *Engine) journalServed(requestID, userID, message, variantID string, recs []Recommendation) {
	if e.journal == nil {
		return
	}

	contextHash := storage.HashContext(message)
	for i, rec := range recs {
		ev := storage.RecommendationEvent{
			RequestID:     requestID,
			UserID:        userID,
			ToolID:        rec.ToolID,
			Rank:          i + 1,
			CombinedScore: rec.Scores.Combined,
			Variant:       variantID,
			ContextHash:   contextHash,
			Timestamp:     e.clock.Now(),
		}
		if err := e.journal.RecordRecommendation(ev); err != nil {
			e.logger.Warn("failed to journal recommendation", zap.Error(err))
		}
	}
}

// ExplainRecommendation recomputes the score breakdown for one tool
// under the request's context. Unlike the request path this is
// explicitly fallible.
func (e *Engine) ExplainRecommendation(ctx context.Context, toolID string, req Request) (Explanation, error) {
	userID := req.Context.UserID
	weights, _ := e.resolveWeights(userID, req.Weights)
	ins := e.insights.Analyze(req.Message, req.History, req.Workflow, req.Context)

	collabScore, err := e.collab.ScoreTool(ctx, userID, toolID)
	if err != nil {
		return Explanation{}, fmt.Errorf("collaborative scoring failed: %w", err)
	}
	contentScore, err := e.content.ScoreTool(ctx, toolID, userID, ins)
	if err != nil {
		return Explanation{}, fmt.Errorf("content scoring failed: %w", err)
	}
	lastUsed, hasLastUsed := e.behavior.LastUsed(userID, toolID)

	scores := AlgorithmScores{
		Collaborative: collabScore,
		ContentBased:  contentScore,
		Contextual:    e.insights.ScoreContextualFit(toolID, ins),
		Temporal:      scoreTemporalFit(ins, lastUsed, hasLastUsed, e.clock.Now()),
		Behavioral:    e.behavior.Affinity(userID, toolID),
	}
	scores.Combined = combine(scores, weights)

	return Explanation{
		ToolID:         toolID,
		Scores:         scores,
		Weights:        weights,
		PrimaryIntent:  ins.PrimaryIntent,
		WorkflowStage:  ins.WorkflowStage,
		Urgency:        ins.Urgency,
		WhyRecommended: whyRecommended(toolID, scores, weights),
		Details:        confidenceDetails(scores),
	}, nil
}

// RecordFeedback propagates post-interaction feedback into the
// collaborative, content and behavioral models, and journals it.
func (e *Engine) RecordFeedback(userID string, fb Feedback) {
	if userID == "" || fb.ToolID == "" {
		return
	}

	now := e.clock.Now()

	e.collab.UpdateUserProfile(userID, fb.ToolID, feedbackRating(fb))
	e.content.RecordFeedback(userID, fb.ToolID, fb.Helpful)
	e.behavior.Record(userID, behavior.Event{
		ToolID:    fb.ToolID,
		Type:      fb.Type,
		Used:      fb.Used,
		Helpful:   fb.Helpful,
		Rating:    fb.Rating,
		Timestamp: now,
	})

	if e.tracker != nil {
		e.tracker.Track(userID, storage.FeedbackEvent{
			FeedbackID: uuid.NewString(),
			UserID:     userID,
			ToolID:     fb.ToolID,
			Type:       fb.Type,
			Used:       fb.Used,
			Helpful:    fb.Helpful,
			Rating:     fb.Rating,
			Timestamp:  now,
		})
	}
}

// feedbackRating maps feedback to a [0,1] rating for the preference
// matrix: explicit ratings dominate, then the helpful flag, then usage.
func feedbackRating(fb Feedback) float64 {
	if fb.Rating > 0 {
		return float64(fb.Rating) / 5.0
	}
	if fb.Helpful {
		return 1.0
	}
	if fb.Used {
		return 0.6
	}
	return 0.2
}

// Analytics aggregates engine and journal statistics.
type Analytics struct {
	// Engine is in-process performance data.
	Engine MetricsSnapshot `json:"engine"`

	// Journal is the persisted event aggregate, zero when journaling is
	// disabled.
	Journal storage.Snapshot `json:"journal"`

	// KnownUsers is the number of users in the preference matrix.
	KnownUsers int `json:"knownUsers"`

	// CacheEntries is the current result-cache size.
	CacheEntries int `json:"cacheEntries"`
}

// GetAnalytics returns aggregate counts and rates since a given time.
func (e *Engine) GetAnalytics(since time.Time) (Analytics, error) {
	analytics := Analytics{
		Engine:       e.metrics.snapshot(),
		KnownUsers:   e.collab.UserCount(),
		CacheEntries: e.cache.size(),
	}

	if e.journal != nil {
		snap, err := e.journal.Analytics(since)
		if err != nil {
			return analytics, fmt.Errorf("journal analytics failed: %w", err)
		}
		analytics.Journal = snap
	}

	return analytics, nil
}

// RegisterAgent registers an integration's user and tool set. Unlike the
// request path this fails loud: setup errors surface to the caller.
func (e *Engine) RegisterAgent(agentID string, tools []registry.Tool, participation abtest.ProfileOptions) error {
	if agentID == "" {
		return fmt.Errorf("recommend: agent ID must not be empty")
	}
	if len(tools) == 0 {
		return fmt.Errorf("recommend: agent %q registered no tools", agentID)
	}

	if registrar, ok := e.registry.(ToolRegistrar); ok {
		if err := registrar.RegisterTools(tools); err != nil {
			return fmt.Errorf("recommend: failed to register tools for agent %q: %w", agentID, err)
		}
	}

	infos := make([]content.ToolInfo, 0, len(tools))
	for _, tool := range tools {
		info := content.ToolInfo{
			Name:        tool.ID,
			Description: tool.Description,
			Complexity:  tool.Complexity,
			Contexts:    tool.Contexts,
			Intents:     tool.Intents,
			ParamCount:  tool.ParameterCount,
		}
		if tool.Category != "" {
			info.Categories = []string{tool.Category}
		}
		infos = append(infos, info)
	}
	e.content.RegisterToolSet(agentID, infos)
	e.collab.RegisterUser(agentID, nil)
	e.experiments.InitializeUserProfile(agentID, participation)

	e.logger.Info("registered agent",
		zap.String("agent", agentID),
		zap.Int("tools", len(tools)))

	return nil
}

// StartMaintenance launches the background cache sweeper. It stops when
// the context is cancelled. Maintenance never blocks request handling.
func (e *Engine) StartMaintenance(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if removed := e.cache.sweep(e.clock.Now()); removed > 0 {
					e.logger.Debug("swept expired cache entries", zap.Int("removed", removed))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close flushes the tracker and closes the journal.
func (e *Engine) Close() error {
	if e.tracker != nil {
		e.tracker.Stop()
	}
	if e.journal != nil {
		return e.journal.Close()
	}
	return nil
}
