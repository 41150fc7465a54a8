package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/logger"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/repos"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/scrapers"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
)

// Identifier maps a product image to a best-guess textual query.
type Identifier interface {
	IdentifyProduct(ctx context.Context, image []byte, mimeType string) (*types.ProductInfo, error)
}

type SearchConfig struct {
	// TaskBudget bounds a whole task; past it, in-flight fetches are abandoned
	// and the task goes terminal with whatever arrived.
	TaskBudget time.Duration
	// ConfidenceThreshold gates whether an identified query is trusted.
	// Below it the search still runs, flagged low-confidence.
	ConfidenceThreshold float64
	DefaultMaxResults   int
}

type SubmitTextInput struct {
	Query      string
	Platforms  []string
	MaxResults int
	ClientIP   string
	UserAgent  string
}

type SubmitImageInput struct {
	Image      []byte
	MimeType   string
	MaxResults int
	ClientIP   string
	UserAgent  string
}

type TaskProgress struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

type TaskStatus struct {
	TaskID     string            `json:"task_id"`
	Status     string            `json:"status"`
	Query      string            `json:"query,omitempty"`
	Message    string            `json:"message,omitempty"`
	Error      string            `json:"error,omitempty"`
	Progress   *TaskProgress     `json:"progress,omitempty"`
	Products   []*types.Product  `json:"products,omitempty"`
	SearchInfo *types.SearchInfo `json:"search_info,omitempty"`
}

type SearchService interface {
	SubmitText(ctx context.Context, in SubmitTextInput) (*types.SearchTask, error)
	SubmitImage(ctx context.Context, in SubmitImageInput) (*types.SearchTask, error)
	GetStatus(ctx context.Context, taskID uuid.UUID) (*TaskStatus, error)
}

type searchService struct {
	db          *gorm.DB
	log         *logger.Logger
	cfg         SearchConfig
	taskRepo    repos.SearchTaskRepo
	productRepo repos.ProductRepo
	historyRepo repos.SearchHistoryRepo
	platforms   []*types.Platform
	registry    *scrapers.Registry
	aggregator  AggregationService
	identifier  Identifier
	cache       SearchCache
}

// NewSearchService wires the orchestrator. The platform set is the immutable
// startup configuration, already filtered to active platforms with a
// registered scraper.
func NewSearchService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg SearchConfig,
	taskRepo repos.SearchTaskRepo,
	productRepo repos.ProductRepo,
	historyRepo repos.SearchHistoryRepo,
	platforms []*types.Platform,
	registry *scrapers.Registry,
	aggregator AggregationService,
	identifier Identifier,
	cache SearchCache,
) SearchService {
	if cfg.TaskBudget <= 0 {
		cfg.TaskBudget = 2 * time.Minute
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.5
	}
	if cfg.DefaultMaxResults <= 0 {
		cfg.DefaultMaxResults = 20
	}
	return &searchService{
		db:          db,
		log:         baseLog.With("service", "SearchService"),
		cfg:         cfg,
		taskRepo:    taskRepo,
		productRepo: productRepo,
		historyRepo: historyRepo,
		platforms:   platforms,
		registry:    registry,
		aggregator:  aggregator,
		identifier:  identifier,
		cache:       cache,
	}
}

func (s *searchService) SubmitText(ctx context.Context, in SubmitTextInput) (*types.SearchTask, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}
	platforms, err := s.selectPlatforms(in.Platforms)
	if err != nil {
		return nil, err
	}
	maxResults := s.clampMaxResults(in.MaxResults)
	names := platformNames(platforms)

	// Repeat searches are served from cache without re-scraping; the task is
	// born terminal.
	if cached, err := s.cache.Get(ctx, query, names); err == nil && cached != nil {
		return s.createCachedTask(ctx, query, names, cached, in.ClientIP, in.UserAgent)
	} else if err != nil {
		s.log.Warn("Search cache lookup failed", "query", query, "error", err)
	}

	task := &types.SearchTask{
		ID:         uuid.New(),
		Kind:       types.SearchKindText,
		Query:      query,
		Status:     types.TaskStatusPending,
		TotalCount: len(platforms),
		Message:    fmt.Sprintf("Searching %d platforms for %q", len(platforms), query),
	}
	if _, err := s.taskRepo.Create(ctx, nil, task); err != nil {
		return nil, fmt.Errorf("create search task: %w", err)
	}

	go s.run(task.ID, query, platforms, maxResults, nil, in.ClientIP, in.UserAgent)
	return task, nil
}

func (s *searchService) SubmitImage(ctx context.Context, in SubmitImageInput) (*types.SearchTask, error) {
	if len(in.Image) == 0 {
		return nil, fmt.Errorf("%w: empty image payload", ErrInvalidInput)
	}
	if s.identifier == nil {
		return nil, fmt.Errorf("identification service not configured")
	}
	platforms, err := s.selectPlatforms(nil)
	if err != nil {
		return nil, err
	}
	maxResults := s.clampMaxResults(in.MaxResults)

	task := &types.SearchTask{
		ID:         uuid.New(),
		Kind:       types.SearchKindImage,
		Status:     types.TaskStatusPending,
		TotalCount: len(platforms),
		Message:    "Processing image and searching platforms",
	}
	if _, err := s.taskRepo.Create(ctx, nil, task); err != nil {
		return nil, fmt.Errorf("create search task: %w", err)
	}

	image := append([]byte(nil), in.Image...)
	go s.runImage(task.ID, image, in.MimeType, platforms, maxResults, in.ClientIP, in.UserAgent)
	return task, nil
}

func (s *searchService) GetStatus(ctx context.Context, taskID uuid.UUID) (*TaskStatus, error) {
	task, err := s.taskRepo.GetByID(ctx, nil, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}

	out := &TaskStatus{
		TaskID:  task.ID.String(),
		Status:  task.Status,
		Query:   task.Query,
		Message: task.Message,
		Error:   task.Error,
	}
	if task.TotalCount > 0 {
		out.Progress = &TaskProgress{
			Completed:  task.CompletedCount,
			Total:      task.TotalCount,
			Percentage: task.CompletedCount * 100 / task.TotalCount,
		}
	}
	if len(task.SearchInfo) > 0 {
		var info types.SearchInfo
		if err := json.Unmarshal(task.SearchInfo, &info); err == nil {
			out.SearchInfo = &info
		}
	}
	if task.Status == types.TaskStatusCompleted && len(task.ProductIDs) > 0 {
		var ids []uuid.UUID
		if err := json.Unmarshal(task.ProductIDs, &ids); err == nil && len(ids) > 0 {
			products, err := s.productRepo.GetByIDs(ctx, nil, ids)
			if err != nil {
				return nil, err
			}
			out.Products = products
		}
	}
	return out, nil
}

// runImage resolves the image to a query first, then falls into the shared
// fan-out. Identification failure fails the task; there is nothing to search.
// Low confidence only flags the result so the client can warn the user.
func (s *searchService) runImage(taskID uuid.UUID, image []byte, mimeType string, platforms []*types.Platform, maxResults int, clientIP, userAgent string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.TaskBudget)
	defer cancel()

	info, err := s.identifier.IdentifyProduct(ctx, image, mimeType)
	if err != nil {
		s.log.Warn("Image identification failed", "task_id", taskID, "error", err)
		s.markFailed(taskID, fmt.Sprintf("identification failed: %v", err))
		return
	}

	query := BuildSearchQuery(info)
	searchInfo := types.SearchInfo{
		ProductName: info.ProductName,
		Brand:       info.Brand,
		Category:    info.Category,
		Confidence:  info.Confidence,
		LowMatch:    info.Confidence < s.cfg.ConfidenceThreshold,
	}
	infoJSON, _ := json.Marshal(searchInfo)
	if ok, err := s.taskRepo.UpdateActive(context.Background(), nil, taskID, map[string]interface{}{
		"query":       query,
		"search_info": datatypes.JSON(infoJSON),
	}); err != nil || !ok {
		return
	}

	s.runWithContext(ctx, taskID, query, platforms, maxResults, info, clientIP, userAgent)
}

func (s *searchService) run(taskID uuid.UUID, query string, platforms []*types.Platform, maxResults int, info *types.ProductInfo, clientIP, userAgent string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.TaskBudget)
	defer cancel()
	s.runWithContext(ctx, taskID, query, platforms, maxResults, info, clientIP, userAgent)
}

type platformResult struct {
	platform *types.Platform
	listings []types.RawListing
	err      error
}

// runWithContext fans the query out to every platform and folds completions
// back into the task in arrival order. Each adapter is one unit of
// concurrency; the caller waits on the slowest, never the sum.
func (s *searchService) runWithContext(ctx context.Context, taskID uuid.UUID, query string, platforms []*types.Platform, maxResults int, info *types.ProductInfo, clientIP, userAgent string) {
	kind := types.SearchKindText
	if info != nil {
		kind = types.SearchKindImage
	}
	now := time.Now()
	if ok, err := s.taskRepo.UpdateActive(context.Background(), nil, taskID, map[string]interface{}{
		"status":     types.TaskStatusProcessing,
		"started_at": now,
	}); err != nil || !ok {
		return
	}

	resultCh := make(chan platformResult, len(platforms))
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range platforms {
		p := p
		g.Go(func() error {
			listings, err := s.fetchOne(gctx, p, query, maxResults)
			resultCh <- platformResult{platform: p, listings: listings, err: err}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(resultCh)
	}()

	total := len(platforms)
	completed := 0
	failures := 0
	runs := map[string]types.PlatformRun{}
	var productIDs []uuid.UUID
	seen := map[uuid.UUID]bool{}

	for res := range resultCh {
		completed++
		if res.err != nil {
			failures++
			runs[res.platform.Name] = types.PlatformRun{Status: types.TaskStatusFailed, Error: res.err.Error()}
		} else {
			products, err := s.aggregator.Ingest(ctx, res.platform, res.listings, info)
			if err != nil {
				failures++
				runs[res.platform.Name] = types.PlatformRun{Status: types.TaskStatusFailed, Error: err.Error()}
			} else {
				runs[res.platform.Name] = types.PlatformRun{Status: types.TaskStatusCompleted, ResultsCount: len(products)}
				for _, p := range products {
					if !seen[p.ID] {
						seen[p.ID] = true
						productIDs = append(productIDs, p.ID)
					}
				}
			}
		}

		runsJSON, _ := json.Marshal(runs)
		idsJSON, _ := json.Marshal(productIDs)
		ok, err := s.taskRepo.UpdateActive(context.Background(), nil, taskID, map[string]interface{}{
			"completed_count": completed,
			"platform_runs":   datatypes.JSON(runsJSON),
			"product_ids":     datatypes.JSON(idsJSON),
			"message":         fmt.Sprintf("Searching platforms (%d/%d completed)", completed, total),
		})
		if err != nil {
			s.log.Warn("Failed to update task progress", "task_id", taskID, "error", err)
			continue
		}
		if !ok {
			// Task already terminal; whatever is still in flight is moot.
			s.log.Debug("Task went terminal mid-flight, discarding remaining results", "task_id", taskID)
			return
		}
	}

	s.finalize(taskID, kind, query, platforms, productIDs, completed, failures, clientIP, userAgent)
}

// fetchOne shields the fan-out from a scraper that ignores its context: the
// fetch runs in its own goroutine, and on deadline the call is abandoned.
func (s *searchService) fetchOne(ctx context.Context, platform *types.Platform, query string, maxResults int) ([]types.RawListing, error) {
	type fetchOut struct {
		listings []types.RawListing
		err      error
	}
	out := make(chan fetchOut, 1)
	go func() {
		listings, err := s.registry.Fetch(ctx, platform.Name, query, maxResults)
		out <- fetchOut{listings: listings, err: err}
	}()
	select {
	case o := <-out:
		return o.listings, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: fetch abandoned: %v", scrapers.ErrPlatformUnreachable, ctx.Err())
	}
}

func (s *searchService) finalize(taskID uuid.UUID, kind, query string, platforms []*types.Platform, productIDs []uuid.UUID, completed, failures int, clientIP, userAgent string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	now := time.Now()
	if failures == len(platforms) && len(productIDs) == 0 {
		if ok, err := s.taskRepo.UpdateActive(ctx, nil, taskID, map[string]interface{}{
			"status":       types.TaskStatusFailed,
			"error":        "all platforms failed or timed out",
			"message":      "Search failed",
			"completed_at": now,
		}); err != nil || !ok {
			return
		}
		s.log.Warn("Search task failed on all platforms", "task_id", taskID, "query", query)
		return
	}

	idsJSON, _ := json.Marshal(productIDs)
	ok, err := s.taskRepo.UpdateActive(ctx, nil, taskID, map[string]interface{}{
		"status":       types.TaskStatusCompleted,
		"message":      fmt.Sprintf("Found %d products", len(productIDs)),
		"product_ids":  datatypes.JSON(idsJSON),
		"completed_at": now,
	})
	if err != nil || !ok {
		return
	}

	if err := s.productRepo.IncrementSearchCount(ctx, nil, productIDs); err != nil {
		s.log.Warn("Failed to increment search counts", "task_id", taskID, "error", err)
	}
	if _, err := s.historyRepo.Create(ctx, nil, &types.SearchHistory{
		Query:        query,
		SearchKind:   kind,
		ResultsCount: len(productIDs),
		IPAddress:    clientIP,
		UserAgent:    userAgent,
	}); err != nil {
		s.log.Warn("Failed to record search history", "task_id", taskID, "error", err)
	}
	if err := s.cache.Set(ctx, query, platformNames(platforms), &CachedSearch{
		Query:        query,
		ProductIDs:   productIDs,
		ResultsCount: len(productIDs),
	}); err != nil {
		s.log.Warn("Failed to cache search results", "task_id", taskID, "error", err)
	}
	s.log.Info("Search task completed", "task_id", taskID, "query", query, "products", len(productIDs), "completed", completed, "failures", failures)
}

func (s *searchService) markFailed(taskID uuid.UUID, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	now := time.Now()
	_, _ = s.taskRepo.UpdateActive(ctx, nil, taskID, map[string]interface{}{
		"status":       types.TaskStatusFailed,
		"error":        msg,
		"message":      "Search failed",
		"completed_at": now,
	})
}

func (s *searchService) createCachedTask(ctx context.Context, query string, names []string, cached *CachedSearch, clientIP, userAgent string) (*types.SearchTask, error) {
	now := time.Now()
	idsJSON, _ := json.Marshal(cached.ProductIDs)
	task := &types.SearchTask{
		ID:             uuid.New(),
		Kind:           types.SearchKindText,
		Query:          query,
		Status:         types.TaskStatusCompleted,
		CompletedCount: len(names),
		TotalCount:     len(names),
		Message:        fmt.Sprintf("Found %d products (cached)", cached.ResultsCount),
		ProductIDs:     datatypes.JSON(idsJSON),
		StartedAt:      &now,
		CompletedAt:    &now,
	}
	if _, err := s.taskRepo.Create(ctx, nil, task); err != nil {
		return nil, fmt.Errorf("create search task: %w", err)
	}
	if _, err := s.historyRepo.Create(ctx, nil, &types.SearchHistory{
		Query:        query,
		SearchKind:   types.SearchKindText,
		ResultsCount: cached.ResultsCount,
		IPAddress:    clientIP,
		UserAgent:    userAgent,
	}); err != nil {
		s.log.Warn("Failed to record search history", "error", err)
	}
	return task, nil
}

// selectPlatforms intersects the requested platform names with the configured
// active set. An empty request means all of them.
func (s *searchService) selectPlatforms(requested []string) ([]*types.Platform, error) {
	if len(requested) == 0 {
		if len(s.platforms) == 0 {
			return nil, fmt.Errorf("%w: no active platforms configured", ErrInvalidInput)
		}
		return s.platforms, nil
	}
	want := map[string]bool{}
	for _, name := range requested {
		want[strings.ToLower(strings.TrimSpace(name))] = true
	}
	var out []*types.Platform
	for _, p := range s.platforms {
		if want[p.Name] {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no known platforms in %v", ErrInvalidInput, requested)
	}
	return out, nil
}

func (s *searchService) clampMaxResults(n int) int {
	if n <= 0 {
		return s.cfg.DefaultMaxResults
	}
	if n > 50 {
		return 50
	}
	return n
}

func platformNames(platforms []*types.Platform) []string {
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, p.Name)
	}
	return out
}

// BuildSearchQuery composes a search query from identified product info:
// brand, then name, then the two strongest features.
func BuildSearchQuery(info *types.ProductInfo) string {
	var parts []string
	if info.Brand != "" {
		parts = append(parts, info.Brand)
	}
	if info.ProductName != "" {
		parts = append(parts, info.ProductName)
	}
	for i, f := range info.Features {
		if i >= 2 {
			break
		}
		parts = append(parts, f)
	}
	if len(parts) == 0 {
		return "unknown product"
	}
	return strings.Join(parts, " ")
}
