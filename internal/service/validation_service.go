package service

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/venturahq/ventura/internal/agent"
	"github.com/venturahq/ventura/internal/domain"
	"github.com/venturahq/ventura/internal/retry"
	"github.com/venturahq/ventura/internal/store"
	"github.com/venturahq/ventura/internal/workflow"
)

// ValidationService is the caller-facing surface of the hub. Starting a
// validation creates and persists a session, then runs it on a background
// goroutine; callers poll GetResult or cancel.
type ValidationService struct {
	store  store.SessionStore
	client agent.ReasoningClient
	exec   *retry.Executor
	cfg    workflow.Config

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewValidationService wraps the store so every read and write runs through
// the executor's database class; callers hand in the bare driver.
func NewValidationService(sessionStore store.SessionStore, client agent.ReasoningClient, exec *retry.Executor, cfg workflow.Config) *ValidationService {
	return &ValidationService{
		store:   store.NewRetryingStore(sessionStore, exec),
		client:  client,
		exec:    exec,
		cfg:     cfg,
		cancels: map[string]context.CancelFunc{},
	}
}

type StartValidationRequest struct {
	Description  string                       `json:"description"`
	Industry     string                       `json:"industry"`
	TargetMarket string                       `json:"target_market"`
	BusinessMod  string                       `json:"business_model"`
	Region       string                       `json:"region"`
	Financials   *domain.FinancialAssumptions `json:"financials,omitempty"`
}

func (r StartValidationRequest) toIdea() (domain.Idea, error) {
	idea := domain.Idea{
		Description:  strings.TrimSpace(r.Description),
		Industry:     strings.TrimSpace(r.Industry),
		TargetMarket: strings.TrimSpace(r.TargetMarket),
		BusinessMod:  strings.TrimSpace(r.BusinessMod),
		Region:       strings.TrimSpace(r.Region),
		Financials:   r.Financials,
	}
	if idea.Description == "" {
		return domain.Idea{}, domain.InvalidArgument("idea description is required")
	}
	if idea.Industry == "" {
		return domain.Idea{}, domain.InvalidArgument("industry is required")
	}
	if idea.TargetMarket == "" {
		return domain.Idea{}, domain.InvalidArgument("target market is required")
	}
	if idea.BusinessMod == "" {
		return domain.Idea{}, domain.InvalidArgument("business model is required")
	}
	return idea, nil
}

func (s *ValidationService) StartSequentialValidation(request StartValidationRequest) (domain.ValidationSession, error) {
	return s.start(request, domain.ModeSequential)
}

func (s *ValidationService) StartScenarioSwarm(request StartValidationRequest) (domain.ValidationSession, error) {
	return s.start(request, domain.ModeSwarm)
}

func (s *ValidationService) start(request StartValidationRequest, mode domain.SessionMode) (domain.ValidationSession, error) {
	idea, err := request.toIdea()
	if err != nil {
		return domain.ValidationSession{}, err
	}

	session := domain.ValidationSession{
		ID:        "vs_" + uuid.NewString(),
		Mode:      mode,
		State:     domain.SessionRunning,
		Idea:      idea,
		Phases:    []domain.PhaseResult{},
		Scenarios: []domain.ScenarioResult{},
		StartedAt: timeNow(),
	}
	if err := s.store.InsertSession(session); err != nil {
		return domain.ValidationSession{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[session.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(session.ID)
		switch mode {
		case domain.ModeSequential:
			s.runSequential(ctx, session)
		case domain.ModeSwarm:
			s.runSwarm(ctx, session)
		}
	}()

	log.Printf("service: session=%s mode=%s started", session.ID, mode)
	return session, nil
}

func (s *ValidationService) release(sessionID string) {
	s.mu.Lock()
	if cancel, ok := s.cancels[sessionID]; ok {
		cancel()
		delete(s.cancels, sessionID)
	}
	s.mu.Unlock()
}

func (s *ValidationService) runSequential(ctx context.Context, session domain.ValidationSession) {
	var progressMu sync.Mutex
	runner := &workflow.PhaseRunner{
		Client: s.client,
		Exec:   s.exec,
		Cfg:    s.cfg,
		OnPhase: func(result domain.PhaseResult) {
			progressMu.Lock()
			session.Phases = append(session.Phases, result)
			snapshot := session
			progressMu.Unlock()
			if err := s.store.UpdateSession(snapshot); err != nil {
				log.Printf("service: session=%s progress persist failed: %v", snapshot.ID, err)
			}
		},
	}

	outcome := runner.Run(ctx, session.Idea)
	report := workflow.AggregateSequential(outcome, s.cfg.ConfidenceThreshold)

	cancelled := ctx.Err() != nil
	if cancelled {
		report.OverallStatus = domain.OverallCancelled
		report.FailedPhase = ""
	}

	session.Phases = outcome.Phases
	s.finalize(ctx, &session, report, outcome.Aborted && !cancelled)
	if outcome.FailureErr != nil && !cancelled {
		s.recordError(outcome.FailureErr, "phase:"+outcome.FailedPhase)
	}
}

func (s *ValidationService) runSwarm(ctx context.Context, session domain.ValidationSession) {
	var progressMu sync.Mutex
	coordinator := &workflow.SwarmCoordinator{
		Client: s.client,
		Exec:   s.exec,
		Cfg:    s.cfg,
		OnScenario: func(result domain.ScenarioResult) {
			progressMu.Lock()
			session.Scenarios = append(session.Scenarios, result)
			snapshot := session
			progressMu.Unlock()
			if err := s.store.UpdateSession(snapshot); err != nil {
				log.Printf("service: session=%s progress persist failed: %v", snapshot.ID, err)
			}
		},
	}

	results := coordinator.Run(ctx, session.Idea)
	report := workflow.AggregateSwarm(results, s.cfg.FailedScenarioSeverity)
	if ctx.Err() != nil {
		report.OverallStatus = domain.OverallCancelled
	}

	session.Scenarios = results
	s.finalize(ctx, &session, report, false)
}

// finalize stamps and serializes the report exactly once; every later
// GetResult returns these same bytes.
func (s *ValidationService) finalize(ctx context.Context, session *domain.ValidationSession, report domain.Report, aborted bool) {
	report.SessionID = session.ID
	report.GeneratedAt = timeNow()

	switch {
	case ctx.Err() != nil:
		session.State = domain.SessionCancelled
	case aborted:
		session.State = domain.SessionAborted
	default:
		session.State = domain.SessionComplete
	}
	session.EndedAt = timeNow()
	session.Report = &report

	serialized, err := json.Marshal(report)
	if err != nil {
		log.Printf("service: session=%s report serialization failed: %v", session.ID, err)
	} else {
		session.ReportJSON = string(serialized)
	}

	if err := s.store.UpdateSession(*session); err != nil {
		log.Printf("service: session=%s finalize persist failed: %v", session.ID, err)
		s.recordError(err, "store")
	}
	log.Printf("service: session=%s mode=%s finished state=%s status=%s score=%.2f",
		session.ID, session.Mode, session.State, report.OverallStatus, report.CompositeScore)
}

type GetResultResponse struct {
	SessionID     string              `json:"session_id"`
	State         domain.SessionState `json:"state"`
	InProgress    bool                `json:"in_progress"`
	PhasesDone    int                 `json:"phases_done,omitempty"`
	ScenariosDone int                 `json:"scenarios_done,omitempty"`
	Report        json.RawMessage     `json:"report,omitempty"`
}

func (s *ValidationService) GetResult(id string) (GetResultResponse, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return GetResultResponse{}, domain.InvalidArgument("session id is required")
	}
	session, ok, err := s.store.GetSession(id)
	if err != nil {
		return GetResultResponse{}, err
	}
	if !ok {
		return GetResultResponse{}, domain.NotFound("session not found: " + id)
	}

	response := GetResultResponse{
		SessionID:     session.ID,
		State:         session.State,
		InProgress:    !session.State.Terminal(),
		PhasesDone:    len(session.Phases),
		ScenariosDone: len(session.Scenarios),
	}
	if session.State.Terminal() && session.ReportJSON != "" {
		response.Report = json.RawMessage(session.ReportJSON)
	}
	return response, nil
}

func (s *ValidationService) Cancel(id string) (domain.ValidationSession, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ValidationSession{}, domain.InvalidArgument("session id is required")
	}
	session, ok, err := s.store.GetSession(id)
	if err != nil {
		return domain.ValidationSession{}, err
	}
	if !ok {
		return domain.ValidationSession{}, domain.NotFound("session not found: " + id)
	}
	if session.State.Terminal() {
		return domain.ValidationSession{}, domain.FailedPrecondition("session already finished: " + string(session.State))
	}

	s.mu.Lock()
	cancel, running := s.cancels[id]
	s.mu.Unlock()
	if running {
		// The session goroutine observes the cancellation and finalizes
		// with everything recorded so far.
		cancel()
		log.Printf("service: session=%s cancel requested", id)
		return session, nil
	}

	// No goroutine owns this session (e.g. after a restart); mark it
	// cancelled directly.
	session.State = domain.SessionCancelled
	session.EndedAt = timeNow()
	if err := s.store.UpdateSession(session); err != nil {
		return domain.ValidationSession{}, err
	}
	return session, nil
}

func (s *ValidationService) ListSessions() ([]domain.ValidationSession, error) {
	return s.store.ListSessions()
}

func (s *ValidationService) Summary() (domain.Summary, error) {
	sessions, err := s.store.ListSessions()
	if err != nil {
		return domain.Summary{}, err
	}
	summary := domain.Summary{}
	summary.ByMode = map[string]struct {
		Count    int `json:"count"`
		Complete int `json:"complete"`
	}{}

	confidenceTotal, confidenceCount := 0.0, 0
	for _, session := range sessions {
		summary.Counts.Sessions++
		switch session.State {
		case domain.SessionRunning, domain.SessionPending:
			summary.Counts.Running++
		case domain.SessionComplete:
			summary.Counts.Complete++
		case domain.SessionAborted:
			summary.Counts.Aborted++
		case domain.SessionCancelled:
			summary.Counts.Cancelled++
		}
		entry := summary.ByMode[string(session.Mode)]
		entry.Count++
		if session.State == domain.SessionComplete {
			entry.Complete++
		}
		summary.ByMode[string(session.Mode)] = entry
		for _, phase := range session.Phases {
			confidenceTotal += phase.Confidence
			confidenceCount++
		}
	}
	finished := summary.Counts.Complete + summary.Counts.Aborted + summary.Counts.Cancelled
	if finished > 0 {
		summary.SuccessRate = float64(summary.Counts.Complete) / float64(finished)
	}
	if confidenceCount > 0 {
		summary.AvgConfidence = confidenceTotal / float64(confidenceCount)
	}
	if recent, err := s.store.RecentErrors(10); err == nil {
		summary.RecentErrors = recent
	}
	return summary, nil
}

func (s *ValidationService) Health() map[string]any {
	return map[string]any{
		"status":   "ok",
		"time_utc": timeNow(),
		"breakers": map[string]string{
			string(retry.ClassReasoning):   string(s.exec.BreakerState(retry.ClassReasoning)),
			string(retry.ClassDatabase):    string(s.exec.BreakerState(retry.ClassDatabase)),
			string(retry.ClassCache):       string(s.exec.BreakerState(retry.ClassCache)),
			string(retry.ClassExternalAPI): string(s.exec.BreakerState(retry.ClassExternalAPI)),
			string(retry.ClassCompute):     string(s.exec.BreakerState(retry.ClassCompute)),
		},
	}
}

func (s *ValidationService) ExportState() (domain.State, error) {
	return s.store.ExportState()
}

// Shutdown cancels every in-flight session and waits for their goroutines,
// bounded by ctx.
func (s *ValidationService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for id, cancel := range s.cancels {
		log.Printf("service: session=%s cancelled for shutdown", id)
		cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return domain.Timeout("shutdown wait expired", ctx.Err())
	}
}

func (s *ValidationService) recordError(err error, source string) {
	code := string(domain.CodeInternal)
	if typed, ok := domain.AsAppError(err); ok {
		code = string(typed.Code)
	}
	event := domain.ErrorEvent{
		Code:      code,
		Message:   err.Error(),
		Source:    source,
		CreatedAt: timeNow(),
	}
	if insertErr := s.store.InsertError(event); insertErr != nil {
		log.Printf("service: error event persist failed: %v", insertErr)
	}
}

func timeNow() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
