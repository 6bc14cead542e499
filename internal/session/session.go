package session

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/sync"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/validator"
)

// StartSelection scopes a new assessment to a tier or an explicit section
// list. An empty selection means the full catalog.
type StartSelection struct {
	Tier       string   `json:"tier,omitempty" validate:"omitempty,assessment_tier"`
	SectionIDs []string `json:"section_ids,omitempty"`
}

// Backend is the persistence surface a Session talks to. All calls carry
// the user identity implicitly; the implementation decides whether that
// is a service layer in-process or an HTTP client.
//
// GetCurrentAssessment returns (nil, nil) when the user has no active
// assessment.
type Backend interface {
	ProgressSaver

	GetCurrentAssessment(ctx context.Context) (*models.Assessment, error)
	StartAssessment(ctx context.Context, selection StartSelection) (*models.Assessment, error)
	GetCatalog(ctx context.Context, assessmentID string) (*models.CatalogStructure, error)
	GetResponses(ctx context.Context, assessmentID string) ([]*models.Response, error)
	CompleteAssessment(ctx context.Context, assessmentID string) error
	SaveConsultationAnswer(ctx context.Context, assessmentID string, answer models.ConsultationAnswer) error
}

// Config wires a Session. Backend is required; everything else has a
// usable default. The callbacks run on timer and bus goroutines and must
// not block.
type Config struct {
	Backend   Backend
	Bus       *sync.Bus
	Logger    *slog.Logger
	Selection StartSelection

	AutosaveInterval  time.Duration
	InactivityTimeout time.Duration
	WarningLead       time.Duration

	// OnNotice surfaces user-facing messages: inactivity warnings and
	// cross-tab activity notices.
	OnNotice func(message string)
	// OnInvalidate fires when another tab saved or started this user's
	// assessment and locally cached server state is stale.
	OnInvalidate func()
	// OnTerminate fires when the session is forcibly ended: inactivity
	// deadline, or the assessment completed in another tab.
	OnTerminate func(reason string)
}

// Termination reasons passed to OnTerminate.
const (
	TerminateInactivity         = "inactivity"
	TerminateCompletedElsewhere = "completed_elsewhere"
)

// Session is one user's live assessment-taking state: the in-memory
// response store, the navigation cursor, the autosave scheduler, the
// inactivity watcher, and the cross-tab subscription. Create it with
// NewSession, bring it to life with Load, and always Close it.
type Session struct {
	backend  Backend
	bus      *sync.Bus
	logger   *slog.Logger
	validate *validator.Validator

	tabID        string
	selection    StartSelection
	onNotice     func(string)
	onInvalidate func()
	onTerminate  func(string)

	assessment *models.Assessment
	catalog    *models.CatalogStructure
	questions  map[string]*models.Question

	store       *ResponseStore
	nav         *Navigator
	autosave    *AutosaveScheduler
	inactivity  *InactivityWatcher
	unsubscribe func()

	ctx    context.Context
	cancel context.CancelFunc

	autosaveInterval  time.Duration
	inactivityTimeout time.Duration
	warningLead       time.Duration

	mu         gosync.Mutex
	interest   *bool
	details    string
	hasResumed bool
	completed  bool
	closed     bool
}

// NewSession creates an unloaded session. Call Load before anything else.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("session: backend is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		backend:           cfg.Backend,
		bus:               cfg.Bus,
		logger:            logger,
		validate:          validator.New(),
		tabID:             sync.NewTabID(),
		onNotice:          cfg.OnNotice,
		onInvalidate:      cfg.OnInvalidate,
		onTerminate:       cfg.OnTerminate,
		autosaveInterval:  cfg.AutosaveInterval,
		inactivityTimeout: cfg.InactivityTimeout,
		warningLead:       cfg.WarningLead,
	}
	if err := s.validate.Validate(&cfg.Selection); err != nil {
		return nil, err
	}
	s.selection = cfg.Selection
	return s, nil
}

// ===== Lifecycle =====

// Load resumes the user's active assessment or starts a new one, restores
// saved responses, positions the cursor at the resume point, and arms the
// autosave, inactivity, and cross-tab machinery.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.assessment != nil {
		return nil
	}

	assessment, started, err := s.loadAssessment(ctx)
	if err != nil {
		return err
	}

	catalog, err := s.backend.GetCatalog(ctx, assessment.ID)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	responses, err := s.backend.GetResponses(ctx, assessment.ID)
	if err != nil {
		return fmt.Errorf("failed to load responses: %w", err)
	}

	s.assessment = assessment
	s.catalog = catalog
	s.questions = indexQuestions(catalog)
	s.interest = assessment.ConsultationInterest
	if assessment.ConsultationDetails != nil {
		s.details = *assessment.ConsultationDetails
	}

	s.store = NewResponseStore()
	s.store.Restore(responses)

	// Timers and subscriptions outlive the Load call; they stop on Close.
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.autosave = NewAutosaveScheduler(AutosaveConfig{
		Saver:        s.backend,
		Bus:          s.bus,
		TabID:        s.tabID,
		AssessmentID: assessment.ID,
		Interval:     s.autosaveInterval,
		Snapshot:     func() []models.ResponseUpsert { return s.store.Snapshot(catalog.Sections) },
		Logger:       s.logger,
	})
	s.autosave.Start(s.ctx)

	s.nav = NewNavigator(catalog.Sections, s.autosave.SaveNow)

	s.inactivity = NewInactivityWatcher(s.inactivityTimeout, s.warningLead,
		s.warnInactivity, s.exitInactivity)
	s.inactivity.Arm()

	// The bus is owned and started by the composition root; the session
	// only subscribes for its own lifetime.
	if s.bus != nil {
		s.unsubscribe = s.bus.Subscribe(s.tabID, s.handleSyncEvent)
	}

	if started && s.bus != nil {
		s.publish(ctx, sync.EventAssessmentStarted, nil)
	}

	if s.store.Len() > 0 && assessment.ProgressPercentage > 0 && !s.nav.ManuallyNavigated() {
		s.nav.SetPosition(ResolveResumePoint(catalog.Sections, s.store))
		s.hasResumed = true
	}

	s.logger.Info("Session loaded",
		"assessment_id", assessment.ID,
		"tab_id", s.tabID,
		"sections", len(catalog.Sections),
		"restored_responses", s.store.Len(),
		"resumed", s.hasResumed)
	return nil
}

func (s *Session) loadAssessment(ctx context.Context) (*models.Assessment, bool, error) {
	assessment, err := s.backend.GetCurrentAssessment(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load current assessment: %w", err)
	}
	if assessment != nil {
		return assessment, false, nil
	}

	assessment, err = s.backend.StartAssessment(ctx, s.selection)
	if err != nil {
		return nil, false, fmt.Errorf("failed to start assessment: %w", err)
	}
	return assessment, true, nil
}

// Close saves outstanding work if the assessment is still in progress,
// then stops every timer and subscription. Close is idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	needsSave := s.assessment != nil && !s.completed
	s.mu.Unlock()

	var saveErr error
	if needsSave {
		if saveErr = s.autosave.SaveNow(ctx); saveErr != nil {
			s.logger.Warn("Pre-exit save failed", "error", saveErr)
		}
	}
	s.teardown()
	return saveErr
}

func (s *Session) teardown() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.inactivity != nil {
		s.inactivity.Close()
	}
	if s.autosave != nil {
		s.autosave.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// ===== Accessors =====

// Assessment returns the loaded assessment, nil before Load.
func (s *Session) Assessment() *models.Assessment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assessment
}

// Catalog returns the loaded (already filtered) catalog structure.
func (s *Session) Catalog() *models.CatalogStructure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// TabID identifies this session instance on the cross-tab channel.
func (s *Session) TabID() string {
	return s.tabID
}

// HasResumed reports whether Load positioned the cursor from saved
// responses rather than at the beginning.
func (s *Session) HasResumed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasResumed
}

// ===== Navigation =====

// Position returns the current cursor position.
func (s *Session) Position() Position {
	if err := s.guard(); err != nil {
		return Position{}
	}
	return s.nav.Position()
}

// Current returns the section and question under the cursor; both are
// nil on the consultation step.
func (s *Session) Current() (*models.Section, *models.Question) {
	if err := s.guard(); err != nil {
		return nil, nil
	}
	return s.nav.Current()
}

// IsCurrentAnswered reports whether the question under the cursor has a
// complete answer. Callers use this to gate forward navigation in the
// presentation layer; Advance itself does not enforce it.
func (s *Session) IsCurrentAnswered() bool {
	if err := s.guard(); err != nil {
		return false
	}
	_, question := s.nav.Current()
	if question == nil {
		return false
	}
	return s.store.IsAnswered(question)
}

// Advance moves the cursor forward, saving progress before crossing a
// section boundary or entering the consultation step. A failed boundary
// save blocks the move.
func (s *Session) Advance(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	s.inactivity.Activity()
	return s.nav.Advance(ctx)
}

// Retreat moves the cursor backward without saving.
func (s *Session) Retreat() error {
	if err := s.guard(); err != nil {
		return err
	}
	s.inactivity.Activity()
	s.nav.Retreat()
	return nil
}

// JumpToSection moves the cursor to the first question of the given
// section and disables resume-point repositioning for this session.
func (s *Session) JumpToSection(sectionIndex int) error {
	if err := s.guard(); err != nil {
		return err
	}
	s.inactivity.Activity()
	return s.nav.JumpToSection(sectionIndex)
}

// ===== Responses =====

// SetAnswer records an answer for a question in the loaded catalog. The
// value must match the question's type and reference known options. An
// empty value clears the answer.
func (s *Session) SetAnswer(questionID string, value models.AnswerValue) error {
	if err := s.guard(); err != nil {
		return err
	}
	s.inactivity.Activity()

	question, ok := s.questions[questionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if !value.IsEmpty() {
		if err := s.validate.Answer().ValidateValue(question, value); err != nil {
			return err
		}
	}
	s.store.SetAnswer(questionID, value)
	return nil
}

// Answer returns the recorded answer for a question.
func (s *Session) Answer(questionID string) (models.AnswerValue, bool) {
	if err := s.guard(); err != nil {
		return models.AnswerValue{}, false
	}
	return s.store.Answer(questionID)
}

// SetComment records an optional comment. Comments over the word limit
// are rejected whole; the previous comment survives. The return reports
// whether the update was applied.
func (s *Session) SetComment(questionID, text string) (bool, error) {
	if err := s.guard(); err != nil {
		return false, err
	}
	s.inactivity.Activity()

	if _, ok := s.questions[questionID]; !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	return s.store.SetComment(questionID, text), nil
}

// Comment returns the recorded comment for a question, empty if none.
func (s *Session) Comment(questionID string) string {
	if err := s.guard(); err != nil {
		return ""
	}
	return s.store.Comment(questionID)
}

// Progress returns the locally computed completion percentage.
func (s *Session) Progress() float64 {
	if err := s.guard(); err != nil {
		return 0
	}
	return s.store.Progress(s.catalog.Sections)
}

// ===== Saving =====

// SaveNow pushes the current snapshot immediately. Manual saves count as
// activity.
func (s *Session) SaveNow(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	s.inactivity.Activity()
	return s.autosave.SaveNow(ctx)
}

// LastSavedAt returns the time of the last successful save, zero if none.
func (s *Session) LastSavedAt() time.Time {
	if s.autosave == nil {
		return time.Time{}
	}
	return s.autosave.LastSavedAt()
}

// ===== Completion =====

// SetConsultation records the consultation answer. Details outside the
// word band are rejected when interest is set.
func (s *Session) SetConsultation(interest bool, details string) error {
	if err := s.guard(); err != nil {
		return err
	}
	s.inactivity.Activity()

	// Details only matter alongside interest; declining clears them.
	if !interest {
		details = ""
	}
	answer := models.ConsultationAnswer{Interest: interest, Details: details}
	if err := s.validate.Validate(&answer); err != nil {
		return err
	}

	s.mu.Lock()
	s.interest = &interest
	s.details = details
	s.mu.Unlock()
	return nil
}

// CanComplete reports whether the completion gate passes with the
// consultation answer recorded so far.
func (s *Session) CanComplete() bool {
	if err := s.guard(); err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return CanComplete(s.interest, s.details)
}

// Complete finalizes the assessment: gate check, consultation answer
// persisted, final snapshot saved, server-side completion, and a
// cross-tab broadcast so other tabs exit. After Complete the session
// rejects further operations.
func (s *Session) Complete(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}

	s.mu.Lock()
	interest, details := s.interest, s.details
	s.mu.Unlock()

	if blocked := CompletionBlocker(interest, details); blocked != nil {
		return blocked
	}

	answer := models.ConsultationAnswer{Interest: *interest, Details: details}
	if err := s.backend.SaveConsultationAnswer(ctx, s.assessment.ID, answer); err != nil {
		return fmt.Errorf("failed to save consultation answer: %w", err)
	}

	if err := s.autosave.SaveNow(ctx); err != nil {
		return err
	}

	if err := s.backend.CompleteAssessment(ctx, s.assessment.ID); err != nil {
		return fmt.Errorf("failed to complete assessment: %w", err)
	}

	s.mu.Lock()
	s.completed = true
	s.mu.Unlock()

	s.publish(ctx, sync.EventAssessmentCompleted, nil)
	s.logger.Info("Assessment completed",
		"assessment_id", s.assessment.ID,
		"consultation_interest", *interest)

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.teardown()
	return nil
}

// ===== Internal =====

func (s *Session) guard() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.assessment == nil {
		return ErrNotLoaded
	}
	if s.completed {
		return ErrAssessmentCompleted
	}
	return nil
}

func (s *Session) publish(ctx context.Context, eventType sync.EventType, payload map[string]any) {
	if s.bus == nil {
		return
	}
	event := sync.Event{
		Type:         eventType,
		AssessmentID: s.assessment.ID,
		OriginTabID:  s.tabID,
		Payload:      payload,
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish sync event", "type", eventType, "error", err)
	}
}

// handleSyncEvent runs on the bus dispatch goroutine. Events from this
// tab never arrive here; the bus filters them by origin.
func (s *Session) handleSyncEvent(event sync.Event) {
	s.mu.Lock()
	assessment := s.assessment
	closed := s.closed
	s.mu.Unlock()

	if closed || assessment == nil || event.AssessmentID != assessment.ID {
		return
	}

	switch event.Type {
	case sync.EventAssessmentStarted, sync.EventProgressSaved:
		s.logger.Info("Assessment updated in another tab",
			"type", event.Type, "origin_tab", event.OriginTabID)
		if s.onInvalidate != nil {
			s.onInvalidate()
		}
		s.notify("This assessment was updated in another window.")
	case sync.EventAssessmentCompleted:
		s.logger.Info("Assessment completed in another tab",
			"origin_tab", event.OriginTabID)
		s.forceExit(TerminateCompletedElsewhere, false)
	}
}

func (s *Session) warnInactivity() {
	s.notify("You will be signed out in 1 minute due to inactivity.")
}

// exitInactivity runs on the watcher's timer goroutine: best-effort save,
// then terminate.
func (s *Session) exitInactivity() {
	s.logger.Info("Inactivity deadline reached", "assessment_id", s.assessment.ID)
	s.forceExit(TerminateInactivity, true)
}

func (s *Session) forceExit(reason string, save bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	needsSave := save && !s.completed
	s.mu.Unlock()

	if needsSave {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.autosave.SaveNow(ctx); err != nil {
			s.logger.Warn("Exit save failed", "reason", reason, "error", err)
		}
	}
	s.teardown()
	if s.onTerminate != nil {
		s.onTerminate(reason)
	}
}

func (s *Session) notify(message string) {
	if s.onNotice != nil {
		s.onNotice(message)
	}
}

func indexQuestions(catalog *models.CatalogStructure) map[string]*models.Question {
	index := make(map[string]*models.Question)
	for i := range catalog.Sections {
		section := &catalog.Sections[i]
		for j := range section.Questions {
			index[section.Questions[j].ID] = &section.Questions[j]
		}
	}
	return index
}
