package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opopir/opopir-backend/internal/model"
)

// ─── In-memory fakes ────────────────────────────────────────────────

type memSessionStore struct {
	sessions   map[uuid.UUID]*model.ExamSession
	answers    map[uuid.UUID]map[int]string
	answeredAt map[uuid.UUID]map[int]int64
	openErr    error // forced failure for GetOpenByUser
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{
		sessions:   make(map[uuid.UUID]*model.ExamSession),
		answers:    make(map[uuid.UUID]map[int]string),
		answeredAt: make(map[uuid.UUID]map[int]int64),
	}
}

func (m *memSessionStore) Create(_ context.Context, s *model.ExamSession) error {
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessionStore) Get(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionStore) GetOpenByUser(_ context.Context, userID int) (*model.ExamSession, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	for _, s := range m.sessions {
		if s.Config.UserID == userID && s.Open() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (m *memSessionStore) MarkSubmitted(_ context.Context, id uuid.UUID, submittedAt time.Time, elapsedSeconds int) (bool, error) {
	s, ok := m.sessions[id]
	if !ok {
		return false, ErrSessionNotFound
	}
	if !s.Open() {
		return false, nil
	}
	s.Status = model.SessionStatusSubmitted
	s.SubmittedAt = &submittedAt
	s.ElapsedSeconds = elapsedSeconds
	return true, nil
}

func (m *memSessionStore) ListByUser(_ context.Context, userID, _, _ int) ([]model.ExamSession, int64, error) {
	var out []model.ExamSession
	for _, s := range m.sessions {
		if s.Config.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memSessionStore) Answers(_ context.Context, id uuid.UUID) (map[int]string, map[int]int64, error) {
	answers := make(map[int]string, len(m.answers[id]))
	for k, v := range m.answers[id] {
		answers[k] = v
	}
	answeredAt := make(map[int]int64, len(m.answeredAt[id]))
	for k, v := range m.answeredAt[id] {
		answeredAt[k] = v
	}
	return answers, answeredAt, nil
}

type memSnapshotStore struct {
	answers    map[uuid.UUID]map[int]string
	answeredAt map[uuid.UUID]map[int]int64
}

func newMemSnapshotStore() *memSnapshotStore {
	return &memSnapshotStore{
		answers:    make(map[uuid.UUID]map[int]string),
		answeredAt: make(map[uuid.UUID]map[int]int64),
	}
}

func (m *memSnapshotStore) SaveAnswer(_ context.Context, sessionID uuid.UUID, position int, choice string, at time.Time) error {
	if m.answers[sessionID] == nil {
		m.answers[sessionID] = make(map[int]string)
		m.answeredAt[sessionID] = make(map[int]int64)
	}
	if choice == "" {
		delete(m.answers[sessionID], position)
		delete(m.answeredAt[sessionID], position)
		return nil
	}
	m.answers[sessionID][position] = choice
	m.answeredAt[sessionID][position] = at.Unix()
	return nil
}

func (m *memSnapshotStore) Load(_ context.Context, sessionID uuid.UUID) (*model.SessionSnapshot, error) {
	snap := &model.SessionSnapshot{
		SessionID:  sessionID,
		Answers:    make(map[int]string),
		AnsweredAt: make(map[int]int64),
	}
	for k, v := range m.answers[sessionID] {
		snap.Answers[k] = v
	}
	for k, v := range m.answeredAt[sessionID] {
		snap.AnsweredAt[k] = v
	}
	return snap, nil
}

func (m *memSnapshotStore) Restore(_ context.Context, snap *model.SessionSnapshot) error {
	m.answers[snap.SessionID] = make(map[int]string)
	m.answeredAt[snap.SessionID] = make(map[int]int64)
	for k, v := range snap.Answers {
		m.answers[snap.SessionID][k] = v
	}
	for k, v := range snap.AnsweredAt {
		m.answeredAt[snap.SessionID][k] = v
	}
	return nil
}

func (m *memSnapshotStore) Clear(_ context.Context, sessionID uuid.UUID) error {
	delete(m.answers, sessionID)
	delete(m.answeredAt, sessionID)
	return nil
}

type memDeadlineIndex struct {
	deadlines map[uuid.UUID]time.Time
}

func newMemDeadlineIndex() *memDeadlineIndex {
	return &memDeadlineIndex{deadlines: make(map[uuid.UUID]time.Time)}
}

func (m *memDeadlineIndex) Schedule(_ context.Context, sessionID uuid.UUID, deadline time.Time) error {
	m.deadlines[sessionID] = deadline
	return nil
}

func (m *memDeadlineIndex) Cancel(_ context.Context, sessionID uuid.UUID) error {
	delete(m.deadlines, sessionID)
	return nil
}

type memJobQueue struct {
	answerJobs []model.AnswerJob
	scoreJobs  []model.ScoreJob
}

func (m *memJobQueue) EnqueueAnswer(_ context.Context, job model.AnswerJob) error {
	m.answerJobs = append(m.answerJobs, job)
	return nil
}

func (m *memJobQueue) EnqueueScore(_ context.Context, job model.ScoreJob) error {
	m.scoreJobs = append(m.scoreJobs, job)
	return nil
}

type memQuestionSource struct {
	questions []model.Question
}

func (m *memQuestionSource) Draw(_ context.Context, src model.DrawSource, count int) ([]model.Question, error) {
	var pool []model.Question
	for _, q := range m.questions {
		if src.Kind == model.DrawKindScale && q.ScaleID != src.ScaleID {
			continue
		}
		pool = append(pool, q)
	}
	if len(pool) > count {
		pool = pool[:count]
	}
	return pool, nil
}

func (m *memQuestionSource) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Question
	for _, q := range m.questions {
		if want[q.ID] {
			out = append(out, q)
		}
	}
	return out, nil
}

// ─── Test harness ───────────────────────────────────────────────────

type harness struct {
	svc       *SessionService
	sessions  *memSessionStore
	snapshots *memSnapshotStore
	deadlines *memDeadlineIndex
	queue     *memJobQueue
	source    *memQuestionSource
	clock     time.Time
}

func newHarness(t *testing.T, questionCount int) *harness {
	t.Helper()

	source := &memQuestionSource{}
	for i := 0; i < questionCount; i++ {
		source.questions = append(source.questions, model.Question{
			ID:            uuid.New(),
			ScaleID:       uuid.New(),
			QuestionText:  "q",
			Options:       []byte(`{"A":"a","B":"b"}`),
			CorrectOption: "B",
		})
	}

	h := &harness{
		sessions:  newMemSessionStore(),
		snapshots: newMemSnapshotStore(),
		deadlines: newMemDeadlineIndex(),
		queue:     &memJobQueue{},
		source:    source,
		clock:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	h.svc = NewSessionService(h.sessions, source, h.snapshots, h.deadlines, h.queue, zerolog.Nop())
	h.svc.now = func() time.Time { return h.clock }
	return h
}

func (h *harness) advance(d time.Duration) {
	h.clock = h.clock.Add(d)
}

func standardConfig(userID, count int) *model.ExamConfig {
	p, _ := model.PolicyFor(model.ExamTypeStandard)
	return &model.ExamConfig{
		ExamType:           model.ExamTypeStandard,
		QuestionCount:      count,
		SecondsPerQuestion: p.SecondsPerQuestion,
		TimeBudgetSeconds:  count * p.SecondsPerQuestion,
		UserID:             userID,
	}
}

// ─── Tests ──────────────────────────────────────────────────────────

func TestStart_DrawsFixedOrderAndSchedulesDeadline(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()

	started, err := h.svc.Start(ctx, standardConfig(1, 10))
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if len(started.Session.QuestionIDs) != 10 || len(started.Paper) != 10 {
		t.Fatalf("drew %d/%d, want 10/10", len(started.Session.QuestionIDs), len(started.Paper))
	}
	if started.Session.Status != model.SessionStatusActive {
		t.Fatalf("status = %s, want ACTIVE", started.Session.Status)
	}
	if started.Session.Config.TimeBudgetSeconds != 600 {
		t.Fatalf("time budget = %d, want 600", started.Session.Config.TimeBudgetSeconds)
	}

	deadline, ok := h.deadlines.deadlines[started.Session.ID]
	if !ok {
		t.Fatal("no deadline scheduled")
	}
	if want := h.clock.Add(600 * time.Second); !deadline.Equal(want) {
		t.Fatalf("deadline = %v, want %v", deadline, want)
	}

	// The draw must never leak grading fields.
	for _, q := range started.Paper {
		if q.QuestionText == "" || q.ID == uuid.Nil {
			t.Fatal("paper question missing content")
		}
	}

	seen := make(map[uuid.UUID]bool)
	for _, id := range started.Session.QuestionIDs {
		if seen[id] {
			t.Fatal("draw with replacement detected")
		}
		seen[id] = true
	}
}

func TestStart_InsufficientQuestions(t *testing.T) {
	h := newHarness(t, 5)

	_, err := h.svc.Start(context.Background(), standardConfig(1, 10))
	if !errors.Is(err, ErrInsufficientQuestions) {
		t.Fatalf("err = %v, want ErrInsufficientQuestions", err)
	}
	if len(h.sessions.sessions) != 0 {
		t.Fatal("failed draw must not create a session")
	}
}

func TestStart_InsufficientQuestionsForScale(t *testing.T) {
	h := newHarness(t, 20)

	// Five of the twenty questions share one scale; the scale-filtered
	// draw must hit the same shortfall check as the default pool.
	scaleID := uuid.New()
	for i := 0; i < 5; i++ {
		h.source.questions[i].ScaleID = scaleID
	}

	p, _ := model.PolicyFor(model.ExamTypeByScale)
	cfg := &model.ExamConfig{
		ExamType:           model.ExamTypeByScale,
		QuestionCount:      10,
		SecondsPerQuestion: p.SecondsPerQuestion,
		TimeBudgetSeconds:  10 * p.SecondsPerQuestion,
		ScaleID:            &scaleID,
		UserID:             1,
	}
	_, err := h.svc.Start(context.Background(), cfg)
	if !errors.Is(err, ErrInsufficientQuestions) {
		t.Fatalf("err = %v, want ErrInsufficientQuestions", err)
	}
	if len(h.sessions.sessions) != 0 {
		t.Fatal("failed draw must not create a session")
	}
}

func TestStart_OpenSessionCheckFailureBubbles(t *testing.T) {
	h := newHarness(t, 20)
	storeErr := errors.New("connection reset")
	h.sessions.openErr = storeErr

	_, err := h.svc.Start(context.Background(), standardConfig(1, 5))
	if !errors.Is(err, storeErr) {
		t.Fatalf("err = %v, want the wrapped store error", err)
	}
	if len(h.sessions.sessions) != 0 {
		t.Fatal("a failed open-session check must not create a session")
	}
}

func TestStart_RejectsSecondOpenSession(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()

	if _, err := h.svc.Start(ctx, standardConfig(1, 5)); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := h.svc.Start(ctx, standardConfig(1, 5)); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("err = %v, want ErrSessionActive", err)
	}
	// A different user is unaffected.
	if _, err := h.svc.Start(ctx, standardConfig(2, 5)); err != nil {
		t.Fatalf("other user start: %v", err)
	}
}

func TestAnswer_LastWriteWinsAndBounds(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()

	started, _ := h.svc.Start(ctx, standardConfig(1, 10))
	id := started.Session.ID

	if err := h.svc.Answer(ctx, id, 1, 3, "A"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := h.svc.Answer(ctx, id, 1, 3, "C"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	snap, _ := h.snapshots.Load(ctx, id)
	if snap.Answers[3] != "C" {
		t.Fatalf("answer at 3 = %q, want C (last write wins)", snap.Answers[3])
	}

	var vErr *ValidationError
	if err := h.svc.Answer(ctx, id, 1, 10, "A"); !errors.As(err, &vErr) || vErr.Field != "position" {
		t.Fatalf("out-of-range position: err = %v, want ValidationError{position}", err)
	}
	if err := h.svc.Answer(ctx, id, 1, -1, "A"); !errors.As(err, &vErr) {
		t.Fatalf("negative position: err = %v, want ValidationError", err)
	}

	// Empty choice clears back to unanswered.
	if err := h.svc.Answer(ctx, id, 1, 3, ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	snap, _ = h.snapshots.Load(ctx, id)
	if _, ok := snap.Answers[3]; ok {
		t.Fatal("cleared answer still present")
	}
}

func TestAnswer_HiddenFromOtherUsers(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()

	started, _ := h.svc.Start(ctx, standardConfig(1, 5))
	if err := h.svc.Answer(ctx, started.Session.ID, 2, 0, "A"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound for foreign session", err)
	}
}

func TestSubmit_IdempotentSingleScoreJob(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()

	started, _ := h.svc.Start(ctx, standardConfig(1, 10))
	id := started.Session.ID
	_ = h.svc.Answer(ctx, id, 1, 0, "B")

	h.advance(2 * time.Minute)

	first, err := h.svc.Submit(ctx, id, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if first.Status != model.SessionStatusSubmitted {
		t.Fatalf("status = %s, want SUBMITTED", first.Status)
	}
	if first.ElapsedSeconds != 120 {
		t.Fatalf("elapsed = %d, want 120", first.ElapsedSeconds)
	}

	second, err := h.svc.Submit(ctx, id, 1)
	if err != nil {
		t.Fatalf("second submit must be a no-op, got %v", err)
	}
	if second.Status != model.SessionStatusSubmitted {
		t.Fatalf("second submit status = %s", second.Status)
	}

	if len(h.queue.scoreJobs) != 1 {
		t.Fatalf("got %d score jobs, want exactly 1", len(h.queue.scoreJobs))
	}
	if len(h.queue.scoreJobs[0].Answers) != 1 || h.queue.scoreJobs[0].Answers[0] != "B" {
		t.Fatalf("score job answers = %v", h.queue.scoreJobs[0].Answers)
	}

	if _, ok := h.deadlines.deadlines[id]; ok {
		t.Fatal("deadline not cancelled after submit")
	}
}

func TestSubmit_ThenAnswerFailsWithInvalidState(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()

	started, _ := h.svc.Start(ctx, standardConfig(1, 5))
	if _, err := h.svc.Submit(ctx, started.Session.ID, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := h.svc.Answer(ctx, started.Session.ID, 1, 0, "A"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestSubmit_ImmediateZeroAnswers(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()

	started, _ := h.svc.Start(ctx, standardConfig(1, 10))
	session, err := h.svc.Submit(ctx, started.Session.ID, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if session.ElapsedSeconds != 0 {
		t.Fatalf("elapsed = %d, want 0", session.ElapsedSeconds)
	}
	if len(h.queue.scoreJobs[0].Answers) != 0 {
		t.Fatal("zero-answer submit must carry an empty answers map")
	}
}

func TestAutoSubmit_RespectsRemainingTimeAndRaces(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()

	started, _ := h.svc.Start(ctx, standardConfig(1, 10)) // 600s budget
	id := started.Session.ID
	for pos, choice := range map[int]string{0: "B", 1: "B", 2: "A", 3: "B"} {
		_ = h.svc.Answer(ctx, id, 1, pos, choice)
	}

	// Before the deadline the worker must leave the session alone.
	h.advance(5 * time.Minute)
	session, err := h.svc.AutoSubmit(ctx, id)
	if err != nil {
		t.Fatalf("auto submit: %v", err)
	}
	if session.Status != model.SessionStatusActive {
		t.Fatalf("premature auto-submit: status = %s", session.Status)
	}

	// Past the deadline: auto-submit wins, elapsed is capped at the budget.
	h.advance(6 * time.Minute)
	session, err = h.svc.AutoSubmit(ctx, id)
	if err != nil {
		t.Fatalf("auto submit: %v", err)
	}
	if session.Status != model.SessionStatusSubmitted {
		t.Fatalf("status = %s, want SUBMITTED", session.Status)
	}
	if session.ElapsedSeconds != 600 {
		t.Fatalf("elapsed = %d, want capped 600", session.ElapsedSeconds)
	}

	// A manual submit racing in afterwards stays a no-op.
	if _, err := h.svc.Submit(ctx, id, 1); err != nil {
		t.Fatalf("racing manual submit: %v", err)
	}
	if len(h.queue.scoreJobs) != 1 {
		t.Fatalf("got %d score jobs after race, want 1", len(h.queue.scoreJobs))
	}
	if got := len(h.queue.scoreJobs[0].Answers); got != 4 {
		t.Fatalf("auto-submitted job carries %d answers, want the 4 given", got)
	}
}

func TestAutoSubmit_FractionalStartTimes(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()

	// Start mid-second: the real deadline lands at 10:10:00.9.
	h.advance(900 * time.Millisecond)
	started, err := h.svc.Start(ctx, standardConfig(1, 10))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	id := started.Session.ID

	wantDeadline := h.clock.Add(600 * time.Second)
	if got := h.deadlines.deadlines[id]; !got.Equal(wantDeadline) {
		t.Fatalf("scheduled deadline = %v, want %v", got, wantDeadline)
	}

	// 10:10:00.5: the same whole second as the deadline, but 0.4s early.
	// The session must stay open and must not be scored.
	h.clock = time.Date(2026, 3, 1, 10, 10, 0, 500_000_000, time.UTC)
	session, err := h.svc.AutoSubmit(ctx, id)
	if err != nil {
		t.Fatalf("early auto submit: %v", err)
	}
	if !session.Open() {
		t.Fatalf("status = %s, want still open", session.Status)
	}
	if len(h.queue.scoreJobs) != 0 {
		t.Fatal("early auto-submit queued a score job")
	}

	// Past the fractional deadline the submit goes through.
	h.advance(400 * time.Millisecond)
	session, err = h.svc.AutoSubmit(ctx, id)
	if err != nil {
		t.Fatalf("auto submit: %v", err)
	}
	if session.Status != model.SessionStatusSubmitted {
		t.Fatalf("status = %s, want SUBMITTED", session.Status)
	}
	if len(h.queue.scoreJobs) != 1 {
		t.Fatalf("got %d score jobs, want 1", len(h.queue.scoreJobs))
	}
}

func TestState_RoundTripAfterSnapshotLoss(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()

	started, _ := h.svc.Start(ctx, standardConfig(1, 10))
	id := started.Session.ID

	answers := map[int]string{0: "A", 2: "B", 7: "D"}
	for pos, choice := range answers {
		if err := h.svc.Answer(ctx, id, 1, pos, choice); err != nil {
			t.Fatalf("answer %d: %v", pos, err)
		}
	}

	h.advance(90 * time.Second)

	state, err := h.svc.State(ctx, id, 1)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if len(state.Answers) != len(answers) {
		t.Fatalf("resumed %d answers, want %d", len(state.Answers), len(answers))
	}
	for pos, choice := range answers {
		if state.Answers[pos] != choice {
			t.Fatalf("resumed answer at %d = %q, want %q", pos, state.Answers[pos], choice)
		}
	}
	if state.RemainingSeconds != 510 {
		t.Fatalf("remaining = %v, want 510 (wall clock, not ticks)", state.RemainingSeconds)
	}
	if len(state.QuestionIDs) != 10 {
		t.Fatal("resume lost the question order")
	}

	// Simulate cache eviction: the durable autosave copy must rebuild the
	// snapshot identically.
	h.sessions.answers[id] = map[int]string{}
	h.sessions.answeredAt[id] = map[int]int64{}
	for pos, choice := range answers {
		h.sessions.answers[id][pos] = choice
		h.sessions.answeredAt[id][pos] = h.clock.Unix()
	}
	_ = h.snapshots.Clear(ctx, id)

	state, err = h.svc.State(ctx, id, 1)
	if err != nil {
		t.Fatalf("state after eviction: %v", err)
	}
	for pos, choice := range answers {
		if state.Answers[pos] != choice {
			t.Fatalf("fallback answer at %d = %q, want %q", pos, state.Answers[pos], choice)
		}
	}
	// And the cache must have healed.
	snap, _ := h.snapshots.Load(ctx, id)
	if len(snap.Answers) != len(answers) {
		t.Fatal("snapshot self-heal did not repopulate the cache")
	}
}

func TestState_UnknownSession(t *testing.T) {
	h := newHarness(t, 5)
	if _, err := h.svc.State(context.Background(), uuid.New(), 1); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestActive_FindsOpenSessionOnly(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()

	if _, err := h.svc.Active(ctx, 1); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound with no sessions", err)
	}

	started, _ := h.svc.Start(ctx, standardConfig(1, 5))
	state, err := h.svc.Active(ctx, 1)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if state.SessionID != started.Session.ID {
		t.Fatal("active returned the wrong session")
	}

	_, _ = h.svc.Submit(ctx, started.Session.ID, 1)
	if _, err := h.svc.Active(ctx, 1); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound after submit", err)
	}
}

func TestPaper_PreservesDrawOrder(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()

	started, _ := h.svc.Start(ctx, standardConfig(1, 10))
	paper, err := h.svc.Paper(ctx, started.Session.ID, 1)
	if err != nil {
		t.Fatalf("paper: %v", err)
	}
	if len(paper) != 10 {
		t.Fatalf("paper has %d questions, want 10", len(paper))
	}
	for i, q := range paper {
		if q.ID != started.Session.QuestionIDs[i] {
			t.Fatalf("paper position %d out of draw order", i)
		}
		if q.Position != i {
			t.Fatalf("paper position field = %d, want %d", q.Position, i)
		}
	}
}
