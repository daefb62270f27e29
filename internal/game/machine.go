package game

import (
	"math/rand"
	"sync"
	"time"

	"trivia-duel-service/internal/domain"
)

// Status is the lifecycle position of a Machine.
type Status string

const (
	StatusSetup   Status = "setup"
	StatusWager   Status = "wager"
	StatusPlaying Status = "playing"
	StatusSummary Status = "summary"
)

// Outcome of a finished game relative to the challenge score.
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeWon  Outcome = "won"
	OutcomeTie  Outcome = "tie"
	OutcomeLost Outcome = "lost"
)

// Config holds the timing and scoring constants of a session.
type Config struct {
	Duration      time.Duration
	Tick          time.Duration
	FeedbackDelay time.Duration
	TimeBoost     time.Duration
	Points        int
}

// DefaultConfig is 120 one-second ticks, a 1.5s feedback window, +15s boost and 100 points per answer.
func DefaultConfig() Config {
	return Config{
		Duration:      120 * time.Second,
		Tick:          time.Second,
		FeedbackDelay: 1500 * time.Millisecond,
		TimeBoost:     15 * time.Second,
		Points:        100,
	}
}

func (c Config) ticks(d time.Duration) int {
	if c.Tick <= 0 {
		return 0
	}
	return int(d / c.Tick)
}

// ChallengeInfo marks a game as a challenge. A non-empty Challenger routes through the wager screen.
type ChallengeInfo struct {
	ID          string
	ScoreToBeat int
	Wager       float64
	Challenger  string
	Message     string
}

// Setup is the question list and mode a game is started with.
type Setup struct {
	Questions []domain.Question
	AIGame    bool
	Topic     string
	Challenge *ChallengeInfo
}

// Capabilities is the externally reported sign-in and wallet state.
type Capabilities struct {
	Authenticated   bool
	WalletConnected bool
	Address         string
}

func (c Capabilities) canWager() bool {
	return c.Authenticated && c.WalletConnected
}

// AnswerOutcome is reported synchronously when an answer is submitted.
type AnswerOutcome struct {
	Index         int    `json:"index"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	Awarded       int    `json:"awarded"`
	Score         int    `json:"score"`
	Last          bool   `json:"last"`
}

// Machine drives one player's play-through: Setup -> (Wager) -> Playing -> Summary.
// It is safe for concurrent use; the countdown and feedback timers run on the Scheduler.
type Machine struct {
	cfg      Config
	sched    Scheduler
	rnd      *rand.Rand
	listener func(Event)

	mu         sync.Mutex
	status     Status
	setup      Setup
	session    *session
	result     *domain.GameResult
	caps       Capabilities
	generation uint64
	tasks      []Task
	pending    []Event
}

type session struct {
	questions          []domain.Question
	currentIndex       int
	score              int
	correctCount       int
	consecutiveCorrect int
	maxConsecutive     int
	powerupsUsed       int
	timeRemaining      int
	fiftyFiftyUsed     bool
	timeBoostUsed      bool
	answered           bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(m *Machine) { m.sched = s }
}

// WithRand fixes the shuffle source.
func WithRand(r *rand.Rand) Option {
	return func(m *Machine) { m.rnd = r }
}

// WithListener receives every state change, in order, outside the machine lock.
func WithListener(fn func(Event)) Option {
	return func(m *Machine) { m.listener = fn }
}

func NewMachine(cfg Config, opts ...Option) *Machine {
	m := &Machine{
		cfg:    cfg,
		sched:  WallScheduler(),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		status: StatusSetup,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load supplies the question list. Challenges with a named challenger wait in Wager;
// everything else starts playing immediately.
func (m *Machine) Load(setup Setup) error {
	m.mu.Lock()
	defer m.unlockAndDispatch()

	if m.status != StatusSetup {
		return domain.ErrInvalidState
	}
	if len(setup.Questions) == 0 {
		return domain.Invalid("questions", "no questions supplied")
	}
	for i, q := range setup.Questions {
		if len(q.Options) == 0 {
			return domain.Invalid("questions", "question %d has no options", i)
		}
	}

	m.setup = setup
	m.setup.Questions = cloneQuestions(setup.Questions)
	if setup.Challenge != nil && setup.Challenge.Challenger != "" {
		m.status = StatusWager
		if m.caps.canWager() {
			m.beginLocked()
			return nil
		}
		m.queue(EventState, nil, nil)
		return nil
	}
	m.beginLocked()
	return nil
}

// UpdateCapabilities records sign-in and wallet state; a waiting wager starts once both hold.
func (m *Machine) UpdateCapabilities(c Capabilities) {
	m.mu.Lock()
	defer m.unlockAndDispatch()

	m.caps = c
	if m.status == StatusWager && c.canWager() {
		m.beginLocked()
	}
}

// AcceptWager starts a waiting challenge when sign-in and wallet are present.
func (m *Machine) AcceptWager() error {
	m.mu.Lock()
	defer m.unlockAndDispatch()

	if m.status != StatusWager {
		return domain.ErrInvalidState
	}
	if !m.caps.canWager() {
		return domain.ErrWagerLocked
	}
	m.beginLocked()
	return nil
}

// DeclineWager abandons a waiting challenge.
func (m *Machine) DeclineWager() error {
	m.mu.Lock()
	defer m.unlockAndDispatch()

	if m.status != StatusWager {
		return domain.ErrInvalidState
	}
	m.resetLocked()
	return nil
}

// Restart returns to Setup from any state, cancelling outstanding timers.
func (m *Machine) Restart() {
	m.mu.Lock()
	defer m.unlockAndDispatch()
	m.resetLocked()
}

// Close cancels all timers without notifying the listener.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.stopTasksLocked()
	m.pending = nil
}

// Answer scores option i of the current question. Score and streak are final when
// this returns; the index advances after the feedback delay.
func (m *Machine) Answer(option int) (AnswerOutcome, error) {
	m.mu.Lock()
	defer m.unlockAndDispatch()

	if m.status != StatusPlaying {
		return AnswerOutcome{}, domain.ErrInvalidState
	}
	s := m.session
	if s.answered {
		return AnswerOutcome{}, domain.ErrAlreadyAnswered
	}
	q := s.questions[s.currentIndex]
	if option < 0 || option >= len(q.Options) || q.Options[option] == "" {
		return AnswerOutcome{}, domain.ErrOptionUnavailable
	}

	correct := q.Options[option] == q.CorrectAnswer
	awarded := 0
	if correct {
		awarded = m.cfg.Points
		s.score += awarded
		s.correctCount++
		s.consecutiveCorrect++
	} else {
		s.maxConsecutive = max(s.maxConsecutive, s.consecutiveCorrect)
		s.consecutiveCorrect = 0
	}
	s.answered = true

	out := AnswerOutcome{
		Index:         s.currentIndex,
		Correct:       correct,
		CorrectAnswer: q.CorrectAnswer,
		Awarded:       awarded,
		Score:         s.score,
		Last:          s.currentIndex >= len(s.questions)-1,
	}

	gen := m.generation
	m.tasks = append(m.tasks, m.sched.AfterFunc(m.cfg.FeedbackDelay, func() { m.advance(gen) }))
	m.queue(EventAnswer, &out, nil)
	return out, nil
}

// UseFiftyFifty blanks two incorrect options of the current question. It is a no-op
// after first use, after answering, or when fewer than two distractors remain.
func (m *Machine) UseFiftyFifty() bool {
	m.mu.Lock()
	defer m.unlockAndDispatch()

	if m.status != StatusPlaying {
		return false
	}
	s := m.session
	if s.fiftyFiftyUsed || s.answered {
		return false
	}
	q := s.questions[s.currentIndex]
	var incorrect []string
	for _, opt := range q.Options {
		if opt != "" && opt != q.CorrectAnswer {
			incorrect = append(incorrect, opt)
		}
	}
	if len(incorrect) < 2 {
		return false
	}

	keep := map[string]bool{q.CorrectAnswer: true, incorrect[0]: true}
	next := q.Clone()
	next.HiddenOptions = nil
	for i, opt := range q.Options {
		if opt == "" || keep[opt] {
			continue
		}
		next.Options[i] = ""
		next.HiddenOptions = append(next.HiddenOptions, opt)
	}
	s.questions[s.currentIndex] = next
	s.fiftyFiftyUsed = true
	s.powerupsUsed++
	m.queue(EventState, nil, nil)
	return true
}

// UseTimeBoost extends the countdown once per session.
func (m *Machine) UseTimeBoost() bool {
	m.mu.Lock()
	defer m.unlockAndDispatch()

	if m.status != StatusPlaying {
		return false
	}
	s := m.session
	if s.timeBoostUsed || s.answered {
		return false
	}
	s.timeRemaining += m.cfg.ticks(m.cfg.TimeBoost)
	s.timeBoostUsed = true
	s.powerupsUsed++
	m.queue(EventState, nil, nil)
	return true
}

// Status returns the current lifecycle state.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Result returns the final result once the machine reached Summary.
func (m *Machine) Result() (domain.GameResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.result == nil {
		return domain.GameResult{}, false
	}
	return *m.result, true
}

// Summary describes a finished game; ok is false before Summary.
func (m *Machine) Summary() (Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusSummary || m.result == nil {
		return Summary{}, false
	}
	return m.summaryLocked(), true
}

// Snapshot returns the presentation view of the current state.
func (m *Machine) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

func (m *Machine) beginLocked() {
	m.generation++
	m.stopTasksLocked()

	questions := cloneQuestions(m.setup.Questions)
	for i := range questions {
		opts := questions[i].Options
		m.rnd.Shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
	}
	if m.setup.Challenge == nil && !m.setup.AIGame {
		m.rnd.Shuffle(len(questions), func(a, b int) { questions[a], questions[b] = questions[b], questions[a] })
	}

	m.session = &session{
		questions:     questions,
		timeRemaining: m.cfg.ticks(m.cfg.Duration),
	}
	m.result = nil
	m.status = StatusPlaying
	m.scheduleTickLocked()
	m.queue(EventState, nil, nil)
}

func (m *Machine) scheduleTickLocked() {
	gen := m.generation
	m.tasks = append(m.tasks, m.sched.AfterFunc(m.cfg.Tick, func() { m.tick(gen) }))
}

func (m *Machine) tick(gen uint64) {
	m.mu.Lock()
	defer m.unlockAndDispatch()

	if gen != m.generation || m.status != StatusPlaying {
		return
	}
	s := m.session
	s.timeRemaining--
	if s.timeRemaining <= 0 {
		s.timeRemaining = 0
		answered := s.currentIndex
		if s.answered {
			answered++
		}
		m.finishLocked(answered)
		return
	}
	m.scheduleTickLocked()
	m.queue(EventTick, nil, nil)
}

func (m *Machine) advance(gen uint64) {
	m.mu.Lock()
	defer m.unlockAndDispatch()

	if gen != m.generation || m.status != StatusPlaying {
		return
	}
	s := m.session
	if !s.answered {
		return
	}
	if s.currentIndex >= len(s.questions)-1 {
		m.finishLocked(s.currentIndex + 1)
		return
	}
	s.currentIndex++
	s.answered = false
	m.queue(EventState, nil, nil)
}

func (m *Machine) finishLocked(questionsAnswered int) {
	m.generation++
	m.stopTasksLocked()

	s := m.session
	result := domain.GameResult{
		Score:              s.score,
		QuestionsAnswered:  questionsAnswered,
		CorrectAnswers:     s.correctCount,
		ConsecutiveCorrect: max(s.maxConsecutive, s.consecutiveCorrect),
		PowerupsUsed:       s.powerupsUsed,
		WonChallenge:       m.setup.Challenge != nil && s.score > m.setup.Challenge.ScoreToBeat,
		AIGame:             m.setup.AIGame,
	}
	m.result = &result
	m.status = StatusSummary
	sum := m.summaryLocked()
	m.queue(EventSummary, nil, &sum)
}

func (m *Machine) resetLocked() {
	m.generation++
	m.stopTasksLocked()
	m.status = StatusSetup
	m.setup = Setup{}
	m.session = nil
	m.result = nil
	m.queue(EventState, nil, nil)
}

func (m *Machine) stopTasksLocked() {
	for _, t := range m.tasks {
		t.Stop()
	}
	m.tasks = nil
}

func (m *Machine) outcomeLocked() Outcome {
	if m.result == nil || m.setup.Challenge == nil {
		return OutcomeNone
	}
	switch {
	case m.result.WonChallenge:
		return OutcomeWon
	case m.result.Score == m.setup.Challenge.ScoreToBeat:
		return OutcomeTie
	default:
		return OutcomeLost
	}
}

func (m *Machine) unlockAndDispatch() {
	events := m.pending
	m.pending = nil
	listener := m.listener
	m.mu.Unlock()
	if listener == nil {
		return
	}
	for _, e := range events {
		listener(e)
	}
}

func cloneQuestions(in []domain.Question) []domain.Question {
	out := make([]domain.Question, len(in))
	for i, q := range in {
		out[i] = q.Clone()
	}
	return out
}
