package game

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"trivia-duel-service/internal/domain"
)

func TestClassicAllCorrect(t *testing.T) {
	m, sched, events := newTestMachine(t)

	if err := m.Load(Setup{Questions: sampleQuestions(10)}); err != nil {
		t.Fatalf("load: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := m.Answer(correctOption(m)); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		sched.Advance(1500 * time.Millisecond)
	}

	res, ok := m.Result()
	if !ok {
		t.Fatalf("expected result after last answer, status=%s", m.Status())
	}
	if res.Score != 1000 || res.CorrectAnswers != 10 || res.QuestionsAnswered != 10 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.WonChallenge {
		t.Fatalf("non-challenge game cannot be won")
	}
	if res.ConsecutiveCorrect != 10 {
		t.Fatalf("expected streak 10, got %d", res.ConsecutiveCorrect)
	}
	if sched.Pending() != 0 {
		t.Fatalf("expected no timers after summary, got %d", sched.Pending())
	}
	if last := (*events)[len(*events)-1]; last.Kind != EventSummary || last.Summary == nil {
		t.Fatalf("expected summary event last, got %s", last.Kind)
	}
}

func TestScoreFinalAtAnswerTime(t *testing.T) {
	m, _, _ := newTestMachine(t)
	if err := m.Load(Setup{Questions: sampleQuestions(1)}); err != nil {
		t.Fatalf("load: %v", err)
	}

	out, err := m.Answer(correctOption(m))
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !out.Last || out.Score != 100 || !out.Correct {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if v := m.Snapshot(); v.Score != 100 || v.Status != StatusPlaying {
		t.Fatalf("expected score applied before feedback delay, got %+v", v)
	}
	if _, err := m.Answer(0); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected already answered, got %v", err)
	}
}

func TestAIChallengeTie(t *testing.T) {
	m, sched, _ := newTestMachine(t)
	questions := sampleQuestions(5)

	err := m.Load(Setup{
		Questions: questions,
		AIGame:    true,
		Topic:     "Go",
		Challenge: &ChallengeInfo{ScoreToBeat: 500},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for i := 0; i < 5; i++ {
		if got := m.Snapshot().Question.Text; got != questions[i].Text {
			t.Fatalf("expected question order preserved, index %d got %q", i, got)
		}
		if _, err := m.Answer(correctOption(m)); err != nil {
			t.Fatalf("answer: %v", err)
		}
		sched.Advance(1500 * time.Millisecond)
	}

	sum, ok := m.Summary()
	if !ok {
		t.Fatalf("expected summary")
	}
	if sum.Result.Score != 500 || sum.Result.WonChallenge {
		t.Fatalf("expected tie at 500 without win, got %+v", sum.Result)
	}
	if sum.Outcome != OutcomeTie {
		t.Fatalf("expected tie outcome, got %q", sum.Outcome)
	}
	if !sum.Result.AIGame {
		t.Fatalf("expected AI flag on result")
	}
}

func TestChallengeWonOnlyWhenStrictlyGreater(t *testing.T) {
	m, sched, _ := newTestMachine(t)
	if err := m.Load(Setup{Questions: sampleQuestions(2), Challenge: &ChallengeInfo{ScoreToBeat: 100}}); err != nil {
		t.Fatalf("load: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := m.Answer(correctOption(m)); err != nil {
			t.Fatalf("answer: %v", err)
		}
		sched.Advance(2 * time.Second)
	}
	sum, _ := m.Summary()
	if !sum.Result.WonChallenge || sum.Outcome != OutcomeWon {
		t.Fatalf("expected win with 200 > 100, got %+v", sum)
	}
}

func TestTimeoutCountsOnlyCompletedQuestions(t *testing.T) {
	m, sched, _ := newTestMachine(t)
	if err := m.Load(Setup{Questions: sampleQuestions(5)}); err != nil {
		t.Fatalf("load: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := m.Answer(correctOption(m)); err != nil {
			t.Fatalf("answer: %v", err)
		}
		sched.Advance(1500 * time.Millisecond)
	}
	if idx := m.Snapshot().Index; idx != 3 {
		t.Fatalf("expected index 3, got %d", idx)
	}

	sched.Advance(200 * time.Second)

	res, ok := m.Result()
	if !ok {
		t.Fatalf("expected timeout to end the game")
	}
	if res.QuestionsAnswered != 3 || res.CorrectAnswers != 3 || res.Score != 300 {
		t.Fatalf("unexpected timeout result %+v", res)
	}
}

func TestCountdownRunsOncePerSession(t *testing.T) {
	m, sched, _ := newTestMachine(t)
	if err := m.Load(Setup{Questions: sampleQuestions(50)}); err != nil {
		t.Fatalf("load: %v", err)
	}
	sched.Advance(10 * time.Second)
	if _, err := m.Answer(correctOption(m)); err != nil {
		t.Fatalf("answer: %v", err)
	}
	sched.Advance(1500 * time.Millisecond)
	if v := m.Snapshot(); v.TimeRemaining != 109 {
		t.Fatalf("expected countdown not to reset between questions, got %d", v.TimeRemaining)
	}
	sched.Advance(109 * time.Second)
	if m.Status() != StatusSummary {
		t.Fatalf("expected summary at zero, got %s", m.Status())
	}
}

func TestFiftyFiftyIsIdempotent(t *testing.T) {
	m, _, _ := newTestMachine(t)
	if err := m.Load(Setup{Questions: sampleQuestions(3)}); err != nil {
		t.Fatalf("load: %v", err)
	}

	if !m.UseFiftyFifty() {
		t.Fatalf("expected first fifty-fifty to apply")
	}
	first := m.Snapshot().Question.Options
	if visible(first) != 2 {
		t.Fatalf("expected 2 visible options, got %v", first)
	}
	if m.UseFiftyFifty() {
		t.Fatalf("expected second fifty-fifty to be a no-op")
	}
	second := m.Snapshot().Question.Options
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Fatalf("options changed on second use: %v -> %v", first, second)
	}

	m.mu.Lock()
	q := m.session.questions[0]
	used := m.session.powerupsUsed
	m.mu.Unlock()
	if len(q.HiddenOptions) != 2 {
		t.Fatalf("expected 2 hidden options recorded, got %v", q.HiddenOptions)
	}
	if used != 1 {
		t.Fatalf("expected one power-up counted, got %d", used)
	}
	for i, opt := range q.Options {
		if opt == q.CorrectAnswer {
			break
		}
		if i == len(q.Options)-1 {
			t.Fatalf("correct answer removed: %v", q.Options)
		}
	}
}

func TestFiftyFiftyNeedsTwoDistractors(t *testing.T) {
	m, _, _ := newTestMachine(t)
	q := domain.Question{Text: "pick", CorrectAnswer: "yes", Options: []string{"yes", "no"}}
	if err := m.Load(Setup{Questions: []domain.Question{q}}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.UseFiftyFifty() {
		t.Fatalf("expected no-op with one distractor")
	}
	if !m.Snapshot().FiftyFiftyAvailable {
		t.Fatalf("failed fifty-fifty should not consume the power-up")
	}
}

func TestTimeBoost(t *testing.T) {
	m, sched, _ := newTestMachine(t)
	if err := m.Load(Setup{Questions: sampleQuestions(3)}); err != nil {
		t.Fatalf("load: %v", err)
	}
	sched.Advance(5 * time.Second)
	if !m.UseTimeBoost() {
		t.Fatalf("expected time boost")
	}
	if v := m.Snapshot(); v.TimeRemaining != 130 {
		t.Fatalf("expected 115+15, got %d", v.TimeRemaining)
	}
	if m.UseTimeBoost() {
		t.Fatalf("expected second boost to be a no-op")
	}
	if v := m.Snapshot(); v.TimeRemaining != 130 {
		t.Fatalf("second boost changed time to %d", v.TimeRemaining)
	}
}

func TestPowerupsDisabledAfterAnswer(t *testing.T) {
	m, _, _ := newTestMachine(t)
	if err := m.Load(Setup{Questions: sampleQuestions(3)}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := m.Answer(correctOption(m)); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if m.UseFiftyFifty() || m.UseTimeBoost() {
		t.Fatalf("power-ups must not apply retroactively")
	}
	v := m.Snapshot()
	if v.FiftyFiftyAvailable || v.TimeBoostAvailable {
		t.Fatalf("expected power-ups disabled in view, got %+v", v)
	}
}

func TestStreakTracking(t *testing.T) {
	m, sched, _ := newTestMachine(t)
	if err := m.Load(Setup{Questions: sampleQuestions(4), AIGame: true}); err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, correct := range []bool{true, true, false, true} {
		opt := correctOption(m)
		if !correct {
			opt = wrongOption(m)
		}
		if _, err := m.Answer(opt); err != nil {
			t.Fatalf("answer: %v", err)
		}
		sched.Advance(1500 * time.Millisecond)
	}
	res, _ := m.Result()
	if res.ConsecutiveCorrect != 2 || res.CorrectAnswers != 3 || res.Score != 300 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestWagerFlow(t *testing.T) {
	m, _, _ := newTestMachine(t)
	setup := Setup{
		Questions: sampleQuestions(3),
		Challenge: &ChallengeInfo{ScoreToBeat: 200, Wager: 0.5, Challenger: "alice"},
	}
	if err := m.Load(setup); err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Status() != StatusWager {
		t.Fatalf("expected wager, got %s", m.Status())
	}
	if err := m.AcceptWager(); !errors.Is(err, domain.ErrWagerLocked) {
		t.Fatalf("expected wager locked, got %v", err)
	}

	m.UpdateCapabilities(Capabilities{Authenticated: true})
	if m.Status() != StatusWager {
		t.Fatalf("wallet missing, expected to stay in wager")
	}
	m.UpdateCapabilities(Capabilities{Authenticated: true, WalletConnected: true, Address: "0xabc"})
	if m.Status() != StatusPlaying {
		t.Fatalf("expected automatic start once both capabilities hold, got %s", m.Status())
	}
}

func TestDeclineWagerResets(t *testing.T) {
	m, sched, _ := newTestMachine(t)
	if err := m.Load(Setup{Questions: sampleQuestions(3), Challenge: &ChallengeInfo{Challenger: "bob"}}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := m.DeclineWager(); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if m.Status() != StatusSetup || sched.Pending() != 0 {
		t.Fatalf("expected clean setup, status=%s pending=%d", m.Status(), sched.Pending())
	}
}

func TestRestartInvalidatesPendingFeedback(t *testing.T) {
	m, sched, _ := newTestMachine(t)
	if err := m.Load(Setup{Questions: sampleQuestions(3)}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := m.Answer(correctOption(m)); err != nil {
		t.Fatalf("answer: %v", err)
	}
	m.Restart()
	if sched.Pending() != 0 {
		t.Fatalf("expected restart to cancel timers, got %d pending", sched.Pending())
	}
	if err := m.Load(Setup{Questions: sampleQuestions(3)}); err != nil {
		t.Fatalf("reload: %v", err)
	}
	sched.Advance(1500 * time.Millisecond)
	v := m.Snapshot()
	if v.Index != 0 || v.Score != 0 || v.Answered {
		t.Fatalf("stale feedback leaked into new session: %+v", v)
	}
}

func TestStaleTaskIgnoredEvenIfNotStopped(t *testing.T) {
	m := NewMachine(DefaultConfig(), WithScheduler(leakyScheduler{NewManualScheduler()}), WithRand(rand.New(rand.NewSource(1))))
	sched := m.sched.(leakyScheduler).ManualScheduler
	if err := m.Load(Setup{Questions: sampleQuestions(3)}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := m.Answer(correctOption(m)); err != nil {
		t.Fatalf("answer: %v", err)
	}
	m.Restart()
	if err := m.Load(Setup{Questions: sampleQuestions(3)}); err != nil {
		t.Fatalf("reload: %v", err)
	}
	sched.Advance(1500 * time.Millisecond)
	if v := m.Snapshot(); v.Index != 0 || v.Score != 0 {
		t.Fatalf("generation guard failed: %+v", v)
	}
}

func TestOptionsShuffledButComplete(t *testing.T) {
	m, _, _ := newTestMachine(t)
	questions := sampleQuestions(1)
	if err := m.Load(Setup{Questions: questions, AIGame: true}); err != nil {
		t.Fatalf("load: %v", err)
	}
	got := map[string]bool{}
	for _, o := range m.Snapshot().Question.Options {
		got[o] = true
	}
	for _, o := range questions[0].Options {
		if !got[o] {
			t.Fatalf("option %q lost in shuffle", o)
		}
	}
	if questions[0].Options[0] != "A0" {
		t.Fatalf("source questions mutated: %v", questions[0].Options)
	}
}

func TestLoadRejectsEmptyQuestionList(t *testing.T) {
	m, _, _ := newTestMachine(t)
	if err := m.Load(Setup{}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if m.Status() != StatusSetup {
		t.Fatalf("game must not start")
	}
}

type leakyScheduler struct {
	*ManualScheduler
}

func (l leakyScheduler) AfterFunc(d time.Duration, f func()) Task {
	l.ManualScheduler.AfterFunc(d, f)
	return noopTask{}
}

type noopTask struct{}

func (noopTask) Stop() bool { return false }

func newTestMachine(t *testing.T) (*Machine, *ManualScheduler, *[]Event) {
	t.Helper()
	sched := NewManualScheduler()
	events := &[]Event{}
	m := NewMachine(DefaultConfig(),
		WithScheduler(sched),
		WithRand(rand.New(rand.NewSource(42))),
		WithListener(func(e Event) { *events = append(*events, e) }),
	)
	return m, sched, events
}

func sampleQuestions(n int) []domain.Question {
	out := make([]domain.Question, n)
	for i := range out {
		out[i] = domain.Question{
			Text:          fmt.Sprintf("Question %d", i),
			CorrectAnswer: fmt.Sprintf("A%d", i),
			Options:       []string{fmt.Sprintf("A%d", i), fmt.Sprintf("B%d", i), fmt.Sprintf("C%d", i), fmt.Sprintf("D%d", i)},
		}
	}
	return out
}

func correctOption(m *Machine) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.session.questions[m.session.currentIndex]
	for i, o := range q.Options {
		if o == q.CorrectAnswer {
			return i
		}
	}
	return -1
}

func wrongOption(m *Machine) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.session.questions[m.session.currentIndex]
	for i, o := range q.Options {
		if o != "" && o != q.CorrectAnswer {
			return i
		}
	}
	return -1
}

func visible(opts []string) int {
	n := 0
	for _, o := range opts {
		if o != "" {
			n++
		}
	}
	return n
}
