package game

import "trivia-duel-service/internal/domain"

// EventKind names a state change pushed to the listener.
type EventKind string

const (
	EventState   EventKind = "state"
	EventTick    EventKind = "tick"
	EventAnswer  EventKind = "answerResult"
	EventSummary EventKind = "summary"
)

// Event carries the view at the moment of the change.
type Event struct {
	Kind    EventKind
	View    View
	Answer  *AnswerOutcome
	Summary *Summary
}

// QuestionView hides the correct answer from the client.
type QuestionView struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

// View is what a client may render. It never exposes unanswered correct answers.
type View struct {
	Status              Status        `json:"status"`
	Question            *QuestionView `json:"question,omitempty"`
	Index               int           `json:"index"`
	Total               int           `json:"total"`
	Score               int           `json:"score"`
	CorrectCount        int           `json:"correctCount"`
	TimeRemaining       int           `json:"timeRemaining"`
	Answered            bool          `json:"answered"`
	FiftyFiftyAvailable bool          `json:"fiftyFiftyAvailable"`
	TimeBoostAvailable  bool          `json:"timeBoostAvailable"`
	AIGame              bool          `json:"isAiGame"`
	Topic               string        `json:"topic,omitempty"`
	Challenger          string        `json:"challenger,omitempty"`
	Wager               float64       `json:"wager,omitempty"`
	Message             string        `json:"message,omitempty"`
	ScoreToBeat         *int          `json:"scoreToBeat,omitempty"`
	WagerUnlocked       bool          `json:"wagerUnlocked"`
}

// Summary is the end-of-game record handed to progression and the share flow.
type Summary struct {
	Result      domain.GameResult `json:"result"`
	Outcome     Outcome           `json:"outcome,omitempty"`
	Challenge   bool              `json:"isChallenge"`
	ChallengeID string            `json:"challengeId,omitempty"`
	Challenger  string            `json:"challenger,omitempty"`
	ScoreToBeat *int              `json:"scoreToBeat,omitempty"`
	Topic       string            `json:"topic,omitempty"`
	Questions   []domain.Question `json:"questions"`
}

func (m *Machine) queue(kind EventKind, answer *AnswerOutcome, sum *Summary) {
	if m.listener == nil {
		return
	}
	m.pending = append(m.pending, Event{Kind: kind, View: m.viewLocked(), Answer: answer, Summary: sum})
}

func (m *Machine) viewLocked() View {
	v := View{
		Status:        m.status,
		AIGame:        m.setup.AIGame,
		Topic:         m.setup.Topic,
		WagerUnlocked: m.caps.canWager(),
	}
	if c := m.setup.Challenge; c != nil {
		stb := c.ScoreToBeat
		v.ScoreToBeat = &stb
		v.Challenger = c.Challenger
		v.Wager = c.Wager
		v.Message = c.Message
	}
	s := m.session
	if s == nil {
		return v
	}
	v.Total = len(s.questions)
	v.Index = s.currentIndex
	v.Score = s.score
	v.CorrectCount = s.correctCount
	v.TimeRemaining = s.timeRemaining
	if m.status == StatusPlaying {
		q := s.questions[s.currentIndex]
		v.Question = &QuestionView{Text: q.Text, Options: append([]string(nil), q.Options...)}
		v.Answered = s.answered
		v.FiftyFiftyAvailable = !s.fiftyFiftyUsed && !s.answered
		v.TimeBoostAvailable = !s.timeBoostUsed && !s.answered
	}
	return v
}

func (m *Machine) summaryLocked() Summary {
	sum := Summary{
		Result:    *m.result,
		Outcome:   m.outcomeLocked(),
		Topic:     m.setup.Topic,
		Questions: cloneQuestions(m.setup.Questions),
	}
	if c := m.setup.Challenge; c != nil {
		stb := c.ScoreToBeat
		sum.Challenge = true
		sum.ChallengeID = c.ID
		sum.Challenger = c.Challenger
		sum.ScoreToBeat = &stb
	}
	return sum
}
