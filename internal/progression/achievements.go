package progression

import "trivia-duel-service/internal/domain"

// Achievement ids.
const (
	FirstGame        = "first-game"
	NoviceQuizzer    = "novice-quizzer"
	CryptoEnthusiast = "crypto-enthusiast"
	QuizMarathon     = "quiz-marathon"
	AIPioneer        = "ai-pioneer"
	PowerUpUser      = "power-up-user"
	Duelist          = "duelist"
	HotStreak        = "hot-streak"
	QuizLegend       = "quiz-legend"
	Brainiac         = "brainiac"
	NearPerfect      = "near-perfect"
	TopPlayer        = "top-player"
)

// Achievement is a one-way unlock tied to a predicate over the post-update
// stats and the game that produced them.
type Achievement struct {
	ID        string
	Condition func(stats domain.PlayerStats, game domain.GameResult) bool
}

// Registry evaluates achievements in declaration order.
type Registry struct {
	achievements []Achievement
}

// NewRegistry returns the standard achievement set. top-player is not part of
// it; it unlocks through CheckTopPlayerAchievement once a rank is known.
func NewRegistry() *Registry {
	return &Registry{achievements: []Achievement{
		{ID: FirstGame, Condition: func(s domain.PlayerStats, _ domain.GameResult) bool { return s.GamesPlayed >= 1 }},
		{ID: NoviceQuizzer, Condition: func(s domain.PlayerStats, _ domain.GameResult) bool { return s.CorrectAnswers >= 50 }},
		{ID: CryptoEnthusiast, Condition: func(s domain.PlayerStats, _ domain.GameResult) bool { return s.TotalScore >= 5000 }},
		{ID: QuizMarathon, Condition: func(s domain.PlayerStats, _ domain.GameResult) bool { return s.GamesPlayed >= 25 }},
		{ID: AIPioneer, Condition: func(s domain.PlayerStats, _ domain.GameResult) bool { return s.AIGamesPlayed >= 1 }},
		{ID: PowerUpUser, Condition: func(s domain.PlayerStats, _ domain.GameResult) bool { return s.PowerupsUsedTotal >= 1 }},
		{ID: Duelist, Condition: func(s domain.PlayerStats, _ domain.GameResult) bool { return s.ChallengesWon >= 1 }},
		{ID: HotStreak, Condition: func(s domain.PlayerStats, _ domain.GameResult) bool { return s.ConsecutiveCorrectRecord >= 10 }},
		{ID: QuizLegend, Condition: func(s domain.PlayerStats, _ domain.GameResult) bool { return s.Level >= 20 }},
		{ID: Brainiac, Condition: func(_ domain.PlayerStats, g domain.GameResult) bool { return gameAccuracy(g) >= 0.90 }},
		{ID: NearPerfect, Condition: func(_ domain.PlayerStats, g domain.GameResult) bool { return gameAccuracy(g) >= 0.95 }},
	}}
}

// Evaluate returns the ids whose condition holds and which are not already unlocked.
func (r *Registry) Evaluate(stats domain.PlayerStats, game domain.GameResult) []string {
	var unlocked []string
	for _, a := range r.achievements {
		if stats.HasAchievement(a.ID) {
			continue
		}
		if a.Condition(stats, game) {
			unlocked = append(unlocked, a.ID)
		}
	}
	return unlocked
}

// gameAccuracy is the per-game ratio, or -1 when nothing was answered so no
// accuracy threshold can match.
func gameAccuracy(g domain.GameResult) float64 {
	if g.QuestionsAnswered <= 0 {
		return -1
	}
	return float64(g.CorrectAnswers) / float64(g.QuestionsAnswered)
}
