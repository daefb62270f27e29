package domain

import "time"

// Question is a four-option multiple choice question with exactly one correct option.
// Options removed by a fifty-fifty are blanked in place and listed in HiddenOptions.
type Question struct {
	Text          string   `json:"question" yaml:"question"`
	CorrectAnswer string   `json:"answer" yaml:"answer"`
	Options       []string `json:"options" yaml:"options"`
	OriginalIndex *int     `json:"originalIndex,omitempty" yaml:"-"`
	HiddenOptions []string `json:"hiddenOptions,omitempty" yaml:"-"`
}

// Clone returns a deep copy so shuffles never alias the source bank.
func (q Question) Clone() Question {
	out := q
	out.Options = append([]string(nil), q.Options...)
	out.HiddenOptions = append([]string(nil), q.HiddenOptions...)
	if q.OriginalIndex != nil {
		idx := *q.OriginalIndex
		out.OriginalIndex = &idx
	}
	return out
}

// WithIndex returns a copy tagged with its position in the canonical bank.
func (q Question) WithIndex(i int) Question {
	out := q.Clone()
	out.OriginalIndex = &i
	return out
}

// Difficulty of generated questions.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// GenerateRequest asks the AI generator for a question set.
type GenerateRequest struct {
	Topic        string     `json:"topic"`
	NumQuestions int        `json:"numQuestions"`
	Difficulty   Difficulty `json:"difficulty"`
	Language     string     `json:"language"`
}

// AIGame is a generated question set.
type AIGame struct {
	Topic     string     `json:"topic"`
	Questions []Question `json:"questions"`
}

// GameResult is produced exactly once per session.
type GameResult struct {
	Score              int  `json:"score"`
	QuestionsAnswered  int  `json:"questionsAnswered"`
	CorrectAnswers     int  `json:"correctAnswers"`
	ConsecutiveCorrect int  `json:"consecutiveCorrect"`
	PowerupsUsed       int  `json:"powerupsUsed"`
	WonChallenge       bool `json:"wonChallenge"`
	AIGame             bool `json:"isAiGame"`
}

// PlayerStats is the cumulative progression record of one player.
type PlayerStats struct {
	TotalScore           int      `json:"totalScore"`
	GamesPlayed          int      `json:"gamesPlayed"`
	QuestionsAnswered    int      `json:"questionsAnswered"`
	CorrectAnswers       int      `json:"correctAnswers"`
	Accuracy             string   `json:"accuracy"`
	TopRank              *int     `json:"topRank"`
	Level                int      `json:"level"`
	XP                   int      `json:"xp"`
	UnlockedAchievements []string `json:"unlockedAchievements"`

	ConsecutiveCorrectRecord int `json:"consecutiveCorrectRecord"`
	AIGamesPlayed            int `json:"aiGamesPlayed"`
	PowerupsUsedTotal        int `json:"powerupsUsedTotal"`
	ChallengesWon            int `json:"challengesWon"`
}

// HasAchievement reports whether id is already unlocked.
func (s PlayerStats) HasAchievement(id string) bool {
	for _, a := range s.UnlockedAchievements {
		if a == id {
			return true
		}
	}
	return false
}

// AIChallenge is the server-held form of a challenge on a generated game.
type AIChallenge struct {
	Game        AIGame    `json:"game"`
	ScoreToBeat int       `json:"scoreToBeat"`
	Wager       float64   `json:"wager"`
	Challenger  string    `json:"challenger"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ClassicChallenge is the payload carried by a self-contained classic token.
type ClassicChallenge struct {
	QuestionIndices []int   `json:"questionIndices"`
	ScoreToBeat     int     `json:"scoreToBeat"`
	Wager           float64 `json:"wager"`
	Challenger      string  `json:"challenger"`
	Message         string  `json:"message,omitempty"`
}

// Challenge is a decoded challenge ready to be played.
type Challenge struct {
	ID          string     `json:"id,omitempty"`
	AIGame      bool       `json:"isAiGame"`
	Topic       string     `json:"topic,omitempty"`
	Questions   []Question `json:"questions"`
	ScoreToBeat int        `json:"scoreToBeat"`
	Wager       float64    `json:"wager"`
	Challenger  string     `json:"challenger"`
	Message     string     `json:"message,omitempty"`
}

// Profile is the identity provider's view of a player.
type Profile struct {
	FID         int64  `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	PfpURL      string `json:"pfp_url"`
	Bio         string `json:"bio"`
}

// Name picks the best display label for a profile.
func (p Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Username != "" {
		return p.Username
	}
	return "A friend"
}

// NotificationType classifies inbox entries.
type NotificationType string

const (
	NotificationAchievement NotificationType = "achievement"
	NotificationChallenge   NotificationType = "challenge"
)

// Notification is an inbox entry shown to a player.
type Notification struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Timestamp   int64            `json:"timestamp"`
	Read        bool             `json:"read"`
	Href        string           `json:"href,omitempty"`
}

// LeaderboardEntry is one ranked player.
type LeaderboardEntry struct {
	PlayerID   string `json:"playerId"`
	TotalScore int    `json:"totalScore"`
	Rank       int    `json:"rank"`
}
