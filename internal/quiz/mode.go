package quiz

import (
	"time"

	"github.com/certprep/backend/internal/models"
)

// ModeConfig describes how many questions a mode fetches, how they are
// chosen, and whether a countdown runs.
type ModeConfig struct {
	Mode          models.QuizType
	QuestionCount int
	TimeLimit     time.Duration
	Premium       bool
	Difficulty    models.Difficulty
}

const (
	quickCount   = 10
	timedCount   = 20
	timedLimit   = 30 * time.Minute
	premiumCount = 10
	customMax    = 50
)

var modeDefaults = map[models.QuizType]ModeConfig{
	models.QuizDaily:   {Mode: models.QuizDaily, QuestionCount: 1},
	models.QuizQuick10: {Mode: models.QuizQuick10, QuestionCount: quickCount},
	models.QuizTimed:   {Mode: models.QuizTimed, QuestionCount: timedCount, TimeLimit: timedLimit},
	models.QuizLevelUp: {Mode: models.QuizLevelUp, QuestionCount: premiumCount, Premium: true},
	models.QuizMissed:  {Mode: models.QuizMissed, QuestionCount: premiumCount, Premium: true},
	models.QuizWeakest: {Mode: models.QuizWeakest, QuestionCount: premiumCount, Premium: true},
	models.QuizCustom:  {Mode: models.QuizCustom, QuestionCount: quickCount, Premium: true},
}

// ConfigFor resolves the configuration of a mode. Custom parameters only
// apply to the custom mode and are clamped to sane bounds.
func ConfigFor(mode models.QuizType, custom *models.CustomQuiz) (ModeConfig, bool) {
	cfg, ok := modeDefaults[mode]
	if !ok {
		return ModeConfig{}, false
	}
	if mode == models.QuizCustom && custom != nil {
		if custom.Count > 0 {
			cfg.QuestionCount = min(custom.Count, customMax)
		}
		if custom.TimeLimitMinutes > 0 {
			cfg.TimeLimit = time.Duration(custom.TimeLimitMinutes) * time.Minute
		}
		if models.ValidDifficulties[custom.Difficulty] {
			cfg.Difficulty = custom.Difficulty
		}
	}
	return cfg, true
}

// Timed reports whether the mode runs a countdown.
func (c ModeConfig) Timed() bool {
	return c.TimeLimit > 0
}

// Title is the display name of a mode.
func Title(mode models.QuizType) string {
	switch mode {
	case models.QuizDaily:
		return "Question of the Day"
	case models.QuizQuick10:
		return "Quick 10 Quiz"
	case models.QuizTimed:
		return "Timed Quiz"
	case models.QuizLevelUp:
		return "Level Up Quiz"
	case models.QuizMissed:
		return "Missed Questions"
	case models.QuizWeakest:
		return "Weakest Subject"
	case models.QuizCustom:
		return "Custom Quiz"
	default:
		return "Quiz"
	}
}
