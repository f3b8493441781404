package stats

import (
	"math"
	"time"

	"github.com/certprep/backend/internal/catalog"
	"github.com/certprep/backend/internal/models"
)

const (
	streakLookbackDays = 365
	weekDays           = 7
	dateLayout         = "2006-01-02"
)

// Compute derives the full progress read model. Dates are calendar days in
// loc; now decides which day is today.
func Compute(sessions []models.SessionRecord, answers []models.AnswerRecord, subjects []models.Subject, now time.Time, loc *time.Location) *models.Progress {
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}

	completions := make([]time.Time, 0, len(sessions))
	for _, s := range sessions {
		completions = append(completions, s.CompletedAt)
	}

	return &models.Progress{
		Streak:         Streak(completions, now, loc),
		TotalQuestions: len(answers),
		CorrectAnswers: correct,
		Accuracy:       Percent(correct, len(answers)),
		StudyTimeHours: StudyHours(sessions),
		WeeklyProgress: WeeklyActivity(answers, now, loc),
		SubjectScores:  SubjectScores(subjects, answers),
	}
}

// Streak counts consecutive days with at least one completion, walking back
// from today and stopping at the first day without one.
func Streak(completions []time.Time, now time.Time, loc *time.Location) int {
	days := make(map[string]bool, len(completions))
	for _, c := range completions {
		days[dayKey(c, loc)] = true
	}

	today := noon(now, loc)
	streak := 0
	for i := 0; i < streakLookbackDays; i++ {
		if !days[today.AddDate(0, 0, -i).Format(dateLayout)] {
			break
		}
		streak++
	}
	return streak
}

// Percent is round(100*part/total), or 0 when total is 0.
func Percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// StudyHours sums session durations in hours, rounded to one decimal.
func StudyHours(sessions []models.SessionRecord) float64 {
	seconds := 0
	for _, s := range sessions {
		seconds += s.TimeTakenSeconds
	}
	return math.Round(float64(seconds)/3600*10) / 10
}

// WeeklyActivity counts answers for each of the seven days ending today,
// oldest first.
func WeeklyActivity(answers []models.AnswerRecord, now time.Time, loc *time.Location) []models.DayActivity {
	today := noon(now, loc)
	week := make([]models.DayActivity, weekDays)
	index := make(map[string]int, weekDays)
	for i := range week {
		d := today.AddDate(0, 0, i-(weekDays-1))
		week[i] = models.DayActivity{Date: d.Format(dateLayout), Weekday: d.Weekday().String()}
		index[week[i].Date] = i
	}

	for _, a := range answers {
		if i, ok := index[dayKey(a.AnsweredAt, loc)]; ok {
			week[i].Count++
		}
	}
	return week
}

// SubjectScores scores every subject, including those without answers.
func SubjectScores(subjects []models.Subject, answers []models.AnswerRecord) []models.SubjectScore {
	type tally struct{ correct, total int }
	bySubject := make(map[string]*tally)
	for _, a := range answers {
		id := catalog.NormalizeID(a.SubjectID)
		if id == "" {
			continue
		}
		t, ok := bySubject[id]
		if !ok {
			t = &tally{}
			bySubject[id] = t
		}
		t.total++
		if a.IsCorrect {
			t.correct++
		}
	}

	scores := make([]models.SubjectScore, 0, len(subjects))
	for _, sub := range subjects {
		id := catalog.NormalizeID(sub.ID)
		score := models.SubjectScore{SubjectID: id, Name: sub.Name}
		if t, ok := bySubject[id]; ok {
			score.Correct = t.correct
			score.Total = t.total
			score.Score = Percent(t.correct, t.total)
		}
		scores = append(scores, score)
	}
	return scores
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// noon anchors day arithmetic away from midnight so DST shifts cannot skip
// or repeat a date.
func noon(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 12, 0, 0, 0, loc)
}
