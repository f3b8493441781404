package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("QUIZ_SESSION_TTL", "")
	t.Setenv("STATS_TIMEZONE", "")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.QuizSessionTTL != 2*time.Hour {
		t.Errorf("QuizSessionTTL = %v, want 2h", cfg.QuizSessionTTL)
	}
	if cfg.StatsLocation != time.UTC {
		t.Errorf("StatsLocation = %v, want UTC", cfg.StatsLocation)
	}
}

func TestGetDurationInvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_TTL", "soon")
	if got := getDuration("SOME_TTL", time.Minute); got != time.Minute {
		t.Errorf("getDuration = %v, want fallback 1m", got)
	}

	t.Setenv("SOME_TTL", "-5s")
	if got := getDuration("SOME_TTL", time.Minute); got != time.Minute {
		t.Errorf("getDuration = %v, want fallback for non-positive duration", got)
	}

	t.Setenv("SOME_TTL", "45s")
	if got := getDuration("SOME_TTL", time.Minute); got != 45*time.Second {
		t.Errorf("getDuration = %v, want 45s", got)
	}
}

func TestGetBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"false", false},
		{"nope", true},
	}
	for _, tt := range tests {
		t.Setenv("FLAG", tt.value)
		if got := getBool("FLAG", true); got != tt.want {
			t.Errorf("getBool(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestGetLocation(t *testing.T) {
	t.Setenv("TZ_TEST", "Not/AZone")
	if got := getLocation("TZ_TEST", time.UTC); got != time.UTC {
		t.Errorf("getLocation fallback = %v, want UTC", got)
	}
}
