package clock

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}

	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("clock time %v outside [%v, %v]", now, before, after)
	}
}

func TestMockClock_NowAndAdvance(t *testing.T) {
	start := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := &MockClock{CurrentTime: start}

	if !clock.Now().Equal(start) {
		t.Fatalf("expected %v, got %v", start, clock.Now())
	}

	steps := []struct {
		name    string
		advance time.Duration
		want    time.Time
	}{
		{"one hour", time.Hour, start.Add(time.Hour)},
		{"zero", 0, start.Add(time.Hour)},
		{"backwards", -30 * time.Minute, start.Add(30 * time.Minute)},
	}
	for _, s := range steps {
		t.Run(s.name, func(t *testing.T) {
			clock.Advance(s.advance)
			if !clock.Now().Equal(s.want) {
				t.Errorf("expected %v, got %v", s.want, clock.Now())
			}
		})
	}
}

func TestClock_Interface_Compliance(t *testing.T) {
	var _ Clock = RealClock{}
	var _ Clock = &MockClock{}
}

func TestMockClock_Set(t *testing.T) {
	clock := &MockClock{CurrentTime: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)}
	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	clock.Set(earlier)
	if !clock.Now().Equal(earlier) {
		t.Errorf("expected %v, got %v", earlier, clock.Now())
	}
}
