package alerts

import (
	"testing"
	"time"
)

func TestMayFire_ZeroCooldownAlwaysFires(t *testing.T) {
	now := time.Now()
	justNow := now.Add(-time.Second)
	if !MayFire(0, &justNow, now) {
		t.Error("zero cooldown must always allow firing")
	}
	if !MayFire(-5, &justNow, now) {
		t.Error("negative cooldown must always allow firing")
	}
}

func TestMayFire_NoPriorAlert(t *testing.T) {
	if !MayFire(60, nil, time.Now()) {
		t.Error("a rule that never fired must be allowed to fire")
	}
}

func TestMayFire_Boundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		lastFired time.Time
		want      bool
	}{
		{"strictly inside window", now.Add(-59 * time.Minute), false},
		{"one nanosecond inside", now.Add(-60*time.Minute + time.Nanosecond), false},
		{"exactly at boundary", now.Add(-60 * time.Minute), true},
		{"past boundary", now.Add(-61 * time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := tt.lastFired
			if got := MayFire(60, &last, now); got != tt.want {
				t.Errorf("MayFire() = %v, want %v", got, tt.want)
			}
		})
	}
}
