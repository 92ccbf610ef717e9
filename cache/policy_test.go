package cache

import (
	"testing"
	"time"
)

func TestPolicy_EffectiveTTL(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   time.Duration
	}{
		{"default never expires", DefaultPolicy(), 0},
		{"expiring", ExpiringPolicy(time.Minute), time.Minute},
		{"clamped", Policy{DefaultTTL: time.Hour, MaxTTL: time.Minute}, time.Minute},
		{"under max", Policy{DefaultTTL: time.Second, MaxTTL: time.Minute}, time.Second},
		{"negative", Policy{DefaultTTL: -time.Second}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.EffectiveTTL(); got != tt.want {
				t.Errorf("EffectiveTTL() = %v, want %v", got, tt.want)
			}
			if got := tt.policy.Expires(); got != (tt.want > 0) {
				t.Errorf("Expires() = %v", got)
			}
		})
	}
}
