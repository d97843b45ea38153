package daemonrun

import (
	"testing"
	"time"

	"mixdown/internal/config"
)

func TestRecoveryThresholdFollowsStaleProcessingMinutes(t *testing.T) {
	cfg := config.Default()
	if got := recoveryThreshold(&cfg); got != 30*time.Minute {
		t.Fatalf("default threshold = %s, want 30m", got)
	}

	cfg.Workflow.StaleProcessingMinutes = 90
	if got := recoveryThreshold(&cfg); got != 90*time.Minute {
		t.Fatalf("threshold = %s, want 90m", got)
	}
}
