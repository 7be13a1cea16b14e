package api

import "testing"

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		status LifecycleStatus
		want   bool
	}{
		{LifecycleQueued, false},
		{LifecycleProcessing, false},
		{LifecycleCompleted, true},
		{LifecycleFailed, true},
		{LifecycleCancelled, true},
	}
	for _, tt := range tests {
		if got := IsTerminal(tt.status); got != tt.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestValidateLifecycleTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    LifecycleStatus
		to      LifecycleStatus
		wantErr bool
	}{
		{"initial to queued", "", LifecycleQueued, false},
		{"queued to processing", LifecycleQueued, LifecycleProcessing, false},
		{"queued to cancelled", LifecycleQueued, LifecycleCancelled, false},
		{"processing to completed", LifecycleProcessing, LifecycleCompleted, false},
		{"processing to failed", LifecycleProcessing, LifecycleFailed, false},
		{"processing to cancelled", LifecycleProcessing, LifecycleCancelled, false},
		{"queued to completed skips processing", LifecycleQueued, LifecycleCompleted, true},
		{"completed is terminal", LifecycleCompleted, LifecycleProcessing, true},
		{"failed is terminal", LifecycleFailed, LifecycleQueued, true},
		{"cancelled is terminal", LifecycleCancelled, LifecycleProcessing, true},
		{"initial to processing", "", LifecycleProcessing, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLifecycleTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLifecycleTransition(%s, %s) error = %v, wantErr %v",
					tt.from, tt.to, err, tt.wantErr)
			}
		})
	}
}
