package realtime

import "time"

// ProcessState is the process-wide status singleton, mutated by external
// triggers and broadcast on change.
type ProcessState struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	StartTime time.Time `json:"startTime"`
}

// StatePatch is a partial update; nil fields are left untouched.
type StatePatch struct {
	Status    *string    `json:"status"`
	Message   *string    `json:"message"`
	StartTime *time.Time `json:"startTime"`
}

func (s *ProcessState) apply(patch StatePatch) {
	if patch.Status != nil {
		s.Status = *patch.Status
	}
	if patch.Message != nil {
		s.Message = *patch.Message
	}
	if patch.StartTime != nil {
		s.StartTime = *patch.StartTime
	}
}
