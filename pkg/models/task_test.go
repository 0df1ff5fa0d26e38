package models

import "testing"

func TestTaskStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status TaskStatus
		want   bool
	}{
		{"pending is valid", TaskStatusPending, true},
		{"running is valid", TaskStatusRunning, true},
		{"completed is valid", TaskStatusCompleted, true},
		{"failed is valid", TaskStatusFailed, true},
		{"empty string is invalid", TaskStatus(""), false},
		{"unknown status is invalid", TaskStatus("unknown"), false},
		{"typo status is invalid", TaskStatus("completedd"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("TaskStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestTaskStatus_Terminal(t *testing.T) {
	tests := []struct {
		status TaskStatus
		want   bool
	}{
		{TaskStatusPending, false},
		{TaskStatusRunning, false},
		{TaskStatusCompleted, true},
		{TaskStatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("TaskStatus(%q).Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestTask_ReadOnly(t *testing.T) {
	task := &Task{Status: TaskStatusRunning}
	if task.ReadOnly() {
		t.Errorf("running task should not be read-only")
	}
	task.Status = TaskStatusCompleted
	if !task.ReadOnly() {
		t.Errorf("completed task should be read-only")
	}
}

func TestFinalStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status FinalStatus
		want   bool
	}{
		{"completed is valid", FinalStatusCompleted, true},
		{"failed is valid", FinalStatusFailed, true},
		{"forced is valid", FinalStatusForced, true},
		{"empty is invalid", FinalStatus(""), false},
		{"unknown is invalid", FinalStatus("cancelled"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("FinalStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}
