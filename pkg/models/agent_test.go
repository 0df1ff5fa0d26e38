package models

import "testing"

func TestAgentType_Valid(t *testing.T) {
	tests := []struct {
		name      string
		agentType AgentType
		want      bool
	}{
		{"explorer is valid", AgentTypeExplorer, true},
		{"coder is valid", AgentTypeCoder, true},
		{"empty is invalid", AgentType(""), false},
		{"unknown is invalid", AgentType("reviewer"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.agentType.Valid(); got != tt.want {
				t.Errorf("AgentType(%q).Valid() = %v, want %v", tt.agentType, got, tt.want)
			}
		})
	}
}

func TestAgentType_Capabilities(t *testing.T) {
	explorer := AgentTypeExplorer.Capabilities()
	if explorer.CanWrite {
		t.Errorf("explorer should not have write capability")
	}
	if !explorer.AllowsTempScript {
		t.Errorf("explorer should retain the WriteTempScript escape hatch")
	}

	coder := AgentTypeCoder.Capabilities()
	if !coder.CanWrite {
		t.Errorf("coder should have write capability")
	}
	if coder.MaxTurns <= explorer.MaxTurns {
		t.Errorf("coder should have a larger turn budget than explorer, got coder=%d explorer=%d", coder.MaxTurns, explorer.MaxTurns)
	}
}
