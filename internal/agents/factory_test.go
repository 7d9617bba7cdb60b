package agents

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		want    string
		wantErr bool
	}{
		{"echo", Spec{Type: "echo"}, "agents.EchoExecutor", false},
		{"default is echo", Spec{}, "agents.EchoExecutor", false},
		{"command", Spec{Type: "command", Command: "cat"}, "*agents.CommandExecutor", false},
		{"command without binary", Spec{Type: "command"}, "", true},
		{"unknown", Spec{Type: "carrier-pigeon"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, err := New(tt.spec, nil, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := typeName(exec); got != tt.want {
				t.Errorf("New() type = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuildRegistry(t *testing.T) {
	reg, err := BuildRegistry(map[string]Spec{
		"echo":  {Type: "echo", Capabilities: []string{"test"}},
		"shell": {Type: "command", Command: "cat"},
	}, NewProcessManager(), nil)
	if err != nil {
		t.Fatalf("BuildRegistry: %v", err)
	}

	if got := strings.Join(reg.Types(), ","); got != "echo,shell" {
		t.Errorf("Types() = %s", got)
	}
	if got := reg.FindByCapability("test"); len(got) != 1 || got[0] != "echo" {
		t.Errorf("FindByCapability(test) = %v", got)
	}

	_, err = BuildRegistry(map[string]Spec{"bad": {Type: "nope"}}, nil, nil)
	if err == nil || !strings.Contains(err.Error(), `agent "bad"`) {
		t.Errorf("expected named agent error, got %v", err)
	}
}

func typeName(v any) string {
	switch v.(type) {
	case EchoExecutor:
		return "agents.EchoExecutor"
	case *CommandExecutor:
		return "*agents.CommandExecutor"
	}
	return "unknown"
}
