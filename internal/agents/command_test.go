package agents

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestCommandExecutorJSONRoundTrip(t *testing.T) {
	exec, err := NewCommandExecutor(Spec{Command: "cat"}, nil, nil)
	if err != nil {
		t.Fatalf("NewCommandExecutor: %v", err)
	}

	out, err := exec.Execute(context.Background(), map[string]any{"n": 1, "tags": []string{"a"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := map[string]any{"n": float64(1), "tags": []any{"a"}}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("output = %#v, want %#v", out, want)
	}
}

func TestCommandExecutorTextOutput(t *testing.T) {
	exec, err := NewCommandExecutor(Spec{
		Command: "bash",
		Args:    []string{"-c", "echo \"hello $GREETING\""},
		Env:     []string{"GREETING=world"},
	}, NewProcessManager(), nil)
	if err != nil {
		t.Fatalf("NewCommandExecutor: %v", err)
	}

	out, err := exec.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "hello world" {
		t.Errorf("output = %q, want %q", out, "hello world")
	}
}

func TestCommandExecutorWorkDir(t *testing.T) {
	dir := t.TempDir()
	exec, _ := NewCommandExecutor(Spec{Command: "pwd", WorkDir: dir}, nil, nil)

	out, err := exec.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if s, _ := out.(string); !strings.HasSuffix(s, dir) {
		t.Errorf("pwd = %v, want suffix %s", out, dir)
	}
}

func TestCommandExecutorFailure(t *testing.T) {
	exec, _ := NewCommandExecutor(Spec{Command: "bash", Args: []string{"-c", "echo nope >&2; exit 1"}}, nil, nil)

	_, err := exec.Execute(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Errorf("expected failure carrying stderr, got %v", err)
	}
}

func TestCommandExecutorCancellation(t *testing.T) {
	exec, _ := NewCommandExecutor(Spec{Command: "sleep", Args: []string{"30"}}, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := exec.Execute(ctx, nil); err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("executor ignored cancellation")
	}
}

func TestNewCommandExecutorValidation(t *testing.T) {
	if _, err := NewCommandExecutor(Spec{}, nil, nil); err == nil {
		t.Error("expected error for empty command")
	}
	if _, err := NewCommandExecutor(Spec{Command: "cat", Env: []string{"NOVALUE"}}, nil, nil); err == nil {
		t.Error("expected error for malformed env entry")
	}
}

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{"empty", "  \n", nil},
		{"json number", "42\n", float64(42)},
		{"json string", `"quoted"`, "quoted"},
		{"plain text", "  some text \n", "some text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseOutput([]byte(tt.in)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseOutput(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}
