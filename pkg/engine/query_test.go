package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

const mockQuerySource = `package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		os.Exit(2)
	}
	switch os.Args[1] {
	case "listaHistorial":
		fmt.Println("ab12c victory")
		fmt.Println("cd34e defeat")
	case "buscarPartida":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "missing id")
			os.Exit(1)
		}
		fmt.Println("match " + os.Args[2])
	case "ayuda":
		fmt.Println("usage: engine <action>")
	default:
		fmt.Fprintln(os.Stderr, "unknown action")
		os.Exit(3)
	}
}
`

func TestQueries(t *testing.T) {
	bin := buildMockEngine(t, mockQuerySource)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tests := []struct {
		name string
		run  func() (string, error)
		want string
	}{
		{"history", func() (string, error) { return History(ctx, bin) }, "ab12c victory\ncd34e defeat\n"},
		{"find match", func() (string, error) { return FindMatch(ctx, bin, "ab12c") }, "match ab12c\n"},
		{"help", func() (string, error) { return Help(ctx, bin) }, "usage: engine <action>\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.run()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindMatch_EmptyID(t *testing.T) {
	if _, err := FindMatch(context.Background(), "unused", "  "); err == nil {
		t.Fatal("expected error for empty match id")
	}
}

func TestRunOnce_NonZeroExit(t *testing.T) {
	bin := buildMockEngine(t, mockQuerySource)

	_, err := runOnce(context.Background(), bin, "bogus")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "exit 3") || !strings.Contains(err.Error(), "unknown action") {
		t.Errorf("error %q should carry exit code and stderr", err)
	}
}

func TestRunOnce_NotFound(t *testing.T) {
	_, err := History(context.Background(), "/nonexistent/engine/binary")
	if !errors.Is(err, ErrEngineNotFound) {
		t.Fatalf("expected EngineNotFound, got %v", err)
	}
}
