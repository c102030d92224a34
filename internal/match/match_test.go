package match

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/freeeve/broadside/internal/config"
	"github.com/freeeve/broadside/internal/turn"
	"github.com/freeeve/broadside/pkg/naval"
)

// mockEngineSource greets with the match id read from the payload and reports
// every attack as a hit on boat 1.
const mockEngineSource = `package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

func main() {
	data, err := os.ReadFile(os.Args[len(os.Args)-1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	id := strings.SplitN(string(data), "\n", 2)[0]
	fmt.Println("ready " + id)

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		n, _ := strconv.Atoi(f[1])
		var out []string
		for i := 0; i < n && sc.Scan(); i++ {
			p := strings.Fields(sc.Text())
			if p[0] == "4" {
				out = append(out, "9 "+p[1]+" "+p[2]+" -1")
			} else {
				out = append(out, "9 "+p[2]+" "+p[3]+" 0")
			}
		}
		fmt.Printf("8 %d\n", len(out))
		for _, l := range out {
			fmt.Println(l)
		}
	}
}
`

func buildMockEngine(t *testing.T, source string) string {
	t.Helper()

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "main.go")
	if err := os.WriteFile(srcPath, []byte(source), 0644); err != nil {
		t.Fatalf("write mock engine source: %v", err)
	}

	ext := ""
	if runtime.GOOS == "windows" {
		ext = ".exe"
	}
	binPath := filepath.Join(dir, "mock_engine"+ext)

	cmd := exec.Command("go", "build", "-o", binPath, srcPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build mock engine: %v\n%s", err, out)
	}
	return binPath
}

func testConfig(t *testing.T, enginePath string) *config.Config {
	t.Helper()
	return &config.Config{
		EnginePath:       enginePath,
		CacheDir:         filepath.Join(t.TempDir(), "cache"),
		HandshakeTimeout: 10 * time.Second,
		ResponseTimeout:  10 * time.Second,
		BoardWidth:       10,
		BoardHeight:      10,
		MaxFailures:      3,
	}
}

func placedBoard(t *testing.T) *naval.Board {
	t.Helper()
	b, err := naval.NewBoard(10, 10)
	if err != nil {
		t.Fatal(err)
	}
	fleet, err := naval.NewFleet()
	if err != nil {
		t.Fatal(err)
	}
	for row := 0; !fleet.Done(); row += 2 {
		if err := fleet.Select(0); err != nil {
			t.Fatal(err)
		}
		if _, err := fleet.PlaceSelected(b, naval.Cell{Row: row, Col: 0}); err != nil {
			t.Fatal(err)
		}
	}
	return b
}

type recorder struct {
	kinds  []string
	events []turn.MatchEvent
}

func (r *recorder) BroadcastMatchEvent(_ string, ev turn.MatchEvent) {
	r.kinds = append(r.kinds, ev.EventType())
	r.events = append(r.events, ev)
}

func TestNewMatchID(t *testing.T) {
	a, b := NewMatchID(), NewMatchID()
	if len(a) != 5 || len(b) != 5 {
		t.Fatalf("ids %q %q should be 5 characters", a, b)
	}
	if a == b {
		t.Errorf("two ids collided: %q", a)
	}
}

func TestWritePayload_RemovesOnlyStalePayloads(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	os.MkdirAll(dir, 0o755)
	stale := filepath.Join(dir, "old01.txt")
	os.WriteFile(stale, []byte("old"), 0644)
	notes := filepath.Join(dir, "notes.md")
	os.WriteFile(notes, []byte("keep me"), 0644)
	sub := filepath.Join(dir, "src")
	os.MkdirAll(sub, 0o755)
	nested := filepath.Join(sub, "deep.txt")
	os.WriteFile(nested, []byte("keep me too"), 0644)

	inv, _ := naval.NewInventory(naval.ConsumableItem{Kind: naval.Bomb, Quantity: 2})
	setup := naval.NewSetup("ab12c", placedBoard(t), inv)

	path, err := WritePayload(dir, setup)
	if err != nil {
		t.Fatalf("WritePayload: %v", err)
	}
	if path != filepath.Join(dir, "ab12c.txt") {
		t.Errorf("path = %q", path)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale payload was not removed")
	}
	for _, keep := range []string{notes, sub, nested} {
		if _, err := os.Stat(keep); err != nil {
			t.Errorf("%s should survive: %v", keep, err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, err := naval.ParseSetup(f)
	if err != nil {
		t.Fatalf("ParseSetup: %v", err)
	}
	if got.MatchID != "ab12c" || got.Width != 10 || len(got.Items) != 1 {
		t.Errorf("parsed setup = %+v", got)
	}
}

func TestStart_PlaysTurnAndQuits(t *testing.T) {
	bin := buildMockEngine(t, mockEngineSource)
	cfg := testConfig(t, bin)
	inv, _ := naval.NewInventory(naval.ConsumableItem{Kind: naval.Spyglass, Quantity: 1})
	rec := &recorder{}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	m, err := Start(ctx, cfg, placedBoard(t), inv, rec)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Close()

	if !strings.HasPrefix(m.PayloadPath(), cfg.CacheDir) || !strings.HasSuffix(m.PayloadPath(), m.ID()+".txt") {
		t.Errorf("payload path = %q", m.PayloadPath())
	}

	ctrl := m.Turn()
	ctrl.RecordAttack(4, 7)
	if err := ctrl.RecordItemUse(naval.Spyglass, 2, 2, 0); err != nil {
		t.Fatal(err)
	}
	res, err := ctrl.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(res.Effects) != 2 || ctrl.OpponentGrid()[4][7] != naval.Hit {
		t.Errorf("result = %+v", res)
	}
	if ctrl.Quantity(naval.Spyglass) != 0 {
		t.Error("spyglass was not charged")
	}

	for f := int64(10); f <= 30; f += 10 {
		m.Press(KeyReveal, f)
	}

	if fired := m.Press(KeyQuit, 40); len(fired) != 1 || fired[0] != "quit" {
		t.Fatalf("escape fired %v", fired)
	}
	if !m.Over() || ctrl.Alive() {
		t.Error("escape should end the match and stop the engine")
	}

	want := []string{turn.EventMatchStarted, turn.EventTurnResolved, turn.EventMatchOver}
	if strings.Join(rec.kinds, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v, want %v", rec.kinds, want)
	}
	started, ok := rec.events[0].(turn.MatchStarted)
	if !ok || started.Width != 10 || len(started.Items) != 1 || started.Items[0] != (turn.ItemStock{Item: "spyglass", Quantity: 1}) {
		t.Errorf("match started payload = %#v", rec.events[0])
	}
}

func TestStart_EngineMissing(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing"))
	inv, _ := naval.NewInventory()

	_, err := Start(context.Background(), cfg, placedBoard(t), inv, nil)
	if err == nil {
		t.Fatal("expected error for missing engine")
	}
	if _, statErr := os.Stat(cfg.CacheDir); statErr != nil {
		t.Errorf("payload dir should still be written: %v", statErr)
	}
}
