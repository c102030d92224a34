// Command broadside is a line-driven front-end for the naval combat engine.
//
//	broadside [flags] [play]        place a fleet and play a match
//	broadside [flags] history       list past matches
//	broadside [flags] find <id>     show one past match
//	broadside [flags] help          print the engine's usage text
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/broadside/internal/config"
	"github.com/freeeve/broadside/internal/hub"
	"github.com/freeeve/broadside/internal/logger"
	"github.com/freeeve/broadside/internal/match"
	"github.com/freeeve/broadside/internal/turn"
	"github.com/freeeve/broadside/pkg/engine"
	"github.com/freeeve/broadside/pkg/naval"
)

// framesPerSecond converts wall time to the frame counter the shortcut
// detector expects.
const framesPerSecond = 60

func main() {
	logger.Init(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config invalid")
	}

	var bombs, spyglasses, torpedoes int
	flag.StringVar(&cfg.EnginePath, "engine", cfg.EnginePath, "Path to the engine executable")
	flag.StringVar(&cfg.CacheDir, "cache", cfg.CacheDir, "Directory for setup payloads")
	flag.IntVar(&cfg.BoardWidth, "width", cfg.BoardWidth, "Board width")
	flag.IntVar(&cfg.BoardHeight, "height", cfg.BoardHeight, "Board height")
	flag.DurationVar(&cfg.ResponseTimeout, "timeout", cfg.ResponseTimeout, "Max wait for an engine response")
	flag.StringVar(&cfg.SpectatorAddr, "spectator", cfg.SpectatorAddr, "Serve spectators on this address (empty = off)")
	flag.IntVar(&bombs, "bombs", 2, "Bombs in the starting inventory")
	flag.IntVar(&spyglasses, "spyglasses", 1, "Spyglasses in the starting inventory")
	flag.IntVar(&torpedoes, "torpedoes", 1, "Torpedoes in the starting inventory")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Config invalid")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mode := flag.Arg(0)
	switch mode {
	case "history", "find", "help":
		out, err := query(ctx, cfg.EnginePath, mode, flag.Arg(1))
		if err != nil {
			log.Fatal().Err(err).Str("mode", mode).Msg("Engine query failed")
		}
		fmt.Print(out)
		return
	case "", "play":
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", mode)
		flag.Usage()
		os.Exit(2)
	}

	inv, err := naval.NewInventory(
		naval.ConsumableItem{Kind: naval.Bomb, Quantity: bombs},
		naval.ConsumableItem{Kind: naval.Spyglass, Quantity: spyglasses},
		naval.ConsumableItem{Kind: naval.Torpedo, Quantity: torpedoes},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid inventory")
	}

	var bc turn.Broadcaster = turn.NoopBroadcaster{}
	var spectators *hub.Server
	if cfg.SpectatorAddr != "" {
		h := hub.New()
		spectators = hub.NewServer(cfg.SpectatorAddr, h)
		spectators.Start()
		bc = h
	}

	in := bufio.NewScanner(os.Stdin)
	p := &player{cfg: cfg, inv: inv, bc: bc, in: in, out: os.Stdout, start: time.Now()}

	// Handle graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
		os.Stdin.Close()
	}()

	runErr := p.run(ctx)

	if spectators != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := spectators.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Spectator server shutdown error")
		}
		shutdownCancel()
	}
	if runErr != nil {
		log.Fatal().Err(runErr).Msg("Match failed")
	}
}

func query(ctx context.Context, path, mode, id string) (string, error) {
	switch mode {
	case "history":
		return engine.History(ctx, path)
	case "find":
		return engine.FindMatch(ctx, path, id)
	default:
		return engine.Help(ctx, path)
	}
}

// player runs the setup and turn loops over line input.
type player struct {
	cfg   *config.Config
	inv   *naval.Inventory
	bc    turn.Broadcaster
	in    *bufio.Scanner
	out   io.Writer
	start time.Time
}

func (p *player) frame() int64 {
	return time.Since(p.start).Milliseconds() * framesPerSecond / 1000
}

func (p *player) prompt(s string) bool {
	fmt.Fprint(p.out, s)
	return p.in.Scan()
}

func (p *player) run(ctx context.Context) error {
	board, err := p.setup()
	if err != nil || board == nil {
		return err
	}

	m, err := match.Start(ctx, p.cfg, board, p.inv, p.bc)
	if err != nil {
		return err
	}
	defer m.Close()
	fmt.Fprintf(p.out, "match %s started\n", m.ID())

	ctrl := m.Turn()
	for !m.Over() && p.prompt("turn> ") {
		cmd, err := parseCommand(p.in.Text())
		if err != nil {
			fmt.Fprintln(p.out, err)
			continue
		}
		switch cmd.name {
		case "attack":
			err = ctrl.RecordAttack(cmd.row, cmd.col)
		case "item":
			err = ctrl.RecordItemUse(cmd.item, cmd.row, cmd.col, cmd.orient)
		case "key":
			for _, name := range m.Press(cmd.key, p.frame()) {
				fmt.Fprintf(p.out, "shortcut %s\n", name)
			}
		case "quit":
			m.Press(match.KeyQuit, p.frame())
		case "show":
			p.show(ctrl, board)
		case "end":
			var res turn.TurnResult
			res, err = ctrl.Submit(ctx)
			p.report(res)
			if errors.Is(err, context.Canceled) {
				return nil
			}
		case "help":
			fmt.Fprintln(p.out, "attack <r> <c> | item <name> <r> <c> [h|v] | end | show | key <k> | quit")
		default:
			err = fmt.Errorf("%s is only valid during setup", cmd.name)
		}
		if err != nil {
			fmt.Fprintln(p.out, err)
		}
	}

	if o := ctrl.Outcome(); o != 0 {
		fmt.Fprintf(p.out, "match over: %s\n", o)
	} else {
		fmt.Fprintln(p.out, "match ended")
	}
	return nil
}

// setup places the standard fleet. It returns a nil board if input ends first.
func (p *player) setup() (*naval.Board, error) {
	board, err := naval.NewBoard(p.cfg.BoardWidth, p.cfg.BoardHeight)
	if err != nil {
		return nil, err
	}
	fleet, err := naval.NewFleet()
	if err != nil {
		return nil, err
	}

	for p.prompt("setup> ") {
		cmd, err := parseCommand(p.in.Text())
		if err != nil {
			fmt.Fprintln(p.out, err)
			continue
		}
		switch cmd.name {
		case "list":
			for i, b := range fleet.Remaining() {
				fmt.Fprintf(p.out, "%d: length %d %s\n", i, b.Length, b.Orientation)
			}
		case "select":
			err = fleet.Select(cmd.index)
		case "rotate":
			err = fleet.Rotate()
		case "place":
			_, err = fleet.PlaceSelected(board, naval.Cell{Row: cmd.row, Col: cmd.col})
		case "auto":
			err = autoPlace(fleet, board)
		case "show":
			fmt.Fprint(p.out, renderGrid(board.StateGrid(), board.PlacementGrid()))
		case "start":
			if !fleet.Done() {
				err = fmt.Errorf("%d boats left to place", len(fleet.Remaining()))
				break
			}
			return board, nil
		case "quit":
			return nil, nil
		case "help":
			fmt.Fprintln(p.out, "list | select <i> | rotate | place <r> <c> | auto | show | start | quit")
		default:
			err = fmt.Errorf("%s is not a setup command", cmd.name)
		}
		if err != nil {
			fmt.Fprintln(p.out, err)
		}
	}
	return nil, p.in.Err()
}

// autoPlace puts the remaining boats at the first free origin in reading
// order, rotating a boat that does not fit as it is.
func autoPlace(fleet *naval.Fleet, board *naval.Board) error {
	for !fleet.Done() {
		if err := fleet.Select(0); err != nil {
			return err
		}
		if placeFirstFit(fleet, board) {
			continue
		}
		if err := fleet.Rotate(); err != nil {
			return err
		}
		if !placeFirstFit(fleet, board) {
			return errors.New("no room left for the remaining boats")
		}
	}
	return nil
}

func placeFirstFit(fleet *naval.Fleet, board *naval.Board) bool {
	for r := 0; r < board.Height(); r++ {
		for c := 0; c < board.Width(); c++ {
			if _, err := fleet.PlaceSelected(board, naval.Cell{Row: r, Col: c}); err == nil {
				return true
			}
		}
	}
	return false
}

func (p *player) show(ctrl *turn.Controller, board *naval.Board) {
	fmt.Fprintln(p.out, "own board")
	fmt.Fprint(p.out, renderGrid(ctrl.OwnGrid(), board.PlacementGrid()))
	fmt.Fprintln(p.out, "opponent board")
	fmt.Fprint(p.out, renderGrid(ctrl.OpponentGrid(), nil))
	var items []string
	for _, it := range ctrl.Items() {
		items = append(items, fmt.Sprintf("%s=%d", it.Kind, it.Quantity))
	}
	fmt.Fprintf(p.out, "items: %s\n", strings.Join(items, " "))
}

func (p *player) report(res turn.TurnResult) {
	for _, e := range res.Effects {
		switch e.Kind {
		case turn.EffectHit:
			fmt.Fprintf(p.out, "hit at %s (boat %d)\n", e.Cell, e.BoatID)
		case turn.EffectMiss:
			fmt.Fprintf(p.out, "miss at %s\n", e.Cell)
		case turn.EffectOpponentShot:
			fmt.Fprintf(p.out, "opponent fired at %s\n", e.Cell)
		}
	}
	if res.Degraded {
		fmt.Fprintln(p.out, "engine not responding; type quit to end the match")
	}
}
