package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/freeeve/broadside/pkg/naval"
)

var errUsage = errors.New("unrecognized command")

// command is one parsed line of player input.
type command struct {
	name   string
	row    int
	col    int
	index  int
	item   naval.ItemKind
	orient naval.Orientation
	key    string
}

// parseCommand reads one input line. Setup commands are list, select <i>,
// rotate, place <row> <col>, auto and start. Turn commands are attack <row>
// <col>, item <name> <row> <col> [h|v], end, key <key>, show and quit.
func parseCommand(line string) (command, error) {
	f := strings.Fields(strings.ToLower(line))
	if len(f) == 0 {
		return command{}, errUsage
	}
	c := command{name: f[0]}
	args := f[1:]

	switch c.name {
	case "list", "rotate", "auto", "start", "end", "show", "quit", "help":
		if len(args) != 0 {
			return command{}, fmt.Errorf("%s takes no arguments", c.name)
		}
	case "select":
		if len(args) != 1 {
			return command{}, errors.New("usage: select <index>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return command{}, fmt.Errorf("select: %w", err)
		}
		c.index = n
	case "place", "attack":
		if len(args) != 2 {
			return command{}, fmt.Errorf("usage: %s <row> <col>", c.name)
		}
		r, col, err := parseCell(args[0], args[1])
		if err != nil {
			return command{}, fmt.Errorf("%s: %w", c.name, err)
		}
		c.row, c.col = r, col
	case "item":
		if len(args) != 3 && len(args) != 4 {
			return command{}, errors.New("usage: item <bomb|spyglass|torpedo> <row> <col> [h|v]")
		}
		kind, err := naval.ParseItemKind(args[0])
		if err != nil {
			return command{}, err
		}
		r, col, err := parseCell(args[1], args[2])
		if err != nil {
			return command{}, fmt.Errorf("item: %w", err)
		}
		c.item, c.row, c.col = kind, r, col
		if len(args) == 4 {
			o, err := naval.ParseOrientation(args[3])
			if err != nil {
				return command{}, err
			}
			c.orient = o
		}
	case "key":
		if len(args) != 1 {
			return command{}, errors.New("usage: key <name>")
		}
		c.key = args[0]
	default:
		return command{}, fmt.Errorf("%w: %q", errUsage, f[0])
	}
	return c, nil
}

func parseCell(rs, cs string) (int, int, error) {
	r, err := strconv.Atoi(rs)
	if err != nil {
		return 0, 0, fmt.Errorf("row %q: %w", rs, err)
	}
	c, err := strconv.Atoi(cs)
	if err != nil {
		return 0, 0, fmt.Errorf("col %q: %w", cs, err)
	}
	return r, c, nil
}

// renderGrid draws a state grid, overlaying boat ids when placement is given.
func renderGrid(states [][]naval.CellState, placement [][]int) string {
	var sb strings.Builder
	sb.WriteString("   ")
	for c := 0; c < len(states[0]); c++ {
		fmt.Fprintf(&sb, "%2d", c)
	}
	sb.WriteByte('\n')
	for r, row := range states {
		fmt.Fprintf(&sb, "%2d ", r)
		for c, s := range row {
			ch := "."
			switch s {
			case naval.Miss:
				ch = "o"
			case naval.Hit:
				ch = "X"
			case naval.Marked:
				ch = "*"
			default:
				if placement != nil && placement[r][c] != 0 {
					ch = strconv.Itoa(placement[r][c])
				}
			}
			fmt.Fprintf(&sb, "%2s", ch)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
