package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Tokens used in move text for the bar and the off tray.
const (
	TokenOn  = "on"
	TokenOff = "off"
)

// ParseMove parses "<start>,<end>" where start is 1-24 or "on" and end is
// 1-24 or "off". Whitespace is not tolerated.
func ParseMove(s string) (Move, error) {
	start, end, ok := strings.Cut(s, ",")
	if !ok {
		return Move{}, fmt.Errorf("%w: %q: expected <start>,<end>", ErrMalformedMove, s)
	}

	var m Move
	if start == TokenOn {
		m.From = On
	} else {
		p, err := parsePoint(start)
		if err != nil {
			return Move{}, fmt.Errorf("%w: %q: start: %v", ErrMalformedMove, s, err)
		}
		m.From = p
	}

	if end == TokenOff {
		m.To = Off
	} else {
		p, err := parsePoint(end)
		if err != nil {
			return Move{}, fmt.Errorf("%w: %q: end: %v", ErrMalformedMove, s, err)
		}
		m.To = p
	}
	return m, nil
}

func parsePoint(s string) (Location, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not a point: %q", s)
	}
	if n < 1 || n > NumPoints {
		return 0, fmt.Errorf("point %d out of range", n)
	}
	return Location(n), nil
}

// ParsePlay parses space separated moves, e.g. "24,21 13,10".
// "pass" and the empty string parse to the pass play.
func ParsePlay(s string) (Play, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || (len(fields) == 1 && fields[0] == "pass") {
		return Play{}, nil
	}
	if len(fields) > MaxPlayLen {
		return Play{}, fmt.Errorf("%w: %d moves, at most %d allowed", ErrMalformedMove, len(fields), MaxPlayLen)
	}
	moves := make([]Move, len(fields))
	for i, f := range fields {
		m, err := ParseMove(f)
		if err != nil {
			return Play{}, err
		}
		moves[i] = m
	}
	return NewPlay(moves...), nil
}

// FindPlay looks p up in legal, accepting either its order or its full
// reverse. It returns the legal form.
func FindPlay(legal []Play, p Play) (Play, bool) {
	rev := p.Reverse()
	for _, l := range legal {
		if l == p || l == rev {
			return l, true
		}
	}
	return Play{}, false
}
