package statusflow

import (
	"fmt"
	"math/rand"
	"strconv"
)

const (
	nodeSpacing = 250
	canvasW     = 1000
	canvasH     = 500
	arrowClosed = "arrowclosed"
)

func layoutNode(s Status, idx int) Node {
	return Node{
		ID:       s.Name,
		Label:    s.Name,
		Color:    s.Color,
		Position: Position{X: float64(idx * nodeSpacing), Y: 0},
	}
}

func randomNode(s Status, rnd *rand.Rand) Node {
	return Node{
		ID:       s.Name,
		Label:    s.Name,
		Color:    s.Color,
		Position: Position{X: float64(rnd.Intn(canvasW)), Y: float64(rnd.Intn(canvasH))},
	}
}

func newEdge(tr Transition, color string) Edge {
	return Edge{
		ID:        tr.ID,
		Source:    tr.From,
		Target:    tr.To,
		Color:     color,
		MarkerEnd: arrowClosed,
	}
}

func randomColor(rnd *rand.Rand) string {
	return fmt.Sprintf("#%06x", rnd.Intn(0x1000000))
}

// distinctColor picks a random colour not in used (gives up after a few tries).
func distinctColor(rnd *rand.Rand, used map[string]bool) string {
	c := randomColor(rnd)
	for i := 0; i < 8 && used[c]; i++ {
		c = randomColor(rnd)
	}
	used[c] = true
	return c
}

// transitionID returns "e{from}-{to}", suffixed when already taken.
func transitionID(from, to string, taken func(string) bool) string {
	base := "e" + from + "-" + to
	id := base
	for n := 2; taken(id); n++ {
		id = base + "~" + strconv.Itoa(n)
	}
	return id
}

// buildGraph derives nodes (horizontal layout) and edges from statuses and transitions.
func buildGraph(statuses []Status, transitions []Transition, rnd *rand.Rand) Graph {
	g := Graph{
		Nodes: make([]Node, 0, len(statuses)),
		Edges: make([]Edge, 0, len(transitions)),
	}
	for i, s := range statuses {
		g.Nodes = append(g.Nodes, layoutNode(s, i))
	}
	used := make(map[string]bool, len(transitions))
	for _, tr := range transitions {
		g.Edges = append(g.Edges, newEdge(tr, distinctColor(rnd, used)))
	}
	return g
}

// resolveTransitions maps the backend's status IDs to names.
// Unknown IDs resolve to an empty name and the transition is flagged dangling.
func resolveTransitions(statuses []Status, remote []RemoteTransition) []Transition {
	names := make(map[int]string, len(statuses))
	for _, s := range statuses {
		names[s.ID] = s.Name
	}
	taken := make(map[string]bool, len(remote))
	transitions := make([]Transition, 0, len(remote))
	for _, rt := range remote {
		from, okFrom := names[rt.FromStatus]
		to, okTo := names[rt.ToStatus]
		tr := Transition{
			From:     from,
			To:       to,
			Dangling: !okFrom || !okTo,
		}
		tr.ID = transitionID(tr.From, tr.To, func(id string) bool { return taken[id] })
		taken[tr.ID] = true
		transitions = append(transitions, tr)
	}
	return transitions
}
