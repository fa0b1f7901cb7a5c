package worldmap

import (
	"io"
	"sync"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	"wisp/internal/log"
)

// directions maps outbound movement commands to canonical exit names
var directions = map[string]string{
	"n": "north", "north": "north",
	"s": "south", "south": "south",
	"e": "east", "east": "east",
	"w": "west", "west": "west",
	"ne": "northeast", "northeast": "northeast",
	"nw": "northwest", "northwest": "northwest",
	"se": "southeast", "southeast": "southeast",
	"sw": "southwest", "southwest": "southwest",
	"u": "up", "up": "up",
	"d": "down", "down": "down",
}

// Direction canonicalizes a movement command, if it is one
func Direction(command string) (string, bool) {
	dir, ok := directions[command]
	return dir, ok
}

// Tracker builds a directed graph of visited rooms from movement commands
// and observed room headers. It is a pure consumer of normalized events
// and never sends commands.
type Tracker struct {
	mu      sync.Mutex
	g       graph.Graph[string, string]
	current string
	pending string // direction of the move awaiting its room header
}

// NewTracker creates an empty room graph
func NewTracker() *Tracker {
	return &Tracker{
		g: graph.New(graph.StringHash, graph.Directed()),
	}
}

// OnMove records an outbound movement command
func (t *Tracker) OnMove(direction string) {
	t.mu.Lock()
	t.pending = direction
	t.mu.Unlock()
}

// OnRoom records an observed room header, linking it from the previous
// room when a movement command is pending.
func (t *Tracker) OnRoom(name string) {
	if name == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.g.AddVertex(name); err != nil && err != graph.ErrVertexAlreadyExists {
		log.Warn("worldmap: failed to add room", "room", name, "error", err)
		return
	}

	if t.current != "" && t.pending != "" && t.current != name {
		err := t.g.AddEdge(t.current, name, graph.EdgeAttribute("label", t.pending))
		if err != nil && err != graph.ErrEdgeAlreadyExists {
			log.Warn("worldmap: failed to link rooms", "from", t.current, "to", name, "error", err)
		}
	}

	t.current = name
	t.pending = ""
}

// Current returns the room the tracker believes we are in
func (t *Tracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Rooms returns the number of visited rooms
func (t *Tracker) Rooms() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	order, err := t.g.Order()
	if err != nil {
		return 0
	}
	return order
}

// ExportDOT writes the room graph in DOT format for external rendering
func (t *Tracker) ExportDOT(w io.Writer) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return draw.DOT(t.g, w)
}

// Reset drops the movement linkage but keeps the accumulated map
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.current = ""
	t.pending = ""
	t.mu.Unlock()
}
