package layout

import (
	"hash/fnv"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Alterya/Globe/pkg/graph"
)

var (
	layoutSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_steps_total",
			Help: "Simulation steps executed per phase",
		},
		[]string{"phase"},
	)

	layoutEnergy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "layout_energy",
		Help: "Mean kinetic energy per node after the last step",
	})
)

// NodeState tracks how a single node participates in the simulation.
type NodeState int

const (
	// StateFree nodes are fully simulated.
	StateFree NodeState = iota
	// StatePinned nodes follow the pointer; their position is externally
	// authoritative and the simulation must not overwrite it.
	StatePinned
	// StateReleased nodes just left a drag and settle under extra damping
	// for a short window before returning to StateFree.
	StateReleased
)

// Phase is the global energy phase of the convergence cycle.
type Phase string

const (
	// PhaseColdStart runs right after the node/edge set was replaced:
	// a fixed number of steps pre-converge positions with no visual output.
	PhaseColdStart Phase = "cold-start"
	// PhaseWarmSettle renders every step while residual energy drains.
	PhaseWarmSettle Phase = "warm-settle"
	// PhaseIdle suspends stepping until a drag or a new graph perturbs
	// the system.
	PhaseIdle Phase = "idle"
)

// Params tunes the force model. Distance clamps exist so coincident or
// far-apart nodes can never produce singular or runaway forces.
type Params struct {
	Width, Height      float64
	Repulsion          float64
	MinDistance        float64
	MaxDistance        float64
	SpringStrength     float64
	RestLength         float64
	CenterStrength     float64
	CollisionPadding   float64
	Damping            float64
	ReleaseDamping     float64
	ReleaseSettleSteps int
	ColdStartSteps     int
	IdleThreshold      float64
}

// DefaultParams returns the tuning used by the interaction surface.
func DefaultParams() Params {
	return Params{
		Width:              1200,
		Height:             800,
		Repulsion:          2400,
		MinDistance:        24,
		MaxDistance:        420,
		SpringStrength:     0.06,
		RestLength:         90,
		CenterStrength:     0.015,
		CollisionPadding:   4,
		Damping:            0.85,
		ReleaseDamping:     0.55,
		ReleaseSettleSteps: 12,
		ColdStartSteps:     120,
		IdleThreshold:      0.02,
	}
}

type body struct {
	id     string
	idx    int
	radius float64
	pos    r2.Vec
	vel    r2.Vec
	state  NodeState
	settle int
}

type spring struct {
	a, b *body
}

// NodePosition is one rendered position snapshot.
type NodePosition struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// Engine owns position, velocity, pinning and convergence for one network.
// It is a pure step function over its own state: any scheduler (ticker,
// frame callback, or a bare loop in a test) can drive it. Engine is not
// safe for concurrent use; callers serialize access.
type Engine struct {
	params Params
	bodies []*body
	index  map[string]*body
	edges  []spring
	phase  Phase
	energy float64
}

// NewEngine builds a fresh simulation for the network. Initial positions
// are derived from each node's identity, so the same node starts at the
// same spot across rebuilds even without explicit seeding.
func NewEngine(network *graph.Network, params Params) *Engine {
	e := &Engine{
		params: params,
		index:  make(map[string]*body, len(network.Nodes)),
		phase:  PhaseColdStart,
	}

	center := r2.Vec{X: params.Width / 2, Y: params.Height / 2}
	for i, node := range network.Nodes {
		b := &body{
			id:     node.ID,
			idx:    i,
			radius: node.Radius(),
			pos:    r2.Add(center, seedOffset(node.ID)),
		}
		e.bodies = append(e.bodies, b)
		e.index[node.ID] = b
	}

	for _, edge := range network.Edges {
		a, okA := e.index[edge.SourceID]
		b, okB := e.index[edge.TargetID]
		if okA && okB {
			e.edges = append(e.edges, spring{a: a, b: b})
		}
	}

	return e
}

// seedOffset spreads nodes over concentric rings using a hash of the node
// identity: deterministic, and collision-free enough for the cold start.
func seedOffset(id string) r2.Vec {
	h := fnv.New32a()
	h.Write([]byte(id))
	sum := h.Sum32()

	angle := float64(sum%3600) / 3600 * 2 * math.Pi
	ring := 80 + float64((sum>>12)%240)
	return r2.Vec{X: ring * math.Cos(angle), Y: ring * math.Sin(angle)}
}

// SeedFrom copies positions from a previous engine for nodes that survived
// a rebuild. Continuity is a heuristic, not a guarantee.
func (e *Engine) SeedFrom(prev map[string]r2.Vec) {
	for id, pos := range prev {
		if b, ok := e.index[id]; ok {
			b.pos = pos
		}
	}
}

// Prewarm runs the cold-start steps without visual output, then enters
// warm-settle. Calling it in any other phase is a no-op.
func (e *Engine) Prewarm() {
	if e.phase != PhaseColdStart {
		return
	}
	for i := 0; i < e.params.ColdStartSteps; i++ {
		e.step(1)
		layoutSteps.WithLabelValues(string(PhaseColdStart)).Inc()
	}
	e.phase = PhaseWarmSettle
}

// Step advances the simulation by dt and returns the resulting phase.
// In the idle phase stepping is suspended until a perturbation arrives.
func (e *Engine) Step(dt float64) Phase {
	if e.phase == PhaseIdle {
		return e.phase
	}
	if e.phase == PhaseColdStart {
		e.Prewarm()
	}

	e.step(dt)
	layoutSteps.WithLabelValues(string(e.phase)).Inc()

	if e.phase == PhaseWarmSettle && e.meanEnergy() < e.params.IdleThreshold && !e.anyPinned() {
		e.phase = PhaseIdle
	}
	return e.phase
}

func (e *Engine) step(dt float64) {
	forces := make([]r2.Vec, len(e.bodies))
	center := r2.Vec{X: e.params.Width / 2, Y: e.params.Height / 2}

	// Pairwise repulsion, clamped on both ends.
	for i, a := range e.bodies {
		for j := i + 1; j < len(e.bodies); j++ {
			b := e.bodies[j]
			delta := r2.Sub(b.pos, a.pos)
			dist := r2.Norm(delta)
			if dist > e.params.MaxDistance {
				continue
			}
			dir := safeUnit(delta, i+j)
			if dist < e.params.MinDistance {
				dist = e.params.MinDistance
			}
			push := r2.Scale(e.params.Repulsion/(dist*dist), dir)
			forces[i] = r2.Sub(forces[i], push)
			forces[j] = r2.Add(forces[j], push)
		}
	}

	// Link attraction toward the rest length.
	for _, s := range e.edges {
		delta := r2.Sub(s.b.pos, s.a.pos)
		dist := r2.Norm(delta)
		dir := safeUnit(delta, 0)
		stretch := dist - e.params.RestLength
		pull := r2.Scale(e.params.SpringStrength*stretch, dir)

		forces[s.a.idx] = r2.Add(forces[s.a.idx], pull)
		forces[s.b.idx] = r2.Sub(forces[s.b.idx], pull)
	}

	// Weak global centering.
	for i, b := range e.bodies {
		forces[i] = r2.Add(forces[i], r2.Scale(e.params.CenterStrength, r2.Sub(center, b.pos)))
	}

	// Integrate.
	total := 0.0
	for i, b := range e.bodies {
		switch b.state {
		case StatePinned:
			b.vel = r2.Vec{}
			continue
		case StateReleased:
			b.vel = r2.Scale(e.params.ReleaseDamping, r2.Add(b.vel, r2.Scale(dt, forces[i])))
			b.settle--
			if b.settle <= 0 {
				b.state = StateFree
			}
		default:
			b.vel = r2.Scale(e.params.Damping, r2.Add(b.vel, r2.Scale(dt, forces[i])))
		}
		b.pos = r2.Add(b.pos, r2.Scale(dt, b.vel))
		total += b.vel.X*b.vel.X + b.vel.Y*b.vel.Y
	}

	e.resolveCollisions()

	if len(e.bodies) > 0 {
		e.energy = total / float64(len(e.bodies))
	} else {
		e.energy = 0
	}
	layoutEnergy.Set(e.energy)
}

// resolveCollisions enforces a minimum center-to-center distance
// proportional to the rendered radii. Pinned bodies do not move; their
// neighbor absorbs the full correction.
func (e *Engine) resolveCollisions() {
	for i, a := range e.bodies {
		for j := i + 1; j < len(e.bodies); j++ {
			b := e.bodies[j]
			minSep := a.radius + b.radius + e.params.CollisionPadding
			delta := r2.Sub(b.pos, a.pos)
			dist := r2.Norm(delta)
			if dist >= minSep {
				continue
			}

			dir := safeUnit(delta, i+j)
			overlap := minSep - dist
			switch {
			case a.state == StatePinned && b.state == StatePinned:
				// Both under the user's control; leave them.
			case a.state == StatePinned:
				b.pos = r2.Add(b.pos, r2.Scale(overlap, dir))
			case b.state == StatePinned:
				a.pos = r2.Sub(a.pos, r2.Scale(overlap, dir))
			default:
				half := r2.Scale(overlap/2, dir)
				a.pos = r2.Sub(a.pos, half)
				b.pos = r2.Add(b.pos, half)
			}
		}
	}
}

// safeUnit returns a unit vector even for coincident points, deriving a
// deterministic direction from the salt instead of dividing by zero.
func safeUnit(v r2.Vec, salt int) r2.Vec {
	n := r2.Norm(v)
	if n == 0 {
		angle := float64(salt%360) / 360 * 2 * math.Pi
		return r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)}
	}
	return r2.Scale(1/n, v)
}

func (e *Engine) meanEnergy() float64 { return e.energy }

func (e *Engine) anyPinned() bool {
	for _, b := range e.bodies {
		if b.state == StatePinned {
			return true
		}
	}
	return false
}

// Pin starts a drag: the node's position becomes externally authoritative
// and the simulation wakes if it was idle.
func (e *Engine) Pin(id string, x, y float64) bool {
	b, ok := e.index[id]
	if !ok {
		return false
	}
	b.state = StatePinned
	b.pos = r2.Vec{X: x, Y: y}
	b.vel = r2.Vec{}
	e.wake()
	return true
}

// Drag moves a pinned node. Dragging a node that was never pinned pins it.
func (e *Engine) Drag(id string, x, y float64) bool {
	b, ok := e.index[id]
	if !ok {
		return false
	}
	if b.state != StatePinned {
		return e.Pin(id, x, y)
	}
	b.pos = r2.Vec{X: x, Y: y}
	return true
}

// Release ends a drag; the node settles under high damping before
// rejoining free simulation.
func (e *Engine) Release(id string) bool {
	b, ok := e.index[id]
	if !ok || b.state != StatePinned {
		return false
	}
	b.state = StateReleased
	b.settle = e.params.ReleaseSettleSteps
	e.wake()
	return true
}

func (e *Engine) wake() {
	if e.phase == PhaseIdle {
		e.phase = PhaseWarmSettle
	}
}

// Phase returns the current global phase.
func (e *Engine) Phase() Phase { return e.phase }

// Energy returns the mean kinetic energy per node after the last step.
func (e *Engine) Energy() float64 { return e.energy }

// Positions snapshots every node position for rendering.
func (e *Engine) Positions() []NodePosition {
	out := make([]NodePosition, 0, len(e.bodies))
	for _, b := range e.bodies {
		out = append(out, NodePosition{ID: b.id, X: b.pos.X, Y: b.pos.Y, Radius: b.radius})
	}
	return out
}

// PositionMap exports positions keyed by node ID, suitable for seeding the
// next engine after a rebuild.
func (e *Engine) PositionMap() map[string]r2.Vec {
	out := make(map[string]r2.Vec, len(e.bodies))
	for _, b := range e.bodies {
		out[b.id] = b.pos
	}
	return out
}
