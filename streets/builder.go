package streets

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/aidarkhanov/nanoid"
)

// vehicleIDAlphabet keeps ids short, lowercase and URL-safe.
const vehicleIDAlphabet = "1234567890abcdef"

// vehicleIDLength is the generated id length in characters.
const vehicleIDLength = 10

// routeAttempts bounds how often the random factory retries origin and
// destination pairs with no connecting route.
const routeAttempts = 32

// VehicleBuilder assembles a Vehicle, validating the pieces on Build.
type VehicleBuilder struct {
	speed    float64
	pathIDs  []OSMID
	delta    float64
	isParked bool
}

// NewVehicleBuilder returns an empty builder.
func NewVehicleBuilder() *VehicleBuilder {
	return &VehicleBuilder{}
}

// WithSpeed sets the vehicle velocity in m/s.
func (b *VehicleBuilder) WithSpeed(speed float64) *VehicleBuilder {
	b.speed = speed
	return b
}

// WithPathIDs sets the precomputed route.
func (b *VehicleBuilder) WithPathIDs(pathIDs []OSMID) *VehicleBuilder {
	b.pathIDs = pathIDs
	return b
}

// WithDelta sets the initial residual distance.
func (b *VehicleBuilder) WithDelta(delta float64) *VehicleBuilder {
	b.delta = delta
	return b
}

// WithParked sets the initial parked flag.
func (b *VehicleBuilder) WithParked(parked bool) *VehicleBuilder {
	b.isParked = parked
	return b
}

func (b *VehicleBuilder) check() error {
	if b.speed <= 0 {
		return errors.New("speed is not set")
	}
	if len(b.pathIDs) < 2 {
		return errors.New("path needs at least two nodes")
	}
	return nil
}

// Build validates the builder and produces a Vehicle positioned on the
// first edge of its path.
func (b *VehicleBuilder) Build() (*Vehicle, error) {
	if err := b.check(); err != nil {
		return nil, err
	}

	id, err := nanoid.Generate(vehicleIDAlphabet, vehicleIDLength)
	if err != nil {
		return nil, fmt.Errorf("generate vehicle id: %w", err)
	}

	return &Vehicle{
		ID:       id,
		PathIDs:  b.pathIDs,
		Speed:    b.speed,
		Delta:    b.delta,
		PrevID:   b.pathIDs[0],
		NextID:   b.pathIDs[1],
		IsParked: b.isParked,
	}, nil
}

// RandomVehicle creates a vehicle between two random vertices of g
// with a shortest-path route and a velocity uniform in
// [minSpeed, maxSpeed]. Pairs without a connecting route are redrawn a
// bounded number of times before giving up with ErrNoPath.
//
// Route and speed draws come from rng, so a fixed seed reproduces
// them; the vehicle id is generated by nanoid independently of rng.
func RandomVehicle(g *OSMGraph, rng *rand.Rand, minSpeed, maxSpeed float64) (*Vehicle, error) {
	vertices := g.Vertices()
	if len(vertices) < 2 {
		return nil, ErrEmptyInput
	}

	for attempt := 0; attempt < routeAttempts; attempt++ {
		from := vertices[rng.Intn(len(vertices))].OSMID
		to := vertices[rng.Intn(len(vertices))].OSMID
		if from == to {
			continue
		}

		route, err := g.ShortestPath(from, to)
		if err != nil {
			continue
		}

		speed := minSpeed + rng.Float64()*(maxSpeed-minSpeed)
		return NewVehicleBuilder().
			WithSpeed(speed).
			WithPathIDs(route).
			Build()
	}

	return nil, ErrNoPath
}
