package structure

import (
	"errors"
	"fmt"
)

const DefaultPadding = 10.0

// ErrEmptyInput is returned by geometry helpers given no atoms.
var ErrEmptyInput = errors.New("no atoms")

type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Point3) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", p.X, p.Y, p.Z)
}

// Box3 holds the edge lengths of an axis-aligned search box.
type Box3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (b Box3) String() string {
	return fmt.Sprintf("%.3f x %.3f x %.3f", b.X, b.Y, b.Z)
}

var (
	DefaultCenter = Point3{}
	DefaultBox    = Box3{X: 20, Y: 20, Z: 20}
)

func Center(atoms []Point3) (Point3, error) {
	if len(atoms) == 0 {
		return Point3{}, ErrEmptyInput
	}
	var sum Point3
	for _, a := range atoms {
		sum.X += a.X
		sum.Y += a.Y
		sum.Z += a.Z
	}
	n := float64(len(atoms))
	return Point3{X: sum.X / n, Y: sum.Y / n, Z: sum.Z / n}, nil
}

// BoundingBox returns the per-axis extent of atoms plus padding on each side.
func BoundingBox(atoms []Point3, padding float64) (Box3, error) {
	if len(atoms) == 0 {
		return Box3{}, ErrEmptyInput
	}
	lo, hi := atoms[0], atoms[0]
	for _, a := range atoms[1:] {
		lo.X, hi.X = min(lo.X, a.X), max(hi.X, a.X)
		lo.Y, hi.Y = min(lo.Y, a.Y), max(hi.Y, a.Y)
		lo.Z, hi.Z = min(lo.Z, a.Z), max(hi.Z, a.Z)
	}
	return Box3{
		X: hi.X - lo.X + 2*padding,
		Y: hi.Y - lo.Y + 2*padding,
		Z: hi.Z - lo.Z + 2*padding,
	}, nil
}

func CenterOrDefault(atoms []Point3) Point3 {
	c, err := Center(atoms)
	if err != nil {
		return DefaultCenter
	}
	return c
}

// BoundingBoxOrDefault returns DefaultBox when atoms cannot span a box,
// that is for empty or single-atom input.
func BoundingBoxOrDefault(atoms []Point3, padding float64) Box3 {
	if len(atoms) < 2 {
		return DefaultBox
	}
	b, err := BoundingBox(atoms, padding)
	if err != nil {
		return DefaultBox
	}
	return b
}

// SearchSpace derives the docking box for atoms, reporting whether the
// default box had to be used. A single atom keeps its own position as the
// center.
func SearchSpace(atoms []Point3, padding float64) (Point3, Box3, bool) {
	return CenterOrDefault(atoms), BoundingBoxOrDefault(atoms, padding), len(atoms) < 2
}
