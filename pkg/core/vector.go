// pkg/core/vector.go
package core

import "math"

// Vector3 is a position or vertex in millimetres.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Mag returns the distance from the origin.
func (v Vector3) Mag() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Perp returns the distance from the beam (Z) axis.
func (v Vector3) Perp() float64 {
	return math.Hypot(v.X, v.Y)
}

// FourVector is a particle momentum (px, py, pz) in GeV with its energy E.
type FourVector struct {
	Px float64 `json:"px"`
	Py float64 `json:"py"`
	Pz float64 `json:"pz"`
	E  float64 `json:"e"`
}

// P returns the magnitude of the three-momentum.
func (f FourVector) P() float64 {
	return math.Sqrt(f.Px*f.Px + f.Py*f.Py + f.Pz*f.Pz)
}

// Pt returns the transverse momentum.
func (f FourVector) Pt() float64 {
	return math.Hypot(f.Px, f.Py)
}

// Theta returns the polar angle of the momentum, 0 for a null vector.
func (f FourVector) Theta() float64 {
	if f.Px == 0 && f.Py == 0 && f.Pz == 0 {
		return 0
	}
	return math.Atan2(f.Pt(), f.Pz)
}

// Phi returns the azimuthal angle of the momentum, 0 for a null vector.
func (f FourVector) Phi() float64 {
	if f.Px == 0 && f.Py == 0 {
		return 0
	}
	return math.Atan2(f.Py, f.Px)
}

// Beta returns p/E. A particle with zero energy has beta 0.
func (f FourVector) Beta() float64 {
	if f.E == 0 {
		return 0
	}
	return f.P() / f.E
}

// Gamma returns the Lorentz factor 1/sqrt(1-beta²).
// Massless or superluminal inputs yield +Inf.
func (f FourVector) Gamma() float64 {
	b := f.Beta()
	if b >= 1 {
		return math.Inf(1)
	}
	return 1 / math.Sqrt(1-b*b)
}
