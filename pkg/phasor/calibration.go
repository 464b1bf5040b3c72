package phasor

import "math"

// Calibrate rotates and scales a phasor coordinate pair by the given
// modulation (M) and phase (φ) calibration values:
//
//	g = M * cos(φ)
//	s = M * sin(φ)
//	G' = G*g - S*s
//	S' = G*s + S*g
func Calibrate(g, s, modulation, phase float64) (float64, float64) {
	gTrans := modulation * math.Cos(phase)
	sTrans := modulation * math.Sin(phase)
	return g*gTrans - s*sTrans, g*sTrans + s*gTrans
}

// CalibrateImage returns a new phasor image with every (G, S) pair rotated
// and scaled by the given modulation and phase. The input is laid out as
// gs[row][col][2] and is not mutated.
func CalibrateImage(gs [][][]float64, modulation, phase float64) [][][]float64 {
	gTrans := modulation * math.Cos(phase)
	sTrans := modulation * math.Sin(phase)

	out := make([][][]float64, len(gs))
	for r := range gs {
		out[r] = make([][]float64, len(gs[r]))
		for c := range gs[r] {
			g, s := gs[r][c][0], gs[r][c][1]
			out[r][c] = []float64{g*gTrans - s*sTrans, g*sTrans + s*gTrans}
		}
	}
	return out
}

// CalibrateImageInPlace rotates and scales every (G, S) pair of a phasor
// image in place.
func CalibrateImageInPlace(gs [][][]float64, modulation, phase float64) {
	gTrans := modulation * math.Cos(phase)
	sTrans := modulation * math.Sin(phase)

	for r := range gs {
		for c := range gs[r] {
			g, s := gs[r][c][0], gs[r][c][1]
			gs[r][c][0] = g*gTrans - s*sTrans
			gs[r][c][1] = g*sTrans + s*gTrans
		}
	}
}

// ModulationAndPhase derives the modulation and phase values that calibrate a
// measured coordinate pair against the theoretical monoexponential point for
// the given lifetime tau and angular frequency omega.
func ModulationAndPhase(g, s, tau, omega float64) (float64, float64) {
	calG, calS := MonoexponentialCoordinates(tau, omega)
	calMod := Modulation(calG, calS)
	calPhs := Phase(calG, calS)

	dataMod := Modulation(g, s)
	dataPhs := Phase(g, s)

	return calMod / dataMod, calPhs - dataPhs
}
