// Binary capi builds the imgal C interface as a c-shared library. The
// exported functions operate on caller-owned buffers, nothing allocated here
// crosses the boundary.
package main

//#include <stdint.h>
//
//#define IMGAL_OK 0
//#define IMGAL_ERR_INVALID_INPUT 1
import "C"

import (
	"unsafe"

	"github.com/elevans/imgal/pkg/integration"
	"github.com/elevans/imgal/pkg/parameter"
	"github.com/elevans/imgal/pkg/phasor"
	"github.com/elevans/imgal/pkg/simulation"
	"github.com/elevans/imgal/pkg/statistics"
)

func doubles(data *C.double, length C.size_t) []float64 {
	return unsafe.Slice((*float64)(unsafe.Pointer(data)), int(length))
}

//export ImgalOmega
func ImgalOmega(period C.double) C.double {
	return C.double(parameter.Omega(float64(period)))
}

//export ImgalAbbeDiffractionLimit
func ImgalAbbeDiffractionLimit(wavelength, na C.double) C.double {
	return C.double(parameter.AbbeDiffractionLimit(float64(wavelength), float64(na)))
}

//export ImgalSimpson
func ImgalSimpson(data *C.double, length C.size_t, deltaX C.double, result *C.double) C.int {
	value, err := integration.Simpson(doubles(data, length), float64(deltaX))
	if err != nil {
		return C.IMGAL_ERR_INVALID_INPUT
	}

	*result = C.double(value)
	return C.IMGAL_OK
}

//export ImgalCompositeSimpson
func ImgalCompositeSimpson(data *C.double, length C.size_t, deltaX C.double, result *C.double) C.int {
	value, err := integration.CompositeSimpson(doubles(data, length), float64(deltaX))
	if err != nil {
		return C.IMGAL_ERR_INVALID_INPUT
	}

	*result = C.double(value)
	return C.IMGAL_OK
}

//export ImgalPhasorTimeDomain
func ImgalPhasorTimeDomain(data *C.double, length C.size_t, period, harmonic, omega C.double, g, s *C.double) C.int {
	if length == 0 {
		return C.IMGAL_ERR_INVALID_INPUT
	}

	decay := doubles(data, length)
	*g = C.double(phasor.Real(decay, float64(period), float64(harmonic), float64(omega)))
	*s = C.double(phasor.Imaginary(decay, float64(period), float64(harmonic), float64(omega)))
	return C.IMGAL_OK
}

//export ImgalModulation
func ImgalModulation(g, s C.double) C.double {
	return C.double(phasor.Modulation(float64(g), float64(s)))
}

//export ImgalPhase
func ImgalPhase(g, s C.double) C.double {
	return C.double(phasor.Phase(float64(g), float64(s)))
}

//export ImgalMonoexponentialCoordinates
func ImgalMonoexponentialCoordinates(tau, omega C.double, g, s *C.double) {
	gv, sv := phasor.MonoexponentialCoordinates(float64(tau), float64(omega))
	*g = C.double(gv)
	*s = C.double(sv)
}

//export ImgalCalibrate
func ImgalCalibrate(g, s, modulation, phase C.double, outG, outS *C.double) {
	gv, sv := phasor.Calibrate(float64(g), float64(s), float64(modulation), float64(phase))
	*outG = C.double(gv)
	*outS = C.double(sv)
}

//export ImgalCalibrationValues
func ImgalCalibrationValues(g, s, tau, omega C.double, modulation, phase *C.double) {
	m, p := phasor.ModulationAndPhase(float64(g), float64(s), float64(tau), float64(omega))
	*modulation = C.double(m)
	*phase = C.double(p)
}

//export ImgalGaussianIRF
func ImgalGaussianIRF(out *C.double, bins C.size_t, timeRange, width, center C.double) C.int {
	if bins == 0 {
		return C.IMGAL_ERR_INVALID_INPUT
	}

	irf := simulation.GaussianIRF(int(bins), float64(timeRange), float64(width), float64(center))
	copy(doubles(out, bins), irf)
	return C.IMGAL_OK
}

//export ImgalIdealMonoexponential
func ImgalIdealMonoexponential(out *C.double, samples C.size_t, period, tau, intensity C.double) C.int {
	if samples == 0 {
		return C.IMGAL_ERR_INVALID_INPUT
	}

	decay := simulation.IdealMonoexponential(int(samples), float64(period), float64(tau), float64(intensity))
	copy(doubles(out, samples), decay)
	return C.IMGAL_OK
}

//export ImgalPoisson1D
func ImgalPoisson1D(data *C.double, length C.size_t, scale C.double, seed C.longlong) {
	simulation.Poisson1DMut(doubles(data, length), float64(scale), int64(seed))
}

//export ImgalSum
func ImgalSum(data *C.double, length C.size_t) C.double {
	return C.double(statistics.Sum(doubles(data, length)))
}

//export ImgalEffectiveSampleSize
func ImgalEffectiveSampleSize(weights *C.double, length C.size_t) C.double {
	return C.double(statistics.EffectiveSampleSize(doubles(weights, length)))
}

//export ImgalWeightedMergeSort
func ImgalWeightedMergeSort(data, weights *C.double, length C.size_t, inversions *C.double) C.int {
	value, err := statistics.WeightedMergeSort(doubles(data, length), doubles(weights, length))
	if err != nil {
		return C.IMGAL_ERR_INVALID_INPUT
	}

	*inversions = C.double(value)
	return C.IMGAL_OK
}

//export ImgalWeightedKendallTauB
func ImgalWeightedKendallTauB(dataA, dataB, weights *C.double, length C.size_t, tau *C.double) C.int {
	value, err := statistics.WeightedKendallTauB(doubles(dataA, length), doubles(dataB, length), doubles(weights, length))
	if err != nil {
		return C.IMGAL_ERR_INVALID_INPUT
	}

	*tau = C.double(value)
	return C.IMGAL_OK
}

func main() {}
