package physics

import (
	"fmt"
	"math"
)

type FlowFunction uint8

const (
	Density FlowFunction = iota
	Energy
	Mach
	StaticPressure
	DynamicPressure
	PressureCoefficient
	SoundSpeed
	Velocity
	Enthalpy
)

func (pm FlowFunction) String() string {
	strings := []string{
		"Density",
		"Energy",
		"Mach",
		"Static Pressure",
		"Dynamic Pressure",
		"Pressure Coefficient",
		"Sound Speed",
		"Velocity",
		"Enthalpy",
	}
	return strings[int(pm)]
}

// FreeStream is the uniform reference flow used by far field boundaries,
// nondimensionalized so the free stream density and sound speed are one.
type FreeStream struct {
	Gamma             float64
	Qinf              []float64
	Pinf, QQinf, Cinf float64
	Alpha             float64
}

func NewFreeStream(dim int, Minf, Gamma, Alpha float64) (fs *FreeStream) {
	var (
		ooggm1 = 1. / (Gamma * (Gamma - 1.))
		ns     = dim + 2
	)
	fs = &FreeStream{
		Gamma: Gamma,
		Qinf:  make([]float64, ns),
		Alpha: Alpha,
	}
	fs.Qinf[0] = 1
	fs.Qinf[1] = Minf * math.Cos(Alpha*math.Pi/180.)
	if dim > 1 {
		fs.Qinf[2] = Minf * math.Sin(Alpha*math.Pi/180.)
	}
	fs.Qinf[ns-1] = ooggm1 + 0.5*Minf*Minf
	fs.Pinf = fs.GetFlowFunction(fs.Qinf, StaticPressure)
	fs.QQinf = fs.GetFlowFunction(fs.Qinf, DynamicPressure)
	fs.Cinf = fs.GetFlowFunction(fs.Qinf, SoundSpeed)
	return
}

// GetFlowFunction evaluates a derived flow quantity from a conservative
// state.
func (fs *FreeStream) GetFlowFunction(Q []float64, pf FlowFunction) (f float64) {
	var (
		Gamma = fs.Gamma
		GM1   = Gamma - 1.
		ns    = len(Q)
		rho   = Q[0]
		E     = Q[ns-1]
		oorho = 1. / rho
		mm    float64
	)
	for _, m := range Q[1 : ns-1] {
		mm += m * m
	}
	var (
		q = 0.5 * mm * oorho
		p = GM1 * (E - q)
	)
	switch pf {
	case Density:
		f = rho
	case Energy:
		f = E
	case StaticPressure:
		f = p
	case DynamicPressure:
		f = q
	case PressureCoefficient:
		f = -(p - fs.Pinf) / fs.QQinf
	case SoundSpeed:
		f = math.Sqrt(math.Abs(Gamma * p * oorho))
	case Velocity:
		f = math.Sqrt(mm) * oorho
	case Mach:
		C := math.Sqrt(math.Abs(Gamma * p * oorho))
		f = math.Sqrt(mm) * oorho / C
	case Enthalpy:
		f = (E + p) / rho
	default:
		panic(fmt.Sprintf("unknown flow function %d", pf))
	}
	return
}
