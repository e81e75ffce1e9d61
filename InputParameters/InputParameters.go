package InputParameters

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ghodss/yaml"

	"github.com/notargets/dgad/mesh"
	"github.com/notargets/dgad/numflux"
	"github.com/notargets/dgad/physics"
	"github.com/notargets/dgad/types"
)

var ErrInvalidParameter = errors.New("InputParameters: invalid parameter")

type ManufacturedInput struct {
	Amplitude []float64 `json:"Amplitude"`
	Offset    []float64 `json:"Offset"`
	Frequency float64   `json:"Frequency"`
}

type MeshInput struct {
	Cells        []int     `json:"Cells"`
	Lower        []float64 `json:"Lower"`
	Upper        []float64 `json:"Upper"`
	RefineLevels int       `json:"RefineLevels"` // Global refinements after construction
	RefineLower  []float64 `json:"RefineLower"`  // Optional box refined once more
	RefineUpper  []float64 `json:"RefineUpper"`
	Warp         float64   `json:"Warp"` // Amplitude of the sinusoidal interior warp
}

// Parameters obtained from the YAML input file
type InputParameters struct {
	Title              string             `json:"Title"`
	Dimension          int                `json:"Dimension"`
	PolynomialOrder    int                `json:"PolynomialOrder"`
	Overintegration    int                `json:"Overintegration"`
	Form               string             `json:"Form"`
	Physics            string             `json:"Physics"`
	ConvectiveFlux     string             `json:"ConvectiveFlux"`
	DissipativeFlux    string             `json:"DissipativeFlux"`
	SecondOrderAD      string             `json:"SecondOrderAD"`
	Gamma              float64            `json:"Gamma"`
	Minf               float64            `json:"Mach"`
	Alpha              float64            `json:"Alpha"`
	Advection          []float64          `json:"Advection"`
	Diffusion          float64            `json:"Diffusion"`
	Manufactured       *ManufacturedInput `json:"Manufactured"`
	ManufacturedSource bool               `json:"ManufacturedSource"`
	CFL                float64            `json:"CFL"`
	ExactTimeStepping  bool               `json:"ExactTimeStepping"`
	Mesh               MeshInput          `json:"Mesh"`
	Ranks              int                `json:"Ranks"`
	Threads            int                `json:"Threads"`
	BCs                map[string]string  `json:"BCs"` // Face tag to boundary condition name
	Verbose            bool               `json:"Verbose"`
}

func NewInputParameters() (ip *InputParameters) {
	ip = &InputParameters{
		Title:              "dgad",
		Dimension:          2,
		PolynomialOrder:    1,
		Form:               "weak",
		Physics:            "euler",
		ConvectiveFlux:     "lax",
		DissipativeFlux:    "sipg",
		SecondOrderAD:      "radfad",
		Gamma:              1.4,
		Minf:               0.5,
		ManufacturedSource: true,
		CFL:                0.5,
		Ranks:              1,
		Threads:            1,
		Mesh: MeshInput{
			Cells: []int{4, 4, 4},
			Lower: []float64{0, 0, 0},
			Upper: []float64{1, 1, 1},
		},
	}
	return
}

// Parse overlays the YAML document on the current values.
func (ip *InputParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return fmt.Errorf("parsing input parameters: %w", err)
	}
	return ip.Validate()
}

func (ip *InputParameters) Validate() (err error) {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
	}
	switch {
	case ip.Dimension < 1 || ip.Dimension > 3:
		return invalid("Dimension %d", ip.Dimension)
	case ip.PolynomialOrder < 0:
		return invalid("PolynomialOrder %d", ip.PolynomialOrder)
	case ip.Overintegration < 0:
		return invalid("Overintegration %d", ip.Overintegration)
	case ip.Ranks < 1 || ip.Threads < 1:
		return invalid("Ranks %d, Threads %d", ip.Ranks, ip.Threads)
	case ip.CFL <= 0:
		return invalid("CFL %g", ip.CFL)
	case len(ip.Mesh.Cells) < ip.Dimension || len(ip.Mesh.Lower) < ip.Dimension ||
		len(ip.Mesh.Upper) < ip.Dimension:
		return invalid("Mesh needs %d entries per axis", ip.Dimension)
	case ip.Mesh.RefineLevels < 0:
		return invalid("RefineLevels %d", ip.Mesh.RefineLevels)
	}
	if _, err = physics.NewPDEType(strings.ToLower(ip.Physics)); err != nil {
		return
	}
	if _, err = numflux.NewFluxType(ip.ConvectiveFlux); err != nil {
		return
	}
	if _, err = numflux.NewDissipativeType(ip.DissipativeFlux); err != nil {
		return
	}
	for tag, name := range ip.BCs {
		if types.FaceTagIndex(tag) < 0 {
			return invalid("boundary tag %q", tag)
		}
		if types.NewBCTAG(name).GetFLAG() == types.BC_None {
			return invalid("boundary condition %q for %s", name, tag)
		}
	}
	return
}

// PhysicsParameters translates the input into the physics configuration.
func (ip *InputParameters) PhysicsParameters() (p physics.Parameters, err error) {
	var pt physics.PDEType
	if pt, err = physics.NewPDEType(strings.ToLower(ip.Physics)); err != nil {
		return
	}
	p = physics.Parameters{
		Type:      pt,
		Dim:       ip.Dimension,
		Gamma:     ip.Gamma,
		Minf:      ip.Minf,
		Alpha:     ip.Alpha,
		Advection: ip.Advection,
		Diffusion: ip.Diffusion,
		UseSource: ip.ManufacturedSource,
	}
	p.Manufactured = physics.DefaultManufactured(pt, ip.Dimension)
	if mi := ip.Manufactured; mi != nil {
		if len(mi.Offset) != 0 {
			p.Manufactured.Offset = mi.Offset
		}
		if len(mi.Amplitude) != 0 {
			p.Manufactured.Amplitude = mi.Amplitude
		}
		if mi.Frequency != 0 {
			p.Manufactured.Frequency = mi.Frequency
		}
	}
	if len(p.Manufactured.Offset) != p.NState() || len(p.Manufactured.Amplitude) != p.NState() {
		err = fmt.Errorf("%w: manufactured solution needs %d states", ErrInvalidParameter, p.NState())
	}
	return
}

// BoundaryConditions returns the condition on each boundary face of the box,
// indexed by face number. Unlisted faces are Dirichlet.
func (ip *InputParameters) BoundaryConditions() (bcs []types.BCFLAG) {
	bcs = make([]types.BCFLAG, 2*ip.Dimension)
	for f := range bcs {
		bcs[f] = types.BC_Dirichlet
	}
	for tag, name := range ip.BCs {
		if f := types.FaceTagIndex(tag); f >= 0 && f < len(bcs) {
			bcs[f] = types.NewBCTAG(name).GetFLAG()
		}
	}
	return
}

// BuildMesh constructs, refines, warps and partitions the configured mesh.
func (ip *InputParameters) BuildMesh() (m *mesh.Mesh, err error) {
	mi := ip.Mesh
	if m, err = mesh.NewCartesian(ip.Dimension, mi.Cells, mi.Lower, mi.Upper); err != nil {
		return
	}
	for l := 0; l < mi.RefineLevels; l++ {
		if err = m.RefineGlobal(); err != nil {
			return
		}
	}
	if len(mi.RefineLower) >= ip.Dimension && len(mi.RefineUpper) >= ip.Dimension {
		if err = m.RefineBox(mi.RefineLower, mi.RefineUpper); err != nil {
			return
		}
	}
	if mi.Warp != 0 {
		m.Warp(SineWarp(ip.Dimension, mi.Warp, mi.Lower, mi.Upper))
	}
	m.Partition(ip.Ranks)
	return
}

// SineWarp displaces interior points by eps*prod_k sin(pi*s_k) along every
// axis, with s the position scaled to [0,1]. The box boundary stays fixed.
func SineWarp(dim int, eps float64, lower, upper []float64) func(x []float64) {
	return func(x []float64) {
		bump := eps
		for k := 0; k < dim; k++ {
			s := (x[k] - lower[k]) / (upper[k] - lower[k])
			bump *= math.Sin(math.Pi * s)
		}
		for d := 0; d < dim; d++ {
			x[d] += bump * (upper[d] - lower[d])
		}
	}
}

func (ip *InputParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%d]\t\t\t\t= Dimension\n", ip.Dimension)
	fmt.Printf("[%d]\t\t\t\t= Polynomial Order\n", ip.PolynomialOrder)
	fmt.Printf("[%d]\t\t\t\t= Overintegration\n", ip.Overintegration)
	fmt.Printf("[%s]\t\t\t= Form\n", ip.Form)
	fmt.Printf("[%s]\t\t\t= Physics\n", ip.Physics)
	fmt.Printf("[%s]\t\t\t= Convective Flux\n", ip.ConvectiveFlux)
	fmt.Printf("[%s]\t\t\t= Dissipative Flux\n", ip.DissipativeFlux)
	fmt.Printf("[%s]\t\t\t= Second Order AD\n", ip.SecondOrderAD)
	fmt.Printf("%8.5f\t\t= Gamma\n", ip.Gamma)
	fmt.Printf("%8.5f\t\t= Mach\n", ip.Minf)
	fmt.Printf("%8.5f\t\t= Alpha\n", ip.Alpha)
	fmt.Printf("%8.5f\t\t= Diffusion\n", ip.Diffusion)
	fmt.Printf("%8.5f\t\t= CFL\n", ip.CFL)
	fmt.Printf("%v\t\t\t= Exact Time Stepping\n", ip.ExactTimeStepping)
	fmt.Printf("%v x %d levels\t\t= Mesh\n", ip.Mesh.Cells[:ip.Dimension], ip.Mesh.RefineLevels)
	fmt.Printf("[%d]\t\t\t\t= Ranks\n", ip.Ranks)
	fmt.Printf("[%d]\t\t\t\t= Threads\n", ip.Threads)
	keys := make([]string, len(ip.BCs))
	i := 0
	for k := range ip.BCs {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("BCs[%s] = %v\n", key, ip.BCs[key])
	}
}
