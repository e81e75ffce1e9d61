package types

import (
	"fmt"
	"strings"
)

type BCFLAG uint8

const (
	BC_None BCFLAG = iota
	BC_In
	BC_Dirichlet
	BC_Slip
	BC_Far
	BC_Wall
	BC_Neuman
	BC_Out
)

var bcNames = []string{"BC_None", "BC_In", "BC_Dirichlet", "BC_Slip", "BC_Far", "BC_Wall", "BC_Neuman", "BC_Out"}

func (bf BCFLAG) String() string {
	if int(bf) < len(bcNames) {
		return bcNames[bf]
	}
	return fmt.Sprintf("BCFLAG(%d)", uint8(bf))
}

var BCNameMap = map[string]BCFLAG{
	"inflow":    BC_In,
	"in":        BC_In,
	"out":       BC_Out,
	"outflow":   BC_Out,
	"wall":      BC_Wall,
	"far":       BC_Far,
	"dirichlet": BC_Dirichlet,
	"neuman":    BC_Neuman,
	"slip":      BC_Slip,
}

// BCTAG is a boundary condition name with an optional label, e.g. "Wall-top"
type BCTAG string

func NewBCTAG(token string) BCTAG {
	return BCTAG(strings.TrimSpace(token))
}

func (bt BCTAG) parts() (name, label string) {
	name, label, _ = strings.Cut(string(bt), "-")
	return strings.ToLower(name), label
}

// GetFLAG returns BC_None for an unknown name.
func (bt BCTAG) GetFLAG() BCFLAG {
	name, _ := bt.parts()
	return BCNameMap[name]
}

func (bt BCTAG) GetLabel() (label string) {
	_, label = bt.parts()
	return
}

// FaceTags names the boundary faces of the box domain, indexed by reference
// face number 2*axis+side.
var FaceTags = []string{"xmin", "xmax", "ymin", "ymax", "zmin", "zmax"}

// FaceTagIndex returns the face number for a tag name or -1.
func FaceTagIndex(tag string) int {
	for i, name := range FaceTags {
		if strings.EqualFold(name, tag) {
			return i
		}
	}
	return -1
}
