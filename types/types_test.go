package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypes(t *testing.T) {
	{
		tokens := []string{"WALL", "Far-inlet", "Dirichlet", "Wall-22", "Wall-top", "Neuman-10", "bogus"}
		flags := []BCFLAG{BC_Wall, BC_Far, BC_Dirichlet, BC_Wall, BC_Wall, BC_Neuman, BC_None}
		labels := []string{"", "inlet", "", "22", "top", "10", ""}
		for i, token := range tokens {
			bt := NewBCTAG(token)
			assert.Equal(t, flags[i], bt.GetFLAG())
			assert.Equal(t, labels[i], bt.GetLabel())
		}
	}
	{
		assert.Equal(t, "BC_Far", BC_Far.String())
		assert.Equal(t, "BCFLAG(42)", BCFLAG(42).String())
		assert.Equal(t, 3, FaceTagIndex("YMAX"))
		assert.Equal(t, -1, FaceTagIndex("top"))
	}
}
