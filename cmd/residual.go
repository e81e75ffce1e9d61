/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/notargets/dgad/dg"
	"github.com/notargets/dgad/linalg"
	"github.com/notargets/dgad/physics"
	"github.com/notargets/dgad/utils"
)

// ResidualCmd represents the residual command
var ResidualCmd = &cobra.Command{
	Use:   "residual",
	Short: "Assemble the residual and its derivatives for the projected manufactured solution",
	Long: `
Builds the configured case, projects the manufactured solution and assembles
the residual with the requested derivatives, printing norms and sizes.

dgad residual -I case.yaml --dRdW --dRdX --d2R`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ra := &residualArgs{}
		ra.dRdW, _ = cmd.Flags().GetBool("dRdW")
		ra.dRdX, _ = cmd.Flags().GetBool("dRdX")
		ra.d2R, _ = cmd.Flags().GetBool("d2R")
		ra.massScale, _ = cmd.Flags().GetFloat64("massScale")
		ip, err := readInput()
		if err != nil {
			return
		}
		ip.Print()
		return runRanks(ip, ra.run)
	},
}

func init() {
	rootCmd.AddCommand(ResidualCmd)
	ResidualCmd.Flags().Bool("dRdW", false, "assemble dR/dW")
	ResidualCmd.Flags().Bool("dRdX", false, "assemble dR/dX")
	ResidualCmd.Flags().Bool("d2R", false, "assemble the dual weighted second derivatives")
	ResidualCmd.Flags().Float64("massScale", 0, "add the time scaled mass to dR/dW, pseudo CFL")
}

type residualArgs struct {
	dRdW, dRdX, d2R bool
	massScale       float64
}

func (ra *residualArgs) run(d *dg.DG) error {
	if ra.d2R {
		dual := d.Dual.Clone()
		lo, hi := dual.OwnedRange()
		for i := lo; i < hi; i++ {
			dual.Set(i, 1)
		}
		d.SetDual(dual)
	}
	start := time.Now()
	d.AssembleResidual(ra.dRdW, ra.dRdX, ra.d2R, ra.massScale)
	elapsed := time.Since(start)
	norm := d.GetResidualL2Norm()
	d.Comm.Printf("%d cells, %d dofs, assembled in %v\n", len(d.Mesh.ActiveCells()), d.NDofs(), elapsed)
	d.Comm.Printf("|R| = %12.6e\n", norm)
	for _, m := range []struct {
		name string
		want bool
		mat  *linalg.SparseMatrix
	}{
		{"dR/dW", ra.dRdW, d.SystemMatrix},
		{"dR/dX", ra.dRdX, d.DRdX},
		{"d2R/dWdW", ra.d2R, d.D2RdWdW},
		{"d2R/dXdX", ra.d2R, d.D2RdXdX},
		{"d2R/dWdX", ra.d2R, d.D2RdWdX},
	} {
		if !m.want {
			continue
		}
		var (
			nnz  = d.Comm.AllReduceSum(float64(m.mat.NNZ()))[0]
			frob = m.mat.FrobeniusNorm(d.Comm)
		)
		d.Comm.Printf("%-10s nnz %10d |.|_F = %12.6e\n", m.name, int(nnz), frob)
	}
	d.Comm.Printf("traversals %+v\n", d.Stats)
	if err := printFlowFunctions(d); err != nil {
		return err
	}
	d.Log.Verbosef("%s\n", utils.GetMemUsage())
	if utils.IsNan(norm) {
		return fmt.Errorf("residual is NaN on %d cells", len(d.Mesh.ActiveCells()))
	}
	return nil
}

// printFlowFunctions reports the free stream and the range of the derived
// flow quantities over the cells of an Euler solution.
func printFlowFunctions(d *dg.DG) error {
	fs := d.FreeStream()
	if fs == nil {
		return nil
	}
	d.Comm.Printf("free stream: Mach %8.5f, p %8.5f, q %8.5f, c %8.5f\n",
		fs.GetFlowFunction(fs.Qinf, physics.Mach), fs.Pinf, fs.QQinf, fs.Cinf)
	for _, pf := range []physics.FlowFunction{physics.Density, physics.Mach, physics.StaticPressure,
		physics.PressureCoefficient, physics.Velocity, physics.Enthalpy} {
		lo, hi, err := d.FlowFunctionRange(pf)
		if err != nil {
			return err
		}
		d.Comm.Printf("%-20s [%12.6e, %12.6e]\n", pf, lo, hi)
	}
	return nil
}
