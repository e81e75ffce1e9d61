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
	"math"

	"github.com/spf13/cobra"

	"github.com/notargets/dgad/dg"
	"github.com/notargets/dgad/linalg"
)

// CheckCmd represents the check command
var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare the AD derivatives against central finite differences",
	Long: `
Assembles dR/dW and dR/dX by automatic differentiation and by central finite
differences of the residual, and reports the largest relative difference.
Two residual evaluations are made per unknown, use small cases.

dgad check -I case.yaml --eps 1.e-6 --tol 1.e-5`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var eps, tol float64
		eps, _ = cmd.Flags().GetFloat64("eps")
		tol, _ = cmd.Flags().GetFloat64("tol")
		ip, err := readInput()
		if err != nil {
			return
		}
		ip.Print()
		return runRanks(ip, func(d *dg.DG) error {
			fdW := d.GetDRdWFiniteDifferences(eps)
			fdX := d.GetDRdXFiniteDifferences(eps)
			d.AssembleResidual(true, true, false, 0)
			var failed bool
			for _, c := range []struct {
				name   string
				ad, fd *linalg.SparseMatrix
			}{
				{"dR/dW", d.SystemMatrix, fdW},
				{"dR/dX", d.DRdX, fdX},
			} {
				diff := d.Comm.AllReduceMax(maxRelativeDifference(c.ad, c.fd))
				d.Comm.Printf("%-6s max relative difference %12.6e\n", c.name, diff)
				failed = failed || !(diff <= tol)
			}
			if failed {
				return fmt.Errorf("AD and finite differences differ by more than %g", tol)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(CheckCmd)
	CheckCmd.Flags().Float64("eps", 1.e-6, "finite difference step")
	CheckCmd.Flags().Float64("tol", 1.e-5, "largest accepted relative difference")
}

// maxRelativeDifference over the owned entries of ad, relative to max(1,|ad|).
func maxRelativeDifference(ad, fd *linalg.SparseMatrix) (diff float64) {
	ad.Each(func(i, j int, v float64) {
		diff = math.Max(diff, math.Abs(v-fd.At(i, j))/math.Max(1, math.Abs(v)))
	})
	return
}
