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
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/notargets/dgad/InputParameters"
	"github.com/notargets/dgad/dg"
)

// ConvergenceCmd represents the convergence command
var ConvergenceCmd = &cobra.Command{
	Use:   "convergence",
	Short: "Residual of the projected manufactured solution under mesh refinement",
	Long: `
Refines the configured mesh globally and prints, per level, the L2 norm of
the residual of the projected manufactured solution and its observed order
as CSV. The output is read by tools/convOrder.

dgad convergence -I case.yaml --levels 4 --orders 1,2 -o study.csv`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			levels int
			orders []int
			out    string
			w      io.Writer = os.Stdout
		)
		levels, _ = cmd.Flags().GetInt("levels")
		orders, _ = cmd.Flags().GetIntSlice("orders")
		out, _ = cmd.Flags().GetString("output")
		ip, err := readInput()
		if err != nil {
			return
		}
		if len(out) != 0 {
			var f *os.File
			if out, err = homedir.Expand(out); err != nil {
				return
			}
			if f, err = os.Create(out); err != nil {
				return
			}
			defer f.Close()
			w = f
		}
		var study []ConvergencePoint
		if study, err = RunConvergence(ip, orders, levels); err != nil {
			return
		}
		return WriteConvergence(w, study)
	},
}

func init() {
	rootCmd.AddCommand(ConvergenceCmd)
	ConvergenceCmd.Flags().IntP("levels", "l", 3, "number of meshes, each refined once more")
	ConvergenceCmd.Flags().IntSlice("orders", []int{1, 2}, "polynomial orders to study")
	ConvergenceCmd.Flags().StringP("output", "o", "", "CSV file, default stdout")
}

type ConvergencePoint struct {
	Title    string
	Cells    int
	Order    int
	H        float64
	Residual float64
	Rate     float64 // NaN on the coarsest mesh
}

// RunConvergence assembles the residual of the projected manufactured
// solution for each order on levels successively refined meshes.
func RunConvergence(base *InputParameters.InputParameters, orders []int, levels int) (study []ConvergencePoint, err error) {
	for _, p := range orders {
		prev := math.NaN()
		for l := 0; l < levels; l++ {
			ip := *base
			ip.PolynomialOrder = p
			ip.Mesh.RefineLevels = base.Mesh.RefineLevels + l
			var (
				norm  float64
				cells int
			)
			err = runRanks(&ip, func(d *dg.DG) error {
				d.AssembleResidual(false, false, false, 0)
				n := d.GetResidualL2Norm()
				if d.Comm.Rank == 0 {
					norm, cells = n, len(d.Mesh.ActiveCells())
				}
				return nil
			})
			if err != nil {
				return
			}
			h := (ip.Mesh.Upper[0] - ip.Mesh.Lower[0]) /
				float64(ip.Mesh.Cells[0]<<ip.Mesh.RefineLevels)
			study = append(study, ConvergencePoint{
				Title:    ip.Title,
				Cells:    cells,
				Order:    p,
				H:        h,
				Residual: norm,
				Rate:     math.Log2(prev / norm),
			})
			prev = norm
		}
	}
	return
}

// WriteConvergence writes the study as CSV with a header line.
func WriteConvergence(w io.Writer, study []ConvergencePoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Title", "Cells", "Order", "H", "Residual", "Rate"}); err != nil {
		return err
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'g', 8, 64) }
	for _, pt := range study {
		rec := []string{pt.Title, strconv.Itoa(pt.Cells), strconv.Itoa(pt.Order), ff(pt.H), ff(pt.Residual),
			ff(pt.Rate)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing convergence study: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
