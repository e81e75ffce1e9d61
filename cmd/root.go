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
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/dgad/InputParameters"
	"github.com/notargets/dgad/dg"
	"github.com/notargets/dgad/mesh"
	"github.com/notargets/dgad/parallel"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dgad",
	Short: "Discontinuous Galerkin residual and derivative assembly",
	Long: `
Assembles the discontinuous Galerkin residual of the Euler or the
convection-diffusion equations on a Cartesian forest, with its first
derivatives and dual weighted second derivatives computed by automatic
differentiation.

dgad residual -I case.yaml --dRdW`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch viper.GetString("profile") {
		case "cpu":
			stopper = profile.Start(profile.CPUProfile, profile.ProfilePath("."))
		case "mem":
			stopper = profile.Start(profile.MemProfile, profile.ProfilePath("."))
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopper != nil {
			stopper.Stop()
		}
	},
}

var stopper interface{ Stop() }

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dgad.yaml)")
	rootCmd.PersistentFlags().StringP("inputConditionsFile", "I", "", "YAML file of input parameters")
	rootCmd.PersistentFlags().IntP("ranks", "r", 0, "number of ranks, overrides the input file")
	rootCmd.PersistentFlags().IntP("threads", "t", 0, "threads per rank, overrides the input file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose assembly output")
	rootCmd.PersistentFlags().String("profile", "", "write a cpu or mem profile")
	for _, name := range []string{"inputConditionsFile", "ranks", "threads", "verbose", "profile"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".dgad" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".dgad")
	}

	viper.SetEnvPrefix("dgad")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

const exampleFile = `
########################################
Title: "Manufactured Euler"
Dimension: 2
PolynomialOrder: 2
Form: strong
Physics: euler
SecondOrderAD: radfad
Mesh:
  Cells: [4, 4]
  Lower: [0, 0]
  Upper: [1, 1]
  RefineLower: [0, 0]
  RefineUpper: [0.5, 0.5]
  Warp: 0.05
BCs:
  xmax: outflow
Ranks: 2
Threads: 2
########################################
`

// readInput loads the input file named by the flags or the config, then
// applies the command line overrides.
func readInput() (ip *InputParameters.InputParameters, err error) {
	ip = InputParameters.NewInputParameters()
	if file := viper.GetString("inputConditionsFile"); len(file) != 0 {
		var (
			path string
			data []byte
		)
		if path, err = homedir.Expand(file); err != nil {
			return
		}
		if data, err = os.ReadFile(path); err != nil {
			return
		}
		if err = ip.Parse(data); err != nil {
			return
		}
	} else {
		fmt.Printf("no input file (-I, --inputConditionsFile), running the default case\nExample File:%s\n",
			exampleFile)
	}
	if r := viper.GetInt("ranks"); r > 0 {
		ip.Ranks = r
	}
	if t := viper.GetInt("threads"); t > 0 {
		ip.Threads = t
	}
	if viper.GetBool("verbose") {
		ip.Verbose = true
	}
	err = ip.Validate()
	return
}

// runRanks builds the configured case on every rank and runs fn on each.
// The solution is the projected manufactured solution.
func runRanks(ip *InputParameters.InputParameters, fn func(d *dg.DG) error) error {
	return parallel.NewWorld(ip.Ranks).Run(func(c *parallel.Comm) (err error) {
		var (
			m *mesh.Mesh
			d *dg.DG
		)
		if m, err = ip.BuildMesh(); err != nil {
			return
		}
		if d, err = dg.NewDG(ip, m, c); err != nil {
			return
		}
		d.AllocateSystem()
		if err = d.InitializeManufacturedSolution(); err != nil {
			return
		}
		return fn(d)
	})
}
