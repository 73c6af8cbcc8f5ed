// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package cmd wires the stage flags (§6) onto a cobra command, grounded on
// ajroetker-goat's main.go single-command-with-flags pattern.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"minic/compile"
)

var (
	lexOnly      bool
	parseOnly    bool
	validateOnly bool
	tackyOnly    bool
	codegenOnly  bool
	assemblyOnly bool
)

var rootCmd = &cobra.Command{
	Use:   "minic <path.c>",
	Short: "A compiler for a C subset, targeting x86-64 System V AT&T assembly",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		stage, err := resolveStage()
		if err != nil {
			return err
		}
		return compile.Run(compile.Options{Stage: stage, Source: args[0]})
	},
}

// resolveStage maps the mutually exclusive stage flags (§6) onto a
// compile.Stage, rejecting more than one being set at once.
func resolveStage() (compile.Stage, error) {
	set := 0
	stage := compile.StageFull
	check := func(flag bool, s compile.Stage) {
		if flag {
			set++
			stage = s
		}
	}
	check(lexOnly, compile.StageLex)
	check(parseOnly, compile.StageParse)
	check(validateOnly, compile.StageValidate)
	check(tackyOnly, compile.StageTacky)
	check(codegenOnly, compile.StageCodegen)
	check(assemblyOnly, compile.StageAssembly)
	if set > 1 {
		return stage, fmt.Errorf("at most one stage flag may be given")
	}
	return stage, nil
}

func init() {
	rootCmd.Flags().BoolVar(&lexOnly, "lex", false, "stop after lexing")
	rootCmd.Flags().BoolVar(&parseOnly, "parse", false, "stop after parsing")
	rootCmd.Flags().BoolVar(&validateOnly, "validate", false, "stop after semantic analysis")
	rootCmd.Flags().BoolVar(&tackyOnly, "tacky", false, "stop after TAC lowering")
	rootCmd.Flags().BoolVar(&codegenOnly, "codegen", false, "stop after assembly-AST generation")
	rootCmd.Flags().BoolVar(&assemblyOnly, "assembly", false, "stop after writing the .s file")
}

// Execute runs the root command and reports the process exit code (§7):
// every pipeline failure is fatal and reported on stderr.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
