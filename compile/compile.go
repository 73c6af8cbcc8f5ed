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

// Package compile drives the fixed pass pipeline (§5): lex, parse,
// identifier-resolve, loop-label, typecheck, tac, asm-gen,
// fix-instructions, emit. Grounded on the teacher's
// falcon/compile/compiler.go CompileTheWorld orchestration (temp-file
// lifecycle, host-toolchain shellouts via utils.ExecuteCmd), adapted from a
// package-graph-wide multi-stage build down to one source file per
// invocation.
package compile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"minic/arena"
	"minic/ast"
	"minic/compile/asmgen"
	"minic/compile/tac"
	"minic/sema"
	"minic/srcmap"
	"minic/utils"
)

// Stage names the pipeline stage a run should stop after. StageFull runs
// every stage, including the host assemble/link step.
type Stage int

const (
	StageFull Stage = iota
	StageLex
	StageParse
	StageValidate
	StageTacky
	StageCodegen
	StageAssembly
)

// Options configures one compilation (§6).
type Options struct {
	Stage  Stage
	Source string // path to the .c input
}

// Run executes the pipeline against Options.Source, stopping at Options.Stage.
// It returns an error on the first pipeline failure (§7); all error kinds
// carry their own caret-underlined source-span message and are returned
// as-is so the caller can print to stderr and set a non-zero exit code.
func Run(opts Options) error {
	if !strings.HasSuffix(opts.Source, ".c") {
		return fmt.Errorf("compile: input path %q does not end in .c", opts.Source)
	}
	base := strings.TrimSuffix(opts.Source, ".c")
	preprocessed := base + ".i"
	assembly := base + ".s"

	if err := preprocess(opts.Source, preprocessed); err != nil {
		return err
	}
	keepPreprocessed := opts.Stage != StageFull
	if !keepPreprocessed {
		defer os.Remove(preprocessed)
	}

	src, err := os.ReadFile(preprocessed)
	if err != nil {
		return fmt.Errorf("compile: reading preprocessed source: %w", err)
	}

	ar := arena.New()
	sm := srcmap.New(preprocessed, src)

	if opts.Stage == StageLex {
		ast.Dump(src)
		return nil
	}

	prog, err := ast.ParseProgram(src, sm, ar)
	if err != nil {
		return err
	}
	if opts.Stage == StageParse {
		return nil
	}

	if err := sema.Resolve(prog, ar, sm); err != nil {
		return err
	}
	if err := sema.LabelLoops(prog, ar, sm); err != nil {
		return err
	}
	symtab, err := sema.TypeCheck(prog, ar, sm)
	if err != nil {
		return err
	}
	if opts.Stage == StageValidate {
		return nil
	}

	tacProg := tac.Lower(prog, symtab, ar)
	if opts.Stage == StageTacky {
		return nil
	}

	asmProg := asmgen.GenProgram(tacProg, ar)
	if opts.Stage == StageCodegen {
		return nil
	}

	legalized := asmgen.LegalizeProgram(asmProg, ar)
	text := asmgen.Emit(legalized)
	if err := os.WriteFile(assembly, []byte(text), 0o644); err != nil {
		return fmt.Errorf("compile: writing assembly output: %w", err)
	}
	if opts.Stage == StageAssembly {
		return nil
	}
	defer os.Remove(assembly)

	output := base
	return assembleAndLink(assembly, output)
}

// preprocess runs the host C preprocessor (§6): `cpp -E -P <in> -o <out>`.
func preprocess(input, output string) error {
	wd := filepath.Dir(input)
	utils.ExecuteCmd(wd, "cpp", "-E", "-P", filepath.Base(input), "-o", filepath.Base(output))
	return nil
}

// assembleAndLink invokes the host assembler/linker (§6): `cc <in.s> -o <out>`.
func assembleAndLink(assembly, output string) error {
	wd := filepath.Dir(assembly)
	utils.ExecuteCmd(wd, "cc", filepath.Base(assembly), "-o", filepath.Base(output))
	return nil
}
