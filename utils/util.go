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
package utils

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
)

// Assert panics with a formatted message when cond is false. Used for
// internal consistency checks a well-formed compilation should never trip.
func Assert(cond bool, format string, msg ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, msg...))
	}
}

// Any reports whether c equals any of cs.
func Any[T comparable](c T, cs ...T) bool {
	for _, cc := range cs {
		if c == cc {
			return true
		}
	}
	return false
}

func Unimplement(what string) {
	panic("not implemented yet: " + what)
}

func ShouldNotReachHere() {
	panic("should not reach here")
}

func Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Fatal reports a user-facing compiler error and aborts the process; all
// errors in this compiler are fatal-on-first (§7).
func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

func CommandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// ExecuteCmd runs a subprocess to completion, capturing stdout/stderr, and
// exits the process on failure. Used to delegate to the host `cpp` and `cc`.
func ExecuteCmd(workDir string, args ...string) string {
	if !CommandExists(args[0]) {
		fmt.Fprintf(os.Stderr, "warning: cannot find %v on PATH\n", args[0])
	}
	cmd := exec.Command(args[0], args[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = workDir

	err := cmd.Run()
	outStr, errStr := stdout.String(), stderr.String()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cmd.Run: %s failed: %s\n", args[0], err)
		fmt.Fprintf(os.Stderr, "out:\n%s\nerr:\n%s\ncmd: %v\n\n", outStr, errStr, args)
		os.Exit(1)
	}
	return outStr
}

// Align16 rounds n up to the next multiple of 16, matching the System V
// AMD64 stack-alignment requirement before `call`.
func Align16(n int) int {
	return (n + 15) &^ 15
}
