//go:build !unix

package spotdl

import "os/exec"

func killGroup(*exec.Cmd) {}
