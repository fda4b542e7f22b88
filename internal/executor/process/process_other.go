//go:build !unix

package process

import "os/exec"

// killGroupOnCancel leaves exec.CommandContext's default of killing only
// the interpreter itself.
func killGroupOnCancel(*exec.Cmd) {}
