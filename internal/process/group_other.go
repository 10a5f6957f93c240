//go:build !unix

package process

import "os/exec"

// configureProcessGroup keeps the os/exec default of killing the direct child.
func configureProcessGroup(cmd *exec.Cmd) {}
