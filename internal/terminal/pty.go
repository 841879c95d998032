package terminal

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
)

// ShellSession is a local shell process attached to a pseudo-terminal.
type ShellSession struct {
	cmd  *exec.Cmd
	ptmx *os.File

	closeOnce sync.Once
	closeErr  error
}

// StartShell launches the given shell under a new PTY.
func StartShell(shell string) (*ShellSession, error) {
	cmd := exec.Command(shell)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("start shell %q: %w", shell, err)
	}

	return &ShellSession{cmd: cmd, ptmx: ptmx}, nil
}

// Read reads shell output from the PTY.
func (s *ShellSession) Read(p []byte) (int, error) {
	return s.ptmx.Read(p)
}

// Write sends keystrokes to the shell.
func (s *ShellSession) Write(p []byte) (int, error) {
	return s.ptmx.Write(p)
}

// Resize adjusts the PTY window size.
func (s *ShellSession) Resize(cols, rows uint) error {
	return pty.Setsize(s.ptmx, &pty.Winsize{
		Cols: uint16(cols),
		Rows: uint16(rows),
	})
}

// Close terminates the shell process and releases the PTY. Safe to call more
// than once.
func (s *ShellSession) Close() error {
	s.closeOnce.Do(func() {
		// Closing the PTY sends SIGHUP to the shell's process group; the
		// kill below covers shells that ignore it.
		s.closeErr = s.ptmx.Close()
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.cmd.Wait()
	})
	return s.closeErr
}
