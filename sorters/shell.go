package sorters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ErrScriptFailed reports a non-zero exit from an external sorter script.
var ErrScriptFailed = errors.New("sorters: script exited with non-zero status")

// ShellScript runs an external sorter command line with its combined
// output teed into <Dir>/<Name>.log, the file the runner scrapes into
// the run log's runtime_trace.
type ShellScript struct {
	// Dir is where the script and its log file are written, normally
	// the sorter output folder.
	Dir string

	// Name is the base name for the script and log files.
	Name string

	// Content is the script body. A shebang is not required; the script
	// runs under /bin/sh.
	Content string
}

// LogPath returns where the script's output lands.
func (s *ShellScript) LogPath() string {
	return filepath.Join(s.Dir, s.Name+".log")
}

// Run writes the script, executes it, and waits for it to finish.
// Cancelling the context kills the process. A non-zero exit comes back
// as ErrScriptFailed carrying the exit code.
func (s *ShellScript) Run(ctx context.Context) error {
	scriptPath := filepath.Join(s.Dir, s.Name+".sh")
	if err := os.WriteFile(scriptPath, []byte(s.Content), 0o755); err != nil {
		return fmt.Errorf("sorters: write script: %w", err)
	}

	logOut, err := os.Create(s.LogPath())
	if err != nil {
		return fmt.Errorf("sorters: create script log: %w", err)
	}
	defer logOut.Close()

	cmd := exec.CommandContext(ctx, "/bin/sh", scriptPath)
	cmd.Dir = s.Dir
	cmd.Stdout = logOut
	cmd.Stderr = logOut

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("sorters: script cancelled: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %d (see %s)", ErrScriptFailed, exitErr.ExitCode(), s.LogPath())
		}
		return fmt.Errorf("sorters: run script: %w", err)
	}
	return nil
}

// CheckCompiledBinary reports whether an executable with the given name
// is reachable on PATH, the probe used for compiled sorter builds.
func CheckCompiledBinary(name string) bool {
	if name == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
