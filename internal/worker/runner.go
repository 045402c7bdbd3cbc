package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"
	"sync"

	"upkeep/internal/jobqueue"
	"upkeep/internal/ops"
)

// Runner executes one operation and forwards captured output lines. The
// returned exit status is the command's; err is reserved for failures to
// run the command at all.
type Runner interface {
	Run(ctx context.Context, def ops.Definition, onLine func(streamTag, text string)) (int, error)
}

// ScriptRunner runs operations by invoking the configured maintenance
// script with the operation's argument list.
type ScriptRunner struct {
	Script string
}

// Run executes the maintenance script for the operation. Output from
// both streams is scrubbed and forwarded line by line.
func (r *ScriptRunner) Run(ctx context.Context, def ops.Definition, onLine func(streamTag, text string)) (int, error) {
	if _, err := os.Stat(r.Script); err != nil {
		return -1, fmt.Errorf("maintenance script %s: %w", r.Script, err)
	}

	args := append([]string{}, def.Args...)
	cmd := exec.CommandContext(ctx, r.Script, args...) //nolint:gosec
	cmd.Dir = filepath.Dir(r.Script)
	cmd.Env = daemonEnvironment(r.Script)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, streamTag string) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(streamTag, ScrubLine(scanner.Text()))
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout, jobqueue.StreamStdout)
	go scan(stderr, jobqueue.StreamStderr)
	wg.Wait()

	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return -1, fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("wait command: %w", err)
	}
	return 0, nil
}

// daemonEnvironment builds the environment the maintenance script runs
// under. Interactive prompts must never block the daemon, terminal
// width detection must not truncate output, and user-context operations
// need the console user's identity even though the process runs as root.
func daemonEnvironment(script string) []string {
	env := os.Environ()
	env = append(env,
		"UPKEEP_DAEMON=1",
		"MAINTAIN_SH="+script,
		"SUDO_ASKPASS=/usr/bin/false",
		"COLUMNS=999",
		"LINES=999",
	)

	name, home := consoleUser()
	if name == "" {
		name, home = "root", "/var/root"
	}
	env = append(env,
		"ACTUAL_USER="+name,
		"ACTUAL_HOME="+home,
		"SUDO_USER="+name,
	)
	return env
}

// consoleUser detects the user logged into the console via who(1).
// Returns empty strings when no console session exists.
func consoleUser() (string, string) {
	out, err := exec.Command("who").Output()
	if err != nil {
		return "", ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[1] != "console" {
			continue
		}
		name := fields[0]
		u, err := user.Lookup(name)
		if err != nil {
			return "", ""
		}
		return name, u.HomeDir
	}
	return "", ""
}
