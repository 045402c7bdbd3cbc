package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"upkeep/internal/config"
	"upkeep/internal/daemon"
	"upkeep/internal/ipc"
	"upkeep/internal/jobqueue"
	"upkeep/internal/logging"
	"upkeep/internal/ops"
	"upkeep/internal/testsupport"
	"upkeep/internal/worker"
)

type echoRunner struct{}

func (echoRunner) Run(ctx context.Context, def ops.Definition, onLine func(streamTag, text string)) (int, error) {
	onLine(jobqueue.StreamStdout, "running "+def.ID)
	return 0, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(filepath.Dir(cfg.Paths.QueueDir), "config.toml")
	writeTestConfig(t, configPath, cfg)

	logger := logging.NewNop()
	d, err := daemon.New(cfg, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	srv, err := ipc.NewServer(ctx, cfg, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			cancel()
			d.Close()
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	w := worker.New(cfg, d.Store(), ops.NewRegistry(), echoRunner{}, logger)
	go func() { _ = w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	time.Sleep(50 * time.Millisecond)
	return &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		socketPath: cfg.Paths.SocketPath,
		configPath: configPath,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
queue_dir = %q
log_dir = %q
state_dir = %q
socket_path = %q

[worker]
maintain_script = %q
require_root = false

[scheduler]
enabled = false
`,
		cfg.Paths.QueueDir,
		cfg.Paths.LogDir,
		cfg.Paths.StateDir,
		cfg.Paths.SocketPath,
		cfg.Worker.MaintainScript,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIOpsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"ops"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("ops: %v", err)
	}
	if !strings.Contains(out, "brew-update") || !strings.Contains(out, "Safety") {
		t.Fatalf("unexpected ops output: %q", out)
	}

	out, _, err = runCLI(t, []string{"ops", "--category", "no-such-category"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("ops filtered: %v", err)
	}
	if !strings.Contains(out, "No operations match") {
		t.Fatalf("expected empty filter message, got %q", out)
	}
}

func TestCLIRunStreamsToCompletion(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run", "brew-update", "dns-flush"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"Starting maintenance run", "running brew-update", "2 succeeded", "Run complete"} {
		if !strings.Contains(out, want) {
			t.Fatalf("run output missing %q:\n%s", want, out)
		}
	}
}

func TestCLIRunRejectsUnknownOperation(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run", "made-up-op"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "failed") && !strings.Contains(out, "1 failed") {
		t.Fatalf("expected rejection in output: %q", out)
	}
}

func TestCLIStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Daemon: running") || !strings.Contains(out, "No maintenance run yet") {
		t.Fatalf("unexpected status output: %q", out)
	}
}

func TestCLIScheduleLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{
		"schedule", "create",
		"--name", "weekly tidy",
		"--ops", "brew-update,dns-flush",
		"--frequency", "weekly",
		"--time", "03:15",
		"--weekdays", "sat",
	}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("schedule create: %v", err)
	}
	if !strings.Contains(out, "Created schedule") {
		t.Fatalf("unexpected create output: %q", out)
	}

	out, _, err = runCLI(t, []string{"schedule", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("schedule list: %v", err)
	}
	if !strings.Contains(out, "weekly tidy") || !strings.Contains(out, "Sat") {
		t.Fatalf("unexpected list output: %q", out)
	}

	id := scheduleIDFromList(t, env)
	out, _, err = runCLI(t, []string{"schedule", "update", id, "--time", "04:45"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("schedule update: %v", err)
	}
	if !strings.Contains(out, "Updated schedule") {
		t.Fatalf("unexpected update output: %q", out)
	}

	out, _, err = runCLI(t, []string{"schedule", "delete", id}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("schedule delete: %v", err)
	}
	if !strings.Contains(out, "Deleted schedule") {
		t.Fatalf("unexpected delete output: %q", out)
	}
}

func scheduleIDFromList(t *testing.T, env *cliTestEnv) string {
	t.Helper()
	client, err := ipc.Dial(env.socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	resp, err := client.ScheduleList()
	if err != nil {
		t.Fatalf("ScheduleList: %v", err)
	}
	if len(resp.Schedules) == 0 {
		t.Fatal("no schedules present")
	}
	return resp.Schedules[0].ID
}

func TestCLIConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected init output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}
}
