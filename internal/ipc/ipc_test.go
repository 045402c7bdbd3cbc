package ipc_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"upkeep/internal/config"
	"upkeep/internal/daemon"
	"upkeep/internal/ipc"
	"upkeep/internal/jobqueue"
	"upkeep/internal/logging"
	"upkeep/internal/logs"
	"upkeep/internal/ops"
	"upkeep/internal/schedule"
	"upkeep/internal/stream"
	"upkeep/internal/testsupport"
	"upkeep/internal/worker"
)

type echoRunner struct{}

func (echoRunner) Run(ctx context.Context, def ops.Definition, onLine func(streamTag, text string)) (int, error) {
	onLine(jobqueue.StreamStdout, "running "+def.ID)
	return 0, nil
}

func newRig(t *testing.T) (*ipc.Client, *config.Config) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()
	d, err := daemon.New(cfg, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	srv, err := ipc.NewServer(ctx, cfg, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	w := worker.New(cfg, d.Store(), ops.NewRegistry(), echoRunner{}, logger)
	go func() { _ = w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(cfg.Paths.SocketPath)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, cfg
}

func fetchUntilTerminal(t *testing.T, client *ipc.Client, epoch uint64) []ipc.Event {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var events []ipc.Event
	var since uint64
	for time.Now().Before(deadline) {
		resp, err := client.StreamFetch(ipc.StreamFetchRequest{
			Epoch:  epoch,
			Since:  since,
			WaitMS: 200,
		})
		if err != nil {
			t.Fatalf("StreamFetch: %v", err)
		}
		events = append(events, resp.Events...)
		since = resp.Next
		for _, ev := range resp.Events {
			if ev.Type.Terminal() {
				return events
			}
		}
	}
	t.Fatalf("no terminal event for epoch %d, got %d events", epoch, len(events))
	return nil
}

func TestIPCRunLifecycle(t *testing.T) {
	client, _ := newRig(t)

	status, err := client.DaemonStatus()
	if err != nil {
		t.Fatalf("DaemonStatus: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if status.HasRun {
		t.Fatal("expected no run before RunStart")
	}

	catalog, err := client.Operations()
	if err != nil {
		t.Fatalf("Operations: %v", err)
	}
	if len(catalog.Operations) == 0 || len(catalog.Categories) == 0 {
		t.Fatal("expected a populated operation catalog")
	}

	started, err := client.RunStart([]string{"brew-update", "dns-flush"})
	if err != nil {
		t.Fatalf("RunStart: %v", err)
	}
	if started.Epoch == 0 {
		t.Fatal("expected nonzero epoch")
	}

	events := fetchUntilTerminal(t, client, started.Epoch)
	last := events[len(events)-1]
	if last.Type != stream.EventRunComplete {
		t.Fatalf("expected run-complete, got %s", last.Type)
	}

	runStatus, err := client.RunStatus(0)
	if err != nil {
		t.Fatalf("RunStatus: %v", err)
	}
	if runStatus.Run.Summary.Succeeded != 2 {
		t.Fatalf("Succeeded = %d, want 2", runStatus.Run.Summary.Succeeded)
	}

	result, err := client.JobResult("000000000001")
	if err != nil {
		t.Fatalf("JobResult: %v", err)
	}
	if result.Result.Outcome != jobqueue.OutcomeSuccess {
		t.Fatalf("Outcome = %q, want success", result.Result.Outcome)
	}
}

func TestIPCRunCancel(t *testing.T) {
	client, _ := newRig(t)

	started, err := client.RunStart([]string{"brew-update", "dns-flush", "disk-verify"})
	if err != nil {
		t.Fatalf("RunStart: %v", err)
	}
	if _, err := client.RunCancel(started.Epoch); err != nil {
		t.Fatalf("RunCancel: %v", err)
	}
	fetchUntilTerminal(t, client, started.Epoch)

	runStatus, err := client.RunStatus(started.Epoch)
	if err != nil {
		t.Fatalf("RunStatus: %v", err)
	}
	total := runStatus.Run.Summary.Succeeded + runStatus.Run.Summary.Failed +
		runStatus.Run.Summary.Skipped + runStatus.Run.Summary.Incomplete
	if total >= 3 {
		t.Fatalf("expected cancel to stop before all operations, counted %d", total)
	}
}

func TestIPCScheduleSurface(t *testing.T) {
	client, _ := newRig(t)

	created, err := client.ScheduleCreate(ipc.ScheduleCreateRequest{Schedule: ipc.Schedule{
		Name:       "nightly cleanup",
		Operations: []string{"brew-update"},
		Frequency:  schedule.Daily,
		TimeOfDay:  "02:30",
		Enabled:    true,
	}})
	if err != nil {
		t.Fatalf("ScheduleCreate: %v", err)
	}
	if !created.Created || created.Schedule.ID == "" {
		t.Fatalf("expected created schedule, got %+v", created)
	}

	conflicting, err := client.ScheduleCreate(ipc.ScheduleCreateRequest{Schedule: ipc.Schedule{
		Name:       "rival cleanup",
		Operations: []string{"brew-update"},
		Frequency:  schedule.Daily,
		TimeOfDay:  "02:31",
		Enabled:    true,
	}})
	if err != nil {
		t.Fatalf("ScheduleCreate conflicting: %v", err)
	}
	if conflicting.Created || len(conflicting.Conflicts) == 0 {
		t.Fatalf("expected conflict refusal, got %+v", conflicting)
	}

	forced, err := client.ScheduleCreate(ipc.ScheduleCreateRequest{
		Schedule: ipc.Schedule{
			Name:       "rival cleanup",
			Operations: []string{"brew-update"},
			Frequency:  schedule.Daily,
			TimeOfDay:  "02:31",
			Enabled:    true,
		},
		Force: true,
	})
	if err != nil {
		t.Fatalf("ScheduleCreate forced: %v", err)
	}
	if !forced.Created {
		t.Fatal("expected forced create to succeed")
	}

	listed, err := client.ScheduleList()
	if err != nil {
		t.Fatalf("ScheduleList: %v", err)
	}
	if len(listed.Schedules) != 2 {
		t.Fatalf("schedules = %d, want 2", len(listed.Schedules))
	}

	fired, err := client.ScheduleRunNow(created.Schedule.ID)
	if err != nil {
		t.Fatalf("ScheduleRunNow: %v", err)
	}
	fetchUntilTerminal(t, client, fired.Epoch)

	after, err := client.ScheduleGet(created.Schedule.ID)
	if err != nil {
		t.Fatalf("ScheduleGet: %v", err)
	}
	if !after.Schedule.NextFire.Equal(created.Schedule.NextFire) {
		t.Fatal("run-now must not shift the schedule recurrence")
	}

	if _, err := client.ScheduleDelete(forced.Schedule.ID); err != nil {
		t.Fatalf("ScheduleDelete: %v", err)
	}
	listed, err = client.ScheduleList()
	if err != nil {
		t.Fatalf("ScheduleList after delete: %v", err)
	}
	if len(listed.Schedules) != 1 {
		t.Fatalf("schedules after delete = %d, want 1", len(listed.Schedules))
	}
}

func TestIPCLogTail(t *testing.T) {
	client, cfg := newRig(t)

	logPath := logs.DaemonLogPath(cfg.Paths.LogDir)
	if err := os.WriteFile(logPath, []byte("line one\nline two\nline three\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	resp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail: %v", err)
	}
	if len(resp.Lines) != 2 || resp.Lines[0] != "line two" || resp.Lines[1] != "line three" {
		t.Fatalf("unexpected lines: %#v", resp.Lines)
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("line four\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	more, err := client.LogTail(ipc.LogTailRequest{Offset: resp.Next})
	if err != nil {
		t.Fatalf("LogTail resume: %v", err)
	}
	if len(more.Lines) != 1 || more.Lines[0] != "line four" {
		t.Fatalf("unexpected resumed lines: %#v", more.Lines)
	}
}
