package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/diamond/internal/api"
	"github.com/wonny/diamond/internal/api/handlers"
	"github.com/wonny/diamond/internal/scheduler"
	"github.com/wonny/diamond/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `하트비트 스케줄러를 시작하거나 상태를 조회합니다.

하트비트는 매분 실행되며:
- 전략: 거래일 09:15 이후 하루 1회
- 실행: 장중(09:00-16:00) min_interval 간격

Subcommands:
  start   - 스케줄러 데몬 시작 (+ 상태 API)
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행
  status  - 하트비트 상태 조회

Example:
  go run ./cmd/diamond scheduler start
  go run ./cmd/diamond scheduler run heartbeat
  go run ./cmd/diamond scheduler status`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- heartbeat: 매분 (전략/실행 시점 판단)
- quarantine_sweep: 매일 08:00 (만료된 격리 해제)

API_ENABLED=true 이면 상태 API를 함께 띄웁니다.
스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "하트비트 상태 조회",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

// daemon bundles the scheduler with the resources it owns
type daemon struct {
	sched     *scheduler.Scheduler
	heartbeat *jobs.HeartbeatJob
	closer    io.Closer
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fmt.Println("=== Diamond Scheduler ===")

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := initScheduler(ctx, a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer d.closer.Close()

	var server *api.Server
	if a.cfg.APIEnabled {
		status := handlers.NewStatusHandler(a.contractReader(), a.quarantine, d.sched, d.heartbeat, a.log)
		server = api.New(a.cfg, a.log, api.NewRouter(status, a.cfg.MetricsEnabled, a.log))
		go func() {
			if err := server.Start(); err != nil {
				a.log.WithError(err).Error("API server stopped")
			}
		}()
	}

	// Start scheduler
	d.sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	PrintList(d.sched.GetAllJobs())
	if server != nil {
		fmt.Printf("\nStatus API on :%s\n", a.cfg.APIPort)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	d.sched.Stop()
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.log.WithError(err).Warn("API shutdown failed")
		}
	}
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := initScheduler(cmd.Context(), a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer d.closer.Close()

	fmt.Println("Registered jobs:")
	PrintList(d.sched.GetAllJobs())
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := initScheduler(cmd.Context(), a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer d.closer.Close()

	fmt.Printf("Running job: %s\n", jobName)
	runErr := d.sched.RunJob(jobName)

	if history, err := d.sched.GetJobHistory(jobName); err == nil {
		if last := history.GetLatestResults(1); len(last) == 1 {
			PrintKeyValue("duration", last[0].Duration.Round(time.Millisecond).String(), 12)
			PrintKeyValue("success", fmt.Sprint(last[0].Success), 12)
		}
	}
	if runErr != nil {
		return fmt.Errorf("run job: %w", runErr)
	}

	PrintSuccess("Job completed")
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := initScheduler(cmd.Context(), a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer d.closer.Close()

	status := d.heartbeat.Status()
	keys := make([]string, 0, len(status))
	for k := range status {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println("💓 heartbeat")
	for _, k := range keys {
		PrintKeyValue(k, formatStatusValue(status[k]), 20)
	}
	PrintKeyValue("quarantined", fmt.Sprint(a.quarantine.Size()), 20)
	return nil
}

// initScheduler registers the heartbeat and quarantine sweep jobs.
// The execution record store stays open for the scheduler's lifetime.
func initScheduler(ctx context.Context, a *app) (*daemon, error) {
	engine, closer, err := a.executionEngine(ctx)
	if err != nil {
		return nil, err
	}
	orch := a.orchestrator()

	strategy := func(ctx context.Context) error {
		_, err := orch.Run(ctx)
		return err
	}
	execute := func(ctx context.Context) error {
		_, err := engine.Run(ctx)
		return err
	}

	state := jobs.NewStateStore(a.cfg.Path(a.strategy.Execution.StateFile), a.log)
	heartbeat := jobs.NewHeartbeatJob(strategy, execute, a.cal, state, a.strategy.Execution.MinInterval, a.log)

	sched := scheduler.New(a.cal.Location(), a.log)
	for _, job := range []scheduler.Job{
		heartbeat,
		jobs.NewQuarantineSweepJob(a.quarantine, a.log),
	} {
		if err := sched.AddJob(job); err != nil {
			closer.Close()
			return nil, fmt.Errorf("add job %s: %w", job.Name(), err)
		}
	}

	return &daemon{sched: sched, heartbeat: heartbeat, closer: closer}, nil
}

func formatStatusValue(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05")
	case string:
		if t == "" {
			return "-"
		}
		return t
	default:
		return fmt.Sprint(v)
	}
}
