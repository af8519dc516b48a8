package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/eds/backend/internal/scheduler"
	"github.com/wonny/eds/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)
  status  - 작업 실행 상태 조회

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler list
  go run ./cmd/quant scheduler run post_close`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다 (시장 타임존, 평일).

등록되는 작업:
- post_close: 13:30 (일간 점수)
- pre_market: 06:00 (ΔOI 재점수)
- intraday:   06:30 ~ 12:30, 30분 간격 (장중 nowcast)

--disable 로 일부 작업을 제외할 수 있습니다 (예: --disable intraday).
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
		Short: "작업 실행 상태 조회",
		RunE:  showStatus,
	}
)

var (
	jobTimeout   time.Duration
	jobRetries   int
	disabledJobs []string
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)

	schedulerCmd.PersistentFlags().DurationVar(&jobTimeout, "job-timeout", 25*time.Minute, "per-attempt timeout")
	schedulerCmd.PersistentFlags().IntVar(&jobRetries, "retries", 2, "retries after a failed run")
	schedulerStartCmd.Flags().StringSliceVar(&disabledJobs, "disable", nil, "jobs not to schedule (post_close, pre_market, intraday)")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== EDS Scheduler ===")

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	if err := disableJobs(sched, disabledJobs); err != nil {
		return err
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	ctx, cancel := signalContext()
	defer cancel()
	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	printJobs(sched)
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %-12s %s\n", jobName, stats[jobName].Schedule)
	}
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := sched.RunJobNow(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Job %s completed in %.2fs (%d attempt(s))", jobName, result.Duration.Seconds(), result.Attempts))
	return nil
}

// showStatus prints stats of the jobs run by this process.
// 이력은 프로세스 메모리에만 있으므로 별도 실행 중인 스케줄러 이력은 /metrics 참고
func showStatus(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	stats := sched.GetJobStats()

	fmt.Println("Job Statistics:")
	fmt.Println()

	for _, jobName := range sched.GetAllJobs() {
		stat := stats[jobName]
		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Schedule: %s (%s)\n", stat.Schedule, a.location)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		if stat.NextRun != nil {
			fmt.Printf("   Next Run: %s\n", stat.NextRun.In(a.location).Format("2006-01-02 15:04:05 MST"))
		}

		fmt.Println()
	}

	return nil
}

// disableJobs unschedules the named jobs before Start
func disableJobs(sched *scheduler.Scheduler, names []string) error {
	for _, name := range names {
		if err := sched.RemoveJob(name); err != nil {
			return fmt.Errorf("disable %s: %w", name, err)
		}
	}
	return nil
}

func initScheduler() (*app, *scheduler.Scheduler, error) {
	a, err := newApp()
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.log,
		scheduler.WithLocation(a.location),
		scheduler.WithRetry(jobRetries, time.Minute),
		scheduler.WithTimeout(jobTimeout),
	)

	loc := a.location
	for _, job := range []scheduler.Job{
		jobs.NewPostCloseJob(a.orchestrator, a.log),
		jobs.NewPreMarketJob(a.orchestrator, a.log),
		jobs.NewIntradayJob(a.orchestrator, func() time.Time { return time.Now().In(loc) }, a.log),
	} {
		if err := sched.AddJob(job); err != nil {
			a.Close()
			return nil, nil, err
		}
	}

	return a, sched, nil
}
