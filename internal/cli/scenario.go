package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/webprobe/internal/domain"
)

// Runner выполняет один прогон сценария.
type Runner interface {
	Run(ctx context.Context, scenarioID int64) (*domain.RunResult, error)
}

// DueLister перечисляет сценарии, время проверки которых наступило.
type DueLister interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduleEntry, error)
}

// CheckNowPublisher просит поллеры проверить сценарий вне очереди.
type CheckNowPublisher interface {
	PublishCheckNow(ctx context.Context, scenarioID int64, requestedBy string) error
}

// Deps — зависимости команд. Создаются лениво, после разбора флагов.
type Deps struct {
	Runner   Runner
	Sink     *RecordingSink
	Schedule DueLister
	Control  CheckNowPublisher
}

// RecordingSink запоминает значения метрик вместо отправки.
// Используется для пробного прогона из CLI.
type RecordingSink struct {
	mu     sync.Mutex
	values []domain.MetricValue
}

// Report сохраняет значение.
func (s *RecordingSink) Report(ctx context.Context, v domain.MetricValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, v)
	return nil
}

// Values возвращает сохранённые значения в порядке ItemID.
func (s *RecordingSink) Values() []domain.MetricValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]domain.MetricValue(nil), s.values...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// NewScenarioCmd создаёт команды работы со сценариями.
func NewScenarioCmd(depsFn func() (*Deps, error), outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Run and schedule web scenarios",
	}

	cmd.AddCommand(
		newScenarioRunCmd(depsFn, outputFn),
		newScenarioDueCmd(depsFn, outputFn),
		newScenarioCheckNowCmd(depsFn, outputFn),
	)

	return cmd
}

// runReport — JSON вывод команды run.
type runReport struct {
	Result  *domain.RunResult    `json:"result"`
	Metrics []domain.MetricValue `json:"metrics"`
}

func newScenarioRunCmd(depsFn func() (*Deps, error), outputFn func() *Output) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "run SCENARIO_ID",
		Short: "Execute a scenario once and print step results",
		Long: "Execute a scenario once without touching its schedule.\n" +
			"Metric values are printed instead of being reported.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseScenarioID(args[0])
			if err != nil {
				return err
			}

			deps, err := depsFn()
			if err != nil {
				return err
			}
			out := outputFn()

			res, err := deps.Runner.Run(cmd.Context(), id)
			if err != nil {
				return err
			}

			var metrics []domain.MetricValue
			if deps.Sink != nil {
				metrics = deps.Sink.Values()
			}

			headers := []string{"NO", "NAME", "URL", "CODE", "TIME", "SPEED", "ATTEMPTS", "ERROR"}
			rows := make([][]string, len(res.Steps))
			for i, s := range res.Steps {
				code := "-"
				if s.Transferred {
					code = strconv.Itoa(s.Stat.ResponseCode)
				}
				rows[i] = []string{
					strconv.Itoa(s.No),
					s.Name,
					s.URL,
					code,
					formatSeconds(s.Stat.TotalTime),
					formatSpeed(s.Stat.SpeedDownload),
					strconv.Itoa(s.Attempts),
					s.Error,
				}
			}

			out.Print(headers, rows, runReport{Result: res, Metrics: metrics})

			summary := fmt.Sprintf("Scenario %q: avg speed %s, next check in %s",
				res.Scenario, formatSpeed(res.SpeedAverage), res.Delay)
			if res.Failed() {
				out.Error(fmt.Sprintf("%s; failed at step %d: %s", summary, res.LastFailedStep, res.Error))
				if strict {
					return fmt.Errorf("scenario %d failed", id)
				}
				return nil
			}
			out.Success(summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error if the scenario fails")

	return cmd
}

func newScenarioDueCmd(depsFn func() (*Deps, error), outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List scenarios waiting for a check",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := depsFn()
			if err != nil {
				return err
			}
			out := outputFn()

			entries, err := deps.Schedule.ListDue(cmd.Context(), time.Now(), limit)
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "HOST", "NEXT_CHECK", "CLAIMED"}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				claimed := ""
				if e.IsClaimed() {
					claimed = e.ClaimedAt.Format(time.RFC3339)
				}
				rows[i] = []string{
					strconv.FormatInt(e.ScenarioID, 10),
					e.Name,
					e.Host,
					e.NextCheck.Format(time.RFC3339),
					claimed,
				}
			}

			out.Print(headers, rows, entries)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of results")

	return cmd
}

func newScenarioCheckNowCmd(depsFn func() (*Deps, error), outputFn func() *Output) *cobra.Command {
	var requestedBy string

	cmd := &cobra.Command{
		Use:   "check-now SCENARIO_ID",
		Short: "Ask pollers to check a scenario immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseScenarioID(args[0])
			if err != nil {
				return err
			}

			deps, err := depsFn()
			if err != nil {
				return err
			}
			if deps.Control == nil {
				return fmt.Errorf("check-now requires amqp.url to be configured")
			}

			if err := deps.Control.PublishCheckNow(cmd.Context(), id, requestedBy); err != nil {
				return err
			}

			outputFn().Success(fmt.Sprintf("Check requested for scenario %d", id))
			return nil
		},
	}

	cmd.Flags().StringVar(&requestedBy, "by", "cli", "Requester name recorded in the message")

	return cmd
}

func parseScenarioID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid scenario id %q", s)
	}
	return id, nil
}
