package cmds

import (
	"context"
	"fmt"
	"os"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tcnksm/go-input"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/mangiafuoco/pkg/analyze"
	"github.com/go-go-golems/mangiafuoco/pkg/config"
	"github.com/go-go-golems/mangiafuoco/pkg/delegate"
	"github.com/go-go-golems/mangiafuoco/pkg/events"
	"github.com/go-go-golems/mangiafuoco/pkg/inference"
	"github.com/go-go-golems/mangiafuoco/pkg/inference/tokens"
	"github.com/go-go-golems/mangiafuoco/pkg/orchestrator"
	"github.com/go-go-golems/mangiafuoco/pkg/prompts"
	"github.com/go-go-golems/mangiafuoco/pkg/shellexec"
	"github.com/go-go-golems/mangiafuoco/pkg/turnlog"
)

const eventTopic = "orchestrator-events"

var RunCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run the agent loop on a task until it finishes or the turn budget runs out",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task := args[0]

		cfg, err := config.Load(viper.GetString("config"),
			config.WithModel(mustString(cmd, "model")),
			config.WithTemperature(mustFloat64(cmd, "temperature")),
			config.WithAPIKey(mustString(cmd, "api-key")),
			config.WithAPIBase(mustString(cmd, "api-base")),
		)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("max-turns") {
			maxTurns, _ := cmd.Flags().GetInt("max-turns")
			cfg.MaxTurns = maxTurns
		}
		if cfg.APIKey == "" {
			return errors.New("no API key configured, set MANGIAFUOCO_API_KEY or pass --api-key")
		}

		directory := mustString(cmd, "directory")
		if directory == "" {
			directory = "."
		}
		report, err := validateDirectory(directory)
		if err != nil {
			return err
		}

		return runTask(cmd.Context(), cmd, cfg, task, report.Path)
	},
}

func runTask(ctx context.Context, cmd *cobra.Command, cfg *config.Config, task string, directory string) error {
	executor := buildExecutor(cmd, directory)

	settings := inference.NewSettings()
	settings.Model = cfg.Model
	settings.Temperature = float32(cfg.Temperature)
	settings.APIKey = cfg.APIKey
	settings.BaseURL = cfg.APIBase
	caller, err := inference.NewOpenAICaller(settings)
	if err != nil {
		return err
	}

	commandTimeout, _ := cmd.Flags().GetDuration("command-timeout")
	options := []orchestrator.Option{
		orchestrator.WithModelCaller(caller),
		orchestrator.WithDelegate(delegate.NewShellDelegate(executor,
			delegate.WithCommandTimeout(commandTimeout))),
	}

	if path := mustString(cmd, "system-message"); path != "" {
		systemMessage, err := prompts.LoadSystemMessage(path)
		if err != nil {
			return err
		}
		options = append(options, orchestrator.WithSystemMessage(systemMessage))
	}

	if path := mustString(cmd, "combine-template"); path != "" {
		tmpl, err := prompts.LoadCombineTemplate(path)
		if err != nil {
			return err
		}
		options = append(options, orchestrator.WithCombineTemplate(tmpl))
	}

	loggingDir := mustString(cmd, "logging-dir")
	if loggingDir == "" && cfg.DefaultLogging {
		loggingDir = cfg.LoggingDir
	}
	if loggingDir != "" {
		turnLogger, err := turnlog.New(loggingDir, "")
		if err != nil {
			return err
		}
		options = append(options, orchestrator.WithTurnLogger(turnLogger))
		fmt.Printf("Logging turns to: %s\n", turnLogger.Dir())
	}

	router, err := events.NewEventRouter()
	if err != nil {
		return err
	}
	defer func() {
		if err := router.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event router")
		}
	}()

	if mustBool(cmd, "dump-events") {
		router.AddHandler("dump-events", eventTopic, router.DumpRawEvents)
	} else {
		router.AddHandler("progress", eventTopic, printProgress)
	}
	options = append(options, orchestrator.WithSink(events.NewWatermillSink(router.Publisher, eventTopic)))

	orch := orchestrator.New(options...)

	fmt.Printf("Working directory: %s\n", directory)
	fmt.Printf("Task: %s\n", task)
	fmt.Printf("Model: %s\n", cfg.Model)
	fmt.Printf("Max turns: %d\n\n", cfg.MaxTurns)

	var result *orchestrator.Result

	eg := errgroup.Group{}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg.Go(func() error {
		defer cancel()
		return router.Run(ctx)
	})

	eg.Go(func() error {
		defer cancel()
		<-router.Running()

		var runErr error
		result, runErr = orch.Run(ctx, task, cfg.MaxTurns)
		return runErr
	})

	runErr := eg.Wait()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if result == nil {
		return runErr
	}

	printResult(result)
	printTokenUsage(orch)

	if path := mustString(cmd, "save-history"); path != "" {
		if err := orch.History().SaveToFile(path); err != nil {
			return err
		}
		fmt.Printf("Transcript saved to: %s\n", path)
	}
	return nil
}

func buildExecutor(cmd *cobra.Command, directory string) shellexec.Executor {
	if container := mustString(cmd, "docker-container"); container != "" {
		return shellexec.NewDockerExecutor(container)
	}
	return shellexec.NewLocalExecutor(directory)
}

// validateDirectory checks the target exists and looks like a code
// repository, asking for confirmation when it does not.
func validateDirectory(directory string) (*analyze.Report, error) {
	analyzer, err := analyze.NewAnalyzer(directory)
	if err != nil {
		return nil, err
	}
	report, err := analyzer.Analyze()
	if err != nil {
		return nil, err
	}

	if report.TotalCodeFiles == 0 && len(report.BuildFiles) == 0 {
		fmt.Printf("Warning: %s does not appear to contain code files.\n", report.Path)

		ui := &input.UI{Writer: os.Stdout, Reader: os.Stdin}
		answer, err := ui.Ask("Continue anyway? [y/N]", &input.Options{
			Default:  "n",
			Required: true,
			Loop:     true,
			ValidateFunc: func(answer string) error {
				switch answer {
				case "y", "Y", "n", "N":
					return nil
				default:
					return fmt.Errorf("please enter 'y' or 'n'")
				}
			},
		})
		if err != nil {
			return nil, err
		}
		if answer == "n" || answer == "N" {
			return nil, errors.New("aborted")
		}
	}

	return report, nil
}

func printProgress(msg *message.Message) error {
	defer msg.Ack()

	event, err := events.NewEventFromJson(msg.Payload)
	if err != nil {
		return err
	}

	switch e := event.(type) {
	case *events.EventRunStarted:
		fmt.Printf("Starting run (max %d turns)\n", e.MaxTurns)
	case *events.EventTurnStarted:
		fmt.Printf("--- Turn %d ---\n", e.Metadata().Iteration)
	case *events.EventTurnCompleted:
		status := "ok"
		if e.HasError {
			status = "with errors"
		}
		fmt.Printf("Turn %d completed %s (%d actions)\n", e.Metadata().TurnNumber, status, e.ActionCount)
	case *events.EventTurnFailed:
		fmt.Printf("Turn %d failed during %s: %s\n", e.Metadata().Iteration, e.Stage, e.Error)
	case *events.EventRunFinished:
		fmt.Printf("Run finished: %s after %d turns\n", e.Disposition, e.TurnsExecuted)
	}
	return nil
}

func printResult(result *orchestrator.Result) {
	fmt.Println("\nExecution results")
	fmt.Println("=================")
	if result.Completed {
		fmt.Println("Task completed successfully.")
		if result.FinishMessage != "" {
			fmt.Printf("Result: %s\n", result.FinishMessage)
		}
	} else {
		fmt.Println("Task did not complete within the turn limit.")
	}
	fmt.Printf("Turns executed: %d\n", result.TurnsExecuted)
	fmt.Printf("Max turns reached: %t\n", result.MaxTurnsReached)
}

func printTokenUsage(orch *orchestrator.Orchestrator) {
	counter, err := tokens.NewCounter("")
	if err != nil {
		log.Debug().Err(err).Msg("Could not initialize token counter")
		return
	}

	input_, output := 0, 0
	for _, turn := range orch.History().Turns() {
		input_ += counter.Count(turn.Prompt)
		output += counter.Count(turn.ModelResponse)
	}
	if input_+output > 0 {
		fmt.Printf("Tokens used: %d input + %d output = %d total\n", input_, output, input_+output)
	}
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func mustFloat64(cmd *cobra.Command, name string) float64 {
	if !cmd.Flags().Changed(name) {
		return -1
	}
	v, _ := cmd.Flags().GetFloat64(name)
	return v
}

func mustBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

func init() {
	RunCmd.Flags().StringP("directory", "d", ".", "Directory to run the task in")
	RunCmd.Flags().StringP("model", "m", "", "Model to use")
	RunCmd.Flags().Float64P("temperature", "t", 0.1, "Sampling temperature")
	RunCmd.Flags().Int("max-turns", config.DefaultMaxTurns, "Maximum number of turns")
	RunCmd.Flags().String("api-key", "", "API key")
	RunCmd.Flags().String("api-base", "", "Custom API base URL")
	RunCmd.Flags().String("system-message", "", "Path to a custom system message file")
	RunCmd.Flags().String("combine-template", "", "Path to a custom per-turn prompt template")
	RunCmd.Flags().String("save-history", "", "Write the run transcript to this file after the run (.json or .yaml)")
	RunCmd.Flags().String("logging-dir", "", "Directory for per-turn JSON logs")
	RunCmd.Flags().String("docker-container", "", "Run commands inside this docker container instead of locally")
	RunCmd.Flags().Bool("dump-events", false, "Dump raw run events as JSON")
	RunCmd.Flags().Duration("command-timeout", shellexec.DefaultTimeout, "Timeout for individual commands")
}
