package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codemate/internal/prompt"
	"codemate/internal/session"
)

var (
	askFile      string
	askCollision string
	askTask      string
)

var askCmd = &cobra.Command{
	Use:   "ask \"instruction\"",
	Short: "Run one instruction against the workspace",
	Long: `Builds a prompt from the instruction (and the bound file, when --file
is given), submits it, and applies the recovered action. Prints what was
done: the file written, the command output, or the display-only reply.

With --task, a canned instruction replaces the positional one:
analyze, fix, optimize, explain, or tests.

Example:
  mate ask "add a docstring to every public function" --file app.py
  mate ask --task analyze --file app.py`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "file to bind as the active editing target")
	askCmd.Flags().StringVar(&askCollision, "collision", "", "create_file collision policy: cancel, overwrite, autorename")
	askCmd.Flags().StringVarP(&askTask, "task", "t", "", "canned task: analyze, fix, optimize, explain, tests")
}

// resolveInstruction picks the instruction: a canned task when --task is
// set, otherwise the positional argument.
func resolveInstruction(args []string) (string, error) {
	positional := ""
	if len(args) == 1 {
		positional = args[0]
	}

	switch askTask {
	case "":
		if positional == "" {
			return "", fmt.Errorf("an instruction or --task is required")
		}
		return positional, nil
	case "analyze":
		return prompt.AnalysisCommand(), nil
	case "fix":
		return prompt.FixErrorsCommand(positional), nil
	case "optimize":
		return prompt.OptimizeCommand(), nil
	case "explain":
		return prompt.ExplainCommand(), nil
	case "tests":
		return prompt.GenerateTestsCommand(), nil
	default:
		return "", fmt.Errorf("unknown task %q", askTask)
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	instruction, err := resolveInstruction(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if askCollision != "" {
		cfg.Files.DefaultCollision = askCollision
	}

	s, err := session.New(".", cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if askFile != "" {
		if _, err := s.OpenFile(askFile); err != nil {
			return err
		}
		logger.Debug("file bound", zap.String("path", s.ActiveFile()))
	}

	result, err := s.Ask(ctx, instruction)
	if err != nil {
		return err
	}

	act := result.Action
	fmt.Printf("action:      %s\n", act.Kind)
	fmt.Printf("explanation: %s\n", act.Explanation)

	switch {
	case result.Command != nil:
		fmt.Printf("exit code:   %d\n", result.Command.ExitCode)
		if result.Command.Stdout != "" {
			fmt.Printf("\n%s", result.Command.Stdout)
		}
		if result.Command.Stderr != "" {
			fmt.Fprintf(os.Stderr, "%s", result.Command.Stderr)
		}
	case result.Applied:
		fmt.Printf("wrote:       %s\n", result.Path)
	default:
		fmt.Printf("\n%s\n", result.Display)
	}
	return nil
}
