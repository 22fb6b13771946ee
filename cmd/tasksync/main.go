package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"tasksync-cli/internal/cli"
)

// Persistent flags that consume the next argument.
var valueFlags = map[string]bool{
	"--api-url":   true,
	"--redis-url": true,
	"--profile":   true,
	"--format":    true,
}

func isTaskID(s string) bool {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	n, err := strconv.ParseInt(s, 10, 64)
	return err == nil && n > 0
}

func withShow(argv []string, at int) []string {
	out := make([]string, 0, len(argv)+2)
	out = append(out, argv[:at]...)
	out = append(out, "tasks", "show")
	return append(out, argv[at:]...)
}

// rewriteTaskShortcut turns `tasksync [flags] <id>` into `tasksync [flags] tasks show <id>`.
// Cobra would otherwise treat the id as an unknown subcommand.
func rewriteTaskShortcut(argv []string) []string {
	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		switch {
		case a == "":
			continue
		case a == "--":
			if i+1 < len(argv) && isTaskID(argv[i+1]) {
				return withShow(argv, i+1)
			}
			return argv
		case strings.HasPrefix(a, "-"):
			// Unknown flags are skipped without their value so an id is never swallowed.
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		case isTaskID(a):
			return withShow(argv, i)
		default:
			return argv
		}
	}
	return argv
}

func main() {
	os.Args = rewriteTaskShortcut(os.Args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
