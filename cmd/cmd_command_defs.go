package cmd

import (
	"github.com/spf13/cobra"
)

var kacchiCmd = &cobra.Command{
	Use:   "kacchi",
	Short: "A minimal kernel core: bump allocator, process table, and priority scheduler.",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Run: runKacchi,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Boot the kernel and drop into the interactive shell.",
	Run:   runRun,
}

var memCmd = &cobra.Command{
	Use:     "memory",
	Aliases: []string{"mem"},
	Short:   "Boot the kernel with the demo task set and show memory statistics.",
	Run:     runMem,
}

var processCmd = &cobra.Command{
	Use:     "process",
	Aliases: []string{"ps"},
	Short:   "Introspect the kernel's process table.",
	Run:     runProcess,
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the process table of a freshly booted kernel.",
	Run:     runListProcesses,
}

var schedCmd = &cobra.Command{
	Use:     "scheduler",
	Aliases: []string{"sched"},
	Short:   "Boot the kernel with the demo task set and show scheduler statistics.",
	Run:     runSched,
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run the kernel's built-in self test.",
	Run:   runTest,
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Boot the kernel and serve its state over HTTP.",
	Run:   runUI,
}
