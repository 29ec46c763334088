package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kacchios/kacchi/host"
	"github.com/kacchios/kacchi/kernel"
	"github.com/kacchios/kacchi/mem"
	"github.com/kacchios/kacchi/process"
	"github.com/kacchios/kacchi/serial"
	"github.com/kacchios/kacchi/ui"
)

// timerCadence is how often the background timer fires a scheduler tick
// while the shell runs.
const timerCadence = 10 * time.Millisecond

// SetupCLI constructs the cobra hierarchy to create the kacchi CLI.
//
// Do not use this function in other Go packages. Instead, you should look to
// import the libraries used in the cmd package directly, starting with
// [kernel].
func SetupCLI() *cobra.Command {
	kacchiCmd.AddCommand(runCmd)
	kacchiCmd.AddCommand(memCmd)
	kacchiCmd.AddCommand(processCmd)
	kacchiCmd.AddCommand(schedCmd)
	kacchiCmd.AddCommand(testCmd)
	kacchiCmd.AddCommand(uiCmd)
	processCmd.AddCommand(listCmd)

	return kacchiCmd
}

// runKacchi defines what should occur when `kacchi ...` is run.
func runKacchi(cmd *cobra.Command, args []string) {
	// if kacchi is run without a command (argument), print help.
	if len(args) == 0 {
		cmd.Help()
		os.Exit(0)
	}
}

// runProcess defines what should occur when `kacchi process ...` is run.
func runProcess(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		cmd.Help()
		os.Exit(0)
	}
}

// runRun defines the behavior of running:
// `kacchi run ...`
func runRun(cmd *cobra.Command, args []string) {
	opts := newOptions(cmd.Flags())

	reader := host.NewUnixReader()
	if rep, err := reader.Describe(); err == nil {
		fmt.Println(rep)
	}

	k := kernel.Boot(kernel.Config{})
	if opts.quantum != 0 {
		k.Sched.SetQuantum(opts.quantum)
	}
	k.SelfTest()
	spawnDemoTasks(k)

	stop := k.StartTimer(timerCadence)
	k.Shell()
	stop()

	if opts.debug {
		spew.Dump(k.Procs.Snapshot())
		spew.Dump(k.Mem.Stats())
	}
}

// runMem defines the behavior of running:
// `kacchi memory ...`
func runMem(cmd *cobra.Command, args []string) {
	opts := newOptions(cmd.Flags())
	k := bootQuiet(opts)

	out, err := createMemOutput(k, opts)
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed creating output for memory stats: %s", err))
	}
	output(out)
}

// runListProcesses defines the behavior of running:
// `kacchi process ls ...`
func runListProcesses(cmd *cobra.Command, args []string) {
	opts := newOptions(cmd.Flags())
	k := bootQuiet(opts)

	out, err := createListOutput(k.Procs.Snapshot(), opts)
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed creating output for process table: %s", err))
	}
	output(out)
}

// runSched defines the behavior of running:
// `kacchi scheduler ...`
func runSched(cmd *cobra.Command, args []string) {
	opts := newOptions(cmd.Flags())
	k := bootQuiet(opts)

	out, err := createSchedOutput(k, opts)
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed creating output for scheduler stats: %s", err))
	}
	output(out)
}

// runTest defines the behavior of running:
// `kacchi test`
func runTest(cmd *cobra.Command, args []string) {
	k := kernel.Boot(kernel.Config{})
	if !k.SelfTest() {
		outputErrorAndFail("self test failed")
	}
}

// runUI defines the behavior of running:
// `kacchi ui ...`
func runUI(cmd *cobra.Command, args []string) {
	opts := newOptions(cmd.Flags())
	k := bootQuiet(opts)

	stop := k.StartTimer(timerCadence)
	defer stop()

	view := ui.New(k)
	if err := view.RunUI(opts.address); err != nil {
		outputErrorAndFail(fmt.Sprintf("failed serving kernel state: %s", err))
	}
}

// bootQuiet boots a kernel against a buffer sink so kernel chatter stays out
// of the command's structured output, then spawns the demo task set and
// performs the first dispatch.
func bootQuiet(opts kacchiOpts) *kernel.Kernel {
	k := kernel.Boot(kernel.Config{Output: serial.NewBuffer()})
	if opts.quantum != 0 {
		k.Sched.SetQuantum(opts.quantum)
	}
	spawnDemoTasks(k)
	k.Step()
	return k
}

// spawnDemoTasks creates the boot-time task set: two resident tasks, one of
// each priority class, so the scheduler has something to interleave.
func spawnDemoTasks(k *kernel.Kernel) {
	k.Procs.Create(func() {}, 3)
	k.Procs.Create(func() {}, 5)
}

func output(out []byte) {
	fmt.Printf("%s", out)
}

func outputErrorAndFail(msg string) {
	fmt.Println(msg)
	// exit(1) is the catchall for general errors.
	os.Exit(1)
}

func createListOutput(infos []process.Info, opts kacchiOpts) ([]byte, error) {
	var out []byte
	switch opts.outType {
	case jsonOut:
		out, _ = json.Marshal(infos)
	default:
		out = createTableListOutput(infos)
	}

	return out, nil
}

func createTableListOutput(infos []process.Info) []byte {
	rows := [][]string{}
	for _, p := range infos {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(p.PID), 10),
			p.State,
			strconv.FormatUint(uint64(p.Priority), 10),
			strconv.FormatUint(uint64(p.Age), 10),
			strconv.FormatUint(uint64(p.Messages), 10),
		})
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"PID", "state", "priority", "age", "messages"})
	table.AppendBulk(rows)
	table.Render()
	return buf.Bytes()
}

func createMemOutput(k *kernel.Kernel, opts kacchiOpts) ([]byte, error) {
	stats := k.Mem.Stats()

	if opts.outType == jsonOut {
		out, err := json.Marshal(struct {
			mem.Stats
			HeapUsed uint32 `json:"heap_used"`
			HeapSize uint32 `json:"heap_size"`
		}{stats, k.Mem.HeapUsed(), mem.HeapSize})
		return out, err
	}

	rows := [][]string{
		{"total allocated", strconv.FormatUint(uint64(stats.TotalAllocated), 10)},
		{"total freed", strconv.FormatUint(uint64(stats.TotalFreed), 10)},
		{"heap allocations", strconv.FormatUint(uint64(stats.HeapAllocations), 10)},
		{"stack allocations", strconv.FormatUint(uint64(stats.StackAllocations), 10)},
		{"failed allocations", strconv.FormatUint(uint64(stats.FailedAllocations), 10)},
		{"heap used", strconv.FormatUint(uint64(k.Mem.HeapUsed()), 10)},
		{"heap size", strconv.FormatUint(uint64(mem.HeapSize), 10)},
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"counter", "value"})
	table.AppendBulk(rows)
	table.Render()
	return buf.Bytes(), nil
}

func createSchedOutput(k *kernel.Kernel, opts kacchiOpts) ([]byte, error) {
	if opts.outType == jsonOut {
		out, err := json.Marshal(struct {
			Ticks    uint32 `json:"ticks"`
			Switches uint32 `json:"context_switches"`
			Quantum  uint32 `json:"quantum"`
			Current  int    `json:"current_pid"`
		}{k.Sched.Ticks(), k.Sched.Switches(), k.Sched.Quantum(), k.Procs.CurrentPID()})
		return out, err
	}

	rows := [][]string{
		{"ticks", strconv.FormatUint(uint64(k.Sched.Ticks()), 10)},
		{"context switches", strconv.FormatUint(uint64(k.Sched.Switches()), 10)},
		{"quantum", strconv.FormatUint(uint64(k.Sched.Quantum()), 10)},
		{"current pid", strconv.Itoa(k.Procs.CurrentPID())},
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"counter", "value"})
	table.AppendBulk(rows)
	table.Render()
	return buf.Bytes(), nil
}
