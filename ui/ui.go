// ui serves a small web view over a booted kernel: the process table, the
// memory counters, and the scheduler counters, with a refresh that reruns
// nothing — it simply re-reads the live state.
package ui

import (
	"html/template"
	"log"
	"net/http"
	"sync"

	"github.com/kacchios/kacchi/kernel"
	"github.com/kacchios/kacchi/mem"
	"github.com/kacchios/kacchi/process"
)

const DefaultAddress = ":8080"

type UI struct {
	kern        *kernel.Kernel
	refreshLock sync.Mutex
	tmpl        *template.Template
}

// Data is what the index template renders.
type Data struct {
	Processes []process.Info
	Memory    mem.Stats
	HeapUsed  uint32
	HeapSize  uint32
	Ticks     uint32
	Switches  uint32
	Quantum   uint32
}

func New(k *kernel.Kernel) *UI {
	return &UI{
		kern: k,
		tmpl: template.Must(template.New("index").Parse(indexTemplate)),
	}
}

// RunUI serves the view at the given address. It blocks.
func (ui *UI) RunUI(address string) error {
	if address == "" {
		address = DefaultAddress
	}
	http.HandleFunc("/", ui.handleIndex)

	log.Printf("serving kernel state at %s", address)
	return http.ListenAndServe(address, nil)
}

func (ui *UI) handleIndex(w http.ResponseWriter, r *http.Request) {
	ui.refreshLock.Lock()
	data := Data{
		Processes: ui.kern.Procs.Snapshot(),
		Memory:    ui.kern.Mem.Stats(),
		HeapUsed:  ui.kern.Mem.HeapUsed(),
		HeapSize:  mem.HeapSize,
		Ticks:     ui.kern.Sched.Ticks(),
		Switches:  ui.kern.Sched.Switches(),
		Quantum:   ui.kern.Sched.Quantum(),
	}
	ui.refreshLock.Unlock()

	if err := ui.tmpl.Execute(w, data); err != nil {
		log.Printf("failed rendering kernel state: %s", err)
	}
}

const indexTemplate = `<!DOCTYPE html>
<html>
<head><title>kacchi</title></head>
<body>
<h1>kacchi kernel</h1>
<h2>Processes</h2>
<table border="1" cellpadding="4">
<tr><th>PID</th><th>State</th><th>Priority</th><th>Age</th><th>Messages</th></tr>
{{range .Processes}}
<tr><td>{{.PID}}</td><td>{{.State}}</td><td>{{.Priority}}</td><td>{{.Age}}</td><td>{{.Messages}}</td></tr>
{{end}}
</table>
<h2>Memory</h2>
<p>heap used {{.HeapUsed}} / {{.HeapSize}} bytes,
allocated {{.Memory.TotalAllocated}}, freed {{.Memory.TotalFreed}},
failed {{.Memory.FailedAllocations}}</p>
<h2>Scheduler</h2>
<p>ticks {{.Ticks}}, switches {{.Switches}}, quantum {{.Quantum}}</p>
</body>
</html>
`
