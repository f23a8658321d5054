package app

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjregee/aip/internal/models"
	"github.com/zjregee/aip/internal/service/hub"
)

var (
	errorLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	printLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	infoLineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// printer writes hub events to the terminal until stopped.
type printer struct {
	out  io.Writer
	done chan struct{}
}

func startPrinter(h *hub.Hub, out io.Writer) (stop func()) {
	events, unsubscribe := h.Subscribe()
	p := &printer{out: out, done: make(chan struct{})}

	go func() {
		defer close(p.done)
		for ev := range events {
			p.print(ev)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			<-p.done
		})
	}
}

func (p *printer) print(ev models.HubEvent) {
	if line, ok := renderEvent(ev); ok {
		fmt.Fprintln(p.out, line)
	}
}

// renderEvent turns an event into one terminal line. Store change
// notifications have no line.
func renderEvent(ev models.HubEvent) (string, bool) {
	switch e := ev.(type) {
	case models.HubMessage:
		return formatDisplay(e.Content), true
	case models.HubInfoShort:
		return infoLineStyle.Render(e.Content), true
	case models.HubError:
		return errorLineStyle.Render("Error: " + e.Error), true
	case models.HubLuaPrint:
		return printLineStyle.Render(formatDisplay(e.Content)), true
	default:
		return "", false
	}
}
