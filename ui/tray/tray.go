// Package tray is the system tray control surface. It owns no detection
// logic; every click maps onto a controller call and the status line is
// re-rendered from the controller snapshot.
package tray

import (
	"log/slog"
	"time"

	"github.com/getlantern/systray"

	"github.com/soocke/sprint-bot-go/domain/sprint"
)

// App wires the tray menu to the detection controller.
type App struct {
	ctrl   *sprint.Controller
	icon   []byte
	logger *slog.Logger

	statusItem *systray.MenuItem
	toggleItem *systray.MenuItem
	quit       chan struct{}
}

func New(ctrl *sprint.Controller, icon []byte, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{ctrl: ctrl, icon: icon, logger: logger, quit: make(chan struct{})}
}

// Run blocks until the user quits from the menu. onExit runs during tray
// teardown, after the controller has been stopped.
func (a *App) Run(onExit func()) {
	systray.Run(a.onReady, func() {
		close(a.quit)
		a.ctrl.Stop()
		if onExit != nil {
			onExit()
		}
		a.logger.Info("tray shut down")
	})
}

func (a *App) onReady() {
	systray.SetTitle("Sprint Bot")
	systray.SetTooltip(a.ctrl.StatusString())
	if len(a.icon) > 0 {
		systray.SetIcon(a.icon)
	}

	a.statusItem = systray.AddMenuItem("Status: Stopped", "Current detection status")
	a.statusItem.Disable()

	systray.AddSeparator()
	a.toggleItem = systray.AddMenuItem("Pause", "Pause or resume detection")
	systray.AddSeparator()
	quitItem := systray.AddMenuItem("Quit", "Quit the application")

	go a.handleEvents(quitItem)
	go a.refreshLoop()

	a.ctrl.Start()
	a.logger.Info("tray initialized")
}

func (a *App) handleEvents(quitItem *systray.MenuItem) {
	for {
		select {
		case <-a.quit:
			return
		case <-a.toggleItem.ClickedCh:
			a.ctrl.Toggle()
			a.refresh()
		case <-quitItem.ClickedCh:
			a.logger.Info("quit requested from tray")
			systray.Quit()
			return
		}
	}
}

// refreshLoop keeps the status line in sync with transitions and pauses
// that happen outside of menu clicks, such as the auto-pause paths. It
// exits on teardown so no menu updates land after systray.Quit.
func (a *App) refreshLoop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-a.quit:
			return
		case <-ticker.C:
			a.refresh()
		}
	}
}

func (a *App) refresh() {
	status := a.ctrl.Status()
	a.statusItem.SetTitle("Status: " + a.ctrl.StatusString())
	systray.SetTooltip(a.ctrl.StatusString())
	switch status.Run {
	case sprint.RunRunning:
		a.toggleItem.SetTitle("Pause")
		a.toggleItem.Enable()
	case sprint.RunPaused:
		a.toggleItem.SetTitle("Resume")
		a.toggleItem.Enable()
	default:
		a.toggleItem.Disable()
	}
}
