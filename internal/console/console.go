// Package console provides the terminal dashboard shown next to the
// upload server: the phone link, tracked videos, detected drives, export
// progress and a live activity feed.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/iconidentify/videosorter/internal/api"
	"github.com/iconidentify/videosorter/internal/domain"
	"github.com/iconidentify/videosorter/internal/service"
	"github.com/iconidentify/videosorter/internal/session"
	"github.com/iconidentify/videosorter/pkg/drives"
)

// maxEventLines bounds the activity feed.
const maxEventLines = 200

// videoLimit is how many videos the list panel shows.
const videoLimit = 50

// ServerControl is the upload server as seen by the console.
type ServerControl interface {
	Start() (api.Address, error)
	Stop(ctx context.Context) error
	Running() bool
	LocalIP() string
	Port() int
}

// Deps are the collaborators the dashboard reads from and drives.
type Deps struct {
	Server  ServerControl
	Gate    *session.Gate
	QRImage func(data string) string
	Videos  *service.VideoService
	Exports *service.ExportService
	Drives  service.DriveSource
	Events  *service.EventService
	Logger  *slog.Logger
}

// App is the terminal dashboard.
type App struct {
	deps   Deps
	logger *slog.Logger
	app    *tview.Application

	header     *tview.TextView
	serverBox  *tview.TextView
	videosBox  *tview.TextView
	drivesList *tview.List
	exportBox  *tview.TextView
	eventsBox  *tview.TextView
	statusBar  *tview.TextView
	footer     *tview.TextView

	mu         sync.Mutex
	driveSnap  []drives.Drive
	eventLines int
	stopOnce   sync.Once
	cancel     context.CancelFunc
}

// New creates the dashboard. Call Run to take over the terminal.
func New(deps Deps) *App {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		deps:   deps,
		logger: logger,
		app:    tview.NewApplication(),
	}
	a.setupUI()
	return a
}

func (a *App) setupUI() {
	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("\n[white::b]Video Sorter[white::-]")
	a.header.SetBackgroundColor(tcell.ColorDarkBlue)

	a.serverBox = tview.NewTextView().SetDynamicColors(true).SetWordWrap(true)
	a.serverBox.SetBorder(true).SetTitle(" Upload Server ")

	a.videosBox = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	a.videosBox.SetBorder(true).SetTitle(" Videos ")

	a.drivesList = tview.NewList().ShowSecondaryText(true)
	a.drivesList.SetBorder(true).SetTitle(" Drives ")
	a.drivesList.SetSelectedFunc(func(i int, _, _ string, _ rune) {
		a.exportTo(i)
	})

	a.exportBox = tview.NewTextView().SetDynamicColors(true)
	a.exportBox.SetBorder(true).SetTitle(" Export ")

	a.eventsBox = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(maxEventLines)
	a.eventsBox.SetBorder(true).SetTitle(" Activity ")

	a.statusBar = tview.NewTextView().SetDynamicColors(true)
	a.statusBar.SetBackgroundColor(tcell.ColorDarkGreen)

	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[yellow]Enter[white]:Export to drive [yellow]a[white]:Abort export [yellow]s[white]:Start/Stop server [yellow]r[white]:Refresh [yellow]q[white]:Quit")
	a.footer.SetBackgroundColor(tcell.ColorDarkBlue)

	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.serverBox, 0, 1, false).
		AddItem(a.drivesList, 0, 1, true).
		AddItem(a.exportBox, 7, 0, false)

	top := tview.NewFlex().
		AddItem(left, 0, 1, true).
		AddItem(a.videosBox, 0, 1, false)

	main := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 3, 0, false).
		AddItem(top, 0, 3, true).
		AddItem(a.eventsBox, 0, 1, false).
		AddItem(a.statusBar, 1, 0, false).
		AddItem(a.footer, 1, 0, false)

	a.app.SetInputCapture(a.handleKeys)
	a.app.SetRoot(main, true).SetFocus(a.drivesList)
}

func (a *App) handleKeys(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			a.Stop()
			return nil
		case 'r', 'R':
			a.refresh()
			return nil
		case 'a', 'A':
			go a.abortExport()
			return nil
		case 's', 'S':
			go a.toggleServer()
			return nil
		}
	case tcell.KeyCtrlC:
		a.Stop()
		return nil
	}
	return event
}

// Run draws the dashboard and blocks until the user quits or ctx ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	defer cancel()

	subID, events := a.deps.Events.Subscribe()
	defer a.deps.Events.Unsubscribe(subID)

	recent := a.deps.Events.GetRecent(maxEventLines)
	for i := len(recent) - 1; i >= 0; i-- {
		a.appendEvent(recent[i])
	}
	a.refresh()

	go a.pump(ctx, events)
	go func() {
		<-ctx.Done()
		a.app.Stop()
	}()

	return a.app.Run()
}

// Stop closes the dashboard.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		a.app.Stop()
	})
}

// pump applies pushed events to the panels until ctx ends.
func (a *App) pump(ctx context.Context, events <-chan domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.app.QueueUpdateDraw(func() {
				a.appendEvent(ev)
				a.applyEvent(ev)
			})
		}
	}
}

func (a *App) appendEvent(ev domain.Event) {
	fmt.Fprintln(a.eventsBox, renderEvent(ev))
	a.eventsBox.ScrollToEnd()
}

// applyEvent redraws only the panels the event affects.
func (a *App) applyEvent(ev domain.Event) {
	switch ev.Type {
	case domain.EventVideoAdded, domain.EventVideoUpdated, domain.EventVideoDeleted:
		a.drawVideos()
	case domain.EventDrivesChanged:
		a.drawDrives()
	case domain.EventExportProgress:
		a.drawExport()
	case domain.EventExportComplete:
		a.drawExport()
		a.drawVideos()
	case domain.EventServerStarted, domain.EventServerStopped:
		a.drawServer()
	}
}

// refresh redraws every panel. It must run on the UI goroutine or before Run.
func (a *App) refresh() {
	a.drawServer()
	a.drawVideos()
	a.drawDrives()
	a.drawExport()
	a.setStatus("[green]Ready")
}

func (a *App) drawServer() {
	srv := a.deps.Server
	link := a.deps.Gate.UploadURL(srv.LocalIP(), srv.Port())
	view := ServerView{
		Running:   srv.Running(),
		UploadURL: link,
		HasToken:  a.deps.Gate.Info().HasToken,
	}
	if a.deps.QRImage != nil {
		view.QRImageURL = a.deps.QRImage(link)
	}
	a.serverBox.SetText(renderServer(view))
}

func (a *App) drawVideos() {
	videos := a.deps.Videos.List(domain.VideoFilter{})
	a.videosBox.SetText(renderVideos(videos, a.deps.Videos.Stats(), videoLimit))
}

func (a *App) drawDrives() {
	list := a.deps.Drives.Drives()

	a.mu.Lock()
	a.driveSnap = list
	a.mu.Unlock()

	current := a.drivesList.GetCurrentItem()
	a.drivesList.Clear()
	if len(list) == 0 {
		a.drivesList.AddItem("No drives detected", "Insert a USB drive to export", 0, nil)
		return
	}
	for i, d := range list {
		shortcut := rune(0)
		if i < 9 {
			shortcut = rune('1' + i)
		}
		a.drivesList.AddItem(tview.Escape(driveLine(d)), tview.Escape(driveDetail(d)), shortcut, nil)
	}
	if current < len(list) {
		a.drivesList.SetCurrentItem(current)
	}
}

func (a *App) drawExport() {
	a.exportBox.SetText(renderExport(a.deps.Exports.Status()))
}

func (a *App) setStatus(msg string) {
	a.statusBar.SetText(fmt.Sprintf(" %s | %s", msg, time.Now().Format(time.TimeOnly)))
}

// exportTo starts an export of every tracked video to the i-th drive.
func (a *App) exportTo(i int) {
	a.mu.Lock()
	var drive drives.Drive
	ok := i >= 0 && i < len(a.driveSnap)
	if ok {
		drive = a.driveSnap[i]
	}
	a.mu.Unlock()
	if !ok {
		return
	}

	id, err := a.deps.Exports.StartExportAsync(service.ExportRequest{DriveID: drive.Device})
	if err != nil {
		a.logger.Warn("console export not started", "drive", drive.Device, "error", err)
		a.setStatus(fmt.Sprintf("[red]Export not started: %s", tview.Escape(err.Error())))
		return
	}
	a.setStatus(fmt.Sprintf("[yellow]Export %s started to %s", id[:8], tview.Escape(driveLine(drive))))
	a.drawExport()
}

func (a *App) abortExport() {
	msg := "[yellow]Abort requested"
	if err := a.deps.Exports.Abort(); err != nil {
		msg = "[red]" + err.Error()
	}
	a.app.QueueUpdateDraw(func() { a.setStatus(msg) })
}

func (a *App) toggleServer() {
	srv := a.deps.Server
	var msg string
	if srv.Running() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := srv.Stop(ctx)
		cancel()
		if err != nil {
			msg = "[red]Stop failed: " + tview.Escape(err.Error())
		} else {
			msg = "[yellow]Server stopped"
			a.deps.Events.Publish(domain.EventServerStopped, domain.EventSeverityWarning, "Upload server stopped", nil)
		}
	} else {
		addr, err := srv.Start()
		if err != nil {
			msg = "[red]Start failed: " + tview.Escape(err.Error())
		} else {
			msg = "[green]Server started"
			a.deps.Events.Publish(domain.EventServerStarted, domain.EventSeveritySuccess,
				fmt.Sprintf("Upload server listening on %s:%d", addr.IP, addr.Port), addr)
		}
	}
	a.app.QueueUpdateDraw(func() {
		a.setStatus(msg)
		a.drawServer()
	})
}
