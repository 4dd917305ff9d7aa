package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rivo/tview"

	"github.com/iconidentify/videosorter/internal/domain"
	"github.com/iconidentify/videosorter/pkg/drives"
)

// ServerView is what the server panel shows.
type ServerView struct {
	Running    bool
	UploadURL  string
	QRImageURL string
	HasToken   bool
}

func renderServer(v ServerView) string {
	var b strings.Builder
	if v.Running {
		b.WriteString("[green::b]RUNNING[white::-]\n\n")
	} else {
		b.WriteString("[red::b]STOPPED[white::-]\n\n")
	}
	if !v.HasToken {
		b.WriteString("[yellow]No session token[white]\n")
		return b.String()
	}
	b.WriteString("[white::b]Open on your phone:[white::-]\n")
	b.WriteString(fmt.Sprintf("[aqua]%s[white]\n\n", v.UploadURL))
	if v.QRImageURL != "" {
		b.WriteString("[white::b]QR code:[white::-]\n")
		b.WriteString(fmt.Sprintf("[dim]%s[white]\n", v.QRImageURL))
	}
	return b.String()
}

func renderVideos(videos []domain.Video, stats domain.StoreStats, limit int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[white::b]%d video(s)[white::-], %s\n",
		stats.TotalVideos, humanize.IBytes(uint64(stats.TotalSize))))
	for _, c := range domain.Categories() {
		if n := stats.ByCategory[c]; n > 0 {
			b.WriteString(fmt.Sprintf("  %-11s %d\n", c, n))
		}
	}
	b.WriteString("\n")

	if len(videos) == 0 {
		b.WriteString("[yellow]No uploads yet[white]")
		return b.String()
	}
	for i, v := range videos {
		if i == limit {
			b.WriteString(fmt.Sprintf("[dim]... %d more[white]\n", len(videos)-limit))
			break
		}
		mark := " "
		if v.IsExported() {
			mark = "[green]✓[white]"
		}
		b.WriteString(fmt.Sprintf("%s %s [dim](%s, %s)[white]\n",
			mark, tview.Escape(truncateString(v.Filename, 40)), v.Category, humanize.IBytes(uint64(v.Size))))
	}
	return b.String()
}

// driveLine is the main text of a drive entry.
func driveLine(d drives.Drive) string {
	label := d.Label
	if label == "" {
		label = d.Device
	}
	if d.Removable {
		return label + " (removable)"
	}
	return label
}

// driveDetail is the secondary text of a drive entry.
func driveDetail(d drives.Drive) string {
	if d.SizeBytes <= 0 {
		return d.Path
	}
	return fmt.Sprintf("%s  %s free of %s", d.Path,
		humanize.IBytes(uint64(max(d.FreeBytes, 0))), humanize.IBytes(uint64(d.SizeBytes)))
}

func renderExport(st domain.ExportStatus) string {
	var b strings.Builder
	switch st.Phase {
	case domain.PhaseExporting:
		b.WriteString(fmt.Sprintf("[yellow::b]Exporting[white::-] to %s\n", st.Destination))
		if p := st.Progress; p != nil {
			b.WriteString(fmt.Sprintf("%s %d%% (%d/%d)\n", progressBar(p.Percent, 20), p.Percent, p.Completed, p.Total))
			b.WriteString(fmt.Sprintf("[dim]%s %s[white]\n", p.Type, tview.Escape(p.Filename)))
		}
	case domain.PhaseCompleted, domain.PhaseAborted, domain.PhaseFailed:
		color := "green"
		if st.Phase != domain.PhaseCompleted {
			color = "red"
		}
		b.WriteString(fmt.Sprintf("[%s::b]%s[white::-]\n", color, strings.ToUpper(string(st.Phase))))
		if r := st.LastResult; r != nil {
			b.WriteString(fmt.Sprintf("copied %d, skipped %d, failed %d (%s)\n",
				len(r.Copied), len(r.Skipped), len(r.Failed), humanize.IBytes(uint64(r.TotalSize))))
			if r.Error != "" {
				b.WriteString(fmt.Sprintf("[red]%s[white]\n", r.Error))
			}
		}
	default:
		b.WriteString("[dim]Idle. Select a drive and press Enter to export.[white]")
	}
	return b.String()
}

func renderEvent(ev domain.Event) string {
	color := "white"
	switch ev.Severity {
	case domain.EventSeverityWarning:
		color = "yellow"
	case domain.EventSeverityError:
		color = "red"
	case domain.EventSeveritySuccess:
		color = "green"
	}
	return fmt.Sprintf("[dim]%s[white] [%s]%-15s[white] %s",
		ev.Timestamp.Local().Format(time.TimeOnly), color, ev.Type, tview.Escape(ev.Message))
}

func progressBar(percent, width int) string {
	percent = min(max(percent, 0), 100)
	filled := percent * width / 100
	return tview.Escape("[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]")
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
