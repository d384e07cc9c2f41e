package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kansho/kansho/internal/downloads"
)

func (model *Model) updateDownloads(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch key.String() {
	case "esc", "q":
		model.state = stateMenu
		return nil
	case "up", "k":
		if model.taskIndex > 0 {
			model.taskIndex--
		}
		return nil
	case "down", "j":
		if model.taskIndex < len(model.tasks)-1 {
			model.taskIndex++
		}
		return nil
	case "p":
		if task, ok := model.selectedTask(); ok {
			model.downloads.Pause(task.ID)
		}
		return nil
	case "r":
		if task, ok := model.selectedTask(); ok {
			model.downloads.Resume(task.ID)
		}
		return nil
	case "x":
		if task, ok := model.selectedTask(); ok {
			model.downloads.Cancel(task.ID)
		}
		return nil
	}

	return nil
}

func (model *Model) selectedTask() (downloads.Task, bool) {
	if model.taskIndex < 0 || model.taskIndex >= len(model.tasks) {
		return downloads.Task{}, false
	}
	return model.tasks[model.taskIndex], true
}

func (model Model) downloadsView() string {
	lines := []string{titleStyle.Render("Download Queue")}

	if len(model.tasks) == 0 {
		lines = append(lines, secondaryStyle.Render("Queue is empty."))
	}
	for index, task := range model.tasks {
		cursor := " "
		if index == model.taskIndex {
			cursor = ">"
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", cursor, renderStatus(task.Status), describeTask(task)))
	}

	lines = append(lines, secondaryStyle.Render("p pause · r resume · x cancel · esc back"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func describeTask(task downloads.Task) string {
	label := fmt.Sprintf("%s/%s", task.MangaID, task.ChapterID)
	switch task.Status {
	case downloads.StatusDownloading:
		return fmt.Sprintf("%s %3d%% (%d/%d pages)", label, task.Progress, task.DownloadedPages, task.TotalPages)
	case downloads.StatusPaused:
		return fmt.Sprintf("%s paused at %d/%d pages", label, task.DownloadedPages, task.TotalPages)
	case downloads.StatusFailed:
		return fmt.Sprintf("%s: %s", label, task.Error)
	case downloads.StatusCompleted:
		return fmt.Sprintf("%s (%d pages)", label, task.TotalPages)
	default:
		return label
	}
}

func renderStatus(status downloads.Status) string {
	switch status {
	case downloads.StatusCompleted:
		return doneStyle.Render("[done]")
	case downloads.StatusFailed:
		return warningStyle.Render("[fail]")
	case downloads.StatusDownloading:
		return activeStyle.Render("[busy]")
	case downloads.StatusPaused:
		return secondaryStyle.Render("[wait]")
	default:
		return secondaryStyle.Render("[next]")
	}
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

var (
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)
