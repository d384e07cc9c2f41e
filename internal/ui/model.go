package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kansho/kansho/internal/config"
	"github.com/kansho/kansho/internal/downloads"
	"github.com/kansho/kansho/internal/library"
	"github.com/kansho/kansho/internal/providers/manga"
)

type appState int

const (
	stateMenu appState = iota
	stateSources
	stateMangaQuery
	stateMangaSearching
	stateMangaResults
	stateMangaLoadingChapters
	stateMangaChapters
	stateDownloads
	stateHistory
	stateSettings
	stateAbout
)

type menuItem struct {
	title       string
	description string
	action      appState
}

func (item menuItem) Title() string       { return item.title }
func (item menuItem) Description() string { return item.description }
func (item menuItem) FilterValue() string { return item.title }

type sourceItem struct {
	info manga.SourceInfo
}

func (item sourceItem) Title() string       { return item.info.Name }
func (item sourceItem) Description() string { return item.info.Locale + " · " + item.info.ContentType }
func (item sourceItem) FilterValue() string { return item.info.Name }

type mangaResultItem struct {
	summary manga.Summary
}

func (item mangaResultItem) Title() string { return item.summary.Title }
func (item mangaResultItem) Description() string {
	if item.summary.CoverURL != "" {
		return "Cover available"
	}
	return item.summary.ID
}
func (item mangaResultItem) FilterValue() string { return item.summary.Title }

type chapterItem struct {
	chapter manga.Chapter
}

func (item chapterItem) Title() string       { return manga.FormatChapterLabel(item.chapter) }
func (item chapterItem) Description() string { return "" }
func (item chapterItem) FilterValue() string { return manga.FormatChapterLabel(item.chapter) }

type mangaSearchMsg struct {
	results []manga.Summary
	err     error
}

type chaptersMsg struct {
	chapters []manga.Chapter
	err      error
}

// TasksMsg carries a queue snapshot; the composition root bridges the
// download manager's subscription into the program with it.
type TasksMsg []downloads.Task

type usageMsg struct {
	usage downloads.Usage
	err   error
}

type backupMsg struct {
	path string
	err  error
}

type logMsg string

type Dependencies struct {
	Sources   *manga.Registry
	Downloads *downloads.Manager
	Library   *library.Service
}

type Model struct {
	state appState

	config    config.Config
	sources   *manga.Registry
	downloads *downloads.Manager
	library   *library.Service

	source manga.Source

	menu        list.Model
	sourceList  list.Model
	textInput   textinput.Model
	resultsList list.Model
	chapterList list.Model

	chapterMarks  map[int]bool
	selectedManga manga.Summary
	chapters      []manga.Chapter

	tasks     []downloads.Task
	taskIndex int
	usage     downloads.Usage

	spinner spinner.Model

	settings     settingsModel
	returnState  appState
	errorMessage string
	infoMessage  string

	width  int
	height int

	logChannel chan logMsg
	logLines   []string
	verbose    bool
}

type settingsModel struct {
	inputs    []textinput.Model
	focus     int
	errorText string
	infoText  string
}

func NewModel(cfg config.Config, deps Dependencies) Model {
	spinnerModel := spinner.New()
	spinnerModel.Spinner = spinner.Dot

	model := Model{
		state:        stateMenu,
		config:       cfg,
		sources:      deps.Sources,
		downloads:    deps.Downloads,
		library:      deps.Library,
		menu:         newMenuList(0, 0),
		sourceList:   newSourceList(deps.Sources.List(), 0, 0),
		textInput:    newQueryInput(),
		resultsList:  list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0),
		chapterList:  list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0),
		chapterMarks: map[int]bool{},
		spinner:      spinnerModel,
		verbose:      cfg.Verbose,
	}

	if sources := deps.Sources.List(); len(sources) > 0 {
		if source, ok := deps.Sources.Get(sources[0].ID); ok {
			model.source = source
		}
	}
	if deps.Downloads != nil {
		model.tasks = deps.Downloads.Tasks()
	}

	if model.verbose {
		model.logChannel = make(chan logMsg, 200)
		log.SetFlags(log.LstdFlags)
		log.SetOutput(logWriter{channel: model.logChannel})
	}

	return model
}

func (model Model) Init() tea.Cmd {
	if model.verbose {
		return listenLogCmd(model.logChannel)
	}
	return nil
}

func (model Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		model.width = msg.Width
		model.height = msg.Height
		model.menu.SetSize(msg.Width-4, listHeight(msg.Height))
		model.sourceList.SetSize(msg.Width-4, listHeight(msg.Height))
		model.resultsList.SetSize(msg.Width-4, listHeight(msg.Height))
		model.chapterList.SetSize(msg.Width-4, listHeight(msg.Height))
		return model, nil
	case mangaSearchMsg:
		if msg.err != nil {
			model.state = stateMangaQuery
			model.errorMessage = msg.err.Error()
			return model, nil
		}
		model.resultsList = newMangaResultsList(msg.results, model.width-4, listHeight(model.height))
		model.state = stateMangaResults
		return model, nil
	case chaptersMsg:
		if msg.err != nil {
			model.state = stateMangaResults
			model.errorMessage = msg.err.Error()
			return model, nil
		}
		model.chapters = msg.chapters
		model.chapterList, model.chapterMarks = newChapterList(msg.chapters, model.width-4, listHeight(model.height))
		model.state = stateMangaChapters
		return model, nil
	case TasksMsg:
		model.tasks = msg
		if model.taskIndex >= len(model.tasks) {
			model.taskIndex = len(model.tasks) - 1
		}
		if model.taskIndex < 0 {
			model.taskIndex = 0
		}
		return model, nil
	case usageMsg:
		if msg.err != nil {
			model.settings.errorText = msg.err.Error()
			return model, nil
		}
		model.usage = msg.usage
		return model, nil
	case backupMsg:
		if msg.err != nil {
			model.settings.errorText = msg.err.Error()
			return model, nil
		}
		model.settings.infoText = "Backup written to " + msg.path
		return model, nil
	case logMsg:
		if model.verbose {
			model.logLines = append(model.logLines, string(msg))
			if len(model.logLines) > 6 {
				model.logLines = model.logLines[len(model.logLines)-6:]
			}
			return model, listenLogCmd(model.logChannel)
		}
		return model, nil
	}

	return model.handleStateUpdate(msg)
}

func (model *Model) handleStateUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch model.state {
	case stateMenu:
		return *model, model.updateMenu(msg)
	case stateSources:
		return *model, model.updateSources(msg)
	case stateMangaQuery:
		return *model, model.updateMangaQuery(msg)
	case stateMangaSearching, stateMangaLoadingChapters:
		var spinnerCmd tea.Cmd
		model.spinner, spinnerCmd = model.spinner.Update(msg)
		return *model, spinnerCmd
	case stateMangaResults:
		return *model, model.updateMangaResults(msg)
	case stateMangaChapters:
		return *model, model.updateMangaChapters(msg)
	case stateDownloads:
		return *model, model.updateDownloads(msg)
	case stateHistory, stateAbout:
		return *model, model.updateInfoScreens(msg)
	case stateSettings:
		return *model, model.updateSettings(msg)
	default:
		return *model, nil
	}
}

func (model Model) View() string {
	view := ""

	switch model.state {
	case stateMenu:
		lines := []string{
			titleStyle.Render("Kansho"),
			model.menu.View(),
		}
		if model.infoMessage != "" {
			lines = append(lines, secondaryStyle.Render(model.infoMessage))
		}
		lines = append(lines, secondaryStyle.Render("Enter to select · d downloads · q quit"))
		view = lipgloss.JoinVertical(lipgloss.Left, lines...)
	case stateSources:
		view = lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Sources"),
			model.sourceList.View(),
			secondaryStyle.Render("Enter to select · esc to back"),
		)
	case stateMangaQuery:
		lines := []string{
			titleStyle.Render(fmt.Sprintf("Search %s", model.sourceName())),
			model.textInput.View(),
		}
		if model.errorMessage != "" {
			lines = append(lines, warningStyle.Render(model.errorMessage))
		}
		lines = append(lines, secondaryStyle.Render("Enter to search · esc to cancel"))
		view = lipgloss.JoinVertical(lipgloss.Left, lines...)
	case stateMangaSearching:
		view = fmt.Sprintf("%s Searching %s...", model.spinner.View(), model.sourceName())
	case stateMangaResults:
		lines := []string{
			titleStyle.Render("Select Manga"),
			model.resultsList.View(),
		}
		if model.errorMessage != "" {
			lines = append(lines, warningStyle.Render(model.errorMessage))
		}
		lines = append(lines, secondaryStyle.Render("Enter to select · esc to back"))
		view = lipgloss.JoinVertical(lipgloss.Left, lines...)
	case stateMangaLoadingChapters:
		view = fmt.Sprintf("%s Fetching chapters...", model.spinner.View())
	case stateMangaChapters:
		lines := []string{
			titleStyle.Render(model.selectedManga.Title),
			model.chapterList.View(),
		}
		if model.errorMessage != "" {
			lines = append(lines, warningStyle.Render(model.errorMessage))
		}
		if model.infoMessage != "" {
			lines = append(lines, secondaryStyle.Render(model.infoMessage))
		}
		lines = append(lines, secondaryStyle.Render("Space to toggle · Enter to queue downloads · esc to back"))
		view = lipgloss.JoinVertical(lipgloss.Left, lines...)
	case stateDownloads:
		view = model.downloadsView()
	case stateHistory:
		view = model.historyView()
	case stateSettings:
		view = model.settingsView()
	case stateAbout:
		view = lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("About"),
			"Kansho: a terminal manga reader with offline downloads.",
			secondaryStyle.Render("Press esc to go back"),
		)
	}

	if model.verbose {
		view = lipgloss.JoinVertical(lipgloss.Left, view, model.logView())
	}

	return view
}

func (model *Model) updateMenu(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	model.menu, cmd = model.menu.Update(msg)
	model.errorMessage = ""

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return cmd
	}

	switch key.String() {
	case "enter":
		if selected, ok := model.menu.SelectedItem().(menuItem); ok {
			return model.enterState(selected.action)
		}
	case "d":
		return model.enterState(stateDownloads)
	case "q", "ctrl+c":
		return tea.Quit
	}

	return cmd
}

func (model *Model) enterState(next appState) tea.Cmd {
	model.infoMessage = ""
	model.errorMessage = ""

	switch next {
	case stateMangaQuery:
		model.textInput = newQueryInput()
		model.textInput.Focus()
	case stateSettings:
		model.settings = newSettingsModel(model.config)
		model.returnState = model.state
		model.state = stateSettings
		return storageUsageCmd(model.downloads)
	case stateDownloads:
		model.taskIndex = 0
	}

	model.state = next
	return nil
}

func (model *Model) updateSources(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	model.sourceList, cmd = model.sourceList.Update(msg)

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return cmd
	}

	switch key.String() {
	case "esc":
		model.state = stateMenu
		return nil
	case "enter":
		if selected, ok := model.sourceList.SelectedItem().(sourceItem); ok {
			if source, found := model.sources.Get(selected.info.ID); found {
				model.source = source
				return model.enterState(stateMangaQuery)
			}
		}
	}

	return cmd
}

func (model *Model) updateMangaQuery(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if ok && key.String() == "esc" {
		model.state = stateMenu
		return nil
	}
	if ok && key.String() != "enter" {
		model.errorMessage = ""
	}

	var cmd tea.Cmd
	model.textInput, cmd = model.textInput.Update(msg)
	if ok && key.String() == "enter" {
		query := strings.TrimSpace(model.textInput.Value())
		if query == "" {
			model.errorMessage = "Search query cannot be empty"
			return nil
		}
		model.state = stateMangaSearching
		model.errorMessage = ""
		return searchMangaCmd(model.source, query)
	}

	return cmd
}

func (model *Model) updateMangaResults(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	model.resultsList, cmd = model.resultsList.Update(msg)
	model.errorMessage = ""

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return cmd
	}

	switch key.String() {
	case "esc":
		model.state = stateMenu
		return nil
	case "enter":
		if selected, ok := model.resultsList.SelectedItem().(mangaResultItem); ok {
			model.selectedManga = selected.summary
			model.state = stateMangaLoadingChapters
			return fetchChaptersCmd(model.source, selected.summary.ID)
		}
	}

	return cmd
}

func (model *Model) updateMangaChapters(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if ok {
		switch key.String() {
		case "esc":
			model.state = stateMangaResults
			return nil
		case " ":
			model.errorMessage = ""
			index := model.chapterList.Index()
			model.chapterMarks[index] = !model.chapterMarks[index]
			return nil
		case "enter":
			selected := selectedChapters(model.chapterList.Items(), model.chapterMarks)
			if len(selected) == 0 {
				model.errorMessage = "Select at least one chapter"
				return nil
			}
			model.errorMessage = ""
			model.queueChapters(selected)
			model.infoMessage = fmt.Sprintf("Queued %d chapter(s); press d for the download queue", len(selected))
			return nil
		}
	}

	var cmd tea.Cmd
	model.chapterList, cmd = model.chapterList.Update(msg)
	return cmd
}

func (model *Model) queueChapters(chapters []manga.Chapter) {
	if model.downloads == nil || model.source == nil {
		model.errorMessage = "downloads unavailable"
		return
	}
	sourceID := model.source.Info().ID
	for _, chapter := range chapters {
		model.downloads.Queue(sourceID, model.selectedManga.ID, chapter.ID)
	}
	if model.library != nil {
		model.library.RecordRead(library.HistoryEntry{
			SourceID:     sourceID,
			MangaID:      model.selectedManga.ID,
			ChapterID:    chapters[0].ID,
			MangaTitle:   model.selectedManga.Title,
			ChapterLabel: manga.FormatChapterLabel(chapters[0]),
		})
	}
}

func (model *Model) updateInfoScreens(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if ok && (key.String() == "esc" || key.String() == "q") {
		model.state = stateMenu
		return nil
	}
	return nil
}

func (model *Model) updateSettings(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if ok {
		if key.String() != "c" && key.String() != "e" {
			model.settings.infoText = ""
		}
		switch key.String() {
		case "esc":
			model.state = model.returnState
			return nil
		case "tab", "shift+tab":
			model.settings.focus = updateSettingsFocus(key.String(), model.settings.focus, len(model.settings.inputs))
			model.settings = applySettingsFocus(model.settings)
			return nil
		case "enter":
			return model.saveSettings()
		case "c":
			if err := model.downloads.ClearCache(); err != nil {
				model.settings.errorText = err.Error()
				return nil
			}
			model.settings.errorText = ""
			model.settings.infoText = "Cache cleared."
			return storageUsageCmd(model.downloads)
		case "e":
			return exportBackupCmd(model.downloads, model.library)
		}
	}

	var cmd tea.Cmd
	current := &model.settings.inputs[model.settings.focus]
	*current, cmd = current.Update(msg)
	return cmd
}

func (model *Model) saveSettings() tea.Cmd {
	updated := buildConfigFromSettings(model.config, model.settings.inputs)

	if err := config.SaveConfig(updated); err != nil {
		model.settings.errorText = err.Error()
		return nil
	}

	model.config = updated
	model.settings.errorText = ""
	model.settings.infoText = "Saved. Source changes take effect on restart."
	return nil
}

func (model Model) settingsView() string {
	lines := []string{
		titleStyle.Render("Settings"),
		fmt.Sprintf("Storage: %s downloads · %s cache", formatBytes(model.usage.Downloads), formatBytes(model.usage.Cache)),
	}

	for _, input := range model.settings.inputs {
		lines = append(lines, input.View())
	}
	if model.settings.errorText != "" {
		lines = append(lines, warningStyle.Render(model.settings.errorText))
	}
	if model.settings.infoText != "" {
		lines = append(lines, secondaryStyle.Render(model.settings.infoText))
	}
	lines = append(lines, secondaryStyle.Render("c clear cache · e export backup"))
	lines = append(lines, secondaryStyle.Render("Enter to save · Esc to cancel"))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (model Model) historyView() string {
	lines := []string{titleStyle.Render("Reading History")}

	entries := []library.HistoryEntry{}
	if model.library != nil {
		entries = model.library.History()
	}
	if len(entries) == 0 {
		lines = append(lines, secondaryStyle.Render("No history yet."))
	}
	now := time.Now()
	for i, entry := range entries {
		if i >= listHeight(model.height) {
			break
		}
		lines = append(lines, fmt.Sprintf("%s · %s (%s)",
			entry.MangaTitle, entry.ChapterLabel, library.FormatLastRead(entry.ReadAt, now)))
	}

	lines = append(lines, secondaryStyle.Render("Press esc to go back"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (model Model) logView() string {
	if len(model.logLines) == 0 {
		return secondaryStyle.Render("Logs: (no entries)")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		secondaryStyle.Render("Logs:"),
		strings.Join(model.logLines, "\n"),
	)
}

func (model Model) sourceName() string {
	if model.source == nil {
		return "manga"
	}
	return model.source.Info().Name
}

func listHeight(height int) int {
	if height <= 10 {
		return height
	}
	return height - 8
}

func newMenuList(width, height int) list.Model {
	items := []list.Item{
		menuItem{title: "Search Manga", description: "Find manga in the current source", action: stateMangaQuery},
		menuItem{title: "Sources", description: "Pick a content source", action: stateSources},
		menuItem{title: "Downloads", description: "Offline download queue", action: stateDownloads},
		menuItem{title: "History", description: "Recently read chapters", action: stateHistory},
		menuItem{title: "Settings", description: "Storage and providers", action: stateSettings},
		menuItem{title: "About/Help", description: "Usage and shortcuts", action: stateAbout},
	}

	menu := list.New(items, list.NewDefaultDelegate(), width, height)
	menu.Title = "Home"
	menu.SetShowStatusBar(false)
	menu.SetFilteringEnabled(false)
	menu.SetShowHelp(false)

	return menu
}

func newSourceList(infos []manga.SourceInfo, width, height int) list.Model {
	items := make([]list.Item, 0, len(infos))
	for _, info := range infos {
		items = append(items, sourceItem{info: info})
	}

	sourceList := list.New(items, list.NewDefaultDelegate(), width, height)
	sourceList.Title = "Sources"
	sourceList.SetShowStatusBar(false)
	sourceList.SetFilteringEnabled(false)
	sourceList.SetShowHelp(false)

	return sourceList
}

func newQueryInput() textinput.Model {
	input := textinput.New()
	input.Placeholder = "e.g. One Piece"
	input.Focus()
	input.Prompt = "> "
	return input
}

func newMangaResultsList(results []manga.Summary, width, height int) list.Model {
	items := make([]list.Item, 0, len(results))
	for _, result := range results {
		items = append(items, mangaResultItem{summary: result})
	}

	resultList := list.New(items, list.NewDefaultDelegate(), width, height)
	resultList.Title = "Results"
	resultList.SetShowStatusBar(false)
	resultList.SetFilteringEnabled(true)
	resultList.SetShowHelp(false)

	return resultList
}

func newChapterList(chapters []manga.Chapter, width, height int) (list.Model, map[int]bool) {
	items := make([]list.Item, 0, len(chapters))
	for _, chapter := range chapters {
		items = append(items, chapterItem{chapter: chapter})
	}

	selected := make(map[int]bool)
	delegate := multiSelectDelegate{selected: selected}
	chapterList := list.New(items, delegate, width, height)
	chapterList.Title = "Chapters"
	chapterList.SetShowStatusBar(false)
	chapterList.SetFilteringEnabled(true)
	chapterList.SetShowHelp(false)

	return chapterList, selected
}

func selectedChapters(items []list.Item, selected map[int]bool) []manga.Chapter {
	chapters := []manga.Chapter{}
	for index, item := range items {
		if selected[index] {
			chapterItem, ok := item.(chapterItem)
			if !ok {
				continue
			}
			chapters = append(chapters, chapterItem.chapter)
		}
	}
	return chapters
}

func searchMangaCmd(source manga.Source, query string) tea.Cmd {
	return func() tea.Msg {
		if source == nil {
			return mangaSearchMsg{err: errors.New("no manga source configured")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		results, err := source.Search(ctx, query, 0)
		return mangaSearchMsg{results: results, err: err}
	}
}

func fetchChaptersCmd(source manga.Source, mangaID string) tea.Cmd {
	return func() tea.Msg {
		if source == nil {
			return chaptersMsg{err: errors.New("no manga source configured")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		chapters, err := source.Chapters(ctx, mangaID)
		return chaptersMsg{chapters: chapters, err: err}
	}
}

func storageUsageCmd(manager *downloads.Manager) tea.Cmd {
	return func() tea.Msg {
		if manager == nil {
			return usageMsg{err: errors.New("downloads unavailable")}
		}
		usage, err := manager.StorageUsage()
		return usageMsg{usage: usage, err: err}
	}
}

func exportBackupCmd(manager *downloads.Manager, service *library.Service) tea.Cmd {
	return func() tea.Msg {
		if manager == nil || service == nil {
			return backupMsg{err: errors.New("backup unavailable")}
		}
		path, err := manager.ExportBackup(service.Snapshot())
		return backupMsg{path: path, err: err}
	}
}

func listenLogCmd(ch <-chan logMsg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func updateSettingsFocus(direction string, focus, total int) int {
	if direction == "tab" {
		focus++
	} else {
		focus--
	}
	if focus >= total {
		focus = 0
	} else if focus < 0 {
		focus = total - 1
	}
	return focus
}

func applySettingsFocus(settings settingsModel) settingsModel {
	for i := range settings.inputs {
		if i == settings.focus {
			settings.inputs[i].Focus()
			settings.inputs[i].PromptStyle = focusedStyle
			settings.inputs[i].TextStyle = focusedStyle
		} else {
			settings.inputs[i].Blur()
			settings.inputs[i].PromptStyle = blurStyle
			settings.inputs[i].TextStyle = blurStyle
		}
	}
	return settings
}

func newSettingsModel(cfg config.Config) settingsModel {
	inputs := make([]textinput.Model, 3)

	dataDirInput := textinput.New()
	dataDirInput.Prompt = "Data dir: "
	dataDirInput.SetValue(cfg.DataDir)
	dataDirInput.CharLimit = 300

	apiKeyInput := textinput.New()
	apiKeyInput.Prompt = "MangaDex API key: "
	apiKeyInput.SetValue(cfg.Providers.MangaDexAPIKey)
	apiKeyInput.CharLimit = 200

	mangapillInput := textinput.New()
	mangapillInput.Prompt = "Mangapill URL: "
	mangapillInput.SetValue(cfg.Providers.MangapillBaseURL)
	mangapillInput.CharLimit = 200

	inputs[0] = dataDirInput
	inputs[1] = apiKeyInput
	inputs[2] = mangapillInput

	settings := settingsModel{inputs: inputs, focus: 0}
	return applySettingsFocus(settings)
}

func buildConfigFromSettings(cfg config.Config, inputs []textinput.Model) config.Config {
	cfg.DataDir = strings.TrimSpace(inputs[0].Value())
	cfg.Providers.MangaDexAPIKey = strings.TrimSpace(inputs[1].Value())
	cfg.Providers.MangapillBaseURL = strings.TrimSpace(inputs[2].Value())
	return cfg
}

type multiSelectDelegate struct {
	selected map[int]bool
}

func (delegate multiSelectDelegate) Height() int                                   { return 1 }
func (delegate multiSelectDelegate) Spacing() int                                  { return 0 }
func (delegate multiSelectDelegate) Update(msg tea.Msg, model *list.Model) tea.Cmd { return nil }

func (delegate multiSelectDelegate) Render(writer io.Writer, model list.Model, index int, item list.Item) {
	checkbox := " "
	if delegate.selected[index] {
		checkbox = "x"
	}
	cursor := " "
	if index == model.Index() {
		cursor = ">"
	}
	title := item.FilterValue()
	if titled, ok := item.(interface{ Title() string }); ok {
		title = titled.Title()
	}
	fmt.Fprintf(writer, "%s [%s] %s", cursor, checkbox, title)
}

type logWriter struct {
	channel chan<- logMsg
}

func (writer logWriter) Write(data []byte) (int, error) {
	message := strings.TrimSpace(string(data))
	if message == "" {
		return len(data), nil
	}

	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		select {
		case writer.channel <- logMsg(line):
		default:
		}
	}

	return len(data), nil
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	secondaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	focusedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	blurStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)
