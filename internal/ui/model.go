package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"rollout-trace/internal/clipboard"
	"rollout-trace/internal/config"
	"rollout-trace/internal/export"
	"rollout-trace/internal/highlight"
	"rollout-trace/internal/render"
	"rollout-trace/internal/rollout"
	"rollout-trace/internal/store"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Model struct {
	cfg      config.AppConfig
	cache    *rollout.Cache
	index    *store.Index
	exporter *export.Writer

	tabs   []*tab
	active int

	help    help.Model
	spinner spinner.Model
	search  textinput.Model
	keys    keyMap

	width  int
	height int

	loading          int
	searchMode       bool
	searchQuery      string
	focusOnList      bool
	collapseAnalysis bool
	plainFinal       bool
	rendering        bool
	renderNonce      int

	rendered    map[string]string
	highlighted map[string]highlight.Result
	matchLines  []int
	matchCount  int
	matchIndex  int

	status string
	err    error
}

type loadedMsg struct {
	tab      int
	result   rollout.Result
	err      error
	indexErr error
}
type renderedMsg struct {
	tab      int
	pos      int
	cacheKey string
	out      string
	nonce    int
}
type searchResultMsg struct {
	tab       int
	query     string
	positions []int
	err       error
}
type exportedMsg struct {
	path string
	err  error
}
type copiedMsg struct {
	err error
}

func NewModel(cfg config.AppConfig, cache *rollout.Cache, index *store.Index, exporter *export.Writer) Model {
	labels := TabLabels(cfg.Files)
	tabs := make([]*tab, len(cfg.Files))
	for i, path := range cfg.Files {
		tabs[i] = newTab(labels[i], path)
	}

	h := help.New()
	h.ShowAll = false

	sp := spinner.New()
	sp.Spinner = spinner.Points

	ti := textinput.New()
	ti.Placeholder = "Search rollouts..."
	ti.Prompt = "/ "
	ti.CharLimit = 256

	return Model{
		cfg:      cfg,
		cache:    cache,
		index:    index,
		exporter: exporter,

		tabs:    tabs,
		help:    h,
		spinner: sp,
		search:  ti,
		keys:    defaultKeys(),

		loading:     len(tabs),
		focusOnList: true,
		plainFinal:  cfg.PlainFinal,
		rendered:    make(map[string]string),
		highlighted: make(map[string]highlight.Result),
		matchIndex:  -1,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.tabs)+1)
	cmds = append(cmds, m.spinner.Tick)
	for i := range m.tabs {
		cmds = append(cmds, m.loadCmd(i))
	}
	return tea.Batch(cmds...)
}

func (m Model) loadCmd(tabIdx int) tea.Cmd {
	path := m.tabs[tabIdx].path
	mode := m.cfg.SchemaMode
	cache := m.cache
	index := m.index
	return func() tea.Msg {
		raw, err := os.ReadFile(path)
		if err != nil {
			return loadedMsg{tab: tabIdx, err: fmt.Errorf("read %s: %w", path, err)}
		}
		res, err := cache.Load(raw, mode)
		if err != nil {
			return loadedMsg{tab: tabIdx, err: err}
		}
		msg := loadedMsg{tab: tabIdx, result: res}
		if index != nil {
			msg.indexErr = index.AddTab(tabIdx, res.Rollouts)
		}
		return msg
	}
}

func (m Model) searchCmd(tabIdx int, query string) tea.Cmd {
	index := m.index
	return func() tea.Msg {
		if index == nil {
			return searchResultMsg{tab: tabIdx, query: query, err: errors.New("search index unavailable")}
		}
		positions, err := index.Search(tabIdx, query)
		return searchResultMsg{tab: tabIdx, query: query, positions: positions, err: err}
	}
}

func (m Model) exportCmd(t *tab, pos int) tea.Cmd {
	md := m.buildMarkdown(t, pos)
	label := t.label
	exporter := m.exporter
	return func() tea.Msg {
		path, err := exporter.Write(label, pos, md)
		return exportedMsg{path: path, err: err}
	}
}

func (m Model) copyCmd(t *tab, pos int) tea.Cmd {
	md := m.buildMarkdown(t, pos)
	label := t.label
	total := t.total()
	preview := promptPreview(t.result.Rollouts[pos-1])
	exporter := m.exporter
	return func() tea.Msg {
		path, err := exporter.Write(label, pos, md)
		if err != nil {
			return copiedMsg{err: err}
		}
		snippet := export.Snippet(label, pos, total, preview, path)

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := clipboard.Copy(ctx, snippet); err != nil {
			return copiedMsg{err: err}
		}
		return copiedMsg{}
	}
}

func (m Model) buildMarkdown(t *tab, pos int) string {
	return render.Markdown(t.result.Rollouts[pos-1], pos, t.total(), render.Options{
		CollapseAnalysis: m.collapseAnalysis,
		PlainFinal:       m.plainFinal,
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		cmds = append(cmds, m.renderSelected(true))

	case loadedMsg:
		m.loading--
		t := m.tabs[msg.tab]
		t.loaded = true
		t.loadErr = msg.err
		t.result = msg.result
		if msg.err != nil {
			t.viewport.SetContent("Load failed: " + msg.err.Error())
			break
		}
		if msg.indexErr != nil {
			m.status = "Search index failed: " + msg.indexErr.Error()
		}
		t.setItems(nil)
		if t.total() == 0 {
			t.viewport.SetContent("No rollouts loaded.\n\nEvery line was blank or dropped; check the file and the -schema mode.")
		}
		if msg.tab == m.active {
			cmds = append(cmds, m.renderSelected(true))
		}

	case renderedMsg:
		if msg.nonce != m.renderNonce {
			break
		}
		m.rendering = false
		m.rendered[msg.cacheKey] = msg.out
		if msg.tab == m.active && m.tabs[m.active].selectedPos() == msg.pos {
			m.setViewportFromRendered(msg.cacheKey, msg.out, true)
		}

	case searchResultMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Search failed: " + msg.err.Error()
			break
		}
		if msg.tab != m.active || msg.query != m.searchQuery {
			break
		}
		t := m.tabs[msg.tab]
		t.setItems(msg.positions)
		if len(msg.positions) == 0 {
			m.status = "No rollouts matched"
			t.viewport.SetContent("No rollouts matched your search.")
			break
		}
		m.status = fmt.Sprintf("%d rollout(s) matched", len(msg.positions))
		cmds = append(cmds, m.renderSelected(false))

	case exportedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Exported: " + msg.path
		}

	case copiedMsg:
		if msg.err != nil {
			m.err = msg.err
			if errors.Is(msg.err, clipboard.ErrToolNotFound) {
				m.status = "Could not copy: clipboard tool not found"
			} else {
				m.status = "Could not copy: " + msg.err.Error()
			}
		} else {
			m.status = "Copied rollout snippet to clipboard"
		}

	case tea.KeyMsg:
		if m.searchMode {
			return m.updateSearchInput(msg)
		}
		return m.updateKeys(msg)
	}

	if m.loading > 0 || m.rendering {
		var spin tea.Cmd
		m.spinner, spin = m.spinner.Update(msg)
		cmds = append(cmds, spin)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) updateSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg.String() {
	case "esc":
		m.searchMode = false
		m.searchQuery = ""
		m.search.SetValue("")
		m.search.Blur()
		m.tabs[m.active].setItems(nil)
		m.clearMatches()
		cmds = append(cmds, m.renderSelected(false))
		return m, tea.Batch(cmds...)
	case "enter":
		m.searchMode = false
		m.search.Blur()
		m.searchQuery = strings.TrimSpace(m.search.Value())
		if m.searchQuery == "" {
			m.tabs[m.active].setItems(nil)
			m.clearMatches()
			cmds = append(cmds, m.renderSelected(false))
		} else {
			cmds = append(cmds, m.searchCmd(m.active, m.searchQuery))
		}
		return m, tea.Batch(cmds...)
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	t := m.tabs[m.active]

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.search.SetValue(m.searchQuery)
		m.search.CursorEnd()
		m.search.Focus()
		return m, nil
	case key.Matches(msg, m.keys.Esc):
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.search.SetValue("")
			t.setItems(nil)
			m.clearMatches()
			return m, m.renderSelected(false)
		}
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		m.focusOnList = !m.focusOnList
		return m, nil
	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab(m.active - 1)
	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab(m.active + 1)
	case key.Matches(msg, m.keys.PageUp):
		if !m.focusOnList {
			t.viewport.HalfViewUp()
		}
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		if !m.focusOnList {
			t.viewport.HalfViewDown()
		}
		return m, nil
	case key.Matches(msg, m.keys.PrevMatch):
		if !m.focusOnList {
			m.jumpToMatch(-1)
		}
		return m, nil
	case key.Matches(msg, m.keys.NextMatch):
		if !m.focusOnList {
			m.jumpToMatch(1)
		}
		return m, nil
	case key.Matches(msg, m.keys.ToggleAnalysis):
		m.collapseAnalysis = !m.collapseAnalysis
		return m, m.renderSelected(true)
	case key.Matches(msg, m.keys.ToggleRich):
		m.plainFinal = !m.plainFinal
		return m, m.renderSelected(true)
	case key.Matches(msg, m.keys.Export):
		if pos := t.selectedPos(); pos > 0 {
			cmds = append(cmds, m.exportCmd(t, pos))
		}
		return m, tea.Batch(cmds...)
	case key.Matches(msg, m.keys.Copy):
		if pos := t.selectedPos(); pos > 0 {
			cmds = append(cmds, m.copyCmd(t, pos))
		}
		return m, tea.Batch(cmds...)
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.focusOnList {
		prev := t.selectedPos()
		var cmd tea.Cmd
		t.list, cmd = t.list.Update(msg)
		cmds = append(cmds, cmd)
		if t.selectedPos() != prev {
			cmds = append(cmds, m.renderSelected(false))
		}
	} else {
		switch msg.String() {
		case "up", "k":
			t.viewport.LineUp(1)
		case "down", "j":
			t.viewport.LineDown(1)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) switchTab(to int) (tea.Model, tea.Cmd) {
	if len(m.tabs) == 0 {
		return m, nil
	}
	to = (to + len(m.tabs)) % len(m.tabs)
	if to == m.active {
		return m, nil
	}
	m.active = to
	m.clearMatches()
	var cmds []tea.Cmd
	if m.searchQuery != "" {
		cmds = append(cmds, m.searchCmd(m.active, m.searchQuery))
	}
	cmds = append(cmds, m.renderSelected(false))
	return m, tea.Batch(cmds...)
}

func (m *Model) renderSelected(force bool) tea.Cmd {
	t := m.tabs[m.active]
	if !t.loaded || t.loadErr != nil || t.total() == 0 {
		m.clearMatches()
		return nil
	}
	pos := t.selectedPos()
	if pos == 0 {
		m.clearMatches()
		return nil
	}

	cacheKey := m.renderCacheKey(m.active, pos)
	if !force {
		if out, ok := m.rendered[cacheKey]; ok {
			m.setViewportFromRendered(cacheKey, out, true)
			return nil
		}
	}

	m.rendering = true
	m.renderNonce++
	nonce := m.renderNonce
	t.viewport.SetContent("Rendering rollout...")

	wrap := t.viewport.Width - 2
	if wrap < 20 {
		wrap = 20
	}
	opts := render.Options{
		CollapseAnalysis: m.collapseAnalysis,
		PlainFinal:       m.plainFinal,
		Style:            m.cfg.Style,
		Wrap:             wrap,
	}
	rec := t.result.Rollouts[pos-1]
	total := t.total()
	tabIdx := m.active
	return func() tea.Msg {
		md := render.Markdown(rec, pos, total, opts)
		return renderedMsg{
			tab:      tabIdx,
			pos:      pos,
			cacheKey: cacheKey,
			out:      render.ANSI(md, opts),
			nonce:    nonce,
		}
	}
}

func (m Model) renderCacheKey(tabIdx, pos int) string {
	return fmt.Sprintf("t=%d|p=%d|w=%d|c=%t|pf=%t",
		tabIdx, pos, m.tabs[tabIdx].viewport.Width, m.collapseAnalysis, m.plainFinal)
}

func (m *Model) setViewportFromRendered(cacheKey, out string, gotoTop bool) {
	t := m.tabs[m.active]
	content := out
	query := strings.TrimSpace(m.searchQuery)
	if query != "" {
		hKey := cacheKey + "|q=" + strings.ToLower(query)
		res, ok := m.highlighted[hKey]
		if !ok {
			res = highlight.Apply(out, query, func(s string) string {
				return searchMatchStyle.Render(s)
			})
			m.highlighted[hKey] = res
		}
		content = res.Text
		m.setMatchMeta(res)
	} else {
		m.clearMatches()
	}

	t.viewport.SetContent(content)
	if gotoTop {
		t.viewport.GotoTop()
		if len(m.matchLines) > 0 {
			m.matchIndex = 0
			t.viewport.SetYOffset(m.clampOffset(m.matchLines[0]))
		}
	}
}

func (m *Model) setMatchMeta(res highlight.Result) {
	if res.Count == 0 || len(res.Lines) == 0 {
		m.clearMatches()
		return
	}
	m.matchCount = res.Count
	m.matchLines = append(m.matchLines[:0], res.Lines...)
	if m.matchIndex < 0 || m.matchIndex >= len(m.matchLines) {
		m.matchIndex = 0
	}
}

func (m *Model) clearMatches() {
	m.matchLines = nil
	m.matchCount = 0
	m.matchIndex = -1
}

func (m *Model) jumpToMatch(delta int) {
	if len(m.matchLines) == 0 {
		m.status = "No search matches in rollout"
		return
	}
	if m.matchIndex < 0 || m.matchIndex >= len(m.matchLines) {
		m.matchIndex = 0
	} else {
		m.matchIndex = (m.matchIndex + delta + len(m.matchLines)) % len(m.matchLines)
	}

	t := m.tabs[m.active]
	t.viewport.SetYOffset(m.clampOffset(m.matchLines[m.matchIndex]))
	m.status = fmt.Sprintf("Match %d/%d", m.matchIndex+1, m.matchCount)
}

func (m *Model) clampOffset(offset int) int {
	t := m.tabs[m.active]
	if offset < 0 {
		return 0
	}
	maxOffset := t.viewport.TotalLineCount() - t.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	left, right := m.paneWidths()

	bodyHeight := m.height - 3
	if bodyHeight < 8 {
		bodyHeight = 8
	}
	for _, t := range m.tabs {
		t.list.SetSize(left-2, bodyHeight-2)
		t.viewport.Width = right - 2
		t.viewport.Height = bodyHeight - 2
	}
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}

	status := m.statusLine()
	tabBar := m.tabBar()
	t := m.tabs[m.active]

	left, right := m.paneWidths()
	bodyHeight := m.height - 3
	leftPane := panelStyle(m.focusOnList).Width(left).Height(bodyHeight).Render(t.list.View())
	rightPane := panelStyle(!m.focusOnList).Width(right).Height(bodyHeight).Render(t.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)

	helpView := m.help.View(m.keys)
	if m.searchMode {
		helpView = m.search.View() + "  " + helpView
	} else if m.searchQuery != "" {
		helpView = "search: " + m.searchQuery + "  " + helpView
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		status,
		tabBar,
		body,
		helpView,
	)
}

func (m Model) tabBar() string {
	parts := make([]string, 0, len(m.tabs))
	for i, t := range m.tabs {
		label := t.label
		if i == m.active {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, inactiveTabStyle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func (m Model) statusLine() string {
	t := m.tabs[m.active]

	status := ""
	switch {
	case m.loading > 0:
		status = m.spinner.View() + " loading files..."
	case t.loadErr != nil:
		status = "load error: " + t.loadErr.Error()
	default:
		status = fmt.Sprintf("%s: loaded %d rollouts", t.label, t.total())
		if dropped := t.result.Dropped(); dropped != "" {
			status += "  (" + dropped + ")"
		}
	}
	if m.searchQuery != "" || m.searchMode {
		status += "  [search]"
		if strings.TrimSpace(m.searchQuery) != "" && m.matchCount > 0 {
			cur := m.matchIndex + 1
			if cur < 1 {
				cur = 1
			}
			status += fmt.Sprintf("  [match %d/%d]", cur, m.matchCount)
		}
	}
	if m.collapseAnalysis {
		status += "  [analysis-collapsed]"
	}
	if m.plainFinal {
		status += "  [plain-final]"
	}
	if m.rendering {
		status += "  [rendering]"
	}
	if strings.TrimSpace(m.status) != "" {
		status += "  " + shorten(strings.TrimSpace(m.status), 80)
	}
	if m.err != nil {
		status += "  err=" + m.err.Error()
	}
	return statusStyle.Render(status)
}

func (m *Model) paneWidths() (int, int) {
	left := m.width / 3
	if left < 28 {
		left = 28
	}
	if left > m.width-32 {
		left = m.width - 32
	}
	if left < 20 {
		left = 20
	}
	right := m.width - left - 1
	if right < 20 {
		right = 20
	}
	return left, right
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)
	searchMatchStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("16")).
				Background(lipgloss.Color("220"))
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)
	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250")).
				Padding(0, 1)
)

func panelStyle(active bool) lipgloss.Style {
	border := lipgloss.NormalBorder()
	if active {
		return lipgloss.NewStyle().
			Border(border, true).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
	}
	return lipgloss.NewStyle().
		Border(border, true).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
}

type keyMap struct {
	Up             key.Binding
	Down           key.Binding
	Tab            key.Binding
	PrevTab        key.Binding
	NextTab        key.Binding
	PageUp         key.Binding
	PageDown       key.Binding
	PrevMatch      key.Binding
	NextMatch      key.Binding
	Search         key.Binding
	Esc            key.Binding
	Export         key.Binding
	Copy           key.Binding
	ToggleAnalysis key.Binding
	ToggleRich     key.Binding
	Help           key.Binding
	Quit           key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "toggle focus"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("[", "shift+tab"),
			key.WithHelp("[", "prev file"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next file"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "b"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "f"),
			key.WithHelp("pgdn", "page down"),
		),
		PrevMatch: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "prev match"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next match"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Esc: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear search"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export markdown"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy snippet"),
		),
		ToggleAnalysis: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "analysis expand/collapse"),
		),
		ToggleRich: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rich/plain final"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.PrevTab, k.NextTab, k.Tab, k.Search, k.ToggleAnalysis, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevTab, k.NextTab, k.Tab},
		{k.PageDown, k.PageUp, k.NextMatch, k.PrevMatch, k.Search, k.Esc},
		{k.Export, k.Copy, k.ToggleAnalysis, k.ToggleRich, k.Quit},
	}
}
