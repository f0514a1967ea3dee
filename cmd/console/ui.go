package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/civiclearn/game-engine/pkg/engine"
)

// ConsoleUI is the BubbleTea model that runs the player.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config   *ConsoleConfig
	client   *http.Client
	viewport viewport.Model
	ready    bool
	width    int
	height   int
	err      error
	loading  bool
	status   string

	// Manifest selection state
	showManifestModal bool
	manifests         []string
	manifestMap       map[string]string
	selectedManifest  int
	loadingManifests  bool

	// Play state
	session  *SessionResponse
	outcome  *engine.QuizOutcome
	results  *engine.GameResults
	cursor   int
	selected map[string]bool // toggled options on a multi-select quiz

	// Quit confirmation state
	showQuitModal bool
}

type manifestsLoadedMsg struct {
	manifests   []string
	manifestMap map[string]string
	err         error
}

type sessionMsg struct {
	session *SessionResponse
	err     error
}

type answerMsg struct {
	answer *AnswerResponse
	err    error
}

type resultsMsg struct {
	results *engine.GameResults
	err     error
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	characterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	vp := viewport.New(60, 20)
	return ConsoleUI{
		config:            cfg,
		client:            client,
		viewport:          vp,
		showManifestModal: true,
		loadingManifests:  true,
		selected:          make(map[string]bool),
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadManifests()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showManifestModal {
		return m.updateManifestModal(msg)
	}
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 4
		m.ready = true
		m.renderScene()

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case sessionMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.session = msg.session
			m.outcome = nil
			m.cursor = 0
			m.selected = make(map[string]bool)
		}
		m.renderScene()

	case answerMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.outcome = msg.answer.Outcome
			m.session = &SessionResponse{State: msg.answer.State, Scene: msg.answer.Scene}
			m.cursor = 0
			m.selected = make(map[string]bool)
		}
		m.renderScene()

	case resultsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.results = msg.results
		}
		m.renderScene()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m ConsoleUI) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.showQuitModal = true
		return m, nil
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
			m.renderScene()
		}
		return m, nil
	case tea.KeyDown:
		if m.cursor < m.optionCount()-1 {
			m.cursor++
			m.renderScene()
		}
		return m, nil
	case tea.KeySpace:
		return m.toggleOption()
	case tea.KeyEnter:
		return m.confirm()
	}

	switch msg.String() {
	case "b":
		m.loading = true
		return m, m.back()
	case "y":
		if m.session != nil && m.session.State != nil {
			if err := clipboard.WriteAll(m.session.State.ID); err != nil {
				m.status = "clipboard unavailable"
			} else {
				m.status = "session ID copied"
			}
			m.renderScene()
		}
		return m, nil
	case "q":
		m.showQuitModal = true
		return m, nil
	}
	return m, nil
}

func (m ConsoleUI) toggleOption() (tea.Model, tea.Cmd) {
	scene := m.scene()
	if scene == nil || scene.Quiz == nil || !scene.Quiz.AllowMultiple {
		return m, nil
	}
	if m.cursor < len(scene.Quiz.Options) {
		id := scene.Quiz.Options[m.cursor].ID
		m.selected[id] = !m.selected[id]
		m.renderScene()
	}
	return m, nil
}

// confirm fires the action for the current scene: choose on dialogues,
// submit on quizzes, advance otherwise, finalize on summaries.
func (m ConsoleUI) confirm() (tea.Model, tea.Cmd) {
	scene := m.scene()
	if scene == nil {
		return m, nil
	}
	sessionID := m.session.State.ID

	switch {
	case m.results != nil:
		return m, tea.Quit

	case scene.Summary != nil:
		m.loading = true
		return m, func() tea.Msg {
			results, err := finalizeSession(m.client, m.config.APIBaseURL, sessionID)
			return resultsMsg{results, err}
		}

	case scene.Dialogue != nil && len(scene.Dialogue.Choices) > 0:
		choiceID := scene.Dialogue.Choices[m.cursor].ID
		m.loading = true
		return m, func() tea.Msg {
			sr, err := chooseOption(m.client, m.config.APIBaseURL, sessionID, choiceID)
			return sessionMsg{sr, err}
		}

	case scene.Quiz != nil:
		var ids []string
		if scene.Quiz.AllowMultiple {
			for _, opt := range scene.Quiz.Options {
				if m.selected[opt.ID] {
					ids = append(ids, opt.ID)
				}
			}
		} else {
			ids = []string{scene.Quiz.Options[m.cursor].ID}
		}
		m.loading = true
		return m, func() tea.Msg {
			ar, err := submitAnswer(m.client, m.config.APIBaseURL, sessionID, ids)
			return answerMsg{ar, err}
		}

	default:
		m.loading = true
		return m, func() tea.Msg {
			sr, err := advanceScene(m.client, m.config.APIBaseURL, sessionID)
			return sessionMsg{sr, err}
		}
	}
}

func (m ConsoleUI) back() tea.Cmd {
	sessionID := m.session.State.ID
	return func() tea.Msg {
		sr, err := goBack(m.client, m.config.APIBaseURL, sessionID)
		return sessionMsg{sr, err}
	}
}

func (m ConsoleUI) loadManifests() tea.Cmd {
	return func() tea.Msg {
		names, manifestMap, err := listManifests(m.client, m.config.APIBaseURL)
		return manifestsLoadedMsg{names, manifestMap, err}
	}
}

func (m *ConsoleUI) scene() *apiScene {
	if m.session == nil {
		return nil
	}
	return m.session.Scene
}

func (m *ConsoleUI) optionCount() int {
	scene := m.scene()
	if scene == nil {
		return 0
	}
	if scene.Dialogue != nil {
		return len(scene.Dialogue.Choices)
	}
	if scene.Quiz != nil {
		return len(scene.Quiz.Options)
	}
	return 0
}

// renderScene rebuilds the viewport content for the current scene
func (m *ConsoleUI) renderScene() {
	if m.session == nil || m.session.State == nil {
		return
	}
	width := m.viewport.Width - 2
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("TRAINING SESSION") + "\n")
	content.WriteString(scoreStyle.Render(fmt.Sprintf("Score: %d", m.session.State.Score)))
	content.WriteString(hintStyle.Render(fmt.Sprintf("   elapsed %ds", m.session.State.ElapsedMs/1000)) + "\n\n")

	scene := m.scene()
	switch {
	case m.results != nil:
		content.WriteString(titleStyle.Render("RESULTS") + "\n\n")
		content.WriteString(fmt.Sprintf("Score: %d / %d\n", m.results.Score, m.results.TotalScore))
		content.WriteString(fmt.Sprintf("Time: %ds\n", m.results.TimeSpentMs/1000))
		content.WriteString(fmt.Sprintf("Scenes completed: %d\n", len(m.results.ScenesCompleted)))
		for _, a := range m.results.UnlockedAchievements {
			content.WriteString("Achievement unlocked: " + a + "\n")
		}
		content.WriteString("\n" + hintStyle.Render("Enter to exit"))

	case scene == nil:
		content.WriteString("Loading scene...\n")

	case scene.Dialogue != nil:
		if scene.Dialogue.Character != "" {
			content.WriteString(characterStyle.Render(scene.Dialogue.Character+":") + "\n")
		}
		for _, msg := range scene.Dialogue.Messages {
			content.WriteString(messageStyle.Render(wordwrap.String(msg, width)) + "\n\n")
		}
		for i, c := range scene.Dialogue.Choices {
			line := fmt.Sprintf("  %s", c.Text)
			if i == m.cursor {
				line = selectedItemStyle.Render(fmt.Sprintf("▶ %s", c.Text))
			}
			content.WriteString(line + "\n")
		}

	case scene.Quiz != nil:
		content.WriteString(wordwrap.String(scene.Quiz.Question, width) + "\n\n")
		for i, opt := range scene.Quiz.Options {
			marker := "  "
			if scene.Quiz.AllowMultiple {
				marker = "[ ] "
				if m.selected[opt.ID] {
					marker = "[x] "
				}
			}
			line := marker + opt.Text
			if i == m.cursor {
				line = selectedItemStyle.Render("▶ " + marker + opt.Text)
			} else {
				line = itemStyle.Render("  " + line)
			}
			content.WriteString(line + "\n")
		}
		if m.outcome != nil && m.outcome.SceneID == scene.ID {
			content.WriteString("\n")
			content.WriteString(fmt.Sprintf("Attempts: %d used, %d remaining\n",
				m.outcome.AttemptsUsed, m.outcome.AttemptsRemaining))
			for _, fb := range m.outcome.Feedback {
				if fb != "" {
					content.WriteString(wordwrap.String(fb, width) + "\n")
				}
			}
		}

	case scene.Summary != nil:
		if scene.Summary.Title != "" {
			content.WriteString(titleStyle.Render(scene.Summary.Title) + "\n\n")
		}
		if scene.Summary.Message != "" {
			content.WriteString(wordwrap.String(scene.Summary.Message, width) + "\n\n")
		}
		content.WriteString(hintStyle.Render("Enter to see your results"))
	}

	if m.outcome != nil && scene != nil && scene.Quiz == nil {
		// Feedback carried over from the submission that advanced us here
		for _, fb := range m.outcome.Feedback {
			if fb != "" {
				content.WriteString("\n" + wordwrap.String(fb, width))
			}
		}
	}

	if m.err != nil {
		content.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()))
	}
	if m.status != "" {
		content.WriteString("\n" + hintStyle.Render(m.status))
	}
	content.WriteString("\n\n" + hintStyle.Render("↑/↓ select · Enter confirm · Space toggle · b back · y copy ID · q quit"))

	m.viewport.SetContent(content.String())
}

func (m ConsoleUI) updateManifestModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 4

	case manifestsLoadedMsg:
		m.loadingManifests = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.manifests = msg.manifests
			m.manifestMap = msg.manifestMap
		}

	case sessionMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.session = msg.session
			m.showManifestModal = false
			m.ready = true
			m.renderScene()
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.selectedManifest > 0 {
				m.selectedManifest--
			}
		case tea.KeyDown:
			if m.selectedManifest < len(m.manifests)-1 {
				m.selectedManifest++
			}
		case tea.KeyEnter:
			if len(m.manifests) > 0 && !m.loading {
				file := m.manifestMap[m.manifests[m.selectedManifest]]
				m.loading = true
				return m, func() tea.Msg {
					sr, err := createSession(m.client, m.config.APIBaseURL, file)
					return sessionMsg{sr, err}
				}
			}
		}
	}
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "y", "Y", "enter", "ctrl+c":
			return m, tea.Quit
		case "n", "N", "esc":
			m.showQuitModal = false
		}
	}
	return m, nil
}

func (m ConsoleUI) View() string {
	if m.showManifestModal {
		return m.renderManifestModal()
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(m.viewport.View())
}

func (m ConsoleUI) renderManifestModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	switch {
	case m.loadingManifests:
		content.WriteString(titleStyle.Render("Loading Trainings...") + "\n\n")
		content.WriteString("Please wait while we fetch available trainings...")
	case m.err != nil:
		content.WriteString(titleStyle.Render("Error") + "\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to load trainings: %v", m.err)))
		content.WriteString("\n\nPress Ctrl+C to exit")
	case m.loading:
		content.WriteString(titleStyle.Render("Starting Session...") + "\n\n")
		content.WriteString("Setting up your training...")
	default:
		content.WriteString(titleStyle.Render("Select a Training") + "\n\n")
		for i, name := range m.manifests {
			if i == m.selectedManifest {
				content.WriteString(selectedItemStyle.Render(fmt.Sprintf("▶ %s", name)))
			} else {
				content.WriteString(itemStyle.Render(fmt.Sprintf("  %s", name)))
			}
			content.WriteString("\n")
		}
		content.WriteString("\n" + hintStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

func (m ConsoleUI) renderQuitModal() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("Quit Training?") + "\n\n")
	content.WriteString("Progress is autosaved; you can resume later.\n\n")
	content.WriteString(hintStyle.Render("Press Y to quit, N to continue"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}
