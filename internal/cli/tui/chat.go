package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/lvyanru/stockchat/internal/cli/client"
	"github.com/lvyanru/stockchat/internal/cli/session"
	"github.com/lvyanru/stockchat/internal/cli/stream"
	"github.com/lvyanru/stockchat/internal/cli/types"
	"github.com/lvyanru/stockchat/internal/cli/ui"
)

// UI configuration constants
const (
	defaultInputWidth     = 100
	defaultViewportWidth  = 100
	defaultViewportHeight = 30
	defaultWindowWidth    = 100
	defaultWindowHeight   = 40
	inputCharLimit        = 4000
	inputHeightReserved   = 2
	statusHeightReserved  = 3
	minContentHeight      = 10
)

// Style definitions
var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// streamState represents the state of the streaming response
type streamState int

const (
	streamIdle streamState = iota
	streamStreaming
)

// ChatProgram encapsulates the chat TUI program
type ChatProgram struct {
	model chatModel
}

// NewChatProgram creates a new chat program over an existing session.
func NewChatProgram(apiClient *client.APIClient, store *session.Store, sess *session.Session) *ChatProgram {
	return &ChatProgram{model: initialModel(apiClient, store, sess)}
}

// Run starts the chat TUI program
func (p *ChatProgram) Run() error {
	program := tea.NewProgram(p.model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// chatModel is the Bubble Tea model containing all chat interface state
type chatModel struct {
	// Dependencies
	apiClient *client.APIClient
	store     *session.Store
	sess      *session.Session

	// UI components
	input       textinput.Model
	contentView viewport.Model

	// Streaming state. Exactly one stream may be active; gen invalidates
	// messages from a cancelled stream so two accumulators never interleave.
	state  streamState
	gen    int
	events <-chan types.StreamEvent
	cancel context.CancelFunc
	acc    *stream.Accumulator

	// Transcript in wire form, sent whole on every request
	transcript []types.ChatMessage

	// Rendered conversation
	content *strings.Builder

	width  int
	height int
}

// initialModel creates the initial chat model
func initialModel(apiClient *client.APIClient, store *session.Store, sess *session.Session) chatModel {
	input := textinput.New()
	input.Placeholder = ""
	input.Focus()
	input.CharLimit = inputCharLimit
	input.Width = defaultInputWidth
	input.Prompt = ""

	contentViewport := viewport.New(defaultViewportWidth, defaultViewportHeight)

	m := chatModel{
		apiClient:   apiClient,
		store:       store,
		sess:        sess,
		input:       input,
		contentView: contentViewport,
		state:       streamIdle,
		acc:         &stream.Accumulator{},
		content:     &strings.Builder{},
		width:       defaultWindowWidth,
		height:      defaultWindowHeight,
	}

	// Resuming a session replays its transcript
	for _, msg := range sess.Messages {
		m.transcript = append(m.transcript, types.ChatMessage{Role: msg.Role, Content: msg.Content})
		m.renderMessage(msg.Role, msg.Content)
	}
	m.refreshContent()

	return m
}

// Init initializes the model (Bubble Tea interface)
func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

// Message type definitions
type (
	streamStartedMsg struct {
		gen    int
		events <-chan types.StreamEvent
	}
	streamEventMsg struct {
		gen int
		ev  types.StreamEvent
	}
	streamClosedMsg struct{ gen int }
	streamFailMsg   struct {
		gen int
		err error
	}
	chartMsg struct {
		rendered string
	}
	chartFailMsg struct {
		symbol string
		err    error
	}
)

// Update processes messages and updates the model (Bubble Tea interface)
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyPress(msg)...)

	case tea.WindowSizeMsg:
		m.handleWindowResize(msg)

	case streamStartedMsg:
		if msg.gen == m.gen {
			m.events = msg.events
			cmds = append(cmds, waitForEvent(msg.gen, msg.events))
		}

	case streamEventMsg:
		if msg.gen == m.gen {
			cmds = append(cmds, m.handleEvent(msg.gen, msg.ev)...)
		}

	case streamClosedMsg:
		// Stream exhausted without a Done sentinel: implicit end
		if msg.gen == m.gen && m.state == streamStreaming {
			cmds = append(cmds, m.finalizeReply()...)
		}

	case streamFailMsg:
		if msg.gen == m.gen {
			m.appendErrorMessage(msg.err.Error())
			m.endStream()
		}

	case chartMsg:
		m.content.WriteString("\n")
		m.content.WriteString(msg.rendered)
		m.content.WriteString("\n")
		m.refreshContent()

	case chartFailMsg:
		m.content.WriteString("\n")
		m.content.WriteString(dimStyle.Render(fmt.Sprintf("(no chart for $%s: %v)", msg.symbol, msg.err)))
		m.content.WriteString("\n")
		m.refreshContent()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKeyPress handles keyboard input
func (m *chatModel) handleKeyPress(msg tea.KeyMsg) []tea.Cmd {
	var cmds []tea.Cmd

	switch msg.Type {
	case tea.KeyCtrlC:
		m.cancelStream()
		cmds = append(cmds, tea.Quit)

	case tea.KeyEsc:
		if m.state == streamStreaming {
			// Cancel without quitting: no partial message is persisted and
			// no error is shown.
			m.cancelStream()
			m.content.WriteString(dimStyle.Render("(cancelled)"))
			m.content.WriteString("\n")
			m.refreshContent()
		} else {
			cmds = append(cmds, tea.Quit)
		}

	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		if text != "" {
			// A new send always cancels the in-flight stream first
			if m.state == streamStreaming {
				m.cancelStream()
			}
			cmds = append(cmds, m.send(text))
		}

	case tea.KeyUp:
		m.contentView.LineUp(1)

	case tea.KeyDown:
		m.contentView.LineDown(1)

	case tea.KeyPgUp:
		m.contentView.ViewUp()

	case tea.KeyPgDown:
		m.contentView.ViewDown()
	}

	return cmds
}

// handleWindowResize handles window size changes
func (m *chatModel) handleWindowResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	contentHeight := msg.Height - inputHeightReserved - statusHeightReserved
	if contentHeight < minContentHeight {
		contentHeight = minContentHeight
	}

	m.contentView.Width = msg.Width
	m.contentView.Height = contentHeight
	m.input.Width = msg.Width - 3

	m.refreshContent()
}

// send appends the user message to transcript and store, then opens the
// stream for the full history plus the new message.
func (m *chatModel) send(text string) tea.Cmd {
	m.input.Reset()

	userMsg := session.Message{
		ID:        uuid.New().String(),
		Role:      "user",
		Content:   text,
		Timestamp: time.Now(),
	}
	if err := m.store.AddMessage(m.sess.ID, userMsg); err != nil {
		m.appendErrorMessage(fmt.Sprintf("failed to save message: %v", err))
		return nil
	}

	m.transcript = append(m.transcript, types.ChatMessage{Role: "user", Content: text})
	m.renderMessage("user", text)

	m.gen++
	m.state = streamStreaming
	m.refreshContent()

	gen := m.gen
	messages := m.transcript
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	apiClient := m.apiClient
	return func() tea.Msg {
		events, err := apiClient.ChatStream(ctx, messages)
		if err != nil {
			if ctx.Err() != nil {
				// User cancelled before the stream opened; stay silent
				return nil
			}
			return streamFailMsg{gen: gen, err: err}
		}
		return streamStartedMsg{gen: gen, events: events}
	}
}

// waitForEvent waits for the next event on the stream
func waitForEvent(gen int, events <-chan types.StreamEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{gen: gen}
		}
		return streamEventMsg{gen: gen, ev: ev}
	}
}

// handleEvent processes one stream event.
func (m *chatModel) handleEvent(gen int, ev types.StreamEvent) []tea.Cmd {
	switch {
	case ev.Err != "":
		m.appendErrorMessage(ev.Err)
		m.endStream()
		return nil

	case ev.Done:
		return m.finalizeReply()

	default:
		m.acc.Append(ev.Text)
		m.refreshContent()
		return []tea.Cmd{waitForEvent(gen, m.events)}
	}
}

// finalizeReply turns a non-empty accumulator into an immutable assistant
// message; an empty accumulator appends nothing. A ticker reference in the
// finalized reply triggers a chart fetch.
func (m *chatModel) finalizeReply() []tea.Cmd {
	reply := m.acc.Finalize()
	m.endStream()

	if reply == "" {
		m.refreshContent()
		return nil
	}

	assistantMsg := session.Message{
		ID:        uuid.New().String(),
		Role:      "assistant",
		Content:   reply,
		Timestamp: time.Now(),
	}
	if err := m.store.AddMessage(m.sess.ID, assistantMsg); err != nil {
		m.appendErrorMessage(fmt.Sprintf("failed to save message: %v", err))
		return nil
	}
	m.transcript = append(m.transcript, types.ChatMessage{Role: "assistant", Content: reply})
	m.renderMessage("assistant", reply)
	m.refreshContent()

	if symbol := types.FindTicker(reply); symbol != "" {
		return []tea.Cmd{m.fetchChart(symbol)}
	}
	return nil
}

// fetchChart loads and renders the price chart for a referenced ticker.
func (m *chatModel) fetchChart(symbol string) tea.Cmd {
	apiClient := m.apiClient
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		series, err := apiClient.StockSeries(ctx, symbol)
		if err != nil {
			return chartFailMsg{symbol: symbol, err: err}
		}
		return chartMsg{rendered: ui.RenderPriceChart(series)}
	}
}

// cancelStream aborts the in-flight stream: the context cancellation
// severs the network connection, which tears down the server side too.
// The partial accumulator is discarded, never persisted.
func (m *chatModel) cancelStream() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.acc.Discard()
	m.gen++ // invalidate any in-flight messages from the old stream
	m.state = streamIdle
	m.events = nil
}

// endStream clears the streaming state after a completed stream.
func (m *chatModel) endStream() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.state = streamIdle
	m.events = nil
}

// appendErrorMessage renders a failure as a distinct assistant-style
// bubble, prefixed so the user can tell it apart from a normal reply.
func (m *chatModel) appendErrorMessage(message string) {
	m.acc.Discard()
	m.content.WriteString(errorStyle.Render("Error: " + message))
	m.content.WriteString("\n")
	m.refreshContent()
}

// renderMessage appends a finalized message to the conversation view.
func (m *chatModel) renderMessage(role, content string) {
	m.content.WriteString("\n")
	switch role {
	case "user":
		m.content.WriteString(boldStyle.Render("You"))
	case "assistant":
		m.content.WriteString(accentStyle.Render("Assistant"))
	default:
		m.content.WriteString(dimStyle.Render(role))
	}
	m.content.WriteString("\n")
	m.content.WriteString(content)
	m.content.WriteString("\n")
}

// refreshContent re-renders the viewport, including the live streaming
// accumulator while a reply is in flight.
func (m *chatModel) refreshContent() {
	view := m.content.String()
	if m.state == streamStreaming {
		view += "\n" + accentStyle.Render("Assistant") + "\n" + m.acc.Current()
	}
	m.contentView.SetContent(view)
	m.contentView.GotoBottom()
}

// View renders the interface (Bubble Tea interface)
func (m chatModel) View() string {
	var status string
	if m.state == streamStreaming {
		status = accentStyle.Render("streaming...")
	} else {
		status = dimStyle.Render("enter send · esc cancel/quit · ctrl+c quit")
	}

	title := boldStyle.Render(m.sess.Title)

	return fmt.Sprintf("%s\n%s\n%s\n%s",
		title,
		m.contentView.View(),
		status,
		"> "+m.input.View(),
	)
}
