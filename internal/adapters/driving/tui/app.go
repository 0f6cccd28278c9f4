package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Messages emitted by the streaming pipeline.
type (
	// streamStarted carries a freshly opened answer stream.
	streamStarted struct {
		handle *driving.StreamHandle
	}

	// streamDelta is one generated fragment.
	streamDelta struct {
		delta string
	}

	// streamDone marks a completed answer.
	streamDone struct{}

	// streamFailed carries a terminal stream error.
	streamFailed struct {
		err error
	}
)

// App is the bubbletea model for the chat view.
type App struct {
	ports  *Ports
	styles *Styles
	ctx    context.Context

	sessionID  string
	collection string

	input      textinput.Model
	viewport   viewport.Model
	transcript []string

	streaming bool
	events    <-chan driven.StreamEvent
	citations []domain.Citation
	grounded  bool
	backend   string

	status string
	width  int
	height int
	ready  bool
}

// NewApp creates the chat application model.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil || ports.Chat == nil {
		return nil, errors.New("chat service is required")
	}

	input := textinput.New()
	input.Placeholder = "Ask about your documents..."
	input.Focus()

	return &App{
		ports:     ports,
		styles:    DefaultStyles(),
		ctx:       context.Background(),
		sessionID: uuid.NewString(),
		input:     input,
		viewport:  viewport.New(80, 20),
		status:    "Ready",
		width:     80,
		height:    24,
	}, nil
}

// WithContext sets the context used for chat requests.
func (a *App) WithContext(ctx context.Context) *App {
	if ctx != nil {
		a.ctx = ctx
	}
	return a
}

// WithCollection scopes retrieval to one collection.
func (a *App) WithCollection(collection string) *App {
	a.collection = collection
	return a
}

// Init starts the input cursor blink.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles one message.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.viewport.Width = msg.Width
		a.viewport.Height = msg.Height - 5
		a.input.Width = msg.Width - 6
		a.ready = true
		a.refreshViewport()
		return a, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return a, tea.Quit
		case tea.KeyEnter:
			return a, a.submit()
		}

	case streamStarted:
		a.events = msg.handle.Events
		a.citations = msg.handle.Citations
		a.grounded = msg.handle.Grounded
		a.backend = msg.handle.Backend
		a.transcript = append(a.transcript, "")
		a.status = fmt.Sprintf("Answering via %s...", a.backend)
		return a, a.nextEvent()

	case streamDelta:
		a.appendToAnswer(msg.delta)
		a.refreshViewport()
		return a, a.nextEvent()

	case streamDone:
		a.finishAnswer()
		return a, nil

	case streamFailed:
		a.streaming = false
		a.events = nil
		a.transcript = append(a.transcript,
			a.styles.Error.Render(fmt.Sprintf("Error: %v", msg.err)), "")
		a.status = "Ready"
		a.refreshViewport()
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// View renders the chat screen.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(a.styles.Title.Render("docchat"))
	b.WriteString("\n")
	b.WriteString(a.viewport.View())
	b.WriteString("\n")
	b.WriteString(a.styles.InputBox.Width(a.width - 2).Render(a.input.View()))
	b.WriteString("\n")
	b.WriteString(a.styles.Status.Render(a.status + "  (esc to quit)"))
	return b.String()
}

// submit sends the typed question unless a stream is in flight.
func (a *App) submit() tea.Cmd {
	if a.streaming {
		return nil
	}

	question := strings.TrimSpace(a.input.Value())
	if question == "" {
		return nil
	}

	a.input.Reset()
	a.streaming = true
	a.transcript = append(a.transcript, a.styles.User.Render("You: ")+question)
	a.refreshViewport()

	opts := driving.AskOptions{Collection: a.collection}
	return func() tea.Msg {
		handle, err := a.ports.Chat.AskStream(a.ctx, a.sessionID, question, opts)
		if err != nil {
			return streamFailed{err: err}
		}
		return streamStarted{handle: handle}
	}
}

// nextEvent waits for the next fragment of the open stream.
func (a *App) nextEvent() tea.Cmd {
	events := a.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamDone{}
		}
		switch ev.Kind {
		case driven.EventDelta:
			return streamDelta{delta: ev.Delta}
		case driven.EventError:
			return streamFailed{err: ev.Err}
		default:
			return streamDone{}
		}
	}
}

// appendToAnswer grows the in-progress assistant line.
func (a *App) appendToAnswer(delta string) {
	if len(a.transcript) == 0 {
		a.transcript = append(a.transcript, "")
	}
	a.transcript[len(a.transcript)-1] += delta
}

// finishAnswer closes out the stream and renders citations.
func (a *App) finishAnswer() {
	a.streaming = false
	a.events = nil

	if a.grounded {
		for i, c := range a.citations {
			a.transcript = append(a.transcript, a.styles.Citation.Render(
				fmt.Sprintf("  [%d] document %s, chunk %d (%.2f)", i+1, c.DocumentID, c.Ordinal, c.Score)))
		}
	} else {
		a.transcript = append(a.transcript,
			a.styles.Citation.Render("  (ungrounded; no matching documents)"))
	}
	a.transcript = append(a.transcript, "")
	a.status = "Ready"
	a.refreshViewport()
}

func (a *App) refreshViewport() {
	a.viewport.SetContent(strings.Join(a.transcript, "\n"))
	a.viewport.GotoBottom()
}
