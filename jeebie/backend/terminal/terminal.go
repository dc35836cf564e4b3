package terminal

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/jeebie/jeebie/backend"
	"github.com/valerio/jeebie/jeebie/backend/terminal/render"
	"github.com/valerio/jeebie/jeebie/debug"
	"github.com/valerio/jeebie/jeebie/input"
	"github.com/valerio/jeebie/jeebie/input/action"
	"github.com/valerio/jeebie/jeebie/input/event"
	"github.com/valerio/jeebie/jeebie/video"
)

const (
	width  = video.FramebufferWidth
	height = video.FramebufferHeight

	registerHeight = 9
	disasmHeight   = 9
	audioHeight    = 5
	spriteHeight   = debug.MaxSpritesPerLine + 1
	minTermWidth   = width + 4
	minTermHeight  = height/2 + 2

	logBufferSize = 200
)

// Key expiry timeout - slightly longer than typical key repeat interval.
// Terminals only report key presses, a held key shows up as repeats.
const keyTimeout = 100 * time.Millisecond

// Backend implements the Backend interface using tcell for terminal rendering
type Backend struct {
	screen    tcell.Screen
	logBuffer *render.LogBuffer
	logLevel  *slog.LevelVar
	config    backend.Config
	keys      map[string]action.Action

	keyStates  map[action.Action]time.Time // Last time each joypad key was seen
	activeKeys map[action.Action]bool      // Joypad keys active in previous frame

	signals chan os.Signal
	now     func() time.Time
}

// New creates a new terminal backend. screen may be nil, in which case
// the real terminal is used.
func New(screen tcell.Screen) *Backend {
	logLevel := new(slog.LevelVar)
	logLevel.Set(slog.LevelInfo)
	return &Backend{
		screen:   screen,
		logLevel: logLevel,
		now:      time.Now,
	}
}

// Init initializes the terminal backend
func (t *Backend) Init(config backend.Config) error {
	t.config = config
	t.keys = config.KeyMap
	if t.keys == nil {
		t.keys = input.DefaultKeyMap
	}
	t.keyStates = make(map[action.Action]time.Time)
	t.activeKeys = make(map[action.Action]bool)

	if t.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to initialize terminal: %w", err)
		}
		t.screen = screen
	}
	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}

	// logs go to the panel, writing to stderr would corrupt the screen
	t.logBuffer = render.NewLogBuffer(logBufferSize)
	slog.SetDefault(slog.New(render.NewLogBufferHandler(t.logBuffer, slog.LevelDebug)))

	if in := config.Input; in != nil {
		in.On(action.EmulatorDebugToggle, event.Press, t.toggleDebug)
		in.On(action.DebugLogLevelIncrease, event.Press, func() { t.changeLogLevel(1) })
		in.On(action.DebugLogLevelDecrease, event.Press, func() { t.changeLogLevel(-1) })
	}

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	t.signals = make(chan os.Signal, 1)
	signal.Notify(t.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	slog.Info("Terminal backend initialized", "title", config.Title)
	return nil
}

// Update renders a frame and processes events
func (t *Backend) Update(frame *video.FrameBuffer, data *debug.Data) error {
	select {
	case <-t.signals:
		t.quit()
		return nil
	default:
	}

	now := t.now()
	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			t.processKeyEvent(ev, now)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
	t.updateJoypad(now)

	t.render(frame, data)
	t.screen.Show()
	return nil
}

// Cleanup cleans up terminal resources
func (t *Backend) Cleanup() error {
	if t.signals != nil {
		signal.Stop(t.signals)
	}
	if t.screen != nil {
		t.screen.Fini()
	}
	return nil
}

func (t *Backend) quit() {
	if t.config.Callbacks.OnQuit != nil {
		t.config.Callbacks.OnQuit()
	}
}

func (t *Backend) trigger(act action.Action, evt event.Type) {
	if t.config.Input != nil {
		t.config.Input.Trigger(act, evt)
	}
}

// updateJoypad turns the key repeats seen so far into press and release
// events.
func (t *Backend) updateJoypad(now time.Time) {
	current := make(map[action.Action]bool)
	for act, last := range t.keyStates {
		if now.Sub(last) >= keyTimeout {
			delete(t.keyStates, act)
			continue
		}
		current[act] = true
		if !t.activeKeys[act] {
			t.trigger(act, event.Press)
		}
	}
	for act := range t.activeKeys {
		if !current[act] {
			t.trigger(act, event.Release)
		}
	}
	t.activeKeys = current
}

// keyNames are the names of the non-rune keys, as used in key maps.
var keyNames = map[tcell.Key]string{
	tcell.KeyEnter:      "enter",
	tcell.KeyUp:         "up",
	tcell.KeyDown:       "down",
	tcell.KeyLeft:       "left",
	tcell.KeyRight:      "right",
	tcell.KeyEscape:     "esc",
	tcell.KeyTab:        "tab",
	tcell.KeyBackspace:  "backspace",
	tcell.KeyBackspace2: "backspace",
	tcell.KeyF1:         "f1",
	tcell.KeyF2:         "f2",
	tcell.KeyF3:         "f3",
	tcell.KeyF4:         "f4",
	tcell.KeyF5:         "f5",
	tcell.KeyF6:         "f6",
	tcell.KeyF7:         "f7",
	tcell.KeyF8:         "f8",
	tcell.KeyF9:         "f9",
	tcell.KeyF10:        "f10",
	tcell.KeyF11:        "f11",
	tcell.KeyF12:        "f12",
}

// KeyName returns the key map name of a key event, empty when the key has
// none.
func KeyName(ev *tcell.EventKey) string {
	if ev.Key() == tcell.KeyRune {
		if ev.Rune() == ' ' {
			return "space"
		}
		return strings.ToLower(string(ev.Rune()))
	}
	return keyNames[ev.Key()]
}

func (t *Backend) processKeyEvent(ev *tcell.EventKey, now time.Time) {
	if ev.Key() == tcell.KeyCtrlC {
		t.quit()
		return
	}

	act, ok := t.keys[KeyName(ev)]
	if !ok {
		return
	}

	if _, isButton := act.Button(); !isButton {
		t.trigger(act, event.Press)
		return
	}

	switch act {
	case action.GBDPadUp, action.GBDPadDown, action.GBDPadLeft, action.GBDPadRight:
		// opposite directions cannot be held together on the real d-pad
		delete(t.keyStates, action.GBDPadUp)
		delete(t.keyStates, action.GBDPadDown)
		delete(t.keyStates, action.GBDPadLeft)
		delete(t.keyStates, action.GBDPadRight)
	}
	t.keyStates[act] = now
}

func (t *Backend) toggleDebug() {
	t.config.ShowDebug = !t.config.ShowDebug
	slog.Info("Debug display toggled", "enabled", t.config.ShowDebug)
}

func (t *Backend) changeLogLevel(direction int) {
	levels := []slog.Level{slog.LevelError, slog.LevelWarn, slog.LevelInfo, slog.LevelDebug}
	current := 0
	for i, l := range levels {
		if l == t.logLevel.Level() {
			current = i
		}
	}
	next := min(max(current+direction, 0), len(levels)-1)
	if next != current {
		slog.Info("Log filter changed", "from", levels[current], "to", levels[next])
		t.logLevel.Set(levels[next])
	}
}

func (t *Backend) render(frame *video.FrameBuffer, data *debug.Data) {
	termWidth, termHeight := t.screen.Size()
	t.screen.Clear()

	if termWidth < minTermWidth || termHeight < minTermHeight {
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
		t.drawText(0, termHeight/2, termWidth, msg, tcell.StyleDefault.Foreground(tcell.ColorRed))
		return
	}

	dividerX := width + 1
	panelX := dividerX + 2
	panelWidth := max(termWidth-panelX, 0)

	t.drawBorders(termWidth, termHeight, dividerX)
	t.drawGameBoy(frame)

	logsY := 1
	if t.config.ShowDebug && data != nil {
		y := 1
		y = t.drawSection(panelX, y, panelWidth, " CPU ", t.registerLines(data), registerHeight, tcell.ColorBlue)
		y = t.drawDisassembly(panelX, y, panelWidth, data)
		if data.Audio != nil {
			y = t.drawSection(panelX, y, panelWidth, " Audio ", audioLines(data.Audio), audioHeight, tcell.ColorTeal)
		}
		if data.OAM != nil {
			y = t.drawSection(panelX, y, panelWidth, " Sprites ", spriteLines(data.OAM), spriteHeight, tcell.ColorPurple)
		}
		logsY = y
	}
	t.drawLogs(panelX, logsY, panelWidth, termHeight-1)
}

func (t *Backend) drawText(x, y, maxWidth int, text string, style tcell.Style) {
	col := 0
	for _, ch := range text {
		if col >= maxWidth {
			return
		}
		t.screen.SetContent(x+col, y, ch, nil, style)
		col++
	}
}

func (t *Backend) drawBorders(termWidth, termHeight, dividerX int) {
	borderStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	titleStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)

	for y := range termHeight - 1 {
		t.screen.SetContent(dividerX, y, '│', nil, borderStyle)
	}

	title := " Game Boy "
	if t.config.Title != "" {
		title = fmt.Sprintf(" %s ", t.config.Title)
	}
	t.drawText(1, 0, dividerX-1, title, titleStyle)

	help := " F10 debug  SPACE pause  O frame  I step  F5/F7 save/load  F9 snapshot  F1-F4 mute  1-4 solo  0 unmute  +/- logs  Q quit "
	t.drawText(0, termHeight-1, termWidth, help, borderStyle)
}

func (t *Backend) drawGameBoy(frame *video.FrameBuffer) {
	for y := 0; y < height; y += 2 {
		for x := range width {
			top := frame.GetPixel(x, y)
			bottom := video.WhiteColor
			if y+1 < height {
				bottom = frame.GetPixel(x, y+1)
			}
			ch, style := render.HalfBlock(top, bottom)
			t.screen.SetContent(x, y/2+1, ch, nil, style)
		}
	}
}

// drawSection draws a titled block of at most maxLines lines and returns
// the row following it.
func (t *Backend) drawSection(x, y, w int, title string, lines []string, maxLines int, color tcell.Color) int {
	t.drawText(x, y, w, title, tcell.StyleDefault.Foreground(tcell.ColorYellow))
	style := tcell.StyleDefault.Foreground(color)
	for i, line := range lines {
		if i >= maxLines {
			break
		}
		t.drawText(x, y+1+i, w, line, style)
	}
	return y + maxLines + 2
}

func (t *Backend) registerLines(data *debug.Data) []string {
	c := data.CPU
	ime := "OFF"
	if c.IME {
		ime = "ON"
	}
	lines := []string{
		fmt.Sprintf("Status: %s  Flags: %s", data.DebuggerState, c.Flags),
		fmt.Sprintf("A: 0x%02X  F: 0x%02X", c.A, c.F),
		fmt.Sprintf("B: 0x%02X  C: 0x%02X", c.B, c.C),
		fmt.Sprintf("D: 0x%02X  E: 0x%02X", c.D, c.E),
		fmt.Sprintf("H: 0x%02X  L: 0x%02X", c.H, c.L),
		fmt.Sprintf("SP: 0x%04X  PC: 0x%04X", c.SP, c.PC),
		fmt.Sprintf("IME: %s  IE: 0x%02X  IF: 0x%02X", ime, data.InterruptEnable, data.InterruptFlags),
		fmt.Sprintf("Cycles: %d  Halted: %t", c.Cycles, c.Halted),
	}
	if len(data.Breakpoints) > 0 {
		names := make([]string, len(data.Breakpoints))
		for i, bp := range data.Breakpoints {
			names[i] = bp.String()
		}
		lines = append(lines, "Breakpoints: "+strings.Join(names, " "))
	}
	return lines
}

func (t *Backend) drawDisassembly(x, y, w int, data *debug.Data) int {
	t.drawText(x, y, w, " Disassembly ", tcell.StyleDefault.Foreground(tcell.ColorYellow))
	style := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	currentStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)

	for i, line := range data.Disassembly {
		if i >= disasmHeight {
			break
		}
		marker, s := " ", style
		if line.IsCurrent {
			marker, s = "→", currentStyle
		}
		t.drawText(x, y+1+i, w, fmt.Sprintf("%s %s", marker, line.String()), s)
	}
	return y + disasmHeight + 2
}

func audioLines(a *debug.AudioData) []string {
	names := [4]string{"SQ1", "SQ2", "WAV", "NOI"}
	lines := []string{fmt.Sprintf("Power: %t  Vol L%d R%d  Seq: %d",
		a.APUEnabled, a.MasterVolume.Left, a.MasterVolume.Right, a.FrameSequencerStep)}
	for i, ch := range a.Channels {
		state := "off"
		switch {
		case ch.Enabled && ch.Muted:
			state = "muted"
		case ch.Enabled:
			state = "on"
		}
		lines = append(lines, fmt.Sprintf("%s %-5s vol %2d %8.1fHz %s", names[i], state, ch.Volume, ch.Frequency, ch.Note))
	}
	return lines
}

func spriteLines(oam *debug.OAMData) []string {
	lines := []string{oam.FormatSummary()}
	for _, s := range oam.GetVisibleSprites() {
		lines = append(lines, s.String())
	}
	return lines
}

func (t *Backend) drawLogs(x, y, w, bottom int) {
	available := bottom - y - 1
	if w <= 0 || available <= 0 {
		return
	}
	t.drawText(x, y, w, fmt.Sprintf(" Logs [%s] ", t.logLevel.Level()), tcell.StyleDefault.Foreground(tcell.ColorYellow))

	// the buffer keeps debug records, lowering the threshold later shows them
	entries := t.logBuffer.Recent(available, t.logLevel.Level())

	for i, entry := range entries {
		style := tcell.StyleDefault.Foreground(tcell.ColorBlue)
		switch {
		case entry.Level >= slog.LevelError:
			style = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
		case entry.Level >= slog.LevelWarn:
			style = tcell.StyleDefault.Foreground(tcell.ColorYellow)
		case entry.Level < slog.LevelInfo:
			style = tcell.StyleDefault.Foreground(tcell.ColorGray)
		}

		text := entry.String()
		if len(text) > w && w > 3 {
			text = text[:w-3] + "..."
		}
		t.drawText(x, y+1+i, w, text, style)
	}
}
