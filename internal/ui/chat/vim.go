// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// VIM MODE
// =============================================================================

// VimMode identifies the current vim editing mode.
type VimMode int

const (
	// VimNormal is for transcript navigation.
	VimNormal VimMode = iota
	// VimInsert is for typing into the input line.
	VimInsert
	// VimCommand is for ex-style commands (:q, :w, :drop).
	VimCommand
)

// String returns the mode indicator shown in the status area.
func (m VimMode) String() string {
	switch m {
	case VimNormal:
		return "NORMAL"
	case VimInsert:
		return "INSERT"
	case VimCommand:
		return "COMMAND"
	default:
		return "UNKNOWN"
	}
}

// VimCommandMsg is emitted when an ex command executes.
type VimCommandMsg struct {
	Command string
	Value   string
}

// =============================================================================
// VIM HANDLER
// =============================================================================

// VimHandler implements modal key handling. When disabled, HandleKey
// consumes nothing and the chat view behaves like a plain input.
//
// Insert mode passes keys through to the text input except esc.
// Normal mode navigates the transcript with counts (5j scrolls five
// lines). Command mode accumulates an ex command executed on enter.
type VimHandler struct {
	mode    VimMode
	enabled bool

	commandBuffer string
	count         int
	lastG         bool
}

// NewVimHandler creates a vim handler. Starts in insert mode so the
// first session keystroke goes into the prompt, matching how people
// actually open a chat.
func NewVimHandler(enabled bool) *VimHandler {
	return &VimHandler{
		mode:    VimInsert,
		enabled: enabled,
	}
}

// Enabled reports whether vim handling is active.
func (v *VimHandler) Enabled() bool {
	return v.enabled
}

// SetEnabled toggles vim handling. Disabling resets to insert mode so
// the input is usable immediately.
func (v *VimHandler) SetEnabled(enabled bool) {
	v.enabled = enabled
	if !enabled {
		v.mode = VimInsert
		v.commandBuffer = ""
		v.count = 0
		v.lastG = false
	}
}

// Mode returns the current vim mode.
func (v *VimHandler) Mode() VimMode {
	return v.mode
}

// CommandBuffer returns the pending ex command for display, including
// the leading colon. Empty outside command mode.
func (v *VimHandler) CommandBuffer() string {
	if v.mode != VimCommand {
		return ""
	}
	return ":" + v.commandBuffer
}

// HandleKey processes one key. Returns true when the key was consumed
// and must not reach the text input or the global bindings.
func (v *VimHandler) HandleKey(msg tea.KeyMsg, vp *viewport.Model, input *textinput.Model) (bool, tea.Cmd) {
	if !v.enabled {
		return false, nil
	}

	switch v.mode {
	case VimInsert:
		return v.handleInsert(msg, input)
	case VimNormal:
		return v.handleNormal(msg, vp, input)
	case VimCommand:
		return v.handleCommand(msg)
	}
	return false, nil
}

// handleInsert only intercepts esc; everything else belongs to the
// text input.
func (v *VimHandler) handleInsert(msg tea.KeyMsg, input *textinput.Model) (bool, tea.Cmd) {
	if msg.String() == "esc" {
		v.mode = VimNormal
		input.Blur()
		return true, nil
	}
	return false, nil
}

// handleNormal processes navigation and mode-switch keys.
func (v *VimHandler) handleNormal(msg tea.KeyMsg, vp *viewport.Model, input *textinput.Model) (bool, tea.Cmd) {
	keyStr := msg.String()

	// Count prefix. "0" only counts when a count is already started.
	if len(keyStr) == 1 && keyStr >= "1" && keyStr <= "9" {
		v.count = v.count*10 + int(keyStr[0]-'0')
		v.lastG = false
		return true, nil
	}
	if keyStr == "0" && v.count > 0 {
		v.count = v.count * 10
		return true, nil
	}

	count := v.count
	if count == 0 {
		count = 1
	}
	v.count = 0

	// gg needs one key of memory.
	if keyStr == "g" {
		if v.lastG {
			v.lastG = false
			vp.GotoTop()
			return true, nil
		}
		v.lastG = true
		return true, nil
	}
	v.lastG = false

	switch keyStr {
	case "j", "down":
		vp.LineDown(count)
		return true, nil
	case "k", "up":
		vp.LineUp(count)
		return true, nil
	case "G":
		vp.GotoBottom()
		return true, nil
	case "ctrl+d":
		vp.HalfViewDown()
		return true, nil
	case "ctrl+u":
		vp.HalfViewUp()
		return true, nil
	case "ctrl+f":
		vp.ViewDown()
		return true, nil
	case "ctrl+b":
		vp.ViewUp()
		return true, nil

	case "i":
		v.mode = VimInsert
		return true, input.Focus()
	case "a":
		v.mode = VimInsert
		cmd := input.Focus()
		input.CursorEnd()
		return true, cmd
	case "I":
		v.mode = VimInsert
		cmd := input.Focus()
		input.SetCursor(0)
		return true, cmd
	case "A":
		v.mode = VimInsert
		cmd := input.Focus()
		input.CursorEnd()
		return true, cmd

	case ":":
		v.mode = VimCommand
		v.commandBuffer = ""
		return true, nil
	}

	// Unknown normal-mode keys are swallowed so stray letters never
	// leak into the prompt.
	return true, nil
}

// handleCommand accumulates and executes ex commands.
func (v *VimHandler) handleCommand(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.mode = VimNormal
		v.commandBuffer = ""
		return true, nil

	case "enter":
		command := strings.TrimSpace(v.commandBuffer)
		v.commandBuffer = ""
		v.mode = VimNormal
		return true, v.executeCommand(command)

	case "backspace":
		if len(v.commandBuffer) > 0 {
			v.commandBuffer = v.commandBuffer[:len(v.commandBuffer)-1]
		} else {
			v.mode = VimNormal
		}
		return true, nil

	default:
		if len(msg.Runes) > 0 {
			v.commandBuffer += string(msg.Runes)
		}
		return true, nil
	}
}

// executeCommand maps an ex command to a VimCommandMsg or quit.
func (v *VimHandler) executeCommand(command string) tea.Cmd {
	name := command
	value := ""
	if i := strings.IndexByte(command, ' '); i >= 0 {
		name = command[:i]
		value = strings.TrimSpace(command[i+1:])
	}

	switch name {
	case "q", "quit":
		return tea.Quit

	case "w", "write":
		return vimCommandCmd("flush", "")

	case "wq":
		return tea.Sequence(vimCommandCmd("flush", ""), tea.Quit)

	case "drop":
		return vimCommandCmd("drop", value)

	case "clear":
		return vimCommandCmd("clear", "")

	case "help", "h":
		return vimCommandCmd("help", value)

	case "set":
		switch value {
		case "vim":
			return vimCommandCmd("vim", "on")
		case "novim":
			v.SetEnabled(false)
			return vimCommandCmd("vim", "off")
		}
		return vimCommandCmd("set", value)

	case "":
		return nil
	}

	return vimCommandCmd("unknown", command)
}

// vimCommandCmd wraps a VimCommandMsg in a command. Ranges are not
// supported; the commands the cockpit needs take none.
func vimCommandCmd(command, value string) tea.Cmd {
	return func() tea.Msg {
		return VimCommandMsg{Command: command, Value: value}
	}
}
