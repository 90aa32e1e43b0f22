// Package tray provides a system tray interface for the Mukha face recognition system.
package tray

import (
	"strconv"
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onSaveFace func()
	onReload   func()
	onOpen     func()
	onQuit     func()
	enabled    bool
	lastSeen   string
	knownFaces int
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuLastSeen *systray.MenuItem
	menuFaces    *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSaveFace sets the callback for the "Save My Face..." menu item.
func (t *Tray) OnSaveFace(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSaveFace = fn
}

// OnReload sets the callback for the reload menu item.
func (t *Tray) OnReload(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReload = fn
}

// OnOpen sets the callback for the menu item that opens the live view.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mukha")
	systray.SetTooltip("Mukha Face Recognition")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle face recognition")
	systray.AddSeparator()

	t.menuLastSeen = systray.AddMenuItem(lastSeenTitle(t.lastSeen), "Last recognized face")
	t.menuLastSeen.Disable()
	t.menuFaces = systray.AddMenuItem(knownFacesTitle(t.knownFaces), "Faces in the gallery")
	t.menuFaces.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSave := systray.AddMenuItem("Save My Face...", "Enroll the face in front of the camera")
	menuReload := systray.AddMenuItem("Reload Faces", "Rescan the known faces directory")
	menuOpen := systray.AddMenuItem("Open Live View...", "Open the camera view in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mukha")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSave.ClickedCh:
				t.invoke(func() func() { return t.onSaveFace })
			case <-menuReload.ClickedCh:
				t.invoke(func() func() { return t.onReload })
			case <-menuOpen.ClickedCh:
				t.invoke(func() func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Recognition On"
	}
	return "○ Recognition Off"
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.menuToggle.SetTitle(toggleTitle(enabled))
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// invoke runs the callback returned by get, read under the lock.
func (t *Tray) invoke(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.invoke(func() func() { return t.onQuit })
	systray.Quit()
}

func lastSeenTitle(label string) string {
	if label == "" {
		return "Last seen: none"
	}
	return "Last seen: " + label
}

func knownFacesTitle(n int) string {
	return "Known faces: " + strconv.Itoa(n)
}

// SetLastSeen updates the last recognized face in the menu.
func (t *Tray) SetLastSeen(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastSeen = label
	if t.menuLastSeen != nil {
		t.menuLastSeen.SetTitle(lastSeenTitle(label))
	}
}

// SetKnownFaces updates the gallery size shown in the menu.
func (t *Tray) SetKnownFaces(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.knownFaces = n
	if t.menuFaces != nil {
		t.menuFaces.SetTitle(knownFacesTitle(n))
	}
}

// Quit stops the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// SetEnabled shows enabled as the current state without calling OnToggle.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
