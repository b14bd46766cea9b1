// Package window opens the GLFW window the engine renders into and turns
// its keyboard and mouse state into input snapshots.
package window

import (
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/input"
)

// Window is a resizable GLFW window without a client API. GLFW must only be
// used from the main thread.
type Window struct {
	window  *glfw.Window
	resized bool
}

// New initializes GLFW and opens the window.
func New(title string, width, height int) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "glfw.Init")
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "creating window")
	}

	w := &Window{window: window}
	window.SetFramebufferSizeCallback(w.frameBufferResizeCallback)
	window.SetKeyCallback(w.keyCallback)

	return w, nil
}

func (w *Window) frameBufferResizeCallback(
	_ *glfw.Window,
	_ int,
	_ int,
) {
	w.resized = true
}

func (w *Window) keyCallback(
	window *glfw.Window,
	key glfw.Key,
	_ int,
	action glfw.Action,
	_ glfw.ModifierKey,
) {
	if key == glfw.KeyEscape && action == glfw.Press {
		window.SetShouldClose(true)
	}
}

// InstanceProcAddr is the loader entry point GLFW found.
func (w *Window) InstanceProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

// RequiredInstanceExtensions lists the instance extensions needed to present
// to this window.
func (w *Window) RequiredInstanceExtensions() []string {
	return w.window.GetRequiredInstanceExtensions()
}

// CreateSurface creates the presentation surface for instance.
func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surfacePtr, err := w.window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "creating window surface")
	}

	return vk.SurfaceFromPointer(surfacePtr), nil
}

// ShouldClose reports whether the user asked to close the window.
func (w *Window) ShouldClose() bool {
	return w.window.ShouldClose()
}

// PollEvents processes pending events without blocking.
func (w *Window) PollEvents() {
	glfw.PollEvents()
}

// WaitEvents blocks until at least one event arrives.
func (w *Window) WaitEvents() {
	glfw.WaitEvents()
}

// FramebufferSize returns the drawable size in pixels. It is 0x0 while the
// window is minimized.
func (w *Window) FramebufferSize() (int, int) {
	return w.window.GetFramebufferSize()
}

// Resized reports whether the framebuffer changed size since the last
// ResetResized.
func (w *Window) Resized() bool {
	return w.resized
}

// ResetResized clears the flag returned by Resized.
func (w *Window) ResetResized() {
	w.resized = false
}

// Input samples the current state of the controls.
func (w *Window) Input() input.Snapshot {
	pressed := func(key glfw.Key) bool {
		return w.window.GetKey(key) == glfw.Press
	}

	x, y := w.window.GetCursorPos()
	_, height := w.window.GetSize()

	return input.Snapshot{
		Forward:  pressed(glfw.KeyW),
		Backward: pressed(glfw.KeyS),
		Left:     pressed(glfw.KeyA),
		Right:    pressed(glfw.KeyD),
		Up:       pressed(glfw.KeySpace),
		Down:     pressed(glfw.KeyLeftControl),
		Click:    w.window.GetMouseButton(glfw.MouseButtonLeft) == glfw.Press,
		CursorX:  x,
		CursorY:  float64(height) - y,
	}
}

// Destroy closes the window and terminates GLFW.
func (w *Window) Destroy() {
	w.window.Destroy()
	glfw.Terminate()
}
