// Package engine drives the frame loop: it waits for a free frame slot,
// acquires a swapchain image, records and submits the draw and presents the
// result, rebuilding the swapchain whenever the surface changes.
package engine

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/buffer"
	"blast-engine/camera"
	"blast-engine/descriptor"
	"blast-engine/gpu"
	"blast-engine/input"
	"blast-engine/mesh"
	"blast-engine/pipeline"
	"blast-engine/queues"
	"blast-engine/shaders"
	"blast-engine/swapchain"
	"blast-engine/texture"
	"blast-engine/unsafer"
)

// ClearColor is what every frame starts from.
var ClearColor = [4]float32{0.01, 0.01, 0.01, 1}

// Window is what the engine needs from the windowing system.
type Window interface {
	swapchain.Framebuffer

	ShouldClose() bool
	PollEvents()

	// Resized reports a framebuffer size change the surface may not have
	// reported yet.
	Resized() bool
	ResetResized()

	Input() input.Snapshot
}

// Options are the inputs of New besides the device and the window.
type Options struct {
	Families queues.FamilyIndices

	// Shader is a SPIR-V module with both entry points.
	Shader []uint32
	Mesh   *mesh.Mesh

	// TexturePath may be empty for a white texture.
	TexturePath string

	Log logrus.FieldLogger
}

// Engine owns every GPU object created on top of the logical device.
type Engine struct {
	dev    gpu.Device
	window Window
	log    logrus.FieldLogger

	commandPool vk.CommandPool
	swapchain   *swapchain.Swapchain
	texture     *texture.Texture
	sampler     *texture.Sampler
	descriptor  *descriptor.Descriptor
	pipeline    *pipeline.Pipeline

	mesh         *mesh.Mesh
	vertexBuffer *buffer.Buffer
	indexBuffer  *buffer.Buffer

	frames       []frame
	currentFrame uint32

	camera *camera.Camera

	frameCount int
	lastTick   time.Time
	lastReport time.Time
}

// New builds the swapchain, the pipeline, the geometry and texture uploads and
// the frame slots. On error everything created so far is released.
func New(dev gpu.Device, window Window, opts Options) (*Engine, error) {
	if opts.Mesh == nil || len(opts.Mesh.Vertices) == 0 {
		return nil, errors.New("engine needs a mesh with vertices")
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	e := &Engine{
		dev:         dev,
		window:      window,
		log:         opts.Log,
		commandPool: vk.CommandPool(vk.NullHandle),
		mesh:        opts.Mesh,
	}

	if err := e.initVulkan(opts); err != nil {
		e.Destroy()
		return nil, err
	}

	extent := e.swapchain.Extent()
	e.camera = camera.New(float32(extent.Width) / float32(extent.Height))

	return e, nil
}

func (e *Engine) initVulkan(opts Options) error {
	if err := e.createCommandPool(opts.Families); err != nil {
		return errors.Wrap(err, "createCommandPool")
	}

	e.swapchain = swapchain.New(e.dev, e.window, opts.Families, e.log)
	if err := e.swapchain.Create(); err != nil {
		return errors.Wrap(err, "createSwapChain")
	}

	tex, err := texture.Load(e.dev, e.commandPool, e.dev.GraphicsQueue(), opts.TexturePath)
	if err != nil {
		return errors.Wrap(err, "createTextureImage")
	}
	e.texture = tex

	if e.sampler, err = texture.NewSampler(e.dev); err != nil {
		return errors.Wrap(err, "createTextureSampler")
	}

	e.descriptor = descriptor.New(e.dev)
	if err := e.descriptor.CreateSetLayout(descriptor.Bindings(1)); err != nil {
		return errors.Wrap(err, "createDescriptorSetLayout")
	}

	e.pipeline, err = pipeline.New(e.dev, pipeline.Config{
		Code:          opts.Shader,
		VertexEntry:   shaders.VertexEntry,
		FragmentEntry: shaders.FragmentEntry,
		Binding:       mesh.BindingDescription(),
		Attributes:    mesh.AttributeDescriptions(),
		SetLayouts:    []vk.DescriptorSetLayout{e.descriptor.Layout()},
		ColorFormat:   e.swapchain.Format(),
	})
	if err != nil {
		return errors.Wrap(err, "createGraphicsPipeline")
	}

	if err := e.swapchain.CreateFramebuffers(e.pipeline.RenderPass()); err != nil {
		return errors.Wrap(err, "createFramebuffers")
	}

	if err := e.createMeshBuffers(); err != nil {
		return err
	}

	if e.frames, err = createFrames(e.dev, e.commandPool, MaxFramesInFlight); err != nil {
		return errors.Wrap(err, "createSyncObjects")
	}

	if err := e.descriptor.CreatePool(descriptor.PoolSizes(1), MaxFramesInFlight); err != nil {
		return errors.Wrap(err, "createDescriptorPool")
	}

	err = e.descriptor.CreateSets(
		MaxFramesInFlight,
		uniformBuffers(e.frames),
		[]vk.ImageView{e.texture.View()},
		e.sampler.Handle(),
	)
	if err != nil {
		return errors.Wrap(err, "createDescriptorSets")
	}

	return nil
}

func (e *Engine) createCommandPool(families queues.FamilyIndices) error {
	if !families.IsComplete() {
		return errors.New("queue families are not complete")
	}

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: families.Graphics.Get(),
	}

	commandPool, err := e.dev.CreateCommandPool(&poolInfo)
	if err != nil {
		return errors.Wrap(err, "failed to create command pool")
	}

	e.commandPool = commandPool
	return nil
}

func (e *Engine) createMeshBuffers() error {
	vertexBuffer, err := buffer.Staged(
		e.dev,
		e.commandPool,
		e.dev.GraphicsQueue(),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		unsafer.SliceToBytes(e.mesh.Vertices),
	)
	if err != nil {
		return errors.Wrap(err, "createVertexBuffer")
	}
	e.vertexBuffer = vertexBuffer

	e.log.WithField("bytes", vertexBuffer.Size()).Debug("vertex buffer uploaded")

	if !e.mesh.Indexed() {
		return nil
	}

	indexBuffer, err := buffer.Staged(
		e.dev,
		e.commandPool,
		e.dev.GraphicsQueue(),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit),
		unsafer.SliceToBytes(e.mesh.Indices),
	)
	if err != nil {
		return errors.Wrap(err, "createIndexBuffer")
	}
	e.indexBuffer = indexBuffer

	e.log.WithField("bytes", indexBuffer.Size()).Debug("index buffer uploaded")

	return nil
}

// Run draws frames until the window is closed. The device is idle once it
// returns.
func (e *Engine) Run() error {
	e.lastTick = time.Now()
	e.lastReport = e.lastTick

	for !e.window.ShouldClose() {
		e.window.PollEvents()

		now := time.Now()
		dt := float32(now.Sub(e.lastTick).Seconds() * 1000)
		e.lastTick = now

		e.camera.Apply(e.window.Input(), dt)

		if err := e.DrawFrame(); err != nil {
			return errors.Wrap(err, "error drawing a frame")
		}

		e.reportFrameRate(now)
	}

	return errors.Wrap(e.dev.DeviceWaitIdle(), "waiting for the device")
}

func (e *Engine) reportFrameRate(now time.Time) {
	e.frameCount++

	elapsed := now.Sub(e.lastReport)
	if elapsed < time.Second {
		return
	}

	e.log.WithField("fps", float64(e.frameCount)/elapsed.Seconds()).Debug("frame rate")
	e.frameCount = 0
	e.lastReport = now
}

// DrawFrame renders one frame into the next swapchain image. A stale
// swapchain is rebuilt and the frame skipped without an error.
func (e *Engine) DrawFrame() error {
	current := &e.frames[e.currentFrame]

	if err := e.dev.WaitForFence(current.inFlight); err != nil {
		return errors.Wrap(err, "waiting for the in flight fence")
	}

	imageIndex, res := e.dev.AcquireNextImage(e.swapchain.Handle(), current.imageAvailable)
	if res == vk.ErrorOutOfDate {
		return e.recreateSwapChain()
	} else if res != vk.Success && res != vk.Suboptimal {
		return errors.Wrap(vk.Error(res), "failed to acquire swap chain image")
	}
	recreate := res == vk.Suboptimal

	// Only reset the fence if we are submitting work.
	if err := e.dev.ResetFence(current.inFlight); err != nil {
		return err
	}

	if err := e.dev.ResetCommandBuffer(current.commandBuffer); err != nil {
		return errors.Wrap(err, "resetting command buffer")
	}
	if err := e.recordCommandBuffer(current.commandBuffer, imageIndex); err != nil {
		return errors.Wrap(err, "recording command buffer")
	}

	if err := e.updateUniformBuffer(current); err != nil {
		return errors.Wrap(err, "updating uniform buffer")
	}

	signalSemaphores := []vk.Semaphore{current.renderFinished}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{current.imageAvailable},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{current.commandBuffer},
		SignalSemaphoreCount: uint32(len(signalSemaphores)),
		PSignalSemaphores:    signalSemaphores,
	}

	err := e.dev.QueueSubmit(e.dev.GraphicsQueue(), []vk.SubmitInfo{submitInfo}, current.inFlight)
	if err != nil {
		return errors.Wrap(err, "queue submit error")
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(signalSemaphores)),
		PWaitSemaphores:    signalSemaphores,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{e.swapchain.Handle()},
		PImageIndices:      []uint32{imageIndex},
	}

	res = e.dev.QueuePresent(e.dev.PresentQueue(), &presentInfo)
	switch res {
	case vk.Success, vk.Suboptimal, vk.ErrorOutOfDate:
	default:
		return errors.Wrap(vk.Error(res), "failed to present swap chain image")
	}

	if res != vk.Success || e.window.Resized() || recreate {
		if err := e.recreateSwapChain(); err != nil {
			return err
		}
	}

	e.currentFrame = (e.currentFrame + 1) % MaxFramesInFlight
	return nil
}

func (e *Engine) recreateSwapChain() error {
	e.window.ResetResized()

	if err := e.swapchain.Recreate(); err != nil {
		return errors.Wrap(err, "recreateSwapChain")
	}

	extent := e.swapchain.Extent()
	e.camera.SetAspect(extent.Width, extent.Height)

	return nil
}

func (e *Engine) recordCommandBuffer(commandBuffer vk.CommandBuffer, imageIndex uint32) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}

	if err := e.dev.BeginCommandBuffer(commandBuffer, &beginInfo); err != nil {
		return errors.Wrap(err, "cannot add begin command to the buffer")
	}

	extent := e.swapchain.Extent()

	var clearColor vk.ClearValue
	clearColor.SetColor(ClearColor[:])

	renderPassInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  e.pipeline.RenderPass(),
		Framebuffer: e.swapchain.Framebuffer(imageIndex),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{clearColor},
	}

	e.dev.CmdBeginRenderPass(commandBuffer, &renderPassInfo)
	e.dev.CmdBindPipeline(commandBuffer, e.pipeline.Handle())

	e.dev.CmdBindVertexBuffers(
		commandBuffer,
		[]vk.Buffer{e.vertexBuffer.Handle()},
		[]vk.DeviceSize{0},
	)
	if e.indexBuffer != nil {
		e.dev.CmdBindIndexBuffer(commandBuffer, e.indexBuffer.Handle(), vk.IndexTypeUint32)
	}

	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	e.dev.CmdSetViewport(commandBuffer, []vk.Viewport{viewport})

	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	e.dev.CmdSetScissor(commandBuffer, []vk.Rect2D{scissor})

	e.dev.CmdBindDescriptorSets(
		commandBuffer,
		e.pipeline.Layout(),
		[]vk.DescriptorSet{e.descriptor.Set(e.currentFrame)},
	)

	if e.indexBuffer != nil {
		e.dev.CmdDrawIndexed(commandBuffer, uint32(len(e.mesh.Indices)))
	} else {
		e.dev.CmdDraw(commandBuffer, uint32(len(e.mesh.Vertices)))
	}

	e.dev.CmdEndRenderPass(commandBuffer)

	if err := e.dev.EndCommandBuffer(commandBuffer); err != nil {
		return errors.Wrap(err, "recording commands to buffer failed")
	}
	return nil
}

// updateUniformBuffer writes the slot's matrices. The slot's fence has been
// waited on, so the GPU no longer reads them.
func (e *Engine) updateUniformBuffer(current *frame) error {
	ubo := UniformBufferObject{
		Model: e.mesh.Model,
		View:  e.camera.View(),
		Proj:  e.camera.Projection(),
	}

	return current.uniform.Map(ubo.bytes())
}

// FrameIndex is the frame slot the next DrawFrame will use.
func (e *Engine) FrameIndex() uint32 {
	return e.currentFrame
}

// Camera is the camera the uniform buffers are computed from.
func (e *Engine) Camera() *camera.Camera {
	return e.camera
}

// Swapchain exposes the current swapchain, mostly for inspection.
func (e *Engine) Swapchain() *swapchain.Swapchain {
	return e.swapchain
}

// Destroy waits for the device to go idle and releases everything New
// created, in reverse order. It is safe on a partially built engine.
func (e *Engine) Destroy() {
	if err := e.dev.DeviceWaitIdle(); err != nil {
		e.log.WithError(err).Warn("waiting for the device before cleanup")
	}

	destroyFrames(e.dev, e.frames)
	e.frames = nil

	if e.indexBuffer != nil {
		e.indexBuffer.Clean()
	}
	if e.vertexBuffer != nil {
		e.vertexBuffer.Clean()
	}

	if e.swapchain != nil {
		e.swapchain.Destroy()
	}
	if e.pipeline != nil {
		e.pipeline.Destroy()
	}
	if e.descriptor != nil {
		e.descriptor.Clean()
	}
	if e.sampler != nil {
		e.sampler.Clean()
	}
	if e.texture != nil {
		e.texture.Clean()
	}

	if e.commandPool != vk.CommandPool(vk.NullHandle) {
		e.dev.DestroyCommandPool(e.commandPool)
		e.commandPool = vk.CommandPool(vk.NullHandle)
	}
}
