// Package gpu is the boundary between the engine and the Vulkan driver.
//
// Device mirrors the subset of logical device, queue and command buffer calls
// the engine issues. Vulkan implements it on top of vulkan-go; gputest
// implements it in memory so the frame loop and upload paths run without a GPU.
package gpu

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Device is a logical device bound to one presentation surface together with
// its graphics and present queues.
type Device interface {
	GraphicsQueue() vk.Queue
	PresentQueue() vk.Queue
	Surface() vk.Surface
	Properties() Properties
	MemoryTypes() []MemoryType
	DeviceWaitIdle() error

	SurfaceCapabilities() (vk.SurfaceCapabilities, error)
	SurfaceFormats() ([]vk.SurfaceFormat, error)
	SurfacePresentModes() ([]vk.PresentMode, error)

	CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error)
	DestroySwapchain(swapchain vk.Swapchain)
	SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error)

	// AcquireNextImage waits without a timeout for the next presentable image
	// and signals sem once it is available. The raw result is returned so
	// callers can tell staleness apart from failure.
	AcquireNextImage(swapchain vk.Swapchain, sem vk.Semaphore) (uint32, vk.Result)
	QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result

	CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error)
	DestroyBuffer(buffer vk.Buffer)
	BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements
	BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) error

	CreateImage(info *vk.ImageCreateInfo) (vk.Image, error)
	DestroyImage(image vk.Image)
	ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements
	BindImageMemory(image vk.Image, memory vk.DeviceMemory) error

	AllocateMemory(info *vk.MemoryAllocateInfo) (vk.DeviceMemory, error)
	FreeMemory(memory vk.DeviceMemory)
	MapMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, error)
	UnmapMemory(memory vk.DeviceMemory)

	CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error)
	DestroyImageView(view vk.ImageView)
	CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, error)
	DestroySampler(sampler vk.Sampler)

	CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, error)
	DestroyRenderPass(renderPass vk.RenderPass)
	CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error)
	DestroyFramebuffer(framebuffer vk.Framebuffer)

	CreateShaderModule(info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, error)
	DestroyShaderModule(module vk.ShaderModule)
	CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error)
	DestroyPipelineLayout(layout vk.PipelineLayout)
	CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error)
	DestroyPipeline(pipeline vk.Pipeline)

	CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout)
	CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error)
	DestroyDescriptorPool(pool vk.DescriptorPool)
	AllocateDescriptorSets(info *vk.DescriptorSetAllocateInfo) ([]vk.DescriptorSet, error)
	UpdateDescriptorSets(writes []vk.WriteDescriptorSet)

	CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, error)
	DestroyCommandPool(pool vk.CommandPool)
	AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, error)
	FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer)
	ResetCommandBuffer(cb vk.CommandBuffer) error
	BeginCommandBuffer(cb vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error
	EndCommandBuffer(cb vk.CommandBuffer) error

	CmdCopyBuffer(cb vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy)
	CmdCopyBufferToImage(
		cb vk.CommandBuffer,
		src vk.Buffer,
		dst vk.Image,
		layout vk.ImageLayout,
		regions []vk.BufferImageCopy,
	)
	CmdPipelineBarrier(
		cb vk.CommandBuffer,
		srcStage, dstStage vk.PipelineStageFlags,
		barriers []vk.ImageMemoryBarrier,
	)
	CmdBeginRenderPass(cb vk.CommandBuffer, info *vk.RenderPassBeginInfo)
	CmdEndRenderPass(cb vk.CommandBuffer)
	CmdBindPipeline(cb vk.CommandBuffer, pipeline vk.Pipeline)
	CmdBindVertexBuffers(cb vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize)
	CmdBindIndexBuffer(cb vk.CommandBuffer, buffer vk.Buffer, indexType vk.IndexType)
	CmdBindDescriptorSets(cb vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet)
	CmdSetViewport(cb vk.CommandBuffer, viewports []vk.Viewport)
	CmdSetScissor(cb vk.CommandBuffer, scissors []vk.Rect2D)
	CmdDraw(cb vk.CommandBuffer, vertexCount uint32)
	CmdDrawIndexed(cb vk.CommandBuffer, indexCount uint32)

	CreateSemaphore() (vk.Semaphore, error)
	DestroySemaphore(sem vk.Semaphore)
	CreateFence(signaled bool) (vk.Fence, error)
	DestroyFence(fence vk.Fence)

	// WaitForFence blocks until fence is signaled. There is no timeout.
	WaitForFence(fence vk.Fence) error
	ResetFence(fence vk.Fence) error

	QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error
	QueueWaitIdle(queue vk.Queue) error
}

// Properties are the physical device limits and enabled features the engine
// consults after device creation.
type Properties struct {
	DeviceName string

	// SamplerAnisotropy is true when the feature was enabled on the logical
	// device.
	SamplerAnisotropy    bool
	MaxSamplerAnisotropy float32
}

// MemoryType is one entry of the physical device memory type table.
type MemoryType struct {
	PropertyFlags vk.MemoryPropertyFlags
	HeapIndex     uint32
}
