package gpu

import (
	"math"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Vulkan is a Device backed by a real Vulkan logical device.
type Vulkan struct {
	physical vk.PhysicalDevice
	device   vk.Device
	surface  vk.Surface

	graphicsQueue vk.Queue
	presentQueue  vk.Queue

	properties  Properties
	memoryTypes []MemoryType
}

var _ Device = (*Vulkan)(nil)

// NewVulkan wraps an already created logical device. anisotropy tells whether
// the samplerAnisotropy feature was enabled on it.
func NewVulkan(
	physical vk.PhysicalDevice,
	device vk.Device,
	surface vk.Surface,
	graphicsQueue vk.Queue,
	presentQueue vk.Queue,
	anisotropy bool,
) *Vulkan {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physical, &properties)
	properties.Deref()
	properties.Limits.Deref()

	var memProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(physical, &memProperties)
	memProperties.Deref()

	memoryTypes := make([]MemoryType, 0, memProperties.MemoryTypeCount)
	for i := uint32(0); i < memProperties.MemoryTypeCount; i++ {
		memType := memProperties.MemoryTypes[i]
		memType.Deref()

		memoryTypes = append(memoryTypes, MemoryType{
			PropertyFlags: memType.PropertyFlags,
			HeapIndex:     memType.HeapIndex,
		})
	}

	return &Vulkan{
		physical:      physical,
		device:        device,
		surface:       surface,
		graphicsQueue: graphicsQueue,
		presentQueue:  presentQueue,
		properties: Properties{
			DeviceName:           vk.ToString(properties.DeviceName[:]),
			SamplerAnisotropy:    anisotropy,
			MaxSamplerAnisotropy: properties.Limits.MaxSamplerAnisotropy,
		},
		memoryTypes: memoryTypes,
	}
}

// Handle returns the raw logical device.
func (v *Vulkan) Handle() vk.Device {
	return v.device
}

func (v *Vulkan) GraphicsQueue() vk.Queue { return v.graphicsQueue }

func (v *Vulkan) PresentQueue() vk.Queue { return v.presentQueue }

func (v *Vulkan) Surface() vk.Surface { return v.surface }

func (v *Vulkan) Properties() Properties { return v.properties }

func (v *Vulkan) MemoryTypes() []MemoryType { return v.memoryTypes }

func (v *Vulkan) DeviceWaitIdle() error {
	return errors.Wrap(vk.Error(vk.DeviceWaitIdle(v.device)), "device wait idle")
}

func (v *Vulkan) SurfaceCapabilities() (vk.SurfaceCapabilities, error) {
	var capabilities vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(v.physical, v.surface, &capabilities)
	if err := vk.Error(res); err != nil {
		return capabilities, errors.Wrap(err, "query surface capabilities")
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()

	return capabilities, nil
}

func (v *Vulkan) SurfaceFormats() ([]vk.SurfaceFormat, error) {
	return QuerySurfaceFormats(v.physical, v.surface)
}

func (v *Vulkan) SurfacePresentModes() ([]vk.PresentMode, error) {
	return QuerySurfacePresentModes(v.physical, v.surface)
}

// QuerySurfaceFormats lists the surface formats physical supports for surface.
func QuerySurfaceFormats(physical vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, error) {
	var formatCount uint32
	res := vk.GetPhysicalDeviceSurfaceFormats(physical, surface, &formatCount, nil)
	if err := vk.Error(res); err != nil {
		return nil, errors.Wrap(err, "query surface formats count")
	}
	if formatCount == 0 {
		return nil, nil
	}

	formats := make([]vk.SurfaceFormat, formatCount)
	res = vk.GetPhysicalDeviceSurfaceFormats(physical, surface, &formatCount, formats)
	if err := vk.Error(res); err != nil {
		return nil, errors.Wrap(err, "query surface formats")
	}
	for i := range formats {
		formats[i].Deref()
	}

	return formats[:formatCount], nil
}

// QuerySurfacePresentModes lists the present modes physical supports for surface.
func QuerySurfacePresentModes(physical vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, error) {
	var modeCount uint32
	res := vk.GetPhysicalDeviceSurfacePresentModes(physical, surface, &modeCount, nil)
	if err := vk.Error(res); err != nil {
		return nil, errors.Wrap(err, "query present modes count")
	}
	if modeCount == 0 {
		return nil, nil
	}

	modes := make([]vk.PresentMode, modeCount)
	res = vk.GetPhysicalDeviceSurfacePresentModes(physical, surface, &modeCount, modes)
	if err := vk.Error(res); err != nil {
		return nil, errors.Wrap(err, "query present modes")
	}

	return modes[:modeCount], nil
}

func (v *Vulkan) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	var swapchain vk.Swapchain
	res := vk.CreateSwapchain(v.device, info, nil, &swapchain)
	return swapchain, errors.Wrap(vk.Error(res), "create swapchain")
}

func (v *Vulkan) DestroySwapchain(swapchain vk.Swapchain) {
	vk.DestroySwapchain(v.device, swapchain, nil)
}

func (v *Vulkan) SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error) {
	var imagesCount uint32
	res := vk.GetSwapchainImages(v.device, swapchain, &imagesCount, nil)
	if err := vk.Error(res); err != nil {
		return nil, errors.Wrap(err, "get swapchain images count")
	}

	images := make([]vk.Image, imagesCount)
	res = vk.GetSwapchainImages(v.device, swapchain, &imagesCount, images)
	if err := vk.Error(res); err != nil {
		return nil, errors.Wrap(err, "get swapchain images")
	}

	return images[:imagesCount], nil
}

func (v *Vulkan) AcquireNextImage(swapchain vk.Swapchain, sem vk.Semaphore) (uint32, vk.Result) {
	var imageIndex uint32
	res := vk.AcquireNextImage(
		v.device,
		swapchain,
		math.MaxUint64,
		sem,
		vk.Fence(vk.NullHandle),
		&imageIndex,
	)
	return imageIndex, res
}

func (v *Vulkan) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	return vk.QueuePresent(queue, info)
}

func (v *Vulkan) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error) {
	var buffer vk.Buffer
	res := vk.CreateBuffer(v.device, info, nil, &buffer)
	return buffer, errors.Wrap(vk.Error(res), "create buffer")
}

func (v *Vulkan) DestroyBuffer(buffer vk.Buffer) {
	vk.DestroyBuffer(v.device, buffer, nil)
}

func (v *Vulkan) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	var memRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(v.device, buffer, &memRequirements)
	memRequirements.Deref()
	return memRequirements
}

func (v *Vulkan) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) error {
	return vk.Error(vk.BindBufferMemory(v.device, buffer, memory, 0))
}

func (v *Vulkan) CreateImage(info *vk.ImageCreateInfo) (vk.Image, error) {
	var image vk.Image
	res := vk.CreateImage(v.device, info, nil, &image)
	return image, errors.Wrap(vk.Error(res), "create image")
}

func (v *Vulkan) DestroyImage(image vk.Image) {
	vk.DestroyImage(v.device, image, nil)
}

func (v *Vulkan) ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements {
	var memRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(v.device, image, &memRequirements)
	memRequirements.Deref()
	return memRequirements
}

func (v *Vulkan) BindImageMemory(image vk.Image, memory vk.DeviceMemory) error {
	return vk.Error(vk.BindImageMemory(v.device, image, memory, 0))
}

func (v *Vulkan) AllocateMemory(info *vk.MemoryAllocateInfo) (vk.DeviceMemory, error) {
	var memory vk.DeviceMemory
	res := vk.AllocateMemory(v.device, info, nil, &memory)
	return memory, vk.Error(res)
}

func (v *Vulkan) FreeMemory(memory vk.DeviceMemory) {
	vk.FreeMemory(v.device, memory, nil)
}

func (v *Vulkan) MapMemory(
	memory vk.DeviceMemory,
	offset, size vk.DeviceSize,
) (unsafe.Pointer, error) {
	var pData unsafe.Pointer
	res := vk.MapMemory(v.device, memory, offset, size, 0, &pData)
	if err := vk.Error(res); err != nil {
		return nil, errors.Wrap(err, "map memory")
	}
	return pData, nil
}

func (v *Vulkan) UnmapMemory(memory vk.DeviceMemory) {
	vk.UnmapMemory(v.device, memory)
}

func (v *Vulkan) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	var imageView vk.ImageView
	res := vk.CreateImageView(v.device, info, nil, &imageView)
	return imageView, errors.Wrap(vk.Error(res), "create image view")
}

func (v *Vulkan) DestroyImageView(view vk.ImageView) {
	vk.DestroyImageView(v.device, view, nil)
}

func (v *Vulkan) CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, error) {
	var sampler vk.Sampler
	res := vk.CreateSampler(v.device, info, nil, &sampler)
	return sampler, errors.Wrap(vk.Error(res), "create sampler")
}

func (v *Vulkan) DestroySampler(sampler vk.Sampler) {
	vk.DestroySampler(v.device, sampler, nil)
}

func (v *Vulkan) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	var renderPass vk.RenderPass
	res := vk.CreateRenderPass(v.device, info, nil, &renderPass)
	return renderPass, errors.Wrap(vk.Error(res), "create render pass")
}

func (v *Vulkan) DestroyRenderPass(renderPass vk.RenderPass) {
	vk.DestroyRenderPass(v.device, renderPass, nil)
}

func (v *Vulkan) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	var framebuffer vk.Framebuffer
	res := vk.CreateFramebuffer(v.device, info, nil, &framebuffer)
	return framebuffer, errors.Wrap(vk.Error(res), "create framebuffer")
}

func (v *Vulkan) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	vk.DestroyFramebuffer(v.device, framebuffer, nil)
}

func (v *Vulkan) CreateShaderModule(info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, error) {
	var module vk.ShaderModule
	res := vk.CreateShaderModule(v.device, info, nil, &module)
	return module, errors.Wrap(vk.Error(res), "create shader module")
}

func (v *Vulkan) DestroyShaderModule(module vk.ShaderModule) {
	vk.DestroyShaderModule(v.device, module, nil)
}

func (v *Vulkan) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	var layout vk.PipelineLayout
	res := vk.CreatePipelineLayout(v.device, info, nil, &layout)
	return layout, errors.Wrap(vk.Error(res), "create pipeline layout")
}

func (v *Vulkan) DestroyPipelineLayout(layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(v.device, layout, nil)
}

func (v *Vulkan) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(
		v.device,
		vk.PipelineCache(vk.NullHandle),
		1,
		[]vk.GraphicsPipelineCreateInfo{*info},
		nil,
		pipelines,
	)
	return pipelines[0], errors.Wrap(vk.Error(res), "create graphics pipeline")
}

func (v *Vulkan) DestroyPipeline(pipeline vk.Pipeline) {
	vk.DestroyPipeline(v.device, pipeline, nil)
}

func (v *Vulkan) CreateDescriptorSetLayout(
	info *vk.DescriptorSetLayoutCreateInfo,
) (vk.DescriptorSetLayout, error) {
	var layout vk.DescriptorSetLayout
	res := vk.CreateDescriptorSetLayout(v.device, info, nil, &layout)
	return layout, errors.Wrap(vk.Error(res), "create descriptor set layout")
}

func (v *Vulkan) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(v.device, layout, nil)
}

func (v *Vulkan) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error) {
	var pool vk.DescriptorPool
	res := vk.CreateDescriptorPool(v.device, info, nil, &pool)
	return pool, errors.Wrap(vk.Error(res), "create descriptor pool")
}

func (v *Vulkan) DestroyDescriptorPool(pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(v.device, pool, nil)
}

func (v *Vulkan) AllocateDescriptorSets(info *vk.DescriptorSetAllocateInfo) ([]vk.DescriptorSet, error) {
	sets := make([]vk.DescriptorSet, info.DescriptorSetCount)
	res := vk.AllocateDescriptorSets(v.device, info, &sets[0])
	if err := vk.Error(res); err != nil {
		return nil, errors.Wrap(err, "allocate descriptor sets")
	}
	return sets, nil
}

func (v *Vulkan) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	vk.UpdateDescriptorSets(v.device, uint32(len(writes)), writes, 0, nil)
}

func (v *Vulkan) CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, error) {
	var pool vk.CommandPool
	res := vk.CreateCommandPool(v.device, info, nil, &pool)
	return pool, errors.Wrap(vk.Error(res), "create command pool")
}

func (v *Vulkan) DestroyCommandPool(pool vk.CommandPool) {
	vk.DestroyCommandPool(v.device, pool, nil)
}

func (v *Vulkan) AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, error) {
	buffers := make([]vk.CommandBuffer, info.CommandBufferCount)
	res := vk.AllocateCommandBuffers(v.device, info, buffers)
	if err := vk.Error(res); err != nil {
		return nil, err
	}
	return buffers, nil
}

func (v *Vulkan) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	vk.FreeCommandBuffers(v.device, pool, uint32(len(buffers)), buffers)
}

func (v *Vulkan) ResetCommandBuffer(cb vk.CommandBuffer) error {
	return vk.Error(vk.ResetCommandBuffer(cb, 0))
}

func (v *Vulkan) BeginCommandBuffer(cb vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error {
	return vk.Error(vk.BeginCommandBuffer(cb, info))
}

func (v *Vulkan) EndCommandBuffer(cb vk.CommandBuffer) error {
	return vk.Error(vk.EndCommandBuffer(cb))
}

func (v *Vulkan) CmdCopyBuffer(cb vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	vk.CmdCopyBuffer(cb, src, dst, uint32(len(regions)), regions)
}

func (v *Vulkan) CmdCopyBufferToImage(
	cb vk.CommandBuffer,
	src vk.Buffer,
	dst vk.Image,
	layout vk.ImageLayout,
	regions []vk.BufferImageCopy,
) {
	vk.CmdCopyBufferToImage(cb, src, dst, layout, uint32(len(regions)), regions)
}

func (v *Vulkan) CmdPipelineBarrier(
	cb vk.CommandBuffer,
	srcStage, dstStage vk.PipelineStageFlags,
	barriers []vk.ImageMemoryBarrier,
) {
	vk.CmdPipelineBarrier(
		cb,
		srcStage, dstStage,
		0,
		0, nil,
		0, nil,
		uint32(len(barriers)), barriers,
	)
}

func (v *Vulkan) CmdBeginRenderPass(cb vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	vk.CmdBeginRenderPass(cb, info, vk.SubpassContentsInline)
}

func (v *Vulkan) CmdEndRenderPass(cb vk.CommandBuffer) {
	vk.CmdEndRenderPass(cb)
}

func (v *Vulkan) CmdBindPipeline(cb vk.CommandBuffer, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(cb, vk.PipelineBindPointGraphics, pipeline)
}

func (v *Vulkan) CmdBindVertexBuffers(
	cb vk.CommandBuffer,
	buffers []vk.Buffer,
	offsets []vk.DeviceSize,
) {
	vk.CmdBindVertexBuffers(cb, 0, uint32(len(buffers)), buffers, offsets)
}

func (v *Vulkan) CmdBindIndexBuffer(cb vk.CommandBuffer, buffer vk.Buffer, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(cb, buffer, 0, indexType)
}

func (v *Vulkan) CmdBindDescriptorSets(
	cb vk.CommandBuffer,
	layout vk.PipelineLayout,
	sets []vk.DescriptorSet,
) {
	vk.CmdBindDescriptorSets(
		cb,
		vk.PipelineBindPointGraphics,
		layout,
		0,
		uint32(len(sets)),
		sets,
		0,
		nil,
	)
}

func (v *Vulkan) CmdSetViewport(cb vk.CommandBuffer, viewports []vk.Viewport) {
	vk.CmdSetViewport(cb, 0, uint32(len(viewports)), viewports)
}

func (v *Vulkan) CmdSetScissor(cb vk.CommandBuffer, scissors []vk.Rect2D) {
	vk.CmdSetScissor(cb, 0, uint32(len(scissors)), scissors)
}

func (v *Vulkan) CmdDraw(cb vk.CommandBuffer, vertexCount uint32) {
	vk.CmdDraw(cb, vertexCount, 1, 0, 0)
}

func (v *Vulkan) CmdDrawIndexed(cb vk.CommandBuffer, indexCount uint32) {
	vk.CmdDrawIndexed(cb, indexCount, 1, 0, 0, 0)
}

func (v *Vulkan) CreateSemaphore() (vk.Semaphore, error) {
	semaphoreInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	var sem vk.Semaphore
	res := vk.CreateSemaphore(v.device, &semaphoreInfo, nil, &sem)
	return sem, errors.Wrap(vk.Error(res), "create semaphore")
}

func (v *Vulkan) DestroySemaphore(sem vk.Semaphore) {
	vk.DestroySemaphore(v.device, sem, nil)
}

func (v *Vulkan) CreateFence(signaled bool) (vk.Fence, error) {
	fenceInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	res := vk.CreateFence(v.device, &fenceInfo, nil, &fence)
	return fence, errors.Wrap(vk.Error(res), "create fence")
}

func (v *Vulkan) DestroyFence(fence vk.Fence) {
	vk.DestroyFence(v.device, fence, nil)
}

func (v *Vulkan) WaitForFence(fence vk.Fence) error {
	res := vk.WaitForFences(v.device, 1, []vk.Fence{fence}, vk.True, math.MaxUint64)
	return errors.Wrap(vk.Error(res), "wait for fence")
}

func (v *Vulkan) ResetFence(fence vk.Fence) error {
	return errors.Wrap(vk.Error(vk.ResetFences(v.device, 1, []vk.Fence{fence})), "reset fence")
}

func (v *Vulkan) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error {
	res := vk.QueueSubmit(queue, uint32(len(submits)), submits, fence)
	return errors.Wrap(vk.Error(res), "queue submit")
}

func (v *Vulkan) QueueWaitIdle(queue vk.Queue) error {
	return errors.Wrap(vk.Error(vk.QueueWaitIdle(queue)), "queue wait idle")
}
