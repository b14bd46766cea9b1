// Package gputest provides an in-memory gpu.Device. Recorded transfer commands
// run when submitted, fences complete when waited on, and every protocol
// violation the engine commits is collected instead of crashing.
package gputest

import (
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"blast-engine/gpu"
)

type kind int

const (
	kindBuffer kind = iota
	kindMemory
	kindImage
	kindImageView
	kindSampler
	kindSwapchain
	kindRenderPass
	kindFramebuffer
	kindShaderModule
	kindPipelineLayout
	kindPipeline
	kindDescriptorSetLayout
	kindDescriptorPool
	kindDescriptorSet
	kindCommandPool
	kindCommandBuffer
	kindSemaphore
	kindFence
	kindQueue
	kindSurface
)

var kindNames = [...]string{
	"buffer", "memory", "image", "image view", "sampler", "swapchain",
	"render pass", "framebuffer", "shader module", "pipeline layout",
	"pipeline", "descriptor set layout", "descriptor pool", "descriptor set",
	"command pool", "command buffer", "semaphore", "fence", "queue", "surface",
}

func (k kind) String() string {
	return kindNames[k]
}

type object struct {
	kind      kind
	destroyed bool

	// owned objects are released together with their parent.
	owned bool

	size   vk.DeviceSize
	memory *object

	data   []byte
	mapped bool

	width, height uint32
	layout        vk.ImageLayout

	signaled bool
	pending  bool

	recording bool
	ops       []func()
	names     []string
	fence     *object

	images []vk.Image
	next   uint32
	extent vk.Extent2D

	bindings map[uint32]vk.WriteDescriptorSet
}

// FakeDevice implements gpu.Device in memory.
type FakeDevice struct {
	objects map[unsafe.Pointer]*object

	graphicsQueue vk.Queue
	presentQueue  vk.Queue
	surface       vk.Surface

	Props   gpu.Properties
	Types   []gpu.MemoryType
	Caps    vk.SurfaceCapabilities
	Formats []vk.SurfaceFormat
	Modes   []vk.PresentMode

	// AcquireResults and PresentResults are consumed one per call. Once
	// empty the calls succeed.
	AcquireResults []vk.Result
	PresentResults []vk.Result

	Acquires        int
	Submits         int
	Presents        int
	DeviceIdleWaits int

	ImageViewsCreated   int
	ImageViewsDestroyed int

	// MaxOutstanding is the largest number of fences submitted and not yet
	// observed complete at the same time.
	MaxOutstanding int

	SwapchainExtents []vk.Extent2D

	Violations []string

	lastSubmitted []string
}

var _ gpu.Device = (*FakeDevice)(nil)

// NewFakeDevice returns a device with three memory types (device local, host
// visible and both), a surface which lets the framebuffer size drive the
// extent and a 2..3 image swapchain.
func NewFakeDevice() *FakeDevice {
	f := &FakeDevice{
		objects: make(map[unsafe.Pointer]*object),
		Props: gpu.Properties{
			DeviceName:           "fake device",
			SamplerAnisotropy:    true,
			MaxSamplerAnisotropy: 16,
		},
		Types: []gpu.MemoryType{
			{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)},
			{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) |
				vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)},
			{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit) |
				vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) |
				vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)},
		},
		Caps: vk.SurfaceCapabilities{
			MinImageCount:    2,
			MaxImageCount:    3,
			CurrentExtent:    vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
			MinImageExtent:   vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:   vk.Extent2D{Width: 4096, Height: 4096},
			CurrentTransform: vk.SurfaceTransformIdentityBit,
		},
		Formats: []vk.SurfaceFormat{
			{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		Modes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
	}

	f.graphicsQueue = vk.Queue(f.newObject(kindQueue))
	f.presentQueue = vk.Queue(f.newObject(kindQueue))
	f.surface = vk.Surface(f.newObject(kindSurface))

	return f
}

func (f *FakeDevice) newObject(k kind) unsafe.Pointer {
	p, _ := f.newObjectRef(k)
	return p
}

// handleArena backs every fake handle. vulkan-go handles are pointers to C
// memory which reflect refuses to follow into the Go heap, so the addresses
// come from a global array instead.
var (
	handleArena [1 << 16]uint64
	nextHandle  atomic.Uint32
)

func newHandle() unsafe.Pointer {
	i := nextHandle.Add(1) - 1
	if int(i) >= len(handleArena) {
		panic("gputest: out of fake handles")
	}
	return unsafe.Pointer(&handleArena[i])
}

func (f *FakeDevice) newObjectRef(k kind) (unsafe.Pointer, *object) {
	p := newHandle()
	obj := &object{kind: k}
	f.objects[p] = obj
	return p, obj
}

func (f *FakeDevice) violate(format string, args ...interface{}) {
	f.Violations = append(f.Violations, fmt.Sprintf(format, args...))
}

func (f *FakeDevice) lookup(p unsafe.Pointer, k kind, op string) *object {
	obj, ok := f.objects[p]
	switch {
	case p == nil:
		f.violate("%s: null %s", op, k)
		return nil
	case !ok:
		f.violate("%s: unknown %s", op, k)
		return nil
	case obj.kind != k:
		f.violate("%s: handle is a %s, not a %s", op, obj.kind, k)
		return nil
	case obj.destroyed:
		f.violate("%s: %s used after destroy", op, k)
		return nil
	}
	return obj
}

func (f *FakeDevice) destroy(p unsafe.Pointer, k kind, op string) *object {
	if p == nil {
		return nil
	}
	obj := f.lookup(p, k, op)
	if obj == nil {
		return nil
	}
	obj.destroyed = true
	return obj
}

func (f *FakeDevice) outstanding() int {
	var n int
	for _, obj := range f.objects {
		if obj.kind == kindFence && obj.pending && !obj.destroyed {
			n++
		}
	}
	return n
}

func (f *FakeDevice) completeAll() {
	for _, obj := range f.objects {
		if obj.kind == kindFence && obj.pending {
			obj.pending = false
			obj.signaled = true
		}
	}
}

// Leaks lists the live objects which the engine had to destroy explicitly.
func (f *FakeDevice) Leaks() []string {
	var leaks []string
	for _, obj := range f.objects {
		if obj.destroyed || obj.owned {
			continue
		}
		switch obj.kind {
		case kindQueue, kindSurface:
			continue
		}
		leaks = append(leaks, obj.kind.String())
	}
	return leaks
}

// Live counts the live objects of the kind which view names: "image view",
// "framebuffer", "buffer" and so on.
func (f *FakeDevice) Live(name string) int {
	var n int
	for _, obj := range f.objects {
		if !obj.destroyed && obj.kind.String() == name {
			n++
		}
	}
	return n
}

// MemoryBytes returns the backing store of a memory allocation.
func (f *FakeDevice) MemoryBytes(memory vk.DeviceMemory) []byte {
	obj := f.objects[unsafe.Pointer(memory)]
	if obj == nil {
		return nil
	}
	return obj.data
}

// ImageBytes returns the contents of the memory bound to image.
func (f *FakeDevice) ImageBytes(image vk.Image) []byte {
	obj := f.objects[unsafe.Pointer(image)]
	if obj == nil || obj.memory == nil {
		return nil
	}
	return obj.memory.data
}

// ImageLayout returns the layout image was last transitioned to.
func (f *FakeDevice) ImageLayout(image vk.Image) vk.ImageLayout {
	obj := f.objects[unsafe.Pointer(image)]
	if obj == nil {
		return vk.ImageLayoutUndefined
	}
	return obj.layout
}

// Binding returns the last descriptor write for binding of set.
func (f *FakeDevice) Binding(set vk.DescriptorSet, binding uint32) (vk.WriteDescriptorSet, bool) {
	obj := f.objects[unsafe.Pointer(set)]
	if obj == nil {
		return vk.WriteDescriptorSet{}, false
	}
	write, ok := obj.bindings[binding]
	return write, ok
}

// LastSubmitted names the commands of the last command buffer submitted with
// a fence, in recording order.
func (f *FakeDevice) LastSubmitted() []string {
	return f.lastSubmitted
}

func (f *FakeDevice) GraphicsQueue() vk.Queue { return f.graphicsQueue }

func (f *FakeDevice) PresentQueue() vk.Queue { return f.presentQueue }

func (f *FakeDevice) Surface() vk.Surface { return f.surface }

func (f *FakeDevice) Properties() gpu.Properties { return f.Props }

func (f *FakeDevice) MemoryTypes() []gpu.MemoryType { return f.Types }

func (f *FakeDevice) DeviceWaitIdle() error {
	f.DeviceIdleWaits++
	f.completeAll()
	return nil
}

func (f *FakeDevice) SurfaceCapabilities() (vk.SurfaceCapabilities, error) {
	return f.Caps, nil
}

func (f *FakeDevice) SurfaceFormats() ([]vk.SurfaceFormat, error) {
	return f.Formats, nil
}

func (f *FakeDevice) SurfacePresentModes() ([]vk.PresentMode, error) {
	return f.Modes, nil
}

func (f *FakeDevice) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	if info.ImageExtent.Width == 0 || info.ImageExtent.Height == 0 {
		f.violate("create swapchain: zero extent %dx%d",
			info.ImageExtent.Width, info.ImageExtent.Height)
		return vk.NullSwapchain, vk.Error(vk.ErrorInitializationFailed)
	}
	f.lookup(unsafe.Pointer(info.Surface), kindSurface, "create swapchain")

	p, swapchain := f.newObjectRef(kindSwapchain)
	swapchain.extent = info.ImageExtent
	for i := uint32(0); i < info.MinImageCount; i++ {
		ip, image := f.newObjectRef(kindImage)
		image.owned = true
		image.width = info.ImageExtent.Width
		image.height = info.ImageExtent.Height
		swapchain.images = append(swapchain.images, vk.Image(ip))
	}
	f.SwapchainExtents = append(f.SwapchainExtents, info.ImageExtent)

	return vk.Swapchain(p), nil
}

func (f *FakeDevice) DestroySwapchain(swapchain vk.Swapchain) {
	obj := f.destroy(unsafe.Pointer(swapchain), kindSwapchain, "destroy swapchain")
	if obj == nil {
		return
	}
	for _, image := range obj.images {
		f.objects[unsafe.Pointer(image)].destroyed = true
	}
}

func (f *FakeDevice) SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error) {
	obj := f.lookup(unsafe.Pointer(swapchain), kindSwapchain, "swapchain images")
	if obj == nil {
		return nil, vk.Error(vk.ErrorDeviceLost)
	}
	return append([]vk.Image(nil), obj.images...), nil
}

func (f *FakeDevice) AcquireNextImage(swapchain vk.Swapchain, sem vk.Semaphore) (uint32, vk.Result) {
	f.Acquires++

	res := vk.Success
	if len(f.AcquireResults) > 0 {
		res = f.AcquireResults[0]
		f.AcquireResults = f.AcquireResults[1:]
	}

	obj := f.lookup(unsafe.Pointer(swapchain), kindSwapchain, "acquire")
	if obj == nil {
		return 0, vk.ErrorDeviceLost
	}
	if res != vk.Success && res != vk.Suboptimal {
		return 0, res
	}

	if semaphore := f.lookup(unsafe.Pointer(sem), kindSemaphore, "acquire"); semaphore != nil {
		if semaphore.signaled {
			f.violate("acquire: semaphore already signaled")
		}
		semaphore.signaled = true
	}

	index := obj.next
	obj.next = (obj.next + 1) % uint32(len(obj.images))
	return index, res
}

func (f *FakeDevice) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	f.Presents++
	f.lookup(unsafe.Pointer(queue), kindQueue, "present")

	for _, sem := range info.PWaitSemaphores {
		semaphore := f.lookup(unsafe.Pointer(sem), kindSemaphore, "present")
		if semaphore == nil {
			continue
		}
		if !semaphore.signaled {
			f.violate("present: waits on a semaphore nothing signals")
		}
		semaphore.signaled = false
	}

	for i, sc := range info.PSwapchains {
		obj := f.lookup(unsafe.Pointer(sc), kindSwapchain, "present")
		if obj != nil && int(info.PImageIndices[i]) >= len(obj.images) {
			f.violate("present: image index %d out of range", info.PImageIndices[i])
		}
	}

	if len(f.PresentResults) > 0 {
		res := f.PresentResults[0]
		f.PresentResults = f.PresentResults[1:]
		return res
	}
	return vk.Success
}

func (f *FakeDevice) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error) {
	if info.Size == 0 {
		f.violate("create buffer: zero size")
	}
	p, obj := f.newObjectRef(kindBuffer)
	obj.size = info.Size
	return vk.Buffer(p), nil
}

func (f *FakeDevice) DestroyBuffer(buffer vk.Buffer) {
	f.destroy(unsafe.Pointer(buffer), kindBuffer, "destroy buffer")
}

func (f *FakeDevice) allTypes() uint32 {
	return uint32(1)<<uint32(len(f.Types)) - 1
}

func (f *FakeDevice) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	obj := f.lookup(unsafe.Pointer(buffer), kindBuffer, "buffer memory requirements")
	if obj == nil {
		return vk.MemoryRequirements{}
	}
	return vk.MemoryRequirements{
		Size:           obj.size,
		Alignment:      4,
		MemoryTypeBits: f.allTypes(),
	}
}

func (f *FakeDevice) bind(target *object, memory vk.DeviceMemory, op string) error {
	mem := f.lookup(unsafe.Pointer(memory), kindMemory, op)
	if target == nil || mem == nil {
		return vk.Error(vk.ErrorDeviceLost)
	}
	if target.memory != nil {
		f.violate("%s: memory already bound", op)
	}
	target.memory = mem
	return nil
}

func (f *FakeDevice) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) error {
	obj := f.lookup(unsafe.Pointer(buffer), kindBuffer, "bind buffer memory")
	return f.bind(obj, memory, "bind buffer memory")
}

func (f *FakeDevice) CreateImage(info *vk.ImageCreateInfo) (vk.Image, error) {
	p, obj := f.newObjectRef(kindImage)
	obj.width = info.Extent.Width
	obj.height = info.Extent.Height
	obj.layout = info.InitialLayout
	return vk.Image(p), nil
}

func (f *FakeDevice) DestroyImage(image vk.Image) {
	if obj := f.objects[unsafe.Pointer(image)]; obj != nil && obj.owned {
		f.violate("destroy image: image belongs to a swapchain")
		return
	}
	f.destroy(unsafe.Pointer(image), kindImage, "destroy image")
}

func (f *FakeDevice) ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements {
	obj := f.lookup(unsafe.Pointer(image), kindImage, "image memory requirements")
	if obj == nil {
		return vk.MemoryRequirements{}
	}
	return vk.MemoryRequirements{
		Size:           vk.DeviceSize(obj.width) * vk.DeviceSize(obj.height) * 4,
		Alignment:      4,
		MemoryTypeBits: f.allTypes(),
	}
}

func (f *FakeDevice) BindImageMemory(image vk.Image, memory vk.DeviceMemory) error {
	obj := f.lookup(unsafe.Pointer(image), kindImage, "bind image memory")
	return f.bind(obj, memory, "bind image memory")
}

func (f *FakeDevice) AllocateMemory(info *vk.MemoryAllocateInfo) (vk.DeviceMemory, error) {
	if int(info.MemoryTypeIndex) >= len(f.Types) {
		f.violate("allocate memory: type index %d out of range", info.MemoryTypeIndex)
		return vk.NullDeviceMemory, vk.Error(vk.ErrorOutOfDeviceMemory)
	}
	p, obj := f.newObjectRef(kindMemory)
	obj.data = make([]byte, info.AllocationSize)
	return vk.DeviceMemory(p), nil
}

func (f *FakeDevice) FreeMemory(memory vk.DeviceMemory) {
	obj := f.destroy(unsafe.Pointer(memory), kindMemory, "free memory")
	if obj != nil && obj.mapped {
		obj.mapped = false
	}
}

func (f *FakeDevice) MapMemory(
	memory vk.DeviceMemory,
	offset, size vk.DeviceSize,
) (unsafe.Pointer, error) {
	obj := f.lookup(unsafe.Pointer(memory), kindMemory, "map memory")
	if obj == nil {
		return nil, vk.Error(vk.ErrorMemoryMapFailed)
	}
	if obj.mapped {
		f.violate("map memory: already mapped")
	}
	if size != vk.DeviceSize(vk.WholeSize) && offset+size > vk.DeviceSize(len(obj.data)) {
		f.violate("map memory: range %d+%d exceeds allocation of %d", offset, size, len(obj.data))
		return nil, vk.Error(vk.ErrorMemoryMapFailed)
	}
	if int(offset) >= len(obj.data) {
		return nil, vk.Error(vk.ErrorMemoryMapFailed)
	}
	obj.mapped = true
	return unsafe.Pointer(&obj.data[offset]), nil
}

func (f *FakeDevice) UnmapMemory(memory vk.DeviceMemory) {
	obj := f.lookup(unsafe.Pointer(memory), kindMemory, "unmap memory")
	if obj == nil {
		return
	}
	if !obj.mapped {
		f.violate("unmap memory: not mapped")
	}
	obj.mapped = false
}

func (f *FakeDevice) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	f.lookup(unsafe.Pointer(info.Image), kindImage, "create image view")
	f.ImageViewsCreated++
	return vk.ImageView(f.newObject(kindImageView)), nil
}

func (f *FakeDevice) DestroyImageView(view vk.ImageView) {
	if f.destroy(unsafe.Pointer(view), kindImageView, "destroy image view") != nil {
		f.ImageViewsDestroyed++
	}
}

func (f *FakeDevice) CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, error) {
	if info.AnisotropyEnable.B() && !f.Props.SamplerAnisotropy {
		f.violate("create sampler: anisotropy feature not enabled")
	}
	return vk.Sampler(f.newObject(kindSampler)), nil
}

func (f *FakeDevice) DestroySampler(sampler vk.Sampler) {
	f.destroy(unsafe.Pointer(sampler), kindSampler, "destroy sampler")
}

func (f *FakeDevice) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	return vk.RenderPass(f.newObject(kindRenderPass)), nil
}

func (f *FakeDevice) DestroyRenderPass(renderPass vk.RenderPass) {
	f.destroy(unsafe.Pointer(renderPass), kindRenderPass, "destroy render pass")
}

func (f *FakeDevice) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	f.lookup(unsafe.Pointer(info.RenderPass), kindRenderPass, "create framebuffer")
	for _, view := range info.PAttachments {
		f.lookup(unsafe.Pointer(view), kindImageView, "create framebuffer")
	}
	if info.Width == 0 || info.Height == 0 {
		f.violate("create framebuffer: zero extent")
	}
	return vk.Framebuffer(f.newObject(kindFramebuffer)), nil
}

func (f *FakeDevice) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	f.destroy(unsafe.Pointer(framebuffer), kindFramebuffer, "destroy framebuffer")
}

func (f *FakeDevice) CreateShaderModule(info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, error) {
	if info.CodeSize == 0 || info.CodeSize%4 != 0 {
		f.violate("create shader module: code size %d", info.CodeSize)
		return vk.ShaderModule(vk.NullHandle), vk.Error(vk.ErrorInitializationFailed)
	}
	return vk.ShaderModule(f.newObject(kindShaderModule)), nil
}

func (f *FakeDevice) DestroyShaderModule(module vk.ShaderModule) {
	f.destroy(unsafe.Pointer(module), kindShaderModule, "destroy shader module")
}

func (f *FakeDevice) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	for _, layout := range info.PSetLayouts {
		f.lookup(unsafe.Pointer(layout), kindDescriptorSetLayout, "create pipeline layout")
	}
	return vk.PipelineLayout(f.newObject(kindPipelineLayout)), nil
}

func (f *FakeDevice) DestroyPipelineLayout(layout vk.PipelineLayout) {
	f.destroy(unsafe.Pointer(layout), kindPipelineLayout, "destroy pipeline layout")
}

func (f *FakeDevice) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	for _, stage := range info.PStages {
		f.lookup(unsafe.Pointer(stage.Module), kindShaderModule, "create graphics pipeline")
	}
	f.lookup(unsafe.Pointer(info.Layout), kindPipelineLayout, "create graphics pipeline")
	f.lookup(unsafe.Pointer(info.RenderPass), kindRenderPass, "create graphics pipeline")
	return vk.Pipeline(f.newObject(kindPipeline)), nil
}

func (f *FakeDevice) DestroyPipeline(pipeline vk.Pipeline) {
	f.destroy(unsafe.Pointer(pipeline), kindPipeline, "destroy pipeline")
}

func (f *FakeDevice) CreateDescriptorSetLayout(
	info *vk.DescriptorSetLayoutCreateInfo,
) (vk.DescriptorSetLayout, error) {
	return vk.DescriptorSetLayout(f.newObject(kindDescriptorSetLayout)), nil
}

func (f *FakeDevice) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	f.destroy(unsafe.Pointer(layout), kindDescriptorSetLayout, "destroy descriptor set layout")
}

func (f *FakeDevice) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error) {
	p, obj := f.newObjectRef(kindDescriptorPool)
	obj.size = vk.DeviceSize(info.MaxSets)
	return vk.DescriptorPool(p), nil
}

func (f *FakeDevice) DestroyDescriptorPool(pool vk.DescriptorPool) {
	f.destroy(unsafe.Pointer(pool), kindDescriptorPool, "destroy descriptor pool")
}

func (f *FakeDevice) AllocateDescriptorSets(info *vk.DescriptorSetAllocateInfo) ([]vk.DescriptorSet, error) {
	pool := f.lookup(unsafe.Pointer(info.DescriptorPool), kindDescriptorPool, "allocate descriptor sets")
	if pool == nil {
		return nil, vk.Error(vk.ErrorOutOfDeviceMemory)
	}
	if vk.DeviceSize(info.DescriptorSetCount) > pool.size {
		f.violate("allocate descriptor sets: %d sets from a pool of %d",
			info.DescriptorSetCount, pool.size)
		return nil, vk.Error(vk.ErrorOutOfDeviceMemory)
	}
	pool.size -= vk.DeviceSize(info.DescriptorSetCount)

	sets := make([]vk.DescriptorSet, 0, info.DescriptorSetCount)
	for i := uint32(0); i < info.DescriptorSetCount; i++ {
		p, obj := f.newObjectRef(kindDescriptorSet)
		obj.owned = true
		obj.bindings = make(map[uint32]vk.WriteDescriptorSet)
		sets = append(sets, vk.DescriptorSet(p))
	}
	return sets, nil
}

func (f *FakeDevice) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	for _, write := range writes {
		set := f.lookup(unsafe.Pointer(write.DstSet), kindDescriptorSet, "update descriptor sets")
		if set == nil {
			continue
		}
		for _, info := range write.PBufferInfo {
			f.lookup(unsafe.Pointer(info.Buffer), kindBuffer, "update descriptor sets")
		}
		for _, info := range write.PImageInfo {
			f.lookup(unsafe.Pointer(info.ImageView), kindImageView, "update descriptor sets")
			f.lookup(unsafe.Pointer(info.Sampler), kindSampler, "update descriptor sets")
		}
		set.bindings[write.DstBinding] = write
	}
}

func (f *FakeDevice) CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, error) {
	return vk.CommandPool(f.newObject(kindCommandPool)), nil
}

func (f *FakeDevice) DestroyCommandPool(pool vk.CommandPool) {
	f.destroy(unsafe.Pointer(pool), kindCommandPool, "destroy command pool")
}

func (f *FakeDevice) AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, error) {
	if f.lookup(unsafe.Pointer(info.CommandPool), kindCommandPool, "allocate command buffers") == nil {
		return nil, vk.Error(vk.ErrorOutOfDeviceMemory)
	}
	buffers := make([]vk.CommandBuffer, 0, info.CommandBufferCount)
	for i := uint32(0); i < info.CommandBufferCount; i++ {
		p, obj := f.newObjectRef(kindCommandBuffer)
		obj.owned = true
		buffers = append(buffers, vk.CommandBuffer(p))
	}
	return buffers, nil
}

func (f *FakeDevice) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	for _, cb := range buffers {
		obj := f.destroy(unsafe.Pointer(cb), kindCommandBuffer, "free command buffers")
		if obj != nil && obj.fence != nil && obj.fence.pending {
			f.violate("free command buffers: buffer still in flight")
		}
	}
}

func (f *FakeDevice) commandBuffer(cb vk.CommandBuffer, op string) *object {
	return f.lookup(unsafe.Pointer(cb), kindCommandBuffer, op)
}

func (f *FakeDevice) checkIdle(obj *object, op string) {
	if obj.fence != nil && obj.fence.pending {
		f.violate("%s: command buffer reused while its fence is unsignaled", op)
	}
}

func (f *FakeDevice) ResetCommandBuffer(cb vk.CommandBuffer) error {
	obj := f.commandBuffer(cb, "reset command buffer")
	if obj == nil {
		return vk.Error(vk.ErrorDeviceLost)
	}
	f.checkIdle(obj, "reset command buffer")
	obj.ops = nil
	obj.names = nil
	obj.recording = false
	return nil
}

func (f *FakeDevice) BeginCommandBuffer(cb vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error {
	obj := f.commandBuffer(cb, "begin command buffer")
	if obj == nil {
		return vk.Error(vk.ErrorDeviceLost)
	}
	f.checkIdle(obj, "begin command buffer")
	if obj.recording {
		f.violate("begin command buffer: already recording")
	}
	obj.ops = nil
	obj.names = nil
	obj.recording = true
	return nil
}

func (f *FakeDevice) EndCommandBuffer(cb vk.CommandBuffer) error {
	obj := f.commandBuffer(cb, "end command buffer")
	if obj == nil {
		return vk.Error(vk.ErrorDeviceLost)
	}
	if !obj.recording {
		f.violate("end command buffer: not recording")
	}
	obj.recording = false
	return nil
}

func (f *FakeDevice) record(cb vk.CommandBuffer, name string, op func()) {
	obj := f.commandBuffer(cb, name)
	if obj == nil {
		return
	}
	if !obj.recording {
		f.violate("%s: command buffer is not recording", name)
		return
	}
	obj.names = append(obj.names, name)
	if op != nil {
		obj.ops = append(obj.ops, op)
	}
}

func (f *FakeDevice) CmdCopyBuffer(cb vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	srcObj := f.lookup(unsafe.Pointer(src), kindBuffer, "copy buffer")
	dstObj := f.lookup(unsafe.Pointer(dst), kindBuffer, "copy buffer")
	regions = append([]vk.BufferCopy(nil), regions...)

	f.record(cb, "CopyBuffer", func() {
		if srcObj == nil || dstObj == nil || srcObj.memory == nil || dstObj.memory == nil {
			f.violate("copy buffer: buffer without memory")
			return
		}
		for _, region := range regions {
			if region.SrcOffset+region.Size > srcObj.size ||
				region.DstOffset+region.Size > dstObj.size {
				f.violate("copy buffer: region of %d bytes out of range", region.Size)
				continue
			}
			copy(
				dstObj.memory.data[region.DstOffset:region.DstOffset+region.Size],
				srcObj.memory.data[region.SrcOffset:region.SrcOffset+region.Size],
			)
		}
	})
}

func (f *FakeDevice) CmdCopyBufferToImage(
	cb vk.CommandBuffer,
	src vk.Buffer,
	dst vk.Image,
	layout vk.ImageLayout,
	regions []vk.BufferImageCopy,
) {
	srcObj := f.lookup(unsafe.Pointer(src), kindBuffer, "copy buffer to image")
	dstObj := f.lookup(unsafe.Pointer(dst), kindImage, "copy buffer to image")

	f.record(cb, "CopyBufferToImage", func() {
		if srcObj == nil || dstObj == nil || srcObj.memory == nil || dstObj.memory == nil {
			f.violate("copy buffer to image: resource without memory")
			return
		}
		if dstObj.layout != layout || layout != vk.ImageLayoutTransferDstOptimal {
			f.violate("copy buffer to image: image is in layout %d", dstObj.layout)
		}
		copy(dstObj.memory.data, srcObj.memory.data)
	})
}

func (f *FakeDevice) CmdPipelineBarrier(
	cb vk.CommandBuffer,
	srcStage, dstStage vk.PipelineStageFlags,
	barriers []vk.ImageMemoryBarrier,
) {
	type transition struct {
		image    *object
		from, to vk.ImageLayout
	}

	var transitions []transition
	for _, barrier := range barriers {
		image := f.lookup(unsafe.Pointer(barrier.Image), kindImage, "pipeline barrier")
		transitions = append(transitions, transition{image, barrier.OldLayout, barrier.NewLayout})
	}

	f.record(cb, "PipelineBarrier", func() {
		for _, t := range transitions {
			if t.image == nil {
				continue
			}
			if t.from != vk.ImageLayoutUndefined && t.image.layout != t.from {
				f.violate("pipeline barrier: image is in layout %d, not %d", t.image.layout, t.from)
			}
			t.image.layout = t.to
		}
	})
}

func (f *FakeDevice) CmdBeginRenderPass(cb vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	f.lookup(unsafe.Pointer(info.RenderPass), kindRenderPass, "begin render pass")
	f.lookup(unsafe.Pointer(info.Framebuffer), kindFramebuffer, "begin render pass")
	f.record(cb, "BeginRenderPass", nil)
}

func (f *FakeDevice) CmdEndRenderPass(cb vk.CommandBuffer) {
	f.record(cb, "EndRenderPass", nil)
}

func (f *FakeDevice) CmdBindPipeline(cb vk.CommandBuffer, pipeline vk.Pipeline) {
	f.lookup(unsafe.Pointer(pipeline), kindPipeline, "bind pipeline")
	f.record(cb, "BindPipeline", nil)
}

func (f *FakeDevice) CmdBindVertexBuffers(
	cb vk.CommandBuffer,
	buffers []vk.Buffer,
	offsets []vk.DeviceSize,
) {
	for _, buffer := range buffers {
		f.lookup(unsafe.Pointer(buffer), kindBuffer, "bind vertex buffers")
	}
	f.record(cb, "BindVertexBuffers", nil)
}

func (f *FakeDevice) CmdBindIndexBuffer(cb vk.CommandBuffer, buffer vk.Buffer, indexType vk.IndexType) {
	f.lookup(unsafe.Pointer(buffer), kindBuffer, "bind index buffer")
	f.record(cb, "BindIndexBuffer", nil)
}

func (f *FakeDevice) CmdBindDescriptorSets(
	cb vk.CommandBuffer,
	layout vk.PipelineLayout,
	sets []vk.DescriptorSet,
) {
	f.lookup(unsafe.Pointer(layout), kindPipelineLayout, "bind descriptor sets")
	for _, set := range sets {
		f.lookup(unsafe.Pointer(set), kindDescriptorSet, "bind descriptor sets")
	}
	f.record(cb, "BindDescriptorSets", nil)
}

func (f *FakeDevice) CmdSetViewport(cb vk.CommandBuffer, viewports []vk.Viewport) {
	for _, viewport := range viewports {
		if viewport.Width == 0 || viewport.Height == 0 {
			f.violate("set viewport: zero extent")
		}
	}
	f.record(cb, "SetViewport", nil)
}

func (f *FakeDevice) CmdSetScissor(cb vk.CommandBuffer, scissors []vk.Rect2D) {
	f.record(cb, "SetScissor", nil)
}

func (f *FakeDevice) CmdDraw(cb vk.CommandBuffer, vertexCount uint32) {
	f.record(cb, "Draw", nil)
}

func (f *FakeDevice) CmdDrawIndexed(cb vk.CommandBuffer, indexCount uint32) {
	f.record(cb, "DrawIndexed", nil)
}

func (f *FakeDevice) CreateSemaphore() (vk.Semaphore, error) {
	return vk.Semaphore(f.newObject(kindSemaphore)), nil
}

func (f *FakeDevice) DestroySemaphore(sem vk.Semaphore) {
	f.destroy(unsafe.Pointer(sem), kindSemaphore, "destroy semaphore")
}

func (f *FakeDevice) CreateFence(signaled bool) (vk.Fence, error) {
	p, obj := f.newObjectRef(kindFence)
	obj.signaled = signaled
	return vk.Fence(p), nil
}

func (f *FakeDevice) DestroyFence(fence vk.Fence) {
	obj := f.destroy(unsafe.Pointer(fence), kindFence, "destroy fence")
	if obj != nil && obj.pending {
		f.violate("destroy fence: fence still in flight")
	}
}

func (f *FakeDevice) WaitForFence(fence vk.Fence) error {
	obj := f.lookup(unsafe.Pointer(fence), kindFence, "wait for fence")
	if obj == nil {
		return vk.Error(vk.ErrorDeviceLost)
	}
	if !obj.signaled && !obj.pending {
		f.violate("wait for fence: fence is reset and was never submitted")
		return vk.Error(vk.ErrorDeviceLost)
	}
	obj.pending = false
	obj.signaled = true
	return nil
}

func (f *FakeDevice) ResetFence(fence vk.Fence) error {
	obj := f.lookup(unsafe.Pointer(fence), kindFence, "reset fence")
	if obj == nil {
		return vk.Error(vk.ErrorDeviceLost)
	}
	if obj.pending {
		f.violate("reset fence: fence still in flight")
	}
	obj.signaled = false
	return nil
}

func (f *FakeDevice) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error {
	f.lookup(unsafe.Pointer(queue), kindQueue, "queue submit")

	var fenceObj *object
	if fence != vk.NullFence {
		fenceObj = f.lookup(unsafe.Pointer(fence), kindFence, "queue submit")
		if fenceObj != nil && (fenceObj.signaled || fenceObj.pending) {
			f.violate("queue submit: fence was not reset")
		}
	}

	for _, submit := range submits {
		for _, sem := range submit.PWaitSemaphores {
			semaphore := f.lookup(unsafe.Pointer(sem), kindSemaphore, "queue submit")
			if semaphore == nil {
				continue
			}
			if !semaphore.signaled {
				f.violate("queue submit: waits on a semaphore nothing signals")
			}
			semaphore.signaled = false
		}

		for _, cb := range submit.PCommandBuffers {
			obj := f.commandBuffer(cb, "queue submit")
			if obj == nil {
				continue
			}
			if obj.recording {
				f.violate("queue submit: command buffer still recording")
			}
			for _, op := range obj.ops {
				op()
			}
			obj.fence = fenceObj
			if fenceObj != nil {
				f.lastSubmitted = append([]string(nil), obj.names...)
			}
		}

		for _, sem := range submit.PSignalSemaphores {
			semaphore := f.lookup(unsafe.Pointer(sem), kindSemaphore, "queue submit")
			if semaphore == nil {
				continue
			}
			if semaphore.signaled {
				f.violate("queue submit: semaphore signaled twice")
			}
			semaphore.signaled = true
		}
	}

	if fenceObj != nil {
		f.Submits++
		fenceObj.pending = true
		if n := f.outstanding(); n > f.MaxOutstanding {
			f.MaxOutstanding = n
		}
	}

	return nil
}

func (f *FakeDevice) QueueWaitIdle(queue vk.Queue) error {
	f.lookup(unsafe.Pointer(queue), kindQueue, "queue wait idle")
	f.completeAll()
	return nil
}
