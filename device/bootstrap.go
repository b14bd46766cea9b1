// Package device opens the Vulkan instance, picks a physical device for the
// window's surface and creates the logical device with its queues.
package device

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/gpu"
	"blast-engine/queues"
)

// Extensions are the device extensions the engine cannot run without.
var Extensions = []string{
	vk.KhrSwapchainExtensionName + "\x00",
	"VK_KHR_shader_draw_parameters\x00",
}

// ValidationLayers are enabled when Config.Validation is set.
var ValidationLayers = []string{
	"VK_LAYER_KHRONOS_validation\x00",
}

// Window is what device creation needs from the windowing system.
type Window interface {
	InstanceProcAddr() unsafe.Pointer
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
}

// Config controls instance and device creation.
type Config struct {
	AppName    string
	Validation bool
}

// Context is the instance, the surface and the logical device created on the
// selected physical device. It lives for the whole engine run.
type Context struct {
	Instance vk.Instance
	Surface  vk.Surface
	Physical vk.PhysicalDevice
	Device   vk.Device
	Families queues.FamilyIndices

	// GPU is the gpu.Device every other component talks to.
	GPU *gpu.Vulkan

	log logrus.FieldLogger
}

// Bootstrap runs the whole setup. On error everything created so far has
// been destroyed already.
func Bootstrap(win Window, cfg Config, log logrus.FieldLogger) (*Context, error) {
	c := &Context{
		Surface:  vk.NullSurface,
		Physical: vk.PhysicalDevice(vk.NullHandle),
		Device:   vk.Device(vk.NullHandle),
		log:      log,
	}

	vk.SetGetInstanceProcAddr(win.InstanceProcAddr())
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to init Vulkan Go")
	}

	if err := c.createInstance(win, cfg); err != nil {
		return nil, errors.Wrap(err, "createInstance")
	}

	surface, err := win.CreateSurface(c.Instance)
	if err != nil {
		c.Destroy()
		return nil, errors.Wrap(err, "createSurface")
	}
	c.Surface = surface

	if err := c.pickPhysicalDevice(); err != nil {
		c.Destroy()
		return nil, errors.Wrap(err, "pickPhysicalDevice")
	}

	if err := c.createLogicalDevice(cfg); err != nil {
		c.Destroy()
		return nil, errors.Wrap(err, "createLogicalDevice")
	}

	return c, nil
}

func (c *Context) createInstance(win Window, cfg Config) error {
	if cfg.Validation && !checkValidationSupport() {
		return errors.New("validation layers requested but not available")
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   cfg.AppName + "\x00",
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "blast\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.MakeVersion(1, 1, 0),
	}

	extensions := win.RequiredInstanceExtensions()
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}

	if cfg.Validation {
		createInfo.EnabledLayerCount = uint32(len(ValidationLayers))
		createInfo.PpEnabledLayerNames = ValidationLayers
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return errors.Wrap(err, "failed to create Vulkan instance")
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return errors.Wrap(err, "failed to load instance functions")
	}

	c.Instance = instance
	return nil
}

func (c *Context) pickPhysicalDevice() error {
	var deviceCount uint32
	err := vk.Error(vk.EnumeratePhysicalDevices(c.Instance, &deviceCount, nil))
	if err != nil {
		return errors.Wrap(err, "failed to get the number of physical devices")
	}
	if deviceCount == 0 {
		return errors.Wrap(ErrNoSuitableDevice, "no GPUs with Vulkan support")
	}

	physicalDevices := make([]vk.PhysicalDevice, deviceCount)
	err = vk.Error(vk.EnumeratePhysicalDevices(c.Instance, &deviceCount, physicalDevices))
	if err != nil {
		return errors.Wrap(err, "failed to enumerate the physical devices")
	}

	candidates := make([]Candidate, 0, deviceCount)
	for _, physical := range physicalDevices {
		candidate := describe(physical, c.Surface)
		score, reasons := Score(candidate)

		c.log.WithFields(logrus.Fields{
			"device":  candidate.Name,
			"score":   score,
			"reasons": reasons,
		}).Debug("available device")

		candidates = append(candidates, candidate)
	}

	selected, err := Pick(candidates)
	if err != nil {
		return err
	}

	c.Physical = physicalDevices[selected]
	c.Families = candidates[selected].Families

	c.log.WithField("device", candidates[selected].Name).Info("selected GPU")
	return nil
}

// describe queries everything Score looks at.
func describe(physical vk.PhysicalDevice, surface vk.Surface) Candidate {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physical, &properties)
	properties.Deref()
	properties.Limits.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(physical, &features)
	features.Deref()

	candidate := Candidate{
		Name:                vk.ToString(properties.DeviceName[:]),
		Discrete:            properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu,
		MaxImageDimension2D: properties.Limits.MaxImageDimension2D,
		MultiDrawIndirect:   features.MultiDrawIndirect.B(),
		SamplerAnisotropy:   features.SamplerAnisotropy.B(),
		Families:            findQueueFamilies(physical, surface),
		MissingExtensions:   missingExtensions(physical),
	}

	if len(candidate.MissingExtensions) == 0 {
		formats, _ := gpu.QuerySurfaceFormats(physical, surface)
		modes, _ := gpu.QuerySurfacePresentModes(physical, surface)
		candidate.SurfaceFormats = len(formats)
		candidate.SurfacePresentModes = len(modes)
	}

	return candidate
}

func findQueueFamilies(physical vk.PhysicalDevice, surface vk.Surface) queues.FamilyIndices {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &queueFamilyCount, nil)

	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &queueFamilyCount, queueFamilies)

	return queues.Find(queueFamilies, func(family uint32) bool {
		var hasPresent vk.Bool32
		res := vk.GetPhysicalDeviceSurfaceSupport(physical, family, surface, &hasPresent)
		return vk.Error(res) == nil && hasPresent.B()
	})
}

func missingExtensions(physical vk.PhysicalDevice) []string {
	var extensionsCount uint32
	res := vk.EnumerateDeviceExtensionProperties(physical, "", &extensionsCount, nil)
	if vk.Error(res) != nil {
		return Extensions
	}

	availableExtensions := make([]vk.ExtensionProperties, extensionsCount)
	res = vk.EnumerateDeviceExtensionProperties(physical, "", &extensionsCount,
		availableExtensions)
	if vk.Error(res) != nil {
		return Extensions
	}

	available := make(map[string]struct{}, len(availableExtensions))
	for _, extension := range availableExtensions {
		extension.Deref()
		available[vk.ToString(extension.ExtensionName[:])+"\x00"] = struct{}{}
	}

	var missing []string
	for _, extensionName := range Extensions {
		if _, ok := available[extensionName]; !ok {
			missing = append(missing, extensionName)
		}
	}

	return missing
}

func checkValidationSupport() bool {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return false
	}
	availableLayers := make([]vk.LayerProperties, count)

	if vk.EnumerateInstanceLayerProperties(&count, availableLayers) != vk.Success {
		return false
	}

	available := make(map[string]struct{}, count)
	for _, layer := range availableLayers {
		layer.Deref()
		available[vk.ToString(layer.LayerName[:])+"\x00"] = struct{}{}
	}

	for _, validationLayer := range ValidationLayers {
		if _, ok := available[validationLayer]; !ok {
			return false
		}
	}

	return true
}

func (c *Context) createLogicalDevice(cfg Config) error {
	queueCreateInfos := []vk.DeviceQueueCreateInfo{}
	for _, familyIndex := range c.Families.Unique() {
		queueCreateInfos = append(
			queueCreateInfos,
			vk.DeviceQueueCreateInfo{
				SType:            vk.StructureTypeDeviceQueueCreateInfo,
				QueueFamilyIndex: familyIndex,
				QueueCount:       1,
				PQueuePriorities: []float32{1.0},
			},
		)
	}

	var supported vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(c.Physical, &supported)
	supported.Deref()

	anisotropy := supported.SamplerAnisotropy.B()

	enabled := vk.PhysicalDeviceFeatures{
		MultiDrawIndirect: vk.True,
	}
	if anisotropy {
		enabled.SamplerAnisotropy = vk.True
	}

	createInfo := vk.DeviceCreateInfo{
		SType:            vk.StructureTypeDeviceCreateInfo,
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{enabled},

		PQueueCreateInfos:    queueCreateInfos,
		QueueCreateInfoCount: uint32(len(queueCreateInfos)),

		EnabledExtensionCount:   uint32(len(Extensions)),
		PpEnabledExtensionNames: Extensions,
	}

	if cfg.Validation {
		createInfo.PpEnabledLayerNames = ValidationLayers
		createInfo.EnabledLayerCount = uint32(len(ValidationLayers))
	}

	var device vk.Device
	err := vk.Error(vk.CreateDevice(c.Physical, &createInfo, nil, &device))
	if err != nil {
		return errors.Wrap(err, "failed to create logical device")
	}
	c.Device = device

	var graphicsQueue vk.Queue
	vk.GetDeviceQueue(c.Device, c.Families.Graphics.Get(), 0, &graphicsQueue)

	var presentQueue vk.Queue
	vk.GetDeviceQueue(c.Device, c.Families.Present.Get(), 0, &presentQueue)

	c.GPU = gpu.NewVulkan(
		c.Physical,
		c.Device,
		c.Surface,
		graphicsQueue,
		presentQueue,
		anisotropy,
	)

	return nil
}

// Destroy releases the logical device, the surface and the instance. Every
// object created from the device must be gone by now.
func (c *Context) Destroy() {
	if c.Device != vk.Device(vk.NullHandle) {
		vk.DestroyDevice(c.Device, nil)
		c.Device = vk.Device(vk.NullHandle)
	}
	if c.Surface != vk.NullSurface {
		vk.DestroySurface(c.Instance, c.Surface, nil)
		c.Surface = vk.NullSurface
	}
	if c.Instance != vk.Instance(vk.NullHandle) {
		vk.DestroyInstance(c.Instance, nil)
		c.Instance = vk.Instance(vk.NullHandle)
	}
}
