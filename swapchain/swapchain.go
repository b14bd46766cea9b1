// Package swapchain owns the chain of presentable images together with their
// views and framebuffers, and rebuilds all of them when the surface changes.
package swapchain

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/gpu"
	"blast-engine/queues"
)

// Framebuffer is the part of the window the swapchain needs: its size in
// pixels and a way to sleep until that may have changed.
type Framebuffer interface {
	FramebufferSize() (int, int)
	WaitEvents()
}

// Swapchain is the image chain, one view and one framebuffer per image, and the
// format and extent they were all created with.
type Swapchain struct {
	dev      gpu.Device
	window   Framebuffer
	families queues.FamilyIndices
	log      logrus.FieldLogger

	handle       vk.Swapchain
	images       []vk.Image
	views        []vk.ImageView
	framebuffers []vk.Framebuffer
	renderPass   vk.RenderPass

	format     vk.Format
	extent     vk.Extent2D
	recreation int
}

// New returns a Swapchain which is yet to be created.
func New(
	dev gpu.Device,
	window Framebuffer,
	families queues.FamilyIndices,
	log logrus.FieldLogger,
) *Swapchain {
	return &Swapchain{
		dev:        dev,
		window:     window,
		families:   families,
		log:        log,
		handle:     vk.NullSwapchain,
		renderPass: vk.RenderPass(vk.NullHandle),
	}
}

// Create builds the swapchain and a view for each of its images.
func (s *Swapchain) Create() error {
	width, height := s.waitForFramebuffer()

	capabilities, err := s.dev.SurfaceCapabilities()
	if err != nil {
		return err
	}

	formats, err := s.dev.SurfaceFormats()
	if err != nil {
		return err
	}
	if len(formats) == 0 {
		return errors.New("surface reports no formats")
	}

	modes, err := s.dev.SurfacePresentModes()
	if err != nil {
		return err
	}

	surfaceFormat := ChooseSurfaceFormat(formats)
	presentMode := ChoosePresentMode(modes)
	extent := ChooseExtent(capabilities, width, height)
	imageCount := ImageCount(capabilities)

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.dev.Surface(),
		MinImageCount:    imageCount,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageFormat:      surfaceFormat.Format,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	sharingMode, familyIndices := s.families.Sharing()
	createInfo.ImageSharingMode = sharingMode
	if sharingMode == vk.SharingModeConcurrent {
		createInfo.QueueFamilyIndexCount = uint32(len(familyIndices))
		createInfo.PQueueFamilyIndices = familyIndices
	}

	handle, err := s.dev.CreateSwapchain(&createInfo)
	if err != nil {
		return errors.Wrap(err, "failed to create swap chain")
	}
	s.handle = handle

	images, err := s.dev.SwapchainImages(handle)
	if err != nil {
		return err
	}

	s.images = images
	s.format = surfaceFormat.Format
	s.extent = extent

	s.log.WithFields(logrus.Fields{
		"format":       surfaceFormat.Format,
		"present_mode": presentMode,
		"width":        extent.Width,
		"height":       extent.Height,
		"images":       len(images),
	}).Debug("swapchain created")

	return s.createImageViews()
}

func (s *Swapchain) createImageViews() error {
	views := make([]vk.ImageView, 0, len(s.images))

	for i, image := range s.images {
		view, err := gpu.CreateImageView(s.dev, image, s.format)
		if err != nil {
			for _, created := range views {
				s.dev.DestroyImageView(created)
			}
			return errors.Wrapf(err, "image view %d", i)
		}

		views = append(views, view)
	}

	s.views = views
	return nil
}

// CreateFramebuffers creates one framebuffer per image view for renderPass.
// Recreate reuses the same render pass.
func (s *Swapchain) CreateFramebuffers(renderPass vk.RenderPass) error {
	s.renderPass = renderPass
	s.framebuffers = make([]vk.Framebuffer, 0, len(s.views))

	for i, view := range s.views {
		framebufferInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      renderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           s.extent.Width,
			Height:          s.extent.Height,
			Layers:          1,
		}

		framebuffer, err := s.dev.CreateFramebuffer(&framebufferInfo)
		if err != nil {
			return errors.Wrapf(err, "failed to create frame buffer %d", i)
		}

		s.framebuffers = append(s.framebuffers, framebuffer)
	}

	return nil
}

// Recreate waits for the device to go idle, destroys the framebuffers, views
// and swapchain, waits while the window is minimized and builds everything
// again with the new framebuffer size.
func (s *Swapchain) Recreate() error {
	if err := s.dev.DeviceWaitIdle(); err != nil {
		return err
	}

	s.Destroy()

	if err := s.Create(); err != nil {
		return errors.Wrap(err, "createSwapChain")
	}

	if s.renderPass != vk.RenderPass(vk.NullHandle) {
		if err := s.CreateFramebuffers(s.renderPass); err != nil {
			return errors.Wrap(err, "createFramebuffers")
		}
	}

	s.recreation++
	s.log.WithField("count", s.recreation).Debug("swapchain recreated")

	return nil
}

// waitForFramebuffer blocks on window events while the framebuffer has no
// area, which is what a minimized window reports.
func (s *Swapchain) waitForFramebuffer() (int, int) {
	for {
		width, height := s.window.FramebufferSize()
		if width > 0 && height > 0 {
			return width, height
		}

		s.window.WaitEvents()
	}
}

// Destroy releases framebuffers, image views and the swapchain, in that order.
func (s *Swapchain) Destroy() {
	for _, framebuffer := range s.framebuffers {
		s.dev.DestroyFramebuffer(framebuffer)
	}
	s.framebuffers = nil

	for _, view := range s.views {
		s.dev.DestroyImageView(view)
	}
	s.views = nil

	if s.handle != vk.NullSwapchain {
		s.dev.DestroySwapchain(s.handle)
		s.handle = vk.NullSwapchain
	}
	s.images = nil
}

// Handle returns the Vulkan swapchain.
func (s *Swapchain) Handle() vk.Swapchain {
	return s.handle
}

// Format is the pixel format of the swapchain images.
func (s *Swapchain) Format() vk.Format {
	return s.format
}

// Extent is the size of the swapchain images.
func (s *Swapchain) Extent() vk.Extent2D {
	return s.extent
}

// ImageCount is the number of images the driver actually created.
func (s *Swapchain) ImageCount() int {
	return len(s.images)
}

// ViewCount is the number of live image views.
func (s *Swapchain) ViewCount() int {
	return len(s.views)
}

// Framebuffer returns the framebuffer rendering into image index.
func (s *Swapchain) Framebuffer(index uint32) vk.Framebuffer {
	return s.framebuffers[index]
}
