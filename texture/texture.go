// Package texture uploads decoded images into sampled GPU images.
package texture

import (
	"image"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/buffer"
	"blast-engine/gpu"
)

// Format is the pixel format of every texture image.
const Format = vk.FormatR8g8b8a8Srgb

// Texture is a device local image with its view. The staging buffer only
// exists between LoadImage and the end of the upload.
type Texture struct {
	dev gpu.Device

	width  uint32
	height uint32

	staging *buffer.Buffer

	image  vk.Image
	memory vk.DeviceMemory
	view   vk.ImageView
	layout vk.ImageLayout
}

// New returns an empty texture for dev.
func New(dev gpu.Device) *Texture {
	return &Texture{
		dev:    dev,
		image:  vk.NullImage,
		memory: vk.NullDeviceMemory,
		view:   vk.NullImageView,
		layout: vk.ImageLayoutUndefined,
	}
}

// Load creates a ready to sample texture from the image file at path. An
// empty path gives a single white pixel.
func Load(dev gpu.Device, pool vk.CommandPool, queue vk.Queue, path string) (*Texture, error) {
	t := New(dev)

	var err error
	if path == "" {
		err = t.LoadPixels(White())
	} else {
		err = t.LoadImage(path)
	}
	if err != nil {
		return nil, err
	}

	if err := t.Upload(pool, queue); err != nil {
		t.Clean()
		return nil, err
	}

	return t, nil
}

// LoadImage decodes the file at path and copies its pixels into the staging
// buffer.
func (t *Texture) LoadImage(path string) error {
	img, err := DecodeFile(path)
	if err != nil {
		return err
	}

	return errors.Wrap(t.LoadPixels(img), path)
}

// LoadPixels copies img into a new staging buffer.
func (t *Texture) LoadPixels(img *image.RGBA) error {
	size := img.Bounds().Size()
	if size.X == 0 || size.Y == 0 {
		return errors.New("texture image is empty")
	}

	if t.staging != nil {
		t.staging.Clean()
	}

	t.width = uint32(size.X)
	t.height = uint32(size.Y)

	staging := buffer.New(t.dev, PixelBytes(t.width, t.height))
	err := staging.Create(
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.SharingModeExclusive,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create texture staging buffer")
	}

	if err := staging.Map(tightPixels(img)); err != nil {
		staging.Clean()
		return errors.Wrap(err, "failed to fill texture staging buffer")
	}

	t.staging = staging
	return nil
}

// Upload runs the whole staging sequence: create the image, move it to
// transfer destination, copy the pixels, move it to shader read only and
// create the view. The staging buffer is released at the end.
func (t *Texture) Upload(pool vk.CommandPool, queue vk.Queue) error {
	if err := t.CreateTextureImage(); err != nil {
		return err
	}

	err := t.TransitionImageLayout(
		pool, queue,
		vk.ImageLayoutUndefined,
		vk.ImageLayoutTransferDstOptimal,
	)
	if err != nil {
		return errors.Wrap(err, "transition image layout")
	}

	if err := t.CopyBufferToImage(pool, queue); err != nil {
		return errors.Wrap(err, "copying buffer to image")
	}

	err = t.TransitionImageLayout(
		pool, queue,
		vk.ImageLayoutTransferDstOptimal,
		vk.ImageLayoutShaderReadOnlyOptimal,
	)
	if err != nil {
		return errors.Wrap(err, "transitioning to read only optimal layout")
	}

	if err := t.CreateImageView(); err != nil {
		return err
	}

	t.staging.Clean()
	t.staging = nil
	return nil
}

// CreateTextureImage allocates a device local image sized like the loaded
// pixels.
func (t *Texture) CreateTextureImage() error {
	if t.width == 0 || t.height == 0 {
		return errors.New("no image loaded")
	}

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  t.width,
			Height: t.height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        Format,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage: vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) |
			vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		SharingMode: vk.SharingModeExclusive,
		Samples:     vk.SampleCount1Bit,
	}

	img, err := t.dev.CreateImage(&imageInfo)
	if err != nil {
		return errors.Wrap(err, "failed to create texture image")
	}

	memory, err := gpu.AllocateImageMemory(t.dev, img, buffer.DeviceLocal)
	if err != nil {
		t.dev.DestroyImage(img)
		return errors.Wrap(err, "texture image memory")
	}

	t.image = img
	t.memory = memory
	t.layout = vk.ImageLayoutUndefined
	return nil
}

// TransitionImageLayout records and runs a barrier moving the image between
// the two supported layout pairs.
func (t *Texture) TransitionImageLayout(
	pool vk.CommandPool,
	queue vk.Queue,
	oldLayout, newLayout vk.ImageLayout,
) error {
	transition, err := LayoutTransition(oldLayout, newLayout)
	if err != nil {
		return err
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               t.image,
		SubresourceRange:    gpu.ColorSubresource,
		SrcAccessMask:       transition.SrcAccess,
		DstAccessMask:       transition.DstAccess,
	}

	err = gpu.RunSingleTime(t.dev, pool, queue, func(cb vk.CommandBuffer) {
		t.dev.CmdPipelineBarrier(
			cb,
			transition.SrcStage,
			transition.DstStage,
			[]vk.ImageMemoryBarrier{barrier},
		)
	})
	if err != nil {
		return err
	}

	t.layout = newLayout
	return nil
}

// CopyBufferToImage copies the staging buffer into the image, which must be in
// the transfer destination layout.
func (t *Texture) CopyBufferToImage(pool vk.CommandPool, queue vk.Queue) error {
	if t.staging == nil {
		return errors.New("no staging buffer to copy from")
	}

	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,

		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},

		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{
			Width:  t.width,
			Height: t.height,
			Depth:  1,
		},
	}

	return gpu.RunSingleTime(t.dev, pool, queue, func(cb vk.CommandBuffer) {
		t.dev.CmdCopyBufferToImage(
			cb,
			t.staging.Handle(),
			t.image,
			vk.ImageLayoutTransferDstOptimal,
			[]vk.BufferImageCopy{region},
		)
	})
}

// CreateImageView creates the view shaders sample the texture through.
func (t *Texture) CreateImageView() error {
	view, err := gpu.CreateImageView(t.dev, t.image, Format)
	if err != nil {
		return errors.Wrap(err, "texture image view")
	}

	t.view = view
	return nil
}

// View is the image view to bind in descriptor sets.
func (t *Texture) View() vk.ImageView {
	return t.view
}

// Image is the Vulkan image.
func (t *Texture) Image() vk.Image {
	return t.image
}

// Layout is the layout the image was last transitioned to.
func (t *Texture) Layout() vk.ImageLayout {
	return t.layout
}

// Extent is the texture size in pixels.
func (t *Texture) Extent() (uint32, uint32) {
	return t.width, t.height
}

// Clean releases the view, the image, its memory and the staging buffer if the
// upload never finished.
func (t *Texture) Clean() {
	if t.staging != nil {
		t.staging.Clean()
		t.staging = nil
	}
	if t.view != vk.NullImageView {
		t.dev.DestroyImageView(t.view)
		t.view = vk.NullImageView
	}
	if t.image != vk.NullImage {
		t.dev.DestroyImage(t.image)
		t.image = vk.NullImage
	}
	if t.memory != vk.NullDeviceMemory {
		t.dev.FreeMemory(t.memory)
		t.memory = vk.NullDeviceMemory
	}
}

// PixelBytes is the size of a tightly packed RGBA image.
func PixelBytes(width, height uint32) vk.DeviceSize {
	return vk.DeviceSize(width) * vk.DeviceSize(height) * 4
}

// tightPixels returns the pixels of img without row padding.
func tightPixels(img *image.RGBA) []byte {
	size := img.Bounds().Size()
	rowSize := size.X * 4
	if img.Stride == rowSize {
		return img.Pix[:rowSize*size.Y]
	}

	pixels := make([]byte, 0, rowSize*size.Y)
	for y := 0; y < size.Y; y++ {
		pixels = append(pixels, img.Pix[y*img.Stride:y*img.Stride+rowSize]...)
	}
	return pixels
}
