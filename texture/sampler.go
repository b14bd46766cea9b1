package texture

import (
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/gpu"
)

// Sampler is the one sampler all textures are read through. Create it once
// per device and hand it to whoever writes descriptor sets.
type Sampler struct {
	dev     gpu.Device
	sampler vk.Sampler
}

// NewSampler creates a linear, repeating sampler. Anisotropic filtering at the
// device maximum is used when the feature was enabled.
func NewSampler(dev gpu.Device) (*Sampler, error) {
	properties := dev.Properties()

	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0,
		MinLod:                  0,
		MaxLod:                  0,
	}

	if properties.SamplerAnisotropy {
		samplerInfo.AnisotropyEnable = vk.True
		samplerInfo.MaxAnisotropy = properties.MaxSamplerAnisotropy
	}

	sampler, err := dev.CreateSampler(&samplerInfo)
	if err != nil {
		return nil, err
	}

	return &Sampler{dev: dev, sampler: sampler}, nil
}

// Handle returns the Vulkan sampler.
func (s *Sampler) Handle() vk.Sampler {
	return s.sampler
}

// Clean destroys the sampler.
func (s *Sampler) Clean() {
	if s.sampler != vk.NullSampler {
		s.dev.DestroySampler(s.sampler)
		s.sampler = vk.NullSampler
	}
}
