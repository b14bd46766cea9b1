// Package descriptor binds per-frame uniform buffers and textures to the
// shader stages of the pipeline.
package descriptor

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/buffer"
	"blast-engine/gpu"
)

// UniformBinding is the binding slot of the per-frame uniform buffer. Texture
// n is bound at FirstTextureBinding+n.
const (
	UniformBinding      = 0
	FirstTextureBinding = 1
)

// Descriptor owns one set layout, the pool the sets come from and one set per
// frame in flight.
type Descriptor struct {
	dev gpu.Device

	layout vk.DescriptorSetLayout
	pool   vk.DescriptorPool
	sets   []vk.DescriptorSet
}

// New returns an empty Descriptor for dev.
func New(dev gpu.Device) *Descriptor {
	return &Descriptor{
		dev:    dev,
		layout: vk.NullDescriptorSetLayout,
		pool:   vk.NullDescriptorPool,
	}
}

// Bindings returns the layout used by the engine: a uniform buffer for the
// vertex stage followed by one combined image sampler per texture for the
// fragment stage.
func Bindings(textures int) []vk.DescriptorSetLayoutBinding {
	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         UniformBinding,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
	}

	for i := 0; i < textures; i++ {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(FirstTextureBinding + i),
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		})
	}

	return bindings
}

// PoolSizes returns the per-set descriptor counts matching Bindings(textures).
func PoolSizes(textures int) []vk.DescriptorPoolSize {
	sizes := []vk.DescriptorPoolSize{
		{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
		},
	}

	if textures > 0 {
		sizes = append(sizes, vk.DescriptorPoolSize{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: uint32(textures),
		})
	}

	return sizes
}

// CreateSetLayout declares the binding slots every set will have.
func (d *Descriptor) CreateSetLayout(bindings []vk.DescriptorSetLayoutBinding) error {
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	layout, err := d.dev.CreateDescriptorSetLayout(&layoutInfo)
	if err != nil {
		return err
	}

	d.layout = layout
	return nil
}

// CreatePool sizes a pool for frameCount sets, each needing sizes.
func (d *Descriptor) CreatePool(sizes []vk.DescriptorPoolSize, frameCount uint32) error {
	poolSizes := make([]vk.DescriptorPoolSize, 0, len(sizes))
	for _, size := range sizes {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            size.Type,
			DescriptorCount: size.DescriptorCount * frameCount,
		})
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       frameCount,
	}

	pool, err := d.dev.CreateDescriptorPool(&poolInfo)
	if err != nil {
		return err
	}

	d.pool = pool
	return nil
}

// CreateSets allocates one set per frame and points set i at buffers[i]. When
// views is not empty every set also gets each view paired with sampler.
func (d *Descriptor) CreateSets(
	frameCount uint32,
	buffers []*buffer.Buffer,
	views []vk.ImageView,
	sampler vk.Sampler,
) error {
	if d.layout == vk.NullDescriptorSetLayout || d.pool == vk.NullDescriptorPool {
		return errors.New("set layout and pool must be created first")
	}
	if uint32(len(buffers)) != frameCount {
		return errors.Errorf("%d uniform buffers for %d frames", len(buffers), frameCount)
	}

	layouts := make([]vk.DescriptorSetLayout, frameCount)
	for i := range layouts {
		layouts[i] = d.layout
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.pool,
		DescriptorSetCount: frameCount,
		PSetLayouts:        layouts,
	}

	sets, err := d.dev.AllocateDescriptorSets(&allocInfo)
	if err != nil {
		return err
	}

	for i, set := range sets {
		bufferInfo := vk.DescriptorBufferInfo{
			Buffer: buffers[i].Handle(),
			Offset: 0,
			Range:  buffers[i].Size(),
		}

		descriptorWrites := []vk.WriteDescriptorSet{
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          set,
				DstBinding:      UniformBinding,
				DstArrayElement: 0,
				DescriptorType:  vk.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
			},
		}

		for n, view := range views {
			imageInfo := vk.DescriptorImageInfo{
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
				ImageView:   view,
				Sampler:     sampler,
			}

			descriptorWrites = append(descriptorWrites, vk.WriteDescriptorSet{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          set,
				DstBinding:      uint32(FirstTextureBinding + n),
				DstArrayElement: 0,
				DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,
				PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
			})
		}

		d.dev.UpdateDescriptorSets(descriptorWrites)
	}

	d.sets = sets
	return nil
}

// Layout is the set layout the pipeline layout must reference.
func (d *Descriptor) Layout() vk.DescriptorSetLayout {
	return d.layout
}

// Set returns the descriptor set of frame.
func (d *Descriptor) Set(frame uint32) vk.DescriptorSet {
	return d.sets[frame]
}

// Clean destroys the pool, which frees its sets, and the layout.
func (d *Descriptor) Clean() {
	if d.pool != vk.NullDescriptorPool {
		d.dev.DestroyDescriptorPool(d.pool)
		d.pool = vk.NullDescriptorPool
	}
	if d.layout != vk.NullDescriptorSetLayout {
		d.dev.DestroyDescriptorSetLayout(d.layout)
		d.layout = vk.NullDescriptorSetLayout
	}
	d.sets = nil
}
