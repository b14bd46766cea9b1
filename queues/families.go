package queues

import (
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/optional"
)

// FamilyIndices holds the indexes of Vulkan queue families needed by the engine.
type FamilyIndices struct {

	// Graphics is the index of the graphics queue family.
	Graphics optional.Optional[uint32]

	// Present is the index of the queue family used for presenting to the drawing
	// surface.
	Present optional.Optional[uint32]
}

// IsComplete returns true if all families have been set.
func (f *FamilyIndices) IsComplete() bool {
	return f.Graphics.HasValue() && f.Present.HasValue()
}

// Unique returns the distinct family indexes, graphics first. One queue is
// created per returned family.
func (f *FamilyIndices) Unique() []uint32 {
	if !f.IsComplete() {
		return nil
	}

	if f.Graphics.Get() == f.Present.Get() {
		return []uint32{f.Graphics.Get()}
	}

	return []uint32{f.Graphics.Get(), f.Present.Get()}
}

// Sharing returns how images shared by the graphics and present queues have to
// be created: exclusively when both are the same family and concurrently
// between the two families otherwise.
func (f *FamilyIndices) Sharing() (vk.SharingMode, []uint32) {
	unique := f.Unique()
	if len(unique) < 2 {
		return vk.SharingModeExclusive, nil
	}

	return vk.SharingModeConcurrent, unique
}

// Find walks the queue families of a physical device and picks the first one
// with graphics support and the first one which can present. supportsPresent
// is asked about every family until both are found.
func Find(
	families []vk.QueueFamilyProperties,
	supportsPresent func(family uint32) bool,
) FamilyIndices {
	indices := FamilyIndices{}

	for i, family := range families {
		family.Deref()

		if !indices.Graphics.HasValue() &&
			family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			indices.Graphics.Set(uint32(i))
		}

		if !indices.Present.HasValue() && supportsPresent(uint32(i)) {
			indices.Present.Set(uint32(i))
		}

		if indices.IsComplete() {
			break
		}
	}

	return indices
}
