package texture

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ErrUnsupportedLayoutTransition is returned for any layout change other than
// undefined to transfer destination and transfer destination to shader read.
var ErrUnsupportedLayoutTransition = errors.New("unsupported layout transition")

// Transition is the access masks and pipeline stages of one image barrier.
type Transition struct {
	SrcAccess vk.AccessFlags
	DstAccess vk.AccessFlags
	SrcStage  vk.PipelineStageFlags
	DstStage  vk.PipelineStageFlags
}

// LayoutTransition looks up the barrier parameters for moving an image from
// oldLayout to newLayout.
func LayoutTransition(oldLayout, newLayout vk.ImageLayout) (Transition, error) {
	switch {
	case oldLayout == vk.ImageLayoutUndefined &&
		newLayout == vk.ImageLayoutTransferDstOptimal:

		return Transition{
			SrcAccess: 0,
			DstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			SrcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			DstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		}, nil

	case oldLayout == vk.ImageLayoutTransferDstOptimal &&
		newLayout == vk.ImageLayoutShaderReadOnlyOptimal:

		return Transition{
			SrcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
			SrcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			DstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		}, nil
	}

	return Transition{}, errors.Wrapf(
		ErrUnsupportedLayoutTransition,
		"from %d to %d",
		oldLayout,
		newLayout,
	)
}
