package device

import (
	"github.com/pkg/errors"

	"blast-engine/queues"
)

// ErrNoSuitableDevice is returned when no physical device meets the engine's
// requirements.
var ErrNoSuitableDevice = errors.New("failed to find a suitable GPU")

// DiscreteBonus is added to the score of discrete GPUs.
const DiscreteBonus = 1000

// Candidate is everything device selection needs to know about one physical
// device.
type Candidate struct {
	Name string

	Discrete            bool
	MaxImageDimension2D uint32

	MultiDrawIndirect bool
	SamplerAnisotropy bool

	Families          queues.FamilyIndices
	MissingExtensions []string

	SurfaceFormats      int
	SurfacePresentModes int
}

// Score rates a candidate. A device lacking any requirement scores zero and
// the reasons say what it lacks. Otherwise the score is the largest supported
// 2D image dimension, plus DiscreteBonus for discrete GPUs. The bonus is a
// plain addend, so a much larger image limit can outweigh it.
func Score(c Candidate) (int, []string) {
	var reasons []string

	if !c.MultiDrawIndirect {
		reasons = append(reasons, "multiDrawIndirect not supported")
	}
	if !c.Families.IsComplete() {
		reasons = append(reasons, "no graphics and present queue families")
	}
	if len(c.MissingExtensions) > 0 {
		reasons = append(reasons, "missing device extensions")
	}
	if c.SurfaceFormats == 0 || c.SurfacePresentModes == 0 {
		reasons = append(reasons, "inadequate swapchain support")
	}

	if len(reasons) > 0 {
		return 0, reasons
	}

	score := int(c.MaxImageDimension2D)
	if c.Discrete {
		score += DiscreteBonus
	}

	// A working device never scores zero, even with a bogus limit.
	return max(score, 1), nil
}

// Pick returns the index of the best scoring candidate. Ties go to the one
// listed first.
func Pick(candidates []Candidate) (int, error) {
	selected := -1
	best := 0

	for i, candidate := range candidates {
		score, _ := Score(candidate)
		if score > best {
			selected = i
			best = score
		}
	}

	if selected < 0 {
		return -1, ErrNoSuitableDevice
	}

	return selected, nil
}
