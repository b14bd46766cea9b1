// Package pipeline builds the engine's single graphics pipeline and the render
// pass it draws into.
package pipeline

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"blast-engine/gpu"
)

// Config describes what varies between engines. Everything else about the
// pipeline is fixed.
type Config struct {
	// Code is a SPIR-V module holding both entry points.
	Code          []uint32
	VertexEntry   string
	FragmentEntry string

	Binding    vk.VertexInputBindingDescription
	Attributes []vk.VertexInputAttributeDescription

	SetLayouts  []vk.DescriptorSetLayout
	ColorFormat vk.Format
}

// Pipeline owns the render pass, the pipeline layout and the pipeline.
type Pipeline struct {
	dev gpu.Device

	renderPass vk.RenderPass
	layout     vk.PipelineLayout
	pipeline   vk.Pipeline
}

// New creates the render pass for cfg.ColorFormat and a pipeline using it.
func New(dev gpu.Device, cfg Config) (*Pipeline, error) {
	p := &Pipeline{
		dev:        dev,
		renderPass: vk.RenderPass(vk.NullHandle),
		layout:     vk.PipelineLayout(vk.NullHandle),
		pipeline:   vk.Pipeline(vk.NullHandle),
	}

	renderPass, err := CreateRenderPass(dev, cfg.ColorFormat)
	if err != nil {
		return nil, err
	}
	p.renderPass = renderPass

	if err := p.createGraphicsPipeline(cfg); err != nil {
		p.Destroy()
		return nil, err
	}

	return p, nil
}

// CreateRenderPass creates a render pass with one color attachment which is
// cleared on load and left ready for presentation.
func CreateRenderPass(dev gpu.Device, format vk.Format) (vk.RenderPass, error) {
	colorAttachment := vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}

	colorAttachmentRef := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{colorAttachmentRef},
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	renderPassInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	renderPass, err := dev.CreateRenderPass(&renderPassInfo)
	return renderPass, errors.Wrap(err, "failed to create render pass")
}

func (p *Pipeline) createGraphicsPipeline(cfg Config) error {
	if len(cfg.Code) == 0 {
		return errors.New("no shader code")
	}

	moduleInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(cfg.Code) * 4),
		PCode:    cfg.Code,
	}

	shaderModule, err := p.dev.CreateShaderModule(&moduleInfo)
	if err != nil {
		return errors.Wrap(err, "creating shader module")
	}
	defer p.dev.DestroyShaderModule(shaderModule)

	shaderStages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: shaderModule,
			PName:  cfg.VertexEntry + "\x00",
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: shaderModule,
			PName:  cfg.FragmentEntry + "\x00",
		},
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,

		VertexBindingDescriptionCount: 1,
		PVertexBindingDescriptions:    []vk.VertexInputBindingDescription{cfg.Binding},

		VertexAttributeDescriptionCount: uint32(len(cfg.Attributes)),
		PVertexAttributeDescriptions:    cfg.Attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}

	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// Viewport and scissor are dynamic, only their counts matter here.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1,
		CullMode:                vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(
			vk.ColorComponentRBit |
				vk.ColorComponentGBit |
				vk.ColorComponentBBit |
				vk.ColorComponentABit,
		),
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
	}

	colorBlending := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments: []vk.PipelineColorBlendAttachmentState{
			colorBlendAttachment,
		},
	}

	pipelineLayoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(cfg.SetLayouts)),
		PSetLayouts:    cfg.SetLayouts,
	}

	layout, err := p.dev.CreatePipelineLayout(&pipelineLayoutInfo)
	if err != nil {
		return errors.Wrap(err, "failed to create pipeline layout")
	}
	p.layout = layout

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(shaderStages)),
		PStages:             shaderStages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PColorBlendState:    &colorBlending,
		PDynamicState:       &dynamicState,
		Layout:              p.layout,
		RenderPass:          p.renderPass,
		Subpass:             0,
		BasePipelineHandle:  vk.Pipeline(vk.NullHandle),
		BasePipelineIndex:   -1,
	}

	pipeline, err := p.dev.CreateGraphicsPipeline(&pipelineInfo)
	if err != nil {
		return errors.Wrap(err, "failed to create graphics pipeline")
	}
	p.pipeline = pipeline

	return nil
}

// RenderPass is the render pass framebuffers must be compatible with.
func (p *Pipeline) RenderPass() vk.RenderPass {
	return p.renderPass
}

// Layout is the pipeline layout descriptor sets are bound against.
func (p *Pipeline) Layout() vk.PipelineLayout {
	return p.layout
}

// Handle returns the graphics pipeline.
func (p *Pipeline) Handle() vk.Pipeline {
	return p.pipeline
}

// Destroy releases the pipeline, its layout and the render pass.
func (p *Pipeline) Destroy() {
	if p.pipeline != vk.Pipeline(vk.NullHandle) {
		p.dev.DestroyPipeline(p.pipeline)
		p.pipeline = vk.Pipeline(vk.NullHandle)
	}
	if p.layout != vk.PipelineLayout(vk.NullHandle) {
		p.dev.DestroyPipelineLayout(p.layout)
		p.layout = vk.PipelineLayout(vk.NullHandle)
	}
	if p.renderPass != vk.RenderPass(vk.NullHandle) {
		p.dev.DestroyRenderPass(p.renderPass)
		p.renderPass = vk.RenderPass(vk.NullHandle)
	}
}
