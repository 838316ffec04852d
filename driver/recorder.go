package driver

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/prewarm/capture"
)

// Op is one recorded driver call.
type Op struct {
	Kind   string // "create" or "destroy"
	Tag    capture.Tag
	Handle capture.Handle
	Desc   any // create only
}

// Recorder is a Driver that performs no GPU work. It hands out
// sequential handles, keeps an ordered log of every call, and can be
// told to fail specific creates. It backs the engine tests and the
// CLI's dry-run mode.
//
// Recorder is safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	ops  []Op
	next atomic.Uint64

	// FailCreate, when non-nil, is consulted before each create; a
	// non-nil error fails the call.
	FailCreate func(tag capture.Tag, desc any) error
}

// NewRecorder returns an empty recorder. Handles start at 1.
func NewRecorder() *Recorder {
	r := &Recorder{}
	r.next.Store(1)
	return r
}

// Name implements Driver.
func (r *Recorder) Name() string { return "recorder" }

// Close implements Driver.
func (r *Recorder) Close() error { return nil }

func (r *Recorder) create(tag capture.Tag, desc any) (capture.Handle, error) {
	if r.FailCreate != nil {
		if err := r.FailCreate(tag, desc); err != nil {
			return 0, fmt.Errorf("recorder: create %s: %w", tag, err)
		}
	}
	h := capture.Handle(r.next.Add(1) - 1)
	r.mu.Lock()
	r.ops = append(r.ops, Op{Kind: "create", Tag: tag, Handle: h, Desc: desc})
	r.mu.Unlock()
	return h, nil
}

func (r *Recorder) destroy(tag capture.Tag, h capture.Handle) {
	r.mu.Lock()
	r.ops = append(r.ops, Op{Kind: "destroy", Tag: tag, Handle: h})
	r.mu.Unlock()
}

// Ops returns a snapshot of the call log in issue order.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Creates returns the create calls, in order.
func (r *Recorder) Creates() []Op { return r.filter("create") }

// Destroys returns the destroy calls, in order.
func (r *Recorder) Destroys() []Op { return r.filter("destroy") }

func (r *Recorder) filter(kind string) []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Op
	for _, op := range r.ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

func (r *Recorder) CreateSampler(info *capture.SamplerCreateInfo) (capture.Handle, error) {
	return r.create(capture.TagSampler, info)
}
func (r *Recorder) DestroySampler(h capture.Handle) { r.destroy(capture.TagSampler, h) }

func (r *Recorder) CreateDescriptorSetLayout(info *capture.DescriptorSetLayoutCreateInfo) (capture.Handle, error) {
	return r.create(capture.TagDescriptorSetLayout, info)
}
func (r *Recorder) DestroyDescriptorSetLayout(h capture.Handle) {
	r.destroy(capture.TagDescriptorSetLayout, h)
}

func (r *Recorder) CreatePipelineLayout(info *capture.PipelineLayoutCreateInfo) (capture.Handle, error) {
	return r.create(capture.TagPipelineLayout, info)
}
func (r *Recorder) DestroyPipelineLayout(h capture.Handle) { r.destroy(capture.TagPipelineLayout, h) }

func (r *Recorder) CreateShaderModule(info *capture.ShaderModuleCreateInfo) (capture.Handle, error) {
	return r.create(capture.TagShaderModule, info)
}
func (r *Recorder) DestroyShaderModule(h capture.Handle) { r.destroy(capture.TagShaderModule, h) }

func (r *Recorder) CreateRenderPass(info *capture.RenderPassCreateInfo) (capture.Handle, error) {
	return r.create(capture.TagRenderPass, info)
}
func (r *Recorder) DestroyRenderPass(h capture.Handle) { r.destroy(capture.TagRenderPass, h) }

func (r *Recorder) CreateComputePipeline(info *capture.ComputePipelineCreateInfo) (capture.Handle, error) {
	return r.create(capture.TagComputePipeline, info)
}
func (r *Recorder) DestroyComputePipeline(h capture.Handle) {
	r.destroy(capture.TagComputePipeline, h)
}

func (r *Recorder) CreateGraphicsPipeline(info *capture.GraphicsPipelineCreateInfo) (capture.Handle, error) {
	return r.create(capture.TagGraphicsPipeline, info)
}
func (r *Recorder) DestroyGraphicsPipeline(h capture.Handle) {
	r.destroy(capture.TagGraphicsPipeline, h)
}

func (r *Recorder) CreateRaytracingPipeline(info *capture.RayTracingPipelineCreateInfo) (capture.Handle, error) {
	return r.create(capture.TagRaytracingPipeline, info)
}
func (r *Recorder) DestroyRaytracingPipeline(h capture.Handle) {
	r.destroy(capture.TagRaytracingPipeline, h)
}
