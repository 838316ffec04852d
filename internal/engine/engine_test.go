package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/gogpu/prewarm/archive"
	"github.com/gogpu/prewarm/capture"
	"github.com/gogpu/prewarm/driver"
	"github.com/gogpu/prewarm/internal/hashutil"
	"github.com/gogpu/prewarm/internal/table"
	"github.com/gogpu/prewarm/progress"
)

func hx(h uint64) string { return hashutil.FormatHash(h) }

func samplerDoc(hash uint64) []byte {
	return []byte(fmt.Sprintf(`{"version": 6, "samplers": {%q: {"magFilter": 1}}}`, hx(hash)))
}

func layoutDoc(hash uint64, setLayouts ...uint64) []byte {
	refs := ""
	for i, h := range setLayouts {
		if i > 0 {
			refs += ", "
		}
		refs += fmt.Sprintf("%q", hx(h))
	}
	return []byte(fmt.Sprintf(
		`{"version": 6, "pipelineLayouts": {%q: {"flags": 0, "setLayouts": [%s]}}}`,
		hx(hash), refs))
}

func setLayoutDoc(hash uint64, samplers ...uint64) []byte {
	refs := ""
	for i, h := range samplers {
		if i > 0 {
			refs += ", "
		}
		refs += fmt.Sprintf("%q", hx(h))
	}
	return []byte(fmt.Sprintf(
		`{"version": 6, "setLayouts": {%q: {"bindings": [{"binding": 0, "descriptorType": 1, "descriptorCount": 1, "stageFlags": 1, "immutableSamplers": [%s]}]}}}`,
		hx(hash), refs))
}

func shaderDoc(hash uint64, words []uint32) []byte {
	stream := hashutil.EncodeVarintWords(nil, words)
	js := fmt.Sprintf(
		`{"version": 6, "shaderModules": {%q: {"flags": 0, "codeSize": %d, "varintOffset": 0, "varintSize": %d}}}`,
		hx(hash), 4*len(words), len(stream))
	out := append([]byte(js), 0)
	return append(out, stream...)
}

func computeDoc(hash, module, layout uint64) []byte {
	return []byte(fmt.Sprintf(
		`{"version": 6, "computePipelines": {%q: {"flags": 0, "stage": {"stage": 32, "module": %q, "name": "main"}, "layout": %q, "basePipelineHandle": "0000000000000000"}}}`,
		hx(hash), hx(module), hx(layout)))
}

func graphicsDoc(hash, layout, renderPass uint64, libraries ...uint64) []byte {
	chain := ""
	if len(libraries) > 0 {
		refs := ""
		for i, h := range libraries {
			if i > 0 {
				refs += ", "
			}
			refs += fmt.Sprintf("%q", hx(h))
		}
		chain = fmt.Sprintf(`, "pNext": [{"sType": 1000290000, "libraries": [%s]}]`, refs)
	}
	return []byte(fmt.Sprintf(
		`{"version": 6, "graphicsPipelines": {%q: {"flags": 0, "layout": %q, "renderPass": %q, "subpass": 0%s}}}`,
		hx(hash), hx(layout), hx(renderPass), chain))
}

func renderPassDoc(hash uint64) []byte {
	return []byte(fmt.Sprintf(
		`{"version": 6, "renderPasses": {%q: {"attachments": [{"format": 44, "samples": 1}], "subpasses": [{"pipelineBindPoint": 0, "colorAttachments": [{"attachment": 0, "layout": 2}]}]}}}`,
		hx(hash)))
}

func replay(t *testing.T, b *archive.Builder, rec *driver.Recorder, workers int) (*Summary, *table.Table) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replay.pwc")
	if err := b.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	a, err := archive.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })
	tbl := table.New(a)
	eng, err := New(Config{Archive: a, Table: tbl, Driver: rec, Workers: workers})
	if err != nil {
		t.Fatal(err)
	}
	return eng.Run(), tbl
}

// Simple two-dep pipeline, happy path: creates bottom-up, destroys
// top-down, everything Created with no claims left.
func TestReplayHappyPath(t *testing.T) {
	const (
		shader   = 0xb
		layout   = 0xc
		pipeline = 0xa
	)
	b := archive.NewBuilder().
		Add(capture.TagShaderModule, shader, shaderDoc(shader, []uint32{0x07230203, 5})).
		Add(capture.TagPipelineLayout, layout, layoutDoc(layout)).
		Add(capture.TagComputePipeline, pipeline, computeDoc(pipeline, shader, layout))
	rec := driver.NewRecorder()
	sum, tbl := replay(t, b, rec, 1)

	if sum.TotalCreated() != 3 || sum.TotalInvalid() != 0 {
		t.Fatalf("summary: created=%d invalid=%d", sum.TotalCreated(), sum.TotalInvalid())
	}

	creates := rec.Creates()
	wantCreates := []capture.Tag{capture.TagShaderModule, capture.TagPipelineLayout, capture.TagComputePipeline}
	if len(creates) != len(wantCreates) {
		t.Fatalf("creates: %v", creates)
	}
	for i, tag := range wantCreates {
		if creates[i].Tag != tag {
			t.Errorf("create %d: %v, want %v", i, creates[i].Tag, tag)
		}
	}

	destroys := rec.Destroys()
	wantDestroys := []capture.Tag{capture.TagComputePipeline, capture.TagShaderModule, capture.TagPipelineLayout}
	if len(destroys) != len(wantDestroys) {
		t.Fatalf("destroys: %v", destroys)
	}
	for i, tag := range wantDestroys {
		if destroys[i].Tag != tag {
			t.Errorf("destroy %d: %v, want %v", i, destroys[i].Tag, tag)
		}
	}

	for _, probe := range []struct {
		tag  capture.Tag
		hash uint64
	}{
		{capture.TagShaderModule, shader},
		{capture.TagPipelineLayout, layout},
		{capture.TagComputePipeline, pipeline},
	} {
		e := tbl.Get(probe.tag, probe.hash)
		if e.Status() != table.StatusCreated {
			t.Errorf("%v status %v", probe.tag, e.Status())
		}
		if e.Dependents() != 0 {
			t.Errorf("%v dependents %d", probe.tag, e.Dependents())
		}
		if !e.Destroyed() {
			t.Errorf("%v not destroyed", probe.tag)
		}
	}
}

// One dep fails to parse: the root and the broken dep go Invalid, the
// healthy sibling stays Parsed with its claims released, and the driver
// is never called.
func TestReplayParseFailure(t *testing.T) {
	const (
		shader   = 0xb
		layout   = 0xc
		pipeline = 0xa
	)
	b := archive.NewBuilder().
		Add(capture.TagShaderModule, shader, shaderDoc(shader, []uint32{1})).
		Add(capture.TagPipelineLayout, layout, []byte(`{"version": 6, "pipelineLayouts": {`)).
		Add(capture.TagComputePipeline, pipeline, computeDoc(pipeline, shader, layout))
	rec := driver.NewRecorder()
	sum, tbl := replay(t, b, rec, 1)

	if got := tbl.Get(capture.TagPipelineLayout, layout).Status(); got != table.StatusInvalid {
		t.Errorf("broken dep status %v", got)
	}
	if got := tbl.Get(capture.TagComputePipeline, pipeline).Status(); got != table.StatusInvalid {
		t.Errorf("root status %v", got)
	}
	sib := tbl.Get(capture.TagShaderModule, shader)
	if sib.Status() != table.StatusParsed {
		t.Errorf("sibling status %v", sib.Status())
	}
	if sib.Dependents() != 0 {
		t.Errorf("sibling dependents %d", sib.Dependents())
	}
	if len(rec.Ops()) != 0 {
		t.Errorf("driver touched on a dead root: %v", rec.Ops())
	}
	if sum.TotalCreated() != 0 || sum.TotalInvalid() != 2 {
		t.Errorf("summary: %+v", sum)
	}
}

// One dep fails to create: the already-created sibling is destroyed
// once the root dies, and the root itself is never offered to create.
func TestReplayCreateFailure(t *testing.T) {
	const (
		shader   = 0xb
		layout   = 0xc
		pipeline = 0xa
	)
	b := archive.NewBuilder().
		Add(capture.TagShaderModule, shader, shaderDoc(shader, []uint32{1})).
		Add(capture.TagPipelineLayout, layout, layoutDoc(layout)).
		Add(capture.TagComputePipeline, pipeline, computeDoc(pipeline, shader, layout))
	rec := driver.NewRecorder()
	rec.FailCreate = func(tag capture.Tag, desc any) error {
		if tag == capture.TagPipelineLayout {
			return errors.New("out of device memory")
		}
		return nil
	}
	sum, tbl := replay(t, b, rec, 1)

	creates := rec.Creates()
	if len(creates) != 1 || creates[0].Tag != capture.TagShaderModule {
		t.Fatalf("creates: %v", creates)
	}
	destroys := rec.Destroys()
	if len(destroys) != 1 || destroys[0].Tag != capture.TagShaderModule {
		t.Fatalf("destroys: %v", destroys)
	}
	if got := tbl.Get(capture.TagPipelineLayout, layout).Status(); got != table.StatusInvalid {
		t.Errorf("failed dep status %v", got)
	}
	if got := tbl.Get(capture.TagComputePipeline, pipeline).Status(); got != table.StatusInvalid {
		t.Errorf("root status %v", got)
	}
	if sum.TotalCreated() != 1 || sum.TotalInvalid() != 2 {
		t.Errorf("summary: %+v", sum)
	}
}

// Shared dependency: created exactly once, destroyed exactly once,
// after both parents released it.
func TestReplaySharedDependency(t *testing.T) {
	const (
		shader = 0xb
		lay1   = 0xc1
		lay2   = 0xc2
		pipe1  = 0xa1
		pipe2  = 0xa2
	)
	b := archive.NewBuilder().
		Add(capture.TagShaderModule, shader, shaderDoc(shader, []uint32{1})).
		Add(capture.TagPipelineLayout, lay1, layoutDoc(lay1)).
		Add(capture.TagPipelineLayout, lay2, layoutDoc(lay2)).
		Add(capture.TagComputePipeline, pipe1, computeDoc(pipe1, shader, lay1)).
		Add(capture.TagComputePipeline, pipe2, computeDoc(pipe2, shader, lay2))
	rec := driver.NewRecorder()
	sum, tbl := replay(t, b, rec, 1)

	if sum.TotalCreated() != 5 || sum.TotalInvalid() != 0 {
		t.Fatalf("summary: %+v", sum)
	}
	var shaderCreates, shaderDestroys int
	for _, op := range rec.Ops() {
		if op.Tag == capture.TagShaderModule {
			switch op.Kind {
			case "create":
				shaderCreates++
			case "destroy":
				shaderDestroys++
			}
		}
	}
	if shaderCreates != 1 || shaderDestroys != 1 {
		t.Errorf("shared shader: %d creates, %d destroys", shaderCreates, shaderDestroys)
	}
	if got := tbl.Get(capture.TagShaderModule, shader).Dependents(); got != 0 {
		t.Errorf("shared shader dependents %d", got)
	}
}

// A pipeline library is both a root and a dependency: it is created
// before its consumer and destroyed after it, exactly once.
func TestReplayPipelineLibrary(t *testing.T) {
	const (
		layout = 0xc
		rp     = 0xd
		lib    = 0xe
		pipe   = 0xf
	)
	b := archive.NewBuilder().
		Add(capture.TagPipelineLayout, layout, layoutDoc(layout)).
		Add(capture.TagRenderPass, rp, renderPassDoc(rp)).
		Add(capture.TagGraphicsPipeline, lib, graphicsDoc(lib, layout, rp)).
		Add(capture.TagGraphicsPipeline, pipe, graphicsDoc(pipe, layout, rp, lib))
	rec := driver.NewRecorder()
	sum, tbl := replay(t, b, rec, 1)

	if sum.TotalCreated() != 4 || sum.TotalInvalid() != 0 {
		t.Fatalf("summary: %+v", sum)
	}

	var libCreate, libDestroy, pipeCreate, pipeDestroy = -1, -1, -1, -1
	libEntry := tbl.Get(capture.TagGraphicsPipeline, lib)
	pipeEntry := tbl.Get(capture.TagGraphicsPipeline, pipe)
	for i, op := range rec.Ops() {
		switch {
		case op.Kind == "create" && op.Handle == libEntry.Handle:
			libCreate = i
		case op.Kind == "destroy" && op.Handle == libEntry.Handle:
			libDestroy = i
		case op.Kind == "create" && op.Handle == pipeEntry.Handle:
			pipeCreate = i
		case op.Kind == "destroy" && op.Handle == pipeEntry.Handle:
			pipeDestroy = i
		}
	}
	if libCreate < 0 || pipeCreate < 0 || libCreate > pipeCreate {
		t.Errorf("library create at %d, consumer at %d", libCreate, pipeCreate)
	}
	if pipeDestroy < 0 || libDestroy < 0 || pipeDestroy > libDestroy {
		t.Errorf("consumer destroy at %d, library at %d", pipeDestroy, libDestroy)
	}
	// The library's handle must have been patched into the consumer's
	// descriptor before its create call.
	for _, op := range rec.Creates() {
		if op.Handle != pipeEntry.Handle {
			continue
		}
		info := op.Desc.(*capture.GraphicsPipelineCreateInfo)
		libChain := info.Chain[0].(*capture.PipelineLibraryCreateInfo)
		if len(libChain.Libraries) != 1 || libChain.Libraries[0] != libEntry.Handle {
			t.Errorf("library slot: %v, want [%#x]", libChain.Libraries, libEntry.Handle)
		}
	}
	// Descriptors are released once the object is destroyed.
	if pipeEntry.Desc != nil {
		t.Errorf("descriptor not released after destroy")
	}
}

// A reference to a hash absent from the archive invalidates only its
// own root.
func TestReplayMissingDependency(t *testing.T) {
	const (
		shader  = 0xb
		lay     = 0xc
		broken  = 0xa1
		healthy = 0xa2
		missing = 0xdead
	)
	b := archive.NewBuilder().
		Add(capture.TagShaderModule, shader, shaderDoc(shader, []uint32{1})).
		Add(capture.TagPipelineLayout, lay, layoutDoc(lay)).
		Add(capture.TagComputePipeline, broken, computeDoc(broken, missing, lay)).
		Add(capture.TagComputePipeline, healthy, computeDoc(healthy, shader, lay))
	rec := driver.NewRecorder()
	sum, tbl := replay(t, b, rec, 1)

	if got := tbl.Get(capture.TagComputePipeline, broken).Status(); got != table.StatusInvalid {
		t.Errorf("broken root status %v", got)
	}
	if got := tbl.Get(capture.TagComputePipeline, healthy).Status(); got != table.StatusCreated {
		t.Errorf("healthy root status %v", got)
	}
	if sum.TotalInvalid() != 1 {
		t.Errorf("summary: %+v", sum)
	}
}

// A handle slot recorded with the all-zero hash stays null through the
// whole replay.
func TestReplayNullHandleSlot(t *testing.T) {
	const (
		shader = 0xb
		lay    = 0xc
		pipe   = 0xa
	)
	b := archive.NewBuilder().
		Add(capture.TagShaderModule, shader, shaderDoc(shader, []uint32{1})).
		Add(capture.TagPipelineLayout, lay, layoutDoc(lay, 0)). // null set layout
		Add(capture.TagComputePipeline, pipe, computeDoc(pipe, shader, lay))
	rec := driver.NewRecorder()
	sum, _ := replay(t, b, rec, 1)
	if sum.TotalCreated() != 3 {
		t.Fatalf("summary: %+v", sum)
	}
	for _, op := range rec.Creates() {
		if op.Tag != capture.TagPipelineLayout {
			continue
		}
		info := op.Desc.(*capture.PipelineLayoutCreateInfo)
		if len(info.SetLayouts) != 1 || info.SetLayouts[0] != 0 {
			t.Errorf("null slot patched: %v", info.SetLayouts)
		}
	}
}

// A dependency edge without a target slot orders creation but patches
// nothing.
func TestNilFixupTarget(t *testing.T) {
	rec := driver.NewRecorder()
	eng := &Engine{drv: rec, sink: progress.Nop{}, maxDepth: 8}
	w := &worker{eng: eng}

	dep := &table.Entry{Rec: &archive.Entry{Tag: capture.TagSampler, Hash: 0x1}}
	dep.SetStatus(table.StatusCreated)
	dep.Handle = 0x1234
	dep.AddDependent()

	desc := &capture.SamplerCreateInfo{}
	parent := &table.Entry{Rec: &archive.Entry{Tag: capture.TagSampler, Hash: 0x2}}
	parent.Desc = &capture.Result{Tag: capture.TagSampler, Hash: 0x2, Desc: desc}
	parent.Deps = []table.Dep{{Entry: dep, Target: nil}}
	parent.SetStatus(table.StatusCreating)

	if err := w.create(parent); err != nil {
		t.Fatalf("create: %v", err)
	}
	if parent.Status() != table.StatusCreated {
		t.Fatalf("status %v", parent.Status())
	}
	if dep.Dependents() != 0 {
		t.Errorf("dep claims not released: %d", dep.Dependents())
	}
	if !dep.Destroyed() {
		t.Errorf("dep not destroyed after last claim")
	}
}

// Many roots across many workers: every entry lands in a terminal
// state, creates precede destroys, and nothing runs twice.
func TestReplayConcurrent(t *testing.T) {
	b := archive.NewBuilder()
	const pipelines = 40
	// Shared layer of shaders and layouts, partially overlapping.
	for i := uint64(0); i < 8; i++ {
		b.Add(capture.TagShaderModule, 0x100+i, shaderDoc(0x100+i, []uint32{uint32(i + 1)}))
		b.Add(capture.TagPipelineLayout, 0x200+i, layoutDoc(0x200+i))
	}
	for i := uint64(0); i < pipelines; i++ {
		b.Add(capture.TagComputePipeline, 0x300+i,
			computeDoc(0x300+i, 0x100+i%8, 0x200+(i+3)%8))
	}
	rec := driver.NewRecorder()
	sum, tbl := replay(t, b, rec, 8)

	if sum.TotalCreated() != 8+8+pipelines || sum.TotalInvalid() != 0 {
		t.Fatalf("summary: created=%d invalid=%d", sum.TotalCreated(), sum.TotalInvalid())
	}

	created := map[capture.Handle]int{}
	for _, op := range rec.Ops() {
		switch op.Kind {
		case "create":
			created[op.Handle]++
		case "destroy":
			if created[op.Handle] != 1 {
				t.Fatalf("destroy without exactly one create: handle %#x", op.Handle)
			}
			created[op.Handle]--
		}
	}
	for h, n := range created {
		if n != 0 {
			t.Errorf("handle %#x created without destroy", h)
		}
	}

	for _, tag := range []capture.Tag{capture.TagShaderModule, capture.TagPipelineLayout, capture.TagComputePipeline} {
		for _, e := range tbl.Values(tag) {
			if e.Status() != table.StatusCreated {
				t.Errorf("%v/%s status %v", tag, hx(e.Hash()), e.Status())
			}
			if e.Dependents() != 0 {
				t.Errorf("%v/%s dependents %d", tag, hx(e.Hash()), e.Dependents())
			}
		}
	}
}

// Immutable sampler chains exercise a three-level dependency walk.
func TestReplayDeepChain(t *testing.T) {
	const (
		sampler = 0x1
		setLay  = 0x2
		pipeLay = 0x3
		shader  = 0x4
		pipe    = 0x5
	)
	b := archive.NewBuilder().
		Add(capture.TagSampler, sampler, samplerDoc(sampler)).
		Add(capture.TagDescriptorSetLayout, setLay, setLayoutDoc(setLay, sampler)).
		Add(capture.TagPipelineLayout, pipeLay, layoutDoc(pipeLay, setLay)).
		Add(capture.TagShaderModule, shader, shaderDoc(shader, []uint32{1})).
		Add(capture.TagComputePipeline, pipe, computeDoc(pipe, shader, pipeLay))
	rec := driver.NewRecorder()
	sum, tbl := replay(t, b, rec, 2)

	if sum.TotalCreated() != 5 || sum.TotalInvalid() != 0 {
		t.Fatalf("summary: %+v", sum)
	}
	// Bottom-up creation: sampler before set layout before pipeline
	// layout before pipeline.
	pos := map[capture.Handle]int{}
	for i, op := range rec.Creates() {
		pos[op.Handle] = i
	}
	order := []uint64{0, 0, 0, 0}
	order[0] = uint64(pos[tbl.Get(capture.TagSampler, sampler).Handle])
	order[1] = uint64(pos[tbl.Get(capture.TagDescriptorSetLayout, setLay).Handle])
	order[2] = uint64(pos[tbl.Get(capture.TagPipelineLayout, pipeLay).Handle])
	order[3] = uint64(pos[tbl.Get(capture.TagComputePipeline, pipe).Handle])
	for i := 1; i < len(order); i++ {
		if order[i-1] > order[i] {
			t.Fatalf("creation order violated: %v", order)
		}
	}
}
