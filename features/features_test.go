package features

import (
	"testing"

	"github.com/gogpu/prewarm/capture"
)

func supportedWithFSR() *capture.Features2 {
	f := capture.NewFeatures2()
	f.Core[capture.CoreRobustBufferAccess] = 1
	fsr := capture.NewFeatureChainEntry(capture.STypeFragmentShadingRateFeatures)
	fsr.Bits[0], fsr.Bits[1], fsr.Bits[2] = 1, 1, 1
	f.Chain = append(f.Chain, fsr)
	return f
}

func TestNegotiateMasksAgainstRequest(t *testing.T) {
	supported := supportedWithFSR()
	requested := capture.NewFeatures2()
	requested.Core[capture.CoreRobustBufferAccess] = 1
	fsr := capture.NewFeatureChainEntry(capture.STypeFragmentShadingRateFeatures)
	fsr.Bits[0] = 1 // pipeline rate only
	requested.Chain = append(requested.Chain, fsr)

	out, ext := Negotiate(supported, requested,
		[]string{"VK_KHR_fragment_shading_rate"}, "")

	if out.Core[capture.CoreRobustBufferAccess] != 1 {
		t.Error("requested+supported core bit lost")
	}
	e := out.Entry(capture.STypeFragmentShadingRateFeatures)
	if e == nil {
		t.Fatal("fragment shading rate entry unlinked despite surviving bit")
	}
	if e.Bits[0] != 1 || e.Bits[1] != 0 || e.Bits[2] != 0 {
		t.Errorf("mask result: %v", e.Bits)
	}
	if len(ext) != 1 {
		t.Errorf("extension list: %v", ext)
	}
}

// A supported entry the application never requested is first zeroed,
// then unlinked, and its extension name removed from the enabled list.
func TestNegotiateUnrequestedEntryUnlinked(t *testing.T) {
	supported := supportedWithFSR()
	requested := capture.NewFeatures2() // does not mention the extension

	out, ext := Negotiate(supported, requested,
		[]string{"VK_KHR_fragment_shading_rate", "VK_KHR_swapchain"}, "")

	if out.Entry(capture.STypeFragmentShadingRateFeatures) != nil {
		t.Error("all-zero entry still linked")
	}
	if len(ext) != 1 || ext[0] != "VK_KHR_swapchain" {
		t.Errorf("extension list: %v", ext)
	}
}

func TestNegotiateConflictResolution(t *testing.T) {
	supported := supportedWithFSR()
	sri := capture.NewFeatureChainEntry(capture.STypeShadingRateImageFeatures)
	sri.Bits[0] = 1
	fdm := capture.NewFeatureChainEntry(capture.STypeFragmentDensityMapFeatures)
	fdm.Bits[0] = 1
	supported.Chain = append(supported.Chain, sri, fdm)

	requested := supported.Clone() // application asked for everything

	out, ext := Negotiate(supported, requested, []string{
		"VK_KHR_fragment_shading_rate",
		"VK_NV_shading_rate_image",
		"VK_EXT_fragment_density_map",
	}, "")

	if out.Entry(capture.STypeShadingRateImageFeatures) != nil ||
		out.Entry(capture.STypeFragmentDensityMapFeatures) != nil {
		t.Error("conflicting entries survived fragment shading rate")
	}
	if len(ext) != 1 || ext[0] != "VK_KHR_fragment_shading_rate" {
		t.Errorf("extension list: %v", ext)
	}
}

func TestNegotiateDXVKRobustness(t *testing.T) {
	supported := capture.NewFeatures2()
	supported.Core[capture.CoreRobustBufferAccess] = 1
	requested := capture.NewFeatures2()
	requested.Core[capture.CoreRobustBufferAccess] = 1

	out, _ := Negotiate(supported, requested, nil, "DXVK")
	rb := out.Entry(capture.STypeRobustness2Features)
	if rb == nil {
		t.Fatal("DXVK workaround did not synthesize robustness2")
	}
	if rb.Bits[0] != 1 {
		t.Errorf("robustBufferAccess2 should mirror robustBufferAccess: %v", rb.Bits)
	}

	// Without the workaround engine name, nothing is synthesized.
	out, _ = Negotiate(supported, requested, nil, "UnrealEngine")
	if out.Entry(capture.STypeRobustness2Features) != nil {
		t.Error("robustness2 synthesized for unrelated engine")
	}
}

func TestNegotiateVkd3dShadingRate(t *testing.T) {
	supported := capture.NewFeatures2()
	requested := capture.NewFeatures2()

	out, _ := Negotiate(supported, requested, nil, "vkd3d")
	fsr := out.Entry(capture.STypeFragmentShadingRateFeatures)
	if fsr == nil {
		t.Fatal("vkd3d workaround did not synthesize fragment shading rate")
	}
	for i, b := range fsr.Bits {
		if b != 1 {
			t.Errorf("rate bit %d not enabled", i)
		}
	}
	if out.Entry(capture.STypeRobustness2Features) == nil {
		t.Error("vkd3d should also get the robustness2 workaround")
	}
}

func TestNegotiateIsPure(t *testing.T) {
	supported := supportedWithFSR()
	requested := capture.NewFeatures2()
	before := supported.Clone()

	Negotiate(supported, requested, []string{"VK_KHR_fragment_shading_rate"}, "")

	if supported.Core[capture.CoreRobustBufferAccess] != before.Core[capture.CoreRobustBufferAccess] {
		t.Error("supported core mutated")
	}
	e := supported.Entry(capture.STypeFragmentShadingRateFeatures)
	if e == nil || e.Bits[0] != 1 {
		t.Error("supported chain mutated")
	}
}
