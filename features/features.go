// Package features reproduces capture-time device feature negotiation:
// a pure pass that masks the driver's supported feature chain against
// the application's request, resolves known conflicts, strips chain
// entries that end up all-zero, and applies per-engine workarounds.
// The pass is deterministic and touches nothing outside its outputs.
package features

import "github.com/gogpu/prewarm/capture"

// Negotiate masks supported against requested and returns the feature
// chain and extension list to use for device creation.
//
// Steps, in order:
//  1. Every boolean of every supported chain entry is ANDed with the
//     same bit of the requested entry of the same type; a type the
//     request omits is zeroed. Core features mask the same way.
//  2. If any fragment-shading-rate bit survives, the shading-rate-image
//     and fragment-density-map bits are cleared: the extensions are
//     mutually exclusive and fragment shading rate wins.
//  3. Chain entries whose booleans are now all zero are unlinked and
//     their extension names removed from the enabled list.
//  4. Engine workarounds: DXVK and vkd3d get a robustness2 entry
//     mirroring robustBufferAccess when the chain lacks one; vkd3d
//     additionally gets a fragment-shading-rate entry with all three
//     rate bits.
func Negotiate(supported, requested *capture.Features2, extensions []string, engineName string) (*capture.Features2, []string) {
	out := supported.Clone()

	// Step 1: supported & requested.
	if requested == nil {
		requested = capture.NewFeatures2()
	}
	for i := range out.Core {
		if i >= len(requested.Core) || requested.Core[i] == 0 {
			out.Core[i] = 0
		}
	}
	for _, e := range out.Chain {
		req := requested.Entry(e.Type)
		for i := range e.Bits {
			if req == nil || i >= len(req.Bits) || req.Bits[i] == 0 {
				e.Bits[i] = 0
			}
		}
	}

	// Step 2: fragment shading rate excludes the older rate mechanisms.
	if fsr := out.Entry(capture.STypeFragmentShadingRateFeatures); fsr != nil && !fsr.AllZero() {
		zeroEntry(out, capture.STypeShadingRateImageFeatures)
		zeroEntry(out, capture.STypeFragmentDensityMapFeatures)
	}

	// Step 3: unlink all-zero entries and drop their extension names.
	kept := out.Chain[:0]
	removed := map[string]bool{}
	for _, e := range out.Chain {
		if !e.AllZero() {
			kept = append(kept, e)
			continue
		}
		if t, ok := capture.FeatureChainTypeBySType(e.Type); ok && t.Extension != "" {
			removed[t.Extension] = true
		}
	}
	out.Chain = kept

	outExt := make([]string, 0, len(extensions))
	for _, name := range extensions {
		if !removed[name] {
			outExt = append(outExt, name)
		}
	}

	// Step 4: engine workarounds.
	switch engineName {
	case "DXVK", "vkd3d":
		if out.Entry(capture.STypeRobustness2Features) == nil {
			e := capture.NewFeatureChainEntry(capture.STypeRobustness2Features)
			e.Bits[0] = out.Core[capture.CoreRobustBufferAccess] // robustBufferAccess2
			out.Chain = append(out.Chain, e)
		}
	}
	if engineName == "vkd3d" {
		if out.Entry(capture.STypeFragmentShadingRateFeatures) == nil {
			e := capture.NewFeatureChainEntry(capture.STypeFragmentShadingRateFeatures)
			for i := range e.Bits {
				e.Bits[i] = 1
			}
			out.Chain = append(out.Chain, e)
		}
	}

	return out, outExt
}

func zeroEntry(f *capture.Features2, sType uint32) {
	if e := f.Entry(sType); e != nil {
		for i := range e.Bits {
			e.Bits[i] = 0
		}
	}
}
