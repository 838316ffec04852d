package capture

import "errors"

// Parse failure modes. Any of these invalidates the root being parsed;
// none of them is fatal to the replay as a whole.
var (
	// ErrInvalidJSON is returned for malformed or structurally unexpected JSON.
	ErrInvalidJSON = errors.New("capture: invalid JSON payload")

	// ErrInvalidNumber is returned when a numeric field does not fit its type.
	ErrInvalidNumber = errors.New("capture: invalid integer field")

	// ErrInvalidFloat is returned when a float field cannot be decoded.
	ErrInvalidFloat = errors.New("capture: invalid float field")

	// ErrInvalidBase64 is returned when an inline blob fails base64 decoding.
	ErrInvalidBase64 = errors.New("capture: invalid base64 blob")

	// ErrUnknownExtension is returned for a chain entry with an
	// unrecognized sType. Unlike unknown plain fields, these are fatal to
	// the root: an extension record changes creation semantics.
	ErrUnknownExtension = errors.New("capture: unknown extension chain sType")

	// ErrInvalidShaderPayloadEncoding is returned when the varint stream
	// does not exactly cover the declared code region.
	ErrInvalidShaderPayloadEncoding = errors.New("capture: invalid shader payload encoding")

	// ErrInvalidShaderPayload is returned when the shader payload
	// geometry (offsets, sizes) is inconsistent.
	ErrInvalidShaderPayload = errors.New("capture: invalid shader payload")

	// ErrNoShaderCodePayload is returned when a shader module payload has
	// no code stream after the JSON terminator.
	ErrNoShaderCodePayload = errors.New("capture: shader payload has no code stream")

	// ErrNoHandle is returned when a dependency hash is not present in
	// the entry table.
	ErrNoHandle = errors.New("capture: referenced object not in archive")

	// ErrBasePipelinesNotSupported is returned for a non-zero
	// basePipelineHandle; derivative pipelines are not replayed.
	ErrBasePipelinesNotSupported = errors.New("capture: base pipelines not supported")

	// ErrInvalidSTypeForLibraries is returned when a pipeline-library
	// info record carries the wrong sType.
	ErrInvalidSTypeForLibraries = errors.New("capture: invalid sType for library info")
)
