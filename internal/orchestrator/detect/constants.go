package detect

// Similar-frame detection constants
const (
	// Negative distance disables the perceptual-hash short-circuit
	SimilarityDisabled = -1

	// Frames are downscaled to this size before hashing
	HashThumbnailSize = 128
)
