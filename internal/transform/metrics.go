package transform

// Metrics is an immutable snapshot of the preview and analysis dimensions.
// Width or height <= 0 means the value is not known yet.
type Metrics struct {
	PreviewWidth  float64 `json:"preview_width"`
	PreviewHeight float64 `json:"preview_height"`
	ImageWidth    float64 `json:"image_width"`
	ImageHeight   float64 `json:"image_height"`
	Density       float64 `json:"density"`
}

// WithPreview returns a copy carrying new preview layout values.
func (m Metrics) WithPreview(width, height, density float64) Metrics {
	m.PreviewWidth = width
	m.PreviewHeight = height
	if density > 0 {
		m.Density = density
	}
	return m
}

// WithImage returns a copy carrying the analyzed image dimensions.
func (m Metrics) WithImage(width, height int) Metrics {
	m.ImageWidth = float64(width)
	m.ImageHeight = float64(height)
	return m
}

// AspectRatio returns previewWidth/previewHeight, or 0 when either is unknown.
func (m Metrics) AspectRatio() float64 {
	if m.PreviewHeight <= 0 || m.PreviewWidth <= 0 {
		return 0
	}
	return m.PreviewWidth / m.PreviewHeight
}
