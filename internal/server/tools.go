package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func intProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

// filterProperties are the optional filter parameters accepted by every tool
// that runs the despeckle filter.
func filterProperties() map[string]interface{} {
	return map[string]interface{}{
		"radius": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum window radius in pixels (1-20). Default from server configuration, normally 3",
			"minimum":     1,
			"maximum":     20,
		},
		"type": map[string]interface{}{
			"type":        "integer",
			"description": "Filter type bitmask: 0=median, 1=adaptive, 2=recursive median, 3=recursive adaptive",
			"minimum":     0,
			"maximum":     3,
		},
		"adaptive": map[string]interface{}{
			"type":        "boolean",
			"description": "Shrink the radius in clean areas and grow it back near speckles. Overrides the adaptive bit of type",
		},
		"recursive": map[string]interface{}{
			"type":        "boolean",
			"description": "Feed filtered values back into the window before the next pixel. Stronger smoothing. Overrides the recursive bit of type",
		},
		"black_level": map[string]interface{}{
			"type":        "integer",
			"description": "Samples at or below this count as black noise (0-255). Normally 7",
			"minimum":     0,
			"maximum":     255,
		},
		"white_level": map[string]interface{}{
			"type":        "integer",
			"description": "Samples at or above this count as white noise and are left out of the median (0-255). Normally 248",
			"minimum":     0,
			"maximum":     255,
		},
	}
}

// withProperties merges extra properties into base and returns base.
func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

func ocrProperties() map[string]interface{} {
	return withProperties(map[string]interface{}{
		"language": map[string]interface{}{
			"type":        "string",
			"description": "Tesseract language code (default: eng)",
			"default":     "eng",
		},
		"despeckle": map[string]interface{}{
			"type":        "boolean",
			"description": "Run the despeckle filter before recognition. The filter parameters below apply only when this is true",
			"default":     false,
		},
	}, filterProperties())
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and the number of channels the despeckle filter will process.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Despeckle Operations
		{
			Name:        "image_despeckle",
			Description: "Remove salt-and-pepper noise with an adaptive or recursive median filter. Writes the result to output_path (.png, .jpg or .bmp) or returns it as base64 PNG, together with statistics on how many samples changed. Send a progressToken in _meta to receive progress notifications.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"path": pathProperty(),
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional absolute path to write the filtered image. When omitted the image is returned inline",
					},
				}, filterProperties()),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_despeckle_preview",
			Description: "Despeckle only a rectangular region and return it as base64 PNG. Use this to tune radius and levels before filtering the whole image. The outer radius rows of the region are returned unfiltered.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"path": pathProperty(),
					"x1":   intProperty("Left edge X coordinate (0-based)"),
					"y1":   intProperty("Top edge Y coordinate (0-based)"),
					"x2":   intProperty("Right edge X coordinate (exclusive)"),
					"y2":   intProperty("Bottom edge Y coordinate (exclusive)"),
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor for the returned preview (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				}, filterProperties()),
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "image_compare",
			Description: "Compare two images of the same size sample by sample and report how many samples differ and by how much. Useful to check what a despeckle pass changed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path1": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the first image",
					},
					"path2": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the second image",
					},
				},
				"required": []string{"path1", "path2"},
			},
		},

		// Color Operations
		{
			Name:        "image_sample_color",
			Description: "Get the color at a pixel in hex, RGBA, HSL and gray. Compare gray against black_level and white_level when tuning the filter.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x":    intProperty("X coordinate"),
					"y":    intProperty("Y coordinate"),
				},
				"required": []string{"path", "x", "y"},
			},
		},
		{
			Name:        "image_sample_colors_multi",
			Description: "Sample colors at multiple points in one call.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"points": map[string]interface{}{
						"type":        "array",
						"description": "Points to sample",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x":     map[string]interface{}{"type": "integer"},
								"y":     map[string]interface{}{"type": "integer"},
								"label": map[string]interface{}{"type": "string"},
							},
							"required": []string{"x", "y"},
						},
					},
				},
				"required": []string{"path", "points"},
			},
		},

		// OCR Operations
		{
			Name:        "image_ocr_full",
			Description: "Extract all text from an image using Tesseract OCR, optionally after a despeckle pass. Returns text with word bounding boxes and confidence scores.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"path": pathProperty(),
				}, ocrProperties()),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_ocr_region",
			Description: "Extract text from a rectangular region, optionally after a despeckle pass over that region. Bounding boxes are reported in full-image coordinates.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"path": pathProperty(),
					"x1":   intProperty("Left edge X coordinate"),
					"y1":   intProperty("Top edge Y coordinate"),
					"x2":   intProperty("Right edge X coordinate (exclusive)"),
					"y2":   intProperty("Bottom edge Y coordinate (exclusive)"),
				}, ocrProperties()),
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "image_detect_text_regions",
			Description: "Find text block locations without full OCR, optionally after a despeckle pass.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"path": pathProperty(),
					"min_confidence": map[string]interface{}{
						"type":        "number",
						"description": "Minimum confidence threshold 0-1 (default: 0.5)",
						"default":     0.5,
					},
				}, ocrProperties()),
				"required": []string{"path"},
			},
		},
	}
}
