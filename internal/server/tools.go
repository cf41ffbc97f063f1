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
		"description": "Absolute path to the signature image (PNG, JPEG or GIF)",
	}
}

func keyProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Template key identifying the signer (letters, digits, '.', '_' or '-')",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Inspection
		{
			Name:        "signature_load",
			Description: "Load a signature image and return its dimensions, format and whether it is already grayscale.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "signature_preprocess",
			Description: "Run the preprocessing pipeline (grayscale, smoothing, adaptive threshold) and return one stage as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"stage": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"gray", "sharpened", "blurred", "binary", "result"},
						"description": "Pipeline stage to return. Default result (the binarized, optionally cropped image)",
						"default":     "result",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "signature_edges",
			Description: "Detect stroke edges with the Canny algorithm and return the edge map as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"threshold_low": map[string]interface{}{
						"type":        "integer",
						"description": "Lower hysteresis threshold. Default 50",
						"default":     50,
					},
					"threshold_high": map[string]interface{}{
						"type":        "integer",
						"description": "Upper hysteresis threshold. Default 150",
						"default":     150,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "signature_keypoints",
			Description: "Extract keypoints from a preprocessed signature and list their positions, sizes, angles and responses.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Return at most this many keypoints. Default all",
					},
					"annotate": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return the preprocessed image with the listed keypoints circled and numbered, as base64-encoded PNG",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "signature_strokes",
			Description: "Measure connected ink strokes: area, perimeter, polygon vertex count and bounding boxes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"min_area": map[string]interface{}{
						"type":        "integer",
						"description": "Ignore strokes with fewer ink pixels. Default 4",
						"default":     4,
					},
				},
				"required": []string{"path"},
			},
		},

		// Enrollment and verification
		{
			Name:        "signature_enroll",
			Description: "Extract features from one or more reference signatures and store them as the template for a key, replacing any existing template.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"key":  keyProperty(),
					"path": pathProperty(),
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Additional reference images pooled into the same template",
					},
				},
				"required": []string{"key"},
			},
		},
		{
			Name:        "signature_verify",
			Description: "Score a candidate signature against the template stored for a key. Authentic when the mean cosine similarity is strictly greater than the threshold.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"key":  keyProperty(),
					"path": pathProperty(),
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "Decision threshold in [-1, 1]. Default from configuration (0.7)",
					},
				},
				"required": []string{"key", "path"},
			},
		},

		// Template management
		{
			Name:        "template_list",
			Description: "List the keys of all enrolled templates.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "template_delete",
			Description: "Delete the template stored for a key.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"key": keyProperty(),
				},
				"required": []string{"key"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
