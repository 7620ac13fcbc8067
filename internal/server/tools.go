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
		"description": "Absolute path to the answer sheet image",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Grading
		{
			Name:        "omr_evaluate",
			Description: "Grade an answer sheet image against the stored answer key of its version. Returns section scores, the total, the detected answers and whether the sheet needs manual review.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"version": map[string]interface{}{
						"type":        "string",
						"description": "Answer key version printed on the sheet (e.g. \"A\")",
					},
					"save": map[string]interface{}{
						"type":        "boolean",
						"description": "Store the result. A sheet already stored under the same version is not stored again. Default false",
						"default":     false,
					},
				},
				"required": []string{"path", "version"},
			},
		},

		// Vision stages
		{
			Name:        "omr_rectify",
			Description: "Find the sheet outline in a photograph and return the perspective-corrected sheet as base64-encoded PNG. Use this to check that the sheet was found before grading.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor for the returned image (e.g., 0.5 to halve it). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "omr_locate_bubbles",
			Description: "Locate and classify every answer bubble on a sheet. Returns each bubble's box, question, option and fill ratio together with the assembled answers.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"strategy": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"fixed-grid", "contour"},
						"description": "Bubble location strategy. Defaults to the configured one",
					},
					"overlay": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return the rectified sheet with bubble boxes drawn (green filled, red empty) as base64 PNG. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},

		// Answer keys
		{
			Name:        "omr_parse_answer_key",
			Description: "Parse an answer key from CSV text (cells like \"12. - b\") or YAML and optionally save it under a version.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Answer key contents",
					},
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"csv", "yaml"},
						"description": "Format of text. Default csv",
						"default":     "csv",
					},
					"version": map[string]interface{}{
						"type":        "string",
						"description": "Version the key belongs to. Required for CSV keys when saving",
					},
					"save": map[string]interface{}{
						"type":        "boolean",
						"description": "Store the key so later evaluations of this version use it. Default false",
						"default":     false,
					},
				},
				"required": []string{"text"},
			},
		},

		// Layout
		{
			Name:        "omr_grid_spec",
			Description: "Return the configured sheet layout: sections, question ranges, option counts, columns and the location strategy.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
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
