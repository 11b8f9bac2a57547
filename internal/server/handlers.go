package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/ironsheep/despeckle-mcp/internal/despeckle"
	"github.com/ironsheep/despeckle-mcp/internal/imaging"
	"github.com/ironsheep/despeckle-mcp/internal/ocr"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_despeckle").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`

	// Meta carries request metadata; a progressToken asks for progress
	// notifications while the tool runs.
	Meta *struct {
		ProgressToken interface{} `json:"progressToken,omitempty"`
	} `json:"_meta,omitempty"`
}

// toolCall is the per-request state handed to tool handlers.
type toolCall struct {
	ctx      context.Context
	progress despeckle.ProgressFunc
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	call := &toolCall{ctx: context.Background()}
	if params.Meta != nil && params.Meta.ProgressToken != nil {
		call.progress = s.progressReporter(params.Meta.ProgressToken)
	}

	result, err := s.executeTool(call, params.Name, params.Arguments)
	if err != nil {
		s.debugf("tool %s failed: %v", params.Name, err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// progressReporter returns a ProgressFunc that sends notifications/progress
// for token, at most once per whole percent.
func (s *Server) progressReporter(token interface{}) despeckle.ProgressFunc {
	last := -1
	return func(fraction float64) {
		pct := int(math.Floor(fraction * 100))
		if pct <= last {
			return
		}
		last = pct
		s.notify("notifications/progress", map[string]interface{}{
			"progressToken": token,
			"progress":      fraction,
			"total":         1,
		})
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(call *toolCall, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Despeckle Operations
	case "image_despeckle":
		return s.handleImageDespeckle(call, args)
	case "image_despeckle_preview":
		return s.handleImageDespecklePreview(call, args)
	case "image_compare":
		return s.handleImageCompare(args)

	// Color Operations
	case "image_sample_color":
		return s.handleImageSampleColor(args)
	case "image_sample_colors_multi":
		return s.handleImageSampleColorsMulti(args)

	// OCR Operations
	case "image_ocr_full":
		return s.handleImageOCRFull(call, args)
	case "image_ocr_region":
		return s.handleImageOCRRegion(call, args)
	case "image_detect_text_regions":
		return s.handleImageDetectTextRegions(call, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func (s *Server) filterOptions(progress despeckle.ProgressFunc) imaging.FilterOptions {
	return imaging.FilterOptions{
		BlockRows: s.cfg.BlockRows,
		MaxPixels: s.cfg.MaxPixels,
		Progress:  progress,
	}
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Despeckle Handlers ===

// filterArgs are the optional filter parameters shared by the despeckle and
// OCR tools. Anything left out falls back to the configured defaults.
type filterArgs struct {
	Radius     *int  `json:"radius,omitempty"`
	Type       *int  `json:"type,omitempty"`
	Adaptive   *bool `json:"adaptive,omitempty"`
	Recursive  *bool `json:"recursive,omitempty"`
	BlackLevel *int  `json:"black_level,omitempty"`
	WhiteLevel *int  `json:"white_level,omitempty"`
}

// parameters overlays the given arguments on defaults. The type bitmask is
// applied first so explicit adaptive/recursive flags win over it.
func (a filterArgs) parameters(defaults despeckle.Parameters) (despeckle.Parameters, error) {
	p := defaults
	if a.Radius != nil {
		p.Radius = *a.Radius
	}
	if a.Type != nil {
		m, err := despeckle.ModeFromInt(*a.Type)
		if err != nil {
			return p, err
		}
		p = p.WithMode(m)
	}
	if a.Adaptive != nil {
		p.Adaptive = *a.Adaptive
	}
	if a.Recursive != nil {
		p.Recursive = *a.Recursive
	}
	if a.BlackLevel != nil {
		p.BlackLevel = *a.BlackLevel
	}
	if a.WhiteLevel != nil {
		p.WhiteLevel = *a.WhiteLevel
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

type imageDespeckleArgs struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
	filterArgs
}

func (s *Server) handleImageDespeckle(call *toolCall, args json.RawMessage) (interface{}, error) {
	var a imageDespeckleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	params, err := a.parameters(s.cfg.Defaults)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	s.debugf("despeckle %s: %s radius %d levels %d..%d", a.Path, params.Mode(), params.Radius, params.BlackLevel, params.WhiteLevel)
	result, err := imaging.Despeckle(call.ctx, img, params, a.OutputPath, s.filterOptions(call.progress))
	if err != nil {
		return nil, err
	}
	if a.OutputPath != "" {
		s.cache.Evict(a.OutputPath)
	}
	return result, nil
}

type imageDespecklePreviewArgs struct {
	Path  string  `json:"path"`
	X1    int     `json:"x1"`
	Y1    int     `json:"y1"`
	X2    int     `json:"x2"`
	Y2    int     `json:"y2"`
	Scale float64 `json:"scale"`
	filterArgs
}

func (s *Server) handleImageDespecklePreview(call *toolCall, args json.RawMessage) (interface{}, error) {
	var a imageDespecklePreviewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	params, err := a.parameters(s.cfg.Defaults)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	region := imaging.Region{X1: a.X1, Y1: a.Y1, X2: a.X2, Y2: a.Y2}
	return imaging.DespecklePreview(call.ctx, img, region, params, a.Scale, s.filterOptions(call.progress))
}

type imageCompareArgs struct {
	Path1 string `json:"path1"`
	Path2 string `json:"path2"`
}

func (s *Server) handleImageCompare(args json.RawMessage) (interface{}, error) {
	var a imageCompareArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img1, err := s.cache.Load(a.Path1)
	if err != nil {
		return nil, err
	}
	img2, err := s.cache.Load(a.Path2)
	if err != nil {
		return nil, err
	}
	return imaging.CompareImages(img1, img2)
}

// === Color Operation Handlers ===

type imageSampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, a.X, a.Y)
}

type imageSampleColorsMultiArgs struct {
	Path   string                 `json:"path"`
	Points []imaging.LabeledPoint `json:"points"`
}

func (s *Server) handleImageSampleColorsMulti(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorsMultiArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColorsMulti(img, a.Points)
}

// === OCR Operation Handlers ===

// ocrArgs selects the language and an optional despeckle pre-pass. The
// filter parameters only apply when Despeckle is true.
type ocrArgs struct {
	Language  string `json:"language"`
	Despeckle bool   `json:"despeckle"`
	filterArgs
}

func (s *Server) ocrOptions(call *toolCall, a ocrArgs) (ocr.Options, error) {
	opts := ocr.Options{Language: a.Language, Filter: s.filterOptions(call.progress)}
	if !a.Despeckle {
		return opts, nil
	}
	params, err := a.parameters(s.cfg.Defaults)
	if err != nil {
		return opts, err
	}
	opts.Despeckle = &params
	return opts, nil
}

type imageOCRFullArgs struct {
	Path string `json:"path"`
	ocrArgs
}

func (s *Server) handleImageOCRFull(call *toolCall, args json.RawMessage) (interface{}, error) {
	var a imageOCRFullArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.ocrOptions(call, a.ocrArgs)
	if err != nil {
		return nil, err
	}
	if opts.Despeckle == nil {
		return ocr.ExtractText(call.ctx, a.Path, opts)
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return ocr.ExtractTextFromImage(call.ctx, img, opts)
}

type imageOCRRegionArgs struct {
	Path string `json:"path"`
	X1   int    `json:"x1"`
	Y1   int    `json:"y1"`
	X2   int    `json:"x2"`
	Y2   int    `json:"y2"`
	ocrArgs
}

func (s *Server) handleImageOCRRegion(call *toolCall, args json.RawMessage) (interface{}, error) {
	var a imageOCRRegionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.ocrOptions(call, a.ocrArgs)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	region := imaging.Region{X1: a.X1, Y1: a.Y1, X2: a.X2, Y2: a.Y2}
	return ocr.ExtractTextFromRegion(call.ctx, img, region, opts)
}

type imageDetectTextRegionsArgs struct {
	Path          string  `json:"path"`
	MinConfidence float64 `json:"min_confidence"`
	ocrArgs
}

func (s *Server) handleImageDetectTextRegions(call *toolCall, args json.RawMessage) (interface{}, error) {
	var a imageDetectTextRegionsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.MinConfidence == 0 {
		a.MinConfidence = 0.5
	}
	opts, err := s.ocrOptions(call, a.ocrArgs)
	if err != nil {
		return nil, err
	}
	return ocr.DetectTextRegions(call.ctx, a.Path, a.MinConfidence, opts)
}
