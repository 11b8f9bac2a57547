package server

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/despeckle-mcp/internal/config"
	"github.com/ironsheep/despeckle-mcp/internal/despeckle"
	"github.com/ironsheep/despeckle-mcp/internal/imaging"
)

// writeImage encodes img as PNG in a temp dir and returns the path.
func writeImage(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "handler-test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// writeSpeckledImage writes a flat gray image with a white speckle in the
// middle and returns its path.
func writeSpeckledImage(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 120
	}
	img.SetGray(width/2, height/2, color.Gray{255})
	return writeImage(t, img)
}

// callTool runs a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	params, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatal(err)
	}
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeResult unmarshals the text content of a successful tool response.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", content)
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), v); err != nil {
		t.Fatalf("failed to decode tool result: %v", err)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New(nil)
	path := writeSpeckledImage(t, 100, 80)

	var info imaging.ImageInfo
	decodeResult(t, callTool(t, s, "image_load", map[string]interface{}{"path": path}), &info)

	if info.Width != 100 || info.Height != 80 || info.Channels != 1 {
		t.Errorf("info: got %+v, want 100x80 with 1 channel", info)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := New(nil)
	path := writeSpeckledImage(t, 200, 150)

	var dims imaging.DimensionsResult
	decodeResult(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": path}), &dims)

	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("dimensions: got %dx%d, want 200x150", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_Despeckle_Inline(t *testing.T) {
	s := New(nil)
	path := writeSpeckledImage(t, 20, 20)

	var result imaging.DespeckleResult
	decodeResult(t, callTool(t, s, "image_despeckle", map[string]interface{}{
		"path":   path,
		"radius": 1,
		"type":   0,
	}), &result)

	if result.FilterType != "median" {
		t.Errorf("FilterType: got %s, want median", result.FilterType)
	}
	if result.Parameters.Radius != 1 || result.Parameters.BlackLevel != 7 || result.Parameters.WhiteLevel != 248 {
		t.Errorf("Parameters: got %+v", result.Parameters)
	}
	if result.Changes.ChangedPixels != 1 {
		t.Errorf("ChangedPixels: got %d, want 1", result.Changes.ChangedPixels)
	}
	if result.ImageBase64 == "" || result.MimeType != "image/png" {
		t.Error("expected an inline PNG")
	}
}

func TestHandleToolsCall_Despeckle_OutputPath(t *testing.T) {
	s := New(nil)
	path := writeSpeckledImage(t, 20, 20)
	out := filepath.Join(t.TempDir(), "out.png")

	// Cache an older image at the output path; the write must replace it.
	stale := image.NewGray(image.Rect(0, 0, 20, 20))
	f, err := os.Create(out)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, stale); err != nil {
		t.Fatal(err)
	}
	f.Close()
	if _, err := s.cache.Load(out); err != nil {
		t.Fatal(err)
	}

	var result imaging.DespeckleResult
	decodeResult(t, callTool(t, s, "image_despeckle", map[string]interface{}{
		"path":        path,
		"output_path": out,
		"recursive":   true,
	}), &result)

	if result.OutputPath != out || result.ImageBase64 != "" {
		t.Errorf("expected file output, got %+v", result)
	}
	if result.FilterType != "recursive-adaptive" {
		t.Errorf("FilterType: got %s, want recursive-adaptive", result.FilterType)
	}

	var cmp imaging.DiffStats
	decodeResult(t, callTool(t, s, "image_compare", map[string]interface{}{"path1": path, "path2": out}), &cmp)
	if cmp.ChangedPixels != 1 {
		t.Errorf("compare: got %d changed pixels, want 1", cmp.ChangedPixels)
	}
}

func TestHandleToolsCall_Despeckle_ConfiguredDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Defaults = despeckle.Parameters{Radius: 2, Recursive: true, BlackLevel: 10, WhiteLevel: 240}
	s := New(cfg)
	path := writeSpeckledImage(t, 20, 20)

	var result imaging.DespeckleResult
	decodeResult(t, callTool(t, s, "image_despeckle", map[string]interface{}{"path": path}), &result)

	if result.Parameters != cfg.Defaults {
		t.Errorf("Parameters: got %+v, want %+v", result.Parameters, cfg.Defaults)
	}
	if result.FilterType != "recursive-median" {
		t.Errorf("FilterType: got %s, want recursive-median", result.FilterType)
	}
}

func TestHandleToolsCall_Despeckle_MaxPixels(t *testing.T) {
	cfg := config.Default()
	cfg.MaxPixels = 100
	s := New(cfg)
	path := writeSpeckledImage(t, 20, 20)

	resp := callTool(t, s, "image_despeckle", map[string]interface{}{"path": path})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Fatalf("expected -32000 for oversize image, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_Despeckle_InvalidParameters(t *testing.T) {
	s := New(nil)
	path := writeSpeckledImage(t, 10, 10)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"radius zero", map[string]interface{}{"radius": 0}, "radius"},
		{"radius too large", map[string]interface{}{"radius": 21}, "radius"},
		{"type out of range", map[string]interface{}{"type": 4}, "filter type"},
		{"negative black", map[string]interface{}{"black_level": -1}, "black level"},
		{"white too large", map[string]interface{}{"white_level": 256}, "white level"},
		{"black above white", map[string]interface{}{"black_level": 200, "white_level": 100}, "black level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["path"] = path
			resp := callTool(t, s, "image_despeckle", tt.args)
			if resp.Error == nil {
				t.Fatal("expected an error")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("code: got %d, want -32000", resp.Error.Code)
			}
			if data, _ := resp.Error.Data.(string); !strings.Contains(data, tt.want) {
				t.Errorf("error %q should name %q", data, tt.want)
			}
		})
	}
}

func TestFilterArgs_Parameters(t *testing.T) {
	intp := func(v int) *int { return &v }
	boolp := func(v bool) *bool { return &v }
	defaults := despeckle.DefaultParameters()

	tests := []struct {
		name string
		args filterArgs
		want despeckle.Parameters
	}{
		{"empty keeps defaults", filterArgs{}, defaults},
		{"type 2", filterArgs{Type: intp(2)}, despeckle.Parameters{Radius: 3, Recursive: true, BlackLevel: 7, WhiteLevel: 248}},
		{"flag overrides type", filterArgs{Type: intp(3), Adaptive: boolp(false)}, despeckle.Parameters{Radius: 3, Recursive: true, BlackLevel: 7, WhiteLevel: 248}},
		{"levels", filterArgs{Radius: intp(5), BlackLevel: intp(0), WhiteLevel: intp(255)}, despeckle.Parameters{Radius: 5, Adaptive: true, BlackLevel: 0, WhiteLevel: 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.args.parameters(defaults)
			if err != nil {
				t.Fatalf("parameters failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}

	if _, err := (filterArgs{Type: intp(-1)}).parameters(defaults); !errors.Is(err, despeckle.ErrInvalidParameter) {
		t.Errorf("negative type: got %v, want ErrInvalidParameter", err)
	}
}

func TestHandleToolsCall_DespecklePreview(t *testing.T) {
	s := New(nil)
	path := writeSpeckledImage(t, 40, 40)

	var result imaging.DespeckleResult
	decodeResult(t, callTool(t, s, "image_despeckle_preview", map[string]interface{}{
		"path": path, "x1": 10, "y1": 10, "x2": 30, "y2": 30, "scale": 2.0, "radius": 1,
	}), &result)

	if result.Width != 40 || result.Height != 40 {
		t.Errorf("preview size: got %dx%d, want 40x40", result.Width, result.Height)
	}
	if result.Region == nil || result.Region.X1 != 10 || result.Region.Y2 != 30 {
		t.Errorf("Region: got %+v", result.Region)
	}
	if result.Changes.ChangedPixels != 1 {
		t.Errorf("ChangedPixels: got %d, want 1", result.Changes.ChangedPixels)
	}

	resp := callTool(t, s, "image_despeckle_preview", map[string]interface{}{
		"path": path, "x1": 30, "y1": 0, "x2": 10, "y2": 10,
	})
	if resp.Error == nil {
		t.Error("preview should fail for an inverted region")
	}
}

func TestHandleToolsCall_Compare_SizeMismatch(t *testing.T) {
	s := New(nil)
	a := writeSpeckledImage(t, 10, 10)
	b := writeSpeckledImage(t, 10, 12)

	resp := callTool(t, s, "image_compare", map[string]interface{}{"path1": a, "path2": b})
	if resp.Error == nil {
		t.Fatal("compare should fail for different sizes")
	}
}

func TestHandleToolsCall_SampleColor(t *testing.T) {
	s := New(nil)
	path := writeSpeckledImage(t, 20, 20)

	var c imaging.ColorResult
	decodeResult(t, callTool(t, s, "image_sample_color", map[string]interface{}{"path": path, "x": 10, "y": 10}), &c)
	if c.Gray != 255 {
		t.Errorf("Gray at speckle: got %d, want 255", c.Gray)
	}
}

func TestHandleToolsCall_SampleColorsMulti(t *testing.T) {
	s := New(nil)
	path := writeSpeckledImage(t, 20, 20)

	var result imaging.MultiColorResult
	decodeResult(t, callTool(t, s, "image_sample_colors_multi", map[string]interface{}{
		"path": path,
		"points": []map[string]interface{}{
			{"x": 0, "y": 0, "label": "paper"},
			{"x": 10, "y": 10, "label": "speck"},
		},
	}), &result)

	if len(result.Samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(result.Samples))
	}
	if result.Samples[0].Label != "paper" || result.Samples[0].Color.Gray != 120 {
		t.Errorf("sample 0: got %+v", result.Samples[0])
	}
	if result.Samples[1].Color.Gray != 255 {
		t.Errorf("sample 1 gray: got %d, want 255", result.Samples[1].Color.Gray)
	}
}

func TestHandleToolsCall_OCR_InvalidDespeckleParameters(t *testing.T) {
	s := New(nil)
	path := writeSpeckledImage(t, 20, 20)

	for _, tool := range []string{"image_ocr_full", "image_ocr_region", "image_detect_text_regions"} {
		t.Run(tool, func(t *testing.T) {
			resp := callTool(t, s, tool, map[string]interface{}{
				"path": path, "x1": 0, "y1": 0, "x2": 10, "y2": 10,
				"despeckle": true, "radius": 99,
			})
			if resp.Error == nil || resp.Error.Code != -32000 {
				t.Fatalf("expected -32000, got %+v", resp.Error)
			}
		})
	}
}

func TestHandleToolsCall_OCR_DespeckleMaxPixels(t *testing.T) {
	cfg := config.Default()
	cfg.MaxPixels = 50
	s := New(cfg)
	path := writeSpeckledImage(t, 20, 20)

	for _, tool := range []string{"image_ocr_full", "image_ocr_region", "image_detect_text_regions"} {
		t.Run(tool, func(t *testing.T) {
			resp := callTool(t, s, tool, map[string]interface{}{
				"path": path, "x1": 0, "y1": 0, "x2": 10, "y2": 10,
				"despeckle": true,
			})
			if resp.Error == nil || resp.Error.Code != -32000 {
				t.Fatalf("expected -32000 for oversize image, got %+v", resp.Error)
			}
			if data, _ := resp.Error.Data.(string); !strings.Contains(data, "exceeds") {
				t.Errorf("error should name the pixel limit, got %v", resp.Error.Data)
			}
		})
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := New(nil)
	for _, tool := range []string{"image_load", "image_dimensions", "image_despeckle", "image_sample_color"} {
		resp := callTool(t, s, tool, map[string]interface{}{"path": "/nonexistent/image.png"})
		if resp.Error == nil {
			t.Errorf("%s should fail for a missing file", tool)
			continue
		}
		if resp.Error.Code != -32000 {
			t.Errorf("%s: code %d, want -32000", tool, resp.Error.Code)
		}
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	resp := callTool(t, New(nil), "nonexistent_tool", map[string]interface{}{})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Fatalf("expected -32000 for unknown tool, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(nil)
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected -32602, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_MissingArguments(t *testing.T) {
	s := New(nil)
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`{"name":"image_load"}`),
	})
	// Arguments default to {}, so the tool runs and fails on the empty path.
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Fatalf("expected -32000, got %+v", resp.Error)
	}
}

func TestExecuteTool_AllToolsDispatch(t *testing.T) {
	s := New(nil)
	call := &toolCall{ctx: context.Background()}
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			_, err := s.executeTool(call, tool.Name, json.RawMessage(`{}`))
			if err != nil && strings.Contains(err.Error(), "unknown tool") {
				t.Errorf("tool %s is defined but not dispatched", tool.Name)
			}
		})
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New(nil)
	call := &toolCall{ctx: context.Background()}
	if _, err := s.executeTool(call, "image_despeckle", json.RawMessage(`{invalid}`)); err == nil {
		t.Error("executeTool should fail for invalid JSON")
	}
}
