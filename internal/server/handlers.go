package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/signature-tools-mcp/internal/detection"
	"github.com/ironsheep/signature-tools-mcp/internal/features"
	"github.com/ironsheep/signature-tools-mcp/internal/imaging"
	"github.com/ironsheep/signature-tools-mcp/internal/logger"
	"github.com/ironsheep/signature-tools-mcp/internal/matcher"
	"github.com/ironsheep/signature-tools-mcp/internal/verifier"
)

// errInvalidArguments marks tool arguments that are missing or malformed.
var errInvalidArguments = errors.New("invalid arguments")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "signature_enroll", "signature_verify").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// ToolErrorData is the data member of a failed tools/call response.
type ToolErrorData struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000
// and ToolErrorData, whose kind is one of the verifier error kinds,
// "unknown_tool" or "internal".
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		kind := toolErrorKind(err)
		s.log.WarnWithFields("tool failed", []logger.Field{
			logger.F("tool", params.Name),
			logger.F("kind", kind),
			logger.Error(err),
		})
		return s.errorResponse(req.ID, -32000, "Tool execution failed", ToolErrorData{Kind: kind, Message: err.Error()})
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

type unknownToolError struct{ name string }

func (e unknownToolError) Error() string { return "unknown tool: " + e.name }

func toolErrorKind(err error) string {
	if k := verifier.Kind(err); k != "" {
		return k
	}
	var unknown unknownToolError
	switch {
	case errors.As(err, &unknown):
		return "unknown_tool"
	case errors.Is(err, errInvalidArguments):
		return verifier.KindInvalidInput
	}
	return "internal"
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Calls the verifier service or the imaging/detection packages
//  4. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Inspection
	case "signature_load":
		return s.handleSignatureLoad(args)
	case "signature_preprocess":
		return s.handleSignaturePreprocess(args)
	case "signature_edges":
		return s.handleSignatureEdges(args)
	case "signature_keypoints":
		return s.handleSignatureKeypoints(args)
	case "signature_strokes":
		return s.handleSignatureStrokes(args)

	// Enrollment and verification
	case "signature_enroll":
		return s.handleSignatureEnroll(args)
	case "signature_verify":
		return s.handleSignatureVerify(args)

	// Template management
	case "template_list":
		return s.handleTemplateList()
	case "template_delete":
		return s.handleTemplateDelete(args)

	default:
		return nil, unknownToolError{name: name}
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
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

// decodeArgs unmarshals tool arguments, treating missing arguments as empty.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	return nil
}

func requireField(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", errInvalidArguments, name)
	}
	return nil
}

// === Inspection Handlers ===

type pathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleSignatureLoad(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requireField("path", a.Path); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.svc.Cache(), a.Path)
}

type signaturePreprocessArgs struct {
	Path  string `json:"path"`
	Stage string `json:"stage"`
}

// StageResult is one preprocessing stage rendered as PNG.
type StageResult struct {
	Path      string                `json:"path"`
	Stage     string                `json:"stage"`
	InkPixels int                   `json:"ink_pixels,omitempty"`
	Image     *imaging.EncodedImage `json:"image"`
}

func (s *Server) handleSignaturePreprocess(args json.RawMessage) (interface{}, error) {
	var a signaturePreprocessArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requireField("path", a.Path); err != nil {
		return nil, err
	}
	if a.Stage == "" {
		a.Stage = "result"
	}
	img, err := s.svc.Cache().Load(a.Path)
	if err != nil {
		return nil, err
	}
	pre := s.svc.Preprocessor()
	stages, err := pre.Stages(img)
	if err != nil {
		return nil, err
	}

	var stage *image.Gray
	switch a.Stage {
	case "gray":
		stage = stages.Gray
	case "sharpened":
		if stages.Sharpened == nil {
			return nil, fmt.Errorf("%w: sharpening is disabled in the configuration", errInvalidArguments)
		}
		stage = stages.Sharpened
	case "blurred":
		stage = stages.Blurred
	case "binary":
		stage = stages.Binary
	case "result":
		stage = stages.Result
	default:
		return nil, fmt.Errorf("%w: unknown stage %q", errInvalidArguments, a.Stage)
	}

	encoded, err := imaging.EncodePNG(stage)
	if err != nil {
		return nil, err
	}
	res := &StageResult{Path: a.Path, Stage: a.Stage, Image: encoded}
	if a.Stage == "binary" || a.Stage == "result" {
		res.InkPixels = countValue(stage, pre.InkValue())
	}
	return res, nil
}

type signatureEdgesArgs struct {
	Path          string `json:"path"`
	ThresholdLow  int    `json:"threshold_low"`
	ThresholdHigh int    `json:"threshold_high"`
}

func (s *Server) handleSignatureEdges(args json.RawMessage) (interface{}, error) {
	var a signatureEdgesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requireField("path", a.Path); err != nil {
		return nil, err
	}
	if a.ThresholdLow == 0 {
		a.ThresholdLow = 50
	}
	if a.ThresholdHigh == 0 {
		a.ThresholdHigh = 150
	}
	if a.ThresholdLow > a.ThresholdHigh {
		return nil, fmt.Errorf("%w: threshold_low %d exceeds threshold_high %d", errInvalidArguments, a.ThresholdLow, a.ThresholdHigh)
	}
	img, err := s.svc.Cache().Load(a.Path)
	if err != nil {
		return nil, err
	}
	edges := imaging.DetectEdges(img, a.ThresholdLow, a.ThresholdHigh)
	encoded, err := imaging.EncodePNG(edges)
	if err != nil {
		return nil, err
	}
	return &StageResult{
		Path:      a.Path,
		Stage:     "edges",
		InkPixels: countValue(edges, 255),
		Image:     encoded,
	}, nil
}

type signatureKeypointsArgs struct {
	Path     string `json:"path"`
	Limit    int    `json:"limit"`
	Annotate bool   `json:"annotate"`
}

// KeypointsResult lists detected keypoints, strongest first.
type KeypointsResult struct {
	Path      string                `json:"path"`
	Count     int                   `json:"count"`
	Dimension int                   `json:"dimension"`
	Keypoints []features.Keypoint   `json:"keypoints"`
	Image     *imaging.EncodedImage `json:"image,omitempty"`
}

func (s *Server) handleSignatureKeypoints(args json.RawMessage) (interface{}, error) {
	var a signatureKeypointsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requireField("path", a.Path); err != nil {
		return nil, err
	}
	ins, err := s.svc.Inspect(a.Path)
	if err != nil {
		return nil, err
	}
	kps := ins.Keypoints
	if kps == nil {
		kps = []features.Keypoint{}
	}
	if a.Limit > 0 && len(kps) > a.Limit {
		kps = kps[:a.Limit]
	}
	res := &KeypointsResult{
		Path:      a.Path,
		Count:     ins.Features.Len(),
		Dimension: ins.Features.Dim(),
		Keypoints: kps,
	}
	if a.Annotate {
		// Numbered circles match the order of the returned list.
		res.Image, err = imaging.EncodePNG(verifier.KeypointOverlay(ins.Stages.Result, kps, true))
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

type signatureStrokesArgs struct {
	Path    string `json:"path"`
	MinArea int    `json:"min_area"`
}

func (s *Server) handleSignatureStrokes(args json.RawMessage) (interface{}, error) {
	var a signatureStrokesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requireField("path", a.Path); err != nil {
		return nil, err
	}
	img, err := s.svc.Cache().Load(a.Path)
	if err != nil {
		return nil, err
	}
	pre := s.svc.Preprocessor()
	bin, err := pre.Preprocess(img)
	if err != nil {
		return nil, err
	}
	return detection.AnalyzeStrokes(bin, detection.StrokeOptions{Ink: pre.InkValue(), MinArea: a.MinArea}), nil
}

// === Enrollment and Verification Handlers ===

type signatureEnrollArgs struct {
	Key   string   `json:"key"`
	Path  string   `json:"path"`
	Paths []string `json:"paths"`
}

func (s *Server) handleSignatureEnroll(args json.RawMessage) (interface{}, error) {
	var a signatureEnrollArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requireField("key", a.Key); err != nil {
		return nil, err
	}
	paths := a.Paths
	if a.Path != "" {
		paths = append([]string{a.Path}, paths...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: path or paths is required", errInvalidArguments)
	}
	return s.svc.EnrollSamples(a.Key, paths...)
}

type signatureVerifyArgs struct {
	Key       string   `json:"key"`
	Path      string   `json:"path"`
	Threshold *float64 `json:"threshold"`
}

// VerifyResult is a decision together with what was compared.
type VerifyResult struct {
	Key  string `json:"key"`
	Path string `json:"path"`
	*matcher.Decision
}

func (s *Server) handleSignatureVerify(args json.RawMessage) (interface{}, error) {
	var a signatureVerifyArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requireField("key", a.Key); err != nil {
		return nil, err
	}
	if err := requireField("path", a.Path); err != nil {
		return nil, err
	}
	threshold := s.svc.Threshold()
	if a.Threshold != nil {
		threshold = *a.Threshold
	}
	decision, err := s.svc.Verify(a.Key, a.Path, threshold)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Key: a.Key, Path: a.Path, Decision: decision}, nil
}

// === Template Management Handlers ===

func (s *Server) handleTemplateList() (interface{}, error) {
	keys, err := s.svc.Templates()
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return map[string]interface{}{
		"count": len(keys),
		"keys":  keys,
	}, nil
}

type templateDeleteArgs struct {
	Key string `json:"key"`
}

func (s *Server) handleTemplateDelete(args json.RawMessage) (interface{}, error) {
	var a templateDeleteArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requireField("key", a.Key); err != nil {
		return nil, err
	}
	if err := s.svc.DeleteTemplate(a.Key); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"deleted": a.Key,
	}, nil
}

func countValue(img *image.Gray, v uint8) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride : (y-b.Min.Y)*img.Stride+b.Dx()]
		for _, p := range row {
			if p == v {
				n++
			}
		}
	}
	return n
}
