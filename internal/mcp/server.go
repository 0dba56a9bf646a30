/*
Package mcp implements the MCP server that exposes recommendation tools.

The server uses stdio transport and exposes 4 tools:
  - recommend_tools: Rank candidate tools for a user message and context
  - explain_recommendation: Break down why a tool scores the way it does
  - record_feedback: Feed post-interaction feedback into the models
  - get_analytics: Aggregate recommendation and feedback statistics
*/
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/agenthub/tool-recommender/internal/insight"
	"github.com/agenthub/tool-recommender/internal/recommend"
	"github.com/agenthub/tool-recommender/internal/version"
)

// Server exposes the recommendation engine over MCP stdio transport.
type Server struct {
	engine *recommend.Engine
	logger *zap.Logger
}

// NewServer creates an MCP server around a recommendation engine.
func NewServer(engine *recommend.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine: engine,
		logger: logger,
	}
}

// Run starts the MCP server using stdio transport.
// This blocks until stdin is closed.
func (s *Server) Run() error {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		line := scanner.Bytes()

		response, err := s.handleRequest(line)
		if err != nil {
			s.sendError(err)
			continue
		}

		if response != nil {
			s.sendResponse(response)
		}
	}

	return scanner.Err()
}

// MCPRequest represents an incoming MCP JSON-RPC request.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing MCP JSON-RPC response.
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents an MCP error.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// handleRequest processes an incoming MCP request.
func (s *Server) handleRequest(data []byte) (*MCPResponse, error) {
	var req MCPRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid JSON-RPC request: %w", err)
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(&req)
	case "tools/list":
		return s.handleToolsList(&req)
	case "tools/call":
		return s.handleToolsCall(&req)
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &MCPError{Code: -32601, Message: "Method not found"},
		}, nil
	}
}

// handleInitialize handles the MCP initialize request.
func (s *Server) handleInitialize(req *MCPRequest) (*MCPResponse, error) {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "tool-recommender",
				"version": version.Version,
			},
		},
	}, nil
}

// handleToolsList returns the recommendation tool definitions.
func (s *Server) handleToolsList(req *MCPRequest) (*MCPResponse, error) {
	tools := []map[string]interface{}{
		{
			"name": "recommend_tools",
			"description": `Rank candidate tools for the current conversation turn.

WHEN TO USE: Before choosing which tool to invoke for a user request.

Returns: An ordered list of tool suggestions, each with a confidence
score, the per-algorithm score breakdown, and a human-readable
justification.`,
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"message": map[string]interface{}{
						"type":        "string",
						"description": "The user's current message",
					},
					"userId": map[string]interface{}{
						"type":        "string",
						"description": "Stable identifier of the requesting user",
					},
					"maxResults": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of suggestions (default 5)",
					},
					"usageContext": map[string]interface{}{
						"type":        "string",
						"description": "Optional free text narrowing the candidate tools",
					},
				},
				"required": []string{"message", "userId"},
			},
		},
		{
			"name": "explain_recommendation",
			"description": `Explain why a specific tool scores the way it does for a request.

WHEN TO USE: When the caller needs the score breakdown behind a
suggestion, e.g. for auditing or debugging rankings.`,
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"toolId": map[string]interface{}{
						"type":        "string",
						"description": "Tool to explain",
					},
					"message": map[string]interface{}{
						"type":        "string",
						"description": "The user message that prompted the recommendation",
					},
					"userId": map[string]interface{}{
						"type":        "string",
						"description": "Stable identifier of the requesting user",
					},
				},
				"required": []string{"toolId", "message", "userId"},
			},
		},
		{
			"name": "record_feedback",
			"description": `Report what happened after a recommendation was shown.

WHEN TO USE: After the user invoked (or ignored) a suggested tool.
Feedback trains the collaborative, content and behavioral models.`,
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"userId": map[string]interface{}{
						"type":        "string",
						"description": "Stable identifier of the user",
					},
					"toolId": map[string]interface{}{
						"type":        "string",
						"description": "Tool the feedback concerns",
					},
					"used": map[string]interface{}{
						"type":        "boolean",
						"description": "Whether the tool was invoked",
					},
					"helpful": map[string]interface{}{
						"type":        "boolean",
						"description": "Whether the suggestion was helpful",
					},
					"rating": map[string]interface{}{
						"type":        "integer",
						"description": "Optional 1-5 rating",
					},
				},
				"required": []string{"userId", "toolId"},
			},
		},
		{
			"name": "get_analytics",
			"description": `Get aggregate recommendation statistics.

Returns: Request counts, cache hit rate, feedback usage and helpfulness
rates, and the most recommended tools.`,
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"sinceDays": map[string]interface{}{
						"type":        "integer",
						"description": "Aggregation window in days (default 30)",
					},
				},
			},
		},
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": tools,
		},
	}, nil
}

// handleToolsCall handles tool execution requests.
func (s *Server) handleToolsCall(req *MCPRequest) (*MCPResponse, error) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	var result interface{}
	var err error

	switch params.Name {
	case "recommend_tools":
		result, err = s.execRecommend(params.Arguments)
	case "explain_recommendation":
		result, err = s.execExplain(params.Arguments)
	case "record_feedback":
		result, err = s.execRecordFeedback(params.Arguments)
	case "get_analytics":
		result, err = s.execAnalytics(params.Arguments)
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &MCPError{Code: -32602, Message: fmt.Sprintf("Unknown tool: %s", params.Name)},
		}, nil
	}

	if err != nil {
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &MCPError{Code: -32000, Message: err.Error()},
		}, nil
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": string(text),
				},
			},
		},
	}, nil
}

// recommendArgs are the arguments accepted by recommend_tools.
type recommendArgs struct {
	Message      string                  `json:"message"`
	UserID       string                  `json:"userId"`
	MaxResults   int                     `json:"maxResults,omitempty"`
	UsageContext string                  `json:"usageContext,omitempty"`
	History      []insight.Message       `json:"history,omitempty"`
	Workflow     *insight.WorkflowState  `json:"workflow,omitempty"`
	Context      *insight.UserContext    `json:"context,omitempty"`
	Weights      *recommend.Weights      `json:"weights,omitempty"`
}

// execRecommend runs the ranking pipeline for a request.
func (s *Server) execRecommend(raw json.RawMessage) (interface{}, error) {
	var args recommendArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid recommend_tools arguments: %w", err)
	}
	if args.Message == "" || args.UserID == "" {
		return nil, fmt.Errorf("message and userId are required")
	}

	req := recommend.Request{
		Message:      args.Message,
		History:      args.History,
		Workflow:     args.Workflow,
		Weights:      args.Weights,
		UsageContext: args.UsageContext,
		MaxResults:   args.MaxResults,
	}
	if args.Context != nil {
		req.Context = *args.Context
	}
	req.Context.UserID = args.UserID

	result := s.engine.GetRecommendations(context.Background(), req)
	return result, nil
}

// execExplain breaks down the score composition for one tool.
func (s *Server) execExplain(raw json.RawMessage) (interface{}, error) {
	var args struct {
		ToolID  string `json:"toolId"`
		Message string `json:"message"`
		UserID  string `json:"userId"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid explain_recommendation arguments: %w", err)
	}
	if args.ToolID == "" || args.Message == "" || args.UserID == "" {
		return nil, fmt.Errorf("toolId, message and userId are required")
	}

	req := recommend.Request{Message: args.Message}
	req.Context.UserID = args.UserID

	return s.engine.ExplainRecommendation(context.Background(), args.ToolID, req)
}

// execRecordFeedback feeds feedback into the learning models.
func (s *Server) execRecordFeedback(raw json.RawMessage) (interface{}, error) {
	var args struct {
		UserID  string `json:"userId"`
		ToolID  string `json:"toolId"`
		Type    string `json:"type,omitempty"`
		Used    bool   `json:"used,omitempty"`
		Helpful bool   `json:"helpful,omitempty"`
		Rating  int    `json:"rating,omitempty"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid record_feedback arguments: %w", err)
	}
	if args.UserID == "" || args.ToolID == "" {
		return nil, fmt.Errorf("userId and toolId are required")
	}

	feedbackType := args.Type
	if feedbackType == "" {
		feedbackType = "explicit"
	}

	s.engine.RecordFeedback(args.UserID, recommend.Feedback{
		ToolID:  args.ToolID,
		Type:    feedbackType,
		Used:    args.Used,
		Helpful: args.Helpful,
		Rating:  args.Rating,
	})

	return map[string]string{"status": "recorded"}, nil
}

// execAnalytics aggregates recommendation statistics.
func (s *Server) execAnalytics(raw json.RawMessage) (interface{}, error) {
	var args struct {
		SinceDays int `json:"sinceDays,omitempty"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("invalid get_analytics arguments: %w", err)
		}
	}
	if args.SinceDays <= 0 {
		args.SinceDays = 30
	}

	since := time.Now().Add(-time.Duration(args.SinceDays) * 24 * time.Hour)
	return s.engine.GetAnalytics(since)
}

// sendResponse writes a JSON-RPC response to stdout.
func (s *Server) sendResponse(resp *MCPResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to marshal response", zap.Error(err))
		return
	}
	fmt.Println(string(data))
}

// sendError writes an error response to stdout.
func (s *Server) sendError(err error) {
	resp := &MCPResponse{
		JSONRPC: "2.0",
		ID:      nil,
		Error:   &MCPError{Code: -32700, Message: err.Error()},
	}
	s.sendResponse(resp)
}
