package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/life4/genesis/slices"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mykhaliev/agent-scenarios/logger"
	"github.com/mykhaliev/agent-scenarios/model"
	"github.com/mykhaliev/agent-scenarios/server"
	"github.com/mykhaliev/agent-scenarios/state"
	"github.com/tmc/langchaingo/llms"
)

const (
	DefaultMaxIterations = 10
	ResultPreviewLength  = 2000
	HandoffToolPrefix    = "transfer_to_"
)

// LLMConfig tunes how an LLM-backed session runs one turn.
type LLMConfig struct {
	MaxIterations int
	Verbose       bool
	ToolTimeout   time.Duration
}

// LLMAgent drives a chat model against MCP tool servers. One LLMAgent is
// built per configured agent; each scenario gets its own session with a
// private message history, so concurrent scenarios never share state.
type LLMAgent struct {
	name           string
	systemPrompt   string
	provider       string
	llmModel       llms.Model
	config         LLMConfig
	handoffTargets []string

	mcpServers   []*server.MCPServer
	serverTools  map[string][]mcp.Tool
	toolToServer map[string]string
}

// NewLLMAgent binds an agent to its provider model and MCP servers. Tool
// listings are fetched once here; a server that fails to list tools is
// logged and skipped rather than failing the whole agent.
func NewLLMAgent(
	ctx context.Context,
	cfg model.Agent,
	servers []*server.MCPServer,
	llmModel llms.Model,
	config LLMConfig,
) *LLMAgent {
	ag := &LLMAgent{
		name:           cfg.Name,
		systemPrompt:   cfg.SystemPrompt,
		provider:       cfg.Provider,
		llmModel:       llmModel,
		config:         config,
		handoffTargets: cfg.Handoffs,
		mcpServers:     make([]*server.MCPServer, 0),
		serverTools:    make(map[string][]mcp.Tool),
		toolToServer:   make(map[string]string),
	}

	logger.Logger.Info("Creating agent",
		"agent", cfg.Name,
		"provider", cfg.Provider,
		"servers_requested", len(cfg.Servers))

	for _, srv := range cfg.Servers {
		mcpServer, err := slices.Find(servers, func(s *server.MCPServer) bool {
			return s.Name == srv.Name
		})
		if err != nil {
			logger.Logger.Error("Server not found",
				"server", srv.Name,
				"agent", ag.name,
				"error", err)
			continue
		}

		ag.mcpServers = append(ag.mcpServers, mcpServer)

		toolsRes, err := mcpServer.Client.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			logger.Logger.Error("Failed to list tools",
				"server", srv.Name,
				"error", err)
			continue
		}
		if toolsRes == nil {
			logger.Logger.Warn("No tools response from server", "server", srv.Name)
			continue
		}

		allowedTools := slices.Filter(toolsRes.Tools, func(tool mcp.Tool) bool {
			return len(srv.AllowedTools) == 0 || slices.Contains(srv.AllowedTools, tool.Name)
		})
		if len(allowedTools) == 0 {
			logger.Logger.Warn("No allowed tools for server", "server", srv.Name)
		}

		ag.serverTools[srv.Name] = append(ag.serverTools[srv.Name], allowedTools...)

		for _, tool := range allowedTools {
			if existing, exists := ag.toolToServer[tool.Name]; exists {
				logger.Logger.Warn("Tool name collision detected",
					"tool", tool.Name,
					"existing_server", existing,
					"new_server", srv.Name)
				continue
			}
			ag.toolToServer[tool.Name] = srv.Name
		}

		toolNames := slices.Map(allowedTools, func(tool mcp.Tool) string {
			return tool.Name
		})
		logger.Logger.Info("Agent tools configured",
			"agent", ag.name,
			"server", srv.Name,
			"tools", strings.Join(toolNames, ", "))
	}

	logger.Logger.Info("Agent initialization complete",
		"agent", ag.name,
		"servers", len(ag.mcpServers),
		"tools", len(ag.toolToServer))

	return ag
}

func (m *LLMAgent) Name() string { return m.name }

func (m *LLMAgent) NewSession() Session {
	s := &llmSession{agent: m}
	if m.systemPrompt != "" {
		s.msgs = append(s.msgs, llms.MessageContent{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextContent{Text: m.systemPrompt},
			},
		})
	}
	return s
}

// llmSession holds the message history of one scenario run. Not safe for
// concurrent use; each scenario owns exactly one.
type llmSession struct {
	agent *LLMAgent
	mu    sync.Mutex
	msgs  []llms.MessageContent
}

func (s *llmSession) Respond(ctx context.Context, input string, bag *state.Bag) (*Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.agent
	maxIterations := m.config.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	s.msgs = append(s.msgs, llms.MessageContent{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.TextContent{Text: input},
		},
	})

	reply := &Reply{ActiveAgent: m.name}
	tools := m.llmTools()

	iteration := 0
	for iteration < maxIterations {
		iteration++

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled (iteration %d): %w", iteration, ctx.Err())
		}

		resp, err := m.llmModel.GenerateContent(ctx, s.msgs, llms.WithTools(tools))
		if err != nil {
			return nil, fmt.Errorf("LLM generation error (iteration %d): %w", iteration, err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("LLM returned no choices (iteration %d)", iteration)
		}

		assistantText := resp.Choices[0].Content
		if strings.TrimSpace(assistantText) != "" {
			reply.Messages = append(reply.Messages, assistantText)
			s.msgs = append(s.msgs, llms.MessageContent{
				Role: llms.ChatMessageTypeAI,
				Parts: []llms.ContentPart{
					llms.TextContent{Text: assistantText},
				},
			})
		}

		toolCalls := resp.Choices[0].ToolCalls
		if len(toolCalls) == 0 {
			if m.config.Verbose {
				logger.Logger.Debug("Final answer received",
					"agent", m.name,
					"iteration", iteration,
					"reason", resp.Choices[0].StopReason)
			}
			return reply, nil
		}

		for _, suggested := range toolCalls {
			call, toolRes := m.executeToolCall(ctx, suggested, reply)
			reply.ToolCalls = append(reply.ToolCalls, call)

			s.msgs = append(s.msgs, llms.MessageContent{
				Role:  llms.ChatMessageTypeAI,
				Parts: []llms.ContentPart{suggested},
			})
			s.msgs = append(s.msgs, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						Name:       suggested.FunctionCall.Name,
						ToolCallID: suggested.ID,
						Content:    toolRes,
					},
				},
			})
		}
	}

	return nil, fmt.Errorf("reached maximum iterations (%d) without final answer", maxIterations)
}

// executeToolCall runs one suggested tool call. Handoff pseudo-tools are
// resolved locally; everything else goes to the owning MCP server. A failed
// tool never aborts the turn, the error text is fed back to the model.
func (m *LLMAgent) executeToolCall(ctx context.Context, suggested llms.ToolCall, reply *Reply) (model.ToolCall, string) {
	name := suggested.FunctionCall.Name
	start := time.Now()

	var args map[string]any
	if err := json.Unmarshal([]byte(suggested.FunctionCall.Arguments), &args); err != nil {
		args = make(map[string]any)
	}

	call := model.ToolCall{
		Name:      name,
		Arguments: args,
		Timestamp: start,
	}

	if target, ok := m.handoffTarget(name); ok {
		reply.Handoffs = append(reply.Handoffs, target)
		reply.ActiveAgent = target
		call.Result = fmt.Sprintf(`{"assistant": "%s"}`, target)
		call.DurationMs = time.Since(start).Milliseconds()
		logger.Logger.Info("Handoff requested", "agent", m.name, "target", target)
		return call, call.Result
	}

	toolRes, err := m.callTool(ctx, name, suggested.FunctionCall.Arguments)
	call.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		errMsg := fmt.Sprintf("Tool execution error (%s): %v", name, err)
		call.Result = errMsg
		logger.Logger.Error("Tool execution failed", "tool", name, "error", err)
		return call, errMsg
	}

	call.Result = toolRes
	if m.config.Verbose {
		logger.Logger.Debug("Tool execution successful",
			"tool", name,
			"result_preview", truncateString(toolRes, ResultPreviewLength))
	}
	return call, toolRes
}

// handoffTarget resolves "transfer_to_<agent>" pseudo-tool names against the
// agent's configured handoff targets.
func (m *LLMAgent) handoffTarget(toolName string) (string, bool) {
	if !strings.HasPrefix(toolName, HandoffToolPrefix) {
		return "", false
	}
	target := strings.TrimPrefix(toolName, HandoffToolPrefix)
	for _, allowed := range m.handoffTargets {
		if normalizeAgentName(allowed) == target {
			return allowed, true
		}
	}
	return "", false
}

func (m *LLMAgent) callTool(ctx context.Context, toolName, argumentsInJSON string) (string, error) {
	serverName, exists := m.toolToServer[toolName]
	if !exists {
		return "", fmt.Errorf("tool '%s' not found in any registered server", toolName)
	}

	arguments, err := validateAndParseArguments(argumentsInJSON)
	if err != nil {
		return "", fmt.Errorf("failed to parse arguments for tool '%s': %w", toolName, err)
	}
	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	toolServer, err := slices.Find(m.mcpServers, func(srv *server.MCPServer) bool {
		return srv.Name == serverName
	})
	if err != nil {
		return "", fmt.Errorf("MCP server '%s' not found for tool '%s': %w", serverName, toolName, err)
	}

	toolCtx := ctx
	var cancel context.CancelFunc
	if m.config.ToolTimeout > 0 {
		toolCtx, cancel = context.WithTimeout(ctx, m.config.ToolTimeout)
		defer cancel()
	}

	result, err := toolServer.Client.CallTool(toolCtx, mcp.CallToolRequest{
		Request: mcp.Request{
			Method: "tools/call",
		},
		Params: struct {
			Name      string    `json:"name"`
			Arguments any       `json:"arguments,omitempty"`
			Meta      *mcp.Meta `json:"_meta,omitempty"`
		}{
			Name:      toolName,
			Arguments: arguments,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call MCP tool '%s' on server '%s': %w", toolName, serverName, err)
	}

	marshaled, err := sonic.MarshalString(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal MCP tool result: %w", err)
	}
	return marshaled, nil
}

// llmTools flattens the MCP tool schemas into langchaingo tool definitions,
// plus one pseudo-tool per configured handoff target.
func (m *LLMAgent) llmTools() []llms.Tool {
	result := make([]llms.Tool, 0)

	for _, serverTools := range m.serverTools {
		for _, tool := range serverTools {
			params := map[string]interface{}{
				"type":       tool.InputSchema.Type,
				"properties": tool.InputSchema.Properties,
			}
			if len(tool.InputSchema.Required) > 0 {
				params["required"] = tool.InputSchema.Required
			}

			result = append(result, llms.Tool{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        tool.Name,
					Description: tool.Description,
					Parameters:  params,
				},
			})
		}
	}

	for _, target := range m.handoffTargets {
		result = append(result, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        HandoffToolPrefix + normalizeAgentName(target),
				Description: fmt.Sprintf("Transfer the conversation to the %s agent.", target),
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
				},
			},
		})
	}

	return result
}

func normalizeAgentName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

func validateAndParseArguments(argumentsInJSON string) (any, error) {
	if argumentsInJSON == "" || argumentsInJSON == "{}" {
		return nil, nil
	}

	var temp any
	if err := json.Unmarshal([]byte(argumentsInJSON), &temp); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	return json.RawMessage(argumentsInJSON), nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
