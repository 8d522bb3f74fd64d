// Package engine wires configuration, providers, tool servers and agents
// together and drives a full scenario run from path to persisted reports.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/mykhaliev/agent-scenarios/agent"
	"github.com/mykhaliev/agent-scenarios/loader"
	"github.com/mykhaliev/agent-scenarios/logger"
	"github.com/mykhaliev/agent-scenarios/model"
	"github.com/mykhaliev/agent-scenarios/report"
	"github.com/mykhaliev/agent-scenarios/runner"
	"github.com/mykhaliev/agent-scenarios/server"
	"github.com/mykhaliev/agent-scenarios/support"
	"github.com/tmc/langchaingo/llms"
)

const (
	DefaultMaxIterations = 10
	DefaultTimeout       = 0 * time.Second
	DefaultOutputDir     = "results"
)

// Options are the resolved CLI inputs for one run.
type Options struct {
	ScenarioPath string
	ConfigPath   string
	OutputDir    string
	AgentName    string
	Parallel     int
	Verbose      bool
}

// Run executes the scenarios at opts.ScenarioPath and persists their
// reports. The returned exit code is the process's only failure signal:
// 0 when every scenario passed, 1 otherwise.
func Run(ctx context.Context, opts Options) int {
	scenarios, err := loader.Load(opts.ScenarioPath)
	if err != nil {
		logger.Logger.Error("Failed to load scenarios", "path", opts.ScenarioPath, "error", err)
		return 1
	}
	if len(scenarios) == 0 {
		logger.Logger.Error("No runnable scenarios at path", "path", opts.ScenarioPath)
		return 1
	}
	logger.Logger.Info("Scenarios loaded", "count", len(scenarios), "path", opts.ScenarioPath)

	run, cfgParallel, cleanup, err := buildRunner(ctx, opts)
	if err != nil {
		logger.Logger.Error("Failed to set up runner", "error", err)
		return 1
	}
	defer cleanup()

	// The -p flag wins; an unset flag falls back to the config setting.
	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = cfgParallel
	}

	reports, summary, err := run.RunAll(ctx, scenarios, parallel)
	if err != nil {
		logger.Logger.Error("Scenario batch aborted", "error", err)
		return 1
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}

	persistFailed := false
	for _, r := range reports {
		if _, err := report.SaveReport(r, outputDir); err != nil {
			logger.Logger.Error("Failed to save report", "scenario", r.ScenarioName, "error", err)
			persistFailed = true
		}
	}
	if _, err := report.SaveSummary(summary, outputDir); err != nil {
		logger.Logger.Error("Failed to save summary", "error", err)
		persistFailed = true
	}
	if _, err := report.SaveMarkdownSummary(reports, summary, outputDir); err != nil {
		logger.Logger.Error("Failed to save markdown summary", "error", err)
		persistFailed = true
	}

	report.PrintConsoleSummary(reports, summary)

	if summary.Failed > 0 || persistFailed {
		return 1
	}
	return 0
}

// buildRunner assembles the agent registry. With no config file the built-in
// demo agents answer locally; with one, LLM agents are built against the
// configured providers and MCP servers.
func buildRunner(ctx context.Context, opts Options) (*runner.Runner, int, func(), error) {
	if opts.ConfigPath == "" {
		logger.Logger.Info("No configuration supplied, using built-in demo agents")
		run := runner.New(support.NewRegistry())
		run.AgentName = opts.AgentName
		return run, 1, func() {}, nil
	}

	cfg, err := model.ParseConfig(opts.ConfigPath)
	if err != nil {
		return nil, 0, nil, err
	}
	if len(cfg.Agents) == 0 {
		return nil, 0, nil, fmt.Errorf("configuration defines no agents")
	}

	templateCtx := buildTemplateContext(cfg.Variables)

	providers, err := InitProviders(ctx, cfg.Providers, templateCtx)
	if err != nil {
		return nil, 0, nil, err
	}

	servers := make(map[string]*server.MCPServer)
	if len(cfg.Servers) > 0 {
		servers, err = InitServers(ctx, cfg.Servers, templateCtx)
		if err != nil {
			return nil, 0, nil, err
		}
	}

	registry, err := initAgents(ctx, cfg, providers, servers)
	if err != nil {
		CleanupServers(servers)
		return nil, 0, nil, err
	}

	run := runner.New(registry)
	run.AgentName = opts.AgentName
	run.Variables = cfg.Variables
	run.TurnTimeout = ParseTimeout(cfg.Settings.TurnTimeout)
	run.ScenarioDelay = ParseTimeout(cfg.Settings.ScenarioDelay)

	parallel := cfg.Settings.Parallel
	if parallel <= 0 {
		parallel = 1
	}

	return run, parallel, func() { CleanupServers(servers) }, nil
}

// ServerFactory creates MCP servers. Tests inject a mock via
// SetServerFactory.
type ServerFactory interface {
	NewMCPServer(ctx context.Context, config model.Server) (*server.MCPServer, error)
}

type DefaultServerFactory struct{}

func (f *DefaultServerFactory) NewMCPServer(ctx context.Context, config model.Server) (*server.MCPServer, error) {
	return server.NewMCPServer(ctx, config)
}

var serverFactory ServerFactory = &DefaultServerFactory{}

func SetServerFactory(factory ServerFactory) {
	serverFactory = factory
}

func InitServers(ctx context.Context, serverConfigs []model.Server, templateCtx map[string]string) (map[string]*server.MCPServer, error) {
	logger.Logger.Info("Initializing servers", "count", len(serverConfigs))
	servers := make(map[string]*server.MCPServer)

	for i, s := range serverConfigs {
		s.Name = model.RenderTemplate(s.Name, templateCtx)
		s.Command = model.RenderTemplate(s.Command, templateCtx)
		s.URL = model.RenderTemplate(s.URL, templateCtx)
		s.ServerDelay = model.RenderTemplate(s.ServerDelay, templateCtx)
		for k := range s.Headers {
			s.Headers[k] = model.RenderTemplate(s.Headers[k], templateCtx)
		}

		if s.Name == "" {
			return nil, fmt.Errorf("server at index %d has empty name", i)
		}
		if _, exists := servers[s.Name]; exists {
			return nil, fmt.Errorf("duplicate server name: %s", s.Name)
		}

		mcpServer, err := serverFactory.NewMCPServer(ctx, s)
		if err != nil {
			CleanupServers(servers)
			return nil, fmt.Errorf("failed to create server '%s': %w", s.Name, err)
		}
		servers[s.Name] = mcpServer
		logger.Logger.Info("Server initialized", "name", s.Name)
	}

	return servers, nil
}

func initAgents(
	ctx context.Context,
	cfg *model.Configuration,
	providers map[string]llms.Model,
	servers map[string]*server.MCPServer,
) (*agent.Registry, error) {
	registry := agent.NewRegistry()

	serverList := make([]*server.MCPServer, 0, len(servers))
	for _, srv := range servers {
		serverList = append(serverList, srv)
	}

	for _, agentCfg := range cfg.Agents {
		if agentCfg.Name == "" {
			return nil, fmt.Errorf("agent with empty name in configuration")
		}

		llmModel, ok := providers[agentCfg.Provider]
		if !ok {
			return nil, fmt.Errorf("agent '%s' references unknown provider '%s'", agentCfg.Name, agentCfg.Provider)
		}

		settings := agentCfg.Settings
		llmAgent := agent.NewLLMAgent(ctx, agentCfg, serverList, llmModel, agent.LLMConfig{
			MaxIterations: GetMaxIterations(firstNonZero(settings.MaxIterations, cfg.Settings.MaxIterations)),
			Verbose:       settings.Verbose || cfg.Settings.Verbose,
			ToolTimeout:   ParseTimeout(firstNonEmpty(settings.ToolTimeout, cfg.Settings.ToolTimeout)),
		})
		registry.Register(llmAgent)
	}

	return registry, nil
}

func CleanupServers(servers map[string]*server.MCPServer) {
	if len(servers) == 0 {
		return
	}

	logger.Logger.Info("Shutting down servers", "count", len(servers))
	for name, srv := range servers {
		if srv == nil {
			continue
		}
		if err := srv.Close(); err != nil {
			logger.Logger.Warn("Error closing server", "name", name, "error", err)
		}
	}
}

func buildTemplateContext(variables map[string]string) map[string]string {
	templateCtx := model.GetAllEnv()
	for k, v := range variables {
		templateCtx[k] = v
	}
	return templateCtx
}

func ParseTimeout(timeoutStr string) time.Duration {
	if timeoutStr == "" {
		return DefaultTimeout
	}

	dur, err := time.ParseDuration(timeoutStr)
	if err != nil {
		logger.Logger.Warn("Invalid timeout, using default",
			"timeout", timeoutStr,
			"default", DefaultTimeout,
			"error", err)
		return DefaultTimeout
	}
	if dur < 0 {
		return 0
	}
	return dur
}

func GetMaxIterations(maxIter int) int {
	if maxIter <= 0 {
		return DefaultMaxIterations
	}
	return maxIter
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
