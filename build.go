package researchmesh

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/researchmesh/config"
	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/logging"
	"github.com/hupe1980/researchmesh/memory"
	"github.com/hupe1980/researchmesh/model"
	"github.com/hupe1980/researchmesh/model/anthropic"
	"github.com/hupe1980/researchmesh/model/ollama"
	"github.com/hupe1980/researchmesh/model/openai"
	"github.com/hupe1980/researchmesh/search"
	"github.com/hupe1980/researchmesh/session"
	"github.com/hupe1980/researchmesh/session/redis"
	"github.com/hupe1980/researchmesh/tool"
)

// NewFromConfig assembles a ResearchMesh from configuration: the model
// provider, the web search and document tools and the session backend.
// optFns are applied last and may override anything derived from cfg.
func NewFromConfig(cfg *config.Config, optFns ...func(o *Options)) (*ResearchMesh, error) {
	logger := logging.NewLogger(cfg.LoggerConfig())

	m, err := NewModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	if cfg.Model.RateLimit > 0 {
		m = model.WithRateLimit(m, cfg.Model.RateLimit, cfg.Model.Burst)
	}

	tools, err := NewTools(cfg, m, logger)
	if err != nil {
		return nil, err
	}

	sessions, err := NewSessionStore(cfg.Session)
	if err != nil {
		return nil, err
	}

	fns := append([]func(o *Options){func(o *Options) {
		o.Tools = tools
		o.MaxIterations = cfg.Research.MaxIterations
		o.MaxConcurrency = cfg.Research.MaxConcurrency
		o.IsolateFailures = cfg.Research.IsolateFailures
		o.MaxToolCallIterations = cfg.Research.MaxToolCallIterations
		o.MaxParallelTools = cfg.Research.MaxParallelTools
		o.SessionStore = sessions
		o.Logger = logger
	}}, optFns...)

	return New(m, fns...)
}

// NewModel creates the configured provider model.
func NewModel(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}

			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}

			o.Temperature = cfg.Temperature
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Name)
			}

			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}

			o.Temperature = cfg.Temperature
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case config.ProviderOllama:
		m, err := ollama.NewModel(func(o *ollama.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}

			if cfg.BaseURL != "" {
				o.BaseURL = cfg.BaseURL
			}

			o.Temperature = cfg.Temperature
		})
		if err != nil {
			return nil, err
		}

		return m, nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// NewTools builds the researcher tool set: the think tool, web search unless
// disabled and document retrieval when documents are configured.
func NewTools(cfg *config.Config, m model.Model, logger logging.Logger) (*tool.Set, error) {
	logger = logging.OrNoOp(logger)

	set := tool.NewSet(tool.NewThinkTool())

	if cfg.Search.Provider == config.SearchTavily {
		tavily := search.NewTavilyClient(func(o *search.TavilyOptions) {
			o.APIKey = cfg.Search.APIKey
			if cfg.Search.BaseURL != "" {
				o.BaseURL = cfg.Search.BaseURL
			}

			if cfg.Search.Timeout > 0 {
				o.HTTPClient = &http.Client{Timeout: cfg.Search.Timeout}
			}
		})

		svc := search.NewService(tavily, func(o *search.Options) {
			o.MaxResults = cfg.Search.MaxResults
			o.Topic = cfg.Search.Topic
			o.Days = cfg.Search.Days
			o.IncludeRawContent = cfg.Search.Summarize
			o.Logger = logger

			if cfg.Search.Summarize {
				o.Summarizer = search.NewModelSummarizer(m, nil)
			}
		})

		set.Add(tool.NewWebSearchTool(svc))
	}

	if len(cfg.Documents.Paths) > 0 {
		retriever, err := LoadDocuments(cfg.Documents, logger)
		if err != nil {
			return nil, err
		}

		set.Add(tool.NewRetrieveTool(retriever, cfg.Documents.K))
	}

	return set, nil
}

// LoadDocuments indexes every file matching the configured paths (glob
// patterns are expanded).
func LoadDocuments(cfg config.DocumentsConfig, logger logging.Logger) (core.Retriever, error) {
	logger = logging.OrNoOp(logger)

	store := memory.NewInMemoryStore(func(o *memory.Options) {
		o.ChunkSize = cfg.ChunkSize
		o.ChunkOverlap = cfg.ChunkOverlap
	})

	for _, pattern := range cfg.Paths {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("documents.paths: %w", err)
		}

		if len(matches) == 0 {
			return nil, fmt.Errorf("documents.paths: no files match %q", pattern)
		}

		for _, path := range matches {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read document: %w", err)
			}

			n, err := store.AddDocument(filepath.Base(path), string(data))
			if err != nil {
				return nil, err
			}

			logger.Debug("documents.indexed", "source", path, "chunks", n)
		}
	}

	return store, nil
}

// NewSessionStore creates the configured transcript store.
func NewSessionStore(cfg config.SessionConfig) (core.SessionStore, error) {
	switch cfg.Backend {
	case config.SessionMemory, "":
		return session.NewInMemoryStore(), nil
	case config.SessionRedis:
		var opts []redis.Option
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}

		if cfg.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Redis.TTL))
		}

		return redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
