package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/prove/internal/types"
	cfgPkg "github.com/xhad/prove/pkg/config"
	"github.com/xhad/prove/pkg/llm"
	"github.com/xhad/prove/pkg/pipeline"
	"github.com/xhad/prove/pkg/sources"
	"github.com/xhad/prove/pkg/store"
	"github.com/xhad/prove/pkg/throttle"
)

type Config struct {
	BaseURL          string
	DBUrl            string
	Model            string
	EmbedModel       string
	VectorDim        int
	TableName        string
	PageSize         int
	RateLimit        int
	RateWindowMillis int
	ResultsPerSource int
	TimeoutSeconds   int
	MaxTokens        int
	Temperature      float64
	MatchThreshold   float64
	MatchCount       int
	ArxivURL         string
	PubmedSearchURL  string
	PubmedFetchURL   string
}

func main() {
	config, err := parseFlags()
	if err != nil {
		log.Fatal(err)
	}

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() (Config, error) {
	var config Config
	var configPath string

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&config.BaseURL, "ollama-url", os.Getenv("OLLAMA_BASE_URL"), "Ollama server URL")
	flag.StringVar(&config.DBUrl, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&config.Model, "model", "mistral", "LLM model to use")
	flag.StringVar(&config.EmbedModel, "embed-model", "nomic-embed-text:latest", "Embedding model to use")
	flag.IntVar(&config.VectorDim, "vector-dim", 1536, "Vector dimension")
	flag.StringVar(&config.TableName, "table", "studies", "PostgreSQL table name")
	flag.IntVar(&config.PageSize, "page-size", 10, "Results per page")
	flag.IntVar(&config.RateLimit, "rate-limit", 3, "Max outbound calls per window per host")
	flag.IntVar(&config.RateWindowMillis, "rate-window", 1000, "Rate limit window in milliseconds")
	flag.IntVar(&config.ResultsPerSource, "per-source", 5, "Results fetched from each source per page")
	flag.IntVar(&config.TimeoutSeconds, "timeout", 30, "Request timeout in seconds")
	flag.IntVar(&config.MaxTokens, "max-tokens", 1000, "Maximum tokens for LLM response")
	flag.Float64Var(&config.Temperature, "temperature", 0.7, "Set the LLM Temperature")
	flag.Float64Var(&config.MatchThreshold, "match-threshold", 0.7, "Similarity threshold for semantic search")
	flag.IntVar(&config.MatchCount, "match-count", 5, "Max studies pulled by semantic search")
	flag.Parse()

	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	cfg, err := loadFileConfig(configPath)
	if err != nil {
		return Config{}, err
	}

	mergeFileConfig(&config, cfg, setFlags)
	return config, nil
}

func loadFileConfig(path string) (*cfgPkg.Config, error) {
	cfg, err := cfgPkg.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Printf("config: %v", e)
		}
		return nil, fmt.Errorf("invalid configuration (%d problems)", len(errs))
	}
	return cfg, nil
}

// mergeFileConfig fills in values from the config file for every setting the
// user did not pin on the command line. Flags named in setFlags win over the
// file; the source URLs have no flags and always come from the file.
func mergeFileConfig(config *Config, cfg *cfgPkg.Config, setFlags map[string]bool) {
	if !setFlags["ollama-url"] && config.BaseURL == "" {
		config.BaseURL = cfg.LLM.BaseURL
	}
	if !setFlags["db-url"] && config.DBUrl == "" {
		config.DBUrl = cfg.Database.URL
	}
	if !setFlags["model"] {
		config.Model = cfg.LLM.Model
	}
	if !setFlags["embed-model"] {
		config.EmbedModel = cfg.Embedding.Model
	}
	if !setFlags["vector-dim"] {
		config.VectorDim = cfg.Embedding.VectorDim
	}
	if !setFlags["table"] {
		config.TableName = cfg.Database.TableName
	}
	if !setFlags["page-size"] {
		config.PageSize = cfg.Database.PageSize
	}
	if !setFlags["rate-limit"] {
		config.RateLimit = cfg.Sources.RateLimit
	}
	if !setFlags["rate-window"] {
		config.RateWindowMillis = cfg.Sources.RateWindowMillis
	}
	if !setFlags["per-source"] {
		config.ResultsPerSource = cfg.Sources.ResultsPerSource
	}
	if !setFlags["timeout"] {
		config.TimeoutSeconds = cfg.Sources.TimeoutSeconds
	}
	if !setFlags["max-tokens"] {
		config.MaxTokens = cfg.LLM.MaxTokens
	}
	if !setFlags["temperature"] {
		config.Temperature = cfg.LLM.Temperature
	}
	if !setFlags["match-threshold"] {
		config.MatchThreshold = float64(cfg.Search.MatchThreshold)
	}
	if !setFlags["match-count"] {
		config.MatchCount = cfg.Search.MatchCount
	}
	config.ArxivURL = cfg.Sources.ArxivURL
	config.PubmedSearchURL = cfg.Sources.PubmedSearchURL
	config.PubmedFetchURL = cfg.Sources.PubmedFetchURL
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(config Config) error {
	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       config.Model,
		MaxTokens:   config.MaxTokens,
		BaseURL:     config.BaseURL,
		Temperature: config.Temperature,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   config.EmbedModel,
		BaseURL: config.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	studyStore, err := store.NewWithConfig(store.StudyStoreConfig{
		ConnString:      config.DBUrl,
		TableName:       config.TableName,
		VectorDim:       config.VectorDim,
		PageSize:        config.PageSize,
		SearchLimit:     config.MatchCount,
		SearchThreshold: float32(config.MatchThreshold),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize study store: %v", err)
	}
	defer studyStore.Close()

	limiter := throttle.NewWithConfig(throttle.ThrottleConfig{
		Limit:    config.RateLimit,
		Interval: time.Duration(config.RateWindowMillis) * time.Millisecond,
	})
	timeout := time.Duration(config.TimeoutSeconds) * time.Second

	arxiv := sources.NewArxivWithConfig(sources.ArxivConfig{
		BaseURL: config.ArxivURL,
		Timeout: timeout,
		Limiter: limiter,
	})
	pubmed := sources.NewPubMedWithConfig(sources.PubMedConfig{
		SearchURL: config.PubmedSearchURL,
		FetchURL:  config.PubmedFetchURL,
		Timeout:   timeout,
		Limiter:   limiter,
	})

	pipe, err := pipeline.NewWithConfig(pipeline.PipelineConfig{
		Sources:   []types.Source{arxiv, pubmed},
		Embedder:  embedder,
		Store:     studyStore,
		PerSource: config.ResultsPerSource,
		PageSize:  config.PageSize,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %v", err)
	}

	color.Cyan("\nAsk a question and win the argument with studies (type 'exit' to quit)")
	color.Cyan("Prefix with /find to search already stored studies by keyword\n")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if strings.ToLower(input) == "exit" {
			break
		}
		if input == "" {
			continue
		}

		if term, ok := strings.CutPrefix(input, "/find "); ok {
			if err := keywordSearch(pipe, term); err != nil {
				color.Red("Search failed: %v\n", err)
			}
			continue
		}

		if err := answerQuestion(pipe, chatEngine, input); err != nil {
			color.Red("Failed: %v\n", err)
		}
	}

	return nil
}

func keywordSearch(pipe *pipeline.Pipeline, term string) error {
	page, err := pipe.QueryKeyword(context.Background(), term, 0)
	if err != nil {
		return err
	}

	color.Blue("\n%d matching studies (page %d of %d):\n",
		page.TotalResults, page.CurrentPage+1, page.TotalPages)
	for _, study := range page.Studies {
		color.Yellow("- %s (%s, %d)", study.Title, study.Source, study.Year)
		fmt.Printf("  %s\n", study.URL)
	}
	return nil
}

func answerQuestion(pipe *pipeline.Pipeline, chatEngine *llm.ChatEngine, question string) error {
	ctx := context.Background()

	spinner := getSpinner("Extracting search terms...")
	searchTerms, err := chatEngine.ProcessQuestion(question)
	spinner.Finish()
	if err != nil {
		return fmt.Errorf("failed to process question: %v", err)
	}
	color.Blue("\nSearching for: %s", searchTerms)

	spinner = getSpinner("Fetching studies from arXiv and PubMed...")
	page, err := pipe.FetchAndStore(ctx, searchTerms, 0)
	spinner.Finish()
	if err != nil {
		return err
	}
	color.Green("\nFound %d studies (%d total matches)\n", len(page.Studies), page.TotalResults)

	studies := page.Studies
	if len(studies) == 0 {
		return fmt.Errorf("no studies found for %q", searchTerms)
	}

	spinner = getSpinner("Building your argument...")
	answer, err := chatEngine.Analyze(question, studies)
	spinner.Finish()
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", answer)

	cited := llm.MatchCitations(answer, studies)
	if len(cited) > 0 {
		color.Blue("\nReferenced studies:")
		for _, study := range cited {
			color.Yellow("- %s (%s, %d)", study.Title, study.Authors, study.Year)
			fmt.Printf("  %s\n", study.URL)
		}
	}

	return nil
}
