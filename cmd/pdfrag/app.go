package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"cloud.google.com/go/storage"
	anthropicOption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/knights-analytics/hugot"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	openaiOption "github.com/openai/openai-go/option"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/RichardKnop/pdfrag"
	anthropicAdapter "github.com/RichardKnop/pdfrag/adapter/anthropic"
	chromemAdapter "github.com/RichardKnop/pdfrag/adapter/chromem"
	"github.com/RichardKnop/pdfrag/adapter/filestorage"
	"github.com/RichardKnop/pdfrag/adapter/gcs"
	"github.com/RichardKnop/pdfrag/adapter/googlegenai"
	hugotAdapter "github.com/RichardKnop/pdfrag/adapter/hugot"
	"github.com/RichardKnop/pdfrag/adapter/layout"
	openaiAdapter "github.com/RichardKnop/pdfrag/adapter/openai"
	"github.com/RichardKnop/pdfrag/adapter/pdf"
	qdrantAdapter "github.com/RichardKnop/pdfrag/adapter/qdrant"
	redisAdapter "github.com/RichardKnop/pdfrag/adapter/redis"
	"github.com/RichardKnop/pdfrag/adapter/rest"
	"github.com/RichardKnop/pdfrag/adapter/splitter"
	"github.com/RichardKnop/pdfrag/adapter/store"
	weaviateAdapter "github.com/RichardKnop/pdfrag/adapter/weaviate"
)

type ragServer interface {
	rest.RagServer
	ProcessJobs(ctx context.Context) func()
}

type app struct {
	ragServer ragServer
	queue     *redisAdapter.Queue
	logger    *zap.Logger
	closers   []func() error

	rdb         *redis.Client
	genaiClient *genai.Client
}

// newApp wires every adapter selected in config into a ragServer.
func newApp(ctx context.Context, logger *zap.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	db, err := a.openDB()
	if err != nil {
		return nil, err
	}

	extractor, err := a.newExtractor(ctx)
	if err != nil {
		return nil, err
	}

	aSplitter, err := a.newSplitter()
	if err != nil {
		return nil, err
	}

	embedder, err := a.newEmbedder(ctx)
	if err != nil {
		return nil, err
	}

	vectorStore, err := a.newVectorStore()
	if err != nil {
		return nil, err
	}

	chatModel, err := a.newChatModel(ctx)
	if err != nil {
		return nil, err
	}

	fileStorage, err := a.newStorage(ctx)
	if err != nil {
		return nil, err
	}

	a.queue = redisAdapter.NewQueue(
		a.redisClient(),
		redisAdapter.WithQueueKey(viper.GetString("queue.key")),
		redisAdapter.WithQueueLogger(logger),
	)

	a.ragServer = pdfrag.New(
		extractor,
		aSplitter,
		embedder,
		vectorStore,
		chatModel,
		a.queue,
		fileStorage,
		store.New(db, store.WithDialect(store.Dialect(viper.GetString("db.driver"))), store.WithLogger(logger)),
		pdfrag.WithLogger(logger),
		pdfrag.WithTopK(viper.GetInt("retrieval.top_k")),
		pdfrag.WithConcurrency(viper.GetInt("worker.concurrency")),
		pdfrag.WithMaxAttempts(viper.GetInt("queue.max_attempts")),
		pdfrag.WithJobTimeout(viper.GetDuration("worker.job_timeout")),
	)

	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Sugar().With("error", err).Warn("error closing resource")
		}
	}
	a.closers = nil
}

func (a *app) openDB() (*sql.DB, error) {
	var (
		driver = viper.GetString("db.driver")
		dsn    string
	)
	switch store.Dialect(driver) {
	case store.DialectSQLite:
		dbConnOpts := url.Values{}
		dbConnOpts.Set("_fk", "true")
		dbConnOpts.Set("_journal", "WAL")
		dbConnOpts.Set("_timeout", "5000")
		dsn = fmt.Sprintf("file:%s?%s", viper.GetString("db.name"), dbConnOpts.Encode())
	case store.DialectPostgres:
		dsn = viper.GetString("db.dsn")
	default:
		return nil, fmt.Errorf("unknown db driver: %s", driver)
	}

	a.logger.Sugar().With("driver", driver).Info("connecting to db")

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := store.Migrate(db, store.Dialect(driver)); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}

	return db, nil
}

func (a *app) newExtractor(ctx context.Context) (pdfrag.Extractor, error) {
	switch name := viper.GetString("extractor.name"); name {
	case "pdf":
		return pdf.New(
			pdf.WithMaxPages(viper.GetInt("extractor.max_pages")),
			pdf.WithLogger(a.logger),
		), nil
	case "layout":
		options := []layout.Option{layout.WithLogger(a.logger)}
		if baseURL := viper.GetString("extractor.base_url"); baseURL != "" {
			options = append(options, layout.WithBaseURL(baseURL))
		}
		return layout.New(options...), nil
	case "google-genai":
		client, err := a.genai(ctx)
		if err != nil {
			return nil, err
		}
		options := []googlegenai.Option{googlegenai.WithLogger(a.logger)}
		if model := viper.GetString("extractor.model"); model != "" {
			options = append(options, googlegenai.WithGenerativeModel(model))
		}
		return googlegenai.New(client, options...), nil
	default:
		return nil, fmt.Errorf("unknown extractor: %s", name)
	}
}

func (a *app) newSplitter() (pdfrag.Splitter, error) {
	var (
		size    = viper.GetInt("splitter.chunk_size")
		overlap = viper.GetInt("splitter.chunk_overlap")
	)
	switch name := viper.GetString("splitter.name"); name {
	case "window":
		return splitter.NewWindow(size, overlap)
	case "sentences":
		return splitter.NewSentences(size, overlap)
	default:
		return nil, fmt.Errorf("unknown splitter: %s", name)
	}
}

func (a *app) newEmbedder(ctx context.Context) (pdfrag.Embedder, error) {
	model := viper.GetString("embedder.model")

	switch name := viper.GetString("embedder.name"); name {
	case "hugot":
		session, err := hugot.NewGoSession()
		if err != nil {
			return nil, fmt.Errorf("hugot session: %w", err)
		}
		a.closers = append(a.closers, session.Destroy)

		options := []hugotAdapter.Option{hugotAdapter.WithLogger(a.logger)}
		if model != "" {
			options = append(options, hugotAdapter.WithModel(model))
		}
		if dir := viper.GetString("embedder.models_dir"); dir != "" {
			options = append(options, hugotAdapter.WithModelsDir(dir))
		}
		embedder, err := hugotAdapter.New(session, options...)
		if err != nil {
			return nil, fmt.Errorf("hugot adapter: %w", err)
		}
		return embedder, nil
	case "google-genai":
		client, err := a.genai(ctx)
		if err != nil {
			return nil, err
		}
		options := []googlegenai.Option{googlegenai.WithLogger(a.logger)}
		if model != "" {
			options = append(options, googlegenai.WithEmbeddingModel(model))
		}
		return googlegenai.New(client, options...), nil
	case "openai":
		options := []openaiAdapter.Option{openaiAdapter.WithLogger(a.logger)}
		if model != "" {
			options = append(options, openaiAdapter.WithEmbeddingModel(model))
		}
		return openaiAdapter.New(
			openaiRequestOptions(viper.GetString("embedder.base_url"), viper.GetString("embedder.api_key")),
			options...,
		), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", name)
	}
}

func (a *app) newVectorStore() (pdfrag.VectorStore, error) {
	collection := viper.GetString("vectorstore.collection")

	switch name := viper.GetString("vectorstore.name"); name {
	case "qdrant":
		client, err := qdrant.NewClient(&qdrant.Config{
			Host:   viper.GetString("qdrant.host"),
			Port:   viper.GetInt("qdrant.port"),
			APIKey: viper.GetString("qdrant.api_key"),
			UseTLS: viper.GetBool("qdrant.use_tls"),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant client: %w", err)
		}
		a.closers = append(a.closers, client.Close)

		options := []qdrantAdapter.Option{qdrantAdapter.WithLogger(a.logger)}
		if collection != "" {
			options = append(options, qdrantAdapter.WithCollectionName(collection))
		}
		return qdrantAdapter.New(client, options...), nil
	case "redis":
		options := []redisAdapter.Option{redisAdapter.WithLogger(a.logger)}
		if collection != "" {
			options = append(options,
				redisAdapter.WithIndexName(collection),
				redisAdapter.WithIndexPrefix(collection+":"),
			)
		}
		return redisAdapter.New(a.redisClient(), options...), nil
	case "weaviate":
		client, err := weaviate.NewClient(weaviate.Config{
			Host:   viper.GetString("weaviate.host"),
			Scheme: viper.GetString("weaviate.scheme"),
		})
		if err != nil {
			return nil, fmt.Errorf("weaviate client: %w", err)
		}
		options := []weaviateAdapter.Option{weaviateAdapter.WithLogger(a.logger)}
		switch className := viper.GetString("weaviate.class"); {
		case className != "":
			options = append(options, weaviateAdapter.WithClassName(className))
		case collection != "":
			options = append(options, weaviateAdapter.WithClassName(weaviateAdapter.ClassNameFor(collection)))
		}
		return weaviateAdapter.New(client, options...), nil
	case "chromem":
		options := []chromemAdapter.Option{chromemAdapter.WithLogger(a.logger)}
		if collection != "" {
			options = append(options, chromemAdapter.WithCollectionName(collection))
		}
		vectorStore, err := chromemAdapter.New(viper.GetString("chromem.dir"), options...)
		if err != nil {
			return nil, fmt.Errorf("chromem adapter: %w", err)
		}
		return vectorStore, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", name)
	}
}

func (a *app) newChatModel(ctx context.Context) (pdfrag.ChatModel, error) {
	model := viper.GetString("chat.model")

	switch name := viper.GetString("chat.name"); name {
	case "openai":
		options := []openaiAdapter.Option{openaiAdapter.WithLogger(a.logger)}
		if model != "" {
			options = append(options, openaiAdapter.WithChatModel(model))
		}
		return openaiAdapter.New(
			openaiRequestOptions(viper.GetString("chat.base_url"), viper.GetString("chat.api_key")),
			options...,
		), nil
	case "google-genai":
		client, err := a.genai(ctx)
		if err != nil {
			return nil, err
		}
		options := []googlegenai.Option{googlegenai.WithLogger(a.logger)}
		if model != "" {
			options = append(options, googlegenai.WithGenerativeModel(model))
		}
		return googlegenai.New(client, options...), nil
	case "anthropic":
		var requestOptions []anthropicOption.RequestOption
		if baseURL := viper.GetString("chat.base_url"); baseURL != "" {
			requestOptions = append(requestOptions, anthropicOption.WithBaseURL(baseURL))
		}
		if apiKey := viper.GetString("chat.api_key"); apiKey != "" {
			requestOptions = append(requestOptions, anthropicOption.WithAPIKey(apiKey))
		}
		options := []anthropicAdapter.Option{anthropicAdapter.WithLogger(a.logger)}
		if model != "" {
			options = append(options, anthropicAdapter.WithModel(model))
		}
		return anthropicAdapter.New(requestOptions, options...), nil
	default:
		return nil, fmt.Errorf("unknown chat model: %s", name)
	}
}

func (a *app) newStorage(ctx context.Context) (pdfrag.FileStorage, error) {
	switch name := viper.GetString("storage.name"); name {
	case "local":
		fileStorage, err := filestorage.New(
			filestorage.WithDir(viper.GetString("storage.dir")),
			filestorage.WithLogger(a.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("filestorage adapter: %w", err)
		}
		return fileStorage, nil
	case "gcs":
		// Credentials come from the environment (GOOGLE_APPLICATION_CREDENTIALS).
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage client: %w", err)
		}
		a.closers = append(a.closers, client.Close)

		return gcs.New(
			client,
			viper.GetString("storage.bucket"),
			gcs.WithPrefix(viper.GetString("storage.prefix")),
			gcs.WithLogger(a.logger),
		), nil
	default:
		return nil, fmt.Errorf("unknown storage: %s", name)
	}
}

// redisClient is shared by the job queue and the redis vector store.
func (a *app) redisClient() *redis.Client {
	if a.rdb == nil {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
			Protocol: viper.GetInt("redis.protocol"),
		})
		a.closers = append(a.closers, a.rdb.Close)
	}
	return a.rdb
}

// genai is shared by the embedder and the chat model. Without an API key in
// config the client reads GEMINI_API_KEY from the environment.
func (a *app) genai(ctx context.Context) (*genai.Client, error) {
	if a.genaiClient != nil {
		return a.genaiClient, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  viper.GetString("genai.api_key"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	a.genaiClient = client
	return client, nil
}

func openaiRequestOptions(baseURL, apiKey string) []openaiOption.RequestOption {
	var requestOptions []openaiOption.RequestOption
	if baseURL != "" {
		requestOptions = append(requestOptions, openaiOption.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		requestOptions = append(requestOptions, openaiOption.WithAPIKey(apiKey))
	}
	return requestOptions
}
