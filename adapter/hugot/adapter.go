package hugot

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelineBackends"
	"github.com/knights-analytics/hugot/pipelines"
	"go.uber.org/zap"
)

// Adapter embeds chunks with a local ONNX sentence transformer.
type Adapter struct {
	session   *hugot.Session
	pipeline  *pipelines.FeatureExtractionPipeline
	model     string
	onnxFile  string
	modelsDir string
	batchSize int
	logger    *zap.Logger
}

type Option func(*Adapter)

func WithModel(name string) Option {
	return func(a *Adapter) {
		a.model = name
	}
}

func WithOnnxFilePath(path string) Option {
	return func(a *Adapter) {
		a.onnxFile = path
	}
}

func WithModelsDir(path string) Option {
	return func(a *Adapter) {
		a.modelsDir = path
	}
}

// WithBatchSize limits how many chunks go through the pipeline at once.
func WithBatchSize(size int) Option {
	return func(a *Adapter) {
		a.batchSize = size
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

const (
	DefaultModel      = "sentence-transformers/all-MiniLM-L6-v2"
	defaultModelsDir  = "./models"
	defaultOnnxFile   = "onnx/model.onnx"
	defaultBatchSize  = 32
	embeddingPipeline = "embeddingPipeline"
)

// New downloads the model into the models dir unless it is already there and
// builds the feature extraction pipeline.
func New(session *hugot.Session, options ...Option) (*Adapter, error) {
	a := newAdapter(session, options...)

	a.logger.Sugar().With(
		"model", a.model,
		"onnx file", a.onnxFile,
		"models dir", a.modelsDir,
	).Info("init hugot adapter")

	if err := a.init(); err != nil {
		return nil, err
	}

	return a, nil
}

func newAdapter(session *hugot.Session, options ...Option) *Adapter {
	a := &Adapter{
		session:   session,
		model:     DefaultModel,
		onnxFile:  defaultOnnxFile,
		modelsDir: defaultModelsDir,
		batchSize: defaultBatchSize,
		logger:    zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	if a.batchSize < 1 {
		a.batchSize = defaultBatchSize
	}

	return a
}

const adapterName = "hugot"

func (a *Adapter) Name() string {
	return adapterName
}

func (a *Adapter) init() error {
	if a.model == "" {
		return fmt.Errorf("embedding model must be specified")
	}

	modelPath, err := checkModelExists(a.modelsDir, a.model)
	if err != nil {
		return fmt.Errorf("failed to check embedding model: %w", err)
	}

	if modelPath == "" {
		a.logger.Sugar().With("model", a.model).Info("start downloading embedding model")

		downloadOptions := hugot.NewDownloadOptions()
		downloadOptions.OnnxFilePath = a.onnxFile
		modelPath, err = hugot.DownloadModel(a.model, a.modelsDir, downloadOptions)
		if err != nil {
			return fmt.Errorf("failed to download embedding model: %w", err)
		}

		a.logger.Sugar().With("model", a.model).Info("downloaded embedding model")
	} else {
		a.logger.Sugar().With("path", modelPath).Info("embedding model already exists, skipping download")
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      embeddingPipeline,
		Options: []pipelineBackends.PipelineOption[*pipelines.FeatureExtractionPipeline]{
			pipelines.WithNormalization(),
		},
	}

	a.pipeline, err = hugot.NewPipeline(a.session, config)
	if err != nil {
		return fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	return nil
}

// checkModelExists returns the local path of a previously downloaded model,
// or an empty string. Downloads land in <dir>/<owner>_<name>.
func checkModelExists(destination, modelName string) (string, error) {
	modelP := modelName
	if strings.Contains(modelP, ":") {
		modelP = strings.Split(modelName, ":")[0]
	}
	modelPath := path.Join(destination, strings.ReplaceAll(modelP, "/", "_"))

	_, err := os.Stat(modelPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	return modelPath, nil
}
