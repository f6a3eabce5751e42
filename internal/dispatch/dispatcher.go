// Package dispatch decides, per prediction request, whether to run the
// external inference script or answer from one of the canned fallback tables.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/somno/internal/events"
	"github.com/alfredjeanlab/somno/internal/idgen"
	"github.com/alfredjeanlab/somno/internal/inference"
	"github.com/alfredjeanlab/somno/internal/model"
)

// Environment variables passed to the inference command.
const (
	EnvInputFiles  = "SOMNO_INPUT_FILES"
	EnvFilename    = "SOMNO_FILENAME"
	EnvStartWindow = "SOMNO_START_WINDOW"
	EnvNumWindows  = "SOMNO_NUM_WINDOWS"
	EnvModelPath   = "SOMNO_MODEL_PATH"
	EnvSamplePath  = "SOMNO_SAMPLE_PATH"
)

// Config locates the model artifact, the sample recording and the
// inference command.
type Config struct {
	WorkDir    string
	ModelPath  string
	SamplePath string
	Command    string
	Timeout    time.Duration
}

// Upload is one file received with a prediction request. Path is empty when
// the file was counted but not staged (non-EDF uploads).
type Upload struct {
	Name string
	Path string
	Size int64
}

// Request is a single prediction request.
type Request struct {
	Files       []Upload
	Filename    string // recording selected from the catalog, if any
	StartWindow int
	NumWindows  int
}

// Dispatcher answers prediction requests.
type Dispatcher struct {
	cfg       Config
	runner    inference.Runner
	publisher events.Publisher
	metrics   *Metrics
	logger    *slog.Logger

	stat func(string) (os.FileInfo, error)
}

// New creates a dispatcher. A nil publisher discards events and nil metrics
// are not recorded.
func New(cfg Config, runner inference.Runner, pub events.Publisher, metrics *Metrics, logger *slog.Logger) *Dispatcher {
	if runner == nil {
		runner = inference.CommandRunner{}
	}
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:       cfg,
		runner:    runner,
		publisher: pub,
		metrics:   metrics,
		logger:    logger,
		stat:      os.Stat,
	}
}

// Availability reports whether the model artifact and sample recording exist.
func (d *Dispatcher) Availability() (hasModel, hasSample bool) {
	return d.exists(d.cfg.ModelPath), d.exists(d.cfg.SamplePath)
}

func (d *Dispatcher) exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := d.stat(path)
	return err == nil
}

// Predict picks a tier and builds the response. Inference failures are
// never returned as errors; only a cancelled context is.
func (d *Dispatcher) Predict(ctx context.Context, req Request) (*model.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	requestID, err := idgen.RequestID()
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Processed %d file(s)", len(req.Files))
	hasModel, hasSample := d.Availability()
	d.logger.Info("dispatch: predict",
		"request_id", requestID, "files", len(req.Files), "has_model", hasModel, "has_sample", hasSample)

	var resp *model.Response
	switch {
	case hasModel && hasSample:
		var failure *inferenceFailure
		resp, failure = d.runInference(ctx, requestID, req)
		if failure != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			d.logger.Warn("dispatch: model inference failed, using mock data",
				"request_id", requestID, "error", failure.err)
			d.publish(ctx, events.TopicInferenceFailed, events.InferenceFailed{
				RequestID:  requestID,
				Command:    d.cfg.Command,
				Error:      failure.err.Error(),
				Stderr:     failure.stderr,
				DurationMS: failure.duration.Milliseconds(),
			})
			resp = &model.Response{
				Predictions: cloneTable(modelFailedTable),
				Message:     message + suffixModelFailed,
				DataSource:  SourceModelFailed,
				ModelStatus: ModelStatusError,
				Tier:        model.TierModelFailed,
			}
		} else if resp.Message == "" {
			resp.Message = message
		}

	case hasSample:
		// hasModel is always false here, the combined case above returns first.
		resp = &model.Response{
			Predictions: cloneTable(sampleTable),
			Message:     message + suffixSample,
			DataSource:  SourceSampleEDF,
			ModelStatus: ModelStatusMissing,
			Tier:        model.TierSample,
		}
		if hasModel {
			resp.DataSource = SourceModelAndEDF
			resp.ModelStatus = ModelStatusLoaded
		}

	default:
		if hasModel {
			message += suffixModel
		}
		resp = &model.Response{
			Predictions: cloneTable(demoTable),
			Message:     message + suffixDemo,
			DataSource:  SourceDemo,
			Tier:        model.TierDemo,
		}
	}

	resp.Success = true
	resp.RequestID = requestID

	d.metrics.observeTier(resp.Tier)
	d.publish(ctx, events.TopicPredictionCompleted, events.PredictionCompleted{
		RequestID:   requestID,
		Tier:        resp.Tier,
		Files:       len(req.Files),
		Windows:     len(resp.Predictions),
		DataSource:  resp.DataSource,
		StageCounts: stageCounts(resp),
	})
	return resp, nil
}

type inferenceFailure struct {
	err      error
	stderr   string
	duration time.Duration
}

// runInference executes the inference command and decodes its output.
func (d *Dispatcher) runInference(ctx context.Context, requestID string, req Request) (*model.Response, *inferenceFailure) {
	result := d.runner.Run(ctx, inference.Request{
		Command: d.cfg.Command,
		Dir:     d.cfg.WorkDir,
		Env:     d.inferenceEnv(req),
		Timeout: d.cfg.Timeout,
	})
	d.metrics.observeInference(result.Duration.Seconds())

	fail := func(err error) *inferenceFailure {
		return &inferenceFailure{err: err, stderr: result.Stderr, duration: result.Duration}
	}
	if result.Err != nil {
		return nil, fail(fmt.Errorf("run %q: %w", d.cfg.Command, result.Err))
	}

	resp, err := decodeOutput(result.Stdout)
	if err != nil {
		return nil, fail(err)
	}
	resp.Tier = model.TierModel
	d.logger.Info("dispatch: model inference succeeded",
		"request_id", requestID, "windows", len(resp.Predictions), "duration", result.Duration)
	return resp, nil
}

func (d *Dispatcher) inferenceEnv(req Request) map[string]string {
	var paths []string
	for _, f := range req.Files {
		if f.Path != "" {
			paths = append(paths, f.Path)
		}
	}
	return map[string]string{
		EnvInputFiles:  strings.Join(paths, string(os.PathListSeparator)),
		EnvFilename:    req.Filename,
		EnvStartWindow: strconv.Itoa(req.StartWindow),
		EnvNumWindows:  strconv.Itoa(req.NumWindows),
		EnvModelPath:   d.cfg.ModelPath,
		EnvSamplePath:  d.cfg.SamplePath,
	}
}

var errNotSuccessful = errors.New("inference reported success=false")

// decodeOutput parses the script's stdout. Stage codes are normalized and
// any unrecognized stage rejects the whole result.
func decodeOutput(stdout string) (*model.Response, error) {
	var resp model.Response
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &resp); err != nil {
		return nil, fmt.Errorf("decode inference output: %w", err)
	}
	if !resp.Success {
		if resp.Error != "" {
			return nil, fmt.Errorf("%w: %s", errNotSuccessful, resp.Error)
		}
		return nil, errNotSuccessful
	}
	for i, p := range resp.Predictions {
		st, err := model.ParseStageCode(p.Stage.String())
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", p.Window, err)
		}
		resp.Predictions[i].Stage = st
	}
	if resp.Predictions == nil {
		resp.Predictions = []model.Prediction{}
	}
	return &resp, nil
}

func (d *Dispatcher) publish(ctx context.Context, topic string, event any) {
	if err := d.publisher.Publish(ctx, topic, event); err != nil {
		d.logger.Warn("failed to publish event", "topic", topic, "error", err)
	}
}

func stageCounts(resp *model.Response) map[string]int {
	counts := make(map[string]int)
	for st, n := range resp.StageCounts() {
		counts[st.String()] = n
	}
	return counts
}
