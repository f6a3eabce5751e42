package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	HTTPAddr   string // SOMNO_HTTP_ADDR (default ":8080")
	GRPCAddr   string // SOMNO_GRPC_ADDR (optional, empty = no gRPC health service)
	NATSURL    string // SOMNO_NATS_URL (optional, empty = no events)
	CORSOrigin string // SOMNO_CORS_ORIGIN (default "*")

	// Prediction dispatch
	WorkDir          string        // SOMNO_WORK_DIR (default: current directory)
	ModelPath        string        // SOMNO_MODEL_PATH (default "api/sleep_model.keras")
	SamplePath       string        // SOMNO_SAMPLE_PATH (default "../sleep-telemetry/ST7011J0-PSG.edf")
	InferenceCommand string        // SOMNO_INFERENCE_COMMAND (default "python3 model_inference.py")
	InferenceTimeout time.Duration // SOMNO_INFERENCE_TIMEOUT (default 60s)
	UploadDir        string        // SOMNO_UPLOAD_DIR (default: os.TempDir())
	MaxUploadMB      int64         // SOMNO_MAX_UPLOAD_MB (default 512)

	// Recording catalog
	DataDir          string        // SOMNO_DATA_DIR (default "sleep-telemetry")
	RecordingPattern string        // SOMNO_RECORDING_PATTERN (default "*-PSG.edf")
	Watch            bool          // SOMNO_WATCH (default true)
	S3Bucket         string        // SOMNO_S3_BUCKET (enables the S3 source when set)
	S3Prefix         string        // SOMNO_S3_PREFIX
	S3Region         string        // SOMNO_S3_REGION (default "us-east-1")
	S3Endpoint       string        // SOMNO_S3_ENDPOINT (custom endpoint for MinIO)
	PollInterval     time.Duration // SOMNO_POLL_INTERVAL (default 1m; 0 = disabled)
}

// fileConfig is the TOML layout of SOMNO_CONFIG. Zero values leave the
// default in place.
type fileConfig struct {
	HTTPAddr         string `toml:"http_addr"`
	GRPCAddr         string `toml:"grpc_addr"`
	NATSURL          string `toml:"nats_url"`
	CORSOrigin       string `toml:"cors_origin"`
	WorkDir          string `toml:"work_dir"`
	ModelPath        string `toml:"model_path"`
	SamplePath       string `toml:"sample_path"`
	InferenceCommand string `toml:"inference_command"`
	InferenceTimeout string `toml:"inference_timeout"`
	UploadDir        string `toml:"upload_dir"`
	MaxUploadMB      int64  `toml:"max_upload_mb"`
	DataDir          string `toml:"data_dir"`
	RecordingPattern string `toml:"recording_pattern"`
	Watch            *bool  `toml:"watch"`
	PollInterval     string `toml:"poll_interval"`

	S3 struct {
		Bucket   string `toml:"bucket"`
		Prefix   string `toml:"prefix"`
		Region   string `toml:"region"`
		Endpoint string `toml:"endpoint"`
	} `toml:"s3"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		HTTPAddr:         ":8080",
		CORSOrigin:       "*",
		ModelPath:        filepath.Join("api", "sleep_model.keras"),
		SamplePath:       filepath.Join("..", "sleep-telemetry", "ST7011J0-PSG.edf"),
		InferenceCommand: "python3 model_inference.py",
		InferenceTimeout: 60 * time.Second,
		UploadDir:        os.TempDir(),
		MaxUploadMB:      512,
		DataDir:          "sleep-telemetry",
		RecordingPattern: "*-PSG.edf",
		Watch:            true,
		S3Region:         "us-east-1",
		PollInterval:     time.Minute,
	}
}

// Load builds the configuration from defaults, the optional TOML file named
// by SOMNO_CONFIG, and SOMNO_* environment variables, in that order.
// Relative paths are resolved against the work directory.
func Load() (*Config, error) {
	c := Default()

	if path := os.Getenv("SOMNO_CONFIG"); path != "" {
		if err := c.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	if c.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve work dir: %w", err)
		}
		c.WorkDir = wd
	}
	c.ModelPath = c.resolve(c.ModelPath)
	c.SamplePath = c.resolve(c.SamplePath)
	c.DataDir = c.resolve(c.DataDir)
	c.UploadDir = c.resolve(c.UploadDir)

	if c.InferenceTimeout <= 0 {
		return nil, fmt.Errorf("SOMNO_INFERENCE_TIMEOUT must be positive")
	}
	if c.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("SOMNO_MAX_UPLOAD_MB must be positive")
	}
	return c, nil
}

// MaxUploadBytes returns the multipart size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.WorkDir, p)
}

func (c *Config) applyFile(path string) error {
	var f fileConfig
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("SOMNO_CONFIG %s: %w", path, err)
	}

	setString(&c.HTTPAddr, f.HTTPAddr)
	setString(&c.GRPCAddr, f.GRPCAddr)
	setString(&c.NATSURL, f.NATSURL)
	setString(&c.CORSOrigin, f.CORSOrigin)
	setString(&c.WorkDir, f.WorkDir)
	setString(&c.ModelPath, f.ModelPath)
	setString(&c.SamplePath, f.SamplePath)
	setString(&c.InferenceCommand, f.InferenceCommand)
	setString(&c.UploadDir, f.UploadDir)
	setString(&c.DataDir, f.DataDir)
	setString(&c.RecordingPattern, f.RecordingPattern)
	setString(&c.S3Bucket, f.S3.Bucket)
	setString(&c.S3Prefix, f.S3.Prefix)
	setString(&c.S3Region, f.S3.Region)
	setString(&c.S3Endpoint, f.S3.Endpoint)
	if f.MaxUploadMB != 0 {
		c.MaxUploadMB = f.MaxUploadMB
	}
	if f.Watch != nil {
		c.Watch = *f.Watch
	}
	if err := setDuration(&c.InferenceTimeout, "inference_timeout", f.InferenceTimeout); err != nil {
		return err
	}
	return setDuration(&c.PollInterval, "poll_interval", f.PollInterval)
}

func (c *Config) applyEnv() error {
	setString(&c.HTTPAddr, os.Getenv("SOMNO_HTTP_ADDR"))
	setString(&c.GRPCAddr, os.Getenv("SOMNO_GRPC_ADDR"))
	setString(&c.NATSURL, os.Getenv("SOMNO_NATS_URL"))
	setString(&c.CORSOrigin, os.Getenv("SOMNO_CORS_ORIGIN"))
	setString(&c.WorkDir, os.Getenv("SOMNO_WORK_DIR"))
	setString(&c.ModelPath, os.Getenv("SOMNO_MODEL_PATH"))
	setString(&c.SamplePath, os.Getenv("SOMNO_SAMPLE_PATH"))
	setString(&c.InferenceCommand, os.Getenv("SOMNO_INFERENCE_COMMAND"))
	setString(&c.UploadDir, os.Getenv("SOMNO_UPLOAD_DIR"))
	setString(&c.DataDir, os.Getenv("SOMNO_DATA_DIR"))
	setString(&c.RecordingPattern, os.Getenv("SOMNO_RECORDING_PATTERN"))
	setString(&c.S3Bucket, os.Getenv("SOMNO_S3_BUCKET"))
	setString(&c.S3Prefix, os.Getenv("SOMNO_S3_PREFIX"))
	setString(&c.S3Region, os.Getenv("SOMNO_S3_REGION"))
	setString(&c.S3Endpoint, os.Getenv("SOMNO_S3_ENDPOINT"))

	if v := os.Getenv("SOMNO_MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SOMNO_MAX_UPLOAD_MB: %w", err)
		}
		c.MaxUploadMB = n
	}
	if v := os.Getenv("SOMNO_WATCH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SOMNO_WATCH: %w", err)
		}
		c.Watch = b
	}
	if err := setDuration(&c.InferenceTimeout, "SOMNO_INFERENCE_TIMEOUT", os.Getenv("SOMNO_INFERENCE_TIMEOUT")); err != nil {
		return err
	}
	return setDuration(&c.PollInterval, "SOMNO_POLL_INTERVAL", os.Getenv("SOMNO_POLL_INTERVAL"))
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}
