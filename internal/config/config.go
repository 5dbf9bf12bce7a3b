package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultPath is the configuration file read by the commands.
const DefaultPath = "pushup_config.txt"

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDTracker string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string

	// Topics
	TopicReps      string
	TopicInference string
	TopicStatus    string
	TopicControl   string

	// IMU
	IMUSource     string // "mpu9250" or "synthetic"
	IMUSPIDevice  string
	IMUCSPin      string
	IMUAccelRange byte // 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUGyroRange  byte // 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s

	// Timing, milliseconds
	SampleInterval     int
	InferenceInterval  int
	InferenceTimeout   int
	WatchdogTimeout    int
	ConsoleLogInterval int

	// Window and normalization
	WindowSize int
	NormMean   [6]float32
	NormStd    [6]float32

	// Filters
	FilterPreset        string // "duplicated" or "sos"
	FilterAccelCutoff   float64
	FilterGyroCutoff    float64
	FilterGravityCutoff float64

	// Classifier
	ModelPath     string
	PostureOutput int
	PhaseOutput   int // -1 when the model has no phase head

	// Phase detection
	PhaseSource         string // "model" or "statistical"
	PhaseClassMap       string
	PhaseLowMean        float64
	PhaseHighMean       float64
	PhasePlateauMin     float64
	PhasePlateauMax     float64
	PhaseStableStd      float64
	PhaseVarianceStd    float64
	PhaseGyroActive     float64
	PhaseGyroStatic     float64
	PhaseVerticalAxis   string
	PhaseRotationalAxis string

	// Rep counting
	RepConfirmCount       int
	RepTimeout            int // milliseconds
	RepPolicy             string
	RepAggregator         string
	RepPredictionCapacity int
	RepMinForceComplete   int

	// Button and display
	ButtonPin             string // empty disables the button
	DisplayEnabled        bool
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds

	// Workout history
	HistoryDB string // empty disables persistence

	// Web Server
	WebServerPort int

	// Streaming data collection
	StreamSerialPort   string
	StreamBaudRate     int
	CollectSerialPort  string
	CollectBaudRate    int
	CollectOutputDir   string
	CollectParticipant string
	CollectPlacement   string
}

// Default returns the reference configuration. A config file only needs to
// list the values it changes.
func Default() *Config {
	return &Config{
		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientIDTracker: "pushup-tracker",
		MQTTClientIDConsole: "pushup-console",
		MQTTClientIDWeb:     "pushup-web",

		TopicReps:      "pushup/reps",
		TopicInference: "pushup/inference",
		TopicStatus:    "pushup/status",
		TopicControl:   "pushup/control",

		IMUSource:    "mpu9250",
		IMUSPIDevice: "/dev/spidev0.0",
		IMUCSPin:     "8",

		SampleInterval:     25,
		InferenceInterval:  1000,
		InferenceTimeout:   500,
		WatchdogTimeout:    5000,
		ConsoleLogInterval: 1000,

		// NormMean and NormStd are the reference firmware constants. They were
		// measured on the raw signal, gravity included, while the classifier
		// input is the gravity-free linear signal, so accel channels are off
		// by 1 to 2 std. Replace them with normstats output for the deployed
		// model.
		WindowSize: 100,
		NormMean:   [6]float32{0.5408033, 0.3290058, 0.4975627, 1.2998513, -0.6161176, 0.0241650},
		NormStd:    [6]float32{0.4391443, 0.3514638, 0.2542887, 28.7884084, 21.5488184, 22.0366052},

		FilterPreset:        "duplicated",
		FilterAccelCutoff:   10,
		FilterGyroCutoff:    0.2,
		FilterGravityCutoff: 0.5,

		ModelPath:     "pushup_model.json",
		PostureOutput: 1,
		PhaseOutput:   0,

		PhaseSource:         "statistical",
		PhaseClassMap:       "moving,moving,-,at-top",
		PhaseLowMean:        0.70,
		PhaseHighMean:       1.12,
		PhasePlateauMin:     0.72,
		PhasePlateauMax:     1.10,
		PhaseStableStd:      0.10,
		PhaseVarianceStd:    0.20,
		PhaseGyroActive:     20,
		PhaseGyroStatic:     15,
		PhaseVerticalAxis:   "az",
		PhaseRotationalAxis: "gy",

		RepConfirmCount:       2,
		RepTimeout:            10000,
		RepPolicy:             "aggregate",
		RepAggregator:         "majority",
		RepPredictionCapacity: 32,
		RepMinForceComplete:   2,

		DisplayEnabled:        true,
		DisplayUpdateInterval: 200,

		WebServerPort: 8080,

		StreamSerialPort:  "/dev/ttyGS0",
		StreamBaudRate:    115200,
		CollectSerialPort: "/dev/ttyACM0",
		CollectBaudRate:   115200,
		CollectOutputDir:  "data",
		CollectPlacement:  "upper-back",
	}
}

// Package-level unexported variables for the singleton:
//   - globalConfig is only reachable through InitGlobal and Get.
//   - configOnce makes InitGlobal run once.
//   - configMu guards reads against the initial write.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file on top of Default.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default. Blank lines and lines
// starting with # are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInt(key, value string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, v)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseChannels(key, value string) ([6]float32, error) {
	var out [6]float32
	fields := strings.Split(value, ",")
	if len(fields) != len(out) {
		return out, fmt.Errorf("%s needs 6 comma-separated values, got %d", key, len(fields))
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return out, fmt.Errorf("invalid %s[%d] %q: %w", key, i, f, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	const maxInt = int(^uint(0) >> 1)

	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_TRACKER":
		c.MQTTClientIDTracker = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_REPS":
		c.TopicReps = value
	case "TOPIC_INFERENCE":
		c.TopicInference = value
	case "TOPIC_STATUS":
		c.TopicStatus = value
	case "TOPIC_CONTROL":
		c.TopicControl = value

	// IMU
	case "IMU_SOURCE":
		c.IMUSource = value
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		v, err := parseInt(key, value, 0, 3)
		if err != nil {
			return err
		}
		c.IMUAccelRange = byte(v)
	case "IMU_GYRO_RANGE":
		v, err := parseInt(key, value, 0, 3)
		if err != nil {
			return err
		}
		c.IMUGyroRange = byte(v)

	// Timing
	case "SAMPLE_INTERVAL":
		c.SampleInterval, err = parseInt(key, value, 1, 1000)
	case "INFERENCE_INTERVAL":
		c.InferenceInterval, err = parseInt(key, value, 1, 60000)
	case "INFERENCE_TIMEOUT":
		c.InferenceTimeout, err = parseInt(key, value, 0, 60000)
	case "WATCHDOG_TIMEOUT":
		c.WatchdogTimeout, err = parseInt(key, value, 0, 600000)
	case "CONSOLE_LOG_INTERVAL":
		c.ConsoleLogInterval, err = parseInt(key, value, 1, 60000)

	// Window and normalization
	case "WINDOW_SIZE":
		c.WindowSize, err = parseInt(key, value, 1, 10000)
	case "NORM_MEAN":
		c.NormMean, err = parseChannels(key, value)
	case "NORM_STD":
		c.NormStd, err = parseChannels(key, value)

	// Filters
	case "FILTER_PRESET":
		c.FilterPreset = value
	case "FILTER_ACCEL_CUTOFF":
		c.FilterAccelCutoff, err = parseFloat(key, value)
	case "FILTER_GYRO_CUTOFF":
		c.FilterGyroCutoff, err = parseFloat(key, value)
	case "FILTER_GRAVITY_CUTOFF":
		c.FilterGravityCutoff, err = parseFloat(key, value)

	// Classifier
	case "MODEL_PATH":
		c.ModelPath = value
	case "POSTURE_OUTPUT":
		c.PostureOutput, err = parseInt(key, value, 0, 15)
	case "PHASE_OUTPUT":
		c.PhaseOutput, err = parseInt(key, value, -1, 15)

	// Phase detection
	case "PHASE_SOURCE":
		c.PhaseSource = value
	case "PHASE_CLASS_MAP":
		c.PhaseClassMap = value
	case "PHASE_LOW_MEAN":
		c.PhaseLowMean, err = parseFloat(key, value)
	case "PHASE_HIGH_MEAN":
		c.PhaseHighMean, err = parseFloat(key, value)
	case "PHASE_PLATEAU_MIN":
		c.PhasePlateauMin, err = parseFloat(key, value)
	case "PHASE_PLATEAU_MAX":
		c.PhasePlateauMax, err = parseFloat(key, value)
	case "PHASE_STABLE_STD":
		c.PhaseStableStd, err = parseFloat(key, value)
	case "PHASE_VARIANCE_STD":
		c.PhaseVarianceStd, err = parseFloat(key, value)
	case "PHASE_GYRO_ACTIVE":
		c.PhaseGyroActive, err = parseFloat(key, value)
	case "PHASE_GYRO_STATIC":
		c.PhaseGyroStatic, err = parseFloat(key, value)
	case "PHASE_VERTICAL_AXIS":
		c.PhaseVerticalAxis = value
	case "PHASE_ROTATIONAL_AXIS":
		c.PhaseRotationalAxis = value

	// Rep counting
	case "REP_CONFIRM_COUNT":
		c.RepConfirmCount, err = parseInt(key, value, 1, 100)
	case "REP_TIMEOUT":
		c.RepTimeout, err = parseInt(key, value, 1, 600000)
	case "REP_POLICY":
		c.RepPolicy = value
	case "REP_AGGREGATOR":
		c.RepAggregator = value
	case "REP_PREDICTION_CAPACITY":
		c.RepPredictionCapacity, err = parseInt(key, value, 1, 4096)
	case "REP_MIN_FORCE_COMPLETE":
		c.RepMinForceComplete, err = parseInt(key, value, 0, maxInt)

	// Button and display
	case "BUTTON_PIN":
		c.ButtonPin = value
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_ENABLED %q: %w", value, err)
		}
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value, 1, 60000)

	// Workout history
	case "HISTORY_DB":
		c.HistoryDB = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 1, 65535)

	// Streaming data collection
	case "STREAM_SERIAL_PORT":
		c.StreamSerialPort = value
	case "STREAM_BAUD_RATE":
		c.StreamBaudRate, err = parseInt(key, value, 1, 4000000)
	case "COLLECT_SERIAL_PORT":
		c.CollectSerialPort = value
	case "COLLECT_BAUD_RATE":
		c.CollectBaudRate, err = parseInt(key, value, 1, 4000000)
	case "COLLECT_OUTPUT_DIR":
		c.CollectOutputDir = value
	case "COLLECT_PARTICIPANT":
		c.CollectParticipant = value
	case "COLLECT_PLACEMENT":
		c.CollectPlacement = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks the cross-field constraints.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	switch c.IMUSource {
	case "mpu9250":
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for IMU_SOURCE=mpu9250")
		}
	case "synthetic":
	default:
		return fmt.Errorf("IMU_SOURCE must be mpu9250 or synthetic, got %q", c.IMUSource)
	}
	for ch, std := range c.NormStd {
		if std < 0 {
			return fmt.Errorf("NORM_STD[%d] must be >= 0, got %v", ch, std)
		}
	}
	switch c.PhaseSource {
	case "model":
		if c.PhaseOutput < 0 {
			return fmt.Errorf("PHASE_SOURCE=model needs PHASE_OUTPUT >= 0")
		}
	case "statistical":
	default:
		return fmt.Errorf("PHASE_SOURCE must be model or statistical, got %q", c.PhaseSource)
	}
	if c.PhaseOutput == c.PostureOutput {
		return fmt.Errorf("POSTURE_OUTPUT and PHASE_OUTPUT must differ, both %d", c.PostureOutput)
	}
	if c.PhasePlateauMin > c.PhasePlateauMax {
		return fmt.Errorf("PHASE_PLATEAU_MIN %v above PHASE_PLATEAU_MAX %v", c.PhasePlateauMin, c.PhasePlateauMax)
	}
	return nil
}

// SampleRate returns the IMU sample rate in Hz.
func (c *Config) SampleRate() float64 {
	return 1000 / float64(c.SampleInterval)
}

// Millis converts a millisecond setting to a Duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
