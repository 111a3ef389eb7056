package spacesim

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ConfigEnv is the environment variable holding the directory of the conf.toml file.
const ConfigEnv = "SPACESIM_CONFIG"

// Config is the runtime configuration of a Simulation and of its solvers.
type Config struct {
	Step  time.Duration // default propagation step
	Epoch time.Time     // date at simulated time zero

	KeplerMaxIterations int
	KeplerTolerance     float64
	KeplerMaxReseeds    int

	GaussAlgorithm      string
	GaussMaxIterations  int
	GaussTolerance      float64
	GaussReseedInterval int
	GaussMaxReseeds     int

	Seed             uint64  // seed of the deterministic RNG of the root finders
	FullChainGravity bool    // include the tidal pull of every ancestor of the primary body
	DragThreshold    float64 // m/s^2, drag above which an object is integrated numerically
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("simulation.step", "10s")
	v.SetDefault("simulation.epoch", "2000-01-01T12:00:00Z")
	v.SetDefault("kepler.max_iterations", defaultKeplerMaxIterations)
	v.SetDefault("kepler.tolerance", defaultKeplerTolerance)
	v.SetDefault("kepler.max_reseeds", defaultMaxReseeds)
	v.SetDefault("gauss.algorithm", "adaptive")
	v.SetDefault("gauss.max_iterations", 1000)
	v.SetDefault("gauss.tolerance", 1e-10)
	v.SetDefault("gauss.reseed_interval", 50)
	v.SetDefault("gauss.max_reseeds", defaultMaxReseeds)
	v.SetDefault("random.seed", 1)
	v.SetDefault("cowell.full_chain_gravity", false)
	v.SetDefault("cowell.drag_threshold", 1e-7)
}

// DefaultConfig returns the configuration used when no file is provided.
func DefaultConfig() Config {
	v := viper.New()
	setDefaults(v)
	conf, err := configFromViper(v)
	if err != nil {
		panic(fmt.Errorf("invalid default configuration: %s", err))
	}
	return conf
}

// LoadConfig reads the provided TOML file, using defaults for any missing key.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return configFromViper(v)
}

// ConfigFromEnv loads conf.toml from the directory set in SPACESIM_CONFIG, or the defaults
// if the variable is not set.
func ConfigFromEnv() (Config, error) {
	confPath := os.Getenv(ConfigEnv)
	if confPath == "" {
		return DefaultConfig(), nil
	}
	return LoadConfig(filepath.Join(confPath, "conf.toml"))
}

func configFromViper(v *viper.Viper) (Config, error) {
	epoch, err := time.Parse(time.RFC3339, v.GetString("simulation.epoch"))
	if err != nil {
		return Config{}, fmt.Errorf("simulation.epoch: %w", err)
	}
	conf := Config{
		Step:                v.GetDuration("simulation.step"),
		Epoch:               epoch.UTC(),
		KeplerMaxIterations: v.GetInt("kepler.max_iterations"),
		KeplerTolerance:     v.GetFloat64("kepler.tolerance"),
		KeplerMaxReseeds:    v.GetInt("kepler.max_reseeds"),
		GaussAlgorithm:      v.GetString("gauss.algorithm"),
		GaussMaxIterations:  v.GetInt("gauss.max_iterations"),
		GaussTolerance:      v.GetFloat64("gauss.tolerance"),
		GaussReseedInterval: v.GetInt("gauss.reseed_interval"),
		GaussMaxReseeds:     v.GetInt("gauss.max_reseeds"),
		Seed:                v.GetUint64("random.seed"),
		FullChainGravity:    v.GetBool("cowell.full_chain_gravity"),
		DragThreshold:       v.GetFloat64("cowell.drag_threshold"),
	}
	if conf.Step <= 0 {
		return Config{}, fmt.Errorf("simulation.step must be positive, got %s", conf.Step)
	}
	if conf.KeplerMaxIterations <= 0 || conf.GaussMaxIterations <= 0 {
		return Config{}, fmt.Errorf("iteration budgets must be positive")
	}
	if conf.KeplerMaxReseeds < 0 || conf.GaussMaxReseeds < 0 {
		return Config{}, fmt.Errorf("reseed limits cannot be negative")
	}
	return conf, nil
}

// KeplerSolver returns a Kepler solver configured with this budget.
func (c Config) KeplerSolver() *KeplerSolver {
	k := NewKeplerSolver(c.Seed)
	k.MaxIterations = c.KeplerMaxIterations
	k.Tolerance = c.KeplerTolerance
	k.MaxReseeds = c.KeplerMaxReseeds
	return k
}
