package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/ChristopherRabotin/spacesim"
	"github.com/ChristopherRabotin/spacesim/tools"
	kitlog "github.com/go-kit/kit/log"
	"github.com/guptarohit/asciigraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

var (
	scenarioFile string
	configFile   string
	metricsAddr  string
	plot         bool
	// lambert
	μ          float64
	ri, rf     string
	tof        float64
	longWay    bool
	algorithm  string
	rInit, rFi float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "spacesim",
		Short:        "multi-body orbital simulation",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "conf.toml path (defaults to $"+spacesim.ConfigEnv+"/conf.toml)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "propagate a scenario",
		RunE:  runScenario,
	}
	runCmd.Flags().StringVar(&scenarioFile, "scenario", "", "scenario TOML file")
	runCmd.Flags().StringVar(&metricsAddr, "metrics", "", "serve prometheus metrics on this address")
	runCmd.Flags().BoolVar(&plot, "plot", false, "plot the altitude of the spacecraft once done")
	runCmd.MarkFlagRequired("scenario")

	lambertCmd := &cobra.Command{
		Use:   "lambert",
		Short: "solve Lambert's problem between two positions",
		RunE:  solveLambert,
	}
	lambertCmd.Flags().Float64Var(&μ, "mu", spacesim.Earth.GM(), "gravitational parameter (m^3/s^2)")
	lambertCmd.Flags().StringVar(&ri, "ri", "", "initial position, as x,y,z in meters")
	lambertCmd.Flags().StringVar(&rf, "rf", "", "final position, as x,y,z in meters")
	lambertCmd.Flags().Float64Var(&tof, "tof", 0, "time of flight (s)")
	lambertCmd.Flags().BoolVar(&longWay, "long", false, "transfer angle above 180 degrees")
	lambertCmd.Flags().StringVar(&algorithm, "algorithm", "", "universal, piteration or adaptive (defaults to the configuration)")

	hohmannCmd := &cobra.Command{
		Use:   "hohmann",
		Short: "Hohmann transfer between two circular orbits",
		RunE:  computeHohmann,
	}
	hohmannCmd.Flags().Float64Var(&μ, "mu", spacesim.Earth.GM(), "gravitational parameter (m^3/s^2)")
	hohmannCmd.Flags().Float64Var(&rInit, "ri", 0, "initial radius (m)")
	hohmannCmd.Flags().Float64Var(&rFi, "rf", 0, "final radius (m)")

	rootCmd.AddCommand(runCmd, lambertCmd, hohmannCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (spacesim.Config, error) {
	if configFile != "" {
		return spacesim.LoadConfig(configFile)
	}
	return spacesim.ConfigFromEnv()
}

func runScenario(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	logger := spacesim.NewDefaultLogger()
	sc, err := loadScenario(scenarioFile, conf, logger)
	if err != nil {
		return err
	}
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		sc.sim.SetMetrics(spacesim.NewMetrics(reg))
		srv := serveMetrics(metricsAddr, reg, logger)
		defer srv.Shutdown(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	mission := spacesim.NewPreciseMission(sc.sim, sc.end, sc.step, sc.export)
	var altitudes []float64
	if plot {
		mission.OnState = func(st spacesim.MissionState) {
			if st.Handle == sc.craft {
				altitudes = append(altitudes, spacesim.Altitude(sc.primary.Config, st.State)/1e3)
			}
		}
	}
	err = mission.Propagate(ctx)
	if plot && len(altitudes) > 1 {
		fmt.Println(asciigraph.Plot(altitudes,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("altitude (km) above %s", sc.primary.Name)),
		))
	}
	return err
}

func serveMetrics(addr string, reg *prometheus.Registry, logger kitlog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log("level", "error", "subsys", "metrics", "err", err)
		}
	}()
	logger.Log("level", "info", "subsys", "metrics", "addr", addr)
	return srv
}

func solveLambert(cmd *cobra.Command, args []string) error {
	Ri, err := parseVector(ri)
	if err != nil {
		return fmt.Errorf("--ri: %w", err)
	}
	Rf, err := parseVector(rf)
	if err != nil {
		return fmt.Errorf("--rf: %w", err)
	}
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	if algorithm != "" {
		conf.GaussAlgorithm = algorithm
	}
	g, err := tools.NewGaussSolverFromConfig(conf)
	if err != nil {
		return err
	}
	g.Logger = kitlog.With(spacesim.NewDefaultLogger(), "subsys", "lambert")
	Vi, Vf, err := g.Solve(μ, Ri, Rf, tof, longWay)
	if err != nil {
		return err
	}
	fmt.Printf("Vi = %.6f m/s\nVf = %.6f m/s\n", mat.Formatted(Vi.T()), mat.Formatted(Vf.T()))
	return nil
}

func computeHohmann(cmd *cobra.Command, args []string) error {
	if rInit <= 0 || rFi <= 0 {
		return fmt.Errorf("both radii must be positive")
	}
	vD, vA, tof := tools.Hohmann(rInit, rFi, μ)
	fmt.Printf("departure: v=%f m/s\tΔv=%f m/s\n", vD, vD-math.Sqrt(μ/rInit))
	fmt.Printf("arrival:   v=%f m/s\tΔv=%f m/s\n", vA, math.Sqrt(μ/rFi)-vA)
	fmt.Printf("time of flight: %s\n", tof)
	return nil
}

// parseVector reads a comma separated vector of three floats.
func parseVector(s string) (*mat.VecDense, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("expected x,y,z, got `%s`", s)
	}
	v := make([]float64, 3)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		v[i] = f
	}
	return mat.NewVecDense(3, v), nil
}
