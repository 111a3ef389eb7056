package spacesim

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"gopkg.in/yaml.v3"
)

// CgCatalog definition.
type CgCatalog struct {
	Version string     `json:"version"`
	Name    string     `json:"name"`
	Items   []*CgItems `json:"items"`
	Require []string   `json:"require,omitempty"`
}

func (c *CgCatalog) String() string {
	return c.Name + "(" + c.Version + ")"
}

// CgItems definition.
type CgItems struct {
	Class           string            `json:"class"`
	Name            string            `json:"name"`
	StartTime       string            `json:"startTime"`
	EndTime         string            `json:"endTime"`
	Center          string            `json:"center"`
	TrajectoryFrame string            `json:"trajectoryFrame"`
	Trajectory      *CgTrajectory     `json:"trajectory,omitempty"`
	Label           *CgLabel          `json:"label,omitempty"`
	TrajectoryPlot  *CgTrajectoryPlot `json:"trajectoryPlot,omitempty"`
}

// CgTrajectory definition.
type CgTrajectory struct {
	Type   string `json:"type,omitempty"`
	Source string `json:"source,omitempty"`
}

// Validate validates a CgTrajectory.
func (t *CgTrajectory) Validate() error {
	if t.Type != "InterpolatedStates" || !strings.HasSuffix(t.Source, "xyzv") {
		return errors.New("only InterpolatedStates are currently supported in Cosmographia trajectory types")
	}
	return nil
}

func (t *CgTrajectory) String() string {
	return t.Source + " as " + t.Type
}

// CgLabel definition.
type CgLabel struct {
	Color    []float64 `json:"color,omitempty"`
	FadeSize int       `json:"fadeSize,omitempty"`
	ShowText bool      `json:"showText,omitempty"`
}

// CgTrajectoryPlot definition.
type CgTrajectoryPlot struct {
	Color       []float64 `json:"color,omitempty"`
	LineWidth   int       `json:"lineWidth,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	Lead        string    `json:"lead,omitempty"`
	Fade        int       `json:"fade,omitempty"`
	SampleCount int       `json:"sampleCount,omitempty"`
}

// CgInterpolatedState is one record of an xyzv file: km and km/s.
type CgInterpolatedState struct {
	JD       float64
	Position []float64
	Velocity []float64
}

// FromText initializes from text.
// The `record` parameter must be an array of seven items.
func (i *CgInterpolatedState) FromText(record []string) error {
	if len(record) != 7 {
		return fmt.Errorf("expected seven fields, got %d", len(record))
	}
	vals := make([]float64, 7)
	for j, field := range record {
		val, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return err
		}
		vals[j] = val
	}
	i.JD = vals[0]
	i.Position = vals[1:4]
	i.Velocity = vals[4:7]
	return nil
}

// ToText converts to text for written output.
func (i *CgInterpolatedState) ToText() string {
	return fmt.Sprintf("%f %f %f %f %f %f %f", i.JD, i.Position[0], i.Position[1], i.Position[2], i.Velocity[0], i.Velocity[1], i.Velocity[2])
}

// ParseInterpolatedStates reads the records of an xyzv file.
func ParseInterpolatedStates(r io.Reader) ([]*CgInterpolatedState, error) {
	var states = []*CgInterpolatedState{}
	cr := csv.NewReader(r)
	cr.Comma = ' '
	cr.Comment = '#'
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		state := CgInterpolatedState{}
		if err := state.FromText(record); err != nil {
			return nil, err
		}
		states = append(states, &state)
	}
	return states, nil
}

// ExportConfig configures the exporting of the simulation.
type ExportConfig struct {
	Dir          string
	Filename     string
	Cosmo        bool                         // Cosmographia xyzv trajectories and their catalog
	AsCSV        bool                         // orbital elements
	Summary      bool                         // final state of every object, as YAML
	Timestamp    bool                         // stamp the file names with the creation date
	Every        time.Duration                // minimum spacing between two records of an object
	CSVAppend    func(st MissionState) string // Custom export (do not include leading comma)
	CSVAppendHdr func() string                // Header for the custom export
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.Cosmo && !c.AsCSV && !c.Summary
}

func (c ExportConfig) path(prefix, name, ext string) string {
	if c.Timestamp {
		t := time.Now()
		name = fmt.Sprintf("%s-%d-%02d-%02dT%02d.%02d.%02d", name, t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	}
	return filepath.Join(c.Dir, fmt.Sprintf("%s-%s.%s", prefix, name, ext))
}

// trajectory is the export of one object. A new file is started every time the object changes
// primary body since the records are relative to it.
type trajectory struct {
	conf          ExportConfig
	name          string
	fileNo        int
	xyzv, csvFile *os.File
	csvW          *csv.Writer
	item          *CgItems
	first, prev   *MissionState // first and last written records
	last          *MissionState
	color         []float64
	failed        bool // files could not be created, the remaining records are dropped
}

func (tr *trajectory) open(state MissionState) error {
	base := fmt.Sprintf("%s-%s-%d", tr.conf.Filename, strings.ReplaceAll(state.Name, " ", "_"), tr.fileNo)
	tr.fileNo++
	if tr.conf.Cosmo {
		f, err := os.Create(tr.conf.path("prop", base, "xyzv"))
		if err != nil {
			return err
		}
		tr.xyzv = f
		// Header
		fmt.Fprintf(f, `# Creation date (UTC): %s
# Records are <jd> <x> <y> <z> <vel x> <vel y> <vel z>
#   Time is a TDB Julian date
#   Position in km
#   Velocity in km/sec
#   Simulation time start (UTC): %s`, time.Now().UTC(), state.DT.UTC())
		label := CgLabel{Color: copyVec(tr.color), FadeSize: 1000000, ShowText: true}
		plot := CgTrajectoryPlot{Color: copyVec(tr.color), LineWidth: 1, Lead: "0 d", SampleCount: 10}
		tr.item = &CgItems{Class: "spacecraft", Name: fmt.Sprintf("%s-%d", state.Name, tr.fileNo-1), StartTime: state.DT.UTC().String(), Center: state.Primary, Trajectory: &CgTrajectory{Type: "InterpolatedStates", Source: filepath.Base(f.Name())}, Label: &label, TrajectoryPlot: &plot}
		if state.Primary == Sun.Name {
			tr.item.TrajectoryFrame = "EclipticJ2000"
		} else {
			tr.item.TrajectoryFrame = "ICRF"
		}
	}
	if tr.conf.AsCSV {
		f, err := os.Create(tr.conf.path("orbital-elements", base, "csv"))
		if err != nil {
			return err
		}
		tr.csvFile = f
		fmt.Fprintf(f, `# Creation date (UTC): %s
# Records are a, e, i, Ω, ω, ν relative to %s. All angles are in degrees.
#   Simulation time start (UTC): %s
`, time.Now().UTC(), state.Primary, state.DT.UTC())
		tr.csvW = csv.NewWriter(f)
		hdr := []string{"time", "a", "e", "i", "Omega", "omega", "nu", "mass", "mode", "timeInHours", "timeInDays"}
		if tr.conf.CSVAppendHdr != nil {
			// Append the headers for the appended columns.
			hdr = append(hdr, tr.conf.CSVAppendHdr())
		}
		if err := tr.csvW.Write(hdr); err != nil {
			return err
		}
	}
	tr.first = &state
	return nil
}

// close ends the current files and returns the catalog item of the trajectory, if any.
func (tr *trajectory) close(end time.Time) (*CgItems, error) {
	var errs []error
	if tr.xyzv != nil {
		fmt.Fprintf(tr.xyzv, "\n# Simulation time end (UTC): %s\n", end.UTC())
		errs = append(errs, tr.xyzv.Close())
		tr.xyzv = nil
		longerEnd := end.Add(time.Hour)
		tr.item.EndTime = longerEnd.UTC().String()
		tr.item.TrajectoryPlot.Duration = fmt.Sprintf("%d d", int(longerEnd.Sub(tr.first.DT).Hours()/24+1))
		// Change the color
		for i := 0; i < 3; i++ {
			tr.color[i] -= 0.2
			if tr.color[i] < 0 {
				tr.color[i]++
			}
		}
	}
	if tr.csvW != nil {
		tr.csvW.Flush()
		errs = append(errs, tr.csvW.Error())
		fmt.Fprintf(tr.csvFile, "# Simulation time end (UTC): %s\n", end.UTC())
		errs = append(errs, tr.csvFile.Close())
		tr.csvW = nil
	}
	item := tr.item
	tr.item = nil
	return item, errors.Join(errs...)
}

// fail releases whatever open managed to create and stops the export of this trajectory.
func (tr *trajectory) fail() {
	tr.failed = true
	if tr.xyzv != nil {
		tr.xyzv.Close()
		tr.xyzv = nil
	}
	if tr.csvFile != nil {
		tr.csvFile.Close()
		tr.csvFile, tr.csvW = nil, nil
	}
	tr.item = nil
}

func (tr *trajectory) write(state MissionState) error {
	if tr.xyzv != nil {
		asTxt := CgInterpolatedState{JD: julian.TimeToJD(state.DT), Position: scale(1e-3, state.State.Position), Velocity: scale(1e-3, state.State.Velocity)}
		if _, err := tr.xyzv.WriteString("\n" + asTxt.ToText()); err != nil {
			return err
		}
	}
	if tr.csvW != nil {
		deltaT := state.DT.Sub(tr.first.DT)
		record := []string{state.DT.UTC().Format("2006-01-02 15:04:05"), "", "", "", "", "", ""}
		if state.Orbit != nil {
			a, e, i, Ω, ω, ν := state.Orbit.Elements()
			for j, v := range []float64{a, e, Rad2deg(i), Rad2deg(Ω), Rad2deg(ω), Rad2deg(ν)} {
				record[j+1] = strconv.FormatFloat(v, 'f', 6, 64)
			}
		}
		record = append(record, strconv.FormatFloat(state.Mass, 'f', 3, 64), state.Mode.String(), strconv.FormatFloat(deltaT.Hours(), 'f', 3, 64), strconv.FormatFloat(deltaT.Hours()/24, 'f', 3, 64))
		if tr.conf.CSVAppend != nil {
			record = append(record, tr.conf.CSVAppend(state))
		}
		if err := tr.csvW.Write(record); err != nil {
			return err
		}
	}
	tr.prev = &state
	return nil
}

// ExportSummary is the final state of an object.
type ExportSummary struct {
	Name      string    `yaml:"name"`
	Primary   string    `yaml:"primary"`
	Date      time.Time `yaml:"date"`
	Mode      string    `yaml:"mode"`
	Mass      float64   `yaml:"mass"`
	Records   int       `yaml:"records"`
	Position  []float64 `yaml:"position"`
	Velocity  []float64 `yaml:"velocity"`
	Orbit     string    `yaml:"orbit,omitempty"`
	Apoapsis  float64   `yaml:"apoapsis,omitempty"`
	Periapsis float64   `yaml:"periapsis,omitempty"`
}

// StreamStates writes the states received on the channel until it is closed.
func StreamStates(conf ExportConfig, stateChan <-chan MissionState) error {
	trajectories := map[string]*trajectory{}
	var order []string
	records := map[string]int{}
	var errs []error
	var cgItems []*CgItems
	for state := range stateChan {
		tr, ok := trajectories[state.Name]
		if !ok {
			tr = &trajectory{conf: conf, name: state.Name, color: []float64{0.6, 1, 1}}
			trajectories[state.Name] = tr
			order = append(order, state.Name)
		}
		records[state.Name]++
		tr.last = &state
		if tr.failed {
			continue
		}
		switch {
		case tr.prev == nil:
			if err := tr.open(state); err != nil {
				errs = append(errs, err)
				tr.fail()
				continue
			}
		case tr.prev.Primary != state.Primary:
			// Force writing this data point now instead of skipping it.
			item, err := tr.close(state.DT)
			if item != nil {
				cgItems = append(cgItems, item)
			}
			errs = append(errs, err)
			if err := tr.open(state); err != nil {
				errs = append(errs, err)
				tr.fail()
				continue
			}
		case conf.Every > 0 && state.DT.Sub(tr.prev.DT) < conf.Every:
			continue
		}
		if err := tr.write(state); err != nil {
			errs = append(errs, err)
		}
	}
	var summaries []ExportSummary
	for _, name := range order {
		tr := trajectories[name]
		last := tr.last
		if tr.prev != nil && !tr.failed {
			item, err := tr.close(last.DT)
			if item != nil {
				cgItems = append(cgItems, item)
			}
			errs = append(errs, err)
		}
		s := ExportSummary{Name: name, Primary: last.Primary, Date: last.DT.UTC(), Mode: last.Mode.String(), Mass: last.Mass, Records: records[name], Position: last.State.Position, Velocity: last.State.Velocity}
		if last.Orbit != nil {
			s.Orbit = last.Orbit.String()
			s.Periapsis = last.Orbit.Periapsis()
			if ra := last.Orbit.Apoapsis(); !math.IsInf(ra, 1) {
				s.Apoapsis = ra
			}
		}
		summaries = append(summaries, s)
	}
	if conf.Cosmo && len(cgItems) > 0 {
		// Let's write the catalog.
		c := CgCatalog{Version: "1.0", Name: conf.Filename, Items: cgItems}
		errs = append(errs, writeFile(conf.path("catalog", conf.Filename, "json"), func(w io.Writer) error {
			return json.NewEncoder(w).Encode(c)
		}))
	}
	if conf.Summary {
		errs = append(errs, writeFile(conf.path("summary", conf.Filename, "yaml"), func(w io.Writer) error {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(summaries); err != nil {
				return err
			}
			return enc.Close()
		}))
	}
	return errors.Join(errs...)
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
