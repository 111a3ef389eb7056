package spacesim

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestStreamStatesPrimaryChange(t *testing.T) {
	dir := t.TempDir()
	conf := ExportConfig{Dir: dir, Filename: "probe", Cosmo: true, Summary: true, Every: 20 * time.Second}
	epoch := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	stateChan := make(chan MissionState, 10)
	for i, primary := range []string{"Earth", "Earth", "Earth", "Earth", "Sun", "Sun"} {
		s := NewStateRV(float64(i*10), []float64{7e6, float64(i), 0}, []float64{0, 7.5e3, 0})
		stateChan <- MissionState{DT: epoch.Add(time.Duration(i*10) * time.Second), Name: "deep probe", Primary: primary, State: s, Mass: 10, Mode: Unperturbed}
	}
	close(stateChan)
	if err := StreamStates(conf, stateChan); err != nil {
		t.Fatal(err)
	}
	for fileNo, expected := range []int{2, 1} {
		// 0 s and 20 s around Earth; the first state around the Sun is always written.
		f, err := os.Open(filepath.Join(dir, "prop-probe-deep_probe-"+string(rune('0'+fileNo))+".xyzv"))
		if err != nil {
			t.Fatal(err)
		}
		states, err := ParseInterpolatedStates(f)
		f.Close()
		if err != nil {
			t.Fatal(err)
		}
		if len(states) != expected {
			t.Fatalf("file %d: expected %d records, got %d", fileNo, expected, len(states))
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "catalog-probe.json"))
	if err != nil {
		t.Fatal(err)
	}
	var catalog CgCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		t.Fatal(err)
	}
	if len(catalog.Items) != 2 || catalog.Items[0].TrajectoryFrame != "ICRF" || catalog.Items[1].TrajectoryFrame != "EclipticJ2000" || catalog.Items[1].Center != "Sun" {
		t.Fatalf("invalid catalog %s", data)
	}
	if catalog.Items[0].Label.Color[0] == catalog.Items[1].Label.Color[0] {
		t.Fatal("each trajectory should have its own color")
	}
	data, err = os.ReadFile(filepath.Join(dir, "summary-probe.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	var summaries []ExportSummary
	if err := yaml.Unmarshal(data, &summaries); err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 || summaries[0].Records != 6 || summaries[0].Primary != "Sun" || summaries[0].Position[1] != 5 || summaries[0].Orbit != "" {
		t.Fatalf("invalid summary %s", data)
	}
}

func TestStreamStatesUnwritable(t *testing.T) {
	stateChan := make(chan MissionState, 5)
	dt := time.Now()
	for i := 0; i < 5; i++ {
		stateChan <- MissionState{DT: dt.Add(time.Duration(i) * time.Minute), Name: "sat", Primary: "Earth", State: NewStateRV(float64(60*i), []float64{7e6, 0, 0}, []float64{0, 7.5e3, 0}), Mode: Unperturbed}
	}
	close(stateChan)
	err := StreamStates(ExportConfig{Dir: filepath.Join(t.TempDir(), "missing"), Filename: "x", AsCSV: true}, stateChan)
	if err == nil {
		t.Fatal("writing to a missing directory should fail")
	}
	// The trajectory is given up after the first failure.
	if n := strings.Count(err.Error(), "orbital-elements"); n != 1 {
		t.Fatalf("expected a single creation error, got %d: %s", n, err)
	}
}

func TestInterpolatedStates(t *testing.T) {
	txt := `# comment
2451545.000000 7000.000000 0.000000 0.000000 0.000000 7.500000 0.000000
2451545.100000 6999.000000 1.000000 0.000000 0.000000 7.500000 0.000000`
	states, err := ParseInterpolatedStates(strings.NewReader(txt))
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 2 || states[1].Position[0] != 6999 || states[1].Velocity[1] != 7.5 {
		t.Fatalf("invalid states %+v", states)
	}
	if states[0].ToText() != "2451545.000000 7000.000000 0.000000 0.000000 0.000000 7.500000 0.000000" {
		t.Fatalf("invalid text %s", states[0].ToText())
	}
	if _, err := ParseInterpolatedStates(strings.NewReader("1 2 3")); err == nil {
		t.Fatal("short records should fail")
	}
	if _, err := ParseInterpolatedStates(strings.NewReader("a b c d e f g")); err == nil {
		t.Fatal("invalid numbers should fail")
	}
	traj := CgTrajectory{Type: "SPK", Source: "x.bsp"}
	if traj.Validate() == nil {
		t.Fatal("only interpolated states are supported")
	}
}
