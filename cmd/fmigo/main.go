// fmigo is the command-line front end for the model-exchange
// integration core: it drives fixture models through the Driver,
// records the resulting trajectory, and offers a live TUI, mirroring
// the teacher's dynsim CLI structure (root command defaulting to the
// interactive TUI, run/list/export/export-csv subcommands backed by a
// run store).
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	tea "github.com/charmbracelet/bubbletea"

	"fmigo/internal/config"
	"fmigo/internal/driver"
	"fmigo/internal/fixtures"
	"fmigo/internal/fmi"
	"fmigo/internal/fmicore"
	"fmigo/internal/modelcache"
	"fmigo/internal/modeldesc"
	"fmigo/internal/steppers"
	"fmigo/internal/trace"
	"fmigo/internal/viz"
)

var (
	dataDir              string
	stepperTag           string
	abstol               float64
	stopBeforeEvent      bool
	eventSearchPrecision float64
	tEnd                 float64
	dtHint               float64
	configFile           string
	presetName           string
	ensembleN            int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fmigo",
		Short: "model-exchange co-simulation core",
		Run: func(cmd *cobra.Command, args []string) {
			if err := viz.RunInteractive(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".fmigo", "run data directory")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "integrate a fixture model to completion, headless",
		Args:  cobra.ExactArgs(1),
		RunE:  runModel,
	}
	addDriverFlags(runCmd)
	runCmd.Flags().StringVar(&presetName, "preset", "", "use a named preset from internal/config")

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "integrate a fixture model with the live TUI",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addDriverFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run's metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a run's state history as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSVRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list presets for a fixture model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets(args[0])
			if len(names) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "launch the interactive fixture-selection TUI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive()
		},
	}

	rollbackCmd := &cobra.Command{
		Use:   "rollback-demo [model]",
		Short: "demonstrate SaveCurrentStateForRollback and rollback-via-Integrate",
		Args:  cobra.ExactArgs(1),
		RunE:  rollbackDemo,
	}
	addDriverFlags(rollbackCmd)

	predictCmd := &cobra.Command{
		Use:   "predict-demo [model]",
		Short: "demonstrate incremental lookahead via PredictState",
		Args:  cobra.ExactArgs(1),
		RunE:  predictDemo,
	}
	addDriverFlags(predictCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [model]",
		Short: "run N independent instances of a model concurrently",
		Args:  cobra.ExactArgs(1),
		RunE:  runEnsemble,
	}
	addDriverFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&ensembleN, "n", 4, "number of concurrent instances")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, exportCmd, exportCSVCmd, presetsCmd, tuiCmd, rollbackCmd, predictCmd, ensembleCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addDriverFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&stepperTag, "stepper", string(steppers.TagEuler), "stepper family tag")
	cmd.Flags().Float64Var(&abstol, "abstol", 0, "absolute tolerance override")
	cmd.Flags().BoolVar(&stopBeforeEvent, "stop-before-event", true, "latch events instead of stepping over them")
	cmd.Flags().Float64Var(&eventSearchPrecision, "event-search-precision", config.DefaultEventSearchPrecision, "bisection precision epsilon")
	cmd.Flags().Float64Var(&tEnd, "t-end", 5.0, "integration end time")
	cmd.Flags().Float64Var(&dtHint, "dt-hint", config.DefaultDtHint, "stepper timestep hint")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
}

// buildDriver instantiates and initializes a Driver for the named
// fixture using the package-level flag values, applying a config file
// or preset first if one was given.
func buildDriver(cmd *cobra.Command, name string) (*driver.Driver, error) {
	if presetName != "" {
		p := config.GetPreset(name, presetName)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q for model %q", presetName, name)
		}
		if !cmd.Flags().Changed("stepper") {
			stepperTag = p.Stepper
		}
		if !cmd.Flags().Changed("t-end") {
			tEnd = p.TEnd
		}
		if !cmd.Flags().Changed("dt-hint") {
			dtHint = p.DtHint
		}
		if !cmd.Flags().Changed("event-search-precision") {
			eventSearchPrecision = p.EventSearchPrecision
		}
	}
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		if !cmd.Flags().Changed("stepper") {
			stepperTag = cfg.Stepper
		}
		if !cmd.Flags().Changed("t-end") {
			tEnd = cfg.TEnd
		}
		if !cmd.Flags().Changed("dt-hint") {
			dtHint = cfg.DtHint
		}
		if !cmd.Flags().Changed("event-search-precision") {
			eventSearchPrecision = cfg.EventSearchPrecision
		}
	}

	cap, ok := fixtures.New(name)
	if !ok {
		return nil, fmt.Errorf("unknown model %q (available: %v)", name, fixtures.Names())
	}

	dcfg := driver.Config{
		Stepper:              steppers.Tag(stepperTag),
		StopBeforeEvent:      stopBeforeEvent,
		EventSearchPrecision: eventSearchPrecision,
	}
	if cmd.Flags().Changed("abstol") {
		dcfg.Abstol = &abstol
	}

	desc, err := cachedDescription(name, cap)
	if err != nil {
		return nil, err
	}
	drv, err := driver.Instantiate(cap, desc, dcfg)
	if err != nil {
		return nil, err
	}
	if err := drv.Initialize(); err != nil {
		return nil, err
	}
	return drv, nil
}

// cachedDescription memoizes a fixture's model description by name via
// modelcache, so an ensemble of N drivers over the same fixture builds
// the Variables table once instead of N times.
func cachedDescription(name string, cap fmi.Capability) (*modeldesc.Description, error) {
	return modelcache.GetOrLoad(name, func() (*modeldesc.Description, error) {
		d, ok := cap.(interface{ Description() *modeldesc.Description })
		if !ok {
			return &modeldesc.Description{}, nil
		}
		return d.Description(), nil
	})
}

func runModel(cmd *cobra.Command, args []string) error {
	name := args[0]
	drv, err := buildDriver(cmd, name)
	if err != nil {
		return err
	}

	st := trace.NewStore(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	rec := trace.New()
	rec.Record(drv.Time(), drv.State())

	fmt.Printf("integrating %s with %s to t=%.6f...\n", name, stepperTag, tEnd)
	for drv.Time() < tEnd-1e-12 {
		before := drv.Pending()
		newT, err := drv.Integrate(tEnd, dtHint)
		if err != nil {
			return err
		}
		rec.Record(newT, drv.State())
		if before.None() && !drv.Pending().None() {
			kind := "state"
			if drv.Pending().Kind == fmicore.PendingTime {
				kind = "time"
			}
			rec.RecordEvent(newT, kind)
		}
	}

	runID, err := st.Save(name, stepperTag, eventSearchPrecision, rec)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("samples: %d\n", len(rec.Samples()))
	fmt.Printf("final state: %v\n", drv.State())
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	name := args[0]
	drv, err := buildDriver(cmd, name)
	if err != nil {
		return err
	}
	rec := trace.New()
	rec.Record(drv.Time(), drv.State())
	m := viz.NewModel(drv, rec, name, stepperTag, tEnd, dtHint, dtHint*4)
	_, err = tea.NewProgram(m).Run()
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := trace.NewStore(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tSTEPPER\tSAMPLES\tEVENTS\tTIME")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			run.ID, run.Model, run.Stepper, run.Samples, len(run.Events),
			run.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := trace.NewStore(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSVRun(cmd *cobra.Command, args []string) error {
	st := trace.NewStore(dataDir)
	samples, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to export")
	}
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	header := []string{"time"}
	for i := range samples[0].State {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{strconv.FormatFloat(s.T, 'f', 9, 64)}
		for _, v := range s.State {
			row = append(row, strconv.FormatFloat(v, 'f', 9, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func rollbackDemo(cmd *cobra.Command, args []string) error {
	drv, err := buildDriver(cmd, args[0])
	if err != nil {
		return err
	}

	mid := tEnd / 2
	if _, err := drv.Integrate(mid, dtHint); err != nil {
		return err
	}
	if err := drv.SaveCurrentStateForRollback(); err != nil {
		return err
	}
	savedState := drv.State()
	fmt.Printf("saved rollback point at t=%.6f state=%v\n", drv.Time(), savedState)

	if _, err := drv.Integrate(tEnd, dtHint); err != nil {
		return err
	}
	fmt.Printf("advanced to t=%.6f state=%v\n", drv.Time(), drv.State())

	restoredT, err := drv.Integrate(mid, dtHint)
	if err != nil {
		return err
	}
	fmt.Printf("rolled back to t=%.6f state=%v\n", restoredT, drv.State())
	return nil
}

func predictDemo(cmd *cobra.Command, args []string) error {
	drv, err := buildDriver(cmd, args[0])
	if err != nil {
		return err
	}

	horizon := tEnd
	step := dtHint * 10
	entries, err := drv.PredictState(horizon, step, dtHint)
	if err != nil {
		return err
	}
	fmt.Printf("predicted %d entries out to t=%.6f (driver time still t=%.6f)\n", len(entries), horizon, drv.Time())
	for _, e := range entries {
		fmt.Printf("  t=%.6f state=%v\n", e.T, e.State)
	}
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	name := args[0]
	drivers := make([]*driver.Driver, ensembleN)
	for i := range drivers {
		d, err := buildDriver(cmd, name)
		if err != nil {
			return err
		}
		drivers[i] = d
	}

	results := driver.RunEnsemble(context.Background(), drivers, tEnd, dtHint)
	for i, r := range results {
		if r.Err != nil {
			fmt.Printf("instance %d: error: %v\n", i, r.Err)
			continue
		}
		fmt.Printf("instance %d: t=%.6f state=%v\n", i, r.FinalTime, drivers[i].State())
	}
	return nil
}
