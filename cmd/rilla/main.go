package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rilla-project/rilla/internal/config"
	"github.com/rilla-project/rilla/internal/engine"
	"github.com/rilla-project/rilla/internal/report"
	"github.com/rilla-project/rilla/internal/store"
	"github.com/rilla-project/rilla/pkg/util"
	"github.com/rilla-project/rilla/pkg/vth"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: rilla <command> [options]

Commands:
  add-model <file.lib>   register a device model library
  list-models            show registered models
  run                    characterize one model
  compare                characterize several models concurrently
  history                show archived runs

Run "rilla <command> -h" for command options.
`)
}

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "add-model":
		cmdAddModel(os.Args[2:])
	case "list-models":
		cmdListModels(os.Args[2:])
	case "run":
		cmdRun(os.Args[2:])
	case "compare":
		cmdCompare(os.Args[2:])
	case "history":
		cmdHistory(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		log.Printf("unknown command %q", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func defaultConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".rilla"
	}
	return filepath.Join(base, "rilla")
}

func loadRegistry(dir string) *config.Registry {
	reg, err := config.Load(dir)
	if err != nil {
		log.Fatalf("Error loading model registry: %v", err)
	}
	return reg
}

func cmdAddModel(args []string) {
	fs := flag.NewFlagSet("add-model", flag.ExitOnError)
	configDir := fs.String("config", defaultConfigDir(), "config directory")
	fs.Parse(args)
	if fs.NArg() != 1 {
		log.Fatal("Usage: rilla add-model <file.lib>")
	}

	model, err := loadRegistry(*configDir).AddLibrary(fs.Arg(0))
	if err != nil {
		log.Fatalf("Error adding model library: %v", err)
	}
	fmt.Printf("Registered %s (%s)\n", model.Name, model.Path)
}

func cmdListModels(args []string) {
	fs := flag.NewFlagSet("list-models", flag.ExitOnError)
	configDir := fs.String("config", defaultConfigDir(), "config directory")
	fs.Parse(args)

	reg := loadRegistry(*configDir)
	if len(reg.Models) == 0 {
		fmt.Println("No models registered. Use: rilla add-model <file.lib>")
		return
	}
	for _, m := range reg.Models {
		fmt.Printf("%-24s %s\n", m.Name, m.Path)
	}
}

type runFlags struct {
	configDir  string
	engineName string
	solverPath string
	keepFiles  bool
	outDir     string
	dbPath     string
}

func addRunFlags(fs *flag.FlagSet) *runFlags {
	rf := &runFlags{}
	fs.StringVar(&rf.configDir, "config", defaultConfigDir(), "config directory")
	fs.StringVar(&rf.engineName, "engine", "external", "simulation engine: external or builtin")
	fs.StringVar(&rf.solverPath, "solver", "", "path to the SPICE solver binary (external engine)")
	fs.BoolVar(&rf.keepFiles, "keep", false, "keep simulation scratch files")
	fs.StringVar(&rf.outDir, "out", ".", "directory for report files")
	fs.StringVar(&rf.dbPath, "db", "", "run archive database (default <config>/rilla.db)")
	return rf
}

func (rf *runFlags) engine() engine.Engine {
	switch rf.engineName {
	case "external":
		return engine.NewExternal()
	case "builtin":
		return engine.NewBuiltin()
	default:
		log.Fatalf("unknown engine %q (want external or builtin)", rf.engineName)
		return nil
	}
}

func (rf *runFlags) options() engine.Options {
	opts := engine.DefaultOptions()
	opts.SolverPath = rf.solverPath
	opts.KeepFiles = rf.keepFiles
	return opts
}

func (rf *runFlags) openStore() *store.Store {
	path := rf.dbPath
	if path == "" {
		if err := os.MkdirAll(rf.configDir, 0o755); err != nil {
			log.Fatalf("Error creating config directory: %v", err)
		}
		path = filepath.Join(rf.configDir, "rilla.db")
	}
	s, err := store.Open(path)
	if err != nil {
		log.Fatalf("Error opening run archive: %v", err)
	}
	return s
}

// characterization is one model's complete outcome.
type characterization struct {
	model   config.Model
	result  *vth.Result
	profile *vth.TempProfile
	err     error
}

func characterize(ctx context.Context, eng engine.Engine, model config.Model, opts engine.Options) characterization {
	out := characterization{model: model}

	run, err := eng.RunVth(ctx, engine.Model{Name: model.Name, Path: model.Path}, opts)
	if err != nil {
		out.err = err
		return out
	}

	params := vth.DefaultParams()
	params.SweepValuesC = run.SweepTempsC
	out.result, err = vth.Extract(run.Traces, params)
	if err != nil {
		out.err = err
		return out
	}
	if profile, err := vth.ExtractAllSteps(run.Traces, params); err == nil {
		out.profile = profile
	}
	return out
}

func saveOutcome(ctx context.Context, s *store.Store, eng engine.Engine, c characterization) {
	rec := &store.RunRecord{
		ModelName: c.model.Name,
		Engine:    eng.Name(),
		TempC:     vth.DefaultParams().TargetTempC,
	}
	if c.err != nil {
		rec.Status = store.StatusError
		rec.ErrorMessage = c.err.Error()
	} else {
		rec.Status = store.StatusSuccess
		rec.VthVolts = c.result.ThresholdVoltage
		rec.VgsVolts = c.result.VoltageSamples
		rec.IdAmps = c.result.CurrentSamples
	}
	if err := s.SaveRun(ctx, rec); err != nil {
		log.Printf("Warning: could not archive run for %s: %v", c.model.Name, err)
	}
}

func writeReports(outDir string, c characterization) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	stem := filepath.Join(outDir, c.model.Name+"_vth_report")

	if c.err != nil {
		return report.Failure(c.model.Name, c.err).SaveJSON(stem + ".json")
	}
	if err := report.Success(c.model.Name, c.result).SaveJSON(stem + ".json"); err != nil {
		return err
	}
	if err := report.SavePNG(stem+".png", c.model.Name, c.result); err != nil {
		return err
	}
	if err := report.SaveHTML(stem+".html", c.model.Name, c.result, c.profile); err != nil {
		return err
	}
	return report.SavePDF(stem+".pdf", c.model.Name, c.result, c.profile, stem+".png")
}

func printOutcome(c characterization) {
	if c.err != nil {
		fmt.Printf("%-24s FAILED: %v\n", c.model.Name, c.err)
		return
	}
	line := fmt.Sprintf("%-24s Vth = %s", c.model.Name,
		util.FormatValueFactor(c.result.ThresholdVoltage, "V"))
	if c.profile != nil && len(c.profile.Steps) > 1 {
		line += fmt.Sprintf("  tempco = %s/degC",
			util.FormatValueFactor(c.profile.TempCoVPerC, "V"))
	}
	fmt.Println(line)
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	rf := addRunFlags(fs)
	modelName := fs.String("model", "", "registered model name")
	fs.Parse(args)
	if *modelName == "" {
		log.Fatal("Usage: rilla run -model <name> [options]")
	}

	model, ok := loadRegistry(rf.configDir).Find(*modelName)
	if !ok {
		log.Fatalf("Model %q is not registered; see rilla list-models", *modelName)
	}

	ctx := context.Background()
	eng := rf.engine()
	s := rf.openStore()
	defer s.Close()

	c := characterize(ctx, eng, model, rf.options())
	saveOutcome(ctx, s, eng, c)
	if err := writeReports(rf.outDir, c); err != nil {
		log.Fatalf("Error writing reports: %v", err)
	}
	printOutcome(c)
	if c.err != nil {
		os.Exit(1)
	}
}

func cmdCompare(args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	rf := addRunFlags(fs)
	modelList := fs.String("models", "", "comma-separated registered model names")
	fs.Parse(args)
	if *modelList == "" {
		log.Fatal("Usage: rilla compare -models <a,b,c> [options]")
	}

	reg := loadRegistry(rf.configDir)
	var models []config.Model
	for _, name := range strings.Split(*modelList, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		model, ok := reg.Find(name)
		if !ok {
			log.Fatalf("Model %q is not registered; see rilla list-models", name)
		}
		models = append(models, model)
	}

	ctx := context.Background()
	eng := rf.engine()
	s := rf.openStore()
	defer s.Close()

	// Each model gets its own scratch directory, so runs are independent and
	// can proceed in parallel.
	outcomes := make([]characterization, len(models))
	var wg sync.WaitGroup
	for i, model := range models {
		wg.Add(1)
		go func(i int, model config.Model) {
			defer wg.Done()
			outcomes[i] = characterize(ctx, eng, model, rf.options())
		}(i, model)
	}
	wg.Wait()

	failed := false
	for _, c := range outcomes {
		saveOutcome(ctx, s, eng, c)
		if err := writeReports(rf.outDir, c); err != nil {
			log.Fatalf("Error writing reports: %v", err)
		}
		printOutcome(c)
		if c.err != nil {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func cmdHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	rf := addRunFlags(fs)
	modelName := fs.String("model", "", "filter by model name")
	limit := fs.Int("limit", 20, "maximum runs to show")
	fs.Parse(args)

	s := rf.openStore()
	defer s.Close()

	runs, err := s.ListRuns(context.Background(), *modelName, *limit)
	if err != nil {
		log.Fatalf("Error listing runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return
	}
	for _, r := range runs {
		when := r.CreatedAt.Local().Format("2006-01-02 15:04")
		if r.Status == store.StatusSuccess {
			fmt.Printf("%s  %s  %-24s %-8s Vth = %s\n", r.ID[:8], when,
				r.ModelName, r.Engine, util.FormatValueFactor(r.VthVolts, "V"))
		} else {
			fmt.Printf("%s  %s  %-24s %-8s FAILED: %s\n", r.ID[:8], when,
				r.ModelName, r.Engine, r.ErrorMessage)
		}
	}
}
