// Command voidfinder runs the void/supercluster pipeline over a tracer
// catalog. CLI and configuration loading sit outside the specification's
// core (they are listed as out-of-scope collaborators); this is thin
// scaffolding in the teacher's cmd/ style, grounded on
// cmd/deploy/main.go's flag-based subcommand dispatch.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/HAWinther/revolver-go/internal/config"
	"github.com/HAWinther/revolver-go/internal/monitoring"
	"github.com/HAWinther/revolver-go/internal/pipeline"
	sqlitestore "github.com/HAWinther/revolver-go/internal/storage/sqlite"
	"github.com/HAWinther/revolver-go/internal/tessellate"
	"github.com/HAWinther/revolver-go/internal/tracer"
)

const version = "0.1.0"

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	switch flag.Arg(0) {
	case "run":
		handleRun(flag.Args()[1:])
	case "version":
		fmt.Printf("voidfinder version %s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", flag.Arg(0))
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: voidfinder run [flags]")
	fmt.Fprintln(os.Stderr, "       voidfinder version")
	flag.PrintDefaults()
}

func handleRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	tracerFile := fs.String("tracers", "", "path to the tracer catalog (required)")
	tracerFormat := fs.String("format", "text", "tracer catalog format: text, binary, or fits")
	posnCols := fs.String("posn-cols", "0,1,2", "comma-separated column indices for the position columns (text/binary formats)")
	maskFile := fs.String("mask", "", "path to a HEALPix FITS mask (survey mode; synthesized if omitted)")
	configFile := fs.String("config", "", "path to a tuning config JSON file")
	workDir := fs.String("workdir", ".", "scratch directory for tessellation intermediates")
	handle := fs.String("handle", "voidfinder", "base name for scratch files")
	survey := fs.Bool("survey", false, "survey mode (RA/Dec/z input) instead of periodic box")
	boxL := fs.Float64("box-l", 0, "box side length (box mode)")
	boxDiv := fs.Int("box-div", 2, "box subdivision count for divided tessellation (box mode)")
	clusters := fs.Bool("clusters", false, "also find superclusters")
	zMin := fs.Float64("zmin", 0, "survey redshift lower bound")
	zMax := fs.Float64("zmax", 0, "survey redshift upper bound")
	dbPath := fs.String("db", "", "optional SQLite catalog database to record this run's structures into")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	if *tracerFile == "" {
		fmt.Fprintln(os.Stderr, "voidfinder: -tracers is required")
		os.Exit(2)
	}

	format, err := parseTracerFormat(*tracerFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voidfinder: %v\n", err)
		os.Exit(2)
	}
	cols, err := parsePosnCols(*posnCols)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voidfinder: %v\n", err)
		os.Exit(2)
	}

	tuning := config.EmptyConfig()
	if *configFile != "" {
		c, err := config.LoadConfig(*configFile)
		if err != nil {
			monitoring.Opsf("voidfinder: loading config: %v", err)
			os.Exit(1)
		}
		tuning = c
	}

	cfg := pipeline.Config{
		Survey:       *survey,
		WorkDir:      *workDir,
		HandleBase:   *handle,
		TracerFile:   *tracerFile,
		TracerFormat: format,
		PosnCols:     cols,
		MaskFile:     *maskFile,
		Tuning:       tuning,
		Cosmo:        flatLCDM{h0: 70, omegaM: 0.3},
		BoxL:         *boxL,
		BoxDiv:       *boxDiv,
		ZMin:         *zMin,
		ZMax:         *zMax,
		Runner:       &tessellate.ExecRunner{},
	}

	wantClusters := *clusters || tuning.GetClustersEnabled()
	p := pipeline.New(cfg)
	if err := p.Run(context.Background(), wantClusters); err != nil {
		monitoring.Opsf("voidfinder: run failed: %v", err)
		os.Exit(1)
	}

	if *dbPath != "" {
		if err := recordToCatalog(*dbPath, p); err != nil {
			monitoring.Opsf("voidfinder: recording to catalog: %v", err)
			os.Exit(1)
		}
	}
}

func parseTracerFormat(s string) (tracer.Format, error) {
	switch s {
	case "text":
		return tracer.FormatText, nil
	case "binary":
		return tracer.FormatBinaryTabular, nil
	case "fits":
		return tracer.FormatFITS, nil
	default:
		return 0, fmt.Errorf("unknown -format %q (want text, binary, or fits)", s)
	}
}

func parsePosnCols(s string) ([3]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return [3]int{}, fmt.Errorf("-posn-cols must have exactly 3 comma-separated indices, got %q", s)
	}
	var cols [3]int
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return [3]int{}, fmt.Errorf("-posn-cols: %q is not an integer", part)
		}
		cols[i] = v
	}
	return cols, nil
}

func recordToCatalog(dbPath string, p *pipeline.Pipeline) error {
	db, err := sqlitestore.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	run := sqlitestore.RunRecord{
		RunID:     p.State.RunID,
		StartedAt: time.Now().Unix(),
		BoxMode:   !p.Config.Survey,
		NTracers:  p.State.Table.NTracers,
		NMocks:    p.State.Table.NMocks,
		BoxSide:   p.State.BoxSide,
	}
	if err := db.InsertRun(run); err != nil {
		return err
	}

	rows := catalogRows(p.State.RunID, "void", p.State.VoidCentres, p.State.RhoGlobal)
	rows = append(rows, catalogRows(p.State.RunID, "cluster", p.State.ClusterCentres, p.State.RhoGlobal)...)
	if err := db.InsertStructures(rows); err != nil {
		return err
	}
	return db.FinishRun(p.State.RunID, time.Now().Unix())
}

func catalogRows(runID, kind string, centres []pipeline.StructureCentre, rhoGlobal float64) []sqlitestore.StructureRow {
	rows := make([]sqlitestore.StructureRow, len(centres))
	for i, c := range centres {
		densityRatio := 0.0
		if rhoGlobal > 0 {
			densityRatio = c.Structure.MeanDensity / rhoGlobal
		}
		rows[i] = sqlitestore.StructureRow{
			RunID:        runID,
			Kind:         kind,
			StructureID:  c.Structure.ID,
			CoreParticle: c.Structure.CoreParticle,
			CoreDensity:  c.Structure.CoreDensity,
			NPartsTotal:  c.Structure.NPartsTotal,
			VolumeTotal:  c.Structure.PhysicalVolume,
			MeanDensity:  c.Structure.MeanDensity,
			REff:         c.Derived.REff,
			ThetaEff:     c.Derived.ThetaEff,
			Lambda:       c.Derived.Lambda,
			DensityRatio: densityRatio,
			EdgeFlag:     c.EdgeFlag,
			X:            c.Position.X,
			Y:            c.Position.Y,
			Z:            c.Position.Z,
			RA:           c.Sky.RA,
			Dec:          c.Sky.Dec,
			Z3:           c.Sky.Redshift,
		}
	}
	return rows
}
