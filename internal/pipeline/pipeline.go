// Package pipeline is the composition root for the void/supercluster
// finder: an immutable Config built once at start plus a mutable State
// record carrying the tracer table, derived counts, and scratch file
// paths, per spec §9's design note on replacing the original's one
// long-lived mutable object.
package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/HAWinther/revolver-go/internal/buffer"
	"github.com/HAWinther/revolver-go/internal/centre"
	"github.com/HAWinther/revolver-go/internal/config"
	"github.com/HAWinther/revolver-go/internal/healpix"
	"github.com/HAWinther/revolver-go/internal/monitoring"
	"github.com/HAWinther/revolver-go/internal/reweight"
	"github.com/HAWinther/revolver-go/internal/selection"
	"github.com/HAWinther/revolver-go/internal/skygeom"
	"github.com/HAWinther/revolver-go/internal/tessellate"
	"github.com/HAWinther/revolver-go/internal/tracer"
	"github.com/HAWinther/revolver-go/internal/watershed"
)

// Config is the immutable record constructed once at pipeline start (spec
// §9).
type Config struct {
	Survey       bool // false = box mode
	WorkDir      string
	HandleBase   string
	TracerFile   string
	TracerFormat tracer.Format // text, binary-tabular, or FITS (spec §4.A)
	PosnCols     [3]int        // position column selection for text/binary-tabular input
	MaskFile     string        // empty: synthesize a mask (spec §7 recoverable-config)

	Tuning *config.PipelineConfig
	Cosmo  skygeom.Cosmology // required in survey mode; unused in box mode

	BoxL   float64 // box-mode side length, known upfront
	BoxDiv int     // vozinit box_div parameter

	ZMin, ZMax float64 // survey mode redshift limits requested by the user

	Runner tessellate.Runner
}

// State is the mutable record threaded through a run: tracer table,
// derived geometric quantities, and scratch file handles (spec §9).
type State struct {
	RunID string

	Table     *tracer.Table
	Mask      *healpix.Mask
	Boundary  *healpix.Boundary
	Selection *selection.Function

	BoxSide     float64
	RNear, RFar float64

	Handle tessellate.Handle

	RawVol   []float64
	EdgeMask []bool

	Voids    []watershed.Structure
	Clusters []watershed.Structure

	VoidCentres    []StructureCentre
	ClusterCentres []StructureCentre
	RhoGlobal      float64
}

// Pipeline orchestrates one end-to-end run (spec §9 A -> (B,C,D) -> E ->
// A' -> F -> G -> H -> I). Stages run to completion and write their
// outputs to disk before the next reads them (spec §5): single-threaded
// cooperative by stage, with the tessellation subprocess as the only
// external concurrency, awaited synchronously by the Driver.
type Pipeline struct {
	Config Config
	State  State
}

// New constructs a Pipeline with a fresh run id.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		Config: cfg,
		State:  State{RunID: uuid.NewString()},
	}
}

// Run executes the full pipeline for the given tracer class selection
// (clusters requested in addition to voids).
func (p *Pipeline) Run(ctx context.Context, clusters bool) error {
	monitoring.Opsf("pipeline: run %s starting (survey=%v)", p.State.RunID, p.Config.Survey)

	if err := p.loadTracers(); err != nil {
		return err
	}
	if p.Config.Survey {
		if err := p.buildSkyAuxiliaries(); err != nil {
			return err
		}
	}
	if err := p.synthesizeBuffers(); err != nil {
		return err
	}
	if err := p.runTessellation(ctx, clusters); err != nil {
		return err
	}
	if p.Config.Survey {
		if err := p.reweightVolumes(clusters); err != nil {
			return err
		}
	} else {
		if err := p.loadRawVolumesUnweighted(); err != nil {
			return err
		}
	}
	if err := p.runWatershed(clusters); err != nil {
		return err
	}
	if err := p.extractCentres(clusters); err != nil {
		return err
	}

	monitoring.Opsf("pipeline: run %s complete: %d voids, %d clusters", p.State.RunID, len(p.State.Voids), len(p.State.Clusters))
	return nil
}

// loadTracers implements Component A: load, deduplicate (survey mode),
// and convert to Cartesian.
func (p *Pipeline) loadTracers() error {
	mode := tracer.ModeBox
	if p.Config.Survey {
		mode = tracer.ModeSurvey
	}
	posnCols := p.Config.PosnCols
	if posnCols == ([3]int{}) {
		posnCols = tracer.DefaultPosnCols
	}
	t, err := tracer.Load(p.Config.TracerFile, p.Config.TracerFormat, posnCols, mode)
	if err != nil {
		return fmt.Errorf("pipeline: fatal-input: loading tracers: %w", err)
	}

	if p.Config.Survey {
		removed, err := t.DedupeExact()
		if err != nil {
			return fmt.Errorf("pipeline: deduping tracers: %w", err)
		}
		if removed > 0 {
			monitoring.Opsf("pipeline: dropped %d duplicate tracer(s)", removed)
		}
		for i := 0; i < t.NTracers; i++ {
			x, y, z := skygeom.RadecZToXYZ(t.RA[i], t.Dec[i], t.Redshift[i], p.Config.Cosmo)
			t.X[i], t.Y[i], t.Z[i] = x, y, z
		}
	}

	p.State.Table = t
	return nil
}

// buildSkyAuxiliaries implements Components B/C/D for survey mode: sky
// geometry is folded into loadTracers; this builds the mask, boundary,
// and selection function.
func (p *Pipeline) buildSkyAuxiliaries() error {
	t := p.State.Table
	nside := p.Config.Tuning.GetMaskNSide()

	var mask *healpix.Mask
	if p.Config.MaskFile != "" {
		m, err := healpix.ReadMaskFITS(p.Config.MaskFile)
		if err != nil {
			monitoring.Opsf("pipeline: recoverable-config: missing or unreadable mask file, synthesizing at nside=%d", nside)
			m, _ = healpix.SynthesizeMask(t.RA[:t.NTracers], t.Dec[:t.NTracers], nside)
		}
		mask = m
	} else {
		m, _ := healpix.SynthesizeMask(t.RA[:t.NTracers], t.Dec[:t.NTracers], nside)
		mask = m
		maskPath := p.Config.WorkDir + "/" + p.Config.HandleBase + "_mask.fits"
		if err := healpix.WriteMaskFITS(maskPath, m); err != nil {
			monitoring.Opsf("pipeline: writing synthesized mask: %v", err)
		}
	}
	p.State.Mask = mask
	p.State.Boundary = healpix.FindBoundary(mask, 0)

	rMin, rMax := comovingRange(t, p.Config.Cosmo)
	nTracers := t.NTracers
	fSky := mask.FSky()
	p.State.Selection = selection.Compute(t.Redshift[:nTracers], rMin, rMax, p.Config.Tuning.GetSelectionBins(), fSky, p.Config.Cosmo)

	return nil
}

func comovingRange(t *tracer.Table, cosmo skygeom.Cosmology) (rMin, rMax float64) {
	rMin, rMax = math.Inf(1), 0
	for i := 0; i < t.NTracers; i++ {
		r := cosmo.ComovingDistance(t.Redshift[i])
		if r < rMin {
			rMin = r
		}
		if r > rMax {
			rMax = r
		}
	}
	return rMin, rMax
}

// synthesizeBuffers implements Component E, then shifts everything into
// box coordinates and writes the tessellation input and sample-info
// files (Component A').
func (p *Pipeline) synthesizeBuffers() error {
	t := p.State.Table

	rhoTracer := estimateTracerDensity(t, p.Config)

	var boxSide float64
	if p.Config.Survey {
		bp := &buffer.Params{
			Eta:       p.Config.Tuning.GetBufferDensityFactor(),
			RhoTracer: rhoTracer,
			ZMin:      p.Config.ZMin,
			ZMax:      p.Config.ZMax,
			Mask:      p.State.Mask,
			Cosmo:     p.Config.Cosmo,
		}
		zMin, zMax := redshiftRange(t)
		L, res := buffer.Synthesize(t, bp, p.State.Boundary, zMin, zMax)
		boxSide = L
		p.State.RNear, p.State.RFar = res.RNear, res.RFar
		monitoring.Diagf("pipeline: buffers high=%d low=%d boundary=%d guards=%d", res.NHighCap, res.NLowCap, res.NBoundary, res.NGuards)
	} else {
		boxSide = p.Config.BoxL
		if boxSide <= 0 {
			return fmt.Errorf("pipeline: fatal-input: box mode requires a positive L")
		}
		t.WrapPeriodic(boxSide)
	}
	p.State.BoxSide = boxSide

	p.State.Handle = tessellate.Handle{Dir: p.Config.WorkDir, Base: p.Config.HandleBase}
	posPath := p.State.Handle.Dir + "/" + p.State.Handle.Base + "_pos.dat"
	if err := t.WriteBinary(posPath); err != nil {
		return fmt.Errorf("pipeline: writing tessellation input: %w", err)
	}

	info := SampleInfo{
		Handle:   p.State.Handle.Base,
		Survey:   p.Config.Survey,
		NTracers: t.NTracers,
		NMocks:   t.NMocks,
		BoxSide:  boxSide,
		RNear:    p.State.RNear,
		RFar:     p.State.RFar,
		RunID:    p.State.RunID,
	}
	if err := info.Write(p.State.Handle.Dir + "/" + p.State.Handle.Base + ".sample_info"); err != nil {
		return fmt.Errorf("pipeline: writing sample-info: %w", err)
	}
	return nil
}

func estimateTracerDensity(t *tracer.Table, cfg Config) float64 {
	if cfg.Survey {
		rMin, rMax := comovingRange(t, cfg.Cosmo)
		vol := 4.0 / 3.0 * math.Pi * (rMax*rMax*rMax - rMin*rMin*rMin)
		if vol <= 0 {
			return 0
		}
		return float64(t.NTracers) / vol
	}
	if cfg.BoxL <= 0 {
		return 0
	}
	return float64(t.NTracers) / (cfg.BoxL * cfg.BoxL * cfg.BoxL)
}

func redshiftRange(t *tracer.Table) (zMin, zMax float64) {
	zMin, zMax = math.Inf(1), math.Inf(-1)
	for i := 0; i < t.NTracers; i++ {
		if t.Redshift[i] < zMin {
			zMin = t.Redshift[i]
		}
		if t.Redshift[i] > zMax {
			zMax = t.Redshift[i]
		}
	}
	return zMin, zMax
}

// runTessellation implements Component F.
func (p *Pipeline) runTessellation(ctx context.Context, clusters bool) error {
	driver := tessellate.NewDriver(p.Config.Runner)
	posPath := p.State.Handle.Dir + "/" + p.State.Handle.Base + "_pos.dat"

	if p.Config.Survey {
		ip := tessellate.IsolatedParams{
			PosnFile: posPath,
			Handle:   p.State.Handle,
			L:        p.State.BoxSide,
			NTracers: p.State.Table.NTracers,
		}
		if err := driver.RunIsolated(ctx, ip, clusters); err != nil {
			return fmt.Errorf("pipeline: fatal-tessellation: %w", err)
		}
		return nil
	}

	dp := tessellate.DividedParams{
		PosnFile:   posPath,
		Handle:     p.State.Handle,
		L:          p.State.BoxSide,
		BufferFrac: 0.1,
		BoxDiv:     p.Config.BoxDiv,
	}
	if err := driver.RunDivided(ctx, dp, p.State.Table.NTracers, p.State.Table.NMocks, clusters); err != nil {
		return fmt.Errorf("pipeline: fatal-tessellation: %w", err)
	}
	return nil
}

// reweightVolumes implements Component G (survey mode only).
func (p *Pipeline) reweightVolumes(clusters bool) error {
	n, vols, err := tessellate.ReadVol(p.State.Handle.VolPath())
	if err != nil {
		return fmt.Errorf("pipeline: reading %s: %w", p.State.Handle.VolPath(), err)
	}

	rp := reweight.Params{
		RhoTracer: estimateTracerDensity(p.State.Table, p.Config),
		L:         p.State.BoxSide,
		NTotal:    p.State.Table.NTotal(),
	}
	if p.Config.Tuning.GetApplyZWeights() && p.State.Selection != nil {
		rp.ApplyZWeights = true
		rp.SelectionZ = p.State.Selection.ZValues()
		rp.SelectionF = p.State.Selection.FValues()
		rp.TracerZ = p.State.Table.Redshift[:n]
	}
	if p.Config.Tuning.GetApplyAngularWeights() && p.State.Mask != nil {
		rp.ApplyAngularWeights = true
		rp.Mask = p.State.Mask
		rp.TracerRA = p.State.Table.RA[:n]
		rp.TracerDec = p.State.Table.Dec[:n]
	}

	rw := &reweight.Reweighter{}
	res, err := rw.Apply(vols, rp)
	if err != nil {
		return fmt.Errorf("pipeline: fatal-numeric: %w", err)
	}
	if err := tessellate.WriteVol(p.State.Handle.VolPath(), res.Volumes); err != nil {
		return fmt.Errorf("pipeline: writing reweighted volumes: %w", err)
	}
	if clusters {
		clusterVols := reweight.ClusterVolumes(res.Volumes, res.EdgeMask)
		if err := tessellate.WriteVol(p.State.Handle.ClusterVolPath(), clusterVols); err != nil {
			return fmt.Errorf("pipeline: writing cluster volumes: %w", err)
		}
	}

	p.State.RawVol = res.Volumes
	p.State.EdgeMask = res.EdgeMask
	return nil
}

// loadRawVolumesUnweighted reads handle.vol directly for box mode, where
// reweighting (Component G) does not apply (spec §4.G header: "survey
// mode only").
func (p *Pipeline) loadRawVolumesUnweighted() error {
	_, vols, err := tessellate.ReadVol(p.State.Handle.VolPath())
	if err != nil {
		return fmt.Errorf("pipeline: reading %s: %w", p.State.Handle.VolPath(), err)
	}
	edgeMask := make([]bool, len(vols))
	for i, v := range vols {
		edgeMask[i] = v == reweight.EdgeRawValue
	}
	p.State.RawVol = vols
	p.State.EdgeMask = edgeMask
	return nil
}

// runWatershed implements Component H for voids and, if requested,
// clusters.
func (p *Pipeline) runWatershed(clusters bool) error {
	info, err := ReadSampleInfo(p.State.Handle.Dir + "/" + p.State.Handle.Base + ".sample_info")
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := info.ValidateAgainstTable(p.State.Table.NTracers, p.State.Table.NMocks); err != nil {
		return fmt.Errorf("pipeline: fatal-consistency: %w", err)
	}

	zoneToTracers, err := watershed.ParseZoneFile(p.State.Handle.ZonePath())
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	density := make([]float64, len(p.State.RawVol))
	for i, v := range p.State.RawVol {
		if v > 0 {
			density[i] = 1.0 / v
		}
	}

	voidCands, err := watershed.ParseListfile(p.State.Handle.ListPath("v"))
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := watershed.ParseHierarchy(p.State.Handle.VoidPath("void"), voidCands); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	voidParams := watershed.Params{
		MinDensCut:    p.Config.Tuning.GetVoidMinDensCut(),
		MinNum:        p.Config.Tuning.GetVoidMinNum(),
		CountAllVoids: p.Config.Tuning.GetCountAllVoids(),
	}
	voids, err := watershed.Process(watershed.Voids, voidCands, voidParams, zoneToTracers, p.State.RawVol, density, p.State.BoxSide, p.State.Table.NTotal())
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	p.State.Voids = voids

	if clusters {
		clusterCands, err := watershed.ParseListfile(p.State.Handle.ListPath("c"))
		if err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		if err := watershed.ParseHierarchy(p.State.Handle.VoidPath("cvoid"), clusterCands); err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		clusterParams := watershed.Params{
			MaxDensCut: p.Config.Tuning.GetClusterMaxDensCut(),
			MinNum:     p.Config.Tuning.GetClusterMinNum(),
		}
		cl, err := watershed.Process(watershed.Clusters, clusterCands, clusterParams, zoneToTracers, p.State.RawVol, density, p.State.BoxSide, p.State.Table.NTotal())
		if err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		p.State.Clusters = cl
	}
	return nil
}

// extractCentres implements Component I, run unconditionally after
// watershed post-processing: circumcentre for voids, max-density
// position for clusters, plus derived R_eff/theta_eff/lambda. The void
// barycentre (centre.VoidBarycentre) is not computed here.
func (p *Pipeline) extractCentres(clusters bool) error {
	adj, err := tessellate.ReadAdjacency(p.State.Handle.AdjPath())
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	rhoGlobal := estimateTracerDensity(p.State.Table, p.Config)
	p.State.RhoGlobal = rhoGlobal

	p.State.VoidCentres = p.ExtractCentres(watershed.Voids, p.State.Voids, adj, rhoGlobal)
	if clusters {
		p.State.ClusterCentres = p.ExtractCentres(watershed.Clusters, p.State.Clusters, adj, rhoGlobal)
	}
	return nil
}

// ExtractCentres implements Component I for every surviving structure of
// the given kind, returning positions and derived fields. adj is the
// tessellator's adjacency list; rhoGlobal is the survey/box mean density
// used to normalize lambda (spec §3).
func (p *Pipeline) ExtractCentres(kind watershed.Kind, structures []watershed.Structure, adj centre.Adjacency, rhoGlobal float64) []StructureCentre {
	t := p.State.Table
	positions := make([]centre.Position, t.NTotal())
	for i := 0; i < t.NTotal(); i++ {
		positions[i] = centre.Position{X: t.X[i], Y: t.Y[i], Z: t.Z[i]}
	}
	density := make([]float64, len(p.State.RawVol))
	for i, v := range p.State.RawVol {
		if v > 0 {
			density[i] = 1.0 / v
		}
	}

	out := make([]StructureCentre, len(structures))
	shapeExp := centre.VoidShapeExponent
	if kind == watershed.Clusters {
		shapeExp = centre.ClusterShapeExponent
	}

	for i, s := range structures {
		var pos centre.Position
		edgeFlag := s.EdgeFlag
		if kind == watershed.Voids {
			res := centre.VoidCircumcentre(s.CoreParticle, adj, density, positions)
			pos = res.Position
			if res.EdgeFlag == centre.EdgeFlagDegenerate {
				edgeFlag = centre.EdgeFlagDegenerate
			}
		} else {
			pos = centre.ClusterCentre(positions, s.CoreParticle)
		}

		var sky centre.SurveySkyResult
		if p.Config.Survey {
			sky = centre.ToSurveySky(pos, p.State.BoxSide, p.State.RNear, p.State.RFar, p.Config.Cosmo, p.State.Mask.At)
			if sky.EdgeFlag == centre.EdgeFlagDegenerate {
				edgeFlag = centre.EdgeFlagDegenerate
			}
		}

		derived := centre.ComputeDerivedFields(s.PhysicalVolume, s.MeanDensity, rhoGlobal, sky.R, shapeExp, p.Config.Survey)

		out[i] = StructureCentre{
			Structure: s,
			Position:  pos,
			Sky:       sky,
			Derived:   derived,
			EdgeFlag:  edgeFlag,
		}
	}
	return out
}

// StructureCentre bundles a watershed.Structure with its extracted
// centre and derived geometric fields.
type StructureCentre struct {
	Structure watershed.Structure
	Position  centre.Position
	Sky       centre.SurveySkyResult
	Derived   centre.DerivedFields
	EdgeFlag  int
}
