package warp

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"skywarp/pkg/exposure"
	"skywarp/pkg/skymap"
)

// AbsenceRecord explains why an output identity was not produced.
type AbsenceRecord struct {
	ID     OutputID
	Reason string
}

// Manifest is what one patch run reports back: every output identity
// produced, found already present, or absent with a reason. Its order
// is deterministic — visit group order times variant order.
type Manifest struct {
	Tract      int
	Patch      string
	Produced   []OutputID
	Present    []OutputID
	Absent     []AbsenceRecord
	EmptyInput bool
}

func (m Manifest)String() string {
	return fmt.Sprintf("tract %d patch %s: %d produced, %d present, %d absent",
		m.Tract, m.Patch, len(m.Produced), len(m.Present), len(m.Absent))
}

// Orchestrator drives whole patch runs: select candidates, filter to
// what the source can actually deliver, group into visits, skip what
// the sink already has, accumulate the rest, and persist.
type Orchestrator struct {
	cfg  Config
	sel  Selector
	src  Source
	acc  *Accumulator
	sink Sink
	log  *slog.Logger
}

// NewOrchestrator validates cfg (via the accumulator it builds) and
// wires the collaborators. A nil warper gets the production engine.
func NewOrchestrator(cfg Config, sel Selector, src Source, warper Warper, sink Sink, log *slog.Logger) (*Orchestrator, error) {
	if log == nil {
		log = slog.Default()
	}
	acc, err := NewAccumulator(cfg, src, warper, log)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{cfg: acc.cfg, sel: sel, src: src, acc: acc, sink: sink, log: log}, nil
}

// RunPatch produces every selected warp variant of every visit that
// covers the patch. An empty candidate list is a reported condition,
// not an error: the manifest comes back empty with EmptyInput set.
// Errors are reserved for configuration and infrastructure trouble;
// per-exposure and per-variant problems end up in the manifest and the
// log instead.
func (o *Orchestrator)RunPatch(patch skymap.PatchGeometry) (Manifest, error) {
	m := Manifest{Tract: patch.Tract, Patch: patch.Patch()}
	log := o.log.With("tract", patch.Tract, "patch", patch.Patch())

	refs, err := o.sel.Select(patch)
	if err != nil {
		return m, fmt.Errorf("select exposures: %w", err)
	}

	avail := []exposure.Ref{}
	for _, ref := range refs {
		if o.src.Exists(ref) {
			avail = append(avail, ref)
		} else {
			log.Warn("exposure missing from source, dropped", "ref", ref.String())
		}
	}

	groups, err := GroupExposures(avail)
	if err != nil {
		if errors.Is(err, ErrEmptyInput) {
			log.Warn("no usable exposures for patch", "candidates", len(refs))
			m.EmptyInput = true
			return m, nil
		}
		return m, err
	}
	log.Info("warping patch", "visits", len(groups), "exposures", len(avail), "config", o.cfg.String())

	// Pass 1: per visit, work out output identities and whether the
	// sink already has them. Skip-if-present: with overwriting off and
	// every requested variant already stored, the visit costs nothing —
	// no load, no warp, no write.
	type visitPlan struct {
		ids     map[Type]OutputID
		present map[Type]bool
		skip    bool
	}
	plans := make([]visitPlan, len(groups))
	toRun := []visitJob{}
	for gi, g := range groups {
		visitID := g.VisitID(gi)
		if g.Key.Visit <= 0 {
			log.Warn("exposures carry no visit id, using group position", "position", gi, "group", g.String())
		}
		plan := visitPlan{ids: map[Type]OutputID{}, present: map[Type]bool{}}
		for _, t := range o.cfg.Types() {
			plan.ids[t] = OutputID{Tract: patch.Tract, Patch: patch.Patch(), Visit: visitID, Type: t}
		}
		if !o.cfg.DoOverwrite {
			plan.skip = true
			for _, t := range o.cfg.Types() {
				have, err := o.sink.Exists(plan.ids[t])
				if err != nil {
					return m, fmt.Errorf("sink existence check for %s: %w", plan.ids[t], err)
				}
				plan.present[t] = have
				if !have {
					plan.skip = false
				}
			}
		}
		plans[gi] = plan
		if plan.skip {
			log.Info("outputs already present, skipping visit", "visit", visitID)
		} else {
			toRun = append(toRun, visitJob{Ordinal: gi, Group: g})
		}
	}

	// Pass 2: accumulate the visits that need computing.
	results := o.accumulateVisits(patch, toRun, len(groups))

	// Pass 3: persist and report, in group order.
	for gi, g := range groups {
		plan := plans[gi]
		if plan.skip {
			for _, t := range o.cfg.Types() {
				m.Present = append(m.Present, plan.ids[t])
			}
			continue
		}

		job := results[gi]
		if job.Err != nil {
			return m, fmt.Errorf("accumulate visit %d: %w", g.VisitID(gi), job.Err)
		}

		for _, t := range o.cfg.Types() {
			cv := job.Canvases[t]
			switch {
			case cv == nil:
				m.Absent = append(m.Absent, AbsenceRecord{ID: plan.ids[t], Reason: "no good pixels"})
			case plan.present[t]:
				// Recomputed because a sibling variant was missing, but
				// this one exists and overwriting is off.
				m.Present = append(m.Present, plan.ids[t])
			case o.cfg.DoWrite:
				if err := o.sink.Store(cv, plan.ids[t]); err != nil {
					log.Error("store failed", "id", plan.ids[t].String(), "err", err)
					m.Absent = append(m.Absent, AbsenceRecord{ID: plan.ids[t], Reason: fmt.Sprintf("store failed: %v", err)})
				} else {
					m.Produced = append(m.Produced, plan.ids[t])
				}
			default:
				m.Produced = append(m.Produced, plan.ids[t]) // computed, writing disabled
			}
		}
	}

	log.Info("patch done", "manifest", m.String())
	return m, nil
}

type visitJob struct {
	// Inputs for the job
	Ordinal int
	Group   VisitGroup

	// Outputs
	Canvases map[Type]*Canvas
	Err      error
}

// accumulateVisits runs the prepared jobs through the accumulator,
// fanning out across a worker pool when configured. The returned slice
// is indexed by group ordinal (total is the full group count), so
// parallel runs report in the same order as serial ones. Exposures
// within a visit always stay sequential; only whole visits run
// concurrently.
func (o *Orchestrator)accumulateVisits(patch skymap.PatchGeometry, jobs []visitJob, total int) []visitJob {
	out := make([]visitJob, total)

	if o.cfg.VisitParallelism <= 1 || len(jobs) <= 1 {
		for _, job := range jobs {
			job.Canvases, job.Err = o.acc.AccumulateVisit(patch, job.Group, job.Ordinal)
			out[job.Ordinal] = job
		}
		return out
	}

	var wg sync.WaitGroup
	jobsChan := make(chan visitJob, len(jobs))
	resultsChan := make(chan visitJob, len(jobs))

	nWorkers := o.cfg.VisitParallelism
	if nWorkers > len(jobs) {
		nWorkers = len(jobs)
	}
	for i := 0; i < nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobsChan {
				job.Canvases, job.Err = o.acc.AccumulateVisit(patch, job.Group, job.Ordinal)
				resultsChan <- job
			}
		}()
	}

	for _, job := range jobs {
		jobsChan <- job
	}
	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	for job := range resultsChan {
		out[job.Ordinal] = job
	}
	return out
}
