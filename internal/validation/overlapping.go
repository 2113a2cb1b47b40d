package validation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/restoration-monitor/polyvalidate/internal/polygons"
)

// overlapEpsilon is the intersection area, in square degrees, at or below
// which two polygons are treated as merely touching.
const overlapEpsilon = 1e-10

// OverlapRecord describes one other polygon of the same project that overlaps
// the polygon under test.
type OverlapRecord struct {
	PolyUUID         uuid.UUID `json:"poly_uuid"`
	PolyName         *string   `json:"poly_name"`
	SiteName         *string   `json:"site_name"`
	Percentage       float64   `json:"percentage"`
	IntersectSmaller bool      `json:"intersectSmaller"`
	IntersectionArea float64   `json:"intersection_area"`
}

// Overlapping compares a polygon with every other active polygon of its
// project. Both search phases run inside one READ COMMITTED transaction.
type Overlapping struct {
	store  polygons.GeometryStore
	lookup polygons.EntityLookup
}

func NewOverlapping(store polygons.GeometryStore, lookup polygons.EntityLookup) *Overlapping {
	return &Overlapping{store: store, lookup: lookup}
}

func (v *Overlapping) ValidatePolygon(ctx context.Context, id uuid.UUID) (Result, error) {
	pc, err := v.lookup.Resolve(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if pc.Project == nil {
		return Result{}, fmt.Errorf("project of polygon %s: %w", id, ErrNotFound)
	}

	candidates, err := v.lookup.ActivePolygonIDsInProject(ctx, pc.Project.ID)
	if err != nil {
		return Result{}, err
	}
	found, err := v.search(ctx, []uuid.UUID{id}, candidates)
	if err != nil {
		return Result{}, err
	}
	return overlapResult(found[id]), nil
}

// ValidatePolygons resolves every id in one query, then runs one search per
// project.
func (v *Overlapping) ValidatePolygons(ctx context.Context, ids []uuid.UUID) ([]PolygonResult, error) {
	resolved, err := v.lookup.ResolveBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	var order []int64
	groups := make(map[int64][]uuid.UUID)
	for _, id := range ids {
		pc, ok := resolved[id]
		if !ok || pc.Project == nil {
			continue
		}
		pid := pc.Project.ID
		if _, seen := groups[pid]; !seen {
			order = append(order, pid)
		}
		if !containsID(groups[pid], id) {
			groups[pid] = append(groups[pid], id)
		}
	}

	found := make(map[uuid.UUID][]OverlapRecord)
	for _, pid := range order {
		candidates, err := v.lookup.ActivePolygonIDsInProject(ctx, pid)
		if err != nil {
			return nil, err
		}
		hits, err := v.search(ctx, groups[pid], candidates)
		if err != nil {
			return nil, err
		}
		for id, records := range hits {
			found[id] = records
		}
	}

	out := make([]PolygonResult, 0, len(ids))
	for _, id := range ids {
		pc, ok := resolved[id]
		switch {
		case !ok:
			out = append(out, errorResult(id, "active site polygon not found"))
		case pc.Project == nil:
			out = append(out, errorResult(id, "polygon has no project association"))
		default:
			out = append(out, polygonResult(id, overlapResult(found[id])))
		}
	}
	return out, nil
}

// search runs the envelope prefilter and the exact intersection pass in one
// transaction and returns the overlaps found per target.
func (v *Overlapping) search(ctx context.Context, targets, candidates []uuid.UUID) (map[uuid.UUID][]OverlapRecord, error) {
	out := make(map[uuid.UUID][]OverlapRecord)
	if len(targets) == 0 || len(candidates) == 0 {
		return out, nil
	}

	err := v.store.ReadCommitted(ctx, func(q polygons.SpatialQueries) error {
		pairs, err := q.EnvelopeIntersections(ctx, targets, candidates)
		if err != nil {
			return err
		}
		if len(pairs) == 0 {
			return nil
		}

		var narrowedTargets, narrowedCandidates []uuid.UUID
		for _, p := range pairs {
			if !containsID(narrowedTargets, p.TargetID) {
				narrowedTargets = append(narrowedTargets, p.TargetID)
			}
			if !containsID(narrowedCandidates, p.CandidateID) {
				narrowedCandidates = append(narrowedCandidates, p.CandidateID)
			}
		}

		hits, err := q.Intersections(ctx, narrowedTargets, narrowedCandidates)
		if err != nil {
			return err
		}
		for _, h := range hits {
			if h.TargetID == h.CandidateID || h.IntersectionArea <= overlapEpsilon {
				continue
			}
			out[h.TargetID] = append(out[h.TargetID], overlapRecord(h))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for id := range out {
		records := out[id]
		sort.Slice(records, func(i, j int) bool {
			return records[i].PolyUUID.String() < records[j].PolyUUID.String()
		})
	}
	return out, nil
}

func overlapRecord(h polygons.Intersection) OverlapRecord {
	pct := 100.0
	if smaller := math.Min(h.TargetArea, h.CandidateArea); smaller > 0 {
		pct = round(h.IntersectionArea/smaller*100, 2)
	}
	return OverlapRecord{
		PolyUUID:         h.CandidateID,
		PolyName:         h.CandidateName,
		SiteName:         h.SiteName,
		Percentage:       pct,
		IntersectSmaller: h.CandidateArea < h.TargetArea,
		IntersectionArea: h.IntersectionArea,
	}
}

func overlapResult(records []OverlapRecord) Result {
	if len(records) == 0 {
		return Result{Valid: true}
	}
	return Result{Valid: false, ExtraInfo: records}
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
