package bom

import (
	"context"
	"fmt"
)

// RepositoryPort abstracts read access to BOM headers for the services.
// Absence is reported through the boolean, never as an error.
type RepositoryPort interface {
	GetHeader(ctx context.Context, id int64) (Header, bool, error)
	GetActiveByMaterial(ctx context.Context, materialID int64) (Header, bool, error)
}

// Service validates and explodes bills of materials.
type Service struct {
	repo  RepositoryPort
	cache *Cache
}

// NewService builds Service. The cache is optional.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// ValidateNoCircularReference walks the component graph below the header
// and fails when any material reappears along its own ancestor chain.
// Sibling branches may legitimately share components, so the visited set
// is copied per branch rather than shared across the walk.
func (s *Service) ValidateNoCircularReference(ctx context.Context, headerID int64) error {
	header, ok, err := s.repo.GetHeader(ctx, headerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrHeaderNotFound
	}
	path := map[int64]struct{}{header.MaterialID: {}}
	return s.walkCycles(ctx, header, path)
}

func (s *Service) walkCycles(ctx context.Context, header Header, path map[int64]struct{}) error {
	for _, line := range header.Lines {
		if _, seen := path[line.ComponentMaterialID]; seen {
			return fmt.Errorf("%w: material %d appears in its own component chain", ErrCircularReference, line.ComponentMaterialID)
		}
		child, ok, err := s.repo.GetActiveByMaterial(ctx, line.ComponentMaterialID)
		if err != nil {
			return err
		}
		if !ok {
			// No BOM of its own: valid leaf.
			continue
		}
		branch := make(map[int64]struct{}, len(path)+1)
		for id := range path {
			branch[id] = struct{}{}
		}
		branch[line.ComponentMaterialID] = struct{}{}
		if err := s.walkCycles(ctx, child, branch); err != nil {
			return err
		}
	}
	return nil
}

// Explode expands the header into aggregated component requirements for
// producing requiredQty of the root material. Phantom components are
// exploded through; only real components appear in the result.
//
// Explode trusts the graph's acyclicity. Callers must run
// ValidateNoCircularReference first on any graph that can be edited
// between uses: a cyclic graph recurses without bound.
func (s *Service) Explode(ctx context.Context, headerID int64, requiredQty float64) (map[int64]*Requirement, error) {
	if requiredQty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if s.cache != nil {
		if unit, ok := s.cache.Fetch(ctx, headerID); ok {
			return scaleRequirements(unit, requiredQty), nil
		}
	}
	header, ok, err := s.repo.GetHeader(ctx, headerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeaderNotFound
	}
	out, err := s.explodeHeader(ctx, header, requiredQty)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Store(ctx, headerID, scaleRequirements(out, 1/requiredQty))
	}
	return out, nil
}

// ActiveHeader returns the active BOM currently producing the material.
func (s *Service) ActiveHeader(ctx context.Context, materialID int64) (Header, bool, error) {
	return s.repo.GetActiveByMaterial(ctx, materialID)
}

// ExplodeForMaterial explodes the currently active BOM producing the material.
func (s *Service) ExplodeForMaterial(ctx context.Context, materialID int64, requiredQty float64) (map[int64]*Requirement, error) {
	if requiredQty <= 0 {
		return nil, ErrInvalidQuantity
	}
	header, ok, err := s.repo.GetActiveByMaterial(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no active BOM for material %d", ErrHeaderNotFound, materialID)
	}
	return s.Explode(ctx, header.ID, requiredQty)
}

func (s *Service) explodeHeader(ctx context.Context, header Header, requiredQty float64) (map[int64]*Requirement, error) {
	base := header.BaseQuantity
	if base <= 0 {
		base = 1
	}
	out := make(map[int64]*Requirement)
	if err := s.explodeLines(ctx, header.Lines, requiredQty/base, 1, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) explodeLines(ctx context.Context, lines []Line, multiplier float64, level int, out map[int64]*Requirement) error {
	for _, line := range lines {
		effective := line.Quantity * (1 + line.ScrapFactor/100) * multiplier
		if line.IsPhantom {
			child, ok, err := s.repo.GetActiveByMaterial(ctx, line.ComponentMaterialID)
			if err != nil {
				return err
			}
			if !ok {
				// Phantom without a BOM contributes nothing.
				continue
			}
			if err := s.explodeLines(ctx, child.Lines, effective, level+1, out); err != nil {
				return err
			}
			continue
		}
		req := out[line.ComponentMaterialID]
		if req == nil {
			req = &Requirement{
				MaterialID:      line.ComponentMaterialID,
				UnitOfMeasureID: line.UnitOfMeasureID,
			}
			out[line.ComponentMaterialID] = req
		}
		req.TotalQuantity += effective
		req.Details = append(req.Details, RequirementDetail{Level: level, Quantity: effective})
	}
	return nil
}

func scaleRequirements(in map[int64]*Requirement, factor float64) map[int64]*Requirement {
	out := make(map[int64]*Requirement, len(in))
	for id, req := range in {
		scaled := &Requirement{
			MaterialID:      req.MaterialID,
			TotalQuantity:   req.TotalQuantity * factor,
			UnitOfMeasureID: req.UnitOfMeasureID,
			Details:         make([]RequirementDetail, len(req.Details)),
		}
		for i, d := range req.Details {
			scaled.Details[i] = RequirementDetail{Level: d.Level, Quantity: d.Quantity * factor}
		}
		out[id] = scaled
	}
	return out
}
