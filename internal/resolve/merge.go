package resolve

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/safetyiq/recall-cli/internal/model"
)

// MergeStore is the slice of the store the duplicate merge needs.
type MergeStore interface {
	FindDuplicateCompanyGroups(ctx context.Context) ([]model.DuplicateGroup, error)
	UpdateCompanyType(ctx context.Context, id uuid.UUID, t model.CompanyType) error
	MergeCompanyInto(ctx context.Context, dupID, survivorID uuid.UUID) error
}

// MergeResult summarizes one duplicate-merge maintenance run.
type MergeResult struct {
	Groups         int `json:"groups"`
	Merged         int `json:"merged"`
	TypePromotions int `json:"type_promotions"`
}

// MergeDuplicates collapses company rows sharing one name. The earliest
// row survives; if any duplicate carries the Manufacturer type the
// survivor is promoted to it, because manufacturer identity is the
// costlier fact to lose. All references are repointed before deletion.
func MergeDuplicates(ctx context.Context, st MergeStore) (*MergeResult, error) {
	groups, err := st.FindDuplicateCompanyGroups(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "merge: find duplicates")
	}

	result := &MergeResult{Groups: len(groups)}
	for _, g := range groups {
		survivor := g.IDs[0]

		finalType := model.TypeResellingFirm
		for _, t := range g.Types {
			if t == model.TypeManufacturer {
				finalType = model.TypeManufacturer
				break
			}
		}
		if g.Types[0] != finalType {
			if err := st.UpdateCompanyType(ctx, survivor, finalType); err != nil {
				return result, eris.Wrapf(err, "merge: promote type for %q", g.Name)
			}
			result.TypePromotions++
		}

		for _, dup := range g.IDs[1:] {
			if err := st.MergeCompanyInto(ctx, dup, survivor); err != nil {
				return result, eris.Wrapf(err, "merge: collapse %q", g.Name)
			}
			result.Merged++
		}

		zap.L().Info("merge: collapsed duplicate group",
			zap.String("name", g.Name),
			zap.Int("duplicates", len(g.IDs)-1),
			zap.String("final_type", string(finalType)),
		)
	}
	return result, nil
}
