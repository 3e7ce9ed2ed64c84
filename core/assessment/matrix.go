package assessment

import (
	"fmt"

	"github.com/kilianp07/erdispatch/core/model"
)

// ResourceMatrix lists the resources an incident needs per category and
// severity.
var ResourceMatrix = map[model.Category]map[model.Severity]model.ResourceRequirement{
	model.CategoryMedical: {
		model.SeverityHigh:   {"ambulances": 4, "paramedics": 8, "helicopter": 1},
		model.SeverityMedium: {"ambulances": 2, "paramedics": 4},
		model.SeverityLow:    {"ambulances": 1, "paramedics": 2},
	},
	model.CategoryFire: {
		model.SeverityHigh:   {"fireTrucks": 6, "firefighters": 24, "helicopter": 1},
		model.SeverityMedium: {"fireTrucks": 3, "firefighters": 12},
		model.SeverityLow:    {"fireTrucks": 1, "firefighters": 4},
	},
	model.CategoryPolice: {
		model.SeverityHigh:   {"policeCars": 8, "officers": 16, "helicopter": 1},
		model.SeverityMedium: {"policeCars": 4, "officers": 8},
		model.SeverityLow:    {"policeCars": 2, "officers": 4},
	},
}

// Requirements returns a copy of the matrix entry for c and s.
func Requirements(c model.Category, s model.Severity) (model.ResourceRequirement, error) {
	bySev, ok := ResourceMatrix[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidCategory, string(c))
	}
	req, ok := bySev[s]
	if !ok {
		return nil, fmt.Errorf("no resources defined for %s severity %q", c, s)
	}
	return req.Clone(), nil
}
