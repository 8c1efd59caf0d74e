package menu

import (
	"dinein-backend/internal/apperr"
	"dinein-backend/internal/models"
	"dinein-backend/internal/store"

	"gorm.io/gorm"
)

// Lookup loads a dish with its flavor rounds through tx, for callers that
// price or snapshot it inside their own transaction.
func Lookup(tx *gorm.DB, dishID uint) (*models.Dish, error) {
	var dish models.Dish
	if err := withFlavors(tx).First(&dish, dishID).Error; err != nil {
		return nil, store.NotFound(err, "dish %d not found", dishID)
	}
	return &dish, nil
}

// ResolveSelections checks that selections pick exactly one existing option
// for every round of dish and returns them in round order, ready to be stored
// as the item's flavor snapshot.
func ResolveSelections(dish *models.Dish, selections []models.FlavorChoice) ([]models.FlavorChoice, error) {
	byRound := make(map[string]string, len(selections))
	for _, sel := range selections {
		if _, dup := byRound[sel.Round]; dup {
			return nil, apperr.Validation("flavor round %q selected more than once", sel.Round)
		}
		byRound[sel.Round] = sel.Option
	}

	choices := make([]models.FlavorChoice, 0, len(dish.FlavorRounds))
	for _, r := range dish.FlavorRounds {
		option, ok := byRound[r.Name]
		if !ok {
			return nil, apperr.Validation("%s needs a choice for %q", dish.Name, r.Name)
		}
		if !r.HasOption(option) {
			return nil, apperr.Validation("%q is not an option of %q", option, r.Name)
		}
		choices = append(choices, models.FlavorChoice{Round: r.Name, Option: option})
		delete(byRound, r.Name)
	}
	for round := range byRound {
		return nil, apperr.Validation("%s has no flavor round %q", dish.Name, round)
	}
	return choices, nil
}
