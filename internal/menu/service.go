// Package menu is the dish catalog: dishes, their flavor rounds and options,
// and availability.
package menu

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"dinein-backend/internal/apperr"
	"dinein-backend/internal/audit"
	"dinein-backend/internal/models"
	"dinein-backend/internal/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const minOptionsPerRound = 2

type Service struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewService(db *gorm.DB, log logrus.FieldLogger) *Service {
	return &Service{db: db, log: log}
}

type ListFilter struct {
	AvailableOnly bool
	Category      models.DishCategory
}

type RoundInput struct {
	SequenceNumber int      `json:"sequence_number"` // 0: append after the last round
	Name           string   `json:"name"`
	Options        []string `json:"options"`
}

type CreateInput struct {
	Name         string              `json:"name"`
	Category     models.DishCategory `json:"category"`
	Price        decimal.Decimal     `json:"price"`
	FlavorRounds []RoundInput        `json:"flavor_rounds"`
}

// withFlavors preloads rounds in sequence order and options in insertion order.
func withFlavors(db *gorm.DB) *gorm.DB {
	return db.
		Preload("FlavorRounds", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_number ASC")
		}).
		Preload("FlavorRounds.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
}

// List returns dishes with their flavor rounds, in menu category order then
// by id.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Dish, error) {
	q := withFlavors(s.db.WithContext(ctx)).Model(&models.Dish{})
	if f.AvailableOnly {
		q = q.Where("is_available = ?", true)
	}
	if f.Category != "" {
		if !f.Category.Valid() {
			return nil, apperr.Validation("unknown category %q", f.Category)
		}
		q = q.Where("category = ?", f.Category)
	}

	var dishes []models.Dish
	if err := q.Order("id ASC").Find(&dishes).Error; err != nil {
		return nil, store.Classify(err)
	}

	sort.SliceStable(dishes, func(i, j int) bool {
		return dishes[i].Category.Rank() < dishes[j].Category.Rank()
	})
	return dishes, nil
}

func (s *Service) Get(ctx context.Context, dishID uint) (*models.Dish, error) {
	var dish models.Dish
	if err := withFlavors(s.db.WithContext(ctx)).First(&dish, dishID).Error; err != nil {
		return nil, store.Classify(store.NotFound(err, "dish %d not found", dishID))
	}
	return &dish, nil
}

// Flavors returns the rounds of a dish with their options.
func (s *Service) Flavors(ctx context.Context, dishID uint) ([]models.FlavorRound, error) {
	dish, err := s.Get(ctx, dishID)
	if err != nil {
		return nil, err
	}
	return dish.FlavorRounds, nil
}

// Create adds an available dish. Rounds given here are numbered 1..n in order.
func (s *Service) Create(ctx context.Context, actor audit.Actor, in CreateInput) (*models.Dish, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperr.Validation("dish name is required")
	}
	if !in.Category.Valid() {
		return nil, apperr.Validation("unknown category %q", in.Category)
	}
	if in.Price.IsNegative() {
		return nil, apperr.Validation("price must not be negative")
	}
	seen := make(map[string]bool, len(in.FlavorRounds))
	for i := range in.FlavorRounds {
		if err := normalizeRound(&in.FlavorRounds[i]); err != nil {
			return nil, err
		}
		if seen[in.FlavorRounds[i].Name] {
			return nil, apperr.Validation("flavor round %q given twice", in.FlavorRounds[i].Name)
		}
		seen[in.FlavorRounds[i].Name] = true
	}

	dish := models.Dish{
		Name:        in.Name,
		Category:    in.Category,
		Price:       in.Price.Round(2),
		IsAvailable: true,
	}

	err := store.Tx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Omit("FlavorRounds").Create(&dish).Error; err != nil {
			return err
		}
		for i, r := range in.FlavorRounds {
			round, err := insertRound(tx, dish.ID, i+1, r)
			if err != nil {
				return err
			}
			dish.FlavorRounds = append(dish.FlavorRounds, *round)
		}

		return audit.Write(tx, audit.Entry{
			Actor:       actor,
			EntityType:  "dish",
			EntityID:    dish.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Dish %s created", dish.Name),
			After:       dish,
		})
	})
	if err != nil {
		return nil, err
	}

	if dish.FlavorRounds == nil {
		dish.FlavorRounds = []models.FlavorRound{}
	}
	s.log.WithFields(logrus.Fields{"dish_id": dish.ID, "category": dish.Category}).Info("Dish created")
	return &dish, nil
}

// AttachFlavorRound adds a round with at least two options to a dish.
func (s *Service) AttachFlavorRound(ctx context.Context, actor audit.Actor, dishID uint, in RoundInput) (*models.FlavorRound, error) {
	if err := normalizeRound(&in); err != nil {
		return nil, err
	}

	var round *models.FlavorRound
	err := store.Tx(ctx, s.db, func(tx *gorm.DB) error {
		var dish models.Dish
		if err := store.ForUpdate(tx).First(&dish, dishID).Error; err != nil {
			return store.NotFound(err, "dish %d not found", dishID)
		}

		var existing []models.FlavorRound
		if err := tx.Where("dish_id = ?", dishID).Find(&existing).Error; err != nil {
			return err
		}
		seq := in.SequenceNumber
		if seq == 0 {
			for _, r := range existing {
				if r.SequenceNumber > seq {
					seq = r.SequenceNumber
				}
			}
			seq++
		}
		for _, r := range existing {
			if r.SequenceNumber == seq {
				return apperr.InvalidState("dish %d already has flavor round %d", dishID, seq)
			}
			if r.Name == in.Name {
				return apperr.InvalidState("dish %d already has a flavor round named %q", dishID, in.Name)
			}
		}

		var err error
		round, err = insertRound(tx, dishID, seq, in)
		if err != nil {
			return err
		}

		return audit.Write(tx, audit.Entry{
			Actor:       actor,
			EntityType:  "dish",
			EntityID:    dishID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Flavor round %s added to %s", round.Name, dish.Name),
			After:       round,
		})
	})
	if err != nil {
		return nil, err
	}
	return round, nil
}

// Delist removes a dish with its rounds and options. Order items keep their
// own snapshot of the dish.
func (s *Service) Delist(ctx context.Context, actor audit.Actor, dishID uint) error {
	err := store.Tx(ctx, s.db, func(tx *gorm.DB) error {
		var dish models.Dish
		if err := withFlavors(store.ForUpdate(tx)).First(&dish, dishID).Error; err != nil {
			return store.NotFound(err, "dish %d not found", dishID)
		}

		roundIDs := make([]uint, 0, len(dish.FlavorRounds))
		for _, r := range dish.FlavorRounds {
			roundIDs = append(roundIDs, r.ID)
		}
		if len(roundIDs) > 0 {
			if err := tx.Where("round_id IN ?", roundIDs).Delete(&models.FlavorOption{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", roundIDs).Delete(&models.FlavorRound{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.Dish{}, dishID).Error; err != nil {
			return err
		}

		return audit.Write(tx, audit.Entry{
			Actor:       actor,
			EntityType:  "dish",
			EntityID:    dishID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Dish %s delisted", dish.Name),
			Before:      dish,
		})
	})
	if err != nil {
		return err
	}

	s.log.WithField("dish_id", dishID).Info("Dish delisted")
	return nil
}

// SetAvailability takes a dish off the menu or puts it back without deleting
// it.
func (s *Service) SetAvailability(ctx context.Context, actor audit.Actor, dishID uint, available bool) (*models.Dish, error) {
	err := store.Tx(ctx, s.db, func(tx *gorm.DB) error {
		var dish models.Dish
		if err := store.ForUpdate(tx).First(&dish, dishID).Error; err != nil {
			return store.NotFound(err, "dish %d not found", dishID)
		}
		if dish.IsAvailable == available {
			return nil
		}
		if err := tx.Model(&models.Dish{}).Where("id = ?", dishID).Update("is_available", available).Error; err != nil {
			return err
		}

		return audit.Write(tx, audit.Entry{
			Actor:       actor,
			EntityType:  "dish",
			EntityID:    dishID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Dish %s availability set to %t", dish.Name, available),
			Before:      map[string]any{"is_available": dish.IsAvailable},
			After:       map[string]any{"is_available": available},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, dishID)
}

func normalizeRound(in *RoundInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperr.Validation("flavor round name is required")
	}
	if in.SequenceNumber < 0 {
		return apperr.Validation("sequence number must not be negative")
	}
	if len(in.Options) < minOptionsPerRound {
		return apperr.Validation("flavor round %q needs at least %d options", in.Name, minOptionsPerRound)
	}
	seen := make(map[string]bool, len(in.Options))
	for i, o := range in.Options {
		o = strings.TrimSpace(o)
		if o == "" {
			return apperr.Validation("flavor round %q has an empty option", in.Name)
		}
		if seen[o] {
			return apperr.Validation("flavor round %q lists option %q twice", in.Name, o)
		}
		seen[o] = true
		in.Options[i] = o
	}
	return nil
}

func insertRound(tx *gorm.DB, dishID uint, seq int, in RoundInput) (*models.FlavorRound, error) {
	round := models.FlavorRound{DishID: dishID, SequenceNumber: seq, Name: in.Name}
	if err := tx.Omit("Options").Create(&round).Error; err != nil {
		return nil, err
	}

	round.Options = make([]models.FlavorOption, len(in.Options))
	for i, name := range in.Options {
		round.Options[i] = models.FlavorOption{RoundID: round.ID, Name: name}
	}
	if err := tx.Create(&round.Options).Error; err != nil {
		return nil, err
	}
	return &round, nil
}
