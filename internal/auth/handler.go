package auth

import (
	"errors"
	"strings"

	"dinein-backend/internal/apperr"
	"dinein-backend/internal/config"
	"dinein-backend/internal/models"
	"dinein-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Name string `json:"name"`
	PIN  string `json:"pin"`
}

type CreateStaffRequest struct {
	Name string      `json:"name"`
	PIN  string      `json:"pin"`
	Role models.Role `json:"role"`
}

type StaffResponse struct {
	ID   uint        `json:"id"`
	Name string      `json:"name"`
	Role models.Role `json:"role"`
}

// CreateStaff stores a staff member with a bcrypt hash of the PIN.
func CreateStaff(db *gorm.DB, name, pin string, role models.Role) (*models.Staff, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if len(pin) < 4 {
		return nil, apperr.Validation("pin must be at least 4 characters")
	}
	if !role.Valid() || role == models.RoleCustomer {
		return nil, apperr.Validation("role must be waiter, kitchen or manager")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	staff := models.Staff{Name: name, PinHash: string(hash), Role: role}
	if err := db.Create(&staff).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.InvalidState("staff %q already exists", name)
		}
		return nil, store.Classify(err)
	}
	return &staff, nil
}

// EnsureDefaultManager creates the first manager when no staff exists yet and
// a PIN was configured.
func EnsureDefaultManager(db *gorm.DB, cfg *config.Config, log logrus.FieldLogger) error {
	if cfg.DefaultManagerPIN == "" {
		return nil
	}
	var count int64
	if err := db.Model(&models.Staff{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if _, err := CreateStaff(db, cfg.DefaultManagerName, cfg.DefaultManagerPIN, models.RoleManager); err != nil {
		return err
	}
	log.WithField("name", cfg.DefaultManagerName).Warn("Default manager created, change its PIN")
	return nil
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var staff models.Staff
		if err := db.Where("name = ?", strings.TrimSpace(body.Name)).First(&staff).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Unauthorized("wrong name or pin")
			}
			return store.Classify(err)
		}

		if err := bcrypt.CompareHashAndPassword([]byte(staff.PinHash), []byte(body.PIN)); err != nil {
			return apperr.Unauthorized("wrong name or pin")
		}

		token, err := GenerateToken(cfg.JWTSecret, &staff)
		if err != nil {
			return apperr.Internal(err)
		}

		return c.JSON(fiber.Map{
			"token": token,
			"staff": StaffResponse{ID: staff.ID, Name: staff.Name, Role: staff.Role},
		})
	}
}

// POST /api/manager/staff
func CreateStaffHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateStaffRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		staff, err := CreateStaff(db, body.Name, body.PIN, body.Role)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(StaffResponse{ID: staff.ID, Name: staff.Name, Role: staff.Role})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := ActorFrom(c)
		return c.JSON(fiber.Map{
			"staff_id": c.Locals(CtxStaffIDKey),
			"name":     actor.Name,
			"role":     actor.Role,
		})
	}
}
