package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"dinein-backend/internal/apperr"
	"dinein-backend/internal/config"
	"dinein-backend/internal/database/databasetest"
	"dinein-backend/internal/httpx"
	"dinein-backend/internal/logger"
	"dinein-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	staff := &models.Staff{ID: 7, Name: "chef", Role: models.RoleKitchen}

	token, err := GenerateToken(secret, staff)
	require.NoError(t, err)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.StaffID)
	assert.Equal(t, models.RoleKitchen, claims.Role)
	assert.WithinDuration(t, time.Now().Add(12*time.Hour), claims.ExpiresAt.Time, time.Minute)

	_, err = ParseToken("another-secret-another-secret-xx", token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	claims := &JWTCustomClaims{
		Role: models.RoleWaiter,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = ParseToken(secret, token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestCreateStaff(t *testing.T) {
	db := databasetest.Open(t)

	staff, err := CreateStaff(db, " ayla ", "4321", models.RoleWaiter)
	require.NoError(t, err)
	assert.Equal(t, "ayla", staff.Name)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(staff.PinHash), []byte("4321")))

	_, err = CreateStaff(db, "ayla", "9999", models.RoleKitchen)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = CreateStaff(db, "bob", "12", models.RoleWaiter)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = CreateStaff(db, "bob", "1234", models.RoleCustomer)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = CreateStaff(db, "", "1234", models.RoleWaiter)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestEnsureDefaultManager(t *testing.T) {
	db := databasetest.Open(t)
	cfg := &config.Config{DefaultManagerName: "manager"}

	require.NoError(t, EnsureDefaultManager(db, cfg, logger.NewNop()))
	var count int64
	require.NoError(t, db.Model(&models.Staff{}).Count(&count).Error)
	assert.Zero(t, count, "no pin configured")

	cfg.DefaultManagerPIN = "2468"
	require.NoError(t, EnsureDefaultManager(db, cfg, logger.NewNop()))
	require.NoError(t, EnsureDefaultManager(db, cfg, logger.NewNop()))
	require.NoError(t, db.Model(&models.Staff{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: secret}
	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler(logger.NewNop())})
	app.Use(IdentifyMiddleware(cfg))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(string(ActorFrom(c).Role) + ":" + ActorFrom(c).Name)
	})
	app.Get("/kitchen", RequireRole(models.RoleKitchen), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	chef, err := GenerateToken(secret, &models.Staff{ID: 1, Name: "chef", Role: models.RoleKitchen})
	require.NoError(t, err)
	waiter, err := GenerateToken(secret, &models.Staff{ID: 2, Name: "ayla", Role: models.RoleWaiter})
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"customer identity", "/whoami", "", 200},
		{"staff identity", "/whoami", "Bearer " + chef, 200},
		{"bad scheme", "/whoami", "Basic abc", 401},
		{"bad token", "/whoami", "Bearer abc", 401},
		{"customer on staff route", "/kitchen", "", 401},
		{"wrong role", "/kitchen", "Bearer " + waiter, 403},
		{"right role", "/kitchen", "Bearer " + chef, 204},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
