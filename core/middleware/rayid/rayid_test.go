package rayid_test

import (
	"net/http/httptest"
	"testing"

	"github.com/MisterSynergy/rfc-protect/core/middleware/rayid"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRayID_AssignsID(t *testing.T) {
	app := fiber.New()
	app.Use(rayid.New())

	var seen string
	app.Get("/", func(c *fiber.Ctx) error {
		seen, _ = c.Locals("ray_id").(string)
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, resp.Header.Get(rayid.Header))
}

func TestRayID_KeepsCallerID(t *testing.T) {
	app := fiber.New()
	app.Use(rayid.New())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(rayid.Header, "upstream-id-1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "upstream-id-1", resp.Header.Get(rayid.Header))
}
