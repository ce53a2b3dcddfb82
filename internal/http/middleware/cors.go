package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS allows the viewer frontend origins to call the API.
func CORS(origins []string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:  strings.Join(origins, ","),
		AllowMethods:  "GET,POST",
		AllowHeaders:  "Content-Type,Authorization," + RequestIDHeader,
		ExposeHeaders: RequestIDHeader,
	})
}
