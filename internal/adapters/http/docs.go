package http

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
)

// OpenAPIPath is where the OpenAPI document is read from, relative to the working directory.
var OpenAPIPath = "api/openapi.yaml"

const swaggerUIVersion = "5"

// docsPage renders a Swagger UI page pointed at specURL.
func docsPage(title, specURL string) string {
	cdn := "https://cdn.jsdelivr.net/npm/swagger-ui-dist@" + swaggerUIVersion
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>%s</title>
  <link rel="stylesheet" href="%s/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="%s/swagger-ui-bundle.js"></script>
  <script>SwaggerUIBundle({url: %q, dom_id: '#swagger-ui', deepLinking: true});</script>
</body>
</html>`, title, cdn, cdn, specURL)
}

// SetupDocs registers Swagger UI at /docs and the raw OpenAPI document at /docs/openapi.yaml.
func SetupDocs(app *fiber.App) {
	page := docsPage("geoanchor Session API", "/docs/openapi.yaml")

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(page)
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		data, err := os.ReadFile(OpenAPIPath)
		if err != nil {
			return newError(c, fiber.StatusNotFound, "not_found", "openapi.yaml not found")
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(data)
	})
}
