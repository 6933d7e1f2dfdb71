package httpapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/quake-proxy/internal/mailer"
	"github.com/i474232898/quake-proxy/internal/quake"
)

// Asker answers free-form preparedness questions.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// PlanSender emails an evacuation plan and returns the message id.
type PlanSender interface {
	Send(ctx context.Context, p mailer.Plan) (string, error)
}

// Deps are the services the routes depend on.
type Deps struct {
	Quakes          *quake.Service
	DefaultRadiusKm float64
	Assistant       Asker
	Mailer          PlanSender
	AskRateLimit    int // per minute per client IP, 0 disables the limiter
	ServiceName     string
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.DefaultRadiusKm <= 0 {
		deps.DefaultRadiusKm = 100
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		feed := fiber.Map{"fetchedAt": nil, "lastError": deps.Quakes.LastFailure()}
		if snap := deps.Quakes.Current(); snap != nil {
			feed["fetchedAt"] = snap.FetchedAt
		}
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": deps.ServiceName,
			"feed":    feed,
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")

	// Get also answers HEAD; this route runs first so HEAD gets 405.
	v1.Head("/quakes", methodNotAllowed("GET, POST, OPTIONS"))
	v1.Get("/quakes", func(c *fiber.Ctx) error {
		snap, err := deps.Quakes.Latest(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"fetchedAt": snap.FetchedAt,
			"data":      snap,
		})
	})

	v1.Post("/quakes", func(c *fiber.Ctx) error {
		q, err := bindNearby(c, deps.DefaultRadiusKm)
		if err != nil {
			return err
		}
		res, err := deps.Quakes.Nearby(c.UserContext(), q)
		if err != nil {
			return err
		}
		return c.JSON(res)
	})
	allowOnly(v1, "/quakes", "GET, POST, OPTIONS")

	v1.Post("/hash", func(c *fiber.Ctx) error {
		var req hashRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		sum := sha256.Sum256([]byte(req.Text))
		return c.JSON(fiber.Map{
			"hash":      hex.EncodeToString(sum[:]),
			"algorithm": "sha256",
		})
	})
	allowOnly(v1, "/hash", "POST, OPTIONS")

	askHandlers := []fiber.Handler{}
	if deps.AskRateLimit > 0 {
		askHandlers = append(askHandlers, limiter.New(limiter.Config{
			Max:        deps.AskRateLimit,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return &apiError{Status: fiber.StatusTooManyRequests, Message: "Too many requests", Code: "rate_limited"}
			},
		}))
	}
	askHandlers = append(askHandlers, func(c *fiber.Ctx) error {
		var req askRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		if deps.Assistant == nil {
			return &apiError{Status: fiber.StatusServiceUnavailable, Message: "AI service not configured", Code: "not_configured"}
		}
		answer, err := deps.Assistant.Ask(c.UserContext(), req.Question)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"answer": answer})
	})
	v1.Post("/ask", askHandlers...)
	allowOnly(v1, "/ask", "POST, OPTIONS")

	v1.Post("/evacuation-plan/email", func(c *fiber.Ctx) error {
		var req planRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		if deps.Mailer == nil {
			return &apiError{Status: fiber.StatusServiceUnavailable, Message: "Email service not configured", Code: "not_configured"}
		}
		id, err := deps.Mailer.Send(c.UserContext(), req.toPlan())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"ok": true, "messageId": id})
	})
	allowOnly(v1, "/evacuation-plan/email", "POST, OPTIONS")
}

// allowOnly answers OPTIONS with 204 and every other unregistered method
// with 405. It must be called after the path's real handlers.
func allowOnly(r fiber.Router, path, allow string) {
	r.Options(path, func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAllow, allow)
		return c.SendStatus(fiber.StatusNoContent)
	})
	r.All(path, methodNotAllowed(allow))
}

func methodNotAllowed(allow string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAllow, allow)
		return &apiError{Status: fiber.StatusMethodNotAllowed, Message: "Method not allowed", Code: "method_not_allowed"}
	}
}

// hashRequest is the body of POST /hash.
type hashRequest struct {
	Text string `json:"text" validate:"required"`
}

// askRequest is the body of POST /ask.
type askRequest struct {
	Question string `json:"question" validate:"required"`
}

// planRequest is the body of POST /evacuation-plan/email.
type planRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Plan     any    `json:"plan"`
	Contacts any    `json:"contacts"`
	Medical  any    `json:"medical"`
}

func (p planRequest) toPlan() mailer.Plan {
	return mailer.Plan{
		Email:    strings.TrimSpace(p.Email),
		Plan:     textOf(p.Plan),
		Contacts: listOf(p.Contacts),
		Medical:  textOf(p.Medical),
	}
}
