package middlewares

import (
	"noteflow/cmd/server/handlers/handlerutil"
	"noteflow/internal/config"
	"noteflow/internal/services/auth"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWT returns a configured Fiber middleware that:
//
//   - validates the Bearer token signature using the effective JWT secret
//   - makes sure the token carries "user_id" and "email" claims
//   - stores the caller in ctx.Locals under the handlerutil keys so
//     downstream handlers can trust them.
//
// On any problem it bubbles up a 401 via the global httperr handler.
func JWT(cfg config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.EffectiveJWTSecret())},
		SuccessHandler: func(c *fiber.Ctx) error {
			// Token already verified at this point.
			token := c.Locals("user").(*jwt.Token)
			claims, _ := token.Claims.(jwt.MapClaims)

			id, err := auth.IdentityFromClaims(claims)
			if err != nil {
				return err
			}

			c.Locals(handlerutil.LocalUserID, id.UserID)
			c.Locals(handlerutil.LocalUserEmail, id.Email)
			c.Locals(handlerutil.LocalUserName, id.Name)
			return c.Next()
		},

		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return auth.ErrUnauthorized(err)
		},
	})
}
