package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/services"
)

// JsonResponse writes the common {success, message, data} envelope.
func JsonResponse(c *fiber.Ctx, statusCode int, success bool, message string, data interface{}) error {
	body := fiber.Map{
		"success": success,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	return c.Status(statusCode).JSON(body)
}

// ErrorHandler renders every error returned by a handler as
// {success:false, message}. Service errors map to their kind's status;
// anything unclassified is a 500 with a generic message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return JsonResponse(c, fe.Code, false, fe.Message, nil)
	}

	kind := services.KindOf(err)
	if kind == services.KindInternal {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("request failed")
	}
	return JsonResponse(c, kind.HTTPStatus(), false, services.PublicMessage(err), nil)
}
