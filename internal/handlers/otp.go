package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
)

// OTPHandler serves the customer verification endpoints.
type OTPHandler struct {
	otp *services.OTPService
}

// NewOTPHandler constructs OTPHandler.
func NewOTPHandler(otp *services.OTPService) *OTPHandler {
	return &OTPHandler{otp: otp}
}

type sendOTPRequest struct {
	Identifier string `json:"identifier"`
	Type       string `json:"type"`
}

type verifyOTPRequest struct {
	Identifier string `json:"identifier"`
	OTP        string `json:"otp"`
	Type       string `json:"type"`
}

// SendOTP issues a code to an email address or mobile number.
func (h *OTPHandler) SendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.otp.RequestCode(c.UserContext(), req.Identifier, models.OTPChannel(req.Type)); err != nil {
		return err
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "OTP sent successfully", nil)
}

// VerifyOTP checks a submitted code.
func (h *OTPHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.otp.VerifyCode(c.UserContext(), req.Identifier, models.OTPChannel(req.Type), req.OTP); err != nil {
		return err
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "OTP verified successfully", nil)
}
