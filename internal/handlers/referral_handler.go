package handlers

import (
	stderrors "errors"
	"net/http"

	"mita-backend/internal/dto"
	"mita-backend/internal/errors"
	"mita-backend/internal/services"

	"github.com/labstack/echo/v4"
)

type ReferralHandler struct {
	referralService services.ReferralServiceInterface
}

func NewReferralHandler(referralService services.ReferralServiceInterface) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

// Code returns the user's shareable referral code
// GET /referral/code
func (h *ReferralHandler) Code(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	return sendData(c, http.StatusOK, dto.ReferralCodeResponse{Code: h.referralService.Code(userID)}, "")
}

// Eligibility tells whether the user may still claim a code
// POST /referral/eligibility
func (h *ReferralHandler) Eligibility(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	eligible, reason, err := h.referralService.CheckEligibility(userID)
	if err != nil {
		return SendSystemError(c, err)
	}

	return sendData(c, http.StatusOK, dto.ReferralEligibilityResponse{Eligible: eligible, Reason: reason}, "")
}

// Claim records that the user joined through another user's code
// POST /referral/claim
func (h *ReferralHandler) Claim(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var req dto.ClaimReferralRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	claim, err := h.referralService.Claim(userID, req.Code)
	if err != nil {
		switch {
		case stderrors.Is(err, services.ErrReferralCodeNotFound):
			return SendError(c, errors.ReferralInvalidCode)
		case stderrors.Is(err, services.ErrReferralOwnCode):
			return SendError(c, errors.ReferralOwnCode)
		case stderrors.Is(err, services.ErrReferralAlreadyClaimed):
			return SendError(c, errors.ReferralAlreadyClaimed)
		case stderrors.Is(err, services.ErrReferralCodeAmbiguous):
			return SendError(c, errors.ReferralAmbiguousCode)
		case stderrors.Is(err, services.ErrReferralNotEligible):
			return SendError(c, errors.ReferralNotEligible, errors.WithDetails(err.Error()))
		}
		return SendSystemError(c, err)
	}

	return sendData(c, http.StatusCreated, claim, "Referral claimed successfully")
}
