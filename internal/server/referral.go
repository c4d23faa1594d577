package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/brieflyhq/briefly/internal/quota"
	"github.com/brieflyhq/briefly/internal/runtime"
)

// ReferralHandler redeems referral codes for bonus quota. Redemption is
// open to anonymous identities so a shared link works before signup.
type ReferralHandler struct {
	Referrals *quota.Referrals
	Secret    []byte
}

func (h *ReferralHandler) Register(g *echo.Group) {
	g.Use(runtime.EchoOptionalAuthMiddleware(h.Secret))
	g.POST("/redeem", h.redeem)
}

func (h *ReferralHandler) redeem(c echo.Context) error {
	var req ReferralRedeemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code required")
	}

	id := quota.Identity{
		Fingerprint: c.Request().Header.Get("X-Client-Fingerprint"),
		IP:          c.RealIP(),
	}
	if sub, ok := runtime.SubjectFromContext(c.Request().Context()); ok {
		id.AccountID = sub
	}

	err := h.Referrals.Redeem(c.Request().Context(), req.Code, id)
	switch {
	case errors.Is(err, quota.ErrCodeNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "referral code not found")
	case errors.Is(err, quota.ErrAlreadyRedeemed):
		return echo.NewHTTPError(http.StatusConflict, "referral already redeemed")
	case errors.Is(err, quota.ErrSelfReferral):
		return echo.NewHTTPError(http.StatusBadRequest, "cannot redeem your own code")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusOK)
}
