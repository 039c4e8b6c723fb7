package handler

import (
	"net/http"
	"time"

	"shop/internal/config"
	"shop/internal/middleware"
	"shop/internal/repository"
	"shop/internal/usecase"
	"shop/internal/validator"

	"github.com/labstack/echo/v4"
)

const refreshCookieName = "refresh"

// /auth のHTTP。refresh tokenはhttpOnly cookieで受け渡す。
type AuthHandler struct {
	uc           *usecase.AuthUsecase
	refreshTTL   time.Duration
	cookieSecure bool
}

func NewAuthHandler(uc *usecase.AuthUsecase, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		uc:         uc,
		refreshTTL: 30 * 24 * time.Hour,
		//ローカル開発（GO_ENV=dev）ではSecure無し
		cookieSecure: cfg.GoEnv == "prod",
	}
}

// 認証系のエラーをHTTPステータスへ変換する。
func writeAuthError(c echo.Context, err error) error {
	switch err {
	case validator.ErrInvalidInput, usecase.ErrValidation:
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid input"})
	case validator.ErrEmailAlreadyUsed, usecase.ErrConflict:
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "email already used"})
	case validator.ErrInvalidRefresh, usecase.ErrUnauthorized, usecase.ErrSecurityIncident:
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	case usecase.ErrForbidden:
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	e.POST("/auth/register", h.register)
	e.POST("/auth/login", h.login)
	e.POST("/auth/refresh", h.refresh)
	e.POST("/auth/logout", h.logout)

	g := e.Group("/auth/me")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))
	g.GET("", h.me)
	g.PATCH("", h.updateProfile)
}

func (h *AuthHandler) register(c echo.Context) error {
	var req usecase.AuthRegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Register(c.Request().Context(), req)
	if err != nil {
		return writeAuthError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req usecase.AuthLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	userAgent := c.Request().Header.Get("User-Agent")

	res, err := h.uc.Login(c.Request().Context(), req, userAgent)
	if err != nil {
		return writeAuthError(c, err)
	}

	h.setRefreshCookie(c, res.RefreshTokenPlain)

	return c.JSON(http.StatusOK, res.Body)
}

func (h *AuthHandler) refresh(c echo.Context) error {
	plain := h.refreshTokenFromRequest(c)
	userAgent := c.Request().Header.Get("User-Agent")

	res, err := h.uc.Refresh(c.Request().Context(), plain, userAgent)
	if err != nil {
		return writeAuthError(c, err)
	}

	//ローテーション後の新しいrefreshを配り直す
	h.setRefreshCookie(c, res.RefreshTokenPlain)

	return c.JSON(http.StatusOK, res.Body)
}

func (h *AuthHandler) logout(c echo.Context) error {
	plain := h.refreshTokenFromRequest(c)

	out, err := h.uc.Logout(c.Request().Context(), plain)
	if err != nil {
		return writeAuthError(c, err)
	}

	h.clearRefreshCookie(c)

	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) me(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.Me(c.Request().Context(), userID)
	if err != nil {
		return writeAuthError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) updateProfile(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var in usecase.UpdateProfileInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.UpdateProfile(c.Request().Context(), userID, in)
	if err != nil {
		return writeAuthError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// refresh tokenをcookie優先、なければbodyから取り出す。
func (h *AuthHandler) refreshTokenFromRequest(c echo.Context) string {
	if ck, err := c.Cookie(refreshCookieName); err == nil && ck != nil {
		return ck.Value
	}

	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&body); err == nil {
		return body.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, plain string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    plain,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.refreshTTL),
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
