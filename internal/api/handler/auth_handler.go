package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/finportal/portal/internal/api/middleware"
	"github.com/finportal/portal/internal/core/service"
)

// AuthHandler serves customer sign-in, sign-up and sign-out for the calling
// visitor.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Login signs a customer in.
//
// @Summary      Customer sign-in
// @Description  On success returns where to navigate next: the page the visitor was blocked from, or the default landing page.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  redirectResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	p, err := middleware.PortalFrom(c)
	if err != nil {
		return err
	}

	next, err := p.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, redirectResponse{RedirectTo: next})
}

// Signup creates a customer account and its profile. The visitor is not
// signed in afterwards.
//
// @Summary      Customer sign-up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Account details"
// @Success      201   {object}  signupResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /api/auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	p, err := middleware.PortalFrom(c)
	if err != nil {
		return err
	}

	customerID, err := p.SignUp(c.Request().Context(), service.SignupRequest{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, signupResponse{CustomerID: customerID})
}

// Logout ends the customer session and clears the employee flag.
//
// @Summary      Sign out
// @Tags         auth
// @Success      204
// @Failure      503  {object}  map[string]string
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	p, err := middleware.PortalFrom(c)
	if err != nil {
		return err
	}
	if err := p.SignOut(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// EmployeeLogin checks employee credentials and sets the employee flag. The
// customer session, if any, is left alone.
//
// @Summary      Employee sign-in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      employeeLoginRequest  true  "Employee credentials"
// @Success      200   {object}  redirectResponse
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/employee/login [post]
func (h *AuthHandler) EmployeeLogin(c echo.Context) error {
	var req employeeLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	p, err := middleware.PortalFrom(c)
	if err != nil {
		return err
	}

	next, err := p.EmployeeSignIn(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, redirectResponse{RedirectTo: next})
}
