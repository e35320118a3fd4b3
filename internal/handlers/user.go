package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dkoval/market_api/internal/hash"
	"github.com/dkoval/market_api/internal/models"
	"github.com/dkoval/market_api/internal/mykafka"
	"github.com/dkoval/market_api/internal/repository"
	"github.com/dkoval/market_api/internal/token"
	"github.com/dkoval/market_api/internal/util"
	"github.com/dkoval/market_api/internal/validation"
)

type UserHandler struct {
	Users    *repository.UserRepo
	Tokens   *token.Service
	Producer *mykafka.Producer
}

func (h *UserHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

// userExists is the async existence check bound to :userId params.
func (h *UserHandler) userExists(ctx context.Context, value string) error {
	id, err := strconv.Atoi(value)
	if err != nil {
		return validation.Failf("This user is no longer exist")
	}
	if _, err := h.Users.FindByID(ctx, uint(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return validation.Failf("This user is no longer exist")
		}
		return err
	}
	return nil
}

// emailAvailable is the async uniqueness check for signup and profile
// updates. The later insert is not atomic with this check; two concurrent
// signups can both pass it (the unique index is the backstop).
func (h *UserHandler) emailAvailable(ctx context.Context, value string) error {
	_, err := h.Users.FindByEmail(ctx, value)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return validation.Failf("This email is already exists, please enter a diffrent one")
}

func listRules() []validation.Rule {
	return []validation.Rule{
		validation.Query("currentPage",
			validation.Numeric("Select at least one page"),
			validation.MinLength(1, "Select at least one page")),
		validation.Query("perPage",
			validation.Numeric("Select the limit of users per page"),
			validation.MinLength(1, "Select the limit of users per page")),
	}
}

func (h *UserHandler) GetAllUsers(c echo.Context) error {
	ctx := c.Request().Context()

	if err := validation.Run(ctx, validation.FromEcho(c, nil), listRules()); err != nil {
		return pipelineError(err)
	}

	currentPage, _ := strconv.Atoi(c.QueryParam("currentPage"))
	perPage, _ := strconv.Atoi(c.QueryParam("perPage"))
	offset, limit := util.Calculate(currentPage, perPage)

	users, total, err := h.Users.FindPage(ctx, offset, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":    "OK",
		"totalUsers": total,
		"users":      users,
	})
}

func (h *UserHandler) GetUserByID(c echo.Context) error {
	ctx := c.Request().Context()

	rules := []validation.Rule{
		validation.Param("userId", validation.MinLength(1, "At least select a register")),
	}
	if err := validation.Run(ctx, validation.FromEcho(c, nil), rules); err != nil {
		return pipelineError(err)
	}

	var user *models.User
	if id, err := strconv.Atoi(c.Param("userId")); err == nil {
		user, err = h.Users.FindByID(ctx, uint(id))
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "OK", "user": user})
}

func (h *UserHandler) Signup(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
		FirstName       string `json:"firstName"`
		LastName        string `json:"lastName"`
		Phone           string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	vals := validation.FromEcho(c, map[string]string{
		"email":           req.Email,
		"password":        req.Password,
		"confirmPassword": req.ConfirmPassword,
		"firstName":       req.FirstName,
		"lastName":        req.LastName,
		"phone":           req.Phone,
	})
	rules := []validation.Rule{
		validation.Body("email",
			validation.IsEmail("Please enter a valid email address"),
			validation.Check(h.emailAvailable)),
		validation.Body("password",
			validation.MinLength(5, "Please enter a password with at least 5 characters")),
		validation.Body("confirmPassword",
			validation.EqualsField(validation.SourceBody, "password", "The password has to match")),
		validation.Body("firstName",
			validation.MinLength(3, "Please enter a name to complete the registration")),
		validation.Body("lastName",
			validation.MinLength(5, "Please enter your lastname to complete the registration")),
	}
	if err := validation.Run(ctx, vals, rules); err != nil {
		return pipelineError(err)
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: hashed,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
	}
	if err := h.Users.Create(ctx, &user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "OK",
		"isSaved": true,
		"userId":  user.ID,
	})
}

func (h *UserHandler) UpdateUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Email     string `json:"email"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Phone     string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	vals := validation.FromEcho(c, map[string]string{
		"email":     req.Email,
		"firstName": req.FirstName,
		"lastName":  req.LastName,
		"phone":     req.Phone,
	})
	rules := []validation.Rule{
		validation.Body("email",
			validation.IsEmail("Please enter a valid email address"),
			validation.Check(h.emailAvailable)),
		validation.Body("firstName",
			validation.MinLength(5, "Please enter a name to complete the registration")),
		validation.Body("lastName",
			validation.MinLength(5, "Please enter your lastname to complete the registration")),
		validation.Param("userId", validation.Check(h.userExists)),
	}
	if err := validation.Run(ctx, vals, rules); err != nil {
		return pipelineError(err)
	}

	id, _ := strconv.Atoi(c.Param("userId"))
	user, err := h.Users.FindByID(ctx, uint(id))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	user.Email = req.Email
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.Phone = req.Phone

	if err := h.Users.Update(ctx, user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "OK",
		"isSaved": true,
		"userId":  user.ID,
	})
}

func (h *UserHandler) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	vals := validation.FromEcho(c, map[string]string{
		"newPassword":     req.NewPassword,
		"confirmPassword": req.ConfirmPassword,
	})
	rules := []validation.Rule{
		validation.Body("newPassword",
			validation.MinLength(5, "Please enter a password with at least 5 characters")),
		validation.Body("confirmPassword",
			validation.EqualsField(validation.SourceBody, "newPassword", "The password has to match")),
		validation.Param("userId", validation.Check(h.userExists)),
	}
	if err := validation.Run(ctx, vals, rules); err != nil {
		return pipelineError(err)
	}

	hashed, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	id, _ := strconv.Atoi(c.Param("userId"))
	user, err := h.Users.FindByID(ctx, uint(id))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	user.PasswordHash = hashed
	if err := h.Users.Update(ctx, user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "OK",
		"isSaved": true,
		"userId":  user.ID,
	})
}

func (h *UserHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	vals := validation.FromEcho(c, map[string]string{
		"email":    req.Email,
		"password": req.Password,
	})
	rules := []validation.Rule{
		validation.Body("email", validation.IsEmail("Please enter a valid email address")),
		validation.Body("password", validation.MinLength(5, "Invalid value")),
	}
	if err := validation.Run(ctx, vals, rules); err != nil {
		return pipelineError(err)
	}

	user, err := h.Users.FindByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "This user is no longer exist")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid password!")
	}

	signed, err := h.Tokens.Issue(user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
		"email":  user.Email,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"token":  signed,
		"userId": user.ID,
	})
}

func (h *UserHandler) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()

	rules := []validation.Rule{
		validation.Param("userId", validation.Check(h.userExists)),
	}
	if err := validation.Run(ctx, validation.FromEcho(c, nil), rules); err != nil {
		return pipelineError(err)
	}

	id, _ := strconv.Atoi(c.Param("userId"))
	if err := h.Users.Delete(ctx, uint(id)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":   "user_deleted",
		"userID": uint(id),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"message":   "OK",
		"isDeleted": true,
	})
}
