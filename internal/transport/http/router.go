package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dkoval/market_api/internal/handlers"
	"github.com/dkoval/market_api/internal/metrics"
	"github.com/dkoval/market_api/internal/middleware/auth"
)

type Deps struct {
	UserHandler    *handlers.UserHandler
	ProductHandler *handlers.ProductHandler
	SearchHandler  *handlers.SearchHandler
	Auth           *auth.Middleware
	Metrics        *metrics.Collector
	ImageDir       string
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = ErrorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	e.Static("/images", d.ImageDir)

	e.GET("/user", d.UserHandler.GetAllUsers)
	e.GET("/user/:userId", d.UserHandler.GetUserByID)
	e.POST("/signup", d.UserHandler.Signup)
	e.PUT("/user/:userId", d.UserHandler.UpdateUser)
	e.PATCH("/user/:userId", d.UserHandler.ResetPassword)
	e.POST("/login", d.UserHandler.Login)
	e.DELETE("/user/:userId", d.UserHandler.DeleteUser)

	products := e.Group("/product", d.Auth.RequireLogin)

	products.GET("", d.ProductHandler.GetAllProducts)
	products.GET("/search", d.SearchHandler.Handler)
	products.GET("/:productId", d.ProductHandler.GetProductByID)
	products.POST("", d.ProductHandler.CreateProduct)
	products.PUT("/:productId", d.ProductHandler.UpdateProduct)
	products.DELETE("/:productId", d.ProductHandler.DeleteProduct)
}

// ErrorHandler renders the two error envelopes: validation failures keep
// the plain {message} shape, everything else gets {isError, message}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		default:
			msg = fmt.Sprint(m)
		}
	}

	var payload echo.Map
	if code == http.StatusUnprocessableEntity {
		payload = echo.Map{"message": msg}
	} else {
		payload = echo.Map{"isError": true, "message": msg}
	}

	if err := c.JSON(code, payload); err != nil {
		c.Logger().Errorf("error handler: %v", err)
	}
}
