package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dkoval/market_api/internal/models"
	"github.com/dkoval/market_api/internal/mykafka"
	"github.com/dkoval/market_api/internal/repository"
	"github.com/dkoval/market_api/internal/service/search"
	"github.com/dkoval/market_api/internal/storage"
	"github.com/dkoval/market_api/internal/util"
	"github.com/dkoval/market_api/internal/validation"
)

type ProductHandler struct {
	Products *repository.ProductRepo
	Files    *storage.FileStore
	Producer *mykafka.Producer
	Indexer  *search.Indexer
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

func (h *ProductHandler) productExists(ctx context.Context, value string) error {
	id, err := strconv.Atoi(value)
	if err != nil {
		return validation.Failf("This product is no longer exist")
	}
	if _, err := h.Products.FindByID(ctx, uint(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return validation.Failf("This product is no longer exist")
		}
		return err
	}
	return nil
}

func (h *ProductHandler) GetAllProducts(c echo.Context) error {
	ctx := c.Request().Context()

	if err := validation.Run(ctx, validation.FromEcho(c, nil), listRules()); err != nil {
		return pipelineError(err)
	}

	currentPage, _ := strconv.Atoi(c.QueryParam("currentPage"))
	perPage, _ := strconv.Atoi(c.QueryParam("perPage"))
	offset, limit := util.Calculate(currentPage, perPage)

	products, total, err := h.Products.FindPage(ctx, offset, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":      "OK",
		"totalProduct": total,
		"products":     products,
	})
}

func (h *ProductHandler) GetProductByID(c echo.Context) error {
	ctx := c.Request().Context()

	rules := []validation.Rule{
		validation.Param("productId", validation.MinLength(1, "At least select a register")),
	}
	if err := validation.Run(ctx, validation.FromEcho(c, nil), rules); err != nil {
		return pipelineError(err)
	}

	var product *models.Product
	if id, err := strconv.Atoi(c.Param("productId")); err == nil {
		product, err = h.Products.FindByID(ctx, uint(id))
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "OK", "product": product})
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := c.Get("userID").(uint)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Error: An image is required")
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(c.FormValue("price")), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Error: Price has to be a number")
	}

	path, err := h.Files.Save(fh)
	if errors.Is(err, storage.ErrUnsupportedType) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Error: Only png and jpg images are allowed")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	product := models.Product{
		ProductCode: c.FormValue("productCode"),
		Title:       c.FormValue("title"),
		Price:       price,
		Image:       path,
		UserID:      userID,
	}
	if err := h.Products.Create(ctx, &product); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.Indexer.IndexProduct(ctx, &product); err != nil {
		c.Logger().Errorf("es index error: %v", err)
	}

	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": product.ID,
		"userID":    userID,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"message":   "OK",
		"isSaved":   true,
		"productId": product.ID,
	})
}

// UpdateProduct mutates the record in place. The image and the owning user
// are not touched here, only the editable fields.
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		ProductCode string  `json:"productCode" form:"productCode"`
		Title       string  `json:"title"       form:"title"`
		Price       float64 `json:"price"       form:"price"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rules := []validation.Rule{
		validation.Param("productId", validation.Check(h.productExists)),
	}
	if err := validation.Run(ctx, validation.FromEcho(c, nil), rules); err != nil {
		return pipelineError(err)
	}

	id, _ := strconv.Atoi(c.Param("productId"))
	product, err := h.Products.FindByID(ctx, uint(id))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	product.ProductCode = req.ProductCode
	product.Title = req.Title
	product.Price = req.Price

	if err := h.Products.Update(ctx, product); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.Indexer.IndexProduct(ctx, product); err != nil {
		c.Logger().Errorf("es index error: %v", err)
	}

	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": product.ID,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"message":   "OK",
		"isSaved":   true,
		"productId": product.ID,
	})
}

// DeleteProduct removes the record and then the backing image file. File
// cleanup is best-effort; a failed removal is logged, the deletion stands.
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()

	rules := []validation.Rule{
		validation.Param("productId", validation.Check(h.productExists)),
	}
	if err := validation.Run(ctx, validation.FromEcho(c, nil), rules); err != nil {
		return pipelineError(err)
	}

	id, _ := strconv.Atoi(c.Param("productId"))
	product, err := h.Products.FindByID(ctx, uint(id))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.Products.Delete(ctx, uint(id)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.Files.Remove(product.Image); err != nil {
		c.Logger().Errorf("image cleanup error: %v", err)
	}

	if err := h.Indexer.DeleteProduct(ctx, uint(id)); err != nil {
		c.Logger().Errorf("es delete error: %v", err)
	}

	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": uint(id),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"message":   "OK",
		"isDeleted": true,
	})
}
