package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"stockbill/internal/domain"
	"stockbill/internal/receipt"
	"stockbill/internal/repository"
	"stockbill/internal/service"
)

// ReceiptQueue принимает чек к отправке по почте, не блокируя запрос.
type ReceiptQueue interface {
	Enqueue(to, path string) bool
}

type Server struct {
	engine   *gin.Engine
	products *service.ProductService
	billing  *service.BillingService
	refills  *service.RefillService
	renderer *receipt.Renderer
	mail     ReceiptQueue
	log      *zap.Logger
}

// NewServer собирает gin-движок. mail может быть nil, тогда отправка чеков выключена.
func NewServer(products *service.ProductService, billing *service.BillingService, refills *service.RefillService,
	renderer *receipt.Renderer, mail ReceiptQueue, log *zap.Logger) *Server {
	r := gin.New()
	r.Use(requestID(), requestLogger(log), gin.Recovery(), cors())
	s := &Server{
		engine:   r,
		products: products,
		billing:  billing,
		refills:  refills,
		renderer: renderer,
		mail:     mail,
		log:      log,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/healthz", s.healthz)

	v1 := s.engine.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.POST("", s.createProduct)
		products.GET("", s.listProducts)
		products.GET(":id", s.getProduct)
		products.DELETE(":id", s.deleteProduct)
		products.PUT(":id/stock", s.updateStock)

		bill := v1.Group("/bill")
		bill.POST("", s.createBill)
		bill.GET("/download", s.downloadBill)

		v1.GET("/refills", s.listRefills)
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Product handlers
type createProductReq struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Stock       int64   `json:"stock"`
	Category    string  `json:"category"`
	RefillLimit int64   `json:"refill_limit"`
}

// @Summary Register product
// @Tags products
// @Accept json
// @Produce json
// @Param input body createProductReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req createProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.Register(c, domain.Product{
		ID:          req.ID,
		Name:        req.Name,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		RefillLimit: req.RefillLimit,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	p, err := s.products.Get(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Remove product
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} map[string]domain.Product
// @Failure 404 {object} map[string]string
// @Router /products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	p, err := s.products.Remove(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": p})
}

type updateStockReq struct {
	Stock *int64 `json:"stock"`
}

// @Summary Set product stock
// @Description Stock may be passed as the `stock` query parameter or in the JSON body.
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param stock query int false "New stock"
// @Param input body updateStockReq false "New stock"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id}/stock [put]
func (s *Server) updateStock(c *gin.Context) {
	var stock int64
	if v, ok := c.GetQuery("stock"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stock"})
			return
		}
		stock = n
	} else {
		var req updateStockReq
		if err := c.ShouldBindJSON(&req); err != nil || req.Stock == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "stock is required"})
			return
		}
		stock = *req.Stock
	}
	if _, err := s.products.SetStock(c, c.Param("id"), stock); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock updated"})
}

// @Summary List products
// @Tags products
// @Produce json
// @Success 200 {array} domain.Product
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	list, err := s.products.List(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Billing handlers
type createBillReq struct {
	Items []domain.CartLine `json:"items" binding:"required"`
	Email string            `json:"email" binding:"omitempty,email"`
}

// @Summary Checkout a cart
// @Description Body is either a bare array of cart lines or an object with items and an optional email.
// @Tags bill
// @Accept json
// @Produce json
// @Param input body createBillReq true "Cart"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /bill [post]
func (s *Server) createBill(c *gin.Context) {
	req, err := bindCart(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bill, err := s.billing.Checkout(c, req.Items)
	if err != nil {
		s.fail(c, err)
		return
	}
	path, err := s.renderer.Render(bill, "")
	if err != nil {
		s.log.Error("receipt render failed after committed checkout",
			zap.Float64("total", bill.Total), zap.Int("lines", len(bill.Items)), zap.Error(err))
		s.fail(c, err)
		return
	}

	resp := gin.H{"bill": bill, "pdf": path}
	if req.Email != "" {
		queued := s.mail != nil && s.mail.Enqueue(req.Email, path)
		if !queued {
			s.log.Warn("receipt email not queued", zap.String("to", req.Email), zap.String("pdf", path))
		}
		resp["email_queued"] = queued
	}
	c.JSON(http.StatusOK, resp)
}

func bindCart(c *gin.Context) (createBillReq, error) {
	var req createBillReq
	raw, err := c.GetRawData()
	if err != nil {
		return req, errors.New("invalid json")
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &req.Items); err != nil {
			return req, errors.New("invalid json")
		}
		return req, nil
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, errors.New("invalid json")
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		return req, err
	}
	return req, nil
}

// @Summary Download receipt
// @Tags bill
// @Produce application/pdf
// @Param pdf_path query string true "Path returned by checkout"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Router /bill/download [get]
func (s *Server) downloadBill(c *gin.Context) {
	path, err := s.renderer.Open(c.Query("pdf_path"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// @Summary List refill alerts
// @Tags refills
// @Produce json
// @Success 200 {array} domain.Product
// @Router /refills [get]
func (s *Server) listRefills(c *gin.Context) {
	list, err := s.refills.List(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) fail(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, receipt.ErrInvalidFilename):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, receipt.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyExists), errors.Is(err, service.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, repository.ErrLockTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
