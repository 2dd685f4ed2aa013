package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/acaraku/acaraku/internal/authz"
	"github.com/acaraku/acaraku/internal/domain"
	"github.com/acaraku/acaraku/internal/identity"
	redisrepo "github.com/acaraku/acaraku/internal/repository/redis"
	"github.com/acaraku/acaraku/internal/service"
	"github.com/acaraku/acaraku/internal/service/catalog"
	"github.com/acaraku/acaraku/internal/service/review"
	"github.com/acaraku/acaraku/internal/service/ticketing"
)

func NewRouter(
	svcs *service.Services,
	ids *identity.Service,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	r.Use(AuthMiddleware(ids))
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// auth
	r.POST("/auth/register", handleRegister(ids))
	r.POST("/auth/login", handleLogin(ids))
	r.POST("/auth/logout", handleLogout(ids))
	r.GET("/auth/me", handleMe())

	// catalog
	r.GET("/events", handleSearchEvents(svcs))
	r.GET("/events/:id", handleGetEvent(svcs))
	r.POST("/events", handleCreateEvent(svcs))
	r.GET("/events/:id/vouchers", handleListVouchers(svcs))
	r.POST("/events/:id/vouchers", handleCreateVoucher(svcs))
	r.GET("/events/:id/reviews", handleListReviews(svcs))
	r.POST("/events/:id/reviews", handleCreateReview(svcs))

	// ticketing
	r.POST("/transactions", handleCreateTransaction(svcs, idem))
	r.GET("/transactions", handleListTransactions(svcs))
	r.POST("/transactions/:id/payment-proof", handleUploadPaymentProof(svcs))
	r.PATCH("/transactions/:id/status", handleUpdateTransactionStatus(svcs))

	// organizer views
	organizer := r.Group("/organizer")
	{
		organizer.GET("/events", handleOrganizerEvents(svcs))
		organizer.GET("/transactions", handleOrganizerTransactions(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Register a user
// @Param    req body  RegisterRequest true "payload"
// @Success  201 {object} AuthResponse
// @Failure  409 {object} ErrorResponse "email taken"
// @Router   /auth/register [post]
func handleRegister(ids *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		u, token, err := ids.Register(c.Request.Context(), identity.RegisterInput{
			Name:         req.Name,
			Email:        req.Email,
			Role:         domain.Role(req.Role),
			ReferralCode: req.ReferralCode,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, AuthResponse{Token: token, User: u})
	}
}

// @Summary  Login
// @Param    req body  LoginRequest true "payload"
// @Success  200 {object} AuthResponse
// @Failure  401 {object} ErrorResponse
// @Router   /auth/login [post]
func handleLogin(ids *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		u, token, err := ids.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, AuthResponse{Token: token, User: u})
	}
}

// @Summary  Logout (revokes the current token)
// @Success  204
// @Router   /auth/logout [post]
func handleLogout(ids *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
			return
		}
		if err := ids.Logout(c.Request.Context(), token); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Current user
// @Success  200 {object} domain.User
// @Failure  401 {object} ErrorResponse
// @Router   /auth/me [get]
func handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		if actor == nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
			return
		}
		c.JSON(http.StatusOK, actor)
	}
}

// @Summary  Search events
// @Param    query    query  string  false "matches name or description"
// @Param    category query  string  false "exact category"
// @Param    location query  string  false "location substring"
// @Success  200 {array} domain.Event
// @Router   /events [get]
func handleSearchEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Catalog.SearchEvents(
			c.Request.Context(),
			c.Query("query"),
			c.Query("category"),
			c.Query("location"),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15")
	}
}

// @Summary  Get event
// @Param    id  path  int  true  "Event ID"
// @Success  200 {object} domain.Event
// @Failure  404 {object} ErrorResponse
// @Router   /events/{id} [get]
func handleGetEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		e, err := svcs.Catalog.GetEvent(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 60s
		writeJSONWithCache(c, http.StatusOK, e, "public, max-age=60")
	}
}

// @Summary  Create event
// @Param    req body  CreateEventRequest true "payload"
// @Success  201 {object} domain.Event
// @Failure  403 {object} ErrorResponse
// @Router   /events [post]
func handleCreateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		start, err := parseRFC3339(req.StartDate)
		if err != nil {
			badRequest(c, "invalid start_date (RFC3339)")
			return
		}
		end, err := parseRFC3339(req.EndDate)
		if err != nil {
			badRequest(c, "invalid end_date (RFC3339)")
			return
		}

		e, err := svcs.Catalog.CreateEvent(c.Request.Context(), actorFrom(c), catalog.CreateEventInput{
			Name:        req.Name,
			Description: req.Description,
			Location:    req.Location,
			Category:    req.Category,
			Image:       req.Image,
			StartDate:   start,
			EndDate:     end,
			Price:       req.Price,
			IsFree:      req.IsFree,
			TotalSeats:  req.TotalSeats,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, e)
	}
}

// @Summary  List event vouchers
// @Param    id  path  int  true  "Event ID"
// @Success  200 {array} domain.Voucher
// @Router   /events/{id}/vouchers [get]
func handleListVouchers(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Catalog.VouchersForEvent(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Create voucher for an event
// @Param    id  path  int  true  "Event ID"
// @Param    req body  CreateVoucherRequest true "payload"
// @Success  201 {object} domain.Voucher
// @Failure  403 {object} ErrorResponse "not the event owner"
// @Router   /events/{id}/vouchers [post]
func handleCreateVoucher(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CreateVoucherRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		start, err := parseRFC3339(req.StartDate)
		if err != nil {
			badRequest(c, "invalid start_date (RFC3339)")
			return
		}
		end, err := parseRFC3339(req.EndDate)
		if err != nil {
			badRequest(c, "invalid end_date (RFC3339)")
			return
		}

		v, err := svcs.Catalog.CreateVoucher(c.Request.Context(), actorFrom(c), catalog.CreateVoucherInput{
			Code:               req.Code,
			EventID:            &eventID,
			DiscountAmount:     req.DiscountAmount,
			DiscountPercentage: req.DiscountPercentage,
			StartDate:          start,
			EndDate:            end,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, v)
	}
}

// @Summary  List event reviews
// @Param    id  path  int  true  "Event ID"
// @Success  200 {array} domain.Review
// @Router   /events/{id}/reviews [get]
func handleListReviews(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Review.EventReviews(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15")
	}
}

// @Summary  Review an attended event
// @Param    id  path  int  true  "Event ID"
// @Param    req body  CreateReviewRequest true "payload"
// @Success  201 {object} domain.Review
// @Failure  403 {object} ErrorResponse "no completed transaction"
// @Router   /events/{id}/reviews [post]
func handleCreateReview(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CreateReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		rv, err := svcs.Review.AddReview(
			c.Request.Context(),
			actorFrom(c),
			eventID,
			req.Rating,
			req.Comment,
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, rv)
	}
}

// @Summary  Create transaction (idempotent)
// @Param    req body  CreateTransactionRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.Transaction
// @Failure  409 {object} ErrorResponse "seats unavailable / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /transactions [post]
func handleCreateTransaction(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTransactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		actor := actorFrom(c)

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" && actor != nil {
			idemStorageKey = redisrepo.KeyIdemTransaction(actor.ID, idemKey)

			if payload, ok, _ := idem.GetResult(
				c.Request.Context(),
				idemStorageKey,
			); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(
					http.StatusCreated,
					"application/json; charset=utf-8",
					[]byte(payload),
				)
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(
					c.Request.Context(),
					idemStorageKey,
				); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(
						http.StatusCreated,
						"application/json; charset=utf-8",
						[]byte(payload),
					)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		rlKey := "ip:" + c.ClientIP()

		t, err := svcs.Ticketing.CreateTransaction(
			c.Request.Context(),
			actor,
			ticketing.CreateTransactionInput{
				EventID:    req.EventID,
				Quantity:   req.Quantity,
				PointsUsed: req.PointsUsed,
				VoucherID:  req.VoucherID,
				CouponID:   req.CouponID,
			},
			rlKey,
		)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			if errors.Is(err, ticketing.ErrRateLimited) {
				c.Header("Retry-After", "60")
				c.JSON(
					http.StatusTooManyRequests,
					ErrorResponse{Error: "rate limited"},
				)
				return
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(t)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, t)
	}
}

// @Summary  List own transactions
// @Success  200 {array} domain.Transaction
// @Failure  401 {object} ErrorResponse
// @Router   /transactions [get]
func handleListTransactions(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Ticketing.UserTransactions(c.Request.Context(), actorFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Upload payment proof
// @Param    id  path  string  true  "Transaction ID (uuid)"
// @Param    req body  UploadPaymentProofRequest true "payload"
// @Success  200 {object} map[string]string
// @Failure  409 {object} ErrorResponse "wrong status / deadline exceeded"
// @Router   /transactions/{id}/payment-proof [post]
func handleUploadPaymentProof(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		txID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req UploadPaymentProofRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		err := svcs.Ticketing.UploadPaymentProof(
			c.Request.Context(),
			actorFrom(c),
			txID,
			req.PaymentProof,
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": string(domain.StatusWaitingForConfirmation)})
	}
}

// @Summary  Update transaction status
// @Param    id  path  string  true  "Transaction ID (uuid)"
// @Param    req body  UpdateTransactionStatusRequest true "payload"
// @Success  200 {object} map[string]string
// @Failure  403 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "transition not allowed"
// @Router   /transactions/{id}/status [patch]
func handleUpdateTransactionStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		txID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req UpdateTransactionStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		err := svcs.Ticketing.UpdateTransactionStatus(
			c.Request.Context(),
			actorFrom(c),
			txID,
			domain.TransactionStatus(req.Status),
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": req.Status})
	}
}

// @Summary  List own events (organizer)
// @Success  200 {array} domain.Event
// @Failure  403 {object} ErrorResponse
// @Router   /organizer/events [get]
func handleOrganizerEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Catalog.EventsByOrganizer(c.Request.Context(), actorFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  List transactions for own events (organizer)
// @Success  200 {array} domain.Transaction
// @Failure  403 {object} ErrorResponse
// @Router   /organizer/transactions [get]
func handleOrganizerTransactions(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Ticketing.OrganizerTransactions(c.Request.Context(), actorFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// authn / authz
	case errors.Is(err, authz.ErrUnauthenticated),
		errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, identity.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	case errors.Is(err, authz.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
		return
	// identity service
	case errors.Is(err, identity.ErrEmailTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "email already registered"})
		return
	case errors.Is(err, identity.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid role"})
		return
	case errors.Is(err, identity.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	// catalog service
	case errors.Is(err, catalog.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
		return
	case errors.Is(err, catalog.ErrInvalidEvent):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid event"})
		return
	case errors.Is(err, catalog.ErrInvalidVoucher):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid voucher"})
		return
	case errors.Is(err, catalog.ErrNotEventOwner):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not the event owner"})
		return
	// review service
	case errors.Is(err, review.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
		return
	case errors.Is(err, review.ErrInvalidRating):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "rating must be between 1 and 5"})
		return
	case errors.Is(err, review.ErrNotAttended):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "no completed transaction for this event"})
		return
	// ticketing service
	case errors.Is(err, ticketing.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
		return
	case errors.Is(err, ticketing.ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "transaction not found"})
		return
	case errors.Is(err, ticketing.ErrCouponNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "coupon not found"})
		return
	case errors.Is(err, ticketing.ErrSeatsUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "seats unavailable"})
		return
	case errors.Is(err, ticketing.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid quantity"})
		return
	case errors.Is(err, ticketing.ErrInvalidPoints):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid points"})
		return
	case errors.Is(err, ticketing.ErrInvalidStatus):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "transaction is not awaiting payment"})
		return
	case errors.Is(err, ticketing.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "transition not allowed"})
		return
	case errors.Is(err, ticketing.ErrDeadlineExceeded):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "payment deadline exceeded"})
		return
	case errors.Is(err, ticketing.ErrRateLimited):
		c.Header("Retry-After", "60")
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
