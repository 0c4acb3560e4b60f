package rest

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dhanki/token-platform/internal/api/middleware"
	"github.com/dhanki/token-platform/internal/api/shared/dto"
	apierrors "github.com/dhanki/token-platform/internal/api/shared/errors"
	"github.com/dhanki/token-platform/internal/api/shared/executor"
	"github.com/dhanki/token-platform/internal/store/schema"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// Register creates a new account
	// POST /api/v1/auth/register
	Register(c *gin.Context)

	// Login authenticates an account
	// POST /api/v1/auth/login
	Login(c *gin.Context)

	// GetProfile retrieves the authenticated account
	// GET /api/v1/me
	GetProfile(c *gin.Context)

	// UpdateProfile applies self-service profile updates
	// PATCH /api/v1/me
	UpdateProfile(c *gin.Context)

	// PurchaseTokens records a token purchase
	// POST /api/v1/purchases
	PurchaseTokens(c *gin.Context)

	// GetPurchaseHistory retrieves the account's purchase ledger entries
	// GET /api/v1/purchases?limit=<limit>&offset=<offset>
	GetPurchaseHistory(c *gin.Context)

	// GetIncomeHistory retrieves the account's commission ledger entries
	// GET /api/v1/income?limit=<limit>&offset=<offset>
	GetIncomeHistory(c *gin.Context)

	// GetReferralNetwork retrieves the account's 3-level downline view
	// GET /api/v1/network
	GetReferralNetwork(c *gin.Context)

	// GetDashboard retrieves the account home screen aggregates
	// GET /api/v1/dashboard
	GetDashboard(c *gin.Context)

	// GetSettings retrieves the platform settings
	// GET /api/v1/settings
	GetSettings(c *gin.Context)

	// AdminListUsers retrieves accounts with their team sizes
	// GET /api/v1/admin/users?limit=<limit>&offset=<offset>
	AdminListUsers(c *gin.Context)

	// AdminUpdateUser applies admin account overrides
	// PATCH /api/v1/admin/users/:id
	AdminUpdateUser(c *gin.Context)

	// AdminListTransactions retrieves ledger entries across all accounts
	// GET /api/v1/admin/transactions?account_id=<id>&entry_type=<type>&limit=<limit>&offset=<offset>
	AdminListTransactions(c *gin.Context)

	// AdminUpdateTransactionStatus settles a ledger entry
	// PATCH /api/v1/admin/transactions/:id/status
	AdminUpdateTransactionStatus(c *gin.Context)

	// AdminPlatformStats computes the admin dashboard aggregates
	// GET /api/v1/admin/stats
	AdminPlatformStats(c *gin.Context)

	// AdminUpdateSettings applies platform settings changes
	// PATCH /api/v1/admin/settings
	AdminUpdateSettings(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	executor executor.Executor
}

// NewHandler creates a new REST API handler using the shared executor
func NewHandler(exec executor.Executor) Handler {
	return &handler{
		executor: exec,
	}
}

// Register creates a new account
func (h *handler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, err, "Failed to register")
		return
	}

	response, err := h.executor.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to register")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// Login authenticates an account
func (h *handler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, err, "Failed to login")
		return
	}

	response, err := h.executor.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to login")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetProfile retrieves the authenticated account
func (h *handler) GetProfile(c *gin.Context) {
	accountID, ok := middleware.AccountFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorizedError("Authentication required"))
		return
	}

	response, err := h.executor.GetProfile(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err, "Failed to get profile")
		return
	}

	c.JSON(http.StatusOK, response)
}

// UpdateProfile applies self-service profile updates
func (h *handler) UpdateProfile(c *gin.Context) {
	accountID, ok := middleware.AccountFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorizedError("Authentication required"))
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, err, "Failed to update profile")
		return
	}

	response, err := h.executor.UpdateProfile(c.Request.Context(), accountID, req)
	if err != nil {
		respondError(c, err, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, response)
}

// PurchaseTokens records a token purchase
func (h *handler) PurchaseTokens(c *gin.Context) {
	accountID, ok := middleware.AccountFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorizedError("Authentication required"))
		return
	}

	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, err, "Failed to record purchase")
		return
	}

	response, err := h.executor.PurchaseTokens(c.Request.Context(), accountID, req)
	if err != nil {
		respondError(c, err, "Failed to record purchase")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetPurchaseHistory retrieves the account's purchase ledger entries
func (h *handler) GetPurchaseHistory(c *gin.Context) {
	h.listOwnTransactions(c, schema.EntryTypePurchase)
}

// GetIncomeHistory retrieves the account's commission ledger entries
func (h *handler) GetIncomeHistory(c *gin.Context) {
	h.listOwnTransactions(c, schema.EntryTypeLevelIncome)
}

func (h *handler) listOwnTransactions(c *gin.Context, entryType schema.EntryType) {
	accountID, ok := middleware.AccountFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorizedError("Authentication required"))
		return
	}

	page, err := ParsePagination(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	response, err := h.executor.ListTransactions(c.Request.Context(), accountID, &entryType, page.Limit, page.Offset)
	if err != nil {
		respondError(c, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetReferralNetwork retrieves the account's 3-level downline view
func (h *handler) GetReferralNetwork(c *gin.Context) {
	accountID, ok := middleware.AccountFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorizedError("Authentication required"))
		return
	}

	response, err := h.executor.ReferralNetwork(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err, "Failed to get referral network")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetDashboard retrieves the account home screen aggregates
func (h *handler) GetDashboard(c *gin.Context) {
	accountID, ok := middleware.AccountFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorizedError("Authentication required"))
		return
	}

	response, err := h.executor.Dashboard(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err, "Failed to get dashboard")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetSettings retrieves the platform settings
func (h *handler) GetSettings(c *gin.Context) {
	response, err := h.executor.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get settings")
		return
	}

	c.JSON(http.StatusOK, response)
}

// AdminListUsers retrieves accounts with their team sizes
func (h *handler) AdminListUsers(c *gin.Context) {
	page, err := ParsePagination(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	response, err := h.executor.AdminListUsers(c.Request.Context(), page.Limit, page.Offset)
	if err != nil {
		respondError(c, err, "Failed to list users")
		return
	}

	c.JSON(http.StatusOK, response)
}

// AdminUpdateUser applies admin account overrides
func (h *handler) AdminUpdateUser(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || accountID <= 0 {
		respondBadRequest(c, "Invalid account id")
		return
	}

	var req dto.AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, err, "Failed to update user")
		return
	}

	response, err := h.executor.AdminUpdateUser(c.Request.Context(), accountID, req)
	if err != nil {
		respondError(c, err, "Failed to update user")
		return
	}

	c.JSON(http.StatusOK, response)
}

// AdminListTransactions retrieves ledger entries across all accounts
func (h *handler) AdminListTransactions(c *gin.Context) {
	page, err := ParsePagination(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	var accountID *int64
	if raw := c.Query("account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondValidationError(c, fmt.Sprintf("invalid account_id: %s", raw))
			return
		}
		accountID = &id
	}

	var entryType *schema.EntryType
	if raw := c.Query("entry_type"); raw != "" {
		et := schema.EntryType(raw)
		switch et {
		case schema.EntryTypePurchase, schema.EntryTypeLevelIncome, schema.EntryTypeWithdrawal:
			entryType = &et
		default:
			respondValidationError(c, fmt.Sprintf("invalid entry_type: %s", raw))
			return
		}
	}

	response, err := h.executor.AdminListTransactions(c.Request.Context(), accountID, entryType, page.Limit, page.Offset)
	if err != nil {
		respondError(c, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, response)
}

// AdminUpdateTransactionStatus settles a ledger entry
func (h *handler) AdminUpdateTransactionStatus(c *gin.Context) {
	transactionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || transactionID <= 0 {
		respondBadRequest(c, "Invalid transaction id")
		return
	}

	var req dto.UpdateTransactionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, err, "Failed to update transaction")
		return
	}

	response, err := h.executor.AdminUpdateTransactionStatus(c.Request.Context(), transactionID, schema.TransactionStatus(req.Status))
	if err != nil {
		respondError(c, err, "Failed to update transaction")
		return
	}

	c.JSON(http.StatusOK, response)
}

// AdminPlatformStats computes the admin dashboard aggregates
func (h *handler) AdminPlatformStats(c *gin.Context) {
	response, err := h.executor.AdminPlatformStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to compute platform stats")
		return
	}

	c.JSON(http.StatusOK, response)
}

// AdminUpdateSettings applies platform settings changes
func (h *handler) AdminUpdateSettings(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, err, "Failed to update settings")
		return
	}

	response, err := h.executor.AdminUpdateSettings(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to update settings")
		return
	}

	c.JSON(http.StatusOK, response)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "token-platform-api",
	})
}
