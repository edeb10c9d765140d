package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/models"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"bitbucket.org/mmdatafocus/ledger_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("ledger-backend")

// requestContextMiddleware attaches correlation id and tenant/actor identity
// from headers. The gateway in front of this service authenticates the caller
// and forwards the trusted identity headers.
func requestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), cid)

		if businessId := c.GetHeader("x-business-id"); businessId != "" {
			ctx = utils.SetBusinessIdInContext(ctx, businessId)
		}
		if userName := c.GetHeader("x-user-name"); userName != "" {
			ctx = utils.SetUserNameInContext(ctx, userName)
		}
		if userId := c.GetHeader("x-user-id"); userId != "" {
			if id, err := strconv.Atoi(userId); err == nil {
				ctx = utils.SetUserIdInContext(ctx, id)
			}
		}

		c.Header("x-correlation-id", cid)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requireBusiness(c *gin.Context) (context.Context, bool) {
	ctx := c.Request.Context()
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "x-business-id header is required"})
		return nil, false
	}
	return ctx, true
}

func bindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(validationErrors)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

func workflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrImbalancedEntry),
		errors.Is(err, workflow.ErrUnknownAccount),
		errors.Is(err, workflow.ErrDayNotLocked),
		errors.Is(err, workflow.ErrJournalNotPosted):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrConflictingMatch),
		errors.Is(err, workflow.ErrAlreadyMatched),
		errors.Is(err, workflow.ErrCascadeBlocked),
		errors.Is(err, workflow.ErrJournalNumberTaken),
		errors.Is(err, workflow.ErrDuplicateTrigger):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrAdjustmentNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func postJournalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		var input models.NewJournal
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		journal, err := workflow.PostJournal(ctx, &input)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusCreated, journal)
	}
}

type reverseJournalRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func reverseJournalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid journal id"})
			return
		}
		var req reverseJournalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		reversal, err := workflow.ReverseJournal(ctx, id, req.Reason)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, reversal)
	}
}

func unreconciledEntriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		accountId, err := strconv.Atoi(c.Param("id"))
		if err != nil || accountId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
			return
		}
		var from, to *time.Time
		if v := c.Query("from"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
				return
			}
			from = &t
		}
		if v := c.Query("to"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
				return
			}
			to = &t
		}
		entries, err := workflow.GetUnreconciledEntries(ctx, accountId, from, to)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

type markReconciledRequest struct {
	BankTransactionId int `json:"bank_transaction_id" binding:"required"`
}

func markReconciledHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		entryId, err := strconv.Atoi(c.Param("id"))
		if err != nil || entryId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
			return
		}
		var req markReconciledRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		entry, err := workflow.MarkReconciled(ctx, entryId, req.BankTransactionId)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

type cycleStepRequest struct {
	Date   string `json:"date" binding:"required"`
	Reason string `json:"reason"`
}

func (r cycleStepRequest) parseDate() (time.Time, error) {
	return time.Parse("2006-01-02", r.Date)
}

func cycleStepHandler(step string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		var req cycleStepRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		date, err := req.parseDate()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}

		ctx, span := tracer.Start(ctx, "daily-cycle/"+step)
		defer span.End()

		var result *workflow.CycleResult
		switch step {
		case "capture-opening":
			result, err = workflow.CaptureOpening(ctx, date)
		case "calculate-closing":
			result, err = workflow.CalculateClosing(ctx, date)
		case "complete":
			result, err = workflow.CompleteDay(ctx, date)
		case "lock":
			result, err = workflow.LockDay(ctx, date, req.Reason)
		}
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func applyAdjustmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		var input workflow.NewAdjustment
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		adjustment, err := workflow.ApplyAdjustment(ctx, &input)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusCreated, adjustment)
	}
}

type autoMatchRequest struct {
	BankAccountId int     `json:"bank_account_id" binding:"required"`
	RunId         string  `json:"run_id"`
	Threshold     float64 `json:"threshold"`
}

func autoMatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		var req autoMatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		ctx, span := tracer.Start(ctx, "reconciliation/auto-match")
		defer span.End()

		result, err := workflow.RunAutoMatch(ctx, req.BankAccountId, req.RunId, req.Threshold)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

type confirmMatchRequest struct {
	BankTransactionId int    `json:"bank_transaction_id" binding:"required"`
	CandidateType     string `json:"candidate_type" binding:"required"`
	CandidateId       int    `json:"candidate_id" binding:"required"`
}

func confirmMatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		var req confirmMatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		candidateType, err := models.ParseMatchCandidateType(req.CandidateType)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		txn, err := workflow.ConfirmMatch(ctx, req.BankTransactionId, candidateType, req.CandidateId)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, txn)
	}
}

func createSessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		var input workflow.NewReconciliationSession
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		session, err := workflow.CreateSession(ctx, &input)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusCreated, session)
	}
}

type completeSessionRequest struct {
	Force bool `json:"force"`
}

func completeSessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
			return
		}
		var req completeSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		session, err := workflow.CompleteSession(ctx, id, req.Force)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

func importBankTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		var inputs []models.NewBankTransaction
		if err := c.ShouldBindJSON(&inputs); err != nil {
			bindError(c, err)
			return
		}
		results, err := models.ImportBankTransactions(ctx, inputs)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusCreated, results)
	}
}

func createAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		var input models.NewAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		account, err := models.CreateAccount(ctx, &input)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusCreated, account)
	}
}

func listAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		accounts, err := models.GetActiveAccounts(ctx)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, accounts)
	}
}

func getAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
			return
		}
		account, err := models.GetAccount(ctx, id)
		if err != nil {
			workflowError(c, err)
			return
		}
		balance, err := models.GetAccountClosingBalance(ctx, id)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"account": account, "closing_balance": balance})
	}
}

func updateAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
			return
		}
		var input models.NewAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		account, err := models.UpdateAccount(ctx, id, &input)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func deleteAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
			return
		}
		account, err := models.DeleteAccount(ctx, id)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

type markAccountActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func markAccountActiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireBusiness(c); !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
			return
		}
		var req markAccountActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		account, err := models.MarkAccountActive(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func getJournalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid journal id"})
			return
		}
		journal, err := models.GetJournal(ctx, id)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, journal)
	}
}

func openSessionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		bankAccountId, err := strconv.Atoi(c.Query("bank_account_id"))
		if err != nil || bankAccountId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bank_account_id query is required"})
			return
		}
		sessions, err := models.GetOpenSessions(ctx, bankAccountId)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, sessions)
	}
}

func unmatchedTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		bankAccountId, err := strconv.Atoi(c.Query("bank_account_id"))
		if err != nil || bankAccountId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bank_account_id query is required"})
			return
		}
		transactions, err := models.GetUnmatchedBankTransactions(ctx, bankAccountId)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, transactions)
	}
}

func listInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		businessId, _ := utils.GetBusinessIdFromContext(ctx)
		invoices, err := utils.FetchAllModels[models.Invoice](ctx, businessId)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoices)
	}
}

func getInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
			return
		}
		invoice, err := models.GetInvoice(ctx, id)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func auditEventsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireBusiness(c)
		if !ok {
			return
		}
		entityType := c.Query("entity_type")
		var entityId *int
		if v := c.Query("entity_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil || id <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity_id"})
				return
			}
			entityId = &id
		}
		events, err := models.GetAuditEvents(ctx, &entityType, entityId)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger logs only requests that accumulated errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server before dependencies are ready; app endpoints
	// return 503 until the DB is up.
	r := gin.New()
	r.Use(requestContextMiddleware())
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "x-business-id", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length", "x-correlation-id")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/accounts", createAccountHandler())
	r.GET("/accounts", listAccountsHandler())
	r.GET("/accounts/:id", getAccountHandler())
	r.PUT("/accounts/:id", updateAccountHandler())
	r.DELETE("/accounts/:id", deleteAccountHandler())
	r.POST("/accounts/:id/active", markAccountActiveHandler())
	r.GET("/accounts/:id/unreconciled-entries", unreconciledEntriesHandler())
	r.POST("/journals", postJournalHandler())
	r.GET("/journals/:id", getJournalHandler())
	r.POST("/journals/:id/reverse", reverseJournalHandler())
	r.POST("/entries/:id/reconcile", markReconciledHandler())
	r.GET("/invoices", listInvoicesHandler())
	r.GET("/invoices/:id", getInvoiceHandler())
	r.GET("/audit-events", auditEventsHandler())

	r.POST("/daily-cycle/capture-opening", cycleStepHandler("capture-opening"))
	r.POST("/daily-cycle/calculate-closing", cycleStepHandler("calculate-closing"))
	r.POST("/daily-cycle/complete", cycleStepHandler("complete"))
	r.POST("/daily-cycle/lock", cycleStepHandler("lock"))
	r.POST("/daily-cycle/adjustments", applyAdjustmentHandler())

	r.POST("/bank-transactions/import", importBankTransactionsHandler())
	r.GET("/bank-transactions/unmatched", unmatchedTransactionsHandler())
	r.POST("/reconciliation/auto-match", autoMatchHandler())
	r.POST("/reconciliation/confirm-match", confirmMatchHandler())
	r.POST("/reconciliation/sessions", createSessionHandler())
	r.GET("/reconciliation/sessions", openSessionsHandler())
	r.POST("/reconciliation/sessions/:id/complete", completeSessionHandler())

	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedis()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations as
	// a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
