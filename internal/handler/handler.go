package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/payzen/internal/middleware"
	"github.com/Dan9191/payzen/internal/models"
	"github.com/Dan9191/payzen/internal/scheduler"
	"github.com/Dan9191/payzen/internal/service"
)

// BillService is the bill lifecycle as seen by the request layer
type BillService interface {
	CreateBill(ctx context.Context, ownerID int64, in service.BillInput) (*models.Bill, error)
	ListBills(ctx context.Context, ownerID int64) ([]*models.Bill, error)
	UpdateBill(ctx context.Context, ownerID, billID int64, in service.BillInput) (*models.Bill, error)
	MarkPaid(ctx context.Context, billID, ownerID int64) (*models.Bill, int64, error)
}

// Ledger is the reward point ledger as seen by the request layer
type Ledger interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	Credit(ctx context.Context, userID int64, amount int64) (*models.User, error)
	DebitForClaim(ctx context.Context, userID, rewardID int64) (*models.RewardClaim, error)
	LowBalanceCheck(user *models.User) bool
}

// RewardService is the reward catalog as seen by the request layer
type RewardService interface {
	ListRewards(ctx context.Context) ([]*models.Reward, error)
	CreateReward(ctx context.Context, name, description string, pointsRequired int64) (*models.Reward, error)
	SetRewardActive(ctx context.Context, rewardID int64, active bool) (*models.Reward, error)
	ListClaims(ctx context.Context, userID int64) ([]*models.RewardClaim, error)
}

// AdminService manages accounts and reports system statistics
type AdminService interface {
	CreateUser(ctx context.Context, email, username string, isAdmin bool) (*models.User, error)
	SetUserActive(ctx context.Context, actorID, userID int64, active bool) (*models.User, error)
	ToggleUserActive(ctx context.Context, actorID, userID int64) (*models.User, error)
	UserDetails(ctx context.Context, userID int64) (*models.UserDetails, error)
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

// ReminderRunner triggers a reminder pass outside the daily schedule
type ReminderRunner interface {
	RunOnce(ctx context.Context) (scheduler.RunSummary, error)
}

type Handler struct {
	bills     BillService
	ledger    Ledger
	rewards   RewardService
	admins    AdminService
	reminders ReminderRunner
	health    func(ctx context.Context) error
	log       *logrus.Logger
}

func NewHandler(bills BillService, ledger Ledger, rewards RewardService, admins AdminService, reminders ReminderRunner, health func(ctx context.Context) error, log *logrus.Logger) *Handler {
	return &Handler{
		bills:     bills,
		ledger:    ledger,
		rewards:   rewards,
		admins:    admins,
		reminders: reminders,
		health:    health,
		log:       log,
	}
}

// Register mounts every route on r. auth guards everything except the health check.
func (h *Handler) Register(r *mux.Router, auth mux.MiddlewareFunc) {
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/").Subrouter()
	api.Use(auth)
	api.HandleFunc("/bills", h.user(h.ListBills)).Methods(http.MethodGet)
	api.HandleFunc("/bills", h.user(h.CreateBill)).Methods(http.MethodPost)
	api.HandleFunc("/bills/{id:[0-9]+}", h.user(h.UpdateBill)).Methods(http.MethodPut)
	api.HandleFunc("/bills/{id:[0-9]+}/pay", h.user(h.PayBill)).Methods(http.MethodPost)
	api.HandleFunc("/rewards", h.user(h.ListRewards)).Methods(http.MethodGet)
	api.HandleFunc("/rewards/claims", h.user(h.ListClaims)).Methods(http.MethodGet)
	api.HandleFunc("/rewards/{id:[0-9]+}/claim", h.user(h.ClaimReward)).Methods(http.MethodPost)
	api.HandleFunc("/points", h.user(h.GetPoints)).Methods(http.MethodGet)

	api.HandleFunc("/rewards", h.admin(h.CreateReward)).Methods(http.MethodPost)
	api.HandleFunc("/rewards/{id:[0-9]+}", h.admin(h.SetRewardActive)).Methods(http.MethodPatch)
	api.HandleFunc("/users/{id:[0-9]+}/points", h.admin(h.CreditPoints)).Methods(http.MethodPost)
	api.HandleFunc("/admin/reminders/run", h.admin(h.RunReminders)).Methods(http.MethodPost)
	api.HandleFunc("/admin/stats", h.admin(h.Stats)).Methods(http.MethodGet)
	api.HandleFunc("/admin/users", h.admin(h.CreateUser)).Methods(http.MethodPost)
	api.HandleFunc("/admin/users/{id:[0-9]+}", h.admin(h.SetUserActive)).Methods(http.MethodPatch)
	api.HandleFunc("/admin/users/{id:[0-9]+}/toggle", h.admin(h.ToggleUser)).Methods(http.MethodPost)
	api.HandleFunc("/admin/users/{id:[0-9]+}/details", h.admin(h.UserDetails)).Methods(http.MethodGet)
}

type userHandlerFunc func(w http.ResponseWriter, r *http.Request, user *models.User)

// user resolves the authenticated user and rejects deactivated accounts
func (h *Handler) user(next userHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
			return
		}
		user, err := h.ledger.GetUser(r.Context(), userID)
		if errors.Is(err, service.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unknown user"})
			return
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if !user.IsActive {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "account is deactivated"})
			return
		}
		next(w, r, user)
	}
}

func (h *Handler) admin(next userHandlerFunc) http.HandlerFunc {
	return h.user(func(w http.ResponseWriter, r *http.Request, user *models.User) {
		if !user.IsAdmin {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin access required"})
			return
		}
		next(w, r, user)
	})
}

// Health reports whether the database is reachable
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.log.Warnf("Health check failed: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type billRequest struct {
	BillerName       string      `json:"biller_name"`
	Category         string      `json:"category"`
	Amount           json.Number `json:"amount"`
	DueDate          string      `json:"due_date"`
	ReminderInterval int         `json:"reminder_interval_days"`
}

func (b billRequest) input() service.BillInput {
	return service.BillInput{
		BillerName:       b.BillerName,
		Category:         b.Category,
		Amount:           b.Amount.String(),
		DueDate:          b.DueDate,
		ReminderInterval: b.ReminderInterval,
	}
}

// ListBills handles GET /bills
func (h *Handler) ListBills(w http.ResponseWriter, r *http.Request, user *models.User) {
	bills, err := h.bills.ListBills(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

// CreateBill handles POST /bills
func (h *Handler) CreateBill(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req billRequest
	if !h.decode(w, r, &req) {
		return
	}
	bill, err := h.bills.CreateBill(r.Context(), user.ID, req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

// UpdateBill handles PUT /bills/{id}
func (h *Handler) UpdateBill(w http.ResponseWriter, r *http.Request, user *models.User) {
	billID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req billRequest
	if !h.decode(w, r, &req) {
		return
	}
	bill, err := h.bills.UpdateBill(r.Context(), user.ID, billID, req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

type payResponse struct {
	Bill         *models.Bill `json:"bill"`
	PointsEarned int64        `json:"points_earned"`
}

// PayBill handles POST /bills/{id}/pay
func (h *Handler) PayBill(w http.ResponseWriter, r *http.Request, user *models.User) {
	billID, ok := pathID(w, r)
	if !ok {
		return
	}
	bill, points, err := h.bills.MarkPaid(r.Context(), billID, user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payResponse{Bill: bill, PointsEarned: points})
}

// ListRewards handles GET /rewards
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request, _ *models.User) {
	rewards, err := h.rewards.ListRewards(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rewards)
}

// ClaimReward handles POST /rewards/{id}/claim
func (h *Handler) ClaimReward(w http.ResponseWriter, r *http.Request, user *models.User) {
	rewardID, ok := pathID(w, r)
	if !ok {
		return
	}
	claim, err := h.ledger.DebitForClaim(r.Context(), user.ID, rewardID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, claim)
}

// ListClaims handles GET /rewards/claims
func (h *Handler) ListClaims(w http.ResponseWriter, r *http.Request, user *models.User) {
	claims, err := h.rewards.ListClaims(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

type pointsResponse struct {
	UserID       int64 `json:"user_id"`
	RewardPoints int64 `json:"reward_points"`
	LowBalance   bool  `json:"low_balance"`
}

// GetPoints handles GET /points
func (h *Handler) GetPoints(w http.ResponseWriter, r *http.Request, user *models.User) {
	writeJSON(w, http.StatusOK, pointsResponse{
		UserID:       user.ID,
		RewardPoints: user.RewardPoints,
		LowBalance:   h.ledger.LowBalanceCheck(user),
	})
}

type rewardRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	PointsRequired int64  `json:"points_required"`
}

// CreateReward handles POST /rewards
func (h *Handler) CreateReward(w http.ResponseWriter, r *http.Request, _ *models.User) {
	var req rewardRequest
	if !h.decode(w, r, &req) {
		return
	}
	reward, err := h.rewards.CreateReward(r.Context(), req.Name, req.Description, req.PointsRequired)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reward)
}

type rewardStateRequest struct {
	IsActive *bool `json:"is_active"`
}

// SetRewardActive handles PATCH /rewards/{id}
func (h *Handler) SetRewardActive(w http.ResponseWriter, r *http.Request, _ *models.User) {
	rewardID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req rewardStateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.IsActive == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "is_active is required"})
		return
	}
	reward, err := h.rewards.SetRewardActive(r.Context(), rewardID, *req.IsActive)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reward)
}

type creditRequest struct {
	Amount int64 `json:"amount"`
}

// CreditPoints handles POST /users/{id}/points
func (h *Handler) CreditPoints(w http.ResponseWriter, r *http.Request, admin *models.User) {
	userID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req creditRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.ledger.Credit(r.Context(), userID, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.WithFields(logrus.Fields{"admin_id": admin.ID, "user_id": userID}).Infof("Manual credit of %d points", req.Amount)
	writeJSON(w, http.StatusOK, user)
}

// RunReminders handles POST /admin/reminders/run. The run finishes even if the client goes away.
func (h *Handler) RunReminders(w http.ResponseWriter, r *http.Request, _ *models.User) {
	summary, err := h.reminders.RunOnce(context.WithoutCancel(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Stats handles GET /admin/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request, _ *models.User) {
	stats, err := h.admins.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type userRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// CreateUser handles POST /admin/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request, _ *models.User) {
	var req userRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.admins.CreateUser(r.Context(), req.Email, req.Username, req.IsAdmin)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type userStateRequest struct {
	IsActive *bool `json:"is_active"`
}

// SetUserActive handles PATCH /admin/users/{id}
func (h *Handler) SetUserActive(w http.ResponseWriter, r *http.Request, admin *models.User) {
	userID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req userStateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.IsActive == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "is_active is required"})
		return
	}
	user, err := h.admins.SetUserActive(r.Context(), admin.ID, userID, *req.IsActive)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ToggleUser handles POST /admin/users/{id}/toggle
func (h *Handler) ToggleUser(w http.ResponseWriter, r *http.Request, admin *models.User) {
	userID, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.admins.ToggleUserActive(r.Context(), admin.ID, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UserDetails handles GET /admin/users/{id}/details
func (h *Handler) UserDetails(w http.ResponseWriter, r *http.Request, _ *models.User) {
	userID, ok := pathID(w, r)
	if !ok {
		return
	}
	details, err := h.admins.UserDetails(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}
