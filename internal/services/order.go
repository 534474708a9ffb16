package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/coursemart-backend/internal/data/repos"
	types "github.com/yungbote/coursemart-backend/internal/domain"
	"github.com/yungbote/coursemart-backend/internal/platform/apierr"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
)

const PaymentStatusSucceeded = "succeeded"

type PaymentInput struct {
	Method        string
	TransactionID string
	Metadata      map[string]any
}

type OrderService interface {
	Create(ctx context.Context, courseIDs []string) (*types.Order, error)
	Complete(ctx context.Context, orderID string, in PaymentInput) (*types.Order, *types.Payment, error)
	Cancel(ctx context.Context, orderID string) (*types.Order, error)
}

type orderService struct {
	db             *gorm.DB
	log            *logger.Logger
	userRepo       repos.UserRepo
	courseRepo     repos.CourseRepo
	enrollmentRepo repos.EnrollmentRepo
	orderRepo      repos.OrderRepo
	paymentRepo    repos.PaymentRepo
}

func NewOrderService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	courseRepo repos.CourseRepo,
	enrollmentRepo repos.EnrollmentRepo,
	orderRepo repos.OrderRepo,
	paymentRepo repos.PaymentRepo,
) OrderService {
	return &orderService{
		db:             db,
		log:            baseLog.With("service", "OrderService"),
		userRepo:       userRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		orderRepo:      orderRepo,
		paymentRepo:    paymentRepo,
	}
}

// Create snapshots the current price of every requested course.
func (ors *orderService) Create(ctx context.Context, courseIDs []string) (*types.Order, error) {
	if len(courseIDs) == 0 {
		return nil, apierr.Invalid("At least one course is required.")
	}
	u, err := loadCaller(ctx, ors.userRepo)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(courseIDs))
	seen := map[uuid.UUID]bool{}
	for _, raw := range courseIDs {
		id, err := parseID(raw, "course")
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	courses, err := ors.courseRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load courses: %w", err))
	}
	byID := make(map[uuid.UUID]*types.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}

	var (
		items []types.OrderItem
		total float64
	)
	for _, id := range ids {
		c, ok := byID[id]
		if !ok || !c.Published {
			return nil, apierr.NotFound(fmt.Sprintf("Course %s not found.", id))
		}
		items = append(items, types.OrderItem{CourseID: c.ID, Price: c.Price})
		total += c.Price
	}

	order, err := ors.orderRepo.Create(ctx, nil, &types.Order{
		UserID:      u.ID,
		TotalAmount: total,
		Status:      types.OrderStatusPending,
		Items:       datatypes.NewJSONSlice(items),
	})
	if err != nil {
		return nil, apierr.From(fmt.Errorf("create order: %w", err))
	}
	ors.log.Info("order created", "order_id", order.ID, "user_id", u.ID, "items", len(items))
	return order, nil
}

// Complete records the payment and enrolls the buyer in every purchased
// course in one transaction.
func (ors *orderService) Complete(ctx context.Context, orderID string, in PaymentInput) (*types.Order, *types.Payment, error) {
	method := strings.TrimSpace(in.Method)
	if method == "" {
		return nil, nil, apierr.Invalid("Payment method is required.")
	}
	order, err := ors.ownedOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.Status != types.OrderStatusPending {
		return nil, nil, apierr.Conflict("Order is not pending.")
	}

	var metadata datatypes.JSON
	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, nil, apierr.Invalid("Payment metadata must be a JSON object.")
		}
		metadata = datatypes.JSON(raw)
	}

	var payment *types.Payment
	err = ors.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order.Status = types.OrderStatusCompleted
		if err := ors.orderRepo.Save(ctx, tx, order); err != nil {
			return fmt.Errorf("complete order: %w", err)
		}
		var err error
		payment, err = ors.paymentRepo.Create(ctx, tx, &types.Payment{
			OrderID:       order.ID,
			PaymentMethod: method,
			PaymentStatus: PaymentStatusSucceeded,
			Amount:        order.TotalAmount,
			TransactionID: strings.TrimSpace(in.TransactionID),
			Metadata:      metadata,
		})
		if err != nil {
			return fmt.Errorf("record payment: %w", err)
		}
		courseIDs := make([]uuid.UUID, 0, len(order.Items))
		for _, it := range order.Items {
			courseIDs = append(courseIDs, it.CourseID)
		}
		if err := ors.enrollmentRepo.EnsureMany(ctx, tx, order.UserID, courseIDs); err != nil {
			return fmt.Errorf("enroll buyer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, orderError(err, "Order was already paid.")
	}
	ors.log.Info("order completed", "order_id", order.ID, "amount", order.TotalAmount)
	return order, payment, nil
}

func (ors *orderService) Cancel(ctx context.Context, orderID string) (*types.Order, error) {
	order, err := ors.ownedOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != types.OrderStatusPending {
		return nil, apierr.Conflict("Only pending orders can be cancelled.")
	}
	order.Status = types.OrderStatusCancelled
	if err := ors.orderRepo.Save(ctx, nil, order); err != nil {
		return nil, orderError(fmt.Errorf("cancel order: %w", err), "Order changed concurrently.")
	}
	return order, nil
}

func (ors *orderService) ownedOrder(ctx context.Context, rawID string) (*types.Order, error) {
	id, err := parseID(rawID, "order")
	if err != nil {
		return nil, err
	}
	uid, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	order, err := ors.orderRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load order: %w", err))
	}
	if order == nil {
		return nil, apierr.NotFound("Order not found.")
	}
	if order.UserID != uid {
		return nil, apierr.Forbidden("You are not authorized to access this order.")
	}
	return order, nil
}

func orderError(err error, conflict string) error {
	if errors.Is(err, types.ErrOrderLocked) {
		return apierr.Conflict("Completed orders cannot change prices.")
	}
	return writeError(err, conflict)
}
