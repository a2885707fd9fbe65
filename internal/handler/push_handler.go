package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/labcompare/push-dispatcher/internal/domain"
)

type JourneyService interface {
	StartJourney(ctx context.Context, userID, journeyID string) (int, error)
	Schedule(ctx context.Context, userID string, sendAt time.Time, payload domain.Payload, tag *string) (*domain.ScheduledTask, error)
	CreateJourney(ctx context.Context, journey *domain.Journey) (*domain.Journey, error)
	ListJourneys(ctx context.Context) ([]domain.Journey, error)
}

type SubscriptionService interface {
	Subscribe(ctx context.Context, userID string, sub domain.Subscription) (bool, error)
}

type PushHandler struct {
	journeys      JourneyService
	subscriptions SubscriptionService
}

func NewPushHandler(journeys JourneyService, subscriptions SubscriptionService) (*PushHandler, error) {
	if journeys == nil {
		return nil, fmt.Errorf("journey service is required")
	}
	if subscriptions == nil {
		return nil, fmt.Errorf("subscription service is required")
	}
	return &PushHandler{journeys: journeys, subscriptions: subscriptions}, nil
}

func RegisterPushRoutes(router fiber.Router, journeys JourneyService, subscriptions SubscriptionService) error {
	h, err := NewPushHandler(journeys, subscriptions)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/journeys", h.CreateJourney)
	v1.Get("/journeys", h.ListJourneys)
	v1.Post("/journeys/start", h.StartJourney)
	v1.Post("/tasks", h.ScheduleTask)
	v1.Post("/subscriptions", h.Subscribe)

	return nil
}

type startJourneyRequest struct {
	UserID    string `json:"userId"`
	JourneyID string `json:"journeyId"`
}

type startJourneyResponse struct {
	JourneyID      string `json:"journeyId"`
	UserID         string `json:"userId"`
	ScheduledCount int    `json:"scheduledCount"`
}

type scheduleTaskRequest struct {
	UserID  string         `json:"userId"`
	SendAt  string         `json:"sendAt"`
	Payload domain.Payload `json:"payload"`
	Tag     *string        `json:"tag,omitempty"`
}

type taskResponse struct {
	ID      string         `json:"id"`
	UserID  string         `json:"userId"`
	SendAt  time.Time      `json:"sendAt"`
	Payload domain.Payload `json:"payload"`
	Tag     *string        `json:"tag,omitempty"`
}

type subscribeRequest struct {
	UserID       string              `json:"userId"`
	Subscription domain.Subscription `json:"subscription"`
}

type createJourneyRequest struct {
	Name  string               `json:"name"`
	Steps []domain.JourneyStep `json:"steps"`
}

type journeyResponse struct {
	ID    string               `json:"id"`
	Name  string               `json:"name"`
	Steps []domain.JourneyStep `json:"steps"`
}

func (h *PushHandler) StartJourney(c *fiber.Ctx) error {
	var req startJourneyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	count, err := h.journeys.StartJourney(c.Context(), strings.TrimSpace(req.UserID), strings.TrimSpace(req.JourneyID))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(startJourneyResponse{
		JourneyID:      req.JourneyID,
		UserID:         req.UserID,
		ScheduledCount: count,
	})
}

func (h *PushHandler) ScheduleTask(c *fiber.Ctx) error {
	var req scheduleTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	sendAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.SendAt))
	if err != nil {
		return toHTTPError(fmt.Errorf("%w: sendAt must be RFC3339", domain.ErrValidation))
	}

	task, err := h.journeys.Schedule(c.Context(), strings.TrimSpace(req.UserID), sendAt, req.Payload, req.Tag)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(taskResponse{
		ID:      task.ID,
		UserID:  task.UserID,
		SendAt:  task.SendAt,
		Payload: task.Payload,
		Tag:     task.Tag,
	})
}

func (h *PushHandler) Subscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	added, err := h.subscriptions.Subscribe(c.Context(), strings.TrimSpace(req.UserID), req.Subscription)
	if err != nil {
		return toHTTPError(err)
	}

	status := fiber.StatusOK
	if added {
		status = fiber.StatusCreated
	}

	return c.Status(status).JSON(fiber.Map{
		"userId":   req.UserID,
		"endpoint": req.Subscription.Endpoint,
		"added":    added,
	})
}

func (h *PushHandler) CreateJourney(c *fiber.Ctx) error {
	var req createJourneyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	journey, err := h.journeys.CreateJourney(c.Context(), &domain.Journey{
		Name:  strings.TrimSpace(req.Name),
		Steps: req.Steps,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toJourneyResponse(journey))
}

func (h *PushHandler) ListJourneys(c *fiber.Ctx) error {
	journeys, err := h.journeys.ListJourneys(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]journeyResponse, 0, len(journeys))
	for i := range journeys {
		responses = append(responses, toJourneyResponse(&journeys[i]))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": responses,
	})
}

func toJourneyResponse(j *domain.Journey) journeyResponse {
	if j == nil {
		return journeyResponse{}
	}
	return journeyResponse{
		ID:    j.ID,
		Name:  j.Name,
		Steps: j.Steps,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
